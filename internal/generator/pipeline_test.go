package generator

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func collections(t *testing.T, ds *Dataset) []byte {
	t.Helper()
	out, err := json.Marshal([]interface{}{ds.Customers, ds.Products, ds.Orders, ds.Items, ds.Warnings})
	require.NoError(t, err)
	return out
}

func TestGenerate_Deterministic(t *testing.T) {
	first := mustGenerate(t, DefaultOptions())
	second := mustGenerate(t, DefaultOptions())

	assert.Equal(t, collections(t, first), collections(t, second))
	assert.Equal(t, first.DatasetID, second.DatasetID)
	assert.NotEqual(t, first.RunID, second.RunID)
}

func TestGenerate_SeedChangesOutput(t *testing.T) {
	opts := DefaultOptions()
	first := mustGenerate(t, opts)
	opts.Seed = 7
	second := mustGenerate(t, opts)

	assert.NotEqual(t, collections(t, first), collections(t, second))
	assert.NotEqual(t, first.DatasetID, second.DatasetID)

	// Exact quotas do not depend on the seed.
	assert.Equal(t, len(first.Orders), len(second.Orders))
}

func TestGenerate_EmptyTablesFallBackToDefaults(t *testing.T) {
	opts := DefaultOptions()
	opts.SegmentMix = nil
	opts.StatusMix = nil
	opts.Affinity = nil

	assert.Equal(t, collections(t, mustGenerate(t, DefaultOptions())), collections(t, mustGenerate(t, opts)))
}

func TestGenerate_InvalidOptions(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Options)
	}{
		{name: "negative orders", mutate: func(o *Options) { o.Orders = -1 }},
		{name: "orders without customers", mutate: func(o *Options) { o.Customers = 0 }},
		{name: "inverted window", mutate: func(o *Options) { o.StartDate, o.EndDate = o.EndDate, o.StartDate }},
		{name: "bad date", mutate: func(o *Options) { o.EndDate = "20-10-2025" }},
		{name: "zero status weights", mutate: func(o *Options) { o.StatusMix = []Weight{{Name: "Delivered", Weight: 0}} }},
		{name: "unknown segment", mutate: func(o *Options) { o.SegmentMix = []Weight{{Name: "Enterprise", Weight: 1}} }},
		{name: "negative weight", mutate: func(o *Options) { o.QuantityMix = []Weight{{Name: "1", Weight: -1}} }},
		{name: "quantity out of range", mutate: func(o *Options) { o.QuantityMix = []Weight{{Name: "6", Weight: 1}} }},
		{name: "unknown affinity target", mutate: func(o *Options) { o.Affinity = []AffinityRule{{From: "Audio", To: "Phones", Weight: 1}} }},
		{name: "variance fraction", mutate: func(o *Options) { o.PriceVarianceFraction = 1.5 }},
		{name: "ship delays", mutate: func(o *Options) { o.ShipDelayMin = 4 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := DefaultOptions()
			tt.mutate(&opts)
			ds, err := Generate(mustCatalog(t), opts)
			assert.Nil(t, ds)
			assert.ErrorIs(t, err, ErrInvalidConfig)
		})
	}
}

func TestGenerate_DefaultVolume(t *testing.T) {
	ds := mustGenerate(t, DefaultOptions())

	counts := ds.Counts()
	assert.Equal(t, 50, counts["customers"])
	assert.Equal(t, 25, counts["products"])
	assert.Equal(t, 250, counts["orders"])
	assert.Greater(t, counts["order_items"], 247)
	assert.Less(t, counts["order_items"], 247*maxItemsPerOrder)
	assert.Contains(t, ds.Timings, "orders")
}
