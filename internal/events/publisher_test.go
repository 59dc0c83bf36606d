package events

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"dataset-service/internal/generator"
	"dataset-service/internal/validator"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGeneratedEvent(t *testing.T) {
	ds := &generator.Dataset{
		RunID:     "run-1",
		DatasetID: "ds-1",
		Seed:      42,
		Warnings:  []generator.InfeasibleDistributionError{{Stage: "orders"}},
	}
	event := GeneratedEvent(ds, map[string]int64{"orders": 250})

	assert.Equal(t, TypeGenerated, event.Type)
	assert.Equal(t, "run-1", event.RunID)
	assert.Equal(t, uint64(42), event.Seed)
	assert.Equal(t, 1, event.Warnings)
	assert.Nil(t, event.Passed)
	assert.Equal(t, "dataset.generated", NewPublisher(nil, "dataset").Subject(event))
}

func TestValidatedEvent(t *testing.T) {
	report := &validator.Report{
		RunID:       "run-2",
		DatasetID:   "ds-2",
		ValidatedAt: time.Date(2025, 10, 20, 12, 0, 0, 0, time.UTC),
		Checks: []validator.Check{
			{Name: validator.CheckOrderTotals, Passed: true},
			{Name: validator.CheckPriceBand},
		},
	}
	event := ValidatedEvent(report, 7)

	require.NotNil(t, event.Passed)
	assert.False(t, *event.Passed)
	assert.Equal(t, []string{validator.CheckPriceBand}, event.Failed)

	data, err := json.Marshal(event)
	require.NoError(t, err)
	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "validated", decoded["type"])
	assert.Equal(t, "run-2", decoded["run_id"])
	assert.Equal(t, false, decoded["passed"])
	assert.Equal(t, "2025-10-20T12:00:00Z", decoded["occurred_at"])
}

func TestPublish_WithoutConnectionIsNoop(t *testing.T) {
	ctx := context.Background()
	event := DatasetEvent{Type: TypeGenerated, RunID: "run-3"}

	assert.NoError(t, NewPublisher(nil, "dataset").Publish(ctx, event))

	var p *Publisher
	assert.NoError(t, p.Publish(ctx, event))
}
