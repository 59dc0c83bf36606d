package generator

import (
	"errors"
	"regexp"
	"strings"
	"testing"

	"dataset-service/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	customerIDPattern = regexp.MustCompile(`^CUST-\d{3}$`)
	phonePattern      = regexp.MustCompile(`^[2-9]\d{2}-[2-9]\d{2}-\d{4}$`)
)

func TestGenerateCustomers_DefaultScenario(t *testing.T) {
	opts := DefaultOptions()
	customers, err := GenerateCustomers(opts, StageSeed(opts.Seed, stageCustomers))
	require.NoError(t, err)
	require.Len(t, customers, 50)

	segments := map[models.Segment]int{}
	emails := map[string]bool{}
	names := map[string]bool{}
	for i, c := range customers {
		segments[c.Segment]++

		assert.Regexp(t, customerIDPattern, c.CustomerID)
		assert.Equal(t, i+1, mustAtoi(t, strings.TrimPrefix(c.CustomerID, "CUST-")))
		assert.Regexp(t, phonePattern, c.Phone)
		assert.Len(t, c.State, 2)
		assert.NotEmpty(t, c.City)

		assert.False(t, emails[c.Email], "duplicate email %s", c.Email)
		emails[c.Email] = true
		assert.False(t, names[c.Name], "duplicate name %s", c.Name)
		names[c.Name] = true

		domain := c.Email[strings.Index(c.Email, "@")+1:]
		assert.Contains(t, emailDomains(c.Segment), domain)
	}

	assert.Equal(t, 40, segments[models.SegmentConsumer])
	assert.Equal(t, 8, segments[models.SegmentCorporate])
	assert.Equal(t, 2, segments[models.SegmentHomeOffice])
}

func TestGenerateCustomers_CityStatePairsAreValid(t *testing.T) {
	valid := map[string]string{}
	for _, r := range regions {
		for _, c := range r.Cities {
			valid[c.Name] = c.State
		}
	}

	opts := DefaultOptions()
	opts.Customers = 200
	customers, err := GenerateCustomers(opts, 99)
	require.NoError(t, err)
	for _, c := range customers {
		assert.Equal(t, valid[c.City], c.State, "city %s", c.City)
	}
}

func TestGenerateCustomers_CapacityErrors(t *testing.T) {
	_, maxNames := CustomerCapacity(4)

	tests := []struct {
		name     string
		count    int
		idWidth  int
		resource string
	}{
		{name: "identifier width", count: 1000, idWidth: 3, resource: "customer identifiers"},
		{name: "name pool", count: maxNames + 1, idWidth: 4, resource: "customer names"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := DefaultOptions()
			opts.Customers = tt.count
			opts.IDWidth = tt.idWidth

			customers, err := GenerateCustomers(opts, 1)
			require.Error(t, err)
			assert.Nil(t, customers)
			assert.True(t, errors.Is(err, ErrCapacity))

			var capErr *CapacityError
			require.ErrorAs(t, err, &capErr)
			assert.Equal(t, tt.resource, capErr.Resource)
			assert.Equal(t, tt.count, capErr.Requested)
		})
	}
}

func TestGenerate_CapacityErrorBeforeOutput(t *testing.T) {
	opts := DefaultOptions()
	opts.Customers = 5000
	opts.IDWidth = 4

	ds, err := Generate(mustCatalog(t), opts)
	assert.Nil(t, ds)
	assert.ErrorIs(t, err, ErrCapacity)
}

func TestUniqueEmail_CollidingLocalParts(t *testing.T) {
	seen := map[string]struct{}{}
	domains := []string{"gmail.com"}

	first := uniqueEmail(seen, "annalee", domains, 0)
	second := uniqueEmail(seen, "annalee", domains, 0)

	assert.Equal(t, "annalee@gmail.com", first)
	assert.Equal(t, "annalee2@gmail.com", second)
}

func TestEmailLocal(t *testing.T) {
	assert.Equal(t, "jane.doe", emailLocal(models.SegmentConsumer, "Jane", "Doe"))
	assert.Equal(t, "jane.doe", emailLocal(models.SegmentCorporate, "Jane", "Doe"))
	assert.Equal(t, "janedoe", emailLocal(models.SegmentHomeOffice, "Jane", "Doe"))
}
