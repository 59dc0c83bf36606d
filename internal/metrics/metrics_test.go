package metrics

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"dataset-service/internal/builder"
	"dataset-service/internal/generator"
	"dataset-service/internal/models"
	"dataset-service/internal/validator"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserveDataset(t *testing.T) {
	m := New()
	ds := &generator.Dataset{
		Customers: make([]models.Customer, 3),
		Orders:    make([]models.Order, 5),
		Warnings:  []generator.InfeasibleDistributionError{{Stage: "orders"}, {Stage: "orders"}, {Stage: "items"}},
		Timings:   map[string]time.Duration{"orders": 20 * time.Millisecond},
	}
	m.ObserveDataset(ds)

	assert.Equal(t, 3.0, testutil.ToFloat64(m.RecordsGenerated.WithLabelValues("customers")))
	assert.Equal(t, 5.0, testutil.ToFloat64(m.RecordsGenerated.WithLabelValues("orders")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.Deviations.WithLabelValues("orders")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Deviations.WithLabelValues("items")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.StageDuration))
}

func TestObserveBuildAndReport(t *testing.T) {
	m := New()
	m.ObserveBuild(&builder.BuildSummary{Counts: map[string]int64{"orders": 250}, Duration: time.Second})
	m.ObserveReport(&validator.Report{
		Passed: false,
		Checks: []validator.Check{{Name: "order_totals", Passed: true}, {Name: "price_band"}},
	})

	assert.Equal(t, 250.0, testutil.ToFloat64(m.RowsLoaded.WithLabelValues("orders")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CheckPassed.WithLabelValues("order_totals")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.CheckPassed.WithLabelValues("price_band")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.ValidationPassed))
}

func TestHandlerAndTextfile(t *testing.T) {
	m := New()
	m.ValidationPassed.Set(1)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "dataset_validation_passed 1")

	path := filepath.Join(t.TempDir(), "dataset.prom")
	require.NoError(t, m.WriteTextfile(path))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "dataset_validation_passed 1")
}
