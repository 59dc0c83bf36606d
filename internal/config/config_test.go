package config

import (
	"os"
	"path/filepath"
	"testing"

	"dataset-service/internal/generator"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// inTempDir runs the test from an empty directory so no stray config.yaml
// or .env is picked up.
func inTempDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })
	return dir
}

func TestLoadConfig_Defaults(t *testing.T) {
	inTempDir(t)

	cfg, err := LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, generator.DefaultOptions(), cfg.Generator)
	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, "techhub.db", cfg.Store.SQLite.Path)
	assert.Equal(t, "techhub", cfg.Store.Postgres.Schema)
	assert.Equal(t, "0.02", cfg.Validation.TotalTolerance)
	assert.Equal(t, "json", cfg.Export.ReportFormat)
	assert.Empty(t, cfg.NATS.URL)
	assert.Equal(t, "DATASET_EVENTS", cfg.NATS.Stream)
	assert.Equal(t, 86400, cfg.Redis.TTL)
	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, []string{"*"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestLoadConfig_FromEnv(t *testing.T) {
	inTempDir(t)
	t.Setenv("DATASET_GENERATOR_SEED", "7")
	t.Setenv("DATASET_GENERATOR_ORDERS", "400")
	t.Setenv("DATASET_STORE_SQLITE_PATH", ":memory:")
	t.Setenv("DATASET_EXPORT_REPORT_FORMAT", "yaml")
	t.Setenv("DATASET_NATS_URL", "nats://localhost:4222")
	t.Setenv("DATASET_LOGGING_LEVEL", "debug")
	t.Setenv("DATASET_SERVER_ALLOWED_ORIGINS", "https://a.example,https://b.example")

	cfg, err := LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, uint64(7), cfg.Generator.Seed)
	assert.Equal(t, 400, cfg.Generator.Orders)
	assert.Equal(t, ":memory:", cfg.Store.SQLite.Path)
	assert.Equal(t, "yaml", cfg.Export.ReportFormat)
	assert.Equal(t, "nats://localhost:4222", cfg.NATS.URL)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.Server.AllowedOrigins)
}

func TestLoadConfig_DotEnv(t *testing.T) {
	dir := inTempDir(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("DATASET_SERVER_PORT=9090\n"), 0o600))
	t.Cleanup(func() { _ = os.Unsetenv("DATASET_SERVER_PORT") })

	cfg, err := LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, "9090", cfg.Server.Port)
}

func TestLoadConfig_File(t *testing.T) {
	dir := inTempDir(t)
	path := filepath.Join(dir, "dataset.yaml")
	content := `
generator:
  seed: 99
  customers: 20
  orders: 60
  start_date: "2024-01-01"
  end_date: "2024-12-31"
  segment_mix:
    - name: Consumer
      weight: 1
    - name: Home Office
      weight: 1
  affinity:
    - from: Laptops
      to: Keyboards
      match: Mouse
      weight: 2
store:
  driver: postgres
  postgres:
    host: db.internal
    name: datasets
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, uint64(99), cfg.Generator.Seed)
	assert.Equal(t, 60, cfg.Generator.Orders)
	assert.Equal(t, "2024-12-31", cfg.Generator.EndDate)
	assert.Equal(t, []generator.Weight{{Name: "Consumer", Weight: 1}, {Name: "Home Office", Weight: 1}}, cfg.Generator.SegmentMix)
	assert.Equal(t, []generator.AffinityRule{{From: "Laptops", To: "Keyboards", Match: "Mouse", Weight: 2}}, cfg.Generator.Affinity)
	// Tables left out of the file keep their defaults.
	assert.Equal(t, generator.DefaultStatusMix(), cfg.Generator.StatusMix)
	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, "db.internal", cfg.Store.Postgres.Host)
	assert.Equal(t, "5432", cfg.Store.Postgres.Port)
}

func TestLoadConfig_MissingExplicitFile(t *testing.T) {
	dir := inTempDir(t)
	_, err := LoadConfig(filepath.Join(dir, "nope.yaml"))
	assert.Error(t, err)
}

func TestLoadConfig_Invalid(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  string
	}{
		{name: "unknown driver", key: "DATASET_STORE_DRIVER", val: "mysql"},
		{name: "report format", key: "DATASET_EXPORT_REPORT_FORMAT", val: "xml"},
		{name: "total tolerance", key: "DATASET_VALIDATION_TOTAL_TOLERANCE", val: "two cents"},
		{name: "negative orders", key: "DATASET_GENERATOR_ORDERS", val: "-5"},
		{name: "inverted window", key: "DATASET_GENERATOR_START_DATE", val: "2026-01-01"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inTempDir(t)
			t.Setenv(tt.key, tt.val)
			_, err := LoadConfig("")
			assert.Error(t, err)
		})
	}
}
