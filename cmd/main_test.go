package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"dataset-service/internal/export"
	"dataset-service/internal/validator"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFlags(t *testing.T) {
	tests := []struct {
		name    string
		command string
		args    []string
		want    options
		wantErr string
	}{
		{
			name:    "generate with overrides",
			command: "generate",
			args:    []string{"-seed", "7", "-out", "data/run", "-report-format", "yaml"},
			want:    options{seed: 7, seedSet: true, out: "data/run", reportFormat: "yaml"},
		},
		{name: "explicit zero seed", command: "generate", args: []string{"-seed", "0"}, want: options{seedSet: true}},
		{name: "build needs a directory", command: "build", wantErr: "-from"},
		{name: "build", command: "build", args: []string{"-from", "data"}, want: options{from: "data"}},
		{name: "seed only on generate", command: "validate", args: []string{"-seed", "1"}, wantErr: "not defined"},
		{name: "unknown command", command: "deploy", wantErr: "unknown command"},
		{name: "stray arguments", command: "serve", args: []string{"extra"}, wantErr: "unexpected arguments"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var stderr bytes.Buffer
			got, err := parseFlags(tt.command, tt.args, &stderr)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error()+stderr.String(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, *got)
		})
	}
}

func TestExitCode(t *testing.T) {
	assert.Equal(t, 0, exitCode(nil))
	assert.Equal(t, 1, exitCode(fmt.Errorf("boom")))
	failure := &validator.ValidationFailure{Failed: []string{validator.CheckOrderTotals}}
	assert.Equal(t, 2, exitCode(fmt.Errorf("run: %w", failure)))
}

func TestRun_NoCommand(t *testing.T) {
	var stderr bytes.Buffer
	assert.Equal(t, 1, run(context.Background(), nil, &stderr))
	assert.Contains(t, stderr.String(), "usage: dataset-service")
}

func TestRun_GenerateThenBuild(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("DATASET_STORE_SQLITE_PATH", filepath.Join(dir, "techhub.db"))
	t.Setenv("DATASET_METRICS_TEXTFILE_PATH", filepath.Join(dir, "dataset.prom"))
	out := filepath.Join(dir, "out")

	var stderr bytes.Buffer
	code := run(context.Background(), []string{"generate", "-out", out, "-report-format", "yaml"}, &stderr)
	require.Equal(t, 0, code, stderr.String())

	for _, name := range []string{export.CustomersFile, export.OrdersFile, export.ManifestFile, "report.yaml"} {
		assert.FileExists(t, filepath.Join(out, name))
	}
	prom, err := os.ReadFile(filepath.Join(dir, "dataset.prom"))
	require.NoError(t, err)
	assert.Contains(t, string(prom), "dataset_validation_passed 1")

	code = run(context.Background(), []string{"build", "-from", out, "-out", filepath.Join(dir, "rebuilt")}, &stderr)
	assert.Equal(t, 0, code, stderr.String())
	assert.FileExists(t, filepath.Join(dir, "rebuilt", "report.json"))

	code = run(context.Background(), []string{"validate", "-out", filepath.Join(dir, "again")}, &stderr)
	assert.Equal(t, 0, code, stderr.String())
}
