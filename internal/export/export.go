// Package export writes datasets to and reads them from an exchange
// directory, one JSON array per table, and renders validation reports.
package export

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"dataset-service/internal/generator"
	"dataset-service/internal/models"
	"dataset-service/internal/validator"

	"gopkg.in/yaml.v3"
)

// Exchange file names.
const (
	CustomersFile  = "customers.json"
	ProductsFile   = "products.json"
	OrdersFile     = "orders.json"
	OrderItemsFile = "order_items.json"
	ManifestFile   = "manifest.json"
)

// Report formats
const (
	FormatJSON = "json"
	FormatYAML = "yaml"
)

// Manifest identifies the run that produced an exchange directory.
type Manifest struct {
	RunID     string                                  `json:"run_id"`
	DatasetID string                                  `json:"dataset_id"`
	Seed      uint64                                  `json:"seed"`
	Counts    map[string]int                          `json:"counts"`
	Warnings  []generator.InfeasibleDistributionError `json:"warnings,omitempty"`
}

// WriteDataset writes every table of ds into dir, creating it if needed.
func WriteDataset(dir string, ds *generator.Dataset) error {
	if ds == nil {
		return fmt.Errorf("%w: nil dataset", generator.ErrInvalidInput)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create export directory: %w", err)
	}

	files := []struct {
		name string
		v    interface{}
	}{
		{CustomersFile, nonNil(ds.Customers)},
		{ProductsFile, nonNil(ds.Products)},
		{OrdersFile, nonNil(ds.Orders)},
		{OrderItemsFile, nonNil(ds.Items)},
		{ManifestFile, Manifest{
			RunID:     ds.RunID,
			DatasetID: ds.DatasetID,
			Seed:      ds.Seed,
			Counts:    ds.Counts(),
			Warnings:  ds.Warnings,
		}},
	}
	for _, f := range files {
		if err := writeJSON(filepath.Join(dir, f.name), f.v); err != nil {
			return err
		}
	}
	return nil
}

// ReadDataset loads a dataset written by WriteDataset. The manifest is
// optional; the four table files are not.
func ReadDataset(dir string) (*generator.Dataset, error) {
	ds := &generator.Dataset{}
	if err := readJSON(filepath.Join(dir, CustomersFile), &ds.Customers); err != nil {
		return nil, err
	}
	if err := readJSON(filepath.Join(dir, ProductsFile), &ds.Products); err != nil {
		return nil, err
	}
	if err := readJSON(filepath.Join(dir, OrdersFile), &ds.Orders); err != nil {
		return nil, err
	}
	if err := readJSON(filepath.Join(dir, OrderItemsFile), &ds.Items); err != nil {
		return nil, err
	}

	var manifest Manifest
	err := readJSON(filepath.Join(dir, ManifestFile), &manifest)
	switch {
	case err == nil:
		ds.RunID = manifest.RunID
		ds.DatasetID = manifest.DatasetID
		ds.Seed = manifest.Seed
		ds.Warnings = manifest.Warnings
	case !errors.Is(err, fs.ErrNotExist):
		return nil, err
	}
	return ds, nil
}

// WriteReport renders report as JSON or YAML.
func WriteReport(w io.Writer, report *validator.Report, format string) error {
	switch format {
	case FormatJSON, "":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(report); err != nil {
			return fmt.Errorf("failed to encode report: %w", err)
		}
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(report); err != nil {
			return fmt.Errorf("failed to encode report: %w", err)
		}
		return enc.Close()
	default:
		return fmt.Errorf("unsupported report format %q", format)
	}
	return nil
}

// WriteReportFile writes the report into dir as report.json or report.yaml
// and returns the path.
func WriteReportFile(dir string, report *validator.Report, format string) (string, error) {
	if format == "" {
		format = FormatJSON
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create report directory: %w", err)
	}
	path := filepath.Join(dir, "report."+format)
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create report file: %w", err)
	}
	if err := WriteReport(f, report, format); err != nil {
		_ = f.Close()
		return "", err
	}
	return path, f.Close()
}

func writeJSON(path string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", filepath.Base(path), err)
	}
	data = append(data, '\n')
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", filepath.Base(path), err)
	}
	return nil
}

func readJSON(path string, v interface{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", filepath.Base(path), err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to decode %s: %w", filepath.Base(path), err)
	}
	return nil
}

// nonNil keeps empty tables as [] rather than null.
func nonNil[T models.Customer | models.Product | models.Order | models.OrderItem](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
