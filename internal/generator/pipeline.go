package generator

import (
	"encoding/json"
	"fmt"
	"time"

	"dataset-service/internal/catalog"
	"dataset-service/internal/models"
	"dataset-service/internal/utils"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// datasetNamespace scopes dataset fingerprints.
var datasetNamespace = uuid.NewSHA1(uuid.NameSpaceOID, []byte("dataset-service/dataset"))

// Dataset is the output of one pipeline run.
type Dataset struct {
	RunID     string                        `json:"run_id"`
	DatasetID string                        `json:"dataset_id"`
	Seed      uint64                        `json:"seed"`
	Customers []models.Customer             `json:"customers"`
	Products  []models.Product              `json:"products"`
	Orders    []models.Order                `json:"orders"`
	Items     []models.OrderItem            `json:"order_items"`
	Warnings  []InfeasibleDistributionError `json:"warnings"`
	Timings   map[string]time.Duration      `json:"-"`
}

// Counts returns the number of records per table.
func (d *Dataset) Counts() map[string]int {
	return map[string]int{
		"customers":   len(d.Customers),
		"products":    len(d.Products),
		"orders":      len(d.Orders),
		"order_items": len(d.Items),
	}
}

// Generate runs the customer, order and item stages in that fixed order.
// Each stage draws only from streams derived from its own sub-seed, so the
// same catalog and options always yield the same collections.
func Generate(cat *catalog.Catalog, opts Options) (*Dataset, error) {
	opts = opts.WithDefaults()
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if cat == nil {
		return nil, fmt.Errorf("%w: nil catalog", ErrInvalidInput)
	}

	fingerprint, err := Fingerprint(cat, opts)
	if err != nil {
		return nil, err
	}
	ds := &Dataset{
		RunID:     uuid.New().String(),
		DatasetID: fingerprint,
		Seed:      opts.Seed,
		Products:  cat.Products(),
		Timings:   make(map[string]time.Duration),
	}
	log := utils.Log.Component("generator", ds.RunID)
	log.WithFields(logrus.Fields{
		"dataset_id": ds.DatasetID,
		"seed":       opts.Seed,
		"customers":  opts.Customers,
		"orders":     opts.Orders,
	}).Info("Starting dataset generation")

	started := time.Now()
	ds.Customers, err = GenerateCustomers(opts, StageSeed(opts.Seed, stageCustomers))
	if err != nil {
		return nil, fmt.Errorf("customer stage: %w", err)
	}
	ds.Timings["customers"] = time.Since(started)
	log.WithField("count", len(ds.Customers)).Debug("Customers generated")

	started = time.Now()
	orders, warnings, err := GenerateOrders(ds.Customers, cat, opts, StageSeed(opts.Seed, stageOrders))
	if err != nil {
		return nil, fmt.Errorf("order stage: %w", err)
	}
	ds.Warnings = append(ds.Warnings, warnings...)
	ds.Timings["orders"] = time.Since(started)
	log.WithField("count", len(orders)).Debug("Orders generated")

	started = time.Now()
	ds.Items, ds.Orders, warnings, err = GenerateOrderItems(orders, ds.Customers, cat, opts, StageSeed(opts.Seed, stageItems))
	if err != nil {
		return nil, fmt.Errorf("item stage: %w", err)
	}
	ds.Warnings = append(ds.Warnings, warnings...)
	ds.Timings["order_items"] = time.Since(started)
	log.WithField("count", len(ds.Items)).Debug("Order items generated")

	for _, w := range ds.Warnings {
		log.WithFields(logrus.Fields{
			"stage":     w.Stage,
			"target":    w.Target,
			"requested": w.Requested,
			"realized":  w.Realized,
		}).Warn(w.Reason)
	}
	log.WithFields(logrus.Fields{
		"customers":   len(ds.Customers),
		"orders":      len(ds.Orders),
		"order_items": len(ds.Items),
		"warnings":    len(ds.Warnings),
	}).Info("Dataset generated")
	return ds, nil
}

// Fingerprint derives a stable dataset identifier from everything that
// determines the generated collections.
func Fingerprint(cat *catalog.Catalog, opts Options) (string, error) {
	payload, err := json.Marshal(struct {
		Options  Options          `json:"options"`
		Products []models.Product `json:"products"`
	}{opts, cat.Products()})
	if err != nil {
		return "", fmt.Errorf("failed to encode fingerprint input: %w", err)
	}
	return uuid.NewSHA1(datasetNamespace, payload).String(), nil
}
