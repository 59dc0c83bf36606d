package main

import (
	"context"
	"fmt"
	"time"

	"dataset-service/internal/builder"
	"dataset-service/internal/cache"
	"dataset-service/internal/catalog"
	"dataset-service/internal/config"
	"dataset-service/internal/events"
	"dataset-service/internal/export"
	"dataset-service/internal/generator"
	"dataset-service/internal/metrics"
	"dataset-service/internal/store"
	"dataset-service/internal/utils"
	"dataset-service/internal/validator"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// loadConfig loads configuration, applies flag overrides and the log level.
func loadConfig(opts *options) (*config.Config, error) {
	cfg, err := config.LoadConfig(opts.configPath)
	if err != nil {
		return nil, err
	}
	if opts.seedSet {
		cfg.Generator.Seed = opts.seed
	}
	if opts.out != "" {
		cfg.Export.Dir = opts.out
	}
	if opts.reportFormat != "" {
		if opts.reportFormat != export.FormatJSON && opts.reportFormat != export.FormatYAML {
			return nil, fmt.Errorf("invalid report format %q: must be json or yaml", opts.reportFormat)
		}
		cfg.Export.ReportFormat = opts.reportFormat
	}
	utils.Log.SetLevelName(cfg.Logging.Level)
	return cfg, nil
}

func loadCatalog(cfg *config.Config) (*catalog.Catalog, error) {
	if cfg.CatalogPath != "" {
		return catalog.LoadFile(cfg.CatalogPath)
	}
	return catalog.Load()
}

func runGenerate(ctx context.Context, opts *options) error {
	cfg, err := loadConfig(opts)
	if err != nil {
		return err
	}
	cat, err := loadCatalog(cfg)
	if err != nil {
		return err
	}

	ds, err := generator.Generate(cat, cfg.Generator)
	if err != nil {
		return err
	}
	m := metrics.New()
	m.ObserveDataset(ds)

	if err := export.WriteDataset(cfg.Export.Dir, ds); err != nil {
		return err
	}
	utils.Log.Component("export", ds.RunID).WithField("dir", cfg.Export.Dir).Info("Dataset exported")

	return buildAndValidate(ctx, cfg, ds, m)
}

func runBuild(ctx context.Context, opts *options) error {
	cfg, err := loadConfig(opts)
	if err != nil {
		return err
	}
	ds, err := export.ReadDataset(opts.from)
	if err != nil {
		return err
	}
	if ds.RunID == "" {
		ds.RunID = uuid.New().String()
	}
	utils.Log.Component("export", ds.RunID).WithFields(logrus.Fields{
		"dir":        opts.from,
		"dataset_id": ds.DatasetID,
	}).Info("Dataset loaded")

	return buildAndValidate(ctx, cfg, ds, metrics.New())
}

func runValidate(ctx context.Context, opts *options) error {
	cfg, err := loadConfig(opts)
	if err != nil {
		return err
	}
	cat, err := loadCatalog(cfg)
	if err != nil {
		return err
	}

	db, err := store.Open(ctx, cfg.Store)
	if err != nil {
		return err
	}
	defer store.Close(db)

	targets, err := targetsFor(cfg, cat.Len())
	if err != nil {
		return err
	}
	report, err := validator.Validate(ctx, db, targets)
	if err != nil {
		return err
	}
	report.RunID = uuid.New().String()

	m := metrics.New()
	if summary, err := builder.Summarize(ctx, db); err == nil {
		m.ObserveBuild(summary)
	}
	return publishReport(ctx, cfg, report, cfg.Generator.Seed, m, nil)
}

// buildAndValidate loads ds into the configured store, validates it and
// hands the report to every configured sink.
func buildAndValidate(ctx context.Context, cfg *config.Config, ds *generator.Dataset, m *metrics.Metrics) error {
	db, err := store.Open(ctx, cfg.Store)
	if err != nil {
		return err
	}
	defer store.Close(db)

	summary, err := builder.Build(ctx, db, ds)
	if err != nil {
		return err
	}
	m.ObserveBuild(summary)

	publisher := connectEvents(cfg)
	defer publisher.close()
	if err := publisher.Publish(ctx, events.GeneratedEvent(ds, summary.Counts)); err != nil {
		utils.Log.WithError(err).Warn("Failed to publish generated event")
	}

	targets, err := targetsFor(cfg, len(ds.Products))
	if err != nil {
		return err
	}
	started := time.Now()
	report, err := validator.Validate(ctx, db, targets)
	if err != nil {
		return err
	}
	m.StageDuration.WithLabelValues("validate").Observe(time.Since(started).Seconds())
	report.RunID = ds.RunID
	report.DatasetID = ds.DatasetID
	report.Warnings = ds.Warnings

	return publishReport(ctx, cfg, report, ds.Seed, m, publisher)
}

// publishReport writes the report file, caches it, emits the validated
// event and the metrics textfile, then returns the report's verdict.
// Sink failures are logged; only the verdict decides the result.
func publishReport(ctx context.Context, cfg *config.Config, report *validator.Report, seed uint64, m *metrics.Metrics, publisher *eventPublisher) error {
	log := utils.Log.Component("report", report.RunID)
	m.ObserveReport(report)

	path, err := export.WriteReportFile(cfg.Export.Dir, report, cfg.Export.ReportFormat)
	if err != nil {
		return err
	}
	log.WithFields(logrus.Fields{
		"path":   path,
		"passed": report.Passed,
		"failed": report.Failed(),
	}).Info("Validation report written")

	if cfg.Redis.Addr != "" {
		reports, err := cache.NewReportCache(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, time.Duration(cfg.Redis.TTL)*time.Second)
		if err != nil {
			log.WithError(err).Warn("Report cache unavailable")
		} else {
			if err := reports.Store(ctx, report); err != nil {
				log.WithError(err).Warn("Failed to cache report")
			}
			_ = reports.Close()
		}
	}

	if publisher == nil {
		publisher = connectEvents(cfg)
		defer publisher.close()
	}
	if err := publisher.Publish(ctx, events.ValidatedEvent(report, seed)); err != nil {
		log.WithError(err).Warn("Failed to publish validated event")
	}

	if cfg.Metrics.TextfilePath != "" {
		if err := m.WriteTextfile(cfg.Metrics.TextfilePath); err != nil {
			log.WithError(err).Warn("Failed to write metrics textfile")
		}
	}
	return report.Err()
}

func targetsFor(cfg *config.Config, products int) (validator.Targets, error) {
	tol := validator.DefaultTolerances()
	if cfg.Validation.TotalTolerance != "" {
		d, err := decimal.NewFromString(cfg.Validation.TotalTolerance)
		if err != nil {
			return validator.Targets{}, fmt.Errorf("invalid total tolerance: %w", err)
		}
		tol.TotalAmount = d
	}
	tol.Mix = cfg.Validation.MixTolerance
	tol.VarianceFraction = cfg.Validation.VarianceTolerance
	return validator.NewTargets(cfg.Generator, products, tol), nil
}

// eventPublisher owns the NATS client behind a publisher. Without a
// configured URL it drops events.
type eventPublisher struct {
	*events.Publisher
	client *events.Client
}

func connectEvents(cfg *config.Config) *eventPublisher {
	if cfg.NATS.URL == "" {
		return &eventPublisher{Publisher: events.NewPublisher(nil, cfg.NATS.Subject)}
	}
	client, err := events.NewClient(events.Config{
		URL:     cfg.NATS.URL,
		Stream:  cfg.NATS.Stream,
		Subject: cfg.NATS.Subject,
	})
	if err != nil {
		utils.Log.WithError(err).Warn("NATS unavailable, dataset events disabled")
		return &eventPublisher{Publisher: events.NewPublisher(nil, cfg.NATS.Subject)}
	}
	return &eventPublisher{Publisher: events.NewPublisher(client, cfg.NATS.Subject), client: client}
}

func (p *eventPublisher) close() {
	if p.client != nil {
		p.client.Close()
	}
}
