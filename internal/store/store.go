// Package store opens the relational store a dataset is built into.
package store

import (
	"context"
	"fmt"
	"strings"

	"dataset-service/internal/config"
	"dataset-service/internal/utils"

	"github.com/glebarez/sqlite"
	"github.com/lib/pq"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// MemoryPath selects a private in-memory sqlite store.
const MemoryPath = ":memory:"

// Open connects to the configured store and checks it is reachable.
// Foreign keys are enforced on both dialects.
func Open(ctx context.Context, cfg config.StoreConfig) (*gorm.DB, error) {
	gormCfg := &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)}

	var (
		db  *gorm.DB
		err error
	)
	switch cfg.Driver {
	case "sqlite", "":
		db, err = gorm.Open(sqlite.Open(sqliteDSN(cfg.SQLite.Path)), gormCfg)
	case "postgres":
		db, err = gorm.Open(postgres.Open(postgresDSN(cfg.Postgres)), gormCfg)
	default:
		return nil, fmt.Errorf("unsupported store driver %q", cfg.Driver)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database instance: %w", err)
	}
	if db.Dialector.Name() == "sqlite" {
		// One connection: every statement sees the same in-memory database
		// and the same pragmas.
		sqlDB.SetMaxOpenConns(1)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if cfg.Driver == "postgres" && cfg.Postgres.Schema != "" {
		stmt := "CREATE SCHEMA IF NOT EXISTS " + pq.QuoteIdentifier(cfg.Postgres.Schema)
		if err := db.WithContext(ctx).Exec(stmt).Error; err != nil {
			_ = sqlDB.Close()
			return nil, fmt.Errorf("failed to create schema %s: %w", cfg.Postgres.Schema, err)
		}
	}

	utils.Log.WithField("driver", db.Dialector.Name()).Debug("Connected to database successfully")
	return db, nil
}

// Close releases the connection pool behind db.
func Close(db *gorm.DB) error {
	if db == nil {
		return nil
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func sqliteDSN(path string) string {
	if path == "" || path == MemoryPath {
		path = "file::memory:"
	}
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return path + sep + "_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
}

func postgresDSN(cfg config.PostgresConfig) string {
	dsn := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host,
		cfg.Port,
		cfg.User,
		cfg.Password,
		cfg.Name,
		cfg.SSLMode,
	)
	if cfg.Schema != "" {
		dsn += fmt.Sprintf(" search_path=%s,public", cfg.Schema)
	}
	return dsn
}
