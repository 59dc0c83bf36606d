package migration

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strconv"
	"strings"

	"dataset-service/internal/utils"

	"gorm.io/gorm"
)

//go:embed sql/sqlite/*.sql sql/postgres/*.sql
var migrationsFS embed.FS

// Migration represents a database migration
type Migration struct {
	Version int64
	Name    string
	UpSQL   string
	DownSQL string
}

// Migrator applies the embedded migrations of one SQL dialect.
type Migrator struct {
	db      *gorm.DB
	dialect string
}

// NewMigrator creates a migrator for the dialect gorm is connected with.
func NewMigrator(db *gorm.DB) *Migrator {
	return &Migrator{db: db, dialect: db.Dialector.Name()}
}

// RunMigrations runs all pending migrations
func (m *Migrator) RunMigrations(ctx context.Context) error {
	log := utils.Log.Component("migration", "")
	db := m.db.WithContext(ctx)

	if err := m.ensureMigrationTable(db); err != nil {
		return fmt.Errorf("failed to ensure migration table: %w", err)
	}

	migrations, err := m.loadMigrations()
	if err != nil {
		return fmt.Errorf("failed to load migrations: %w", err)
	}

	currentVersion, err := m.currentVersion(db)
	if err != nil {
		return fmt.Errorf("failed to get current version: %w", err)
	}
	log.WithField("version", currentVersion).Debug("Current migration version")

	for _, migration := range migrations {
		if migration.Version <= currentVersion {
			continue
		}
		log.WithField("version", migration.Version).Infof("Running migration %s", migration.Name)
		if err := m.runMigration(db, migration); err != nil {
			return fmt.Errorf("failed to run migration %d: %w", migration.Version, err)
		}
	}
	return nil
}

// CurrentVersion returns the highest cleanly applied migration version.
func (m *Migrator) CurrentVersion(ctx context.Context) (int64, error) {
	db := m.db.WithContext(ctx)
	if err := m.ensureMigrationTable(db); err != nil {
		return 0, fmt.Errorf("failed to ensure migration table: %w", err)
	}
	return m.currentVersion(db)
}

// Reset runs every down migration, newest first, and forgets all applied
// versions. Down migrations only use IF EXISTS statements, so Reset also
// clears a store whose bookkeeping is missing or stale.
func (m *Migrator) Reset(ctx context.Context) error {
	db := m.db.WithContext(ctx)
	migrations, err := m.loadMigrations()
	if err != nil {
		return fmt.Errorf("failed to load migrations: %w", err)
	}

	for i := len(migrations) - 1; i >= 0; i-- {
		if migrations[i].DownSQL == "" {
			continue
		}
		if err := execScript(db, migrations[i].DownSQL); err != nil {
			return fmt.Errorf("failed to reset migration %d: %w", migrations[i].Version, err)
		}
	}
	if err := db.Exec(`DROP TABLE IF EXISTS schema_migrations`).Error; err != nil {
		return fmt.Errorf("failed to drop migration table: %w", err)
	}
	return nil
}

// Rollback rolls back the last migration
func (m *Migrator) Rollback(ctx context.Context) error {
	log := utils.Log.Component("migration", "")
	db := m.db.WithContext(ctx)

	currentVersion, err := m.CurrentVersion(ctx)
	if err != nil {
		return err
	}
	if currentVersion == 0 {
		log.Info("No migrations to rollback")
		return nil
	}

	migrations, err := m.loadMigrations()
	if err != nil {
		return fmt.Errorf("failed to load migrations: %w", err)
	}

	var migration *Migration
	for i := range migrations {
		if migrations[i].Version == currentVersion {
			migration = &migrations[i]
			break
		}
	}
	if migration == nil || migration.DownSQL == "" {
		return fmt.Errorf("no down migration found for version %d", currentVersion)
	}

	log.WithField("version", migration.Version).Infof("Rolling back migration %s", migration.Name)
	return db.Transaction(func(tx *gorm.DB) error {
		if err := execScript(tx, migration.DownSQL); err != nil {
			return fmt.Errorf("failed to execute down migration: %w", err)
		}
		if err := tx.Exec(`DELETE FROM schema_migrations WHERE version = ?`, migration.Version).Error; err != nil {
			return fmt.Errorf("failed to remove migration record: %w", err)
		}
		return nil
	})
}

func (m *Migrator) ensureMigrationTable(db *gorm.DB) error {
	return db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version BIGINT PRIMARY KEY,
			dirty BOOLEAN DEFAULT false,
			applied_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)
	`).Error
}

func (m *Migrator) currentVersion(db *gorm.DB) (int64, error) {
	var version sql.NullInt64
	err := db.Raw(`SELECT MAX(version) FROM schema_migrations WHERE NOT dirty`).Row().Scan(&version)
	if err != nil {
		return 0, err
	}
	if !version.Valid {
		return 0, nil
	}
	return version.Int64, nil
}

// loadMigrations loads the dialect's migration files, e.g.
// sql/sqlite/000001_create_dataset_tables.up.sql
func (m *Migrator) loadMigrations() ([]Migration, error) {
	dir := path.Join("sql", m.dialect)
	entries, err := fs.ReadDir(migrationsFS, dir)
	if err != nil {
		return nil, fmt.Errorf("no migrations for dialect %q: %w", m.dialect, err)
	}

	migrations := make(map[int64]*Migration)
	for _, entry := range entries {
		filename := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(filename, ".sql") {
			continue
		}

		parts := strings.SplitN(filename, "_", 2)
		if len(parts) < 2 {
			continue
		}
		version, err := strconv.ParseInt(parts[0], 10, 64)
		if err != nil {
			continue
		}

		content, err := fs.ReadFile(migrationsFS, path.Join(dir, filename))
		if err != nil {
			return nil, fmt.Errorf("failed to read migration file %s: %w", filename, err)
		}

		if _, ok := migrations[version]; !ok {
			name := strings.SplitN(parts[1], ".", 2)[0]
			migrations[version] = &Migration{Version: version, Name: name}
		}
		switch {
		case strings.HasSuffix(filename, ".up.sql"):
			migrations[version].UpSQL = string(content)
		case strings.HasSuffix(filename, ".down.sql"):
			migrations[version].DownSQL = string(content)
		}
	}

	var result []Migration
	for _, mg := range migrations {
		if mg.UpSQL != "" {
			result = append(result, *mg)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Version < result[j].Version
	})
	return result, nil
}

// runMigration executes a single migration
func (m *Migrator) runMigration(db *gorm.DB, migration Migration) error {
	return db.Transaction(func(tx *gorm.DB) error {
		err := tx.Exec(`
			INSERT INTO schema_migrations (version, dirty) VALUES (?, true)
			ON CONFLICT (version) DO UPDATE SET dirty = true
		`, migration.Version).Error
		if err != nil {
			return fmt.Errorf("failed to mark migration as dirty: %w", err)
		}

		if err := execScript(tx, migration.UpSQL); err != nil {
			return fmt.Errorf("failed to execute migration SQL: %w", err)
		}

		err = tx.Exec(`UPDATE schema_migrations SET dirty = false, applied_at = CURRENT_TIMESTAMP WHERE version = ?`, migration.Version).Error
		if err != nil {
			return fmt.Errorf("failed to mark migration as complete: %w", err)
		}
		return nil
	})
}

// execScript runs a migration file one statement at a time. Statements are
// separated by a semicolon at the end of a line.
func execScript(db *gorm.DB, script string) error {
	for _, stmt := range splitStatements(script) {
		if err := db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("%w (statement: %.60s)", err, stmt)
		}
	}
	return nil
}

func splitStatements(script string) []string {
	var out []string
	var current strings.Builder
	for _, line := range strings.Split(script, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "--") {
			continue
		}
		current.WriteString(line)
		current.WriteString("\n")
		if strings.HasSuffix(trimmed, ";") {
			out = append(out, strings.TrimSuffix(strings.TrimSpace(current.String()), ";"))
			current.Reset()
		}
	}
	if rest := strings.TrimSpace(current.String()); rest != "" {
		out = append(out, rest)
	}
	return out
}
