package migration

import (
	"context"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func openMemory(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:?_pragma=foreign_keys(1)"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	return db
}

func tableNames(t *testing.T, db *gorm.DB) []string {
	t.Helper()
	var names []string
	require.NoError(t, db.Raw(`SELECT name FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite_%' ORDER BY name`).Scan(&names).Error)
	return names
}

func indexNames(t *testing.T, db *gorm.DB) []string {
	t.Helper()
	var names []string
	require.NoError(t, db.Raw(`SELECT name FROM sqlite_master WHERE type = 'index' AND name LIKE 'idx_%' ORDER BY name`).Scan(&names).Error)
	return names
}

func TestSplitStatements(t *testing.T) {
	script := `
-- leading comment
CREATE TABLE a (
    id INTEGER PRIMARY KEY
);

CREATE INDEX idx_a ON a (id);
DROP TABLE b`

	got := splitStatements(script)
	require.Len(t, got, 3)
	assert.Contains(t, got[0], "CREATE TABLE a")
	assert.NotContains(t, got[0], ";")
	assert.Equal(t, "CREATE INDEX idx_a ON a (id)", got[1])
	assert.Equal(t, "DROP TABLE b", got[2])
}

func TestLoadMigrations_PerDialect(t *testing.T) {
	for _, dialect := range []string{"sqlite", "postgres"} {
		t.Run(dialect, func(t *testing.T) {
			m := &Migrator{dialect: dialect}
			migrations, err := m.loadMigrations()
			require.NoError(t, err)
			require.Len(t, migrations, 2)
			assert.Equal(t, int64(1), migrations[0].Version)
			assert.Equal(t, "create_dataset_tables", migrations[0].Name)
			assert.Equal(t, int64(2), migrations[1].Version)
			for _, mg := range migrations {
				assert.NotEmpty(t, mg.UpSQL)
				assert.NotEmpty(t, mg.DownSQL)
			}
		})
	}

	_, err := (&Migrator{dialect: "mysql"}).loadMigrations()
	assert.Error(t, err)
}

func TestRunMigrations(t *testing.T) {
	ctx := context.Background()
	db := openMemory(t)
	m := NewMigrator(db)

	require.NoError(t, m.RunMigrations(ctx))
	assert.Equal(t, []string{"customers", "order_items", "orders", "products", "schema_migrations"}, tableNames(t, db))
	assert.Equal(t, []string{
		"idx_customers_email",
		"idx_order_items_order",
		"idx_order_items_product",
		"idx_orders_customer",
		"idx_orders_date",
		"idx_orders_status",
		"idx_products_category",
	}, indexNames(t, db))

	version, err := m.CurrentVersion(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), version)

	// Running again is a no-op.
	require.NoError(t, m.RunMigrations(ctx))
}

func TestSchemaConstraints(t *testing.T) {
	ctx := context.Background()
	db := openMemory(t)
	require.NoError(t, NewMigrator(db).RunMigrations(ctx))

	require.NoError(t, db.Exec(`INSERT INTO customers (customer_id, email, name, phone, city, state, segment)
		VALUES ('CUST-001', 'a@b.com', 'Ann Lee', '555-123-4567', 'Austin', 'TX', 'Consumer')`).Error)
	require.NoError(t, db.Exec(`INSERT INTO products (product_id, name, category, price, in_stock)
		VALUES ('TECH-LAP-001', 'Laptop', 'Laptops', 999.99, 1)`).Error)

	tests := []struct {
		name string
		sql  string
	}{
		{name: "unknown segment", sql: `INSERT INTO customers (customer_id, email, name, phone, city, state, segment)
			VALUES ('CUST-002', 'c@d.com', 'Bo Park', '555-123-4568', 'Austin', 'TX', 'Enterprise')`},
		{name: "duplicate email", sql: `INSERT INTO customers (customer_id, email, name, phone, city, state, segment)
			VALUES ('CUST-003', 'a@b.com', 'Cy Diaz', '555-123-4569', 'Austin', 'TX', 'Consumer')`},
		{name: "orphan order", sql: `INSERT INTO orders (order_id, customer_id, order_date, status, total_amount)
			VALUES ('ORD-2025-0001', 'CUST-999', '2025-01-01', 'Processing', 0)`},
		{name: "shipped before ordered", sql: `INSERT INTO orders (order_id, customer_id, order_date, status, shipped_date, tracking_number, total_amount)
			VALUES ('ORD-2025-0002', 'CUST-001', '2025-01-05', 'Delivered', '2025-01-01', '1Z999AA100000001', 10)`},
		{name: "processing with tracking", sql: `INSERT INTO orders (order_id, customer_id, order_date, status, tracking_number, total_amount)
			VALUES ('ORD-2025-0003', 'CUST-001', '2025-01-05', 'Processing', '1Z999AA100000002', 10)`},
		{name: "cancelled with total", sql: `INSERT INTO orders (order_id, customer_id, order_date, status, total_amount)
			VALUES ('ORD-2025-0004', 'CUST-001', '2025-01-05', 'Cancelled', 10)`},
		{name: "non-positive price", sql: `INSERT INTO products (product_id, name, category, price, in_stock)
			VALUES ('TECH-LAP-002', 'Free Laptop', 'Laptops', 0, 1)`},
		{name: "orphan item", sql: `INSERT INTO order_items (order_id, product_id, quantity, price_per_unit)
			VALUES ('ORD-2025-9999', 'TECH-LAP-001', 1, 999.99)`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Error(t, db.Exec(tt.sql).Error)
		})
	}

	require.NoError(t, db.Exec(`INSERT INTO orders (order_id, customer_id, order_date, status, total_amount)
		VALUES ('ORD-2025-0005', 'CUST-001', '2025-01-05', 'Processing', 0)`).Error)
	assert.Error(t, db.Exec(`INSERT INTO order_items (order_id, product_id, quantity, price_per_unit)
		VALUES ('ORD-2025-0005', 'TECH-LAP-001', 6, 999.99)`).Error, "quantity above range")
}

func TestReset(t *testing.T) {
	ctx := context.Background()
	db := openMemory(t)
	m := NewMigrator(db)

	// Reset on an empty store succeeds.
	require.NoError(t, m.Reset(ctx))

	require.NoError(t, m.RunMigrations(ctx))
	require.NoError(t, db.Exec(`INSERT INTO products (product_id, name, category, price, in_stock)
		VALUES ('TECH-LAP-001', 'Laptop', 'Laptops', 999.99, 1)`).Error)

	require.NoError(t, m.Reset(ctx))
	assert.Empty(t, tableNames(t, db))

	require.NoError(t, m.RunMigrations(ctx))
	var n int64
	require.NoError(t, db.Table("products").Count(&n).Error)
	assert.Zero(t, n)
}

func TestRollback(t *testing.T) {
	ctx := context.Background()
	db := openMemory(t)
	m := NewMigrator(db)

	require.NoError(t, m.Rollback(ctx))
	require.NoError(t, m.RunMigrations(ctx))
	require.NoError(t, m.Rollback(ctx))

	version, err := m.CurrentVersion(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), version)
	assert.Empty(t, indexNames(t, db))
}
