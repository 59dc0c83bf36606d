// Package builder materializes a generated dataset into the relational
// store: it resets the schema, applies the embedded migrations and loads
// every table in dependency order inside one transaction.
package builder

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"dataset-service/internal/generator"
	"dataset-service/internal/migration"
	"dataset-service/internal/models"
	"dataset-service/internal/utils"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// Indexes lists the query indexes the schema declares, by table.
var Indexes = []struct {
	Table string
	Name  string
}{
	{Table: "customers", Name: "idx_customers_email"},
	{Table: "products", Name: "idx_products_category"},
	{Table: "orders", Name: "idx_orders_customer"},
	{Table: "orders", Name: "idx_orders_date"},
	{Table: "orders", Name: "idx_orders_status"},
	{Table: "order_items", Name: "idx_order_items_order"},
	{Table: "order_items", Name: "idx_order_items_product"},
}

// Tables lists the dataset tables in load order.
var Tables = []string{"customers", "products", "orders", "order_items"}

// BuildSummary describes a completed load.
type BuildSummary struct {
	RunID    string           `json:"run_id"`
	Dialect  string           `json:"dialect"`
	Counts   map[string]int64 `json:"counts"`
	Indexes  []string         `json:"indexes"`
	Duration time.Duration    `json:"duration"`
}

// Build drops any previous dataset, recreates the schema and loads ds in a
// single transaction. On failure the previous dataset stays in place.
func Build(ctx context.Context, db *gorm.DB, ds *generator.Dataset) (*BuildSummary, error) {
	if ds == nil {
		return nil, fmt.Errorf("nothing to build: nil dataset")
	}
	start := time.Now()
	log := utils.Log.Component("builder", ds.RunID)

	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		migrator := migration.NewMigrator(tx)
		if err := migrator.Reset(ctx); err != nil {
			return fmt.Errorf("failed to reset store: %w", err)
		}
		if err := migrator.RunMigrations(ctx); err != nil {
			return fmt.Errorf("failed to migrate store: %w", err)
		}
		if err := loadCustomers(tx, ds.Customers); err != nil {
			return err
		}
		if err := loadProducts(tx, ds.Products); err != nil {
			return err
		}
		if err := loadOrders(tx, ds.Orders); err != nil {
			return err
		}
		return loadOrderItems(tx, ds.Items)
	})
	if err != nil {
		log.WithError(err).Error("Dataset load rolled back")
		return nil, err
	}

	if db.Dialector.Name() == "postgres" {
		err := db.WithContext(ctx).Exec(`SELECT setval(pg_get_serial_sequence('order_items', 'order_item_id'), COALESCE(MAX(order_item_id), 1)) FROM order_items`).Error
		if err != nil {
			return nil, fmt.Errorf("failed to realign order item sequence: %w", err)
		}
	}

	summary, err := Summarize(ctx, db)
	if err != nil {
		return nil, err
	}
	summary.RunID = ds.RunID
	summary.Duration = time.Since(start)

	log.WithFields(logrus.Fields{
		"customers":   summary.Counts["customers"],
		"products":    summary.Counts["products"],
		"orders":      summary.Counts["orders"],
		"order_items": summary.Counts["order_items"],
		"indexes":     len(summary.Indexes),
		"duration_ms": summary.Duration.Milliseconds(),
	}).Info("Dataset loaded")
	return summary, nil
}

// Summarize counts the rows of every dataset table and lists the declared
// indexes present in the store.
func Summarize(ctx context.Context, db *gorm.DB) (*BuildSummary, error) {
	db = db.WithContext(ctx)
	summary := &BuildSummary{
		Dialect: db.Dialector.Name(),
		Counts:  make(map[string]int64, len(Tables)),
	}
	for _, table := range Tables {
		var n int64
		if err := db.Table(table).Count(&n).Error; err != nil {
			return nil, fmt.Errorf("failed to count %s: %w", table, err)
		}
		summary.Counts[table] = n
	}
	for _, idx := range Indexes {
		if db.Migrator().HasIndex(idx.Table, idx.Name) {
			summary.Indexes = append(summary.Indexes, idx.Name)
		}
	}
	return summary, nil
}

func loadCustomers(tx *gorm.DB, customers []models.Customer) error {
	for i := range customers {
		if err := tx.Create(&customers[i]).Error; err != nil {
			return &ConstraintViolationError{Table: "customers", Key: customers[i].CustomerID, Err: err}
		}
	}
	return nil
}

func loadProducts(tx *gorm.DB, products []models.Product) error {
	for i := range products {
		if err := tx.Create(&products[i]).Error; err != nil {
			return &ConstraintViolationError{Table: "products", Key: products[i].ProductID, Err: err}
		}
	}
	return nil
}

func loadOrders(tx *gorm.DB, orders []models.Order) error {
	for i := range orders {
		if err := tx.Create(&orders[i]).Error; err != nil {
			return &ConstraintViolationError{Table: "orders", Key: orders[i].OrderID, Err: err}
		}
	}
	return nil
}

func loadOrderItems(tx *gorm.DB, items []models.OrderItem) error {
	for i := range items {
		if err := tx.Create(&items[i]).Error; err != nil {
			key := items[i].OrderID + "#" + strconv.FormatInt(items[i].OrderItemID, 10)
			return &ConstraintViolationError{Table: "order_items", Key: key, Err: err}
		}
	}
	return nil
}
