package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"dataset-service/internal/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ErrNotFound is returned when a lookup matches no record.
var ErrNotFound = errors.New("record not found")

// OrderLine is an order item joined with its product.
type OrderLine struct {
	OrderItemID  int64           `json:"order_item_id"`
	OrderID      string          `json:"order_id"`
	ProductID    string          `json:"product_id"`
	ProductName  string          `json:"product_name"`
	Category     models.Category `json:"category"`
	Quantity     int             `json:"quantity"`
	PricePerUnit decimal.Decimal `json:"price_per_unit"`
	LineTotal    decimal.Decimal `json:"line_total"`
}

// Bundle counts the orders in which two products were bought together.
type Bundle struct {
	FirstID    string `json:"first_product_id" yaml:"first_product_id"`
	FirstName  string `json:"first_product_name" yaml:"first_product_name"`
	SecondID   string `json:"second_product_id" yaml:"second_product_id"`
	SecondName string `json:"second_product_name" yaml:"second_product_name"`
	Orders     int64  `json:"orders" yaml:"orders"`
}

// DatasetRepository interface for read access to a built dataset
type DatasetRepository interface {
	Customers(ctx context.Context) ([]models.Customer, error)
	Products(ctx context.Context) ([]models.Product, error)
	Orders(ctx context.Context) ([]models.Order, error)
	Items(ctx context.Context) ([]models.OrderItem, error)

	CustomerByEmail(ctx context.Context, email string) (*models.Customer, error)
	CountCustomersByEmail(ctx context.Context, email string) (int64, error)
	OrdersByCustomer(ctx context.Context, customerID string, limit int) ([]models.Order, error)
	OrderByID(ctx context.Context, orderID string) (*models.Order, error)
	ItemsByOrder(ctx context.Context, orderID string) ([]OrderLine, error)
	ProductByIDOrName(ctx context.Context, query string) ([]models.Product, error)
	ProductsByCategory(ctx context.Context, category models.Category, inStock *bool) ([]models.Product, error)
	TopBundles(ctx context.Context, limit int) ([]Bundle, error)
}

// datasetRepository implements DatasetRepository
type datasetRepository struct {
	db *gorm.DB
}

// NewDatasetRepository creates a new dataset repository
func NewDatasetRepository(db *gorm.DB) DatasetRepository {
	return &datasetRepository{db: db}
}

// Customers returns every customer ordered by id
func (r *datasetRepository) Customers(ctx context.Context) ([]models.Customer, error) {
	var customers []models.Customer
	if err := r.db.WithContext(ctx).Order("customer_id ASC").Find(&customers).Error; err != nil {
		return nil, err
	}
	return customers, nil
}

// Products returns every product ordered by id
func (r *datasetRepository) Products(ctx context.Context) ([]models.Product, error) {
	var products []models.Product
	if err := r.db.WithContext(ctx).Order("product_id ASC").Find(&products).Error; err != nil {
		return nil, err
	}
	return products, nil
}

// Orders returns every order in date order
func (r *datasetRepository) Orders(ctx context.Context) ([]models.Order, error) {
	var orders []models.Order
	if err := r.db.WithContext(ctx).Order("order_date ASC, order_id ASC").Find(&orders).Error; err != nil {
		return nil, err
	}
	return orders, nil
}

// Items returns every order item in insertion order
func (r *datasetRepository) Items(ctx context.Context) ([]models.OrderItem, error) {
	var items []models.OrderItem
	if err := r.db.WithContext(ctx).Order("order_item_id ASC").Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

// CustomerByEmail retrieves the customer owning an email address
func (r *datasetRepository) CustomerByEmail(ctx context.Context, email string) (*models.Customer, error) {
	var customer models.Customer
	err := r.db.WithContext(ctx).Where("email = ?", normalizeEmail(email)).First(&customer).Error
	if err != nil {
		return nil, notFound(err, "customer with email")
	}
	return &customer, nil
}

// CountCustomersByEmail counts the customers an email address resolves to
func (r *datasetRepository) CountCustomersByEmail(ctx context.Context, email string) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.Customer{}).Where("email = ?", normalizeEmail(email)).Count(&n).Error
	return n, err
}

// OrdersByCustomer lists a customer's orders, newest first. A non-positive
// limit returns them all.
func (r *datasetRepository) OrdersByCustomer(ctx context.Context, customerID string, limit int) ([]models.Order, error) {
	var orders []models.Order
	query := r.db.WithContext(ctx).Where("customer_id = ?", customerID).Order("order_date DESC, order_id DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&orders).Error; err != nil {
		return nil, err
	}
	return orders, nil
}

// OrderByID retrieves an order by its ID
func (r *datasetRepository) OrderByID(ctx context.Context, orderID string) (*models.Order, error) {
	var order models.Order
	if err := r.db.WithContext(ctx).Where("order_id = ?", strings.ToUpper(strings.TrimSpace(orderID))).First(&order).Error; err != nil {
		return nil, notFound(err, "order")
	}
	return &order, nil
}

// ItemsByOrder lists an order's lines with product details
func (r *datasetRepository) ItemsByOrder(ctx context.Context, orderID string) ([]OrderLine, error) {
	var lines []OrderLine
	err := r.db.WithContext(ctx).
		Table("order_items AS oi").
		Select("oi.order_item_id, oi.order_id, oi.product_id, p.name AS product_name, p.category, oi.quantity, oi.price_per_unit").
		Joins("JOIN products p ON p.product_id = oi.product_id").
		Where("oi.order_id = ?", strings.ToUpper(strings.TrimSpace(orderID))).
		Order("oi.order_item_id ASC").
		Scan(&lines).Error
	if err != nil {
		return nil, err
	}
	for i := range lines {
		lines[i].LineTotal = lines[i].PricePerUnit.Mul(decimal.NewFromInt(int64(lines[i].Quantity)))
	}
	return lines, nil
}

// ProductByIDOrName resolves a product id, or failing that, every product
// whose name contains query, case-insensitively.
func (r *datasetRepository) ProductByIDOrName(ctx context.Context, query string) ([]models.Product, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("%w: empty product query", ErrNotFound)
	}

	var product models.Product
	err := r.db.WithContext(ctx).Where("product_id = ?", strings.ToUpper(query)).First(&product).Error
	if err == nil {
		return []models.Product{product}, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	var products []models.Product
	pattern := "%" + strings.ToLower(query) + "%"
	if err := r.db.WithContext(ctx).Where("LOWER(name) LIKE ?", pattern).Order("product_id ASC").Find(&products).Error; err != nil {
		return nil, err
	}
	if len(products) == 0 {
		return nil, fmt.Errorf("%w: product %q", ErrNotFound, query)
	}
	return products, nil
}

// ProductsByCategory lists a category's products, optionally filtered by
// stock. An empty category lists every category.
func (r *datasetRepository) ProductsByCategory(ctx context.Context, category models.Category, inStock *bool) ([]models.Product, error) {
	var products []models.Product
	query := r.db.WithContext(ctx).Model(&models.Product{})
	if category != "" {
		query = query.Where("category = ?", category)
	}
	if inStock != nil {
		query = query.Where("in_stock = ?", *inStock)
	}
	if err := query.Order("product_id ASC").Find(&products).Error; err != nil {
		return nil, err
	}
	return products, nil
}

// TopBundles returns the product pairs most often bought together
func (r *datasetRepository) TopBundles(ctx context.Context, limit int) ([]Bundle, error) {
	if limit <= 0 {
		limit = 10
	}
	var bundles []Bundle
	err := r.db.WithContext(ctx).Raw(`
		SELECT a.product_id AS first_id, p1.name AS first_name,
		       b.product_id AS second_id, p2.name AS second_name,
		       COUNT(DISTINCT a.order_id) AS orders
		FROM order_items a
		JOIN order_items b ON a.order_id = b.order_id AND a.product_id < b.product_id
		JOIN products p1 ON p1.product_id = a.product_id
		JOIN products p2 ON p2.product_id = b.product_id
		GROUP BY a.product_id, p1.name, b.product_id, p2.name
		ORDER BY orders DESC, first_id ASC, second_id ASC
		LIMIT ?
	`, limit).Scan(&bundles).Error
	if err != nil {
		return nil, err
	}
	return bundles, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func notFound(err error, what string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%w: %s", ErrNotFound, what)
	}
	return err
}
