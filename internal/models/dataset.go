package models

import (
	"github.com/shopspring/decimal"
)

// Segment is a customer market segment.
type Segment string

const (
	SegmentConsumer   Segment = "Consumer"
	SegmentCorporate  Segment = "Corporate"
	SegmentHomeOffice Segment = "Home Office"
)

// Segments lists every segment in canonical order.
var Segments = []Segment{SegmentConsumer, SegmentCorporate, SegmentHomeOffice}

// Category is a product category.
type Category string

const (
	CategoryLaptops     Category = "Laptops"
	CategoryMonitors    Category = "Monitors"
	CategoryKeyboards   Category = "Keyboards"
	CategoryAudio       Category = "Audio"
	CategoryAccessories Category = "Accessories"
)

// Categories lists every category in canonical order.
var Categories = []Category{CategoryLaptops, CategoryMonitors, CategoryKeyboards, CategoryAudio, CategoryAccessories}

// OrderStatus is the lifecycle state of an order.
type OrderStatus string

const (
	StatusDelivered  OrderStatus = "Delivered"
	StatusShipped    OrderStatus = "Shipped"
	StatusProcessing OrderStatus = "Processing"
	StatusCancelled  OrderStatus = "Cancelled"
)

// Statuses lists every status in canonical order.
var Statuses = []OrderStatus{StatusDelivered, StatusShipped, StatusProcessing, StatusCancelled}

// IsValidSegment reports whether s is a known segment.
func IsValidSegment(s Segment) bool {
	for _, v := range Segments {
		if v == s {
			return true
		}
	}
	return false
}

// IsValidCategory reports whether c is a known category.
func IsValidCategory(c Category) bool {
	for _, v := range Categories {
		if v == c {
			return true
		}
	}
	return false
}

// IsValidStatus reports whether s is a known order status.
func IsValidStatus(s OrderStatus) bool {
	for _, v := range Statuses {
		if v == s {
			return true
		}
	}
	return false
}

// Customer represents a customer record
type Customer struct {
	CustomerID string  `gorm:"column:customer_id;primaryKey;size:20" json:"customer_id" yaml:"customer_id"`
	Email      string  `gorm:"column:email;size:255;not null;uniqueIndex" json:"email" yaml:"email"`
	Name       string  `gorm:"column:name;size:100;not null" json:"name" yaml:"name"`
	Phone      string  `gorm:"column:phone;size:20" json:"phone" yaml:"phone"`
	City       string  `gorm:"column:city;size:100;not null" json:"city" yaml:"city"`
	State      string  `gorm:"column:state;size:2;not null" json:"state" yaml:"state"`
	Segment    Segment `gorm:"column:segment;size:20;not null" json:"segment" yaml:"segment"`
}

// TableName specifies the table name for Customer
func (Customer) TableName() string {
	return "customers"
}

// Product represents a catalog product
type Product struct {
	ProductID string          `gorm:"column:product_id;primaryKey;size:20" json:"product_id" yaml:"product_id"`
	Name      string          `gorm:"column:name;size:200;not null" json:"name" yaml:"name"`
	Category  Category        `gorm:"column:category;size:20;not null;index" json:"category" yaml:"category"`
	Price     decimal.Decimal `gorm:"column:price;type:numeric(10,2);not null" json:"price" yaml:"price"`
	InStock   bool            `gorm:"column:in_stock;not null" json:"in_stock" yaml:"in_stock"`
}

// TableName specifies the table name for Product
func (Product) TableName() string {
	return "products"
}

// Order represents a customer order. TotalAmount is derived from the
// order's items and is only final after item generation.
type Order struct {
	OrderID        string          `gorm:"column:order_id;primaryKey;size:20" json:"order_id" yaml:"order_id"`
	CustomerID     string          `gorm:"column:customer_id;size:20;not null;index" json:"customer_id" yaml:"customer_id"`
	OrderDate      Date            `gorm:"column:order_date;not null;index" json:"order_date" yaml:"order_date"`
	Status         OrderStatus     `gorm:"column:status;size:20;not null;index" json:"status" yaml:"status"`
	ShippedDate    *Date           `gorm:"column:shipped_date" json:"shipped_date" yaml:"shipped_date"`
	TrackingNumber *string         `gorm:"column:tracking_number;size:40" json:"tracking_number" yaml:"tracking_number"`
	TotalAmount    decimal.Decimal `gorm:"column:total_amount;type:numeric(10,2);not null" json:"total_amount" yaml:"total_amount"`
}

// TableName specifies the table name for Order
func (Order) TableName() string {
	return "orders"
}

// IsOpen reports whether the order has not reached a terminal state.
func (o *Order) IsOpen() bool {
	return o.Status == StatusProcessing || o.Status == StatusShipped
}

// OrderItem represents a line item of an order
type OrderItem struct {
	OrderItemID  int64           `gorm:"column:order_item_id;primaryKey;autoIncrement" json:"order_item_id" yaml:"order_item_id"`
	OrderID      string          `gorm:"column:order_id;size:20;not null;index" json:"order_id" yaml:"order_id"`
	ProductID    string          `gorm:"column:product_id;size:20;not null;index" json:"product_id" yaml:"product_id"`
	Quantity     int             `gorm:"column:quantity;not null" json:"quantity" yaml:"quantity"`
	PricePerUnit decimal.Decimal `gorm:"column:price_per_unit;type:numeric(10,2);not null" json:"price_per_unit" yaml:"price_per_unit"`
}

// TableName specifies the table name for OrderItem
func (OrderItem) TableName() string {
	return "order_items"
}

// LineTotal returns quantity × price per unit.
func (i *OrderItem) LineTotal() decimal.Decimal {
	return i.PricePerUnit.Mul(decimal.NewFromInt(int64(i.Quantity)))
}
