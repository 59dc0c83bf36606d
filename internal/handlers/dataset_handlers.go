package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"dataset-service/internal/models"
	"dataset-service/internal/repository"
	"dataset-service/internal/utils"
	"dataset-service/internal/validator"

	"github.com/gin-gonic/gin"
)

// ReportSource returns the most recent validation report, or nil when
// none exists.
type ReportSource interface {
	Latest(ctx context.Context) (*validator.Report, error)
}

// DatasetHandlers serves read-only queries over a built dataset
type DatasetHandlers struct {
	repo    repository.DatasetRepository
	reports ReportSource
}

// NewDatasetHandlers creates dataset handlers. reports may be nil, in
// which case the latest report is unavailable.
func NewDatasetHandlers(repo repository.DatasetRepository, reports ReportSource) *DatasetHandlers {
	return &DatasetHandlers{repo: repo, reports: reports}
}

// RegisterRoutes mounts the dataset API on rg.
func (h *DatasetHandlers) RegisterRoutes(rg *gin.RouterGroup) {
	customers := rg.Group("/customers")
	{
		customers.GET("", h.GetCustomerByEmail)
		customers.GET("/:id/orders", h.ListCustomerOrders)
	}

	orders := rg.Group("/orders")
	{
		orders.GET("/:id", h.GetOrder)
		orders.GET("/:id/items", h.ListOrderItems)
	}

	products := rg.Group("/products")
	{
		products.GET("", h.ListProducts)
		products.GET("/:id", h.GetProduct)
	}

	rg.GET("/analytics/bundles", h.TopBundles)
	rg.GET("/reports/latest", h.LatestReport)
}

// GetCustomerByEmail resolves a customer by email address
// GET /api/v1/customers?email=
func (h *DatasetHandlers) GetCustomerByEmail(c *gin.Context) {
	email := c.Query("email")
	if email == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "email query parameter is required"})
		return
	}

	customer, err := h.repo.CustomerByEmail(c.Request.Context(), email)
	if err != nil {
		h.fail(c, err, "customer not found", "email", email)
		return
	}
	c.JSON(http.StatusOK, customer)
}

// ListCustomerOrders lists a customer's orders, newest first
// GET /api/v1/customers/:id/orders
func (h *DatasetHandlers) ListCustomerOrders(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "0"))
	if err != nil || limit < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid limit"})
		return
	}

	customerID := c.Param("id")
	orders, err := h.repo.OrdersByCustomer(c.Request.Context(), customerID, limit)
	if err != nil {
		h.fail(c, err, "customer not found", "customer_id", customerID)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"customer_id": customerID,
		"orders":      orders,
		"total":       len(orders),
	})
}

// GetOrder retrieves an order by ID
// GET /api/v1/orders/:id
func (h *DatasetHandlers) GetOrder(c *gin.Context) {
	order, err := h.repo.OrderByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err, "order not found", "order_id", c.Param("id"))
		return
	}
	c.JSON(http.StatusOK, order)
}

// ListOrderItems lists an order's lines with product details
// GET /api/v1/orders/:id/items
func (h *DatasetHandlers) ListOrderItems(c *gin.Context) {
	ctx := c.Request.Context()
	order, err := h.repo.OrderByID(ctx, c.Param("id"))
	if err != nil {
		h.fail(c, err, "order not found", "order_id", c.Param("id"))
		return
	}

	lines, err := h.repo.ItemsByOrder(ctx, order.OrderID)
	if err != nil {
		h.fail(c, err, "order not found", "order_id", order.OrderID)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"order_id":     order.OrderID,
		"status":       order.Status,
		"total_amount": order.TotalAmount,
		"items":        lines,
	})
}

// GetProduct resolves a product by ID or name fragment
// GET /api/v1/products/:id
func (h *DatasetHandlers) GetProduct(c *gin.Context) {
	products, err := h.repo.ProductByIDOrName(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err, "product not found", "query", c.Param("id"))
		return
	}
	if len(products) == 1 {
		c.JSON(http.StatusOK, products[0])
		return
	}
	c.JSON(http.StatusOK, gin.H{"products": products, "total": len(products)})
}

// ListProducts lists products, optionally by category and stock
// GET /api/v1/products?category=&in_stock=
func (h *DatasetHandlers) ListProducts(c *gin.Context) {
	category := models.Category(c.Query("category"))
	if category != "" && !models.IsValidCategory(category) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid category", "valid": models.Categories})
		return
	}

	var inStock *bool
	if raw := c.Query("in_stock"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid in_stock value"})
			return
		}
		inStock = &v
	}

	products, err := h.repo.ProductsByCategory(c.Request.Context(), category, inStock)
	if err != nil {
		h.fail(c, err, "products not found", "category", string(category))
		return
	}
	c.JSON(http.StatusOK, gin.H{"products": products, "total": len(products)})
}

// TopBundles lists the product pairs most often bought together
// GET /api/v1/analytics/bundles
func (h *DatasetHandlers) TopBundles(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "10"))
	if err != nil || limit <= 0 || limit > 100 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be between 1 and 100"})
		return
	}

	bundles, err := h.repo.TopBundles(c.Request.Context(), limit)
	if err != nil {
		h.fail(c, err, "bundles not found", "limit", limit)
		return
	}
	c.JSON(http.StatusOK, gin.H{"bundles": bundles, "total": len(bundles)})
}

// LatestReport returns the most recent validation report
// GET /api/v1/reports/latest
func (h *DatasetHandlers) LatestReport(c *gin.Context) {
	if h.reports == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Report cache is not configured"})
		return
	}

	report, err := h.reports.Latest(c.Request.Context())
	if err != nil {
		utils.Log.WithError(err).Error("Failed to read latest report")
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Report cache unavailable"})
		return
	}
	if report == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "No validation report yet"})
		return
	}
	c.JSON(http.StatusOK, report)
}

// fail maps repository errors onto responses.
func (h *DatasetHandlers) fail(c *gin.Context, err error, notFoundMsg string, key string, value interface{}) {
	if errors.Is(err, repository.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": notFoundMsg})
		return
	}
	utils.Log.WithError(err).WithField(key, value).Error("Dataset query failed")
	c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
}
