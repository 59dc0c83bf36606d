package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

const serviceName = "dataset-service"

// Pinger is a dependency the readiness check can probe.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler serves liveness and readiness checks
type HealthHandler struct {
	db    *gorm.DB
	cache Pinger
}

// NewHealthHandler creates a health handler. cache may be nil when no
// report cache is configured.
func NewHealthHandler(db *gorm.DB, cache Pinger) *HealthHandler {
	return &HealthHandler{db: db, cache: cache}
}

// Health handles the liveness check
func (h *HealthHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": serviceName,
	})
}

// Ready handles the readiness check. The store is required; the report
// cache only when configured.
func (h *HealthHandler) Ready(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	ready := true
	checks := make(map[string]string)

	if h.db != nil && pingDB(ctx, h.db) == nil {
		checks["database"] = "connected"
	} else {
		checks["database"] = "disconnected"
		ready = false
	}

	if h.cache != nil {
		if err := h.cache.Ping(ctx); err == nil {
			checks["redis"] = "connected"
		} else {
			checks["redis"] = "disconnected"
			ready = false
		}
	}

	status := http.StatusOK
	statusText := "ready"
	if !ready {
		status = http.StatusServiceUnavailable
		statusText = "not_ready"
	}

	c.JSON(status, gin.H{
		"status":  statusText,
		"service": serviceName,
		"checks":  checks,
	})
}

func pingDB(ctx context.Context, db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}
