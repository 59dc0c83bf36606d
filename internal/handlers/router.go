package handlers

import (
	"net/http"
	"time"

	"dataset-service/internal/utils"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// SetupRouter wires the health, metrics and dataset routes. An empty
// origin list or "*" allows every origin.
func SetupRouter(health *HealthHandler, dataset *DatasetHandlers, metrics http.Handler, allowedOrigins []string) *gin.Engine {
	router := gin.New()
	router.Use(cors.New(corsConfig(allowedOrigins)))
	router.Use(gin.Recovery())
	router.Use(requestLogger())

	router.GET("/health", health.Health)
	router.GET("/ready", health.Ready)
	if metrics != nil {
		router.GET("/metrics", gin.WrapH(metrics))
	}

	dataset.RegisterRoutes(router.Group("/api/v1"))
	return router
}

func corsConfig(allowedOrigins []string) cors.Config {
	config := cors.Config{
		AllowMethods:  []string{"GET", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept"},
		ExposeHeaders: []string{"Content-Length"},
		MaxAge:        12 * time.Hour,
	}
	for _, origin := range allowedOrigins {
		if origin == "*" {
			config.AllowAllOrigins = true
			return config
		}
	}
	if len(allowedOrigins) == 0 {
		config.AllowAllOrigins = true
		return config
	}
	config.AllowOrigins = allowedOrigins
	return config
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		entry := utils.Log.Component("http", "").WithFields(logrus.Fields{
			"method":   c.Request.Method,
			"path":     c.FullPath(),
			"status":   c.Writer.Status(),
			"duration": time.Since(start).String(),
		})
		if c.Writer.Status() >= http.StatusInternalServerError {
			entry.Warn("Request failed")
			return
		}
		entry.Debug("Request served")
	}
}
