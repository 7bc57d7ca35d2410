// Package api exposes the HTTP surface: scan triggers, job and listing
// reads, deep analysis, the live event stream, and operational endpoints.
package api

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/jonesrussell/flipscout/internal/events"
	"github.com/jonesrussell/flipscout/internal/logger"
	"github.com/jonesrussell/flipscout/internal/metrics"
)

const corsMaxAgeHours = 12

// NewRouter builds the gin engine with all routes attached.
func NewRouter(h *Handler, broker *events.Broker, log logger.Logger) *gin.Engine {
	router := gin.New()

	router.Use(cors.New(cors.Config{
		AllowOrigins: []string{"http://localhost:3000"},
		AllowMethods: []string{"GET", "POST", "OPTIONS"},
		AllowHeaders: []string{
			"Origin", "Content-Type", "Content-Length", "Accept-Encoding",
			"Authorization", "Cache-Control", "X-Requested-With",
		},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           corsMaxAgeHours * time.Hour,
	}))

	router.Use(ginLogger(log))
	router.Use(gin.Recovery())

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(metrics.Handler()))

	v1 := router.Group("/api/v1")

	v1.POST("/scans", h.TriggerScan)
	v1.GET("/jobs", h.ListJobs)
	v1.GET("/jobs/:id", h.GetJob)
	v1.GET("/listings", h.ListListings)
	v1.GET("/listings/:id", h.GetListing)
	v1.POST("/listings/:id/analyze", h.AnalyzeListing)
	v1.POST("/analyze", h.AnalyzeBatch)

	v1.GET("/events", events.StreamHandler(broker, log))

	return router
}

// ginLogger emits one structured log line per request.
func ginLogger(log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		log.Info("HTTP request",
			logger.String("method", c.Request.Method),
			logger.String("path", c.Request.URL.Path),
			logger.Int("status", c.Writer.Status()),
			logger.Duration("latency", time.Since(start)),
		)
	}
}
