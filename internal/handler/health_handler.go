package handler

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/brightloom/billing_api/internal/service"
	"github.com/brightloom/billing_api/internal/utils"
)

var startTime = time.Now()

// HealthHandler provides the health endpoint.
type HealthHandler struct {
	catalog *service.CatalogService
}

// NewHealthHandler creates a new HealthHandler.
func NewHealthHandler(catalog *service.CatalogService) *HealthHandler {
	return &HealthHandler{catalog: catalog}
}

// GetHealth responds with service status and catalog snapshot freshness.
// It never triggers a provider call: a health probe should not fan out.
func (h *HealthHandler) GetHealth(c *gin.Context) {
	utils.Success(c, 200, "Service is healthy", gin.H{
		"status":  "healthy",
		"version": "1.0.0",
		"uptime":  int(time.Since(startTime).Seconds()),
		"catalog": gin.H{
			"ttlSeconds": int(h.catalog.TTL().Seconds()),
		},
	})
}
