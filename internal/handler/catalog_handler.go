package handler

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/brightloom/billing_api/internal/service"
	"github.com/brightloom/billing_api/internal/utils"
)

// CatalogHandler serves plan catalog reads and the operator refresh action.
type CatalogHandler struct {
	catalog *service.CatalogService
}

// NewCatalogHandler constructs a CatalogHandler.
func NewCatalogHandler(catalog *service.CatalogService) *CatalogHandler {
	return &CatalogHandler{catalog: catalog}
}

// GetCatalog returns the full ordered plan list with the snapshot timestamp
// and TTL. A passive read: the snapshot is refreshed only if stale.
func (h *CatalogHandler) GetCatalog(c *gin.Context) {
	snap, err := h.catalog.Get(c.Request.Context(), false)
	if err != nil {
		log.Error().Err(err).Msg("catalog fetch failed")
		utils.Error(c, 502, "CATALOG_UNAVAILABLE", "Failed to fetch catalog from billing provider")
		return
	}

	utils.Success(c, 200, "Catalog retrieved successfully", gin.H{
		"plans":      snap.Plans,
		"snapshotAt": snap.CreatedAt,
		"ttlSeconds": int(h.catalog.TTL().Seconds()),
	})
}

// GetPlan returns a single plan by planId.
func (h *CatalogHandler) GetPlan(c *gin.Context) {
	planID := c.Param("planId")

	plan, err := h.catalog.FindPlan(c.Request.Context(), planID)
	if err != nil {
		if errors.Is(err, utils.ErrPlanNotFound) {
			utils.Error(c, 404, "PLAN_NOT_FOUND", "Unknown plan: "+planID)
			return
		}
		log.Error().Err(err).Str("plan_id", planID).Msg("plan lookup failed")
		utils.Error(c, 502, "CATALOG_UNAVAILABLE", "Failed to fetch catalog from billing provider")
		return
	}

	utils.Success(c, 200, "Plan retrieved successfully", plan)
}

// ValidatePrice resolves a (planId, cycle) pair to a provider price ID.
func (h *CatalogHandler) ValidatePrice(c *gin.Context) {
	planID := c.Param("planId")
	cycle := c.Query("cycle")
	if cycle == "" {
		utils.Error(c, 400, "INVALID_REQUEST", "Query parameter 'cycle' is required")
		return
	}

	priceID, err := h.catalog.ValidatePrice(c.Request.Context(), planID, cycle)
	if err != nil {
		utils.Error(c, 404, "PRICE_NOT_FOUND", "No price for this plan and billing cycle")
		return
	}

	utils.Success(c, 200, "Price resolved successfully", gin.H{
		"planId":       planID,
		"billingCycle": cycle,
		"priceId":      priceID,
	})
}

// Refresh forces a catalog refresh regardless of snapshot age. Operator
// facing; returns the refreshed counts and timestamp.
func (h *CatalogHandler) Refresh(c *gin.Context) {
	result, err := h.catalog.Refresh(c.Request.Context())
	if err != nil {
		log.Error().Err(err).Msg("forced catalog refresh failed")
		utils.Error(c, 502, "CATALOG_UNAVAILABLE", "Catalog refresh failed")
		return
	}

	utils.Success(c, 200, "Catalog refreshed successfully", result)
}
