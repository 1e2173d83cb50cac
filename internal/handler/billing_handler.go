package handler

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/brightloom/billing_api/internal/models"
	"github.com/brightloom/billing_api/internal/service"
	"github.com/brightloom/billing_api/internal/utils"
)

// BillingHandler relays subscription operations for the authenticated profile.
type BillingHandler struct {
	billing *service.BillingService
}

// NewBillingHandler constructs a BillingHandler.
func NewBillingHandler(billing *service.BillingService) *BillingHandler {
	return &BillingHandler{billing: billing}
}

// profileFromContext returns the profile set by the auth middleware.
func profileFromContext(c *gin.Context) *models.Profile {
	v, ok := c.Get("profile")
	if !ok {
		return nil
	}
	profile, _ := v.(*models.Profile)
	return profile
}

// CreateSubscription checks the profile out onto a plan.
func (h *BillingHandler) CreateSubscription(c *gin.Context) {
	profile := profileFromContext(c)
	if profile == nil {
		utils.Error(c, 401, "UNAUTHORIZED", "Missing profile context")
		return
	}

	var req struct {
		PlanID       string `json:"planId" binding:"required"`
		BillingCycle string `json:"billingCycle" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.Error(c, 400, "INVALID_REQUEST", "planId and billingCycle are required")
		return
	}

	result, err := h.billing.Subscribe(c.Request.Context(), profile, req.PlanID, req.BillingCycle)
	if err != nil {
		switch {
		case errors.Is(err, utils.ErrInvalidBillingCycle):
			utils.Error(c, 400, "INVALID_BILLING_CYCLE", "billingCycle must be monthly, yearly, or one_time")
		case errors.Is(err, utils.ErrPriceNotFound), errors.Is(err, utils.ErrPlanNotFound):
			utils.Error(c, 404, "PRICE_NOT_FOUND", "No price for this plan and billing cycle")
		default:
			log.Error().Err(err).Int("profile_id", profile.ID).Str("plan_id", req.PlanID).Msg("checkout failed")
			utils.Error(c, 502, "PROVIDER_ERROR", "Billing provider request failed")
		}
		return
	}

	utils.Success(c, 201, "Checkout created successfully", result)
}

// ListSubscriptions returns the profile's mirrored subscriptions.
func (h *BillingHandler) ListSubscriptions(c *gin.Context) {
	profile := profileFromContext(c)
	if profile == nil {
		utils.Error(c, 401, "UNAUTHORIZED", "Missing profile context")
		return
	}

	subs, err := h.billing.ListSubscriptions(profile)
	if err != nil {
		log.Error().Err(err).Int("profile_id", profile.ID).Msg("subscription listing failed")
		utils.Error(c, 500, "INTERNAL_ERROR", "Failed to list subscriptions")
		return
	}

	utils.Success(c, 200, "Subscriptions retrieved successfully", gin.H{
		"subscriptions": subs,
	})
}

// GetSubscription returns the provider's current view of a subscription.
func (h *BillingHandler) GetSubscription(c *gin.Context) {
	profile := profileFromContext(c)
	if profile == nil {
		utils.Error(c, 401, "UNAUTHORIZED", "Missing profile context")
		return
	}

	sub, err := h.billing.GetSubscription(c.Request.Context(), profile, c.Param("id"))
	if err != nil {
		if errors.Is(err, utils.ErrSubscriptionNotFound) {
			utils.Error(c, 404, "SUBSCRIPTION_NOT_FOUND", "Unknown subscription")
			return
		}
		log.Error().Err(err).Str("subscription", c.Param("id")).Msg("subscription fetch failed")
		utils.Error(c, 502, "PROVIDER_ERROR", "Billing provider request failed")
		return
	}

	utils.Success(c, 200, "Subscription retrieved successfully", sub)
}

// CancelSubscription cancels a subscription at the provider.
func (h *BillingHandler) CancelSubscription(c *gin.Context) {
	profile := profileFromContext(c)
	if profile == nil {
		utils.Error(c, 401, "UNAUTHORIZED", "Missing profile context")
		return
	}

	sub, err := h.billing.CancelSubscription(c.Request.Context(), profile, c.Param("id"))
	if err != nil {
		if errors.Is(err, utils.ErrSubscriptionNotFound) {
			utils.Error(c, 404, "SUBSCRIPTION_NOT_FOUND", "Unknown subscription")
			return
		}
		log.Error().Err(err).Str("subscription", c.Param("id")).Msg("subscription cancel failed")
		utils.Error(c, 502, "PROVIDER_ERROR", "Billing provider request failed")
		return
	}

	utils.Success(c, 200, "Subscription canceled", sub)
}
