package handler

import (
	"context"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	stripe "github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/webhook"
)

// webhookBodyLimit caps webhook payload reads at 1 MiB.
const webhookBodyLimit = 1 << 20

// WebhookHandler handles incoming Stripe webhooks: it verifies the payload
// signature and hands the verified event to the webhook service.
type WebhookHandler struct {
	webhookService interface {
		ProcessEvent(ctx context.Context, event *stripe.Event) error
	}
	webhookSecret string
}

// NewWebhookHandler constructs a WebhookHandler.
func NewWebhookHandler(webhookService interface {
	ProcessEvent(ctx context.Context, event *stripe.Event) error
}, webhookSecret string) *WebhookHandler {
	return &WebhookHandler{webhookService: webhookService, webhookSecret: webhookSecret}
}

// HandleStripeWebhook handles POST /webhook/stripe.
func (h *WebhookHandler) HandleStripeWebhook(c *gin.Context) {
	if h.webhookSecret == "" {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "webhook secret not configured"})
		return
	}

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, webhookBodyLimit)
	payload, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read request body"})
		return
	}

	sigHeader := c.GetHeader("Stripe-Signature")
	if sigHeader == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing Stripe signature"})
		return
	}

	event, err := webhook.ConstructEventWithOptions(payload, sigHeader, h.webhookSecret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid Stripe signature"})
		return
	}

	if err := h.webhookService.ProcessEvent(c.Request.Context(), &event); err != nil {
		log.Error().Err(err).
			Str("event_id", event.ID).
			Str("type", string(event.Type)).
			Msg("webhook processing failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "processing failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"received": true})
}
