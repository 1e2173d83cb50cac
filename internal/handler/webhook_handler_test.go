package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	stripe "github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/webhook"
)

const testWebhookSecret = "whsec_test_secret"

type recordingWebhookService struct {
	events []*stripe.Event
	err    error
}

func (r *recordingWebhookService) ProcessEvent(ctx context.Context, event *stripe.Event) error {
	r.events = append(r.events, event)
	return r.err
}

func webhookRouter(svc *recordingWebhookService, secret string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	h := NewWebhookHandler(svc, secret)
	r.POST("/webhook/stripe", h.HandleStripeWebhook)
	return r
}

func eventPayload(t *testing.T, id, eventType string) []byte {
	t.Helper()
	payload, err := json.Marshal(map[string]interface{}{
		"id":   id,
		"type": eventType,
		"data": map[string]interface{}{
			"object": map[string]interface{}{"id": "prod_1"},
		},
	})
	require.NoError(t, err)
	return payload
}

func signPayload(payload []byte, secret string) string {
	signed := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload:   payload,
		Secret:    secret,
		Timestamp: time.Now(),
		Scheme:    "v1",
	})
	return signed.Header
}

func TestWebhookHandlerValidSignature(t *testing.T) {
	svc := &recordingWebhookService{}
	router := webhookRouter(svc, testWebhookSecret)

	payload := eventPayload(t, "evt_1", "product.updated")
	req := httptest.NewRequest(http.MethodPost, "/webhook/stripe", bytes.NewReader(payload))
	req.Header.Set("Stripe-Signature", signPayload(payload, testWebhookSecret))

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	require.Len(t, svc.events, 1)
	assert.Equal(t, "evt_1", svc.events[0].ID)
	assert.Equal(t, "product.updated", string(svc.events[0].Type))
}

func TestWebhookHandlerInvalidSignature(t *testing.T) {
	svc := &recordingWebhookService{}
	router := webhookRouter(svc, testWebhookSecret)

	payload := eventPayload(t, "evt_1", "product.updated")
	req := httptest.NewRequest(http.MethodPost, "/webhook/stripe", bytes.NewReader(payload))
	req.Header.Set("Stripe-Signature", signPayload(payload, "whsec_wrong"))

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, svc.events)
}

func TestWebhookHandlerMissingSignature(t *testing.T) {
	svc := &recordingWebhookService{}
	router := webhookRouter(svc, testWebhookSecret)

	payload := eventPayload(t, "evt_1", "product.updated")
	req := httptest.NewRequest(http.MethodPost, "/webhook/stripe", bytes.NewReader(payload))

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, svc.events)
}

func TestWebhookHandlerMissingSecret(t *testing.T) {
	svc := &recordingWebhookService{}
	router := webhookRouter(svc, "")

	payload := eventPayload(t, "evt_1", "product.updated")
	req := httptest.NewRequest(http.MethodPost, "/webhook/stripe", bytes.NewReader(payload))
	req.Header.Set("Stripe-Signature", signPayload(payload, testWebhookSecret))

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Empty(t, svc.events)
}

func TestWebhookHandlerProcessingFailure(t *testing.T) {
	svc := &recordingWebhookService{err: assert.AnError}
	router := webhookRouter(svc, testWebhookSecret)

	payload := eventPayload(t, "evt_1", "customer.subscription.updated")
	req := httptest.NewRequest(http.MethodPost, "/webhook/stripe", bytes.NewReader(payload))
	req.Header.Set("Stripe-Signature", signPayload(payload, testWebhookSecret))

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
}
