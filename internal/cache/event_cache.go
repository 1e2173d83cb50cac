package cache

import (
	"context"
	"fmt"
	"time"
)

// eventTTL is how long a processed webhook event ID is remembered. Stripe
// retries deliveries for up to three days; 72h covers the retry window.
const eventTTL = 72 * time.Hour

// WebhookEventCache records processed provider event IDs in Redis so that
// redelivered webhook events are detected and not applied twice.
type WebhookEventCache struct {
	redis *RedisClient
}

// NewWebhookEventCache creates a new WebhookEventCache.
func NewWebhookEventCache(redis *RedisClient) *WebhookEventCache {
	return &WebhookEventCache{redis: redis}
}

func (c *WebhookEventCache) key(eventID string) string {
	return fmt.Sprintf("webhook:event:%s", eventID)
}

// MarkProcessed records an event ID and reports whether this is the first
// time it has been seen. A redelivery returns false.
func (c *WebhookEventCache) MarkProcessed(ctx context.Context, eventID string) (bool, error) {
	return c.redis.SetNX(ctx, c.key(eventID), time.Now().Format(time.RFC3339), eventTTL)
}

// Forget removes an event ID so a redelivery will be processed again. Used
// when handling an event failed and the retry should not be short-circuited.
func (c *WebhookEventCache) Forget(ctx context.Context, eventID string) error {
	return c.redis.Delete(ctx, c.key(eventID))
}
