package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	stripe "github.com/stripe/stripe-go/v82"

	"github.com/brightloom/billing_api/internal/models"
)

// catalogEventTypes is the fixed set of provider event types that affect the
// product catalog and trigger a forced refresh.
var catalogEventTypes = map[string]bool{
	"product.created": true,
	"product.updated": true,
	"product.deleted": true,
	"price.created":   true,
	"price.updated":   true,
	"price.deleted":   true,
}

// IsCatalogEvent reports whether an event type indicates a product or price
// lifecycle change.
func IsCatalogEvent(eventType string) bool {
	return catalogEventTypes[eventType]
}

// CatalogRefresher triggers forced catalog refreshes.
type CatalogRefresher interface {
	Refresh(ctx context.Context) (*RefreshResult, error)
}

// EventDeduper remembers processed event IDs across redeliveries.
type EventDeduper interface {
	MarkProcessed(ctx context.Context, eventID string) (bool, error)
	Forget(ctx context.Context, eventID string) error
}

// WebhookProfileStore is the slice of the profile repository webhook
// processing needs.
type WebhookProfileStore interface {
	GetByStripeCustomerID(customerID string) (*models.Profile, error)
	UpdateBillingState(id int, planID, status string, isActive bool) error
}

// WebhookService processes verified provider webhook events: catalog
// lifecycle events trigger a refresh, subscription lifecycle events are
// mirrored into the profile store. Everything else is ignored.
type WebhookService struct {
	catalog  CatalogRefresher
	profiles WebhookProfileStore
	subs     SubscriptionStore
	dedup    EventDeduper
}

// NewWebhookService constructs a WebhookService. dedup may be nil, in which
// case redelivered events are processed again.
func NewWebhookService(catalog CatalogRefresher, profiles WebhookProfileStore, subs SubscriptionStore, dedup EventDeduper) *WebhookService {
	return &WebhookService{catalog: catalog, profiles: profiles, subs: subs, dedup: dedup}
}

// ProcessEvent handles one signature-verified provider event. A processing
// failure forgets the dedup mark so the provider's redelivery retries it.
func (s *WebhookService) ProcessEvent(ctx context.Context, event *stripe.Event) error {
	if s.dedup != nil {
		first, err := s.dedup.MarkProcessed(ctx, event.ID)
		if err != nil {
			log.Warn().Err(err).Str("event_id", event.ID).Msg("event dedup unavailable, processing anyway")
		} else if !first {
			log.Info().Str("event_id", event.ID).Str("type", string(event.Type)).Msg("duplicate webhook event skipped")
			return nil
		}
	}

	if err := s.handleEvent(ctx, event); err != nil {
		if s.dedup != nil {
			_ = s.dedup.Forget(ctx, event.ID)
		}
		return err
	}
	return nil
}

func (s *WebhookService) handleEvent(ctx context.Context, event *stripe.Event) error {
	eventType := string(event.Type)

	if IsCatalogEvent(eventType) {
		// Fire-and-forget: nothing upstream is waiting on the refresh, so a
		// failure is recorded and left for the next read to retry.
		if _, err := s.catalog.Refresh(ctx); err != nil {
			log.Error().Err(err).Str("type", eventType).Msg("catalog refresh triggered by webhook failed")
		}
		return nil
	}

	switch eventType {
	case "customer.subscription.created", "customer.subscription.updated":
		ev, err := parseSubscriptionEvent(event)
		if err != nil {
			return err
		}
		return s.mirrorSubscription(ev, ev.Status)

	case "customer.subscription.deleted":
		ev, err := parseSubscriptionEvent(event)
		if err != nil {
			return err
		}
		return s.mirrorSubscription(ev, models.SubscriptionStatusCanceled)

	default:
		log.Debug().Str("type", eventType).Str("event_id", event.ID).Msg("webhook event ignored")
		return nil
	}
}

// mirrorSubscription writes the provider-reported subscription state into
// the subscription mirror and onto the owning profile. An event for a
// customer we have no profile for is logged and dropped; there is nothing to
// mirror and retrying cannot fix it.
func (s *WebhookService) mirrorSubscription(ev *subscriptionEvent, status string) error {
	profile, err := s.profiles.GetByStripeCustomerID(ev.Customer)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			log.Warn().Str("customer", ev.Customer).Str("subscription", ev.ID).Msg("subscription event for unknown customer")
			return nil
		}
		return fmt.Errorf("lookup profile by customer %s: %w", ev.Customer, err)
	}

	planID := ev.Metadata["plan_id"]
	billingCycle := ev.Metadata["billing_cycle"]
	if planID == "" || billingCycle == "" {
		// Older subscriptions may predate the metadata; fall back to the
		// mirror row, then to the price interval.
		if existing, err := s.subs.GetByStripeID(ev.ID); err == nil {
			if planID == "" {
				planID = existing.PlanID
			}
			if billingCycle == "" {
				billingCycle = existing.BillingCycle
			}
		}
	}
	if billingCycle == "" {
		billingCycle = cycleForInterval(ev.interval())
	}

	row := &models.Subscription{
		ProfileID:            profile.ID,
		StripeSubscriptionID: ev.ID,
		PlanID:               planID,
		BillingCycle:         billingCycle,
		Status:               status,
		CurrentPeriodEnd:     time.Unix(ev.currentPeriodEnd(), 0).UTC(),
		CancelAtPeriodEnd:    ev.CancelAtPeriodEnd,
	}
	if err := s.subs.Upsert(row); err != nil {
		return fmt.Errorf("mirror subscription %s: %w", ev.ID, err)
	}

	active := status == models.SubscriptionStatusActive || status == models.SubscriptionStatusTrialing
	if err := s.profiles.UpdateBillingState(profile.ID, planID, status, active); err != nil {
		return fmt.Errorf("mirror billing state for profile %d: %w", profile.ID, err)
	}

	log.Info().
		Int("profile_id", profile.ID).
		Str("subscription", ev.ID).
		Str("status", status).
		Msg("subscription state mirrored")
	return nil
}

// subscriptionEvent is a minimal view of a provider subscription event
// payload, decoded straight from the event body.
type subscriptionEvent struct {
	ID                string `json:"id"`
	Customer          string `json:"customer"`
	Status            string `json:"status"`
	CancelAtPeriodEnd bool   `json:"cancel_at_period_end"`
	Items             struct {
		Data []struct {
			CurrentPeriodEnd int64 `json:"current_period_end"`
			Price            struct {
				ID        string `json:"id"`
				Recurring *struct {
					Interval string `json:"interval"`
				} `json:"recurring"`
			} `json:"price"`
		} `json:"data"`
	} `json:"items"`
	Metadata map[string]string `json:"metadata"`
}

func parseSubscriptionEvent(event *stripe.Event) (*subscriptionEvent, error) {
	var ev subscriptionEvent
	if err := json.Unmarshal(event.Data.Raw, &ev); err != nil {
		return nil, fmt.Errorf("decode subscription event %s: %w", event.ID, err)
	}
	return &ev, nil
}

func (ev *subscriptionEvent) currentPeriodEnd() int64 {
	for _, item := range ev.Items.Data {
		if item.CurrentPeriodEnd > 0 {
			return item.CurrentPeriodEnd
		}
	}
	return 0
}

func (ev *subscriptionEvent) interval() string {
	for _, item := range ev.Items.Data {
		if item.Price.Recurring != nil {
			return item.Price.Recurring.Interval
		}
	}
	return ""
}

// cycleForInterval folds a provider interval onto a billing cycle key the
// same way the organizer does for prices.
func cycleForInterval(interval string) string {
	switch interval {
	case "":
		return models.CycleOneTime
	case "month":
		return models.CycleMonthly
	default:
		return models.CycleYearly
	}
}
