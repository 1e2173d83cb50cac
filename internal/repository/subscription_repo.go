package repository

import (
	"github.com/jmoiron/sqlx"

	"github.com/brightloom/billing_api/internal/models"
)

// SubscriptionRepository handles data access for the local subscription
// mirror. Rows are only ever written to reflect provider-reported state.
type SubscriptionRepository struct {
	db *sqlx.DB
}

// NewSubscriptionRepository creates a new SubscriptionRepository.
func NewSubscriptionRepository(db *sqlx.DB) *SubscriptionRepository {
	return &SubscriptionRepository{db: db}
}

// GetByStripeID returns the mirror row for a provider subscription.
func (r *SubscriptionRepository) GetByStripeID(stripeSubscriptionID string) (*models.Subscription, error) {
	const q = `SELECT * FROM subscriptions WHERE stripe_subscription_id = $1 LIMIT 1`
	var s models.Subscription
	if err := r.db.Get(&s, q, stripeSubscriptionID); err != nil {
		return nil, err
	}
	return &s, nil
}

// ListByProfile returns all mirrored subscriptions of one profile, newest
// first.
func (r *SubscriptionRepository) ListByProfile(profileID int) ([]models.Subscription, error) {
	const q = `SELECT * FROM subscriptions WHERE profile_id = $1 ORDER BY created_at DESC`
	var subs []models.Subscription
	if err := r.db.Select(&subs, q, profileID); err != nil {
		return nil, err
	}
	return subs, nil
}

// Upsert inserts or updates a mirror row by provider subscription ID.
func (r *SubscriptionRepository) Upsert(s *models.Subscription) error {
	const q = `
        INSERT INTO subscriptions
            (profile_id, stripe_subscription_id, plan_id, billing_cycle, status, current_period_end, cancel_at_period_end)
        VALUES ($1, $2, $3, $4, $5, $6, $7)
        ON CONFLICT (stripe_subscription_id) DO UPDATE SET
            plan_id = EXCLUDED.plan_id,
            billing_cycle = EXCLUDED.billing_cycle,
            status = EXCLUDED.status,
            current_period_end = EXCLUDED.current_period_end,
            cancel_at_period_end = EXCLUDED.cancel_at_period_end,
            updated_at = NOW()`

	_, err := r.db.Exec(q,
		s.ProfileID,
		s.StripeSubscriptionID,
		s.PlanID,
		s.BillingCycle,
		s.Status,
		s.CurrentPeriodEnd,
		s.CancelAtPeriodEnd,
	)
	return err
}
