package models

import "time"

// Subscription statuses mirrored from the billing provider.
const (
	SubscriptionStatusActive   = "active"
	SubscriptionStatusPastDue  = "past_due"
	SubscriptionStatusCanceled = "canceled"
	SubscriptionStatusTrialing = "trialing"
)

// Subscription is the local mirror of a provider subscription. The provider
// is the source of truth; rows here are only ever written to reflect what the
// provider reported, either from a synchronous API response or a webhook.
type Subscription struct {
	ID                   int       `db:"id" json:"id"`
	ProfileID            int       `db:"profile_id" json:"profileId"`
	StripeSubscriptionID string    `db:"stripe_subscription_id" json:"stripeSubscriptionId"`
	PlanID               string    `db:"plan_id" json:"planId"`
	BillingCycle         string    `db:"billing_cycle" json:"billingCycle"`
	Status               string    `db:"status" json:"status"`
	CurrentPeriodEnd     time.Time `db:"current_period_end" json:"currentPeriodEnd"`
	CancelAtPeriodEnd    bool      `db:"cancel_at_period_end" json:"cancelAtPeriodEnd"`
	CreatedAt            time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt            time.Time `db:"updated_at" json:"updatedAt"`
}
