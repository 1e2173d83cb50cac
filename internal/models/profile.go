package models

import (
	"database/sql"
	"time"
)

// Profile represents a business profile registered with the gateway. It holds
// the client's API credentials and mirrors the billing state last reported by
// the provider via webhooks.
type Profile struct {
	ID                 int            `db:"id" json:"id"`
	Email              string         `db:"email" json:"email"`
	CompanyName        string         `db:"company_name" json:"companyName"`
	APIKey             string         `db:"api_key" json:"-"`
	StripeCustomerID   sql.NullString `db:"stripe_customer_id" json:"stripeCustomerId,omitempty"`
	PlanID             string         `db:"plan_id" json:"planId"`
	SubscriptionStatus string         `db:"subscription_status" json:"subscriptionStatus"`
	IsActive           bool           `db:"is_active" json:"isActive"`
	CreatedAt          time.Time      `db:"created_at" json:"createdAt"`
	UpdatedAt          time.Time      `db:"updated_at" json:"updatedAt"`
}
