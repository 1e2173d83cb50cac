package models

import "time"

// Billing cycle keys under which a plan's price variants are stored.
const (
	CycleMonthly = "monthly"
	CycleYearly  = "yearly"
	CycleOneTime = "one_time"
)

// DefaultDisplayOrder sorts plans without an explicit display_order last.
const DefaultDisplayOrder = 999

// RawProduct is a product exactly as the billing provider returned it,
// before any organizing. It only lives for the duration of one organize pass.
type RawProduct struct {
	ID          string            `json:"id"`
	Name        string            `json:"name"`
	Description string            `json:"description"`
	Active      bool              `json:"active"`
	Metadata    map[string]string `json:"metadata"`
}

// RawPrice is a price as returned by the billing provider. ProductID is
// always the bare product identifier string; the gateway client normalizes
// expanded product objects down to their ID before handing prices over.
type RawPrice struct {
	ID         string     `json:"id"`
	ProductID  string     `json:"productId"`
	Active     bool       `json:"active"`
	UnitAmount int64      `json:"unitAmount"`
	Currency   string     `json:"currency"`
	Recurring  *Recurring `json:"recurring,omitempty"`
}

// Recurring describes the billing interval of a recurring price.
type Recurring struct {
	Interval      string `json:"interval"`
	IntervalCount int64  `json:"intervalCount"`
}

// PriceVariant is one purchasable price of a plan, keyed by billing cycle.
type PriceVariant struct {
	PriceID       string `json:"priceId"`
	UnitAmount    int64  `json:"unitAmount"`
	Currency      string `json:"currency"`
	Interval      string `json:"interval,omitempty"`
	IntervalCount int64  `json:"intervalCount,omitempty"`
}

// Plan is the unit of a purchasable offering, derived from one provider
// product plus the active prices that reference it.
type Plan struct {
	PlanID       string                  `json:"planId"`
	ProductID    string                  `json:"productId"`
	Name         string                  `json:"name"`
	Description  string                  `json:"description,omitempty"`
	PlanType     string                  `json:"planType"`
	DisplayOrder int                     `json:"displayOrder"`
	Features     []string                `json:"features"`
	Prices       map[string]PriceVariant `json:"prices"`
}

// CatalogSnapshot is one immutable organized catalog state. It is built
// wholesale by a single organize pass and replaced, never mutated, on
// refresh. Plans are sorted by DisplayOrder ascending; PriceIndex duplicates
// each plan's prices for O(1) lookup by planId and billing cycle.
type CatalogSnapshot struct {
	Plans      []Plan
	PriceIndex map[string]map[string]PriceVariant
	CreatedAt  time.Time
}

// Age returns how long ago the snapshot was built.
func (s *CatalogSnapshot) Age() time.Duration {
	return time.Since(s.CreatedAt)
}
