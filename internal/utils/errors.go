package utils

import "errors"

// Common application errors used across services. Not-found values are normal
// negative results and are matched with errors.Is by handlers to pick the
// right status code.
var (
	ErrInvalidToken         = errors.New("INVALID_TOKEN")
	ErrInvalidClient        = errors.New("INVALID_CLIENT")
	ErrPlanNotFound         = errors.New("PLAN_NOT_FOUND")
	ErrPriceNotFound        = errors.New("PRICE_NOT_FOUND")
	ErrProfileNotFound      = errors.New("PROFILE_NOT_FOUND")
	ErrSubscriptionNotFound = errors.New("SUBSCRIPTION_NOT_FOUND")
	ErrInvalidBillingCycle  = errors.New("INVALID_BILLING_CYCLE")
	ErrCatalogUnavailable   = errors.New("CATALOG_UNAVAILABLE")
)
