package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/brightloom/billing_api/internal/models"
	"github.com/brightloom/billing_api/internal/utils"
	"github.com/brightloom/billing_api/pkg/stripegw"
)

// BillingGateway is the slice of the billing provider used for customer,
// subscription, and payment operations.
type BillingGateway interface {
	CreateCustomer(ctx context.Context, email, name string, metadata map[string]string) (*stripegw.Customer, error)
	CreateSubscription(ctx context.Context, customerID, priceID string, metadata map[string]string) (*stripegw.Subscription, error)
	GetSubscription(ctx context.Context, id string) (*stripegw.Subscription, error)
	CancelSubscription(ctx context.Context, id string) (*stripegw.Subscription, error)
	CreatePaymentIntent(ctx context.Context, amount int64, currency, customerID string, metadata map[string]string) (*stripegw.PaymentIntent, error)
}

// BillingProfileStore is the slice of the profile repository billing needs.
type BillingProfileStore interface {
	SetStripeCustomerID(id int, customerID string) error
	UpdateBillingState(id int, planID, status string, isActive bool) error
}

// SubscriptionStore mirrors provider subscription state locally.
type SubscriptionStore interface {
	Upsert(s *models.Subscription) error
	GetByStripeID(stripeSubscriptionID string) (*models.Subscription, error)
	ListByProfile(profileID int) ([]models.Subscription, error)
}

// CheckoutResult is the outcome of a subscribe call. Exactly one of
// Subscription and PaymentIntent is set: recurring cycles create a provider
// subscription, one_time plans create a payment intent to confirm client-side.
type CheckoutResult struct {
	Subscription  *stripegw.Subscription  `json:"subscription,omitempty"`
	PaymentIntent *stripegw.PaymentIntent `json:"paymentIntent,omitempty"`
}

// BillingService relays subscription and payment operations to the billing
// provider and mirrors the provider's reported state into the profile store.
// The provider remains the source of truth throughout.
type BillingService struct {
	gateway  BillingGateway
	catalog  *CatalogService
	profiles BillingProfileStore
	subs     SubscriptionStore
}

// NewBillingService constructs a BillingService.
func NewBillingService(gateway BillingGateway, catalog *CatalogService, profiles BillingProfileStore, subs SubscriptionStore) *BillingService {
	return &BillingService{gateway: gateway, catalog: catalog, profiles: profiles, subs: subs}
}

// Subscribe checks out a profile onto a plan. The (planId, billingCycle)
// pair is resolved against the catalog; an unknown pair is a not-found
// result, not a provider call.
func (s *BillingService) Subscribe(ctx context.Context, profile *models.Profile, planID, billingCycle string) (*CheckoutResult, error) {
	switch billingCycle {
	case models.CycleMonthly, models.CycleYearly, models.CycleOneTime:
	default:
		return nil, utils.ErrInvalidBillingCycle
	}

	priceID, err := s.catalog.ValidatePrice(ctx, planID, billingCycle)
	if err != nil {
		return nil, err
	}

	customerID, err := s.ensureCustomer(ctx, profile)
	if err != nil {
		return nil, err
	}

	metadata := map[string]string{
		"profile_id":    strconv.Itoa(profile.ID),
		"plan_id":       planID,
		"billing_cycle": billingCycle,
	}

	if billingCycle == models.CycleOneTime {
		plan, err := s.catalog.FindPlan(ctx, planID)
		if err != nil {
			return nil, err
		}
		variant := plan.Prices[models.CycleOneTime]
		pi, err := s.gateway.CreatePaymentIntent(ctx, variant.UnitAmount, variant.Currency, customerID, metadata)
		if err != nil {
			return nil, fmt.Errorf("create payment intent for plan %s: %w", planID, err)
		}
		return &CheckoutResult{PaymentIntent: pi}, nil
	}

	sub, err := s.gateway.CreateSubscription(ctx, customerID, priceID, metadata)
	if err != nil {
		return nil, fmt.Errorf("create subscription for plan %s: %w", planID, err)
	}

	s.mirror(profile.ID, planID, billingCycle, sub)
	return &CheckoutResult{Subscription: sub}, nil
}

// ListSubscriptions returns the mirrored subscriptions of a profile, newest
// first.
func (s *BillingService) ListSubscriptions(profile *models.Profile) ([]models.Subscription, error) {
	return s.subs.ListByProfile(profile.ID)
}

// GetSubscription fetches a subscription from the provider after checking
// the profile owns it.
func (s *BillingService) GetSubscription(ctx context.Context, profile *models.Profile, stripeSubscriptionID string) (*stripegw.Subscription, error) {
	if err := s.checkOwnership(profile, stripeSubscriptionID); err != nil {
		return nil, err
	}
	return s.gateway.GetSubscription(ctx, stripeSubscriptionID)
}

// CancelSubscription cancels a subscription at the provider and mirrors the
// resulting state.
func (s *BillingService) CancelSubscription(ctx context.Context, profile *models.Profile, stripeSubscriptionID string) (*stripegw.Subscription, error) {
	mirror, err := s.subs.GetByStripeID(stripeSubscriptionID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, utils.ErrSubscriptionNotFound
		}
		return nil, err
	}
	if mirror.ProfileID != profile.ID {
		return nil, utils.ErrSubscriptionNotFound
	}

	sub, err := s.gateway.CancelSubscription(ctx, stripeSubscriptionID)
	if err != nil {
		return nil, fmt.Errorf("cancel subscription %s: %w", stripeSubscriptionID, err)
	}

	s.mirror(profile.ID, mirror.PlanID, mirror.BillingCycle, sub)
	return sub, nil
}

// ensureCustomer returns the profile's provider customer ID, creating the
// customer on first use and persisting the link.
func (s *BillingService) ensureCustomer(ctx context.Context, profile *models.Profile) (string, error) {
	if profile.StripeCustomerID.Valid && profile.StripeCustomerID.String != "" {
		return profile.StripeCustomerID.String, nil
	}

	cust, err := s.gateway.CreateCustomer(ctx, profile.Email, profile.CompanyName, map[string]string{
		"profile_id": strconv.Itoa(profile.ID),
	})
	if err != nil {
		return "", fmt.Errorf("create customer: %w", err)
	}
	if err := s.profiles.SetStripeCustomerID(profile.ID, cust.ID); err != nil {
		return "", err
	}
	profile.StripeCustomerID = sql.NullString{String: cust.ID, Valid: true}
	return cust.ID, nil
}

// checkOwnership verifies the mirror row for a subscription belongs to the
// profile.
func (s *BillingService) checkOwnership(profile *models.Profile, stripeSubscriptionID string) error {
	mirror, err := s.subs.GetByStripeID(stripeSubscriptionID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return utils.ErrSubscriptionNotFound
		}
		return err
	}
	if mirror.ProfileID != profile.ID {
		return utils.ErrSubscriptionNotFound
	}
	return nil
}

// mirror writes provider-reported subscription state into the local store.
// Mirror failures are logged, not surfaced: the provider call already
// succeeded and the webhook stream will converge the mirror.
func (s *BillingService) mirror(profileID int, planID, billingCycle string, sub *stripegw.Subscription) {
	row := &models.Subscription{
		ProfileID:            profileID,
		StripeSubscriptionID: sub.ID,
		PlanID:               planID,
		BillingCycle:         billingCycle,
		Status:               sub.Status,
		CurrentPeriodEnd:     time.Unix(sub.CurrentPeriodEnd, 0).UTC(),
		CancelAtPeriodEnd:    sub.CancelAtPeriodEnd,
	}
	if err := s.subs.Upsert(row); err != nil {
		log.Error().Err(err).Str("subscription", sub.ID).Msg("failed to mirror subscription state")
	}

	active := sub.Status == models.SubscriptionStatusActive || sub.Status == models.SubscriptionStatusTrialing
	if err := s.profiles.UpdateBillingState(profileID, planID, sub.Status, active); err != nil {
		log.Error().Err(err).Int("profile_id", profileID).Msg("failed to mirror billing state onto profile")
	}
}
