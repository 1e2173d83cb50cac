package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	stripe "github.com/stripe/stripe-go/v82"

	"github.com/brightloom/billing_api/internal/models"
)

type fakeRefresher struct {
	calls int
	err   error
}

func (f *fakeRefresher) Refresh(ctx context.Context) (*RefreshResult, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return &RefreshResult{Plans: 1, Prices: 1, RefreshedAt: time.Now()}, nil
}

type fakeDeduper struct {
	seen      map[string]bool
	forgotten []string
	err       error
}

func newFakeDeduper() *fakeDeduper {
	return &fakeDeduper{seen: map[string]bool{}}
}

func (f *fakeDeduper) MarkProcessed(ctx context.Context, eventID string) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	if f.seen[eventID] {
		return false, nil
	}
	f.seen[eventID] = true
	return true, nil
}

func (f *fakeDeduper) Forget(ctx context.Context, eventID string) error {
	f.forgotten = append(f.forgotten, eventID)
	delete(f.seen, eventID)
	return nil
}

type fakeWebhookProfiles struct {
	byCustomer map[string]*models.Profile
	updates    []string
}

func (f *fakeWebhookProfiles) GetByStripeCustomerID(customerID string) (*models.Profile, error) {
	if p, ok := f.byCustomer[customerID]; ok {
		return p, nil
	}
	return nil, sql.ErrNoRows
}

func (f *fakeWebhookProfiles) UpdateBillingState(id int, planID, status string, isActive bool) error {
	f.updates = append(f.updates, status)
	return nil
}

type fakeSubStore struct {
	rows      map[string]*models.Subscription
	upsertErr error
}

func newFakeSubStore() *fakeSubStore {
	return &fakeSubStore{rows: map[string]*models.Subscription{}}
}

func (f *fakeSubStore) Upsert(s *models.Subscription) error {
	if f.upsertErr != nil {
		return f.upsertErr
	}
	f.rows[s.StripeSubscriptionID] = s
	return nil
}

func (f *fakeSubStore) GetByStripeID(id string) (*models.Subscription, error) {
	if s, ok := f.rows[id]; ok {
		return s, nil
	}
	return nil, sql.ErrNoRows
}

func (f *fakeSubStore) ListByProfile(profileID int) ([]models.Subscription, error) {
	var out []models.Subscription
	for _, s := range f.rows {
		if s.ProfileID == profileID {
			out = append(out, *s)
		}
	}
	return out, nil
}

func event(id, eventType string, data interface{}) *stripe.Event {
	raw, _ := json.Marshal(data)
	return &stripe.Event{
		ID:   id,
		Type: stripe.EventType(eventType),
		Data: &stripe.EventData{Raw: raw},
	}
}

func subscriptionPayload(subID, customerID, status string, metadata map[string]string) map[string]interface{} {
	return map[string]interface{}{
		"id":                   subID,
		"customer":             customerID,
		"status":               status,
		"cancel_at_period_end": false,
		"metadata":             metadata,
		"items": map[string]interface{}{
			"data": []map[string]interface{}{
				{
					"current_period_end": 1767225600,
					"price": map[string]interface{}{
						"id":        "price_m",
						"recurring": map[string]interface{}{"interval": "month"},
					},
				},
			},
		},
	}
}

func TestIsCatalogEvent(t *testing.T) {
	for _, et := range []string{
		"product.created", "product.updated", "product.deleted",
		"price.created", "price.updated", "price.deleted",
	} {
		assert.True(t, IsCatalogEvent(et), et)
	}
	assert.False(t, IsCatalogEvent("invoice.paid"))
	assert.False(t, IsCatalogEvent("customer.subscription.updated"))
}

func TestWebhookCatalogEventsTriggerOneRefreshEach(t *testing.T) {
	refresher := &fakeRefresher{}
	svc := NewWebhookService(refresher, &fakeWebhookProfiles{}, newFakeSubStore(), nil)

	for i, et := range []string{"product.updated", "price.created", "product.deleted"} {
		err := svc.ProcessEvent(context.Background(), event("evt_"+string(rune('a'+i)), et, map[string]string{"id": "prod_x"}))
		require.NoError(t, err)
	}
	assert.Equal(t, 3, refresher.calls)
}

func TestWebhookCatalogRefreshFailureIsSwallowed(t *testing.T) {
	refresher := &fakeRefresher{err: errors.New("provider down")}
	svc := NewWebhookService(refresher, &fakeWebhookProfiles{}, newFakeSubStore(), nil)

	err := svc.ProcessEvent(context.Background(), event("evt_1", "product.updated", map[string]string{}))
	assert.NoError(t, err)
	assert.Equal(t, 1, refresher.calls)
}

func TestWebhookIrrelevantEventsIgnored(t *testing.T) {
	refresher := &fakeRefresher{}
	svc := NewWebhookService(refresher, &fakeWebhookProfiles{}, newFakeSubStore(), nil)

	err := svc.ProcessEvent(context.Background(), event("evt_1", "invoice.payment_succeeded", map[string]string{}))
	require.NoError(t, err)
	assert.Equal(t, 0, refresher.calls)
}

func TestWebhookDuplicateEventSkipped(t *testing.T) {
	refresher := &fakeRefresher{}
	dedup := newFakeDeduper()
	svc := NewWebhookService(refresher, &fakeWebhookProfiles{}, newFakeSubStore(), dedup)

	ev := event("evt_dup", "product.updated", map[string]string{})
	require.NoError(t, svc.ProcessEvent(context.Background(), ev))
	require.NoError(t, svc.ProcessEvent(context.Background(), ev))

	assert.Equal(t, 1, refresher.calls)
}

func TestWebhookDedupOutageProcessesAnyway(t *testing.T) {
	refresher := &fakeRefresher{}
	dedup := newFakeDeduper()
	dedup.err = errors.New("redis down")
	svc := NewWebhookService(refresher, &fakeWebhookProfiles{}, newFakeSubStore(), dedup)

	require.NoError(t, svc.ProcessEvent(context.Background(), event("evt_1", "product.updated", map[string]string{})))
	assert.Equal(t, 1, refresher.calls)
}

func TestWebhookFailedEventForgotten(t *testing.T) {
	profiles := &fakeWebhookProfiles{byCustomer: map[string]*models.Profile{
		"cus_1": {ID: 7, Email: "a@b.c"},
	}}
	subs := newFakeSubStore()
	subs.upsertErr = errors.New("db down")
	dedup := newFakeDeduper()
	svc := NewWebhookService(&fakeRefresher{}, profiles, subs, dedup)

	ev := event("evt_fail", "customer.subscription.updated",
		subscriptionPayload("sub_1", "cus_1", "active", map[string]string{"plan_id": "starter", "billing_cycle": "monthly"}))

	err := svc.ProcessEvent(context.Background(), ev)
	require.Error(t, err)
	// The dedup mark is released so the provider's redelivery retries.
	assert.Contains(t, dedup.forgotten, "evt_fail")

	subs.upsertErr = nil
	require.NoError(t, svc.ProcessEvent(context.Background(), ev))
	assert.Contains(t, subs.rows, "sub_1")
}

func TestWebhookSubscriptionUpdatedMirrorsState(t *testing.T) {
	profiles := &fakeWebhookProfiles{byCustomer: map[string]*models.Profile{
		"cus_1": {ID: 7, Email: "a@b.c"},
	}}
	subs := newFakeSubStore()
	svc := NewWebhookService(&fakeRefresher{}, profiles, subs, nil)

	ev := event("evt_1", "customer.subscription.updated",
		subscriptionPayload("sub_1", "cus_1", "active", map[string]string{"plan_id": "starter", "billing_cycle": "monthly"}))
	require.NoError(t, svc.ProcessEvent(context.Background(), ev))

	row := subs.rows["sub_1"]
	require.NotNil(t, row)
	assert.Equal(t, 7, row.ProfileID)
	assert.Equal(t, "starter", row.PlanID)
	assert.Equal(t, models.CycleMonthly, row.BillingCycle)
	assert.Equal(t, models.SubscriptionStatusActive, row.Status)
	assert.Equal(t, time.Unix(1767225600, 0).UTC(), row.CurrentPeriodEnd)
	assert.Equal(t, []string{"active"}, profiles.updates)
}

func TestWebhookSubscriptionDeletedMarksCanceled(t *testing.T) {
	profiles := &fakeWebhookProfiles{byCustomer: map[string]*models.Profile{
		"cus_1": {ID: 7},
	}}
	subs := newFakeSubStore()
	svc := NewWebhookService(&fakeRefresher{}, profiles, subs, nil)

	ev := event("evt_1", "customer.subscription.deleted",
		subscriptionPayload("sub_1", "cus_1", "canceled", map[string]string{"plan_id": "starter", "billing_cycle": "monthly"}))
	require.NoError(t, svc.ProcessEvent(context.Background(), ev))

	assert.Equal(t, models.SubscriptionStatusCanceled, subs.rows["sub_1"].Status)
	assert.Equal(t, []string{"canceled"}, profiles.updates)
}

func TestWebhookUnknownCustomerDropped(t *testing.T) {
	subs := newFakeSubStore()
	svc := NewWebhookService(&fakeRefresher{}, &fakeWebhookProfiles{}, subs, nil)

	ev := event("evt_1", "customer.subscription.updated",
		subscriptionPayload("sub_1", "cus_stranger", "active", nil))

	// Nothing to mirror and retrying cannot fix it, so no error surfaces.
	require.NoError(t, svc.ProcessEvent(context.Background(), ev))
	assert.Empty(t, subs.rows)
}

func TestWebhookMissingMetadataFallsBackToMirrorRow(t *testing.T) {
	profiles := &fakeWebhookProfiles{byCustomer: map[string]*models.Profile{
		"cus_1": {ID: 7},
	}}
	subs := newFakeSubStore()
	subs.rows["sub_1"] = &models.Subscription{
		ProfileID: 7, StripeSubscriptionID: "sub_1",
		PlanID: "starter", BillingCycle: models.CycleMonthly,
	}
	svc := NewWebhookService(&fakeRefresher{}, profiles, subs, nil)

	ev := event("evt_1", "customer.subscription.updated",
		subscriptionPayload("sub_1", "cus_1", "past_due", nil))
	require.NoError(t, svc.ProcessEvent(context.Background(), ev))

	row := subs.rows["sub_1"]
	assert.Equal(t, "starter", row.PlanID)
	assert.Equal(t, models.CycleMonthly, row.BillingCycle)
	assert.Equal(t, models.SubscriptionStatusPastDue, row.Status)
}

func TestWebhookMissingEverythingDerivesCycleFromInterval(t *testing.T) {
	profiles := &fakeWebhookProfiles{byCustomer: map[string]*models.Profile{
		"cus_1": {ID: 7},
	}}
	subs := newFakeSubStore()
	svc := NewWebhookService(&fakeRefresher{}, profiles, subs, nil)

	ev := event("evt_1", "customer.subscription.created",
		subscriptionPayload("sub_new", "cus_1", "active", nil))
	require.NoError(t, svc.ProcessEvent(context.Background(), ev))

	assert.Equal(t, models.CycleMonthly, subs.rows["sub_new"].BillingCycle)
}

func TestWebhookMalformedSubscriptionPayloadFails(t *testing.T) {
	svc := NewWebhookService(&fakeRefresher{}, &fakeWebhookProfiles{}, newFakeSubStore(), nil)

	ev := &stripe.Event{
		ID:   "evt_bad",
		Type: stripe.EventType("customer.subscription.updated"),
		Data: &stripe.EventData{Raw: json.RawMessage(`{"id": 42}`)},
	}
	assert.Error(t, svc.ProcessEvent(context.Background(), ev))
}

func TestCycleForInterval(t *testing.T) {
	assert.Equal(t, models.CycleOneTime, cycleForInterval(""))
	assert.Equal(t, models.CycleMonthly, cycleForInterval("month"))
	assert.Equal(t, models.CycleYearly, cycleForInterval("year"))
	assert.Equal(t, models.CycleYearly, cycleForInterval("week"))
}
