package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"

	"github.com/brightloom/billing_api/internal/models"
	"github.com/brightloom/billing_api/internal/utils"
)

// DefaultCatalogTTL is the snapshot time-to-live used when none is configured.
const DefaultCatalogTTL = 5 * time.Minute

// CatalogGateway is the slice of the billing provider the catalog needs.
// Both calls must return only active (non-archived) entities.
type CatalogGateway interface {
	ListActiveProducts(ctx context.Context) ([]models.RawProduct, error)
	ListActivePrices(ctx context.Context) ([]models.RawPrice, error)
}

// RefreshResult summarizes a forced refresh for the operator endpoint.
type RefreshResult struct {
	Plans       int       `json:"plans"`
	Prices      int       `json:"prices"`
	RefreshedAt time.Time `json:"refreshedAt"`
}

// CatalogService owns the organized catalog snapshot. The snapshot is
// immutable once published and replaced wholesale by each successful refresh;
// readers always see either the previous complete snapshot or the new one.
// Concurrent callers that observe a stale or missing snapshot share a single
// in-flight refresh instead of each fetching independently.
type CatalogService struct {
	gateway CatalogGateway
	ttl     time.Duration

	mu       sync.RWMutex
	snapshot *models.CatalogSnapshot

	group singleflight.Group
}

// NewCatalogService constructs a CatalogService. A non-positive ttl falls
// back to DefaultCatalogTTL.
func NewCatalogService(gateway CatalogGateway, ttl time.Duration) *CatalogService {
	if ttl <= 0 {
		ttl = DefaultCatalogTTL
	}
	return &CatalogService{gateway: gateway, ttl: ttl}
}

// TTL returns the configured snapshot time-to-live.
func (s *CatalogService) TTL() time.Duration {
	return s.ttl
}

// Get returns the current snapshot. It refreshes synchronously first when
// force is true, when no snapshot exists yet, or when the snapshot has
// outlived the TTL. A failed refresh leaves the previous snapshot (if any)
// in place and surfaces the error; no retry is scheduled, the next stale
// read triggers the next attempt.
func (s *CatalogService) Get(ctx context.Context, force bool) (*models.CatalogSnapshot, error) {
	s.mu.RLock()
	snap := s.snapshot
	s.mu.RUnlock()

	if !force && snap != nil && snap.Age() <= s.ttl {
		return snap, nil
	}

	v, err, _ := s.group.Do("refresh", func() (interface{}, error) {
		return s.refresh(ctx)
	})
	if err != nil {
		return nil, err
	}
	return v.(*models.CatalogSnapshot), nil
}

// Refresh forces a fetch-and-replace regardless of snapshot age and reports
// the refreshed counts for the operator endpoint.
func (s *CatalogService) Refresh(ctx context.Context) (*RefreshResult, error) {
	snap, err := s.Get(ctx, true)
	if err != nil {
		return nil, err
	}
	priceCount := 0
	for _, prices := range snap.PriceIndex {
		priceCount += len(prices)
	}
	return &RefreshResult{
		Plans:       len(snap.Plans),
		Prices:      priceCount,
		RefreshedAt: snap.CreatedAt,
	}, nil
}

// FindPlan returns the plan with the given ID from the current snapshot,
// refreshing first if the snapshot is stale.
func (s *CatalogService) FindPlan(ctx context.Context, planID string) (*models.Plan, error) {
	snap, err := s.Get(ctx, false)
	if err != nil {
		return nil, err
	}
	for i := range snap.Plans {
		if snap.Plans[i].PlanID == planID {
			return &snap.Plans[i], nil
		}
	}
	return nil, utils.ErrPlanNotFound
}

// ValidatePrice resolves a (planId, billingCycle) pair to a provider price
// ID. An unknown plan or cycle is a normal negative result, never a failure:
// if the implicit refresh errors out, the lookup falls back to whatever
// snapshot is held, including none.
func (s *CatalogService) ValidatePrice(ctx context.Context, planID, billingCycle string) (string, error) {
	snap, err := s.Get(ctx, false)
	if err != nil {
		log.Warn().Err(err).Msg("catalog refresh failed during price validation, using held snapshot")
		s.mu.RLock()
		snap = s.snapshot
		s.mu.RUnlock()
	}
	if snap == nil {
		return "", utils.ErrPriceNotFound
	}
	prices, ok := snap.PriceIndex[planID]
	if !ok {
		return "", utils.ErrPriceNotFound
	}
	variant, ok := prices[billingCycle]
	if !ok {
		return "", utils.ErrPriceNotFound
	}
	return variant.PriceID, nil
}

// refresh fetches the raw catalog, organizes it, and atomically replaces the
// stored snapshot. Any error aborts the replacement.
func (s *CatalogService) refresh(ctx context.Context) (*models.CatalogSnapshot, error) {
	start := time.Now()

	products, err := s.gateway.ListActiveProducts(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch products: %w", err)
	}
	prices, err := s.gateway.ListActivePrices(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch prices: %w", err)
	}

	plans, index, err := OrganizeCatalog(products, prices)
	if err != nil {
		return nil, err
	}

	snap := &models.CatalogSnapshot{
		Plans:      plans,
		PriceIndex: index,
		CreatedAt:  time.Now(),
	}

	s.mu.Lock()
	s.snapshot = snap
	s.mu.Unlock()

	log.Debug().
		Int("plans", len(plans)).
		Dur("duration", time.Since(start)).
		Msg("catalog snapshot refreshed")

	return snap, nil
}
