package worker

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/brightloom/billing_api/internal/service"
)

// CatalogRefreshWorker periodically forces a catalog refresh so the snapshot
// stays warm even when no reads arrive. A failed run is logged and left for
// the next tick.
type CatalogRefreshWorker struct {
	catalog  service.CatalogRefresher
	interval time.Duration
}

// NewCatalogRefreshWorker constructs a CatalogRefreshWorker.
func NewCatalogRefreshWorker(catalog service.CatalogRefresher, interval time.Duration) *CatalogRefreshWorker {
	return &CatalogRefreshWorker{
		catalog:  catalog,
		interval: interval,
	}
}

// Start begins the periodic refresh loop and listens for context cancellation.
func (w *CatalogRefreshWorker) Start(ctx context.Context) {
	log.Info().Dur("interval", w.interval).Msg("Starting catalog refresh worker")

	// Run immediately on start
	w.run(ctx)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			w.run(ctx)
		case <-ctx.Done():
			log.Info().Msg("Catalog refresh worker stopped")
			return
		}
	}
}

func (w *CatalogRefreshWorker) run(ctx context.Context) {
	start := time.Now()
	result, err := w.catalog.Refresh(ctx)
	if err != nil {
		log.Error().Err(err).Msg("Scheduled catalog refresh failed")
		return
	}

	log.Info().
		Int("plans", result.Plans).
		Int("prices", result.Prices).
		Dur("duration", time.Since(start)).
		Msg("Catalog refresh completed")
}
