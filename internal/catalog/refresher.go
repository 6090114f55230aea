package catalog

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"cinefuse/internal/models"
	"cinefuse/internal/providers"
)

// RefreshGroup is one set of providers bulk-loaded with a shared
// inter-batch delay. Groups exist because providers tolerate different
// request rates: TMDB is fine with ~100ms between batches, the free
// anime and TV providers want 150-200ms.
type RefreshGroup struct {
	Providers []providers.Provider
	Opts      providers.PageOptions
	Delay     time.Duration
}

// Refresher periodically rebuilds the deduplicated catalog snapshot in
// the background and serves it from memory.
type Refresher struct {
	agg       *Aggregator
	groups    []RefreshGroup
	pageCount int
	batchSize int
	interval  time.Duration
	log       *slog.Logger
	stopChan  chan struct{}

	mu       sync.RWMutex
	snapshot []models.MediaItem
}

// NewRefresher creates a catalog refresher over the given groups.
func NewRefresher(agg *Aggregator, groups []RefreshGroup, pageCount, batchSize int, interval time.Duration) *Refresher {
	return &Refresher{
		agg:       agg,
		groups:    groups,
		pageCount: pageCount,
		batchSize: batchSize,
		interval:  interval,
		log:       slog.Default().With("component", "refresher"),
		stopChan:  make(chan struct{}),
	}
}

// Start refreshes once immediately, then on every tick until the
// context is cancelled or Stop is called. Run it in its own goroutine.
func (r *Refresher) Start(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.log.Info("catalog refresher started", "interval", r.interval.String())
	r.Refresh(ctx)

	for {
		select {
		case <-ctx.Done():
			r.log.Info("catalog refresher stopped")
			return
		case <-r.stopChan:
			r.log.Info("catalog refresher stopped")
			return
		case <-ticker.C:
			r.Refresh(ctx)
		}
	}
}

// Stop ends the refresh loop.
func (r *Refresher) Stop() {
	close(r.stopChan)
}

// Refresh runs one full bulk aggregation pass and swaps the snapshot.
func (r *Refresher) Refresh(ctx context.Context) {
	start := time.Now()

	var raw []models.MediaItem
	for _, group := range r.groups {
		raw = append(raw, r.agg.BulkLoad(ctx, group.Providers, 1, r.pageCount, r.batchSize, group.Delay, group.Opts)...)
	}
	merged := Merge(raw)

	r.mu.Lock()
	r.snapshot = merged
	r.mu.Unlock()

	r.log.Info("catalog refreshed",
		"raw_items", len(raw),
		"unique_items", len(merged),
		"duration", time.Since(start).String())
}

// Catalog returns the current snapshot. Callers must not modify it.
func (r *Refresher) Catalog() []models.MediaItem {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.snapshot
}
