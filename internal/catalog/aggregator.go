package catalog

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/sourcegraph/conc/pool"

	"cinefuse/internal/models"
	"cinefuse/internal/providers"
)

// Aggregator fetches many pages from many providers in bounded
// concurrent batches with an inter-batch pause. The batch size keeps
// in-flight calls per provider at 2-3, which stays under typical
// free-tier rate limits without a token bucket; the pause between
// batches is the courtesy delay stricter providers need.
type Aggregator struct {
	log *slog.Logger

	// sleep is swapped out by tests to observe batch boundaries.
	sleep func(ctx context.Context, d time.Duration)
}

// NewAggregator creates a bulk aggregator.
func NewAggregator() *Aggregator {
	return &Aggregator{
		log:   slog.Default().With("component", "aggregator"),
		sleep: sleepCtx,
	}
}

// BulkLoad fetches pages [startPage, startPage+pageCount-1] from every
// provider in order and concatenates the results: providers appear in
// list order, pages in ascending order within a provider. The output is
// raw; callers apply Merge.
//
// Any single page failure becomes an empty page - one provider timing
// out never takes down the aggregate result. A provider whose whole
// first batch fails for a missing API key is skipped outright.
func (a *Aggregator) BulkLoad(ctx context.Context, provs []providers.Provider, startPage, pageCount, batchSize int, delay time.Duration, opts providers.PageOptions) []models.MediaItem {
	if pageCount <= 0 || startPage <= 0 {
		return nil
	}
	if batchSize <= 0 {
		batchSize = 1
	}

	var all []models.MediaItem
	for _, prov := range provs {
		all = append(all, a.loadProvider(ctx, prov, startPage, pageCount, batchSize, delay, opts)...)
	}
	return all
}

func (a *Aggregator) loadProvider(ctx context.Context, prov providers.Provider, startPage, pageCount, batchSize int, delay time.Duration, opts providers.PageOptions) []models.MediaItem {
	lastPage := startPage + pageCount - 1

	var items []models.MediaItem
	for batchStart := startPage; batchStart <= lastPage; batchStart += batchSize {
		batchEnd := batchStart + batchSize - 1
		if batchEnd > lastPage {
			batchEnd = lastPage
		}

		pages := make([][]models.MediaItem, batchEnd-batchStart+1)
		noKey := make([]bool, len(pages))
		var mu sync.Mutex

		p := pool.New().WithMaxGoroutines(len(pages))
		for page := batchStart; page <= batchEnd; page++ {
			idx := page - batchStart
			page := page
			p.Go(func() {
				result, err := prov.FetchPage(ctx, page, opts)
				mu.Lock()
				defer mu.Unlock()
				if err != nil {
					// Degrade to an empty page; the aggregate result
					// must survive any single source failing.
					a.log.Warn("page fetch failed",
						"provider", prov.Name(), "page", page, "error", err)
					noKey[idx] = errors.Is(err, providers.ErrNoAPIKey)
					return
				}
				pages[idx] = result
			})
		}
		p.Wait()

		// Completion order is not guaranteed; reassemble in page order.
		allNoKey := true
		for idx, page := range pages {
			items = append(items, page...)
			if !noKey[idx] {
				allNoKey = false
			}
		}
		if allNoKey {
			a.log.Warn("provider skipped: api key not configured", "provider", prov.Name())
			return items
		}

		if batchEnd < lastPage && delay > 0 {
			a.sleep(ctx, delay)
		}
		if ctx.Err() != nil {
			return items
		}
	}
	return items
}

func sleepCtx(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
