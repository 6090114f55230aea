package catalog

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"cinefuse/internal/models"
	"cinefuse/internal/providers"
)

type fakeProvider struct {
	name string
	err  error

	mu      sync.Mutex
	batches [][]int // pages grouped by observed batch
	current []int
}

func (f *fakeProvider) Name() string { return f.name }

func (f *fakeProvider) FetchPage(ctx context.Context, page int, opts providers.PageOptions) ([]models.MediaItem, error) {
	f.mu.Lock()
	f.current = append(f.current, page)
	f.mu.Unlock()

	if f.err != nil {
		return nil, f.err
	}
	return []models.MediaItem{{
		ID:    fmt.Sprintf("%s_movie_%d", f.name, page),
		Title: fmt.Sprintf("%s page %d", f.name, page),
		Year:  fmt.Sprintf("%04d", 2000+page),
	}}, nil
}

// endBatch snapshots pages seen since the last batch boundary.
func (f *fakeProvider) endBatch() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.current) > 0 {
		f.batches = append(f.batches, f.current)
		f.current = nil
	}
}

func newTestAggregator(onSleep func()) *Aggregator {
	agg := NewAggregator()
	agg.sleep = func(ctx context.Context, d time.Duration) {
		if onSleep != nil {
			onSleep()
		}
	}
	return agg
}

func TestBulkLoadBatchShape(t *testing.T) {
	prov := &fakeProvider{name: "tmdb"}

	sleeps := 0
	agg := newTestAggregator(func() {
		prov.endBatch()
		sleeps++
	})

	items := agg.BulkLoad(context.Background(), []providers.Provider{prov},
		1, 5, 2, 100*time.Millisecond, providers.PageOptions{})
	prov.endBatch()

	// Pages [1,2], [3,4], [5]: three batches, delays only between them.
	if sleeps != 2 {
		t.Fatalf("expected 2 inter-batch waits, got %d", sleeps)
	}
	if len(prov.batches) != 3 {
		t.Fatalf("expected 3 batches, got %d: %v", len(prov.batches), prov.batches)
	}
	if len(prov.batches[0]) != 2 || len(prov.batches[1]) != 2 || len(prov.batches[2]) != 1 {
		t.Fatalf("unexpected batch sizes: %v", prov.batches)
	}

	// Results are reassembled page-ascending regardless of completion order.
	if len(items) != 5 {
		t.Fatalf("expected 5 items, got %d", len(items))
	}
	for i, item := range items {
		want := fmt.Sprintf("tmdb_movie_%d", i+1)
		if item.ID != want {
			t.Fatalf("item %d out of order: got %s, want %s", i, item.ID, want)
		}
	}
}

func TestBulkLoadProviderOrderPreserved(t *testing.T) {
	a := &fakeProvider{name: "alpha"}
	b := &fakeProvider{name: "beta"}
	agg := newTestAggregator(nil)

	items := agg.BulkLoad(context.Background(), []providers.Provider{a, b},
		1, 2, 2, 0, providers.PageOptions{})

	if len(items) != 4 {
		t.Fatalf("expected 4 items, got %d", len(items))
	}
	for i, want := range []string{"alpha_movie_1", "alpha_movie_2", "beta_movie_1", "beta_movie_2"} {
		if items[i].ID != want {
			t.Fatalf("item %d: got %s, want %s", i, items[i].ID, want)
		}
	}
}

func TestBulkLoadOneProviderFailingDoesNotAbort(t *testing.T) {
	broken := &fakeProvider{name: "broken", err: errors.New("connection timed out")}
	healthy := &fakeProvider{name: "healthy"}
	agg := newTestAggregator(nil)

	items := agg.BulkLoad(context.Background(), []providers.Provider{broken, healthy},
		1, 3, 2, 0, providers.PageOptions{})

	if len(items) != 3 {
		t.Fatalf("expected only the healthy provider's 3 items, got %d", len(items))
	}
	for _, item := range items {
		if item.Source == "broken" {
			t.Fatalf("failing provider leaked a record: %+v", item)
		}
	}
}

func TestBulkLoadSkipsProviderWithoutAPIKey(t *testing.T) {
	gated := &fakeProvider{name: "gated", err: providers.ErrNoAPIKey}

	sleeps := 0
	agg := newTestAggregator(func() { sleeps++ })

	items := agg.BulkLoad(context.Background(), []providers.Provider{gated},
		1, 10, 2, 50*time.Millisecond, providers.PageOptions{})

	if len(items) != 0 {
		t.Fatalf("expected no items, got %d", len(items))
	}
	// The provider is dropped after its first batch; no point pacing
	// requests that will never be made.
	if sleeps != 0 {
		t.Fatalf("expected no inter-batch waits for a skipped provider, got %d", sleeps)
	}
	gated.endBatch()
	if len(gated.batches) != 1 || len(gated.batches[0]) != 2 {
		t.Fatalf("expected exactly one probing batch, got %v", gated.batches)
	}
}

func TestBulkLoadZeroPages(t *testing.T) {
	prov := &fakeProvider{name: "tmdb"}
	agg := newTestAggregator(nil)
	if items := agg.BulkLoad(context.Background(), []providers.Provider{prov},
		1, 0, 2, 0, providers.PageOptions{}); items != nil {
		t.Fatalf("expected nil for zero pages, got %v", items)
	}
}
