package providers

import (
	"context"
	"errors"

	"cinefuse/internal/models"
)

// Sentinel conditions surfaced by adapters. The aggregation layer folds
// both into empty pages; the API layer maps ErrNoCrossReference to a
// distinct "not yet resolvable" response.
var (
	// ErrNoAPIKey is returned by credential-gated adapters when the key
	// is not configured. A configuration condition, not a runtime fault.
	ErrNoAPIKey = errors.New("api key not configured")

	// ErrNoCrossReference is returned when a record needs a secondary
	// cross-reference id (e.g. an anime's AniList id) that the upstream
	// does not expose for it.
	ErrNoCrossReference = errors.New("no cross-reference id available")
)

// PageOptions selects what a FetchPage call enumerates. Zero value means
// the provider's default listing.
type PageOptions struct {
	List    string           // popular, trending, top_rated, now_playing, upcoming
	Type    models.MediaType // movie or tv, where the provider distinguishes
	Query   string           // non-empty switches to search
	GenreID int              // non-zero switches to discover-by-genre (TMDB)
}

// Provider enumerates one upstream source page by page. Pages are always
// 1-indexed for callers; adapters hide provider-native conventions
// (TVMaze counts from 0, Jikan serves fixed 25-item pages, ...).
//
// FetchPage returns an error instead of raising-and-swallowing so the
// degrade-on-failure policy lives visibly in the caller's fold.
type Provider interface {
	Name() string
	FetchPage(ctx context.Context, page int, opts PageOptions) ([]models.MediaItem, error)
}
