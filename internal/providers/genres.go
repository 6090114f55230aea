package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/avast/retry-go/v4"
)

// GenreResolver holds the TMDB genre taxonomies (id -> name) for movies
// and TV. It is initialized once, lazily; callers that need genres before
// the background init has finished call EnsureInitialized themselves
// rather than racing it. Without an API key the maps stay empty and
// lookups fall back to a placeholder.
type GenreResolver struct {
	apiKey     string
	language   string
	baseURL    string
	httpClient *http.Client
	log        *slog.Logger

	once  sync.Once
	mu    sync.RWMutex
	movie map[int]string
	tv    map[int]string
}

// NewGenreResolver creates a resolver against the TMDB genre endpoints.
func NewGenreResolver(apiKey, language string) *GenreResolver {
	return &GenreResolver{
		apiKey:     apiKey,
		language:   language,
		baseURL:    tmdbBaseURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		log:        slog.Default().With("component", "genres"),
		movie:      make(map[int]string),
		tv:         make(map[int]string),
	}
}

// EnsureInitialized fetches both taxonomies exactly once. Idempotent and
// safe to call from any goroutine; later callers block until the first
// attempt completes. Fetch failures leave the maps empty, which degrades
// lookups to placeholders instead of failing adapters.
func (g *GenreResolver) EnsureInitialized(ctx context.Context) {
	g.once.Do(func() {
		if g.apiKey == "" {
			g.log.Warn("TMDB API key not configured, genre names unavailable")
			return
		}
		for _, kind := range []string{"movie", "tv"} {
			m, err := g.fetchTaxonomy(ctx, kind)
			if err != nil {
				g.log.Warn("failed to load genre taxonomy", "kind", kind, "error", err)
				continue
			}
			g.mu.Lock()
			if kind == "movie" {
				g.movie = m
			} else {
				g.tv = m
			}
			g.mu.Unlock()
			g.log.Info("loaded genre taxonomy", "kind", kind, "genres", len(m))
		}
	})
}

// fetchTaxonomy retries transient failures; this runs once per process
// so a few extra attempts are cheap and keep the maps from staying
// empty after a blip at startup.
func (g *GenreResolver) fetchTaxonomy(ctx context.Context, kind string) (map[int]string, error) {
	var payload struct {
		Genres []struct {
			ID   int    `json:"id"`
			Name string `json:"name"`
		} `json:"genres"`
	}

	err := retry.Do(
		func() error {
			endpoint := fmt.Sprintf("%s/genre/%s/list", g.baseURL, kind)
			params := url.Values{}
			params.Set("api_key", g.apiKey)
			params.Set("language", g.language)

			req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint+"?"+params.Encode(), nil)
			if err != nil {
				return err
			}
			resp, err := g.httpClient.Do(req)
			if err != nil {
				return err
			}
			defer resp.Body.Close()
			if resp.StatusCode != http.StatusOK {
				return fmt.Errorf("genre list returned status %d", resp.StatusCode)
			}
			body, err := io.ReadAll(resp.Body)
			if err != nil {
				return err
			}
			return json.Unmarshal(body, &payload)
		},
		retry.Attempts(3),
		retry.Delay(500*time.Millisecond),
		retry.Context(ctx),
		retry.LastErrorOnly(true),
	)
	if err != nil {
		return nil, err
	}

	m := make(map[int]string, len(payload.Genres))
	for _, genre := range payload.Genres {
		m[genre.ID] = genre.Name
	}
	return m, nil
}

// MovieGenre returns the display name for a movie genre id, or a
// "Genre {id}" placeholder when the taxonomy is unavailable.
func (g *GenreResolver) MovieGenre(id int) string {
	g.mu.RLock()
	name, ok := g.movie[id]
	g.mu.RUnlock()
	if !ok {
		return fmt.Sprintf("Genre %d", id)
	}
	return name
}

// TVGenre returns the display name for a TV genre id, with the same
// placeholder fallback as MovieGenre.
func (g *GenreResolver) TVGenre(id int) string {
	g.mu.RLock()
	name, ok := g.tv[id]
	g.mu.RUnlock()
	if !ok {
		return fmt.Sprintf("Genre %d", id)
	}
	return name
}

// GenreNames maps a list response's numeric genre ids to names.
func (g *GenreResolver) GenreNames(ids []int, kind string) []string {
	if len(ids) == 0 {
		return nil
	}
	names := make([]string, 0, len(ids))
	for _, id := range ids {
		if kind == "tv" {
			names = append(names, g.TVGenre(id))
		} else {
			names = append(names, g.MovieGenre(id))
		}
	}
	return names
}
