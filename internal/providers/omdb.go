package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"cinefuse/internal/cache"
	"cinefuse/internal/models"
)

const omdbBaseURL = "https://www.omdbapi.com"

// OMDBClient is the ratings/enrichment adapter. It does not enumerate a
// catalog; it looks up a single title (by IMDb id when the record
// carries one, else by title+year) and fills in fields the original
// provider left thin. The free tier allows 1,000 requests/day, so every
// lookup is cached for the full TTL.
type OMDBClient struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	cache      *cache.ResponseCache
	log        *slog.Logger
}

// NewOMDBClient creates the OMDb enrichment client. Without a key,
// Enrich is a no-op.
func NewOMDBClient(apiKey string, rc *cache.ResponseCache) *OMDBClient {
	return &OMDBClient{
		apiKey:     apiKey,
		baseURL:    omdbBaseURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		cache:      rc,
		log:        slog.Default().With("component", "omdb"),
	}
}

type omdbResponse struct {
	Title      string `json:"Title"`
	Year       string `json:"Year"`
	Rated      string `json:"Rated"`
	Runtime    string `json:"Runtime"`
	Genre      string `json:"Genre"`
	Plot       string `json:"Plot"`
	Poster     string `json:"Poster"`
	IMDbRating string `json:"imdbRating"`
	IMDbID     string `json:"imdbID"`
	Awards     string `json:"Awards"`
	Response   string `json:"Response"`
	Error      string `json:"Error"`
}

// Enrich returns a copy of item with fields upgraded from OMDb where
// OMDb's data is better: a longer plot, a rating where none was set, a
// poster where none was set. It returns the input unchanged when no key
// is configured, the title is not found, or the lookup fails.
func (c *OMDBClient) Enrich(ctx context.Context, item models.MediaItem) models.MediaItem {
	if c.apiKey == "" {
		return item
	}

	imdbID := item.ExtraString("imdb_id")
	if imdbID == "" && item.Title == "" {
		return item
	}

	resp, err := c.lookup(ctx, imdbID, item.Title, item.Year)
	if err != nil {
		c.log.Warn("enrichment lookup failed", "title", item.Title, "error", err)
		return item
	}
	if resp == nil || resp.Response != "True" {
		return item
	}

	if len(resp.Plot) > len(item.Overview) && resp.Plot != "N/A" {
		item.Overview = resp.Plot
	}
	if item.Rating == 0 && resp.IMDbRating != "" && resp.IMDbRating != "N/A" {
		if rating, err := strconv.ParseFloat(resp.IMDbRating, 64); err == nil {
			item.Rating = rating
		}
	}
	if item.PosterURL == "" && resp.Poster != "" && resp.Poster != "N/A" {
		item.PosterURL = resp.Poster
	}
	if len(item.Genres) == 0 && resp.Genre != "" && resp.Genre != "N/A" {
		for _, g := range strings.Split(resp.Genre, ",") {
			if g = strings.TrimSpace(g); g != "" {
				item.Genres = append(item.Genres, g)
			}
		}
	}
	if resp.IMDbID != "" && item.ExtraString("imdb_id") == "" {
		if item.Extra == nil {
			item.Extra = models.Extra{}
		}
		item.Extra["imdb_id"] = resp.IMDbID
	}
	if resp.Rated != "" && resp.Rated != "N/A" {
		if item.Extra == nil {
			item.Extra = models.Extra{}
		}
		item.Extra["rated"] = resp.Rated
	}

	return item
}

func (c *OMDBClient) lookup(ctx context.Context, imdbID, title, year string) (*omdbResponse, error) {
	params := url.Values{}
	params.Set("apikey", c.apiKey)
	params.Set("plot", "full")
	if imdbID != "" {
		params.Set("i", imdbID)
	} else {
		params.Set("t", title)
		if year != "" {
			params.Set("y", year)
		}
	}

	key := cache.Key("omdb", imdbID, title, year)

	var payload omdbResponse
	if c.cache.Get(key, &payload) {
		return &payload, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("omdb request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("omdb returned status %d", resp.StatusCode)
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("failed to unmarshal omdb response: %w", err)
	}

	// "not found" answers are cached too; the 1,000/day budget is the
	// scarce resource here, not disk.
	c.cache.Set(key, payload)
	return &payload, nil
}
