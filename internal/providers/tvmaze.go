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
	"time"

	"cinefuse/internal/cache"
	"cinefuse/internal/models"
)

const tvmazeBaseURL = "https://api.tvmaze.com"

// TVMazeClient is the keyless TV listings adapter. The upstream show
// index is 0-indexed and signals "past the last page" with HTTP 404;
// both conventions are hidden here - callers pass 1-indexed pages and a
// 404 comes back as an ordinary empty page.
type TVMazeClient struct {
	baseURL    string
	httpClient *http.Client
	cache      *cache.ResponseCache
	log        *slog.Logger
}

// NewTVMazeClient creates the TVMaze adapter. No credential required.
func NewTVMazeClient(rc *cache.ResponseCache) *TVMazeClient {
	return &TVMazeClient{
		baseURL:    tvmazeBaseURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		cache:      rc,
		log:        slog.Default().With("component", "tvmaze"),
	}
}

type tvmazeShow struct {
	ID        int      `json:"id"`
	Name      string   `json:"name"`
	Premiered string   `json:"premiered"`
	Summary   string   `json:"summary"`
	Genres    []string `json:"genres"`
	Rating    struct {
		Average float64 `json:"average"`
	} `json:"rating"`
	Image *struct {
		Medium   string `json:"medium"`
		Original string `json:"original"`
	} `json:"image"`
	Externals struct {
		IMDb   string `json:"imdb"`
		TheTVD int    `json:"thetvdb"`
	} `json:"externals"`
	Weight int `json:"weight"`
}

func (c *TVMazeClient) Name() string { return "tvmaze" }

// FetchPage returns one 1-indexed page of the show index, or of search
// results when opts.Query is set.
func (c *TVMazeClient) FetchPage(ctx context.Context, page int, opts PageOptions) ([]models.MediaItem, error) {
	if opts.Query != "" {
		return c.search(ctx, opts.Query)
	}

	key := cache.Key("tvmaze", "index", strconv.Itoa(page))

	var shows []tvmazeShow
	if !c.cache.Get(key, &shows) {
		// TVMaze pages count from 0.
		params := url.Values{}
		params.Set("page", strconv.Itoa(page-1))

		data, status, err := c.makeRequest(ctx, "/shows", params)
		if err != nil {
			return nil, err
		}
		if status == http.StatusNotFound {
			// Expected end-of-results signal, not a failure.
			return nil, nil
		}
		if err := json.Unmarshal(data, &shows); err != nil {
			return nil, fmt.Errorf("failed to unmarshal tvmaze shows: %w", err)
		}
		c.cache.Set(key, shows)
	}

	return c.mapShows(shows), nil
}

// search queries the fuzzy show search; TVMaze search is not paginated.
func (c *TVMazeClient) search(ctx context.Context, query string) ([]models.MediaItem, error) {
	key := cache.Key("tvmaze", "search", query)

	var results []struct {
		Show tvmazeShow `json:"show"`
	}
	if !c.cache.Get(key, &results) {
		params := url.Values{}
		params.Set("q", query)

		data, status, err := c.makeRequest(ctx, "/search/shows", params)
		if err != nil {
			return nil, err
		}
		if status == http.StatusNotFound {
			return nil, nil
		}
		if err := json.Unmarshal(data, &results); err != nil {
			return nil, fmt.Errorf("failed to unmarshal tvmaze search: %w", err)
		}
		c.cache.Set(key, results)
	}

	shows := make([]tvmazeShow, 0, len(results))
	for _, r := range results {
		shows = append(shows, r.Show)
	}
	return c.mapShows(shows), nil
}

func (c *TVMazeClient) mapShows(shows []tvmazeShow) []models.MediaItem {
	items := make([]models.MediaItem, 0, len(shows))
	for _, show := range shows {
		if show.Name == "" {
			continue
		}

		poster := ""
		if show.Image != nil {
			poster = show.Image.Original
			if poster == "" {
				poster = show.Image.Medium
			}
		}

		extra := models.Extra{"tvmaze_id": show.ID}
		if show.Externals.IMDb != "" {
			extra["imdb_id"] = show.Externals.IMDb
		}
		if show.Externals.TheTVD > 0 {
			extra["tvdb_id"] = show.Externals.TheTVD
		}

		items = append(items, models.MediaItem{
			ID:          models.MediaID("tvmaze", models.MediaTypeTV, show.ID),
			Title:       show.Name,
			Type:        models.MediaTypeTV,
			Source:      "tvmaze",
			Year:        models.YearFromDate(show.Premiered),
			ReleaseDate: show.Premiered,
			Overview:    stripTags(show.Summary),
			PosterURL:   poster,
			Rating:      show.Rating.Average,
			Popularity:  float64(show.Weight),
			Genres:      show.Genres,
			// The embed sources key off TMDB/AniList ids, which TVMaze
			// records do not carry.
			HasStreaming: false,
			Extra:        extra,
		})
	}
	return items
}

// makeRequest performs a single GET and reports the status code so the
// caller can treat 404 as an expected signal. Only 200 and 404 are
// non-errors.
func (c *TVMazeClient) makeRequest(ctx context.Context, endpoint string, params url.Values) ([]byte, int, error) {
	u := c.baseURL + endpoint + "?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("tvmaze request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, http.StatusNotFound, nil
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, resp.StatusCode, fmt.Errorf("tvmaze returned status %d for %s", resp.StatusCode, endpoint)
	}
	return data, resp.StatusCode, nil
}

// stripTags removes the simple HTML markup TVMaze embeds in summaries.
func stripTags(s string) string {
	out := make([]rune, 0, len(s))
	inTag := false
	for _, r := range s {
		switch {
		case r == '<':
			inTag = true
		case r == '>':
			inTag = false
		case !inTag:
			out = append(out, r)
		}
	}
	return string(out)
}
