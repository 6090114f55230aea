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

const (
	tmdbBaseURL      = "https://api.themoviedb.org/3"
	tmdbImageBaseURL = "https://image.tmdb.org/t/p"
)

// TMDBClient is the primary metadata adapter. It covers the movie lists
// (popular/trending/top_rated/now_playing/upcoming), the TV lists
// (popular/top_rated/trending), discover-by-genre, search, and the
// per-title detail endpoint with appended sub-resources.
//
// Every listing call goes through the response cache first; the raw
// provider payload is cached, never the mapped records.
type TMDBClient struct {
	apiKey     string
	language   string
	baseURL    string
	httpClient *http.Client
	cache      *cache.ResponseCache
	genres     *GenreResolver
	streamable bool
	log        *slog.Logger
}

// NewTMDBClient creates the TMDB adapter. streamable marks whether any
// embed source is enabled, which decides HasStreaming on mapped records.
func NewTMDBClient(apiKey, language string, rc *cache.ResponseCache, genres *GenreResolver, streamable bool) *TMDBClient {
	return &TMDBClient{
		apiKey:     apiKey,
		language:   language,
		baseURL:    tmdbBaseURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		cache:      rc,
		genres:     genres,
		streamable: streamable,
		log:        slog.Default().With("component", "tmdb"),
	}
}

type tmdbListEntry struct {
	ID            int     `json:"id"`
	Title         string  `json:"title"`
	Name          string  `json:"name"`
	OriginalTitle string  `json:"original_title"`
	OriginalName  string  `json:"original_name"`
	Overview      string  `json:"overview"`
	PosterPath    string  `json:"poster_path"`
	BackdropPath  string  `json:"backdrop_path"`
	ReleaseDate   string  `json:"release_date"`
	FirstAirDate  string  `json:"first_air_date"`
	VoteAverage   float64 `json:"vote_average"`
	Popularity    float64 `json:"popularity"`
	GenreIDs      []int   `json:"genre_ids"`
}

type tmdbListResponse struct {
	Page       int             `json:"page"`
	Results    []tmdbListEntry `json:"results"`
	TotalPages int             `json:"total_pages"`
}

func (c *TMDBClient) Name() string { return "tmdb" }

// FetchPage returns one 1-indexed page of the selected listing, mapped
// to canonical records. Without an API key it returns ErrNoAPIKey so the
// aggregation layer can fold the adapter to empty results.
func (c *TMDBClient) FetchPage(ctx context.Context, page int, opts PageOptions) ([]models.MediaItem, error) {
	if c.apiKey == "" {
		return nil, ErrNoAPIKey
	}

	mediaType := opts.Type
	if mediaType == "" {
		mediaType = models.MediaTypeMovie
	}

	endpoint, params := c.listEndpoint(mediaType, opts)
	params.Set("page", strconv.Itoa(page))

	key := cache.Key("tmdb", string(mediaType), opts.List, opts.Query,
		strconv.Itoa(opts.GenreID), strconv.Itoa(page))

	var payload tmdbListResponse
	if !c.cache.Get(key, &payload) {
		data, err := c.makeRequest(ctx, endpoint, params)
		if err != nil {
			return nil, err
		}
		if err := json.Unmarshal(data, &payload); err != nil {
			return nil, fmt.Errorf("failed to unmarshal tmdb list: %w", err)
		}
		c.cache.Set(key, payload)
	}

	// Genre ids in list responses need the taxonomy; wait for it here
	// rather than racing the background init.
	c.genres.EnsureInitialized(ctx)

	items := make([]models.MediaItem, 0, len(payload.Results))
	for _, entry := range payload.Results {
		if item, ok := c.mapListEntry(entry, mediaType); ok {
			items = append(items, item)
		}
	}
	return items, nil
}

// listEndpoint translates PageOptions into the provider path. Unknown
// list names fall back to popular.
func (c *TMDBClient) listEndpoint(mediaType models.MediaType, opts PageOptions) (string, url.Values) {
	params := url.Values{}
	params.Set("language", c.language)

	kind := "movie"
	if mediaType == models.MediaTypeTV {
		kind = "tv"
	}

	switch {
	case opts.Query != "":
		params.Set("query", opts.Query)
		return fmt.Sprintf("/search/%s", kind), params
	case opts.GenreID != 0:
		params.Set("with_genres", strconv.Itoa(opts.GenreID))
		params.Set("sort_by", "popularity.desc")
		return fmt.Sprintf("/discover/%s", kind), params
	case opts.List == "trending":
		return fmt.Sprintf("/trending/%s/week", kind), params
	case opts.List == "top_rated":
		return fmt.Sprintf("/%s/top_rated", kind), params
	case opts.List == "now_playing" && kind == "movie":
		return "/movie/now_playing", params
	case opts.List == "upcoming" && kind == "movie":
		return "/movie/upcoming", params
	default:
		return fmt.Sprintf("/%s/popular", kind), params
	}
}

func (c *TMDBClient) mapListEntry(entry tmdbListEntry, mediaType models.MediaType) (models.MediaItem, bool) {
	title := entry.Title
	if title == "" {
		title = entry.Name
	}
	// Records without a title or poster are dropped before they reach
	// the deduplicator.
	if title == "" || entry.PosterPath == "" {
		return models.MediaItem{}, false
	}

	originalTitle := entry.OriginalTitle
	if originalTitle == "" {
		originalTitle = entry.OriginalName
	}
	releaseDate := entry.ReleaseDate
	if releaseDate == "" {
		releaseDate = entry.FirstAirDate
	}

	genreKind := "movie"
	if mediaType == models.MediaTypeTV {
		genreKind = "tv"
	}

	return models.MediaItem{
		ID:            models.MediaID("tmdb", mediaType, entry.ID),
		Title:         title,
		OriginalTitle: originalTitle,
		Type:          mediaType,
		Source:        "tmdb",
		Year:          models.YearFromDate(releaseDate),
		ReleaseDate:   releaseDate,
		Overview:      entry.Overview,
		PosterURL:     c.imageURL(entry.PosterPath, "w500"),
		BackdropURL:   c.imageURL(entry.BackdropPath, "original"),
		Rating:        entry.VoteAverage,
		Popularity:    entry.Popularity,
		Genres:        c.genres.GenreNames(entry.GenreIDs, genreKind),
		HasStreaming:  c.streamable,
		Extra:         models.Extra{"tmdb_id": entry.ID},
	}, true
}

// GetDetails fetches a single title with appended credits, external ids
// and videos, mapped into one canonical record.
func (c *TMDBClient) GetDetails(ctx context.Context, mediaType models.MediaType, tmdbID int) (*models.MediaItem, error) {
	if c.apiKey == "" {
		return nil, ErrNoAPIKey
	}

	kind := "movie"
	if mediaType == models.MediaTypeTV {
		kind = "tv"
	}

	key := cache.Key("tmdb", "details", kind, strconv.Itoa(tmdbID))

	var payload tmdbDetails
	if !c.cache.Get(key, &payload) {
		params := url.Values{}
		params.Set("language", c.language)
		params.Set("append_to_response", "credits,external_ids,videos")

		data, err := c.makeRequest(ctx, fmt.Sprintf("/%s/%d", kind, tmdbID), params)
		if err != nil {
			return nil, err
		}
		if err := json.Unmarshal(data, &payload); err != nil {
			return nil, fmt.Errorf("failed to unmarshal tmdb details: %w", err)
		}
		c.cache.Set(key, payload)
	}

	item := c.mapDetails(payload, mediaType)
	return &item, nil
}

type tmdbDetails struct {
	tmdbListEntry
	Runtime          int    `json:"runtime"`
	IMDbID           string `json:"imdb_id"`
	NumberOfSeasons  int    `json:"number_of_seasons"`
	NumberOfEpisodes int    `json:"number_of_episodes"`
	Genres           []struct {
		ID   int    `json:"id"`
		Name string `json:"name"`
	} `json:"genres"`
	ExternalIDs struct {
		IMDbID string `json:"imdb_id"`
		TVDBID int    `json:"tvdb_id"`
	} `json:"external_ids"`
	Credits struct {
		Cast []struct {
			Name      string `json:"name"`
			Character string `json:"character"`
		} `json:"cast"`
	} `json:"credits"`
	Videos struct {
		Results []struct {
			Key  string `json:"key"`
			Site string `json:"site"`
			Type string `json:"type"`
		} `json:"results"`
	} `json:"videos"`
}

func (c *TMDBClient) mapDetails(d tmdbDetails, mediaType models.MediaType) models.MediaItem {
	title := d.Title
	if title == "" {
		title = d.Name
	}
	originalTitle := d.OriginalTitle
	if originalTitle == "" {
		originalTitle = d.OriginalName
	}
	releaseDate := d.ReleaseDate
	if releaseDate == "" {
		releaseDate = d.FirstAirDate
	}

	genres := make([]string, 0, len(d.Genres))
	for _, g := range d.Genres {
		genres = append(genres, g.Name)
	}

	imdbID := d.IMDbID
	if imdbID == "" {
		imdbID = d.ExternalIDs.IMDbID
	}

	extra := models.Extra{"tmdb_id": d.ID}
	if imdbID != "" {
		extra["imdb_id"] = imdbID
	}
	if d.Runtime > 0 {
		extra["runtime"] = d.Runtime
	}
	if mediaType == models.MediaTypeTV {
		extra["seasons"] = d.NumberOfSeasons
		extra["episodes"] = d.NumberOfEpisodes
	}
	if len(d.Credits.Cast) > 0 {
		limit := len(d.Credits.Cast)
		if limit > 8 {
			limit = 8
		}
		cast := make([]string, 0, limit)
		for _, member := range d.Credits.Cast[:limit] {
			cast = append(cast, member.Name)
		}
		extra["cast"] = cast
	}
	for _, v := range d.Videos.Results {
		if v.Site == "YouTube" && v.Type == "Trailer" {
			extra["trailer"] = "https://www.youtube.com/watch?v=" + v.Key
			break
		}
	}

	return models.MediaItem{
		ID:            models.MediaID("tmdb", mediaType, d.ID),
		Title:         title,
		OriginalTitle: originalTitle,
		Type:          mediaType,
		Source:        "tmdb",
		Year:          models.YearFromDate(releaseDate),
		ReleaseDate:   releaseDate,
		Overview:      d.Overview,
		PosterURL:     c.imageURL(d.PosterPath, "w500"),
		BackdropURL:   c.imageURL(d.BackdropPath, "original"),
		Rating:        d.VoteAverage,
		Popularity:    d.Popularity,
		Genres:        genres,
		HasStreaming:  c.streamable,
		Extra:         extra,
	}
}

// EpisodeInfo is one episode from a TMDB season sub-resource.
type EpisodeInfo struct {
	SeasonNumber  int     `json:"season_number"`
	EpisodeNumber int     `json:"episode_number"`
	Name          string  `json:"name"`
	Overview      string  `json:"overview"`
	AirDate       string  `json:"air_date"`
	StillURL      string  `json:"still_url,omitempty"`
	Runtime       int     `json:"runtime,omitempty"`
	Rating        float64 `json:"rating,omitempty"`
}

// SeasonEpisodes fetches the episode list for one season of a TV show.
func (c *TMDBClient) SeasonEpisodes(ctx context.Context, tvID, season int) ([]EpisodeInfo, error) {
	if c.apiKey == "" {
		return nil, ErrNoAPIKey
	}

	key := cache.Key("tmdb", "season", strconv.Itoa(tvID), strconv.Itoa(season))

	var payload struct {
		Episodes []struct {
			SeasonNumber  int     `json:"season_number"`
			EpisodeNumber int     `json:"episode_number"`
			Name          string  `json:"name"`
			Overview      string  `json:"overview"`
			AirDate       string  `json:"air_date"`
			StillPath     string  `json:"still_path"`
			Runtime       int     `json:"runtime"`
			VoteAverage   float64 `json:"vote_average"`
		} `json:"episodes"`
	}
	if !c.cache.Get(key, &payload) {
		params := url.Values{}
		params.Set("language", c.language)

		data, err := c.makeRequest(ctx, fmt.Sprintf("/tv/%d/season/%d", tvID, season), params)
		if err != nil {
			return nil, err
		}
		if err := json.Unmarshal(data, &payload); err != nil {
			return nil, fmt.Errorf("failed to unmarshal season: %w", err)
		}
		c.cache.Set(key, payload)
	}

	episodes := make([]EpisodeInfo, 0, len(payload.Episodes))
	for _, ep := range payload.Episodes {
		episodes = append(episodes, EpisodeInfo{
			SeasonNumber:  ep.SeasonNumber,
			EpisodeNumber: ep.EpisodeNumber,
			Name:          ep.Name,
			Overview:      ep.Overview,
			AirDate:       ep.AirDate,
			StillURL:      c.imageURL(ep.StillPath, "w300"),
			Runtime:       ep.Runtime,
			Rating:        ep.VoteAverage,
		})
	}
	return episodes, nil
}

// makeRequest performs a single GET against the TMDB API.
func (c *TMDBClient) makeRequest(ctx context.Context, endpoint string, params url.Values) ([]byte, error) {
	params.Set("api_key", c.apiKey)

	u := c.baseURL + endpoint + "?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("tmdb request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("tmdb returned status %d for %s", resp.StatusCode, endpoint)
	}
	return data, nil
}

func (c *TMDBClient) imageURL(path, size string) string {
	if path == "" {
		return ""
	}
	return fmt.Sprintf("%s/%s%s", tmdbImageBaseURL, size, path)
}
