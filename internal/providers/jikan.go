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

const jikanBaseURL = "https://api.jikan.moe/v4"

// JikanClient is the keyless MyAnimeList adapter (top anime + search,
// fixed 25-item pages). Records carry their MAL id; the AniList id the
// streaming resolver needs is only exposed by the per-title full lookup,
// so it is resolved on demand via ResolveAniListID.
type JikanClient struct {
	baseURL    string
	httpClient *http.Client
	cache      *cache.ResponseCache
	log        *slog.Logger
}

// NewJikanClient creates the Jikan adapter. No credential required.
func NewJikanClient(rc *cache.ResponseCache) *JikanClient {
	return &JikanClient{
		baseURL:    jikanBaseURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		cache:      rc,
		log:        slog.Default().With("component", "jikan"),
	}
}

type jikanAnime struct {
	MalID  int `json:"mal_id"`
	Images struct {
		JPG struct {
			ImageURL      string `json:"image_url"`
			LargeImageURL string `json:"large_image_url"`
		} `json:"jpg"`
	} `json:"images"`
	Title         string  `json:"title"`
	TitleEnglish  string  `json:"title_english"`
	TitleJapanese string  `json:"title_japanese"`
	Episodes      int     `json:"episodes"`
	Score         float64 `json:"score"`
	Members       int     `json:"members"`
	Synopsis      string  `json:"synopsis"`
	Year          int     `json:"year"`
	Aired         struct {
		From string `json:"from"`
	} `json:"aired"`
	Genres []struct {
		Name string `json:"name"`
	} `json:"genres"`
	Studios []struct {
		Name string `json:"name"`
	} `json:"studios"`
}

func (c *JikanClient) Name() string { return "jikan" }

// FetchPage returns one page of top anime, or of search results when
// opts.Query is set. Pages are 1-indexed on both sides.
func (c *JikanClient) FetchPage(ctx context.Context, page int, opts PageOptions) ([]models.MediaItem, error) {
	endpoint := "/top/anime"
	params := url.Values{}
	if opts.Query != "" {
		endpoint = "/anime"
		params.Set("q", opts.Query)
	}
	params.Set("page", strconv.Itoa(page))

	key := cache.Key("jikan", opts.Query, strconv.Itoa(page))

	var payload struct {
		Data []jikanAnime `json:"data"`
	}
	if !c.cache.Get(key, &payload) {
		data, err := c.makeRequest(ctx, endpoint, params)
		if err != nil {
			return nil, err
		}
		if err := json.Unmarshal(data, &payload); err != nil {
			return nil, fmt.Errorf("failed to unmarshal jikan list: %w", err)
		}
		c.cache.Set(key, payload)
	}

	items := make([]models.MediaItem, 0, len(payload.Data))
	for _, anime := range payload.Data {
		if item, ok := c.mapAnime(anime); ok {
			items = append(items, item)
		}
	}
	return items, nil
}

func (c *JikanClient) mapAnime(a jikanAnime) (models.MediaItem, bool) {
	poster := a.Images.JPG.LargeImageURL
	if poster == "" {
		poster = a.Images.JPG.ImageURL
	}
	if a.Title == "" || poster == "" {
		return models.MediaItem{}, false
	}

	releaseDate := ""
	if len(a.Aired.From) >= 10 {
		releaseDate = a.Aired.From[:10]
	}
	year := models.YearFromDate(releaseDate)
	if a.Year > 0 {
		year = strconv.Itoa(a.Year)
	}

	genres := make([]string, 0, len(a.Genres))
	for _, g := range a.Genres {
		genres = append(genres, g.Name)
	}

	extra := models.Extra{"mal_id": a.MalID}
	if a.Episodes > 0 {
		extra["episodes"] = a.Episodes
	}
	if len(a.Studios) > 0 {
		extra["studio"] = a.Studios[0].Name
	}

	title := a.Title
	if a.TitleEnglish != "" {
		title = a.TitleEnglish
	}

	return models.MediaItem{
		ID:            models.MediaID("jikan", models.MediaTypeAnime, a.MalID),
		Title:         title,
		OriginalTitle: a.TitleJapanese,
		Type:          models.MediaTypeAnime,
		Source:        "jikan",
		Year:          year,
		ReleaseDate:   releaseDate,
		Overview:      a.Synopsis,
		PosterURL:     poster,
		Rating:        a.Score,
		Popularity:    float64(a.Members),
		Genres:        genres,
		// Streaming needs the AniList id, which only the full lookup
		// exposes; resolved on demand.
		HasStreaming: false,
		Extra:        extra,
	}, true
}

// ResolveAniListID looks up the AniList id for a MAL id via the full
// per-title endpoint's external links. Returns ErrNoCrossReference when
// the title has no AniList link; the route layer surfaces that as a
// distinct "not yet resolvable" condition.
func (c *JikanClient) ResolveAniListID(ctx context.Context, malID int) (int, error) {
	key := cache.Key("jikan", "anilist", strconv.Itoa(malID))

	var cached int
	if c.cache.Get(key, &cached) {
		if cached == 0 {
			return 0, ErrNoCrossReference
		}
		return cached, nil
	}

	data, err := c.makeRequest(ctx, fmt.Sprintf("/anime/%d/full", malID), url.Values{})
	if err != nil {
		return 0, err
	}

	var payload struct {
		Data struct {
			External []struct {
				Name string `json:"name"`
				URL  string `json:"url"`
			} `json:"external"`
		} `json:"data"`
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		return 0, fmt.Errorf("failed to unmarshal jikan full lookup: %w", err)
	}

	id := 0
	for _, link := range payload.Data.External {
		if strings.EqualFold(link.Name, "anilist") {
			id = parseAniListURL(link.URL)
			break
		}
	}

	// Negative results are cached too, so a title without an AniList
	// link does not trigger a lookup on every request.
	c.cache.Set(key, id)

	if id == 0 {
		return 0, ErrNoCrossReference
	}
	return id, nil
}

// parseAniListURL extracts the numeric id from an AniList URL such as
// "https://anilist.co/anime/16498/Shingeki-no-Kyojin/".
func parseAniListURL(raw string) int {
	parts := strings.Split(strings.Trim(raw, "/"), "/")
	for i, part := range parts {
		if part == "anime" && i+1 < len(parts) {
			if id, err := strconv.Atoi(parts[i+1]); err == nil {
				return id
			}
		}
	}
	return 0
}

func (c *JikanClient) makeRequest(ctx context.Context, endpoint string, params url.Values) ([]byte, error) {
	u := c.baseURL + endpoint
	if len(params) > 0 {
		u += "?" + params.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("jikan request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("jikan returned status %d for %s", resp.StatusCode, endpoint)
	}
	return data, nil
}
