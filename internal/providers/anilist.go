package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"cinefuse/internal/cache"
	"cinefuse/internal/models"
)

const anilistBaseURL = "https://graphql.anilist.co"

// AniListClient is the GraphQL anime adapter. AniList ids are directly
// usable by the primary embed source's anime URL scheme, so records from
// here are streamable without a cross-reference lookup.
type AniListClient struct {
	baseURL    string
	httpClient *http.Client
	cache      *cache.ResponseCache
	streamable bool
	log        *slog.Logger
}

// NewAniListClient creates the AniList adapter. No credential required.
func NewAniListClient(rc *cache.ResponseCache, streamable bool) *AniListClient {
	return &AniListClient{
		baseURL:    anilistBaseURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		cache:      rc,
		streamable: streamable,
		log:        slog.Default().With("component", "anilist"),
	}
}

const anilistPageQuery = `query ($page: Int, $perPage: Int, $search: String) {
  Page(page: $page, perPage: $perPage) {
    media(type: ANIME, sort: POPULARITY_DESC, search: $search) {
      id
      idMal
      title { romaji english native }
      description(asHtml: false)
      coverImage { large }
      bannerImage
      averageScore
      popularity
      genres
      episodes
      startDate { year month day }
    }
  }
}`

type anilistMedia struct {
	ID    int `json:"id"`
	IDMal int `json:"idMal"`
	Title struct {
		Romaji  string `json:"romaji"`
		English string `json:"english"`
		Native  string `json:"native"`
	} `json:"title"`
	Description string `json:"description"`
	CoverImage  struct {
		Large string `json:"large"`
	} `json:"coverImage"`
	BannerImage  string   `json:"bannerImage"`
	AverageScore float64  `json:"averageScore"`
	Popularity   float64  `json:"popularity"`
	Genres       []string `json:"genres"`
	Episodes     int      `json:"episodes"`
	StartDate    struct {
		Year  int `json:"year"`
		Month int `json:"month"`
		Day   int `json:"day"`
	} `json:"startDate"`
}

type anilistResponse struct {
	Data struct {
		Page struct {
			Media []anilistMedia `json:"media"`
		} `json:"Page"`
	} `json:"data"`
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

func (c *AniListClient) Name() string { return "anilist" }

// FetchPage posts one paginated Page query (20 per page). opts.Query
// switches the sort-by-popularity listing to a search.
func (c *AniListClient) FetchPage(ctx context.Context, page int, opts PageOptions) ([]models.MediaItem, error) {
	key := cache.Key("anilist", opts.Query, strconv.Itoa(page))

	var payload anilistResponse
	if !c.cache.Get(key, &payload) {
		variables := map[string]interface{}{
			"page":    page,
			"perPage": 20,
		}
		if opts.Query != "" {
			variables["search"] = opts.Query
		}

		body, err := json.Marshal(map[string]interface{}{
			"query":     anilistPageQuery,
			"variables": variables,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to encode anilist query: %w", err)
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(body))
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Accept", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, fmt.Errorf("anilist request failed: %w", err)
		}
		defer resp.Body.Close()

		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("failed to read response: %w", err)
		}
		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("anilist returned status %d", resp.StatusCode)
		}
		if err := json.Unmarshal(data, &payload); err != nil {
			return nil, fmt.Errorf("failed to unmarshal anilist response: %w", err)
		}
		if len(payload.Errors) > 0 {
			return nil, fmt.Errorf("anilist query error: %s", payload.Errors[0].Message)
		}
		c.cache.Set(key, payload)
	}

	items := make([]models.MediaItem, 0, len(payload.Data.Page.Media))
	for _, media := range payload.Data.Page.Media {
		if item, ok := c.mapMedia(media); ok {
			items = append(items, item)
		}
	}
	return items, nil
}

func (c *AniListClient) mapMedia(m anilistMedia) (models.MediaItem, bool) {
	title := m.Title.English
	if title == "" {
		title = m.Title.Romaji
	}
	if title == "" || m.CoverImage.Large == "" {
		return models.MediaItem{}, false
	}

	releaseDate := ""
	year := ""
	if m.StartDate.Year > 0 {
		year = strconv.Itoa(m.StartDate.Year)
		if m.StartDate.Month > 0 && m.StartDate.Day > 0 {
			releaseDate = fmt.Sprintf("%04d-%02d-%02d", m.StartDate.Year, m.StartDate.Month, m.StartDate.Day)
		}
	}

	extra := models.Extra{"anilist_id": m.ID}
	if m.IDMal > 0 {
		extra["mal_id"] = m.IDMal
	}
	if m.Episodes > 0 {
		extra["episodes"] = m.Episodes
	}

	return models.MediaItem{
		ID:            models.MediaID("anilist", models.MediaTypeAnime, m.ID),
		Title:         title,
		OriginalTitle: m.Title.Native,
		Type:          models.MediaTypeAnime,
		Source:        "anilist",
		Year:          year,
		ReleaseDate:   releaseDate,
		Overview:      m.Description,
		PosterURL:     m.CoverImage.Large,
		BackdropURL:   m.BannerImage,
		Rating:        m.AverageScore / 10, // AniList scores are 0-100
		Popularity:    m.Popularity,
		Genres:        m.Genres,
		HasStreaming:  c.streamable,
		Extra:         extra,
	}, true
}
