package models

import (
	"fmt"
	"time"
)

// MediaType identifies the kind of catalog entry.
type MediaType string

const (
	MediaTypeMovie MediaType = "movie"
	MediaTypeTV    MediaType = "tv"
	MediaTypeAnime MediaType = "anime"
)

// Extra is a side-map for provider-specific passthrough fields (tmdb_id,
// mal_id, anilist_id, tvmaze_id, episode counts, studio, imdb_id, ...).
// The deduplicator and resolver never depend on it.
type Extra map[string]interface{}

// MediaItem is the canonical, provider-agnostic representation of a
// movie, TV show or anime from any upstream source.
type MediaItem struct {
	ID            string    `json:"id"`
	Title         string    `json:"title"`
	OriginalTitle string    `json:"original_title,omitempty"`
	Type          MediaType `json:"type"`
	Source        string    `json:"source,omitempty"` // empty means local file
	Year          string    `json:"year,omitempty"`
	ReleaseDate   string    `json:"release_date,omitempty"`
	Overview      string    `json:"overview,omitempty"`
	PosterURL     string    `json:"poster_url,omitempty"`
	BackdropURL   string    `json:"backdrop_url,omitempty"`
	Rating        float64   `json:"rating,omitempty"`     // normalized 0-10
	Popularity    float64   `json:"popularity,omitempty"` // provider-native scale
	Genres        []string  `json:"genres,omitempty"`
	StreamingURL  string    `json:"streaming_url,omitempty"`
	HasStreaming  bool      `json:"has_streaming"`
	Extra         Extra     `json:"extra,omitempty"`
}

// MediaID builds the globally unique catalog id, e.g. "tmdb_movie_550".
func MediaID(source string, mediaType MediaType, nativeID interface{}) string {
	return fmt.Sprintf("%s_%s_%v", source, mediaType, nativeID)
}

// YearFromDate extracts the leading 4-digit year from a release date
// string such as "2021-10-22". Returns "" when the date is too short.
func YearFromDate(date string) string {
	if len(date) < 4 {
		return ""
	}
	for _, c := range date[:4] {
		if c < '0' || c > '9' {
			return ""
		}
	}
	return date[:4]
}

// ExtraInt reads an integer passthrough field, tolerating the float64
// values that appear after a JSON round trip. Returns 0 when absent;
// none of the upstream ids are ever 0.
func (m *MediaItem) ExtraInt(key string) int {
	if m.Extra == nil {
		return 0
	}
	switch v := m.Extra[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	}
	return 0
}

// ExtraString reads a string passthrough field.
func (m *MediaItem) ExtraString(key string) string {
	if m.Extra == nil {
		return ""
	}
	if s, ok := m.Extra[key].(string); ok {
		return s
	}
	return ""
}

// User is an account stored in the flat JSON user store.
type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"password_hash"`
	IsAdmin      bool      `json:"is_admin"`
	CreatedAt    time.Time `json:"created_at"`
}

// FavoriteEntry is one saved catalog item for a user.
type FavoriteEntry struct {
	MediaID string    `json:"media_id"`
	Title   string    `json:"title"`
	Type    MediaType `json:"type"`
	AddedAt time.Time `json:"added_at"`
}

// WatchEntry records playback progress for a user.
type WatchEntry struct {
	MediaID         string    `json:"media_id"`
	Season          int       `json:"season,omitempty"`
	Episode         int       `json:"episode,omitempty"`
	ProgressSeconds int       `json:"progress_seconds"`
	Completed       bool      `json:"completed"`
	WatchedAt       time.Time `json:"watched_at"`
}
