package streaming

import (
	"fmt"

	"cinefuse/internal/models"
)

// Source is one embed-streaming provider in the fallback chain. Lower
// priority is tried first. Configuration, not state: the set lives for
// the process lifetime.
type Source struct {
	Name     string
	Priority int
	Enabled  bool
}

// EmbedRequest carries everything a source needs to build a playback
// URL. Movie/TV schemes key off the TMDB id; anime schemes key off the
// AniList id plus an audio variant instead.
type EmbedRequest struct {
	Type      models.MediaType
	TMDBID    int
	AniListID int
	Season    int
	Episode   int
	Language  string // movie/tv subtitle language, e.g. "en"
	Variant   string // anime audio: sub, dub or hindi
}

// URLBuilder deterministically builds an iframe-embeddable URL for one
// source. ok is false when the source has no scheme for the request
// (e.g. a movie/tv-only host asked for anime, or a missing id). Adding
// a provider means adding one builder to the table, not touching
// resolution logic.
type URLBuilder interface {
	Build(req EmbedRequest) (url string, ok bool)
}

// defaultBuilders returns the built-in source table.
func defaultBuilders() map[string]URLBuilder {
	return map[string]URLBuilder{
		"cinetaro":  cinetaroBuilder{},
		"videasy":   videasyBuilder{},
		"vidlink":   vidlinkBuilder{},
		"vidsrc":    vidsrcBuilder{},
		"autoembed": autoembedBuilder{},
	}
}

func variantOrSub(v string) string {
	switch v {
	case "dub", "hindi":
		return v
	default:
		return "sub"
	}
}

func langOrEn(l string) string {
	if l == "" {
		return "en"
	}
	return l
}

// cinetaroBuilder covers the primary aggregator. It is the only source
// with a dedicated anime scheme keyed by AniList id.
type cinetaroBuilder struct{}

func (cinetaroBuilder) Build(req EmbedRequest) (string, bool) {
	switch req.Type {
	case models.MediaTypeMovie:
		if req.TMDBID == 0 {
			return "", false
		}
		return fmt.Sprintf("https://cinetaro.live/embed/movie/%d?lang=%s", req.TMDBID, langOrEn(req.Language)), true
	case models.MediaTypeTV:
		if req.TMDBID == 0 {
			return "", false
		}
		return fmt.Sprintf("https://cinetaro.live/embed/tv/%d/%d/%d?lang=%s", req.TMDBID, req.Season, req.Episode, langOrEn(req.Language)), true
	case models.MediaTypeAnime:
		if req.AniListID == 0 {
			return "", false
		}
		return fmt.Sprintf("https://cinetaro.live/embed/anime/%d/%d/%s", req.AniListID, req.Episode, variantOrSub(req.Variant)), true
	}
	return "", false
}

type videasyBuilder struct{}

func (videasyBuilder) Build(req EmbedRequest) (string, bool) {
	switch req.Type {
	case models.MediaTypeMovie:
		if req.TMDBID == 0 {
			return "", false
		}
		return fmt.Sprintf("https://player.videasy.net/movie/%d", req.TMDBID), true
	case models.MediaTypeTV:
		if req.TMDBID == 0 {
			return "", false
		}
		return fmt.Sprintf("https://player.videasy.net/tv/%d/%d/%d", req.TMDBID, req.Season, req.Episode), true
	case models.MediaTypeAnime:
		if req.AniListID == 0 {
			return "", false
		}
		url := fmt.Sprintf("https://player.videasy.net/anime/%d/%d", req.AniListID, req.Episode)
		if variantOrSub(req.Variant) == "dub" {
			url += "?dub=true"
		}
		return url, true
	}
	return "", false
}

type vidlinkBuilder struct{}

func (vidlinkBuilder) Build(req EmbedRequest) (string, bool) {
	switch req.Type {
	case models.MediaTypeMovie:
		if req.TMDBID == 0 {
			return "", false
		}
		return fmt.Sprintf("https://vidlink.pro/movie/%d", req.TMDBID), true
	case models.MediaTypeTV:
		if req.TMDBID == 0 {
			return "", false
		}
		return fmt.Sprintf("https://vidlink.pro/tv/%d/%d/%d", req.TMDBID, req.Season, req.Episode), true
	}
	return "", false
}

type vidsrcBuilder struct{}

func (vidsrcBuilder) Build(req EmbedRequest) (string, bool) {
	switch req.Type {
	case models.MediaTypeMovie:
		if req.TMDBID == 0 {
			return "", false
		}
		return fmt.Sprintf("https://vidsrc.to/embed/movie/%d", req.TMDBID), true
	case models.MediaTypeTV:
		if req.TMDBID == 0 {
			return "", false
		}
		return fmt.Sprintf("https://vidsrc.to/embed/tv/%d/%d/%d", req.TMDBID, req.Season, req.Episode), true
	}
	return "", false
}

type autoembedBuilder struct{}

func (autoembedBuilder) Build(req EmbedRequest) (string, bool) {
	switch req.Type {
	case models.MediaTypeMovie:
		if req.TMDBID == 0 {
			return "", false
		}
		return fmt.Sprintf("https://player.autoembed.cc/embed/movie/%d", req.TMDBID), true
	case models.MediaTypeTV:
		if req.TMDBID == 0 {
			return "", false
		}
		return fmt.Sprintf("https://player.autoembed.cc/embed/tv/%d/%d/%d", req.TMDBID, req.Season, req.Episode), true
	}
	return "", false
}
