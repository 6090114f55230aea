package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sort"
	"strconv"
	"strings"

	"github.com/gorilla/mux"

	"cinefuse/internal/auth"
	"cinefuse/internal/catalog"
	"cinefuse/internal/models"
	"cinefuse/internal/providers"
	"cinefuse/internal/store"
	"cinefuse/internal/streaming"
)

// CatalogSource serves the current deduplicated catalog snapshot.
type CatalogSource interface {
	Catalog() []models.MediaItem
}

// StreamResolver resolves playback URLs through the fallback chain.
type StreamResolver interface {
	ResolveFast(req streaming.EmbedRequest) (string, bool)
	Resolve(ctx context.Context, req streaming.EmbedRequest) (string, bool)
	CheckAvailability(ctx context.Context, req streaming.EmbedRequest) bool
}

// CrossReferencer maps a MAL id to the AniList id the embed sources need.
type CrossReferencer interface {
	ResolveAniListID(ctx context.Context, malID int) (int, error)
}

// Deps carries everything the HTTP layer needs. All construction happens
// in cmd/server; handlers never reach for globals.
type Deps struct {
	Catalog      CatalogSource
	Searchers    []providers.Provider
	Aggregator   *catalog.Aggregator
	TMDB         *providers.TMDBClient
	OMDB         *providers.OMDBClient
	CrossRef     CrossReferencer
	Resolver     StreamResolver
	ProbeStreams bool
	Tokens       *auth.TokenManager
	Users        *store.UserStore
	Favorites    *store.FavoriteStore
	History      *store.HistoryStore
}

// Handler holds the route implementations. It only translates HTTP into
// core calls; no aggregation or resolution logic lives here.
type Handler struct {
	deps Deps
	log  *slog.Logger
}

// NewHandler creates the API handler.
func NewHandler(deps Deps) *Handler {
	return &Handler{
		deps: deps,
		log:  slog.Default().With("component", "api"),
	}
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// HealthCheck handles GET /api/health.
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// GetCatalog handles GET /api/catalog. Optional filters: type, genre,
// streamable; optional offset/limit windowing.
func (h *Handler) GetCatalog(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	items := h.deps.Catalog.Catalog()

	if t := q.Get("type"); t != "" {
		items = filterItems(items, func(m models.MediaItem) bool {
			return string(m.Type) == t
		})
	}
	if genre := q.Get("genre"); genre != "" {
		items = filterItems(items, func(m models.MediaItem) bool {
			for _, g := range m.Genres {
				if strings.EqualFold(g, genre) {
					return true
				}
			}
			return false
		})
	}
	if q.Get("streamable") == "true" {
		items = filterItems(items, func(m models.MediaItem) bool {
			return m.HasStreaming
		})
	}

	total := len(items)
	offset, _ := strconv.Atoi(q.Get("offset"))
	limit, _ := strconv.Atoi(q.Get("limit"))
	if offset < 0 {
		offset = 0
	}
	if offset > total {
		offset = total
	}
	items = items[offset:]
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"total":   total,
		"offset":  offset,
		"results": items,
	})
}

// Search handles GET /api/search?q=. It queries every provider live for
// one page each and merges the results; provider failures degrade to
// empty pages exactly as in bulk aggregation.
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("q"))
	if query == "" {
		respondError(w, http.StatusBadRequest, "query parameter q is required")
		return
	}

	opts := providers.PageOptions{Query: query}
	raw := h.deps.Aggregator.BulkLoad(r.Context(), h.deps.Searchers, 1, 1, 1, 0, opts)
	results := catalog.Merge(raw)

	if t := r.URL.Query().Get("type"); t != "" {
		results = filterItems(results, func(m models.MediaItem) bool {
			return string(m.Type) == t
		})
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"query":   query,
		"results": results,
	})
}

// GetMedia handles GET /api/media/{id}. TMDB-sourced titles get the full
// detail lookup plus OMDb enrichment; everything else comes from the
// snapshot as-is.
func (h *Handler) GetMedia(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	item, found := h.findItem(id)
	source, mediaType, nativeID, parsed := parseMediaID(id)

	if parsed && source == "tmdb" && h.deps.TMDB != nil {
		details, err := h.deps.TMDB.GetDetails(r.Context(), mediaType, nativeID)
		if err == nil {
			enriched := h.enrich(r.Context(), *details)
			respondJSON(w, http.StatusOK, enriched)
			return
		}
		if !errors.Is(err, providers.ErrNoAPIKey) {
			h.log.Warn("detail lookup failed", "id", id, "error", err)
		}
	}

	if !found {
		respondError(w, http.StatusNotFound, "media not found")
		return
	}
	respondJSON(w, http.StatusOK, h.enrich(r.Context(), item))
}

// GetSeason handles GET /api/media/{id}/season/{season} for TMDB TV
// titles.
func (h *Handler) GetSeason(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	source, _, nativeID, parsed := parseMediaID(vars["id"])
	season, err := strconv.Atoi(vars["season"])
	if !parsed || err != nil {
		respondError(w, http.StatusBadRequest, "invalid media or season id")
		return
	}
	if source != "tmdb" || h.deps.TMDB == nil {
		respondError(w, http.StatusNotFound, "episode listings are only available for tmdb titles")
		return
	}

	episodes, err := h.deps.TMDB.SeasonEpisodes(r.Context(), nativeID, season)
	if err != nil {
		respondError(w, http.StatusBadGateway, "failed to fetch episodes")
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"season":   season,
		"episodes": episodes,
	})
}

// ResolveStream handles GET /api/stream/resolve.
func (h *Handler) ResolveStream(w http.ResponseWriter, r *http.Request) {
	req, errStatus, errMsg := h.embedRequest(r)
	if errMsg != "" {
		respondError(w, errStatus, errMsg)
		return
	}

	var url string
	var ok bool
	if h.deps.ProbeStreams {
		url, ok = h.deps.Resolver.Resolve(r.Context(), req)
	} else {
		url, ok = h.deps.Resolver.ResolveFast(req)
	}
	if !ok {
		respondError(w, http.StatusNotFound, "no streaming source available")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"url": url})
}

// StreamAvailability handles GET /api/stream/availability. Unlike
// resolve, this reports true only for a verified-live source.
func (h *Handler) StreamAvailability(w http.ResponseWriter, r *http.Request) {
	req, errStatus, errMsg := h.embedRequest(r)
	if errMsg != "" {
		respondError(w, errStatus, errMsg)
		return
	}
	respondJSON(w, http.StatusOK, map[string]bool{
		"available": h.deps.Resolver.CheckAvailability(r.Context(), req),
	})
}

// GetGenres handles GET /api/genres: the distinct genre names present in
// the current snapshot, for filter dropdowns.
func (h *Handler) GetGenres(w http.ResponseWriter, r *http.Request) {
	seen := make(map[string]struct{})
	for _, item := range h.deps.Catalog.Catalog() {
		for _, g := range item.Genres {
			seen[g] = struct{}{}
		}
	}
	genres := make([]string, 0, len(seen))
	for g := range seen {
		genres = append(genres, g)
	}
	sort.Strings(genres)
	respondJSON(w, http.StatusOK, map[string][]string{"genres": genres})
}

// embedRequest assembles the resolver input from query parameters and
// the catalog record. The error message is empty on success.
func (h *Handler) embedRequest(r *http.Request) (streaming.EmbedRequest, int, string) {
	q := r.URL.Query()
	id := q.Get("id")
	if id == "" {
		return streaming.EmbedRequest{}, http.StatusBadRequest, "query parameter id is required"
	}

	item, found := h.findItem(id)
	source, mediaType, nativeID, parsed := parseMediaID(id)
	if !found {
		if !parsed {
			return streaming.EmbedRequest{}, http.StatusNotFound, "media not found"
		}
		item = models.MediaItem{ID: id, Type: mediaType, Source: source}
		switch source {
		case "tmdb":
			item.Extra = models.Extra{"tmdb_id": nativeID}
		case "anilist":
			item.Extra = models.Extra{"anilist_id": nativeID}
		case "jikan":
			item.Extra = models.Extra{"mal_id": nativeID}
		}
	}

	season, _ := strconv.Atoi(q.Get("season"))
	episode, _ := strconv.Atoi(q.Get("episode"))

	req := streaming.EmbedRequest{
		Type:      item.Type,
		TMDBID:    item.ExtraInt("tmdb_id"),
		AniListID: item.ExtraInt("anilist_id"),
		Season:    season,
		Episode:   episode,
		Language:  q.Get("lang"),
		Variant:   q.Get("variant"),
	}

	// Anime needs the AniList id; titles known only by MAL id get a
	// cross-reference lookup first.
	if req.Type == models.MediaTypeAnime && req.AniListID == 0 {
		malID := item.ExtraInt("mal_id")
		if malID == 0 || h.deps.CrossRef == nil {
			return streaming.EmbedRequest{}, http.StatusNotFound, "no streamable id for this title"
		}
		anilistID, err := h.deps.CrossRef.ResolveAniListID(r.Context(), malID)
		if err != nil {
			if errors.Is(err, providers.ErrNoCrossReference) {
				return streaming.EmbedRequest{}, http.StatusUnprocessableEntity, "title is not yet resolvable to a streamable id"
			}
			return streaming.EmbedRequest{}, http.StatusBadGateway, "cross-reference lookup failed"
		}
		req.AniListID = anilistID
	}

	return req, 0, ""
}

func (h *Handler) findItem(id string) (models.MediaItem, bool) {
	for _, item := range h.deps.Catalog.Catalog() {
		if item.ID == id {
			return item, true
		}
	}
	return models.MediaItem{}, false
}

func (h *Handler) enrich(ctx context.Context, item models.MediaItem) models.MediaItem {
	if h.deps.OMDB == nil {
		return item
	}
	return h.deps.OMDB.Enrich(ctx, item)
}

// parseMediaID splits a canonical id like "tmdb_movie_550" back into its
// parts. ok is false for local ids that do not follow the scheme.
func parseMediaID(id string) (source string, mediaType models.MediaType, nativeID int, ok bool) {
	parts := strings.SplitN(id, "_", 3)
	if len(parts) != 3 {
		return "", "", 0, false
	}
	n, err := strconv.Atoi(parts[2])
	if err != nil {
		return "", "", 0, false
	}
	switch models.MediaType(parts[1]) {
	case models.MediaTypeMovie, models.MediaTypeTV, models.MediaTypeAnime:
	default:
		return "", "", 0, false
	}
	return parts[0], models.MediaType(parts[1]), n, true
}

func filterItems(items []models.MediaItem, keep func(models.MediaItem) bool) []models.MediaItem {
	out := make([]models.MediaItem, 0, len(items))
	for _, item := range items {
		if keep(item) {
			out = append(out, item)
		}
	}
	return out
}
