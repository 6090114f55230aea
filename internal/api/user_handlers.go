package api

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"cinefuse/internal/auth"
	"cinefuse/internal/models"
)

// ListFavorites handles GET /api/favorites (protected).
func (h *Handler) ListFavorites(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.UserFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	entries, err := h.deps.Favorites.List(claims.UserID)
	if err != nil {
		h.log.Error("favorites list failed", "error", err)
		respondError(w, http.StatusInternalServerError, "failed to load favorites")
		return
	}
	if entries == nil {
		entries = []models.FavoriteEntry{}
	}
	respondJSON(w, http.StatusOK, entries)
}

// AddFavorite handles POST /api/favorites (protected).
func (h *Handler) AddFavorite(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.UserFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var entry models.FavoriteEntry
	if err := json.NewDecoder(r.Body).Decode(&entry); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if entry.MediaID == "" {
		respondError(w, http.StatusBadRequest, "media_id required")
		return
	}
	// Fill in title/type from the snapshot when the client sent only the id.
	if entry.Title == "" {
		if item, found := h.findItem(entry.MediaID); found {
			entry.Title = item.Title
			entry.Type = item.Type
		}
	}

	if err := h.deps.Favorites.Add(claims.UserID, entry); err != nil {
		h.log.Error("favorite add failed", "error", err)
		respondError(w, http.StatusInternalServerError, "failed to save favorite")
		return
	}
	respondJSON(w, http.StatusCreated, map[string]string{"message": "saved"})
}

// RemoveFavorite handles DELETE /api/favorites/{id} (protected).
func (h *Handler) RemoveFavorite(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.UserFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	if err := h.deps.Favorites.Remove(claims.UserID, mux.Vars(r)["id"]); err != nil {
		h.log.Error("favorite remove failed", "error", err)
		respondError(w, http.StatusInternalServerError, "failed to remove favorite")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": "removed"})
}

// GetHistory handles GET /api/history (protected).
func (h *Handler) GetHistory(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.UserFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	entries, err := h.deps.History.List(claims.UserID)
	if err != nil {
		h.log.Error("history list failed", "error", err)
		respondError(w, http.StatusInternalServerError, "failed to load history")
		return
	}
	if entries == nil {
		entries = []models.WatchEntry{}
	}
	respondJSON(w, http.StatusOK, entries)
}

// RecordProgress handles POST /api/history (protected). The player posts
// progress updates during playback.
func (h *Handler) RecordProgress(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.UserFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var entry models.WatchEntry
	if err := json.NewDecoder(r.Body).Decode(&entry); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if entry.MediaID == "" {
		respondError(w, http.StatusBadRequest, "media_id required")
		return
	}

	if err := h.deps.History.Record(claims.UserID, entry); err != nil {
		h.log.Error("history record failed", "error", err)
		respondError(w, http.StatusInternalServerError, "failed to record progress")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": "recorded"})
}

// RemoveHistory handles DELETE /api/history/{id} (protected).
func (h *Handler) RemoveHistory(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.UserFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	if err := h.deps.History.Remove(claims.UserID, mux.Vars(r)["id"]); err != nil {
		h.log.Error("history remove failed", "error", err)
		respondError(w, http.StatusInternalServerError, "failed to remove history entry")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": "removed"})
}

// ClearHistory handles DELETE /api/history (protected).
func (h *Handler) ClearHistory(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.UserFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	if err := h.deps.History.Clear(claims.UserID); err != nil {
		h.log.Error("history clear failed", "error", err)
		respondError(w, http.StatusInternalServerError, "failed to clear history")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": "cleared"})
}
