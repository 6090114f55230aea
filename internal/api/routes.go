package api

import (
	"net/http"

	"github.com/gorilla/mux"
)

// SetupRoutes wires every endpoint. Catalog browsing and stream
// resolution are public; favorites, history and account routes sit
// behind the token middleware.
func SetupRoutes(handler *Handler) http.Handler {
	r := mux.NewRouter()

	api := r.PathPrefix("/api").Subrouter()

	api.HandleFunc("/health", handler.HealthCheck).Methods("GET")

	// Catalog
	api.HandleFunc("/catalog", handler.GetCatalog).Methods("GET")
	api.HandleFunc("/search", handler.Search).Methods("GET")
	api.HandleFunc("/genres", handler.GetGenres).Methods("GET")
	api.HandleFunc("/media/{id}", handler.GetMedia).Methods("GET")
	api.HandleFunc("/media/{id}/season/{season}", handler.GetSeason).Methods("GET")

	// Streaming
	api.HandleFunc("/stream/resolve", handler.ResolveStream).Methods("GET")
	api.HandleFunc("/stream/availability", handler.StreamAvailability).Methods("GET")

	// Auth (public half)
	api.HandleFunc("/auth/login", handler.Login).Methods("POST")
	api.HandleFunc("/auth/setup", handler.Setup).Methods("POST")
	api.HandleFunc("/auth/status", handler.AuthStatus).Methods("GET")
	api.HandleFunc("/auth/verify", handler.VerifyToken).Methods("GET")

	// Protected routes
	protected := api.NewRoute().Subrouter()
	protected.Use(handler.deps.Tokens.Middleware)
	protected.HandleFunc("/auth/me", handler.GetCurrentUser).Methods("GET")
	protected.HandleFunc("/auth/password", handler.ChangePassword).Methods("POST")
	protected.HandleFunc("/favorites", handler.ListFavorites).Methods("GET")
	protected.HandleFunc("/favorites", handler.AddFavorite).Methods("POST")
	protected.HandleFunc("/favorites/{id}", handler.RemoveFavorite).Methods("DELETE")
	protected.HandleFunc("/history", handler.GetHistory).Methods("GET")
	protected.HandleFunc("/history", handler.RecordProgress).Methods("POST")
	protected.HandleFunc("/history/{id}", handler.RemoveHistory).Methods("DELETE")
	protected.HandleFunc("/history", handler.ClearHistory).Methods("DELETE")

	r.Use(corsMiddleware)
	r.Use(requestIDMiddleware)
	r.Use(loggingMiddleware)

	return r
}
