package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/natefinch/lumberjack.v2"

	"cinefuse/internal/api"
	"cinefuse/internal/auth"
	"cinefuse/internal/cache"
	"cinefuse/internal/catalog"
	"cinefuse/internal/config"
	"cinefuse/internal/models"
	"cinefuse/internal/providers"
	"cinefuse/internal/store"
	"cinefuse/internal/streaming"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("no .env file found, using environment variables")
	}

	cfg := config.Load()
	setupLogging(cfg)

	slog.Info("starting cinefuse",
		"port", cfg.ServerPort,
		"cache_dir", cfg.CacheDir,
		"total_pages", cfg.TotalPages)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Shared infrastructure
	responseCache := cache.New(cfg.CacheDir, cfg.CacheTTLHours)
	genres := providers.NewGenreResolver(cfg.TMDBAPIKey, cfg.Language)
	go genres.EnsureInitialized(ctx)

	// Records are only marked streamable while at least one embed source
	// is enabled.
	streamable := false
	sources := make([]streaming.Source, 0, len(cfg.EmbedSources))
	for _, src := range cfg.EmbedSources {
		sources = append(sources, streaming.Source{
			Name:     src.Name,
			Priority: src.Priority,
			Enabled:  src.Enabled,
		})
		if src.Enabled {
			streamable = true
		}
	}
	resolver := streaming.NewResolver(sources)

	// Metadata adapters
	tmdb := providers.NewTMDBClient(cfg.TMDBAPIKey, cfg.Language, responseCache, genres, streamable)
	jikan := providers.NewJikanClient(responseCache)
	anilist := providers.NewAniListClient(responseCache, streamable)
	tvmaze := providers.NewTVMazeClient(responseCache)
	omdb := providers.NewOMDBClient(cfg.OMDBAPIKey, responseCache)

	// Background catalog refresh. Each group gets the pacing its
	// providers tolerate.
	agg := catalog.NewAggregator()
	groups := []catalog.RefreshGroup{
		{
			Providers: []providers.Provider{tmdb},
			Opts:      providers.PageOptions{Type: models.MediaTypeMovie, List: "popular"},
			Delay:     100 * time.Millisecond,
		},
		{
			Providers: []providers.Provider{tmdb},
			Opts:      providers.PageOptions{Type: models.MediaTypeTV, List: "popular"},
			Delay:     100 * time.Millisecond,
		},
		{
			Providers: []providers.Provider{jikan, anilist},
			Delay:     200 * time.Millisecond,
		},
		{
			Providers: []providers.Provider{tvmaze},
			Delay:     150 * time.Millisecond,
		},
	}
	refresher := catalog.NewRefresher(agg, groups, cfg.TotalPages, cfg.BatchSize,
		time.Duration(cfg.RefreshIntervalHours)*time.Hour)
	go refresher.Start(ctx)
	defer refresher.Stop()

	// User data
	tokens := auth.NewTokenManager(cfg.JWTSecret)
	users := store.NewUserStore(cfg.DataDir)
	favorites := store.NewFavoriteStore(cfg.DataDir)
	history := store.NewHistoryStore(cfg.DataDir)

	handler := api.NewHandler(api.Deps{
		Catalog:      refresher,
		Searchers:    []providers.Provider{tmdb, jikan, anilist, tvmaze},
		Aggregator:   agg,
		TMDB:         tmdb,
		OMDB:         omdb,
		CrossRef:     jikan,
		Resolver:     resolver,
		ProbeStreams: cfg.ProbeStreams,
		Tokens:       tokens,
		Users:        users,
		Favorites:    favorites,
		History:      history,
	})

	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.ServerPort),
		Handler:      api.SetupRoutes(handler),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		slog.Info("http server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server failed", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown error", "error", err)
	}
	slog.Info("stopped")
}

// setupLogging installs the process-wide JSON logger, rotating through
// lumberjack when LOG_FILE is configured.
func setupLogging(cfg *config.Config) {
	var out io.Writer = os.Stdout
	if cfg.LogFile != "" {
		out = io.MultiWriter(os.Stdout, &lumberjack.Logger{
			Filename:   cfg.LogFile,
			MaxSize:    20, // megabytes
			MaxBackups: 3,
			MaxAge:     14, // days
			Compress:   true,
		})
	}

	level := slog.LevelInfo
	if cfg.Debug {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewJSONHandler(out, &slog.HandlerOptions{Level: level})))
}
