package config

import (
	"os"
	"strconv"
	"strings"
)

// EmbedSource configures one fallback embed-streaming provider.
// Lower priority is tried first.
type EmbedSource struct {
	Name     string
	Priority int
	Enabled  bool
}

type Config struct {
	// Server
	ServerPort int
	Host       string

	// Storage
	DataDir       string // flat JSON user stores
	CacheDir      string // response cache root
	CacheTTLHours int

	// API keys - optional; missing keys degrade the dependent
	// adapters to empty results rather than failing
	TMDBAPIKey string
	OMDBAPIKey string

	// Aggregation tuning
	Language             string
	TotalPages           int
	BatchSize            int
	RefreshIntervalHours int

	// Streaming
	EmbedSources []EmbedSource
	ProbeStreams bool // verify liveness before returning playback URLs

	// Auth
	JWTSecret string

	// Logging
	LogFile string
	Debug   bool
}

// Load reads configuration from environment variables with defaults.
// cmd/server loads a .env file first, so env vars are the single source.
func Load() *Config {
	cfg := &Config{
		ServerPort: getEnvInt("PORT", 8080),
		Host:       getEnv("HOST", "0.0.0.0"),

		DataDir:       getEnv("DATA_DIR", "./data"),
		CacheDir:      getEnv("CACHE_DIR", "./data/cache"),
		CacheTTLHours: getEnvInt("CACHE_TTL_HOURS", 24),

		TMDBAPIKey: getEnv("TMDB_API_KEY", ""),
		OMDBAPIKey: getEnv("OMDB_API_KEY", ""),

		Language:             getEnv("LANGUAGE", "en-US"),
		TotalPages:           getEnvInt("TOTAL_PAGES", 5),
		BatchSize:            getEnvInt("BATCH_SIZE", 3),
		RefreshIntervalHours: getEnvInt("REFRESH_INTERVAL_HOURS", 12),

		ProbeStreams: getEnvBool("PROBE_STREAMS", true),

		JWTSecret: getEnv("JWT_SECRET", ""),

		LogFile: getEnv("LOG_FILE", ""),
		Debug:   getEnvBool("DEBUG", false),
	}

	cfg.EmbedSources = defaultEmbedSources()
	for _, name := range splitList(os.Getenv("DISABLED_SOURCES")) {
		for i := range cfg.EmbedSources {
			if strings.EqualFold(cfg.EmbedSources[i].Name, name) {
				cfg.EmbedSources[i].Enabled = false
			}
		}
	}

	return cfg
}

// defaultEmbedSources returns the built-in fallback chain. Cinetaro is
// the primary aggregator; the rest are free embed hosts tried in order.
func defaultEmbedSources() []EmbedSource {
	return []EmbedSource{
		{Name: "cinetaro", Priority: 1, Enabled: true},
		{Name: "videasy", Priority: 2, Enabled: true},
		{Name: "vidlink", Priority: 3, Enabled: true},
		{Name: "vidsrc", Priority: 4, Enabled: true},
		{Name: "autoembed", Priority: 5, Enabled: true},
	}
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return fallback
}

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
