// Package config loads runtime configuration from the environment, the way
// the rest of this lineage does: package-level vars populated once at
// import time via small typed getEnv helpers, not a config-file parser.
package config

import (
	"os"
	"strconv"
	"time"
)

var (
	// State Store backend selection: "redis" (default), "sqlite", or
	// "memory" (tests only).
	StateBackend = getEnvWithDefault("STATE_BACKEND", "redis")
	RedisAddr    = getEnvWithDefault("REDIS_ADDR", "localhost:6379")
	SQLitePath   = getEnvWithDefault("SQLITE_PATH", "trackrequestd.db")

	// Local filesystem root downloaded torrents are written under.
	DownloadRoot = getEnvWithDefault("DOWNLOAD_ROOT", "./downloads")

	// Torrent snapshot poll cadence.
	PollInterval = getEnvDuration("POLL_INTERVAL", 5*time.Second)

	// Retry/backoff parameters.
	RetryInitial     = getEnvDuration("RETRY_INITIAL", 1*time.Second)
	RetryFactor      = getEnvFloat("RETRY_FACTOR", 2.0)
	RetryCap         = getEnvDuration("RETRY_CAP", 60*time.Second)
	RetryMaxAttempts = getEnvInt("RETRY_MAX_ATTEMPTS", 6)

	// Per-adapter call timeouts. SearchTimeout, RadioManagerTimeout and
	// SuggestionTimeout become the HTTP client timeouts of those adapters;
	// TorrentTimeout, MetadataTimeout and StateTimeout are read but not
	// applied to any call.
	SearchTimeout       = getEnvDuration("SEARCH_TIMEOUT", 30*time.Second)
	TorrentTimeout      = getEnvDuration("TORRENT_TIMEOUT", 30*time.Second)
	MetadataTimeout     = getEnvDuration("METADATA_TIMEOUT", 10*time.Second)
	RadioManagerTimeout = getEnvDuration("RADIO_MANAGER_TIMEOUT", 30*time.Second)
	SuggestionTimeout   = getEnvDuration("SUGGESTION_TIMEOUT", 30*time.Second)
	StateTimeout        = getEnvDuration("STATE_TIMEOUT", 5*time.Second)

	// How long a terminal status lingers after state+context deletion.
	StatusRetention = getEnvDuration("STATUS_RETENTION", 24*time.Hour)

	// Tracker (Search Adapter) credentials.
	TrackerBaseURL = getEnvWithDefault("TRACKER_BASE_URL", "https://rutracker.org")
	TrackerUser    = os.Getenv("TRACKER_USERNAME")
	TrackerPass    = os.Getenv("TRACKER_PASSWORD")

	// RadioManager (RadioManager Adapter) endpoint and credentials.
	RadioManagerBaseURL  = os.Getenv("RADIO_MANAGER_BASE_URL")
	RadioManagerClientID = os.Getenv("RADIO_MANAGER_CLIENT_ID")
	RadioManagerSecret   = os.Getenv("RADIO_MANAGER_CLIENT_SECRET")

	// Suggestion Adapter; feature is disabled whenever the API key is unset.
	SuggestionAPIKey  = os.Getenv("SUGGESTION_API_KEY")
	SuggestionBaseURL = getEnvWithDefault("SUGGESTION_BASE_URL", "https://api.openai.com")

	// Admin HTTP surface.
	HTTPListenAddr = getEnvWithDefault("HTTP_LISTEN_ADDR", ":8080")
)

func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

// SuggestionEnabled reports whether the optional Suggestion Adapter has
// enough configuration to run.
func SuggestionEnabled() bool {
	return SuggestionAPIKey != ""
}
