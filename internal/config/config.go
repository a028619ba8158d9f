package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
)

// Config holds validated environment configuration for the party quiz server.
type Config struct {
	// Required variables
	Port       string
	ContentDir string

	// Optional variables with defaults
	GoEnv          string
	LogLevel       string
	AllowedOrigins string

	// OTLP trace exporter endpoint, host:port. Empty disables tracing.
	OTLPEndpoint string

	// Room lifecycle
	RoomCleanupEnabled             bool
	RoomCleanupIntervalSeconds     int
	RoomWithoutHostTTLMinutes      int
	DisconnectedPlayerGraceSeconds int

	// Autoplay (bot) driver
	AutoplayEnabled          bool
	AutoplayPollIntervalMs   int
	AutoplayMinActionDelayMs int
	AutoplayMaxActionDelayMs int

	// Rate limiting
	RateLimitWsCommands string
}

// ValidateEnv validates all required environment variables and returns a Config object.
// Returns an error if any required variable is missing or invalid.
func ValidateEnv() (*Config, error) {
	cfg := &Config{}
	var errs []string

	// Required: PORT (valid port number)
	cfg.Port = os.Getenv("PORT")
	if cfg.Port == "" {
		errs = append(errs, "PORT is required")
	} else {
		port, err := strconv.Atoi(cfg.Port)
		if err != nil || port < 1 || port > 65535 {
			errs = append(errs, fmt.Sprintf("PORT must be a valid port number between 1 and 65535 (got '%s')", cfg.Port))
		}
	}

	// Required: CONTENT_DIR
	cfg.ContentDir = os.Getenv("CONTENT_DIR")
	if cfg.ContentDir == "" {
		errs = append(errs, "CONTENT_DIR is required")
	}

	// Optional: OTEL_EXPORTER_OTLP_ENDPOINT (host:port, empty disables tracing)
	cfg.OTLPEndpoint = os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT")
	if cfg.OTLPEndpoint != "" && !isValidHostPort(cfg.OTLPEndpoint) {
		errs = append(errs, fmt.Sprintf("OTEL_EXPORTER_OTLP_ENDPOINT must be in format 'host:port' (got '%s')", cfg.OTLPEndpoint))
	}

	// Optional: GO_ENV (defaults to "production")
	cfg.GoEnv = os.Getenv("GO_ENV")
	if cfg.GoEnv == "" {
		cfg.GoEnv = "production"
	}

	// Optional: LOG_LEVEL (defaults to "info")
	cfg.LogLevel = os.Getenv("LOG_LEVEL")
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}

	cfg.AllowedOrigins = os.Getenv("ALLOWED_ORIGINS")

	// Room lifecycle
	cfg.RoomCleanupEnabled = getEnvBoolOrDefault("ROOM_CLEANUP_ENABLED", true)
	cfg.RoomCleanupIntervalSeconds = getEnvIntOrError("ROOM_CLEANUP_INTERVAL_SECONDS", 30, &errs)
	cfg.RoomWithoutHostTTLMinutes = getEnvIntOrError("ROOM_WITHOUT_HOST_TTL_MINUTES", 10, &errs)
	cfg.DisconnectedPlayerGraceSeconds = getEnvIntOrError("DISCONNECTED_PLAYER_GRACE_SECONDS", 60, &errs)

	// Autoplay
	cfg.AutoplayEnabled = getEnvBoolOrDefault("AUTOPLAY_ENABLED", false)
	cfg.AutoplayPollIntervalMs = getEnvIntOrError("AUTOPLAY_POLL_INTERVAL_MS", 500, &errs)
	cfg.AutoplayMinActionDelayMs = getEnvIntOrError("AUTOPLAY_MIN_ACTION_DELAY_MS", 800, &errs)
	cfg.AutoplayMaxActionDelayMs = getEnvIntOrError("AUTOPLAY_MAX_ACTION_DELAY_MS", 4000, &errs)
	if cfg.AutoplayEnabled && cfg.AutoplayMinActionDelayMs > cfg.AutoplayMaxActionDelayMs {
		errs = append(errs, fmt.Sprintf("AUTOPLAY_MIN_ACTION_DELAY_MS (%d) must not exceed AUTOPLAY_MAX_ACTION_DELAY_MS (%d)", cfg.AutoplayMinActionDelayMs, cfg.AutoplayMaxActionDelayMs))
	}

	// Rate limit: websocket inbound commands (ulule/limiter formatted rate)
	cfg.RateLimitWsCommands = getEnvOrDefault("RATE_LIMIT_WS_COMMANDS", "30-M")

	if len(errs) > 0 {
		return nil, fmt.Errorf("environment validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}

	logValidatedConfig(cfg)

	return cfg, nil
}

// isValidHostPort checks if a string is in the format "host:port"
func isValidHostPort(addr string) bool {
	parts := strings.Split(addr, ":")
	if len(parts) != 2 {
		return false
	}

	port, err := strconv.Atoi(parts[1])
	if err != nil || port < 1 || port > 65535 {
		return false
	}

	if parts[0] == "" {
		return false
	}

	return true
}

// logValidatedConfig logs the validated configuration.
func logValidatedConfig(cfg *Config) {
	slog.Info("environment configuration validated")
	slog.Info("configuration",
		"port", cfg.Port,
		"content_dir", cfg.ContentDir,
		"go_env", cfg.GoEnv,
		"log_level", cfg.LogLevel,
		"otlp_endpoint", cfg.OTLPEndpoint,
		"room_cleanup_enabled", cfg.RoomCleanupEnabled,
		"room_cleanup_interval_seconds", cfg.RoomCleanupIntervalSeconds,
		"room_without_host_ttl_minutes", cfg.RoomWithoutHostTTLMinutes,
		"disconnected_player_grace_seconds", cfg.DisconnectedPlayerGraceSeconds,
		"autoplay_enabled", cfg.AutoplayEnabled,
		"rate_limit_ws_commands", cfg.RateLimitWsCommands,
	)
}

// getEnvOrDefault returns the value of the environment variable or a default value if not set.
func getEnvOrDefault(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

// getEnvBoolOrDefault returns the parsed boolean value of the environment variable or a default.
func getEnvBoolOrDefault(key string, defaultValue bool) bool {
	value, exists := os.LookupEnv(key)
	if !exists {
		return defaultValue
	}
	return value == "true"
}

// getEnvIntOrError returns the parsed integer value of the environment variable, the default
// if unset, or appends a validation error if the value is set but not a valid integer.
func getEnvIntOrError(key string, defaultValue int, errs *[]string) int {
	value, exists := os.LookupEnv(key)
	if !exists || value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		*errs = append(*errs, fmt.Sprintf("%s must be a valid integer (got '%s')", key, value))
		return defaultValue
	}
	return n
}
