package config

import (
	"os"
	"strings"
	"testing"
)

var managedVars = []string{
	"PORT", "CONTENT_DIR", "GO_ENV", "LOG_LEVEL", "ALLOWED_ORIGINS",
	"OTEL_EXPORTER_OTLP_ENDPOINT",
	"ROOM_CLEANUP_ENABLED", "ROOM_CLEANUP_INTERVAL_SECONDS",
	"ROOM_WITHOUT_HOST_TTL_MINUTES", "DISCONNECTED_PLAYER_GRACE_SECONDS",
	"AUTOPLAY_ENABLED", "AUTOPLAY_POLL_INTERVAL_MS",
	"AUTOPLAY_MIN_ACTION_DELAY_MS", "AUTOPLAY_MAX_ACTION_DELAY_MS",
	"RATE_LIMIT_WS_COMMANDS",
}

// setupTestEnv clears all config-related env vars and returns a restore function.
func setupTestEnv(t *testing.T) func() {
	orig := map[string]string{}
	for _, key := range managedVars {
		orig[key] = os.Getenv(key)
		os.Unsetenv(key)
	}

	return func() {
		for key, val := range orig {
			if val != "" {
				os.Setenv(key, val)
			} else {
				os.Unsetenv(key)
			}
		}
	}
}

func TestValidateEnv_ValidConfiguration(t *testing.T) {
	cleanup := setupTestEnv(t)
	defer cleanup()

	os.Setenv("PORT", "8080")
	os.Setenv("CONTENT_DIR", "/etc/partyquiz/content")

	cfg, err := ValidateEnv()
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if cfg.Port != "8080" {
		t.Errorf("Expected PORT to be '8080', got '%s'", cfg.Port)
	}
	if cfg.ContentDir != "/etc/partyquiz/content" {
		t.Errorf("Expected CONTENT_DIR to be set correctly, got '%s'", cfg.ContentDir)
	}
	if cfg.GoEnv != "production" {
		t.Errorf("Expected GO_ENV to default to 'production', got '%s'", cfg.GoEnv)
	}
	if cfg.LogLevel != "info" {
		t.Errorf("Expected LOG_LEVEL to default to 'info', got '%s'", cfg.LogLevel)
	}
	if !cfg.RoomCleanupEnabled {
		t.Errorf("Expected ROOM_CLEANUP_ENABLED to default to true")
	}
	if cfg.RoomCleanupIntervalSeconds != 30 {
		t.Errorf("Expected ROOM_CLEANUP_INTERVAL_SECONDS to default to 30, got %d", cfg.RoomCleanupIntervalSeconds)
	}
	if cfg.RateLimitWsCommands != "30-M" {
		t.Errorf("Expected RATE_LIMIT_WS_COMMANDS to default to '30-M', got '%s'", cfg.RateLimitWsCommands)
	}
}

func TestValidateEnv_MissingPort(t *testing.T) {
	cleanup := setupTestEnv(t)
	defer cleanup()

	os.Setenv("CONTENT_DIR", "/etc/partyquiz/content")

	_, err := ValidateEnv()
	if err == nil {
		t.Fatal("Expected error for missing PORT, got nil")
	}
	if !strings.Contains(err.Error(), "PORT is required") {
		t.Errorf("Expected error message about PORT, got: %v", err)
	}
}

func TestValidateEnv_InvalidPort(t *testing.T) {
	cleanup := setupTestEnv(t)
	defer cleanup()

	os.Setenv("PORT", "99999")
	os.Setenv("CONTENT_DIR", "/etc/partyquiz/content")

	_, err := ValidateEnv()
	if err == nil {
		t.Fatal("Expected error for invalid PORT, got nil")
	}
	if !strings.Contains(err.Error(), "PORT must be a valid port number") {
		t.Errorf("Expected error message about invalid PORT, got: %v", err)
	}
}

func TestValidateEnv_MissingContentDir(t *testing.T) {
	cleanup := setupTestEnv(t)
	defer cleanup()

	os.Setenv("PORT", "8080")

	_, err := ValidateEnv()
	if err == nil {
		t.Fatal("Expected error for missing CONTENT_DIR, got nil")
	}
	if !strings.Contains(err.Error(), "CONTENT_DIR is required") {
		t.Errorf("Expected error message about CONTENT_DIR, got: %v", err)
	}
}

func TestValidateEnv_InvalidOTLPEndpoint(t *testing.T) {
	cleanup := setupTestEnv(t)
	defer cleanup()

	os.Setenv("PORT", "8080")
	os.Setenv("CONTENT_DIR", "/etc/partyquiz/content")
	os.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "not-a-host-port")

	_, err := ValidateEnv()
	if err == nil {
		t.Fatal("Expected error for invalid OTEL_EXPORTER_OTLP_ENDPOINT, got nil")
	}
	if !strings.Contains(err.Error(), "OTEL_EXPORTER_OTLP_ENDPOINT must be in format 'host:port'") {
		t.Errorf("Expected error message about OTLP endpoint format, got: %v", err)
	}
}

func TestValidateEnv_AutoplayDelayRangeInvalid(t *testing.T) {
	cleanup := setupTestEnv(t)
	defer cleanup()

	os.Setenv("PORT", "8080")
	os.Setenv("CONTENT_DIR", "/etc/partyquiz/content")
	os.Setenv("AUTOPLAY_ENABLED", "true")
	os.Setenv("AUTOPLAY_MIN_ACTION_DELAY_MS", "5000")
	os.Setenv("AUTOPLAY_MAX_ACTION_DELAY_MS", "1000")

	_, err := ValidateEnv()
	if err == nil {
		t.Fatal("Expected error for inverted autoplay delay range, got nil")
	}
	if !strings.Contains(err.Error(), "must not exceed") {
		t.Errorf("Expected error message about autoplay delay range, got: %v", err)
	}
}

func TestValidateEnv_OptionalDefaults(t *testing.T) {
	cleanup := setupTestEnv(t)
	defer cleanup()

	os.Setenv("PORT", "8080")
	os.Setenv("CONTENT_DIR", "/etc/partyquiz/content")

	cfg, err := ValidateEnv()
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if cfg.AutoplayEnabled {
		t.Errorf("Expected AUTOPLAY_ENABLED to default to false")
	}
	if cfg.AutoplayPollIntervalMs != 500 {
		t.Errorf("Expected AUTOPLAY_POLL_INTERVAL_MS to default to 500, got %d", cfg.AutoplayPollIntervalMs)
	}
	if cfg.RoomWithoutHostTTLMinutes != 10 {
		t.Errorf("Expected ROOM_WITHOUT_HOST_TTL_MINUTES to default to 10, got %d", cfg.RoomWithoutHostTTLMinutes)
	}
	if cfg.DisconnectedPlayerGraceSeconds != 60 {
		t.Errorf("Expected DISCONNECTED_PLAYER_GRACE_SECONDS to default to 60, got %d", cfg.DisconnectedPlayerGraceSeconds)
	}
}

func TestIsValidHostPort(t *testing.T) {
	tests := []struct {
		name     string
		addr     string
		expected bool
	}{
		{"Valid localhost", "localhost:8080", true},
		{"Valid IP", "127.0.0.1:3000", true},
		{"Valid hostname", "example.com:443", true},
		{"Missing port", "localhost", false},
		{"Missing host", ":8080", false},
		{"Invalid port", "localhost:99999", false},
		{"Non-numeric port", "localhost:abc", false},
		{"Multiple colons", "localhost:8080:9090", false},
		{"Empty string", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := isValidHostPort(tt.addr)
			if result != tt.expected {
				t.Errorf("isValidHostPort('%s') = %v, expected %v", tt.addr, result, tt.expected)
			}
		})
	}
}
