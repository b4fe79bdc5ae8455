package config

import (
	"log/slog"
	"strings"
	"testing"
	"time"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"APP_ENV", "LOG_LEVEL",
		"GIOS_BASE_URL", "NOMINATIM_BASE_URL",
		"HTTP_USER_AGENT", "HTTP_TIMEOUT",
		"GIOS_RPS", "NOMINATIM_RPS",
		"ARCHIVE_DIR", "CHART_WIDTH", "CHART_HEIGHT",
		"DB_DRIVER", "DB_DSN", "SQLITE_PATH",
		"DB_MAX_OPEN_CONNS", "DB_MAX_IDLE_CONNS", "DB_CONN_MAX_LIFETIME",
	} {
		t.Setenv(key, "")
	}
}

func TestLoadFromEnv_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := LoadFromEnv()
	if err != nil {
		t.Fatalf("LoadFromEnv: %v", err)
	}
	if cfg.AppEnv != "dev" {
		t.Errorf("AppEnv = %q, want dev", cfg.AppEnv)
	}
	if cfg.LogLevel != slog.LevelInfo {
		t.Errorf("LogLevel = %v, want info", cfg.LogLevel)
	}
	if cfg.GiosBaseURL != "https://api.gios.gov.pl/pjp-api/rest" {
		t.Errorf("GiosBaseURL = %q", cfg.GiosBaseURL)
	}
	if cfg.NominatimBaseURL != "https://nominatim.openstreetmap.org" {
		t.Errorf("NominatimBaseURL = %q", cfg.NominatimBaseURL)
	}
	if cfg.NominatimRPS != 1 {
		t.Errorf("NominatimRPS = %v, want 1", cfg.NominatimRPS)
	}
	if cfg.HTTPTimeout != 15*time.Second {
		t.Errorf("HTTPTimeout = %v, want 15s", cfg.HTTPTimeout)
	}
	if cfg.ChartWidth != 1024 || cfg.ChartHeight != 600 {
		t.Errorf("chart size = %dx%d, want 1024x600", cfg.ChartWidth, cfg.ChartHeight)
	}
	if cfg.Driver != "sqlite3" {
		t.Errorf("Driver = %q, want sqlite3", cfg.Driver)
	}
	if !strings.HasSuffix(cfg.Path, "index.db") {
		t.Errorf("Path = %q, want default under ArchiveDir", cfg.Path)
	}
}

func TestLoadFromEnv_TrimsWhitespace(t *testing.T) {
	clearEnv(t)
	t.Setenv("APP_ENV", "  prod  ")
	t.Setenv("LOG_LEVEL", " debug ")
	t.Setenv("GIOS_BASE_URL", " https://example.com/rest/ ")

	cfg, err := LoadFromEnv()
	if err != nil {
		t.Fatalf("LoadFromEnv: %v", err)
	}
	if cfg.AppEnv != "prod" {
		t.Errorf("AppEnv = %q, want prod", cfg.AppEnv)
	}
	if cfg.LogLevel != slog.LevelDebug {
		t.Errorf("LogLevel = %v, want debug", cfg.LogLevel)
	}
	if cfg.GiosBaseURL != "https://example.com/rest" {
		t.Errorf("GiosBaseURL = %q, want trimmed without trailing slash", cfg.GiosBaseURL)
	}
}

func TestLoadFromEnv_Invalid(t *testing.T) {
	cases := []struct {
		name  string
		key   string
		value string
	}{
		{"app env", "APP_ENV", "staging"},
		{"log level", "LOG_LEVEL", "verbose"},
		{"base url scheme", "GIOS_BASE_URL", "ftp://example.com"},
		{"timeout", "HTTP_TIMEOUT", "soon"},
		{"negative timeout", "HTTP_TIMEOUT", "-1s"},
		{"rps", "NOMINATIM_RPS", "fast"},
		{"zero rps", "GIOS_RPS", "0"},
		{"chart width", "CHART_WIDTH", "-5"},
		{"max open conns", "DB_MAX_OPEN_CONNS", "many"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(tc.key, tc.value)
			if _, err := LoadFromEnv(); err == nil {
				t.Errorf("LoadFromEnv accepted %s=%q", tc.key, tc.value)
			}
		})
	}
}
