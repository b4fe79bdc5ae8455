package config

import (
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	AppEnv   string
	LogLevel slog.Level

	// Provider endpoints. Both must be absolute http(s) URLs.
	GiosBaseURL      string
	NominatimBaseURL string

	// UserAgent identifies the client to both providers; the geocoding
	// service rejects anonymous clients.
	UserAgent   string
	HTTPTimeout time.Duration

	// Requests-per-second caps. The geocoding service's usage policy
	// caps clients at one request per second.
	GiosRPS      float64
	NominatimRPS float64

	// ArchiveDir is the absolute path of the snapshot directory.
	// Set via ARCHIVE_DIR (relative paths are resolved against the process
	// working directory at startup).
	ArchiveDir string

	ChartWidth  int
	ChartHeight int

	Driver          string
	DSN             string
	Path            string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

func LoadFromEnv() (Config, error) {
	appEnv := strings.TrimSpace(os.Getenv("APP_ENV"))
	if appEnv == "" {
		appEnv = "dev"
	}
	switch appEnv {
	case "dev", "prod":
	default:
		return Config{}, fmt.Errorf("invalid APP_ENV %q (allowed: dev, prod)", appEnv)
	}

	logLevelStr := strings.TrimSpace(os.Getenv("LOG_LEVEL"))
	if logLevelStr == "" {
		logLevelStr = "info"
	}
	level, err := parseLogLevel(logLevelStr)
	if err != nil {
		return Config{}, err
	}

	giosBaseURL, err := baseURLFromEnv("GIOS_BASE_URL", "https://api.gios.gov.pl/pjp-api/rest")
	if err != nil {
		return Config{}, err
	}
	nominatimBaseURL, err := baseURLFromEnv("NOMINATIM_BASE_URL", "https://nominatim.openstreetmap.org")
	if err != nil {
		return Config{}, err
	}

	userAgent := strings.TrimSpace(os.Getenv("HTTP_USER_AGENT"))
	if userAgent == "" {
		userAgent = "airmon/1.0"
	}

	httpTimeoutStr := strings.TrimSpace(os.Getenv("HTTP_TIMEOUT"))
	if httpTimeoutStr == "" {
		httpTimeoutStr = "15s"
	}
	httpTimeout, err := time.ParseDuration(httpTimeoutStr)
	if err != nil {
		return Config{}, fmt.Errorf("invalid HTTP_TIMEOUT %q: %w", httpTimeoutStr, err)
	}
	if httpTimeout <= 0 {
		return Config{}, fmt.Errorf("invalid HTTP_TIMEOUT %q: must be positive", httpTimeoutStr)
	}

	giosRPS, err := rpsFromEnv("GIOS_RPS", "5")
	if err != nil {
		return Config{}, err
	}
	nominatimRPS, err := rpsFromEnv("NOMINATIM_RPS", "1")
	if err != nil {
		return Config{}, err
	}

	archiveDir := strings.TrimSpace(os.Getenv("ARCHIVE_DIR"))
	if archiveDir == "" {
		archiveDir = "archive"
	}
	archiveDir, err = filepath.Abs(archiveDir)
	if err != nil {
		return Config{}, fmt.Errorf("ARCHIVE_DIR %q: %w", archiveDir, err)
	}

	chartWidth, err := positiveIntFromEnv("CHART_WIDTH", "1024")
	if err != nil {
		return Config{}, err
	}
	chartHeight, err := positiveIntFromEnv("CHART_HEIGHT", "600")
	if err != nil {
		return Config{}, err
	}

	driver := strings.TrimSpace(os.Getenv("DB_DRIVER"))
	if driver == "" {
		driver = "sqlite3"
	}
	dsn := strings.TrimSpace(os.Getenv("DB_DSN"))
	path := strings.TrimSpace(os.Getenv("SQLITE_PATH"))
	if path == "" {
		path = filepath.Join(archiveDir, "index.db")
	}

	maxOpenConnsStr := strings.TrimSpace(os.Getenv("DB_MAX_OPEN_CONNS"))
	if maxOpenConnsStr == "" {
		maxOpenConnsStr = "1"
	}
	maxOpenConns, err := strconv.Atoi(maxOpenConnsStr)
	if err != nil {
		return Config{}, fmt.Errorf("invalid DB_MAX_OPEN_CONNS %q: %w", maxOpenConnsStr, err)
	}

	maxIdleConnsStr := strings.TrimSpace(os.Getenv("DB_MAX_IDLE_CONNS"))
	if maxIdleConnsStr == "" {
		maxIdleConnsStr = "1"
	}
	maxIdleConns, err := strconv.Atoi(maxIdleConnsStr)
	if err != nil {
		return Config{}, fmt.Errorf("invalid DB_MAX_IDLE_CONNS %q: %w", maxIdleConnsStr, err)
	}

	connMaxLifetimeStr := strings.TrimSpace(os.Getenv("DB_CONN_MAX_LIFETIME"))
	if connMaxLifetimeStr == "" {
		connMaxLifetimeStr = "0s"
	}
	connMaxLifetime, err := time.ParseDuration(connMaxLifetimeStr)
	if err != nil {
		return Config{}, fmt.Errorf("invalid DB_CONN_MAX_LIFETIME %q: %w", connMaxLifetimeStr, err)
	}

	return Config{
		AppEnv:           appEnv,
		LogLevel:         level,
		GiosBaseURL:      giosBaseURL,
		NominatimBaseURL: nominatimBaseURL,
		UserAgent:        userAgent,
		HTTPTimeout:      httpTimeout,
		GiosRPS:          giosRPS,
		NominatimRPS:     nominatimRPS,
		ArchiveDir:       archiveDir,
		ChartWidth:       chartWidth,
		ChartHeight:      chartHeight,
		Driver:           driver,
		DSN:              dsn,
		Path:             path,
		MaxOpenConns:     maxOpenConns,
		MaxIdleConns:     maxIdleConns,
		ConnMaxLifetime:  connMaxLifetime,
	}, nil
}

func baseURLFromEnv(key, def string) (string, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		raw = def
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("invalid %s %q: %w", key, raw, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("invalid %s %q (must be an absolute http(s) URL)", key, raw)
	}
	return strings.TrimRight(raw, "/"), nil
}

func rpsFromEnv(key, def string) (float64, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		raw = def
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, raw, err)
	}
	if v <= 0 {
		return 0, fmt.Errorf("invalid %s %q: must be positive", key, raw)
	}
	return v, nil
}

func positiveIntFromEnv(key, def string) (int, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		raw = def
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, raw, err)
	}
	if v <= 0 {
		return 0, fmt.Errorf("invalid %s %q: must be positive", key, raw)
	}
	return v, nil
}

func parseLogLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("invalid LOG_LEVEL %q (allowed: debug, info, warn, error)", s)
	}
}
