// Package config handles application configuration from environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration.
type Config struct {
	// Server settings
	Port         int
	BaseURL      string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration

	// Authentication
	APIPassword string

	// External tool settings
	YtDlpPath      string
	DownloadsDir   string
	AnalyzeTimeout time.Duration

	// Session lifecycle
	SessionRetention time.Duration // how long terminal sessions stay readable
	StallThreshold   time.Duration // silence before progress interpolation kicks in

	// Progress stream
	ProgressInterval    time.Duration
	ProgressMaxLifetime time.Duration
	ProgressGraceDelay  time.Duration

	// File delivery
	FileGraceDelay time.Duration // delay before a served file is removed

	// Cookie passthrough
	CookiesDir   string
	CookieMaxAge time.Duration

	// Outbound connectivity
	GlobalProxies []string

	// Logging
	LogLevel string
	LogJSON  bool
}

// Load reads configuration from environment variables with sensible defaults.
func Load() *Config {
	port := getEnvInt("PORT", 5000)
	cfg := &Config{
		Port:                port,
		BaseURL:             getEnvString("BASE_URL", fmt.Sprintf("http://localhost:%d", port)),
		ReadTimeout:         getEnvDuration("READ_TIMEOUT", 30*time.Second),
		WriteTimeout:        getEnvDuration("WRITE_TIMEOUT", 0), // SSE needs an unbounded write window
		IdleTimeout:         getEnvDuration("IDLE_TIMEOUT", 60*time.Second),
		APIPassword:         os.Getenv("API_PASSWORD"),
		YtDlpPath:           getEnvString("YTDLP_PATH", "yt-dlp"),
		DownloadsDir:        getEnvString("DOWNLOADS_DIR", "downloads"),
		AnalyzeTimeout:      getEnvDuration("ANALYZE_TIMEOUT", 90*time.Second),
		SessionRetention:    getEnvDuration("SESSION_RETENTION", 30*time.Second),
		StallThreshold:      getEnvDuration("STALL_THRESHOLD", 2*time.Second),
		ProgressInterval:    getEnvDuration("PROGRESS_INTERVAL", 1*time.Second),
		ProgressMaxLifetime: getEnvDuration("PROGRESS_MAX_LIFETIME", 30*time.Minute),
		ProgressGraceDelay:  getEnvDuration("PROGRESS_GRACE_DELAY", 1*time.Second),
		FileGraceDelay:      getEnvDuration("FILE_GRACE_DELAY", 10*time.Second),
		CookiesDir:          getEnvString("COOKIES_DIR", "cookies"),
		CookieMaxAge:        getEnvDuration("COOKIE_MAX_AGE", 48*time.Hour),
		GlobalProxies:       getEnvStringSlice("GLOBAL_PROXIES", nil),
		LogLevel:            getEnvString("LOG_LEVEL", "info"),
		LogJSON:             getEnvBool("LOG_JSON", false),
	}

	// Legacy single proxy support
	if globalProxy := os.Getenv("GLOBAL_PROXY"); globalProxy != "" && len(cfg.GlobalProxies) == 0 {
		cfg.GlobalProxies = []string{globalProxy}
	}

	return cfg
}

func getEnvString(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		return strings.ToLower(val) == "true" || val == "1"
	}
	return defaultVal
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		// Try parsing as seconds first
		if secs, err := strconv.Atoi(val); err == nil {
			return time.Duration(secs) * time.Second
		}
		// Try parsing as duration string
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	return defaultVal
}

func getEnvStringSlice(key string, defaultVal []string) []string {
	if val := os.Getenv(key); val != "" {
		parts := strings.Split(val, ",")
		result := make([]string, 0, len(parts))
		for _, p := range parts {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				result = append(result, trimmed)
			}
		}
		return result
	}
	return defaultVal
}
