// Package config loads application configuration from environment variables.
// All variables use the TUTR_ prefix.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Cache     CacheConfig
	Data      DataConfig
	Recommend RecommendConfig
	Log       LogConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port int
	Host string
}

// DatabaseConfig holds PostgreSQL connection settings. An empty URL runs the
// service without persistence (in-memory progress only).
type DatabaseConfig struct {
	URL      string
	MaxConns int
	MinConns int
}

// CacheConfig holds Redis connection settings. An empty URL disables the
// Redis progress store.
type CacheConfig struct {
	URL string
}

// DataConfig holds question bank ingestion settings.
type DataConfig struct {
	Path                   string // file or directory of question bank files
	GeneralConceptFallback bool   // scope orphan subconcepts under "General"
}

// RecommendConfig holds recommendation engine settings.
type RecommendConfig struct {
	MaxLimit int // cap on questions returned per request
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string
	Format string
}

// Load reads configuration from environment variables with TUTR_ prefix.
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port: envInt("TUTR_SERVER_PORT", 8080),
			Host: envStr("TUTR_SERVER_HOST", "0.0.0.0"),
		},
		Database: DatabaseConfig{
			URL:      envStr("TUTR_DATABASE_URL", ""),
			MaxConns: envInt("TUTR_DATABASE_MAX_CONNS", 25),
			MinConns: envInt("TUTR_DATABASE_MIN_CONNS", 5),
		},
		Cache: CacheConfig{
			URL: envStr("TUTR_CACHE_URL", ""),
		},
		Data: DataConfig{
			Path:                   envStr("TUTR_DATA_PATH", "data/questions.json"),
			GeneralConceptFallback: envBool("TUTR_DATA_GENERAL_CONCEPT_FALLBACK", false),
		},
		Recommend: RecommendConfig{
			MaxLimit: envInt("TUTR_MAX_RECOMMENDATIONS", 20),
		},
		Log: LogConfig{
			Level:  envStr("TUTR_LOG_LEVEL", "info"),
			Format: envStr("TUTR_LOG_FORMAT", "json"),
		},
	}

	return cfg, nil
}

// Validate checks that required configuration is present and sane.
func (c *Config) Validate() error {
	if c.Data.Path == "" {
		return fmt.Errorf("TUTR_DATA_PATH is required")
	}
	if c.Recommend.MaxLimit < 1 {
		return fmt.Errorf("TUTR_MAX_RECOMMENDATIONS must be >= 1, got %d", c.Recommend.MaxLimit)
	}
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("TUTR_SERVER_PORT must be a valid port, got %d", c.Server.Port)
	}
	if c.Database.URL != "" && c.Cache.URL != "" {
		return fmt.Errorf("TUTR_DATABASE_URL and TUTR_CACHE_URL are mutually exclusive progress stores")
	}
	return nil
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		return strings.EqualFold(v, "true") || v == "1"
	}
	return fallback
}
