package config

import (
	"fmt"
	"os"
	"strconv"
)

// Config holds all application configuration loaded from environment
// variables. It is immutable after Load() returns.
type Config struct {
	Port                int
	Environment         string
	PostgresURL         string
	DatabaseMaxConns    int
	SupabaseURL         string
	SupabaseAnonKey     string
	RescrapeCronSecret  string
	OpenAIAPIKey        string
	ItzamAPIKey         string
	ItzamAPIURL         string
	TikaURL             string
	AppURL              string
	GCPProject          string
	VertexLocation      string
	RedisURL            string
	MaxConcurrentBatches int
	FirebaseProjectID   string
}

// Load reads configuration from environment variables. POSTGRES_URL is the
// only value whose absence is an unrecoverable startup misconfiguration;
// everything else falls back to the documented default.
func Load() (*Config, error) {
	postgresURL := os.Getenv("POSTGRES_URL")
	if postgresURL == "" {
		return nil, fmt.Errorf("config.Load: POSTGRES_URL is required")
	}

	cfg := &Config{
		Port:                 envInt("PORT", 8080),
		Environment:          envStr("ENVIRONMENT", "development"),
		PostgresURL:          postgresURL,
		DatabaseMaxConns:     envInt("DATABASE_MAX_CONNS", 10),
		SupabaseURL:          os.Getenv("NEXT_PUBLIC_SUPABASE_URL"),
		SupabaseAnonKey:      os.Getenv("SUPABASE_ANON_KEY"),
		RescrapeCronSecret:   os.Getenv("RESCRAPE_CRON_SECRET"),
		OpenAIAPIKey:         os.Getenv("OPENAI_API_KEY"),
		ItzamAPIKey:          os.Getenv("ITZAM_API_KEY"),
		ItzamAPIURL:          envStr("ITZAM_API_URL", "https://itz.am/api/v1"),
		TikaURL:              envStr("TIKA_URL", "https://tika.yllw.software/tika"),
		AppURL:               envStr("NEXT_PUBLIC_APP_URL", "http://localhost:3000"),
		GCPProject:           os.Getenv("GOOGLE_CLOUD_PROJECT"),
		VertexLocation:       envStr("VERTEX_LOCATION", "us-central1"),
		RedisURL:             envStr("REDIS_URL", "redis://localhost:6379"),
		MaxConcurrentBatches: envInt("MAX_CONCURRENT_BATCHES", 8),
		FirebaseProjectID:    os.Getenv("FIREBASE_PROJECT_ID"),
	}

	return cfg, nil
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}
