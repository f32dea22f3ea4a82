package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds everything the glue endpoint server needs.
type Config struct {
	// Server
	Port string

	// CI event ingest
	IngestToken     string
	EventsDir       string
	DownstreamURL   string
	DownstreamToken string

	// Contact form
	AllowedOrigins []string
	EmailAPIURL    string
	EmailAPIKey    string
	EmailFrom      string
	ContactTo      string

	// Outbound calls
	ForwardTimeout time.Duration

	// Rate limiting
	RateLimitRPS   int
	RateLimitBurst int
}

// Load reads configuration from the environment, with a .env file as an
// optional source.
func Load() (*Config, error) {
	// Load .env file if it exists (ignore error if not found)
	_ = godotenv.Load()

	cfg := &Config{
		Port:            getEnv("PORT", "8787"),
		IngestToken:     os.Getenv("INGEST_TOKEN"),
		EventsDir:       getEnv("EVENTS_DIR", "./data/ci-events"),
		DownstreamURL:   os.Getenv("DOWNSTREAM_INGEST_URL"),
		DownstreamToken: os.Getenv("DOWNSTREAM_INGEST_TOKEN"),
		EmailAPIURL:     getEnv("EMAIL_API_URL", "https://api.resend.com/emails"),
		EmailAPIKey:     os.Getenv("EMAIL_API_KEY"),
		EmailFrom:       os.Getenv("EMAIL_FROM"),
		ContactTo:       os.Getenv("CONTACT_TO"),
	}

	for _, origin := range strings.Split(os.Getenv("ALLOWED_ORIGINS"), ",") {
		origin = strings.TrimSpace(origin)
		if origin != "" {
			cfg.AllowedOrigins = append(cfg.AllowedOrigins, origin)
		}
	}

	var err error
	cfg.ForwardTimeout, err = time.ParseDuration(getEnv("FORWARD_TIMEOUT", "10s"))
	if err != nil {
		return nil, fmt.Errorf("invalid FORWARD_TIMEOUT: %w", err)
	}

	cfg.RateLimitRPS, err = strconv.Atoi(getEnv("RATE_LIMIT_RPS", "20"))
	if err != nil {
		return nil, fmt.Errorf("invalid RATE_LIMIT_RPS: %w", err)
	}

	cfg.RateLimitBurst, err = strconv.Atoi(getEnv("RATE_LIMIT_BURST", "40"))
	if err != nil {
		return nil, fmt.Errorf("invalid RATE_LIMIT_BURST: %w", err)
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
