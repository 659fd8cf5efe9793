package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
)

// Config holds client-side settings. The API base URL and realtime endpoint
// are injected configuration, never computed.
type Config struct {
	APIBaseURL  string
	RealtimeURL string

	Username string
	Password string
	Token    string // pre-issued bearer token; skips login when set

	RequestTimeout time.Duration
	Debug          bool
	LogPretty      bool
}

// Load reads configuration from the environment, after loading a local .env
// file if one exists.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		APIBaseURL:     getEnv("FIELDCART_API_URL", "http://localhost:8000"),
		RealtimeURL:    getEnv("FIELDCART_WS_URL", "ws://localhost:8000/ws"),
		Username:       os.Getenv("FIELDCART_USERNAME"),
		Password:       os.Getenv("FIELDCART_PASSWORD"),
		Token:          os.Getenv("FIELDCART_TOKEN"),
		RequestTimeout: getEnvAsDuration("FIELDCART_REQUEST_TIMEOUT", 15*time.Second),
		Debug:          getEnvAsBool("FIELDCART_DEBUG", false),
		LogPretty:      getEnvAsBool("FIELDCART_LOG_PRETTY", true),
	}

	if cfg.APIBaseURL == "" {
		return nil, fmt.Errorf("FIELDCART_API_URL is required")
	}
	if cfg.RealtimeURL == "" {
		return nil, fmt.Errorf("FIELDCART_WS_URL is required")
	}

	return cfg, nil
}

// NewLogger builds the process logger according to the config.
func (c *Config) NewLogger() zerolog.Logger {
	level := zerolog.InfoLevel
	if c.Debug {
		level = zerolog.DebugLevel
	}
	var w = zerolog.New(os.Stderr)
	if c.LogPretty {
		w = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	}
	return w.Level(level).With().Timestamp().Logger()
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvAsBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}

func getEnvAsDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}
