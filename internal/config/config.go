// Package config reads eventfeed settings from the environment, after
// loading optional .env.local and .env files.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds every runtime setting of the updater and the dataset server.
type Config struct {
	Output     string
	Sources    string
	MaxItems   int
	Timeout    time.Duration
	RateLimit  float64
	LogLevel   string
	LogDev     bool
	Addr       string
	AdminToken string
}

const (
	DefaultOutput    = "data.json"
	DefaultMaxItems  = 200
	DefaultTimeout   = 20 * time.Second
	DefaultRateLimit = 2.0
	DefaultAddr      = ":8081"
)

// LoadEnvFiles loads .env.local then .env from the working directory.
// Variables already set in the environment are never overridden, and
// missing files are not an error.
func LoadEnvFiles(files ...string) error {
	if len(files) == 0 {
		files = []string{".env.local", ".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("load %s: %w", f, err)
		}
	}
	return nil
}

// Load reads configuration from environment variables with defaults.
func Load() Config {
	return Config{
		Output:     getenv("EVENTFEED_OUTPUT", DefaultOutput),
		Sources:    os.Getenv("EVENTFEED_SOURCES"),
		MaxItems:   getenvInt("EVENTFEED_MAX_ITEMS", DefaultMaxItems),
		Timeout:    time.Duration(getenvInt("EVENTFEED_TIMEOUT_SECONDS", int(DefaultTimeout/time.Second))) * time.Second,
		RateLimit:  getenvFloat("EVENTFEED_RATE_LIMIT_RPS", DefaultRateLimit),
		LogLevel:   getenv("EVENTFEED_LOG_LEVEL", "info"),
		LogDev:     getenvBool("EVENTFEED_LOG_DEV", false),
		Addr:       getenv("EVENTFEED_ADDR", DefaultAddr),
		AdminToken: strings.TrimSpace(os.Getenv("ADMIN_SECRET")),
	}
}

func getenv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

// getenvInt falls back on unset, malformed or non-positive values.
func getenvInt(key string, fallback int) int {
	n, err := strconv.Atoi(strings.TrimSpace(os.Getenv(key)))
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}

func getenvFloat(key string, fallback float64) float64 {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback
	}
	return f
}

func getenvBool(key string, fallback bool) bool {
	b, err := strconv.ParseBool(strings.TrimSpace(os.Getenv(key)))
	if err != nil {
		return fallback
	}
	return b
}
