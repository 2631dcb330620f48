package types

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// LoadConfig returns DefaultConfig overlaid with values from the environment.
// Call godotenv.Load before this to pick up a .env file.
func LoadConfig() *Config {
	c := DefaultConfig()

	c.RequestDelay = getEnvDuration("EXTRACTOR_REQUEST_DELAY", c.RequestDelay)
	c.MaxRetries = getEnvInt("EXTRACTOR_MAX_RETRIES", c.MaxRetries)
	c.RetryDelay = getEnvDuration("EXTRACTOR_RETRY_DELAY", c.RetryDelay)
	c.Timeout = getEnvDuration("EXTRACTOR_TIMEOUT", c.Timeout)
	c.UseHeadlessBrowser = getEnvBool("EXTRACTOR_BROWSER", c.UseHeadlessBrowser)
	c.UserAgent = getEnv("EXTRACTOR_USER_AGENT", c.UserAgent)
	c.OutputDir = getEnv("EXTRACTOR_OUTPUT_DIR", c.OutputDir)
	c.SQLitePath = getEnv("EXTRACTOR_SQLITE_PATH", c.SQLitePath)
	c.Limit = getEnvInt("EXTRACTOR_LIMIT", c.Limit)
	c.ProgressEvery = getEnvInt("EXTRACTOR_PROGRESS_EVERY", c.ProgressEvery)

	c.CacheBackend = strings.ToLower(getEnv("CACHE_BACKEND", c.CacheBackend))
	c.CacheAddr = getEnv("CACHE_ADDR", c.CacheAddr)
	c.CacheTTL = getEnvDuration("CACHE_TTL", c.CacheTTL)

	c.MetricsAddr = getEnv("METRICS_ADDR", c.MetricsAddr)

	return c
}

// getEnv gets an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value, exists := os.LookupEnv(key); exists {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value, exists := os.LookupEnv(key); exists {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

// getEnvDuration accepts Go durations ("1500ms") or plain seconds ("2")
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value, exists := os.LookupEnv(key)
	if !exists {
		return defaultValue
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if secs, err := strconv.ParseFloat(value, 64); err == nil {
		return time.Duration(secs * float64(time.Second))
	}
	return defaultValue
}
