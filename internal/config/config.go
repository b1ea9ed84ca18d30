// Package config reads service configuration from the environment.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type EventsCfg struct {
	Enabled bool
	Brokers string
	Topic   string
}

type Config struct {
	Addr     string
	LogLevel string

	// DefaultCRS is used when a request does not name a target system.
	DefaultCRS string
	// DefaultSliverThreshold in squared CRS units; requests override it.
	DefaultSliverThreshold float64

	PreprocessWorkers int
	LayerCacheSize    int

	CacheEnabled   bool
	RedisAddr      string
	CacheOpTimeout time.Duration
	CacheTTL       time.Duration

	CoverageRes int

	Events EventsCfg
}

func FromEnv() Config {
	return Config{
		Addr:                   getenv("ADDR", ":8092"),
		LogLevel:               getenv("LOG_LEVEL", "info"),
		DefaultCRS:             getenv("DEFAULT_CRS", "EPSG:25832"),
		DefaultSliverThreshold: getfloat("SLIVER_THRESHOLD", 100),
		PreprocessWorkers:      getint("PREPROCESS_WORKERS", 8),
		LayerCacheSize:         getint("LAYER_CACHE_SIZE", 64),
		CacheEnabled:           getbool("CACHE_ENABLED", false),
		RedisAddr:              getenv("REDIS_ADDR", "localhost:6379"),
		CacheOpTimeout:         getduration("CACHE_OP_TIMEOUT", 250*time.Millisecond),
		CacheTTL:               getduration("CACHE_TTL", 10*time.Minute),
		CoverageRes:            clampRes(getint("H3_COVERAGE_RES", 7)),
		Events: EventsCfg{
			Enabled: getbool("EVENTS_ENABLED", false),
			Brokers: getenv("KAFKA_BROKERS", "localhost:9092"),
			Topic:   getenv("KAFKA_TOPIC", "eligibility-runs"),
		},
	}
}

func clampRes(res int) int {
	if res < 0 {
		return 0
	}
	if res > 15 {
		return 15
	}
	return res
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func getint(k string, def int) int {
	if v := os.Getenv(k); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getfloat(k string, def float64) float64 {
	if v := os.Getenv(k); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func getbool(k string, def bool) bool {
	if v := os.Getenv(k); v != "" {
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "1", "t", "true", "y", "yes":
			return true
		case "0", "f", "false", "n", "no":
			return false
		}
	}
	return def
}

func getduration(k string, def time.Duration) time.Duration {
	if v := os.Getenv(k); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}
