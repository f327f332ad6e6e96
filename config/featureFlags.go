package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

func envBool(key string) bool {
	v := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	return v == "1" || v == "true" || v == "yes" || v == "y"
}

// MigrationsEnabled is false when SKIP_MIGRATIONS is set.
func MigrationsEnabled() bool {
	return !envBool("SKIP_MIGRATIONS")
}

// RateLimitEnabled turns on the redis fixed-window limiter.
//
// Set via env:
// - RATE_LIMIT_ENABLED=true
// - RATE_LIMIT_WINDOW_SECONDS=60
// - RATE_LIMIT_MAX_REQUESTS=600
func RateLimitEnabled() bool {
	return envBool("RATE_LIMIT_ENABLED")
}

func RateLimitSettings() (int64, time.Duration) {
	limit := int64(intFromEnv("RATE_LIMIT_MAX_REQUESTS", 600))
	window := time.Duration(intFromEnv("RATE_LIMIT_WINDOW_SECONDS", 60)) * time.Second
	return limit, window
}

// OutboxPublishEnabled starts the ledger event dispatcher. Requires PUBSUB_TOPIC.
func OutboxPublishEnabled() bool {
	return envBool("OUTBOX_PUBLISH_ENABLED") && strings.TrimSpace(os.Getenv("PUBSUB_TOPIC")) != ""
}

// RequireIdempotencyKey rejects create requests that do not carry an Idempotency-Key header.
func RequireIdempotencyKey() bool {
	return envBool("REQUIRE_IDEMPOTENCY_KEY")
}

// PostingLockTTL bounds how long a party lock is held across instances.
func PostingLockTTL() time.Duration {
	return time.Duration(intFromEnv("POSTING_LOCK_TTL_SECONDS", 30)) * time.Second
}

// CacheLifespan controls how long master data stays in redis (CACHE_LIFESPAN hours).
func CacheLifespan() time.Duration {
	hours, err := strconv.Atoi(strings.TrimSpace(os.Getenv("CACHE_LIFESPAN")))
	if err != nil || hours <= 0 {
		hours = 24
	}
	return time.Duration(hours) * time.Hour
}

// SplitCSV trims and drops empty parts.
func SplitCSV(csv string) []string {
	parts := strings.Split(csv, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
