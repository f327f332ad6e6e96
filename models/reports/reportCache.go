package reports

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"bitbucket.org/mmdatafocus/tradebooks_backend/config"
	"bitbucket.org/mmdatafocus/tradebooks_backend/models"
	"bitbucket.org/mmdatafocus/tradebooks_backend/utils"
)

// Report results are cached in redis under keys that embed models.ReportGeneration. Every committed
// write bumps the generation, so a cached report never outlives the posting that changes it; the
// TTL only bounds how long orphaned keys stay in redis.

func reportCacheEnabled() bool {
	v := strings.TrimSpace(os.Getenv("ENABLE_REPORT_CACHE"))
	return v == "1" || strings.EqualFold(v, "true") || strings.EqualFold(v, "yes") || strings.EqualFold(v, "on")
}

// Env: REPORT_CACHE_TTL_SECONDS (default 120s)
func reportCacheTTL() time.Duration {
	ttl := 120
	if v := strings.TrimSpace(os.Getenv("REPORT_CACHE_TTL_SECONDS")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			ttl = n
		}
	}
	return time.Duration(ttl) * time.Second
}

// Env: REPORT_SLOW_MS (default 500ms)
func reportSlowMs() int64 {
	ms := int64(500)
	if v := strings.TrimSpace(os.Getenv("REPORT_SLOW_MS")); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil && n > 0 {
			ms = n
		}
	}
	return ms
}

func gstReportKey(generation string, filter GSTReportFilter) string {
	return fmt.Sprintf("Report:%s:GST:%s:%s:%t", generation,
		formatOptionalDate(filter.From), formatOptionalDate(filter.To), filter.ExcludeDSeries)
}

func transitReportKey(generation string, filter TransitReportFilter) string {
	return fmt.Sprintf("Report:%s:Transit:%s:%s", generation, formatOptionalDate(filter.From), formatOptionalDate(filter.To))
}

// cachedReport serves name from redis when caching is on and the write generation can be read,
// otherwise it runs load. Cache failures never fail the report.
func cachedReport[T any](ctx context.Context, name string, keyOf func(generation string) string, load func() (T, error)) (T, error) {
	started := time.Now()
	generation, ok := "", false
	if reportCacheEnabled() {
		generation, ok = models.ReportGeneration()
	}
	var key string
	if ok {
		key = keyOf(generation)
		var cached T
		if hit, err := config.GetRedisObject(key, &cached); err == nil && hit {
			return cached, nil
		}
	}

	result, err := load()
	if err != nil {
		return result, err
	}
	if ok {
		if err := config.SetRedisObject(key, result, reportCacheTTL()); err != nil {
			config.LogError(config.GetLogger(), "Reports", "cachedReport", "cache set", key, err)
		}
	}
	logSlowReport(ctx, name, started)
	return result, nil
}

func logSlowReport(ctx context.Context, name string, started time.Time) {
	d := time.Since(started)
	if d.Milliseconds() < reportSlowMs() {
		return
	}
	cid, _ := utils.GetCorrelationIdFromContext(ctx)
	config.GetLogger().WithFields(logrus.Fields{
		"report":         name,
		"ms":             d.Milliseconds(),
		"correlation_id": cid,
	}).Warn("slow report")
}
