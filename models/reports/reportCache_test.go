package reports

import (
	"context"
	"testing"
	"time"
)

func TestReportKeysFollowGeneration(t *testing.T) {
	from := time.Date(2026, 4, 1, 0, 0, 0, 0, time.Local)
	to := time.Date(2026, 4, 30, 0, 0, 0, 0, time.Local)
	filter := GSTReportFilter{From: &from, To: &to, ExcludeDSeries: true}

	if got := gstReportKey("7", filter); got != "Report:7:GST:2026-04-01:2026-04-30:true" {
		t.Fatalf("gst key = %s", got)
	}
	if gstReportKey("7", filter) == gstReportKey("8", filter) {
		t.Fatalf("a new write generation must change the key")
	}
	if gstReportKey("7", filter) == gstReportKey("7", GSTReportFilter{From: &from, To: &to}) {
		t.Fatalf("D series flag must be part of the key")
	}
	if got := transitReportKey("7", TransitReportFilter{From: &from}); got != "Report:7:Transit:2026-04-01:-" {
		t.Fatalf("transit key = %s", got)
	}
}

func TestCachedReportWithoutRedisLoadsEveryTime(t *testing.T) {
	t.Setenv("ENABLE_REPORT_CACHE", "true")
	loads := 0
	for i := 0; i < 2; i++ {
		got, err := cachedReport(context.Background(), "count", func(g string) string { return "Report:" + g + ":count" }, func() (int, error) {
			loads++
			return loads, nil
		})
		if err != nil || got != i+1 {
			t.Fatalf("call %d = %d, %v", i, got, err)
		}
	}
}
