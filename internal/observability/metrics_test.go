package observability

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
)

func TestTrackerCollectorRecordsTickAndStages(t *testing.T) {
	reg := prometheus.NewRegistry()
	collector, err := NewTrackerCollector(reg)
	if err != nil {
		t.Fatalf("NewTrackerCollector: %v", err)
	}

	collector.RecordTick("ok", 15*time.Millisecond)
	collector.RecordTick("ok", 20*time.Millisecond)
	collector.RecordTick("error", 5*time.Millisecond)
	collector.RecordStage(StageProject, 3*time.Millisecond)
	collector.RecordStage(StagePush, 2*time.Millisecond)

	if got := testutil.ToFloat64(collector.TicksTotal.WithLabelValues("ok")); got != 2 {
		t.Fatalf("tracker_ticks_total{outcome=ok} = %v, want 2", got)
	}
	if got := testutil.ToFloat64(collector.TicksTotal.WithLabelValues("error")); got != 1 {
		t.Fatalf("tracker_ticks_total{outcome=error} = %v, want 1", got)
	}
	if count := histogramSampleCount(t, reg, "tracker_tick_duration_seconds", nil); count != 3 {
		t.Fatalf("tracker_tick_duration_seconds sample_count = %d, want 3", count)
	}
	if count := histogramSampleCount(t, reg, "tracker_stage_duration_seconds", map[string]string{
		"stage": StageProject,
	}); count != 1 {
		t.Fatalf("tracker_stage_duration_seconds{stage=project} sample_count = %d, want 1", count)
	}
}

func TestTrackerCollectorObserveDiff(t *testing.T) {
	reg := prometheus.NewRegistry()
	collector, err := NewTrackerCollector(reg)
	if err != nil {
		t.Fatalf("NewTrackerCollector: %v", err)
	}

	collector.ObserveDiff(5, 1024)
	collector.ObserveDiff(3, 1024)

	if got := testutil.ToFloat64(collector.DeviceWrites); got != 8 {
		t.Fatalf("display_pixel_writes_total = %v, want 8", got)
	}
	if count := histogramSampleCount(t, reg, "display_diff_cells", nil); count != 2 {
		t.Fatalf("display_diff_cells sample_count = %d, want 2", count)
	}
}

func TestMetricsHandlerExposesTrackerSeries(t *testing.T) {
	reg := prometheus.NewRegistry()
	collector, err := NewTrackerCollector(reg)
	if err != nil {
		t.Fatalf("NewTrackerCollector: %v", err)
	}
	collector.RecordTick("ok", 10*time.Millisecond)
	collector.RecordCounts(128, 42)
	collector.ObserveDiff(7, 1024)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rr := httptest.NewRecorder()
	collector.Handler().ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("/metrics status = %d, want 200", rr.Code)
	}
	body := rr.Body.String()
	for _, metric := range []string{
		"tracker_ticks_total",
		"tracker_tick_duration_seconds",
		"tracker_catalog_records 128",
		"tracker_placed_records 42",
		"display_diff_cells",
		"display_pixel_writes_total 7",
	} {
		if !strings.Contains(body, metric) {
			t.Fatalf("expected %q in /metrics output", metric)
		}
	}
}

func TestNewTrackerCollectorReusesExistingRegistrations(t *testing.T) {
	reg := prometheus.NewRegistry()
	first, err := NewTrackerCollector(reg)
	if err != nil {
		t.Fatalf("NewTrackerCollector (first): %v", err)
	}
	second, err := NewTrackerCollector(reg)
	if err != nil {
		t.Fatalf("NewTrackerCollector (second): %v", err)
	}

	first.RecordTick("ok", time.Millisecond)
	second.RecordTick("ok", time.Millisecond)

	if got := testutil.ToFloat64(first.TicksTotal.WithLabelValues("ok")); got != 2 {
		t.Fatalf("shared tracker_ticks_total = %v, want 2", got)
	}
}

func TestSourceCollectorObserveFetch(t *testing.T) {
	reg := prometheus.NewRegistry()
	collector, err := NewSourceCollector(reg)
	if err != nil {
		t.Fatalf("NewSourceCollector: %v", err)
	}

	collector.ObserveFetch(FetchOutcomeFetched, 800*time.Millisecond)
	collector.ObserveFetch(FetchOutcomeCached, 0)
	collector.ObserveFetch(FetchOutcomeCached, 0)
	collector.SetRecordsLoaded(512)
	collector.SetCacheAge(90 * time.Minute)

	if got := testutil.ToFloat64(collector.FetchesTotal.WithLabelValues(FetchOutcomeFetched)); got != 1 {
		t.Fatalf("source_fetches_total{outcome=fetched} = %v, want 1", got)
	}
	if got := testutil.ToFloat64(collector.FetchesTotal.WithLabelValues(FetchOutcomeCached)); got != 2 {
		t.Fatalf("source_fetches_total{outcome=cached} = %v, want 2", got)
	}
	if count := histogramSampleCount(t, reg, "source_fetch_duration_seconds", nil); count != 1 {
		t.Fatalf("source_fetch_duration_seconds sample_count = %d, want 1: cache hits must not observe durations", count)
	}
	if got := testutil.ToFloat64(collector.RecordsLoaded); got != 512 {
		t.Fatalf("source_records_loaded = %v, want 512", got)
	}
	if got := testutil.ToFloat64(collector.CacheAge); got != (90 * time.Minute).Seconds() {
		t.Fatalf("source_cache_age_seconds = %v, want %v", got, (90 * time.Minute).Seconds())
	}
}

func histogramSampleCount(t *testing.T, gatherer prometheus.Gatherer, name string, labels map[string]string) uint64 {
	t.Helper()

	metrics, err := gatherer.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}
	for _, mf := range metrics {
		if mf.GetName() != name {
			continue
		}
		for _, m := range mf.Metric {
			if matchLabels(m.GetLabel(), labels) && m.GetHistogram() != nil {
				return m.GetHistogram().GetSampleCount()
			}
		}
	}
	return 0
}

func matchLabels(got []*dto.LabelPair, want map[string]string) bool {
	if len(got) < len(want) {
		return false
	}
	matched := 0
	for _, lp := range got {
		if val, ok := want[lp.GetName()]; ok && val == lp.GetValue() {
			matched++
		}
	}
	return matched == len(want)
}
