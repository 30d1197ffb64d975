package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Fetch outcome labels reported by the catalog source.
const (
	FetchOutcomeFetched = "fetched"
	FetchOutcomeCached  = "cached"
	FetchOutcomeStale   = "stale"
	FetchOutcomeError   = "error"
)

// SourceCollector exposes Prometheus metrics for catalog downloads.
type SourceCollector struct {
	gatherer prometheus.Gatherer

	FetchDuration prometheus.Histogram
	FetchesTotal  *prometheus.CounterVec
	RecordsLoaded prometheus.Gauge
	CacheAge      prometheus.Gauge
}

// NewSourceCollector registers catalog source metrics against the provided
// registerer.
func NewSourceCollector(reg prometheus.Registerer) (*SourceCollector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	fetchDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "source_fetch_duration_seconds",
		Help:    "Duration of upstream element set downloads.",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30, 60},
	})
	fetchDuration, err := registerHistogram(reg, fetchDuration, "source_fetch_duration_seconds")
	if err != nil {
		return nil, err
	}

	fetches := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "source_fetches_total",
		Help: "Catalog group loads, labeled by how the data was satisfied.",
	}, []string{"outcome"})
	fetches, err = registerCounterVec(reg, fetches, "source_fetches_total")
	if err != nil {
		return nil, err
	}

	recordsLoaded := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "source_records_loaded",
		Help: "Records parsed from the most recent catalog load.",
	})
	recordsLoaded, err = registerGauge(reg, recordsLoaded, "source_records_loaded")
	if err != nil {
		return nil, err
	}

	cacheAge := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "source_cache_age_seconds",
		Help: "Age of the newest cache file consulted during the last load.",
	})
	cacheAge, err = registerGauge(reg, cacheAge, "source_cache_age_seconds")
	if err != nil {
		return nil, err
	}

	return &SourceCollector{
		gatherer:      gatherer,
		FetchDuration: fetchDuration,
		FetchesTotal:  fetches,
		RecordsLoaded: recordsLoaded,
		CacheAge:      cacheAge,
	}, nil
}

// Gatherer returns the Prometheus gatherer associated with the collector.
func (c *SourceCollector) Gatherer() prometheus.Gatherer {
	if c == nil {
		return nil
	}
	return c.gatherer
}

// ObserveFetch records one group load and, for real downloads, how long
// the upstream round trip took.
func (c *SourceCollector) ObserveFetch(outcome string, d time.Duration) {
	if c == nil {
		return
	}
	if c.FetchesTotal != nil {
		c.FetchesTotal.WithLabelValues(outcome).Inc()
	}
	if outcome == FetchOutcomeFetched && c.FetchDuration != nil {
		c.FetchDuration.Observe(d.Seconds())
	}
}

// SetRecordsLoaded updates the loaded record count gauge.
func (c *SourceCollector) SetRecordsLoaded(count int) {
	if c == nil || c.RecordsLoaded == nil {
		return
	}
	c.RecordsLoaded.Set(float64(count))
}

// SetCacheAge updates the cache age gauge.
func (c *SourceCollector) SetCacheAge(age time.Duration) {
	if c == nil || c.CacheAge == nil {
		return
	}
	if age < 0 {
		age = 0
	}
	c.CacheAge.Set(age.Seconds())
}
