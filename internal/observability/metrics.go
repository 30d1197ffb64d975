package observability

import (
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Stage labels for the tracker pipeline histogram.
const (
	StageProject = "project"
	StageRender  = "render"
	StagePush    = "push"
)

// TrackerCollector bundles Prometheus metrics for the tracker loop and
// provides a ready-to-serve /metrics handler.
type TrackerCollector struct {
	gatherer prometheus.Gatherer

	TicksTotal    *prometheus.CounterVec
	TickDuration  prometheus.Histogram
	StageDuration *prometheus.HistogramVec

	CatalogRecords prometheus.Gauge
	PlacedRecords  prometheus.Gauge

	DiffCells    prometheus.Histogram
	DeviceWrites prometheus.Counter
}

// NewTrackerCollector registers tracker Prometheus metrics against the
// provided registerer, defaulting to the global Prometheus registry when
// nil.
func NewTrackerCollector(reg prometheus.Registerer) (*TrackerCollector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	ticks := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "tracker_ticks_total",
		Help: "Total number of tracker ticks, labeled by outcome.",
	}, []string{"outcome"})
	ticks, err := registerCounterVec(reg, ticks, "tracker_ticks_total")
	if err != nil {
		return nil, err
	}

	tickDuration, err := registerHistogram(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "tracker_tick_duration_seconds",
		Help:    "Wall time of one full tick: propagate, project, composite, push.",
		Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
	}), "tracker_tick_duration_seconds")
	if err != nil {
		return nil, err
	}

	stages := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "tracker_stage_duration_seconds",
		Help:    "Wall time of individual tick stages.",
		Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2},
	}, []string{"stage"})
	stages, err = registerHistogramVec(reg, stages, "tracker_stage_duration_seconds")
	if err != nil {
		return nil, err
	}

	catalogRecords, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "tracker_catalog_records",
		Help: "Records in the catalog after staleness filtering, as of the last tick.",
	}), "tracker_catalog_records")
	if err != nil {
		return nil, err
	}
	placedRecords, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "tracker_placed_records",
		Help: "Records that landed on the grid in the last tick.",
	}), "tracker_placed_records")
	if err != nil {
		return nil, err
	}

	diffCells, err := registerHistogram(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "display_diff_cells",
		Help:    "Changed cells per frame pushed to the display.",
		Buckets: prometheus.ExponentialBuckets(1, 2, 12),
	}), "display_diff_cells")
	if err != nil {
		return nil, err
	}
	deviceWrites, err := registerCounter(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "display_pixel_writes_total",
		Help: "Total pixel instructions written to the display.",
	}), "display_pixel_writes_total")
	if err != nil {
		return nil, err
	}

	return &TrackerCollector{
		gatherer:       gatherer,
		TicksTotal:     ticks,
		TickDuration:   tickDuration,
		StageDuration:  stages,
		CatalogRecords: catalogRecords,
		PlacedRecords:  placedRecords,
		DiffCells:      diffCells,
		DeviceWrites:   deviceWrites,
	}, nil
}

// Handler exposes a ready-to-use /metrics handler.
func (c *TrackerCollector) Handler() http.Handler {
	gatherer := c.gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// RecordTick satisfies the tracker's MetricsRecorder interface.
func (c *TrackerCollector) RecordTick(outcome string, elapsed time.Duration) {
	if c == nil {
		return
	}
	if c.TicksTotal != nil {
		c.TicksTotal.WithLabelValues(outcome).Inc()
	}
	if c.TickDuration != nil {
		c.TickDuration.Observe(elapsed.Seconds())
	}
}

// RecordStage satisfies the tracker's MetricsRecorder interface.
func (c *TrackerCollector) RecordStage(stage string, elapsed time.Duration) {
	if c == nil || c.StageDuration == nil {
		return
	}
	c.StageDuration.WithLabelValues(stage).Observe(elapsed.Seconds())
}

// RecordCounts satisfies the tracker's MetricsRecorder interface.
func (c *TrackerCollector) RecordCounts(catalogRecords, placedRecords int) {
	if c == nil {
		return
	}
	if c.CatalogRecords != nil {
		c.CatalogRecords.Set(float64(catalogRecords))
	}
	if c.PlacedRecords != nil {
		c.PlacedRecords.Set(float64(placedRecords))
	}
}

// ObserveDiff satisfies the device package's DiffRecorder interface so
// the display can report how much of each frame actually travelled.
func (c *TrackerCollector) ObserveDiff(changed, _ int) {
	if c == nil {
		return
	}
	if c.DiffCells != nil {
		c.DiffCells.Observe(float64(changed))
	}
	if c.DeviceWrites != nil {
		c.DeviceWrites.Add(float64(changed))
	}
}

func registerCounterVec(reg prometheus.Registerer, vec *prometheus.CounterVec, name string) (*prometheus.CounterVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.CounterVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}

func registerHistogramVec(reg prometheus.Registerer, vec *prometheus.HistogramVec, name string) (*prometheus.HistogramVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.HistogramVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}

func registerHistogram(reg prometheus.Registerer, hist prometheus.Histogram, name string) (prometheus.Histogram, error) {
	if err := reg.Register(hist); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Histogram); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return hist, nil
}

func registerCounter(reg prometheus.Registerer, counter prometheus.Counter, name string) (prometheus.Counter, error) {
	if err := reg.Register(counter); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Counter); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return counter, nil
}

func registerGauge(reg prometheus.Registerer, gauge prometheus.Gauge, name string) (prometheus.Gauge, error) {
	if err := reg.Register(gauge); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Gauge); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return gauge, nil
}
