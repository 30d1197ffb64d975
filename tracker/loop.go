package tracker

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/signalsfoundry/skymatrix/catalog"
	"github.com/signalsfoundry/skymatrix/core"
	"github.com/signalsfoundry/skymatrix/internal/logging"
	"github.com/signalsfoundry/skymatrix/pixel"
	"github.com/signalsfoundry/skymatrix/timectrl"
)

const tracerName = "github.com/signalsfoundry/skymatrix/tracker"

// Tick outcomes reported to the metrics recorder.
const (
	TickOK    = "ok"
	TickError = "error"
)

// Stage names reported to the metrics recorder and used as span names.
const (
	StageProject = "project"
	StageRender  = "render"
	StagePush    = "push"
)

// CatalogProvider hands the loop the catalog to project each tick.
// catalog.Store satisfies it, which lets a refresh goroutine swap in
// new element sets between ticks.
type CatalogProvider interface {
	Current() *catalog.Catalog
}

// CatalogFunc adapts a function to the CatalogProvider interface.
type CatalogFunc func() *catalog.Catalog

// Current implements CatalogProvider.
func (f CatalogFunc) Current() *catalog.Catalog { return f() }

// MetricsRecorder receives per-tick observations. The observability
// package provides a Prometheus-backed implementation.
type MetricsRecorder interface {
	RecordTick(outcome string, elapsed time.Duration)
	RecordStage(stage string, elapsed time.Duration)
	RecordCounts(catalogRecords, placedRecords int)
}

// Loop is the tracker's main cycle: at every tick it reads the clock,
// projects the current catalog, composites the placed records through
// the rule pipeline and pushes the frame to the sink.
//
// The loop is single-threaded. A tick that fails to render or push
// stops the run; records that merely fail to propagate are dropped by
// the projection and cost nothing but absence. A slow sink stalls the
// loop for as long as the write blocks.
type Loop struct {
	Projection core.Projection
	Rules      []core.Rule
	Catalogs   CatalogProvider
	Sink       Sink

	// Clock supplies the observation instant per tick; nil means the
	// system clock. A scaled clock replays a past or future window while
	// Interval still paces the loop in wall time.
	Clock timectrl.Clock

	// Interval is the wall-time spacing between ticks.
	Interval time.Duration

	// MaxAgeDays drops records whose element sets are older than this
	// at the observation instant. Zero keeps everything.
	MaxAgeDays float64

	Log     logging.Logger
	Metrics MetricsRecorder
}

func (l *Loop) validate() error {
	if l.Projection == nil {
		return fmt.Errorf("tracker: loop needs a projection")
	}
	if l.Catalogs == nil {
		return fmt.Errorf("tracker: loop needs a catalog provider")
	}
	if l.Sink == nil {
		return fmt.Errorf("tracker: loop needs a sink")
	}
	if l.Interval <= 0 {
		return fmt.Errorf("tracker: tick interval must be positive, got %s", l.Interval)
	}
	return nil
}

// Run ticks until ctx is cancelled or a tick fails. The first tick runs
// immediately; cancellation is observed between ticks, so an in-flight
// device write always completes. A cancelled run returns nil.
func (l *Loop) Run(ctx context.Context) error {
	if err := l.validate(); err != nil {
		return err
	}
	log := l.Log
	if log == nil {
		log = logging.Noop()
	}
	clock := l.Clock
	if clock == nil {
		clock = timectrl.SystemClock{}
	}

	grid := l.Projection.Grid()
	log.Info(ctx, "tracker loop starting",
		logging.String("grid", fmt.Sprintf("%dx%d", grid.Width, grid.Height)),
		logging.Duration("interval", l.Interval),
		logging.Int("rules", len(l.Rules)),
	)

	ticker := time.NewTicker(l.Interval)
	defer ticker.Stop()

	for {
		if err := l.tick(ctx, log, clock.Now()); err != nil {
			return err
		}
		select {
		case <-ctx.Done():
			log.Info(ctx, "tracker loop stopped")
			return nil
		case <-ticker.C:
		}
	}
}

func (l *Loop) tick(ctx context.Context, log logging.Logger, at time.Time) error {
	tracer := otel.Tracer(tracerName)
	ctx, span := tracer.Start(ctx, "tracker.tick", trace.WithAttributes(
		attribute.String("observed_at", at.Format(time.RFC3339)),
	))
	defer span.End()

	started := time.Now()

	cat := l.Catalogs.Current()
	if l.MaxAgeDays > 0 {
		cat = cat.FilterMaxAge(at, l.MaxAgeDays)
	}

	sky := l.project(ctx, cat, at)
	frame, err := l.render(ctx, sky)
	if err == nil {
		err = l.push(ctx, frame)
	}

	elapsed := time.Since(started)
	span.SetAttributes(
		attribute.Int("catalog_records", cat.Len()),
		attribute.Int("placed_records", len(sky.Placed)),
	)
	if l.Metrics != nil {
		outcome := TickOK
		if err != nil {
			outcome = TickError
		}
		l.Metrics.RecordTick(outcome, elapsed)
		l.Metrics.RecordCounts(cat.Len(), len(sky.Placed))
	}

	if err != nil {
		span.RecordError(err)
		log.Error(ctx, "tick failed",
			logging.String("observed_at", at.Format(time.RFC3339)),
			logging.String("error", err.Error()),
		)
		return fmt.Errorf("tick at %s: %w", at.Format(time.RFC3339), err)
	}

	log.Info(ctx, "tick",
		logging.String("observed_at", at.Format(time.RFC3339)),
		logging.Int("catalog_records", cat.Len()),
		logging.Int("placed_records", len(sky.Placed)),
		logging.Duration("elapsed", elapsed),
	)
	return nil
}

func (l *Loop) project(ctx context.Context, cat *catalog.Catalog, at time.Time) *core.SkyFrame {
	_, span := otel.Tracer(tracerName).Start(ctx, StageProject)
	defer span.End()

	started := time.Now()
	sky := l.Projection.Project(cat, at)
	l.recordStage(StageProject, time.Since(started))

	span.SetAttributes(attribute.Int("placed_records", len(sky.Placed)))
	return sky
}

func (l *Loop) render(ctx context.Context, sky *core.SkyFrame) (*pixel.Frame, error) {
	_, span := otel.Tracer(tracerName).Start(ctx, StageRender)
	defer span.End()

	started := time.Now()
	frame, err := sky.Render(l.Rules)
	l.recordStage(StageRender, time.Since(started))

	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	return frame, nil
}

func (l *Loop) push(ctx context.Context, frame *pixel.Frame) error {
	_, span := otel.Tracer(tracerName).Start(ctx, StagePush)
	defer span.End()

	started := time.Now()
	err := l.Sink.Push(frame)
	l.recordStage(StagePush, time.Since(started))

	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("push frame: %w", err)
	}
	return nil
}

func (l *Loop) recordStage(stage string, elapsed time.Duration) {
	if l.Metrics != nil {
		l.Metrics.RecordStage(stage, elapsed)
	}
}
