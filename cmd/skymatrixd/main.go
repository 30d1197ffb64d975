package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/signalsfoundry/skymatrix/catalog"
	"github.com/signalsfoundry/skymatrix/core"
	"github.com/signalsfoundry/skymatrix/device"
	"github.com/signalsfoundry/skymatrix/internal/config"
	"github.com/signalsfoundry/skymatrix/internal/logging"
	"github.com/signalsfoundry/skymatrix/internal/observability"
	"github.com/signalsfoundry/skymatrix/model"
	"github.com/signalsfoundry/skymatrix/pixel"
	"github.com/signalsfoundry/skymatrix/source"
	"github.com/signalsfoundry/skymatrix/timectrl"
	"github.com/signalsfoundry/skymatrix/tracker"
)

const defaultGridSize = 16

func main() {
	projKind := flag.String("projection", "topocentric", "projection placing records on the grid: topocentric or geocentric")
	width := flag.Int("width", 0, "grid width in cells; 0 asks the display for its dimensions")
	height := flag.Int("height", 0, "grid height in cells; 0 asks the display for its dimensions")
	fov := flag.Float64("fov", 50, "observer field of view in degrees covered by the whole grid")
	cellDeg := flag.Float64("cell-deg", 0, "explicit cell size in degrees, overriding -fov when positive")
	shellAltKm := flag.Float64("shell-alt-km", core.DefaultShellAltitudeKm, "orbit shell altitude the geocentric FoV conversion assumes")
	lat := flag.Float64("lat", 0, "observer latitude in degrees north")
	lon := flag.Float64("lon", 0, "observer longitude in degrees east")
	altKm := flag.Float64("alt-km", 0, "observer altitude in km above the ellipsoid")
	groupsFlag := flag.String("groups", "starlink", "comma-separated element-set groups to track")
	maxAgeDays := flag.Float64("max-age-days", 14, "drop records whose element sets are older than this many days; 0 keeps everything")
	useSatcat := flag.Bool("satcat", false, "enrich records with launch dates and type tags from the satellite catalogue")
	rulesPath := flag.String("rules", "", "path to a JSON rule file; empty paints every record white")
	tickInterval := flag.Duration("interval", time.Second, "wall-time spacing between display updates")
	refreshEvery := flag.Duration("refresh", 6*time.Hour, "how often to re-fetch element sets while running; 0 disables")
	sinkMode := flag.String("sink", "device", "where frames go: device, png or both")
	pngDir := flag.String("png-dir", "./frames", "root directory for PNG output when the png sink is active")
	epochFlag := flag.String("epoch", "", "RFC3339 instant to start the observation clock at; empty tracks the system clock")
	timeScale := flag.Float64("time-scale", 1, "observation seconds that pass per wall second")
	selftest := flag.Bool("selftest", false, "push a noise animation instead of sky data to verify display wiring")
	preloadSpan := flag.Duration("preload", 0, "schedule this much future sky on the device and exit; 0 runs the live loop")
	flag.Parse()

	log := logging.NewFromEnv()
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		log.Error(ctx, "failed to load configuration", logging.String("error", err.Error()))
		os.Exit(1)
	}

	shutdownTracing, err := observability.InitTracing(ctx, observability.TracingConfigFromEnv(), log)
	if err != nil {
		log.Error(ctx, "failed to initialise tracing", logging.String("error", err.Error()))
		os.Exit(1)
	}
	defer observability.ShutdownWithTimeout(context.Background(), shutdownTracing, log)

	collector, err := observability.NewTrackerCollector(nil)
	if err != nil {
		log.Error(ctx, "failed to initialise metrics collector", logging.String("error", err.Error()))
		os.Exit(1)
	}
	sourceCollector, err := observability.NewSourceCollector(nil)
	if err != nil {
		log.Error(ctx, "failed to initialise source metrics", logging.String("error", err.Error()))
		os.Exit(1)
	}

	metricsSrv := serveMetrics(cfg.MetricsAddr, collector, log)

	stopCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	needDevice := *sinkMode == "device" || *sinkMode == "both"
	needPNG := *sinkMode == "png" || *sinkMode == "both"
	if !needDevice && !needPNG {
		log.Error(ctx, "unknown sink mode", logging.String("sink", *sinkMode))
		os.Exit(1)
	}
	if *preloadSpan > 0 && !needDevice {
		log.Error(ctx, "preloading needs the device sink", logging.String("sink", *sinkMode))
		os.Exit(1)
	}

	var display *device.Display
	if needDevice {
		display, err = openDisplay(cfg, collector, log)
		if err != nil {
			log.Error(ctx, "failed to open display", logging.String("error", err.Error()))
			os.Exit(1)
		}
	}

	gridW, gridH := resolveGrid(*width, *height, display, log)

	var sinks []tracker.Sink
	if display != nil {
		sinks = append(sinks, display)
	}
	if needPNG {
		runDir, err := nextRunDir(filepath.Join(*pngDir, fmt.Sprintf("%dx%d", gridW, gridH)))
		if err != nil {
			log.Error(ctx, "failed to pick a frame directory", logging.String("error", err.Error()))
			os.Exit(1)
		}
		pngSink, err := tracker.NewPNGDir(runDir)
		if err != nil {
			log.Error(ctx, "failed to create frame directory", logging.String("error", err.Error()))
			os.Exit(1)
		}
		log.Info(ctx, "writing frames to disk", logging.String("dir", runDir))
		sinks = append(sinks, pngSink)
	}
	sink := tracker.Sink(tracker.MultiSink(sinks))
	if len(sinks) == 1 {
		sink = sinks[0]
	}

	if *selftest {
		st := &tracker.Selftest{
			Width:    gridW,
			Height:   gridH,
			Sink:     sink,
			Interval: *tickInterval,
			Log:      log,
		}
		if err := st.Run(stopCtx); err != nil {
			log.Error(ctx, "selftest failed", logging.String("error", err.Error()))
			os.Exit(1)
		}
		shutdown(display, metricsSrv, log)
		return
	}

	client := source.NewClient(cfg.DataDir,
		source.WithBaseURL(cfg.CelestrakURL),
		source.WithSatcatURL(cfg.SatcatURL),
		source.WithTTL(cfg.CacheTTL),
		source.WithHTTPClient(&http.Client{Timeout: cfg.HTTPTimeout}),
		source.WithLogger(log),
		source.WithFetchRecorder(sourceCollector),
	)

	groups := splitGroups(*groupsFlag)
	var meta map[string]catalog.Metadata
	if *useSatcat {
		meta, err = client.LoadSATCAT(stopCtx)
		if err != nil {
			log.Warn(ctx, "satellite catalogue unavailable; records keep their element-set tags",
				logging.String("error", err.Error()))
			meta = nil
		}
	}

	initial, err := loadCatalog(stopCtx, client, groups, meta)
	if err != nil {
		log.Error(ctx, "failed to load catalog", logging.String("error", err.Error()))
		os.Exit(1)
	}
	if initial.Len() == 0 {
		log.Warn(ctx, "catalog is empty; the display will stay dark", logging.String("groups", *groupsFlag))
	}
	log.Info(ctx, "catalog loaded",
		logging.String("groups", *groupsFlag),
		logging.Int("records", initial.Len()),
	)

	observer := model.Geodetic{LatDeg: *lat, LonDeg: *lon, AltitudeKm: *altKm}
	proj, err := buildProjection(*projKind, gridW, gridH, observer, *fov, *cellDeg, *shellAltKm)
	if err != nil {
		log.Error(ctx, "failed to build projection", logging.String("error", err.Error()))
		os.Exit(1)
	}
	log.Info(ctx, "projection ready", logging.String("summary", proj.Describe()))

	rules, err := loadRulesFile(*rulesPath)
	if err != nil {
		log.Error(ctx, "failed to load rules", logging.String("path", *rulesPath), logging.String("error", err.Error()))
		os.Exit(1)
	}

	clock, err := buildClock(*epochFlag, *timeScale)
	if err != nil {
		log.Error(ctx, "failed to build clock", logging.String("error", err.Error()))
		os.Exit(1)
	}

	if *preloadSpan > 0 {
		cat := initial
		if *maxAgeDays > 0 {
			cat = cat.FilterMaxAge(clock.Now(), *maxAgeDays)
		}
		if err := preloadFrames(display, proj, rules, cat, clock.Now(), *preloadSpan, *tickInterval, log); err != nil {
			log.Error(ctx, "preload failed", logging.String("error", err.Error()))
			os.Exit(1)
		}
		shutdown(display, metricsSrv, log)
		return
	}

	store := catalog.NewStore(initial)
	if *refreshEvery > 0 && len(groups) > 0 {
		go refreshCatalog(stopCtx, client, store, groups, meta, *refreshEvery, log)
	}

	loop := &tracker.Loop{
		Projection: proj,
		Rules:      rules,
		Catalogs:   store,
		Sink:       sink,
		Clock:      clock,
		Interval:   *tickInterval,
		MaxAgeDays: *maxAgeDays,
		Log:        log,
		Metrics:    collector,
	}
	if err := loop.Run(stopCtx); err != nil {
		log.Error(ctx, "tracker loop failed", logging.String("error", err.Error()))
		os.Exit(1)
	}

	shutdown(display, metricsSrv, log)
}

func serveMetrics(addr string, collector *observability.TrackerCollector, log logging.Logger) *http.Server {
	if collector == nil {
		return nil
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", collector.Handler())

	srv := &http.Server{
		Addr:    addr,
		Handler: mux,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Warn(context.Background(), "metrics server exited", logging.String("error", err.Error()))
		}
	}()

	log.Info(context.Background(), "serving Prometheus metrics", logging.String("addr", addr))
	return srv
}

func shutdown(display *device.Display, metricsSrv *http.Server, log logging.Logger) {
	ctx := context.Background()
	log.Info(ctx, "shutting down")
	if display != nil {
		if err := display.Close(); err != nil {
			log.Warn(ctx, "closing display failed", logging.String("error", err.Error()))
		}
	}
	if metricsSrv != nil {
		shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		_ = metricsSrv.Shutdown(shutdownCtx)
	}
}

func openDisplay(cfg config.Config, collector *observability.TrackerCollector, log logging.Logger) (*device.Display, error) {
	port := cfg.DevicePort
	if port == "" {
		var err error
		port, err = device.AutoPort()
		if err != nil {
			return nil, err
		}
		log.Info(context.Background(), "autodetected display port", logging.String("port", port))
	}
	rw, err := device.OpenSerial(port, cfg.DeviceBaud)
	if err != nil {
		return nil, err
	}
	return device.NewDisplay(rw, device.WithDiffRecorder(collector)), nil
}

// resolveGrid settles the grid dimensions: explicit flags win, then the
// display's own answer, then a 16x16 fallback.
func resolveGrid(width, height int, display *device.Display, log logging.Logger) (int, int) {
	if width > 0 && height > 0 {
		return width, height
	}
	if display != nil {
		w, h, err := display.Dimensions()
		if err == nil {
			log.Info(context.Background(), "display reported its grid",
				logging.Int("width", w), logging.Int("height", h))
			return w, h
		}
		log.Warn(context.Background(), "display did not report dimensions",
			logging.String("error", err.Error()))
	}
	return defaultGridSize, defaultGridSize
}

func buildProjection(kind string, width, height int, observer model.Geodetic, fovDeg, cellDeg, shellAltKm float64) (core.Projection, error) {
	if cellDeg > 0 {
		grid := core.GridSpec{
			Width:         width,
			Height:        height,
			CellWidthDeg:  cellDeg,
			CellHeightDeg: cellDeg,
			Observer:      observer,
		}
		switch kind {
		case "topocentric":
			return core.NewTopocentric(grid)
		case "geocentric":
			return core.NewGeocentric(grid)
		}
		return nil, fmt.Errorf("unknown projection %q", kind)
	}
	switch kind {
	case "topocentric":
		return core.TopocentricFromFoV(width, height, observer, fovDeg)
	case "geocentric":
		return core.GeocentricFromFoV(width, height, observer, fovDeg, shellAltKm)
	}
	return nil, fmt.Errorf("unknown projection %q", kind)
}

func loadRulesFile(path string) ([]core.Rule, error) {
	if path == "" {
		return []core.Rule{core.AlwaysRule{Color: pixel.RGB{R: 255, G: 255, B: 255}}}, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return core.LoadRules(f)
}

func buildClock(epoch string, scale float64) (timectrl.Clock, error) {
	if epoch == "" {
		if scale != 1 {
			return timectrl.NewScaledClock(time.Now().UTC(), scale), nil
		}
		return timectrl.SystemClock{}, nil
	}
	at, err := time.Parse(time.RFC3339, epoch)
	if err != nil {
		return nil, fmt.Errorf("parse epoch: %w", err)
	}
	return timectrl.NewScaledClock(at.UTC(), scale), nil
}

func splitGroups(raw string) []string {
	var out []string
	for _, g := range strings.Split(raw, ",") {
		if g = strings.TrimSpace(g); g != "" {
			out = append(out, g)
		}
	}
	return out
}

func loadCatalog(ctx context.Context, client *source.Client, groups []string, meta map[string]catalog.Metadata) (*catalog.Catalog, error) {
	cat, err := client.LoadGroups(ctx, groups...)
	if err != nil {
		return nil, err
	}
	if meta != nil {
		cat.EnrichFromMetadata(meta)
	}
	return cat, nil
}

func refreshCatalog(ctx context.Context, client *source.Client, store *catalog.Store, groups []string, meta map[string]catalog.Metadata, every time.Duration, log logging.Logger) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			next, err := loadCatalog(ctx, client, groups, meta)
			if err != nil {
				log.Warn(ctx, "catalog refresh failed; keeping previous set", logging.String("error", err.Error()))
				continue
			}
			store.Swap(next)
			log.Info(ctx, "catalog refreshed", logging.Int("records", next.Len()))
		}
	}
}

// preloadFrames schedules a window of future frames on the device so it
// can replay the sky untethered. The device clock has one-second
// resolution, so finer sampling would collapse onto the same instants.
func preloadFrames(display *device.Display, proj core.Projection, rules []core.Rule, cat *catalog.Catalog, start time.Time, span, interval time.Duration, log logging.Logger) error {
	if interval < time.Second {
		return fmt.Errorf("preload interval %s is finer than the device clock resolution", interval)
	}
	if err := display.SetClock(start); err != nil {
		return fmt.Errorf("set device clock: %w", err)
	}
	horizon := start.Add(span)
	frames := 0
	for t := start; !t.After(horizon); t = t.Add(interval) {
		sky := proj.Project(cat, t)
		frame, err := sky.Render(rules)
		if err != nil {
			return err
		}
		if err := display.Preload(t, frame); err != nil {
			return err
		}
		frames++
	}
	log.Info(context.Background(), "preloaded schedule",
		logging.Int("frames", frames),
		logging.Duration("span", span),
	)
	return nil
}

// nextRunDir returns the first unused numeric subdirectory of base, so
// repeated runs against the same grid size never overwrite each other.
func nextRunDir(base string) (string, error) {
	entries, err := os.ReadDir(base)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return "", err
	}
	next := 0
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		if n, err := strconv.Atoi(e.Name()); err == nil && n >= next {
			next = n + 1
		}
	}
	return filepath.Join(base, strconv.Itoa(next)), nil
}
