// Command skysnap renders one instant of sky: it loads a catalog,
// projects it onto a grid and writes the result as a PNG, a GeoJSON
// snapshot, or a plain-text placement listing.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/signalsfoundry/skymatrix/catalog"
	"github.com/signalsfoundry/skymatrix/core"
	"github.com/signalsfoundry/skymatrix/export"
	"github.com/signalsfoundry/skymatrix/internal/config"
	"github.com/signalsfoundry/skymatrix/internal/logging"
	"github.com/signalsfoundry/skymatrix/model"
	"github.com/signalsfoundry/skymatrix/pixel"
	"github.com/signalsfoundry/skymatrix/source"
)

func main() {
	atFlag := flag.String("at", "", "RFC3339 observation instant; empty means now")
	groupsFlag := flag.String("groups", "starlink", "comma-separated element-set groups to load")
	useSatcat := flag.Bool("satcat", false, "enrich records with launch dates and type tags from the satellite catalogue")
	tag := flag.String("tag", "", "keep only records carrying this tag")
	withoutTag := flag.String("without-tag", "", "drop records carrying this tag")
	maxAgeDays := flag.Float64("max-age-days", 0, "drop records whose element sets are older than this many days; 0 keeps everything")
	limit := flag.Int("limit", 0, "keep only the first N records after filtering; 0 keeps everything")

	projKind := flag.String("projection", "topocentric", "projection placing records on the grid: topocentric or geocentric")
	width := flag.Int("width", 16, "grid width in cells")
	height := flag.Int("height", 16, "grid height in cells")
	fov := flag.Float64("fov", 50, "observer field of view in degrees covered by the whole grid")
	cellDeg := flag.Float64("cell-deg", 0, "explicit cell size in degrees, overriding -fov when positive")
	shellAltKm := flag.Float64("shell-alt-km", core.DefaultShellAltitudeKm, "orbit shell altitude the geocentric FoV conversion assumes")
	lat := flag.Float64("lat", 0, "observer latitude in degrees north")
	lon := flag.Float64("lon", 0, "observer longitude in degrees east")
	altKm := flag.Float64("alt-km", 0, "observer altitude in km above the ellipsoid")
	rulesPath := flag.String("rules", "", "path to a JSON rule file; empty paints every record white")

	outPNG := flag.String("out", "sky.png", "PNG output path; empty skips the image")
	outGeoJSON := flag.String("geojson", "", "GeoJSON output path for sub-satellite points; empty skips it")
	trackName := flag.String("track", "", "record name whose ground track to add to the GeoJSON output")
	trackSpan := flag.Duration("track-span", 95*time.Minute, "how far ahead the ground track runs")
	trackStep := flag.Duration("track-step", time.Minute, "sampling step along the ground track")
	info := flag.Bool("info", false, "print the grid summary and every placement to stdout")
	flag.Parse()

	log := logging.NewFromEnv()
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		fatalf("load configuration: %v", err)
	}

	at := time.Now().UTC()
	if *atFlag != "" {
		at, err = time.Parse(time.RFC3339, *atFlag)
		if err != nil {
			fatalf("parse -at: %v", err)
		}
		at = at.UTC()
	}

	client := source.NewClient(cfg.DataDir,
		source.WithBaseURL(cfg.CelestrakURL),
		source.WithSatcatURL(cfg.SatcatURL),
		source.WithTTL(cfg.CacheTTL),
		source.WithHTTPClient(&http.Client{Timeout: cfg.HTTPTimeout}),
		source.WithLogger(log),
	)

	cat, err := client.LoadGroups(ctx, splitGroups(*groupsFlag)...)
	if err != nil {
		fatalf("load catalog: %v", err)
	}
	if *useSatcat {
		meta, err := client.LoadSATCAT(ctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "warning: satellite catalogue unavailable: %v\n", err)
		} else {
			cat.EnrichFromMetadata(meta)
		}
	}

	if *tag != "" {
		cat = cat.WithTag(*tag)
	}
	if *withoutTag != "" {
		cat = cat.WithoutTag(*withoutTag)
	}
	if *maxAgeDays > 0 {
		cat = cat.FilterMaxAge(at, *maxAgeDays)
	}
	if *limit > 0 {
		cat = cat.Limit(*limit)
	}

	observer := model.Geodetic{LatDeg: *lat, LonDeg: *lon, AltitudeKm: *altKm}
	proj, err := buildProjection(*projKind, *width, *height, observer, *fov, *cellDeg, *shellAltKm)
	if err != nil {
		fatalf("build projection: %v", err)
	}

	rules, err := loadRulesFile(*rulesPath)
	if err != nil {
		fatalf("load rules: %v", err)
	}

	sky := proj.Project(cat, at)
	frame, err := sky.Render(rules)
	if err != nil {
		fatalf("render: %v", err)
	}

	fmt.Printf("Projected %d of %d records at %s\n", len(sky.Placed), cat.Len(), at.Format(time.RFC3339))

	if *info {
		fmt.Println(proj.Describe())
		for _, p := range sky.Placed {
			line := fmt.Sprintf("%-24s cell (%2d,%2d)", p.Record.Name, p.X, p.Y)
			if p.HasAltitude() {
				line += fmt.Sprintf("  alt %8.1f km", p.AltitudeKm)
			}
			if p.HasRange() {
				line += fmt.Sprintf("  range %8.1f km", p.RangeKm)
			}
			fmt.Println(line)
		}
	}

	if *outPNG != "" {
		if err := frame.WritePNG(*outPNG); err != nil {
			fatalf("write PNG: %v", err)
		}
		fmt.Printf("Wrote %s\n", *outPNG)
	}

	if *outGeoJSON != "" {
		if err := writeGeoJSON(*outGeoJSON, cat, at, observer, *trackName, *trackSpan, *trackStep); err != nil {
			fatalf("write GeoJSON: %v", err)
		}
		fmt.Printf("Wrote %s\n", *outGeoJSON)
	}
}

func writeGeoJSON(path string, cat *catalog.Catalog, at time.Time, observer model.Geodetic, trackName string, span, step time.Duration) error {
	fc := export.Subpoints(cat, at, observer)
	if trackName != "" {
		rec, ok := cat.Get(trackName)
		if !ok {
			return fmt.Errorf("record %q not in catalog", trackName)
		}
		track := export.GroundTrack(rec, at, span, step)
		if track == nil {
			return fmt.Errorf("record %q produced no ground track", trackName)
		}
		fc.Append(track)
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := export.Write(f, fc); err != nil {
		return err
	}
	return f.Close()
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

func splitGroups(raw string) []string {
	var out []string
	for _, g := range strings.Split(raw, ",") {
		if g = strings.TrimSpace(g); g != "" {
			out = append(out, g)
		}
	}
	return out
}

func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "skysnap: "+format+"\n", args...)
	os.Exit(1)
}
