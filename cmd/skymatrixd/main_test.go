package main

import (
	"bytes"
	"math"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/signalsfoundry/skymatrix/catalog"
	"github.com/signalsfoundry/skymatrix/core"
	"github.com/signalsfoundry/skymatrix/device"
	"github.com/signalsfoundry/skymatrix/internal/logging"
	"github.com/signalsfoundry/skymatrix/model"
	"github.com/signalsfoundry/skymatrix/pixel"
	"github.com/signalsfoundry/skymatrix/timectrl"
)

func TestSplitGroups(t *testing.T) {
	cases := []struct {
		raw  string
		want []string
	}{
		{"starlink", []string{"starlink"}},
		{" starlink , oneweb ", []string{"starlink", "oneweb"}},
		{"", nil},
		{",,", nil},
		{"iridium,,gps", []string{"iridium", "gps"}},
	}
	for _, tc := range cases {
		if got := splitGroups(tc.raw); !reflect.DeepEqual(got, tc.want) {
			t.Errorf("splitGroups(%q) = %v, want %v", tc.raw, got, tc.want)
		}
	}
}

func TestBuildClockDefaultsToSystemTime(t *testing.T) {
	c, err := buildClock("", 1)
	if err != nil {
		t.Fatalf("buildClock: %v", err)
	}
	if _, ok := c.(timectrl.SystemClock); !ok {
		t.Fatalf("buildClock(\"\", 1) = %T, want timectrl.SystemClock", c)
	}
}

func TestBuildClockScalesFromNow(t *testing.T) {
	c, err := buildClock("", 30)
	if err != nil {
		t.Fatalf("buildClock: %v", err)
	}
	sc, ok := c.(*timectrl.ScaledClock)
	if !ok {
		t.Fatalf("buildClock(\"\", 30) = %T, want *timectrl.ScaledClock", c)
	}
	if sc.Scale() != 30 {
		t.Errorf("Scale() = %v, want 30", sc.Scale())
	}
	if d := time.Since(sc.Epoch()); d < 0 || d > time.Minute {
		t.Errorf("Epoch() = %v, not close to wall time", sc.Epoch())
	}
}

func TestBuildClockParsesEpoch(t *testing.T) {
	c, err := buildClock("2024-08-06T12:00:00Z", 60)
	if err != nil {
		t.Fatalf("buildClock: %v", err)
	}
	sc, ok := c.(*timectrl.ScaledClock)
	if !ok {
		t.Fatalf("buildClock = %T, want *timectrl.ScaledClock", c)
	}
	want := time.Date(2024, 8, 6, 12, 0, 0, 0, time.UTC)
	if !sc.Epoch().Equal(want) {
		t.Errorf("Epoch() = %v, want %v", sc.Epoch(), want)
	}
	if sc.Scale() != 60 {
		t.Errorf("Scale() = %v, want 60", sc.Scale())
	}
}

func TestBuildClockRejectsMalformedEpoch(t *testing.T) {
	if _, err := buildClock("yesterday", 1); err == nil {
		t.Fatal("buildClock accepted a malformed epoch")
	}
}

func TestBuildProjectionFromFieldOfView(t *testing.T) {
	p, err := buildProjection("topocentric", 16, 16, model.Geodetic{}, 50, 0, 0)
	if err != nil {
		t.Fatalf("buildProjection: %v", err)
	}
	g := p.Grid()
	if g.Width != 16 || g.Height != 16 {
		t.Errorf("grid = %dx%d, want 16x16", g.Width, g.Height)
	}
	if got := g.EquivalentFoVDeg(); math.Abs(got-50) > 1e-9 {
		t.Errorf("EquivalentFoVDeg() = %v, want 50", got)
	}
}

func TestBuildProjectionHonoursCellOverride(t *testing.T) {
	p, err := buildProjection("geocentric", 8, 4, model.Geodetic{LatDeg: 52}, 0, 1.5, 550)
	if err != nil {
		t.Fatalf("buildProjection: %v", err)
	}
	g := p.Grid()
	if g.CellWidthDeg != 1.5 || g.CellHeightDeg != 1.5 {
		t.Errorf("cell = %vx%v deg, want 1.5x1.5", g.CellWidthDeg, g.CellHeightDeg)
	}
}

func TestBuildProjectionRejectsUnknownKind(t *testing.T) {
	if _, err := buildProjection("polar", 4, 4, model.Geodetic{}, 50, 0, 0); err == nil {
		t.Error("field-of-view branch accepted unknown projection kind")
	}
	if _, err := buildProjection("polar", 4, 4, model.Geodetic{}, 0, 1, 0); err == nil {
		t.Error("cell override branch accepted unknown projection kind")
	}
}

func TestResolveGridPrefersExplicitFlags(t *testing.T) {
	if w, h := resolveGrid(8, 12, nil, logging.Noop()); w != 8 || h != 12 {
		t.Errorf("resolveGrid(8, 12, nil) = %d,%d, want 8,12", w, h)
	}
}

func TestResolveGridFallsBackToDefault(t *testing.T) {
	if w, h := resolveGrid(0, 0, nil, logging.Noop()); w != defaultGridSize || h != defaultGridSize {
		t.Errorf("resolveGrid(0, 0, nil) = %d,%d, want %d,%d", w, h, defaultGridSize, defaultGridSize)
	}
}

func TestLoadRulesFileDefaultsToWhite(t *testing.T) {
	rules, err := loadRulesFile("")
	if err != nil {
		t.Fatalf("loadRulesFile: %v", err)
	}
	if len(rules) != 1 {
		t.Fatalf("got %d rules, want 1", len(rules))
	}
	c, err := rules[0].Apply(core.PlacedRecord{}, pixel.RGB{})
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if (c != pixel.RGB{R: 255, G: 255, B: 255}) {
		t.Errorf("default rule painted %v, want white", c)
	}
}

func TestLoadRulesFileReportsMissingFile(t *testing.T) {
	if _, err := loadRulesFile(filepath.Join(t.TempDir(), "absent.json")); err == nil {
		t.Fatal("loadRulesFile accepted a missing file")
	}
}

func TestNextRunDirStartsAtZero(t *testing.T) {
	base := filepath.Join(t.TempDir(), "16x16")
	dir, err := nextRunDir(base)
	if err != nil {
		t.Fatalf("nextRunDir: %v", err)
	}
	if want := filepath.Join(base, "0"); dir != want {
		t.Errorf("nextRunDir = %q, want %q", dir, want)
	}
}

func TestNextRunDirSkipsUsedNumbers(t *testing.T) {
	base := t.TempDir()
	for _, name := range []string{"0", "3", "notes"} {
		if err := os.MkdirAll(filepath.Join(base, name), 0o755); err != nil {
			t.Fatal(err)
		}
	}
	if err := os.WriteFile(filepath.Join(base, "7"), []byte("a file, not a run"), 0o644); err != nil {
		t.Fatal(err)
	}

	dir, err := nextRunDir(base)
	if err != nil {
		t.Fatalf("nextRunDir: %v", err)
	}
	if want := filepath.Join(base, "4"); dir != want {
		t.Errorf("nextRunDir = %q, want %q", dir, want)
	}
}

// zenithOrbit keeps a satellite glued to the observer's zenith so
// projections land it in the centre cell at every instant.
type zenithOrbit struct{}

func (zenithOrbit) LookAngles(time.Time, model.Geodetic) (model.LookAngles, bool) {
	return model.LookAngles{AzimuthDeg: 0, ElevationDeg: 90, RangeKm: 550}, true
}

func (zenithOrbit) Subpoint(time.Time) (model.Geodetic, bool) {
	return model.Geodetic{}, false
}

// deafLink accepts instructions and answers nothing, like a display
// that is flashed but never replies.
type deafLink struct {
	out bytes.Buffer
}

func (d *deafLink) Read(p []byte) (int, error)  { return 0, os.ErrDeadlineExceeded }
func (d *deafLink) Write(p []byte) (int, error) { return d.out.Write(p) }

func TestPreloadFramesSchedulesWindow(t *testing.T) {
	link := &deafLink{}
	display := device.NewDisplay(link)

	grid := core.GridSpec{Width: 4, Height: 4, CellWidthDeg: 10, CellHeightDeg: 10}
	proj, err := core.NewTopocentric(grid)
	if err != nil {
		t.Fatalf("NewTopocentric: %v", err)
	}
	rules, err := loadRulesFile("")
	if err != nil {
		t.Fatalf("loadRulesFile: %v", err)
	}
	cat := catalog.New(model.OrbitalRecord{Name: "OVERHEAD-1", Orbit: zenithOrbit{}})

	start := time.Unix(1700000000, 0).UTC()
	if err := preloadFrames(display, proj, rules, cat, start, 2*time.Second, time.Second, logging.Noop()); err != nil {
		t.Fatalf("preloadFrames: %v", err)
	}

	// The clock is set once, the first frame schedules a clear plus the
	// lit cell, and the identical frames after it diff to nothing.
	want := []string{
		"4,1700000000",
		"5,1700000000,2",
		"5,1700000000,1,2,2,255,255,255",
	}
	got := strings.Split(strings.TrimRight(link.out.String(), "\n"), "\n")
	if !reflect.DeepEqual(got, want) {
		t.Errorf("scheduled instructions = %v, want %v", got, want)
	}
}

func TestPreloadFramesRejectsSubSecondInterval(t *testing.T) {
	display := device.NewDisplay(&deafLink{})
	proj, err := core.NewTopocentric(core.GridSpec{Width: 4, Height: 4, CellWidthDeg: 10, CellHeightDeg: 10})
	if err != nil {
		t.Fatalf("NewTopocentric: %v", err)
	}

	err = preloadFrames(display, proj, nil, catalog.New(), time.Now(), time.Minute, 500*time.Millisecond, logging.Noop())
	if err == nil {
		t.Fatal("preloadFrames accepted a sub-second interval")
	}
	if !strings.Contains(err.Error(), "finer") {
		t.Errorf("error %q does not mention the clock resolution", err)
	}
}
