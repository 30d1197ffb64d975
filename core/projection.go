// Package core implements the sky engine: ephemeris propagation behind
// the model contract, the two projections that place orbital records on
// a cell grid, the field-of-view geometry relating grids to sky
// coverage, and the rule pipeline that composites placed records into
// pixel frames.
package core

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/signalsfoundry/skymatrix/catalog"
	"github.com/signalsfoundry/skymatrix/model"
)

// GridSpec describes the cell grid a projection fills and the observer
// it is anchored to. Cell sizes are degrees; which angle they measure
// depends on the projection: sky angle around the zenith for
// topocentric grids, ground angle at the Earth's centre for geocentric
// ones.
type GridSpec struct {
	Width, Height               int
	CellWidthDeg, CellHeightDeg float64
	Observer                    model.Geodetic
}

// Validate checks dimensions and cell sizes.
func (g GridSpec) Validate() error {
	if g.Width < 1 || g.Height < 1 {
		return fmt.Errorf("grid must be at least 1x1, got %dx%d", g.Width, g.Height)
	}
	if !(g.CellWidthDeg > 0) || !(g.CellHeightDeg > 0) {
		return fmt.Errorf("cell size must be positive, got %vx%v deg", g.CellWidthDeg, g.CellHeightDeg)
	}
	return nil
}

// EquivalentFoVDeg returns the angular diameter of the circular cap
// covering the same sky as the whole grid. For square cells this is the
// exact inverse of the sizing done by the FromFoV constructors.
func (g GridSpec) EquivalentFoVDeg() float64 {
	w := float64(g.Width) * g.CellWidthDeg
	h := float64(g.Height) * g.CellHeightDeg
	return 0.5 * math.Sqrt(math.Pi*(w*w+h*h))
}

// MinimumFoVDeg returns the angular span of the grid's narrow side: the
// largest field of view guaranteed to fall fully on the grid.
func (g GridSpec) MinimumFoVDeg() float64 {
	return math.Min(float64(g.Width)*g.CellWidthDeg, float64(g.Height)*g.CellHeightDeg)
}

// AttrNotApplicable marks a derived attribute a projection could not
// provide for a placement.
const AttrNotApplicable = -1

// PlacedRecord is one record put on the grid: its cell plus the
// attributes the projection derived on the way. (0,0) is the top-left
// cell.
type PlacedRecord struct {
	Record model.OrbitalRecord
	X, Y   int

	// AltitudeKm is the record's height above the surface, RangeKm its
	// distance from the observer; either may be AttrNotApplicable.
	AltitudeKm float64
	RangeKm    float64
}

// HasAltitude reports whether the projection derived an altitude.
func (p PlacedRecord) HasAltitude() bool { return p.AltitudeKm != AttrNotApplicable }

// HasRange reports whether the projection derived a range.
func (p PlacedRecord) HasRange() bool { return p.RangeKm != AttrNotApplicable }

// SkyFrame is the result of projecting a catalog at one instant: the
// records that landed on the grid, in catalog order.
type SkyFrame struct {
	Grid   GridSpec
	At     time.Time
	Placed []PlacedRecord
}

// Projection maps a catalog onto grid cells at a given instant.
type Projection interface {
	// Project places every record whose position at the instant falls
	// on the grid. Records whose ephemeris yields no usable position
	// are dropped without error.
	Project(cat *catalog.Catalog, at time.Time) *SkyFrame
	// Grid returns the grid the projection fills.
	Grid() GridSpec
	// Describe summarises the grid's sky coverage for logs and info
	// output.
	Describe() string
}

// Topocentric places records by their look angles on a grid centred on
// the observer's zenith. Cell offsets are sky-angle degrees: the north
// component of the zenith distance selects the row, the east component
// the column.
type Topocentric struct {
	grid GridSpec
}

var _ Projection = (*Topocentric)(nil)

// NewTopocentric builds the projection after validating the grid.
func NewTopocentric(grid GridSpec) (*Topocentric, error) {
	if err := grid.Validate(); err != nil {
		return nil, err
	}
	return &Topocentric{grid: grid}, nil
}

// TopocentricFromFoV sizes square cells so the grid covers a cap of the
// given angular diameter around the zenith.
func TopocentricFromFoV(width, height int, observer model.Geodetic, fovDeg float64) (*Topocentric, error) {
	if !(fovDeg > 0 && fovDeg < 180) {
		return nil, fmt.Errorf("field of view must be inside (0, 180) degrees, got %v", fovDeg)
	}
	cell := cellSizeForFoV(fovDeg, width, height)
	return NewTopocentric(GridSpec{
		Width:         width,
		Height:        height,
		CellWidthDeg:  cell,
		CellHeightDeg: cell,
		Observer:      observer,
	})
}

// Grid returns the grid spec.
func (t *Topocentric) Grid() GridSpec { return t.grid }

// Project implements Projection.
func (t *Topocentric) Project(cat *catalog.Catalog, at time.Time) *SkyFrame {
	g := t.grid
	frame := &SkyFrame{Grid: g, At: at}
	for _, rec := range cat.Records() {
		if rec.Orbit == nil {
			continue
		}
		la, ok := rec.Orbit.LookAngles(at, g.Observer)
		if !ok {
			continue
		}

		// Rotate the azimuth a quarter turn so north runs along the
		// grid's vertical axis, then split the zenith distance into
		// north/east components.
		az := (la.AzimuthDeg + 90) * deg2rad
		zenithDist := 90 - la.ElevationDeg
		north := zenithDist * math.Sin(az)
		east := zenithDist * math.Cos(az)

		fx := math.Floor(east/g.CellWidthDeg + float64(g.Width)/2)
		fy := math.Floor(north/g.CellHeightDeg + float64(g.Height)/2)
		if fx < 0 || fx >= float64(g.Width) || fy < 0 || fy >= float64(g.Height) {
			continue
		}

		frame.Placed = append(frame.Placed, PlacedRecord{
			Record:     rec,
			X:          int(fx),
			Y:          int(fy),
			AltitudeKm: slantRangeToAltitude(la.RangeKm, la.ElevationDeg),
			RangeKm:    la.RangeKm,
		})
	}
	return frame
}

// Describe implements Projection.
func (t *Topocentric) Describe() string {
	g := t.grid
	var b strings.Builder
	fmt.Fprintf(&b, "topocentric sky grid %dx%d, cells %.2fx%.2f deg, observer %.3f,%.3f at %.2f km",
		g.Width, g.Height, g.CellWidthDeg, g.CellHeightDeg,
		g.Observer.LatDeg, g.Observer.LonDeg, g.Observer.AltitudeKm)
	fmt.Fprintf(&b, "\nequivalent FoV %.1f deg, minimum FoV %.1f deg",
		g.EquivalentFoVDeg(), g.MinimumFoVDeg())
	return b.String()
}

// Geocentric places records by their sub-satellite points on a grid of
// ground degrees centred on the observer, north up.
type Geocentric struct {
	grid GridSpec
}

var _ Projection = (*Geocentric)(nil)

// NewGeocentric builds the projection after validating the grid.
func NewGeocentric(grid GridSpec) (*Geocentric, error) {
	if err := grid.Validate(); err != nil {
		return nil, err
	}
	return &Geocentric{grid: grid}, nil
}

// GeocentricFromFoV sizes square cells so the grid covers the patch of
// ground an observer's field of view spans at the given shell altitude.
// Pass DefaultShellAltitudeKm when no particular constellation is meant.
func GeocentricFromFoV(width, height int, observer model.Geodetic, fovDeg, shellAltitudeKm float64) (*Geocentric, error) {
	originFoV, err := ObserverToOriginFoV(fovDeg, shellAltitudeKm)
	if err != nil {
		return nil, err
	}
	cell := cellSizeForFoV(originFoV, width, height)
	return NewGeocentric(GridSpec{
		Width:         width,
		Height:        height,
		CellWidthDeg:  cell,
		CellHeightDeg: cell,
		Observer:      observer,
	})
}

// Grid returns the grid spec.
func (p *Geocentric) Grid() GridSpec { return p.grid }

// Project implements Projection.
func (p *Geocentric) Project(cat *catalog.Catalog, at time.Time) *SkyFrame {
	g := p.grid
	frame := &SkyFrame{Grid: g, At: at}
	for _, rec := range cat.Records() {
		if rec.Orbit == nil {
			continue
		}
		sp, ok := rec.Orbit.Subpoint(at)
		if !ok {
			continue
		}

		fx := math.Floor((sp.LonDeg-g.Observer.LonDeg)/g.CellWidthDeg + float64(g.Width)/2)
		// Latitude grows northwards but rows grow downwards, so flip
		// the row before the bounds check.
		fy := float64(g.Height) - math.Floor((sp.LatDeg-g.Observer.LatDeg)/g.CellHeightDeg+float64(g.Height)/2)
		if fx < 0 || fx >= float64(g.Width) || fy < 0 || fy >= float64(g.Height) {
			continue
		}

		frame.Placed = append(frame.Placed, PlacedRecord{
			Record:     rec,
			X:          int(fx),
			Y:          int(fy),
			AltitudeKm: sp.AltitudeKm,
			RangeKm:    sp.AltitudeKm,
		})
	}
	return frame
}

// Describe implements Projection.
func (p *Geocentric) Describe() string {
	g := p.grid
	var b strings.Builder
	fmt.Fprintf(&b, "geocentric ground grid %dx%d, cells %.2fx%.2f deg, centred on %.3f,%.3f",
		g.Width, g.Height, g.CellWidthDeg, g.CellHeightDeg,
		g.Observer.LatDeg, g.Observer.LonDeg)
	fmt.Fprintf(&b, "\nequivalent ground FoV %.1f deg, minimum %.1f deg",
		g.EquivalentFoVDeg(), g.MinimumFoVDeg())
	for _, shell := range model.OrbitShells {
		obsFoV, err := OriginToObserverFoV(g.EquivalentFoVDeg(), shell.AltitudeKm)
		if err != nil {
			continue
		}
		fmt.Fprintf(&b, "\nobserver FoV at %s (%.0f km): %.1f deg",
			shell.Name, shell.AltitudeKm, obsFoV)
	}
	return b.String()
}
