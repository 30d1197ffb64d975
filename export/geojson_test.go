package export

import (
	"bytes"
	"math"
	"testing"
	"time"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/signalsfoundry/skymatrix/catalog"
	"github.com/signalsfoundry/skymatrix/model"
)

// fixedOrbit pins an ephemeris to one sub-satellite point.
type fixedOrbit struct {
	sp model.Geodetic
	ok bool
}

func (f fixedOrbit) LookAngles(time.Time, model.Geodetic) (model.LookAngles, bool) {
	return model.LookAngles{}, false
}

func (f fixedOrbit) Subpoint(time.Time) (model.Geodetic, bool) {
	return f.sp, f.ok
}

// steppedOrbit replays scripted sub-satellite points, one per step
// after the start instant. A nil entry fails that sample.
type steppedOrbit struct {
	start time.Time
	step  time.Duration
	track []*model.Geodetic
}

func (s steppedOrbit) LookAngles(time.Time, model.Geodetic) (model.LookAngles, bool) {
	return model.LookAngles{}, false
}

func (s steppedOrbit) Subpoint(at time.Time) (model.Geodetic, bool) {
	i := int(at.Sub(s.start) / s.step)
	if i < 0 || i >= len(s.track) || s.track[i] == nil {
		return model.Geodetic{}, false
	}
	return *s.track[i], true
}

var exportTime = time.Date(2025, 7, 1, 12, 0, 0, 0, time.UTC)

func TestSubpointsBuildsObserverRelativeFeatures(t *testing.T) {
	cat := catalog.New(
		model.OrbitalRecord{
			Name:       "EASTBOUND",
			Tags:       model.NewTags("payload"),
			LaunchDate: time.Date(2020, 3, 15, 0, 0, 0, 0, time.UTC),
			Orbit:      fixedOrbit{sp: model.Geodetic{LatDeg: 0, LonDeg: 90, AltitudeKm: 550}, ok: true},
		},
		model.OrbitalRecord{
			Name:  "DECAYED",
			Orbit: fixedOrbit{ok: false},
		},
	)
	observer := model.Geodetic{LatDeg: 0, LonDeg: 0}

	fc := Subpoints(cat, exportTime, observer)
	if len(fc.Features) != 1 {
		t.Fatalf("built %d features, want 1", len(fc.Features))
	}
	f := fc.Features[0]

	pt, ok := f.Geometry.(orb.Point)
	if !ok {
		t.Fatalf("geometry is %T, want orb.Point", f.Geometry)
	}
	if pt.Lon() != 90 || pt.Lat() != 0 {
		t.Errorf("point = (%v, %v), want (90, 0)", pt.Lon(), pt.Lat())
	}

	if got := f.Properties.MustString("name"); got != "EASTBOUND" {
		t.Errorf("name = %q", got)
	}
	if got := f.Properties.MustFloat64("altitude_km"); got != 550 {
		t.Errorf("altitude_km = %v", got)
	}
	// A quarter of the equator on the orb sphere.
	wantDist := math.Pi / 2 * orb.EarthRadius / 1000
	if got := f.Properties.MustFloat64("distance_km"); math.Abs(got-wantDist) > 1 {
		t.Errorf("distance_km = %v, want ~%v", got, wantDist)
	}
	if got := f.Properties.MustFloat64("bearing_deg"); math.Abs(got-90) > 1e-6 {
		t.Errorf("bearing_deg = %v, want 90", got)
	}
	if got := f.Properties.MustString("launch_date"); got != "2020-03-15" {
		t.Errorf("launch_date = %q", got)
	}
	tags, ok := f.Properties["tags"].([]string)
	if !ok || len(tags) != 1 || tags[0] != "payload" {
		t.Errorf("tags = %v", f.Properties["tags"])
	}
}

func TestSubpointsNormalizesWestwardBearing(t *testing.T) {
	cat := catalog.New(model.OrbitalRecord{
		Name:  "WESTBOUND",
		Orbit: fixedOrbit{sp: model.Geodetic{LatDeg: 0, LonDeg: -90, AltitudeKm: 550}, ok: true},
	})

	fc := Subpoints(cat, exportTime, model.Geodetic{})
	if len(fc.Features) != 1 {
		t.Fatalf("built %d features, want 1", len(fc.Features))
	}
	if got := fc.Features[0].Properties.MustFloat64("bearing_deg"); math.Abs(got-270) > 1e-6 {
		t.Errorf("bearing_deg = %v, want 270", got)
	}
}

func TestSubpointsOmitsUnknownLaunchDate(t *testing.T) {
	cat := catalog.New(model.OrbitalRecord{
		Name:  "UNDATED",
		Orbit: fixedOrbit{sp: model.Geodetic{LatDeg: 10, LonDeg: 20}, ok: true},
	})

	fc := Subpoints(cat, exportTime, model.Geodetic{})
	if _, present := fc.Features[0].Properties["launch_date"]; present {
		t.Error("launch_date set for a record without one")
	}
	tags, ok := fc.Features[0].Properties["tags"].([]string)
	if !ok || len(tags) != 0 {
		t.Errorf("tags = %v, want empty list", fc.Features[0].Properties["tags"])
	}
}

func geodetic(lat, lon float64) *model.Geodetic {
	return &model.Geodetic{LatDeg: lat, LonDeg: lon}
}

func trackRecord(track ...*model.Geodetic) model.OrbitalRecord {
	return model.OrbitalRecord{
		Name:  "TRACKED",
		Orbit: steppedOrbit{start: exportTime, step: time.Minute, track: track},
	}
}

func TestGroundTrackBuildsSingleLineString(t *testing.T) {
	rec := trackRecord(geodetic(0, 10), geodetic(5, 20), geodetic(10, 30))

	f := GroundTrack(rec, exportTime, 2*time.Minute, time.Minute)
	if f == nil {
		t.Fatal("GroundTrack returned nil")
	}
	ls, ok := f.Geometry.(orb.LineString)
	if !ok {
		t.Fatalf("geometry is %T, want orb.LineString", f.Geometry)
	}
	if len(ls) != 3 {
		t.Fatalf("track has %d points, want 3", len(ls))
	}
	if ls[0] != (orb.Point{10, 0}) || ls[2] != (orb.Point{30, 10}) {
		t.Errorf("track endpoints = %v, %v", ls[0], ls[2])
	}
	if got := f.Properties.MustString("name"); got != "TRACKED" {
		t.Errorf("name = %q", got)
	}
}

func TestGroundTrackSplitsAtAntimeridian(t *testing.T) {
	rec := trackRecord(geodetic(0, 170), geodetic(2, 178), geodetic(4, -174), geodetic(6, -166))

	f := GroundTrack(rec, exportTime, 3*time.Minute, time.Minute)
	if f == nil {
		t.Fatal("GroundTrack returned nil")
	}
	mls, ok := f.Geometry.(orb.MultiLineString)
	if !ok {
		t.Fatalf("geometry is %T, want orb.MultiLineString", f.Geometry)
	}
	if len(mls) != 2 || len(mls[0]) != 2 || len(mls[1]) != 2 {
		t.Fatalf("segments = %v, want two pairs split at the antimeridian", mls)
	}
	if mls[0][1].Lon() != 178 || mls[1][0].Lon() != -174 {
		t.Errorf("split points = %v / %v", mls[0][1], mls[1][0])
	}
}

func TestGroundTrackBreaksAtFailedSamples(t *testing.T) {
	rec := trackRecord(geodetic(0, 10), geodetic(1, 20), nil, geodetic(3, 40), geodetic(4, 50))

	f := GroundTrack(rec, exportTime, 4*time.Minute, time.Minute)
	if f == nil {
		t.Fatal("GroundTrack returned nil")
	}
	mls, ok := f.Geometry.(orb.MultiLineString)
	if !ok {
		t.Fatalf("geometry is %T, want orb.MultiLineString", f.Geometry)
	}
	if len(mls) != 2 {
		t.Fatalf("track has %d segments, want 2 around the gap", len(mls))
	}
}

func TestGroundTrackReturnsNilWithoutUsableSamples(t *testing.T) {
	if f := GroundTrack(trackRecord(nil, nil), exportTime, time.Minute, time.Minute); f != nil {
		t.Errorf("track from failing samples = %v, want nil", f)
	}
	// A lone surviving point cannot form a segment.
	if f := GroundTrack(trackRecord(geodetic(0, 10), nil), exportTime, time.Minute, time.Minute); f != nil {
		t.Errorf("track from one point = %v, want nil", f)
	}
	if f := GroundTrack(trackRecord(geodetic(0, 10)), exportTime, 0, time.Minute); f != nil {
		t.Errorf("track over zero span = %v, want nil", f)
	}
}

func TestWriteRoundTripsCollection(t *testing.T) {
	cat := catalog.New(model.OrbitalRecord{
		Name:  "ROUNDTRIP",
		Orbit: fixedOrbit{sp: model.Geodetic{LatDeg: 45, LonDeg: -120, AltitudeKm: 780}, ok: true},
	})
	fc := Subpoints(cat, exportTime, model.Geodetic{})

	var buf bytes.Buffer
	if err := Write(&buf, fc); err != nil {
		t.Fatalf("Write: %v", err)
	}
	decoded, err := geojson.UnmarshalFeatureCollection(buf.Bytes())
	if err != nil {
		t.Fatalf("UnmarshalFeatureCollection: %v", err)
	}
	if len(decoded.Features) != 1 {
		t.Fatalf("decoded %d features, want 1", len(decoded.Features))
	}
	if got := decoded.Features[0].Properties.MustString("name"); got != "ROUNDTRIP" {
		t.Errorf("name = %q", got)
	}
}
