// Package export renders catalog state into interchange formats. The
// GeoJSON builders produce sub-satellite snapshots and ground tracks
// that drop straight into mapping tools.
package export

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"time"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"
	"github.com/paulmach/orb/geojson"

	"github.com/signalsfoundry/skymatrix/catalog"
	"github.com/signalsfoundry/skymatrix/model"
)

// Subpoints builds a feature collection with one point feature per
// record that propagates at the given instant. Each feature carries the
// record's name, tags and altitude plus great-circle distance and
// bearing from the observer. Records that fail to propagate are left
// out.
func Subpoints(cat *catalog.Catalog, at time.Time, observer model.Geodetic) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	origin := orb.Point{observer.LonDeg, observer.LatDeg}
	for _, rec := range cat.Records() {
		if rec.Orbit == nil {
			continue
		}
		sp, ok := rec.Orbit.Subpoint(at)
		if !ok {
			continue
		}
		pt := orb.Point{sp.LonDeg, sp.LatDeg}
		f := geojson.NewFeature(pt)
		f.Properties["name"] = rec.Name
		f.Properties["tags"] = tagList(rec.Tags)
		f.Properties["altitude_km"] = sp.AltitudeKm
		f.Properties["distance_km"] = geo.DistanceHaversine(origin, pt) / 1000
		f.Properties["bearing_deg"] = compassBearing(origin, pt)
		if rec.HasLaunchDate() {
			f.Properties["launch_date"] = rec.LaunchDate.Format("2006-01-02")
		}
		fc.Append(f)
	}
	return fc
}

// GroundTrack samples the record's sub-satellite track every step over
// [from, from+span], both ends inclusive, and returns it as a single
// feature. The track is split where it crosses the antimeridian and
// where a sample fails to propagate, so viewers never draw a segment
// across the whole map or across a gap. Returns nil when fewer than two
// consecutive samples propagate.
func GroundTrack(rec model.OrbitalRecord, from time.Time, span, step time.Duration) *geojson.Feature {
	if rec.Orbit == nil || span <= 0 || step <= 0 {
		return nil
	}
	var segments orb.MultiLineString
	var current orb.LineString
	flush := func() {
		if len(current) >= 2 {
			segments = append(segments, current)
		}
		current = nil
	}
	end := from.Add(span)
	for t := from; !t.After(end); t = t.Add(step) {
		sp, ok := rec.Orbit.Subpoint(t)
		if !ok {
			flush()
			continue
		}
		pt := orb.Point{sp.LonDeg, sp.LatDeg}
		if len(current) > 0 && math.Abs(pt.Lon()-current[len(current)-1].Lon()) > 180 {
			flush()
		}
		current = append(current, pt)
	}
	flush()
	if len(segments) == 0 {
		return nil
	}
	var geom orb.Geometry = segments
	if len(segments) == 1 {
		geom = segments[0]
	}
	f := geojson.NewFeature(geom)
	f.Properties["name"] = rec.Name
	f.Properties["tags"] = tagList(rec.Tags)
	return f
}

// Write encodes the collection as indented GeoJSON.
func Write(w io.Writer, fc *geojson.FeatureCollection) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(fc); err != nil {
		return fmt.Errorf("encode feature collection: %w", err)
	}
	return nil
}

// compassBearing maps geo.Bearing's signed result onto [0, 360).
func compassBearing(from, to orb.Point) float64 {
	b := geo.Bearing(from, to)
	if b < 0 {
		b += 360
	}
	return b
}

func tagList(tags model.Tags) []string {
	if tags == nil {
		return []string{}
	}
	return tags
}
