package model

import "time"

// Geodetic is a position relative to the reference ellipsoid: latitude
// and longitude in degrees (north and east positive) and altitude in
// kilometres. It serves both for observers on the ground and for
// sub-satellite points.
type Geodetic struct {
	LatDeg     float64
	LonDeg     float64
	AltitudeKm float64
}

// LookAngles is the topocentric position of an object as seen from an
// observer: compass azimuth and elevation above the horizon in degrees,
// slant range in kilometres.
type LookAngles struct {
	AzimuthDeg   float64
	ElevationDeg float64
	RangeKm      float64
}

// Ephemeris computes where an orbiting object is at a given instant.
// Implementations return ok == false when the propagation does not
// produce a usable position (decayed elements, numerical breakdown);
// callers drop the record for that instant and carry on.
type Ephemeris interface {
	// LookAngles returns the object's position in the observer's sky.
	LookAngles(at time.Time, observer Geodetic) (la LookAngles, ok bool)
	// Subpoint returns the point on the ellipsoid directly beneath the
	// object, with the object's altitude above it.
	Subpoint(at time.Time) (sp Geodetic, ok bool)
}
