package core

import (
	"fmt"
	"math"
)

// EarthRadiusKm is the mean Earth radius used for all sky geometry
// calculations (kilometres).
const EarthRadiusKm = 6371.0

// DefaultShellAltitudeKm is the orbit shell assumed when a ground-track
// grid is sized from an observer's field of view and no shell is given.
const DefaultShellAltitudeKm = 2000.0

const (
	deg2rad = math.Pi / 180.0
	rad2deg = 180.0 / math.Pi
)

// ObserverToOriginFoV converts a field of view measured at an observer
// on the surface into the central angle subtended at the Earth's centre
// by the cap of the shell at altitudeKm that the observer sees.
//
// Triangle: centre O, observer P at radius R, view-cone edge hitting the
// shell at S, radius R+alt. The angle at P between PO and PS is
// 180° − fov/2; the law of sines gives the angle at S, and the centre
// angle is what remains of 180°.
func ObserverToOriginFoV(observerFoVDeg, altitudeKm float64) (float64, error) {
	if err := checkFoVDomain(observerFoVDeg, altitudeKm); err != nil {
		return 0, err
	}
	shellRadius := EarthRadiusKm + altitudeKm
	observerAng := 180 - observerFoVDeg/2
	shellAng := math.Asin(EarthRadiusKm/shellRadius*math.Sin(observerAng*deg2rad)) * rad2deg
	centreAng := 180 - observerAng - shellAng
	return 2 * centreAng, nil
}

// OriginToObserverFoV is the exact inverse of ObserverToOriginFoV: the
// field of view an observer on the surface needs for the cap of the
// shell at altitudeKm spanning the given central angle.
func OriginToObserverFoV(originFoVDeg, altitudeKm float64) (float64, error) {
	if err := checkFoVDomain(originFoVDeg, altitudeKm); err != nil {
		return 0, err
	}
	shellRadius := EarthRadiusKm + altitudeKm
	centreAng := originFoVDeg / 2

	// Observer-to-shell distance via the law of cosines, then the
	// shell-side angle via the law of sines. The angle at S is opposite
	// the shortest side, so the principal asin value is the right one.
	slant := math.Sqrt(shellRadius*shellRadius + EarthRadiusKm*EarthRadiusKm -
		2*shellRadius*EarthRadiusKm*math.Cos(centreAng*deg2rad))
	shellAng := math.Asin(EarthRadiusKm/slant*math.Sin(centreAng*deg2rad)) * rad2deg
	return 2 * (centreAng + shellAng), nil
}

func checkFoVDomain(fovDeg, altitudeKm float64) error {
	if !(fovDeg > 0 && fovDeg < 180) {
		return fmt.Errorf("field of view must be inside (0, 180) degrees, got %v", fovDeg)
	}
	if !(altitudeKm > 0) {
		return fmt.Errorf("shell altitude must be positive, got %v km", altitudeKm)
	}
	return nil
}

// cellSizeForFoV returns the square cell size in degrees for which a
// width x height grid covers the same sky as a circular cap of angular
// diameter fovDeg.
func cellSizeForFoV(fovDeg float64, width, height int) float64 {
	w := float64(width)
	h := float64(height)
	return math.Sqrt(4 * fovDeg * fovDeg / (math.Pi * (w*w + h*h)))
}

// slantRangeToAltitude recovers an object's height above the surface
// from its slant range and elevation as seen by a surface observer,
// assuming a spherical Earth. elevation 90° means straight up, where
// the result equals the range itself.
func slantRangeToAltitude(rangeKm, elevationDeg float64) float64 {
	return math.Sqrt(rangeKm*rangeKm+EarthRadiusKm*EarthRadiusKm-
		2*rangeKm*EarthRadiusKm*math.Cos((elevationDeg+90)*deg2rad)) - EarthRadiusKm
}
