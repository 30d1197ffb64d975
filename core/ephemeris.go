package core

import (
	"fmt"
	"math"
	"time"

	satellite "github.com/joshuaferrara/go-satellite"

	"github.com/signalsfoundry/skymatrix/model"
)

// tleLineLength is the fixed record length of a two-line element line.
const tleLineLength = 69

// SGP4Ephemeris propagates a two-line element set with SGP4 and adapts
// the result to the model.Ephemeris contract. Propagation that yields
// non-finite values (decayed elements, epochs far outside the fit span)
// is reported as not-ok rather than passed through.
type SGP4Ephemeris struct {
	sat satellite.Satellite
}

var _ model.Ephemeris = (*SGP4Ephemeris)(nil)

// NewSGP4Ephemeris builds an ephemeris from the two lines of a TLE.
// Lines are validated for shape first; the underlying parser assumes
// fixed columns and must not see short or swapped lines.
func NewSGP4Ephemeris(line1, line2 string) (*SGP4Ephemeris, error) {
	if err := checkTLELine(1, line1); err != nil {
		return nil, err
	}
	if err := checkTLELine(2, line2); err != nil {
		return nil, err
	}
	sat := satellite.TLEToSat(line1, line2, satellite.GravityWGS72)
	return &SGP4Ephemeris{sat: sat}, nil
}

func checkTLELine(n int, line string) error {
	if len(line) < tleLineLength {
		return fmt.Errorf("TLE line %d: %d characters, want %d", n, len(line), tleLineLength)
	}
	if line[0] != byte('0'+n) || line[1] != ' ' {
		return fmt.Errorf("TLE line %d: bad prefix %q", n, line[:2])
	}
	return nil
}

// LookAngles returns the object's azimuth, elevation and slant range as
// seen by the observer at the given instant.
func (e *SGP4Ephemeris) LookAngles(at time.Time, observer model.Geodetic) (model.LookAngles, bool) {
	at = at.UTC()
	year, month, day := at.Date()
	hour, min, sec := at.Clock()

	posECI, _ := satellite.Propagate(e.sat, year, int(month), day, hour, min, sec)
	jday := satellite.JDay(year, int(month), day, hour, min, sec)
	obs := satellite.LatLong{
		Latitude:  observer.LatDeg * satellite.DEG2RAD,
		Longitude: observer.LonDeg * satellite.DEG2RAD,
	}
	angles := satellite.ECIToLookAngles(posECI, obs, observer.AltitudeKm, jday)

	la := model.LookAngles{
		AzimuthDeg:   angles.Az * satellite.RAD2DEG,
		ElevationDeg: angles.El * satellite.RAD2DEG,
		RangeKm:      angles.Rg,
	}
	if !finite(la.AzimuthDeg, la.ElevationDeg, la.RangeKm) {
		return model.LookAngles{}, false
	}
	return la, true
}

// Subpoint returns the point on the ellipsoid beneath the object and
// the object's altitude above it at the given instant.
func (e *SGP4Ephemeris) Subpoint(at time.Time) (model.Geodetic, bool) {
	at = at.UTC()
	year, month, day := at.Date()
	hour, min, sec := at.Clock()

	posECI, _ := satellite.Propagate(e.sat, year, int(month), day, hour, min, sec)
	gmst := satellite.ThetaG_JD(satellite.JDay(year, int(month), day, hour, min, sec))
	altKm, _, llRad := satellite.ECIToLLA(posECI, gmst)
	llDeg := satellite.LatLongDeg(llRad)

	sp := model.Geodetic{
		LatDeg:     llDeg.Latitude,
		LonDeg:     llDeg.Longitude,
		AltitudeKm: altKm,
	}
	if !finite(sp.LatDeg, sp.LonDeg, sp.AltitudeKm) {
		return model.Geodetic{}, false
	}
	return sp, true
}

func finite(vals ...float64) bool {
	for _, v := range vals {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}
