package model

// OrbitShell pairs a descriptive orbit name with a representative
// altitude, used when reporting how much sky a grid covers at common
// constellation heights.
type OrbitShell struct {
	Name       string
	AltitudeKm float64
}

// OrbitShells lists the reference shells reported by projection
// descriptions, lowest first.
var OrbitShells = []OrbitShell{
	{Name: "VLEO", AltitudeKm: 400},
	{Name: "Starlink", AltitudeKm: 550},
	{Name: "LEO", AltitudeKm: 2000},
	{Name: "GEO", AltitudeKm: 35768},
}
