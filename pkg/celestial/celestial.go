// Package celestial answers Sun/Earth geometry queries for orbit
// shadowing. The solver consumes the Provider interface only, so any
// astrodynamics backend can be injected; Service is a self-contained
// implementation based on a low precision analytic solar position.
package celestial

import (
	"fmt"
	"math"

	"github.com/de-bkg/gopvt/pkg/gtime"
)

// Physical constants, in km.
const (
	AstronomicalUnit = 1.495978707e8
	SunRadiusKm      = 696000.0
	EarthRadiusKm    = 6378.137
)

// Frame identifies a body centered inertial frame.
type Frame int

// Supported frames.
const (
	FrameEME2000 Frame = iota
	FrameSunJ2000
)

func (f Frame) String() string {
	return [...]string{"EME2000", "Sun J2000"}[f]
}

// Body identifies a solar system body.
type Body int

// Supported bodies.
const (
	BodySun Body = iota
	BodyEarth
)

func (b Body) String() string {
	return [...]string{"Sun", "Earth"}[b]
}

// Orbit is a body state used for shadow queries.
type Orbit struct {
	PosKm  [3]float64  // Position in km.
	VelKmS [3]float64  // Velocity in km/s.
	Epoch  gtime.Epoch // Epoch of the state.
	Frame  Frame       // Frame the state is expressed in.
}

// EclipseKind classifies an orbit's illumination.
type EclipseKind int

// Illumination states.
const (
	Umbra EclipseKind = iota
	Penumbra
	Visibilis
)

func (k EclipseKind) String() string {
	return [...]string{"umbra", "penumbra", "visibilis"}[k]
}

// EclipseState is the illumination of an orbit. Rate is the fraction
// of the solar disc still visible and is only meaningful for Penumbra.
type EclipseState struct {
	Kind EclipseKind
	Rate float64
}

func (s EclipseState) String() string {
	if s.Kind == Penumbra {
		return fmt.Sprintf("penumbra (%.2f)", s.Rate)
	}
	return s.Kind.String()
}

// Provider answers celestial geometry queries.
type Provider interface {
	// EclipseState reports whether the orbit is shadowed by the Earth.
	EclipseState(orbit Orbit, sun, earth Frame) EclipseState
	// CelestialState returns a body's position in km at epoch t.
	CelestialState(body Body, t gtime.Epoch, frame Frame) ([3]float64, error)
}

// Service is the built-in Provider.
type Service struct{}

// NewService returns the built-in celestial backend.
func NewService() *Service {
	return &Service{}
}

// CelestialState returns the position of a body in an Earth centered
// frame. The Sun position comes from the classic low precision series,
// good to well below the angular scale of the shadow cone.
func (s *Service) CelestialState(body Body, t gtime.Epoch, frame Frame) ([3]float64, error) {
	switch body {
	case BodyEarth:
		return [3]float64{}, nil
	case BodySun:
		return sunPositionKm(t), nil
	}
	return [3]float64{}, fmt.Errorf("celestial: no ephemeris for body %v", body)
}

// EclipseState classifies the orbit against the Earth shadow cone. The
// apparent solar and terrestrial discs are compared as seen from the
// orbit; partially overlapping discs yield Penumbra with the visible
// fraction of the solar disc as rate.
func (s *Service) EclipseState(orbit Orbit, sun, earth Frame) EclipseState {
	rSun := sunPositionKm(orbit.Epoch)
	rSat := orbit.PosKm

	satToSun := [3]float64{rSun[0] - rSat[0], rSun[1] - rSat[1], rSun[2] - rSat[2]}
	satToEarth := [3]float64{-rSat[0], -rSat[1], -rSat[2]}

	dSun := norm(satToSun)
	dEarth := norm(satToEarth)

	// Apparent disc radii and their angular separation.
	rhoSun := math.Asin(clamp(SunRadiusKm/dSun, -1, 1))
	rhoEarth := math.Asin(clamp(EarthRadiusKm/dEarth, -1, 1))
	theta := math.Acos(clamp(dot(satToSun, satToEarth)/(dSun*dEarth), -1, 1))

	switch {
	case theta >= rhoSun+rhoEarth:
		return EclipseState{Kind: Visibilis}
	case theta <= rhoEarth-rhoSun:
		return EclipseState{Kind: Umbra}
	case theta <= rhoSun-rhoEarth:
		// Earth disc inside the solar disc: annular, mostly lit.
		ratio := rhoEarth / rhoSun
		return EclipseState{Kind: Penumbra, Rate: 1.0 - ratio*ratio}
	}

	occluded := discOverlap(rhoSun, rhoEarth, theta)
	visible := 1.0 - occluded/(math.Pi*rhoSun*rhoSun)
	return EclipseState{Kind: Penumbra, Rate: clamp(visible, 0, 1)}
}

// discOverlap returns the intersection area of two discs of radii r1,
// r2 whose centers are d apart (lens area, standard two circle form).
func discOverlap(r1, r2, d float64) float64 {
	d1 := (d*d + r1*r1 - r2*r2) / (2 * d)
	d2 := d - d1
	a1 := r1*r1*math.Acos(clamp(d1/r1, -1, 1)) - d1*math.Sqrt(math.Max(r1*r1-d1*d1, 0))
	a2 := r2*r2*math.Acos(clamp(d2/r2, -1, 1)) - d2*math.Sqrt(math.Max(r2*r2-d2*d2, 0))
	return a1 + a2
}

// sunPositionKm evaluates the geocentric solar position at t, in km,
// equatorial coordinates.
func sunPositionKm(t gtime.Epoch) [3]float64 {
	jd := t.TotalSeconds()/86400.0 + 2440587.5
	T := (jd - 2451545.0) / 36525.0

	// Mean longitude and mean anomaly of the Sun.
	l0 := math.Mod(280.46646+36000.76983*T, 360.0) * deg2rad
	m := math.Mod(357.52911+35999.05029*T, 360.0) * deg2rad

	// Equation of center.
	c := ((1.914602-0.004817*T)*math.Sin(m) +
		0.019993*math.Sin(2*m) +
		0.000289*math.Sin(3*m)) * deg2rad

	lambda := l0 + c
	e := 0.016708634 - 0.000042037*T
	nu := m + c
	r := AstronomicalUnit * 1.000001018 * (1 - e*e) / (1 + e*math.Cos(nu))

	eps := (23.439291 - 0.0130042*T) * deg2rad

	return [3]float64{
		r * math.Cos(lambda),
		r * math.Sin(lambda) * math.Cos(eps),
		r * math.Sin(lambda) * math.Sin(eps),
	}
}

const deg2rad = math.Pi / 180.0

func norm(v [3]float64) float64 {
	return math.Sqrt(v[0]*v[0] + v[1]*v[1] + v[2]*v[2])
}

func dot(a, b [3]float64) float64 {
	return a[0]*b[0] + a[1]*b[1] + a[2]*b[2]
}

func clamp(v, lo, hi float64) float64 {
	return math.Min(math.Max(v, lo), hi)
}
