package celestial

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/de-bkg/gopvt/pkg/gtime"
)

func mustEpoch(t *testing.T, s string) gtime.Epoch {
	t.Helper()
	e, err := gtime.Parse(s)
	if err != nil {
		t.Fatal(err)
	}
	return e
}

func TestSunPosition(t *testing.T) {
	// Around the June solstice the Sun sits near its maximum northern
	// declination, about +23.4 deg.
	e := mustEpoch(t, "2020-06-21T12:00:00 UTC")
	pos := sunPositionKm(e)

	r := norm(pos)
	assert.InDelta(t, AstronomicalUnit, r, 0.02*AstronomicalUnit, "Sun distance close to 1 AU")

	decl := math.Asin(pos[2]/r) * 180.0 / math.Pi
	assert.InDelta(t, 23.4, decl, 0.5, "solar declination at solstice")
}

func TestEclipseState(t *testing.T) {
	e := mustEpoch(t, "2020-06-25T12:00:30 GPST")
	svc := NewService()

	sun := sunPositionKm(e)
	sunDir := [3]float64{sun[0] / norm(sun), sun[1] / norm(sun), sun[2] / norm(sun)}

	// MEO altitude, on the sunlit side.
	lit := Orbit{
		PosKm: [3]float64{sunDir[0] * 26600, sunDir[1] * 26600, sunDir[2] * 26600},
		Epoch: e,
		Frame: FrameEME2000,
	}
	assert.Equal(t, Visibilis, svc.EclipseState(lit, FrameSunJ2000, FrameEME2000).Kind)

	// Low orbit on the night side, behind the Earth: deep in the shadow cone.
	dark := Orbit{
		PosKm: [3]float64{-sunDir[0] * 7000, -sunDir[1] * 7000, -sunDir[2] * 7000},
		Epoch: e,
		Frame: FrameEME2000,
	}
	assert.Equal(t, Umbra, svc.EclipseState(dark, FrameSunJ2000, FrameEME2000).Kind)
}

func TestCelestialState(t *testing.T) {
	e := mustEpoch(t, "2020-06-25T12:00:30 GPST")
	svc := NewService()

	earth, err := svc.CelestialState(BodyEarth, e, FrameEME2000)
	assert.NoError(t, err)
	assert.Equal(t, [3]float64{}, earth)

	sun, err := svc.CelestialState(BodySun, e, FrameEME2000)
	assert.NoError(t, err)
	assert.Greater(t, norm(sun), 0.9*AstronomicalUnit)
}

func TestDiscOverlap(t *testing.T) {
	// Identical coincident discs overlap over their full area.
	r := 1.0
	assert.InDelta(t, math.Pi*r*r, discOverlap(r, r, 1e-12), 1e-6)
}
