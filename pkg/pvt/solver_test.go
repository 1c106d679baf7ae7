package pvt

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/de-bkg/gopvt/pkg/celestial"
	"github.com/de-bkg/gopvt/pkg/gnss"
	"github.com/de-bkg/gopvt/pkg/gtime"
)

// solver test bed: a receiver high above the ellipsoid with four GPS
// SVs about 1000 km away on a quasi spherical MEO shell. Satellite
// positions are laid out so that pseudo range, geometric range and
// clock correction cancel exactly, which pins the expected solution to
// the apriori position with a null clock bias.

var testClockCorr = map[int]float64{
	1: 0.162520179759e-4,
	2: -0.477580320500e-3,
	3: -0.220043185257e-3,
	5: -0.153530275954e-4,
}

var testDirections = map[int][3]float64{
	1: {1.0, 0.0, 0.0},
	2: {0.8, 0.6, 0.0},
	3: {0.8, 0.0, 0.6},
	5: {0.8, -0.36, -0.48},
}

const testPseudoRange = 1.0e6

func testApriori(t *testing.T) AprioriPosition {
	t.Helper()
	ap, err := NewAprioriPosition(Coord{X: 25.6e6})
	if err != nil {
		t.Fatal(err)
	}
	return ap
}

// testSVPos places a satellite so that its geometric range to the
// apriori position equals pseudorange + clockCorr * c.
func testSVPos(ap AprioriPosition, prn int) Coord {
	rho := testPseudoRange + testClockCorr[prn]*SpeedOfLight
	u := testDirections[prn]
	return Coord{
		X: ap.ECEF.X + rho*u[0],
		Y: ap.ECEF.Y + rho*u[1],
		Z: ap.ECEF.Z + rho*u[2],
	}
}

func testInterpolator(ap AprioriPosition) Interpolator {
	return func(t gtime.Epoch, sv gnss.SV, order uint) *InterpolationResult {
		pos := testSVPos(ap, int(sv.Num))
		return &InterpolationResult{
			SkyPos:    Coord{X: pos.X / 1000.0, Y: pos.Y / 1000.0, Z: pos.Z / 1000.0},
			Elevation: fp(15.0 + 10.0*float64(sv.Num)),
			Azimuth:   fp(40.0 * float64(sv.Num)),
		}
	}
}

func testPool(t *testing.T, prns []int, code func(prn int) []Observation) []Candidate {
	t.Helper()
	rx := mustEpoch(t, "2020-06-25T12:00:30 GPST")
	tgd := gtime.FromNanoseconds(10.0)

	pool := make([]Candidate, 0, len(prns))
	for _, prn := range prns {
		c, err := NewCandidate(gnss.NewSV(gnss.SysGPS, prn), rx,
			Coord{}, gtime.Duration(testClockCorr[prn]), &tgd,
			code(prn), nil, nil)
		require.NoError(t, err)
		pool = append(pool, c)
	}
	return pool
}

func singleL1(prn int) []Observation {
	return []Observation{{Value: testPseudoRange, Frequency: FreqL1}}
}

func TestNew(t *testing.T) {
	ap := testApriori(t)

	_, err := New(ap, DefaultConfig(), nil)
	assert.Error(t, err, "interpolator is mandatory")

	_, err = New(AprioriPosition{}, DefaultConfig(), testInterpolator(ap))
	assert.ErrorIs(t, err, ErrUndefinedAprioriPosition)

	cfg := DefaultConfig()
	cfg.Modeling.EarthRotation = true
	cfg.Modeling.RelativisticClockCorr = true
	s, err := New(ap, cfg, testInterpolator(ap))
	assert.NoError(t, err, "reserved flags warn but do not fail")
	assert.NotNil(t, s)
}

func TestRun_FourSVEpoch(t *testing.T) {
	ap := testApriori(t)
	s, err := New(ap, DefaultConfig(), testInterpolator(ap))
	require.NoError(t, err)

	rx := mustEpoch(t, "2020-06-25T12:00:30 GPST")
	pool := testPool(t, []int{1, 2, 3, 5}, singleL1)

	tOut, sol, err := s.Run(rx, pool, nil, nil)
	require.NoError(t, err)
	require.NotNil(t, sol)
	assert.Equal(t, rx, tOut)

	assert.False(t, math.IsNaN(sol.P.X) || math.IsNaN(sol.P.Y) || math.IsNaN(sol.P.Z))
	assert.Less(t, math.Abs(sol.Dt), 1e-3)
	assert.InDelta(t, 0.0, sol.P.X, 1e-3, "pseudo ranges are consistent with the apriori")
	assert.Equal(t, Coord{}, sol.V, "velocity is not estimated")

	svs := sol.SV()
	assert.Len(t, svs, 4)
	assert.ElementsMatch(t, []gnss.SV{
		gnss.NewSV(gnss.SysGPS, 1),
		gnss.NewSV(gnss.SysGPS, 2),
		gnss.NewSV(gnss.SysGPS, 3),
		gnss.NewSV(gnss.SysGPS, 5),
	}, svs)

	data, ok := sol.SVData(gnss.NewSV(gnss.SysGPS, 2))
	require.True(t, ok)
	assert.Equal(t, 35.0, data.Elevation)
	assert.NotNil(t, data.TropoBias.Modeled, "tropo delay was modeled, not measured")

	assert.GreaterOrEqual(t, sol.GDOP, 0.0)
	assert.GreaterOrEqual(t, sol.TDOP, 0.0)
	assert.False(t, math.IsNaN(sol.HDOP(ap.Geodetic[0], ap.Geodetic[1])))
}

func TestRun_ThreeSVEpochRejected(t *testing.T) {
	ap := testApriori(t)
	s, err := New(ap, DefaultConfig(), testInterpolator(ap))
	require.NoError(t, err)

	rx := mustEpoch(t, "2020-06-25T12:00:00 GPST")
	pool := testPool(t, []int{1, 2, 3}, singleL1)

	_, sol, err := s.Run(rx, pool, nil, nil)
	assert.Nil(t, sol, "no partial solution")

	var lessThan *LessThanRequiredSVError
	require.True(t, errors.As(err, &lessThan))
	assert.Equal(t, 4, lessThan.Required)
	assert.Equal(t, 3, lessThan.Count)
	assert.Equal(t, rx, lessThan.T)
}

func TestRun_InterpolationMissDropsCandidate(t *testing.T) {
	ap := testApriori(t)
	interp := testInterpolator(ap)
	missing := func(t gtime.Epoch, sv gnss.SV, order uint) *InterpolationResult {
		if sv.Num == 2 {
			return nil
		}
		return interp(t, sv, order)
	}

	s, err := New(ap, DefaultConfig(), missing)
	require.NoError(t, err)

	rx := mustEpoch(t, "2020-06-25T12:00:30 GPST")
	_, sol, err := s.Run(rx, testPool(t, []int{1, 2, 3, 5}, singleL1), nil, nil)
	assert.Nil(t, sol)

	var lessThan *LessThanRequiredSVError
	require.True(t, errors.As(err, &lessThan))
	assert.Equal(t, 3, lessThan.Count)
}

func TestRun_ElevationMask(t *testing.T) {
	ap := testApriori(t)
	interp := testInterpolator(ap)
	lowSat := func(t gtime.Epoch, sv gnss.SV, order uint) *InterpolationResult {
		res := interp(t, sv, order)
		if sv.Num == 5 {
			res.Elevation = fp(5.0)
		}
		return res
	}

	cfg := DefaultConfig()
	cfg.MinSVElev = fp(15.0)
	s, err := New(ap, cfg, lowSat)
	require.NoError(t, err)

	rx := mustEpoch(t, "2020-06-25T12:00:30 GPST")
	_, _, err = s.Run(rx, testPool(t, []int{1, 2, 3, 5}, singleL1), nil, nil)

	var lessThan *LessThanRequiredSVError
	require.True(t, errors.As(err, &lessThan))
	assert.Equal(t, 3, lessThan.Count)
}

func TestRun_ElevationMaskNeedsElevation(t *testing.T) {
	ap := testApriori(t)
	interp := testInterpolator(ap)
	blind := func(t gtime.Epoch, sv gnss.SV, order uint) *InterpolationResult {
		res := interp(t, sv, order)
		res.Elevation = nil
		return res
	}

	cfg := DefaultConfig()
	cfg.MinSVElev = fp(15.0)
	s, err := New(ap, cfg, blind)
	require.NoError(t, err)

	rx := mustEpoch(t, "2020-06-25T12:00:30 GPST")
	_, _, err = s.Run(rx, testPool(t, []int{1, 2, 3, 5}, singleL1), nil, nil)

	var lessThan *LessThanRequiredSVError
	require.True(t, errors.As(err, &lessThan))
	assert.Equal(t, 0, lessThan.Count, "elevation mask drops SV without elevation information")
}

type fakeCelestial struct {
	state celestial.EclipseState
}

func (f *fakeCelestial) EclipseState(orbit celestial.Orbit, sun, earth celestial.Frame) celestial.EclipseState {
	return f.state
}

func (f *fakeCelestial) CelestialState(body celestial.Body, t gtime.Epoch, frame celestial.Frame) ([3]float64, error) {
	return [3]float64{}, nil
}

func TestRun_EclipseFilter(t *testing.T) {
	ap := testApriori(t)
	rx := mustEpoch(t, "2020-06-25T12:00:30 GPST")

	cfg := DefaultConfig()
	cfg.MinSVSunlightRate = fp(0.8)

	tests := []struct {
		name    string
		state   celestial.EclipseState
		wantErr bool
	}{
		{name: "umbra-drops", state: celestial.EclipseState{Kind: celestial.Umbra}, wantErr: true},
		{name: "visibilis-passes", state: celestial.EclipseState{Kind: celestial.Visibilis}, wantErr: false},
		{name: "penumbra-below-rate", state: celestial.EclipseState{Kind: celestial.Penumbra, Rate: 0.5}, wantErr: true},
		{name: "penumbra-above-rate", state: celestial.EclipseState{Kind: celestial.Penumbra, Rate: 0.9}, wantErr: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := New(ap, cfg, testInterpolator(ap))
			require.NoError(t, err)
			s.SetCelestial(&fakeCelestial{state: tt.state})

			_, sol, err := s.Run(rx, testPool(t, []int{1, 2, 3, 5}, singleL1), nil, nil)
			if tt.wantErr {
				var lessThan *LessThanRequiredSVError
				require.True(t, errors.As(err, &lessThan))
				assert.Nil(t, sol)
			} else {
				require.NoError(t, err)
				assert.NotNil(t, sol)
			}
		})
	}
}

func TestRun_PPP(t *testing.T) {
	ap := testApriori(t)

	cfg := DefaultConfig()
	cfg.Method = MethodPPP

	dualFreq := func(prn int) []Observation {
		return []Observation{
			{Value: testPseudoRange, Frequency: FreqL1},
			{Value: testPseudoRange, Frequency: FreqL2},
		}
	}

	s, err := New(ap, cfg, testInterpolator(ap))
	require.NoError(t, err)

	rx := mustEpoch(t, "2020-06-25T12:00:30 GPST")
	_, sol, err := s.Run(rx, testPool(t, []int{1, 2, 3, 5}, dualFreq), nil, nil)
	require.NoError(t, err)
	assert.Less(t, math.Abs(sol.Dt), 1e-3)
	assert.Len(t, sol.SV(), 4)

	// Single frequency candidates are not PPP compatible.
	_, _, err = s.Run(rx, testPool(t, []int{1, 2, 3, 5}, singleL1), nil, nil)
	var lessThan *LessThanRequiredSVError
	require.True(t, errors.As(err, &lessThan))
	assert.Equal(t, 0, lessThan.Count)
}

func TestRun_MinSNRMask(t *testing.T) {
	ap := testApriori(t)

	cfg := DefaultConfig()
	cfg.MinSNR = fp(30.0)

	weakPRN2 := func(prn int) []Observation {
		snr := 45.0
		if prn == 2 {
			snr = 10.0
		}
		return []Observation{{Value: testPseudoRange, Frequency: FreqL1, SNR: fp(snr)}}
	}

	s, err := New(ap, cfg, testInterpolator(ap))
	require.NoError(t, err)

	rx := mustEpoch(t, "2020-06-25T12:00:30 GPST")
	pool := testPool(t, []int{1, 2, 3, 5}, weakPRN2)
	_, _, err = s.Run(rx, pool, nil, nil)

	var lessThan *LessThanRequiredSVError
	require.True(t, errors.As(err, &lessThan))
	assert.Equal(t, 3, lessThan.Count)

	// the caller's pool is left untouched by the mask
	assert.Len(t, pool[1].code, 1)
}

func TestRun_MeasuredTropoComponents(t *testing.T) {
	ap := testApriori(t)
	s, err := New(ap, DefaultConfig(), testInterpolator(ap))
	require.NoError(t, err)

	rx := mustEpoch(t, "2020-06-25T12:00:30 GPST")
	_, sol, err := s.Run(rx, testPool(t, []int{1, 2, 3, 5}, singleL1), nil,
		TropoComponents{ZWD: 0.0, ZDD: 0.0})
	require.NoError(t, err)

	data, ok := sol.SVData(gnss.NewSV(gnss.SysGPS, 1))
	require.True(t, ok)
	assert.NotNil(t, data.TropoBias.Measured, "provider bias recorded as measured")
	assert.Nil(t, data.TropoBias.Modeled)
}

func TestRun_SolutionTypeThresholds(t *testing.T) {
	ap := testApriori(t)

	cfg := DefaultConfig()
	cfg.SolType = FixedAltitudePVT
	s, err := New(ap, cfg, testInterpolator(ap))
	require.NoError(t, err)

	rx := mustEpoch(t, "2020-06-25T12:00:00 GPST")
	// Three SVs suffice in fixed altitude mode... for admission; the
	// geometry matrix still needs four rows to invert, which such a
	// pool cannot provide.
	_, _, err = s.Run(rx, testPool(t, []int{1, 2}, singleL1), nil, nil)
	var lessThan *LessThanRequiredSVError
	require.True(t, errors.As(err, &lessThan))
	assert.Equal(t, 3, lessThan.Required)
}

func TestRun_ARPOffset(t *testing.T) {
	ap := testApriori(t)

	cfg := DefaultConfig()
	cfg.ARPEnu = &CoordNEU{Up: 10.0}

	s, err := New(ap, cfg, testInterpolator(ap))
	require.NoError(t, err)

	rx := mustEpoch(t, "2020-06-25T12:00:30 GPST")
	_, sol, err := s.Run(rx, testPool(t, []int{1, 2, 3, 5}, singleL1), nil, nil)
	require.NoError(t, err)

	// At lat 0 / lon 0 the Up axis is +X: shifting the reference up by
	// 10 m moves the resolved correction down by the same amount.
	assert.InDelta(t, -10.0, sol.P.X, 0.05)
}
