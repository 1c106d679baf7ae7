package pvt

import (
	"errors"

	log "github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/mat"

	"github.com/de-bkg/gopvt/pkg/celestial"
	"github.com/de-bkg/gopvt/pkg/gnss"
	"github.com/de-bkg/gopvt/pkg/gtime"
)

// InterpolationResult is what the interpolator callback should return
// for a solving run to truly complete.
type InterpolationResult struct {
	// SkyPos is the SV position in the sky [km].
	SkyPos Coord
	// Elevation compared to reference position and horizon [deg], if known.
	Elevation *float64
	// Azimuth seen from the reference position, clockwise from north [deg], if known.
	Azimuth *float64
}

// Interpolator resolves the state of an SV at the requested epoch, to
// the given interpolation order. It is mandatory: the solver will not
// proceed without it. Returning nil marks the epoch as not resolvable
// for that SV.
type Interpolator func(t gtime.Epoch, sv gnss.SV, order uint) *InterpolationResult

// Solver resolves PVT solutions epoch by epoch. A solver instance is
// not safe for concurrent runs; callers wishing to parallelize across
// epochs must hold separate instances.
type Solver struct {
	// Cfg is the solver parametrization.
	Cfg Config
	// Apriori is the static reference position.
	Apriori AprioriPosition

	interpolator Interpolator
	celestial    celestial.Provider
	sunFrame     celestial.Frame
	earthFrame   celestial.Frame
	models       *models
}

// New builds a solver around an apriori position and an SV state
// interpolator. Celestial frames are resolved once. Reserved modeling
// flags emit a one-shot warning here and are then ignored.
func New(apriori AprioriPosition, cfg Config, interpolator Interpolator) (*Solver, error) {
	if interpolator == nil {
		return nil, errors.New("pvt: an SV state interpolator is mandatory")
	}
	if apriori.ECEF.X == 0 && apriori.ECEF.Y == 0 && apriori.ECEF.Z == 0 {
		return nil, ErrUndefinedAprioriPosition
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if cfg.Modeling.EarthRotation {
		log.Warn("can't compensate for earth rotation at the moment")
	}
	if cfg.Modeling.RelativisticClockCorr {
		log.Warn("relativistic clock corr. is not feasible at the moment")
	}
	if cfg.Method == MethodSPP && cfg.MinSVSunlightRate != nil {
		log.Warn("eclipse filter is not meaningful when using spp strategy")
	}

	return &Solver{
		Cfg:          cfg,
		Apriori:      apriori,
		interpolator: interpolator,
		celestial:    celestial.NewService(),
		sunFrame:     celestial.FrameSunJ2000,
		earthFrame:   celestial.FrameEME2000,
		models:       newModels(cfg.MaxSV),
	}, nil
}

// SetCelestial injects a custom celestial backend, replacing the
// built-in service.
func (s *Solver) SetCelestial(p celestial.Provider) {
	s.celestial = p
}

// Run resolves one epoch from the candidate pool. Pass nil bias
// providers to rely on the internal models. A failed epoch yields no
// state mutation and the solver is safe to call again.
func (s *Solver) Run(t gtime.Epoch, pool []Candidate,
	ionoBias IonosphericBias, tropoBias TroposphericBias) (gtime.Epoch, *PVTSolution, error) {

	cfg := &s.Cfg

	apriori := s.Apriori.ECEF
	if cfg.ARPEnu != nil {
		shift := enuShift(*cfg.ARPEnu, s.Apriori.Geodetic[0], s.Apriori.Geodetic[1])
		apriori = Coord{X: apriori.X + shift.X, Y: apriori.Y + shift.Y, Z: apriori.Z + shift.Z}
	}
	aprioriGeo := s.Apriori.Geodetic

	// candidates election
	elected := s.electCandidates(t, pool)

	// interpolate SV states at transmission time
	resolved := make([]Candidate, 0, len(elected))
	for _, c := range elected {
		eTx, _, err := c.transmissionTime(cfg)
		if err != nil {
			log.Debugf("%v (%v) : dropped: %v", t, c.SV, err)
			continue
		}
		c.TTx = eTx

		interpolated := s.interpolator(eTx, c.SV, cfg.InterpOrder)
		if interpolated == nil {
			log.Warnf("%v (%v) : interpolation failed", eTx, c.SV)
			continue
		}
		log.Debugf("%v (%v) : interpolated state: %+v", eTx, c.SV, interpolated.SkyPos)

		c.state = &resolvedState{
			pos: Coord{
				X: interpolated.SkyPos.X * 1.0e3,
				Y: interpolated.SkyPos.Y * 1.0e3,
				Z: interpolated.SkyPos.Z * 1.0e3,
			},
			elevation: interpolated.Elevation,
			azimuth:   interpolated.Azimuth,
		}
		resolved = append(resolved, c)
	}

	// elevation mask: cheaper than the eclipse query, applied first
	if cfg.MinSVElev != nil {
		kept := resolved[:0]
		for _, c := range resolved {
			if c.state.elevation == nil {
				log.Debugf("%v (%v) : no elevation information", c.T, c.SV)
				continue
			}
			if *c.state.elevation < *cfg.MinSVElev {
				log.Debugf("%v (%v) : below elevation mask", c.T, c.SV)
				continue
			}
			kept = append(kept, c)
		}
		resolved = kept
	}

	// eclipse filter
	if cfg.MinSVSunlightRate != nil {
		kept := resolved[:0]
		for _, c := range resolved {
			orbit := celestial.Orbit{
				PosKm: [3]float64{
					c.state.pos.X / 1000.0,
					c.state.pos.Y / 1000.0,
					c.state.pos.Z / 1000.0,
				},
				Epoch: c.T,
				Frame: s.earthFrame,
			}
			state := s.celestial.EclipseState(orbit, s.sunFrame, s.earthFrame)
			eclipsed := false
			switch state.Kind {
			case celestial.Umbra:
				eclipsed = true
			case celestial.Visibilis:
				eclipsed = false
			case celestial.Penumbra:
				eclipsed = state.Rate < *cfg.MinSVSunlightRate
			}
			if eclipsed {
				log.Debugf("%v (%v) : earth eclipsed, dropping", c.T, c.SV)
				continue
			}
			kept = append(kept, c)
		}
		resolved = kept
	}

	// make sure we still have enough SV
	required := cfg.SolType.minSVRequired()
	if len(resolved) < required {
		return t, nil, &LessThanRequiredSVError{T: t, Required: required, Count: len(resolved)}
	}
	log.Debugf("%v : %d elected sv", t, len(resolved))

	// form the navigation system
	n := len(resolved)
	y := make([]float64, n)
	g := make([][4]float64, n)

	s.models.reset()
	for i := range resolved {
		c := &resolved[i]
		svData, err := c.resolve(t, cfg, apriori, aprioriGeo, ionoBias, tropoBias, i, y, g)
		if err != nil {
			return t, nil, &SolvingError{T: t, Err: err}
		}
		s.models.set(c.SV, svData)
	}

	gData := make([]float64, 0, n*4)
	for i := range g {
		gData = append(gData, g[i][0], g[i][1], g[i][2], g[i][3])
	}

	sol, err := newPVTSolution(mat.NewDense(n, 4, gData), nil, mat.NewVecDense(n, y), s.models.snapshot())
	if err != nil {
		return t, nil, &SolvingError{T: t, Err: err}
	}
	return t, sol, nil
}

// electCandidates retains the pool candidates compatible with the
// configured method, SNR mask applied first.
func (s *Solver) electCandidates(t gtime.Epoch, pool []Candidate) []Candidate {
	cfg := &s.Cfg
	elected := make([]Candidate, 0, len(pool))
	for _, c := range pool {
		if cfg.MinSNR != nil {
			// mask a copy, the caller's pool stays untouched
			c.code = append([]Observation(nil), c.code...)
			c.phase = append([]Observation(nil), c.phase...)
			c.doppler = append([]Observation(nil), c.doppler...)
			c.applyMinSNRMask(*cfg.MinSNR)
			if len(c.code) == 0 {
				log.Debugf("%v (%v) : all observations below snr mask", t, c.SV)
				continue
			}
		}
		if cfg.Method == MethodPPP && !c.pppCompatible() {
			log.Debugf("%v (%v) : not ppp compatible", t, c.SV)
			continue
		}
		elected = append(elected, c)
	}
	return elected
}
