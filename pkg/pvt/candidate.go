// Package pvt resolves per-epoch GNSS position and receiver clock bias
// from raw signal observations and interpolated SV states. Velocity is
// not estimated and is left zero.
package pvt

import (
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/de-bkg/gopvt/pkg/gnss"
	"github.com/de-bkg/gopvt/pkg/gtime"
)

// SpeedOfLight is the speed of light in vacuum [m/s].
const SpeedOfLight = 299792458.0

// GPS carrier frequencies [Hz].
const (
	FreqL1 = 1575.42e6
	FreqL2 = 1227.60e6
	FreqL5 = 1176.45e6
)

// Observation is a single signal measurement.
type Observation struct {
	// Frequency is the carrier frequency [Hz].
	Frequency float64 `json:"frequency"`
	// Value is the observation itself: [m] for pseudo range,
	// [cycles] for phase, [Hz] for doppler.
	Value float64 `json:"value"`
	// SNR is the optional (but recommended) signal to noise ratio [dB].
	SNR *float64 `json:"snr,omitempty"`
}

// resolvedState is an SV state interpolated at transmission time.
type resolvedState struct {
	pos       Coord // ECEF position [m]
	elevation *float64
	azimuth   *float64
}

// Candidate is one SV's contribution to a solving epoch.
type Candidate struct {
	// SV is the satellite identity.
	SV gnss.SV
	// T is the sampling (receive) epoch.
	T gtime.Epoch
	// TTx is the transmission epoch, initially T, refined by the solver.
	TTx gtime.Epoch

	state      *resolvedState
	clockState Coord
	clockCorr  gtime.Duration
	tgd        *gtime.Duration
	code       []Observation
	phase      []Observation
	doppler    []Observation
}

// NewCandidate creates a candidate to inject in the solver pool.
// clockState is the SV clock offset vector against its GNSS timescale,
// clockCorr the scalar correction applied, tgd a possible total group
// delay. Provide as many code, phase and doppler observations as the
// receiver produced; at least one code observation is mandatory.
func NewCandidate(sv gnss.SV, t gtime.Epoch, clockState Coord, clockCorr gtime.Duration,
	tgd *gtime.Duration, code, phase, doppler []Observation) (Candidate, error) {
	if len(code) == 0 {
		return Candidate{}, ErrNeedsAtLeastOnePseudoRange
	}
	return Candidate{
		SV:         sv,
		T:          t,
		TTx:        t,
		clockState: clockState,
		clockCorr:  clockCorr,
		tgd:        tgd,
		code:       code,
		phase:      phase,
		doppler:    doppler,
	}, nil
}

// bestSNR returns the best observed SNR whatever the signal, or nil if
// no observation carries one.
func (c *Candidate) bestSNR() *float64 {
	var best *float64
	for _, list := range [][]Observation{c.code, c.phase, c.doppler} {
		for i := range list {
			snr := list[i].SNR
			if snr == nil {
				continue
			}
			if best == nil || *snr > *best {
				best = snr
			}
		}
	}
	return best
}

// preferedPseudoRange returns one code observation [m], whatever the
// frequency. Best SNR is prefered though, if such information was
// provided.
func (c *Candidate) preferedPseudoRange() *Observation {
	var pick *Observation
	var snr *float64
	for i := range c.code {
		obs := &c.code[i]
		if pick == nil {
			pick = obs
			snr = obs.SNR
			continue
		}
		if obs.SNR != nil && (snr == nil || *obs.SNR > *snr) {
			pick = obs
			snr = obs.SNR
		}
	}
	if pick == nil {
		return nil
	}
	cp := *pick
	return &cp
}

// dualPseudoRange reports whether code observations span at least two
// distinct carriers, at kHz granularity.
func (c *Candidate) dualPseudoRange() bool {
	return dualFrequency(c.code)
}

// dualPhase reports whether phase observations span at least two
// distinct carriers, at kHz granularity.
func (c *Candidate) dualPhase() bool {
	return dualFrequency(c.phase)
}

func dualFrequency(list []Observation) bool {
	bands := make(map[int64]struct{}, len(list))
	for i := range list {
		bands[int64(list[i].Frequency/1000.0)] = struct{}{}
	}
	return len(bands) > 1
}

// pppCompatible reports whether the candidate qualifies for PPP.
func (c *Candidate) pppCompatible() bool {
	return c.dualPseudoRange() // && c.dualPhase() TODO phase duality
}

// pseudoRangeCombination forms the L1/Lx ionosphere free pseudo range
// combination. L1 is mandatory, L2 is prefered over L5 as companion.
func (c *Candidate) pseudoRangeCombination() *Observation {
	var l1, l2, l5 *Observation
	for i := range c.code {
		switch int(c.code[i].Frequency / 1.0e6) {
		case 1575:
			l1 = &c.code[i]
		case 1227:
			l2 = &c.code[i]
		case 1176:
			l5 = &c.code[i]
		}
	}

	if l1 == nil {
		return nil
	}

	var lx *Observation
	fLx := 0.0
	switch {
	case l2 != nil:
		lx, fLx = l2, FreqL2
	case l5 != nil:
		lx, fLx = l5, FreqL5
	default:
		return nil
	}

	alpha := 1.0 / (FreqL1*FreqL1 - fLx*fLx)
	beta := FreqL1 * FreqL1
	gamma := fLx * fLx
	return &Observation{
		SNR:       nil,
		Frequency: l1.Frequency,
		Value:     alpha * (beta*l1.Value - gamma*lx.Value),
	}
}

// applyMinSNRMask retains, in place, observations whose SNR is known
// and at least minSNR. Observations without SNR are dropped.
func (c *Candidate) applyMinSNRMask(minSNR float64) {
	c.code = retainBySNR(c.code, minSNR)
	c.phase = retainBySNR(c.phase, minSNR)
	c.doppler = retainBySNR(c.doppler, minSNR)
}

func retainBySNR(list []Observation, minSNR float64) []Observation {
	kept := list[:0]
	for i := range list {
		if list[i].SNR != nil && *list[i].SNR >= minSNR {
			kept = append(kept, list[i])
		}
	}
	return kept
}

// transmissionTime computes the signal transmission epoch and the
// signal propagation time, applying the configured SV clock and group
// delay corrections. A propagation delay outside (0, 100ms] is a
// programming error and panics.
func (c *Candidate) transmissionTime(cfg *Config) (gtime.Epoch, gtime.Duration, error) {
	t := c.T

	pr := c.preferedPseudoRange()
	if pr == nil {
		return gtime.Epoch{}, 0, ErrMissingPseudoRange
	}

	eTx := t.Add(gtime.Duration(-pr.Value / SpeedOfLight))

	if cfg.Modeling.SVClockBias {
		log.Debugf("%v (%v) clock correction: %v", t, c.SV, c.clockCorr)
		eTx = eTx.Add(-c.clockCorr)
	}

	if cfg.Modeling.SVTotalGroupDelay && c.tgd != nil {
		log.Debugf("%v (%v) tgd: %v", t, c.SV, *c.tgd)
		eTx = eTx.Add(-*c.tgd)
	}

	dt := t.Sub(eTx)
	if dt.Seconds() <= 0.0 {
		panic(fmt.Sprintf("physical non sense - RX %v prior TX %v", t, eTx))
	}
	if dt.Seconds() > 0.1 {
		panic(fmt.Sprintf("something's wrong - %v propagation delay is suspicious", dt))
	}
	return eTx, dt, nil
}

// resolve fills row rowIndex of the navigation system around the
// apriori position and returns the per-SV diagnostic data.
func (c *Candidate) resolve(t gtime.Epoch, cfg *Config,
	apriori Coord, aprioriGeo [3]float64,
	ionoBias IonosphericBias, tropoBias TroposphericBias,
	rowIndex int, y []float64, g [][4]float64) (SVData, error) {

	if c.state == nil {
		return SVData{}, ErrUnresolvedState
	}
	state := c.state

	var svData SVData
	if state.azimuth != nil {
		svData.Azimuth = *state.azimuth
	}
	if state.elevation != nil {
		svData.Elevation = *state.elevation
	}

	x0, y0, z0 := apriori.X, apriori.Y, apriori.Z
	svX, svY, svZ := state.pos.X, state.pos.Y, state.pos.Z

	rho := distance(svX-x0, svY-y0, svZ-z0)
	g[rowIndex][0] = (x0 - svX) / rho
	g[rowIndex][1] = (y0 - svY) / rho
	g[rowIndex][2] = (z0 - svZ) / rho
	g[rowIndex][3] = 1.0

	models := 0.0
	if cfg.Modeling.SVClockBias {
		models -= c.clockCorr.Seconds() * SpeedOfLight
	}

	var code *Observation
	switch cfg.Method {
	case MethodPPP:
		code = c.pseudoRangeCombination()
		if code == nil {
			return SVData{}, ErrPseudoRangeCombination
		}
	default:
		code = c.preferedPseudoRange()
		if code == nil {
			return SVData{}, ErrMissingPseudoRange
		}
	}
	pr, frequency := code.Value, code.Frequency

	rtm := RuntimeParams{
		T:          t,
		Elevation:  svData.Elevation,
		Azimuth:    svData.Azimuth,
		Frequency:  frequency,
		AprioriGeo: aprioriGeo,
	}

	if cfg.Modeling.TropoDelay {
		if tropoBias == nil || tropoBias.NeedsModeling() {
			bias := modelTropoDelay(rtm)
			log.Debugf("%v : modeled tropo delay %.3E[m]", t, bias)
			models += bias
			svData.TropoBias = ModeledBias(bias)
		} else if bias, ok := tropoBias.Bias(rtm); ok {
			log.Debugf("%v : measured tropo delay %.3E[m]", t, bias)
			models += bias
			svData.TropoBias = MeasuredBias(bias)
		}
	}

	// PPP consumes the ionosphere free combination instead.
	if cfg.Method == MethodSPP && cfg.Modeling.IonoDelay && ionoBias != nil {
		if bias, ok := ionoBias.Bias(rtm); ok {
			log.Debugf("%v : modeled iono delay (f=%.3EHz) %.3E[m]", t, frequency, bias)
			models += bias
			svData.IonoBias = ModeledBias(bias)
		}
	}

	// Hardware delay compensations, folded in additively.
	adjust := 0.0
	if cfg.ExternalRefDelay != nil {
		adjust -= *cfg.ExternalRefDelay * SpeedOfLight
	}
	for _, delay := range cfg.IntDelay {
		if delay.Frequency == frequency {
			adjust += delay.Delay * SpeedOfLight
		}
	}

	y[rowIndex] = pr - rho - models + adjust
	return svData, nil
}
