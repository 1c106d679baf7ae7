package pvt

import (
	"math"
	"time"

	"github.com/de-bkg/gopvt/pkg/gnss"
	"github.com/de-bkg/gopvt/pkg/gtime"
)

// Bias is a modeled (estimated) or measured time delay, in meters of
// delay. At most one of the two origins is set.
type Bias struct {
	// Measured delay [m].
	Measured *float64 `json:"measured,omitempty"`
	// Modeled delay [m].
	Modeled *float64 `json:"modeled,omitempty"`
}

// MeasuredBias builds a bias from a physical measurement [m].
func MeasuredBias(v float64) Bias {
	return Bias{Measured: &v}
}

// ModeledBias builds a bias from a model evaluation [m].
func ModeledBias(v float64) Bias {
	return Bias{Modeled: &v}
}

// Value returns the delay, measured origin prefered.
func (b Bias) Value() *float64 {
	if b.Measured != nil {
		return b.Measured
	}
	return b.Modeled
}

// SVData is the diagnostic data attached to each SV that helped form a
// solution.
type SVData struct {
	// Azimuth angle at resolution time [deg].
	Azimuth float64 `json:"azimuth"`
	// Elevation angle at resolution time [deg].
	Elevation float64 `json:"elevation"`
	// TropoBias is the tropospheric delay applied to the signal.
	TropoBias Bias `json:"tropo_bias"`
	// IonoBias is the ionospheric delay applied to the signal.
	IonoBias Bias `json:"iono_bias"`
}

// RuntimeParams bundle the per-candidate quantities bias providers may
// need.
type RuntimeParams struct {
	// T is the solving epoch.
	T gtime.Epoch
	// Elevation and Azimuth of the SV [deg].
	Elevation float64
	Azimuth   float64
	// Frequency of the measured signal [Hz].
	Frequency float64
	// AprioriGeo is the receiver latitude [deg], longitude [deg],
	// ellipsoidal height [m].
	AprioriGeo [3]float64
}

// IonosphericBias provides measured or externally modeled ionospheric
// delays [m].
type IonosphericBias interface {
	// Bias returns the delay for the given runtime, if one is known.
	Bias(rtm RuntimeParams) (float64, bool)
}

// TroposphericBias provides measured tropospheric delays [m].
type TroposphericBias interface {
	// NeedsModeling reports whether no direct measurement exists and
	// the solver should fall back to its internal model.
	NeedsModeling() bool
	// Bias returns the delay for the given runtime, if one is known.
	Bias(rtm RuntimeParams) (float64, bool)
}

// TropoComponents are measured zenith tropospheric delay components.
// They satisfy TroposphericBias: the zenith components are mapped to
// the SV elevation with the Niell mapping functions.
type TropoComponents struct {
	// ZWD is the zenith wet delay [m].
	ZWD float64 `json:"zwd"`
	// ZDD is the zenith dry delay [m].
	ZDD float64 `json:"zdd"`
}

// NeedsModeling reports that a measurement is available.
func (tc TropoComponents) NeedsModeling() bool { return false }

// Bias maps the zenith components down to the runtime elevation.
func (tc TropoComponents) Bias(rtm RuntimeParams) (float64, bool) {
	mh, mw := niellMapping(rtm.T, rtm.AprioriGeo[0], rtm.AprioriGeo[2], rtm.Elevation)
	return mh*tc.ZDD + mw*tc.ZWD, true
}

// modelTropoDelay evaluates the internal tropospheric model: standard
// atmosphere zenith delays mapped with the Niell functions.
func modelTropoDelay(rtm RuntimeParams) float64 {
	if rtm.AprioriGeo[2] < -100.0 || rtm.AprioriGeo[2] > 1e4 || rtm.Elevation <= 0.0 {
		return 0.0
	}
	zdd, zwd := zenithDelays(rtm.AprioriGeo[0], rtm.AprioriGeo[2])
	mh, mw := niellMapping(rtm.T, rtm.AprioriGeo[0], rtm.AprioriGeo[2], rtm.Elevation)
	return mh*zdd + mw*zwd
}

// relHumidity is the standard atmosphere relative humidity used by the
// zenith delay model.
const relHumidity = 0.7

// zenithDelays computes the dry and wet zenith tropospheric delays [m]
// from the standard atmosphere at the receiver latitude [deg] and
// height [m].
func zenithDelays(latDeg, hgt float64) (zdd, zwd float64) {
	if hgt < 0.0 {
		hgt = 0.0
	}
	pres := 1013.25 * math.Pow(1.0-2.2557e-5*hgt, 5.2568)
	temp := 15.0 - 6.5e-3*hgt + 273.16
	e := 6.108 * relHumidity * math.Exp((17.15*temp-4684.0)/(temp-38.45))

	lat := latDeg * deg2rad
	zdd = 0.0022768 * pres / (1.0 - 0.00266*math.Cos(2.0*lat) - 0.00028*hgt/1e3)
	zwd = 0.002277 * (1255.0/temp + 0.05) * e
	return zdd, zwd
}

// Niell mapping coefficients: hydro-ave-a,b,c, hydro-amp-a,b,c,
// wet-a,b,c at latitudes 15,30,45,60,75.
var niellCoef = [9][5]float64{
	{1.2769934e-3, 1.2683230e-3, 1.2465397e-3, 1.2196049e-3, 1.2045996e-3},
	{2.9153695e-3, 2.9152299e-3, 2.9288445e-3, 2.9022565e-3, 2.9024912e-3},
	{62.610505e-3, 62.837393e-3, 63.721774e-3, 63.824265e-3, 64.258455e-3},

	{0.0000000e-0, 1.2709626e-5, 2.6523662e-5, 3.4000452e-5, 4.1202191e-5},
	{0.0000000e-0, 2.1414979e-5, 3.0160779e-5, 7.2562722e-5, 11.723375e-5},
	{0.0000000e-0, 9.0128400e-5, 4.3497037e-5, 84.795348e-5, 170.37206e-5},

	{5.8021897e-4, 5.6794847e-4, 5.8118019e-4, 5.9727542e-4, 6.1641693e-4},
	{1.4275268e-3, 1.5138625e-3, 1.4572752e-3, 1.5007428e-3, 1.7599082e-3},
	{4.3472961e-2, 4.6729510e-2, 4.3908931e-2, 4.4626982e-2, 5.4736038e-2},
}

// height correction coefficients
var niellAht = [3]float64{2.53e-5, 5.49e-3, 1.14e-3}

func interpc(coef [5]float64, lat float64) float64 {
	i := int(lat / 15.0)
	if i < 1 {
		return coef[0]
	} else if i > 4 {
		return coef[4]
	}
	return coef[i-1]*(1.0-lat/15.0+float64(i)) + coef[i]*(lat/15.0-float64(i))
}

func mapf(el, a, b, c float64) float64 {
	sinel := math.Sin(el)
	return (1.0 + a/(1.0+b/(1.0+c))) / (sinel + (a / (sinel + b/(sinel+c))))
}

// niellMapping computes the Niell hydrostatic and wet mapping function
// values at the given epoch, latitude [deg], height [m] and elevation
// [deg].
func niellMapping(t gtime.Epoch, latDeg, hgt, elevDeg float64) (mh, mw float64) {
	el := elevDeg * deg2rad
	if el <= 0.0 {
		return 0.0, 0.0
	}

	// year fraction from doy 28, half a year added for southern latitudes
	south := 0.0
	if latDeg < 0.0 {
		south = 0.5
	}
	y := (dayOfYear(t)-28.0)/365.25 + south
	cosy := math.Cos(2.0 * math.Pi * y)
	lat := math.Abs(latDeg)

	var ah, aw [3]float64
	for i := 0; i < 3; i++ {
		ah[i] = interpc(niellCoef[i], lat) - interpc(niellCoef[i+3], lat)*cosy
		aw[i] = interpc(niellCoef[i+6], lat)
	}

	// ellipsoidal height is used instead of height above sea level
	dm := (1.0/math.Sin(el) - mapf(el, niellAht[0], niellAht[1], niellAht[2])) * hgt / 1e3

	mh = mapf(el, ah[0], ah[1], ah[2]) + dm
	mw = mapf(el, aw[0], aw[1], aw[2])
	return mh, mw
}

func dayOfYear(t gtime.Epoch) float64 {
	tm := time.Unix(t.Whole, 0).UTC()
	secs := float64(tm.Hour()*3600+tm.Minute()*60+tm.Second()) + t.Frac
	return float64(tm.YearDay()) + secs/86400.0
}

// models is the reusable per-run scratch holding the per-SV modeled
// data, sized once at solver construction.
type models struct {
	data map[gnss.SV]SVData
}

func newModels(maxSV uint) *models {
	return &models{data: make(map[gnss.SV]SVData, maxSV)}
}

func (m *models) reset() {
	clear(m.data)
}

func (m *models) set(sv gnss.SV, data SVData) {
	m.data[sv] = data
}

// snapshot copies the scratch content for a solution to own.
func (m *models) snapshot() map[gnss.SV]SVData {
	out := make(map[gnss.SV]SVData, len(m.data))
	for sv, data := range m.data {
		out[sv] = data
	}
	return out
}
