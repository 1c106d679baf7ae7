package pvt

import (
	"fmt"
	"strconv"

	"github.com/go-playground/validator/v10"
)

// Method is the solving strategy.
type Method int

// Solving strategies.
const (
	// MethodSPP resolves from one pseudo range per SV and approximated
	// models, aiming a metric resolution.
	MethodSPP Method = iota
	// MethodPPP requires dual frequency ionosphere free combinations.
	MethodPPP
)

func (m Method) String() string {
	return [...]string{"SPP", "PPP"}[m]
}

// MarshalJSON encodes the method by name.
func (m Method) MarshalJSON() ([]byte, error) {
	return []byte(strconv.Quote(m.String())), nil
}

// UnmarshalJSON decodes a method from its name.
func (m *Method) UnmarshalJSON(data []byte) error {
	s, err := strconv.Unquote(string(data))
	if err != nil {
		return fmt.Errorf("pvt: unquote method: %v", err)
	}
	switch s {
	case "SPP":
		*m = MethodSPP
	case "PPP":
		*m = MethodPPP
	default:
		return fmt.Errorf("pvt: unknown method: %q", s)
	}
	return nil
}

// SolutionType sets the minimum number of SV required per epoch. The
// navigation system is the same four unknown (position and clock) form
// for every type.
type SolutionType int

// Solution types.
const (
	// PositionVelocityTime is the complete solution. Requires 4 SV in sight.
	PositionVelocityTime SolutionType = iota
	// FixedAltitudePVT admits epochs with 3 SV in sight. No altitude
	// constraint is applied; the vertical axis is still resolved.
	FixedAltitudePVT
	// TimeOnly admits epochs with 1 SV in sight. Position is still
	// resolved along with the clock.
	TimeOnly
)

func (st SolutionType) String() string {
	return [...]string{"PVT", "FixedAltitudePVT", "TimeOnly"}[st]
}

// minSVRequired returns the admission threshold for the solution type.
func (st SolutionType) minSVRequired() int {
	switch st {
	case TimeOnly:
		return 1
	case FixedAltitudePVT:
		return 3
	default:
		return 4
	}
}

// Modeling are the physical phenomena compensated for during solving.
type Modeling struct {
	// SVClockBias subtracts the SV clock correction from the transmit epoch.
	SVClockBias bool `json:"sv_clock_bias"`
	// SVTotalGroupDelay subtracts the total group delay from the transmit epoch.
	SVTotalGroupDelay bool `json:"sv_total_group_delay"`
	// TropoDelay enables tropospheric delay compensation.
	TropoDelay bool `json:"tropo_delay"`
	// IonoDelay enables ionospheric delay compensation.
	IonoDelay bool `json:"iono_delay"`
	// EarthRotation is reserved. When set a warning is emitted and no
	// correction is applied.
	EarthRotation bool `json:"earth_rotation"`
	// RelativisticClockCorr is reserved. When set a warning is emitted
	// and no correction is applied.
	RelativisticClockCorr bool `json:"relativistic_clock_corr"`
}

// DefaultModeling compensates for every supported phenomenon.
func DefaultModeling() Modeling {
	return Modeling{
		SVClockBias:       true,
		SVTotalGroupDelay: true,
		TropoDelay:        true,
		IonoDelay:         true,
	}
}

// InternalDelay is a hardware delay, keyed by carrier frequency.
type InternalDelay struct {
	// Frequency is the carrier the delay applies to [Hz].
	Frequency float64 `json:"frequency"`
	// Delay in seconds.
	Delay float64 `json:"delay"`
}

// Config is an immutable per-epoch solver parametrization.
type Config struct {
	// Method is the solving strategy.
	Method Method `json:"method"`
	// SolType selects the resolved solution components.
	SolType SolutionType `json:"sol_type"`
	// InterpOrder is passed verbatim to the interpolator callback.
	InterpOrder uint `json:"interp_order" validate:"gte=1"`
	// Modeling enables physical compensations.
	Modeling Modeling `json:"modeling"`
	// MinSVElev drops SV below this elevation mask [deg].
	MinSVElev *float64 `json:"min_sv_elev,omitempty" validate:"omitempty,gte=0,lte=90"`
	// MinSVSunlightRate drops eclipsed SV below this illumination ratio.
	MinSVSunlightRate *float64 `json:"min_sv_sunlight_rate,omitempty" validate:"omitempty,gte=0,lte=1"`
	// MinSNR masks observations below this SNR [dB], all kinds alike.
	MinSNR *float64 `json:"min_snr,omitempty"`
	// MaxSV is a capacity hint for the model storage.
	MaxSV uint `json:"max_sv"`
	// ARPEnu is the antenna reference point offset (East, North, Up) [m].
	ARPEnu *CoordNEU `json:"arp_enu,omitempty"`
	// ExternalRefDelay is the external reference hardware delay [s].
	ExternalRefDelay *float64 `json:"externalref_delay,omitempty"`
	// IntDelay are internal hardware delays, per frequency [s].
	IntDelay []InternalDelay `json:"int_delay,omitempty"`
}

// DefaultConfig returns the default SPP parametrization.
func DefaultConfig() Config {
	return Config{
		Method:      MethodSPP,
		SolType:     PositionVelocityTime,
		InterpOrder: 11,
		Modeling:    DefaultModeling(),
		MaxSV:       32,
	}
}

// use a single instance of Validate, it caches struct info
var validate *validator.Validate

// Validate checks the configuration bounds.
func (cfg *Config) Validate() error {
	if validate == nil {
		validate = validator.New()
	}
	if err := validate.Struct(cfg); err != nil {
		return fmt.Errorf("pvt: invalid config: %v", err)
	}
	return nil
}
