// Package gnss contains common constants and type definitions.
package gnss

import (
	"fmt"
	"strconv"
	"strings"
)

// System is a satellite system.
type System int

// Available satellite systems.
const (
	SysGPS System = iota + 1
	SysGLO
	SysGAL
	SysQZSS
	SysBDS
	SysNavIC
	SysSBAS
	SysMIXED
)

func (sys System) String() string {
	return [...]string{"", "GPS", "GLO", "GAL", "QZSS", "BDS", "NavIC", "SBAS", "MIXED"}[sys]
}

// Abbr returns the systems' one letter abbreviation used in RINEX.
func (sys System) Abbr() string {
	return [...]string{"", "G", "R", "E", "J", "C", "I", "S", "M"}[sys]
}

// MarshalJSON encodes the system as its abbreviation.
func (sys System) MarshalJSON() ([]byte, error) {
	return []byte(strconv.Quote(sys.Abbr())), nil
}

// UnmarshalJSON decodes a system from its abbreviation.
func (sys *System) UnmarshalJSON(data []byte) error {
	abbr, err := strconv.Unquote(string(data))
	if err != nil {
		return fmt.Errorf("gnss: unquote system: %v", err)
	}
	s, ok := sysPerAbbr[abbr]
	if !ok {
		return fmt.Errorf("gnss: invalid satellite system: %q", abbr)
	}
	*sys = s
	return nil
}

var sysPerAbbr = map[string]System{
	"G": SysGPS,
	"R": SysGLO,
	"E": SysGAL,
	"J": SysQZSS,
	"C": SysBDS,
	"I": SysNavIC,
	"S": SysSBAS,
	"M": SysMIXED,
}

var sysPerName = map[string]System{
	"GPS":   SysGPS,
	"GLO":   SysGLO,
	"GAL":   SysGAL,
	"QZSS":  SysQZSS,
	"BDS":   SysBDS,
	"IRNSS": SysNavIC,
	"NavIC": SysNavIC,
	"SBAS":  SysSBAS,
	"MIXED": SysMIXED,
}

// ParseSystem parses a satellite system given by its name, e.g. "GPS".
func ParseSystem(name string) (System, error) {
	if sys, ok := sysPerName[strings.TrimSpace(name)]; ok {
		return sys, nil
	}
	return 0, fmt.Errorf("gnss: unknown satellite system: %q", name)
}

// SV specifies a GNSS satellite, or space vehicle.
type SV struct {
	Sys System // The satellite system.
	Num int8   // The satellite number.
}

// NewSV returns the satellite with the given number within a system.
func NewSV(sys System, num int) SV {
	return SV{Sys: sys, Num: int8(num)}
}

// ParseSV returns a new SV for the string sv that is e.g. G12.
func ParseSV(sv string) (SV, error) {
	if len(sv) < 2 {
		return SV{}, fmt.Errorf("gnss: invalid satellite: %q", sv)
	}
	sys, ok := sysPerAbbr[sv[:1]]
	if !ok {
		return SV{}, fmt.Errorf("gnss: invalid satellite system: %q", sv)
	}

	snum, err := strconv.Atoi(sv[1:])
	if err != nil {
		return SV{}, fmt.Errorf("gnss: parse sat num: %q: %v", sv, err)
	}
	if snum < 1 || snum > 60 {
		return SV{}, fmt.Errorf("gnss: check satellite number '%v%d'", sys, snum)
	}

	return SV{Sys: sys, Num: int8(snum)}, nil
}

// String is a SV Stringer.
func (sv SV) String() string {
	return fmt.Sprintf("%s%02d", sv.Sys.Abbr(), sv.Num)
}

// MarshalJSON encodes the satellite as e.g. "G05".
func (sv SV) MarshalJSON() ([]byte, error) {
	return []byte(strconv.Quote(sv.String())), nil
}

// UnmarshalJSON decodes a satellite from e.g. "G05".
func (sv *SV) UnmarshalJSON(data []byte) error {
	s, err := strconv.Unquote(string(data))
	if err != nil {
		return fmt.Errorf("gnss: unquote satellite: %v", err)
	}
	parsed, err := ParseSV(s)
	if err != nil {
		return err
	}
	*sv = parsed
	return nil
}
