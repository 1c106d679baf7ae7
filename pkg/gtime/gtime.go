// Package gtime provides timescale tagged epochs for GNSS processing.
//
// An Epoch keeps whole seconds apart from the fractional part, so that
// nanosecond level signal propagation arithmetic does not drown in the
// magnitude of the epoch itself.
package gtime

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// Scale is a GNSS timescale.
type Scale int

// Supported timescales.
const (
	ScaleUTC Scale = iota
	ScaleGPST
	ScaleGST
	ScaleBDT
)

func (sc Scale) String() string {
	return [...]string{"UTC", "GPST", "GST", "BDT"}[sc]
}

var scalePerName = map[string]Scale{
	"UTC":  ScaleUTC,
	"GPST": ScaleGPST,
	"GST":  ScaleGST,
	"BDT":  ScaleBDT,
}

// Duration is an elapsed time in seconds.
type Duration float64

// FromNanoseconds returns a Duration for the given number of nanoseconds.
func FromNanoseconds(ns float64) Duration {
	return Duration(ns * 1e-9)
}

// Seconds returns the duration in seconds.
func (d Duration) Seconds() float64 {
	return float64(d)
}

func (d Duration) String() string {
	return fmt.Sprintf("%.9fs", float64(d))
}

// Epoch is a point in time within a timescale.
type Epoch struct {
	Whole int64   // Whole seconds since 1970-01-01T00:00:00 in the scale's own reckoning.
	Frac  float64 // Fraction of second [0,1).
	Scale Scale   // Timescale the epoch is counted in.
}

// FromSeconds builds an Epoch from a second count within a timescale.
func FromSeconds(sec float64, sc Scale) Epoch {
	whole := math.Floor(sec)
	return Epoch{Whole: int64(whole), Frac: sec - whole, Scale: sc}
}

// FromTime builds an Epoch from a time.Time, tagged with the given scale.
func FromTime(t time.Time, sc Scale) Epoch {
	return Epoch{Whole: t.Unix(), Frac: float64(t.Nanosecond()) * 1e-9, Scale: sc}
}

// TotalSeconds returns the epoch as one second count.
func (e Epoch) TotalSeconds() float64 {
	return float64(e.Whole) + e.Frac
}

// IsZero reports whether the epoch is the zero value.
func (e Epoch) IsZero() bool {
	return e.Whole == 0 && e.Frac == 0
}

// Add returns the epoch shifted by d, in the same timescale.
func (e Epoch) Add(d Duration) Epoch {
	sec := e.Frac + d.Seconds()
	whole := math.Floor(sec)
	return Epoch{Whole: e.Whole + int64(whole), Frac: sec - whole, Scale: e.Scale}
}

// Sub returns the elapsed duration e - other. Both epochs must be
// counted in the same timescale.
func (e Epoch) Sub(other Epoch) Duration {
	return Duration(float64(e.Whole-other.Whole) + (e.Frac - other.Frac))
}

// epochTimeFormat is the civil part of the textual epoch representation.
const epochTimeFormat = "2006-01-02T15:04:05.999999999"

// Parse reads an epoch given like "2020-06-25T12:00:30 GPST".
func Parse(s string) (Epoch, error) {
	fields := strings.Fields(s)
	if len(fields) != 2 {
		return Epoch{}, fmt.Errorf("gtime: invalid epoch: %q", s)
	}
	sc, ok := scalePerName[fields[1]]
	if !ok {
		return Epoch{}, fmt.Errorf("gtime: unknown timescale: %q", fields[1])
	}
	t, err := time.Parse(epochTimeFormat, fields[0])
	if err != nil {
		return Epoch{}, fmt.Errorf("gtime: parse epoch %q: %v", s, err)
	}
	return FromTime(t, sc), nil
}

// String formats the epoch like "2020-06-25T12:00:30 GPST".
func (e Epoch) String() string {
	t := time.Unix(e.Whole, int64(math.Round(e.Frac*1e9))).UTC()
	return t.Format("2006-01-02T15:04:05.999999999") + " " + e.Scale.String()
}

// MarshalJSON encodes the epoch in its textual form.
func (e Epoch) MarshalJSON() ([]byte, error) {
	return []byte(`"` + e.String() + `"`), nil
}

// UnmarshalJSON decodes an epoch from its textual form.
func (e *Epoch) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	parsed, err := Parse(s)
	if err != nil {
		return err
	}
	*e = parsed
	return nil
}
