package gtime

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		s       string
		wantErr bool
	}{
		{name: "gpst", s: "2020-06-25T12:00:30 GPST", wantErr: false},
		{name: "frac", s: "2020-06-25T12:00:30.5 GPST", wantErr: false},
		{name: "utc", s: "2020-06-25T00:00:00 UTC", wantErr: false},
		{name: "no-scale", s: "2020-06-25T12:00:30", wantErr: true},
		{name: "bad-scale", s: "2020-06-25T12:00:30 TT", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(tt.s)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Parse() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr {
				assert.Equal(t, tt.s, got.String())
			}
		})
	}
}

func TestEpoch_Sub(t *testing.T) {
	t1, err := Parse("2020-06-25T12:00:30 GPST")
	if err != nil {
		t.Fatal(err)
	}

	t0 := t1.Add(Duration(-3.335e-3))
	dt := t1.Sub(t0)
	assert.InDelta(t, 3.335e-3, dt.Seconds(), 1e-12, "sub-second difference must survive the epoch magnitude")

	assert.InDelta(t, 30.0, t1.Sub(t1.Add(Duration(-30.0))).Seconds(), 1e-9)
}

func TestEpoch_AddKeepsScale(t *testing.T) {
	e, err := Parse("2020-06-25T12:00:30 GPST")
	if err != nil {
		t.Fatal(err)
	}
	shifted := e.Add(Duration(0.75))
	assert.Equal(t, ScaleGPST, shifted.Scale)
	assert.InDelta(t, 0.75, shifted.Sub(e).Seconds(), 1e-12)
	assert.True(t, shifted.Frac >= 0 && shifted.Frac < 1)
}

func TestFromSeconds(t *testing.T) {
	e, err := Parse("2020-06-25T12:00:30 GPST")
	if err != nil {
		t.Fatal(err)
	}
	rebuilt := FromSeconds(e.TotalSeconds(), ScaleGPST)
	assert.InDelta(t, 0.0, rebuilt.Sub(e).Seconds(), 1e-6)
}

func TestDuration(t *testing.T) {
	assert.InDelta(t, 10e-9, FromNanoseconds(10).Seconds(), 1e-18)
}
