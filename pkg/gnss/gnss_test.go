// Package gnss contains common constants and type definitions.
package gnss

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseSystem(t *testing.T) {
	tests := []struct {
		name    string
		s       string
		want    System
		wantErr bool
	}{
		{name: "gps", s: "GPS", want: SysGPS, wantErr: false},
		{name: "glo", s: "GLO", want: SysGLO, wantErr: false},
		{name: "irnss-alias", s: "IRNSS", want: SysNavIC, wantErr: false},
		{name: "navic", s: "NavIC", want: SysNavIC, wantErr: false},
		{name: "whitespace", s: " GAL ", want: SysGAL, wantErr: false},
		{name: "lowercase", s: "gps", want: 0, wantErr: true},
		{name: "unknown", s: "LORAN", want: 0, wantErr: true},
		{name: "empty", s: "", want: 0, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseSystem(tt.s)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseSystem() error = %v, wantErr %v", err, tt.wantErr)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSystem_MarshalJSON(t *testing.T) {
	sysJSON, err := json.Marshal(SysGAL)
	if err != nil {
		t.Fatal(err)
	}
	assert.Equal(t, "\"E\"", string(sysJSON), "marshall gnss")

	var sys System
	assert.NoError(t, json.Unmarshal(sysJSON, &sys))
	assert.Equal(t, SysGAL, sys)
}

func TestParseSV(t *testing.T) {
	tests := []struct {
		name    string
		s       string
		want    SV
		wantErr bool
	}{
		{name: "gps", s: "G05", want: SV{Sys: SysGPS, Num: 5}, wantErr: false},
		{name: "gal", s: "E12", want: SV{Sys: SysGAL, Num: 12}, wantErr: false},
		{name: "bad-system", s: "X05", want: SV{}, wantErr: true},
		{name: "bad-number", s: "G99", want: SV{}, wantErr: true},
		{name: "empty", s: "", want: SV{}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseSV(tt.s)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseSV() error = %v, wantErr %v", err, tt.wantErr)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSV_String(t *testing.T) {
	assert.Equal(t, "G05", NewSV(SysGPS, 5).String())
	assert.Equal(t, "R24", NewSV(SysGLO, 24).String())
}

func TestSV_MarshalJSON(t *testing.T) {
	svJSON, err := json.Marshal(NewSV(SysGPS, 7))
	if err != nil {
		t.Fatal(err)
	}
	assert.Equal(t, "\"G07\"", string(svJSON))

	var sv SV
	err = json.Unmarshal(svJSON, &sv)
	assert.NoError(t, err)
	assert.Equal(t, NewSV(SysGPS, 7), sv)
}
