// Copyright (c) 2024 The sdg developers. All rights reserved.
// Project site: https://github.com/gotmc/sdg
// Use of this source code is governed by a MIT-style license that
// can be found in the LICENSE.txt file for the project.

package sdg

import (
	"errors"
	"testing"

	"github.com/gotmc/sdg/lib/sdgsim"
)

func TestModulationCommand(t *testing.T) {
	tests := []struct {
		m    Modulation
		want string
	}{
		{AM{}, "C1:MDWV AM"},
		{AM{Source: SourceInternal, Shape: ShapeSine, Frequency: 100, Depth: 50}, "C1:MDWV AM,SRC,INT,MDSP,SINE,FRQ,100.0,DEPTH,50.0"},
		{FM{Source: SourceExternal, Deviation: 250}, "C1:MDWV FM,SRC,EXT,DEVI,250.0"},
		{PM{Shape: ShapeTriangle, Frequency: 10, Deviation: 90}, "C1:MDWV PM,MDSP,TRIANGLE,FRQ,10.0,DEVI,90.0"},
		{FSK{KeyFrequency: 100, HopFrequency: 2e3}, "C1:MDWV FSK,KFRQ,100.0,HFRQ,2000.0"},
		{PWM{Source: SourceCh2, Deviation: 1e-5}, "C1:MDWV PWM,SRC,CH2,DEVI,1e-05"},
	}
	for _, tc := range tests {
		r := &recorder{}
		if err := NewSDG2000X(r).SetModulation(Ch1, tc.m); err != nil {
			t.Errorf("%v: %s", tc.m, err)
			continue
		}
		if len(r.cmds) != 1 || r.cmds[0] != tc.want {
			t.Errorf("commands = %q, want [%s]", r.cmds, tc.want)
		}
	}
}

func TestModulationValidation(t *testing.T) {
	tests := []Modulation{
		nil,
		AM{Depth: 150},
		AM{Depth: -1},
		AM{Source: "USB"},
		FM{Shape: "SAW"},
		FM{Deviation: -10},
		PM{Deviation: 400},
		FSK{HopFrequency: -1},
		PWM{Frequency: -5},
	}
	for _, m := range tests {
		r := &recorder{}
		err := NewSDG2000X(r).SetModulation(Ch1, m)
		var ipe *InvalidParameterError
		if !errors.As(err, &ipe) {
			t.Errorf("%#v: got %v, want *InvalidParameterError", m, err)
		}
		if len(r.cmds) != 0 {
			t.Errorf("%#v: commands sent: %q", m, r.cmds)
		}
	}
}

func TestParseModulation(t *testing.T) {
	tests := []struct {
		resp    string
		enabled bool
		want    Modulation
	}{
		{"C1:MDWV STATE,OFF", false, nil},
		{
			"C1:MDWV STATE,ON,AM,MDSP,SINE,SRC,INT,FRQ,100HZ,DEPTH,100,CARR,WVTP,SINE,FRQ,1000HZ,AMP,4V",
			true,
			AM{Source: SourceInternal, Shape: ShapeSine, Frequency: 100, Depth: 100},
		},
		{
			"C1:MDWV STATE,ON,FM,MDSP,SQUARE,SRC,INT,FRQ,50HZ,DEVI,500HZ",
			true,
			FM{Source: SourceInternal, Shape: ShapeSquare, Frequency: 50, Deviation: 500},
		},
		{
			"C1:MDWV STATE,ON,PM,SRC,EXT,DEVI,90",
			true,
			PM{Source: SourceExternal, Deviation: 90},
		},
		{
			"C1:MDWV STATE,ON,FSK,KFRQ,100HZ,HFRQ,1000HZ,SRC,INT",
			true,
			FSK{Source: SourceInternal, KeyFrequency: 100, HopFrequency: 1000},
		},
		{
			"C1:MDWV STATE,ON,PWM,FRQ,100HZ,DEVI,1e-05S,MDSP,SINE,SRC,INT",
			true,
			PWM{Source: SourceInternal, Shape: ShapeSine, Frequency: 100, Deviation: 1e-05},
		},
	}
	for _, tc := range tests {
		ms, err := parseModulation("C1:MDWV?", tc.resp, "C1:MDWV")
		if err != nil {
			t.Errorf("%q: %s", tc.resp, err)
			continue
		}
		if ms.Enabled != tc.enabled {
			t.Errorf("%q: enabled = %t", tc.resp, ms.Enabled)
		}
		if ms.Modulation != tc.want {
			t.Errorf("%q: got %#v, want %#v", tc.resp, ms.Modulation, tc.want)
		}
	}

	for _, resp := range []string{"C1:MDWV STATE", "C1:MDWV STATE,ON,AM,DEPTH,deep"} {
		_, err := parseModulation("C1:MDWV?", resp, "C1:MDWV")
		var ire *InvalidResponseError
		if !errors.As(err, &ire) {
			t.Errorf("%q: got %v, want *InvalidResponseError", resp, err)
		}
	}
}

func TestParseModulationUnknownType(t *testing.T) {
	resp := "C1:MDWV STATE,ON,ASK,SRC,INT,KFRQ,100HZ,CARR,WVTP,SINE,FRQ,1000HZ"
	ms, err := parseModulation("C1:MDWV?", resp, "C1:MDWV")
	if err != nil {
		t.Fatal(err)
	}
	if !ms.Enabled || ms.Modulation != nil {
		t.Errorf("got enabled %t modulation %#v", ms.Enabled, ms.Modulation)
	}
	want := Settings{"state": "ON", "type": "ASK", "src": "INT", "kfrq": "100HZ"}
	if len(ms.Raw) != len(want) {
		t.Fatalf("raw = %v, want %v", ms.Raw, want)
	}
	for k, v := range want {
		if ms.Raw[k] != v {
			t.Errorf("raw[%s] = %q, want %q", k, ms.Raw[k], v)
		}
	}
}

func TestModulationRoundTrip(t *testing.T) {
	sim := sdgsim.New()
	fg := NewSDG2000X(sim)
	fm := FM{Source: SourceInternal, Shape: ShapeSine, Frequency: 20, Deviation: 1e3}
	if err := fg.SetModulation(Ch2, fm); err != nil {
		t.Fatal(err)
	}
	if err := fg.SetModulationState(Ch2, true); err != nil {
		t.Fatal(err)
	}
	ms, err := fg.ModulationParameters(Ch2)
	if err != nil {
		t.Fatal(err)
	}
	if !ms.Enabled || ms.Modulation != fm {
		t.Errorf("got %+v, want enabled %#v", ms, fm)
	}
	if ms.Raw["type"] != "FM" {
		t.Errorf("raw type = %q", ms.Raw["type"])
	}
}
