// Copyright (c) 2024 The sdg developers. All rights reserved.
// Project site: https://github.com/gotmc/sdg
// Use of this source code is governed by a MIT-style license that
// can be found in the LICENSE.txt file for the project.

package sdg

import (
	"strconv"
	"strings"
	"unicode"
)

// Settings holds the raw key/value pairs of a parameter query, keyed by the
// lower case SCPI parameter name.
type Settings map[string]string

// splitResponse removes the echoed command header (e.g. "C1:BSWV") from a
// response and splits the rest on commas.
func splitResponse(resp, header string) []string {
	s := strings.TrimSpace(resp)
	if len(s) >= len(header) && strings.EqualFold(s[:len(header)], header) {
		s = strings.TrimSpace(s[len(header):])
	}
	if s == "" {
		return nil
	}
	fields := strings.Split(s, ",")
	for i := range fields {
		fields[i] = strings.TrimSpace(fields[i])
	}
	return fields
}

// parseSettings turns alternating key,value fields into Settings.
func parseSettings(cmd, resp string, fields []string) (Settings, error) {
	if len(fields)%2 != 0 {
		return nil, &InvalidResponseError{Cmd: cmd, Response: resp, Reason: "odd number of fields"}
	}
	s := make(Settings, len(fields)/2)
	for i := 0; i < len(fields); i += 2 {
		s[strings.ToLower(fields[i])] = fields[i+1]
	}
	return s, nil
}

// parseNumber parses a numeric value with an optional unit suffix such as
// "1000HZ", "2.5V", "0.3Vrms", "-4dBm" or "1e-06S".
func parseNumber(v string) (float64, error) {
	num := strings.TrimRightFunc(strings.TrimSpace(v), func(r rune) bool {
		return unicode.IsLetter(r) || r == '%'
	})
	return strconv.ParseFloat(num, 64)
}

// BasicWave is the parameter set reported by a BSWV query. Fields the
// instrument did not report for the current wave type are zero; Raw holds
// every reported pair.
type BasicWave struct {
	Type               WaveformType
	Frequency          float64 // Hz
	Period             float64 // s
	Amplitude          float64 // Vpp
	AmplitudeVrms      float64
	AmplitudeDBm       float64
	MaxOutputAmplitude float64 // V
	Offset             float64 // V
	HighLevel          float64 // V
	LowLevel           float64 // V
	Phase              float64 // degrees
	Duty               float64 // %
	Symmetry           float64 // %
	Width              float64 // s
	Rise               float64 // s
	Fall               float64 // s
	Delay              float64 // s
	Stdev              float64 // V
	Mean               float64 // V
	BandState          string
	Raw                Settings
}

var basicWaveFields = map[string]func(*BasicWave) *float64{
	"frq":            func(w *BasicWave) *float64 { return &w.Frequency },
	"peri":           func(w *BasicWave) *float64 { return &w.Period },
	"amp":            func(w *BasicWave) *float64 { return &w.Amplitude },
	"ampvrms":        func(w *BasicWave) *float64 { return &w.AmplitudeVrms },
	"ampdbm":         func(w *BasicWave) *float64 { return &w.AmplitudeDBm },
	"max_output_amp": func(w *BasicWave) *float64 { return &w.MaxOutputAmplitude },
	"ofst":           func(w *BasicWave) *float64 { return &w.Offset },
	"hlev":           func(w *BasicWave) *float64 { return &w.HighLevel },
	"llev":           func(w *BasicWave) *float64 { return &w.LowLevel },
	"phse":           func(w *BasicWave) *float64 { return &w.Phase },
	"duty":           func(w *BasicWave) *float64 { return &w.Duty },
	"sym":            func(w *BasicWave) *float64 { return &w.Symmetry },
	"width":          func(w *BasicWave) *float64 { return &w.Width },
	"rise":           func(w *BasicWave) *float64 { return &w.Rise },
	"fall":           func(w *BasicWave) *float64 { return &w.Fall },
	"dly":            func(w *BasicWave) *float64 { return &w.Delay },
	"stdev":          func(w *BasicWave) *float64 { return &w.Stdev },
	"mean":           func(w *BasicWave) *float64 { return &w.Mean },
}

func parseBasicWave(cmd, resp, header string) (BasicWave, error) {
	raw, err := parseSettings(cmd, resp, splitResponse(resp, header))
	if err != nil {
		return BasicWave{}, err
	}
	w := BasicWave{Raw: raw}
	for k, v := range raw {
		switch k {
		case "wvtp":
			w.Type = WaveformType(strings.ToUpper(v))
		case "bandstate":
			w.BandState = v
		default:
			field, ok := basicWaveFields[k]
			if !ok {
				continue
			}
			f, err := parseNumber(v)
			if err != nil {
				return BasicWave{}, &InvalidResponseError{Cmd: cmd, Response: resp, Reason: "bad " + k + " value"}
			}
			*field(&w) = f
		}
	}
	return w, nil
}

// Output is the channel output configuration reported by OUTP.
type Output struct {
	On       bool
	Load     Load
	Polarity Polarity
	Raw      Settings
}

// parseOutput parses "C1:OUTP ON,LOAD,50,PLRT,NOR".
func parseOutput(cmd, resp, header string) (Output, error) {
	fields := splitResponse(resp, header)
	if len(fields) == 0 {
		return Output{}, &InvalidResponseError{Cmd: cmd, Response: resp, Reason: "empty response"}
	}
	var o Output
	switch strings.ToUpper(fields[0]) {
	case "ON":
		o.On = true
	case "OFF":
	default:
		return Output{}, &InvalidResponseError{Cmd: cmd, Response: resp, Reason: "bad output state"}
	}
	raw, err := parseSettings(cmd, resp, fields[1:])
	if err != nil {
		return Output{}, err
	}
	o.Raw = raw
	if v, ok := raw["load"]; ok {
		if strings.EqualFold(v, "HZ") {
			o.Load = HighZ
		} else {
			f, err := parseNumber(v)
			if err != nil {
				return Output{}, &InvalidResponseError{Cmd: cmd, Response: resp, Reason: "bad load value"}
			}
			o.Load = Load(f)
		}
	}
	if v, ok := raw["plrt"]; ok {
		o.Polarity = Polarity(strings.ToUpper(v))
	}
	return o, nil
}
