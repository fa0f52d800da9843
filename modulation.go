// Copyright (c) 2024 The sdg developers. All rights reserved.
// Project site: https://github.com/gotmc/sdg
// Use of this source code is governed by a MIT-style license that
// can be found in the LICENSE.txt file for the project.

package sdg

import (
	"strings"
)

// ModulationType names a modulation as used by the MDWV command.
type ModulationType string

// Supported modulation types.
const (
	ModAM  ModulationType = "AM"
	ModFM  ModulationType = "FM"
	ModPM  ModulationType = "PM"
	ModFSK ModulationType = "FSK"
	ModPWM ModulationType = "PWM"
)

// ModulationSource selects where the modulating signal comes from.
type ModulationSource string

// Modulation sources. An empty source leaves the instrument setting as is.
const (
	SourceInternal ModulationSource = "INT"
	SourceExternal ModulationSource = "EXT"
	SourceCh1      ModulationSource = "CH1"
	SourceCh2      ModulationSource = "CH2"
)

// ModulationShape is the shape of an internal modulating signal.
type ModulationShape string

// Internal modulating shapes. An empty shape leaves the setting as is.
const (
	ShapeSine     ModulationShape = "SINE"
	ShapeSquare   ModulationShape = "SQUARE"
	ShapeTriangle ModulationShape = "TRIANGLE"
	ShapeUpRamp   ModulationShape = "UPRAMP"
	ShapeDownRamp ModulationShape = "DNRAMP"
	ShapeNoise    ModulationShape = "NOISE"
	ShapeArb      ModulationShape = "ARB"
)

// Modulation is one of AM, FM, PM, FSK or PWM. Each variant carries only the
// parameters its modulation type understands. Zero valued fields are not
// sent, leaving the instrument's current value in place.
type Modulation interface {
	Type() ModulationType
	// params validates the variant and returns its key,value fields.
	params() ([]string, error)
}

// AM is amplitude modulation. Depth is in percent (0 to 120).
type AM struct {
	Source    ModulationSource
	Shape     ModulationShape
	Frequency float64 // Hz
	Depth     float64 // %
}

// FM is frequency modulation. Deviation is in Hz.
type FM struct {
	Source    ModulationSource
	Shape     ModulationShape
	Frequency float64 // Hz
	Deviation float64 // Hz
}

// PM is phase modulation. Deviation is in degrees (0 to 360).
type PM struct {
	Source    ModulationSource
	Shape     ModulationShape
	Frequency float64 // Hz
	Deviation float64 // degrees
}

// FSK is frequency shift keying between the carrier and HopFrequency at the
// KeyFrequency rate.
type FSK struct {
	Source       ModulationSource
	KeyFrequency float64 // Hz
	HopFrequency float64 // Hz
}

// PWM is pulse width modulation of a PULSE carrier. Deviation is the width
// deviation in seconds.
type PWM struct {
	Source    ModulationSource
	Shape     ModulationShape
	Frequency float64 // Hz
	Deviation float64 // s
}

func (AM) Type() ModulationType  { return ModAM }
func (FM) Type() ModulationType  { return ModFM }
func (PM) Type() ModulationType  { return ModPM }
func (FSK) Type() ModulationType { return ModFSK }
func (PWM) Type() ModulationType { return ModPWM }

// args accumulates key,value fields and the first validation error.
type args struct {
	kv  []string
	err error
}

func (a *args) source(s ModulationSource) {
	switch s {
	case "":
	case SourceInternal, SourceExternal, SourceCh1, SourceCh2:
		a.kv = append(a.kv, "SRC", string(s))
	default:
		a.fail(invalid("modulation source", s, "must be INT, EXT, CH1 or CH2"))
	}
}

func (a *args) shape(s ModulationShape) {
	switch s {
	case "":
	case ShapeSine, ShapeSquare, ShapeTriangle, ShapeUpRamp, ShapeDownRamp, ShapeNoise, ShapeArb:
		a.kv = append(a.kv, "MDSP", string(s))
	default:
		a.fail(invalid("modulation shape", s, "unknown shape"))
	}
}

func (a *args) number(key, name string, v, min, max float64) {
	if v == 0 {
		return
	}
	switch {
	case max == maxFloat && v < min:
		a.fail(invalid(name, v, "must not be negative"))
		return
	case v < min || v > max:
		a.fail(invalid(name, v, "must be between %s and %s", formatFloat(min), formatFloat(max)))
		return
	}
	a.kv = append(a.kv, key, formatFloat(v))
}

func (a *args) fail(err error) {
	if a.err == nil {
		a.err = err
	}
}

const maxFloat = 1e300

func (m AM) params() ([]string, error) {
	var a args
	a.source(m.Source)
	a.shape(m.Shape)
	a.number("FRQ", "AM frequency", m.Frequency, 0, maxFloat)
	a.number("DEPTH", "AM depth", m.Depth, 0, 120)
	return a.kv, a.err
}

func (m FM) params() ([]string, error) {
	var a args
	a.source(m.Source)
	a.shape(m.Shape)
	a.number("FRQ", "FM frequency", m.Frequency, 0, maxFloat)
	a.number("DEVI", "FM deviation", m.Deviation, 0, maxFloat)
	return a.kv, a.err
}

func (m PM) params() ([]string, error) {
	var a args
	a.source(m.Source)
	a.shape(m.Shape)
	a.number("FRQ", "PM frequency", m.Frequency, 0, maxFloat)
	a.number("DEVI", "PM deviation", m.Deviation, 0, 360)
	return a.kv, a.err
}

func (m FSK) params() ([]string, error) {
	var a args
	a.source(m.Source)
	a.number("KFRQ", "FSK key frequency", m.KeyFrequency, 0, maxFloat)
	a.number("HFRQ", "FSK hop frequency", m.HopFrequency, 0, maxFloat)
	return a.kv, a.err
}

func (m PWM) params() ([]string, error) {
	var a args
	a.source(m.Source)
	a.shape(m.Shape)
	a.number("FRQ", "PWM frequency", m.Frequency, 0, maxFloat)
	a.number("DEVI", "PWM deviation", m.Deviation, 0, maxFloat)
	return a.kv, a.err
}

// modulationCommand builds "C1:MDWV AM,SRC,INT,DEPTH,50".
func modulationCommand(ch Channel, m Modulation) (string, error) {
	if m == nil {
		return "", invalid("modulation", nil, "must not be nil")
	}
	kv, err := m.params()
	if err != nil {
		return "", err
	}
	fields := append([]string{string(m.Type())}, kv...)
	return ch.header() + ":MDWV " + strings.Join(fields, ","), nil
}

// ModulationSettings is the parsed response of an MDWV query. Modulation is
// nil when the instrument did not report a modulation type or reported one
// without a Modulation variant; Raw["type"] holds the reported type.
type ModulationSettings struct {
	Enabled    bool
	Modulation Modulation
	Raw        Settings
}

var modulationParsers = map[ModulationType]func(s Settings) (Modulation, error){
	ModAM: func(s Settings) (Modulation, error) {
		var m AM
		err := s.decode(map[string]*float64{"frq": &m.Frequency, "depth": &m.Depth})
		m.Source, m.Shape = ModulationSource(s["src"]), ModulationShape(s["mdsp"])
		return m, err
	},
	ModFM: func(s Settings) (Modulation, error) {
		var m FM
		err := s.decode(map[string]*float64{"frq": &m.Frequency, "devi": &m.Deviation})
		m.Source, m.Shape = ModulationSource(s["src"]), ModulationShape(s["mdsp"])
		return m, err
	},
	ModPM: func(s Settings) (Modulation, error) {
		var m PM
		err := s.decode(map[string]*float64{"frq": &m.Frequency, "devi": &m.Deviation})
		m.Source, m.Shape = ModulationSource(s["src"]), ModulationShape(s["mdsp"])
		return m, err
	},
	ModFSK: func(s Settings) (Modulation, error) {
		var m FSK
		err := s.decode(map[string]*float64{"kfrq": &m.KeyFrequency, "hfrq": &m.HopFrequency})
		m.Source = ModulationSource(s["src"])
		return m, err
	},
	ModPWM: func(s Settings) (Modulation, error) {
		var m PWM
		err := s.decode(map[string]*float64{"frq": &m.Frequency, "devi": &m.Deviation})
		m.Source, m.Shape = ModulationSource(s["src"]), ModulationShape(s["mdsp"])
		return m, err
	},
}

// decode parses the numeric settings named in dst; absent keys are left zero.
func (s Settings) decode(dst map[string]*float64) error {
	for k, p := range dst {
		v, ok := s[k]
		if !ok {
			continue
		}
		f, err := parseNumber(v)
		if err != nil {
			return invalid(k, v, "not a number")
		}
		*p = f
	}
	return nil
}

// parseModulation parses
// "C1:MDWV STATE,ON,AM,MDSP,SINE,SRC,INT,FRQ,100HZ,DEPTH,100,CARR,WVTP,SINE,...".
// Carrier parameters following CARR are ignored.
func parseModulation(cmd, resp, header string) (ModulationSettings, error) {
	fields := splitResponse(resp, header)
	ms := ModulationSettings{Raw: Settings{}}
	var typ ModulationType
	afterState := false
	for i := 0; i < len(fields); {
		tok := strings.ToUpper(fields[i])
		if tok == "CARR" {
			break
		}
		// The type follows STATE, even for types without a variant (ASK, PSK, DSBAM).
		if _, ok := modulationParsers[ModulationType(tok)]; ok || afterState {
			afterState = false
			typ = ModulationType(tok)
			ms.Raw["type"] = tok
			i++
			continue
		}
		if i+1 >= len(fields) {
			return ModulationSettings{}, &InvalidResponseError{Cmd: cmd, Response: resp, Reason: "missing value for " + tok}
		}
		key, val := strings.ToLower(tok), fields[i+1]
		if key == "state" {
			ms.Enabled = strings.EqualFold(val, "ON")
			afterState = true
		}
		ms.Raw[key] = val
		i += 2
	}
	parse, ok := modulationParsers[typ]
	if !ok {
		return ms, nil
	}
	m, err := parse(ms.Raw)
	if err != nil {
		return ModulationSettings{}, &InvalidResponseError{Cmd: cmd, Response: resp, Reason: err.Error()}
	}
	ms.Modulation = m
	return ms, nil
}
