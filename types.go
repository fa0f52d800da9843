// Copyright (c) 2024 The sdg developers. All rights reserved.
// Project site: https://github.com/gotmc/sdg
// Use of this source code is governed by a MIT-style license that
// can be found in the LICENSE.txt file for the project.

package sdg

import (
	"math"
	"strconv"
	"strings"
)

// Channel identifies an output channel of the generator.
type Channel int

// Output channels available on two channel SDG models.
const (
	Ch1 Channel = 1
	Ch2 Channel = 2
)

// header returns the SCPI channel prefix, e.g. "C1".
func (ch Channel) header() string {
	return "C" + strconv.Itoa(int(ch))
}

// WaveformType is a basic wave shape as named by the BSWV WVTP parameter.
type WaveformType string

// Basic wave shapes.
const (
	Sine   WaveformType = "SINE"
	Square WaveformType = "SQUARE"
	Ramp   WaveformType = "RAMP"
	Pulse  WaveformType = "PULSE"
	Noise  WaveformType = "NOISE"
	Arb    WaveformType = "ARB"
	DC     WaveformType = "DC"
	PRBS   WaveformType = "PRBS"
)

// Polarity of the channel output.
type Polarity string

// Output polarities.
const (
	PolarityNormal   Polarity = "NOR"
	PolarityInverted Polarity = "INVT"
)

// HighZ is the Load value for a high impedance termination.
const HighZ Load = 0

// Load is the output termination in ohms; HighZ selects high impedance.
type Load float64

func (l Load) String() string {
	if l == HighZ {
		return "HZ"
	}
	return strconv.FormatFloat(float64(l), 'f', -1, 64)
}

func onOff(on bool) string {
	if on {
		return "ON"
	}
	return "OFF"
}

// formatFloat renders v in its shortest round trip form, always with a
// decimal point, e.g. 1000 -> "1000.0" and 1e-6 -> "1e-06".
func formatFloat(v float64) string {
	if v != 0 && math.Abs(v) < 1e-4 {
		return strconv.FormatFloat(v, 'e', -1, 64)
	}
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.ContainsAny(s, ".nN") {
		s += ".0"
	}
	return s
}
