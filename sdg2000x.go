// Copyright (c) 2024 The sdg developers. All rights reserved.
// Project site: https://github.com/gotmc/sdg
// Use of this source code is governed by a MIT-style license that
// can be found in the LICENSE.txt file for the project.

package sdg

// SDG2000X drives the Siglent SDG2000X series (SDG2042X, SDG2082X,
// SDG2122X). Numeric ranges are not checked client side; out of range values
// are reported by the instrument through its error queue.
type SDG2000X struct {
	generator
}

var sdg2000xLimits = limits{
	model:      "SDG2000X",
	channels:   2,
	waveforms:  []WaveformType{Sine, Square, Ramp, Pulse, Noise, Arb, DC, PRBS},
	burstMax:   65535,
	sweepTypes: []SweepType{SweepLinear, SweepLogarithmic},
}

// NewSDG2000X creates a SDG2000X driver using the given transport.
func NewSDG2000X(t Transport, opts ...InstrumentOption) *SDG2000X {
	return &SDG2000X{generator{Instrument: NewInstrument(t, opts...), lim: sdg2000xLimits}}
}
