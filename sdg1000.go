// Copyright (c) 2024 The sdg developers. All rights reserved.
// Project site: https://github.com/gotmc/sdg
// Use of this source code is governed by a MIT-style license that
// can be found in the LICENSE.txt file for the project.

package sdg

import (
	"math"
	"strings"
)

// SDG1000 limits from the SDG1000 data sheet.
const (
	SDG1000FreqMin        = 1e-6  // Hz
	SDG1000FreqMax        = 10e6  // Hz
	SDG1000AmpMin         = 0.002 // Vpp
	SDG1000AmpMax50Ohm    = 10.0  // Vpp
	SDG1000AmpMaxHighZ    = 20.0  // Vpp
	SDG1000OffsetMax50Ohm = 5.0   // V
	SDG1000OffsetMaxHighZ = 10.0  // V
	SDG1000BurstMax       = 50000
)

// SDG1000 drives the Siglent SDG1000 series (SDG1025, SDG1050, ...). Unlike
// the SDG2000X driver it checks frequency, amplitude, offset, burst cycle,
// sweep type and load arguments against the data sheet before sending them.
// The single value setters check amplitude and offset against the high-Z
// limits; into 50 Ω the instrument reports the tighter limit through its
// error queue. SetBasicWave checks against the limits of the given Load.
type SDG1000 struct {
	generator
}

var sdg1000Limits = limits{
	model:     "SDG1000",
	channels:  2,
	waveforms: []WaveformType{Sine, Square, Ramp, Pulse, Noise, Arb},
	freqMin:   SDG1000FreqMin,
	freqMax:   SDG1000FreqMax,
	freqByType: map[WaveformType]float64{
		Ramp:  200e3,
		Pulse: 5e6,
		Noise: 5e6,
		Arb:   5e6,
	},
	ampMin:     SDG1000AmpMin,
	ampMax:     SDG1000AmpMaxHighZ,
	offsetMax:  SDG1000OffsetMaxHighZ,
	burstMax:   SDG1000BurstMax,
	sweepTypes: []SweepType{SweepLinear},
	loads:      []Load{50, HighZ},
}

// NewSDG1000 creates a SDG1000 driver using the given transport.
func NewSDG1000(t Transport, opts ...InstrumentOption) *SDG1000 {
	return &SDG1000{generator{Instrument: NewInstrument(t, opts...), lim: sdg1000Limits}}
}

// BasicWaveSettings are the parameters SetBasicWave sends in one command.
type BasicWaveSettings struct {
	Type      WaveformType
	Frequency float64 // Hz
	Amplitude float64 // Vpp
	Offset    float64 // V
	Phase     float64 // degrees
	// Load selects the amplitude and offset limits: 50 Ω or HighZ.
	Load Load
}

// SetBasicWave sets waveform type, frequency, amplitude, offset and phase
// of the channel with a single BSWV command. All values are checked before
// anything is sent, including the per waveform frequency limit.
func (s *SDG1000) SetBasicWave(ch Channel, w BasicWaveSettings) error {
	if err := s.checkChannel(ch); err != nil {
		return err
	}
	if err := s.checkWaveform(w.Type); err != nil {
		return err
	}
	if err := s.checkFrequency(w.Type, w.Frequency); err != nil {
		return err
	}
	if err := s.checkAmplitude(w.Amplitude); err != nil {
		return err
	}
	if err := s.checkOffset(w.Offset); err != nil {
		return err
	}
	switch w.Load {
	case HighZ:
	case 50:
		if w.Amplitude > SDG1000AmpMax50Ohm {
			return invalid("amplitude", w.Amplitude, "SDG1000 limit into 50 Ω is %s Vpp", formatFloat(SDG1000AmpMax50Ohm))
		}
		if math.Abs(w.Offset) > SDG1000OffsetMax50Ohm {
			return invalid("offset", w.Offset, "SDG1000 limit into 50 Ω is ±%s V", formatFloat(SDG1000OffsetMax50Ohm))
		}
	default:
		return invalid("load", w.Load, "SDG1000 supports [50 HZ]")
	}
	fields := []string{
		"WVTP", string(w.Type),
		"FRQ", formatFloat(w.Frequency),
		"AMP", formatFloat(w.Amplitude),
		"OFST", formatFloat(w.Offset),
		"PHSE", formatFloat(w.Phase),
	}
	return s.command(ch, "BSWV %s", strings.Join(fields, ","))
}

// BasicWave queries the basic wave parameters of the channel.
func (s *SDG1000) BasicWave(ch Channel) (BasicWave, error) {
	return s.WaveParameters(ch)
}
