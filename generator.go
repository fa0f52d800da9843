// Copyright (c) 2024 The sdg developers. All rights reserved.
// Project site: https://github.com/gotmc/sdg
// Use of this source code is governed by a MIT-style license that
// can be found in the LICENSE.txt file for the project.

package sdg

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/gotmc/query"
)

// SweepType selects linear or logarithmic frequency sweeps.
type SweepType string

// Sweep types.
const (
	SweepLinear      SweepType = "LIN"
	SweepLogarithmic SweepType = "LOG"
)

// BurstMode selects N-cycle or gated bursts.
type BurstMode string

// Burst modes.
const (
	BurstNCycle BurstMode = "NCYC"
	BurstGated  BurstMode = "GATE"
)

// BurstInfinite requests an unbounded number of burst cycles.
const BurstInfinite = -1

// Generator is the channel scoped surface shared by every supported SDG
// model. Both *SDG2000X and *SDG1000 implement it.
type Generator interface {
	Info() (string, error)
	Identity() (Identity, error)
	Reset() error
	SelfTest() (bool, error)
	ErrorQueue() ([]InstrumentError, error)
	ClearErrors() error
	CheckErrors() error

	Model() string
	Channels() []Channel

	SetWaveformType(ch Channel, t WaveformType) error
	SetFrequency(ch Channel, hz float64) error
	SetAmplitude(ch Channel, vpp float64) error
	SetOffset(ch Channel, v float64) error
	SetPhase(ch Channel, deg float64) error
	WaveParameters(ch Channel) (BasicWave, error)
	Frequency(ch Channel) (float64, error)
	Amplitude(ch Channel) (float64, error)

	SetOutputState(ch Channel, on bool) error
	OutputState(ch Channel) (bool, error)
	Output(ch Channel) (Output, error)

	SetModulation(ch Channel, m Modulation) error
	SetModulationState(ch Channel, on bool) error
	ModulationParameters(ch Channel) (ModulationSettings, error)

	ConfigureSweep(ch Channel, start, stop, seconds float64) error
	StartSweep(ch Channel) error
	StopSweep(ch Channel) error

	ConfigureBurst(ch Channel, mode BurstMode, cycles int, opts ...BurstOption) error
	TriggerBurst(ch Channel) error
}

// limits describes what a model accepts. Zero numeric bounds are not
// checked client side; the instrument reports violations through its error
// queue instead.
type limits struct {
	model      string
	channels   int
	waveforms  []WaveformType
	freqMin    float64
	freqMax    float64
	freqByType map[WaveformType]float64
	ampMin     float64
	ampMax     float64
	offsetMax  float64
	burstMax   int
	sweepTypes []SweepType
	loads      []Load // nil accepts any positive load or HighZ
}

// generator implements the SDG command set on top of an Instrument,
// constrained by the model's limits.
type generator struct {
	*Instrument
	lim limits
}

// Model returns the model family name, e.g. "SDG2000X".
func (g *generator) Model() string { return g.lim.model }

// Channels returns the output channels of the model.
func (g *generator) Channels() []Channel {
	chs := make([]Channel, g.lim.channels)
	for i := range chs {
		chs[i] = Channel(i + 1)
	}
	return chs
}

func (g *generator) checkChannel(ch Channel) error {
	if ch < 1 || int(ch) > g.lim.channels {
		return invalid("channel", int(ch), "%s has channels 1 to %d", g.lim.model, g.lim.channels)
	}
	return nil
}

func (g *generator) checkWaveform(t WaveformType) error {
	for _, w := range g.lim.waveforms {
		if t == w {
			return nil
		}
	}
	return invalid("waveform type", t, "%s supports %v", g.lim.model, g.lim.waveforms)
}

func (g *generator) checkFrequency(t WaveformType, hz float64) error {
	if math.IsNaN(hz) || math.IsInf(hz, 0) {
		return invalid("frequency", hz, "must be finite")
	}
	if g.lim.freqMax > 0 && (hz < g.lim.freqMin || hz > g.lim.freqMax) {
		return invalid("frequency", hz, "%s range is %s Hz to %s Hz",
			g.lim.model, formatFloat(g.lim.freqMin), formatFloat(g.lim.freqMax))
	}
	if limit, ok := g.lim.freqByType[t]; ok && hz > limit {
		return invalid("frequency", hz, "%s limit for %s is %s Hz", g.lim.model, t, formatFloat(limit))
	}
	return nil
}

func (g *generator) checkAmplitude(vpp float64) error {
	if g.lim.ampMax > 0 && (vpp < g.lim.ampMin || vpp > g.lim.ampMax) {
		return invalid("amplitude", vpp, "%s range is %s Vpp to %s Vpp",
			g.lim.model, formatFloat(g.lim.ampMin), formatFloat(g.lim.ampMax))
	}
	return nil
}

func (g *generator) checkOffset(v float64) error {
	if g.lim.offsetMax > 0 && math.Abs(v) > g.lim.offsetMax {
		return invalid("offset", v, "%s limit is ±%s V", g.lim.model, formatFloat(g.lim.offsetMax))
	}
	return nil
}

// command sends "C<ch>:<cmd>" after validating the channel.
func (g *generator) command(ch Channel, format string, a ...any) error {
	if err := g.checkChannel(ch); err != nil {
		return err
	}
	return g.Command("%s:%s", ch.header(), fmt.Sprintf(format, a...))
}

func (g *generator) setBasic(ch Channel, key string, v float64) error {
	return g.command(ch, "BSWV %s,%s", key, formatFloat(v))
}

// SetWaveformType selects the basic wave shape of the channel.
func (g *generator) SetWaveformType(ch Channel, t WaveformType) error {
	if err := g.checkChannel(ch); err != nil {
		return err
	}
	if err := g.checkWaveform(t); err != nil {
		return err
	}
	return g.command(ch, "BSWV WVTP,%s", t)
}

// SetFrequency sets the channel frequency in Hz.
func (g *generator) SetFrequency(ch Channel, hz float64) error {
	if err := g.checkFrequency("", hz); err != nil {
		return err
	}
	return g.setBasic(ch, "FRQ", hz)
}

// SetPeriod sets the channel period in seconds.
func (g *generator) SetPeriod(ch Channel, seconds float64) error {
	if seconds <= 0 {
		return invalid("period", seconds, "must be positive")
	}
	if err := g.checkFrequency("", 1/seconds); err != nil {
		return err
	}
	return g.setBasic(ch, "PERI", seconds)
}

// SetAmplitude sets the channel amplitude in Vpp.
func (g *generator) SetAmplitude(ch Channel, vpp float64) error {
	if err := g.checkAmplitude(vpp); err != nil {
		return err
	}
	return g.setBasic(ch, "AMP", vpp)
}

// SetOffset sets the channel DC offset in volts.
func (g *generator) SetOffset(ch Channel, v float64) error {
	if err := g.checkOffset(v); err != nil {
		return err
	}
	return g.setBasic(ch, "OFST", v)
}

// SetPhase sets the channel phase in degrees.
func (g *generator) SetPhase(ch Channel, deg float64) error { return g.setBasic(ch, "PHSE", deg) }

// SetSymmetry sets the ramp symmetry in percent.
func (g *generator) SetSymmetry(ch Channel, pct float64) error { return g.setBasic(ch, "SYM", pct) }

// SetDuty sets the square or pulse duty cycle in percent.
func (g *generator) SetDuty(ch Channel, pct float64) error { return g.setBasic(ch, "DUTY", pct) }

// SetStdev sets the noise standard deviation in volts.
func (g *generator) SetStdev(ch Channel, v float64) error { return g.setBasic(ch, "STDEV", v) }

// SetMean sets the noise mean in volts.
func (g *generator) SetMean(ch Channel, v float64) error { return g.setBasic(ch, "MEAN", v) }

// SetWidth sets the pulse width in seconds.
func (g *generator) SetWidth(ch Channel, seconds float64) error {
	return g.setBasic(ch, "WIDTH", seconds)
}

// SetRise sets the pulse rise time in seconds.
func (g *generator) SetRise(ch Channel, seconds float64) error { return g.setBasic(ch, "RISE", seconds) }

// SetFall sets the pulse fall time in seconds.
func (g *generator) SetFall(ch Channel, seconds float64) error { return g.setBasic(ch, "FALL", seconds) }

// SetDelay sets the pulse delay in seconds.
func (g *generator) SetDelay(ch Channel, seconds float64) error { return g.setBasic(ch, "DLY", seconds) }

// SetHighLevel sets the high level in volts.
func (g *generator) SetHighLevel(ch Channel, v float64) error { return g.setBasic(ch, "HLEV", v) }

// SetLowLevel sets the low level in volts.
func (g *generator) SetLowLevel(ch Channel, v float64) error { return g.setBasic(ch, "LLEV", v) }

func (g *generator) query(ch Channel, cmd string) (string, string, error) {
	if err := g.checkChannel(ch); err != nil {
		return "", "", err
	}
	q := ch.header() + ":" + cmd
	resp, err := query.String(g.Instrument, q)
	return q, resp, err
}

// WaveParameters queries the basic wave parameters of the channel. A fresh
// query is made on every call.
func (g *generator) WaveParameters(ch Channel) (BasicWave, error) {
	q, resp, err := g.query(ch, "BSWV?")
	if err != nil {
		return BasicWave{}, err
	}
	return parseBasicWave(q, resp, ch.header()+":BSWV")
}

// Frequency returns the channel frequency in Hz.
func (g *generator) Frequency(ch Channel) (float64, error) {
	w, err := g.WaveParameters(ch)
	return w.Frequency, err
}

// Amplitude returns the channel amplitude in Vpp.
func (g *generator) Amplitude(ch Channel) (float64, error) {
	w, err := g.WaveParameters(ch)
	return w.Amplitude, err
}

// SetOutputState switches the channel output on or off.
func (g *generator) SetOutputState(ch Channel, on bool) error {
	return g.command(ch, "OUTP %s", onOff(on))
}

// OutputState reports whether the channel output is on.
func (g *generator) OutputState(ch Channel) (bool, error) {
	o, err := g.Output(ch)
	return o.On, err
}

// Output queries the output state, load and polarity of the channel.
func (g *generator) Output(ch Channel) (Output, error) {
	q, resp, err := g.query(ch, "OUTP?")
	if err != nil {
		return Output{}, err
	}
	return parseOutput(q, resp, ch.header()+":OUTP")
}

// SetOutputLoad sets the load the channel output is terminated into.
func (g *generator) SetOutputLoad(ch Channel, load Load) error {
	if err := g.checkChannel(ch); err != nil {
		return err
	}
	switch {
	case g.lim.loads != nil:
		ok := false
		for _, l := range g.lim.loads {
			ok = ok || l == load
		}
		if !ok {
			return invalid("load", load, "%s supports %v", g.lim.model, g.lim.loads)
		}
	case load < 0:
		return invalid("load", float64(load), "must not be negative")
	}
	return g.command(ch, "OUTP LOAD,%s", load)
}

// SetOutputPolarity sets the output polarity of the channel.
func (g *generator) SetOutputPolarity(ch Channel, p Polarity) error {
	if p != PolarityNormal && p != PolarityInverted {
		return invalid("polarity", p, "must be NOR or INVT")
	}
	return g.command(ch, "OUTP PLRT,%s", p)
}

// SetModulation configures the modulation of the channel. The modulation is
// validated before anything is sent.
func (g *generator) SetModulation(ch Channel, m Modulation) error {
	if err := g.checkChannel(ch); err != nil {
		return err
	}
	cmd, err := modulationCommand(ch, m)
	if err != nil {
		return err
	}
	return g.Command("%s", cmd)
}

// SetModulationState enables or disables modulation on the channel.
func (g *generator) SetModulationState(ch Channel, on bool) error {
	return g.command(ch, "MDWV STATE,%s", onOff(on))
}

// ModulationParameters queries the modulation settings of the channel.
func (g *generator) ModulationParameters(ch Channel) (ModulationSettings, error) {
	q, resp, err := g.query(ch, "MDWV?")
	if err != nil {
		return ModulationSettings{}, err
	}
	return parseModulation(q, resp, ch.header()+":MDWV")
}

// ConfigureSweep sets the start and stop frequencies in Hz and the sweep
// time in seconds. The sweep is started with StartSweep.
func (g *generator) ConfigureSweep(ch Channel, start, stop, seconds float64) error {
	if err := g.checkChannel(ch); err != nil {
		return err
	}
	if start <= 0 {
		return invalid("sweep start frequency", start, "must be positive")
	}
	if stop <= 0 {
		return invalid("sweep stop frequency", stop, "must be positive")
	}
	if seconds <= 0 {
		return invalid("sweep time", seconds, "must be positive")
	}
	for _, f := range []float64{start, stop} {
		if err := g.checkFrequency("", f); err != nil {
			return err
		}
	}
	return g.command(ch, "SWWV STFR,%s,SPFR,%s,TIME,%s",
		formatFloat(start), formatFloat(stop), formatFloat(seconds))
}

// SetSweepType selects a linear or logarithmic sweep.
func (g *generator) SetSweepType(ch Channel, t SweepType) error {
	if err := g.checkChannel(ch); err != nil {
		return err
	}
	ok := false
	for _, s := range g.lim.sweepTypes {
		ok = ok || s == t
	}
	if !ok {
		return invalid("sweep type", t, "%s supports %v", g.lim.model, g.lim.sweepTypes)
	}
	return g.command(ch, "SWWV SWTP,%s", t)
}

// StartSweep turns sweep mode on for the channel.
func (g *generator) StartSweep(ch Channel) error { return g.command(ch, "SWWV STATE,ON") }

// StopSweep turns sweep mode off for the channel.
func (g *generator) StopSweep(ch Channel) error { return g.command(ch, "SWWV STATE,OFF") }

// SweepSettings queries the raw sweep settings of the channel.
func (g *generator) SweepSettings(ch Channel) (Settings, error) {
	return g.settings(ch, "SWWV")
}

// BurstTrigger is the trigger source of a burst.
type BurstTrigger string

// Burst trigger sources.
const (
	BurstTriggerManual   BurstTrigger = "MAN"
	BurstTriggerExternal BurstTrigger = "EXT"
	BurstTriggerCh1      BurstTrigger = "CH1"
	BurstTriggerCh2      BurstTrigger = "CH2"
)

type burstConfig struct {
	trigger BurstTrigger
	period  float64
}

// BurstOption applies an option to ConfigureBurst.
type BurstOption func(*burstConfig)

// WithBurstTrigger selects the burst trigger source. The default is
// BurstTriggerManual, which TriggerBurst fires.
func WithBurstTrigger(src BurstTrigger) BurstOption {
	return func(c *burstConfig) { c.trigger = src }
}

// WithBurstPeriod sets the burst period in seconds.
func WithBurstPeriod(seconds float64) BurstOption {
	return func(c *burstConfig) { c.period = seconds }
}

// ConfigureBurst enables burst mode. In N-cycle mode cycles is the number of
// cycles per trigger, or BurstInfinite; it is ignored for gated bursts.
func (g *generator) ConfigureBurst(ch Channel, mode BurstMode, cycles int, opts ...BurstOption) error {
	if err := g.checkChannel(ch); err != nil {
		return err
	}
	cfg := burstConfig{trigger: BurstTriggerManual}
	for _, opt := range opts {
		opt(&cfg)
	}
	switch cfg.trigger {
	case BurstTriggerManual, BurstTriggerExternal, BurstTriggerCh1, BurstTriggerCh2:
	default:
		return invalid("burst trigger source", cfg.trigger, "must be MAN, EXT, CH1 or CH2")
	}
	if cfg.period < 0 || math.IsNaN(cfg.period) || math.IsInf(cfg.period, 0) {
		return invalid("burst period", cfg.period, "must be positive")
	}

	fields := []string{"STATE", "ON", "TRSR", string(cfg.trigger), "GATE_NCYC", string(mode)}
	switch mode {
	case BurstGated:
	case BurstNCycle:
		n := "INF"
		if cycles != BurstInfinite {
			if cycles < 1 || (g.lim.burstMax > 0 && cycles > g.lim.burstMax) {
				return invalid("burst cycles", cycles, "%s range is 1 to %d", g.lim.model, g.lim.burstMax)
			}
			n = strconv.Itoa(cycles)
		}
		fields = append(fields, "TIME", n)
	default:
		return invalid("burst mode", mode, "must be NCYC or GATE")
	}
	if cfg.period > 0 {
		fields = append(fields, "PRD", formatFloat(cfg.period))
	}
	return g.command(ch, "BTWV %s", strings.Join(fields, ","))
}

// TriggerBurst sends a manual trigger to the channel's burst.
func (g *generator) TriggerBurst(ch Channel) error { return g.command(ch, "BTWV MTRIG") }

// StopBurst turns burst mode off for the channel.
func (g *generator) StopBurst(ch Channel) error { return g.command(ch, "BTWV STATE,OFF") }

// BurstSettings queries the raw burst settings of the channel.
func (g *generator) BurstSettings(ch Channel) (Settings, error) {
	return g.settings(ch, "BTWV")
}

func (g *generator) settings(ch Channel, header string) (Settings, error) {
	q, resp, err := g.query(ch, header+"?")
	if err != nil {
		return nil, err
	}
	fields := splitResponse(resp, ch.header()+":"+header)
	// Nested groups such as CARR carry no value of their own.
	if i := indexFold(fields, "CARR"); i >= 0 {
		fields = fields[:i]
	}
	return parseSettings(q, resp, fields)
}

func indexFold(fields []string, s string) int {
	for i, f := range fields {
		if strings.EqualFold(f, s) {
			return i
		}
	}
	return -1
}

// ArbWave identifies the arbitrary waveform selected on a channel.
type ArbWave struct {
	Index int
	Name  string
}

// ArbWave queries the arbitrary waveform selected on the channel.
func (g *generator) ArbWave(ch Channel) (ArbWave, error) {
	q, resp, err := g.query(ch, "ARWV?")
	if err != nil {
		return ArbWave{}, err
	}
	s, err := parseSettings(q, resp, splitResponse(resp, ch.header()+":ARWV"))
	if err != nil {
		return ArbWave{}, err
	}
	a := ArbWave{Name: s["name"]}
	if v, ok := s["index"]; ok {
		if a.Index, err = strconv.Atoi(v); err != nil {
			return ArbWave{}, &InvalidResponseError{Cmd: q, Response: resp, Reason: "bad index"}
		}
	}
	return a, nil
}

// SetArbWaveIndex selects a stored arbitrary waveform by index.
func (g *generator) SetArbWaveIndex(ch Channel, index int) error {
	if index < 0 {
		return invalid("arbitrary wave index", index, "must not be negative")
	}
	return g.command(ch, "ARWV INDEX,%d", index)
}

// SelectArbWave selects a stored arbitrary waveform by name.
func (g *generator) SelectArbWave(ch Channel, name string) error {
	if name == "" || strings.ContainsAny(name, ",;\n") {
		return invalid("arbitrary wave name", name, "must be non-empty without separators")
	}
	return g.command(ch, "ARWV NAME,%s", name)
}

// DeleteArbWave deletes a user defined arbitrary waveform.
func (g *generator) DeleteArbWave(name string) error {
	if name == "" || strings.ContainsAny(name, ",;\n") {
		return invalid("arbitrary wave name", name, "must be non-empty without separators")
	}
	return g.Command("WVDT DL,%s", name)
}

// StoreList returns the stored waveforms keyed by memory slot.
func (g *generator) StoreList() (map[int]string, error) {
	resp, err := query.String(g.Instrument, "STL?")
	if err != nil {
		return nil, err
	}
	fields := splitResponse(resp, "STL")
	if len(fields)%2 != 0 {
		return nil, &InvalidResponseError{Cmd: "STL?", Response: resp, Reason: "odd number of fields"}
	}
	list := make(map[int]string, len(fields)/2)
	for i := 0; i < len(fields); i += 2 {
		n, err := strconv.Atoi(strings.TrimPrefix(strings.ToUpper(fields[i]), "M"))
		if err != nil {
			return nil, &InvalidResponseError{Cmd: "STL?", Response: resp, Reason: "bad slot " + fields[i]}
		}
		list[n] = fields[i+1]
	}
	return list, nil
}

// StoredWaveNames returns the names of the stored waveforms in slot order.
func (g *generator) StoredWaveNames() ([]string, error) {
	list, err := g.StoreList()
	if err != nil {
		return nil, err
	}
	slots := make([]int, 0, len(list))
	for n := range list {
		slots = append(slots, n)
	}
	sort.Ints(slots)
	names := make([]string, len(slots))
	for i, n := range slots {
		names[i] = list[n]
	}
	return names, nil
}
