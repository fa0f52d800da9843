// Package sdgsim simulates the SCPI command set of a two channel Siglent SDG
// generator in memory. A *Sim satisfies sdg.Transport, so drivers can be
// exercised without hardware.
package sdgsim

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
)

// ErrNoResponse is returned by Query for commands the simulated instrument
// does not answer, which on real hardware ends in a read timeout.
var ErrNoResponse = errors.New("sdgsim: no response")

// SCPI error queue entries produced by the simulator.
const (
	UndefinedHeader = -113
	DataOutOfRange  = -222
)

// params is an ordered key/value list as carried by BSWV, MDWV, etc.
type params struct {
	keys []string
	vals map[string]string
}

func newParams(kv ...string) *params {
	p := &params{vals: map[string]string{}}
	for i := 0; i+1 < len(kv); i += 2 {
		p.set(kv[i], kv[i+1])
	}
	return p
}

func (p *params) set(k, v string) {
	k = strings.ToUpper(k)
	if _, ok := p.vals[k]; !ok {
		p.keys = append(p.keys, k)
	}
	p.vals[k] = v
}

func (p *params) String() string {
	fields := make([]string, 0, 2*len(p.keys))
	for _, k := range p.keys {
		fields = append(fields, k, p.vals[k])
	}
	return strings.Join(fields, ",")
}

type channel struct {
	basic   *params
	output  string
	load    string
	plrt    string
	modType string
	mod     map[string]*params
	modOn   bool
	sweep   *params
	burst   *params
	arb     *params
	trigs   int
}

func newChannel() *channel {
	return &channel{
		basic:   newParams("WVTP", "SINE", "FRQ", "1000", "AMP", "4", "OFST", "0", "PHSE", "0"),
		output:  "OFF",
		load:    "HZ",
		plrt:    "NOR",
		modType: "AM",
		mod:     map[string]*params{},
		sweep:   newParams("STATE", "OFF", "TIME", "1", "STFR", "100", "SPFR", "1900", "SWTP", "LINE"),
		burst:   newParams("STATE", "OFF", "TRSR", "INT", "GATE_NCYC", "NCYC", "TIME", "1"),
		arb:     newParams("INDEX", "2", "NAME", "StairUp"),
	}
}

// Sim is a simulated SDG generator. Its zero value is not usable; call New.
type Sim struct {
	// IDN is the response to *IDN?.
	IDN string
	// SelfTest is the response to *TST?.
	SelfTest string
	// MaxFrequency rejects higher FRQ values with DataOutOfRange.
	MaxFrequency float64

	mu       sync.Mutex
	ch       map[int]*channel
	errs     []string
	store    *params
	commands []string
	queries  []string
	failNext error
}

// New returns a simulator in its reset state identifying as an SDG2042X.
func New() *Sim {
	s := &Sim{
		IDN:          "Siglent Technologies,SDG2042X,SDG2XCAD5R1234,2.01.01.35R3B2",
		SelfTest:     "0",
		MaxFrequency: 40e6,
	}
	s.reset()
	return s
}

func (s *Sim) reset() {
	s.ch = map[int]*channel{1: newChannel(), 2: newChannel()}
	s.store = newParams("M2", "StairUp", "M3", "StairDn", "M10", "ExpFal")
}

// FailNext makes the next Command or Query return err without being
// processed.
func (s *Sim) FailNext(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failNext = err
}

// PushError appends an entry to the error queue.
func (s *Sim) PushError(code int, msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pushError(code, msg)
}

func (s *Sim) pushError(code int, msg string) {
	s.errs = append(s.errs, fmt.Sprintf("%d,%q", code, msg))
}

// Commands returns every command received, in order.
func (s *Sim) Commands() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.commands...)
}

// Queries returns every query received, in order.
func (s *Sim) Queries() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.queries...)
}

// Triggers returns how many manual burst triggers the channel received.
func (s *Sim) Triggers(ch int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.ch[ch]; ok {
		return c.trigs
	}
	return 0
}

func (s *Sim) takeFailure() error {
	err := s.failNext
	s.failNext = nil
	return err
}

// Command processes a SCPI command.
func (s *Sim) Command(format string, a ...any) error {
	cmd := format
	if a != nil {
		cmd = fmt.Sprintf(format, a...)
	}
	cmd = strings.TrimSpace(cmd)
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.takeFailure(); err != nil {
		return err
	}
	s.commands = append(s.commands, cmd)
	s.apply(cmd)
	return nil
}

// Query processes a SCPI query and returns the simulated response.
func (s *Sim) Query(cmd string) (string, error) {
	cmd = strings.TrimSpace(cmd)
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.takeFailure(); err != nil {
		return "", err
	}
	s.queries = append(s.queries, cmd)
	resp, ok := s.answer(cmd)
	if !ok {
		s.pushError(UndefinedHeader, "Undefined header")
		return "", ErrNoResponse
	}
	return resp, nil
}

// split separates "C1:BSWV FRQ,1000" into channel 1, "BSWV" and its fields.
func split(cmd string) (ch int, header string, fields []string) {
	head, rest, _ := strings.Cut(cmd, " ")
	head = strings.ToUpper(head)
	if len(head) > 3 && head[0] == 'C' && head[2] == ':' {
		if n, err := strconv.Atoi(head[1:2]); err == nil {
			ch, head = n, head[3:]
		}
	}
	if rest != "" {
		fields = strings.Split(rest, ",")
		for i := range fields {
			fields[i] = strings.TrimSpace(fields[i])
		}
	}
	return ch, head, fields
}

func (s *Sim) apply(cmd string) {
	n, header, fields := split(cmd)
	if header == "*RST" {
		s.reset()
		return
	}
	if header == "WVDT" && len(fields) == 2 && strings.EqualFold(fields[0], "DL") {
		for _, k := range s.store.keys {
			if s.store.vals[k] == fields[1] {
				s.store.vals[k] = "EMPTY"
			}
		}
		return
	}
	c, ok := s.ch[n]
	if !ok {
		s.pushError(UndefinedHeader, "Undefined header")
		return
	}
	switch header {
	case "BSWV":
		s.applyPairs(fields, func(k, v string) bool {
			if k == "FRQ" {
				f, err := strconv.ParseFloat(v, 64)
				if err != nil || f > s.MaxFrequency || f <= 0 {
					s.pushError(DataOutOfRange, "Data out of range")
					return false
				}
			}
			c.basic.set(k, v)
			return true
		})
	case "OUTP":
		if len(fields) == 1 {
			c.output = strings.ToUpper(fields[0])
			return
		}
		s.applyPairs(fields, func(k, v string) bool {
			switch k {
			case "LOAD":
				c.load = v
			case "PLRT":
				c.plrt = v
			default:
				return false
			}
			return true
		})
	case "MDWV":
		if len(fields) == 2 && strings.EqualFold(fields[0], "STATE") {
			c.modOn = strings.EqualFold(fields[1], "ON")
			return
		}
		if len(fields) == 0 {
			s.pushError(UndefinedHeader, "Undefined header")
			return
		}
		c.modType = strings.ToUpper(fields[0])
		p, ok := c.mod[c.modType]
		if !ok {
			p = newParams()
			c.mod[c.modType] = p
		}
		s.applyPairs(fields[1:], func(k, v string) bool { p.set(k, v); return true })
	case "SWWV":
		s.applyPairs(fields, func(k, v string) bool { c.sweep.set(k, v); return true })
	case "BTWV":
		if len(fields) == 1 && strings.EqualFold(fields[0], "MTRIG") {
			c.trigs++
			return
		}
		s.applyPairs(fields, func(k, v string) bool { c.burst.set(k, v); return true })
	case "ARWV":
		s.applyPairs(fields, func(k, v string) bool {
			c.arb.set(k, v)
			if k == "NAME" {
				for _, m := range s.store.keys {
					if s.store.vals[m] == v {
						c.arb.set("INDEX", strings.TrimPrefix(m, "M"))
					}
				}
			}
			return true
		})
	default:
		s.pushError(UndefinedHeader, "Undefined header")
	}
}

func (s *Sim) applyPairs(fields []string, set func(k, v string) bool) {
	if len(fields)%2 != 0 {
		s.pushError(UndefinedHeader, "Missing parameter")
		return
	}
	for i := 0; i < len(fields); i += 2 {
		if !set(strings.ToUpper(fields[i]), fields[i+1]) {
			return
		}
	}
}

func (s *Sim) answer(cmd string) (string, bool) {
	switch strings.ToUpper(cmd) {
	case "*IDN?":
		return s.IDN, true
	case "*TST?":
		return s.SelfTest, true
	case "SYST:ERR?":
		if len(s.errs) == 0 {
			return `0,"No error"`, true
		}
		e := s.errs[0]
		s.errs = s.errs[1:]
		return e, true
	case "STL?":
		return "STL " + s.store.String(), true
	}
	n, header, _ := split(cmd)
	c, ok := s.ch[n]
	if !ok {
		return "", false
	}
	prefix := fmt.Sprintf("C%d:%s ", n, strings.TrimSuffix(header, "?"))
	switch header {
	case "BSWV?":
		return prefix + withUnits(c.basic), true
	case "OUTP?":
		return prefix + fmt.Sprintf("%s,LOAD,%s,PLRT,%s", c.output, c.load, c.plrt), true
	case "MDWV?":
		resp := "STATE," + onOff(c.modOn)
		if c.modOn {
			resp += "," + c.modType
			if p, ok := c.mod[c.modType]; ok && len(p.keys) > 0 {
				resp += "," + p.String()
			}
			resp += ",CARR," + withUnits(c.basic)
		}
		return prefix + resp, true
	case "SWWV?":
		return prefix + c.sweep.String() + ",CARR," + withUnits(c.basic), true
	case "BTWV?":
		return prefix + c.burst.String() + ",CARR," + withUnits(c.basic), true
	case "ARWV?":
		return prefix + c.arb.String(), true
	}
	return "", false
}

var units = map[string]string{"FRQ": "HZ", "AMP": "V", "OFST": "V", "HLEV": "V", "LLEV": "V", "PERI": "S"}

// withUnits renders BSWV parameters the way the instrument reports them.
func withUnits(p *params) string {
	fields := make([]string, 0, 2*len(p.keys))
	for _, k := range p.keys {
		v := p.vals[k]
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			v = strconv.FormatFloat(f, 'g', -1, 64) + units[k]
		}
		fields = append(fields, k, v)
	}
	return strings.Join(fields, ",")
}

func onOff(on bool) string {
	if on {
		return "ON"
	}
	return "OFF"
}
