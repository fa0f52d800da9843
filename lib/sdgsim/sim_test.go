package sdgsim

import (
	"errors"
	"strings"
	"testing"
)

func mustQuery(t *testing.T, s *Sim, q string) string {
	t.Helper()
	resp, err := s.Query(q)
	if err != nil {
		t.Fatalf("%s: %s", q, err)
	}
	return resp
}

func mustCommand(t *testing.T, s *Sim, c string) {
	t.Helper()
	if err := s.Command("%s", c); err != nil {
		t.Fatalf("%s: %s", c, err)
	}
}

func TestDeleteStoredWave(t *testing.T) {
	s := New()
	mustCommand(t, s, "WVDT DL,StairDn")
	if got := mustQuery(t, s, "STL?"); got != "STL M2,StairUp,M3,EMPTY,M10,ExpFal" {
		t.Errorf("STL? = %q", got)
	}
}

func TestArbWaveByName(t *testing.T) {
	s := New()
	mustCommand(t, s, "C2:ARWV NAME,ExpFal")
	if got := mustQuery(t, s, "C2:ARWV?"); got != "C2:ARWV INDEX,10,NAME,ExpFal" {
		t.Errorf("C2:ARWV? = %q", got)
	}
	if got := mustQuery(t, s, "C1:ARWV?"); got != "C1:ARWV INDEX,2,NAME,StairUp" {
		t.Errorf("channel 1 changed: %q", got)
	}
}

func TestErrorQueue(t *testing.T) {
	tests := []struct {
		cmd  string
		want string
	}{
		{"C1:BSWV FRQ", `-113,"Missing parameter"`},
		{"C1:BSWV FRQ,1e9", `-222,"Data out of range"`},
		{"C3:OUTP ON", `-113,"Undefined header"`},
		{"C1:FOO BAR", `-113,"Undefined header"`},
	}
	s := New()
	for _, tc := range tests {
		mustCommand(t, s, tc.cmd)
		if got := mustQuery(t, s, "SYST:ERR?"); got != tc.want {
			t.Errorf("%s: SYST:ERR? = %s, want %s", tc.cmd, got, tc.want)
		}
	}
	if got := mustQuery(t, s, "SYST:ERR?"); got != `0,"No error"` {
		t.Errorf("queue not empty: %s", got)
	}
	if !strings.HasPrefix(mustQuery(t, s, "C1:BSWV?"), "C1:BSWV WVTP,SINE,FRQ,1000HZ,") {
		t.Error("rejected frequency was applied")
	}
}

func TestUnknownQuery(t *testing.T) {
	s := New()
	if _, err := s.Query("C1:FOO?"); !errors.Is(err, ErrNoResponse) {
		t.Errorf("got %v, want ErrNoResponse", err)
	}
	if got := mustQuery(t, s, "SYST:ERR?"); got != `-113,"Undefined header"` {
		t.Errorf("SYST:ERR? = %s", got)
	}
}

func TestResetAndFailNext(t *testing.T) {
	s := New()
	mustCommand(t, s, "C1:OUTP ON")
	mustCommand(t, s, "C1:BSWV AMP,1.5")
	mustCommand(t, s, "*RST")
	if got := mustQuery(t, s, "C1:OUTP?"); got != "C1:OUTP OFF,LOAD,HZ,PLRT,NOR" {
		t.Errorf("after *RST: %q", got)
	}

	link := errors.New("link down")
	s.FailNext(link)
	if err := s.Command("C1:OUTP ON"); !errors.Is(err, link) {
		t.Errorf("got %v, want %v", err, link)
	}
	if got := s.Commands(); len(got) != 3 {
		t.Errorf("failed command was recorded: %q", got)
	}
	if got := mustQuery(t, s, "C1:OUTP?"); !strings.HasPrefix(got, "C1:OUTP OFF") {
		t.Errorf("failed command was applied: %q", got)
	}
}
