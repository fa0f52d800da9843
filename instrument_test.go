// Copyright (c) 2024 The sdg developers. All rights reserved.
// Project site: https://github.com/gotmc/sdg
// Use of this source code is governed by a MIT-style license that
// can be found in the LICENSE.txt file for the project.

package sdg

import (
	"errors"
	"testing"

	"github.com/gotmc/sdg/lib/sdgsim"
	"go.uber.org/multierr"
)

func TestInfoIsUnmodified(t *testing.T) {
	idn := "SIGLENT,SDG2042X,SDG2XCAD5R1234,2.01.01.35R3B2"
	r := &recorder{responses: map[string]string{"*IDN?": idn}}
	got, err := NewInstrument(r).Info()
	if err != nil {
		t.Fatal(err)
	}
	if got != idn {
		t.Errorf("Info() = %q, want %q", got, idn)
	}
}

func TestParseIdentity(t *testing.T) {
	id, err := ParseIdentity("Siglent Technologies,SDG1025,SDG1XXXXXXXX,1.01.01.33R5\n")
	if err != nil {
		t.Fatal(err)
	}
	want := Identity{
		Manufacturer: "Siglent Technologies",
		Model:        "SDG1025",
		Serial:       "SDG1XXXXXXXX",
		Firmware:     "1.01.01.33R5",
	}
	if id != want {
		t.Errorf("got %+v, want %+v", id, want)
	}
	if _, err := ParseIdentity("SIGLENT,SDG1025"); err == nil {
		t.Error("expected error for short *IDN? response")
	}
}

func TestReset(t *testing.T) {
	r := &recorder{}
	if err := NewInstrument(r).Reset(); err != nil {
		t.Fatal(err)
	}
	if len(r.cmds) != 1 || r.cmds[0] != "*RST" {
		t.Errorf("commands = %q, want [*RST]", r.cmds)
	}
}

func TestSelfTest(t *testing.T) {
	tests := []struct {
		resp string
		want bool
	}{
		{"0", true},
		{"0\n", true},
		{"1", false},
		{"-1", false},
		{"FAIL", false},
		{"", false},
	}
	for _, tc := range tests {
		r := &recorder{responses: map[string]string{"*TST?": tc.resp}}
		got, err := NewInstrument(r).SelfTest()
		if err != nil {
			t.Fatalf("%q: %s", tc.resp, err)
		}
		if got != tc.want {
			t.Errorf("SelfTest() with %q = %t, want %t", tc.resp, got, tc.want)
		}
	}
}

func TestErrorQueueEmpty(t *testing.T) {
	r := &recorder{responses: map[string]string{"SYST:ERR?": `0,"No error"`}}
	errs, err := NewInstrument(r).ErrorQueue()
	if err != nil {
		t.Fatal(err)
	}
	if len(errs) != 0 {
		t.Errorf("got %v, want empty queue", errs)
	}
	if len(r.queries) != 1 {
		t.Errorf("got %d queries, want 1", len(r.queries))
	}
}

func TestErrorQueueOrder(t *testing.T) {
	sim := sdgsim.New()
	sim.PushError(-113, "Undefined header")
	sim.PushError(-222, "Data out of range")
	inst := NewInstrument(sim)

	errs, err := inst.ErrorQueue()
	if err != nil {
		t.Fatal(err)
	}
	want := []InstrumentError{{-113, "Undefined header"}, {-222, "Data out of range"}}
	if len(errs) != len(want) {
		t.Fatalf("got %v, want %v", errs, want)
	}
	for i := range want {
		if errs[i] != want[i] {
			t.Errorf("entry %d = %v, want %v", i, errs[i], want[i])
		}
	}

	// The queue was drained.
	errs, err = inst.ErrorQueue()
	if err != nil || len(errs) != 0 {
		t.Errorf("second read = %v, %v; want empty", errs, err)
	}
}

func TestErrorQueueBounded(t *testing.T) {
	r := &recorder{responses: map[string]string{"SYST:ERR?": `-100,"Command error"`}}
	errs, err := NewInstrument(r).ErrorQueue()
	var ire *InvalidResponseError
	if !errors.As(err, &ire) {
		t.Fatalf("got %v, want *InvalidResponseError for a queue that never empties", err)
	}
	if ire.Cmd != "SYST:ERR?" {
		t.Errorf("cmd = %q", ire.Cmd)
	}
	if len(errs) != MaxErrorQueue {
		t.Errorf("got %d entries, want %d", len(errs), MaxErrorQueue)
	}
}

func TestClearAndCheckErrors(t *testing.T) {
	sim := sdgsim.New()
	inst := NewInstrument(sim)
	if err := inst.CheckErrors(); err != nil {
		t.Errorf("CheckErrors() on empty queue = %v", err)
	}

	sim.PushError(-113, "Undefined header")
	sim.PushError(-222, "Data out of range")
	err := inst.CheckErrors()
	if got := len(multierr.Errors(err)); got != 2 {
		t.Fatalf("CheckErrors() combined %d errors, want 2: %v", got, err)
	}
	var ie InstrumentError
	if !errors.As(err, &ie) || ie.Code != -113 {
		t.Errorf("errors.As first entry = %v, want code -113", ie)
	}

	sim.PushError(-113, "Undefined header")
	if err := inst.ClearErrors(); err != nil {
		t.Fatal(err)
	}
	if err := inst.CheckErrors(); err != nil {
		t.Errorf("queue not cleared: %v", err)
	}
}

func TestCommunicationError(t *testing.T) {
	sim := sdgsim.New()
	inst := NewInstrument(sim)

	sim.FailNext(errLink)
	_, err := inst.Info()
	var ce *CommunicationError
	if !errors.As(err, &ce) {
		t.Fatalf("got %T %v, want *CommunicationError", err, err)
	}
	if ce.Op != "query" || ce.Cmd != "*IDN?" {
		t.Errorf("got op %q cmd %q", ce.Op, ce.Cmd)
	}
	if !errors.Is(err, errLink) {
		t.Error("CommunicationError does not unwrap to the transport error")
	}

	sim.FailNext(errLink)
	if err := inst.Reset(); !errors.As(err, &ce) || ce.Op != "command" {
		t.Errorf("Reset() = %v, want command CommunicationError", err)
	}
}

func TestQueryRetries(t *testing.T) {
	responses := map[string]string{"*TST?": "0"}

	r := &recorder{responses: responses, fails: 2, err: errLink}
	ok, err := NewInstrument(r, WithQueryRetries(2, 0)).SelfTest()
	if err != nil || !ok {
		t.Fatalf("SelfTest() = %t, %v; want pass after retries", ok, err)
	}
	if len(r.queries) != 3 {
		t.Errorf("got %d attempts, want 3", len(r.queries))
	}

	r = &recorder{responses: responses, fails: 2, err: errLink}
	if _, err := NewInstrument(r, WithQueryRetries(1, 0)).SelfTest(); !errors.Is(err, errLink) {
		t.Errorf("SelfTest() = %v, want %v", err, errLink)
	}
	if len(r.queries) != 2 {
		t.Errorf("got %d attempts, want 2", len(r.queries))
	}

	r = &recorder{responses: responses, fails: 1, err: errLink}
	if err := NewInstrument(r, WithQueryRetries(3, 0)).Reset(); err == nil {
		t.Error("commands must not be retried")
	}
}
