// Copyright (c) 2024 The sdg developers. All rights reserved.
// Project site: https://github.com/gotmc/sdg
// Use of this source code is governed by a MIT-style license that
// can be found in the LICENSE.txt file for the project.

package sdg

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff"
	"github.com/gotmc/query"
	"go.uber.org/multierr"
)

// MaxErrorQueue bounds how many entries ErrorQueue reads before giving up on
// reaching the "no error" entry.
const MaxErrorQueue = 64

// Instrument provides the IEEE 488.2 common commands and error queue access
// shared by every SCPI instrument.
type Instrument struct {
	t          Transport
	retries    int
	retryDelay time.Duration
}

// InstrumentOption applies an option to the instrument.
type InstrumentOption func(*Instrument)

// WithQueryRetries retries a failed query up to n more times, waiting delay
// between attempts. Commands are never retried because the instrument may
// already have acted on them.
func WithQueryRetries(n int, delay time.Duration) InstrumentOption {
	return func(i *Instrument) {
		i.retries = n
		i.retryDelay = delay
	}
}

// NewInstrument creates an instrument talking over the given transport.
func NewInstrument(t Transport, opts ...InstrumentOption) *Instrument {
	i := Instrument{t: t}
	for _, opt := range opts {
		opt(&i)
	}
	return &i
}

// Command formats and sends a raw SCPI command. Transport failures are
// returned as *CommunicationError.
func (i *Instrument) Command(format string, a ...any) error {
	cmd := format
	if a != nil {
		cmd = fmt.Sprintf(format, a...)
	}
	if err := i.t.Command("%s", cmd); err != nil {
		return &CommunicationError{Op: "command", Cmd: cmd, Err: err}
	}
	return nil
}

// Query sends a raw SCPI query and returns the response. Transport failures
// are returned as *CommunicationError after any configured retries.
func (i *Instrument) Query(cmd string) (string, error) {
	var resp string
	op := func() error {
		var err error
		resp, err = i.t.Query(cmd)
		return err
	}
	var err error
	if i.retries > 0 {
		b := backoff.WithMaxRetries(backoff.NewConstantBackOff(i.retryDelay), uint64(i.retries))
		err = backoff.Retry(op, b)
	} else {
		err = op()
	}
	if err != nil {
		return "", &CommunicationError{Op: "query", Cmd: cmd, Err: err}
	}
	return resp, nil
}

// Info returns the identification string reported by *IDN? unmodified.
func (i *Instrument) Info() (string, error) {
	return query.String(i, "*IDN?")
}

// Identity holds the fields of an *IDN? response.
type Identity struct {
	Manufacturer string
	Model        string
	Serial       string
	Firmware     string
}

// ParseIdentity splits an *IDN? response into its four fields.
func ParseIdentity(idn string) (Identity, error) {
	fields := strings.Split(strings.TrimSpace(idn), ",")
	if len(fields) < 4 {
		return Identity{}, &InvalidResponseError{Cmd: "*IDN?", Response: idn, Reason: "want 4 fields"}
	}
	for j := range fields {
		fields[j] = strings.TrimSpace(fields[j])
	}
	return Identity{
		Manufacturer: fields[0],
		Model:        fields[1],
		Serial:       fields[2],
		Firmware:     strings.Join(fields[3:], ","),
	}, nil
}

// Identity queries and parses the instrument identification.
func (i *Instrument) Identity() (Identity, error) {
	idn, err := i.Info()
	if err != nil {
		return Identity{}, err
	}
	return ParseIdentity(idn)
}

// Reset restores the instrument's factory default state.
func (i *Instrument) Reset() error {
	return i.Command("*RST")
}

// SelfTest runs the instrument self-test and reports whether it passed.
func (i *Instrument) SelfTest() (bool, error) {
	s, err := query.String(i, "*TST?")
	if err != nil {
		return false, err
	}
	return strings.TrimSpace(s) == "0", nil
}

// ErrorQueue reads the instrument error queue until it reports no error and
// returns the entries oldest first.
func (i *Instrument) ErrorQueue() ([]InstrumentError, error) {
	var errs []InstrumentError
	for n := 0; n < MaxErrorQueue; n++ {
		s, err := query.String(i, "SYST:ERR?")
		if err != nil {
			return errs, err
		}
		ie, err := parseErrorEntry(s)
		if err != nil {
			return errs, err
		}
		if ie.Code == 0 {
			return errs, nil
		}
		errs = append(errs, ie)
	}
	return errs, &InvalidResponseError{
		Cmd:    "SYST:ERR?",
		Reason: fmt.Sprintf("error queue not empty after %d reads", MaxErrorQueue),
	}
}

// ClearErrors drains the error queue, discarding its entries.
func (i *Instrument) ClearErrors() error {
	_, err := i.ErrorQueue()
	return err
}

// CheckErrors drains the error queue and returns its entries combined into
// one error, or nil if the queue was empty. Use multierr.Errors to split the
// result.
func (i *Instrument) CheckErrors() error {
	entries, err := i.ErrorQueue()
	errs := make([]error, 0, len(entries)+1)
	for _, e := range entries {
		errs = append(errs, e)
	}
	errs = append(errs, err)
	return multierr.Combine(errs...)
}

// parseErrorEntry parses `<code>,"<message>"`.
func parseErrorEntry(s string) (InstrumentError, error) {
	s = strings.TrimSpace(s)
	code, msg, _ := strings.Cut(s, ",")
	n, err := strconv.Atoi(strings.TrimSpace(code))
	if err != nil {
		return InstrumentError{}, &InvalidResponseError{Cmd: "SYST:ERR?", Response: s, Reason: "bad error code"}
	}
	msg = strings.Trim(strings.TrimSpace(msg), `"`)
	return InstrumentError{Code: n, Message: msg}, nil
}
