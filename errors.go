// Copyright (c) 2024 The sdg developers. All rights reserved.
// Project site: https://github.com/gotmc/sdg
// Use of this source code is governed by a MIT-style license that
// can be found in the LICENSE.txt file for the project.

package sdg

import (
	"errors"
	"fmt"
)

// ErrUnsupportedModel is returned when an identification string does not
// belong to a supported SDG family.
var ErrUnsupportedModel = errors.New("unsupported model")

// CommunicationError reports a failure of the underlying transport, such as a
// timeout or a closed connection. It unwraps to the transport's error.
type CommunicationError struct {
	Op  string // "command" or "query"
	Cmd string
	Err error
}

func (e *CommunicationError) Error() string {
	return fmt.Sprintf("%s %q: %s", e.Op, e.Cmd, e.Err)
}

func (e *CommunicationError) Unwrap() error { return e.Err }

// InvalidParameterError reports an argument rejected before anything was
// sent to the instrument.
type InvalidParameterError struct {
	Name   string
	Value  any
	Reason string
}

func (e *InvalidParameterError) Error() string {
	return fmt.Sprintf("invalid %s %v: %s", e.Name, e.Value, e.Reason)
}

func invalid(name string, value any, format string, a ...any) error {
	return &InvalidParameterError{Name: name, Value: value, Reason: fmt.Sprintf(format, a...)}
}

// InstrumentError is an entry of the instrument's error queue. The
// instrument records these asynchronously while processing commands, so they
// are only seen by polling ErrorQueue or CheckErrors.
type InstrumentError struct {
	Code    int
	Message string
}

func (e InstrumentError) Error() string {
	return fmt.Sprintf("instrument error %d: %s", e.Code, e.Message)
}

// InvalidResponseError reports a response that could not be parsed.
type InvalidResponseError struct {
	Cmd      string
	Response string
	Reason   string
}

func (e *InvalidResponseError) Error() string {
	return fmt.Sprintf("invalid response to %q: %s (%q)", e.Cmd, e.Reason, e.Response)
}
