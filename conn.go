// Copyright (c) 2024 The sdg developers. All rights reserved.
// Project site: https://github.com/gotmc/sdg
// Use of this source code is governed by a MIT-style license that
// can be found in the LICENSE.txt file for the project.

package sdg

import (
	"bufio"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// Transport is the capability set an instrument driver needs from the link
// to the instrument. Command sends a command that has no response and Query
// sends a command and returns the single line the instrument answers with.
//
// *Conn implements Transport, as does any GPIB controller or VISA binding
// exposing the same two methods. The driver never opens or closes the
// transport; that remains the caller's job.
type Transport interface {
	Command(format string, a ...any) error
	Query(cmd string) (string, error)
}

// Conn is a line oriented SCPI transport over an io.ReadWriter, such as a raw
// TCP socket (port 5025 on SDG generators) or a serial port. Conn is not safe
// for concurrent use; callers sharing one Conn must serialize access.
type Conn struct {
	rw         io.ReadWriter
	r          *bufio.Reader
	term       byte
	writeDelay time.Duration
	lastWrite  time.Time
	debug      bool // if true, log commands and responses. Set via WithDebug().
	log        logrus.FieldLogger
}

// ConnOption applies an option to the connection.
type ConnOption func(*Conn)

// NewConn creates a SCPI connection using the given reader/writer. Commands
// and queries are terminated by a line feed unless WithTerminator is given.
func NewConn(rw io.ReadWriter, opts ...ConnOption) *Conn {
	c := Conn{
		rw:   rw,
		r:    bufio.NewReader(rw),
		term: '\n',
		log:  logrus.StandardLogger(),
	}

	// Apply options using the functional option pattern.
	for _, opt := range opts {
		opt(&c)
	}
	return &c
}

// WithDebug causes commands and responses to be logged at debug level.
func WithDebug() ConnOption { return func(c *Conn) { c.debug = true } }

// WithLogger sets the logger used for debug output. The default is the
// logrus standard logger.
func WithLogger(l logrus.FieldLogger) ConnOption {
	return func(c *Conn) {
		if l != nil {
			c.log = l
		}
	}
}

// WithTerminator sets the character appended to every command and expected
// at the end of every response.
func WithTerminator(term byte) ConnOption { return func(c *Conn) { c.term = term } }

// WithWriteDelay enforces a minimum delay between consecutive writes. Some
// instruments drop commands that arrive faster than they can parse them.
func WithWriteDelay(d time.Duration) ConnOption { return func(c *Conn) { c.writeDelay = d } }

// Write writes the given data to the instrument as is.
func (c *Conn) Write(p []byte) (n int, err error) {
	c.wait()
	return c.rw.Write(p)
}

// Read reads buffered response data from the instrument into the given byte
// slice.
func (c *Conn) Read(p []byte) (n int, err error) {
	return c.r.Read(p)
}

// WriteString writes a string to the instrument. All leading and trailing
// whitespace is removed before appending the terminator.
func (c *Conn) WriteString(s string) (n int, err error) {
	cmd := fmt.Sprintf("%s%c", strings.TrimSpace(s), c.term)
	if c.debug {
		c.log.WithField("cmd", cmd).Debug("write")
	}
	return c.Write([]byte(cmd))
}

// Command formats according to a format specifier if provided and sends a
// SCPI command to the instrument.
func (c *Conn) Command(format string, a ...any) error {
	cmd := format
	if a != nil {
		cmd = fmt.Sprintf(format, a...)
	}
	_, err := c.WriteString(cmd)
	return err
}

// Query sends the given SCPI query and reads the response up to the
// terminator. The terminator and any trailing carriage return are removed.
func (c *Conn) Query(cmd string) (string, error) {
	if _, err := c.WriteString(cmd); err != nil {
		return "", fmt.Errorf("error writing command: %w", err)
	}
	s, err := c.r.ReadString(c.term)
	if err == io.EOF && len(s) > 0 {
		err = nil
	}
	if err != nil {
		return "", fmt.Errorf("error reading response to %q: %w", strings.TrimSpace(cmd), err)
	}
	s = strings.TrimRight(s, string([]byte{c.term, '\r'}))
	if c.debug {
		c.log.WithFields(logrus.Fields{"cmd": strings.TrimSpace(cmd), "resp": s}).Debug("query")
	}
	return s, nil
}

func (c *Conn) wait() {
	if c.writeDelay > 0 {
		if since := time.Since(c.lastWrite); since < c.writeDelay {
			time.Sleep(c.writeDelay - since)
		}
	}
	c.lastWrite = time.Now()
}
