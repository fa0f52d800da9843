// Copyright (c) 2024 The sdg developers. All rights reserved.
// Project site: https://github.com/gotmc/sdg
// Use of this source code is governed by a MIT-style license that
// can be found in the LICENSE.txt file for the project.

package sdg

import (
	"errors"
	"fmt"
)

var errLink = errors.New("link down")

// recorder is a Transport that records commands and answers queries from a
// fixed table.
type recorder struct {
	cmds      []string
	queries   []string
	responses map[string]string
	fails     int // number of calls to fail before succeeding
	err       error
}

func (r *recorder) Command(format string, a ...any) error {
	cmd := format
	if a != nil {
		cmd = fmt.Sprintf(format, a...)
	}
	if r.fails > 0 {
		r.fails--
		return r.err
	}
	r.cmds = append(r.cmds, cmd)
	return nil
}

func (r *recorder) Query(cmd string) (string, error) {
	r.queries = append(r.queries, cmd)
	if r.fails > 0 {
		r.fails--
		return "", r.err
	}
	resp, ok := r.responses[cmd]
	if !ok {
		return "", fmt.Errorf("no response for %q", cmd)
	}
	return resp, nil
}

func (r *recorder) count(cmd string) int {
	n := 0
	for _, c := range r.cmds {
		if c == cmd {
			n++
		}
	}
	return n
}
