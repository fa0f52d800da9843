// Package cmdlog logs the SCPI traffic of a transport, styling commands and
// responses with lipgloss so they stand out in a terminal.
package cmdlog

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/sirupsen/logrus"

	"github.com/gotmc/sdg"
)

func isASCII(s string) bool {
	return !strings.ContainsFunc(s, func(r rune) bool {
		switch {
		case r < 7:
			return true
		case r > 6 && r < 14:
			return false
		case r > 13 && r < 32:
			return true
		case r > 127:
			return true
		}
		return false
	})
}

var (
	CmdStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("12"))
	R1Style  = lipgloss.NewStyle().Foreground(lipgloss.Color("35"))
	R2Style  = lipgloss.NewStyle().Foreground(lipgloss.Color("86"))
	ErrStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
)

// Transport is a sdg.Transport that logs every command and query it passes
// through to the wrapped transport.
type Transport struct {
	t   sdg.Transport
	log logrus.FieldLogger
}

// New wraps t. A nil logger selects the logrus standard logger.
func New(t sdg.Transport, log logrus.FieldLogger) *Transport {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Transport{t: t, log: log}
}

// Command implements sdg.Transport.
func (l *Transport) Command(format string, a ...any) error {
	c := format
	if a != nil {
		c = fmt.Sprintf(format, a...)
	}
	if err := l.t.Command("%s", c); err != nil {
		l.log.Errorf("cmd %s: %s", CmdStyle.Render(c), ErrStyle.Render(err.Error()))
		return err
	}
	l.log.Infof("%s()", CmdStyle.Render(c))
	return nil
}

// Query implements sdg.Transport.
func (l *Transport) Query(q string) (string, error) {
	a, err := l.t.Query(q)
	if err != nil {
		l.log.Errorf("query %s: %s", CmdStyle.Render(q), ErrStyle.Render(err.Error()))
		return a, err
	}
	l.log.Info(Render(q, a))
	return a, nil
}

// Render formats a query and its response for display. Binary responses,
// such as waveform data, are shown in hex.
func Render(q, a string) string {
	q = CmdStyle.Render(q)
	a = strings.TrimSuffix(a, "\n")
	switch {
	case len(a) == 0:
		return fmt.Sprintf("%s: %s", q, R1Style.Render("<no response>"))
	case isASCII(a):
		return fmt.Sprintf("%s: [%d] %s", q, len(a), R2Style.Render(a))
	case len(a) < 32:
		return fmt.Sprintf("%s: [%d] %q (% 2x)", q, len(a), a, []byte(a))
	}
	return fmt.Sprintf("%s: [%d] % 2x", q, len(a), []byte(a))
}
