// Package connutil opens the connection to an SDG generator for command line
// programs, configured by flags or a YAML profile.
package connutil

import (
	"errors"
	"flag"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"go.bug.st/serial"
	"go.uber.org/multierr"
	"gopkg.in/yaml.v3"

	"github.com/gotmc/sdg"
	"github.com/gotmc/sdg/lib/sdgsim"
)

// DefaultPort is the raw SCPI socket port of SDG generators.
const DefaultPort = 5025

// Profile holds connection settings, typically loaded from a YAML file:
//
//	resource: TCPIP0::192.168.1.20::5025::SOCKET
//	timeout: 5s
//	write_delay: 20ms
type Profile struct {
	Resource   string        `yaml:"resource"`
	BaudRate   int           `yaml:"baud_rate"`
	Timeout    time.Duration `yaml:"timeout"`
	WriteDelay time.Duration `yaml:"write_delay"`
	Debug      bool          `yaml:"debug"`
}

// LoadProfile reads a YAML profile. Unknown keys are an error.
func LoadProfile(path string) (Profile, error) {
	f, err := os.Open(path)
	if err != nil {
		return Profile{}, err
	}
	defer f.Close()
	var p Profile
	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(&p); err != nil {
		return Profile{}, fmt.Errorf("profile %s: %w", path, err)
	}
	return p, nil
}

// Resource is a parsed VISA style resource string.
type Resource struct {
	Serial  bool
	Address string // host:port for sockets, device path for serial ports
}

// ParseResource accepts "TCPIP[n]::<host>[::<port>]::SOCKET",
// "ASRL<device>::INSTR" and plain "<host>[:<port>]".
func ParseResource(s string) (Resource, error) {
	s = strings.TrimSpace(s)
	upper := strings.ToUpper(s)
	parts := strings.Split(s, "::")
	switch {
	case s == "":
		return Resource{}, errors.New("empty resource")
	case strings.HasPrefix(upper, "ASRL"):
		if len(parts) != 2 || !strings.EqualFold(parts[1], "INSTR") || len(parts[0]) == len("ASRL") {
			return Resource{}, fmt.Errorf("invalid serial resource %q", s)
		}
		return Resource{Serial: true, Address: parts[0][len("ASRL"):]}, nil
	case strings.HasPrefix(upper, "TCPIP"):
		if len(parts) < 3 || len(parts) > 4 || !strings.EqualFold(parts[len(parts)-1], "SOCKET") {
			return Resource{}, fmt.Errorf("invalid socket resource %q", s)
		}
		port := strconv.Itoa(DefaultPort)
		if len(parts) == 4 {
			if _, err := strconv.ParseUint(parts[2], 10, 16); err != nil {
				return Resource{}, fmt.Errorf("invalid port in %q", s)
			}
			port = parts[2]
		}
		return Resource{Address: net.JoinHostPort(parts[1], port)}, nil
	case len(parts) > 1:
		return Resource{}, fmt.Errorf("unsupported resource %q", s)
	}
	if _, _, err := net.SplitHostPort(s); err != nil {
		s = net.JoinHostPort(s, strconv.Itoa(DefaultPort))
	}
	return Resource{Address: s}, nil
}

// Conn holds the flag values used to open a connection.
type Conn struct {
	Resource   string
	Profile    string
	BaudRate   int
	Timeout    time.Duration
	WriteDelay time.Duration
	Debug      bool
	// Sim selects an in-memory simulator identifying as SimIDN instead of
	// real hardware.
	Sim    bool
	SimIDN string

	Log logrus.FieldLogger
}

// AddFlags is to be called before [flag.Parse]. A nil fs registers the flags
// on [flag.CommandLine].
func (c *Conn) AddFlags(fs *flag.FlagSet) {
	if fs == nil {
		fs = flag.CommandLine
	}
	if c.BaudRate == 0 {
		c.BaudRate = 115200
	}
	if c.Timeout == 0 {
		c.Timeout = 5 * time.Second
	}
	fs.StringVar(&c.Resource, "resource", c.Resource,
		"instrument resource, e.g. TCPIP0::192.168.1.20::5025::SOCKET or ASRL/dev/ttyUSB0::INSTR")
	fs.StringVar(&c.Profile, "profile", c.Profile, "YAML connection profile; flags given explicitly win")
	fs.IntVar(&c.BaudRate, "baud", c.BaudRate, "baud rate for serial resources")
	fs.DurationVar(&c.Timeout, "timeout", c.Timeout, "dial and read timeout")
	fs.DurationVar(&c.WriteDelay, "delay", c.WriteDelay, "minimum delay between writes")
	fs.BoolVar(&c.Debug, "debug", c.Debug, "log commands and responses at debug level")
	fs.BoolVar(&c.Sim, "sim", c.Sim, "use the built in simulator instead of an instrument")
}

// ApplyProfile loads c.Profile, if set, and fills in every value that was
// not set explicitly on fs.
func (c *Conn) ApplyProfile(fs *flag.FlagSet) error {
	if c.Profile == "" {
		return nil
	}
	if fs == nil {
		fs = flag.CommandLine
	}
	p, err := LoadProfile(c.Profile)
	if err != nil {
		return err
	}
	set := map[string]bool{}
	fs.Visit(func(f *flag.Flag) { set[f.Name] = true })
	if !set["resource"] && p.Resource != "" {
		c.Resource = p.Resource
	}
	if !set["baud"] && p.BaudRate != 0 {
		c.BaudRate = p.BaudRate
	}
	if !set["timeout"] && p.Timeout != 0 {
		c.Timeout = p.Timeout
	}
	if !set["delay"] && p.WriteDelay != 0 {
		c.WriteDelay = p.WriteDelay
	}
	if !set["debug"] && p.Debug {
		c.Debug = true
	}
	return nil
}

func (c *Conn) logger() logrus.FieldLogger {
	if c.Log == nil {
		return logrus.StandardLogger()
	}
	return c.Log
}

// Setup is to be called after the flags are parsed. It opens the resource
// and returns a transport for it. cleanup closes the connection and must be
// called once the transport is no longer used.
func (c *Conn) Setup(opts ...sdg.ConnOption) (t sdg.Transport, cleanup func(), err error) {
	nocleanup := func() {}
	log := c.logger()

	if c.Sim {
		sim := sdgsim.New()
		if c.SimIDN != "" {
			sim.IDN = c.SimIDN
		}
		log.Info("using simulated instrument")
		return sim, nocleanup, nil
	}

	res, err := ParseResource(c.Resource)
	if err != nil {
		return nil, nocleanup, err
	}
	if c.WriteDelay > 0 {
		opts = append(opts, sdg.WithWriteDelay(c.WriteDelay))
	}
	if c.Debug {
		opts = append(opts, sdg.WithDebug())
	}
	opts = append([]sdg.ConnOption{sdg.WithLogger(log)}, opts...)

	if res.Serial {
		log.WithField("port", res.Address).Info("opening serial port")
		port, err := serial.Open(res.Address, &serial.Mode{BaudRate: c.BaudRate})
		if err != nil {
			return nil, nocleanup, err
		}
		if err := port.SetReadTimeout(c.Timeout); err != nil {
			port.Close()
			return nil, nocleanup, err
		}
		cleanup = func() {
			// Discard any unread data before closing.
			err := multierr.Append(port.ResetInputBuffer(), port.Close())
			if err != nil {
				log.Errorf("error closing serial port: %s", err)
			}
		}
		return sdg.NewConn(port, opts...), cleanup, nil
	}

	log.WithField("addr", res.Address).Info("connecting")
	sock, err := net.DialTimeout("tcp", res.Address, c.Timeout)
	if err != nil {
		return nil, nocleanup, err
	}
	cleanup = func() {
		if err := sock.Close(); err != nil {
			log.Errorf("error closing socket: %s", err)
		}
	}
	return sdg.NewConn(deadlineConn{Conn: sock, timeout: c.Timeout}, opts...), cleanup, nil
}

// deadlineConn bounds every read and write on the socket by timeout.
type deadlineConn struct {
	net.Conn
	timeout time.Duration
}

func (d deadlineConn) Read(p []byte) (int, error) {
	if d.timeout > 0 {
		if err := d.SetReadDeadline(time.Now().Add(d.timeout)); err != nil {
			return 0, err
		}
	}
	return d.Conn.Read(p)
}

func (d deadlineConn) Write(p []byte) (int, error) {
	if d.timeout > 0 {
		if err := d.SetWriteDeadline(time.Now().Add(d.timeout)); err != nil {
			return 0, err
		}
	}
	return d.Conn.Write(p)
}
