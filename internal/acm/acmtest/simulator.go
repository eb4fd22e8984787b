// Package acmtest provides an in-memory ACM 1000 controller for tests.
package acmtest

import (
	"bytes"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
)

// ErrNoReply is returned by ReadLine when nothing is queued.
var ErrNoReply = errors.New("acmtest: no reply queued")

// ErrClosed is returned after Close.
var ErrClosed = errors.New("acmtest: transport closed")

// Channel is the simulated state of one gauge input.
type Channel struct {
	Status      int
	Pressure    float64
	Enabled     int
	Filter      int
	Calibration float64
	Kind        string
}

// Simulator implements the acm.Transport line protocol against in-memory
// controller state and records every frame written to it.
type Simulator struct {
	mu sync.Mutex

	Units    int
	Channels [6]Channel
	Errors   []int

	// Reject lists commands answered with NAK.
	Reject map[string]bool
	// AckOverride replaces the acknowledgement line of matching commands.
	AckOverride map[string][]byte
	// ReplyOverride replaces the data line of matching commands.
	ReplyOverride map[string]string
	// WriteErr, when set, fails every write.
	WriteErr error

	writes  [][]byte
	pending []byte
	lines   [][]byte
	reply   string
	hasData bool
	closed  bool
}

// New returns a simulator in mbar with six healthy TPR gauges at 1000 mbar.
func New() *Simulator {
	s := &Simulator{
		Units:         0,
		Reject:        map[string]bool{},
		AckOverride:   map[string][]byte{},
		ReplyOverride: map[string]string{},
	}
	for i := range s.Channels {
		s.Channels[i] = Channel{Pressure: 1000, Enabled: 2, Calibration: 1, Kind: "TPR"}
	}
	return s
}

// Write implements acm.Transport
func (s *Simulator) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return 0, ErrClosed
	}
	if s.WriteErr != nil {
		return 0, s.WriteErr
	}
	s.writes = append(s.writes, append([]byte(nil), p...))

	if bytes.Equal(p, []byte{0x05}) {
		if s.hasData {
			s.lines = append(s.lines, []byte(s.reply))
			s.hasData = false
		}
		return len(p), nil
	}

	s.pending = append(s.pending, p...)
	for {
		idx := bytes.Index(s.pending, []byte("\r\n"))
		if idx < 0 {
			break
		}
		cmd := string(s.pending[:idx])
		s.pending = s.pending[idx+2:]
		s.handle(cmd)
	}
	return len(p), nil
}

// ReadLine implements acm.Transport
func (s *Simulator) ReadLine() ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, ErrClosed
	}
	if len(s.lines) == 0 {
		return nil, ErrNoReply
	}
	line := s.lines[0]
	s.lines = s.lines[1:]
	return line, nil
}

// Close implements acm.Transport
func (s *Simulator) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// Reopen lets a closed simulator serve another session. Controller state
// and recorded writes are kept; queued lines are dropped.
func (s *Simulator) Reopen() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = false
	s.pending = nil
	s.lines = nil
	s.hasData = false
}

// Closed reports whether Close was called.
func (s *Simulator) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Writes returns a copy of every frame written so far.
func (s *Simulator) Writes() [][]byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([][]byte, len(s.writes))
	copy(out, s.writes)
	return out
}

// Commands returns the written command frames without terminators, skipping ENQ bytes.
func (s *Simulator) Commands() []string {
	var cmds []string
	for _, w := range s.Writes() {
		if bytes.Equal(w, []byte{0x05}) {
			continue
		}
		cmds = append(cmds, strings.TrimSuffix(string(w), "\r\n"))
	}
	return cmds
}

// Reset forgets recorded writes.
func (s *Simulator) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.writes = nil
}

func (s *Simulator) handle(cmd string) {
	if ack, ok := s.AckOverride[cmd]; ok {
		s.lines = append(s.lines, ack)
		return
	}
	if s.Reject[cmd] {
		s.lines = append(s.lines, []byte{0x15})
		return
	}

	reply, ok := s.execute(cmd)
	if !ok {
		s.lines = append(s.lines, []byte{0x15})
		return
	}
	if override, ok := s.ReplyOverride[cmd]; ok {
		reply = override
	}
	s.lines = append(s.lines, []byte{0x06})
	s.reply = reply
	s.hasData = true
}

func (s *Simulator) execute(cmd string) (string, bool) {
	name, args, _ := strings.Cut(cmd, ",")
	var fields []string
	if args != "" {
		fields = strings.Split(args, ",")
	}

	switch {
	case name == "BAU":
		return "9600", true
	case name == "UNI":
		if len(fields) == 1 {
			n, err := strconv.Atoi(strings.TrimSpace(fields[0]))
			if err != nil || n < 0 || n > 2 {
				return "", false
			}
			s.Units = n
		}
		return strconv.Itoa(s.Units), true
	case strings.HasPrefix(name, "PR") && len(name) == 3:
		ch, err := strconv.Atoi(name[2:])
		if err != nil || ch < 1 || ch > 6 {
			return "", false
		}
		c := s.Channels[ch-1]
		return fmt.Sprintf("%d,%.4E", c.Status, c.Pressure), true
	case name == "SEN":
		if len(fields) == 6 {
			for i, f := range fields {
				n, err := strconv.Atoi(f)
				if err != nil {
					return "", false
				}
				if n != 0 && s.Channels[i].Status != 5 {
					s.Channels[i].Enabled = n
				}
			}
		} else if len(fields) != 0 {
			return "", false
		}
		return s.vector(func(c Channel) string { return strconv.Itoa(c.Enabled) }), true
	case name == "FIL":
		if len(fields) == 6 {
			for i, f := range fields {
				n, err := strconv.Atoi(f)
				if err != nil {
					return "", false
				}
				s.Channels[i].Filter = n
			}
		} else if len(fields) != 0 {
			return "", false
		}
		return s.vector(func(c Channel) string { return strconv.Itoa(c.Filter) }), true
	case name == "CAL":
		if len(fields) == 6 {
			for i, f := range fields {
				v, err := strconv.ParseFloat(f, 64)
				if err != nil {
					return "", false
				}
				s.Channels[i].Calibration = v
			}
		} else if len(fields) != 0 {
			return "", false
		}
		return s.vector(func(c Channel) string { return strconv.FormatFloat(c.Calibration, 'f', -1, 64) }), true
	case name == "TID":
		return s.vector(func(c Channel) string { return c.Kind }), true
	case name == "RES":
		prev := s.errorList()
		if len(fields) == 1 && fields[0] == "1" {
			s.Errors = nil
		}
		return prev, true
	default:
		return "", false
	}
}

func (s *Simulator) vector(field func(Channel) string) string {
	out := make([]string, len(s.Channels))
	for i, c := range s.Channels {
		out[i] = field(c)
	}
	return strings.Join(out, ",")
}

func (s *Simulator) errorList() string {
	if len(s.Errors) == 0 {
		return "0"
	}
	out := make([]string, len(s.Errors))
	for i, e := range s.Errors {
		out[i] = strconv.Itoa(e)
	}
	return strings.Join(out, ",")
}
