// Package acm implements the serial command protocol of the Alcatel ACM 1000
// six-channel vacuum gauge controller and a device API built on top of it.
//
// Every command is written as ASCII text terminated by CR LF. The controller
// answers each command with a single ACK (0x06) or NAK (0x15) line. Reply data
// is only sent after the host writes the ENQ (0x05) request byte, and arrives
// as one CR LF terminated line of comma separated fields.
package acm

import (
	"bytes"
	"fmt"
	"io"
	"sync"

	"github.com/charmbracelet/log"
)

// Protocol control bytes
const (
	ACK byte = 0x06
	NAK byte = 0x15
	ENQ byte = 0x05
)

// Terminator is appended to every command written to the controller.
const Terminator = "\r\n"

// Transport is a line oriented byte link to the controller.
// ReadLine must return one line with the trailing CR LF removed.
type Transport interface {
	Write(p []byte) (int, error)
	ReadLine() ([]byte, error)
	Close() error
}

// Ack is the controller's acknowledgement of a command.
type Ack int

const (
	Accepted Ack = iota
	Rejected
)

// String returns the string representation of Ack
func (a Ack) String() string {
	switch a {
	case Accepted:
		return "ACK"
	case Rejected:
		return "NAK"
	default:
		return "unknown"
	}
}

// Codec frames commands and replies on a Transport.
// Each exchange holds the codec lock so commands are never pipelined.
type Codec struct {
	mu      sync.Mutex
	t       Transport
	logger  *log.Logger
	metrics *Metrics
}

// NewCodec creates a codec on the given transport.
func NewCodec(t Transport, logger *log.Logger) *Codec {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Codec{t: t, logger: logger, metrics: &Metrics{}}
}

// Metrics returns the codec's protocol counters.
func (c *Codec) Metrics() *Metrics {
	return c.metrics
}

// SendCommand writes cmd followed by CR LF and reads the acknowledgement line.
// A NAK is reported as Rejected with a nil error; anything other than a single
// ACK or NAK byte is an *UnexpectedAckError.
func (c *Codec) SendCommand(cmd string) (Ack, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sendLocked(cmd)
}

// RequestReply writes the ENQ byte and returns the reply line verbatim.
func (c *Codec) RequestReply() (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.requestLocked()
}

// Query sends cmd and, once it is accepted, requests the reply line.
func (c *Codec) Query(cmd string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	ack, err := c.sendLocked(cmd)
	if err != nil {
		return "", err
	}
	if ack == Rejected {
		return "", &RejectedError{Command: cmd}
	}

	reply, err := c.requestLocked()
	if err != nil {
		return "", err
	}
	c.logger.Debug("query", "cmd", cmd, "reply", reply)
	return reply, nil
}

// Close closes the underlying transport.
func (c *Codec) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t.Close()
}

func (c *Codec) sendLocked(cmd string) (Ack, error) {
	c.metrics.incCommandCount()

	if _, err := c.t.Write([]byte(cmd + Terminator)); err != nil {
		c.metrics.incTransportErrCount()
		return Rejected, fmt.Errorf("write %q: %w", cmd, err)
	}

	line, err := c.t.ReadLine()
	if err != nil {
		c.metrics.incTransportErrCount()
		return Rejected, fmt.Errorf("read acknowledgement for %q: %w", cmd, err)
	}

	switch {
	case bytes.Equal(line, []byte{ACK}):
		return Accepted, nil
	case bytes.Equal(line, []byte{NAK}):
		c.metrics.incRejectCount()
		c.logger.Warn("command rejected", "cmd", cmd)
		return Rejected, nil
	default:
		c.metrics.incProtocolErrCount()
		return Rejected, &UnexpectedAckError{Command: cmd, Raw: line}
	}
}

func (c *Codec) requestLocked() (string, error) {
	if _, err := c.t.Write([]byte{ENQ}); err != nil {
		c.metrics.incTransportErrCount()
		return "", fmt.Errorf("write data request: %w", err)
	}

	line, err := c.t.ReadLine()
	if err != nil {
		c.metrics.incTransportErrCount()
		return "", fmt.Errorf("read reply: %w", err)
	}

	c.metrics.incReplyCount()
	return string(line), nil
}
