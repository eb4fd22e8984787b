package serial

import (
	"bytes"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.bug.st/serial"
)

// MaxLineLength bounds a single CR LF terminated reply
const MaxLineLength = 4096

var lineTerminator = []byte("\r\n")

// OpenFunc opens a physical port. serial.Open is the default.
type OpenFunc func(portName string, mode *serial.Mode) (serial.Port, error)

// PortStatistics contains statistics about port usage
type PortStatistics struct {
	BytesSent     atomic.Uint64
	BytesReceived atomic.Uint64
	Errors        atomic.Uint64
	OpenedAt      time.Time
	lastActivity  atomic.Int64
}

// LastActivity returns the time of the last successful read or write
func (s *PortStatistics) LastActivity() time.Time {
	return time.Unix(0, s.lastActivity.Load())
}

func (s *PortStatistics) touch() {
	s.lastActivity.Store(time.Now().UnixNano())
}

// Session is an exclusively owned, line oriented serial port.
// It satisfies the acm.Transport interface.
type Session struct {
	ID         string
	PortName   string
	Config     PortConfig
	Statistics PortStatistics

	manager *Manager
	port    serial.Port
	mu      sync.Mutex
	closed  atomic.Bool
	buffer  []byte
	chunk   []byte
}

// IsClosed returns whether the session has been closed
func (s *Session) IsClosed() bool {
	return s.closed.Load()
}

// Write writes data to the port. No terminator is added.
func (s *Session) Write(data []byte) (int, error) {
	if s.closed.Load() {
		return 0, ErrPortClosed
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	n, err := s.writeWithTimeout(data)
	if err != nil {
		s.Statistics.Errors.Add(1)
		return n, fmt.Errorf("write failed: %w", err)
	}

	s.Statistics.BytesSent.Add(uint64(n))
	s.Statistics.touch()
	return n, nil
}

func (s *Session) writeWithTimeout(data []byte) (int, error) {
	timeout := s.Config.WriteTimeout()
	if timeout <= 0 {
		return s.port.Write(data)
	}

	type writeResult struct {
		n   int
		err error
	}

	resultChan := make(chan writeResult, 1)
	go func() {
		n, err := s.port.Write(data)
		resultChan <- writeResult{n: n, err: err}
	}()

	select {
	case result := <-resultChan:
		return result.n, result.err
	case <-time.After(timeout):
		return 0, ErrWriteTimeout
	}
}

// ReadLine returns the next line with its CR LF removed. A lone LF does not
// end a line. A read that times out before CR LF arrives returns ErrReadTimeout;
// bytes already received stay buffered for the next call.
func (s *Session) ReadLine() ([]byte, error) {
	if s.closed.Load() {
		return nil, ErrPortClosed
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for {
		if i := bytes.Index(s.buffer, lineTerminator); i >= 0 {
			line := make([]byte, i)
			copy(line, s.buffer[:i])
			s.buffer = s.buffer[i+len(lineTerminator):]
			return line, nil
		}

		if len(s.buffer) > MaxLineLength {
			s.buffer = s.buffer[:0]
			s.Statistics.Errors.Add(1)
			return nil, ErrLineTooLong
		}

		n, err := s.port.Read(s.chunk)
		if err != nil {
			s.Statistics.Errors.Add(1)
			return nil, fmt.Errorf("read failed: %w", err)
		}
		if n == 0 {
			return nil, ErrReadTimeout
		}

		s.Statistics.BytesReceived.Add(uint64(n))
		s.Statistics.touch()
		s.buffer = append(s.buffer, s.chunk[:n]...)
	}
}

// Close releases the port and removes the session from its manager
func (s *Session) Close() error {
	if s.closed.Swap(true) {
		return nil
	}
	s.manager.release(s)

	// not under s.mu: closing the port unblocks a pending Read
	return s.port.Close()
}

// Manager hands out exclusive sessions on serial ports
type Manager struct {
	mu       sync.RWMutex
	sessions map[string]*Session // key: port name
	open     OpenFunc
}

// NewManager creates a new serial port manager. A nil open uses serial.Open.
func NewManager(open OpenFunc) *Manager {
	if open == nil {
		open = serial.Open
	}
	return &Manager{
		sessions: make(map[string]*Session),
		open:     open,
	}
}

// Open opens portName and returns the session owning it
func (m *Manager) Open(portName string, config PortConfig) (*Session, error) {
	if portName == "" {
		return nil, fmt.Errorf("%w: port name is required", ErrInvalidConfig)
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.sessions[portName]; exists {
		return nil, fmt.Errorf("%w: %s", ErrPortLocked, portName)
	}

	port, err := m.open(portName, config.ToSerialMode())
	if err != nil {
		return nil, fmt.Errorf("failed to open port %s: %w", portName, err)
	}

	if config.ReadTimeoutMs > 0 {
		if err := port.SetReadTimeout(config.ReadTimeout()); err != nil {
			port.Close()
			return nil, fmt.Errorf("failed to set read timeout: %w", err)
		}
	}

	// drop anything the controller sent before we owned the line
	if err := port.ResetInputBuffer(); err != nil {
		port.Close()
		return nil, fmt.Errorf("failed to reset input buffer: %w", err)
	}

	session := &Session{
		ID:       uuid.New().String(),
		PortName: portName,
		Config:   config,
		manager:  m,
		port:     port,
		chunk:    make([]byte, 256),
	}
	session.Statistics.OpenedAt = time.Now()
	session.Statistics.touch()

	m.sessions[portName] = session
	return session, nil
}

func (m *Manager) release(session *Session) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if current, ok := m.sessions[session.PortName]; ok && current == session {
		delete(m.sessions, session.PortName)
	}
}

// Session returns the open session for a port
func (m *Manager) Session(portName string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	session, exists := m.sessions[portName]
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrNotOpen, portName)
	}
	return session, nil
}

// ListOpenPorts returns all open port names, sorted
func (m *Manager) ListOpenPorts() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	ports := make([]string, 0, len(m.sessions))
	for portName := range m.sessions {
		ports = append(ports, portName)
	}
	sort.Strings(ports)
	return ports
}

// CloseAll closes all open sessions
func (m *Manager) CloseAll() {
	m.mu.RLock()
	sessions := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		sessions = append(sessions, s)
	}
	m.mu.RUnlock()

	for _, s := range sessions {
		_ = s.Close()
	}
}
