package serial

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.bug.st/serial"
)

// fakePort serves queued read chunks; an empty queue behaves like a read timeout.
type fakePort struct {
	serial.Port

	mu          sync.Mutex
	reads       [][]byte
	written     []byte
	readTimeout time.Duration
	closed      bool
	resetInput  bool
}

func (p *fakePort) Read(b []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return 0, errors.New("port closed")
	}
	if len(p.reads) == 0 {
		return 0, nil
	}
	n := copy(b, p.reads[0])
	if n < len(p.reads[0]) {
		p.reads[0] = p.reads[0][n:]
	} else {
		p.reads = p.reads[1:]
	}
	return n, nil
}

func (p *fakePort) Write(b []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.written = append(p.written, b...)
	return len(b), nil
}

func (p *fakePort) SetReadTimeout(t time.Duration) error {
	p.readTimeout = t
	return nil
}

func (p *fakePort) ResetInputBuffer() error {
	p.resetInput = true
	return nil
}

func (p *fakePort) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return nil
}

func newTestManager(ports map[string]*fakePort) *Manager {
	return NewManager(func(name string, mode *serial.Mode) (serial.Port, error) {
		p, ok := ports[name]
		if !ok {
			return nil, errors.New("no such port")
		}
		return p, nil
	})
}

func TestManagerOpen(t *testing.T) {
	port := &fakePort{}
	m := newTestManager(map[string]*fakePort{"/dev/ttyUSB0": port})

	session, err := m.Open("/dev/ttyUSB0", DefaultConfig())
	require.NoError(t, err)
	assert.NotEmpty(t, session.ID)
	assert.Equal(t, time.Second, port.readTimeout)
	assert.True(t, port.resetInput)
	assert.Equal(t, []string{"/dev/ttyUSB0"}, m.ListOpenPorts())

	got, err := m.Session("/dev/ttyUSB0")
	require.NoError(t, err)
	assert.Same(t, session, got)
}

func TestManagerOpenIsExclusive(t *testing.T) {
	m := newTestManager(map[string]*fakePort{"COM1": {}})

	first, err := m.Open("COM1", DefaultConfig())
	require.NoError(t, err)

	_, err = m.Open("COM1", DefaultConfig())
	require.ErrorIs(t, err, ErrPortLocked)

	require.NoError(t, first.Close())
	_, err = m.Session("COM1")
	require.ErrorIs(t, err, ErrNotOpen)
	assert.Empty(t, m.ListOpenPorts())
}

func TestManagerOpenErrors(t *testing.T) {
	m := newTestManager(map[string]*fakePort{})

	_, err := m.Open("", DefaultConfig())
	require.ErrorIs(t, err, ErrInvalidConfig)

	cfg := DefaultConfig()
	cfg.BaudRate = 12345
	_, err = m.Open("COM1", cfg)
	require.ErrorIs(t, err, ErrInvalidConfig)

	_, err = m.Open("COM9", DefaultConfig())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "COM9")
}

func TestSessionReadLine(t *testing.T) {
	port := &fakePort{reads: [][]byte{
		{0x06, '\r', '\n'},
		[]byte("0,1.0000E"),
		[]byte("-03\r"),
		[]byte("\n1,2\r\n"),
	}}
	m := newTestManager(map[string]*fakePort{"COM1": port})
	session, err := m.Open("COM1", DefaultConfig())
	require.NoError(t, err)

	line, err := session.ReadLine()
	require.NoError(t, err)
	assert.Equal(t, []byte{0x06}, line)

	line, err = session.ReadLine()
	require.NoError(t, err)
	assert.Equal(t, "0,1.0000E-03", string(line))

	line, err = session.ReadLine()
	require.NoError(t, err)
	assert.Equal(t, "1,2", string(line))

	_, err = session.ReadLine()
	require.ErrorIs(t, err, ErrReadTimeout)

	assert.Equal(t, uint64(3+9+4+6), session.Statistics.BytesReceived.Load())
}

func TestSessionReadLineNeedsCRLF(t *testing.T) {
	port := &fakePort{reads: [][]byte{[]byte("a\nb"), []byte("\r\n")}}
	m := newTestManager(map[string]*fakePort{"COM1": port})
	session, err := m.Open("COM1", DefaultConfig())
	require.NoError(t, err)

	line, err := session.ReadLine()
	require.NoError(t, err)
	assert.Equal(t, "a\nb", string(line))
}

func TestSessionReadLineTimeoutKeepsPartialLine(t *testing.T) {
	port := &fakePort{reads: [][]byte{[]byte("12")}}
	m := newTestManager(map[string]*fakePort{"COM1": port})
	session, err := m.Open("COM1", DefaultConfig())
	require.NoError(t, err)

	_, err = session.ReadLine()
	require.ErrorIs(t, err, ErrReadTimeout)

	port.mu.Lock()
	port.reads = append(port.reads, []byte("3\r\n"))
	port.mu.Unlock()

	line, err := session.ReadLine()
	require.NoError(t, err)
	assert.Equal(t, "123", string(line))
}

func TestSessionWriteAndClose(t *testing.T) {
	port := &fakePort{}
	m := newTestManager(map[string]*fakePort{"COM1": port})
	session, err := m.Open("COM1", DefaultConfig())
	require.NoError(t, err)

	n, err := session.Write([]byte("BAU\r\n"))
	require.NoError(t, err)
	assert.Equal(t, 5, n)
	_, err = session.Write([]byte{0x05})
	require.NoError(t, err)
	assert.Equal(t, []byte("BAU\r\n\x05"), port.written)
	assert.Equal(t, uint64(6), session.Statistics.BytesSent.Load())

	require.NoError(t, session.Close())
	assert.True(t, port.closed)
	assert.True(t, session.IsClosed())
	require.NoError(t, session.Close())

	_, err = session.Write([]byte("x"))
	require.ErrorIs(t, err, ErrPortClosed)
	_, err = session.ReadLine()
	require.ErrorIs(t, err, ErrPortClosed)
}

func TestManagerCloseAll(t *testing.T) {
	ports := map[string]*fakePort{"COM1": {}, "COM2": {}}
	m := newTestManager(ports)

	_, err := m.Open("COM1", DefaultConfig())
	require.NoError(t, err)
	_, err = m.Open("COM2", DefaultConfig())
	require.NoError(t, err)

	m.CloseAll()
	assert.Empty(t, m.ListOpenPorts())
	assert.True(t, ports["COM1"].closed)
	assert.True(t, ports["COM2"].closed)
}
