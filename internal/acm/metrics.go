package acm

import "sync/atomic"

// Metrics contains atomic protocol counters for one controller.
// Values can back a prometheus CounterFunc.
type Metrics struct {
	// CommandCount is the number of command frames written.
	CommandCount atomic.Uint64
	// ReplyCount is the number of reply lines received after ENQ.
	ReplyCount atomic.Uint64
	// RejectCount is the number of NAK acknowledgements.
	RejectCount atomic.Uint64
	// ProtocolErrCount is the number of acknowledgements that were neither ACK nor NAK.
	ProtocolErrCount atomic.Uint64
	// TransportErrCount is the number of failed writes or reads.
	TransportErrCount atomic.Uint64
}

func (m *Metrics) incCommandCount() {
	m.CommandCount.Add(1)
}

func (m *Metrics) incReplyCount() {
	m.ReplyCount.Add(1)
}

func (m *Metrics) incRejectCount() {
	m.RejectCount.Add(1)
}

func (m *Metrics) incProtocolErrCount() {
	m.ProtocolErrCount.Add(1)
}

func (m *Metrics) incTransportErrCount() {
	m.TransportErrCount.Add(1)
}
