package scs

import "sync/atomic"

// ExchangeMetrics contains atomic counters for protocol exchanges.
// A single instance may be shared by several Master/Slave instances on
// the same bus. The counters can be used as the value of a prometheus
// CounterFunc or GaugeFunc.
type ExchangeMetrics struct {
	// ExchangeCount is the number of completed master exchanges.
	ExchangeCount atomic.Uint64
	// TimeoutCount is the number of exchanges aborted by the timeout predicate.
	TimeoutCount atomic.Uint64
	// FrameRecvCount is the number of frames fully assembled from the wire.
	FrameRecvCount atomic.Uint64
	// FrameDropCount is the number of received frames rejected for a
	// checksum mismatch.
	FrameDropCount atomic.Uint64
	// ResponseSendCount is the number of slave responses fully drained
	// onto the wire.
	ResponseSendCount atomic.Uint64
}

func (m *ExchangeMetrics) incExchangeCount() {
	if m != nil {
		m.ExchangeCount.Add(1)
	}
}

func (m *ExchangeMetrics) incTimeoutCount() {
	if m != nil {
		m.TimeoutCount.Add(1)
	}
}

func (m *ExchangeMetrics) incFrameRecvCount() {
	if m != nil {
		m.FrameRecvCount.Add(1)
	}
}

func (m *ExchangeMetrics) incFrameDropCount() {
	if m != nil {
		m.FrameDropCount.Add(1)
	}
}

func (m *ExchangeMetrics) incResponseSendCount() {
	if m != nil {
		m.ResponseSendCount.Add(1)
	}
}
