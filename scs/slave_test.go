package scs

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// throttleWriter alternates between accepting a few bytes and signalling
// would-block, exercising the response drain resume path.
type throttleWriter struct {
	data    []byte
	burst   int
	blocked bool
}

func (w *throttleWriter) Write(p []byte) (int, error) {
	if w.blocked {
		w.blocked = false
		return 0, ErrWouldBlock
	}
	w.blocked = true

	n := len(p)
	if n > w.burst {
		n = w.burst
	}
	w.data = append(w.data, p[:n]...)

	return n, nil
}

// echoHandler answers any frame addressed to id with a fixed register
// read response.
func echoHandler(t *testing.T, id byte, regs []byte) FrameHandler {
	t.Helper()

	return func(pkt Packet, resp []byte) (int, bool) {
		got, err := pkt.ID()
		require.NoError(t, err)
		if got != id {
			return 0, false
		}

		frame := readResponse(t, id, regs)
		copy(resp, frame)

		return len(frame), true
	}
}

// drive polls Process for a fixed step budget, failing on any transport
// error.
func drive(t *testing.T, s *Slave, r Reader, w Writer, handler FrameHandler, steps int) {
	t.Helper()

	for n := 0; n < steps; n++ {
		require.NoError(t, s.Process(r, w, handler))
	}
}

func TestSlave_CommandResponseCycle(t *testing.T) {
	metrics := &ExchangeMetrics{}
	s, err := NewSlave(WithSlaveMetrics(metrics))
	require.NoError(t, err)

	regs := []byte{0x01, 0x00}
	cmd := NewReadRegisterCommand(0x01, 0x38, 0x02)
	r := newChunkReader(cmd.Bytes())
	w := &sinkWriter{}

	drive(t, s, r, w, echoHandler(t, 0x01, regs), 8)

	assert.Equal(t, readResponse(t, 0x01, regs), w.data)
	assert.Equal(t, uint64(1), metrics.FrameRecvCount.Load())
	assert.Equal(t, uint64(1), metrics.ResponseSendCount.Load())
}

func TestSlave_CorruptedFrameDropped(t *testing.T) {
	metrics := &ExchangeMetrics{}
	s, err := NewSlave(WithSlaveMetrics(metrics))
	require.NoError(t, err)

	frame := buildFrame(t, 0x01, []byte{0x02, 0x38, 0x02})
	frame[len(frame)-1] ^= 0xFF

	invoked := false
	handler := func(Packet, []byte) (int, bool) {
		invoked = true
		return 0, false
	}

	r := newChunkReader(frame)
	w := &sinkWriter{}
	drive(t, s, r, w, handler, 8)

	assert.False(t, invoked, "corrupted frames must not reach the handler")
	assert.Empty(t, w.data)
	assert.Equal(t, uint64(1), metrics.FrameDropCount.Load())
}

func TestSlave_NotAddressedFrameIgnored(t *testing.T) {
	s, err := NewSlave()
	require.NoError(t, err)

	cmd := NewReadRegisterCommand(0x07, 0x38, 0x02)
	r := newChunkReader(cmd.Bytes())
	w := &sinkWriter{}

	drive(t, s, r, w, echoHandler(t, 0x01, []byte{0x00, 0x00}), 8)
	assert.Empty(t, w.data)
}

func TestSlave_OutOfRangeResponseLengthDropped(t *testing.T) {
	s, err := NewSlave(WithSlaveBufferSize(16))
	require.NoError(t, err)

	handler := func(Packet, []byte) (int, bool) {
		return 1024, true
	}

	cmd := NewReadRegisterCommand(0x01, 0x38, 0x02)
	r := newChunkReader(cmd.Bytes())
	w := &sinkWriter{}

	drive(t, s, r, w, handler, 8)
	assert.Empty(t, w.data)
}

func TestSlave_ChunkedResponseDrain(t *testing.T) {
	s, err := NewSlave()
	require.NoError(t, err)

	regs := []byte{0x01, 0x02, 0x03, 0x04}
	cmd := NewReadRegisterCommand(0x01, 0x38, 0x04)
	r := newChunkReader(cmd.Bytes())
	w := &throttleWriter{burst: 3}

	drive(t, s, r, w, echoHandler(t, 0x01, regs), 16)

	assert.Equal(t, readResponse(t, 0x01, regs), w.data)
}

func TestSlave_GarbageThenCommand(t *testing.T) {
	s, err := NewSlave()
	require.NoError(t, err)

	cmd := NewReadRegisterCommand(0x01, 0x03, 0x02)
	stream := append([]byte{0x00, 0xFF, 0x13}, cmd.Bytes()...)
	r := newChunkReader(stream)
	w := &sinkWriter{}

	drive(t, s, r, w, echoHandler(t, 0x01, []byte{0x01, 0x00}), 16)
	assert.Equal(t, readResponse(t, 0x01, []byte{0x01, 0x00}), w.data)
}

func TestSlave_Reset(t *testing.T) {
	s, err := NewSlave()
	require.NoError(t, err)

	cmd := NewReadRegisterCommand(0x01, 0x38, 0x02)
	r := newChunkReader(cmd.Bytes())

	// Receive the command and stage a response, then abandon it.
	require.NoError(t, s.Process(r, &sinkWriter{}, echoHandler(t, 0x01, []byte{0x01, 0x00})))
	require.NoError(t, s.Process(r, &sinkWriter{}, echoHandler(t, 0x01, []byte{0x01, 0x00})))
	require.Equal(t, slaveSendResponse, s.state)

	s.Reset()
	assert.Equal(t, slaveIdle, s.state)
	assert.Zero(t, s.respLen)
}

func TestSlave_ProcessContext(t *testing.T) {
	s, err := NewSlave()
	require.NoError(t, err)

	regs := []byte{0x01, 0x00}
	cmd := NewReadRegisterCommand(0x01, 0x38, 0x02)
	r := newChunkReader(cmd.Bytes())
	w := &sinkWriter{}
	ctx := context.Background()

	handler := echoHandler(t, 0x01, regs)
	for n := 0; n < 8; n++ {
		require.NoError(t, s.ProcessContext(ctx, r, w, handler))
	}

	assert.Equal(t, readResponse(t, 0x01, regs), w.data)
}
