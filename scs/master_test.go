package scs

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMaster_OptionValidation(t *testing.T) {
	_, err := NewMaster(WithBufferSize(1))
	assert.Error(t, err)

	_, err = NewMaster(WithLogger(nil))
	assert.Error(t, err)

	m, err := NewMaster(WithEchoBack(true), WithBufferSize(32))
	require.NoError(t, err)
	assert.NotNil(t, m)
}

func TestMaster_ReadRegister(t *testing.T) {
	m, err := NewMaster()
	require.NoError(t, err)

	regs := []byte{0x01, 0x00, 0x00, 0x00, 0x00, 0x00, 0x78, 0x20}
	r := newChunkReader(readResponse(t, 0x01, regs))
	w := &sinkWriter{}

	buf := make([]byte, len(regs))
	require.NoError(t, m.ReadRegister(r, w, 0x01, 0x38, buf, never))

	assert.Equal(t, regs, buf)
	assert.Equal(t, NewReadRegisterCommand(0x01, 0x38, 0x08).Bytes(), w.data,
		"transmitted command frame")
}

func TestMaster_ReadRegisterPartialWrites(t *testing.T) {
	m, err := NewMaster()
	require.NoError(t, err)

	regs := []byte{0x42}
	r := newChunkReader(readResponse(t, 0x05, regs))
	w := &sinkWriter{limit: 3}

	buf := make([]byte, 1)
	require.NoError(t, m.ReadRegister(r, w, 0x05, 0x3E, buf, never))

	assert.Equal(t, regs, buf)
	assert.Equal(t, NewReadRegisterCommand(0x05, 0x3E, 0x01).Bytes(), w.data)
}

func TestMaster_ReadRegisterEchoBack(t *testing.T) {
	m, err := NewMaster(WithEchoBack(true))
	require.NoError(t, err)

	regs := []byte{0x02, 0x00}
	echo := NewReadRegisterCommand(0x01, 0x2A, 0x02).Bytes()

	// The adapter loops the command back before the device answers.
	stream := append(append([]byte{}, echo...), readResponse(t, 0x01, regs)...)
	r := newChunkReader(stream)

	buf := make([]byte, 2)
	require.NoError(t, m.ReadRegister(r, &sinkWriter{}, 0x01, 0x2A, buf, never))
	assert.Equal(t, regs, buf)
}

func TestMaster_ReadRegisterTimeout(t *testing.T) {
	metrics := &ExchangeMetrics{}
	m, err := NewMaster(WithMetrics(metrics))
	require.NoError(t, err)

	// The device never answers.
	r := newChunkReader()
	buf := make([]byte, 1)

	err = m.ReadRegister(r, &sinkWriter{}, 0x01, 0x38, buf, expireAfter(3))
	assert.ErrorIs(t, err, ErrTimeout)
	assert.Equal(t, uint64(1), metrics.TimeoutCount.Load())
}

func TestMaster_CompletedFrameBeatsExpiry(t *testing.T) {
	m, err := NewMaster()
	require.NoError(t, err)

	// The response is fully buffered; even an already-expired budget must
	// not turn a successful exchange into a timeout.
	regs := []byte{0x01}
	r := newChunkReader(readResponse(t, 0x01, regs))

	buf := make([]byte, 1)
	expired := func() bool { return true }
	assert.NoError(t, m.ReadRegister(r, &sinkWriter{}, 0x01, 0x05, buf, expired))
}

func TestMaster_ReadRegisterChecksumMismatch(t *testing.T) {
	m, err := NewMaster()
	require.NoError(t, err)

	resp := readResponse(t, 0x01, []byte{0x42})
	resp[len(resp)-1] ^= 0xFF
	r := newChunkReader(resp)

	buf := make([]byte, 1)
	err = m.ReadRegister(r, &sinkWriter{}, 0x01, 0x38, buf, never)
	assert.ErrorIs(t, err, ErrChecksumMismatch)
}

func TestMaster_ReadRegisterUnexpectedID(t *testing.T) {
	m, err := NewMaster()
	require.NoError(t, err)

	// A different device answers.
	r := newChunkReader(readResponse(t, 0x02, []byte{0x42}))

	buf := make([]byte, 1)
	err = m.ReadRegister(r, &sinkWriter{}, 0x01, 0x38, buf, never)
	assert.ErrorIs(t, err, ErrUnexpectedID)
}

func TestMaster_ReadRegisterUnexpectedLength(t *testing.T) {
	m, err := NewMaster()
	require.NoError(t, err)

	// Two register bytes answered, one requested.
	r := newChunkReader(readResponse(t, 0x01, []byte{0x01, 0x02}))

	buf := make([]byte, 1)
	err = m.ReadRegister(r, &sinkWriter{}, 0x01, 0x38, buf, never)
	assert.ErrorIs(t, err, ErrUnexpectedLength)
}

func TestMaster_WriteRegister(t *testing.T) {
	metrics := &ExchangeMetrics{}
	m, err := NewMaster(WithMetrics(metrics))
	require.NoError(t, err)

	cmd := NewWriteRegisterCommand(0x01, 0x2A, 2)
	require.NoError(t, cmd.SetData([]byte{0x00, 0x14}))

	r := newChunkReader(statusResponse(t, 0x01))
	w := &sinkWriter{}

	require.NoError(t, m.WriteRegister(r, w, cmd, never))
	assert.Equal(t, cmd.Bytes(), w.data)
	assert.Equal(t, uint64(1), metrics.ExchangeCount.Load())
}

func TestMaster_WriteRegisterStatusNotInspected(t *testing.T) {
	m, err := NewMaster()
	require.NoError(t, err)

	cmd := NewWriteRegisterCommand(0x01, 0x28, 1)
	require.NoError(t, cmd.SetData([]byte{0x01}))

	// A non-zero status payload still acknowledges the write.
	r := newChunkReader(buildFrame(t, 0x01, []byte{0x25}))
	assert.NoError(t, m.WriteRegister(r, &sinkWriter{}, cmd, never))
}

func TestMaster_ReadRegisterContext(t *testing.T) {
	m, err := NewMaster()
	require.NoError(t, err)

	regs := []byte{0x78, 0x20}
	resp := readResponse(t, 0x01, regs)
	r := newChunkReader(resp[:5], resp[5:])
	w := &sinkWriter{}

	buf := make([]byte, 2)
	require.NoError(t, m.ReadRegisterContext(context.Background(), r, w, 0x01, 0x38, buf, never))
	assert.Equal(t, regs, buf)
}

func TestMaster_ReadRegisterContextTimeout(t *testing.T) {
	m, err := NewMaster()
	require.NoError(t, err)

	buf := make([]byte, 1)
	err = m.ReadRegisterContext(context.Background(), newChunkReader(), &sinkWriter{}, 0x01, 0x38, buf, expireAfter(2))
	assert.ErrorIs(t, err, ErrTimeout)
}

func TestMaster_WriteRegisterContext(t *testing.T) {
	m, err := NewMaster()
	require.NoError(t, err)

	cmd := NewWriteRegisterCommand(0x03, 0x30, 1)
	require.NoError(t, cmd.SetData([]byte{0x00}))

	r := newChunkReader(statusResponse(t, 0x03))
	require.NoError(t, m.WriteRegisterContext(context.Background(), r, &sinkWriter{}, cmd, never))
}
