package scs

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadRegisterCommand_Build(t *testing.T) {
	cmd := NewReadRegisterCommand(0x01, 0x38, 0x08)

	raw := cmd.Bytes()
	require.Len(t, raw, 8)
	assert.Equal(t, []byte{0xFF, 0xFF}, raw[:2])
	assert.Equal(t, byte(0x01), cmd.ID())

	pkt := Packet(raw[MarkerSize:])
	require.NoError(t, pkt.VerifyChecksum())

	payload, err := pkt.Payload()
	require.NoError(t, err)
	assert.Equal(t, []byte{CmdReadRegister, 0x38, 0x08}, payload)
}

func TestWriteRegisterCommand_TwoPhaseBuild(t *testing.T) {
	cmd := NewWriteRegisterCommand(0x01, 0x2A, 2)

	raw := cmd.Bytes()
	require.Len(t, raw, 9)
	assert.Equal(t, []byte{0xFF, 0xFF}, raw[:2])
	assert.Equal(t, byte(0x01), cmd.ID())

	payload, err := cmd.Packet().Payload()
	require.NoError(t, err)
	require.Len(t, payload, 4)
	assert.Equal(t, CmdWriteRegister, payload[0])
	assert.Equal(t, byte(0x2A), payload[1])

	// Phase two: fill the data region and seal the frame.
	payload[2] = 0x00
	payload[3] = 0x14
	require.NoError(t, cmd.Packet().UpdateChecksum())

	require.NoError(t, cmd.Packet().VerifyChecksum())
	assert.Equal(t, []byte{0xFF, 0xFF, 0x01, 0x05, 0x03, 0x2A, 0x00, 0x14, 0xB8}, raw)
}

func TestWriteRegisterCommand_SetData(t *testing.T) {
	cmd := NewWriteRegisterCommand(0x01, 0x2A, 2)
	require.NoError(t, cmd.SetData([]byte{0x00, 0x14}))

	require.NoError(t, cmd.Packet().VerifyChecksum())
	assert.Equal(t, []byte{0xFF, 0xFF, 0x01, 0x05, 0x03, 0x2A, 0x00, 0x14, 0xB8}, cmd.Bytes())
}

func TestWriteRegisterCommand_UnsealedFrameRejected(t *testing.T) {
	cmd := NewWriteRegisterCommand(0x01, 0x2A, 2)

	// Without UpdateChecksum the frame must not verify.
	assert.Error(t, cmd.Packet().VerifyChecksum())
}
