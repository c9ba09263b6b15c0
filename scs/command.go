package scs

// readCommandSize is the full wire size of a read-register command:
// two markers, header, [cmd, address, count] payload and checksum.
const readCommandSize = 8

// ReadRegisterCommand is a fully built read-register command frame.
// The checksum is computed at construction; the frame is ready to
// transmit.
type ReadRegisterCommand struct {
	raw [readCommandSize]byte
}

// NewReadRegisterCommand builds a command requesting count contiguous
// register bytes starting at address from device id.
func NewReadRegisterCommand(id, address, count byte) *ReadRegisterCommand {
	cmd := &ReadRegisterCommand{}
	cmd.raw[0] = Marker
	cmd.raw[1] = Marker

	pkt := Packet(cmd.raw[MarkerSize:])
	_ = pkt.SetID(id)
	_ = pkt.SetLength(4)

	payload, _ := pkt.Payload()
	payload[0] = CmdReadRegister
	payload[1] = address
	payload[2] = count
	_ = pkt.UpdateChecksum()

	return cmd
}

// Bytes returns the full wire frame, markers included.
func (c *ReadRegisterCommand) Bytes() []byte {
	return c.raw[:]
}

// ID returns the target device id of the command.
func (c *ReadRegisterCommand) ID() byte {
	return c.raw[MarkerSize]
}

// WriteRegisterCommand is a two-phase write-register command frame.
//
// NewWriteRegisterCommand writes the markers, header and the command and
// address bytes, but leaves the data region and checksum for the caller:
// fill the payload through Packet (bytes [2:] of the payload are the
// register data) and then call Packet().UpdateChecksum(). Transmitting
// without updating the checksum produces a corrupt, rejectable frame.
// The two-phase build lets callers stream large payloads into the frame
// buffer without an intermediate copy.
type WriteRegisterCommand struct {
	raw []byte
}

// NewWriteRegisterCommand builds the skeleton of a command writing
// dataLen register bytes starting at address on device id.
func NewWriteRegisterCommand(id, address byte, dataLen int) *WriteRegisterCommand {
	// markers + header + [cmd, address, data...] + checksum
	cmd := &WriteRegisterCommand{raw: make([]byte, MarkerSize+headerSize+2+dataLen+1)}
	cmd.raw[0] = Marker
	cmd.raw[1] = Marker

	pkt := Packet(cmd.raw[MarkerSize:])
	_ = pkt.SetID(id)
	_ = pkt.SetLength(byte(3 + dataLen))

	payload, _ := pkt.Payload()
	payload[0] = CmdWriteRegister
	payload[1] = address

	return cmd
}

// Bytes returns the full wire frame, markers included.
func (c *WriteRegisterCommand) Bytes() []byte {
	return c.raw
}

// Packet returns the packet view over the frame (markers stripped) for
// filling the data region and recomputing the checksum.
func (c *WriteRegisterCommand) Packet() Packet {
	return Packet(c.raw[MarkerSize:])
}

// ID returns the target device id of the command.
func (c *WriteRegisterCommand) ID() byte {
	return c.raw[MarkerSize]
}

// SetData copies data into the register-data region of the payload and
// updates the checksum, completing the two-phase build in one step for
// callers that already have the bytes contiguous.
func (c *WriteRegisterCommand) SetData(data []byte) error {
	payload, err := c.Packet().Payload()
	if err != nil {
		return err
	}
	copy(payload[2:], data)

	return c.Packet().UpdateChecksum()
}
