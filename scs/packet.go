package scs

import "fmt"

// Marker is the frame synchronization byte. Every frame on the wire is
// prefixed with two marker bytes; they are never part of the length or
// checksum computation.
const Marker byte = 0xFF

// MarkerSize is the number of marker bytes preceding each frame.
const MarkerSize = 2

// headerSize is the size of the packet header (id + length).
const headerSize = 2

// minPacketSize is the smallest valid packet region: id, length and
// checksum with an empty payload.
const minPacketSize = 3

// Command bytes carried as the first payload byte of a command frame.
const (
	// CmdReadRegister requests a contiguous register read.
	// Payload layout: [0x02, address, count].
	CmdReadRegister byte = 0x02

	// CmdWriteRegister requests a contiguous register write.
	// Payload layout: [0x03, address, data...].
	CmdWriteRegister byte = 0x03
)

// Packet is a view over a byte region laid out as
//
//	[id(1)][length(1)][payload(length-1)][checksum(1)]
//
// with the two marker bytes already stripped. The length field counts the
// payload bytes plus the checksum byte. A Packet does not own its backing
// storage; mutating accessors modify the underlying region in place, so a
// single type serves both the decoding and encoding roles.
type Packet []byte

// checkHeader validates that the region is large enough to hold the
// id, length and checksum fields.
func (p Packet) checkHeader() error {
	if len(p) < minPacketSize {
		return fmt.Errorf("%w: got %d bytes, want at least %d", ErrHeaderTooShort, len(p), minPacketSize)
	}

	return nil
}

// checkLength validates the header and that the declared length fits
// inside the region.
func (p Packet) checkLength() error {
	if err := p.checkHeader(); err != nil {
		return err
	}

	if end := int(p[1]) + headerSize; end > len(p) {
		return fmt.Errorf("%w: declared end %d, region %d bytes", ErrInvalidLength, end, len(p))
	}

	return nil
}

// ID returns the device id field.
func (p Packet) ID() (byte, error) {
	if err := p.checkHeader(); err != nil {
		return 0, err
	}

	return p[0], nil
}

// Length returns the length field: payload bytes plus the checksum byte.
func (p Packet) Length() (byte, error) {
	if err := p.checkHeader(); err != nil {
		return 0, err
	}

	return p[1], nil
}

// Payload returns the payload region as a mutable sub-slice of p.
// Callers that modify it must call UpdateChecksum before the packet
// is transmitted.
func (p Packet) Payload() ([]byte, error) {
	if err := p.checkLength(); err != nil {
		return nil, err
	}

	return p[headerSize : int(p[1])+headerSize-1], nil
}

// Checksum returns the stored checksum byte.
func (p Packet) Checksum() (byte, error) {
	if err := p.checkLength(); err != nil {
		return 0, err
	}

	return p[int(p[1])+1], nil
}

// ComputeChecksum recomputes the checksum over the id, length and payload
// bytes: the bitwise complement of their sum modulo 256. This exact
// algorithm is required for wire interoperability.
func (p Packet) ComputeChecksum() (byte, error) {
	if err := p.checkLength(); err != nil {
		return 0, err
	}

	var sum byte
	for _, b := range p[:int(p[1])+1] {
		sum += b
	}

	return ^sum, nil
}

// VerifyChecksum reports whether the stored checksum matches the
// recomputed one, returning ErrChecksumMismatch (wrapped with both
// values) when it does not.
func (p Packet) VerifyChecksum() error {
	stored, err := p.Checksum()
	if err != nil {
		return err
	}

	computed, err := p.ComputeChecksum()
	if err != nil {
		return err
	}

	if stored != computed {
		return fmt.Errorf("%w: stored 0x%02X, computed 0x%02X", ErrChecksumMismatch, stored, computed)
	}

	return nil
}

// SetID sets the device id field.
func (p Packet) SetID(id byte) error {
	if err := p.checkHeader(); err != nil {
		return err
	}
	p[0] = id

	return nil
}

// SetLength sets the length field. The region is not required to fit the
// new length yet; subsequent payload and checksum access validates it.
func (p Packet) SetLength(length byte) error {
	if err := p.checkHeader(); err != nil {
		return err
	}
	p[1] = length

	return nil
}

// UpdateChecksum recomputes the checksum over the current contents and
// stores it in the checksum byte. Must be called after any payload or
// header mutation, before transmission.
func (p Packet) UpdateChecksum() error {
	cs, err := p.ComputeChecksum()
	if err != nil {
		return err
	}
	p[int(p[1])+1] = cs

	return nil
}
