package scs

import (
	"context"
	"errors"
	"fmt"
)

// DefaultBufferSize is the scratch buffer capacity used when none is
// configured. It bounds the maximum frame size the assembler accepts.
const DefaultBufferSize = 256

// MinBufferSize is the smallest usable scratch capacity: header plus the
// minimum length field (checksum only) plus the marker scan window.
const MinBufferSize = 4

// assemblerState tags the assembler's position in the frame layout.
type assemblerState int

const (
	// stateSeekMarker1 scans for the first marker byte.
	stateSeekMarker1 assemblerState = iota
	// stateSeekMarker2 has seen one marker byte and expects the second.
	stateSeekMarker2
	// stateHeader accumulates the id and length bytes.
	stateHeader
	// stateData accumulates payload and checksum bytes.
	stateData
	// stateCompleted holds a finished frame; the next poll re-arms
	// marker scanning.
	stateCompleted
)

// Assembler incrementally reconstructs one frame at a time from a
// non-blocking byte source. Progress is held as an explicit state tag and
// a cursor into a fixed scratch buffer, never as a call stack, so a poll
// can be safely re-entered after any partial byte delivery. It tolerates
// interleaved garbage and resynchronizes on the two-byte marker.
//
// An Assembler owns its scratch buffer for the lifetime of one logical
// connection and must not be shared between connections or goroutines.
type Assembler struct {
	buf   []byte
	pos   int
	state assemblerState
}

// NewAssembler creates an Assembler with a scratch buffer of the given
// capacity. Frames whose declared length would exceed the capacity are
// rejected with ErrInsufficientBuffer, not truncated.
func NewAssembler(bufferSize int) (*Assembler, error) {
	if bufferSize < MinBufferSize {
		return nil, fmt.Errorf("scs: assembler buffer size %d below minimum %d", bufferSize, MinBufferSize)
	}

	return &Assembler{buf: make([]byte, bufferSize)}, nil
}

// Reset discards any partially assembled frame and restarts marker
// scanning.
func (a *Assembler) Reset() {
	a.state = stateSeekMarker1
	a.pos = 0
}

// Packet returns the finished frame as a Packet view over the scratch
// buffer, or false if no frame is currently completed. The view is valid
// until the next Read/ReadContext call. The checksum is not verified
// here; callers must invoke VerifyChecksum on the returned packet.
func (a *Assembler) Packet() (Packet, bool) {
	if a.state != stateCompleted {
		return nil, false
	}

	return Packet(a.buf[:a.pos]), true
}

// window returns the scratch region the assembler wants filled by the
// next read attempt. Together with consume it forms the single transition
// table shared by the polling and cooperative drive loops.
func (a *Assembler) window() []byte {
	switch a.state {
	case stateSeekMarker1, stateCompleted:
		return a.buf[0:2]
	case stateSeekMarker2:
		return a.buf[0:1]
	case stateHeader:
		return a.buf[a.pos:headerSize]
	case stateData:
		return a.buf[a.pos : int(a.buf[1])+headerSize]
	}

	return nil
}

// consume applies n bytes just read into the current window and performs
// the state transition. n == 0 means the source had nothing to offer;
// all partial progress is preserved.
func (a *Assembler) consume(n int) error {
	switch a.state {
	case stateSeekMarker1, stateCompleted:
		a.pos = 0

		switch {
		case n == 1 && a.buf[0] == Marker:
			a.state = stateSeekMarker2
		case n == 2 && a.buf[0] == Marker && a.buf[1] == Marker:
			a.state = stateHeader
		case n == 2 && (a.buf[0] == Marker || a.buf[1] == Marker):
			// A single marker byte in the pair: it may be the start of a
			// frame, so expect the second marker next.
			a.state = stateSeekMarker2
		default:
			// Garbage or nothing: keep scanning.
			a.state = stateSeekMarker1
		}

	case stateSeekMarker2:
		switch {
		case n == 0:
			// Nothing available; the pending first marker stays pending.
		case a.buf[0] == Marker:
			a.state = stateHeader
			a.pos = 0
		default:
			a.state = stateSeekMarker1
			a.pos = 0
		}

	case stateHeader:
		a.pos += n
		if a.pos == headerSize {
			if end := int(a.buf[1]) + headerSize; end > len(a.buf) {
				a.Reset()

				return fmt.Errorf("%w: declared %d bytes, capacity %d", ErrInsufficientBuffer, end, len(a.buf))
			}
			a.state = stateData
		}

	case stateData:
		a.pos += n
		if a.pos == int(a.buf[1])+headerSize {
			a.state = stateCompleted
		}
	}

	return nil
}

// Read drains all currently available bytes from r, advancing the frame
// state machine. It returns (true, nil) once a frame is completed and
// exposed via Packet, and (false, nil) when the source signals would-block,
// preserving all state for the next call. Transport errors from r
// propagate immediately.
func (a *Assembler) Read(r Reader) (bool, error) {
	for {
		win := a.window()

		n, err := r.Read(win)
		if err != nil {
			if !errors.Is(err, ErrWouldBlock) {
				return false, fmt.Errorf("scs: read stream: %w", err)
			}
			n = 0
		}

		if err := a.consume(n); err != nil {
			return false, err
		}

		if a.state == stateCompleted {
			return true, nil
		}

		if n < len(win) {
			// The source offered fewer bytes than requested; it has
			// nothing more right now.
			return false, nil
		}
	}
}

// ReadContext is the cooperative variant of Read, driving the same
// transition table against a ContextReader. A zero-byte delivery (the
// reader's wait window expired) plays the role of the would-block signal.
func (a *Assembler) ReadContext(ctx context.Context, r ContextReader) (bool, error) {
	for {
		win := a.window()

		n, err := r.ReadContext(ctx, win)
		if err != nil {
			return false, fmt.Errorf("scs: read stream: %w", err)
		}

		if err := a.consume(n); err != nil {
			return false, err
		}

		if a.state == stateCompleted {
			return true, nil
		}

		if n < len(win) {
			return false, nil
		}
	}
}
