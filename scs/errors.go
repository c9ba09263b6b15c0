package scs

import "errors"

// Frame-level errors reported by [Packet] accessors.
var (
	// ErrHeaderTooShort indicates that the packet region is smaller than the
	// minimum 3 bytes (id, length, checksum).
	ErrHeaderTooShort = errors.New("scs: packet header too short")

	// ErrInvalidLength indicates that the declared length field would read
	// past the end of the packet region.
	ErrInvalidLength = errors.New("scs: packet length inconsistent with region")

	// ErrChecksumMismatch indicates that the stored checksum does not match
	// the checksum recomputed over the packet contents.
	ErrChecksumMismatch = errors.New("scs: checksum mismatch")
)

// Assembly-level errors reported by [Assembler].
var (
	// ErrInsufficientBuffer indicates that a frame declared a length that
	// would not fit in the assembler's scratch buffer. The assembler resets
	// to marker scanning, so subsequent frames are still parsed.
	ErrInsufficientBuffer = errors.New("scs: declared frame length exceeds assembler buffer")
)

// Exchange-level errors reported by [Master] and [Slave] operations.
var (
	// ErrUnexpectedID indicates that a response frame carried a different
	// device id than the request. The response is discarded.
	ErrUnexpectedID = errors.New("scs: unexpected response id")

	// ErrUnexpectedLength indicates that a read-register response payload
	// does not match the requested register count.
	ErrUnexpectedLength = errors.New("scs: unexpected response length")

	// ErrTimeout indicates that the caller-supplied timeout predicate
	// reported expiry before the operation completed.
	ErrTimeout = errors.New("scs: timed out")
)

// ErrWouldBlock is the would-block signal of the non-blocking stream
// contract: no bytes can be transferred right now, try again later.
// It is never surfaced by Master or Slave operations; they absorb it in
// their internal retry loops.
var ErrWouldBlock = errors.New("scs: operation would block")
