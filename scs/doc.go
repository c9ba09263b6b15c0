// Package scs implements the master/slave request-response protocol used
// by addressable SCS-series servo motors on a half-duplex byte stream
// (typically a single-wire or UART serial bus shared by up to 254
// devices).
//
// # Wire Format
//
// Every frame on the wire is:
//
//	[0xFF 0xFF][id(1)][length(1)][payload(length-1)][checksum(1)]
//
// The length field counts the payload bytes plus the checksum byte. The
// checksum is the bitwise complement of the sum of id, length and payload
// modulo 256; the marker bytes never participate in length or checksum
// computation.
//
// Command payloads layer a command byte inside the frame payload:
//
//	read register:  [0x02, address, count] → response [status, data...]
//	write register: [0x03, address, data...] → response [status]
//
// # Engine Structure
//
//   - [Packet] is a stateless codec view over one frame region.
//   - [Assembler] incrementally reconstructs frames from a non-blocking
//     byte source, resynchronizing on line noise and surviving reads
//     split at arbitrary byte boundaries.
//   - [Master] issues commands and validates responses under a
//     caller-supplied timeout predicate.
//   - [Slave] is a three-state responder driven by repeated polls, with
//     the device behavior injected as a [FrameHandler].
//
// # Execution Disciplines
//
// Every operation exists in two variants with identical framing
// semantics: an immediate-return polling variant over [Reader]/[Writer]
// (would-block signalled by [ErrWouldBlock]) and a cooperative variant
// over [ContextReader]/[ContextWriter] for event-loop driven transports,
// where a read waits for data or a short window and returns zero bytes
// on expiry. Both disciplines share the assembler's transition table.
//
// The engine is single-threaded by construction: a Master or Slave
// instance must be driven by one goroutine at a time, and callers
// needing concurrent access to one transport must serialize exchanges
// externally. Cancellation is expressed through the timeout predicate;
// there is no separate cancel signal in the polling discipline.
package scs
