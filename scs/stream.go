package scs

import (
	"context"
	"time"
)

// Reader is the non-blocking byte source consumed by the protocol engine.
//
// Read fills p with up to len(p) bytes and returns the number of bytes
// read. When no bytes are currently available it returns (0, ErrWouldBlock)
// rather than waiting; any other error is a transport error and propagates
// to the caller of the enclosing operation. Partial reads are normal and
// expected on a serial link.
type Reader interface {
	Read(p []byte) (int, error)
}

// Writer is the non-blocking byte sink consumed by the protocol engine.
//
// Write writes up to len(p) bytes from p and returns the number of bytes
// written. When the sink cannot currently accept bytes it returns
// (0, ErrWouldBlock). Partial writes are normal; the engine resumes from
// the last written offset.
type Writer interface {
	Write(p []byte) (int, error)
}

// ContextReader is the cooperative variant of [Reader], used when the
// transport is driven by an event loop rather than by direct polling.
//
// ReadContext waits for data or for a short implementation-defined window
// (on the order of 10ms) and returns (0, nil) on expiry instead of a
// would-block error, so an enclosing timeout loop stays responsive.
// Cancelling ctx aborts the wait with ctx.Err().
type ContextReader interface {
	ReadContext(ctx context.Context, p []byte) (int, error)
}

// ContextWriter is the cooperative variant of [Writer]. WriteContext may
// suspend until the sink accepts bytes; cancelling ctx aborts the wait
// with ctx.Err().
type ContextWriter interface {
	WriteContext(ctx context.Context, p []byte) (int, error)
}

// TimeoutFunc is a caller-supplied predicate polled once per retry
// iteration by Master and Slave operations. It reports whether the
// operation's time budget has been exceeded; the typical implementation
// compares elapsed time against a deadline.
//
// There is no separate cancellation signal in the polling discipline:
// once the predicate returns true the current operation aborts with
// [ErrTimeout], leaving partial assembler state intact for a retry.
type TimeoutFunc func() bool

// After returns a TimeoutFunc that reports expiry once d has elapsed
// from the moment After is called.
func After(d time.Duration) TimeoutFunc {
	deadline := time.Now().Add(d)

	return func() bool {
		return time.Now().After(deadline)
	}
}
