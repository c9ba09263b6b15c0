package transport

import (
	"context"
	"errors"
	"time"

	"github.com/arloliu/go-scservo/internal/pool"
	"github.com/arloliu/go-scservo/scs"
)

// ErrPipeClosed indicates that the pipe end, or its peer, has been closed.
// It surfaces through the protocol engine as a transport error.
var ErrPipeClosed = errors.New("transport: pipe closed")

// DefaultPipeCapacity is the per-direction byte capacity of a Pipe.
const DefaultPipeCapacity = 4096

// defaultWaitWindow is the bounded wait applied by ReadContext before it
// reports zero bytes, keeping an enclosing timeout loop responsive.
const defaultWaitWindow = 10 * time.Millisecond

// PipeEnd is one end of an in-process bidirectional byte pipe. It
// implements all four stream interfaces of package scs, making it
// suitable for wiring a Master to a Slave in tests, emulators and
// examples.
//
// A PipeEnd must be driven by a single goroutine; the two ends of a pipe
// may live in different goroutines.
type PipeEnd struct {
	recv <-chan byte
	send chan<- byte
	done chan struct{}
	peer <-chan struct{}
}

var (
	_ scs.Reader        = (*PipeEnd)(nil)
	_ scs.Writer        = (*PipeEnd)(nil)
	_ scs.ContextReader = (*PipeEnd)(nil)
	_ scs.ContextWriter = (*PipeEnd)(nil)
)

// Pipe creates a connected pair of pipe ends with DefaultPipeCapacity
// bytes of buffering in each direction.
func Pipe() (*PipeEnd, *PipeEnd) {
	return PipeCapacity(DefaultPipeCapacity)
}

// PipeCapacity creates a connected pair of pipe ends with the given
// per-direction byte capacity.
func PipeCapacity(capacity int) (*PipeEnd, *PipeEnd) {
	if capacity < 1 {
		capacity = 1
	}

	ab := make(chan byte, capacity)
	ba := make(chan byte, capacity)
	aDone := make(chan struct{})
	bDone := make(chan struct{})

	a := &PipeEnd{recv: ba, send: ab, done: aDone, peer: bDone}
	b := &PipeEnd{recv: ab, send: ba, done: bDone, peer: aDone}

	return a, b
}

// Read drains up to len(buf) immediately available bytes. With nothing
// buffered it returns scs.ErrWouldBlock, or ErrPipeClosed once the peer
// end has been closed and the buffer is empty.
func (p *PipeEnd) Read(buf []byte) (int, error) {
	n := 0
	for n < len(buf) {
		select {
		case b := <-p.recv:
			buf[n] = b
			n++
		default:
			if n > 0 {
				return n, nil
			}

			select {
			case <-p.peer:
				return 0, ErrPipeClosed
			default:
				return 0, scs.ErrWouldBlock
			}
		}
	}

	return n, nil
}

// Write transfers as many bytes of data as the pipe can currently buffer.
// With no room at all it returns scs.ErrWouldBlock.
func (p *PipeEnd) Write(data []byte) (int, error) {
	select {
	case <-p.done:
		return 0, ErrPipeClosed
	case <-p.peer:
		return 0, ErrPipeClosed
	default:
	}

	n := 0
	for _, b := range data {
		select {
		case p.send <- b:
			n++
		default:
			if n > 0 {
				return n, nil
			}

			return 0, scs.ErrWouldBlock
		}
	}

	return n, nil
}

// ReadContext waits up to the wait window for at least one byte, then
// drains whatever else is immediately available. It returns (0, nil)
// when the window expires with no data, and ctx.Err() when ctx is
// cancelled during the wait.
func (p *PipeEnd) ReadContext(ctx context.Context, buf []byte) (int, error) {
	if len(buf) == 0 {
		return 0, nil
	}

	timer := pool.GetTimer(defaultWaitWindow)
	defer pool.PutTimer(timer)

	select {
	case <-ctx.Done():
		return 0, ctx.Err()
	case <-p.peer:
		return 0, ErrPipeClosed
	case b := <-p.recv:
		buf[0] = b
		n := 1

		for n < len(buf) {
			select {
			case b := <-p.recv:
				buf[n] = b
				n++
			default:
				return n, nil
			}
		}

		return n, nil
	case <-timer.C:
		return 0, nil
	}
}

// WriteContext transfers all of data, suspending while the pipe is full.
// It returns ctx.Err() when ctx is cancelled during the wait.
func (p *PipeEnd) WriteContext(ctx context.Context, data []byte) (int, error) {
	for i, b := range data {
		select {
		case <-ctx.Done():
			return i, ctx.Err()
		case <-p.done:
			return i, ErrPipeClosed
		case <-p.peer:
			return i, ErrPipeClosed
		case p.send <- b:
		}
	}

	return len(data), nil
}

// Close closes this end of the pipe. Subsequent writes on this end and
// reads on the peer end (after the buffer drains) fail with
// ErrPipeClosed. Close is idempotent.
func (p *PipeEnd) Close() error {
	select {
	case <-p.done:
	default:
		close(p.done)
	}

	return nil
}
