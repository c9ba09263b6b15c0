package scs

import (
	"context"
	"testing"
)

// chunkReader feeds scripted byte chunks to the engine. Each Read call
// serves bytes from the head chunk only, so a multi-chunk script exercises
// partial delivery; an exhausted script signals would-block forever.
type chunkReader struct {
	chunks [][]byte
}

func newChunkReader(chunks ...[]byte) *chunkReader {
	return &chunkReader{chunks: chunks}
}

func (c *chunkReader) Read(p []byte) (int, error) {
	if len(c.chunks) == 0 {
		return 0, ErrWouldBlock
	}

	// An empty chunk in the script injects one would-block signal.
	if len(c.chunks[0]) == 0 {
		c.chunks = c.chunks[1:]
		return 0, ErrWouldBlock
	}

	n := copy(p, c.chunks[0])
	c.chunks[0] = c.chunks[0][n:]
	if len(c.chunks[0]) == 0 {
		c.chunks = c.chunks[1:]
	}

	return n, nil
}

// ReadContext serves the same script cooperatively: an exhausted script
// reports an expired wait window instead of would-block.
func (c *chunkReader) ReadContext(ctx context.Context, p []byte) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	n, err := c.Read(p)
	if err != nil {
		// An exhausted script plays the role of an expired wait window.
		return 0, nil
	}

	return n, nil
}

// sinkWriter records everything written to it. A positive limit caps the
// bytes accepted per call, exercising the partial-write resume path.
type sinkWriter struct {
	data  []byte
	limit int
}

func (s *sinkWriter) Write(p []byte) (int, error) {
	n := len(p)
	if s.limit > 0 && n > s.limit {
		n = s.limit
	}
	s.data = append(s.data, p[:n]...)

	return n, nil
}

func (s *sinkWriter) WriteContext(_ context.Context, p []byte) (int, error) {
	return s.Write(p)
}

// never is a timeout predicate that never expires.
func never() bool { return false }

// expireAfter returns a predicate that expires after n polls.
func expireAfter(n int) TimeoutFunc {
	return func() bool {
		n--
		return n < 0
	}
}

// buildFrame assembles a complete wire frame (markers, header, payload,
// checksum) for the given id and payload.
func buildFrame(t *testing.T, id byte, payload []byte) []byte {
	t.Helper()

	frame := make([]byte, MarkerSize+headerSize+len(payload)+1)
	frame[0] = Marker
	frame[1] = Marker

	pkt := Packet(frame[MarkerSize:])
	if err := pkt.SetID(id); err != nil {
		t.Fatalf("buildFrame: %v", err)
	}
	if err := pkt.SetLength(byte(len(payload) + 1)); err != nil {
		t.Fatalf("buildFrame: %v", err)
	}

	region, err := pkt.Payload()
	if err != nil {
		t.Fatalf("buildFrame: %v", err)
	}
	copy(region, payload)

	if err := pkt.UpdateChecksum(); err != nil {
		t.Fatalf("buildFrame: %v", err)
	}

	return frame
}

// readResponse builds a device read response: status byte plus registers.
func readResponse(t *testing.T, id byte, regs []byte) []byte {
	t.Helper()

	payload := make([]byte, 1+len(regs))
	copy(payload[1:], regs)

	return buildFrame(t, id, payload)
}

// statusResponse builds a device write acknowledgment.
func statusResponse(t *testing.T, id byte) []byte {
	t.Helper()

	return buildFrame(t, id, []byte{0x00})
}
