package device

import (
	"context"
	"testing"

	"github.com/arloliu/go-scservo/transport"
)

// newTestBus wires an emulator to one end of a byte pipe and returns the
// master-side end. The emulator serves commands on a background
// goroutine until the test finishes.
func newTestBus(t *testing.T) (*transport.PipeEnd, *Emulator) {
	t.Helper()

	masterEnd, servoEnd := transport.Pipe()

	emu, err := NewEmulator()
	if err != nil {
		t.Fatalf("newTestBus: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	go func() {
		defer close(done)
		_ = emu.Run(ctx, servoEnd, servoEnd)
	}()

	t.Cleanup(func() {
		cancel()
		<-done
		_ = masterEnd.Close()
		_ = servoEnd.Close()
	})

	return masterEnd, emu
}
