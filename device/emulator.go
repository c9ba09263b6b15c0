package device

import (
	"context"
	"fmt"
	"sync"

	"github.com/puzpuzpuz/xsync/v3"

	"github.com/arloliu/go-scservo/logger"
	"github.com/arloliu/go-scservo/scs"
)

// RegisterBank is the register file of one emulated servo. Access is
// mutex-guarded so test code may Peek and Poke registers while the
// emulator goroutine serves bus commands.
type RegisterBank struct {
	mu   sync.Mutex
	regs [256]byte
}

// NewRegisterBank creates a bank pre-loaded with the defaults of defs.
func NewRegisterBank(defs []RegisterDefinition) *RegisterBank {
	b := &RegisterBank{}
	b.Load(defs)

	return b
}

// Load applies the default values of defs to the bank. Registers
// without a documented default are left untouched.
func (b *RegisterBank) Load(defs []RegisterDefinition) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, def := range defs {
		if def.HasDefault {
			b.regs[def.Address] = def.Default
		}
	}
}

// Peek returns count register bytes starting at address.
func (b *RegisterBank) Peek(address byte, count int) []byte {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make([]byte, count)
	copy(out, b.regs[int(address):])

	return out
}

// Poke writes data to contiguous registers starting at address.
func (b *RegisterBank) Poke(address byte, data []byte) {
	b.mu.Lock()
	defer b.mu.Unlock()

	copy(b.regs[int(address):], data)
}

// read copies count registers starting at address into out.
func (b *RegisterBank) read(address, count byte, out []byte) {
	b.mu.Lock()
	defer b.mu.Unlock()

	copy(out[:count], b.regs[int(address):])
}

// Emulator answers register commands for a set of servos sharing one
// bus, for exercising master-side code without hardware. Servos can be
// added while the emulator is running.
type Emulator struct {
	banks  *xsync.MapOf[byte, *RegisterBank]
	slave  *scs.Slave
	logger logger.Logger
}

// NewEmulator creates an emulator with no servos attached.
func NewEmulator(opts ...scs.SlaveOption) (*Emulator, error) {
	slave, err := scs.NewSlave(opts...)
	if err != nil {
		return nil, err
	}

	return &Emulator{
		banks:  xsync.NewMapOf[byte, *RegisterBank](),
		slave:  slave,
		logger: logger.GetLogger(),
	}, nil
}

// AddServo attaches an emulated servo with the given bus id and register
// defaults, and stores its id register. It returns the servo's bank.
func (e *Emulator) AddServo(id byte, defs []RegisterDefinition) *RegisterBank {
	bank := NewRegisterBank(defs)
	bank.Poke(RegID, []byte{id})
	e.banks.Store(id, bank)

	return bank
}

// RemoveServo detaches the servo with the given bus id.
func (e *Emulator) RemoveServo(id byte) {
	e.banks.Delete(id)
}

// Bank returns the register bank of the servo with the given bus id.
func (e *Emulator) Bank(id byte) (*RegisterBank, error) {
	bank, ok := e.banks.Load(id)
	if !ok {
		return nil, fmt.Errorf("%w: id %d", ErrUnknownDevice, id)
	}

	return bank, nil
}

// Handle answers one command frame. It is a [scs.FrameHandler]: frames
// addressed to unknown ids and unknown command codes are ignored.
func (e *Emulator) Handle(pkt scs.Packet, resp []byte) (int, bool) {
	id, err := pkt.ID()
	if err != nil {
		return 0, false
	}

	bank, ok := e.banks.Load(id)
	if !ok {
		return 0, false
	}

	payload, err := pkt.Payload()
	if err != nil || len(payload) < 2 {
		return 0, false
	}

	switch payload[0] {
	case scs.CmdReadRegister:
		if len(payload) != 3 {
			return 0, false
		}

		return e.handleRead(id, bank, payload[1], payload[2], resp)

	case scs.CmdWriteRegister:
		bank.Poke(payload[1], payload[2:])
		e.rebind(id, bank, payload[1], len(payload)-2)

		return e.buildStatus(id, resp)

	default:
		e.logger.Debug("device: ignoring unknown command", "id", id, "command", payload[0])

		return 0, false
	}
}

// rebind moves the bank to a new bus id when a write covered the id
// register, mirroring how a real servo changes its address. The
// acknowledgment still carries the id the command addressed.
func (e *Emulator) rebind(id byte, bank *RegisterBank, address byte, count int) {
	if int(RegID) < int(address) || int(RegID) >= int(address)+count {
		return
	}

	newID := bank.Peek(RegID, 1)[0]
	if newID == id {
		return
	}

	e.banks.Delete(id)
	e.banks.Store(newID, bank)
	e.logger.Debug("device: emulated servo rebound", "old", id, "new", newID)
}

// handleRead stages a read response: status byte followed by the
// requested register bytes.
func (e *Emulator) handleRead(id byte, bank *RegisterBank, address, count byte, resp []byte) (int, bool) {
	frameLen := scs.MarkerSize + 2 + 1 + int(count) + 1
	if frameLen > len(resp) {
		e.logger.Debug("device: read response exceeds staging buffer", "id", id, "count", count)

		return 0, false
	}

	resp[0] = scs.Marker
	resp[1] = scs.Marker

	pkt := scs.Packet(resp[scs.MarkerSize:frameLen])
	_ = pkt.SetID(id)
	_ = pkt.SetLength(byte(count) + 2)

	payload, _ := pkt.Payload()
	payload[0] = 0x00
	bank.read(address, count, payload[1:])
	_ = pkt.UpdateChecksum()

	return frameLen, true
}

// buildStatus stages a status-only response acknowledging a write.
func (e *Emulator) buildStatus(id byte, resp []byte) (int, bool) {
	const frameLen = scs.MarkerSize + 2 + 1 + 1
	if frameLen > len(resp) {
		return 0, false
	}

	resp[0] = scs.Marker
	resp[1] = scs.Marker

	pkt := scs.Packet(resp[scs.MarkerSize:frameLen])
	_ = pkt.SetID(id)
	_ = pkt.SetLength(2)

	payload, _ := pkt.Payload()
	payload[0] = 0x00
	_ = pkt.UpdateChecksum()

	return frameLen, true
}

// Process performs one responder step on a polling transport.
func (e *Emulator) Process(r scs.Reader, w scs.Writer) error {
	return e.slave.Process(r, w, e.Handle)
}

// Run serves commands on a cooperative transport until ctx is canceled
// or the transport fails.
func (e *Emulator) Run(ctx context.Context, r scs.ContextReader, w scs.ContextWriter) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		if err := e.slave.ProcessContext(ctx, r, w, e.Handle); err != nil {
			return err
		}
	}
}
