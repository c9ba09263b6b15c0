package device

import (
	"encoding/binary"
	"fmt"
	"math"
	"time"

	"github.com/arloliu/go-scservo/logger"
	"github.com/arloliu/go-scservo/scs"
)

// SCS0009 register addresses.
const (
	RegVersionH              byte = 0x03
	RegVersionL              byte = 0x04
	RegID                    byte = 0x05
	RegBaudRate              byte = 0x06
	RegResponseTime          byte = 0x07
	RegResponseEnable        byte = 0x08
	RegLowerPositionLimitH   byte = 0x09
	RegLowerPositionLimitL   byte = 0x0A
	RegUpperPositionLimitH   byte = 0x0B
	RegUpperPositionLimitL   byte = 0x0C
	RegUpperTemperatureLimit byte = 0x0D
	RegMaxInputVoltage       byte = 0x0E
	RegMinInputVoltage       byte = 0x0F
	RegMaxTorqueH            byte = 0x10
	RegMaxTorqueL            byte = 0x11
	RegHighVoltageFlag       byte = 0x12
	RegAlarmFlag             byte = 0x13
	RegLEDAlarmFlag          byte = 0x14
	RegTorqueSwitch          byte = 0x28
	RegTargetPositionH       byte = 0x2A
	RegTargetPositionL       byte = 0x2B
	RegTargetPeriodH         byte = 0x2C
	RegTargetPeriodL         byte = 0x2D
	RegTargetSpeedH          byte = 0x2E
	RegTargetSpeedL          byte = 0x2F
	RegEEPROMLock            byte = 0x30
	RegCurrentPositionH      byte = 0x38
	RegCurrentPositionL      byte = 0x39
	RegCurrentSpeedH         byte = 0x3A
	RegCurrentSpeedL         byte = 0x3B
	RegCurrentLoadH          byte = 0x3C
	RegCurrentLoadL          byte = 0x3D
	RegCurrentVoltage        byte = 0x3E
	RegCurrentTemperature    byte = 0x3F
)

// SCS0009Registers describes the register map of the SCS0009 servo.
// A default value of -1 in the builders below means the register has no
// documented default (version, positions).
var SCS0009Registers = []RegisterDefinition{
	eeprom(RegVersionH, false, -1, "Software Version H"),
	eeprom(RegVersionL, false, -1, "Software Version L"),
	eeprom(RegID, true, 0x00, "ID"),
	eeprom(RegBaudRate, true, 0x00, "Baud Rate"),
	eeprom(RegResponseTime, true, 0x00, "Response Time"),
	eeprom(RegResponseEnable, true, 0x01, "Response Enable"),
	eeprom(RegLowerPositionLimitH, true, 0x00, "Lower Position Limit H"),
	eeprom(RegLowerPositionLimitL, true, 0x00, "Lower Position Limit L"),
	eeprom(RegUpperPositionLimitH, true, 0x03, "Upper Position Limit H"),
	eeprom(RegUpperPositionLimitL, true, 0xFF, "Upper Position Limit L"),
	eeprom(RegUpperTemperatureLimit, true, 0x50, "Upper Temperature Limit"),
	eeprom(RegMaxInputVoltage, true, 0xFA, "Max Input Voltage"),
	eeprom(RegMinInputVoltage, true, 0x32, "Min Input Voltage"),
	eeprom(RegMaxTorqueH, true, 0x03, "Max Torque H"),
	eeprom(RegMaxTorqueL, true, 0xFF, "Max Torque L"),
	eeprom(RegHighVoltageFlag, true, 0x00, "High Voltage Flag"),
	eeprom(RegAlarmFlag, true, 0x25, "Alarm Flag"),
	eeprom(RegLEDAlarmFlag, true, 0x25, "LED Alarm Flag"),
	ram(RegTorqueSwitch, true, 0x00, "Torque Switch"),
	ram(RegTargetPositionH, true, -1, "Target Position H"),
	ram(RegTargetPositionL, true, -1, "Target Position L"),
	ram(RegTargetPeriodH, true, 0x00, "Target Period H"),
	ram(RegTargetPeriodL, true, 0x00, "Target Period L"),
	ram(RegTargetSpeedH, true, 0x00, "Target Speed H"),
	ram(RegTargetSpeedL, true, 0x00, "Target Speed L"),
	ram(RegEEPROMLock, true, 0x01, "EEPROM Lock"),
	ram(RegCurrentPositionH, false, -1, "Current Position H"),
	ram(RegCurrentPositionL, false, -1, "Current Position L"),
	ram(RegCurrentSpeedH, false, -1, "Current Speed H"),
	ram(RegCurrentSpeedL, false, -1, "Current Speed L"),
	ram(RegCurrentLoadH, false, -1, "Current Load H"),
	ram(RegCurrentLoadL, false, -1, "Current Load L"),
	ram(RegCurrentVoltage, false, -1, "Current Voltage"),
	ram(RegCurrentTemperature, false, -1, "Current Temperature"),
}

// commandBufferSize bounds the frames a Servo exchanges; register
// operations never exceed a handful of data bytes.
const commandBufferSize = 16

// DefaultExchangeTimeout is the per-exchange time budget of a Servo.
const DefaultExchangeTimeout = 100 * time.Millisecond

// speedUnit is the rotational speed represented by one raw speed count,
// in degrees per second.
const speedUnit = 0.19

// Servo is a motion-control facade for one SCS0009 servo on a bus.
//
// Each exchange constructs a fresh protocol master, so a failed exchange
// never leaks partial assembler state into the next one. Current
// position, speed and load are sampled in one bulk register read by
// Update and served from the cache until the next Update.
//
// A Servo is bound to one transport and must be used from a single
// goroutine; multiple Servo instances sharing one bus must serialize
// their exchanges externally.
type Servo struct {
	id       byte
	r        scs.Reader
	w        scs.Writer
	echoBack bool
	timeout  time.Duration
	logger   logger.Logger

	sampled bool
	sample  [8]byte
}

// ServoOption is a functional option for configuring a Servo.
type ServoOption interface {
	apply(*Servo) error
}

type servoOptFunc func(*Servo) error

func (f servoOptFunc) apply(s *Servo) error { return f(s) }

// WithExchangeTimeout sets the per-exchange time budget.
func WithExchangeTimeout(d time.Duration) ServoOption {
	return servoOptFunc(func(s *Servo) error {
		if d <= 0 {
			return fmt.Errorf("device: exchange timeout %v must be positive", d)
		}
		s.timeout = d

		return nil
	})
}

// WithEchoBack declares that the bus adapter echoes transmitted bytes
// back into the receive path.
func WithEchoBack(enabled bool) ServoOption {
	return servoOptFunc(func(s *Servo) error {
		s.echoBack = enabled
		return nil
	})
}

// WithLogger sets the logger for the servo.
func WithLogger(l logger.Logger) ServoOption {
	return servoOptFunc(func(s *Servo) error {
		if l == nil {
			return fmt.Errorf("device: logger must not be nil")
		}
		s.logger = l

		return nil
	})
}

// NewServo creates a facade for the servo with the given bus id,
// exchanging frames over r and w.
func NewServo(id byte, r scs.Reader, w scs.Writer, opts ...ServoOption) (*Servo, error) {
	s := &Servo{
		id:      id,
		r:       r,
		w:       w,
		timeout: DefaultExchangeTimeout,
		logger:  logger.GetLogger(),
	}

	for _, opt := range opts {
		if err := opt.apply(s); err != nil {
			return nil, err
		}
	}

	return s, nil
}

// ID returns the bus id this facade addresses.
func (s *Servo) ID() byte { return s.id }

// newMaster creates a fresh protocol master for one exchange.
func (s *Servo) newMaster() (*scs.Master, error) {
	return scs.NewMaster(
		scs.WithEchoBack(s.echoBack),
		scs.WithBufferSize(commandBufferSize),
		scs.WithLogger(s.logger),
	)
}

// ReadRegisters reads len(buf) contiguous registers starting at address.
func (s *Servo) ReadRegisters(address byte, buf []byte) error {
	master, err := s.newMaster()
	if err != nil {
		return err
	}

	return master.ReadRegister(s.r, s.w, s.id, address, buf, scs.After(s.timeout))
}

// WriteRegisters writes data to contiguous registers starting at address.
func (s *Servo) WriteRegisters(address byte, data []byte) error {
	master, err := s.newMaster()
	if err != nil {
		return err
	}

	cmd := scs.NewWriteRegisterCommand(s.id, address, len(data))
	if err := cmd.SetData(data); err != nil {
		return err
	}

	return master.WriteRegister(s.r, s.w, cmd, scs.After(s.timeout))
}

func (s *Servo) readU8(address byte) (byte, error) {
	var buf [1]byte
	if err := s.ReadRegisters(address, buf[:]); err != nil {
		return 0, err
	}

	return buf[0], nil
}

func (s *Servo) readU16(address byte) (uint16, error) {
	var buf [2]byte
	if err := s.ReadRegisters(address, buf[:]); err != nil {
		return 0, err
	}

	return binary.BigEndian.Uint16(buf[:]), nil
}

func (s *Servo) writeU8(address, value byte) error {
	return s.WriteRegisters(address, []byte{value})
}

func (s *Servo) writeU16(address byte, value uint16) error {
	var buf [2]byte
	binary.BigEndian.PutUint16(buf[:], value)

	return s.WriteRegisters(address, buf[:])
}

// Version returns the device software version (high, low).
func (s *Servo) Version() (byte, byte, error) {
	var buf [2]byte
	if err := s.ReadRegisters(RegVersionH, buf[:]); err != nil {
		return 0, 0, err
	}

	return buf[0], buf[1], nil
}

// SetID writes a new bus id to the device and rebinds the facade to it.
// The EEPROM must be unlocked first; see ChangeID for the full sequence.
func (s *Servo) SetID(id byte) error {
	if err := s.writeU8(RegID, id); err != nil {
		return err
	}
	s.id = id

	return nil
}

// UnlockEEPROM clears the EEPROM lock register, allowing writes to
// persistent registers.
func (s *Servo) UnlockEEPROM() error {
	return s.writeU8(RegEEPROMLock, 0x00)
}

// LockEEPROM sets the EEPROM lock register, protecting persistent
// registers against accidental writes.
func (s *Servo) LockEEPROM() error {
	return s.writeU8(RegEEPROMLock, 0x01)
}

// ChangeID performs the full persistent id change sequence: unlock the
// EEPROM, write the new id, and re-lock the EEPROM addressing the new
// id. On success the facade addresses newID.
func (s *Servo) ChangeID(newID byte) error {
	if err := s.UnlockEEPROM(); err != nil {
		return fmt.Errorf("unlock EEPROM: %w", err)
	}

	if err := s.SetID(newID); err != nil {
		return fmt.Errorf("write id register: %w", err)
	}

	if err := s.LockEEPROM(); err != nil {
		return fmt.Errorf("lock EEPROM: %w", err)
	}

	s.logger.Info("device: servo id changed", "id", newID)

	return nil
}

// EnableOutput switches the torque output on.
func (s *Servo) EnableOutput() error {
	return s.writeU8(RegTorqueSwitch, 0x01)
}

// DisableOutput switches the torque output off.
func (s *Servo) DisableOutput() error {
	return s.writeU8(RegTorqueSwitch, 0x00)
}

// PositionLowerLimit reads the configured lower position limit.
func (s *Servo) PositionLowerLimit() (uint16, error) {
	return s.readU16(RegLowerPositionLimitH)
}

// PositionUpperLimit reads the configured upper position limit.
func (s *Servo) PositionUpperLimit() (uint16, error) {
	return s.readU16(RegUpperPositionLimitH)
}

// TargetPosition reads the current target position.
func (s *Servo) TargetPosition() (uint16, error) {
	return s.readU16(RegTargetPositionH)
}

// SetTargetPosition commands the servo to move to position.
func (s *Servo) SetTargetPosition(position uint16) error {
	return s.writeU16(RegTargetPositionH, position)
}

// TargetPeriod reads the movement period in milliseconds.
func (s *Servo) TargetPeriod() (uint16, error) {
	return s.readU16(RegTargetPeriodH)
}

// SetTargetPeriod sets the movement period in milliseconds.
func (s *Servo) SetTargetPeriod(period uint16) error {
	return s.writeU16(RegTargetPeriodH, period)
}

// TargetSpeed reads the commanded movement speed in raw counts.
func (s *Servo) TargetSpeed() (int16, error) {
	v, err := s.readU16(RegTargetSpeedH)

	return int16(v), err
}

// SetTargetSpeed sets the commanded movement speed in raw counts.
func (s *Servo) SetTargetSpeed(speed int16) error {
	return s.writeU16(RegTargetSpeedH, uint16(speed))
}

// Update samples the current position, speed, load, voltage and
// temperature registers in a single bulk read and caches them. The
// cached accessors below return values frozen at the last Update.
func (s *Servo) Update() error {
	if err := s.ReadRegisters(RegCurrentPositionH, s.sample[:]); err != nil {
		return err
	}
	s.sampled = true

	return nil
}

// CurrentPosition returns the position captured by the last Update.
func (s *Servo) CurrentPosition() (uint16, error) {
	if !s.sampled {
		return 0, ErrNotSampled
	}

	return binary.BigEndian.Uint16(s.sample[0:2]), nil
}

// CurrentSpeed returns the speed captured by the last Update. The raw
// value uses a sign-magnitude encoding: bit 15 set means negative.
func (s *Servo) CurrentSpeed() (int16, error) {
	if !s.sampled {
		return 0, ErrNotSampled
	}

	raw := binary.BigEndian.Uint16(s.sample[2:4])
	if raw >= 0x8000 {
		return -int16(raw - 0x8000), nil
	}

	return int16(raw), nil
}

// CurrentLoad returns the output load captured by the last Update.
func (s *Servo) CurrentLoad() (uint16, error) {
	if !s.sampled {
		return 0, ErrNotSampled
	}

	return binary.BigEndian.Uint16(s.sample[4:6]), nil
}

// CurrentVoltage returns the input voltage captured by the last Update,
// in 0.1V units.
func (s *Servo) CurrentVoltage() (byte, error) {
	if !s.sampled {
		return 0, ErrNotSampled
	}

	return s.sample[6], nil
}

// CurrentTemperature returns the temperature captured by the last
// Update, in degrees Celsius.
func (s *Servo) CurrentTemperature() (byte, error) {
	if !s.sampled {
		return 0, ErrNotSampled
	}

	return s.sample[7], nil
}

// MinSpeed returns the smallest commandable speed in raw counts.
func (s *Servo) MinSpeed() int16 { return 0 }

// MaxSpeed returns the largest commandable speed in raw counts.
func (s *Servo) MaxSpeed() int16 { return 0x7FFF }

// MaxPeriod returns the largest commandable period in milliseconds.
func (s *Servo) MaxPeriod() uint16 { return 0xFFFF }

// ToSpeed converts a speed in degrees per second to raw counts,
// rounding to the nearest count.
func (s *Servo) ToSpeed(degPerSec float64) (int16, error) {
	counts := math.Round(degPerSec / speedUnit)
	if counts < 0 || counts > float64(s.MaxSpeed()) {
		return 0, fmt.Errorf("%w: speed %.2f deg/s", ErrInvalidArgument, degPerSec)
	}

	return int16(counts), nil
}

// ToPeriod converts a period in seconds to register milliseconds.
func (s *Servo) ToPeriod(seconds float64) (uint16, error) {
	if seconds < 0 || seconds > 65.535 {
		return 0, fmt.Errorf("%w: period %.3fs", ErrInvalidArgument, seconds)
	}

	return uint16(seconds * 1000.0), nil
}
