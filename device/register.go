// Package device provides the register-level description of SCS-series
// servo motors, a motion-control facade built on the scs protocol
// engine, and a register-bank emulator for testing without hardware.
package device

import "errors"

var (
	// ErrNotSampled indicates that a cached current-value accessor was
	// called before the first successful Update.
	ErrNotSampled = errors.New("device: current values not sampled, call Update first")

	// ErrInvalidArgument indicates a conversion argument outside the
	// device's representable range.
	ErrInvalidArgument = errors.New("device: argument out of range")

	// ErrUnknownDevice indicates that no register bank exists for the
	// requested device id.
	ErrUnknownDevice = errors.New("device: unknown device id")
)

// RegisterStorage classifies where a register lives on the device.
type RegisterStorage int

const (
	// StorageEEPROM registers persist across power cycles and are
	// guarded by the EEPROM lock register.
	StorageEEPROM RegisterStorage = iota
	// StorageRAM registers are volatile working state.
	StorageRAM
)

func (s RegisterStorage) String() string {
	switch s {
	case StorageEEPROM:
		return "EEPROM"
	case StorageRAM:
		return "RAM"
	default:
		return "unknown"
	}
}

// RegisterDefinition describes one addressable byte of device state.
// Multi-byte quantities occupy two consecutive registers, high byte
// first.
type RegisterDefinition struct {
	Address     byte
	Storage     RegisterStorage
	Readable    bool
	Writable    bool
	Default     byte
	HasDefault  bool
	Description string
}

// eeprom builds an EEPROM register definition.
func eeprom(address byte, writable bool, def int, description string) RegisterDefinition {
	return RegisterDefinition{
		Address:     address,
		Storage:     StorageEEPROM,
		Readable:    true,
		Writable:    writable,
		Default:     byte(def & 0xFF),
		HasDefault:  def >= 0,
		Description: description,
	}
}

// ram builds a RAM register definition.
func ram(address byte, writable bool, def int, description string) RegisterDefinition {
	return RegisterDefinition{
		Address:     address,
		Storage:     StorageRAM,
		Readable:    true,
		Writable:    writable,
		Default:     byte(def & 0xFF),
		HasDefault:  def >= 0,
		Description: description,
	}
}
