package vm

import (
	"errors"
	"fmt"
)

var (
	ErrAddressOutOfRange = errors.New("address out of range")
	ErrStackOverflow     = errors.New("stack overflow")
	ErrStackUnderflow    = errors.New("stack underflow")
	ErrUnsupportedOpcode = errors.New("unsupported opcode")
	ErrProgramTooLarge   = errors.New("program too large")

	// errExit is returned by 00FD. The loop treats it as a clean stop.
	errExit = errors.New("exit")
)

// UnsupportedOpcodeError is returned when the executor meets a word the
// decoder could not classify.
type UnsupportedOpcodeError struct {
	Addr   uint16
	Opcode uint16
}

func (e *UnsupportedOpcodeError) Error() string {
	return fmt.Sprintf("unsupported opcode 0x%04X at 0x%04x", e.Opcode, e.Addr)
}

func (e *UnsupportedOpcodeError) Is(target error) bool {
	return target == ErrUnsupportedOpcode
}

func addressError(addr int) error {
	return fmt.Errorf("%w: 0x%04x", ErrAddressOutOfRange, addr)
}
