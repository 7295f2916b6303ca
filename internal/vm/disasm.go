package vm

import (
	"fmt"
	"io"
)

// Record is one row of a program listing.
type Record struct {
	Addr        uint16
	Instruction Instruction
}

func (r Record) String() string {
	return fmt.Sprintf("0x%04x  %04X  %s", r.Addr, r.Instruction.Opcode, r.Instruction)
}

// Listing is the linear disassembly of a program image.
type Listing []Record

// Disassemble decodes the program two bytes at a time from ProgramStart. It
// does not follow control flow, so data bytes show up as whatever they decode
// to, unsupported words included. A trailing odd byte is decoded as if
// followed by a zero byte, which is what memory holds after the image.
func Disassemble(program []byte) Listing {
	listing := make(Listing, 0, (len(program)+1)/InstructionSize)

	for offset := 0; offset < len(program); offset += InstructionSize {
		hi := program[offset]
		lo := uint8(0)
		if offset+1 < len(program) {
			lo = program[offset+1]
		}

		listing = append(listing, Record{
			Addr:        ProgramStart + uint16(offset),
			Instruction: Decode(uint16(hi)<<8 | uint16(lo)),
		})
	}

	return listing
}

// IndexOf returns the row for the address held by the program counter.
func (l Listing) IndexOf(pc uint16) (int, bool) {
	if pc < ProgramStart {
		return 0, false
	}

	i := int(pc-ProgramStart) / InstructionSize
	if i >= len(l) {
		return 0, false
	}
	return i, true
}

func (l Listing) WriteTo(w io.Writer) (int64, error) {
	var total int64
	for _, r := range l {
		n, err := fmt.Fprintln(w, r)
		total += int64(n)
		if err != nil {
			return total, err
		}
	}
	return total, nil
}
