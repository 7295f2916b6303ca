package vm

import (
	"fmt"
)

const (
	MemorySize   = 4096
	ProgramStart = uint16(0x200)

	FontStart     = uint16(0x000)
	FontGlyphSize = 5

	BigFontStart     = uint16(0x050)
	BigFontGlyphSize = 10

	// MaxProgramSize is the room left between ProgramStart and the top of memory.
	MaxProgramSize = MemorySize - 0x200
)

// Memory is the 4K addressable space. Every access is bounds checked and an
// access outside of it fails with ErrAddressOutOfRange without side effects.
type Memory struct {
	bytes [MemorySize]uint8
}

func (m *Memory) Read(addr uint16) (uint8, error) {
	if int(addr) >= MemorySize {
		return 0, addressError(int(addr))
	}
	return m.bytes[addr], nil
}

func (m *Memory) Write(addr uint16, value uint8) error {
	if int(addr) >= MemorySize {
		return addressError(int(addr))
	}
	m.bytes[addr] = value
	return nil
}

// Fetch reads the big-endian word at addr.
func (m *Memory) Fetch(addr uint16) (uint16, error) {
	if int(addr)+1 >= MemorySize {
		return 0, addressError(int(addr))
	}
	hi := m.bytes[addr]
	lo := m.bytes[addr+1]

	return uint16(hi)<<8 | uint16(lo), nil
}

// slice returns n bytes starting at addr, or an error if any of them lies
// outside of memory.
func (m *Memory) slice(addr uint16, n int) ([]uint8, error) {
	if int(addr)+n > MemorySize {
		return nil, addressError(int(addr) + n - 1)
	}
	return m.bytes[int(addr) : int(addr)+n], nil
}

// LoadFontSet copies both glyph sets into the reserved area.
func (m *Memory) LoadFontSet() {
	copy(m.bytes[FontStart:], chip8Font)
	copy(m.bytes[BigFontStart:], bigFont)
}

func (m *Memory) LoadProgram(program []byte, start uint16) error {
	if int(start)+len(program) > MemorySize {
		return fmt.Errorf("%w: %d bytes at 0x%04x", ErrProgramTooLarge, len(program), start)
	}
	copy(m.bytes[start:], program)
	return nil
}

func (m *Memory) clear() {
	for i := range m.bytes {
		m.bytes[i] = 0
	}
}

var chip8Font = []uint8{
	0xF0, 0x90, 0x90, 0x90, 0xF0, // 0
	0x20, 0x60, 0x20, 0x20, 0x70, // 1
	0xF0, 0x10, 0xF0, 0x80, 0xF0, // 2
	0xF0, 0x10, 0xF0, 0x10, 0xF0, // 3
	0x90, 0x90, 0xF0, 0x10, 0x10, // 4
	0xF0, 0x80, 0xF0, 0x10, 0xF0, // 5
	0xF0, 0x80, 0xF0, 0x90, 0xF0, // 6
	0xF0, 0x10, 0x20, 0x40, 0x40, // 7
	0xF0, 0x90, 0xF0, 0x90, 0xF0, // 8
	0xF0, 0x90, 0xF0, 0x10, 0xF0, // 9
	0xF0, 0x90, 0xF0, 0x90, 0x90, // A
	0xE0, 0x90, 0xE0, 0x90, 0xE0, // B
	0xF0, 0x80, 0x80, 0x80, 0xF0, // C
	0xE0, 0x90, 0x90, 0x90, 0xE0, // D
	0xF0, 0x80, 0xF0, 0x80, 0xF0, // E
	0xF0, 0x80, 0xF0, 0x80, 0x80, // F
}

// 8x10 glyphs used by FX30 in extended mode
var bigFont = []uint8{
	0x3C, 0x7E, 0xE7, 0xC3, 0xC3, 0xC3, 0xC3, 0xE7, 0x7E, 0x3C, // 0
	0x18, 0x38, 0x58, 0x18, 0x18, 0x18, 0x18, 0x18, 0x18, 0x3C, // 1
	0x3E, 0x7F, 0xC3, 0x06, 0x0C, 0x18, 0x30, 0x60, 0xFF, 0xFF, // 2
	0x3C, 0x7E, 0xC3, 0x03, 0x0E, 0x0E, 0x03, 0xC3, 0x7E, 0x3C, // 3
	0x06, 0x0E, 0x1E, 0x36, 0x66, 0xC6, 0xFF, 0xFF, 0x06, 0x06, // 4
	0xFF, 0xFF, 0xC0, 0xC0, 0xFC, 0xFE, 0x03, 0xC3, 0x7E, 0x3C, // 5
	0x3E, 0x7C, 0xC0, 0xC0, 0xFC, 0xFE, 0xC3, 0xC3, 0x7E, 0x3C, // 6
	0xFF, 0xFF, 0x03, 0x06, 0x0C, 0x18, 0x30, 0x60, 0x60, 0x60, // 7
	0x3C, 0x7E, 0xC3, 0xC3, 0x7E, 0x7E, 0xC3, 0xC3, 0x7E, 0x3C, // 8
	0x3C, 0x7E, 0xC3, 0xC3, 0x7F, 0x3F, 0x03, 0x03, 0x3E, 0x7C, // 9
	0x7E, 0xFF, 0xC3, 0xC3, 0xC3, 0xFF, 0xFF, 0xC3, 0xC3, 0xC3, // A
	0xFC, 0xFE, 0xC3, 0xC3, 0xFE, 0xFE, 0xC3, 0xC3, 0xFE, 0xFC, // B
	0x3C, 0xFF, 0xC3, 0xC0, 0xC0, 0xC0, 0xC0, 0xC3, 0xFF, 0x3C, // C
	0xFC, 0xFE, 0xC3, 0xC3, 0xC3, 0xC3, 0xC3, 0xC3, 0xFE, 0xFC, // D
	0xFF, 0xFF, 0xC0, 0xC0, 0xFF, 0xFF, 0xC0, 0xC0, 0xFF, 0xFF, // E
	0xFF, 0xFF, 0xC0, 0xC0, 0xFF, 0xFF, 0xC0, 0xC0, 0xC0, 0xC0, // F
}
