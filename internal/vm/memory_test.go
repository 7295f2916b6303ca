package vm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryReadWrite(t *testing.T) {
	var m Memory

	require.NoError(t, m.Write(0x300, 0xAB))
	v, err := m.Read(0x300)
	require.NoError(t, err)
	assert.Equal(t, uint8(0xAB), v)

	require.NoError(t, m.Write(0xFFF, 0x01))
	v, err = m.Read(0xFFF)
	require.NoError(t, err)
	assert.Equal(t, uint8(0x01), v)
}

func TestMemoryOutOfRange(t *testing.T) {
	var m Memory

	_, err := m.Read(0x1000)
	assert.ErrorIs(t, err, ErrAddressOutOfRange)

	err = m.Write(0x1000, 1)
	assert.ErrorIs(t, err, ErrAddressOutOfRange)

	_, err = m.Fetch(0xFFF)
	assert.ErrorIs(t, err, ErrAddressOutOfRange)

	_, err = m.slice(0xFFE, 3)
	assert.ErrorIs(t, err, ErrAddressOutOfRange)

	cells, err := m.slice(0xFFD, 3)
	require.NoError(t, err)
	assert.Len(t, cells, 3)
}

func TestMemoryFetchIsBigEndian(t *testing.T) {
	var m Memory
	require.NoError(t, m.LoadProgram([]byte{0x12, 0x28}, ProgramStart))

	w, err := m.Fetch(ProgramStart)
	require.NoError(t, err)
	assert.Equal(t, uint16(0x1228), w)
}

func TestMemoryLoadProgramTooLarge(t *testing.T) {
	var m Memory

	require.NoError(t, m.LoadProgram(make([]byte, MaxProgramSize), ProgramStart))

	err := m.LoadProgram(make([]byte, MaxProgramSize+1), ProgramStart)
	assert.ErrorIs(t, err, ErrProgramTooLarge)
}

func TestFontSetRoundTrip(t *testing.T) {
	m := newTestMachine(t,
		0xA300, // mvi 0x300
		0x6007, // mov v0, 7
		0xF355, // str v0-v3
		0xF033, // bcd v0
	)

	for i := 0; i < 4; i++ {
		_, err := m.Step()
		require.NoError(t, err)
	}

	for addr := 0; addr < 80; addr++ {
		v, err := m.ReadMemory(uint16(addr))
		require.NoError(t, err)
		assert.Equal(t, chip8Font[addr], v, "font byte 0x%02x", addr)
	}
}

func TestResetReloadsFontSet(t *testing.T) {
	m := newTestMachine(t, 0x6000, 0xA000, 0xF055) // overwrite font byte 0

	for i := 0; i < 3; i++ {
		_, err := m.Step()
		require.NoError(t, err)
	}
	v, _ := m.ReadMemory(0)
	require.Equal(t, uint8(0), v)

	m.Reset()

	v, _ = m.ReadMemory(0)
	assert.Equal(t, chip8Font[0], v)
	assert.Equal(t, ProgramStart, m.PC())

	// the program is not reloaded
	w, err := m.memory.Fetch(ProgramStart)
	require.NoError(t, err)
	assert.Equal(t, uint16(0), w)
}
