package vm

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDisassemble(t *testing.T) {
	listing := Disassemble(program(0x00E0, 0x1228))

	require.Len(t, listing, 2)

	assert.Equal(t, uint16(0x200), listing[0].Addr)
	assert.Equal(t, KindCls, listing[0].Instruction.Kind)
	assert.Equal(t, "clear screen", listing[0].Instruction.Describe())

	assert.Equal(t, uint16(0x202), listing[1].Addr)
	assert.Equal(t, KindJp, listing[1].Instruction.Kind)
	assert.Equal(t, uint16(0x228), listing[1].Instruction.NNN)
	assert.Equal(t, "jump 0x228", listing[1].Instruction.Describe())
}

func TestDisassembleIsLinearSweep(t *testing.T) {
	// the jump skips the sprite data, which is decoded anyway
	listing := Disassemble(program(0x1204, 0xFFFF, 0x00EE))

	require.Len(t, listing, 3)
	assert.Equal(t, KindJp, listing[0].Instruction.Kind)
	assert.Equal(t, KindUnsupported, listing[1].Instruction.Kind)
	assert.Equal(t, uint16(0xFFFF), listing[1].Instruction.Opcode)
	assert.Equal(t, KindRet, listing[2].Instruction.Kind)
}

func TestDisassembleOddLength(t *testing.T) {
	listing := Disassemble([]byte{0x00, 0xE0, 0x12})

	require.Len(t, listing, 2)
	assert.Equal(t, uint16(0x202), listing[1].Addr)
	assert.Equal(t, uint16(0x1200), listing[1].Instruction.Opcode)
}

func TestDisassembleIsRestartable(t *testing.T) {
	bs := program(0x6001, 0xD125, 0x00EE)
	assert.Equal(t, Disassemble(bs), Disassemble(bs))
	assert.Empty(t, Disassemble(nil))
}

func TestListingIndexOf(t *testing.T) {
	listing := Disassemble(program(0x00E0, 0x1228, 0x00EE))

	i, ok := listing.IndexOf(0x204)
	assert.True(t, ok)
	assert.Equal(t, 2, i)

	_, ok = listing.IndexOf(0x206)
	assert.False(t, ok)

	_, ok = listing.IndexOf(0x100)
	assert.False(t, ok)
}

func TestListingWriteTo(t *testing.T) {
	var sb strings.Builder

	_, err := Disassemble(program(0x00E0, 0x1228)).WriteTo(&sb)
	require.NoError(t, err)

	assert.Equal(t, "0x0200  00E0  cls\n0x0202  1228  jmp 0x228\n", sb.String())
}
