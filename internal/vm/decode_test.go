package vm

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDecode(t *testing.T) {
	tests := []struct {
		opcode   uint16
		kind     Kind
		mnemonic string
	}{
		{0x00E0, KindCls, "cls"},
		{0x00EE, KindRet, "rts"},
		{0x1228, KindJp, "jmp 0x228"},
		{0x2ABC, KindCall, "jsr 0xabc"},
		{0x3A12, KindSeByte, "skeq va, 18"},
		{0x4B00, KindSneByte, "skne vb, 0"},
		{0x5120, KindSeReg, "skeq v1, v2"},
		{0x63FF, KindLdByte, "mov v3, 255"},
		{0x7401, KindAddByte, "add v4, 1"},
		{0x8450, KindLdReg, "mov v4, v5"},
		{0x8451, KindOr, "or v4, v5"},
		{0x8452, KindAnd, "and v4, v5"},
		{0x8453, KindXor, "xor v4, v5"},
		{0x8454, KindAddReg, "add v4, v5"},
		{0x8455, KindSub, "sub v4, v5"},
		{0x8456, KindShr, "shr v4"},
		{0x8457, KindSubn, "rsb v4, v5"},
		{0x845E, KindShl, "shl v4"},
		{0x9450, KindSneReg, "skne v4, v5"},
		{0xA123, KindLdI, "mvi 0x123"},
		{0xB300, KindJpV0, "jmi 0x300"},
		{0xC10F, KindRnd, "rand v1, 15"},
		{0xD125, KindDrw, "sprite v1, v2, 5"},
		{0xE39E, KindSkp, "skpr v3"},
		{0xE3A1, KindSknp, "skup v3"},
		{0xF107, KindLdVxDT, "gdelay v1"},
		{0xF10A, KindLdVxK, "key v1"},
		{0xF115, KindLdDTVx, "sdelay v1"},
		{0xF118, KindLdSTVx, "ssound v1"},
		{0xF11E, KindAddI, "adi v1"},
		{0xF129, KindLdF, "font v1"},
		{0xF133, KindLdB, "bcd v1"},
		{0xF555, KindStore, "str v0-v5"},
		{0xF565, KindLoad, "ldr v0-v5"},
		{0x00C4, KindScd, "scd 4"},
		{0x00FB, KindScr, "scr"},
		{0x00FC, KindScl, "scl"},
		{0x00FD, KindExit, "exit"},
		{0x00FF, KindHigh, "high"},
		{0xF230, KindLdHF, "xfont v2"},
		{0xF775, KindSaveFlags, "sflags v0-v7"},
		{0xF785, KindLoadFlags, "lflags v0-v7"},
	}

	for _, tt := range tests {
		t.Run(tt.mnemonic, func(t *testing.T) {
			instr := Decode(tt.opcode)
			assert.Equal(t, tt.kind, instr.Kind)
			assert.Equal(t, tt.opcode, instr.Opcode)
			assert.Equal(t, tt.mnemonic, instr.String())
		})
	}
}

func TestDecodeOperands(t *testing.T) {
	instr := Decode(0xD7A3)

	assert.Equal(t, uint8(0x7), instr.X)
	assert.Equal(t, uint8(0xA), instr.Y)
	assert.Equal(t, uint8(0x3), instr.N)
	assert.Equal(t, uint8(0xA3), instr.NN)
	assert.Equal(t, uint16(0x7A3), instr.NNN)
	assert.Equal(t, []string{"v7", "va", "3"}, instr.Operands())
}

func TestDecodeUnsupported(t *testing.T) {
	for _, opcode := range []uint16{
		0x0000, // sys 0x000
		0x0123, // sys 0x123
		0x00FE, // low resolution, the extended mode never reverts
		0x5121,
		0x800F,
		0x9121,
		0xE000,
		0xF0FF,
	} {
		instr := Decode(opcode)
		assert.Equal(t, KindUnsupported, instr.Kind, "0x%04X", opcode)
		assert.Equal(t, opcode, instr.Opcode)
	}

	assert.Equal(t, "unknown 0x5121", Decode(0x5121).String())
	assert.Equal(t, "unsupported 0x5121", Decode(0x5121).Describe())
}

func TestDescribe(t *testing.T) {
	assert.Equal(t, "clear screen", Decode(0x00E0).Describe())
	assert.Equal(t, "jump 0x228", Decode(0x1228).Describe())
	assert.Equal(t, "draw v0, v1, 15", Decode(0xD01F).Describe())
}

func TestDecodeIsPure(t *testing.T) {
	assert.Equal(t, Decode(0x8124), Decode(0x8124))
}
