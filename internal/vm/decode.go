package vm

import (
	"fmt"
	"strings"
)

// Kind identifies one instruction of the CHIP-8 set or its extended
// (128x64) additions.
type Kind uint8

const (
	KindUnsupported Kind = iota

	KindCls     // 00E0
	KindRet     // 00EE
	KindJp      // 1NNN
	KindCall    // 2NNN
	KindSeByte  // 3XNN
	KindSneByte // 4XNN
	KindSeReg   // 5XY0
	KindLdByte  // 6XNN
	KindAddByte // 7XNN
	KindLdReg   // 8XY0
	KindOr      // 8XY1
	KindAnd     // 8XY2
	KindXor     // 8XY3
	KindAddReg  // 8XY4
	KindSub     // 8XY5
	KindShr     // 8XY6
	KindSubn    // 8XY7
	KindShl     // 8XYE
	KindSneReg  // 9XY0
	KindLdI     // ANNN
	KindJpV0    // BNNN
	KindRnd     // CXNN
	KindDrw     // DXYN
	KindSkp     // EX9E
	KindSknp    // EXA1
	KindLdVxDT  // FX07
	KindLdVxK   // FX0A
	KindLdDTVx  // FX15
	KindLdSTVx  // FX18
	KindAddI    // FX1E
	KindLdF     // FX29
	KindLdB     // FX33
	KindStore   // FX55
	KindLoad    // FX65

	KindScd       // 00CN
	KindScr       // 00FB
	KindScl       // 00FC
	KindExit      // 00FD
	KindHigh      // 00FF
	KindLdHF      // FX30
	KindSaveFlags // FX75
	KindLoadFlags // FX85

	kindCount
)

// Instruction is a decoded opcode. Only the operand fields that the kind
// uses are meaningful.
type Instruction struct {
	Opcode uint16
	Kind   Kind

	X   uint8  // register index, bits 8-11
	Y   uint8  // register index, bits 4-7
	N   uint8  // nibble, bits 0-3
	NN  uint8  // immediate byte
	NNN uint16 // 12-bit address
}

type pattern struct {
	mask  uint16
	value uint16
	kind  Kind
}

// patterns are grouped by the first nibble of the opcode; inside a group
// the first matching pattern wins.
var patterns = [16][]pattern{
	0x0: {
		{0xFFFF, 0x00E0, KindCls},
		{0xFFFF, 0x00EE, KindRet},
		{0xFFF0, 0x00C0, KindScd},
		{0xFFFF, 0x00FB, KindScr},
		{0xFFFF, 0x00FC, KindScl},
		{0xFFFF, 0x00FD, KindExit},
		{0xFFFF, 0x00FF, KindHigh},
	},
	0x1: {{0xF000, 0x1000, KindJp}},
	0x2: {{0xF000, 0x2000, KindCall}},
	0x3: {{0xF000, 0x3000, KindSeByte}},
	0x4: {{0xF000, 0x4000, KindSneByte}},
	0x5: {{0xF00F, 0x5000, KindSeReg}},
	0x6: {{0xF000, 0x6000, KindLdByte}},
	0x7: {{0xF000, 0x7000, KindAddByte}},
	0x8: {
		{0xF00F, 0x8000, KindLdReg},
		{0xF00F, 0x8001, KindOr},
		{0xF00F, 0x8002, KindAnd},
		{0xF00F, 0x8003, KindXor},
		{0xF00F, 0x8004, KindAddReg},
		{0xF00F, 0x8005, KindSub},
		{0xF00F, 0x8006, KindShr},
		{0xF00F, 0x8007, KindSubn},
		{0xF00F, 0x800E, KindShl},
	},
	0x9: {{0xF00F, 0x9000, KindSneReg}},
	0xA: {{0xF000, 0xA000, KindLdI}},
	0xB: {{0xF000, 0xB000, KindJpV0}},
	0xC: {{0xF000, 0xC000, KindRnd}},
	0xD: {{0xF000, 0xD000, KindDrw}},
	0xE: {
		{0xF0FF, 0xE09E, KindSkp},
		{0xF0FF, 0xE0A1, KindSknp},
	},
	0xF: {
		{0xF0FF, 0xF007, KindLdVxDT},
		{0xF0FF, 0xF00A, KindLdVxK},
		{0xF0FF, 0xF015, KindLdDTVx},
		{0xF0FF, 0xF018, KindLdSTVx},
		{0xF0FF, 0xF01E, KindAddI},
		{0xF0FF, 0xF029, KindLdF},
		{0xF0FF, 0xF030, KindLdHF},
		{0xF0FF, 0xF033, KindLdB},
		{0xF0FF, 0xF055, KindStore},
		{0xF0FF, 0xF065, KindLoad},
		{0xF0FF, 0xF075, KindSaveFlags},
		{0xF0FF, 0xF085, KindLoadFlags},
	},
}

// Decode classifies a raw word. It never fails: words that match no
// pattern come back as KindUnsupported carrying the word.
func Decode(opcode uint16) Instruction {
	instr := Instruction{
		Opcode: opcode,
		X:      uint8((opcode & 0x0F00) >> 8),
		Y:      uint8((opcode & 0x00F0) >> 4),
		N:      uint8(opcode & 0x000F),
		NN:     uint8(opcode & 0x00FF),
		NNN:    opcode & 0x0FFF,
	}

	for _, p := range patterns[opcode>>12] {
		if opcode&p.mask == p.value {
			instr.Kind = p.kind
			return instr
		}
	}

	instr.Kind = KindUnsupported
	return instr
}

type operandShape uint8

const (
	shapeNone operandShape = iota
	shapeAddr
	shapeX
	shapeXByte
	shapeXY
	shapeXYN
	shapeN
	shapeRange
	shapeRaw
)

type kindInfo struct {
	mnemonic string
	title    string
	shape    operandShape
}

var kinds = [kindCount]kindInfo{
	KindUnsupported: {"unknown", "unsupported", shapeRaw},

	KindCls:     {"cls", "clear screen", shapeNone},
	KindRet:     {"rts", "return", shapeNone},
	KindJp:      {"jmp", "jump", shapeAddr},
	KindCall:    {"jsr", "call", shapeAddr},
	KindSeByte:  {"skeq", "skip if equal", shapeXByte},
	KindSneByte: {"skne", "skip if not equal", shapeXByte},
	KindSeReg:   {"skeq", "skip if equal", shapeXY},
	KindLdByte:  {"mov", "load", shapeXByte},
	KindAddByte: {"add", "add", shapeXByte},
	KindLdReg:   {"mov", "load", shapeXY},
	KindOr:      {"or", "or", shapeXY},
	KindAnd:     {"and", "and", shapeXY},
	KindXor:     {"xor", "xor", shapeXY},
	KindAddReg:  {"add", "add with carry", shapeXY},
	KindSub:     {"sub", "subtract", shapeXY},
	KindShr:     {"shr", "shift right", shapeX},
	KindSubn:    {"rsb", "reverse subtract", shapeXY},
	KindShl:     {"shl", "shift left", shapeX},
	KindSneReg:  {"skne", "skip if not equal", shapeXY},
	KindLdI:     {"mvi", "load index", shapeAddr},
	KindJpV0:    {"jmi", "jump indexed", shapeAddr},
	KindRnd:     {"rand", "random", shapeXByte},
	KindDrw:     {"sprite", "draw", shapeXYN},
	KindSkp:     {"skpr", "skip if key pressed", shapeX},
	KindSknp:    {"skup", "skip if key not pressed", shapeX},
	KindLdVxDT:  {"gdelay", "get delay timer", shapeX},
	KindLdVxK:   {"key", "wait for key", shapeX},
	KindLdDTVx:  {"sdelay", "set delay timer", shapeX},
	KindLdSTVx:  {"ssound", "set sound timer", shapeX},
	KindAddI:    {"adi", "add to index", shapeX},
	KindLdF:     {"font", "load font glyph", shapeX},
	KindLdB:     {"bcd", "store bcd", shapeX},
	KindStore:   {"str", "store registers", shapeRange},
	KindLoad:    {"ldr", "load registers", shapeRange},

	KindScd:       {"scd", "scroll down", shapeN},
	KindScr:       {"scr", "scroll right", shapeNone},
	KindScl:       {"scl", "scroll left", shapeNone},
	KindExit:      {"exit", "exit", shapeNone},
	KindHigh:      {"high", "extended screen mode", shapeNone},
	KindLdHF:      {"xfont", "load big font glyph", shapeX},
	KindSaveFlags: {"sflags", "save flags", shapeRange},
	KindLoadFlags: {"lflags", "load flags", shapeRange},
}

// Mnemonic returns the short assembler name of the kind.
func (k Kind) Mnemonic() string {
	if k >= kindCount {
		return kinds[KindUnsupported].mnemonic
	}
	return kinds[k].mnemonic
}

// Title returns a human readable name of the kind.
func (k Kind) Title() string {
	if k >= kindCount {
		return kinds[KindUnsupported].title
	}
	return kinds[k].title
}

func (k Kind) String() string {
	return k.Mnemonic()
}

// Operands returns the formatted operand list.
func (i Instruction) Operands() []string {
	shape := shapeRaw
	if i.Kind < kindCount {
		shape = kinds[i.Kind].shape
	}

	switch shape {
	case shapeAddr:
		return []string{fmt.Sprintf("0x%03x", i.NNN)}
	case shapeX:
		return []string{fmt.Sprintf("v%x", i.X)}
	case shapeXByte:
		return []string{fmt.Sprintf("v%x", i.X), fmt.Sprintf("%d", i.NN)}
	case shapeXY:
		return []string{fmt.Sprintf("v%x", i.X), fmt.Sprintf("v%x", i.Y)}
	case shapeXYN:
		return []string{fmt.Sprintf("v%x", i.X), fmt.Sprintf("v%x", i.Y), fmt.Sprintf("%d", i.N)}
	case shapeN:
		return []string{fmt.Sprintf("%d", i.N)}
	case shapeRange:
		return []string{fmt.Sprintf("v0-v%x", i.X)}
	case shapeRaw:
		return []string{fmt.Sprintf("0x%04X", i.Opcode)}
	default:
		return nil
	}
}

// String formats the instruction as "mnemonic operands", e.g. "jmp 0x228".
func (i Instruction) String() string {
	return join(i.Kind.Mnemonic(), i.Operands())
}

// Describe formats the instruction with its long name, e.g. "jump 0x228".
func (i Instruction) Describe() string {
	return join(i.Kind.Title(), i.Operands())
}

func join(name string, operands []string) string {
	if len(operands) == 0 {
		return name
	}
	return name + " " + strings.Join(operands, ", ")
}
