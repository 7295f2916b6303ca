package vm

import (
	"fmt"
	"math/rand/v2"
	"time"
)

const (
	StackSize     = 16
	RegisterCount = 16
	KeyCount      = 16
	FlagCount     = 8

	InstructionSize = 2
)

type Key uint8

const (
	Key0 = Key(iota)
	Key1
	Key2
	Key3
	Key4
	Key5
	Key6
	Key7
	Key8
	Key9
	KeyA
	KeyB
	KeyC
	KeyD
	KeyE
	KeyF
)

// Machine holds the complete emulated state. It is not safe for concurrent
// use; the Executor owns one and serializes every access on its worker.
type Machine struct {
	memory    Memory
	registers [RegisterCount]uint8 // V registers (V0-VF)

	stack [StackSize]uint16 // Stack
	sp    int               // Stack pointer

	pc    uint16 // Program counter
	index uint16 // Index register

	delayTimer uint8 // Delay timer
	soundTimer uint8 // Sound timer

	display  display
	keypad   [KeyCount]bool
	drawFlag bool // Indicates a display change has occurred

	flags [FlagCount]uint8 // RPL user flags (FX75/FX85)

	waitingKey bool
	waitingReg uint8
	rand       *rand.Rand
}

// State is a copy of the externally observable machine fields.
type State struct {
	Registers     [RegisterCount]uint8
	Index         uint16
	PC            uint16
	Stack         []uint16
	DelayTimer    uint8
	SoundTimer    uint8
	Keypad        [KeyCount]bool
	Extended      bool
	WaitingForKey bool
}

// NewMachine returns a machine in its initial state with the font set
// loaded. A nil source seeds one from the clock.
func NewMachine(rnd *rand.Rand) *Machine {
	if rnd == nil {
		seed := uint64(time.Now().UnixNano())
		rnd = rand.New(rand.NewPCG(seed, seed>>1))
	}

	m := &Machine{rand: rnd}
	m.Reset()
	return m
}

// Reset restores every field to its initial value and reloads the font set.
// The program has to be loaded again by the caller.
func (m *Machine) Reset() {
	m.memory.clear()
	m.memory.LoadFontSet()

	m.registers = [RegisterCount]uint8{}
	m.stack = [StackSize]uint16{}
	m.sp = 0
	m.pc = ProgramStart
	m.index = 0
	m.delayTimer = 0
	m.soundTimer = 0
	m.display = newDisplay()
	m.keypad = [KeyCount]bool{}
	m.flags = [FlagCount]uint8{}
	m.waitingKey = false
	m.waitingReg = 0
	m.drawFlag = true
}

func (m *Machine) LoadProgram(program []byte) error {
	if len(program) > MaxProgramSize {
		return fmt.Errorf("%w: %d bytes, at most %d fit", ErrProgramTooLarge, len(program), MaxProgramSize)
	}
	return m.memory.LoadProgram(program, ProgramStart)
}

func (m *Machine) Registers() [RegisterCount]uint8 { return m.registers }
func (m *Machine) Index() uint16 { return m.index }
func (m *Machine) PC() uint16 { return m.pc }
func (m *Machine) DelayTimer() uint8 { return m.delayTimer }
func (m *Machine) SoundTimer() uint8 { return m.soundTimer }
func (m *Machine) Extended() bool { return m.display.extended }
func (m *Machine) WaitingForKey() bool { return m.waitingKey }
func (m *Machine) Screen() Screen { return m.display.snapshot() }

func (m *Machine) Stack() []uint16 {
	stack := make([]uint16, m.sp)
	copy(stack, m.stack[:m.sp])
	return stack
}

func (m *Machine) ReadMemory(addr uint16) (uint8, error) {
	return m.memory.Read(addr)
}

func (m *Machine) Snapshot() State {
	return State{
		Registers:     m.registers,
		Index:         m.index,
		PC:            m.pc,
		Stack:         m.Stack(),
		DelayTimer:    m.delayTimer,
		SoundTimer:    m.soundTimer,
		Keypad:        m.keypad,
		Extended:      m.display.extended,
		WaitingForKey: m.waitingKey,
	}
}

// Tick is one 60 Hz timer period. It reports whether the sound timer was
// running during it. Both timers stop at zero.
func (m *Machine) Tick() (beep bool) {
	if m.delayTimer > 0 {
		m.delayTimer--
	}

	if m.soundTimer > 0 {
		beep = true
		m.soundTimer--
	}

	return beep
}

// KeyDown marks the key pressed. A machine parked on FX0A takes the key
// and moves on to the next instruction.
func (m *Machine) KeyDown(key Key) {
	key &= 0xF
	m.keypad[key] = true

	if m.waitingKey {
		m.registers[m.waitingReg] = uint8(key)
		m.waitingKey = false
		m.pc += InstructionSize
	}
}

func (m *Machine) KeyUp(key Key) {
	m.keypad[key&0xF] = false
}

// EnableExtendedMode switches the display to 128x64.
func (m *Machine) EnableExtendedMode() {
	if !m.display.extended {
		m.display.extend()
		m.drawFlag = true
	}
}

// Step fetches, decodes and executes the instruction at PC.
func (m *Machine) Step() (Instruction, error) {
	opcode, err := m.memory.Fetch(m.pc)
	if err != nil {
		return Instruction{}, fmt.Errorf("fetch: %w", err)
	}

	instr := Decode(opcode)
	return instr, m.Execute(instr)
}

func (m *Machine) push(addr uint16) error {
	if m.sp >= StackSize {
		return fmt.Errorf("%w: call at 0x%04x", ErrStackOverflow, m.pc)
	}
	m.stack[m.sp] = addr
	m.sp++
	return nil
}

func (m *Machine) pop() (uint16, error) {
	if m.sp == 0 {
		return 0, fmt.Errorf("%w: return at 0x%04x", ErrStackUnderflow, m.pc)
	}
	m.sp--
	return m.stack[m.sp], nil
}

func (m *Machine) next() {
	m.pc += InstructionSize
}

func (m *Machine) skipIf(cond bool) {
	if cond {
		m.pc += 2 * InstructionSize
	} else {
		m.pc += InstructionSize
	}
}

func (m *Machine) setFlag(set bool) {
	if set {
		m.registers[0xF] = 1
	} else {
		m.registers[0xF] = 0
	}
}
