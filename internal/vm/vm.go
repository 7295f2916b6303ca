package vm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"sync/atomic"
	"time"
)

const (
	TimerFrequency = 60
	TimerPeriod    = time.Second / TimerFrequency

	DefaultDelay = time.Millisecond
)

var errAlreadyStarted = errors.New("executor already started")

// Executor drives a Machine: it runs fetch-decode-execute on a configurable
// cadence, ticks the timers at 60 Hz and applies control requests. All of it
// happens on the single goroutine that calls Run, so the machine is never
// touched concurrently. Control methods may be called from any goroutine.
type Executor struct {
	machine *Machine
	sink    Sink
	delay   time.Duration
	state   RunState

	clock    *time.Timer
	commands chan command
	done     chan struct{}
	started  atomic.Bool
	err      error
}

type commandKind uint8

const (
	cmdPause commandKind = iota
	cmdTogglePause
	cmdStep
	cmdStop
	cmdDelay
	cmdKeyDown
	cmdKeyUp
	cmdExtended
	cmdSnapshot
	cmdScreen
)

type command struct {
	kind   commandKind
	paused bool
	delay  time.Duration
	key    Key

	state  chan State
	screen chan Screen
}

type Option func(*Executor)

// WithDelay sets the sleep between two instructions.
func WithDelay(delay time.Duration) Option {
	return func(e *Executor) {
		e.delay = delay
	}
}

// WithPaused makes the executor start in the Paused state.
func WithPaused(paused bool) Option {
	return func(e *Executor) {
		if paused {
			e.state = Paused
		}
	}
}

func WithSink(sink Sink) Option {
	return func(e *Executor) {
		e.sink = sink
	}
}

// WithRand sets the random source used by CXNN.
func WithRand(rnd *rand.Rand) Option {
	return func(e *Executor) {
		e.machine.rand = rnd
	}
}

// NewExecutor builds a fresh machine with program loaded at ProgramStart.
func NewExecutor(program []byte, opts ...Option) (*Executor, error) {
	e := &Executor{
		machine:  NewMachine(nil),
		sink:     NopSink{},
		delay:    DefaultDelay,
		state:    Running,
		commands: make(chan command, 64),
		done:     make(chan struct{}),
	}

	for _, opt := range opts {
		opt(e)
	}

	if err := e.machine.LoadProgram(program); err != nil {
		return nil, err
	}
	slog.Info("load program", "at", fmt.Sprintf("0x%04x", ProgramStart), "n", len(program))

	return e, nil
}

// Run blocks until the executor stops, because of Stop, ctx cancellation,
// the program executing 00FD, or an error. Only errors are returned.
func (e *Executor) Run(ctx context.Context) error {
	if !e.started.CompareAndSwap(false, true) {
		return errAlreadyStarted
	}

	err := e.loop(ctx)
	e.err = err
	close(e.done)
	return err
}

// Done is closed once Run has returned and the machine is released.
func (e *Executor) Done() <-chan struct{} {
	return e.done
}

// Wait blocks until Run has returned and returns its error.
func (e *Executor) Wait() error {
	<-e.done
	return e.err
}

func (e *Executor) loop(ctx context.Context) error {
	ticker := time.NewTicker(TimerPeriod)
	defer ticker.Stop()

	e.clock = time.NewTimer(e.delay)
	defer e.clock.Stop()

	e.sink.StateChanged(e.state)
	e.sink.RefreshScreen(e.machine.Screen())
	e.machine.drawFlag = false

	for {
		var instructions <-chan time.Time
		if e.state == Running && !e.machine.WaitingForKey() {
			instructions = e.clock.C
		}

		select {
		case <-ctx.Done():
			e.setState(Stopped)
			return nil

		case cmd := <-e.commands:
			stop, err := e.apply(ctx, cmd)
			if err != nil {
				return e.fail(err)
			}
			if stop {
				return nil
			}

		case <-ticker.C:
			e.tick()

		case <-instructions:
			stop, err := e.step(ctx)
			if err != nil {
				return e.fail(err)
			}
			if stop {
				return nil
			}
			e.clock.Reset(e.delay)
		}
	}
}

func (e *Executor) apply(ctx context.Context, cmd command) (bool, error) {
	switch cmd.kind {
	case cmdPause:
		e.pause(cmd.paused)

	case cmdTogglePause:
		e.pause(e.state == Running)

	case cmdStep:
		if e.state != Paused || e.machine.WaitingForKey() {
			return false, nil
		}
		return e.step(ctx)

	case cmdStop:
		e.setState(Stopped)
		return true, nil

	case cmdDelay:
		e.delay = cmd.delay
		e.clock.Reset(cmd.delay)
		slog.Debug("set delay", "delay", cmd.delay)

	case cmdKeyDown:
		before := e.observe()
		e.machine.KeyDown(cmd.key)
		e.notify(before)

	case cmdKeyUp:
		e.machine.KeyUp(cmd.key)

	case cmdExtended:
		e.machine.EnableExtendedMode()
		e.notify(e.observe())

	case cmdSnapshot:
		cmd.state <- e.machine.Snapshot()

	case cmdScreen:
		cmd.screen <- e.machine.Screen()
	}

	return false, nil
}

func (e *Executor) pause(paused bool) {
	switch {
	case paused && e.state == Running:
		e.setState(Paused)
	case !paused && e.state == Paused:
		e.setState(Running)
	}
}

func (e *Executor) setState(state RunState) {
	if e.state == state {
		return
	}
	e.state = state
	slog.Debug("state changed", "state", state)
	e.sink.StateChanged(state)
}

// step runs one instruction and reports whether the program asked to exit.
func (e *Executor) step(ctx context.Context) (bool, error) {
	before := e.observe()

	instr, err := e.machine.Step()

	if slog.Default().Enabled(ctx, slog.LevelDebug) {
		slog.Debug(
			"exec",
			"pc", fmt.Sprintf("0x%04x", before.pc),
			"opcode", fmt.Sprintf("0x%04x", instr.Opcode),
			"instr", instr.String(),
		)
	}

	e.notify(before)

	if errors.Is(err, errExit) {
		slog.Info("program exited", "pc", fmt.Sprintf("0x%04x", before.pc))
		e.setState(Stopped)
		return true, nil
	}

	return false, err
}

func (e *Executor) tick() {
	delay, sound := e.machine.DelayTimer(), e.machine.SoundTimer()

	beep := e.machine.Tick()

	if d := e.machine.DelayTimer(); d != delay {
		e.sink.DelayTimerChanged(d)
	}
	if s := e.machine.SoundTimer(); s != sound {
		e.sink.SoundTimerChanged(s)
	}
	if beep {
		e.sink.PlaySound()
	}
}

func (e *Executor) fail(err error) error {
	slog.Error("program stopped", "pc", fmt.Sprintf("0x%04x", e.machine.PC()), "err", err)
	e.setState(Stopped)
	return err
}

// observed holds the fields that are diffed around an instruction.
type observed struct {
	registers [RegisterCount]uint8
	index     uint16
	pc        uint16
	delay     uint8
	sound     uint8
}

func (e *Executor) observe() observed {
	return observed{
		registers: e.machine.registers,
		index:     e.machine.index,
		pc:        e.machine.pc,
		delay:     e.machine.delayTimer,
		sound:     e.machine.soundTimer,
	}
}

func (e *Executor) notify(before observed) {
	m := e.machine

	for i, v := range m.registers {
		if v != before.registers[i] {
			e.sink.RegisterChanged(i, v)
		}
	}
	if m.index != before.index {
		e.sink.IndexChanged(m.index)
	}
	if m.delayTimer != before.delay {
		e.sink.DelayTimerChanged(m.delayTimer)
	}
	if m.soundTimer != before.sound {
		e.sink.SoundTimerChanged(m.soundTimer)
	}
	if m.pc != before.pc {
		e.sink.ProgramCounterChanged(m.pc)
	}

	if m.drawFlag {
		e.sink.RefreshScreen(m.Screen())
		m.drawFlag = false
	}
}

func (e *Executor) send(cmd command) {
	select {
	case e.commands <- cmd:
	case <-e.done:
	}
}

// Pause moves a running executor to Paused, or a paused one back to Running.
func (e *Executor) Pause(paused bool) {
	e.send(command{kind: cmdPause, paused: paused})
}

func (e *Executor) TogglePause() {
	e.send(command{kind: cmdTogglePause})
}

// Step executes exactly one instruction. It is ignored unless paused.
func (e *Executor) Step() {
	e.send(command{kind: cmdStep})
}

// Stop ends the run after the instruction in flight. Use Wait to await it.
func (e *Executor) Stop() {
	e.send(command{kind: cmdStop})
}

func (e *Executor) SetDelay(delay time.Duration) {
	e.send(command{kind: cmdDelay, delay: delay})
}

func (e *Executor) KeyDown(key Key) {
	e.send(command{kind: cmdKeyDown, key: key})
}

func (e *Executor) KeyUp(key Key) {
	e.send(command{kind: cmdKeyUp, key: key})
}

// EnableExtendedScreenMode switches the display to 128x64 as 00FF does.
func (e *Executor) EnableExtendedScreenMode() {
	e.send(command{kind: cmdExtended})
}

// Snapshot returns a copy of the machine state. It needs Run to be running
// or to have returned.
func (e *Executor) Snapshot() State {
	reply := make(chan State, 1)
	select {
	case e.commands <- command{kind: cmdSnapshot, state: reply}:
		select {
		case s := <-reply:
			return s
		case <-e.done:
		}
	case <-e.done:
	}

	return e.machine.Snapshot()
}

// Screen returns a copy of the display buffer, with the same caveats as
// Snapshot.
func (e *Executor) Screen() Screen {
	reply := make(chan Screen, 1)
	select {
	case e.commands <- command{kind: cmdScreen, screen: reply}:
		select {
		case s := <-reply:
			return s
		case <-e.done:
		}
	case <-e.done:
	}

	return e.machine.Screen()
}
