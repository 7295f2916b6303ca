package vm

import (
	"fmt"
	"log/slog"
)

// RunState is the control state of an Executor.
type RunState uint8

const (
	Running RunState = iota
	Paused
	Stopped
)

func (s RunState) String() string {
	switch s {
	case Running:
		return "running"
	case Paused:
		return "paused"
	case Stopped:
		return "stopped"
	default:
		return fmt.Sprintf("RunState(%d)", uint8(s))
	}
}

// Sink receives notifications from the execution loop. Every method is
// called on the loop's worker goroutine and must return quickly; a sink that
// needs to do real work should hand the value over and return. Values passed
// in are copies and may be retained.
//
// RefreshScreen is called after every instruction that changed the display.
// A renderer is free to keep only the latest screen and drop the others.
type Sink interface {
	RefreshScreen(screen Screen)
	RegisterChanged(reg int, value uint8)
	IndexChanged(value uint16)
	DelayTimerChanged(value uint8)
	SoundTimerChanged(value uint8)
	ProgramCounterChanged(value uint16)
	PlaySound()
	StateChanged(state RunState)
}

// NopSink ignores every notification. Embed it to implement only part of Sink.
type NopSink struct{}

func (NopSink) RefreshScreen(Screen) {}
func (NopSink) RegisterChanged(int, uint8) {}
func (NopSink) IndexChanged(uint16) {}
func (NopSink) DelayTimerChanged(uint8) {}
func (NopSink) SoundTimerChanged(uint8) {}
func (NopSink) ProgramCounterChanged(uint16) {}
func (NopSink) PlaySound() {}
func (NopSink) StateChanged(RunState) {}

// Sinks fans every notification out to each of its members in order.
type Sinks []Sink

func (s Sinks) RefreshScreen(screen Screen) {
	for _, sink := range s {
		sink.RefreshScreen(screen)
	}
}

func (s Sinks) RegisterChanged(reg int, value uint8) {
	for _, sink := range s {
		sink.RegisterChanged(reg, value)
	}
}

func (s Sinks) IndexChanged(value uint16) {
	for _, sink := range s {
		sink.IndexChanged(value)
	}
}

func (s Sinks) DelayTimerChanged(value uint8) {
	for _, sink := range s {
		sink.DelayTimerChanged(value)
	}
}

func (s Sinks) SoundTimerChanged(value uint8) {
	for _, sink := range s {
		sink.SoundTimerChanged(value)
	}
}

func (s Sinks) ProgramCounterChanged(value uint16) {
	for _, sink := range s {
		sink.ProgramCounterChanged(value)
	}
}

func (s Sinks) PlaySound() {
	for _, sink := range s {
		sink.PlaySound()
	}
}

func (s Sinks) StateChanged(state RunState) {
	for _, sink := range s {
		sink.StateChanged(state)
	}
}

// LogSink writes every notification to the default logger at debug level.
type LogSink struct{}

func (LogSink) RefreshScreen(screen Screen) {
	slog.Debug("refresh screen", "width", screen.Width, "height", screen.Height)
}

func (LogSink) RegisterChanged(reg int, value uint8) {
	slog.Debug("register", "reg", fmt.Sprintf("v%x", reg), "value", fmt.Sprintf("0x%02x", value))
}

func (LogSink) IndexChanged(value uint16) {
	slog.Debug("index", "value", fmt.Sprintf("0x%04x", value))
}

func (LogSink) DelayTimerChanged(value uint8) {
	slog.Debug("delay timer", "value", value)
}

func (LogSink) SoundTimerChanged(value uint8) {
	slog.Debug("sound timer", "value", value)
}

func (LogSink) ProgramCounterChanged(value uint16) {
	slog.Debug("pc", "value", fmt.Sprintf("0x%04x", value))
}

func (LogSink) PlaySound() {
	slog.Debug("beep")
}

func (LogSink) StateChanged(state RunState) {
	slog.Info("state", "state", state)
}
