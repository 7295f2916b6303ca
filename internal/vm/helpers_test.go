package vm

import (
	"math/rand/v2"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

// program encodes words the way they sit in a ROM file.
func program(words ...uint16) []byte {
	bs := make([]byte, 0, 2*len(words))
	for _, w := range words {
		bs = append(bs, byte(w>>8), byte(w))
	}
	return bs
}

func newTestMachine(t *testing.T, words ...uint16) *Machine {
	t.Helper()

	m := NewMachine(rand.New(rand.NewPCG(1, 2)))
	require.NoError(t, m.LoadProgram(program(words...)))
	return m
}

// recordSink keeps every notification it receives.
type recordSink struct {
	mu        sync.Mutex
	screens   []Screen
	registers map[int][]uint8
	indexes   []uint16
	delays    []uint8
	sounds    []uint8
	pcs       []uint16
	beeps     int
	states    []RunState
}

func newRecordSink() *recordSink {
	return &recordSink{registers: make(map[int][]uint8)}
}

func (r *recordSink) RefreshScreen(screen Screen) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.screens = append(r.screens, screen)
}

func (r *recordSink) RegisterChanged(reg int, value uint8) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.registers[reg] = append(r.registers[reg], value)
}

func (r *recordSink) IndexChanged(value uint16) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.indexes = append(r.indexes, value)
}

func (r *recordSink) DelayTimerChanged(value uint8) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.delays = append(r.delays, value)
}

func (r *recordSink) SoundTimerChanged(value uint8) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sounds = append(r.sounds, value)
}

func (r *recordSink) ProgramCounterChanged(value uint16) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pcs = append(r.pcs, value)
}

func (r *recordSink) PlaySound() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.beeps++
}

func (r *recordSink) StateChanged(state RunState) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.states = append(r.states, state)
}

func (r *recordSink) lastState() (RunState, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.states) == 0 {
		return 0, false
	}
	return r.states[len(r.states)-1], true
}

func (r *recordSink) beepCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.beeps
}

func (r *recordSink) lastScreen() (Screen, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.screens) == 0 {
		return Screen{}, false
	}
	return r.screens[len(r.screens)-1], true
}

func (r *recordSink) delayValues() []uint8 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]uint8(nil), r.delays...)
}

func (r *recordSink) registerValues(reg int) []uint8 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]uint8(nil), r.registers[reg]...)
}
