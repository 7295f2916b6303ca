package term

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/kapitanov/chip8emu/internal/vm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeController struct {
	toggles  int
	steps    int
	resets   int
	extended int
	delay    time.Duration
	down     []vm.Key
	up       []vm.Key
}

func (f *fakeController) TogglePause()                 { f.toggles++ }
func (f *fakeController) Step()                        { f.steps++ }
func (f *fakeController) Reset() error                 { f.resets++; return nil }
func (f *fakeController) SetDelay(delay time.Duration) { f.delay = delay }
func (f *fakeController) Delay() time.Duration         { return f.delay }
func (f *fakeController) KeyDown(key vm.Key)           { f.down = append(f.down, key) }
func (f *fakeController) KeyUp(key vm.Key)             { f.up = append(f.up, key) }
func (f *fakeController) EnableExtendedScreenMode()    { f.extended++ }
func (f *fakeController) Listing() vm.Listing          { return nil }
func (f *fakeController) Executor() *vm.Executor       { return nil }

func TestKeyMap(t *testing.T) {
	layout := "x123qweasdzc4rfv"
	for i, b := range []byte(layout) {
		key, ok := keyMap(b)
		require.True(t, ok, "%q", b)
		assert.Equal(t, vm.Key(i), key, "%q", b)
	}

	_, ok := keyMap('p')
	assert.False(t, ok)
}

func TestHandleControlKeys(t *testing.T) {
	term := newTerminal(nil, &bytes.Buffer{})
	c := &fakeController{delay: 4 * time.Millisecond}
	now := time.Now()

	assert.False(t, term.handleKey(c, 'p', now))
	assert.False(t, term.handleKey(c, 'n', now))
	assert.False(t, term.handleKey(c, del, now))
	assert.False(t, term.handleKey(c, 'h', now))
	assert.Equal(t, 1, c.toggles)
	assert.Equal(t, 1, c.steps)
	assert.Equal(t, 1, c.resets)
	assert.Equal(t, 1, c.extended)

	term.handleKey(c, ']', now)
	assert.Equal(t, 8*time.Millisecond, c.delay)
	term.handleKey(c, '[', now)
	term.handleKey(c, '[', now)
	assert.Equal(t, 2*time.Millisecond, c.delay)

	assert.True(t, term.handleKey(c, ctrlC, now))
}

func TestKeyRelease(t *testing.T) {
	term := newTerminal(nil, &bytes.Buffer{})
	c := &fakeController{}
	now := time.Now()

	// autorepeat refreshes the hold without pressing again
	term.handleKey(c, 'w', now)
	term.handleKey(c, 'w', now.Add(100*time.Millisecond))
	assert.Equal(t, []vm.Key{vm.Key5}, c.down)

	term.releaseKeys(c, now.Add(200*time.Millisecond))
	assert.Empty(t, c.up)

	term.releaseKeys(c, now.Add(100*time.Millisecond+keyHold+time.Millisecond))
	assert.Equal(t, []vm.Key{vm.Key5}, c.up)

	term.handleKey(c, 'w', now.Add(time.Second))
	assert.Equal(t, []vm.Key{vm.Key5, vm.Key5}, c.down)
}

func TestRenderScreen(t *testing.T) {
	screen := vm.Screen{
		Width:  4,
		Height: 2,
		Pixels: []bool{
			true, false, true, false,
			false, true, true, false,
		},
	}

	var buf bytes.Buffer
	renderScreen(&buf, screen)

	assert.Equal(t, "▀▄█ "+newLine, buf.String())
}

func TestRenderScreenOddHeight(t *testing.T) {
	screen := vm.Screen{Width: 1, Height: 3, Pixels: []bool{false, false, true}}

	var buf bytes.Buffer
	renderScreen(&buf, screen)

	assert.Equal(t, " "+newLine+"▀"+newLine, buf.String())
}

func TestRenderPanel(t *testing.T) {
	var image []byte
	for i := 0; i < 30; i++ {
		image = append(image, 0x12, 0x00)
	}

	state := vm.State{
		PC:         0x214,
		Index:      0x300,
		DelayTimer: 0x3C,
		Stack:      []uint16{0x202},
	}
	state.Registers[3] = 0x2A

	var buf bytes.Buffer
	renderPanel(&buf, panel{
		State:    state,
		RunState: vm.Paused,
		Delay:    2 * time.Millisecond,
		Listing:  vm.Disassemble(image),
		Rows:     6,
	})
	out := buf.String()

	assert.Contains(t, out, "V3 2A")
	assert.Contains(t, out, "I  0300  DT 3C  ST 00  PC 0214  SP 1")
	assert.Contains(t, out, "paused  delay 2ms")
	assert.Contains(t, out, reverse+"> 0x0214  1200  jmp 0x200"+normal)

	// rows 7..12 of the listing, centered on row 10
	assert.Equal(t, 6, strings.Count(out, "jmp 0x200"))
	assert.Contains(t, out, "0x020e")
	assert.NotContains(t, out, "0x020c")
	assert.Contains(t, out, "0x0218")
	assert.NotContains(t, out, "0x021a")
}
