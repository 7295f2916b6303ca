// Package term is a terminal front-end for the emulator. It draws the
// display with half-block characters, shows a debug panel under it and
// reads the keypad from the keyboard in raw mode.
package term

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/kapitanov/chip8emu/internal/vm"
	"github.com/pkg/term"
)

const (
	device = "/dev/tty"

	frameRate   = 30
	readTimeout = 100 * time.Millisecond

	// a terminal reports no key releases, so a key counts as held until
	// autorepeat stops refreshing it
	keyHold = 150 * time.Millisecond

	listingRows = 12
)

const (
	ctrlC     = 0x03
	backspace = 0x08
	del       = 0x7f
)

// Controller is the part of vm.Session the front-end drives.
type Controller interface {
	TogglePause()
	Step()
	Reset() error
	SetDelay(delay time.Duration)
	Delay() time.Duration
	KeyDown(key vm.Key)
	KeyUp(key vm.Key)
	EnableExtendedScreenMode()
	Listing() vm.Listing
	Executor() *vm.Executor
}

// Terminal implements vm.Sink: the execution loop hands it screens and
// state changes, the frame loop picks up the latest of them.
type Terminal struct {
	vm.NopSink

	tty *term.Term
	out io.Writer

	screen atomic.Pointer[vm.Screen]
	state  atomic.Uint32
	beeps  atomic.Int32

	held map[vm.Key]time.Time
}

func Open() (*Terminal, error) {
	tty, err := term.Open(device, term.RawMode)
	if err != nil {
		return nil, fmt.Errorf("unable to open %s: %w", device, err)
	}

	if err := tty.SetReadTimeout(readTimeout); err != nil {
		_ = tty.Restore()
		_ = tty.Close()
		return nil, fmt.Errorf("unable to set read timeout: %w", err)
	}
	slog.Debug("term: raw mode")

	return newTerminal(tty, tty), nil
}

func newTerminal(tty *term.Term, out io.Writer) *Terminal {
	return &Terminal{
		tty:  tty,
		out:  out,
		held: make(map[vm.Key]time.Time),
	}
}

// Close puts the terminal back into the mode it was opened in.
func (t *Terminal) Close() error {
	_, _ = io.WriteString(t.out, "\x1b[0m\x1b[?25h\r\n")

	if err := t.tty.Restore(); err != nil {
		return fmt.Errorf("unable to restore terminal: %w", err)
	}
	return t.tty.Close()
}

func (t *Terminal) RefreshScreen(screen vm.Screen) {
	t.screen.Store(&screen)
}

func (t *Terminal) PlaySound() {
	t.beeps.Add(1)
}

func (t *Terminal) StateChanged(state vm.RunState) {
	t.state.Store(uint32(state))
}

// Run draws frames and forwards keys until ctx is done or Ctrl-C is
// pressed.
func (t *Terminal) Run(ctx context.Context, c Controller) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	keys := make(chan byte, 16)
	go t.readKeys(ctx, keys)

	if _, err := io.WriteString(t.out, "\x1b[2J\x1b[?25l"); err != nil {
		return err
	}

	ticker := time.NewTicker(time.Second / frameRate)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case b := <-keys:
			if t.handleKey(c, b, time.Now()) {
				slog.Debug("term: exit requested")
				return nil
			}

		case now := <-ticker.C:
			t.releaseKeys(c, now)
			if err := t.draw(c); err != nil {
				return err
			}
		}
	}
}

func (t *Terminal) readKeys(ctx context.Context, keys chan<- byte) {
	var buf [16]byte
	for ctx.Err() == nil {
		n, err := t.tty.Read(buf[:])
		if err != nil && !errors.Is(err, io.EOF) {
			slog.Error("term: read failed", "err", err)
			return
		}

		for _, b := range buf[:n] {
			select {
			case keys <- b:
			case <-ctx.Done():
				return
			}
		}
	}
}

// handleKey applies one input byte and reports whether to quit.
func (t *Terminal) handleKey(c Controller, b byte, now time.Time) bool {
	switch b {
	case ctrlC:
		return true

	case 'p':
		c.TogglePause()

	case 'n':
		c.Step()

	case backspace, del:
		if err := c.Reset(); err != nil {
			slog.Error("reset failed", "err", err)
		}

	case '[':
		c.SetDelay(vm.NextDelay(c.Delay(), -1))

	case ']':
		c.SetDelay(vm.NextDelay(c.Delay(), 1))

	case 'h':
		c.EnableExtendedScreenMode()

	default:
		key, ok := keyMap(b)
		if !ok {
			return false
		}

		if _, held := t.held[key]; !held {
			c.KeyDown(key)
		}
		t.held[key] = now.Add(keyHold)
	}

	return false
}

func (t *Terminal) releaseKeys(c Controller, now time.Time) {
	for key, until := range t.held {
		if now.After(until) {
			c.KeyUp(key)
			delete(t.held, key)
		}
	}
}

func (t *Terminal) draw(c Controller) error {
	var buf bytes.Buffer
	buf.WriteString("\x1b[H")

	if screen := t.screen.Load(); screen != nil {
		renderScreen(&buf, *screen)
	}

	renderPanel(&buf, panel{
		State:    c.Executor().Snapshot(),
		RunState: vm.RunState(t.state.Load()),
		Delay:    c.Delay(),
		Listing:  c.Listing(),
		Rows:     listingRows,
	})

	if t.beeps.Swap(0) > 0 {
		buf.WriteByte('\a')
	}

	_, err := t.out.Write(buf.Bytes())
	return err
}

func keyMap(b byte) (vm.Key, bool) {
	// Physical                Logical
	// ================        =================
	// | 1 | 2 | 3 | 4 |       | 1 | 2 | 3 | C |
	// | q | w | e | r |       | 4 | 5 | 6 | D |
	// | a | s | d | f |  <=>  | 7 | 8 | 9 | E |
	// | z | x | c | v |       | A | 0 | B | F |
	// ================        =================

	switch b {
	case 'x':
		return vm.Key0, true
	case '1':
		return vm.Key1, true
	case '2':
		return vm.Key2, true
	case '3':
		return vm.Key3, true
	case 'q':
		return vm.Key4, true
	case 'w':
		return vm.Key5, true
	case 'e':
		return vm.Key6, true
	case 'a':
		return vm.Key7, true
	case 's':
		return vm.Key8, true
	case 'd':
		return vm.Key9, true
	case 'z':
		return vm.KeyA, true
	case 'c':
		return vm.KeyB, true
	case '4':
		return vm.KeyC, true
	case 'r':
		return vm.KeyD, true
	case 'f':
		return vm.KeyE, true
	case 'v':
		return vm.KeyF, true
	default:
		return 0, false
	}
}
