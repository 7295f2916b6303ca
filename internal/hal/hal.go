package hal

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync/atomic"
	"time"
	"unsafe"

	"github.com/kapitanov/chip8emu/internal/beep"
	"github.com/kapitanov/chip8emu/internal/vm"
	"github.com/veandco/go-sdl2/sdl"
)

const (
	WindowWidth  = 1024
	WindowHeight = 512

	title = "CHIP-8"
)

// Controller is the part of vm.Session the window drives.
type Controller interface {
	TogglePause()
	Step()
	Reset() error
	SetDelay(delay time.Duration)
	Delay() time.Duration
	KeyDown(key vm.Key)
	KeyUp(key vm.Key)
	EnableExtendedScreenMode()
}

// HAL is the SDL window. It implements vm.Sink: notifications arrive on the
// execution loop's goroutine and are picked up by Run. New, Run and
// Shutdown must be called from the main goroutine, which main locks to the
// main OS thread.
type HAL struct {
	vm.NopSink

	window          *sdl.Window
	renderer        *sdl.Renderer
	texture         *sdl.Texture
	textureWidth    int
	textureHeight   int
	backBuffer      []uint32
	backBufferPitch int
	audio           sdl.AudioDeviceID
	tonePos         int

	screen atomic.Pointer[vm.Screen]
	dirty  atomic.Bool
	beeps  atomic.Int32
	state  atomic.Uint32
}

var (
	ErrReboot = errors.New("reboot")
	ErrQuit   = errors.New("quit")
)

func New() (*HAL, error) {
	if err := sdl.Init(sdl.INIT_EVERYTHING); err != nil {
		return nil, fmt.Errorf("failed to init sdl: %w", err)
	}

	window, err := sdl.CreateWindow(title, sdl.WINDOWPOS_UNDEFINED, sdl.WINDOWPOS_UNDEFINED, WindowWidth, WindowHeight, sdl.WINDOW_SHOWN|sdl.WINDOW_UTILITY)
	if err != nil {
		return nil, fmt.Errorf("failed to create sdl window: %w", err)
	}
	slog.Debug("hal: create window")
	window.Show()

	renderer, err := sdl.CreateRenderer(window, -1, sdl.RENDERER_ACCELERATED)
	if err != nil {
		return nil, fmt.Errorf("failed to create sdl renderer: %w", err)
	}
	err = renderer.SetLogicalSize(WindowWidth, WindowHeight)
	if err != nil {
		return nil, fmt.Errorf("failed to resize sdl renderer: %w", err)
	}
	slog.Debug("hal: create renderer")

	hal := &HAL{
		window:   window,
		renderer: renderer,
	}

	if err := hal.resize(vm.ScreenWidth, vm.ScreenHeight); err != nil {
		return nil, err
	}

	hal.audio, err = openAudio()
	if err != nil {
		// the emulator is usable without sound
		slog.Warn("hal: no audio", "err", err)
	}

	return hal, nil
}

func openAudio() (sdl.AudioDeviceID, error) {
	want := &sdl.AudioSpec{
		Freq:     beep.SampleRate,
		Format:   sdl.AUDIO_F32LSB,
		Channels: 1,
		Samples:  1024,
	}
	have := &sdl.AudioSpec{}

	id, err := sdl.OpenAudioDevice("", false, want, have, 0)
	if err != nil {
		return 0, fmt.Errorf("failed to open sdl audio device: %w", err)
	}
	slog.Debug("hal: open audio", "freq", have.Freq)

	sdl.PauseAudioDevice(id, false)
	return id, nil
}

// resize recreates the texture for a display of the given size.
func (hal *HAL) resize(width, height int) error {
	if hal.texture != nil {
		if err := hal.texture.Destroy(); err != nil {
			slog.Error("failed to destroy sdl texture", "err", err)
		}
		hal.texture = nil
	}

	texture, err := hal.renderer.CreateTexture(sdl.PIXELFORMAT_ARGB8888, sdl.TEXTUREACCESS_STREAMING, int32(width), int32(height))
	if err != nil {
		return fmt.Errorf("failed to create sdl texture: %w", err)
	}
	slog.Debug("hal: create texture", "width", width, "height", height)

	hal.texture = texture
	hal.textureWidth = width
	hal.textureHeight = height
	hal.backBuffer = make([]uint32, width*height)
	hal.backBufferPitch = width * int(unsafe.Sizeof(uint32(0)))
	return nil
}

func (hal *HAL) Shutdown() {
	if hal.audio != 0 {
		sdl.CloseAudioDevice(hal.audio)
	}

	if err := hal.texture.Destroy(); err != nil {
		slog.Error("failed to destroy sdl texture", "err", err)
	}

	if err := hal.renderer.Destroy(); err != nil {
		slog.Error("failed to destroy sdl renderer", "err", err)
	}

	if err := hal.window.Destroy(); err != nil {
		slog.Error("failed to destroy sdl window", "err", err)
	}

	sdl.Quit()
}

func (hal *HAL) RefreshScreen(screen vm.Screen) {
	hal.screen.Store(&screen)
	hal.dirty.Store(true)
}

func (hal *HAL) PlaySound() {
	hal.beeps.Add(1)
}

func (hal *HAL) StateChanged(state vm.RunState) {
	hal.state.Store(uint32(state))
}

// Run is the window loop. It returns nil once the window is closed or ctx
// is done; the program stopping on its own leaves the window open.
func (hal *HAL) Run(ctx context.Context, c Controller) error {
	shown := vm.RunState(math.MaxUint8)
	for ctx.Err() == nil {
		err := hal.ReadInput(c)
		if errors.Is(err, ErrQuit) {
			return nil
		}

		if errors.Is(err, ErrReboot) {
			slog.Debug("hal: reboot requested")
			if err := c.Reset(); err != nil {
				return err
			}
		}

		if state := vm.RunState(hal.state.Load()); state != shown {
			hal.window.SetTitle(fmt.Sprintf("%s [%s]", title, state))
			shown = state
		}

		if hal.dirty.Swap(false) {
			if err := hal.Draw(*hal.screen.Load()); err != nil {
				return err
			}
		}

		if n := hal.beeps.Swap(0); n > 0 {
			hal.queueTone(int(n))
		}

		hal.WaitForNextFrame()
	}

	return nil
}

func (hal *HAL) ReadInput(c Controller) error {
	for e := sdl.PollEvent(); e != nil; e = sdl.PollEvent() {
		switch e.GetType() {
		case sdl.QUIT:
			slog.Debug("hal: exit requested")
			return ErrQuit
		case sdl.KEYDOWN:
			err := hal.processKeyDown(e.(*sdl.KeyboardEvent), c)
			if err != nil {
				return err
			}

		case sdl.KEYUP:
			hal.processKeyUp(e.(*sdl.KeyboardEvent), c)
		}
	}

	return nil
}

func (hal *HAL) processKeyDown(e *sdl.KeyboardEvent, c Controller) error {
	switch e.Keysym.Scancode {
	case sdl.SCANCODE_BACKSPACE:
		return ErrReboot
	case sdl.SCANCODE_P:
		if e.Repeat == 0 {
			c.TogglePause()
		}
		return nil
	case sdl.SCANCODE_F8:
		c.Step()
		return nil
	case sdl.SCANCODE_F9:
		c.EnableExtendedScreenMode()
		return nil
	case sdl.SCANCODE_LEFTBRACKET:
		c.SetDelay(vm.NextDelay(c.Delay(), -1))
		return nil
	case sdl.SCANCODE_RIGHTBRACKET:
		c.SetDelay(vm.NextDelay(c.Delay(), 1))
		return nil
	}

	key, ok := keyMap(e)
	if ok && e.Repeat == 0 {
		c.KeyDown(key)
	}

	return nil
}

func (hal *HAL) processKeyUp(e *sdl.KeyboardEvent, c Controller) {
	key, ok := keyMap(e)
	if ok {
		c.KeyUp(key)
	}
}

func keyMap(e *sdl.KeyboardEvent) (vm.Key, bool) {
	// Physical                Logical
	// ================        =================
	// | 1 | 2 | 3 | 4 |       | 1 | 2 | 3 | C |
	// | q | w | e | r |       | 4 | 5 | 6 | D |
	// | a | s | d | f |  <=>  | 7 | 8 | 9 | E |
	// | z | x | c | v |       | A | 0 | B | F |
	// ================        =================

	switch e.Keysym.Scancode {
	case sdl.SCANCODE_X:
		return vm.Key0, true
	case sdl.SCANCODE_1:
		return vm.Key1, true
	case sdl.SCANCODE_2:
		return vm.Key2, true
	case sdl.SCANCODE_3:
		return vm.Key3, true
	case sdl.SCANCODE_Q:
		return vm.Key4, true
	case sdl.SCANCODE_W:
		return vm.Key5, true
	case sdl.SCANCODE_E:
		return vm.Key6, true
	case sdl.SCANCODE_A:
		return vm.Key7, true
	case sdl.SCANCODE_S:
		return vm.Key8, true
	case sdl.SCANCODE_D:
		return vm.Key9, true
	case sdl.SCANCODE_Z:
		return vm.KeyA, true
	case sdl.SCANCODE_C:
		return vm.KeyB, true
	case sdl.SCANCODE_4:
		return vm.KeyC, true
	case sdl.SCANCODE_R:
		return vm.KeyD, true
	case sdl.SCANCODE_F:
		return vm.KeyE, true
	case sdl.SCANCODE_V:
		return vm.KeyF, true
	default:
		return 0, false
	}
}

func (hal *HAL) Draw(screen vm.Screen) error {
	const (
		bgColor = uint32(0x000000)
		fgColor = uint32(0xbea700)
	)

	if screen.Width != hal.textureWidth || screen.Height != hal.textureHeight {
		if err := hal.resize(screen.Width, screen.Height); err != nil {
			return err
		}
	}

	for i, lit := range screen.Pixels {
		color := bgColor
		if lit {
			color = fgColor
		}

		hal.backBuffer[i] = color
	}

	backBufferPtr := unsafe.Pointer(&hal.backBuffer[0])
	if err := hal.texture.Update(nil, backBufferPtr, hal.backBufferPitch); err != nil {
		return fmt.Errorf("failed to update sdl texture: %w", err)
	}

	if err := hal.renderer.Clear(); err != nil {
		return fmt.Errorf("failed to clear sdl renderer: %w", err)
	}

	if err := hal.renderer.Copy(hal.texture, nil, nil); err != nil {
		return fmt.Errorf("failed to copy sdl texture to renderer: %w", err)
	}

	hal.renderer.Present()
	return nil
}

// queueTone plays n timer periods of the buzzer.
func (hal *HAL) queueTone(n int) {
	if hal.audio == 0 {
		return
	}

	tone := beep.Tone(hal.tonePos, n*beep.TickSamples)
	hal.tonePos += len(tone)

	samples := make([]byte, 4*len(tone))
	for i, f := range tone {
		binary.LittleEndian.PutUint32(samples[4*i:], math.Float32bits(float32(f)))
	}

	if err := sdl.QueueAudio(hal.audio, samples); err != nil {
		slog.Error("failed to queue sdl audio", "err", err)
	}
}

func (hal *HAL) WaitForNextFrame() {
	const delayDuration = 1200 * time.Microsecond
	time.Sleep(delayDuration)
}
