package term

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/kapitanov/chip8emu/internal/vm"
)

const (
	eraseLine = "\x1b[K"
	newLine   = eraseLine + "\r\n"

	reverse = "\x1b[7m"
	normal  = "\x1b[0m"
)

// renderScreen packs two display rows into one line of half blocks.
func renderScreen(w io.Writer, screen vm.Screen) {
	var sb strings.Builder

	for y := 0; y < screen.Height; y += 2 {
		for x := 0; x < screen.Width; x++ {
			top := screen.At(x, y)
			bottom := y+1 < screen.Height && screen.At(x, y+1)

			switch {
			case top && bottom:
				sb.WriteRune('█')
			case top:
				sb.WriteRune('▀')
			case bottom:
				sb.WriteRune('▄')
			default:
				sb.WriteByte(' ')
			}
		}
		sb.WriteString(newLine)
	}

	io.WriteString(w, sb.String())
}

type panel struct {
	State    vm.State
	RunState vm.RunState
	Delay    time.Duration
	Listing  vm.Listing
	Rows     int
}

// renderPanel writes the registers, timers and a window of the listing
// around PC, with the row at PC highlighted.
func renderPanel(w io.Writer, p panel) {
	var sb strings.Builder
	sb.WriteString(newLine)

	for row := 0; row < vm.RegisterCount; row += 8 {
		for i := row; i < row+8; i++ {
			fmt.Fprintf(&sb, "V%X %02X  ", i, p.State.Registers[i])
		}
		sb.WriteString(newLine)
	}

	fmt.Fprintf(&sb, "I  %04X  DT %02X  ST %02X  PC %04X  SP %d", p.State.Index, p.State.DelayTimer, p.State.SoundTimer, p.State.PC, len(p.State.Stack))
	sb.WriteString(newLine)

	fmt.Fprintf(&sb, "%s  delay %v", p.RunState, p.Delay)
	if p.State.WaitingForKey {
		sb.WriteString("  waiting for key")
	}
	sb.WriteString(newLine)
	sb.WriteString(newLine)

	current, ok := p.Listing.IndexOf(p.State.PC)
	start := 0
	if ok {
		start = max(0, current-p.Rows/2)
	}
	end := min(len(p.Listing), start+p.Rows)

	for i := start; i < end; i++ {
		if ok && i == current {
			fmt.Fprintf(&sb, "%s> %s%s", reverse, p.Listing[i], normal)
		} else {
			fmt.Fprintf(&sb, "  %s", p.Listing[i])
		}
		sb.WriteString(newLine)
	}

	io.WriteString(w, sb.String())
}
