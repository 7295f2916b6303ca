package vm

import (
	"time"
)

// DelayPresets are the selectable sleeps between two instructions.
var DelayPresets = []time.Duration{
	1 * time.Millisecond,
	2 * time.Millisecond,
	4 * time.Millisecond,
	8 * time.Millisecond,
	16 * time.Millisecond,
	32 * time.Millisecond,
	64 * time.Millisecond,
}

// NextDelay moves steps presets away from delay, slower for positive steps,
// and stops at either end. A delay between two presets counts as the
// faster of them.
func NextDelay(delay time.Duration, steps int) time.Duration {
	i := 0
	for i < len(DelayPresets)-1 && DelayPresets[i+1] <= delay {
		i++
	}

	i = max(0, min(len(DelayPresets)-1, i+steps))
	return DelayPresets[i]
}
