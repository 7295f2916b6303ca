package vm

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNextDelay(t *testing.T) {
	tests := []struct {
		delay time.Duration
		steps int
		want  time.Duration
	}{
		{time.Millisecond, 1, 2 * time.Millisecond},
		{time.Millisecond, -1, time.Millisecond},
		{64 * time.Millisecond, 1, 64 * time.Millisecond},
		{64 * time.Millisecond, -1, 32 * time.Millisecond},
		{10 * time.Millisecond, 1, 16 * time.Millisecond},
		{10 * time.Millisecond, -1, 4 * time.Millisecond},
		{0, 2, 4 * time.Millisecond},
		{time.Second, 0, 64 * time.Millisecond},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, NextDelay(tt.delay, tt.steps), "%v%+d", tt.delay, tt.steps)
	}
}
