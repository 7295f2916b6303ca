// Package beep generates the buzzer tone and records play-sound
// notifications to a WAV file.
package beep

import (
	"fmt"
	"log/slog"
	"math"
	"os"
	"sync"
	"time"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/kapitanov/chip8emu/internal/vm"
)

const (
	SampleRate = 44100
	BitDepth   = 16
	Frequency  = 440

	// TickSamples is the length of one 60 Hz timer period.
	TickSamples = SampleRate / vm.TimerFrequency

	amplitude = 0.25
)

// Tone returns n samples of the buzzer in the range [-1, 1], starting at
// sample offset so that consecutive calls join without a click.
func Tone(offset, n int) []float64 {
	samples := make([]float64, n)
	for i := range samples {
		t := float64(offset+i) / SampleRate
		samples[i] = amplitude * math.Sin(2*math.Pi*Frequency*t)
	}
	return samples
}

// Recorder is a vm.Sink that keeps the time of every beep and writes the
// whole track to disk on Close. Audio is buffered in memory until then.
type Recorder struct {
	vm.NopSink

	file *os.File

	mu    sync.Mutex
	start time.Time
	beeps []time.Duration
	now   func() time.Time
}

func NewRecorder(path string) (*Recorder, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("unable to create wav file: %w", err)
	}

	r := &Recorder{file: f, now: time.Now}
	r.start = r.now()
	return r, nil
}

// PlaySound records one timer period of tone at the current offset.
func (r *Recorder) PlaySound() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.beeps = append(r.beeps, r.now().Sub(r.start))
}

// Close renders the track and closes the file.
func (r *Recorder) Close() (rerr error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	defer func() {
		if err := r.file.Close(); err != nil && rerr == nil {
			rerr = fmt.Errorf("unable to close wav file: %w", err)
		}
	}()

	data := render(r.beeps)

	enc := wav.NewEncoder(r.file, SampleRate, BitDepth, 1, 1)
	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: 1, SampleRate: SampleRate},
		Data:           data,
		SourceBitDepth: BitDepth,
	}
	if err := enc.Write(buf); err != nil {
		return fmt.Errorf("unable to write wav samples: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("unable to finish wav file: %w", err)
	}

	slog.Info("wav written", "path", r.file.Name(), "beeps", len(r.beeps), "samples", len(data))
	return nil
}

// render lays the beeps out on a silent track. A later beep overwrites the
// overlapping part of an earlier one.
func render(beeps []time.Duration) []int {
	if len(beeps) == 0 {
		return nil
	}

	// beeps are appended in time order
	last := offsetOf(beeps[len(beeps)-1])

	const scale = math.MaxInt16
	data := make([]int, last+TickSamples)
	for _, b := range beeps {
		at := offsetOf(b)
		for i, s := range Tone(at, TickSamples) {
			data[at+i] = int(s * scale)
		}
	}
	return data
}

func offsetOf(d time.Duration) int {
	return int(d * SampleRate / time.Second)
}
