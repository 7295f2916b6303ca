package vm

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Session owns the program image, its listing and the executor currently
// running it. Reset replaces the executor with a fresh one only after the
// old one has released its worker.
type Session struct {
	program []byte
	listing Listing
	sink    Sink

	mu     sync.Mutex
	ctx    context.Context
	exec   *Executor
	delay  time.Duration
	paused bool
}

func NewSession(program []byte, sink Sink, delay time.Duration, paused bool) (*Session, error) {
	if sink == nil {
		sink = NopSink{}
	}

	s := &Session{
		program: program,
		listing: Disassemble(program),
		sink:    sink,
		delay:   delay,
		paused:  paused,
	}

	exec, err := s.newExecutor()
	if err != nil {
		return nil, err
	}
	s.exec = exec

	return s, nil
}

func (s *Session) newExecutor() (*Executor, error) {
	return NewExecutor(s.program,
		WithSink(s.sink),
		WithDelay(s.delay),
		WithPaused(s.paused),
	)
}

// Start runs the current executor on its own goroutine.
func (s *Session) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.ctx = ctx
	go run(ctx, s.exec)
}

// run errors are picked up through Executor.Wait.
func run(ctx context.Context, exec *Executor) {
	_ = exec.Run(ctx)
}

// Reset stops the running executor, waits for it and starts a new one on
// the same program, keeping the pause flag and the delay.
func (s *Session) Reset() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	started := s.ctx != nil
	if started {
		old := s.exec
		old.Pause(false)
		old.Stop()
		if err := old.Wait(); err != nil {
			slog.Info("previous run ended with error", "err", err)
		}
	}

	exec, err := s.newExecutor()
	if err != nil {
		return err
	}
	s.exec = exec

	slog.Info("reset", "paused", s.paused)
	if started {
		go run(s.ctx, exec)
	}
	return nil
}

func (s *Session) Listing() Listing {
	return s.listing
}

func (s *Session) Executor() *Executor {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.exec
}

func (s *Session) Pause(paused bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.paused = paused
	s.exec.Pause(paused)
}

func (s *Session) TogglePause() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.paused = !s.paused
	s.exec.Pause(s.paused)
}

func (s *Session) Paused() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.paused
}

func (s *Session) Step() {
	s.Executor().Step()
}

func (s *Session) SetDelay(delay time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.delay = delay
	s.exec.SetDelay(delay)
}

func (s *Session) Delay() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.delay
}

func (s *Session) KeyDown(key Key) {
	s.Executor().KeyDown(key)
}

func (s *Session) KeyUp(key Key) {
	s.Executor().KeyUp(key)
}

func (s *Session) EnableExtendedScreenMode() {
	s.Executor().EnableExtendedScreenMode()
}

// Stop stops the current executor and waits for it. The session must have
// been started.
func (s *Session) Stop() error {
	exec := s.Executor()
	exec.Pause(false)
	exec.Stop()
	return exec.Wait()
}
