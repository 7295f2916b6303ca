package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"time"

	"github.com/bradleyjkemp/memviz"
	"github.com/kapitanov/chip8emu/internal/beep"
	"github.com/kapitanov/chip8emu/internal/hal"
	"github.com/kapitanov/chip8emu/internal/statsview"
	"github.com/kapitanov/chip8emu/internal/term"
	"github.com/kapitanov/chip8emu/internal/vm"
	"github.com/spf13/cobra"
)

type runOptions struct {
	delay     int
	paused    bool
	wav       string
	statsview bool
}

func init() {
	// SDL has to stay on the main OS thread
	runtime.LockOSThread()
}

func main() {
	cmd := &cobra.Command{
		Use:           filepath.Base(os.Args[0]),
		Short:         "CHIP-8 emulator",
		SilenceErrors: true,
		SilenceUsage:  true,
	}

	verbose := cmd.PersistentFlags().BoolP("verbose", "v", false, "enable verbose logging")

	cmd.PersistentPreRun = func(*cobra.Command, []string) {
		loggerOpts := &slog.HandlerOptions{
			Level: slog.LevelInfo,
		}
		if *verbose {
			loggerOpts.Level = slog.LevelDebug
		}

		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, loggerOpts)))
	}

	cmd.AddCommand(
		newRunCommand(),
		newTermCommand(),
		newDisasmCommand(),
		newDumpCommand(),
	)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)

	cmd.SetArgs(os.Args[1:])
	err := cmd.ExecuteContext(ctx)
	cancel()

	if err != nil {
		slog.Error("fatal error", "err", err)
		os.Exit(1)
	}
}

func addRunFlags(cmd *cobra.Command, opts *runOptions) {
	cmd.Flags().IntVarP(&opts.delay, "delay", "d", int(vm.DefaultDelay/time.Millisecond), "delay between instructions, ms")
	cmd.Flags().BoolVar(&opts.paused, "paused", false, "start paused")
	cmd.Flags().StringVar(&opts.wav, "wav", "", "record the buzzer to a WAV file")
	cmd.Flags().BoolVar(&opts.statsview, "statsview", false, "serve runtime statistics")
}

// newSession loads the program and builds a session around sink, plus the
// WAV recorder when one was asked for. The returned func releases it all.
func newSession(path string, opts *runOptions, sink vm.Sink) (*vm.Session, func(), error) {
	program, err := vm.LoadFile(path)
	if err != nil {
		return nil, nil, err
	}

	if opts.statsview {
		statsview.Launch(os.Stderr)
	}

	sinks := vm.Sinks{sink}
	cleanup := func() {}

	if opts.wav != "" {
		recorder, err := beep.NewRecorder(opts.wav)
		if err != nil {
			return nil, nil, err
		}
		sinks = append(sinks, recorder)
		cleanup = func() {
			if err := recorder.Close(); err != nil {
				slog.Error("unable to save wav", "err", err)
			}
		}
	}

	delay := time.Duration(opts.delay) * time.Millisecond
	session, err := vm.NewSession(program, sinks, delay, opts.paused)
	if err != nil {
		cleanup()
		return nil, nil, err
	}

	return session, cleanup, nil
}

func newRunCommand() *cobra.Command {
	var opts runOptions

	cmd := &cobra.Command{
		Use:   "run PATH_TO_ROM_FILE",
		Short: "Run a program in a window",
		Args:  cobra.ExactArgs(1),
	}
	addRunFlags(cmd, &opts)

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		h, err := hal.New()
		if err != nil {
			return fmt.Errorf("unable to initialize hal: %w", err)
		}
		defer h.Shutdown()

		session, cleanup, err := newSession(args[0], &opts, h)
		if err != nil {
			return err
		}
		defer cleanup()

		session.Start(cmd.Context())

		if err := h.Run(cmd.Context(), session); err != nil {
			return err
		}

		return stopSession(session)
	}

	return cmd
}

func newTermCommand() *cobra.Command {
	var opts runOptions

	cmd := &cobra.Command{
		Use:   "term PATH_TO_ROM_FILE",
		Short: "Run a program in the terminal, with the debug panel",
		Args:  cobra.ExactArgs(1),
	}
	addRunFlags(cmd, &opts)

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		t, err := term.Open()
		if err != nil {
			return err
		}
		defer func() {
			if err := t.Close(); err != nil {
				slog.Error("unable to restore terminal", "err", err)
			}
		}()

		session, cleanup, err := newSession(args[0], &opts, t)
		if err != nil {
			return err
		}
		defer cleanup()

		session.Start(cmd.Context())

		if err := t.Run(cmd.Context(), session); err != nil {
			return err
		}

		return stopSession(session)
	}

	return cmd
}

// stopSession ends the session. A program that failed on its own has already been
// reported by the executor, only the shutdown matters here.
func stopSession(session *vm.Session) error {
	if err := session.Stop(); err != nil {
		slog.Info("program ended with error", "err", err)
	}
	return nil
}

func newDisasmCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "disasm PATH_TO_ROM_FILE",
		Short: "Print the program listing",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			program, err := vm.LoadFile(args[0])
			if err != nil {
				return err
			}

			_, err = vm.Disassemble(program).WriteTo(cmd.OutOrStdout())
			return err
		},
	}
}

func newDumpCommand() *cobra.Command {
	var (
		duration time.Duration
		dotPath  string
		delay    int
	)

	cmd := &cobra.Command{
		Use:   "dump PATH_TO_ROM_FILE",
		Short: "Run a program without a display and print the final state",
		Args:  cobra.ExactArgs(1),
	}

	cmd.Flags().DurationVar(&duration, "for", time.Second, "how long to run")
	cmd.Flags().StringVar(&dotPath, "dot", "", "write the final state as a graphviz file")
	cmd.Flags().IntVarP(&delay, "delay", "d", int(vm.DefaultDelay/time.Millisecond), "delay between instructions, ms")

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		program, err := vm.LoadFile(args[0])
		if err != nil {
			return err
		}

		exec, err := vm.NewExecutor(program,
			vm.WithSink(vm.LogSink{}),
			vm.WithDelay(time.Duration(delay)*time.Millisecond),
		)
		if err != nil {
			return err
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), duration)
		defer cancel()

		runErr := exec.Run(ctx)

		state := exec.Snapshot()
		printState(cmd.OutOrStdout(), state, exec.Screen())

		if dotPath != "" {
			if err := writeDot(dotPath, &state); err != nil {
				return err
			}
		}

		return runErr
	}

	return cmd
}

func writeDot(path string, state *vm.State) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("unable to create dot file: %w", err)
	}
	defer f.Close()

	memviz.Map(f, state)
	return f.Close()
}

func printState(w io.Writer, state vm.State, screen vm.Screen) {
	for i, v := range state.Registers {
		fmt.Fprintf(w, "V%X=%02X ", i, v)
		if i%8 == 7 {
			fmt.Fprintln(w)
		}
	}
	fmt.Fprintf(w, "I=%04X PC=%04X DT=%02X ST=%02X stack=%04X\n", state.Index, state.PC, state.DelayTimer, state.SoundTimer, state.Stack)

	lit := 0
	for _, p := range screen.Pixels {
		if p {
			lit++
		}
	}
	fmt.Fprintf(w, "screen %dx%d, %d pixels lit\n", screen.Width, screen.Height, lit)
}
