package process

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"sync"
	"sync/atomic"
	"syscall"
	"time"
)

// LogParser parses a process output line and returns the log level and
// message. Used to extract structured log info from encoder output.
type LogParser func(line string) (level, msg string)

const defaultTailSize = 400

// Supervisor keeps one external encoder process alive for the lifetime of
// the supervisor. Crashes are restarted after a short backoff; a missing
// binary is retried at a slower cadence. There is no restart limit:
// availability is favored over crash-loop containment.
type Supervisor struct {
	streamID      string
	command       string
	logger        *slog.Logger
	processLogger *slog.Logger // logger for process output (nil = use logger)
	logParser     LogParser    // parses process output for log level (nil = no parsing)
	onExit        func(exitCode int)

	restartBackoff  time.Duration // after an unexpected exit
	launchBackoff   time.Duration // after a failed launch (binary missing)
	gracefulTimeout time.Duration // SIGINT to SIGKILL window
	killTimeout     time.Duration // wait after SIGKILL before giving up
	tailSize        int           // bytes of stderr kept for exit diagnostics

	cmdMu   sync.Mutex
	cmd     *exec.Cmd
	alive   atomic.Bool
	started atomic.Bool

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

// NewSupervisor creates a supervisor for the given command. The command is
// fixed for the supervisor's lifetime; it is derived once from the camera
// configuration.
func NewSupervisor(streamID, command string, logger *slog.Logger) *Supervisor {
	ctx, cancel := context.WithCancel(context.Background())
	return &Supervisor{
		streamID:        streamID,
		command:         command,
		logger:          logger,
		restartBackoff:  2 * time.Second,
		launchBackoff:   10 * time.Second,
		gracefulTimeout: 5 * time.Second,
		killTimeout:     5 * time.Second,
		tailSize:        defaultTailSize,
		ctx:             ctx,
		cancel:          cancel,
		done:            make(chan struct{}),
	}
}

// SetLogParser sets a custom logger and log parser for process output.
// The logger is used for output lines (e.g. module="ffmpeg"); the parser
// extracts log levels from process-specific output formats.
func (s *Supervisor) SetLogParser(logger *slog.Logger, parser LogParser) {
	s.processLogger = logger
	s.logParser = parser
}

// OnExit registers a callback invoked after each unexpected process exit,
// before the restart backoff. Must be set before Start.
func (s *Supervisor) OnExit(fn func(exitCode int)) {
	s.onExit = fn
}

// Command returns the supervised command string.
func (s *Supervisor) Command() string {
	return s.command
}

// Alive reports whether the last-spawned process is currently running.
func (s *Supervisor) Alive() bool {
	return s.alive.Load()
}

// Start begins the supervision loop. Calling Start more than once is a
// no-op.
func (s *Supervisor) Start() {
	if !s.started.CompareAndSwap(false, true) {
		return
	}
	go s.supervise()
}

// Stop requests termination and blocks until the underlying process is
// confirmed dead. Idempotent; safe to call on a supervisor that was never
// started.
func (s *Supervisor) Stop() {
	s.cancel()
	if s.started.Load() {
		<-s.done
	}
}

// supervise is the restart-forever loop. It exits only when the supervisor
// context is cancelled, and only after the child process is gone.
func (s *Supervisor) supervise() {
	defer close(s.done)

	for {
		if s.ctx.Err() != nil {
			return
		}

		rp, err := s.spawn()
		if err != nil {
			backoff := s.restartBackoff
			if errors.Is(err, exec.ErrNotFound) {
				s.logger.Error("Encoder binary not found, retrying", "stream_id", s.streamID, "error", err, "backoff", s.launchBackoff)
				backoff = s.launchBackoff
			} else {
				s.logger.Error("Failed to start encoder process", "stream_id", s.streamID, "error", err)
			}
			if !s.sleep(backoff) {
				return
			}
			continue
		}

		s.alive.Store(true)

		select {
		case <-s.ctx.Done():
			s.sendStopSignal()
			s.waitForExit(rp.processDone)
			s.alive.Store(false)
			s.waitOutputDone(rp.outputDone)
			s.logger.Info("Supervision stopped", "stream_id", s.streamID)
			return

		case processErr := <-rp.processDone:
			s.alive.Store(false)
			exitCode := exitCodeFromError(processErr)
			s.waitOutputDone(rp.outputDone)
			s.logger.Warn("Encoder process exited, restarting",
				"stream_id", s.streamID,
				"exit_code", exitCode,
				"stderr_tail", rp.tail.String(),
				"backoff", s.restartBackoff)
			if s.onExit != nil {
				s.onExit(exitCode)
			}
			if !s.sleep(s.restartBackoff) {
				return
			}
		}
	}
}

// sleep waits for d unless the supervisor is stopped first. Returns false
// when the wait was interrupted by shutdown.
func (s *Supervisor) sleep(d time.Duration) bool {
	select {
	case <-s.ctx.Done():
		return false
	case <-time.After(d):
		return true
	}
}

// runningProcess holds channels for monitoring a spawned process.
type runningProcess struct {
	processDone <-chan error
	outputDone  chan struct{} // receives twice, once per output stream
	tail        *tailBuffer
}

// spawn parses the command, starts the process, and wires up output
// streaming and exit monitoring.
func (s *Supervisor) spawn() (*runningProcess, error) {
	args, err := parseCommand(s.command)
	if err != nil {
		return nil, err
	}
	if len(args) == 0 {
		return nil, fmt.Errorf("empty command")
	}

	cmd := exec.Command(args[0], args[1:]...)
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to create stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to create stderr pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return nil, err
	}

	s.cmdMu.Lock()
	s.cmd = cmd
	s.cmdMu.Unlock()

	s.logger.Info("Encoder process started", "stream_id", s.streamID, "pid", cmd.Process.Pid)

	tail := newTailBuffer(s.tailSize)

	outputDone := make(chan struct{}, 2)
	go func() {
		s.streamOutput(stdout, nil)
		outputDone <- struct{}{}
	}()
	go func() {
		s.streamOutput(stderr, tail)
		outputDone <- struct{}{}
	}()

	processDone := make(chan error, 1)
	go func() {
		processDone <- cmd.Wait()
	}()

	return &runningProcess{processDone: processDone, outputDone: outputDone, tail: tail}, nil
}

// waitOutputDone waits for both output streams to complete.
func (s *Supervisor) waitOutputDone(outputDone <-chan struct{}) {
	<-outputDone
	<-outputDone
}

// sendStopSignal sends SIGINT to the process without waiting.
func (s *Supervisor) sendStopSignal() {
	s.cmdMu.Lock()
	cmd := s.cmd
	s.cmdMu.Unlock()

	if cmd == nil || cmd.Process == nil {
		return
	}
	s.logger.Info("Sending SIGINT to encoder process", "stream_id", s.streamID, "pid", cmd.Process.Pid)
	if err := cmd.Process.Signal(syscall.SIGINT); err != nil {
		s.logger.Warn("Failed to send SIGINT", "error", err)
	}
}

// waitForExit waits for the process to exit, force-killing after the
// graceful timeout. Guarantees the process is dead (or unkillable and
// logged) on return.
func (s *Supervisor) waitForExit(processDone <-chan error) {
	select {
	case <-processDone:
		return
	case <-time.After(s.gracefulTimeout):
	}

	s.logger.Warn("Graceful shutdown timeout, forcing kill", "stream_id", s.streamID, "timeout", s.gracefulTimeout)

	s.cmdMu.Lock()
	cmd := s.cmd
	s.cmdMu.Unlock()

	if cmd != nil && cmd.Process != nil {
		if err := cmd.Process.Kill(); err != nil {
			// "os: process already finished" means it exited between
			// timeout and kill.
			if !errors.Is(err, os.ErrProcessDone) {
				s.logger.Error("Failed to kill process", "error", err)
			}
		}
	}

	select {
	case <-processDone:
	case <-time.After(s.killTimeout):
		s.logger.Error("Process did not exit after kill signal", "stream_id", s.streamID)
	}
}

// exitCodeFromError extracts the exit code from a process error.
// Returns 0 for nil, the exit code for ExitError, or 1 for other errors.
func exitCodeFromError(err error) int {
	if err == nil {
		return 0
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode()
	}
	return 1
}

// streamOutput forwards process output lines to the configured logger and,
// when tail is non-nil, records them for exit diagnostics.
func (s *Supervisor) streamOutput(reader io.Reader, tail *tailBuffer) {
	scanner := bufio.NewScanner(reader)

	logger := s.processLogger
	if logger == nil {
		logger = s.logger
	}

	for scanner.Scan() {
		line := scanner.Text()

		if tail != nil {
			tail.WriteLine(line)
		}

		level, msg := "info", line
		if s.logParser != nil {
			level, msg = s.logParser(line)
		}

		switch level {
		case "fatal", "error":
			logger.Error(msg)
		case "warning":
			logger.Warn(msg)
		case "debug", "trace":
			logger.Debug(msg)
		default:
			logger.Info(msg)
		}
	}
}

// parseCommand parses a command string into arguments.
// Handles quoted strings and basic escaping.
func parseCommand(command string) ([]string, error) {
	var args []string
	var current strings.Builder
	inQuote := false
	quoteChar := rune(0)

	runes := []rune(strings.TrimSpace(command))

	for i := 0; i < len(runes); i++ {
		r := runes[i]
		switch {
		case r == '"' || r == '\'':
			switch {
			case !inQuote:
				inQuote = true
				quoteChar = r
			case r == quoteChar:
				inQuote = false
				quoteChar = 0
			default:
				current.WriteRune(r)
			}
		case r == ' ' && !inQuote:
			if current.Len() > 0 {
				args = append(args, current.String())
				current.Reset()
			}
		case r == '\\' && i+1 < len(runes):
			i++
			current.WriteRune(runes[i])
		default:
			current.WriteRune(r)
		}
	}

	if current.Len() > 0 {
		args = append(args, current.String())
	}

	if inQuote {
		return nil, fmt.Errorf("unclosed quote in command")
	}

	return args, nil
}
