package process

import (
	"io"
	"log/slog"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newTestSupervisor creates a Supervisor with short timeouts for testing.
func newTestSupervisor(command string) *Supervisor {
	s := NewSupervisor("test", command, testLogger())
	s.restartBackoff = 50 * time.Millisecond
	s.launchBackoff = 50 * time.Millisecond
	s.gracefulTimeout = 100 * time.Millisecond
	s.killTimeout = 100 * time.Millisecond
	return s
}

// waitUntil polls cond until it returns true, failing the test on timeout.
func waitUntil(t *testing.T, timeout time.Duration, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal(msg)
}

func TestRestartAfterExit(t *testing.T) {
	s := newTestSupervisor("true")

	var exits atomic.Int32
	s.OnExit(func(int) {
		exits.Add(1)
	})

	s.Start()
	defer s.Stop()

	// "true" exits immediately, so the loop must have restarted it at
	// least twice within a few backoff periods.
	waitUntil(t, 2*time.Second, func() bool {
		return exits.Load() >= 2
	}, "process was not restarted after exit")
}

func TestAliveAcrossRestart(t *testing.T) {
	s := newTestSupervisor(`sh -c "sleep 0.3"`)
	s.restartBackoff = 200 * time.Millisecond

	s.Start()
	defer s.Stop()

	waitUntil(t, 2*time.Second, s.Alive, "process did not start")

	// The child exits on its own; Alive must drop during the backoff
	// window and recover once the loop respawns.
	waitUntil(t, 2*time.Second, func() bool {
		return !s.Alive()
	}, "Alive() stayed true after the process exited")

	waitUntil(t, 2*time.Second, s.Alive, "process was not restarted after exit")
}

func TestExitCodeReported(t *testing.T) {
	s := newTestSupervisor(`sh -c "exit 3"`)

	codes := make(chan int, 1)
	s.OnExit(func(code int) {
		select {
		case codes <- code:
		default:
		}
	})

	s.Start()
	defer s.Stop()

	select {
	case code := <-codes:
		if code != 3 {
			t.Errorf("expected exit code 3, got %d", code)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for exit callback")
	}
}

func TestStopTerminatesProcess(t *testing.T) {
	s := newTestSupervisor(`sh -c "trap 'exit 0' INT TERM; while :; do sleep 0.1; done"`)

	s.Start()
	waitUntil(t, 2*time.Second, s.Alive, "process did not start")

	done := make(chan struct{})
	go func() {
		s.Stop()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Stop did not return")
	}

	if s.Alive() {
		t.Error("process still alive after Stop")
	}
}

func TestStopForceKillsStubbornProcess(t *testing.T) {
	// Process that ignores SIGINT.
	s := newTestSupervisor(`sh -c "trap '' INT; sleep 10"`)

	s.Start()
	waitUntil(t, 2*time.Second, s.Alive, "process did not start")

	start := time.Now()
	s.Stop()

	// SIGKILL must fire after the graceful timeout, well before the
	// process's own 10s sleep.
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Errorf("Stop took too long: %v", elapsed)
	}
}

func TestMissingBinaryKeepsRetrying(t *testing.T) {
	s := newTestSupervisor("definitely-not-a-real-binary-xyz")
	s.launchBackoff = 20 * time.Millisecond

	s.Start()
	time.Sleep(200 * time.Millisecond)

	// Supervisor must survive repeated launch failures and still stop
	// cleanly.
	if s.Alive() {
		t.Error("Alive() = true for a binary that cannot start")
	}
	s.Stop()
}

func TestStopWithoutStart(t *testing.T) {
	s := newTestSupervisor("sleep 10")

	done := make(chan struct{})
	go func() {
		s.Stop()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(500 * time.Millisecond):
		t.Fatal("Stop blocked on a supervisor that was never started")
	}
}

func TestStopIdempotent(t *testing.T) {
	s := newTestSupervisor("sleep 10")
	s.Start()
	waitUntil(t, 2*time.Second, s.Alive, "process did not start")

	s.Stop()
	s.Stop()
}

func TestStartIdempotent(t *testing.T) {
	s := newTestSupervisor("sleep 10")
	s.Start()
	s.Start()
	waitUntil(t, 2*time.Second, s.Alive, "process did not start")
	s.Stop()
}

func TestCommand(t *testing.T) {
	s := newTestSupervisor("echo hello")
	if got := s.Command(); got != "echo hello" {
		t.Errorf("Command() = %q, want %q", got, "echo hello")
	}
}

func TestExitCodeFromError(t *testing.T) {
	if got := exitCodeFromError(nil); got != 0 {
		t.Errorf("exitCodeFromError(nil) = %d, want 0", got)
	}
}

func TestParseCommand(t *testing.T) {
	tests := []struct {
		name    string
		command string
		want    []string
		wantErr bool
	}{
		{
			name:    "simple",
			command: "ffmpeg -i input.mp4",
			want:    []string{"ffmpeg", "-i", "input.mp4"},
		},
		{
			name:    "double quotes",
			command: `ffmpeg -i "my file.mp4"`,
			want:    []string{"ffmpeg", "-i", "my file.mp4"},
		},
		{
			name:    "single quotes",
			command: `sh -c 'trap exit INT; sleep 1'`,
			want:    []string{"sh", "-c", "trap exit INT; sleep 1"},
		},
		{
			name:    "extra whitespace",
			command: "  ffmpeg   -re  ",
			want:    []string{"ffmpeg", "-re"},
		},
		{
			name:    "unclosed quote",
			command: `ffmpeg -i "broken`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseCommand(tt.command)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("got %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("arg %d = %q, want %q", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestTailBufferKeepsTrailingBytes(t *testing.T) {
	tail := newTailBuffer(10)
	tail.WriteLine("aaaaaaaaaa")
	tail.WriteLine("bbbb")

	got := tail.String()
	if len(got) > 10 {
		t.Errorf("tail length %d exceeds limit 10", len(got))
	}
	// The limit cuts from the front, so the newest line stays intact.
	if !strings.HasSuffix(got, "bbbb\n") {
		t.Errorf("tail %q does not end with newest line", got)
	}
}
