package config

import (
	"io"
	"log/slog"
	"os"
	"testing"
	"time"
)

func TestWatcherNotifiesOnChange(t *testing.T) {
	path := writeConfigFile(t, `
[[cameras]]
id = "cam1"
standby_video = "a.mp4"
`)

	loader := func(p string) (CamerasFile, error) {
		cfg, _, err := LoadCameras(p)
		return cfg, err
	}

	w := NewWatcher(path, loader, slog.New(slog.NewTextHandler(io.Discard, nil)))
	w.debounce = 50 * time.Millisecond

	reloaded := make(chan CamerasFile, 1)
	w.OnReload(func(cfg CamerasFile) {
		select {
		case reloaded <- cfg:
		default:
		}
	})

	if err := w.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer w.Stop()

	updated := `
[[cameras]]
id = "cam1"
standby_video = "a.mp4"

[[cameras]]
id = "cam2"
standby_video = "b.mp4"
`
	if err := os.WriteFile(path, []byte(updated), 0o644); err != nil {
		t.Fatalf("rewrite config: %v", err)
	}

	select {
	case cfg := <-reloaded:
		if len(cfg.Cameras) != 2 {
			t.Errorf("reloaded cameras = %d, want 2", len(cfg.Cameras))
		}
	case <-time.After(3 * time.Second):
		t.Fatal("timeout waiting for reload notification")
	}
}

func TestWatcherIgnoresInvalidChange(t *testing.T) {
	path := writeConfigFile(t, `
[[cameras]]
id = "cam1"
standby_video = "a.mp4"
`)

	loader := func(p string) (CamerasFile, error) {
		cfg, _, err := LoadCameras(p)
		return cfg, err
	}

	w := NewWatcher(path, loader, slog.New(slog.NewTextHandler(io.Discard, nil)))
	w.debounce = 50 * time.Millisecond

	reloaded := make(chan CamerasFile, 1)
	w.OnReload(func(cfg CamerasFile) {
		select {
		case reloaded <- cfg:
		default:
		}
	})

	if err := w.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer w.Stop()

	if err := os.WriteFile(path, []byte("broken ["), 0o644); err != nil {
		t.Fatalf("rewrite config: %v", err)
	}

	select {
	case <-reloaded:
		t.Fatal("handler called for a config that fails to load")
	case <-time.After(500 * time.Millisecond):
	}
}

func TestWatcherStopBeforeStart(t *testing.T) {
	w := NewWatcher("nonexistent.toml", func(string) (CamerasFile, error) {
		return CamerasFile{}, nil
	}, slog.New(slog.NewTextHandler(io.Discard, nil)))

	if err := w.Stop(); err != nil {
		t.Errorf("Stop before Start: %v", err)
	}
}
