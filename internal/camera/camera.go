package camera

import (
	"fmt"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"sync"
	"time"

	"github.com/mfahlbusch/camswitch/internal/config"
	"github.com/mfahlbusch/camswitch/internal/events"
	"github.com/mfahlbusch/camswitch/internal/ffmpeg"
	"github.com/mfahlbusch/camswitch/internal/logging"
	"github.com/mfahlbusch/camswitch/internal/process"
)

// Camera bundles one camera's mode state, its standby-loop supervisor, and
// its subscriber set. Exactly one supervised encoder process exists per
// camera at any time. Cameras are created once at startup and live until
// shutdown.
type Camera struct {
	cfg        config.Camera
	supervisor *process.Supervisor
	bus        *events.Bus
	logger     *slog.Logger

	// mu serializes transitions so concurrent commands on the same camera
	// cannot interleave or double-notify.
	mu          sync.Mutex
	mode        Mode
	broadcaster *Broadcaster
}

// New creates a camera bundle in standby mode. The HLS output directory is
// created up front so ffmpeg can write segments immediately.
func New(cfg config.Camera, hlsRoot string, bus *events.Bus, logger *slog.Logger) (*Camera, error) {
	outputDir := filepath.Join(hlsRoot, cfg.ID, "standby")
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create HLS directory for %s: %w", cfg.ID, err)
	}

	command := ffmpeg.BuildLoopCommand(&ffmpeg.Params{
		LoopMedia:       cfg.LoopMedia,
		SegmentDuration: cfg.SegmentDuration,
		OutputDir:       outputDir,
	})

	sup := process.NewSupervisor(cfg.ID, command, logging.GetLogger("process"))
	sup.SetLogParser(logging.GetLogger("ffmpeg").With("stream_id", cfg.ID), ffmpeg.ParseLogLevel)

	c := &Camera{
		cfg:         cfg,
		supervisor:  sup,
		bus:         bus,
		logger:      logger,
		mode:        ModeStandby,
		broadcaster: NewBroadcaster(),
	}

	sup.OnExit(func(exitCode int) {
		bus.Publish(events.ProcessExitEvent{
			StreamID:  cfg.ID,
			ExitCode:  exitCode,
			Timestamp: time.Now().Format(time.RFC3339),
		})
	})

	return c, nil
}

// ID returns the camera identifier.
func (c *Camera) ID() string { return c.cfg.ID }

// Start begins supervising the standby-loop encoder.
func (c *Camera) Start() {
	c.supervisor.Start()
	c.logger.Info("Standby encoder supervision started", "stream_id", c.cfg.ID)
}

// Stop terminates the standby encoder and blocks until it is dead.
func (c *Camera) Stop() {
	c.supervisor.Stop()
}

// Mode returns the current presentation mode.
func (c *Camera) Mode() Mode {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.mode
}

// SetLive switches presentation to the live feed. A camera already live is
// left untouched and no notification is sent.
func (c *Camera) SetLive() Status {
	return c.transition(ModeLive)
}

// SetStandby switches presentation to the standby loop. A camera already on
// standby is left untouched and no notification is sent.
func (c *Camera) SetStandby() Status {
	return c.transition(ModeStandby)
}

// Toggle flips the presentation mode unconditionally.
func (c *Camera) Toggle() Status {
	c.mu.Lock()
	defer c.mu.Unlock()

	target := ModeLive
	if c.mode == ModeLive {
		target = ModeStandby
	}
	return c.applyLocked(target)
}

func (c *Camera) transition(target Mode) Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.applyLocked(target)
}

// applyLocked performs the transition under c.mu. Actual transitions emit
// exactly one notification; no-ops emit none.
func (c *Camera) applyLocked(target Mode) Status {
	if c.mode == target {
		return c.statusLocked()
	}

	c.mode = target
	c.logger.Info("Mode changed", "stream_id", c.cfg.ID, "mode", string(target))

	status := c.statusLocked()
	c.broadcaster.Notify(status)
	c.bus.Publish(events.ModeChangedEvent{
		StreamID:  c.cfg.ID,
		Name:      c.cfg.Name,
		Mode:      string(target),
		Timestamp: time.Now().Format(time.RFC3339),
	})
	return status
}

// Status returns a snapshot of the camera's current state.
func (c *Camera) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.statusLocked()
}

func (c *Camera) statusLocked() Status {
	return Status{
		ID:           c.cfg.ID,
		Name:         c.cfg.Name,
		Mode:         c.mode,
		StandbyURL:   path.Join("/hls", c.cfg.ID, "standby", "index.m3u8"),
		WebRTCSource: c.cfg.ID,
		StandbyOK:    c.supervisor.Alive(),
	}
}

// Subscribe registers a notification subscriber for this camera.
func (c *Camera) Subscribe() *Subscriber {
	return c.broadcaster.Subscribe()
}

// Unsubscribe releases a subscriber handle.
func (c *Camera) Unsubscribe(sub *Subscriber) {
	c.broadcaster.Unsubscribe(sub)
}

// SubscriberCount returns the number of active subscribers.
func (c *Camera) SubscriberCount() int {
	return c.broadcaster.Count()
}
