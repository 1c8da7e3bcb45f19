package camera

import (
	"log/slog"

	"github.com/mfahlbusch/camswitch/internal/config"
	"github.com/mfahlbusch/camswitch/internal/events"
)

// Registry owns the lifetime of every camera bundle. Bundles are created
// once from configuration and never recreated while the process runs.
// Iteration order is always the configuration declaration order.
type Registry struct {
	cameras map[string]*Camera
	order   []*Camera
	logger  *slog.Logger
}

// NewRegistry builds one camera bundle per configured camera.
func NewRegistry(cfgs []config.Camera, hlsRoot string, bus *events.Bus, logger *slog.Logger) (*Registry, error) {
	r := &Registry{
		cameras: make(map[string]*Camera, len(cfgs)),
		order:   make([]*Camera, 0, len(cfgs)),
		logger:  logger,
	}

	for _, cfg := range cfgs {
		cam, err := New(cfg, hlsRoot, bus, logger)
		if err != nil {
			return nil, err
		}
		r.cameras[cfg.ID] = cam
		r.order = append(r.order, cam)
	}

	return r, nil
}

// StartAll starts every camera's supervisor in registration order.
func (r *Registry) StartAll() {
	r.logger.Info("Starting all cameras", "count", len(r.order))
	for _, cam := range r.order {
		cam.Start()
	}
}

// StopAll stops every camera's supervisor in registration order, blocking
// until all supervised processes are dead.
func (r *Registry) StopAll() {
	r.logger.Info("Stopping all cameras")
	for _, cam := range r.order {
		cam.Stop()
	}
	r.logger.Info("All cameras stopped")
}

// Get returns the camera with the given id.
func (r *Registry) Get(id string) (*Camera, bool) {
	cam, ok := r.cameras[id]
	return cam, ok
}

// Cameras returns all cameras in registration order.
func (r *Registry) Cameras() []*Camera {
	out := make([]*Camera, len(r.order))
	copy(out, r.order)
	return out
}

// AllStatus returns every camera's status view in registration order.
func (r *Registry) AllStatus() []Status {
	out := make([]Status, 0, len(r.order))
	for _, cam := range r.order {
		out = append(out, cam.Status())
	}
	return out
}
