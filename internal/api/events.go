package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/sse"

	"github.com/mfahlbusch/camswitch/internal/events"
)

const keepaliveInterval = 15 * time.Second

// registerEventRoutes registers the push-notification endpoints: a global
// typed event stream and a per-camera stream fed by the camera's
// broadcaster.
func (s *Server) registerEventRoutes() {
	sse.Register(s.api, huma.Operation{
		OperationID: "events-stream",
		Method:      http.MethodGet,
		Path:        "/api/events",
		Summary:     "Server-Sent Events Stream",
		Description: "Real-time mode changes, encoder exits, and config changes across all cameras",
		Tags:        []string{"events"},
	}, map[string]any{
		"mode-changed":    events.ModeChangedEvent{},
		"process-exit":    events.ProcessExitEvent{},
		"config-reloaded": events.ConfigReloadedEvent{},
	}, func(ctx context.Context, _ *struct{}, send sse.Sender) {
		eventCh := make(chan any, 10)

		unsubscribers := []func(){
			events.SubscribeToChannel[events.ModeChangedEvent](s.eventBus, eventCh),
			events.SubscribeToChannel[events.ProcessExitEvent](s.eventBus, eventCh),
			events.SubscribeToChannel[events.ConfigReloadedEvent](s.eventBus, eventCh),
		}
		defer func() {
			for _, unsub := range unsubscribers {
				unsub()
			}
		}()

		for {
			select {
			case <-ctx.Done():
				return
			case event := <-eventCh:
				if err := send.Data(event); err != nil {
					return
				}
			}
		}
	})

	// The per-camera stream carries payloads already serialized by the
	// broadcaster, so it bypasses Huma's typed SSE layer.
	s.mux.HandleFunc("GET /api/streams/{stream_id}/events", s.handleStreamEvents)
}

// handleStreamEvents streams one camera's mode changes: an immediate status
// snapshot, then one event per actual transition, with periodic keepalive
// comments. The subscriber handle is released when the peer disconnects.
func (s *Server) handleStreamEvents(w http.ResponseWriter, r *http.Request) {
	cam, ok := s.registry.Get(r.PathValue("stream_id"))
	if !ok {
		http.NotFound(w, r)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("X-Accel-Buffering", "no")
	h.Set("Access-Control-Allow-Origin", "*")

	sub := cam.Subscribe()
	defer cam.Unsubscribe(sub)

	// Immediate snapshot so clients render without waiting for a change.
	snapshot, err := json.Marshal(cam.Status())
	if err != nil {
		return
	}
	if _, err := fmt.Fprintf(w, "data: %s\n\n", snapshot); err != nil {
		return
	}
	flusher.Flush()

	keepalive := time.NewTicker(keepaliveInterval)
	defer keepalive.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case payload := <-sub.Events():
			if _, err := fmt.Fprintf(w, "data: %s\n\n", payload); err != nil {
				return
			}
			flusher.Flush()
		case <-keepalive.C:
			if _, err := fmt.Fprint(w, ": keepalive\n\n"); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}
