package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/mfahlbusch/camswitch/internal/camera"
)

// StreamListResponse wraps the all-cameras status listing.
type StreamListResponse struct {
	Body struct {
		Streams []camera.Status `json:"streams" doc:"Status views in registration order"`
	}
}

// StreamResponse wraps a single camera status view.
type StreamResponse struct {
	Body camera.Status
}

type streamPathInput struct {
	StreamID string `path:"stream_id" example:"cam1" doc:"Camera identifier"`
}

// registerStreamRoutes registers status and mode-control endpoints.
func (s *Server) registerStreamRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "list-streams",
		Method:      http.MethodGet,
		Path:        "/api/streams",
		Summary:     "List Streams",
		Description: "Status of every configured camera, in registration order",
		Tags:        []string{"streams"},
	}, func(_ context.Context, _ *struct{}) (*StreamListResponse, error) {
		resp := &StreamListResponse{}
		resp.Body.Streams = s.registry.AllStatus()
		return resp, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "get-stream",
		Method:      http.MethodGet,
		Path:        "/api/streams/{stream_id}",
		Summary:     "Get Stream",
		Tags:        []string{"streams"},
		Errors:      []int{404},
	}, func(_ context.Context, input *streamPathInput) (*StreamResponse, error) {
		cam, ok := s.registry.Get(input.StreamID)
		if !ok {
			return nil, huma.Error404NotFound(fmt.Sprintf("unknown stream: %s", input.StreamID))
		}
		return &StreamResponse{Body: cam.Status()}, nil
	})

	s.registerModeRoute("set-live", "live", "Switch presentation to the live feed", (*camera.Camera).SetLive)
	s.registerModeRoute("set-standby", "standby", "Switch presentation to the standby loop", (*camera.Camera).SetStandby)
	s.registerModeRoute("toggle-mode", "toggle", "Flip the presentation mode", (*camera.Camera).Toggle)
}

// registerModeRoute registers one POST mode-transition endpoint. The three
// transitions differ only in which guarded method they call.
func (s *Server) registerModeRoute(opID, action, summary string, apply func(*camera.Camera) camera.Status) {
	huma.Register(s.api, huma.Operation{
		OperationID: opID,
		Method:      http.MethodPost,
		Path:        "/api/streams/{stream_id}/" + action,
		Summary:     summary,
		Tags:        []string{"streams"},
		Errors:      []int{404},
	}, func(_ context.Context, input *streamPathInput) (*StreamResponse, error) {
		cam, ok := s.registry.Get(input.StreamID)
		if !ok {
			return nil, huma.Error404NotFound(fmt.Sprintf("unknown stream: %s", input.StreamID))
		}
		return &StreamResponse{Body: apply(cam)}, nil
	})
}
