package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humago"

	"github.com/mfahlbusch/camswitch/internal/camera"
	"github.com/mfahlbusch/camswitch/internal/events"
	"github.com/mfahlbusch/camswitch/internal/logging"
	"github.com/mfahlbusch/camswitch/internal/version"
)

// Options configures the HTTP API server.
type Options struct {
	Registry       *camera.Registry
	EventBus       *events.Bus
	Go2RTCURL      string       // base URL of the external go2rtc service
	HLSRoot        string       // directory holding per-camera HLS output
	MetricsHandler http.Handler // optional Prometheus handler
}

// Server is the HTTP API over the camera registry. It is a thin consumer
// of the core interfaces: control, status, and push notifications.
type Server struct {
	api        huma.API
	mux        *http.ServeMux
	httpServer *http.Server
	registry   *camera.Registry
	eventBus   *events.Bus
	options    *Options
	logger     *slog.Logger
}

// NewServer creates the API server with Huma v2 over Go 1.22+ native
// routing.
func NewServer(opts *Options) *Server {
	mux := http.NewServeMux()

	corsConfig := DefaultCORSConfig()
	AddCORSHandler(mux, corsConfig)

	config := huma.DefaultConfig("camswitch API", version.Version)
	config.Info.Description = "Dual-pipeline camera stream manager: a looping placeholder and a live feed per camera, switched without encoder restarts"
	// Empty servers list makes OpenAPI use relative paths, working with any host.
	config.Servers = []*huma.Server{}

	api := humago.New(mux, config)

	server := &Server{
		api:      api,
		mux:      mux,
		registry: opts.Registry,
		eventBus: opts.EventBus,
		options:  opts,
		logger:   logging.GetLogger("api"),
	}

	api.UseMiddleware(NewCORSMiddleware(corsConfig))

	if opts.MetricsHandler != nil {
		mux.Handle("GET /metrics", opts.MetricsHandler)
	}

	// HLS segments written by the standby encoders.
	if opts.HLSRoot != "" {
		mux.Handle("GET /hls/", http.StripPrefix("/hls/", http.FileServer(http.Dir(opts.HLSRoot))))
	}

	server.registerStreamRoutes()
	server.registerEventRoutes()
	server.registerRelayRoutes()
	server.registerVersionRoute()

	return server
}

// VersionResponse wraps build metadata.
type VersionResponse struct {
	Body version.Info
}

func (s *Server) registerVersionRoute() {
	huma.Register(s.api, huma.Operation{
		OperationID: "get-version",
		Method:      http.MethodGet,
		Path:        "/api/version",
		Summary:     "Get Version",
		Description: "Application version and build information",
		Tags:        []string{"system"},
	}, func(_ context.Context, _ *struct{}) (*VersionResponse, error) {
		return &VersionResponse{Body: version.Get()}, nil
	})
}

// Start starts the HTTP server on the specified address. Blocks until the
// server stops.
func (s *Server) Start(addr string) error {
	s.logger.Info("Starting HTTP API server", "addr", addr)

	s.httpServer = &http.Server{
		Addr:    addr,
		Handler: s.mux,
	}
	return s.httpServer.ListenAndServe()
}

// Stop shuts down the server, closing open connections (including SSE
// streams) immediately.
func (s *Server) Stop() error {
	s.logger.Info("Stopping HTTP API server")
	if s.httpServer != nil {
		return s.httpServer.Close()
	}
	return nil
}
