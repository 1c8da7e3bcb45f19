package control

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strings"
	"sync"

	"github.com/mfahlbusch/camswitch/internal/camera"
)

// Server accepts TCP connections speaking the newline-delimited command
// protocol. Connections are persistent and independent: a parse error or
// disconnect on one never affects others or the accept loop.
type Server struct {
	registry *camera.Registry
	logger   *slog.Logger

	listener net.Listener
	mu       sync.Mutex
	conns    map[net.Conn]struct{}
	closing  bool
	wg       sync.WaitGroup
}

// NewServer creates a command protocol server over the given registry.
func NewServer(registry *camera.Registry, logger *slog.Logger) *Server {
	return &Server{
		registry: registry,
		logger:   logger,
		conns:    make(map[net.Conn]struct{}),
	}
}

// Start binds the listener and begins accepting connections.
func (s *Server) Start(addr string) error {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	s.listener = listener
	s.logger.Info("Command server listening", "addr", listener.Addr().String())

	s.wg.Add(1)
	go s.acceptLoop()
	return nil
}

// Addr returns the bound listener address.
func (s *Server) Addr() net.Addr {
	return s.listener.Addr()
}

// Stop closes the listener and all open connections and waits for the
// handler goroutines to finish.
func (s *Server) Stop() {
	s.mu.Lock()
	s.closing = true
	conns := make([]net.Conn, 0, len(s.conns))
	for conn := range s.conns {
		conns = append(conns, conn)
	}
	s.mu.Unlock()

	if s.listener != nil {
		s.listener.Close()
	}
	for _, conn := range conns {
		conn.Close()
	}
	s.wg.Wait()
	s.logger.Info("Command server stopped")
}

func (s *Server) acceptLoop() {
	defer s.wg.Done()

	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return
			}
			s.logger.Warn("Accept failed", "error", err)
			continue
		}

		s.mu.Lock()
		if s.closing {
			s.mu.Unlock()
			conn.Close()
			return
		}
		s.conns[conn] = struct{}{}
		s.mu.Unlock()

		s.wg.Add(1)
		go s.handleConn(conn)
	}
}

func (s *Server) handleConn(conn net.Conn) {
	addr := conn.RemoteAddr().String()
	s.logger.Info("Client connected", "addr", addr)

	defer func() {
		conn.Close()
		s.mu.Lock()
		delete(s.conns, conn)
		s.mu.Unlock()
		s.wg.Done()
		s.logger.Info("Client disconnected", "addr", addr)
	}()

	scanner := bufio.NewScanner(conn)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		s.logger.Debug("Command received", "addr", addr, "line", line)

		response := s.dispatch(ParseLine(line))
		payload, err := json.Marshal(response)
		if err != nil {
			payload = []byte(`{"error":"internal error"}`)
		}
		payload = append(payload, '\n')

		if _, err := conn.Write(payload); err != nil {
			s.logger.Warn("Write failed", "addr", addr, "error", err)
			return
		}
	}
}

// dispatch applies a command to the registry and produces exactly one
// response value. User errors (unknown action or target) mutate nothing.
func (s *Server) dispatch(cmd Command) any {
	switch cmd.Action {
	case "status":
		// Target is ignored: status always covers every camera.
		return statusResponse{Streams: s.registry.AllStatus()}

	case "live", "standby", "toggle":
		var targets []*camera.Camera
		switch cmd.Stream {
		case "", "*":
			targets = s.registry.Cameras()
		default:
			cam, ok := s.registry.Get(cmd.Stream)
			if !ok {
				return errorResponse{Error: fmt.Sprintf("unknown stream: %s", cmd.Stream)}
			}
			targets = []*camera.Camera{cam}
		}

		statuses := make([]camera.Status, 0, len(targets))
		for _, cam := range targets {
			switch cmd.Action {
			case "live":
				statuses = append(statuses, cam.SetLive())
			case "standby":
				statuses = append(statuses, cam.SetStandby())
			case "toggle":
				statuses = append(statuses, cam.Toggle())
			}
		}
		return statusResponse{Streams: statuses}

	default:
		return errorResponse{Error: fmt.Sprintf("unknown action: %s", cmd.Action)}
	}
}
