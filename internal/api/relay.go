package api

import (
	"io"
	"net/http"
	"net/url"
	"time"
)

// registerRelayRoutes mounts the WebRTC signaling relay. Browsers exchange
// SDP with the external go2rtc service through this endpoint so they only
// ever talk to the API port, avoiding CORS and extra exposed ports.
func (s *Server) registerRelayRoutes() {
	if s.options.Go2RTCURL == "" {
		return
	}
	s.mux.HandleFunc("POST /api/webrtc", s.handleWebRTCRelay)
}

func (s *Server) handleWebRTCRelay(w http.ResponseWriter, r *http.Request) {
	src := r.URL.Query().Get("src")
	if src == "" {
		http.Error(w, "missing src parameter", http.StatusBadRequest)
		return
	}

	target := s.options.Go2RTCURL + "/api/webrtc?src=" + url.QueryEscape(src)

	req, err := http.NewRequestWithContext(r.Context(), http.MethodPost, target, r.Body)
	if err != nil {
		http.Error(w, "bad relay request", http.StatusInternalServerError)
		return
	}
	req.Header.Set("Content-Type", "application/sdp")

	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		s.logger.Error("WebRTC relay failed", "src", src, "error", err)
		http.Error(w, "upstream unavailable", http.StatusBadGateway)
		return
	}
	defer resp.Body.Close()

	w.Header().Set("Content-Type", "application/sdp")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.WriteHeader(resp.StatusCode)
	if _, err := io.Copy(w, resp.Body); err != nil {
		s.logger.Debug("WebRTC relay response truncated", "src", src, "error", err)
	}
}
