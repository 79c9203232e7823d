package server

import (
	"encoding/json"
	"net/http"
	"sync/atomic"
	"time"
)

// Health reports whether the chat session is connected.
type Health struct {
	connected atomic.Bool
	since     atomic.Int64
}

func (h *Health) Routes() []string {
	return []string{"/healthz"}
}

// SetConnected records a connection state change.
func (h *Health) SetConnected(ok bool) {
	h.connected.Store(ok)
	h.since.Store(time.Now().Unix())
}

func (h *Health) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	status := http.StatusOK
	state := "connected"
	if !h.connected.Load() {
		status = http.StatusServiceUnavailable
		state = "disconnected"
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]any{"status": state, "since": h.since.Load()})
}
