package events

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/noah-isme/cafe-storefront/internal/common"
)

// CountSource reports the current cart count of a session.
type CountSource interface {
	CurrentCount(sessionID string) int
}

// StreamHandler streams cart counts as server-sent events.
type StreamHandler struct {
	Broadcaster *Broadcaster
	Counts      CountSource
	Heartbeat   time.Duration
}

// ServeHTTP writes the current count immediately, then one event per change.
func (h *StreamHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := common.SessionID(r.Context())
	if !ok {
		common.JSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "session required", nil)
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok || h.Broadcaster == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "streaming unsupported", nil)
		return
	}

	updates, cancel := h.Broadcaster.Subscribe(sessionID)
	defer cancel()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	initial := CartCount{SessionID: sessionID, At: time.Now().UTC()}
	if h.Counts != nil {
		initial.Count = h.Counts.CurrentCount(sessionID)
	}
	if err := writeCount(w, initial); err != nil {
		return
	}
	flusher.Flush()

	heartbeat := h.Heartbeat
	if heartbeat <= 0 {
		heartbeat = 15 * time.Second
	}
	ticker := time.NewTicker(heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case c, ok := <-updates:
			if !ok {
				return
			}
			if err := writeCount(w, c); err != nil {
				return
			}
			flusher.Flush()
		case <-ticker.C:
			if _, err := fmt.Fprint(w, ": ping\n\n"); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}

func writeCount(w http.ResponseWriter, c CartCount) error {
	data, err := json.Marshal(c)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "event: cart-count\ndata: %s\n\n", data)
	return err
}
