package web

import (
	"fmt"
	"net/http"
	"time"
)

// handleSelectionStream sends every selection as a server-sent event.
// Recent selections are replayed first.
func (s *Server) handleSelectionStream(w http.ResponseWriter, r *http.Request) {
	if s.feed == nil {
		s.writeError(w, http.StatusServiceUnavailable, "selection feed is not available")
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		s.writeError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	// The stream outlives the server's write timeout.
	_ = http.NewResponseController(w).SetWriteDeadline(time.Time{})

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	_, _ = fmt.Fprintf(w, "retry: 10000\n\n")
	flusher.Flush()

	ch, unsubscribe := s.feed.Subscribe()
	defer unsubscribe()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-ch:
			if !ok {
				_, _ = fmt.Fprintf(w, "event: done\ndata: feed closed\n\n")
				flusher.Flush()
				return
			}
			_, _ = fmt.Fprintf(w, "event: selection\ndata: %s\n\n", event)
			flusher.Flush()
		}
	}
}
