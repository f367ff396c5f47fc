package server

import (
	"fmt"
	"net/http"
	"time"
)

// EventsPath is the live-reload Server-Sent Events endpoint, registered only
// when watching is enabled. Pages opt in with new EventSource(EventsPath).
const EventsPath = "/__isoserve/events"

func (r *reloader) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodGet {
		w.Header().Set("Allow", "GET")
		httpError(w, http.StatusMethodNotAllowed, "405 - Method Not Allowed")
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		httpError(w, http.StatusInternalServerError, "500 - Streaming unsupported")
		return
	}

	// The stream outlives the server's WriteTimeout.
	_ = http.NewResponseController(w).SetWriteDeadline(time.Time{})

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	clientChan := r.subscribe()
	defer r.unsubscribe(clientChan)

	_, _ = fmt.Fprintf(w, "data: connected\n\n")
	flusher.Flush()

	for {
		select {
		case <-req.Context().Done():
			return
		case <-r.done:
			return
		case <-clientChan:
			_, _ = fmt.Fprintf(w, "data: reload\n\n")
			flusher.Flush()
		}
	}
}
