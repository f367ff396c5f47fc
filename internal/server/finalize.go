package server

import (
	"log/slog"
	"net/http"
	"time"
)

// Cross-origin isolation headers. Browsers only expose SharedArrayBuffer and
// high-resolution timers to documents served with both.
const (
	HeaderEmbedderPolicy = "Cross-Origin-Embedder-Policy"
	HeaderOpenerPolicy   = "Cross-Origin-Opener-Policy"

	EmbedderPolicy = "require-corp"
	OpenerPolicy   = "same-origin"
)

// finalizeHeaders is the only place the isolation headers are written.
// Every status line goes through responseWriter.WriteHeader, which calls it.
func finalizeHeaders(h http.Header) {
	h.Set(HeaderEmbedderPolicy, EmbedderPolicy)
	h.Set(HeaderOpenerPolicy, OpenerPolicy)
}

// responseWriter finalizes headers on the first WriteHeader or Write and
// records what was sent for the access log.
type responseWriter struct {
	http.ResponseWriter
	status      int
	bytes       int64
	wroteHeader bool
}

func (w *responseWriter) WriteHeader(code int) {
	if w.wroteHeader {
		return
	}
	w.wroteHeader = true
	w.status = code
	finalizeHeaders(w.Header())
	w.ResponseWriter.WriteHeader(code)
}

func (w *responseWriter) Write(b []byte) (int, error) {
	if !w.wroteHeader {
		w.WriteHeader(http.StatusOK)
	}
	n, err := w.ResponseWriter.Write(b)
	w.bytes += int64(n)
	return n, err
}

func (w *responseWriter) Flush() {
	if !w.wroteHeader {
		w.WriteHeader(http.StatusOK)
	}
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// Unwrap lets http.ResponseController reach the connection.
func (w *responseWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}

// finalize wraps the whole handler chain. A handler that returns without
// writing still gets an explicit 200 so the headers are never skipped.
func (s *Server) finalize(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &responseWriter{ResponseWriter: w}

		next.ServeHTTP(rw, r)

		if !rw.wroteHeader {
			rw.WriteHeader(http.StatusOK)
		}

		s.metrics.Record(rw.status, rw.bytes)
		if s.cfg.AccessLog {
			slog.Info("request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", rw.status,
				"bytes", rw.bytes,
				"duration", time.Since(start),
				"remote", r.RemoteAddr,
			)
		}
	})
}
