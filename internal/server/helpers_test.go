package server

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/spf13/afero"

	"github.com/Kush-Singh-26/isoserve/internal/config"
	"github.com/Kush-Singh-26/isoserve/internal/mimetype"
)

// newTestFs creates an in-memory root with the given files. Paths are absolute within the root.
func newTestFs(t *testing.T, files map[string]string) afero.Fs {
	t.Helper()
	fs := afero.NewMemMapFs()
	for path, content := range files {
		if err := afero.WriteFile(fs, path, []byte(content), 0644); err != nil {
			t.Fatalf("Failed to write %s: %v", path, err)
		}
	}
	return fs
}

// newTestServer builds a quiet server over fs; mutate adjusts the default config.
func newTestServer(t *testing.T, fs afero.Fs, mutate func(*config.Config)) *Server {
	t.Helper()
	if err := mimetype.RegisterAll(nil); err != nil {
		t.Fatalf("Failed to register mime types: %v", err)
	}
	cfg := config.Default()
	cfg.AccessLog = false
	if mutate != nil {
		mutate(cfg)
	}
	return New(cfg, fs)
}

type requestOption func(*http.Request)

func withHeader(key, value string) requestOption {
	return func(r *http.Request) { r.Header.Set(key, value) }
}

// do runs a request through h and returns the recorded response and body.
func do(t *testing.T, h http.Handler, method, target string, opts ...requestOption) (*http.Response, string) {
	t.Helper()
	req := httptest.NewRequest(method, target, nil)
	for _, opt := range opts {
		opt(req)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	resp := rec.Result()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("Failed to read body: %v", err)
	}
	return resp, string(body)
}

// assertIsolationHeaders checks both cross-origin isolation headers.
func assertIsolationHeaders(t *testing.T, resp *http.Response) {
	t.Helper()
	if got := resp.Header.Get(HeaderEmbedderPolicy); got != EmbedderPolicy {
		t.Errorf("%s = %q, want %q (status %d)", HeaderEmbedderPolicy, got, EmbedderPolicy, resp.StatusCode)
	}
	if got := resp.Header.Get(HeaderOpenerPolicy); got != OpenerPolicy {
		t.Errorf("%s = %q, want %q (status %d)", HeaderOpenerPolicy, got, OpenerPolicy, resp.StatusCode)
	}
	if n := len(resp.Header.Values(HeaderEmbedderPolicy)); n != 1 {
		t.Errorf("%s sent %d times, want once", HeaderEmbedderPolicy, n)
	}
	if n := len(resp.Header.Values(HeaderOpenerPolicy)); n != 1 {
		t.Errorf("%s sent %d times, want once", HeaderOpenerPolicy, n)
	}
}
