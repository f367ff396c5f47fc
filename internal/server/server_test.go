package server

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/Kush-Singh-26/isoserve/internal/config"
	"github.com/Kush-Singh-26/isoserve/internal/metrics"
)

func localConfig(c *config.Config) {
	c.Host = "127.0.0.1"
	c.Port = 0
}

func TestListen_PortInUse(t *testing.T) {
	first := newTestServer(t, newTestFs(t, nil), localConfig)
	if err := first.Listen(); err != nil {
		t.Fatalf("first Listen() error = %v", err)
	}
	defer func() { _ = first.listener.Close() }()

	port := first.Addr().(*net.TCPAddr).Port
	second := newTestServer(t, newTestFs(t, nil), func(c *config.Config) {
		c.Host = "127.0.0.1"
		c.Port = port
	})
	if err := second.Listen(); err == nil {
		_ = second.listener.Close()
		t.Fatal("second Listen() on a bound port should fail")
	}
}

func TestServe_BeforeListen(t *testing.T) {
	s := newTestServer(t, newTestFs(t, nil), localConfig)
	if err := s.Serve(context.Background()); err == nil {
		t.Error("Serve() without Listen() should fail")
	}
}

func TestServe_ServesAndStops(t *testing.T) {
	files := map[string]string{"/index.html": "hello", "/style.wasm": "\x00asm"}
	s := newTestServer(t, newTestFs(t, files), localConfig)
	if err := s.Listen(); err != nil {
		t.Fatalf("Listen() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Serve(ctx) }()

	base := fmt.Sprintf("http://%s", s.Addr())

	resp, err := http.Get(base + "/index.html")
	if err != nil {
		t.Fatalf("GET error = %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusOK || string(body) != "hello" {
		t.Errorf("got %d %q, want 200 %q", resp.StatusCode, body, "hello")
	}
	assertIsolationHeaders(t, resp)

	resp, err = http.Get(base + "/style.wasm")
	if err != nil {
		t.Fatalf("GET error = %v", err)
	}
	_ = resp.Body.Close()
	if got := resp.Header.Get("Content-Type"); got != "application/wasm" {
		t.Errorf("Content-Type = %q, want application/wasm", got)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Serve() after cancel = %v, want nil", err)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("Serve() did not return after cancel")
	}

	if _, err := http.Get(base + "/index.html"); err == nil {
		t.Error("listener should be closed after shutdown")
	}
}

func TestRun_MissingRoot(t *testing.T) {
	restoreWorkingDir(t)

	missing := filepath.Join(t.TempDir(), "dist")
	err := Run(context.Background(), []string{"-root", missing, "-host", "127.0.0.1", "-port", "0"})
	if err == nil {
		t.Fatal("Run() should fail when the root directory is missing")
	}
}

func TestRun_BadFlag(t *testing.T) {
	if err := Run(context.Background(), []string{"-port", "not-a-port"}); err == nil {
		t.Error("Run() should fail on a bad flag value")
	}
}

func TestRun_InterruptIsNotAnError(t *testing.T) {
	restoreWorkingDir(t)

	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "index.html"), []byte("hi"), 0644); err != nil {
		t.Fatalf("Failed to write file: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	err := Run(ctx, []string{"-root", dir, "-host", "127.0.0.1", "-port", "0", "-quiet", "-watch"})
	if err != nil {
		t.Fatalf("Run() = %v, want nil on interrupt", err)
	}

	wd, _ := os.Getwd()
	gotWd, _ := filepath.EvalSymlinks(wd)
	wantWd, _ := filepath.EvalSymlinks(dir)
	if gotWd != wantWd {
		t.Errorf("working directory = %q, want root %q", gotWd, wantWd)
	}
}

func TestStopReport(t *testing.T) {
	m := metrics.NewServeMetrics()
	m.Record(http.StatusOK, 512)

	clean := stopReport(m, nil)
	for _, want := range []string{"Server stopped", "Served 1 requests"} {
		if !strings.Contains(clean, want) {
			t.Errorf("stopReport(nil) = %q, want it to contain %q", clean, want)
		}
	}

	failed := stopReport(m, fmt.Errorf("accept: %w", net.ErrClosed))
	for _, unwanted := range []string{"Server stopped", "Served"} {
		if strings.Contains(failed, unwanted) {
			t.Errorf("stopReport(err) = %q, should not contain %q", failed, unwanted)
		}
	}
}
