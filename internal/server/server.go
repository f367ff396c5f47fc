// Package server serves a prebuilt web application with cross-origin
// isolation enabled on every response.
package server

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"path/filepath"

	"github.com/spf13/afero"

	"github.com/Kush-Singh-26/isoserve/internal/config"
	"github.com/Kush-Singh-26/isoserve/internal/metrics"
	"github.com/Kush-Singh-26/isoserve/internal/mimetype"
)

// Server is a static file server bound to a single root filesystem.
type Server struct {
	cfg      *config.Config
	fs       afero.Fs
	metrics  *metrics.ServeMetrics
	reloader *reloader
	realRoot string

	listener   net.Listener
	httpServer *http.Server
}

// New creates a server for fsys. Paths are resolved against "/" in fsys.
func New(cfg *config.Config, fsys afero.Fs) *Server {
	return &Server{
		cfg:     cfg,
		fs:      fsys,
		metrics: metrics.NewServeMetrics(),
	}
}

// Metrics returns the counters collected so far.
func (s *Server) Metrics() *metrics.ServeMetrics {
	return s.metrics
}

// EnableLiveReload watches dir on the real filesystem and exposes EventsPath.
// It must be called before Listen.
func (s *Server) EnableLiveReload(dir string) error {
	r, err := newReloader(dir, s.cfg.DebounceDuration)
	if err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}
	s.reloader = r
	return nil
}

// ConfineSymlinks makes the server refuse files whose symlink target lies
// outside root on disk. It must be called before Listen.
func (s *Server) ConfineSymlinks(root string) error {
	realRoot, err := filepath.EvalSymlinks(root)
	if err != nil {
		return fmt.Errorf("resolve root directory: %w", err)
	}
	s.realRoot = realRoot
	return nil
}

// Handler returns the full handler chain. finalize is outermost so that the
// isolation headers cover every branch below it.
func (s *Server) Handler() http.Handler {
	var files http.Handler = &fileServer{
		fs:           s.fs,
		indexFiles:   s.cfg.IndexFiles,
		listDirs:     s.cfg.ListDirs,
		notFoundPage: s.cfg.NotFoundPage,
		realRoot:     s.realRoot,
	}
	if s.cfg.Compress {
		files = gzipHandler(files)
	}

	if s.reloader == nil {
		return s.finalize(files)
	}

	events := s.reloader
	return s.finalize(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == EventsPath {
			events.ServeHTTP(w, r)
			return
		}
		files.ServeHTTP(w, r)
	}))
}

// Listen binds the TCP listener. A busy port fails here, before anything is served.
func (s *Server) Listen() error {
	ln, err := net.Listen("tcp", s.cfg.Addr())
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.cfg.Addr(), err)
	}
	s.listener = ln

	s.httpServer = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: s.cfg.ReadHeaderTimeout,
		ReadTimeout:       s.cfg.ReadTimeout,
		WriteTimeout:      s.cfg.WriteTimeout,
		IdleTimeout:       s.cfg.IdleTimeout,
	}
	if s.reloader != nil {
		s.httpServer.RegisterOnShutdown(s.reloader.disconnect)
	}
	return nil
}

// Addr returns the bound address, or nil before Listen.
func (s *Server) Addr() net.Addr {
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Serve accepts connections until ctx is cancelled, then shuts down.
// Cancellation is a normal stop and returns nil.
func (s *Server) Serve(ctx context.Context) error {
	if s.listener == nil {
		return errors.New("server is not listening")
	}
	if s.reloader != nil {
		s.reloader.start()
		defer s.reloader.close()
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- s.httpServer.Serve(s.listener)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Warn("HTTP server shutdown error", "error", err)
		_ = s.httpServer.Close()
	}
	<-errCh
	return nil
}

// Run is the serve command: resolve config, enter the root directory, bind,
// print the banner and serve until ctx is cancelled.
func Run(ctx context.Context, args []string) error {
	cfg, err := config.Load(args)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil
		}
		return err
	}

	// Registered before the listener exists; read-only afterwards.
	if err := mimetype.RegisterAll(cfg.ExtraMimeTypes); err != nil {
		return err
	}

	root, err := prepareRoot(cfg.Root)
	if err != nil {
		return err
	}

	fsys := afero.NewReadOnlyFs(afero.NewBasePathFs(afero.NewOsFs(), root))
	srv := New(cfg, fsys)
	if err := srv.ConfineSymlinks(root); err != nil {
		return err
	}

	if cfg.Watch {
		if err := srv.EnableLiveReload(root); err != nil {
			slog.Warn("Live reload disabled", "error", err)
		}
	}

	if err := srv.Listen(); err != nil {
		if srv.reloader != nil {
			srv.reloader.close()
		}
		return err
	}

	printBanner(cfg, root, srv.Addr(), srv.reloader != nil)

	err = srv.Serve(ctx)
	fmt.Print(stopReport(srv.metrics, err))
	if err != nil {
		return fmt.Errorf("serve: %w", err)
	}
	return nil
}

// stopReport is the text printed once serving ends. The clean-stop message
// and summary are only for an interrupt; a failure is reported by the caller.
func stopReport(m *metrics.ServeMetrics, err error) string {
	if err != nil {
		return "\n⚠️  Server terminated unexpectedly\n"
	}
	return "\n👋 Server stopped\n" + m.String() + "\n"
}

func printBanner(cfg *config.Config, root string, addr net.Addr, live bool) {
	port := cfg.Port
	if tcp, ok := addr.(*net.TCPAddr); ok {
		port = tcp.Port
	}
	display := *cfg
	display.Port = port
	base := display.BaseURL()

	fmt.Printf("🚀 Serving %s at %s\n", filepath.Base(root), base)
	if cfg.TestPage != "" {
		fmt.Printf("📱 Test page at %s/%s\n", base, cfg.TestPage)
	}
	if cfg.Host == "" || cfg.Host == "0.0.0.0" {
		fmt.Println("   (Accessible on your local network)")
	}
	if live {
		fmt.Println("   (Auto-reload enabled via " + EventsPath + ")")
	}
	fmt.Println("Press Ctrl+C to stop")
	slog.Info("Listening", "addr", addr.String(), "root", root, "port", port)
}
