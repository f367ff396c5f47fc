package server

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path"
	"strconv"
	"strings"

	"github.com/spf13/afero"

	"github.com/Kush-Singh-26/isoserve/internal/mimetype"
)

// fileServer resolves request paths against an afero filesystem rooted at "/".
type fileServer struct {
	fs           afero.Fs
	indexFiles   []string
	listDirs     bool
	notFoundPage string

	// realRoot, when set, is the symlink-free root on disk; resolved files must stay under it.
	realRoot string
}

func (f *fileServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.Header().Set("Allow", "GET, HEAD")
		httpError(w, http.StatusMethodNotAllowed, "405 - Method Not Allowed")
		return
	}

	name, err := resolvePath(r.URL.Path)
	if err != nil {
		slog.Warn("Rejected request path", "path", r.URL.Path, "error", err)
		httpError(w, http.StatusForbidden, "403 - Forbidden: Invalid path")
		return
	}
	if err := f.confine(name); err != nil {
		slog.Warn("Rejected request path", "path", r.URL.Path, "error", err)
		httpError(w, http.StatusForbidden, "403 - Forbidden: Invalid path")
		return
	}

	info, err := f.fs.Stat(name)
	if err != nil {
		f.serveStatError(w, r, name, err)
		return
	}

	if info.IsDir() {
		f.serveDir(w, r, name)
		return
	}
	if !info.Mode().IsRegular() {
		httpError(w, http.StatusForbidden, "403 - Forbidden")
		return
	}
	f.serveFile(w, r, name, info)
}

func (f *fileServer) serveDir(w http.ResponseWriter, r *http.Request, name string) {
	if !strings.HasSuffix(r.URL.Path, "/") {
		// Built from the resolved name so a path like //host never becomes a
		// protocol-relative Location.
		target := url.URL{Path: strings.TrimSuffix(name, "/") + "/", RawQuery: r.URL.RawQuery}
		w.Header().Set("Location", target.String())
		w.WriteHeader(http.StatusMovedPermanently)
		return
	}

	for _, index := range f.indexFiles {
		indexPath := path.Join(name, index)
		if f.confine(indexPath) != nil {
			continue
		}
		info, err := f.fs.Stat(indexPath)
		if err == nil && info.Mode().IsRegular() {
			f.serveFile(w, r, indexPath, info)
			return
		}
	}

	if !f.listDirs {
		httpError(w, http.StatusForbidden, "403 - Forbidden: Directory listing disabled")
		return
	}
	f.serveListing(w, r, name)
}

// confine rejects names whose on-disk target escapes realRoot through a symlink.
// A missing file is left for Stat to report as 404.
func (f *fileServer) confine(name string) error {
	if f.realRoot == "" {
		return nil
	}
	ok, err := withinRoot(f.realRoot, name)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	if !ok {
		return ErrTraversal
	}
	return nil
}

func (f *fileServer) serveFile(w http.ResponseWriter, r *http.Request, name string, info os.FileInfo) {
	file, err := f.fs.Open(name)
	if err != nil {
		f.serveStatError(w, r, name, err)
		return
	}
	defer func() {
		if cerr := file.Close(); cerr != nil {
			slog.Warn("Failed to close file", "path", name, "error", cerr)
		}
	}()

	w.Header().Set("Content-Type", mimetype.Lookup(name))
	http.ServeContent(w, r, info.Name(), info.ModTime(), file)
}

func (f *fileServer) serveStatError(w http.ResponseWriter, r *http.Request, name string, err error) {
	switch {
	case errors.Is(err, os.ErrNotExist):
		f.serveNotFound(w, r)
	case errors.Is(err, os.ErrPermission):
		httpError(w, http.StatusForbidden, "403 - Forbidden")
	default:
		slog.Warn("Failed to stat file", "path", name, "error", err)
		httpError(w, http.StatusInternalServerError, "500 - Internal Server Error")
	}
}

// serveNotFound writes the custom 404 page from the root when there is one.
func (f *fileServer) serveNotFound(w http.ResponseWriter, r *http.Request) {
	if f.notFoundPage != "" {
		page, err := afero.ReadFile(f.fs, "/"+f.notFoundPage)
		if err == nil {
			w.Header().Set("Content-Type", mimetype.Lookup(f.notFoundPage))
			w.Header().Set("Content-Length", strconv.Itoa(len(page)))
			w.WriteHeader(http.StatusNotFound)
			if r.Method != http.MethodHead {
				_, _ = w.Write(page)
			}
			return
		}
	}
	httpError(w, http.StatusNotFound, "404 - Page Not Found")
}

func httpError(w http.ResponseWriter, code int, msg string) {
	h := w.Header()
	h.Del("Content-Encoding")
	h.Set("Content-Type", "text/plain; charset=utf-8")
	h.Set("X-Content-Type-Options", "nosniff")
	h.Set("Content-Length", strconv.Itoa(len(msg)+1))
	w.WriteHeader(code)
	_, _ = io.WriteString(w, msg+"\n")
}
