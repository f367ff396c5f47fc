// Package mimetype wraps the process-wide content-type table.
package mimetype

import (
	"fmt"
	"mime"
	"path/filepath"
	"strings"
)

// Fallback is returned for extensions the table does not know.
const Fallback = "application/octet-stream"

// Defaults are registered on every startup. Many platform tables omit .wasm or
// map it to something browsers refuse to compile.
var Defaults = map[string]string{
	".wasm": "application/wasm",
}

// Register inserts or overrides a mapping. Calling it twice with the same
// arguments is a no-op.
func Register(ext, mimeType string) error {
	ext = normalizeExt(ext)
	if ext == "" || ext == "." {
		return fmt.Errorf("empty extension")
	}
	if strings.TrimSpace(mimeType) == "" {
		return fmt.Errorf("empty mime type for %s", ext)
	}
	if err := mime.AddExtensionType(ext, mimeType); err != nil {
		return fmt.Errorf("register %s: %w", ext, err)
	}
	return nil
}

// RegisterAll registers Defaults followed by extra. Entries in extra win.
func RegisterAll(extra map[string]string) error {
	for ext, typ := range Defaults {
		if err := Register(ext, typ); err != nil {
			return err
		}
	}
	for ext, typ := range extra {
		if err := Register(ext, typ); err != nil {
			return err
		}
	}
	return nil
}

// Lookup returns the content type for name based on its extension.
func Lookup(name string) string {
	ext := filepath.Ext(name)
	if ext == "" {
		return Fallback
	}
	if typ := mime.TypeByExtension(ext); typ != "" {
		return typ
	}
	return Fallback
}

func normalizeExt(ext string) string {
	ext = strings.ToLower(strings.TrimSpace(ext))
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return ext
}
