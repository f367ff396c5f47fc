package server

import (
	"bytes"
	"html/template"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"

	"github.com/spf13/afero"
)

var listingTemplate = template.Must(template.New("listing").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>Directory listing for {{.Path}}</title>
</head>
<body>
<h1>Directory listing for {{.Path}}</h1>
<hr>
<ul>
{{- range .Entries}}
<li><a href="{{.Href}}">{{.Name}}</a></li>
{{- end}}
</ul>
<hr>
</body>
</html>
`))

type listingEntry struct {
	Name string
	Href string
}

type listingPage struct {
	Path    string
	Entries []listingEntry
}

func (f *fileServer) serveListing(w http.ResponseWriter, r *http.Request, name string) {
	infos, err := afero.ReadDir(f.fs, name)
	if err != nil {
		slog.Warn("Failed to read directory", "path", name, "error", err)
		httpError(w, http.StatusNotFound, "404 - Page Not Found")
		return
	}

	page := listingPage{Path: r.URL.Path, Entries: make([]listingEntry, 0, len(infos))}
	for _, info := range infos {
		display := info.Name()
		href := (&url.URL{Path: info.Name()}).String()
		if info.IsDir() {
			display += "/"
			href += "/"
		}
		page.Entries = append(page.Entries, listingEntry{Name: display, Href: href})
	}

	var buf bytes.Buffer
	if err := listingTemplate.Execute(&buf, page); err != nil {
		slog.Warn("Failed to render directory listing", "path", name, "error", err)
		httpError(w, http.StatusInternalServerError, "500 - Internal Server Error")
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	if r.Method != http.MethodHead {
		_, _ = w.Write(buf.Bytes())
	}
}
