package web

import (
	"embed"
	"html/template"
	"io/fs"
)

//go:embed templates/*.html static/*.css
var files embed.FS

// FS provides access to embedded web files.
var FS fs.FS = files

// Static holds the stylesheet served under /static/.
var Static, _ = fs.Sub(files, "static")

// Templates parses the page templates.
func Templates() (*template.Template, error) {
	return template.New("").Funcs(template.FuncMap{
		"shortHash": shortHash,
	}).ParseFS(files, "templates/*.html")
}

func shortHash(h string) string {
	if len(h) <= 14 {
		return h
	}
	return h[:8] + "…" + h[len(h)-6:]
}
