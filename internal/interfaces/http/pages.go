package http

import (
	"bytes"
	"html/template"
	"log"
	"net/http"

	"gdbank/internal/domain/bank"
	"gdbank/internal/web"
)

// HandleHealth returns a simple health check response.
func HandleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}

// StaticHandler serves the embedded stylesheet under /static/.
func StaticHandler() http.Handler {
	return http.StripPrefix("/static/", http.FileServerFS(web.Static))
}

// Page is the data passed to the index template.
type Page struct {
	View    bank.View
	History []bank.JournalEntry
}

// PageRenderer executes the index template.
type PageRenderer struct {
	tmpl *template.Template
}

func NewPageRenderer() (*PageRenderer, error) {
	tmpl, err := web.Templates()
	if err != nil {
		return nil, err
	}
	return &PageRenderer{tmpl: tmpl}, nil
}

// Render writes the page. The template runs into a buffer first so a
// template failure still yields a clean 500.
func (p *PageRenderer) Render(w http.ResponseWriter, page Page) {
	var buf bytes.Buffer
	if err := p.tmpl.ExecuteTemplate(&buf, "index.html", page); err != nil {
		log.Printf("Error rendering page: %v", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	buf.WriteTo(w)
}
