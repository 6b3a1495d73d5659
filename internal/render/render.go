// Package render parses the embedded HTML templates and executes them
// with per-request context (session, CSRF token) injected automatically.
package render

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"
	"path/filepath"
	"time"

	"bookshelf/internal/middleware"
	"bookshelf/internal/session"
)

//go:embed templates
var templateFS embed.FS

// PageData is the payload every template executes with. Session and
// CSRFToken are filled in by Render from the request context; handlers
// set the rest.
type PageData struct {
	Title     string
	Session   *session.Data
	CSRFToken string
	Error     string // inline validation or action error, shown above the form
	Data      any
}

// Renderer holds the parsed template set, one entry per page, each
// combined with the shared base layout.
type Renderer struct {
	templates map[string]*template.Template
}

// New parses all embedded page templates against the base layout.
func New() (*Renderer, error) {
	pages, err := fs.Glob(templateFS, "templates/pages/*.html")
	if err != nil {
		return nil, fmt.Errorf("glob templates: %w", err)
	}

	funcs := template.FuncMap{
		"stars": stars,
		"date":  formatDate,
		"deref": derefInt,
		"safe":  safeHTML,
	}

	templates := make(map[string]*template.Template, len(pages))
	for _, page := range pages {
		name := filepath.Base(page)
		tmpl, err := template.New(name).Funcs(funcs).ParseFS(templateFS, "templates/base.html", page)
		if err != nil {
			return nil, fmt.Errorf("parse template %s: %w", name, err)
		}
		templates[name] = tmpl
	}

	return &Renderer{templates: templates}, nil
}

// Render executes the named page template. The output is buffered so a
// template error becomes a clean 500 instead of a half-written page.
func (rn *Renderer) Render(w http.ResponseWriter, r *http.Request, status int, page string, data *PageData) {
	tmpl, ok := rn.templates[page]
	if !ok {
		slog.Error("unknown template", "page", page)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	if data == nil {
		data = &PageData{}
	}
	data.Session = middleware.SessionFromCtx(r.Context())
	data.CSRFToken = middleware.CSRFTokenFromCtx(r.Context())

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "base", data); err != nil {
		slog.Error("template execution failed", "page", page, "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	buf.WriteTo(w)
}

// Error renders the shared error page with the given status and message.
func (rn *Renderer) Error(w http.ResponseWriter, r *http.Request, status int, message string) {
	rn.Render(w, r, status, "error.html", &PageData{
		Title: fmt.Sprintf("Error %d", status),
		Data:  map[string]any{"Status": status, "Message": message},
	})
}

// stars renders a 1-5 rating as filled and empty star characters. A nil
// rating renders as "Not rated".
func stars(rating *int) string {
	if rating == nil {
		return "Not rated"
	}
	out := ""
	for i := 1; i <= 5; i++ {
		if i <= *rating {
			out += "★"
		} else {
			out += "☆"
		}
	}
	return out
}

func formatDate(t time.Time) string {
	return t.Format("Jan 2, 2006")
}

func derefInt(p *int) int {
	if p == nil {
		return 0
	}
	return *p
}

// safeHTML marks a string as already escaped. The stores HTML-escape
// user content on write, so rendering it through the default escaper
// would double-escape entities.
func safeHTML(s string) template.HTML {
	return template.HTML(s)
}
