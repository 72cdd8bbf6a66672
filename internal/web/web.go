// Package web holds the embedded HTML templates and static assets of the
// dashboard UI.
package web

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/QuocDuong16/headscale-dashboard/internal/i18n"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static
var staticFS embed.FS

// Static serves /static/*.
func Static() http.Handler {
	sub, _ := fs.Sub(staticFS, "static")
	return http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
}

// Flash is a one-shot result message.
type Flash struct {
	Kind string // success | error
	Msg  string
	// Secret is shown once, e.g. a newly created API key.
	Secret string
}

// Page is the data every template receives.
type Page struct {
	Title     string
	Active    string
	Tr        *i18n.Translator
	Lang      string
	CSRF      string
	LoggedIn  bool
	Flash     *Flash
	Error     string
	Refresh   int
	ServerURL string
	Path      string
	Data      any
}

// Renderer executes one template set per page so each page can define its
// own "content" block.
type Renderer struct {
	pages map[string]*template.Template
}

var funcs = template.FuncMap{
	"ago": func(t *time.Time) string {
		if t == nil || t.IsZero() {
			return "-"
		}
		return humanize.Time(*t)
	},
	"date": func(t *time.Time) string {
		if t == nil || t.IsZero() {
			return "-"
		}
		return t.Local().Format("2006-01-02 15:04")
	},
	"expired": func(t *time.Time) bool {
		return t != nil && !t.IsZero() && !t.After(time.Now())
	},
	"join": strings.Join,
	"comma": func(n int) string {
		return humanize.Comma(int64(n))
	},
	"bytes": humanize.Bytes,
	"sel": func(a, b string) template.HTMLAttr {
		if a == b {
			return "selected"
		}
		return ""
	},
}

func NewRenderer() (*Renderer, error) {
	entries, err := fs.ReadDir(templateFS, "templates")
	if err != nil {
		return nil, err
	}
	r := &Renderer{pages: map[string]*template.Template{}}
	for _, e := range entries {
		name := e.Name()
		if name == "layout.html" || !strings.HasSuffix(name, ".html") {
			continue
		}
		t, err := template.New("layout.html").Funcs(funcs).ParseFS(templateFS, "templates/layout.html", "templates/"+name)
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", name, err)
		}
		r.pages[strings.TrimSuffix(name, ".html")] = t
	}
	return r, nil
}

// Render writes page with the given status. Output is buffered so a template
// error never leaves a half-written page.
func (r *Renderer) Render(w http.ResponseWriter, status int, page string, data Page) error {
	t, ok := r.pages[page]
	if !ok {
		return fmt.Errorf("unknown page %q", page)
	}
	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "layout", data); err != nil {
		return err
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, err := buf.WriteTo(w)
	return err
}
