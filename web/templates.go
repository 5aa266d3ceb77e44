// ABOUTME: TemplateEngine loads the embedded page templates and renders them inside the shared layout.
// ABOUTME: The about panel is authored in markdown and converted once with goldmark.
package web

import (
	"bytes"
	"fmt"
	"html/template"
	"io"
	"net/http"
	"time"

	"github.com/yuin/goldmark"

	"github.com/2389-research/cardstream/store"
)

// PageData holds all data passed to templates for rendering.
type PageData struct {
	Title   string
	About   template.HTML
	Turns   []TurnView
	Enabled bool // history available
}

// TurnView is a stored turn with its answer rendered to card markup.
type TurnView struct {
	store.Turn
	Markup template.HTML
}

// TemplateEngine loads and renders embedded HTML templates.
type TemplateEngine struct {
	templates map[string]*template.Template
}

func templateFuncs() template.FuncMap {
	return template.FuncMap{
		"stamp": func(t time.Time) string { return t.Local().Format("2006-01-02 15:04") },
		"seconds": func(ms int64) string {
			return fmt.Sprintf("%.1fs", float64(ms)/1000)
		},
	}
}

// NewTemplateEngine parses every page together with the layout.
func NewTemplateEngine() (*TemplateEngine, error) {
	funcs := templateFuncs()
	engine := &TemplateEngine{templates: make(map[string]*template.Template)}

	for _, page := range []string{"index.html", "history.html"} {
		t, err := template.New("layout.html").Funcs(funcs).ParseFS(
			templateFS,
			"templates/layout.html",
			"templates/"+page,
		)
		if err != nil {
			return nil, fmt.Errorf("parsing template %s: %w", page, err)
		}
		engine.templates[page] = t
	}
	return engine, nil
}

// Render writes the named page to w as text/html.
func (e *TemplateEngine) Render(w http.ResponseWriter, name string, data any) error {
	var buf bytes.Buffer
	if err := e.RenderTo(&buf, name, data); err != nil {
		return err
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, err := buf.WriteTo(w)
	return err
}

// RenderTo executes the named page into an arbitrary writer.
func (e *TemplateEngine) RenderTo(w io.Writer, name string, data any) error {
	t, ok := e.templates[name]
	if !ok {
		return fmt.Errorf("template %q not found", name)
	}
	return t.ExecuteTemplate(w, "layout.html", data)
}

// aboutHTML converts the embedded about panel. Raw HTML is not enabled in
// goldmark, so the source cannot inject markup.
func aboutHTML() template.HTML {
	var buf bytes.Buffer
	if err := goldmark.New().Convert(aboutMarkdown, &buf); err != nil {
		return template.HTML(template.HTMLEscapeString(string(aboutMarkdown)))
	}
	return template.HTML(buf.String())
}
