package handler

import (
	"bytes"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"path"
	"sort"
	"strings"
	"sync"
	"time"
)

// TemplateRenderer is what the handlers need from a Renderer.
type TemplateRenderer interface {
	RenderHTTP(w http.ResponseWriter, status int, name string, data any)
	RenderPartial(w http.ResponseWriter, status int, name string, data any)
}

// Renderer manages template parsing and rendering.
//
// Templates are organized as:
//   - layouts/public.html - the page layout, defines "public"
//   - components/*.html - header, footer and other page pieces
//   - partials/*.html - fragments swapped by htmx; each defines a template
//     named after its file
//   - pages/public/*.html - pages, stored as "public/<name>"
//
// Components and partials are parsed into every page so a page can embed a
// partial's initial state with {{template "contact_form" .Contact}}.
type Renderer struct {
	templates map[string]*template.Template
	logger    *slog.Logger
	funcs     template.FuncMap
	fsys      fs.FS

	// In development templates are re-read from devDir on every render.
	isDev  bool
	devDir string
	mu     sync.RWMutex
}

// RendererConfig holds configuration for the renderer.
type RendererConfig struct {
	FS     fs.FS  // embedded templates
	Dir    string // templates directory read in development
	IsDev  bool
	Now    func() time.Time
	Logger *slog.Logger
}

// NewRenderer parses every template up front so a broken template fails
// startup rather than a request.
func NewRenderer(cfg RendererConfig) (*Renderer, error) {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	fsys := cfg.FS
	if cfg.IsDev && cfg.Dir != "" {
		fsys = os.DirFS(cfg.Dir)
	}
	if fsys == nil {
		return nil, fmt.Errorf("renderer: no template filesystem")
	}

	r := &Renderer{
		templates: make(map[string]*template.Template),
		logger:    cfg.Logger,
		funcs:     TemplateFuncs(cfg.Now),
		fsys:      fsys,
		isDev:     cfg.IsDev && cfg.Dir != "",
		devDir:    cfg.Dir,
	}

	templates, err := r.load()
	if err != nil {
		return nil, err
	}
	r.templates = templates
	return r, nil
}

func (r *Renderer) load() (map[string]*template.Template, error) {
	components, err := fs.Glob(r.fsys, "components/*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to glob components: %w", err)
	}
	partials, err := fs.Glob(r.fsys, "partials/*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to glob partials: %w", err)
	}
	shared := append(components, partials...)

	templates := make(map[string]*template.Template)

	// One set serves every partial; partials may include components.
	if len(partials) > 0 {
		partialSet, err := template.New("partials").Funcs(r.funcs).ParseFS(r.fsys, shared...)
		if err != nil {
			return nil, fmt.Errorf("failed to parse partials: %w", err)
		}
		for _, p := range partials {
			templates["partial/"+baseName(p)] = partialSet
		}
	}

	layout, err := template.New("public").Funcs(r.funcs).ParseFS(r.fsys, "layouts/public.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse public layout: %w", err)
	}
	if len(shared) > 0 {
		if layout, err = layout.ParseFS(r.fsys, shared...); err != nil {
			return nil, fmt.Errorf("failed to parse components into public layout: %w", err)
		}
	}

	pages, err := fs.Glob(r.fsys, "pages/public/*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to glob public pages: %w", err)
	}
	for _, page := range pages {
		pageTmpl, err := layout.Clone()
		if err != nil {
			return nil, fmt.Errorf("failed to clone public layout for %s: %w", page, err)
		}
		if pageTmpl, err = pageTmpl.ParseFS(r.fsys, page); err != nil {
			return nil, fmt.Errorf("failed to parse public page %s: %w", page, err)
		}
		templates["public/"+baseName(page)] = pageTmpl
	}

	r.logger.Debug("templates loaded", "count", len(templates))
	return templates, nil
}

func baseName(p string) string {
	return strings.TrimSuffix(path.Base(p), path.Ext(p))
}

// Reload re-reads all templates. Useful for development.
func (r *Renderer) Reload() error {
	templates, err := r.load()
	if err != nil {
		return err
	}
	r.mu.Lock()
	r.templates = templates
	r.mu.Unlock()
	return nil
}

func (r *Renderer) lookup(name string) (*template.Template, error) {
	if r.isDev {
		if err := r.Reload(); err != nil {
			return nil, fmt.Errorf("template reload failed: %w", err)
		}
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	tmpl, ok := r.templates[name]
	if !ok {
		return nil, fmt.Errorf("template %q not found", name)
	}
	return tmpl, nil
}

// Render executes a page or partial ("partial/<name>") into w.
func (r *Renderer) Render(w io.Writer, name string, data any) error {
	tmpl, err := r.lookup(name)
	if err != nil {
		return err
	}
	return tmpl.ExecuteTemplate(w, execName(name), data)
}

// execName is the template to execute within a set: the layout for pages,
// the partial's own definition for partials.
func execName(name string) string {
	if partial, ok := strings.CutPrefix(name, "partial/"); ok {
		return partial
	}
	return "public"
}

// RenderHTTP renders a page with status. Output is buffered so a template
// error still yields a clean 500.
func (r *Renderer) RenderHTTP(w http.ResponseWriter, status int, name string, data any) {
	r.write(w, status, name, data)
}

// RenderPartial renders a partial template (for htmx responses).
func (r *Renderer) RenderPartial(w http.ResponseWriter, status int, name string, data any) {
	r.write(w, status, "partial/"+name, data)
}

func (r *Renderer) write(w http.ResponseWriter, status int, name string, data any) {
	var buf bytes.Buffer
	if err := r.Render(&buf, name, data); err != nil {
		r.logger.Error("template execution failed", "name", name, "error", err)
		http.Error(w, "Template execution failed", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

// ListTemplates returns the loaded template names, sorted.
func (r *Renderer) ListTemplates() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.templates))
	for name := range r.templates {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
