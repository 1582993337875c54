package templatex

import (
	"embed"
	"fmt"
	"html/template"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

const (
	DefaultContentTemplate   = "content-default"
	NotFoundContentTemplate  = "content-404"
	DirectoryContentTemplate = "content-directory"
	LayoutTemplate           = "layout"
)

//go:embed default/*.html
var defaultTemplates embed.FS

// Engine is a thin wrapper around Go templates with a fallback default layout.
type Engine struct {
	templates *template.Template
	StaticDir string
}

// PageData represents the data model expected by the default layout.
type PageData struct {
	Title           string
	PageTitle       string
	SiteName        string
	ContentHTML     template.HTML
	ContentTemplate string
	Headers         []TOCEntry
	ActivePath      string
	RequestedPath   string
	SearchIndexURL  string
	BaseURL         string
	Breadcrumbs     []Breadcrumb
	LastUpdatedISO  string
	LastUpdated     string
	Directory       []*DirectoryEntry
	Meta            Meta
}

// Meta holds SEO-oriented metadata for the rendered page.
type Meta struct {
	Description   string
	OpenGraphType string
	OpenGraphSite string
}

// TOCEntry models a single heading for the page outline.
type TOCEntry struct {
	ID       string
	Text     string
	Level    int
	Children []TOCEntry
}

// Breadcrumb models a single breadcrumb entry for navigation.
type Breadcrumb struct {
	Title   string
	Path    string
	Current bool
}

// DirectoryEntry represents a node in the directory listing hierarchy.
type DirectoryEntry struct {
	Title    string
	URL      string
	Route    string
	Children []*DirectoryEntry
	Count    int
	Depth    int
	ID       string
}

func funcMap() template.FuncMap {
	return template.FuncMap{
		"safeHTML": func(v any) template.HTML {
			switch value := v.(type) {
			case template.HTML:
				return value
			case string:
				return template.HTML(value)
			default:
				return ""
			}
		},
		"baseHref": func(base string) string {
			base = strings.TrimSpace(base)
			if base == "" || base == "/" {
				return "/"
			}
			trimmed := strings.Trim(base, "/")
			return "/" + trimmed + "/"
		},
	}
}

// Load instantiates an engine using files from templateDir. An empty
// templateDir selects the built-in layout.
func Load(templateDir string) (*Engine, error) {
	if strings.TrimSpace(templateDir) == "" {
		tpl, err := template.New("root").Funcs(funcMap()).ParseFS(defaultTemplates, "default/*.html")
		if err != nil {
			return nil, fmt.Errorf("parse default templates: %w", err)
		}
		return &Engine{templates: tpl}, nil
	}

	engine := &Engine{}

	files := make([]string, 0)
	mainPattern := filepath.Join(templateDir, "*.html")
	mainFiles, err := filepath.Glob(mainPattern)
	if err != nil {
		return nil, fmt.Errorf("glob main templates: %w", err)
	}
	files = append(files, mainFiles...)

	partialsDir := filepath.Join(templateDir, "partials")
	if info, err := os.Stat(partialsDir); err == nil && info.IsDir() {
		partialPattern := filepath.Join(partialsDir, "*.html")
		partialFiles, err := filepath.Glob(partialPattern)
		if err != nil {
			return nil, fmt.Errorf("glob partial templates: %w", err)
		}
		files = append(files, partialFiles...)
	}

	if len(files) == 0 {
		return nil, fmt.Errorf("no templates found in %s", templateDir)
	}

	sort.Strings(files)

	tpl, err := template.New("root").Funcs(funcMap()).ParseFiles(files...)
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}

	if tpl.Lookup(LayoutTemplate) == nil {
		return nil, fmt.Errorf("template %q is not defined", LayoutTemplate)
	}

	engine.templates = tpl

	assetsPath := filepath.Join(templateDir, "assets")
	if info, err := os.Stat(assetsPath); err == nil && info.IsDir() {
		engine.StaticDir = assetsPath
	}

	return engine, nil
}

// Render writes the rendered layout into the provided writer.
func (e *Engine) Render(w io.Writer, data *PageData) error {
	if e.templates == nil {
		return fmt.Errorf("template engine not initialized")
	}
	if data != nil {
		if strings.TrimSpace(data.ContentTemplate) == "" {
			data.ContentTemplate = DefaultContentTemplate
		}
		if strings.TrimSpace(data.RequestedPath) == "" {
			data.RequestedPath = data.ActivePath
		}
	}
	return e.templates.ExecuteTemplate(w, LayoutTemplate, data)
}
