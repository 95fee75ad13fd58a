package assets

import (
	"bytes"
	"encoding/json"
	"errors"
	"html/template"
	"maps"
	"path/filepath"
	"sync"

	"github.com/wolfeidau/assetgraph/internal/models"
)

// DefaultTemplate is used when no template file is configured.
const DefaultTemplate = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
</head>
<body>
<div id="root"></div>
{{range .Scripts}}<script src="{{.}}"></script>
{{end}}</body>
</html>
`

const defaultTemplateName = "index.html"

// Renderer renders HTML pages referencing the chunks of a build manifest
type Renderer struct {
	config   Config
	manifest *models.Manifest
	tmpl     *template.Template
	mu       sync.RWMutex
}

// New creates a renderer using the built-in page template
func New(config Config) *Renderer {
	r, err := newRenderer(config, defaultTemplateName, nil, func(t *template.Template) (*template.Template, error) {
		return t.Parse(DefaultTemplate)
	})
	if err != nil {
		// the built-in template is static and always parses
		panic(err)
	}
	return r
}

// NewWithTemplate creates a renderer and loads a single template file
func NewWithTemplate(config Config, templatePath string) (*Renderer, error) {
	return NewWithTemplateAndFuncs(config, templatePath, nil)
}

// NewWithTemplateAndFuncs creates a renderer and loads a single template file with custom functions
func NewWithTemplateAndFuncs(config Config, templatePath string, customFuncs template.FuncMap) (*Renderer, error) {
	return newRenderer(config, filepath.Base(templatePath), customFuncs, func(t *template.Template) (*template.Template, error) {
		return t.ParseFiles(templatePath)
	})
}

func newRenderer(config Config, name string, customFuncs template.FuncMap, parse func(*template.Template) (*template.Template, error)) (*Renderer, error) {
	funcs := template.FuncMap{
		"marshal": marshal,
		"safe": func(s string) template.HTML {
			return template.HTML(s) //nolint:gosec
		},
	}

	// Merge custom functions
	maps.Copy(funcs, customFuncs)

	tmpl, err := parse(template.New(name).Funcs(funcs))
	if err != nil {
		return nil, err
	}

	return &Renderer{
		config: config,
		tmpl:   tmpl,
	}, nil
}

// SetManifest replaces the manifest used to look up scripts
func (r *Renderer) SetManifest(m models.Manifest) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.manifest = &m
}

func marshal(value any) string {
	buf := new(bytes.Buffer)

	if err := json.NewEncoder(buf).Encode(value); err != nil {
		panic(errors.New("context can only be json serializable"))
	}

	return buf.String()
}
