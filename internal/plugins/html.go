package plugins

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/wolfeidau/assetgraph/internal/assets"
	"github.com/wolfeidau/assetgraph/internal/opts"
	"github.com/wolfeidau/assetgraph/internal/plugin"
)

// HTML writes a page loading the emitted entrypoints, shared chunks first.
type HTML struct {
	Template    string // optional template file
	Filename    string // relative to the output directory
	Title       string
	PublicPath  string
	Entrypoints []string // empty means every entrypoint
}

func newHTML(o opts.Options, env Env) (plugin.Plugin, error) {
	h := &HTML{}
	var err error

	if h.Template, err = o.String("template", ""); err != nil {
		return nil, err
	}
	if h.Template != "" && !filepath.IsAbs(h.Template) {
		h.Template = filepath.Join(env.Root, h.Template)
	}
	if h.Filename, err = o.String("filename", "index.html"); err != nil {
		return nil, err
	}
	if h.Title, err = o.String("title", "App"); err != nil {
		return nil, err
	}
	if h.PublicPath, err = o.String("public_path", ""); err != nil {
		return nil, err
	}
	if h.Entrypoints, err = o.Strings("entrypoints", nil); err != nil {
		return nil, err
	}
	return h, nil
}

func (h *HTML) Name() string { return "html" }

func (h *HTML) PostEmit(_ context.Context, pc *plugin.PostEmitContext) error {
	cfg := assets.Config{
		ManifestPath: filepath.Join(pc.OutputDir, "manifest.json"),
		PublicPath:   h.PublicPath,
		Title:        h.Title,
	}

	r := assets.New(cfg)
	if h.Template != "" {
		var err error
		if r, err = assets.NewWithTemplate(cfg, h.Template); err != nil {
			return fmt.Errorf("failed to load template: %w", err)
		}
	}
	r.SetManifest(pc.Manifest)

	var buf bytes.Buffer
	if err := r.Render(&buf, "", map[string]string{"mode": pc.Mode}, h.Entrypoints...); err != nil {
		return err
	}

	path := filepath.Join(pc.OutputDir, h.Filename)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	return os.WriteFile(path, buf.Bytes(), 0644)
}
