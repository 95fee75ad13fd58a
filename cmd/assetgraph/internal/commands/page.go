package commands

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/assetgraph/internal/assets"
)

// PageCmd renders an HTML page from the manifest of an earlier build.
type PageCmd struct {
	Manifest    string   `help:"Manifest written by a build (default dist/manifest.json)" type:"path" env:"ASSETGRAPH_MANIFEST"`
	Template    string   `help:"Page template, defaults to the built-in page" type:"existingfile"`
	Title       string   `help:"Page title (default App)"`
	PublicPath  string   `help:"Prefix for script URLs, e.g. /static/"`
	Entrypoints []string `arg:"" optional:"" help:"Entrypoints to include, all when empty"`
	Output      string   `help:"Write the page to this file instead of stdout" short:"o" type:"path"`
}

func (p *PageCmd) Run(ctx context.Context, globals *Globals) error {
	cfg := assets.DefaultConfig()
	if p.Manifest != "" {
		cfg.ManifestPath = p.Manifest
	}
	if p.Title != "" {
		cfg.Title = p.Title
	}
	cfg.PublicPath = p.PublicPath

	r := assets.New(cfg)
	if p.Template != "" {
		var err error
		if r, err = assets.NewWithTemplate(cfg, p.Template); err != nil {
			return fmt.Errorf("failed to load template: %w", err)
		}
	}

	if err := r.LoadManifest(); err != nil {
		return fmt.Errorf("failed to load manifest: %w", err)
	}

	var buf bytes.Buffer
	if err := r.Render(&buf, "", nil, p.Entrypoints...); err != nil {
		return err
	}

	if p.Output == "" {
		_, err := os.Stdout.Write(buf.Bytes())
		return err
	}

	if err := os.MkdirAll(filepath.Dir(p.Output), 0755); err != nil {
		return err
	}
	if err := os.WriteFile(p.Output, buf.Bytes(), 0644); err != nil {
		return err
	}

	log.Info().Str("manifest", cfg.ManifestPath).Str("output", p.Output).Msg("Page written")
	return nil
}
