// Package emit turns a finished module graph into chunk files, a manifest and
// content-hashed filenames.
package emit

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
	"github.com/wolfeidau/assetgraph/internal/diag"
	"github.com/wolfeidau/assetgraph/internal/models"
	"github.com/wolfeidau/assetgraph/internal/plugin"
	"github.com/wolfeidau/assetgraph/internal/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	ModeDevelopment = "development"
	ModeProduction  = "production"

	// ManifestFile is written to the output directory after every chunk.
	ManifestFile = "manifest.json"
)

// Config controls chunking and output.
type Config struct {
	OutputDir string
	Mode      string
	// CommonChunk names the chunk holding modules reachable from two or more
	// entries. Empty disables extraction.
	CommonChunk string
	BuildID     string
	// SourceMaps writes <file>.map next to each chunk built from modules
	// carrying inline source maps.
	SourceMaps bool
}

// Emitter renders and writes bundles. It is stateless between calls.
type Emitter struct {
	plugins   *plugin.Host
	writeFile func(name string, data []byte, perm os.FileMode) error
	mkdirAll  func(path string, perm os.FileMode) error
}

// New returns an Emitter dispatching pre-emit and post-emit hooks to host.
func New(host *plugin.Host) *Emitter {
	return &Emitter{
		plugins:   host,
		writeFile: os.WriteFile,
		mkdirAll:  os.MkdirAll,
	}
}

// Emit renders one chunk per entry, plus the common chunk when configured,
// hashes them, lets plugins add synthetic chunks and writes everything to
// the output directory. The graph is only read.
func (e *Emitter) Emit(ctx context.Context, g *models.Graph, cfg Config) (*models.Bundle, error) {
	if cfg.OutputDir == "" {
		return nil, diag.Config("output directory is required")
	}

	production := cfg.Mode == ModeProduction
	r := &renderer{graph: g, production: production, sourceMaps: cfg.SourceMaps}

	chunks := Plan(g, cfg.CommonChunk)
	for _, c := range chunks {
		var sections []section
		c.Content, sections = r.render(c)
		name(c, production)
		attachSourceMap(c, sections)
	}

	ec := plugin.NewEmitContext(cfg.Mode, chunks)
	if err := e.plugins.PreEmit(ctx, ec); err != nil {
		return nil, err
	}
	for _, c := range ec.Added() {
		name(c, production)
		chunks = append(chunks, c)
	}

	bundle := &models.Bundle{
		OutputDir: cfg.OutputDir,
		Chunks:    chunks,
		Manifest:  buildManifest(g, cfg, chunks),
	}

	if err := e.write(ctx, bundle); err != nil {
		return nil, err
	}

	pc := &plugin.PostEmitContext{
		Mode:      cfg.Mode,
		OutputDir: cfg.OutputDir,
		Manifest:  bundle.Manifest,
	}
	for _, c := range chunks {
		pc.Chunks = append(pc.Chunks, plugin.CopyChunk(c))
	}
	if err := e.plugins.PostEmit(ctx, pc); err != nil {
		return nil, err
	}

	return bundle, nil
}

// name assigns the content hash and output filename.
func name(c *models.Chunk, production bool) {
	c.Hash = ContentHash(c.Content)
	if production {
		c.File = fmt.Sprintf("%s.%s.%s", c.Name, c.Hash, c.Ext)
	} else {
		c.File = fmt.Sprintf("%s.%s", c.Name, c.Ext)
	}
}

func (e *Emitter) write(ctx context.Context, b *models.Bundle) error {
	metrics := telemetry.GetMetrics()
	log := zerolog.Ctx(ctx)

	if err := e.mkdirAll(b.OutputDir, 0755); err != nil {
		return diag.Emit(b.OutputDir, err)
	}

	for _, c := range b.Chunks {
		path := filepath.Join(b.OutputDir, filepath.FromSlash(c.File))
		if !within(b.OutputDir, path) {
			return diag.Emit(path, fmt.Errorf("chunk %q resolves outside the output directory", c.Name))
		}
		// names such as pages/home nest below the output directory
		if err := e.mkdirAll(filepath.Dir(path), 0755); err != nil {
			return diag.Emit(path, err)
		}
		if err := e.writeFile(path, c.Content, 0644); err != nil {
			return diag.Emit(path, err)
		}
		if c.SourceMap != nil {
			if err := e.writeFile(path+".map", c.SourceMap, 0644); err != nil {
				return diag.Emit(path+".map", err)
			}
		}

		metrics.ChunksEmittedTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("kind", string(c.Kind))))
		metrics.ChunkBytes.Record(ctx, int64(c.Size()))
		log.Debug().Str("chunk", c.Name).Str("file", c.File).Int("bytes", c.Size()).Msg("chunk written")
	}

	data, err := json.MarshalIndent(b.Manifest, "", "  ")
	if err != nil {
		return diag.Emit(ManifestFile, err)
	}

	path := filepath.Join(b.OutputDir, ManifestFile)
	if err := e.writeFile(path, append(data, '\n'), 0644); err != nil {
		return diag.Emit(path, err)
	}

	return nil
}

func within(dir, path string) bool {
	rel, err := filepath.Rel(dir, path)
	return err == nil && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

func buildManifest(g *models.Graph, cfg Config, chunks []*models.Chunk) models.Manifest {
	m := models.Manifest{
		BuildID:     cfg.BuildID,
		Mode:        cfg.Mode,
		Chunks:      make(map[string]models.ManifestChunk, len(chunks)),
		Entrypoints: make(map[string][]string),
	}

	files := make(map[string]string, len(chunks))
	for _, c := range chunks {
		files[c.Name] = c.File

		mc := models.ManifestChunk{
			File:    c.File,
			Hash:    c.Hash,
			Kind:    string(c.Kind),
			Size:    c.Size(),
			Imports: c.Imports,
		}
		if c.SourceMap != nil {
			mc.Map = c.File + ".map"
		}
		for _, id := range c.Modules {
			mc.Modules = append(mc.Modules, id.Rel(g.Root))
		}
		m.Chunks[c.Name] = mc
	}

	for _, c := range chunks {
		if c.Kind != models.ChunkEntry {
			continue
		}
		var scripts []string
		for _, dep := range c.Imports {
			scripts = append(scripts, files[dep])
		}
		m.Entrypoints[c.Name] = append(scripts, c.File)
	}

	return m
}
