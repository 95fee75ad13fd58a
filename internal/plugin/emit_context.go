package plugin

import (
	"bytes"
	"fmt"

	"github.com/wolfeidau/assetgraph/internal/models"
)

// EmitContext is handed to PreEmit hooks. Chunks holds copies of the rendered
// chunks; changing them has no effect on the output. New output is added with
// AddChunk.
type EmitContext struct {
	Mode   string
	Chunks []models.Chunk

	added []*models.Chunk
	names map[string]bool
}

// NewEmitContext snapshots chunks for the pre-emit hook.
func NewEmitContext(mode string, chunks []*models.Chunk) *EmitContext {
	ec := &EmitContext{
		Mode:  mode,
		names: make(map[string]bool, len(chunks)),
	}
	for _, c := range chunks {
		ec.Chunks = append(ec.Chunks, CopyChunk(c))
		ec.names[c.Name] = true
	}
	return ec
}

// AddChunk adds a synthetic chunk. Names must be unique across the bundle.
func (ec *EmitContext) AddChunk(name, ext string, content []byte) error {
	if name == "" || ext == "" {
		return fmt.Errorf("synthetic chunk requires a name and extension")
	}
	if ec.names[name] {
		return fmt.Errorf("chunk %q already exists", name)
	}
	ec.names[name] = true

	c := &models.Chunk{
		Name:    name,
		Ext:     ext,
		Kind:    models.ChunkSynthetic,
		Content: bytes.Clone(content),
	}
	ec.added = append(ec.added, c)
	ec.Chunks = append(ec.Chunks, CopyChunk(c))
	return nil
}

// Added returns the synthetic chunks contributed by plugins, in order.
func (ec *EmitContext) Added() []*models.Chunk {
	return ec.added
}

// CopyChunk returns a deep copy of c.
func CopyChunk(c *models.Chunk) models.Chunk {
	out := *c
	out.Content = bytes.Clone(c.Content)
	out.Modules = append([]models.ModuleID(nil), c.Modules...)
	out.Imports = append([]string(nil), c.Imports...)
	out.SourceMap = bytes.Clone(c.SourceMap)
	return out
}
