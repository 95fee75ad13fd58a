package models

// ChunkKind describes why a chunk exists.
type ChunkKind string

const (
	ChunkEntry     ChunkKind = "entry"     // one per configured entry
	ChunkCommon    ChunkKind = "common"    // modules shared by two or more entries
	ChunkSynthetic ChunkKind = "synthetic" // added by a pre-emit plugin
)

// Chunk is a named group of modules emitted as one output file.
type Chunk struct {
	Name    string
	Ext     string // without the leading dot, e.g. "js"
	Kind    ChunkKind
	Entry   ModuleID   // entry module for entry chunks
	Modules []ModuleID // emission order
	Content []byte
	Hash    string   // content hash of Content, before any source map comment
	File    string   // output filename relative to the output directory
	Imports []string // names of chunks that must load before this one

	// SourceMap is the index source map written to File + ".map", nil when
	// the chunk has none.
	SourceMap []byte
}

// Size returns the number of bytes in the chunk content.
func (c *Chunk) Size() int {
	return len(c.Content)
}

// Bundle is the result of a successful build.
type Bundle struct {
	OutputDir string
	Chunks    []*Chunk
	Manifest  Manifest
}

// Chunk returns the chunk with the given name.
func (b *Bundle) Chunk(name string) (*Chunk, bool) {
	for _, c := range b.Chunks {
		if c.Name == name {
			return c, true
		}
	}
	return nil, false
}

// Manifest maps chunk names to their final filenames. It is written next to
// the chunks as manifest.json and consumed by HTML generation.
type Manifest struct {
	BuildID     string                   `json:"buildId"`
	Mode        string                   `json:"mode"`
	Chunks      map[string]ManifestChunk `json:"chunks"`
	Entrypoints map[string][]string      `json:"entrypoints"`
}

// ManifestChunk describes one emitted chunk.
type ManifestChunk struct {
	File    string   `json:"file"`
	Hash    string   `json:"hash"`
	Kind    string   `json:"kind"`
	Size    int      `json:"size"`
	Modules []string `json:"modules,omitempty"`
	Imports []string `json:"imports,omitempty"`
	Map     string   `json:"map,omitempty"`
}

// Scripts returns the ordered list of files needed to load the entrypoint,
// dependencies first.
func (m Manifest) Scripts(entry string) ([]string, bool) {
	files, ok := m.Entrypoints[entry]
	return files, ok
}
