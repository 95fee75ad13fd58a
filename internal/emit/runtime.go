package emit

import (
	"bytes"
	"encoding/json"
	"sort"
	"strings"

	"github.com/wolfeidau/assetgraph/internal/models"
)

// registryExpr is shared by every chunk so chunks can load in any order
// before the entry runs.
const registryExpr = `globalThis.__assetgraph__ = globalThis.__assetgraph__ || {modules: {}, cache: {}, externals: {}}`

// loaderSource is appended to entry chunks. Every statement ends with a
// semicolon so production output can drop line breaks.
const loaderSource = `function load(id) {
  var cached = registry.cache[id];
  if (cached) return cached.exports;
  var def = registry.modules[id];
  if (!def) throw new Error("module not found: " + id);
  var module = registry.cache[id] = {exports: {}};
  def[0].call(module.exports, module, module.exports, function (specifier) {
    var dep = def[1][specifier];
    if (dep === undefined) throw new Error("cannot find module '" + specifier + "' from " + id);
    if (dep === null) return registry.externals[specifier];
    return load(dep);
  });
  return module.exports;
}
`

type renderer struct {
	graph      *models.Graph
	production bool
	sourceMaps bool
}

// render returns the chunk source and, when source maps are on, a section
// for every module that carried an inline map.
func (r *renderer) render(c *models.Chunk) ([]byte, []section) {
	var (
		buf      bytes.Buffer
		sections []section
	)

	r.line(&buf, "(function (registry) {")
	for _, id := range c.Modules {
		m, ok := r.graph.Module(id)
		if !ok {
			continue
		}
		if sec, ok := r.module(&buf, m); ok {
			sections = append(sections, sec)
		}
	}

	if c.Kind == models.ChunkEntry {
		if r.production {
			buf.WriteString(compact(loaderSource))
		} else {
			buf.WriteString(loaderSource)
		}
		buf.WriteString("load(")
		buf.Write(quote(c.Entry.Rel(r.graph.Root)))
		r.line(&buf, ");")
	}

	buf.WriteString("})(")
	buf.WriteString(registryExpr)
	r.line(&buf, ");")

	return buf.Bytes(), sections
}

func (r *renderer) module(buf *bytes.Buffer, m *models.Module) (section, bool) {
	key := m.ID.Rel(r.graph.Root)

	if !r.production {
		buf.WriteString("/* ")
		buf.WriteString(strings.ReplaceAll(key, "*/", "*\\/"))
		buf.WriteString(" */\n")
	}

	buf.WriteString("registry.modules[")
	buf.Write(quote(key))
	r.line(buf, "] = [function (module, exports, require) {")

	code, inline := splitInlineMap(m.Transformed)

	var sec section
	keep := r.sourceMaps && inline != nil
	if keep {
		sec.Offset.Line, sec.Offset.Column = position(buf.Bytes())
		sec.Map = inline
	}

	buf.Write(code)
	if len(code) > 0 && code[len(code)-1] != '\n' {
		buf.WriteByte('\n')
	}

	buf.WriteString("}, ")
	buf.Write(r.importMap(m))
	r.line(buf, "];")

	return sec, keep
}

// importMap renders specifier -> module key, with null for externals. Keys
// are sorted so the output does not depend on map iteration.
func (r *renderer) importMap(m *models.Module) []byte {
	specifiers := make([]string, 0, len(m.Imports)+len(m.Externals))
	for s := range m.Imports {
		specifiers = append(specifiers, s)
	}
	specifiers = append(specifiers, m.Externals...)
	sort.Strings(specifiers)

	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, s := range specifiers {
		if i > 0 {
			buf.WriteByte(',')
		}
		buf.Write(quote(s))
		buf.WriteByte(':')
		if id, ok := m.Imports[s]; ok {
			buf.Write(quote(id.Rel(r.graph.Root)))
		} else {
			buf.WriteString("null")
		}
	}
	buf.WriteByte('}')
	return buf.Bytes()
}

func (r *renderer) line(buf *bytes.Buffer, s string) {
	buf.WriteString(s)
	if !r.production {
		buf.WriteByte('\n')
	}
}

func quote(s string) []byte {
	// strings always marshal
	b, _ := json.Marshal(s)
	return b
}

func compact(src string) string {
	var b strings.Builder
	for _, l := range strings.Split(src, "\n") {
		b.WriteString(strings.TrimSpace(l))
	}
	return b.String()
}
