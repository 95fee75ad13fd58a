package config

import (
	"fmt"
	"sort"

	"github.com/wolfeidau/assetgraph/internal/bundler"
	"gopkg.in/yaml.v3"
)

// Entries accepts either a name -> path mapping, a list of paths or a single
// path. Mapping order is kept.
type Entries []bundler.Entry

func (e *Entries) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.MappingNode:
		out := make(Entries, 0, len(node.Content)/2)
		for i := 0; i+1 < len(node.Content); i += 2 {
			var name, path string
			if err := node.Content[i].Decode(&name); err != nil {
				return err
			}
			if err := node.Content[i+1].Decode(&path); err != nil {
				return fmt.Errorf("entry %s: %w", name, err)
			}
			out = append(out, bundler.Entry{Name: name, Path: path})
		}
		*e = out
	case yaml.SequenceNode:
		var paths []string
		if err := node.Decode(&paths); err != nil {
			return err
		}
		*e = fromPaths(paths)
	case yaml.ScalarNode:
		var path string
		if err := node.Decode(&path); err != nil {
			return err
		}
		*e = fromPaths([]string{path})
	default:
		return fmt.Errorf("line %d: entries must be a mapping, list or string", node.Line)
	}
	return nil
}

// UnmarshalTOML sorts mapping entries by name; parseTOML restores document
// order from the decoder metadata.
func (e *Entries) UnmarshalTOML(data any) error {
	switch v := data.(type) {
	case map[string]any:
		out := make(Entries, 0, len(v))
		for name, p := range v {
			path, ok := p.(string)
			if !ok {
				return fmt.Errorf("entry %s must be a string, got %T", name, p)
			}
			out = append(out, bundler.Entry{Name: name, Path: path})
		}
		sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
		*e = out
	case []any:
		paths := make([]string, 0, len(v))
		for i, p := range v {
			path, ok := p.(string)
			if !ok {
				return fmt.Errorf("entries[%d] must be a string, got %T", i, p)
			}
			paths = append(paths, path)
		}
		*e = fromPaths(paths)
	case string:
		*e = fromPaths([]string{v})
	default:
		return fmt.Errorf("entries must be a table, array or string, got %T", data)
	}
	return nil
}

// reorder moves named entries into the given order. Unnamed entries and
// names not listed keep their relative position at the end.
func (e Entries) reorder(names []string) {
	if len(names) == 0 {
		return
	}
	rank := make(map[string]int, len(names))
	for i, name := range names {
		rank[name] = i
	}
	sort.SliceStable(e, func(i, j int) bool {
		ri, iok := rank[e[i].Name]
		rj, jok := rank[e[j].Name]
		switch {
		case iok && jok:
			return ri < rj
		default:
			return iok && !jok
		}
	})
}

func fromPaths(paths []string) Entries {
	out := make(Entries, 0, len(paths))
	for _, path := range paths {
		out = append(out, bundler.Entry{Path: path})
	}
	return out
}
