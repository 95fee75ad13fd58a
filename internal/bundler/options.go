package bundler

import (
	"github.com/wolfeidau/assetgraph/internal/diag"
	"github.com/wolfeidau/assetgraph/internal/emit"
	"github.com/wolfeidau/assetgraph/internal/graph"
	"github.com/wolfeidau/assetgraph/internal/plugin"
	"github.com/wolfeidau/assetgraph/internal/transform"
)

const (
	ModeDevelopment = emit.ModeDevelopment
	ModeProduction  = emit.ModeProduction
)

// Entry is a named entry point. An empty name is derived from the file name.
type Entry = graph.EntryPoint

// Options is the complete, already evaluated description of one build.
// Loaders and plugins are concrete values; nothing is looked up by name.
type Options struct {
	Mode    string
	Root    string
	Entries []Entry
	// OutputDir is relative to Root unless absolute.
	OutputDir  string
	Extensions []string
	ModuleDirs []string
	Externals  []string
	Rules      []transform.Rule
	Plugins    []plugin.Plugin
	// Workers bounds concurrent read+transform work; zero uses GOMAXPROCS.
	Workers     int
	CommonChunk string
	SourceMaps  bool
}

// Validate reports the first problem with o as a config error.
func (o Options) Validate() error {
	switch o.Mode {
	case ModeDevelopment, ModeProduction:
	default:
		return diag.Config("unknown mode %q, expected %s or %s", o.Mode, ModeDevelopment, ModeProduction)
	}

	if o.Root == "" {
		return diag.Config("root is required")
	}
	if o.OutputDir == "" {
		return diag.Config("output directory is required")
	}
	if len(o.Entries) == 0 {
		return diag.Config("at least one entry is required")
	}
	if o.Workers < 0 {
		return diag.Config("workers must not be negative, got %d", o.Workers)
	}

	names := make(map[string]bool, len(o.Entries))
	for _, entry := range o.Entries {
		if entry.Path == "" {
			return diag.Config("entry %q has no path", entry.Name)
		}
		name := entry.Name
		if name == "" {
			name = graph.EntryName(entry.Path)
		}
		if names[name] {
			return diag.Config("duplicate entry name %q", name)
		}
		names[name] = true
	}

	if o.CommonChunk != "" && names[o.CommonChunk] {
		return diag.Config("common chunk name %q clashes with an entry", o.CommonChunk)
	}

	for i, rule := range o.Rules {
		if len(rule.Include) == 0 {
			return diag.Config("rule %d (%s) has no include patterns", i, rule.Name)
		}
	}

	for i, p := range o.Plugins {
		if p == nil {
			return diag.Config("plugin %d is nil", i)
		}
	}

	return nil
}
