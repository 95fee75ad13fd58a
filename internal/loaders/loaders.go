// Package loaders is the registry of named transform stages used by config
// files. Each loader is a factory turning a descriptor's options into a
// transform.Stage for a given build mode.
package loaders

import (
	"fmt"
	"sort"
	"strings"

	"github.com/wolfeidau/assetgraph/internal/opts"
	"github.com/wolfeidau/assetgraph/internal/transform"
)

// Env carries build-wide settings a loader may depend on.
type Env struct {
	Mode string
	Root string

	// SourceMaps asks stages that can to append an inline source map.
	SourceMaps bool
}

// Production reports whether the build is a production build.
func (e Env) Production() bool {
	return e.Mode == "production"
}

// Options are the loader options from a config descriptor.
type Options = opts.Options

// Factory creates a stage from options.
type Factory func(opts Options, env Env) (transform.Stage, error)

var registry = map[string]Factory{
	"esbuild": newESBuild,
	"url":     newURL,
	"css":     newCSS,
	"style":   newStyle,
	"raw":     newRaw,
}

// New creates the stage for the named loader.
func New(name string, options Options, env Env) (transform.Stage, error) {
	factory, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("unknown loader %q (available: %s)", name, strings.Join(Names(), ", "))
	}
	stage, err := factory(options, env)
	if err != nil {
		return nil, fmt.Errorf("loader %s: %w", name, err)
	}
	return stage, nil
}

// Names returns the registered loader names, sorted.
func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
