// Package plugins holds the plugin implementations that config files can
// reference by name.
package plugins

import (
	"fmt"
	"sort"
	"strings"

	"github.com/wolfeidau/assetgraph/internal/opts"
	"github.com/wolfeidau/assetgraph/internal/plugin"
)

// Env carries build-wide settings a plugin may depend on.
type Env struct {
	Mode      string
	Root      string
	OutputDir string
}

// Factory creates a plugin from descriptor options.
type Factory func(o opts.Options, env Env) (plugin.Plugin, error)

var registry = map[string]Factory{
	"clean":       newClean,
	"html":        newHTML,
	"compression": newCompression,
	"report":      newReport,
}

// New creates the named plugin.
func New(name string, options opts.Options, env Env) (plugin.Plugin, error) {
	factory, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("unknown plugin %q (available: %s)", name, strings.Join(Names(), ", "))
	}
	p, err := factory(options, env)
	if err != nil {
		return nil, fmt.Errorf("plugin %s: %w", name, err)
	}
	return p, nil
}

// Names returns the registered plugin names, sorted.
func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
