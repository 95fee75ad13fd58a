// Package config loads assetgraph.yaml or assetgraph.toml and evaluates it
// into concrete build options.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// DefaultFiles are searched in order by Find.
var DefaultFiles = []string{"assetgraph.yaml", "assetgraph.yml", "assetgraph.toml"}

// ErrNotFound is returned by Find when no config file exists.
var ErrNotFound = errors.New("config file not found")

// Config mirrors the config file.
type Config struct {
	Mode      string       `yaml:"mode" toml:"mode"`
	Root      string       `yaml:"root" toml:"root"`
	Entries   Entries      `yaml:"entries" toml:"entries"`
	Output    Output       `yaml:"output" toml:"output"`
	Resolve   Resolve      `yaml:"resolve" toml:"resolve"`
	Externals []string     `yaml:"externals" toml:"externals"`
	Workers   int          `yaml:"workers" toml:"workers"`
	Rules     []Rule       `yaml:"rules" toml:"rules"`
	Plugins   []PluginSpec `yaml:"plugins" toml:"plugins"`

	// Path is the file the config was loaded from. A relative Root is
	// resolved against its directory.
	Path string `yaml:"-" toml:"-"`
}

type Output struct {
	Dir         string `yaml:"dir" toml:"dir"`
	CommonChunk string `yaml:"common_chunk" toml:"common_chunk"`
	SourceMaps  bool   `yaml:"source_maps" toml:"source_maps"`
}

type Resolve struct {
	Extensions []string `yaml:"extensions" toml:"extensions"`
	Modules    []string `yaml:"modules" toml:"modules"`
}

// Rule selects modules by glob and names the loaders applied to them, in order.
type Rule struct {
	Name    string       `yaml:"name" toml:"name"`
	Include []string     `yaml:"include" toml:"include"`
	Exclude []string     `yaml:"exclude" toml:"exclude"`
	Use     []LoaderSpec `yaml:"use" toml:"use"`
}

type LoaderSpec struct {
	Loader  string         `yaml:"loader" toml:"loader"`
	Options map[string]any `yaml:"options" toml:"options"`
}

// PluginSpec names a plugin and the modes it runs in.
type PluginSpec struct {
	Name    string         `yaml:"name" toml:"name"`
	When    string         `yaml:"when" toml:"when"` // always (default), production or development
	Options map[string]any `yaml:"options" toml:"options"`
}

// Find returns the first default config file in dir.
func Find(dir string) (string, error) {
	for _, name := range DefaultFiles {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err == nil {
			return path, nil
		} else if !errors.Is(err, fs.ErrNotExist) {
			return "", err
		}
	}
	return "", fmt.Errorf("%s: %w (looked for %s)", dir, ErrNotFound, strings.Join(DefaultFiles, ", "))
}

// Load reads a config file, choosing the format from its extension.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg *Config
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		cfg, err = parseYAML(data)
	case ".toml":
		cfg, err = parseTOML(data)
	default:
		return nil, fmt.Errorf("%s: unsupported config format, expected .yaml, .yml or .toml", path)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	cfg.Path = path
	return cfg, nil
}

func parseYAML(data []byte) (*Config, error) {
	var cfg Config

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	return &cfg, nil
}

func parseTOML(data []byte) (*Config, error) {
	var cfg Config

	meta, err := toml.Decode(string(data), &cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to parse TOML: %w", err)
	}

	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, 0, len(undecoded))
		for _, k := range undecoded {
			if k[0] == "entries" {
				continue
			}
			keys = append(keys, k.String())
		}
		if len(keys) > 0 {
			return nil, fmt.Errorf("unknown keys: %s", strings.Join(keys, ", "))
		}
	}

	// tables decode without order, the metadata keeps document order
	var names []string
	for _, key := range meta.Keys() {
		if len(key) == 2 && key[0] == "entries" {
			names = append(names, key[1])
		}
	}
	cfg.Entries.reorder(names)

	return &cfg, nil
}
