package config

import (
	"path/filepath"
	"strconv"

	"github.com/wolfeidau/assetgraph/internal/bundler"
	"github.com/wolfeidau/assetgraph/internal/diag"
	"github.com/wolfeidau/assetgraph/internal/loaders"
	"github.com/wolfeidau/assetgraph/internal/opts"
	"github.com/wolfeidau/assetgraph/internal/plugins"
	"github.com/wolfeidau/assetgraph/internal/transform"
)

const (
	WhenAlways      = "always"
	WhenProduction  = "production"
	WhenDevelopment = "development"
)

// DefaultExtensions are tried when the config does not list any.
var DefaultExtensions = []string{".js", ".jsx", ".json"}

const defaultOutputDir = "dist"

// Options evaluates the config for mode into build options. An empty mode
// falls back to the file's mode, then development. Loaders and plugins are
// constructed here, so the result holds no names left to look up.
func (c *Config) Options(mode string) (bundler.Options, error) {
	if mode == "" {
		mode = c.Mode
	}
	if mode == "" {
		mode = bundler.ModeDevelopment
	}
	if mode != bundler.ModeDevelopment && mode != bundler.ModeProduction {
		return bundler.Options{}, diag.Config("unknown mode %q", mode)
	}

	root, err := c.root()
	if err != nil {
		return bundler.Options{}, err
	}

	outputDir := c.Output.Dir
	if outputDir == "" {
		outputDir = defaultOutputDir
	}
	if !filepath.IsAbs(outputDir) {
		outputDir = filepath.Join(root, outputDir)
	}

	extensions := c.Resolve.Extensions
	if len(extensions) == 0 {
		extensions = DefaultExtensions
	}

	o := bundler.Options{
		Mode:        mode,
		Root:        root,
		Entries:     append([]bundler.Entry(nil), c.Entries...),
		OutputDir:   outputDir,
		Extensions:  append([]string(nil), extensions...),
		ModuleDirs:  append([]string(nil), c.Resolve.Modules...),
		Externals:   append([]string(nil), c.Externals...),
		Workers:     c.Workers,
		CommonChunk: c.Output.CommonChunk,
		SourceMaps:  c.Output.SourceMaps,
	}

	loaderEnv := loaders.Env{Mode: mode, Root: root, SourceMaps: c.Output.SourceMaps}
	for i, rule := range c.Rules {
		name := rule.Name
		if name == "" {
			name = "rule-" + strconv.Itoa(i)
		}

		r := transform.Rule{
			Name:    name,
			Include: append([]string(nil), rule.Include...),
			Exclude: append([]string(nil), rule.Exclude...),
		}
		for _, use := range rule.Use {
			stage, err := loaders.New(use.Loader, opts.Options(use.Options), loaderEnv)
			if err != nil {
				return bundler.Options{}, diag.Config("rule %s: %v", name, err)
			}
			r.Stages = append(r.Stages, stage)
		}
		o.Rules = append(o.Rules, r)
	}

	pluginEnv := plugins.Env{Mode: mode, Root: root, OutputDir: outputDir}
	for _, spec := range c.Plugins {
		enabled, err := spec.enabled(mode)
		if err != nil {
			return bundler.Options{}, err
		}
		if !enabled {
			continue
		}

		p, err := plugins.New(spec.Name, opts.Options(spec.Options), pluginEnv)
		if err != nil {
			return bundler.Options{}, diag.Config("%v", err)
		}
		o.Plugins = append(o.Plugins, p)
	}

	if err := o.Validate(); err != nil {
		return bundler.Options{}, err
	}
	return o, nil
}

func (c *Config) root() (string, error) {
	root := c.Root
	if !filepath.IsAbs(root) {
		base := "."
		if c.Path != "" {
			base = filepath.Dir(c.Path)
		}
		root = filepath.Join(base, root)
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return "", diag.Config("invalid root %q: %v", c.Root, err)
	}
	return abs, nil
}

func (p PluginSpec) enabled(mode string) (bool, error) {
	switch p.When {
	case "", WhenAlways:
		return true, nil
	case WhenProduction, WhenDevelopment:
		return p.When == mode, nil
	default:
		return false, diag.Config("plugin %s: invalid when %q, expected %s, %s or %s",
			p.Name, p.When, WhenAlways, WhenProduction, WhenDevelopment)
	}
}

// PluginNames lists the plugins enabled for mode, in order.
func (c *Config) PluginNames(mode string) []string {
	var names []string
	for _, spec := range c.Plugins {
		if ok, err := spec.enabled(mode); err == nil && ok {
			names = append(names, spec.Name)
		}
	}
	return names
}
