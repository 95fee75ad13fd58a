package commands

import (
	"errors"
	"fmt"
	"os"

	"github.com/wolfeidau/assetgraph/internal/bundler"
	"github.com/wolfeidau/assetgraph/internal/config"
)

type Globals struct {
	Debug   bool
	Version string
}

// ConfigFlags are shared by every command that reads the config file.
type ConfigFlags struct {
	Config  string `help:"Config file, defaults to assetgraph.yaml, assetgraph.yml or assetgraph.toml in the working directory" short:"c" type:"path" env:"ASSETGRAPH_CONFIG"`
	Mode    string `help:"Build mode (development or production), overrides the config" short:"m" env:"ASSETGRAPH_MODE"`
	Workers int    `help:"Concurrent transforms, 0 uses the config or GOMAXPROCS" env:"ASSETGRAPH_WORKERS"`
}

func (f *ConfigFlags) load() (*config.Config, error) {
	path := f.Config
	if path == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, err
		}
		if path, err = config.Find(wd); err != nil {
			return nil, err
		}
	}
	return config.Load(path)
}

// options loads the config and applies flag overrides.
func (f *ConfigFlags) options(outputDir string) (bundler.Options, error) {
	cfg, err := f.load()
	if err != nil {
		return bundler.Options{}, err
	}

	if f.Workers > 0 {
		cfg.Workers = f.Workers
	}
	if outputDir != "" {
		cfg.Output.Dir = outputDir
	}

	o, err := cfg.Options(f.Mode)
	if err != nil {
		return bundler.Options{}, fmt.Errorf("%s: %w", cfg.Path, err)
	}
	return o, nil
}

// resolverOptions is options for commands that only resolve. A missing config
// file falls back to the working directory with default extensions.
func (f *ConfigFlags) resolverOptions() (bundler.Options, error) {
	o, err := f.options("")
	if errors.Is(err, config.ErrNotFound) {
		wd, err := os.Getwd()
		if err != nil {
			return bundler.Options{}, err
		}
		return bundler.Options{Root: wd, Extensions: config.DefaultExtensions}, nil
	}
	return o, err
}
