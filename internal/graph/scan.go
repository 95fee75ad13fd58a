package graph

import (
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/evanw/esbuild/pkg/api"
	"github.com/wolfeidau/assetgraph/internal/models"
)

// scanLoaders picks the esbuild parser for transformed content. Anything not
// listed is parsed as plain JavaScript.
var scanLoaders = map[string]api.Loader{
	".jsx": api.LoaderJSX,
	".ts":  api.LoaderTS,
	".tsx": api.LoaderTSX,
}

// metafile is the part of the esbuild metafile the scanner reads.
type metafile struct {
	Inputs map[string]struct {
		Imports []struct {
			Path     string `json:"path"`
			Kind     string `json:"kind"`
			Original string `json:"original"`
		} `json:"imports"`
	} `json:"inputs"`
}

// markExternal stops esbuild at the first hop: every specifier is recorded
// and left for our resolver and plugin hooks.
var markExternal = api.Plugin{
	Name: "assetgraph-scan",
	Setup: func(build api.PluginBuild) {
		build.OnResolve(api.OnResolveOptions{Filter: ".*"}, func(args api.OnResolveArgs) (api.OnResolveResult, error) {
			return api.OnResolveResult{Path: args.Path, External: true}, nil
		})
	},
}

// scanDependencies parses src with esbuild and returns the unique import
// specifiers in order of appearance: require, import, export from and
// dynamic import with a literal argument. JSON modules have none.
func scanDependencies(id models.ModuleID, src []byte) ([]string, error) {
	ext := strings.ToLower(id.Ext())
	if ext == ".json" {
		return []string{}, nil
	}

	loader, ok := scanLoaders[ext]
	if !ok {
		loader = api.LoaderJS
	}

	result := api.Build(api.BuildOptions{
		Stdin: &api.StdinOptions{
			Contents:   string(src),
			Sourcefile: filepath.Base(id.Path),
			ResolveDir: filepath.Dir(id.Path),
			Loader:     loader,
		},
		Bundle:   true,
		Write:    false,
		Metafile: true,
		Format:   api.FormatESModule,
		Platform: api.PlatformNeutral,
		LogLevel: api.LogLevelSilent,
		Plugins:  []api.Plugin{markExternal},
	})
	if len(result.Errors) > 0 {
		return nil, scanError(result.Errors)
	}

	var meta metafile
	if err := json.Unmarshal([]byte(result.Metafile), &meta); err != nil {
		return nil, fmt.Errorf("invalid metafile: %w", err)
	}

	specifiers := []string{}
	seen := make(map[string]bool)
	for _, input := range meta.Inputs {
		for _, imp := range input.Imports {
			specifier := imp.Original
			if specifier == "" {
				specifier = imp.Path
			}
			if specifier == "" || seen[specifier] {
				continue
			}
			seen[specifier] = true
			specifiers = append(specifiers, specifier)
		}
	}
	return specifiers, nil
}

func scanError(msgs []api.Message) error {
	errs := make([]error, 0, len(msgs))
	for _, msg := range msgs {
		if msg.Location != nil {
			errs = append(errs, fmt.Errorf("%d:%d: %s", msg.Location.Line, msg.Location.Column, msg.Text))
			continue
		}
		errs = append(errs, errors.New(msg.Text))
	}
	return errors.Join(errs...)
}
