package loaders

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/evanw/esbuild/pkg/api"
	"github.com/wolfeidau/assetgraph/internal/models"
	"github.com/wolfeidau/assetgraph/internal/transform"
)

var esbuildLoaders = map[string]api.Loader{
	".js":   api.LoaderJS,
	".mjs":  api.LoaderJS,
	".cjs":  api.LoaderJS,
	".jsx":  api.LoaderJSX,
	".ts":   api.LoaderTS,
	".tsx":  api.LoaderTSX,
	".json": api.LoaderJSON,
}

var jsxModes = map[string]api.JSX{
	"transform": api.JSXTransform,
	"automatic": api.JSXAutomatic,
	"preserve":  api.JSXPreserve,
}

var targets = map[string]api.Target{
	"es2015": api.ES2015,
	"es2017": api.ES2017,
	"es2020": api.ES2020,
	"es2022": api.ES2022,
	"esnext": api.ESNext,
}

// esbuildStage compiles JS, JSX, TS and JSON modules to CommonJS, which is
// what the bundle runtime executes. In production output is minified.
type esbuildStage struct {
	root    string
	options api.TransformOptions
}

func newESBuild(opts Options, env Env) (transform.Stage, error) {
	jsx, err := opts.String("jsx", "transform")
	if err != nil {
		return nil, err
	}
	jsxMode, ok := jsxModes[jsx]
	if !ok {
		return nil, fmt.Errorf("unsupported jsx mode %q", jsx)
	}

	target, err := opts.String("target", "es2017")
	if err != nil {
		return nil, err
	}
	esTarget, ok := targets[strings.ToLower(target)]
	if !ok {
		return nil, fmt.Errorf("unsupported target %q", target)
	}

	minify, err := opts.Bool("minify", env.Production())
	if err != nil {
		return nil, err
	}

	define, err := opts.StringMap("define")
	if err != nil {
		return nil, err
	}
	if define == nil {
		define = make(map[string]string)
	}
	if _, ok := define["process.env.NODE_ENV"]; !ok && env.Mode != "" {
		define["process.env.NODE_ENV"] = strconv.Quote(env.Mode)
	}

	sourcemap, err := opts.Bool("sourcemap", env.SourceMaps)
	if err != nil {
		return nil, err
	}

	stage := &esbuildStage{
		root: env.Root,
		options: api.TransformOptions{
			Format:            api.FormatCommonJS,
			JSX:               jsxMode,
			Target:            esTarget,
			MinifyWhitespace:  minify,
			MinifyIdentifiers: minify,
			MinifySyntax:      minify,
			Define:            define,
			LogLevel:          api.LogLevelSilent,
		},
	}
	if sourcemap {
		// the emitter lifts inline maps into one map file per chunk
		stage.options.Sourcemap = api.SourceMapInline
		stage.options.SourcesContent = api.SourcesContentInclude
	}
	return stage, nil
}

func (s *esbuildStage) Name() string { return "esbuild" }

func (s *esbuildStage) Apply(id models.ModuleID, src []byte) ([]byte, error) {
	loader, ok := esbuildLoaders[strings.ToLower(id.Ext())]
	if !ok {
		loader = api.LoaderJS
	}

	opts := s.options
	opts.Loader = loader
	opts.Sourcefile = id.Rel(s.root)

	result := api.Transform(string(src), opts)
	if len(result.Errors) > 0 {
		return nil, messageError(result.Errors)
	}
	return result.Code, nil
}

func messageError(msgs []api.Message) error {
	errs := make([]error, 0, len(msgs))
	for _, msg := range msgs {
		if loc := msg.Location; loc != nil {
			errs = append(errs, fmt.Errorf("%s:%d:%d: %s", loc.File, loc.Line, loc.Column, msg.Text))
			continue
		}
		errs = append(errs, errors.New(msg.Text))
	}
	return errors.Join(errs...)
}
