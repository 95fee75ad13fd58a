package loaders

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"mime"
	"strings"

	"github.com/evanw/esbuild/pkg/api"
	"github.com/wolfeidau/assetgraph/internal/models"
	"github.com/wolfeidau/assetgraph/internal/transform"
)

// exportString renders a CommonJS module exporting s.
func exportString(s string) []byte {
	// strings always marshal
	lit, _ := json.Marshal(s)
	return append(append([]byte("module.exports = "), lit...), ";\n"...)
}

// newURL inlines the file as a base64 data URI. The mimetype option
// overrides the type derived from the extension.
func newURL(opts Options, _ Env) (transform.Stage, error) {
	mimetype, err := opts.String("mimetype", "")
	if err != nil {
		return nil, err
	}
	limit, err := opts.Int("limit", 0)
	if err != nil {
		return nil, err
	}

	return transform.StageFunc{StageName: "url", Fn: func(id models.ModuleID, src []byte) ([]byte, error) {
		if limit > 0 && len(src) > limit {
			return nil, fmt.Errorf("%d bytes exceeds inline limit of %d", len(src), limit)
		}

		mt := mimetype
		if mt == "" {
			mt = mime.TypeByExtension(id.Ext())
		}
		if mt == "" {
			mt = "application/octet-stream"
		}
		if i := strings.IndexByte(mt, ';'); i >= 0 {
			mt = mt[:i]
		}

		return exportString("data:" + mt + ";base64," + base64.StdEncoding.EncodeToString(src)), nil
	}}, nil
}

// newCSS exports the stylesheet text. Production builds minify it.
func newCSS(opts Options, env Env) (transform.Stage, error) {
	minify, err := opts.Bool("minify", env.Production())
	if err != nil {
		return nil, err
	}

	return transform.StageFunc{StageName: "css", Fn: func(id models.ModuleID, src []byte) ([]byte, error) {
		css := string(src)
		if minify {
			result := api.Transform(css, api.TransformOptions{
				Loader:           api.LoaderCSS,
				MinifyWhitespace: true,
				MinifySyntax:     true,
				Sourcefile:       id.Rel(env.Root),
				LogLevel:         api.LogLevelSilent,
			})
			if len(result.Errors) > 0 {
				return nil, messageError(result.Errors)
			}
			css = string(result.Code)
		}
		return exportString(css), nil
	}}, nil
}

const styleTemplate = `var css = (function () {
var module = {exports: {}};
%s
return module.exports;
})();
if (typeof document !== "undefined") {
  var style = document.createElement("style");
  style.setAttribute("data-module", %s);
  style.textContent = css;
  document.head.appendChild(style);
}
module.exports = css;
`

// newStyle wraps a module exporting CSS text so that loading it injects a
// style element. It is meant to follow the css loader.
func newStyle(_ Options, env Env) (transform.Stage, error) {
	return transform.StageFunc{StageName: "style", Fn: func(id models.ModuleID, src []byte) ([]byte, error) {
		key, _ := json.Marshal(id.Rel(env.Root))
		return fmt.Appendf(nil, styleTemplate, src, key), nil
	}}, nil
}

// newRaw exports file content as a string.
func newRaw(_ Options, _ Env) (transform.Stage, error) {
	return transform.StageFunc{StageName: "raw", Fn: func(_ models.ModuleID, src []byte) ([]byte, error) {
		return exportString(string(src)), nil
	}}, nil
}
