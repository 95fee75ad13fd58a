package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/require"
	"github.com/wolfeidau/assetgraph/internal/bundler"
	"github.com/wolfeidau/assetgraph/internal/diag"
	"github.com/wolfeidau/assetgraph/internal/models"
)

func init() {
	color.NoColor = true
}

const testConfig = `
entries:
  main: src/main.js
externals: [react]
plugins:
  - name: report
    when: production
`

func writeProject(t *testing.T, config string) (string, string) {
	t.Helper()
	root := t.TempDir()
	files := map[string]string{
		"src/main.js": `var util = require("./util"); require("react");`,
		"src/util.js": `exports.ok = true;`,
	}
	for name, content := range files {
		path := filepath.Join(root, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	}
	path := filepath.Join(root, "assetgraph.yaml")
	require.NoError(t, os.WriteFile(path, []byte(config), 0600))
	return root, path
}

func TestBuildCmd(t *testing.T) {
	root, path := writeProject(t, testConfig)

	cmd := &BuildCmd{ConfigFlags: ConfigFlags{Config: path, Mode: "production", Workers: 2}}
	require.NoError(t, cmd.Run(context.Background(), &Globals{Version: "test"}))

	require.FileExists(t, filepath.Join(root, "dist", "manifest.json"))
	matches, err := filepath.Glob(filepath.Join(root, "dist", "bundle-report.*.html"))
	require.NoError(t, err)
	require.Len(t, matches, 1)
}

func TestBuildCmdOutputOverride(t *testing.T) {
	root, path := writeProject(t, testConfig)

	cmd := &BuildCmd{ConfigFlags: ConfigFlags{Config: path}, Output: "public"}
	require.NoError(t, cmd.Run(context.Background(), &Globals{}))
	require.FileExists(t, filepath.Join(root, "public", "main.js"))
}

func TestBuildCmdFailures(t *testing.T) {
	root, path := writeProject(t, testConfig)
	require.NoError(t, os.WriteFile(filepath.Join(root, "src", "util.js"), []byte(`require("./gone")`), 0600))

	cmd := &BuildCmd{ConfigFlags: ConfigFlags{Config: path}, Retries: 3}
	err := cmd.Run(context.Background(), &Globals{})
	require.EqualError(t, err, "build failed: resolution error")

	root, path = writeProject(t, testConfig)
	require.NoError(t, os.WriteFile(filepath.Join(root, "blocked"), nil, 0600))

	cmd = &BuildCmd{ConfigFlags: ConfigFlags{Config: path}, Output: "blocked/dist", Retries: 1}
	err = cmd.Run(context.Background(), &Globals{})
	require.EqualError(t, err, "build failed: emit error")
}

func TestBuildCmdMissingConfig(t *testing.T) {
	cmd := &BuildCmd{ConfigFlags: ConfigFlags{Config: filepath.Join(t.TempDir(), "assetgraph.yaml")}}
	err := cmd.Run(context.Background(), &Globals{})
	require.ErrorContains(t, err, "failed to read config file")
}

func TestDescribeGraph(t *testing.T) {
	_, path := writeProject(t, testConfig)

	flags := &ConfigFlags{Config: path}
	opts, err := flags.options("")
	require.NoError(t, err)

	g, err := bundler.Graph(context.Background(), opts)
	require.NoError(t, err)

	out := describeGraph(g)
	require.Equal(t, []graphEntry{{Name: "main", Module: "src/main.js"}}, out.Entries)
	require.Equal(t, []graphModule{
		{ID: "src/main.js", Dependencies: []string{"src/util.js"}, Externals: []string{"react"}},
		{ID: "src/util.js"},
	}, out.Modules)

	var buf bytes.Buffer
	printGraph(&buf, out)
	require.Equal(t, "main -> src/main.js\n\nsrc/main.js\n  src/util.js\n  react (external)\nsrc/util.js\n", buf.String())
}

func TestPrintDiagnostic(t *testing.T) {
	var buf bytes.Buffer
	err := diag.Resolution("./gone", models.NewModuleID("/p/src/util.js", ""), "not found")
	printDiagnostic(&buf, err)

	out := buf.String()
	require.Contains(t, out, "resolution error\n")
	require.Contains(t, out, "module:  /p/src/util.js\n")
	require.Contains(t, out, `cannot resolve "./gone"`)
}

func TestFormatBytes(t *testing.T) {
	require.Equal(t, "12 B", formatBytes(12))
	require.Equal(t, "1.5 KiB", formatBytes(1536))
	require.Equal(t, "2.0 MiB", formatBytes(2<<20))
}

func TestPageCmdRendersFromManifest(t *testing.T) {
	root, path := writeProject(t, testConfig)

	build := &BuildCmd{ConfigFlags: ConfigFlags{Config: path, Mode: "production"}}
	require.NoError(t, build.Run(context.Background(), &Globals{}))

	manifest, err := os.ReadFile(filepath.Join(root, "dist", "manifest.json"))
	require.NoError(t, err)
	require.Contains(t, string(manifest), `"entrypoints"`)

	out := filepath.Join(root, "site", "index.html")
	page := &PageCmd{
		Manifest:    filepath.Join(root, "dist", "manifest.json"),
		Title:       "Shop",
		PublicPath:  "/static/",
		Entrypoints: []string{"main"},
		Output:      out,
	}
	require.NoError(t, page.Run(context.Background(), &Globals{}))

	html, err := os.ReadFile(out)
	require.NoError(t, err)
	require.Contains(t, string(html), "<title>Shop</title>")
	require.Regexp(t, `<script src="/static/main\.[^"]+\.js"></script>`, string(html))
}

func TestPageCmdMissingManifest(t *testing.T) {
	page := &PageCmd{Manifest: filepath.Join(t.TempDir(), "manifest.json")}
	err := page.Run(context.Background(), &Globals{})
	require.ErrorContains(t, err, "failed to load manifest")
}

func TestBuildCmdWritesSourceMaps(t *testing.T) {
	root, path := writeProject(t, `
entries:
  main: src/main.js
externals: [react]
output:
  source_maps: true
rules:
  - include: ["**.js"]
    use:
      - loader: esbuild
`)

	cmd := &BuildCmd{ConfigFlags: ConfigFlags{Config: path, Mode: "production"}}
	require.NoError(t, cmd.Run(context.Background(), &Globals{}))

	raw, err := os.ReadFile(filepath.Join(root, "dist", "manifest.json"))
	require.NoError(t, err)

	var manifest models.Manifest
	require.NoError(t, json.Unmarshal(raw, &manifest))
	main := manifest.Chunks["main"]
	require.Equal(t, main.File+".map", main.Map)
	require.FileExists(t, filepath.Join(root, "dist", main.Map))

	data, err := os.ReadFile(filepath.Join(root, "dist", main.Map))
	require.NoError(t, err)
	require.Contains(t, string(data), `"sections"`)
	require.Contains(t, string(data), `"src/main.js"`)
	require.Contains(t, string(data), `"src/util.js"`)
}
