package emit

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wolfeidau/assetgraph/internal/diag"
	"github.com/wolfeidau/assetgraph/internal/models"
	"github.com/wolfeidau/assetgraph/internal/plugin"
)

const root = "/project"

type module struct {
	path    string
	code    string
	imports map[string]string // specifier -> path
	deps    []string          // resolved order
	externs []string
}

func id(path string) models.ModuleID {
	return models.NewModuleID(filepath.Join(root, path), "")
}

func newGraph(entries []string, modules ...module) *models.Graph {
	g := models.NewGraph(root)
	for _, m := range modules {
		mod := &models.Module{
			ID:          id(m.path),
			Transformed: []byte(m.code),
			Externals:   m.externs,
			Imports:     make(map[string]models.ModuleID),
		}
		for s, p := range m.imports {
			mod.Imports[s] = id(p)
		}
		for _, d := range m.deps {
			mod.ResolvedDependencies = append(mod.ResolvedDependencies, id(d))
		}
		g.Modules[mod.ID] = mod
	}
	for _, e := range entries {
		g.Entries = append(g.Entries, models.Entry{Name: e[:len(e)-len(filepath.Ext(e))], ID: id(e)})
	}
	return g
}

func twoEntryGraph(adminCode string) *models.Graph {
	return newGraph([]string{"app.js", "admin.js"},
		module{path: "app.js", code: `require("./shared"); require("./a");`,
			imports: map[string]string{"./shared": "shared.js", "./a": "a.js"}, deps: []string{"shared.js", "a.js"}},
		module{path: "admin.js", code: adminCode,
			imports: map[string]string{"./shared": "shared.js"}, deps: []string{"shared.js"}},
		module{path: "a.js", code: `module.exports = "a";`},
		module{path: "shared.js", code: `module.exports = "shared";`},
	)
}

func TestEmitProduction(t *testing.T) {
	out := filepath.Join(t.TempDir(), "nested", "dist")
	g := newGraph([]string{"app.js"},
		module{path: "app.js", code: `var b = require("./b"); var r = require("react/addons");`,
			imports: map[string]string{"./b": "b.js"}, deps: []string{"b.js"}, externs: []string{"react/addons"}},
		module{path: "b.js", code: `module.exports = 1;`},
	)

	bundle, err := New(nil).Emit(context.Background(), g, Config{OutputDir: out, Mode: ModeProduction, BuildID: "build-1"})
	require.NoError(t, err)
	require.Len(t, bundle.Chunks, 1)

	app := bundle.Chunks[0]
	require.Equal(t, "app", app.Name)
	require.Equal(t, models.ChunkEntry, app.Kind)
	require.Equal(t, "app."+app.Hash+".js", app.File)
	require.Equal(t, ContentHash(app.Content), app.Hash)
	require.Equal(t, []models.ModuleID{id("app.js"), id("b.js")}, app.Modules)

	written, err := os.ReadFile(filepath.Join(out, app.File))
	require.NoError(t, err)
	require.Equal(t, app.Content, written)

	content := string(app.Content)
	assert.Contains(t, content, `registry.modules["app.js"] = [function (module, exports, require) {`)
	assert.Contains(t, content, `{"./b":"b.js","react/addons":null}`)
	assert.Contains(t, content, `load("app.js");`)
	assert.NotContains(t, content, "/* app.js */")

	data, err := os.ReadFile(filepath.Join(out, ManifestFile))
	require.NoError(t, err)

	var manifest models.Manifest
	require.NoError(t, json.Unmarshal(data, &manifest))
	require.Equal(t, "build-1", manifest.BuildID)
	require.Equal(t, ModeProduction, manifest.Mode)
	require.Equal(t, []string{app.File}, manifest.Entrypoints["app"])
	require.Equal(t, app.File, manifest.Chunks["app"].File)
	require.Equal(t, []string{"app.js", "b.js"}, manifest.Chunks["app"].Modules)
}

func TestEmitDevelopment(t *testing.T) {
	out := t.TempDir()
	g := newGraph([]string{"app.js"}, module{path: "app.js", code: `console.log("hi") // trailing`})

	bundle, err := New(nil).Emit(context.Background(), g, Config{OutputDir: out, Mode: ModeDevelopment})
	require.NoError(t, err)

	app := bundle.Chunks[0]
	require.Equal(t, "app.js", app.File)
	require.NotEmpty(t, app.Hash)
	require.Contains(t, string(app.Content), "/* app.js */\n")
	require.Contains(t, string(app.Content), "// trailing\n}")
	require.FileExists(t, filepath.Join(out, "app.js"))
}

func TestEmitIdempotentHashes(t *testing.T) {
	g := twoEntryGraph(`require("./shared");`)

	first, err := New(nil).Emit(context.Background(), g, Config{OutputDir: t.TempDir(), Mode: ModeProduction})
	require.NoError(t, err)
	second, err := New(nil).Emit(context.Background(), g, Config{OutputDir: t.TempDir(), Mode: ModeProduction})
	require.NoError(t, err)

	require.Len(t, second.Chunks, len(first.Chunks))
	for i := range first.Chunks {
		require.Equal(t, first.Chunks[i].Content, second.Chunks[i].Content)
		require.Equal(t, first.Chunks[i].Hash, second.Chunks[i].Hash)
		require.Equal(t, first.Chunks[i].File, second.Chunks[i].File)
	}
}

func TestEmitHashIsolatedPerChunk(t *testing.T) {
	before, err := New(nil).Emit(context.Background(), twoEntryGraph(`require("./shared");`),
		Config{OutputDir: t.TempDir(), Mode: ModeProduction})
	require.NoError(t, err)

	after, err := New(nil).Emit(context.Background(), twoEntryGraph(`require("./shared"); console.log("changed");`),
		Config{OutputDir: t.TempDir(), Mode: ModeProduction})
	require.NoError(t, err)

	appBefore, _ := before.Chunk("app")
	appAfter, _ := after.Chunk("app")
	require.Equal(t, appBefore.Hash, appAfter.Hash)

	adminBefore, _ := before.Chunk("admin")
	adminAfter, _ := after.Chunk("admin")
	require.NotEqual(t, adminBefore.Hash, adminAfter.Hash)
}

func TestEmitCommonChunk(t *testing.T) {
	out := t.TempDir()
	g := twoEntryGraph(`require("./shared");`)

	bundle, err := New(nil).Emit(context.Background(), g, Config{OutputDir: out, Mode: ModeProduction, CommonChunk: "common"})
	require.NoError(t, err)
	require.Len(t, bundle.Chunks, 3)

	common := bundle.Chunks[0]
	require.Equal(t, "common", common.Name)
	require.Equal(t, models.ChunkCommon, common.Kind)
	require.Equal(t, []models.ModuleID{id("shared.js")}, common.Modules)
	require.NotContains(t, string(common.Content), "function load(")

	app, _ := bundle.Chunk("app")
	require.Equal(t, []models.ModuleID{id("app.js"), id("a.js")}, app.Modules)
	require.Equal(t, []string{"common"}, app.Imports)

	admin, _ := bundle.Chunk("admin")
	require.Equal(t, []models.ModuleID{id("admin.js")}, admin.Modules)

	require.Equal(t, []string{common.File, app.File}, bundle.Manifest.Entrypoints["app"])
	require.Equal(t, []string{common.File, admin.File}, bundle.Manifest.Entrypoints["admin"])
}

func TestEmitWithoutCommonChunkDuplicatesShared(t *testing.T) {
	bundle, err := New(nil).Emit(context.Background(), twoEntryGraph(`require("./shared");`),
		Config{OutputDir: t.TempDir(), Mode: ModeProduction})
	require.NoError(t, err)
	require.Len(t, bundle.Chunks, 2)

	app, _ := bundle.Chunk("app")
	require.Equal(t, []models.ModuleID{id("app.js"), id("shared.js"), id("a.js")}, app.Modules)
	require.Empty(t, app.Imports)
}

func TestEmitWriteFailure(t *testing.T) {
	blocker := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0600))

	g := newGraph([]string{"app.js"}, module{path: "app.js", code: ``})
	_, err := New(nil).Emit(context.Background(), g, Config{OutputDir: filepath.Join(blocker, "dist"), Mode: ModeProduction})
	require.ErrorIs(t, err, diag.ErrEmit)

	_, err = New(nil).Emit(context.Background(), g, Config{Mode: ModeProduction})
	require.ErrorIs(t, err, diag.ErrConfig)
}

func TestEmitNestedChunkName(t *testing.T) {
	out := t.TempDir()
	g := newGraph([]string{"pages/home.js"}, module{path: "pages/home.js", code: `1;`})

	bundle, err := New(nil).Emit(context.Background(), g, Config{OutputDir: out, Mode: ModeProduction})
	require.NoError(t, err)

	home, ok := bundle.Chunk("pages/home")
	require.True(t, ok)
	require.Equal(t, "pages/home."+home.Hash+".js", home.File)
	require.FileExists(t, filepath.Join(out, "pages", "home."+home.Hash+".js"))
	require.Equal(t, []string{home.File}, bundle.Manifest.Entrypoints["pages/home"])
}

type escapePlugin struct{}

func (escapePlugin) Name() string { return "escape" }

func (escapePlugin) PreEmit(_ context.Context, ec *plugin.EmitContext) error {
	return ec.AddChunk("../escape", "txt", []byte("x"))
}

func TestEmitChunkOutsideOutputDir(t *testing.T) {
	parent := t.TempDir()
	out := filepath.Join(parent, "dist")
	g := newGraph([]string{"app.js"}, module{path: "app.js", code: `1;`})

	_, err := New(plugin.NewHost(escapePlugin{})).Emit(context.Background(), g, Config{OutputDir: out, Mode: ModeDevelopment})
	require.ErrorIs(t, err, diag.ErrEmit)
	require.ErrorContains(t, err, "outside the output directory")
	require.NoFileExists(t, filepath.Join(parent, "escape.txt"))
}

func withInlineMap(code, source string) string {
	sm := `{"version":3,"sources":["` + source + `"],"names":[],"mappings":"AAAA"}`
	return code + "\n//# sourceMappingURL=data:application/json;base64," + base64.StdEncoding.EncodeToString([]byte(sm)) + "\n"
}

func TestEmitSourceMaps(t *testing.T) {
	for _, mode := range []string{ModeDevelopment, ModeProduction} {
		t.Run(mode, func(t *testing.T) {
			out := t.TempDir()
			g := newGraph([]string{"app.js"},
				module{path: "app.js", code: withInlineMap(`console.log(require("./b"));`, "app.js"),
					imports: map[string]string{"./b": "b.js"}, deps: []string{"b.js"}},
				module{path: "b.js", code: withInlineMap(`module.exports = 2;`, "b.js")},
			)

			bundle, err := New(nil).Emit(context.Background(), g, Config{OutputDir: out, Mode: mode, SourceMaps: true})
			require.NoError(t, err)

			app := bundle.Chunks[0]
			content := string(app.Content)
			require.NotContains(t, content, "base64,")
			require.True(t, strings.HasSuffix(content, "//# sourceMappingURL="+app.File+".map\n"))

			unmapped := strings.TrimSuffix(content, "//# sourceMappingURL="+app.File+".map\n")
			if mode == ModeProduction {
				unmapped = strings.TrimSuffix(unmapped, "\n")
			}
			require.Equal(t, app.Hash, ContentHash([]byte(unmapped)))
			require.Equal(t, app.File+".map", bundle.Manifest.Chunks["app"].Map)

			data, err := os.ReadFile(filepath.Join(out, app.File+".map"))
			require.NoError(t, err)
			require.Equal(t, app.SourceMap, data)

			var im struct {
				Version  int    `json:"version"`
				File     string `json:"file"`
				Sections []struct {
					Offset struct {
						Line   int `json:"line"`
						Column int `json:"column"`
					} `json:"offset"`
					Map struct {
						Sources []string `json:"sources"`
					} `json:"map"`
				} `json:"sections"`
			}
			require.NoError(t, json.Unmarshal(data, &im))
			require.Equal(t, 3, im.Version)
			require.Equal(t, app.File, im.File)
			require.Len(t, im.Sections, 2)

			for i, code := range []string{`console.log(require("./b"));`, `module.exports = 2;`} {
				at := strings.Index(content, code)
				require.Positive(t, at)
				line := strings.Count(content[:at], "\n")
				column := at - (strings.LastIndex(content[:at], "\n") + 1)

				sec := im.Sections[i]
				require.Equal(t, line, sec.Offset.Line)
				require.Equal(t, column, sec.Offset.Column)
			}
			require.Equal(t, []string{"app.js"}, im.Sections[0].Map.Sources)
			require.Equal(t, []string{"b.js"}, im.Sections[1].Map.Sources)
		})
	}
}

func TestEmitWithoutSourceMapsStripsInlineMaps(t *testing.T) {
	out := t.TempDir()
	g := newGraph([]string{"app.js"}, module{path: "app.js", code: withInlineMap(`1;`, "app.js")})

	bundle, err := New(nil).Emit(context.Background(), g, Config{OutputDir: out, Mode: ModeDevelopment})
	require.NoError(t, err)

	app := bundle.Chunks[0]
	require.NotContains(t, string(app.Content), "sourceMappingURL")
	require.Nil(t, app.SourceMap)
	require.Empty(t, bundle.Manifest.Chunks["app"].Map)
	require.NoFileExists(t, filepath.Join(out, "app.js.map"))
}

type reportPlugin struct{}

func (reportPlugin) Name() string { return "report" }

func (reportPlugin) PreEmit(_ context.Context, ec *plugin.EmitContext) error {
	return ec.AddChunk("report", "html", []byte("<p>"+ec.Chunks[0].Name+"</p>"))
}

type postEmitRecorder struct {
	got *plugin.PostEmitContext
}

func (p *postEmitRecorder) Name() string { return "recorder" }

func (p *postEmitRecorder) PostEmit(_ context.Context, pc *plugin.PostEmitContext) error {
	p.got = pc
	return nil
}

func TestEmitPluginHooks(t *testing.T) {
	out := t.TempDir()
	rec := &postEmitRecorder{}
	g := newGraph([]string{"app.js"}, module{path: "app.js", code: `1;`})

	bundle, err := New(plugin.NewHost(reportPlugin{}, rec)).Emit(context.Background(), g,
		Config{OutputDir: out, Mode: ModeProduction})
	require.NoError(t, err)
	require.Len(t, bundle.Chunks, 2)

	report, ok := bundle.Chunk("report")
	require.True(t, ok)
	require.Equal(t, models.ChunkSynthetic, report.Kind)
	require.Equal(t, "report."+report.Hash+".html", report.File)
	require.Equal(t, "<p>app</p>", string(report.Content))
	require.FileExists(t, filepath.Join(out, report.File))
	require.Equal(t, "synthetic", bundle.Manifest.Chunks["report"].Kind)
	require.NotContains(t, bundle.Manifest.Entrypoints, "report")

	require.NotNil(t, rec.got)
	require.Equal(t, out, rec.got.OutputDir)
	require.Len(t, rec.got.Chunks, 2)
	require.Equal(t, bundle.Manifest, rec.got.Manifest)
}

func TestContentHash(t *testing.T) {
	require.Equal(t, ContentHash([]byte("abc")), ContentHash([]byte("abc")))
	require.NotEqual(t, ContentHash([]byte("abc")), ContentHash([]byte("abd")))
	require.NotEmpty(t, ContentHash(nil))
}
