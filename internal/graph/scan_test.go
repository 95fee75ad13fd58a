package graph

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/wolfeidau/assetgraph/internal/diag"
	"github.com/wolfeidau/assetgraph/internal/models"
)

func TestScanDependencies(t *testing.T) {
	tests := []struct {
		name string
		path string
		src  string
		want []string
	}{
		{
			name: "commonjs",
			src:  `const a = require("./a"); const b = require( './b' );`,
			want: []string{"./a", "./b"},
		},
		{
			name: "esm forms in order",
			src: `import React from "react";
import { render } from 'react-dom';
import "./styles.css";
import * as util from "./util";
export { helper } from "./helper";
export * from "./all";
const lazy = () => import("./lazy");
render(React, util, lazy);`,
			want: []string{"react", "react-dom", "./styles.css", "./util", "./helper", "./all", "./lazy"},
		},
		{
			name: "duplicates collapse",
			src:  `require("./a"); require("./b"); require("./a");`,
			want: []string{"./a", "./b"},
		},
		{
			name: "comments ignored",
			src: `// require("./line")
/* require("./block")
   import "./block2" */
require("./real");`,
			want: []string{"./real"},
		},
		{
			name: "string literals ignored",
			src: `var help = "call require('./plugin') to load it";
console.log('usage: import("./not-a-file")', ` + "`import \"./tpl\"`" + `);
require("./after");`,
			want: []string{"./after"},
		},
		{
			name: "non literal require skipped",
			src:  `require(name); require("./lit");`,
			want: []string{"./lit"},
		},
		{
			name: "jsx",
			path: "/project/src/app.jsx",
			src:  `import Button from "./button"; export default () => <Button label="require('./x')" />;`,
			want: []string{"./button"},
		},
		{
			name: "json has no imports",
			path: "/project/data.json",
			src:  `{"require": "./nope"}`,
			want: []string{},
		},
		{
			name: "none",
			src:  `module.exports = 42;`,
			want: []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := tt.path
			if path == "" {
				path = "/project/src/index.js"
			}
			got, err := scanDependencies(models.NewModuleID(path, ""), []byte(tt.src))
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}
}

func TestScanDependenciesSyntaxError(t *testing.T) {
	_, err := scanDependencies(models.NewModuleID("/project/src/index.js", ""), []byte("const = ;"))
	require.ErrorContains(t, err, "1:")
}

func TestBuildStringLiteralIsNotADependency(t *testing.T) {
	root := writeTree(t, map[string]string{
		"app.js":  `console.log("usage: require('./not-a-file')"); require("./util");`,
		"util.js": `module.exports = 1;`,
	})

	g, err := newBuilder(t, root, newCountingStage(root)).Build(context.Background(), []EntryPoint{{Path: "app.js"}})
	require.NoError(t, err)
	require.Equal(t, 2, g.Len())
}

func TestBuildSyntaxErrorIsScanFailure(t *testing.T) {
	root := writeTree(t, map[string]string{"app.js": `require("./a"`})

	_, err := newBuilder(t, root, newCountingStage(root)).Build(context.Background(), []EntryPoint{{Path: "app.js"}})
	require.ErrorIs(t, err, diag.ErrTransform)

	var de *diag.Error
	require.ErrorAs(t, err, &de)
	require.Equal(t, -1, de.Stage)
	require.Equal(t, "scan", de.StageName)
	require.Equal(t, "app.js", de.ModuleID.Rel(root))
}
