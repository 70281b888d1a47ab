package analyzer

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zheng/cruiser/internal/graph"
)

func newScript(t *testing.T) *ScriptExtractor {
	t.Helper()
	x, err := NewScriptExtractor()
	require.NoError(t, err)
	t.Cleanup(x.Close)
	return x
}

func TestScriptExtractor_ImportForms(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"src/index.js": `
import { a } from './a';
import b from "./lib";
export * from './a';
const fs = require('fs');
const path = require("node:path");
const lazy = () => import('./lazy.mjs');
const notRequire = load('./ignored');
import left from 'left-pad/sub';
import x from '@scope/pkg';
import ghost from './ghost';
import missing from 'missing-pkg';
`,
		"src/a.js":                         "export const a = 1;\n",
		"src/lib/index.ts":                 "export default 1;\n",
		"src/lazy.mjs":                     "export default 1;\n",
		"node_modules/left-pad/index.js":   "",
		"node_modules/@scope/pkg/index.js": "",
	})

	edges, err := newScript(t).Extract(filepath.Join(root, "src", "index.js"))
	require.NoError(t, err)

	var modules []string
	for _, e := range edges {
		modules = append(modules, e.Module)
	}
	assert.Equal(t, []string{"./a", "./lib", "fs", "node:path", "./lazy.mjs", "left-pad/sub", "@scope/pkg", "./ghost", "missing-pkg"}, modules)

	a := edgeFor(t, edges, "./a")
	assert.True(t, a.Followable)
	assert.Equal(t, slash(root, "src", "a.js"), a.Resolved)
	assert.Equal(t, []string{graph.DependencyTypeLocal, graph.DependencyTypeImport, graph.DependencyTypeExport}, a.DependencyTypes)

	assert.Equal(t, slash(root, "src", "lib", "index.ts"), edgeFor(t, edges, "./lib").Resolved)

	fs := edgeFor(t, edges, "fs")
	assert.True(t, fs.CoreModule)
	assert.Equal(t, []string{graph.DependencyTypeCore, graph.DependencyTypeRequire}, fs.DependencyTypes)
	assert.Equal(t, "path", edgeFor(t, edges, "node:path").Resolved)

	lazy := edgeFor(t, edges, "./lazy.mjs")
	assert.True(t, lazy.Followable)
	assert.True(t, lazy.HasType(graph.DependencyTypeDynamicImport))

	left := edgeFor(t, edges, "left-pad/sub")
	assert.False(t, left.Followable)
	assert.False(t, left.CouldNotResolve)
	assert.Equal(t, slash(root, "node_modules", "left-pad"), left.Resolved)
	assert.True(t, left.HasType(graph.DependencyTypeNPM))
	assert.Equal(t, slash(root, "node_modules", "@scope", "pkg"), edgeFor(t, edges, "@scope/pkg").Resolved)

	ghost := edgeFor(t, edges, "./ghost")
	assert.True(t, ghost.CouldNotResolve)
	assert.Equal(t, slash(root, "src", "ghost"), ghost.Resolved)

	assert.True(t, edgeFor(t, edges, "missing-pkg").CouldNotResolve)
}

func TestScriptExtractor_TypeScript(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"app.tsx":    "import type { Props } from './types.js';\nexport { Button } from './button';\nexport const App = () => <div />;\n",
		"types.ts":   "export type Props = {};\n",
		"button.tsx": "export const Button = () => null;\n",
	})

	edges, err := newScript(t).Extract(filepath.Join(root, "app.tsx"))
	require.NoError(t, err)
	require.Len(t, edges, 2)

	assert.Equal(t, slash(root, "types.ts"), edges[0].Resolved)
	assert.True(t, edges[0].Followable)
	assert.Equal(t, slash(root, "button.tsx"), edges[1].Resolved)
	assert.True(t, edges[1].HasType(graph.DependencyTypeExport))
}

func TestExtractor_Dispatch(t *testing.T) {
	root := goModuleFixture(t)
	writeTree(t, root, map[string]string{
		"web/a.js":  "import './b';\n",
		"web/b.js":  "",
		"notes.txt": "import './b';\n",
	})

	x, err := New()
	require.NoError(t, err)
	defer x.Close()

	edges, err := x.Extract(filepath.Join(root, "web", "a.js"))
	require.NoError(t, err)
	require.Len(t, edges, 1)
	assert.Equal(t, slash(root, "web", "b.js"), edges[0].Resolved)

	edges, err = x.Extract(filepath.Join(root, "internal", "store"))
	require.NoError(t, err)
	assert.Len(t, edges, 2)

	edges, err = x.Extract(filepath.Join(root, "notes.txt"))
	require.NoError(t, err)
	assert.Empty(t, edges)

	_, err = x.Extract(filepath.Join(root, "nope.js"))
	assert.Error(t, err)
}

func TestPackageName(t *testing.T) {
	assert.Equal(t, "lodash", packageName("lodash/fp"))
	assert.Equal(t, "@scope/pkg", packageName("@scope/pkg/deep/file"))
	assert.Equal(t, "react", packageName("react"))
}
