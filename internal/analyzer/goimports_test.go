package analyzer

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zheng/cruiser/internal/graph"
)

func writeTree(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for name, content := range files {
		p := filepath.Join(root, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	}
}

func slash(parts ...string) string {
	return filepath.ToSlash(filepath.Join(parts...))
}

func edgeFor(t *testing.T, edges []graph.Edge, module string) graph.Edge {
	t.Helper()
	for _, e := range edges {
		if e.Module == module {
			return e
		}
	}
	t.Fatalf("no edge for %q in %+v", module, edges)
	return graph.Edge{}
}

func goModuleFixture(t *testing.T) string {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"go.mod": "module example.com/app\n\ngo 1.22\n\nrequire github.com/spf13/cobra v1.8.0\n",
		"main.go": `package main

import (
	"fmt"
	"C"
	_ "embed"
	. "strings"

	"example.com/app/internal/store"
	"example.com/app/internal/missing"
	"github.com/spf13/cobra/doc"
	"golang.org/x/sync/errgroup"
)
`,
		"internal/store/store.go":      "package store\n",
		"internal/store/sql.go":        "package store\n",
		"internal/store/store_test.go": "package store\n",
		"internal/store/README.md":     "store\n",
	})
	return root
}

func TestGoExtractor_ClassifiesImports(t *testing.T) {
	root := goModuleFixture(t)
	x := NewGoExtractor()

	edges, err := x.Extract(filepath.Join(root, "main.go"))
	require.NoError(t, err)
	require.Len(t, edges, 8)

	fmtEdge := edgeFor(t, edges, "fmt")
	assert.True(t, fmtEdge.CoreModule)
	assert.False(t, fmtEdge.Followable)
	assert.Equal(t, "fmt", fmtEdge.Resolved)

	assert.True(t, edgeFor(t, edges, "C").CoreModule)
	assert.Equal(t, []string{graph.DependencyTypeCore, graph.DependencyTypeBlank}, edgeFor(t, edges, "embed").DependencyTypes)
	assert.Equal(t, []string{graph.DependencyTypeCore, graph.DependencyTypeDot}, edgeFor(t, edges, "strings").DependencyTypes)

	store := edgeFor(t, edges, "example.com/app/internal/store")
	assert.True(t, store.Followable)
	assert.Equal(t, slash(root, "internal", "store"), store.Resolved)
	assert.Equal(t, []string{graph.DependencyTypeLocal}, store.DependencyTypes)

	missing := edgeFor(t, edges, "example.com/app/internal/missing")
	assert.True(t, missing.CouldNotResolve)
	assert.False(t, missing.Followable)

	cobraDoc := edgeFor(t, edges, "github.com/spf13/cobra/doc")
	assert.False(t, cobraDoc.Followable)
	assert.False(t, cobraDoc.CouldNotResolve)
	assert.Equal(t, []string{graph.DependencyTypeModule}, cobraDoc.DependencyTypes)

	unknown := edgeFor(t, edges, "golang.org/x/sync/errgroup")
	assert.True(t, unknown.CouldNotResolve)
	assert.Equal(t, []string{graph.DependencyTypeUnknown}, unknown.DependencyTypes)
}

func TestGoExtractor_DotlessModulePath(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"go.mod": "module codemap\n\ngo 1.22\n",
		"main.go": `package main

import (
	"os"

	_ "codemap/internal/db"
	"codemap/internal/gone"
)
`,
		"internal/db/db.go": "package db\n",
	})

	edges, err := NewGoExtractor().Extract(filepath.Join(root, "main.go"))
	require.NoError(t, err)
	require.Len(t, edges, 3)

	db := edgeFor(t, edges, "codemap/internal/db")
	assert.True(t, db.Followable)
	assert.False(t, db.CoreModule)
	assert.Equal(t, slash(root, "internal", "db"), db.Resolved)
	assert.Equal(t, []string{graph.DependencyTypeLocal, graph.DependencyTypeBlank}, db.DependencyTypes)

	gone := edgeFor(t, edges, "codemap/internal/gone")
	assert.True(t, gone.CouldNotResolve)
	assert.False(t, gone.CoreModule)

	assert.True(t, edgeFor(t, edges, "os").CoreModule)
}

func TestGoExtractor_PackageDirectory(t *testing.T) {
	root := goModuleFixture(t)
	x := NewGoExtractor()

	edges, err := x.Extract(filepath.Join(root, "internal", "store"))
	require.NoError(t, err)

	var resolved []string
	for _, e := range edges {
		assert.True(t, e.Followable)
		assert.Equal(t, []string{graph.DependencyTypePackage}, e.DependencyTypes)
		resolved = append(resolved, e.Resolved)
	}
	assert.Equal(t, []string{
		slash(root, "internal", "store", "sql.go"),
		slash(root, "internal", "store", "store.go"),
	}, resolved)
}

func TestGoExtractor_NoModule(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"loose.go": "package loose\n\nimport \"example.com/other/pkg\"\n",
	})

	edges, err := NewGoExtractor().Extract(filepath.Join(root, "loose.go"))
	require.NoError(t, err)
	require.Len(t, edges, 1)
	assert.True(t, edges[0].CouldNotResolve)
}

func TestGoExtractor_ParseError(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{"bad.go": "this is not go"})

	_, err := NewGoExtractor().Extract(filepath.Join(root, "bad.go"))
	assert.Error(t, err)
}

func TestRootFor(t *testing.T) {
	assert.Equal(t, filepath.Clean("internal/graph"), rootFor("internal/graph", 0))
	assert.Equal(t, ".", rootFor("internal/graph", 2))
	assert.Equal(t, "..", rootFor(".", 1))
}
