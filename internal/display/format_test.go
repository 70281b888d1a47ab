package display

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/zheng/cruiser/internal/graph"
	"github.com/zheng/cruiser/internal/storage"
)

func TestShortPath(t *testing.T) {
	assert.Equal(t, "store/db.go", ShortPath("src/internal/store/db.go"))
	assert.Equal(t, "a/b.js", ShortPath("a/b.js"))
	assert.Equal(t, "fs", ShortPath("fs"))
}

func TestTag(t *testing.T) {
	assert.Equal(t, "core", Tag(&storage.Module{Terminal: true, CoreModule: true}))
	assert.Equal(t, "unresolved", Tag(&storage.Module{Terminal: true, CouldNotResolve: true}))
	assert.Equal(t, "npm,import", Tag(&storage.Module{Terminal: true, DependencyTypes: []string{"npm", "import"}}))
	assert.Equal(t, "", Tag(&storage.Module{Source: "a.js"}))
}

func TestFormatTree(t *testing.T) {
	tree := []*storage.TreeNode{
		{
			Module: &storage.Module{Source: "b.js"},
			Children: []*storage.TreeNode{
				{Module: &storage.Module{Source: "a.js"}, Cycle: true},
				{Module: &storage.Module{Source: "fs", Terminal: true, CoreModule: true}},
			},
		},
		{Module: &storage.Module{Source: "c.js"}},
	}

	maxWidth, maxDepth := 0, 0
	CalcTreeMaxWidth(tree, &maxWidth, 0, &maxDepth)
	assert.Equal(t, 4, maxWidth)
	assert.Equal(t, 1, maxDepth)

	want := "├── b.js\n" +
		"│   ├── a.js  ↻ circular\n" +
		"│   └── fs    core\n" +
		"└── c.js\n"
	assert.Equal(t, want, FormatTree(tree, "", maxWidth, maxDepth, 0))
}

func TestFormatDependencies(t *testing.T) {
	yes := true
	deps := []*storage.Dependency{
		{From: "a.js", To: "b.js", DependencyTypes: []string{"local"}, Circular: &yes},
		{From: "src/c.js", To: "fs"},
	}
	want := "a.js     → b.js  (local)  ↻\n" +
		"src/c.js → fs\n"
	assert.Equal(t, want, FormatDependencies(deps))
}

func TestFormatViolations(t *testing.T) {
	deps := []*storage.Dependency{
		{From: "a.js", To: "b.js", Rules: []graph.RuleRef{{Name: "no-circular", Severity: "error"}}},
	}
	assert.Equal(t, "  error no-circular: a.js → b.js\n", FormatViolations(deps))
}
