package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComplete_CoreModuleTerminal(t *testing.T) {
	nodes := []Node{
		{Source: "a.js", Dependencies: []Edge{core("fs")}},
	}

	got := Complete(nodes)
	require.Len(t, got, 2)

	assert.Equal(t, "a.js", got[0].Source)
	assert.False(t, got[0].IsTerminal())

	fs := got[1]
	assert.Equal(t, "fs", fs.Source)
	require.True(t, fs.IsTerminal())
	assert.True(t, fs.CoreModule)
	assert.False(t, fs.Followable)
	assert.False(t, fs.CouldNotResolve)
	assert.Equal(t, []string{DependencyTypeCore}, fs.DependencyTypes)
	assert.NotNil(t, fs.Dependencies)
	assert.Empty(t, fs.Dependencies)
}

func TestComplete_FirstWriterWins(t *testing.T) {
	first := unresolved("./gone")
	first.DependencyTypes = []string{"first"}
	second := unresolved("./gone")
	second.DependencyTypes = []string{"second"}

	nodes := []Node{
		{Source: "a", Dependencies: []Edge{first}},
		{Source: "b", Dependencies: []Edge{second, second}},
	}

	got := Complete(nodes)
	assert.Equal(t, []string{"a", "./gone", "b"}, sources(got))
	assert.Equal(t, []string{"first"}, got[1].DependencyTypes)
}

func TestComplete_ExistingSourceNotDuplicated(t *testing.T) {
	nodes := []Node{
		{Source: "a", Dependencies: []Edge{follow("b")}},
		{Source: "b", Dependencies: []Edge{unresolved("a")}},
	}

	got := Complete(nodes)
	assert.Equal(t, []string{"a", "b"}, sources(got))
}

func TestComplete_DoesNotMutateInput(t *testing.T) {
	nodes := []Node{
		{Source: "a", Dependencies: []Edge{core("os")}},
	}
	_ = Complete(nodes)
	assert.Len(t, nodes, 1)
	assert.Nil(t, nodes[0].Classification)
}

func TestDedupe_KeepsFirst(t *testing.T) {
	nodes := []Node{
		{Source: "a", Dependencies: []Edge{follow("b")}},
		{Source: "b", Dependencies: []Edge{}},
		{Source: "a", Dependencies: []Edge{}},
		{Source: "c", Dependencies: []Edge{}},
		{Source: "b", Dependencies: []Edge{follow("c")}},
	}

	got := Dedupe(nodes)
	assert.Equal(t, []string{"a", "b", "c"}, sources(got))
	assert.Len(t, got[0].Dependencies, 1)
	assert.Empty(t, got[1].Dependencies)
}

func TestClosureInvariants(t *testing.T) {
	fx := newFakeExtractor(map[string][]Edge{
		"a": {follow("b"), core("fs"), unresolved("./x")},
		"b": {core("fs"), follow("c"), unresolved("./y")},
		"c": {follow("a"), core("path"), unresolved("./x")},
	})

	built, err := Build([]string{"a"}, fx.Extract)
	require.NoError(t, err)
	got := Dedupe(Complete(built))

	bySource := make(map[string]int)
	for _, n := range got {
		bySource[n.Source]++
	}
	for src, count := range bySource {
		assert.Equal(t, 1, count, "source %s appears %d times", src, count)
	}

	for _, n := range got {
		for _, e := range n.Dependencies {
			if e.Followable {
				continue
			}
			require.Equal(t, 1, bySource[e.Resolved], "missing terminal for %s", e.Resolved)
		}
	}

	for _, n := range got {
		if n.IsTerminal() {
			assert.Empty(t, n.Dependencies)
		}
	}
}
