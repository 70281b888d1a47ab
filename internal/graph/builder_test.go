package graph

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func follow(to string) Edge {
	return Edge{Resolved: to, Module: to, Classification: Classification{Followable: true}}
}

func core(to string) Edge {
	return Edge{
		Resolved: to,
		Module:   to,
		Classification: Classification{
			CoreModule:      true,
			DependencyTypes: []string{DependencyTypeCore},
		},
	}
}

func unresolved(to string) Edge {
	return Edge{
		Resolved:       to,
		Module:         to,
		Classification: Classification{CouldNotResolve: true},
	}
}

// fakeExtractor serves edges from a map and counts calls per path.
type fakeExtractor struct {
	mu    sync.Mutex
	edges map[string][]Edge
	calls map[string]int
	fail  map[string]error
}

func newFakeExtractor(edges map[string][]Edge) *fakeExtractor {
	return &fakeExtractor{
		edges: edges,
		calls: make(map[string]int),
		fail:  make(map[string]error),
	}
}

func (f *fakeExtractor) Extract(path string) ([]Edge, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[path]++
	if err := f.fail[path]; err != nil {
		return nil, err
	}
	return f.edges[path], nil
}

func sources(nodes []Node) []string {
	out := make([]string, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, n.Source)
	}
	return out
}

func TestBuild_TwoNodeCycle(t *testing.T) {
	fx := newFakeExtractor(map[string][]Edge{
		"a.js": {follow("b.js")},
		"b.js": {follow("a.js")},
	})

	nodes, err := Build([]string{"a.js"}, fx.Extract)
	require.NoError(t, err)

	assert.Equal(t, []string{"a.js", "b.js"}, sources(nodes))
	assert.Equal(t, "b.js", nodes[0].Dependencies[0].Resolved)
	assert.Equal(t, "a.js", nodes[1].Dependencies[0].Resolved)
	assert.Equal(t, map[string]int{"a.js": 1, "b.js": 1}, fx.calls)
}

func TestBuild_LongCycleVisitsEachOnce(t *testing.T) {
	fx := newFakeExtractor(map[string][]Edge{
		"a": {follow("b")},
		"b": {follow("c")},
		"c": {follow("d")},
		"d": {follow("a"), follow("b")},
	})

	nodes, err := Build([]string{"a", "c"}, fx.Extract)
	require.NoError(t, err)

	assert.Equal(t, []string{"a", "b", "c", "d"}, sources(nodes))
	for path, n := range fx.calls {
		assert.Equal(t, 1, n, "extracted %s more than once", path)
	}
}

func TestBuild_PreOrder(t *testing.T) {
	// a -> b -> d
	// a -> c -> d
	fx := newFakeExtractor(map[string][]Edge{
		"a": {follow("b"), follow("c")},
		"b": {follow("d")},
		"c": {follow("d")},
	})

	nodes, err := Build([]string{"a"}, fx.Extract)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "d", "c"}, sources(nodes))
}

func TestBuild_SelfReference(t *testing.T) {
	fx := newFakeExtractor(map[string][]Edge{
		"a": {follow("a")},
	})

	nodes, err := Build([]string{"a"}, fx.Extract)
	require.NoError(t, err)
	require.Len(t, nodes, 1)
	assert.Equal(t, 1, fx.calls["a"])
}

func TestBuild_SeedWithoutEdges(t *testing.T) {
	fx := newFakeExtractor(map[string][]Edge{})

	nodes, err := Build([]string{"lonely.go"}, fx.Extract)
	require.NoError(t, err)
	require.Len(t, nodes, 1)
	assert.Equal(t, "lonely.go", nodes[0].Source)
	assert.NotNil(t, nodes[0].Dependencies)
	assert.Empty(t, nodes[0].Dependencies)
}

func TestBuild_SharedSubgraphAttributedToFirstSeed(t *testing.T) {
	fx := newFakeExtractor(map[string][]Edge{
		"a": {follow("shared")},
		"b": {follow("shared")},
	})

	nodes, err := Build([]string{"a", "b", "a"}, fx.Extract)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "shared", "b"}, sources(nodes))
	assert.Equal(t, 1, fx.calls["shared"])
	assert.Equal(t, 1, fx.calls["a"])
}

func TestBuild_DoesNotFollowNonFollowable(t *testing.T) {
	fx := newFakeExtractor(map[string][]Edge{
		"a.js": {core("fs"), unresolved("./missing")},
	})

	nodes, err := Build([]string{"a.js"}, fx.Extract)
	require.NoError(t, err)
	assert.Equal(t, []string{"a.js"}, sources(nodes))
	assert.Zero(t, fx.calls["fs"])
}

func TestBuild_EmptyFollowableTarget(t *testing.T) {
	fx := newFakeExtractor(map[string][]Edge{
		"a": {follow(""), follow("b")},
	})

	nodes, err := Build([]string{"a"}, fx.Extract)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "", "b"}, sources(nodes))
}

func TestBuild_ExtractorErrorAborts(t *testing.T) {
	boom := errors.New("boom")
	fx := newFakeExtractor(map[string][]Edge{
		"a": {follow("b")},
	})
	fx.fail["b"] = boom

	nodes, err := Build([]string{"a"}, fx.Extract)
	require.Error(t, err)
	assert.Nil(t, nodes)
	assert.ErrorIs(t, err, boom)
	assert.ErrorIs(t, err, ErrExtract)
	assert.Contains(t, err.Error(), "b")
}

func TestBuild_NoSeeds(t *testing.T) {
	nodes, err := Build(nil, newFakeExtractor(nil).Extract)
	require.NoError(t, err)
	assert.NotNil(t, nodes)
	assert.Empty(t, nodes)
}

func TestBuildConcurrent_MatchesBuild(t *testing.T) {
	edges := map[string][]Edge{
		"a": {follow("b"), follow("c"), core("fs")},
		"b": {follow("d"), follow("a")},
		"c": {follow("d"), follow("e")},
		"d": {follow("c"), unresolved("x")},
		"e": {follow("e")},
		"f": {follow("a")},
	}
	seeds := []string{"a", "f", "b"}

	want, err := Build(seeds, newFakeExtractor(edges).Extract)
	require.NoError(t, err)

	for _, workers := range []int{0, 1, 2, 8} {
		fx := newFakeExtractor(edges)
		got, err := BuildConcurrent(seeds, fx.Extract, workers)
		require.NoError(t, err)
		assert.Equal(t, want, got, "workers=%d", workers)
		for path, n := range fx.calls {
			assert.Equal(t, 1, n, "workers=%d extracted %s %d times", workers, path, n)
		}
	}
}

func TestBuildConcurrent_ErrorAborts(t *testing.T) {
	boom := errors.New("boom")
	fx := newFakeExtractor(map[string][]Edge{
		"a": {follow("b"), follow("c")},
	})
	fx.fail["c"] = boom

	_, err := BuildConcurrent([]string{"a"}, fx.Extract, 4)
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
}
