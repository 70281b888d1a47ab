package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func circularFlags(nodes []Node) map[string]bool {
	out := make(map[string]bool)
	for _, n := range nodes {
		for _, e := range n.Dependencies {
			if e.Circular == nil {
				continue
			}
			out[n.Source+"->"+e.Resolved] = *e.Circular
		}
	}
	return out
}

func TestAnnotateCircular_TwoNodeCycle(t *testing.T) {
	nodes := []Node{
		{Source: "a.js", Dependencies: []Edge{follow("b.js")}},
		{Source: "b.js", Dependencies: []Edge{follow("a.js")}},
	}

	got := AnnotateCircular(nodes, nil)
	assert.Equal(t, map[string]bool{
		"a.js->b.js": true,
		"b.js->a.js": true,
	}, circularFlags(got))

	// input untouched
	assert.Nil(t, nodes[0].Dependencies[0].Circular)
}

func TestAnnotateCircular_AcyclicChain(t *testing.T) {
	nodes := Dedupe(Complete([]Node{
		{Source: "a", Dependencies: []Edge{follow("b")}},
		{Source: "b", Dependencies: []Edge{follow("c")}},
		{Source: "c", Dependencies: []Edge{core("fs")}},
	}))

	got := AnnotateCircular(nodes, nil)
	assert.Equal(t, map[string]bool{
		"a->b":  false,
		"b->c":  false,
		"c->fs": false,
	}, circularFlags(got))
}

func TestAnnotateCircular_SelfLoop(t *testing.T) {
	nodes := []Node{
		{Source: "a", Dependencies: []Edge{follow("a"), follow("b")}},
		{Source: "b", Dependencies: []Edge{}},
	}

	got := AnnotateCircular(nodes, nil)
	assert.Equal(t, map[string]bool{"a->a": true, "a->b": false}, circularFlags(got))
}

func TestAnnotateCircular_TerminalTargetsSkipReachability(t *testing.T) {
	nodes := Complete([]Node{
		{Source: "a", Dependencies: []Edge{core("fs"), follow("b")}},
		{Source: "b", Dependencies: []Edge{follow("a")}},
	})

	var asked []string
	reach := func(ns []Node, start, target string) bool {
		asked = append(asked, start+"->"+target)
		return Reachable(ns, start, target)
	}

	got := AnnotateCircular(nodes, reach)
	assert.ElementsMatch(t, []string{"b->a", "a->b"}, asked)
	assert.Equal(t, map[string]bool{
		"a->fs": false,
		"a->b":  true,
		"b->a":  true,
	}, circularFlags(got))
}

func TestAnnotateCircular_CustomReachabilityIsAuthoritative(t *testing.T) {
	nodes := []Node{
		{Source: "a", Dependencies: []Edge{follow("b")}},
		{Source: "b", Dependencies: []Edge{follow("c")}},
	}

	got := AnnotateCircular(nodes, func([]Node, string, string) bool { return true })
	assert.Equal(t, map[string]bool{"a->b": true, "b->c": false}, circularFlags(got))
}

func TestReachable(t *testing.T) {
	nodes := []Node{
		{Source: "a", Dependencies: []Edge{follow("b")}},
		{Source: "b", Dependencies: []Edge{follow("c"), core("fs")}},
		{Source: "c", Dependencies: []Edge{follow("b")}},
	}

	tests := []struct {
		start, target string
		want          bool
	}{
		{"a", "c", true},
		{"b", "b", true},
		{"c", "a", false},
		{"a", "a", false},
		{"b", "fs", true},
		{"fs", "b", false},
		{"missing", "a", false},
	}
	for _, tt := range tests {
		t.Run(tt.start+"->"+tt.target, func(t *testing.T) {
			assert.Equal(t, tt.want, Reachable(nodes, tt.start, tt.target))
		})
	}
}

func TestAnnotateCircular_MemoizedMatchesReachable(t *testing.T) {
	fx := newFakeExtractor(map[string][]Edge{
		"a": {follow("b"), follow("c")},
		"b": {follow("d")},
		"c": {follow("d"), core("os")},
		"d": {follow("b"), follow("e")},
		"e": {unresolved("./nope")},
	})
	built, err := Build([]string{"a"}, fx.Extract)
	require.NoError(t, err)
	nodes := Dedupe(Complete(built))

	assert.Equal(t,
		circularFlags(AnnotateCircular(nodes, Reachable)),
		circularFlags(AnnotateCircular(nodes, nil)),
	)
	flags := circularFlags(AnnotateCircular(nodes, nil))
	assert.True(t, flags["b->d"])
	assert.True(t, flags["d->b"])
	assert.False(t, flags["c->d"])
	assert.False(t, flags["a->b"])
}
