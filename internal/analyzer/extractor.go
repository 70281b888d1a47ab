// Package analyzer extracts the outgoing dependencies of Go and
// JavaScript/TypeScript sources.
package analyzer

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/zheng/cruiser/internal/graph"
)

// Extractor dispatches a path to the extractor for its language.
// Directories are treated as Go packages.
type Extractor struct {
	golang *GoExtractor
	script *ScriptExtractor
}

// New creates an Extractor for every supported language.
func New() (*Extractor, error) {
	script, err := NewScriptExtractor()
	if err != nil {
		return nil, err
	}
	return &Extractor{
		golang: NewGoExtractor(),
		script: script,
	}, nil
}

// Close releases the compiled tree-sitter queries.
func (x *Extractor) Close() {
	x.script.Close()
}

// Extract returns the dependencies of path. Files in a language the
// extractor does not know yield no dependencies.
func (x *Extractor) Extract(path string) ([]graph.Edge, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}
	if info.IsDir() {
		return x.golang.Extract(path)
	}

	ext := filepath.Ext(path)
	switch {
	case ext == ".go":
		return x.golang.Extract(path)
	case x.script.Supports(ext):
		return x.script.Extract(path)
	default:
		return []graph.Edge{}, nil
	}
}

// edgeSet collects edges keyed by specifier, merging dependency types of
// repeated specifiers into the first edge.
type edgeSet struct {
	edges []graph.Edge
	index map[string]int
}

func newEdgeSet() *edgeSet {
	return &edgeSet{edges: []graph.Edge{}, index: make(map[string]int)}
}

func (s *edgeSet) add(specifier string, e graph.Edge) {
	i, ok := s.index[specifier]
	if !ok {
		s.index[specifier] = len(s.edges)
		s.edges = append(s.edges, e)
		return
	}
	for _, t := range e.DependencyTypes {
		if !s.edges[i].HasType(t) {
			s.edges[i].DependencyTypes = append(s.edges[i].DependencyTypes, t)
		}
	}
}
