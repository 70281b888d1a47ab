package graph

import (
	"fmt"

	"golang.org/x/sync/errgroup"
)

// ExtractFunc returns the outgoing edges of one path.
type ExtractFunc func(path string) ([]Edge, error)

// frame is one level of the explicit traversal stack.
type frame struct {
	edges []Edge
	next  int
}

// walker owns the visited set for a single traversal.
type walker struct {
	extract ExtractFunc
	visited map[string]struct{}
	nodes   []Node
}

func newWalker(extract ExtractFunc) *walker {
	return &walker{
		extract: extract,
		visited: make(map[string]struct{}),
	}
}

// enter claims path, extracts its edges and emits its node. The path is
// marked visited before extraction so that an edge pointing back at it,
// including a self reference, never re-enters it.
func (w *walker) enter(path string) (*frame, error) {
	w.visited[path] = struct{}{}

	edges, err := w.extract(path)
	if err != nil {
		return nil, fmt.Errorf("%w %s: %w", ErrExtract, path, err)
	}
	if edges == nil {
		edges = []Edge{}
	}

	w.nodes = append(w.nodes, Node{Source: path, Dependencies: edges})
	return &frame{edges: edges}, nil
}

// expand runs a depth-first pre-order walk from root.
func (w *walker) expand(root string) error {
	top, err := w.enter(root)
	if err != nil {
		return err
	}
	stack := []*frame{top}

	for len(stack) > 0 {
		f := stack[len(stack)-1]

		var (
			target string
			found  bool
		)
		for f.next < len(f.edges) {
			e := f.edges[f.next]
			f.next++
			if !e.Followable {
				continue
			}
			if _, seen := w.visited[e.Resolved]; seen {
				continue
			}
			target, found = e.Resolved, true
			break
		}

		if !found {
			stack = stack[:len(stack)-1]
			continue
		}

		child, err := w.enter(target)
		if err != nil {
			return err
		}
		stack = append(stack, child)
	}
	return nil
}

// Build produces the nodes reachable from seeds by following followable
// edges. Every distinct path is extracted at most once; nodes reachable from
// several seeds are attributed to the first seed that reaches them.
func Build(seeds []string, extract ExtractFunc) ([]Node, error) {
	w := newWalker(extract)
	for _, seed := range seeds {
		if _, seen := w.visited[seed]; seen {
			continue
		}
		if err := w.expand(seed); err != nil {
			return nil, err
		}
	}
	if w.nodes == nil {
		return []Node{}, nil
	}
	return w.nodes, nil
}

// BuildConcurrent behaves like Build but runs extraction for each frontier
// of newly discovered paths on up to workers goroutines. Paths are claimed
// by the coordinator before they are dispatched, so each one is extracted
// exactly once. The node order matches Build.
func BuildConcurrent(seeds []string, extract ExtractFunc, workers int) ([]Node, error) {
	if workers <= 1 {
		return Build(seeds, extract)
	}

	claimed := make(map[string]struct{})
	cache := make(map[string][]Edge)

	var frontier []string
	for _, seed := range seeds {
		if _, ok := claimed[seed]; ok {
			continue
		}
		claimed[seed] = struct{}{}
		frontier = append(frontier, seed)
	}

	for len(frontier) > 0 {
		results := make([][]Edge, len(frontier))

		var g errgroup.Group
		g.SetLimit(workers)
		for i, path := range frontier {
			g.Go(func() error {
				edges, err := extract(path)
				if err != nil {
					return fmt.Errorf("%w %s: %w", ErrExtract, path, err)
				}
				results[i] = edges
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}

		var next []string
		for i, path := range frontier {
			cache[path] = results[i]
			for _, e := range results[i] {
				if !e.Followable {
					continue
				}
				if _, ok := claimed[e.Resolved]; ok {
					continue
				}
				claimed[e.Resolved] = struct{}{}
				next = append(next, e.Resolved)
			}
		}
		frontier = next
	}

	return Build(seeds, func(path string) ([]Edge, error) {
		return cache[path], nil
	})
}
