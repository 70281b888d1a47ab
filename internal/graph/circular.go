package graph

// Reachability reports whether target can be reached from start by
// following at least one edge of the graph.
type Reachability func(nodes []Node, start, target string) bool

// Reachable is the default Reachability: a breadth-first search over all
// edges, followable or not.
func Reachable(nodes []Node, start, target string) bool {
	return newIndex(nodes).reaches(start, target)
}

// index maps sources to their outgoing targets and memoizes the set of
// modules reachable from each start.
type index struct {
	adjacency map[string][]string
	reach     map[string]map[string]struct{}
}

func newIndex(nodes []Node) *index {
	idx := &index{
		adjacency: make(map[string][]string, len(nodes)),
		reach:     make(map[string]map[string]struct{}),
	}
	for _, n := range nodes {
		if _, ok := idx.adjacency[n.Source]; ok {
			continue
		}
		targets := make([]string, 0, len(n.Dependencies))
		for _, e := range n.Dependencies {
			targets = append(targets, e.Resolved)
		}
		idx.adjacency[n.Source] = targets
	}
	return idx
}

// hasOutgoing reports whether source is a node with at least one edge.
func (idx *index) hasOutgoing(source string) bool {
	return len(idx.adjacency[source]) > 0
}

func (idx *index) reaches(start, target string) bool {
	_, ok := idx.descendants(start)[target]
	return ok
}

// descendants returns every module reachable from start in one or more steps.
func (idx *index) descendants(start string) map[string]struct{} {
	if set, ok := idx.reach[start]; ok {
		return set
	}

	set := make(map[string]struct{})
	queue := append([]string(nil), idx.adjacency[start]...)
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if _, seen := set[cur]; seen {
			continue
		}
		set[cur] = struct{}{}
		queue = append(queue, idx.adjacency[cur]...)
	}

	idx.reach[start] = set
	return set
}

// AnnotateCircular returns a copy of nodes in which every edge carries a
// circular flag: true when the edge target reaches back to the owning node.
// Edges whose target has no outgoing dependencies cannot close a cycle and
// are marked false without consulting reach. A nil reach uses a memoized
// index equivalent to Reachable.
func AnnotateCircular(nodes []Node, reach Reachability) []Node {
	idx := newIndex(nodes)
	if reach == nil {
		reach = func(_ []Node, start, target string) bool {
			return idx.reaches(start, target)
		}
	}

	out := make([]Node, len(nodes))
	for i, n := range nodes {
		deps := make([]Edge, len(n.Dependencies))
		for j, e := range n.Dependencies {
			circular := false
			if idx.hasOutgoing(e.Resolved) {
				circular = reach(nodes, e.Resolved, n.Source)
			}
			deps[j] = e.WithCircular(circular)
		}
		out[i] = n.WithDependencies(deps)
	}
	return out
}
