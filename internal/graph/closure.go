package graph

// Complete appends a terminal node for every non-followable edge target
// that is not yet present as a source in the accumulated result. When
// several nodes reference the same target, the first one wins.
func Complete(nodes []Node) []Node {
	out := make([]Node, 0, len(nodes))
	present := make(map[string]struct{}, len(nodes))

	for _, n := range nodes {
		out = append(out, n)
		present[n.Source] = struct{}{}

		for _, e := range n.Dependencies {
			if e.Followable {
				continue
			}
			if _, ok := present[e.Resolved]; ok {
				continue
			}
			out = append(out, terminalFor(e))
			present[e.Resolved] = struct{}{}
		}
	}
	return out
}

// Dedupe keeps the first node for every source and drops later ones,
// preserving the order of first appearance.
func Dedupe(nodes []Node) []Node {
	out := make([]Node, 0, len(nodes))
	seen := make(map[string]struct{}, len(nodes))

	for _, n := range nodes {
		if _, ok := seen[n.Source]; ok {
			continue
		}
		seen[n.Source] = struct{}{}
		out = append(out, n)
	}
	return out
}
