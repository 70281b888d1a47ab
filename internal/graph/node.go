package graph

// Classification describes why an edge target is, or is not, expanded
// during traversal. It is carried by every Edge and copied onto terminal
// nodes created during closure.
type Classification struct {
	Followable      bool     `json:"followable"`
	CoreModule      bool     `json:"coreModule"`
	CouldNotResolve bool     `json:"couldNotResolve"`
	DependencyTypes []string `json:"dependencyTypes,omitempty"`
}

// Node represents one module (source file, package directory, or
// unresolved/core target) in the dependency graph
type Node struct {
	Source string `json:"source"`

	// Set only on terminal nodes materialized from a non-followable edge.
	*Classification

	Dependencies []Edge `json:"dependencies"`
}

// IsTerminal reports whether the node was materialized from a
// non-followable edge rather than extracted from a source file.
func (n Node) IsTerminal() bool {
	return n.Classification != nil
}

// WithDependencies returns a copy of the node carrying deps.
func (n Node) WithDependencies(deps []Edge) Node {
	n.Dependencies = deps
	return n
}

// terminalFor builds the closure node for a non-followable edge.
func terminalFor(e Edge) Node {
	c := e.Classification
	return Node{
		Source:         e.Resolved,
		Classification: &c,
		Dependencies:   []Edge{},
	}
}
