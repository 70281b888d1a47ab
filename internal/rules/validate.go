package rules

import (
	"errors"
	"fmt"

	"github.com/zheng/cruiser/internal/graph"
)

// ErrUnprepared is returned (wrapped) when a rule set with path patterns is
// evaluated before Prepare compiled them.
var ErrUnprepared = errors.New("rule set not prepared")

// Validator evaluates a RuleSet against every dependency of a graph.
type Validator struct{}

// NewValidator creates a new Validator
func NewValidator() *Validator {
	return &Validator{}
}

// Validate returns a copy of nodes where each dependency records whether
// it is valid and which rules it violates. With enabled false or a nil rule
// set the nodes are returned unchanged.
func (v *Validator) Validate(nodes []graph.Node, enabled bool, rs *RuleSet) ([]graph.Node, error) {
	if !enabled || rs == nil {
		return nodes, nil
	}
	if err := rs.checkPrepared(); err != nil {
		return nil, err
	}

	out := make([]graph.Node, len(nodes))
	for i, n := range nodes {
		deps := make([]graph.Edge, len(n.Dependencies))
		for j, e := range n.Dependencies {
			deps[j] = e.WithValidation(rs.Violations(n.Source, e))
		}
		out[i] = n.WithDependencies(deps)
	}
	return out, nil
}

// Violations lists the rules the dependency from -> e breaks, forbidden
// rules first in declaration order.
func (rs *RuleSet) Violations(from string, e graph.Edge) []graph.RuleRef {
	var out []graph.RuleRef
	for _, r := range rs.Forbidden {
		if r.matches(from, e) {
			out = append(out, graph.RuleRef{Name: r.Name, Severity: string(r.Severity)})
		}
	}

	if len(rs.Allowed) > 0 {
		allowed := false
		for _, r := range rs.Allowed {
			if r.matches(from, e) {
				allowed = true
				break
			}
		}
		if !allowed {
			out = append(out, graph.RuleRef{Name: NotInAllowedRule, Severity: string(rs.AllowedSeverity)})
		}
	}
	return out
}

func (rs *RuleSet) checkPrepared() error {
	for _, list := range [][]Rule{rs.Forbidden, rs.Allowed} {
		for _, r := range list {
			if !r.From.compiled() || !r.To.compiled() {
				return fmt.Errorf("%w: rule %q", ErrUnprepared, r.Name)
			}
		}
	}
	return nil
}

func (c FromCondition) compiled() bool {
	return (c.Path == "" || c.path != nil) && (c.PathNot == "" || c.pathNot != nil)
}

func (c ToCondition) compiled() bool {
	return (c.Path == "" || c.path != nil) && (c.PathNot == "" || c.pathNot != nil)
}

func (r Rule) matches(from string, e graph.Edge) bool {
	return r.From.matches(from) && r.To.matches(e)
}

func (c FromCondition) matches(source string) bool {
	if c.path != nil && !c.path.MatchString(source) {
		return false
	}
	if c.pathNot != nil && c.pathNot.MatchString(source) {
		return false
	}
	return true
}

func (c ToCondition) matches(e graph.Edge) bool {
	if c.path != nil && !c.path.MatchString(e.Resolved) {
		return false
	}
	if c.pathNot != nil && c.pathNot.MatchString(e.Resolved) {
		return false
	}
	if c.Circular != nil {
		// unannotated edges never satisfy a circularity condition
		if e.Circular == nil || *e.Circular != *c.Circular {
			return false
		}
	}
	if c.CoreModule != nil && e.CoreModule != *c.CoreModule {
		return false
	}
	if c.CouldNotResolve != nil && e.CouldNotResolve != *c.CouldNotResolve {
		return false
	}
	if len(c.DependencyTypes) > 0 && !hasAnyType(e, c.DependencyTypes) {
		return false
	}
	return true
}

func hasAnyType(e graph.Edge, types []string) bool {
	for _, t := range types {
		if e.HasType(t) {
			return true
		}
	}
	return false
}
