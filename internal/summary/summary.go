// Package summary computes aggregate statistics over a validated graph.
package summary

import (
	"github.com/zheng/cruiser/internal/graph"
)

// Violation is one rule broken by one dependency.
type Violation struct {
	From string        `json:"from"`
	To   string        `json:"to"`
	Rule graph.RuleRef `json:"rule"`
}

// Stats summarizes a cruise.
type Stats struct {
	Violations               []Violation `json:"violations"`
	Error                    int         `json:"error"`
	Warn                     int         `json:"warn"`
	Info                     int         `json:"info"`
	TotalCruised             int         `json:"totalCruised"`
	TotalDependenciesCruised int         `json:"totalDependenciesCruised"`
}

// HasErrors reports whether any error-severity violation was found.
func (s Stats) HasErrors() bool {
	return s.Error > 0
}

// Summarizer computes Stats.
type Summarizer struct{}

// NewSummarizer creates a new Summarizer
func NewSummarizer() *Summarizer {
	return &Summarizer{}
}

// Summarize counts modules, dependencies and violations per severity.
func (s *Summarizer) Summarize(nodes []graph.Node) (Stats, error) {
	stats := Stats{
		Violations:   []Violation{},
		TotalCruised: len(nodes),
	}

	for _, n := range nodes {
		stats.TotalDependenciesCruised += len(n.Dependencies)
		for _, e := range n.Dependencies {
			for _, r := range e.Rules {
				stats.Violations = append(stats.Violations, Violation{
					From: n.Source,
					To:   e.Resolved,
					Rule: r,
				})
				switch r.Severity {
				case "error":
					stats.Error++
				case "warn":
					stats.Warn++
				case "info":
					stats.Info++
				}
			}
		}
	}
	return stats, nil
}
