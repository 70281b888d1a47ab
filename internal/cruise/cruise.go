// Package cruise assembles the dependency graph for a set of seed paths:
// it gathers sources, builds and closes the graph, annotates circularity
// when needed, validates it against a rule set and summarizes the outcome.
//
// Source gathering, edge extraction, rule validation and summarization are
// collaborators injected into a Cruiser; the graph algorithms live in the
// graph package.
package cruise

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/zheng/cruiser/internal/graph"
	"github.com/zheng/cruiser/internal/rules"
	"github.com/zheng/cruiser/internal/summary"
)

// Gatherer expands seed files/directories into source paths.
type Gatherer interface {
	Gather(seeds []string) ([]string, error)
}

// Extractor returns the outgoing dependencies of one path.
type Extractor interface {
	Extract(path string) ([]graph.Edge, error)
}

// Validator attaches rule violations to a graph.
type Validator interface {
	Validate(nodes []graph.Node, enabled bool, rs *rules.RuleSet) ([]graph.Node, error)
}

// Summarizer computes aggregate statistics over a graph.
type Summarizer interface {
	Summarize(nodes []graph.Node) (summary.Stats, error)
}

// GathererFunc adapts a function to Gatherer.
type GathererFunc func(seeds []string) ([]string, error)

func (f GathererFunc) Gather(seeds []string) ([]string, error) { return f(seeds) }

// ExtractorFunc adapts a function to Extractor.
type ExtractorFunc func(path string) ([]graph.Edge, error)

func (f ExtractorFunc) Extract(path string) ([]graph.Edge, error) { return f(path) }

// Summary is the summarizer's statistics plus the options that produced them.
type Summary struct {
	summary.Stats
	OptionsUsed Presentable `json:"optionsUsed"`
}

// Result is the outcome of a cruise
type Result struct {
	Dependencies []graph.Node `json:"dependencies"`
	Summary      Summary      `json:"summary"`
}

// Continuation receives the assembled result. A nil continuation returns
// the result unchanged.
type Continuation func(*Result) (*Result, error)

// Cruiser runs the pipeline against its collaborators.
type Cruiser struct {
	gatherer   Gatherer
	extractor  Extractor
	validator  Validator
	summarizer Summarizer
	reach      graph.Reachability
	logger     *slog.Logger
}

// Option configures a Cruiser
type Option func(*Cruiser)

// WithValidator replaces the rule validator.
func WithValidator(v Validator) Option {
	return func(c *Cruiser) {
		c.validator = v
	}
}

// WithSummarizer replaces the summarizer.
func WithSummarizer(s Summarizer) Option {
	return func(c *Cruiser) {
		c.summarizer = s
	}
}

// WithReachability replaces the memoized reachability index used for
// circularity annotation.
func WithReachability(r graph.Reachability) Option {
	return func(c *Cruiser) {
		c.reach = r
	}
}

// WithLogger sets the logger
func WithLogger(l *slog.Logger) Option {
	return func(c *Cruiser) {
		c.logger = l
	}
}

// New creates a Cruiser. Validation and summarization default to the
// rules and summary packages.
func New(gatherer Gatherer, extractor Extractor, opts ...Option) *Cruiser {
	c := &Cruiser{
		gatherer:   gatherer,
		extractor:  extractor,
		validator:  rules.NewValidator(),
		summarizer: summary.NewSummarizer(),
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Cruise builds the dependency graph for seeds and hands the result to
// next. opts may be nil.
func (c *Cruiser) Cruise(seeds []string, opts *Options, next Continuation) (*Result, error) {
	if opts == nil {
		opts = &Options{}
	}
	if next == nil {
		next = func(r *Result) (*Result, error) { return r, nil }
	}
	start := time.Now()

	paths, err := c.gatherer.Gather(seeds)
	if err != nil {
		return nil, fmt.Errorf("gather sources: %w", err)
	}
	c.logger.Debug("gathered sources", "seeds", len(seeds), "paths", len(paths))

	built, err := graph.BuildConcurrent(paths, c.extractor.Extract, opts.Concurrency)
	if err != nil {
		return nil, fmt.Errorf("build graph: %w", err)
	}
	c.logger.Debug("built graph", "modules", len(built))

	nodes := graph.Dedupe(graph.Complete(built))
	c.logger.Debug("closed graph", "modules", len(nodes))

	if NeedsCircularity(opts) {
		nodes = graph.AnnotateCircular(nodes, c.reach)
		c.logger.Debug("annotated circularity")
	}

	nodes, err = c.validator.Validate(nodes, opts.Validate, opts.RuleSet)
	if err != nil {
		return nil, fmt.Errorf("validate graph: %w", err)
	}

	stats, err := c.summarizer.Summarize(nodes)
	if err != nil {
		return nil, fmt.Errorf("summarize graph: %w", err)
	}

	c.logger.Info("cruise complete",
		"modules", stats.TotalCruised,
		"dependencies", stats.TotalDependenciesCruised,
		"errors", stats.Error,
		"warnings", stats.Warn,
		"duration", time.Since(start),
	)

	return next(&Result{
		Dependencies: nodes,
		Summary: Summary{
			Stats:       stats,
			OptionsUsed: Sanitize(opts),
		},
	})
}
