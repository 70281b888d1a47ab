package cruise

import (
	"github.com/zheng/cruiser/internal/rules"
)

// Presentable is the subset of Options that is echoed back in the result
// summary. A key set to the empty string is indistinguishable from an unset
// one and is omitted from the echo.
type Presentable struct {
	RulesFile  string `json:"rulesFile,omitempty" yaml:"rulesFile,omitempty"`
	OutputTo   string `json:"outputTo,omitempty" yaml:"outputTo,omitempty"`
	Exclude    string `json:"exclude,omitempty" yaml:"exclude,omitempty"`
	System     string `json:"system,omitempty" yaml:"system,omitempty"`
	OutputType string `json:"outputType,omitempty" yaml:"outputType,omitempty"`
	Prefix     string `json:"prefix,omitempty" yaml:"prefix,omitempty"`
}

// Options configures a cruise
type Options struct {
	Presentable `yaml:",inline"`

	// ForceCircular annotates circularity even when no rule asks for it.
	ForceCircular bool `json:"forceCircular,omitempty" yaml:"forceCircular,omitempty"`

	// Validate evaluates RuleSet against the graph.
	Validate bool           `json:"validate,omitempty" yaml:"validate,omitempty"`
	RuleSet  *rules.RuleSet `json:"ruleSet,omitempty" yaml:"ruleSet,omitempty"`

	// Concurrency is the number of extraction workers; <= 1 is sequential.
	Concurrency int `json:"concurrency,omitempty" yaml:"concurrency,omitempty"`
}

// Sanitize returns the allow-listed, presentable part of opts. A nil opts
// yields an empty record.
func Sanitize(opts *Options) Presentable {
	if opts == nil {
		return Presentable{}
	}
	return Presentable{
		RulesFile:  opts.RulesFile,
		OutputTo:   opts.OutputTo,
		Exclude:    opts.Exclude,
		System:     opts.System,
		OutputType: opts.OutputType,
		Prefix:     opts.Prefix,
	}
}

// NeedsCircularity decides whether the circularity pass has to run: when
// forced, or when validation is on and a forbidden rule constrains
// circularity.
func NeedsCircularity(opts *Options) bool {
	if opts == nil {
		return false
	}
	if opts.ForceCircular {
		return true
	}
	return opts.Validate && opts.RuleSet.ConstrainsCircularity()
}
