// Package rules defines the typed rule set a dependency graph is validated
// against, loads it from YAML or JSON, and evaluates it per dependency.
package rules

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Severity of a rule violation.
type Severity string

const (
	SeverityError Severity = "error"
	SeverityWarn  Severity = "warn"
	SeverityInfo  Severity = "info"
)

// NotInAllowedRule is the rule name reported for a dependency that matches
// none of the allowed rules.
const NotInAllowedRule = "not-in-allowed"

// ErrInvalidRuleSet is returned (wrapped) when a rule set fails validation.
var ErrInvalidRuleSet = errors.New("invalid rule set")

// FromCondition restricts the module a dependency originates from.
type FromCondition struct {
	Path    string `json:"path,omitempty" yaml:"path,omitempty"`
	PathNot string `json:"pathNot,omitempty" yaml:"pathNot,omitempty"`

	path    *regexp.Regexp
	pathNot *regexp.Regexp
}

// ToCondition restricts the dependency itself. Pointer fields left nil do
// not constrain.
type ToCondition struct {
	Path            string   `json:"path,omitempty" yaml:"path,omitempty"`
	PathNot         string   `json:"pathNot,omitempty" yaml:"pathNot,omitempty"`
	Circular        *bool    `json:"circular,omitempty" yaml:"circular,omitempty"`
	CoreModule      *bool    `json:"coreModule,omitempty" yaml:"coreModule,omitempty"`
	CouldNotResolve *bool    `json:"couldNotResolve,omitempty" yaml:"couldNotResolve,omitempty"`
	DependencyTypes []string `json:"dependencyTypes,omitempty" yaml:"dependencyTypes,omitempty"`

	path    *regexp.Regexp
	pathNot *regexp.Regexp
}

// Rule is a single forbidden or allowed constraint.
type Rule struct {
	Name     string        `json:"name,omitempty" yaml:"name,omitempty"`
	Severity Severity      `json:"severity,omitempty" yaml:"severity,omitempty" validate:"omitempty,oneof=error warn info"`
	Comment  string        `json:"comment,omitempty" yaml:"comment,omitempty"`
	From     FromCondition `json:"from" yaml:"from"`
	To       ToCondition   `json:"to" yaml:"to"`
}

// RuleSet is the collection of rules a graph is validated against.
type RuleSet struct {
	Forbidden       []Rule   `json:"forbidden,omitempty" yaml:"forbidden,omitempty" validate:"dive"`
	Allowed         []Rule   `json:"allowed,omitempty" yaml:"allowed,omitempty" validate:"dive"`
	AllowedSeverity Severity `json:"allowedSeverity,omitempty" yaml:"allowedSeverity,omitempty" validate:"omitempty,oneof=error warn info"`
}

var validate = validator.New()

// ConstrainsCircularity reports whether any forbidden rule places a
// condition on circularity. Circularity annotation is only needed then.
func (rs *RuleSet) ConstrainsCircularity() bool {
	if rs == nil {
		return false
	}
	for _, r := range rs.Forbidden {
		if r.To.Circular != nil {
			return true
		}
	}
	return false
}

// Load reads a rule set from a .yaml/.yml or .json file.
func Load(path string) (*RuleSet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rules file: %w", err)
	}

	var rs RuleSet
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		err = json.Unmarshal(data, &rs)
	default:
		err = yaml.Unmarshal(data, &rs)
	}
	if err != nil {
		return nil, fmt.Errorf("parse rules file %s: %w", path, err)
	}

	if err := rs.Prepare(); err != nil {
		return nil, err
	}
	return &rs, nil
}

// Prepare fills defaults, validates the rule set and compiles its path
// patterns. It must be called before a RuleSet built in code is evaluated;
// Load calls it.
func (rs *RuleSet) Prepare() error {
	if err := validate.Struct(rs); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidRuleSet, err)
	}

	if rs.AllowedSeverity == "" {
		rs.AllowedSeverity = SeverityWarn
	}
	for _, list := range [][]Rule{rs.Forbidden, rs.Allowed} {
		for i := range list {
			if err := list[i].prepare(); err != nil {
				return fmt.Errorf("%w: rule %q: %v", ErrInvalidRuleSet, list[i].Name, err)
			}
		}
	}
	return nil
}

func (r *Rule) prepare() error {
	if r.Name == "" {
		r.Name = "unnamed"
	}
	if r.Severity == "" {
		r.Severity = SeverityWarn
	}

	var err error
	if r.From.path, err = compile(r.From.Path); err != nil {
		return fmt.Errorf("from.path: %w", err)
	}
	if r.From.pathNot, err = compile(r.From.PathNot); err != nil {
		return fmt.Errorf("from.pathNot: %w", err)
	}
	if r.To.path, err = compile(r.To.Path); err != nil {
		return fmt.Errorf("to.path: %w", err)
	}
	if r.To.pathNot, err = compile(r.To.PathNot); err != nil {
		return fmt.Errorf("to.pathNot: %w", err)
	}
	return nil
}

func compile(expr string) (*regexp.Regexp, error) {
	if expr == "" {
		return nil, nil
	}
	return regexp.Compile(expr)
}
