package graph

// Dependency type tags set by the extractors.
const (
	DependencyTypeCore          = "core"
	DependencyTypeLocal         = "local"
	DependencyTypePackage       = "package"
	DependencyTypeModule        = "module"
	DependencyTypeNPM           = "npm"
	DependencyTypeUnknown       = "unknown"
	DependencyTypeImport        = "import"
	DependencyTypeRequire       = "require"
	DependencyTypeDynamicImport = "dynamic-import"
	DependencyTypeExport        = "export"
	DependencyTypeBlank         = "blank"
	DependencyTypeDot           = "dot"
)

// RuleRef names a rule that a dependency violates
type RuleRef struct {
	Name     string `json:"name"`
	Severity string `json:"severity"`
}

// Edge represents one outgoing reference from a module
type Edge struct {
	Resolved string `json:"resolved"`
	Module   string `json:"module,omitempty"` // specifier as written in the source
	Classification

	// Nil unless circularity annotation ran.
	Circular *bool `json:"circular,omitempty"`

	// Nil unless rule validation ran.
	Valid *bool     `json:"valid,omitempty"`
	Rules []RuleRef `json:"rules,omitempty"`
}

// WithCircular returns a copy of the edge annotated with circular.
func (e Edge) WithCircular(circular bool) Edge {
	e.Circular = &circular
	return e
}

// WithValidation returns a copy of the edge carrying the validation outcome.
// An empty violation list marks the edge valid.
func (e Edge) WithValidation(violations []RuleRef) Edge {
	valid := len(violations) == 0
	e.Valid = &valid
	e.Rules = violations
	return e
}

// IsCircular reports whether the edge was annotated as circular.
func (e Edge) IsCircular() bool {
	return e.Circular != nil && *e.Circular
}

// HasType reports whether the edge carries the dependency type tag t.
func (e Edge) HasType(t string) bool {
	for _, dt := range e.DependencyTypes {
		if dt == t {
			return true
		}
	}
	return false
}
