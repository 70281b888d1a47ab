// Package impact reports which modules are affected by a change to one
// module of a stored dependency graph.
package impact

import (
	"errors"
	"fmt"
	"strings"

	"github.com/zheng/cruiser/internal/storage"
)

// ErrAmbiguous is returned when a module name matches several modules.
var ErrAmbiguous = errors.New("ambiguous module name")

// Analyzer performs impact analysis on the stored dependency graph
type Analyzer struct {
	db *storage.DB
}

// NewAnalyzer creates a new impact analyzer
func NewAnalyzer(db *storage.DB) *Analyzer {
	return &Analyzer{db: db}
}

// Report represents the impact of changing a module
type Report struct {
	Target               *storage.Module   `json:"target"`
	RiskLevel            string            `json:"riskLevel"`
	Circular             bool              `json:"circular"`
	DirectDependents     []*storage.Module `json:"directDependents"`
	IndirectDependents   []*storage.Module `json:"indirectDependents"`
	DirectDependencies   []*storage.Module `json:"directDependencies"`
	IndirectDependencies []*storage.Module `json:"indirectDependencies"`
}

// AnalyzeImpact analyzes the impact of changing source. Depth 0 means no
// limit; depth 1 reports direct neighbours only.
func (a *Analyzer) AnalyzeImpact(source string, upstreamDepth, downstreamDepth int) (*Report, error) {
	target, err := a.Resolve(source)
	if err != nil {
		return nil, err
	}

	report := &Report{Target: target}

	report.DirectDependents, report.IndirectDependents, err = split(a.db.GetUpstream, target.Source, upstreamDepth)
	if err != nil {
		return nil, fmt.Errorf("failed to get dependents: %w", err)
	}
	report.DirectDependencies, report.IndirectDependencies, err = split(a.db.GetDownstream, target.Source, downstreamDepth)
	if err != nil {
		return nil, fmt.Errorf("failed to get dependencies: %w", err)
	}

	deps, err := a.db.GetDependencies(target.Source)
	if err != nil {
		return nil, fmt.Errorf("failed to get dependencies: %w", err)
	}
	for _, d := range deps {
		if d.Circular != nil && *d.Circular {
			report.Circular = true
			break
		}
	}

	report.RiskLevel = RiskLevel(len(report.DirectDependents), len(report.DirectDependents)+len(report.IndirectDependents))
	return report, nil
}

// Resolve finds the module named source, falling back to a unique
// substring match.
func (a *Analyzer) Resolve(source string) (*storage.Module, error) {
	target, err := a.db.GetModule(source)
	if err == nil {
		return target, nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return nil, err
	}

	// Try pattern matching if exact match fails
	modules, err := a.db.FindModules(source)
	if err != nil {
		return nil, fmt.Errorf("failed to find module: %w", err)
	}
	if len(modules) == 0 {
		return nil, fmt.Errorf("%s: %w", source, storage.ErrNotFound)
	}
	if len(modules) == 1 {
		return modules[0], nil
	}

	// A single path-suffix match wins over substring matches
	var suffixed []*storage.Module
	for _, m := range modules {
		if strings.HasSuffix(m.Source, "/"+source) {
			suffixed = append(suffixed, m)
		}
	}
	if len(suffixed) == 1 {
		return suffixed[0], nil
	}

	var names []string
	for _, m := range modules {
		names = append(names, m.Source)
	}
	return nil, fmt.Errorf("%w, found %d matches: %s", ErrAmbiguous, len(modules), strings.Join(names, ", "))
}

func split(walk func(string, int) ([]*storage.Module, error), source string, depth int) (direct, indirect []*storage.Module, err error) {
	direct, err = walk(source, 1)
	if err != nil || depth == 1 {
		return direct, nil, err
	}

	all, err := walk(source, depth)
	if err != nil {
		return nil, nil, err
	}

	// Filter out direct neighbours to get the indirect ones
	directMap := make(map[int64]bool)
	for _, m := range direct {
		directMap[m.ID] = true
	}
	for _, m := range all {
		if !directMap[m.ID] {
			indirect = append(indirect, m)
		}
	}
	return direct, indirect, nil
}

// RiskLevel grades a module by how many modules depend on it
func RiskLevel(directDependents, totalDependents int) string {
	// Primary factor: direct dependents
	// Secondary factor: total impact
	if directDependents >= 50 || totalDependents >= 200 {
		return "critical"
	}
	if directDependents >= 20 || totalDependents >= 100 {
		return "high"
	}
	if directDependents >= 5 || totalDependents >= 30 {
		return "medium"
	}
	return "low"
}

// FormatMarkdown formats the impact report as markdown
func (r *Report) FormatMarkdown() string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("## 变更影响分析: %s\n\n", r.Target.Source))
	sb.WriteString(fmt.Sprintf("**风险等级:** %s\n\n", r.RiskLevel))
	if r.Circular {
		sb.WriteString("**注意:** 该模块处于循环依赖中\n\n")
	}

	writeTable(&sb, "### 直接依赖者 (需检查是否需要同步修改)", "_无直接依赖者_", r.DirectDependents, true)
	writeTable(&sb, "### 间接依赖者 (可能受影响)", "", r.IndirectDependents, false)
	writeTable(&sb, "### 下游依赖 (本模块引用的)", "_无下游依赖_", r.DirectDependencies, true)
	writeTable(&sb, "### 间接下游依赖", "", r.IndirectDependencies, false)

	return sb.String()
}

func writeTable(sb *strings.Builder, title, empty string, modules []*storage.Module, always bool) {
	if len(modules) == 0 && !always {
		return
	}
	sb.WriteString(title + "\n\n")
	if len(modules) == 0 {
		sb.WriteString(empty + "\n\n")
		return
	}
	sb.WriteString("| 模块 | 类型 | 距离 |\n")
	sb.WriteString("|------|------|------|\n")
	for _, m := range modules {
		depth := m.Depth
		if depth == 0 {
			depth = 1
		}
		sb.WriteString(fmt.Sprintf("| %s | %s | %d |\n", m.Source, kind(m), depth))
	}
	sb.WriteString("\n")
}

func kind(m *storage.Module) string {
	switch {
	case m.CoreModule:
		return "core"
	case m.CouldNotResolve:
		return "unresolved"
	case m.Terminal:
		return strings.Join(m.DependencyTypes, ",")
	default:
		return "local"
	}
}

// FormatTree formats the impact report as a tree structure
func (r *Report) FormatTree() string {
	var sb strings.Builder

	dependents := append(append([]*storage.Module{}, r.DirectDependents...), r.IndirectDependents...)
	dependencies := append(append([]*storage.Module{}, r.DirectDependencies...), r.IndirectDependencies...)

	sb.WriteString("📍 当前模块\n")
	sb.WriteString(fmt.Sprintf("%s  [%s]", r.Target.Source, r.RiskLevel))
	if r.Circular {
		sb.WriteString("  ↻")
	}
	sb.WriteString("\n\n")

	writeBranch(&sb, "⬆️ 依赖者", dependents)
	sb.WriteString("\n")
	writeBranch(&sb, "⬇️ 依赖", dependencies)

	return sb.String()
}

func writeBranch(sb *strings.Builder, title string, modules []*storage.Module) {
	if len(modules) == 0 {
		sb.WriteString(title + "\n")
		sb.WriteString("└── (无)\n")
		return
	}
	sb.WriteString(fmt.Sprintf("%s (共 %d 个)\n", title, len(modules)))
	for i, m := range modules {
		prefix := "├──"
		if i == len(modules)-1 {
			prefix = "└──"
		}
		sb.WriteString(fmt.Sprintf("%s %s\n", prefix, m.Source))
	}
}

// Summary returns a brief summary of the impact report
func (r *Report) Summary() string {
	return fmt.Sprintf(
		"Target: %s, Risk: %s, Direct Dependents: %d, Indirect Dependents: %d, Direct Dependencies: %d, Indirect Dependencies: %d",
		r.Target.Source,
		r.RiskLevel,
		len(r.DirectDependents),
		len(r.IndirectDependents),
		len(r.DirectDependencies),
		len(r.IndirectDependencies),
	)
}
