// Package display renders stored modules and dependencies for the terminal.
package display

import (
	"fmt"
	"strings"

	"github.com/zheng/cruiser/internal/storage"
)

// ShortPath keeps the last two components of a module path.
// e.g., "src/internal/store/db.go" -> "store/db.go"
func ShortPath(fullPath string) string {
	parts := strings.Split(fullPath, "/")
	if len(parts) <= 2 {
		return fullPath
	}
	return strings.Join(parts[len(parts)-2:], "/")
}

// Tag describes what kind of module m is: core, npm, unresolved or empty for
// local sources.
func Tag(m *storage.Module) string {
	switch {
	case m.CoreModule:
		return "core"
	case m.CouldNotResolve:
		return "unresolved"
	case m.Terminal:
		return strings.Join(m.DependencyTypes, ",")
	default:
		return ""
	}
}

// CalcTreeMaxWidth calculates the maximum module width and depth for alignment in the tree.
func CalcTreeMaxWidth(tree []*storage.TreeNode, maxWidth *int, currentDepth int, maxDepth *int) {
	if currentDepth > *maxDepth {
		*maxDepth = currentDepth
	}
	for _, node := range tree {
		w := len(node.Module.Source)
		if w > *maxWidth {
			*maxWidth = w
		}
		if len(node.Children) > 0 {
			CalcTreeMaxWidth(node.Children, maxWidth, currentDepth+1, maxDepth)
		}
	}
}

// FormatTree renders a dependency tree as a string with box-drawing characters.
func FormatTree(tree []*storage.TreeNode, indent string, maxWidth int, maxDepth int, currentDepth int) string {
	var sb strings.Builder
	for i, node := range tree {
		isLast := i == len(tree)-1
		prefix := "├──"
		if isLast {
			prefix = "└──"
		}

		var notes []string
		if tag := Tag(node.Module); tag != "" {
			notes = append(notes, tag)
		}
		if node.Cycle {
			notes = append(notes, "↻ circular")
		}

		padding := maxWidth + (maxDepth-currentDepth)*4
		line := fmt.Sprintf("%s%s %-*s  %s", indent, prefix, padding, node.Module.Source, strings.Join(notes, " "))
		sb.WriteString(strings.TrimRight(line, " ") + "\n")

		if len(node.Children) > 0 {
			childIndent := indent + "│   "
			if isLast {
				childIndent = indent + "    "
			}
			sb.WriteString(FormatTree(node.Children, childIndent, maxWidth, maxDepth, currentDepth+1))
		}
	}
	return sb.String()
}

// FormatDependencies lists dependencies one per line as "from → to".
func FormatDependencies(deps []*storage.Dependency) string {
	maxWidth := 0
	for _, d := range deps {
		if len(d.From) > maxWidth {
			maxWidth = len(d.From)
		}
	}

	var sb strings.Builder
	for _, d := range deps {
		line := fmt.Sprintf("%-*s → %s", maxWidth, d.From, d.To)
		if len(d.DependencyTypes) > 0 {
			line += fmt.Sprintf("  (%s)", strings.Join(d.DependencyTypes, ","))
		}
		if d.Circular != nil && *d.Circular {
			line += "  ↻"
		}
		sb.WriteString(line + "\n")
	}
	return sb.String()
}

// FormatViolations prints one line per violated rule.
func FormatViolations(deps []*storage.Dependency) string {
	var sb strings.Builder
	for _, d := range deps {
		for _, r := range d.Rules {
			sb.WriteString(fmt.Sprintf("  %-5s %s: %s → %s\n", r.Severity, r.Name, d.From, d.To))
		}
	}
	return sb.String()
}
