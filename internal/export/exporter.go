// Package export renders a cruise result in one of the supported output
// types.
package export

import (
	"encoding/json"
	"fmt"
	"io"
	"path"
	"sort"
	"strings"

	"github.com/zheng/cruiser/internal/cruise"
	"github.com/zheng/cruiser/internal/graph"
)

// Output types
const (
	TypeJSON    = "json"
	TypeMermaid = "mermaid"
	TypeErr     = "err"
)

// Types lists the output types Export accepts.
func Types() []string {
	return []string{TypeJSON, TypeMermaid, TypeErr}
}

// Exporter renders cruise results
type Exporter struct {
	prefix string
}

// NewExporter creates a new exporter. A non-empty prefix is prepended to
// module paths to build links in mermaid output.
func NewExporter(prefix string) *Exporter {
	return &Exporter{prefix: prefix}
}

// Export writes res to w in the given output type.
func (e *Exporter) Export(w io.Writer, res *cruise.Result, outputType string) error {
	switch outputType {
	case "", TypeJSON:
		return e.JSON(w, res)
	case TypeMermaid:
		return e.Mermaid(w, res)
	case TypeErr:
		return e.Err(w, res)
	default:
		return fmt.Errorf("unknown output type %q (supported: %s)", outputType, strings.Join(Types(), ", "))
	}
}

// JSON writes the result as indented JSON
func (e *Exporter) JSON(w io.Writer, res *cruise.Result) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(res)
}

// Mermaid writes the graph as a mermaid flowchart: one subgraph per
// directory, circular dependencies dashed, violating dependencies red.
func (e *Exporter) Mermaid(w io.Writer, res *cruise.Result) error {
	ids := make(map[string]string, len(res.Dependencies))
	for i, n := range res.Dependencies {
		ids[n.Source] = fmt.Sprintf("n%d", i)
	}

	fmt.Fprintf(w, "flowchart LR\n")

	// Group modules by directory
	dirs := make(map[string][]graph.Node)
	var topLevel []graph.Node
	for _, n := range res.Dependencies {
		dir := path.Dir(n.Source)
		if dir == "." || n.IsTerminal() && (n.CoreModule || n.CouldNotResolve) {
			topLevel = append(topLevel, n)
			continue
		}
		dirs[dir] = append(dirs[dir], n)
	}

	dirNames := make([]string, 0, len(dirs))
	for dir := range dirs {
		dirNames = append(dirNames, dir)
	}
	sort.Strings(dirNames)

	for i, dir := range dirNames {
		fmt.Fprintf(w, "    subgraph sg%d [%s]\n", i, escapeLabel(dir))
		for _, n := range dirs[dir] {
			fmt.Fprintf(w, "        %s%s\n", ids[n.Source], nodeShape(n, path.Base(n.Source)))
		}
		fmt.Fprintf(w, "    end\n")
	}
	for _, n := range topLevel {
		fmt.Fprintf(w, "    %s%s\n", ids[n.Source], nodeShape(n, n.Source))
	}

	var violating []int
	link := 0
	for _, n := range res.Dependencies {
		for _, d := range n.Dependencies {
			to, ok := ids[d.Resolved]
			if !ok {
				continue
			}
			arrow := "-->"
			if d.IsCircular() {
				arrow = "-.->"
			}
			fmt.Fprintf(w, "    %s %s %s\n", ids[n.Source], arrow, to)
			if len(d.Rules) > 0 {
				violating = append(violating, link)
			}
			link++
		}
	}

	for _, l := range violating {
		fmt.Fprintf(w, "    linkStyle %d stroke:#d00,stroke-width:2px\n", l)
	}

	fmt.Fprintf(w, "    classDef core fill:#eee,stroke:#999\n")
	fmt.Fprintf(w, "    classDef unresolved fill:#fdd,stroke:#d00\n")
	for _, n := range res.Dependencies {
		switch {
		case !n.IsTerminal():
		case n.CoreModule:
			fmt.Fprintf(w, "    class %s core\n", ids[n.Source])
		case n.CouldNotResolve:
			fmt.Fprintf(w, "    class %s unresolved\n", ids[n.Source])
		}
	}

	if e.prefix != "" {
		for _, n := range res.Dependencies {
			if !n.IsTerminal() {
				fmt.Fprintf(w, "    click %s href \"%s%s\"\n", ids[n.Source], e.prefix, n.Source)
			}
		}
	}
	return nil
}

func nodeShape(n graph.Node, label string) string {
	label = escapeLabel(label)
	if n.IsTerminal() {
		return fmt.Sprintf("([\"%s\"])", label)
	}
	return fmt.Sprintf("[\"%s\"]", label)
}

func escapeLabel(s string) string {
	return strings.ReplaceAll(s, "\"", "#quot;")
}

// Err writes one line per violation followed by a summary line.
func (e *Exporter) Err(w io.Writer, res *cruise.Result) error {
	s := res.Summary

	if len(s.Violations) == 0 {
		_, err := fmt.Fprintf(w, "\n✔ no dependency violations found (%d modules, %d dependencies cruised)\n\n",
			s.TotalCruised, s.TotalDependenciesCruised)
		return err
	}

	fmt.Fprintln(w)
	for _, v := range s.Violations {
		fmt.Fprintf(w, "  %-5s %s: %s → %s\n", v.Rule.Severity, v.Rule.Name, v.From, v.To)
	}
	_, err := fmt.Fprintf(w, "\n✘ %d dependency violations (%d errors, %d warnings, %d informational). %d modules, %d dependencies cruised.\n\n",
		len(s.Violations), s.Error, s.Warn, s.Info, s.TotalCruised, s.TotalDependenciesCruised)
	return err
}
