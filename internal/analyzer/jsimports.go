package analyzer

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	sitter "github.com/tree-sitter/go-tree-sitter"
	tree_sitter_javascript "github.com/tree-sitter/tree-sitter-javascript/bindings/go"
	tree_sitter_typescript "github.com/tree-sitter/tree-sitter-typescript/bindings/go"

	"github.com/zheng/cruiser/internal/gather"
	"github.com/zheng/cruiser/internal/graph"
)

// resolveExtensions are probed, in order, for extensionless relative imports.
var resolveExtensions = []string{".js", ".mjs", ".cjs", ".jsx", ".ts", ".tsx", ".d.ts"}

type scriptLanguage struct {
	lang  *sitter.Language
	query *sitter.Query
}

// ScriptExtractor extracts import edges from JavaScript and TypeScript
// sources with tree-sitter. Compiled queries are shared; every Extract call
// uses its own parser, so the extractor is safe for concurrent use.
type ScriptExtractor struct {
	languages map[string]*scriptLanguage // by file extension
	compiled  []*scriptLanguage
}

// NewScriptExtractor compiles the import query for each grammar.
func NewScriptExtractor() (*ScriptExtractor, error) {
	javascript := sitter.NewLanguage(tree_sitter_javascript.Language())
	typescript := sitter.NewLanguage(tree_sitter_typescript.LanguageTypescript())
	tsx := sitter.NewLanguage(tree_sitter_typescript.LanguageTSX())

	x := &ScriptExtractor{languages: make(map[string]*scriptLanguage)}
	for _, l := range []struct {
		lang *sitter.Language
		exts []string
	}{
		{javascript, []string{".js", ".mjs", ".cjs", ".jsx"}},
		{typescript, []string{".ts", ".mts", ".cts"}},
		{tsx, []string{".tsx"}},
	} {
		query, qerr := sitter.NewQuery(l.lang, importQuery)
		if qerr != nil {
			x.Close()
			return nil, fmt.Errorf("compile import query: %s", qerr.Error())
		}
		sl := &scriptLanguage{lang: l.lang, query: query}
		x.compiled = append(x.compiled, sl)
		for _, ext := range l.exts {
			x.languages[ext] = sl
		}
	}
	return x, nil
}

// Close releases the compiled queries.
func (x *ScriptExtractor) Close() {
	for _, sl := range x.compiled {
		sl.query.Close()
	}
	x.compiled = nil
}

// Supports reports whether files with extension ext can be parsed.
func (x *ScriptExtractor) Supports(ext string) bool {
	_, ok := x.languages[ext]
	return ok
}

// Extract returns the dependencies of one JavaScript or TypeScript file.
func (x *ScriptExtractor) Extract(path string) ([]graph.Edge, error) {
	sl, ok := x.languages[filepath.Ext(path)]
	if !ok {
		return []graph.Edge{}, nil
	}

	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	specs, err := x.specifiers(sl, src)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	set := newEdgeSet()
	for _, s := range specs {
		set.add(s.name, resolveScript(path, s.name, s.kind))
	}
	return set.edges, nil
}

type specifier struct {
	name string
	kind string
}

func (x *ScriptExtractor) specifiers(sl *scriptLanguage, src []byte) ([]specifier, error) {
	parser := sitter.NewParser()
	defer parser.Close()
	if err := parser.SetLanguage(sl.lang); err != nil {
		return nil, err
	}

	tree := parser.Parse(src, nil)
	if tree == nil {
		return nil, fmt.Errorf("tree-sitter returned no tree")
	}
	defer tree.Close()

	cursor := sitter.NewQueryCursor()
	defer cursor.Close()

	names := sl.query.CaptureNames()
	var specs []specifier

	matches := cursor.Matches(sl.query, tree.RootNode(), src)
	for m := matches.Next(); m != nil; m = matches.Next() {
		var callee string
		var spec specifier
		for _, c := range m.Captures {
			text := c.Node.Utf8Text(src)
			switch names[c.Index] {
			case captureCallee:
				callee = text
			case captureImport:
				spec = specifier{text, graph.DependencyTypeImport}
			case captureExport:
				spec = specifier{text, graph.DependencyTypeExport}
			case captureCall:
				spec = specifier{text, graph.DependencyTypeRequire}
			case captureDynamic:
				spec = specifier{text, graph.DependencyTypeDynamicImport}
			}
		}
		if spec.kind == graph.DependencyTypeRequire && callee != "require" {
			continue
		}
		if spec.name != "" {
			specs = append(specs, spec)
		}
	}
	return specs, nil
}

// resolveScript classifies a specifier imported by file.
func resolveScript(file, spec, kind string) graph.Edge {
	e := graph.Edge{Resolved: spec, Module: spec}

	if isRelative(spec) {
		candidate := filepath.Join(filepath.Dir(file), filepath.FromSlash(spec))
		if resolved, ok := probe(candidate); ok {
			e.Resolved = gather.Normalize(resolved)
			e.Followable = true
			e.DependencyTypes = []string{graph.DependencyTypeLocal, kind}
			return e
		}
		e.Resolved = gather.Normalize(candidate)
		e.CouldNotResolve = true
		e.DependencyTypes = []string{graph.DependencyTypeUnknown, kind}
		return e
	}

	if name := strings.TrimPrefix(spec, "node:"); nodeBuiltins[name] || strings.HasPrefix(spec, "node:") {
		e.Resolved = name
		e.CoreModule = true
		e.DependencyTypes = []string{graph.DependencyTypeCore, kind}
		return e
	}

	if dir, ok := findPackage(filepath.Dir(file), packageName(spec)); ok {
		e.Resolved = gather.Normalize(dir)
		e.DependencyTypes = []string{graph.DependencyTypeNPM, kind}
		return e
	}

	e.CouldNotResolve = true
	e.DependencyTypes = []string{graph.DependencyTypeUnknown, kind}
	return e
}

func isRelative(spec string) bool {
	return spec == "." || spec == ".." ||
		strings.HasPrefix(spec, "./") || strings.HasPrefix(spec, "../") || strings.HasPrefix(spec, "/")
}

// probe resolves candidate to an existing file: as written, with a source
// extension appended, a .js specifier mapped to its TypeScript source, or a
// directory index file.
func probe(candidate string) (string, bool) {
	if isFile(candidate) {
		return candidate, true
	}
	for _, ext := range resolveExtensions {
		if isFile(candidate + ext) {
			return candidate + ext, true
		}
	}
	if stem, ok := strings.CutSuffix(candidate, ".js"); ok {
		for _, ext := range []string{".ts", ".tsx"} {
			if isFile(stem + ext) {
				return stem + ext, true
			}
		}
	}
	for _, ext := range resolveExtensions {
		index := filepath.Join(candidate, "index"+ext)
		if isFile(index) {
			return index, true
		}
	}
	return "", false
}

func isFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// packageName strips a subpath from a bare specifier, keeping the scope.
func packageName(spec string) string {
	parts := strings.SplitN(spec, "/", 3)
	if strings.HasPrefix(spec, "@") && len(parts) > 1 {
		return parts[0] + "/" + parts[1]
	}
	return parts[0]
}

// findPackage looks for node_modules/name in dir and its ancestors. The
// result keeps dir's path form when dir is relative.
func findPackage(dir, name string) (string, bool) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", false
	}
	for cur := abs; ; {
		candidate := filepath.Join(cur, "node_modules", filepath.FromSlash(name))
		if info, err := os.Stat(candidate); err == nil && info.IsDir() {
			if filepath.IsAbs(dir) {
				return candidate, true
			}
			rel, err := filepath.Rel(abs, candidate)
			if err != nil {
				return candidate, true
			}
			return filepath.Join(dir, rel), true
		}
		parent := filepath.Dir(cur)
		if parent == cur {
			return "", false
		}
		cur = parent
	}
}
