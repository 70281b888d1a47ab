package analyzer

import (
	"fmt"
	"go/parser"
	"go/token"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"golang.org/x/mod/modfile"

	"github.com/zheng/cruiser/internal/gather"
	"github.com/zheng/cruiser/internal/graph"
)

// goModule is the parsed go.mod governing a directory
type goModule struct {
	root     string // directory holding go.mod, in the caller's path form
	path     string
	requires []string
}

// GoExtractor extracts import edges from Go files and file edges from Go
// package directories. It is safe for concurrent use.
type GoExtractor struct {
	mu      sync.Mutex
	modules map[string]*goModule // by absolute directory; nil when none found
}

// NewGoExtractor creates a GoExtractor
func NewGoExtractor() *GoExtractor {
	return &GoExtractor{modules: make(map[string]*goModule)}
}

// Extract returns the imports of a Go file, or the non-test Go files of a
// package directory.
func (x *GoExtractor) Extract(path string) ([]graph.Edge, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}
	if info.IsDir() {
		return x.packageFiles(path)
	}
	return x.imports(path)
}

func (x *GoExtractor) packageFiles(dir string) ([]graph.Edge, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read package %s: %w", dir, err)
	}

	edges := []graph.Edge{}
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || filepath.Ext(name) != ".go" || strings.HasSuffix(name, "_test.go") {
			continue
		}
		edges = append(edges, graph.Edge{
			Resolved: gather.Normalize(filepath.Join(dir, name)),
			Module:   name,
			Classification: graph.Classification{
				Followable:      true,
				DependencyTypes: []string{graph.DependencyTypePackage},
			},
		})
	}
	return edges, nil
}

func (x *GoExtractor) imports(path string) ([]graph.Edge, error) {
	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, path, nil, parser.ImportsOnly)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	mod, err := x.moduleFor(filepath.Dir(path))
	if err != nil {
		return nil, err
	}

	set := newEdgeSet()
	for _, imp := range file.Imports {
		importPath, err := strconv.Unquote(imp.Path.Value)
		if err != nil {
			continue
		}

		e := classifyGoImport(importPath, mod)
		if imp.Name != nil {
			switch imp.Name.Name {
			case "_":
				e.DependencyTypes = append(e.DependencyTypes, graph.DependencyTypeBlank)
			case ".":
				e.DependencyTypes = append(e.DependencyTypes, graph.DependencyTypeDot)
			}
		}
		set.add(importPath, e)
	}
	return set.edges, nil
}

func classifyGoImport(importPath string, mod *goModule) graph.Edge {
	e := graph.Edge{Resolved: importPath, Module: importPath}

	if importPath == "C" {
		e.CoreModule = true
		e.DependencyTypes = []string{graph.DependencyTypeCore}
		return e
	}

	// module paths without a dot (module app) shadow the stdlib rule below
	if mod != nil {
		if rest, ok := underModule(importPath, mod.path); ok {
			dir := filepath.Join(mod.root, filepath.FromSlash(rest))
			if info, err := os.Stat(dir); err == nil && info.IsDir() {
				e.Resolved = gather.Normalize(dir)
				e.Followable = true
				e.DependencyTypes = []string{graph.DependencyTypeLocal}
				return e
			}
			e.CouldNotResolve = true
			e.DependencyTypes = []string{graph.DependencyTypeUnknown}
			return e
		}

		for _, req := range mod.requires {
			if _, ok := underModule(importPath, req); ok {
				e.DependencyTypes = []string{graph.DependencyTypeModule}
				return e
			}
		}
	}

	first, _, _ := strings.Cut(importPath, "/")
	if !strings.Contains(first, ".") {
		e.CoreModule = true
		e.DependencyTypes = []string{graph.DependencyTypeCore}
		return e
	}

	e.CouldNotResolve = true
	e.DependencyTypes = []string{graph.DependencyTypeUnknown}
	return e
}

// underModule reports whether importPath lies in module modPath and returns
// the remainder below the module root.
func underModule(importPath, modPath string) (string, bool) {
	if importPath == modPath {
		return "", true
	}
	if strings.HasPrefix(importPath, modPath+"/") {
		return importPath[len(modPath)+1:], true
	}
	return "", false
}

// moduleFor finds and parses the nearest go.mod at or above dir.
func (x *GoExtractor) moduleFor(dir string) (*goModule, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", dir, err)
	}

	x.mu.Lock()
	defer x.mu.Unlock()

	if mod, ok := x.modules[abs]; ok {
		return mod, nil
	}

	var mod *goModule
	for cur, up := abs, 0; ; cur, up = filepath.Dir(cur), up+1 {
		if cached, ok := x.modules[cur]; ok {
			mod = cached
			break
		}
		gomod := filepath.Join(cur, "go.mod")
		data, err := os.ReadFile(gomod)
		if err == nil {
			if mod, err = parseGoMod(gomod, data, rootFor(dir, up)); err != nil {
				return nil, err
			}
			x.modules[cur] = mod
			break
		}
		if filepath.Dir(cur) == cur {
			break
		}
	}

	x.modules[abs] = mod
	return mod, nil
}

// rootFor climbs up levels from dir while keeping dir's path form.
func rootFor(dir string, up int) string {
	root := dir
	for i := 0; i < up; i++ {
		root = filepath.Join(root, "..")
	}
	return filepath.Clean(root)
}

func parseGoMod(path string, data []byte, root string) (*goModule, error) {
	f, err := modfile.Parse(path, data, nil)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if f.Module == nil {
		return nil, fmt.Errorf("parse %s: no module directive", path)
	}

	mod := &goModule{root: root, path: f.Module.Mod.Path}
	for _, req := range f.Require {
		mod.requires = append(mod.requires, req.Mod.Path)
	}
	return mod, nil
}
