// Package gather expands seed files, directories and Go package patterns
// into the list of source paths a cruise starts from.
package gather

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	ignore "github.com/sabhiram/go-gitignore"
)

// DefaultExtensions are the source extensions picked up from directories.
var DefaultExtensions = []string{".go", ".js", ".mjs", ".cjs", ".jsx", ".ts", ".tsx"}

// Options configures a Gatherer
type Options struct {
	// BaseDir anchors .gitignore lookup and Go package patterns. Default "."
	BaseDir string

	// Exclude is a regular expression; matching paths are skipped.
	Exclude string

	// Extensions overrides DefaultExtensions.
	Extensions []string

	// IncludeTests keeps _test.go and *.test.*/*.spec.* files.
	IncludeTests bool

	// NoGitignore disables .gitignore handling.
	NoGitignore bool
}

// Gatherer resolves seeds into source paths
type Gatherer struct {
	baseDir      string
	absBase      string
	exclude      *regexp.Regexp
	extensions   map[string]bool
	includeTests bool
	gitignore    *ignore.GitIgnore
	loadPackages func(dir, pattern string) ([]string, error)
}

// New creates a Gatherer from opts.
func New(opts Options) (*Gatherer, error) {
	base := opts.BaseDir
	if base == "" {
		base = "."
	}
	absBase, err := filepath.Abs(base)
	if err != nil {
		return nil, fmt.Errorf("resolve base dir: %w", err)
	}

	g := &Gatherer{
		baseDir:      base,
		absBase:      absBase,
		extensions:   make(map[string]bool),
		includeTests: opts.IncludeTests,
		loadPackages: LoadPackageFiles,
	}

	if opts.Exclude != "" {
		if g.exclude, err = regexp.Compile(opts.Exclude); err != nil {
			return nil, fmt.Errorf("invalid exclude pattern: %w", err)
		}
	}

	exts := opts.Extensions
	if len(exts) == 0 {
		exts = DefaultExtensions
	}
	for _, ext := range exts {
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		g.extensions[ext] = true
	}

	if !opts.NoGitignore {
		gi := filepath.Join(base, ".gitignore")
		if _, err := os.Stat(gi); err == nil {
			if g.gitignore, err = ignore.CompileIgnoreFile(gi); err != nil {
				return nil, fmt.Errorf("parse %s: %w", gi, err)
			}
		}
	}

	return g, nil
}

// Gather expands seeds into source paths. Files named explicitly are kept
// unless excluded; directories are walked in lexical order; Go package
// patterns (containing "...") are resolved with go/packages. The result has
// no duplicates and keeps first-seen order.
func (g *Gatherer) Gather(seeds []string) ([]string, error) {
	var out []string
	seen := make(map[string]bool)
	add := func(p string) {
		p = Normalize(p)
		if seen[p] {
			return
		}
		seen[p] = true
		out = append(out, p)
	}

	for _, seed := range seeds {
		if strings.Contains(seed, "...") {
			files, err := g.loadPackages(g.baseDir, seed)
			if err != nil {
				return nil, fmt.Errorf("load packages %s: %w", seed, err)
			}
			for _, f := range files {
				if g.keepFile(g.relativeToCwd(f)) {
					add(g.relativeToCwd(f))
				}
			}
			continue
		}

		info, err := os.Stat(seed)
		if err != nil {
			return nil, fmt.Errorf("seed %s: %w", seed, err)
		}

		if !info.IsDir() {
			if !g.excluded(seed) {
				add(seed)
			}
			continue
		}

		err = filepath.WalkDir(seed, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				if path != seed && skipDir(d.Name()) {
					return filepath.SkipDir
				}
				if path != seed && (g.excluded(path) || g.ignored(path, true)) {
					return filepath.SkipDir
				}
				return nil
			}
			if g.keepFile(path) {
				add(path)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("walk %s: %w", seed, err)
		}
	}

	return out, nil
}

// Normalize cleans p and converts it to forward slashes so that every
// collaborator agrees on module identity.
func Normalize(p string) string {
	return filepath.ToSlash(filepath.Clean(p))
}

func (g *Gatherer) keepFile(path string) bool {
	if !g.extensions[filepath.Ext(path)] {
		return false
	}
	if !g.includeTests && IsTestFile(path) {
		return false
	}
	return !g.excluded(path) && !g.ignored(path, false)
}

func (g *Gatherer) excluded(path string) bool {
	return g.exclude != nil && g.exclude.MatchString(Normalize(path))
}

func (g *Gatherer) ignored(path string, dir bool) bool {
	if g.gitignore == nil {
		return false
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return false
	}
	rel, err := filepath.Rel(g.absBase, abs)
	if err != nil || strings.HasPrefix(rel, "..") {
		return false
	}
	rel = filepath.ToSlash(rel)
	if dir {
		rel += "/"
	}
	return g.gitignore.MatchesPath(rel)
}

func (g *Gatherer) relativeToCwd(path string) string {
	if !filepath.IsAbs(path) {
		return path
	}
	cwd, err := os.Getwd()
	if err != nil {
		return path
	}
	if rel, err := filepath.Rel(cwd, path); err == nil && !strings.HasPrefix(rel, "..") {
		return rel
	}
	return path
}

// skipDir reports directories never descended into.
func skipDir(name string) bool {
	return strings.HasPrefix(name, ".") || name == "vendor" || name == "node_modules" || name == "testdata"
}

// IsTestFile reports Go test files and JS/TS *.test.* / *.spec.* files.
func IsTestFile(path string) bool {
	base := filepath.Base(path)
	if strings.HasSuffix(base, "_test.go") {
		return true
	}
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	return strings.HasSuffix(stem, ".test") || strings.HasSuffix(stem, ".spec")
}
