package gather

import (
	"bufio"
	"bytes"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"
)

// GitChanges is the result of a git diff against a base revision
type GitChanges struct {
	ChangedFiles []string
	ChangedDirs  []string
}

// ChangedFiles returns the source files changed relative to base in the
// repository at dir. If base is empty, it compares with HEAD (uncommitted
// changes). Only files with one of exts are reported; paths are relative
// to dir.
func ChangedFiles(dir, base string, exts []string) (*GitChanges, error) {
	if base == "" {
		base = "HEAD"
	}
	if len(exts) == 0 {
		exts = DefaultExtensions
	}

	cmd := exec.Command("git", "diff", "--name-only", base)
	cmd.Dir = dir

	output, err := cmd.Output()
	if err != nil {
		// no commits yet: fall back to the working tree
		cmd = exec.Command("git", "ls-files", "--modified", "--others", "--exclude-standard")
		cmd.Dir = dir
		output, err = cmd.Output()
		if err != nil {
			return nil, fmt.Errorf("git changes in %s: %w", dir, err)
		}
	}

	return parseChanges(output, exts)
}

func parseChanges(output []byte, exts []string) (*GitChanges, error) {
	wanted := make(map[string]bool, len(exts))
	for _, ext := range exts {
		wanted[ext] = true
	}

	changes := &GitChanges{
		ChangedFiles: make([]string, 0),
		ChangedDirs:  make([]string, 0),
	}
	dirSet := make(map[string]bool)

	scanner := bufio.NewScanner(bytes.NewReader(output))
	for scanner.Scan() {
		file := strings.TrimSpace(scanner.Text())
		if file == "" || !wanted[filepath.Ext(file)] {
			continue
		}

		changes.ChangedFiles = append(changes.ChangedFiles, file)

		d := filepath.Dir(file)
		if !dirSet[d] {
			dirSet[d] = true
			changes.ChangedDirs = append(changes.ChangedDirs, d)
		}
	}

	return changes, scanner.Err()
}

// HasChanges returns true if there are any source file changes
func (g *GitChanges) HasChanges() bool {
	return len(g.ChangedFiles) > 0
}

// String returns a summary string of the changes
func (g *GitChanges) String() string {
	return fmt.Sprintf("%d files changed in %d directories", len(g.ChangedFiles), len(g.ChangedDirs))
}

// Seeds returns the changed files joined onto dir, ready to be gathered.
func (g *GitChanges) Seeds(dir string) []string {
	seeds := make([]string, 0, len(g.ChangedFiles))
	for _, f := range g.ChangedFiles {
		seeds = append(seeds, filepath.Join(dir, f))
	}
	return seeds
}
