package gather

import (
	"fmt"
	"log/slog"

	"golang.org/x/tools/go/packages"
)

// LoadPackageFiles resolves a Go package pattern such as "./..." relative
// to dir and returns the absolute paths of the non-test Go files of every
// matched package.
func LoadPackageFiles(dir, pattern string) ([]string, error) {
	cfg := &packages.Config{
		Mode: packages.NeedName | packages.NeedFiles,
		Dir:  dir,
	}

	pkgs, err := packages.Load(cfg, pattern)
	if err != nil {
		return nil, fmt.Errorf("failed to load packages: %w", err)
	}

	var files []string
	for _, pkg := range pkgs {
		for _, err := range pkg.Errors {
			// some packages may still be usable
			slog.Warn("package error", "package", pkg.PkgPath, "error", err)
		}
		files = append(files, pkg.GoFiles...)
	}
	return files, nil
}
