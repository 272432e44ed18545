package codeowners

import (
	"path/filepath"
	"strings"

	"github.com/cobwebtools/dah/internal/errs"
)

// NormalizePathspec resolves a user-provided pathspec against cwd and
// then against repoRoot, returning a repo-root-relative path using
// forward slashes. If the resolved path escapes repoRoot, it fails with
// *errs.PathOutsideRepository. In a bare repository (repoRoot == ""),
// the input is used verbatim.
func NormalizePathspec(repoRoot, cwd, userPath string) (string, error) {
	if repoRoot == "" {
		return filepath.ToSlash(strings.TrimPrefix(userPath, "./")), nil
	}

	abs := userPath
	if !filepath.IsAbs(abs) {
		abs = filepath.Join(cwd, userPath)
	}
	abs = filepath.Clean(abs)

	rootAbs := filepath.Clean(repoRoot)

	rel, err := filepath.Rel(rootAbs, abs)
	if err != nil {
		return "", &errs.PathOutsideRepository{Path: userPath}
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", &errs.PathOutsideRepository{Path: userPath}
	}
	if rel == "." {
		rel = ""
	}

	return filepath.ToSlash(rel), nil
}
