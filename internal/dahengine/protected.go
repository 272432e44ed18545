package dahengine

import (
	"path/filepath"

	"github.com/cobwebtools/dah/internal/errs"
)

// ValidateProtectedPatterns checks that every glob in patterns is
// well-formed, returning *errs.InvalidProtectedPattern for the first
// one that is not.
func ValidateProtectedPatterns(patterns []string) error {
	for _, p := range patterns {
		if _, err := filepath.Match(p, ""); err != nil {
			return &errs.InvalidProtectedPattern{Pattern: p, Err: err}
		}
	}
	return nil
}

// ProtectedSet builds the full protected-branch set of spec.md §3: the
// configured default branch plus the dah.protectedBranch glob list.
func ProtectedSet(defaultBranch string, globs []string) []string {
	set := make([]string, 0, len(globs)+1)
	set = append(set, defaultBranch)
	set = append(set, globs...)
	return set
}

// isProtected reports whether shortName matches the protected-branch
// set: the colon-separated glob list at dah.protectedBranch, using
// fnmatch semantics where "*" does not cross "/". The default branch
// itself is folded into patterns by the caller that builds Options.
func isProtected(shortName string, patterns []string) bool {
	for _, p := range patterns {
		if p == shortName {
			return true
		}
		if ok, err := filepath.Match(p, shortName); err == nil && ok {
			return true
		}
	}
	return false
}
