// Package whosedriver glues pathspec resolution, index traversal, and
// CODEOWNERS evaluation together to answer "who owns this path".
package whosedriver

import (
	"os"

	"github.com/cobwebtools/dah/internal/codeowners"
	"github.com/cobwebtools/dah/internal/errs"
	"github.com/cobwebtools/dah/internal/gitfacade"
)

const codeownersPath = ".github/CODEOWNERS"

// Result is one resolved path with its owners, in enumeration order.
type Result struct {
	Path   string
	Owners []string
}

// Resolve normalizes each raw pathspec against the repository root,
// walks the tree of the current HEAD commit under it (via
// WalkIndexTree), and evaluates CODEOWNERS for every discovered blob.
// CODEOWNERS is likewise read from the HEAD commit. Paths that are
// staged but not yet committed are not listed, and a staged but
// uncommitted CODEOWNERS is not used. Pathspecs naming a path absent
// from that tree are silently dropped (monorepo ergonomics).
func Resolve(f gitfacade.Facade, pathspecs []string) ([]Result, error) {
	rules, err := loadRules(f)
	if err != nil {
		return nil, err
	}

	cwd := ""
	if !f.IsBare() {
		wd, err := os.Getwd()
		if err != nil {
			return nil, &errs.IoError{Op: "getwd", Err: err}
		}
		cwd = wd
	}

	var results []Result
	for _, raw := range pathspecs {
		normalized, err := codeowners.NormalizePathspec(f.Root(), cwd, raw)
		if err != nil {
			return nil, err
		}

		entries, err := f.WalkIndexTree(normalized)
		if err != nil {
			return nil, &errs.GitOperationFailed{Op: "walk index tree", Err: err}
		}

		for _, e := range entries {
			owners := codeowners.Match(rules, e.Path)
			results = append(results, Result{Path: e.Path, Owners: owners})
		}
	}

	return results, nil
}

func loadRules(f gitfacade.Facade) ([]codeowners.Rule, error) {
	blob, found, err := f.ReadIndexBlob(codeownersPath)
	if err != nil {
		return nil, &errs.GitOperationFailed{Op: "read CODEOWNERS", Err: err}
	}
	if !found {
		return nil, nil
	}
	return codeowners.ParseRules(blob)
}
