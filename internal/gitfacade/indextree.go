package gitfacade

import (
	"io"
	"strings"

	"github.com/go-git/go-git/v5/plumbing/filemode"
	"github.com/go-git/go-git/v5/plumbing/object"

	"github.com/cobwebtools/dah/internal/errs"
)

// headTree resolves the tree of the current HEAD commit — the
// checked-out snapshot whose reads against, whether or not the
// repository has a worktree.
func (f *realFacade) headTree() (*object.Tree, error) {
	ref, err := f.repo.Head()
	if err != nil {
		return nil, &errs.GitOperationFailed{Op: "read HEAD", Err: err}
	}
	commit, err := f.repo.CommitObject(ref.Hash())
	if err != nil {
		return nil, &errs.GitOperationFailed{Op: "resolve HEAD commit", Err: err}
	}
	tree, err := commit.Tree()
	if err != nil {
		return nil, &errs.GitOperationFailed{Op: "resolve HEAD tree", Err: err}
	}
	return tree, nil
}

// ReadIndexBlob returns the file contents at path in the current HEAD
// tree, used to locate and parse CODEOWNERS.
func (f *realFacade) ReadIndexBlob(path string) ([]byte, bool, error) {
	tree, err := f.headTree()
	if err != nil {
		return nil, false, err
	}

	entry, err := tree.File(strings.TrimPrefix(path, "/"))
	if err != nil {
		return nil, false, nil
	}

	reader, err := entry.Reader()
	if err != nil {
		return nil, false, &errs.GitOperationFailed{Op: "open blob " + path, Err: err}
	}
	defer reader.Close()

	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, false, &errs.GitOperationFailed{Op: "read blob " + path, Err: err}
	}
	return data, true, nil
}

// WalkIndexTree enumerates every tracked blob under path (a "" path
// means the whole tree) in the current HEAD tree, depth first.
func (f *realFacade) WalkIndexTree(path string) ([]TreeEntry, error) {
	tree, err := f.headTree()
	if err != nil {
		return nil, err
	}

	root := tree
	prefix := strings.TrimPrefix(strings.TrimSuffix(path, "/"), "/")
	if prefix != "" {
		sub, err := tree.Tree(prefix)
		if err != nil {
			// Not a directory: maybe it names a single file.
			if entry, ferr := tree.File(prefix); ferr == nil {
				return []TreeEntry{{Path: prefix, Mode: uint32(entry.Mode)}}, nil
			}
			return nil, nil
		}
		root = sub
	}

	var out []TreeEntry
	walker := object.NewTreeWalker(root, true, nil)
	defer walker.Close()
	for {
		name, entry, err := walker.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, &errs.GitOperationFailed{Op: "walk tree", Err: err}
		}
		if entry.Mode == filemode.Dir {
			continue
		}
		full := name
		if prefix != "" {
			full = prefix + "/" + name
		}
		out = append(out, TreeEntry{Path: full, Mode: uint32(entry.Mode)})
	}
	return out, nil
}
