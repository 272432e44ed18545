package gitfacadetest

import (
	"context"
	"fmt"
	"os"
	"time"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"

	"github.com/cobwebtools/dah/internal/errs"
)

func (f *FakeFacade) sig() *object.Signature {
	s := f.identity
	s.When = time.Now()
	return &s
}

func (f *FakeFacade) StageTracked(ctx context.Context) error {
	if f.isBare {
		return nil
	}
	w, err := f.repo.Worktree()
	if err != nil {
		return err
	}
	st, err := w.Status()
	if err != nil {
		return err
	}
	for path, fs := range st {
		if fs.Worktree == gogit.Unmodified || fs.Worktree == gogit.Untracked {
			continue
		}
		if _, err := w.Add(path); err != nil {
			return err
		}
	}
	return nil
}

func (f *FakeFacade) Commit(ctx context.Context, message string) (string, error) {
	return f.commitAt(message, time.Now())
}

// CommitAt is a test-only hook letting callers control commit
// timestamps directly, since stale's age predicate needs branch tips
// at specific, deterministic times rather than "now".
func (f *FakeFacade) CommitAt(message string, when time.Time) (string, error) {
	return f.commitAt(message, when)
}

func (f *FakeFacade) commitAt(message string, when time.Time) (string, error) {
	if f.isBare {
		return "", &errs.GitOperationFailed{Op: "commit", Err: fmt.Errorf("bare repository has no worktree")}
	}
	if message == "" {
		message = f.commitMsg
	}
	w, err := f.repo.Worktree()
	if err != nil {
		return "", err
	}
	var before plumbing.Hash
	if ref, err := f.repo.Head(); err == nil {
		before = ref.Hash()
	}

	sig := f.identity
	sig.When = when
	hash, err := w.Commit(message, &gogit.CommitOptions{Author: &sig, Committer: &sig, AllowEmptyCommits: true})
	if err != nil {
		return "", err
	}

	if ref, err := f.repo.Head(); err == nil {
		f.recordReflog(ref.Name().String(), before, hash, "commit: "+message)
	}
	return hash.String(), nil
}

// renameCheckedOutBranch is used only during construction to move the
// initial commit from go-git's default "master" onto the fake's
// configured default branch name.
func (f *FakeFacade) renameCheckedOutBranch(newName string) error {
	head, err := f.repo.Head()
	if err != nil {
		return err
	}
	if head.Name().Short() == newName {
		return nil
	}
	newRef := plumbing.NewHashReference(plumbing.NewBranchReferenceName(newName), head.Hash())
	if err := f.repo.Storer.SetReference(newRef); err != nil {
		return err
	}
	w, err := f.repo.Worktree()
	if err != nil {
		return err
	}
	if err := w.Checkout(&gogit.CheckoutOptions{Branch: newRef.Name()}); err != nil {
		return err
	}
	return f.repo.Storer.RemoveReference(head.Name())
}

func (f *FakeFacade) CreateBranch(ctx context.Context, shortName string) error {
	head, err := f.repo.Head()
	if err != nil {
		return err
	}
	refName := plumbing.NewBranchReferenceName(shortName)
	if _, err := f.repo.Reference(refName, true); err == nil {
		return fmt.Errorf("branch already exists")
	}
	return f.repo.Storer.SetReference(plumbing.NewHashReference(refName, head.Hash()))
}

func (f *FakeFacade) Switch(ctx context.Context, shortName string) error {
	refName := plumbing.NewBranchReferenceName(shortName)
	if f.isBare {
		return f.repo.Storer.SetReference(plumbing.NewSymbolicReference(plumbing.HEAD, refName))
	}
	w, err := f.repo.Worktree()
	if err != nil {
		return err
	}
	return w.Checkout(&gogit.CheckoutOptions{Branch: refName})
}

func (f *FakeFacade) RenameBranch(ctx context.Context, newShortName string) error {
	head, err := f.repo.Head()
	if err != nil {
		return err
	}
	oldName := head.Name()
	newRefName := plumbing.NewBranchReferenceName(newShortName)
	if err := f.repo.Storer.SetReference(plumbing.NewHashReference(newRefName, head.Hash())); err != nil {
		return err
	}

	if !f.isBare {
		w, err := f.repo.Worktree()
		if err != nil {
			return err
		}
		if err := w.Checkout(&gogit.CheckoutOptions{Branch: newRefName}); err != nil {
			return err
		}
	} else {
		if err := f.repo.Storer.SetReference(plumbing.NewSymbolicReference(plumbing.HEAD, newRefName)); err != nil {
			return err
		}
	}
	return f.repo.Storer.RemoveReference(oldName)
}

func (f *FakeFacade) RebaseOntoUpstream(ctx context.Context) error {
	head, err := f.repo.Head()
	if err != nil {
		return err
	}
	if !head.Name().IsBranch() {
		return fmt.Errorf("HEAD is detached")
	}
	rec, hasUpstream, err := f.BranchUpstream(head.Name().Short())
	if err != nil || !hasUpstream {
		return fmt.Errorf("no upstream configured")
	}
	upstreamRef, err := f.repo.Reference(plumbing.ReferenceName(rec.Upstream), true)
	if err != nil {
		return err
	}

	headCommit, err := f.repo.CommitObject(head.Hash())
	if err != nil {
		return err
	}
	upstreamCommit, err := f.repo.CommitObject(upstreamRef.Hash())
	if err != nil {
		return err
	}
	bases, err := upstreamCommit.MergeBase(headCommit)
	if err != nil || len(bases) == 0 {
		return fmt.Errorf("no common ancestor")
	}
	base := bases[0]

	w, err := f.repo.Worktree()
	if err != nil {
		return err
	}

	if base.Hash == upstreamCommit.Hash {
		return nil
	}
	if base.Hash == headCommit.Hash {
		return w.Reset(&gogit.ResetOptions{Commit: upstreamRef.Hash(), Mode: gogit.HardReset})
	}

	var toReplay []*object.Commit
	cur := headCommit
	for cur.Hash != base.Hash {
		toReplay = append(toReplay, cur)
		if cur.NumParents() == 0 {
			break
		}
		p, err := cur.Parent(0)
		if err != nil {
			return err
		}
		cur = p
	}
	for i, j := 0, len(toReplay)-1; i < j; i, j = i+1, j-1 {
		toReplay[i], toReplay[j] = toReplay[j], toReplay[i]
	}

	if err := w.Reset(&gogit.ResetOptions{Commit: upstreamRef.Hash(), Mode: gogit.HardReset}); err != nil {
		return err
	}
	for _, c := range toReplay {
		if err := f.replay(w, c); err != nil {
			return err
		}
	}
	return nil
}

func (f *FakeFacade) replay(w *gogit.Worktree, c *object.Commit) error {
	parent, err := c.Parent(0)
	if err != nil {
		return err
	}
	parentTree, err := parent.Tree()
	if err != nil {
		return err
	}
	commitTree, err := c.Tree()
	if err != nil {
		return err
	}
	patch, err := parentTree.Patch(commitTree)
	if err != nil {
		return err
	}
	for _, fp := range patch.FilePatches() {
		from, to := fp.Files()
		if to == nil {
			if from != nil {
				_, _ = w.Remove(from.Path())
			}
			continue
		}
		file, err := c.File(to.Path())
		if err != nil {
			return err
		}
		contents, err := file.Contents()
		if err != nil {
			return err
		}
		out, err := w.Filesystem.OpenFile(to.Path(), os.O_WRONLY|os.O_TRUNC|os.O_CREATE, os.FileMode(file.Mode))
		if err != nil {
			return err
		}
		if _, err := out.Write([]byte(contents)); err != nil {
			out.Close()
			return err
		}
		out.Close()
		if _, err := w.Add(to.Path()); err != nil {
			return err
		}
	}
	committer := object.Signature{Name: c.Committer.Name, Email: c.Committer.Email, When: time.Now()}
	_, err = w.Commit(c.Message, &gogit.CommitOptions{Author: &c.Author, Committer: &committer, AllowEmptyCommits: true})
	return err
}

// Push simulates uploading shortName to its linked remote by copying
// objects and moving the ref directly, with no real network transport.
func (f *FakeFacade) Push(ctx context.Context, shortName string, force bool) error {
	remoteName, _ := f.Config("branch", shortName, "remote")
	if remoteName == "" {
		remoteName = "origin"
	}
	target, ok := f.remotes[remoteName]
	if !ok {
		return &errs.GitOperationFailed{Op: "push " + shortName, Err: fmt.Errorf("remote %s not configured", remoteName)}
	}

	refName := plumbing.NewBranchReferenceName(shortName)
	localRef, err := f.repo.Reference(refName, true)
	if err != nil {
		return err
	}

	if !force {
		if existing, err := target.repo.Reference(refName, true); err == nil {
			ff, err := isAncestor(target.repo, existing.Hash(), localRef.Hash())
			if err == nil && !ff {
				return &errs.GitOperationFailed{Op: "push " + shortName, Err: fmt.Errorf("non-fast-forward update rejected")}
			}
		}
	}

	if err := copyCommitRecursive(f.repo, target.repo, localRef.Hash()); err != nil {
		return err
	}
	if err := target.repo.Storer.SetReference(localRef); err != nil {
		return err
	}

	trackingRef := plumbing.NewRemoteReferenceName(remoteName, shortName)
	_ = f.repo.Storer.SetReference(plumbing.NewHashReference(trackingRef, localRef.Hash()))

	return f.SetUpstream(shortName, remoteName, shortName)
}

func (f *FakeFacade) DeleteLocalBranch(ctx context.Context, shortName string, force bool) error {
	refName := plumbing.NewBranchReferenceName(shortName)
	ref, err := f.repo.Reference(refName, true)
	if err != nil {
		return fmt.Errorf("branch not found")
	}
	if head, err := f.repo.Head(); err == nil && head.Name() == refName {
		return fmt.Errorf("cannot delete the currently checked out branch")
	}
	if !force {
		rec, hasUpstream, _ := f.BranchUpstream(shortName)
		if hasUpstream {
			if upstreamRef, err := f.repo.Reference(plumbing.ReferenceName(rec.Upstream), true); err == nil {
				merged, err := isAncestor(f.repo, ref.Hash(), upstreamRef.Hash())
				if err == nil && !merged {
					return fmt.Errorf("branch is not fully merged")
				}
			}
		}
	}
	return f.repo.Storer.RemoveReference(refName)
}

func (f *FakeFacade) DeleteRemoteBranch(ctx context.Context, remote, shortName string) error {
	target, ok := f.remotes[remote]
	if !ok {
		return fmt.Errorf("remote %s not configured", remote)
	}
	refName := plumbing.NewBranchReferenceName(shortName)
	if err := target.repo.Storer.RemoveReference(refName); err != nil && err != plumbing.ErrReferenceNotFound {
		return err
	}
	_ = f.repo.Storer.RemoveReference(plumbing.NewRemoteReferenceName(remote, shortName))
	return nil
}

func isAncestor(repo *gogit.Repository, a, b plumbing.Hash) (bool, error) {
	if a == b {
		return true, nil
	}
	bCommit, err := repo.CommitObject(b)
	if err != nil {
		return false, err
	}
	aCommit, err := repo.CommitObject(a)
	if err != nil {
		return false, err
	}
	bases, err := aCommit.MergeBase(bCommit)
	if err != nil {
		return false, err
	}
	for _, base := range bases {
		if base.Hash == a {
			return true, nil
		}
	}
	return false, nil
}

// copyCommitRecursive copies a commit and everything it reaches
// (trees, blobs, parents) from src into dst, skipping objects dst
// already has.
func copyCommitRecursive(src, dst *gogit.Repository, hash plumbing.Hash) error {
	if _, err := dst.Storer.EncodedObject(plumbing.AnyObject, hash); err == nil {
		return nil
	}
	commit, err := src.CommitObject(hash)
	if err != nil {
		return err
	}

	if err := copyTreeRecursive(src, dst, commit.TreeHash); err != nil {
		return err
	}
	for _, p := range commit.ParentHashes {
		if err := copyCommitRecursive(src, dst, p); err != nil {
			return err
		}
	}

	obj, err := src.Storer.EncodedObject(plumbing.CommitObject, hash)
	if err != nil {
		return err
	}
	_, err = dst.Storer.SetEncodedObject(obj)
	return err
}

func copyTreeRecursive(src, dst *gogit.Repository, hash plumbing.Hash) error {
	if _, err := dst.Storer.EncodedObject(plumbing.AnyObject, hash); err == nil {
		return nil
	}
	tree, err := src.TreeObject(hash)
	if err != nil {
		return err
	}
	for _, entry := range tree.Entries {
		if entry.Mode.IsFile() {
			if _, err := dst.Storer.EncodedObject(plumbing.BlobObject, entry.Hash); err == nil {
				continue
			}
			obj, err := src.Storer.EncodedObject(plumbing.BlobObject, entry.Hash)
			if err != nil {
				return err
			}
			if _, err := dst.Storer.SetEncodedObject(obj); err != nil {
				return err
			}
		} else {
			if err := copyTreeRecursive(src, dst, entry.Hash); err != nil {
				return err
			}
		}
	}
	obj, err := src.Storer.EncodedObject(plumbing.TreeObject, hash)
	if err != nil {
		return err
	}
	_, err = dst.Storer.SetEncodedObject(obj)
	return err
}
