package gitfacade

import (
	"context"
	"fmt"
	"os"
	"time"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/plumbing/transport"

	"github.com/cobwebtools/dah/internal/errs"
)

// signature builds the author/committer identity for commits dah
// makes on the caller's behalf, preferring the repository's own
// user.name/user.email configuration over a fixed placeholder.
func (f *realFacade) signature() *object.Signature {
	name, _ := f.Config("user", "", "name")
	email, _ := f.Config("user", "", "email")
	if name == "" {
		name = "dah"
	}
	if email == "" {
		email = "dah@localhost"
	}
	return &object.Signature{Name: name, Email: email, When: time.Now()}
}

// StageTracked stages modifications and deletions to already-tracked
// files, equivalent to `git add -u`: new, untracked files are left
// alone.
func (f *realFacade) StageTracked(ctx context.Context) error {
	w, err := f.repo.Worktree()
	if err != nil {
		return &errs.GitOperationFailed{Op: "open worktree", Err: err}
	}

	st, err := w.Status()
	if err != nil {
		return &errs.GitOperationFailed{Op: "read status", Err: err}
	}

	for path, fs := range st {
		if fs.Worktree == gogit.Unmodified || fs.Worktree == gogit.Untracked {
			continue
		}
		if _, err := w.Add(path); err != nil {
			return &errs.GitOperationFailed{Op: "stage " + path, Err: err}
		}
	}
	return nil
}

// Commit records a new commit from the current index over HEAD. An
// empty message falls back to dah.commitMessage (or a fixed default),
// since dah runs non-interactively and cannot open an editor.
func (f *realFacade) Commit(ctx context.Context, message string) (string, error) {
	if message == "" {
		message = f.commitMessage()
	}

	w, err := f.repo.Worktree()
	if err != nil {
		return "", &errs.GitOperationFailed{Op: "open worktree", Err: err}
	}

	sig := f.signature()
	hash, err := w.Commit(message, &gogit.CommitOptions{
		Author:    sig,
		Committer: sig,
	})
	if err != nil {
		return "", &errs.GitOperationFailed{Op: "commit", Err: err}
	}
	return hash.String(), nil
}

// CreateBranch creates a new local branch at the current HEAD without
// switching to it.
func (f *realFacade) CreateBranch(ctx context.Context, shortName string) error {
	head, err := f.repo.Head()
	if err != nil {
		return &errs.GitOperationFailed{Op: "read HEAD", Err: err}
	}
	refName := plumbing.NewBranchReferenceName(shortName)
	if _, err := f.repo.Reference(refName, true); err == nil {
		return &errs.GitOperationFailed{Op: "create branch " + shortName, Err: fmt.Errorf("branch already exists")}
	}
	if err := f.repo.Storer.SetReference(plumbing.NewHashReference(refName, head.Hash())); err != nil {
		return &errs.GitOperationFailed{Op: "create branch " + shortName, Err: err}
	}
	return nil
}

// Switch moves HEAD (and the worktree, if any) onto an existing local
// branch.
func (f *realFacade) Switch(ctx context.Context, shortName string) error {
	refName := plumbing.NewBranchReferenceName(shortName)
	if f.isBare {
		head := plumbing.NewSymbolicReference(plumbing.HEAD, refName)
		if err := f.repo.Storer.SetReference(head); err != nil {
			return &errs.GitOperationFailed{Op: "switch to " + shortName, Err: err}
		}
		return nil
	}

	w, err := f.repo.Worktree()
	if err != nil {
		return &errs.GitOperationFailed{Op: "open worktree", Err: err}
	}
	if err := w.Checkout(&gogit.CheckoutOptions{Branch: refName}); err != nil {
		return &errs.GitOperationFailed{Op: "switch to " + shortName, Err: err}
	}
	return nil
}

// RenameBranch renames the branch currently checked out to newShortName,
// preserving its upstream configuration under the new name.
func (f *realFacade) RenameBranch(ctx context.Context, newShortName string) error {
	head, err := f.repo.Head()
	if err != nil {
		return &errs.GitOperationFailed{Op: "read HEAD", Err: err}
	}
	if !head.Name().IsBranch() {
		return &errs.GitOperationFailed{Op: "rename branch", Err: fmt.Errorf("HEAD is detached")}
	}
	oldName := head.Name()
	newRefName := plumbing.NewBranchReferenceName(newShortName)

	if err := f.repo.Storer.SetReference(plumbing.NewHashReference(newRefName, head.Hash())); err != nil {
		return &errs.GitOperationFailed{Op: "rename branch", Err: err}
	}

	cfg, err := f.repo.Config()
	if err == nil {
		if b, ok := cfg.Branches[oldName.Short()]; ok {
			nb := *b
			nb.Name = newShortName
			delete(cfg.Branches, oldName.Short())
			cfg.Branches[newShortName] = &nb
			_ = f.repo.Storer.SetConfig(cfg)
		}
	}

	if !f.isBare {
		w, err := f.repo.Worktree()
		if err != nil {
			return &errs.GitOperationFailed{Op: "open worktree", Err: err}
		}
		if err := w.Checkout(&gogit.CheckoutOptions{Branch: newRefName}); err != nil {
			return &errs.GitOperationFailed{Op: "rename branch", Err: err}
		}
	} else {
		if err := f.repo.Storer.SetReference(plumbing.NewSymbolicReference(plumbing.HEAD, newRefName)); err != nil {
			return &errs.GitOperationFailed{Op: "rename branch", Err: err}
		}
	}

	if err := f.repo.Storer.RemoveReference(oldName); err != nil {
		return &errs.GitOperationFailed{Op: "rename branch", Err: err}
	}
	return nil
}

// RebaseOntoUpstream replays the commits unique to HEAD on top of its
// configured upstream, via hard-reset-then-cherry-pick — go-git has no
// native rebase porcelain. Author identity of each replayed commit is
// preserved from the original.
func (f *realFacade) RebaseOntoUpstream(ctx context.Context) error {
	head, err := f.repo.Head()
	if err != nil {
		return &errs.GitOperationFailed{Op: "read HEAD", Err: err}
	}
	if !head.Name().IsBranch() {
		return &errs.GitOperationFailed{Op: "rebase", Err: fmt.Errorf("HEAD is detached")}
	}

	upstreamRefName, ok := f.upstreamRefName(head.Name().Short())
	if !ok {
		return &errs.GitOperationFailed{Op: "rebase", Err: fmt.Errorf("no upstream configured")}
	}
	upstreamRef, err := f.repo.Reference(upstreamRefName, true)
	if err != nil {
		return &errs.GitOperationFailed{Op: "rebase", Err: fmt.Errorf("upstream ref %s not found", upstreamRefName)}
	}

	headCommit, err := f.repo.CommitObject(head.Hash())
	if err != nil {
		return &errs.GitOperationFailed{Op: "rebase", Err: err}
	}
	upstreamCommit, err := f.repo.CommitObject(upstreamRef.Hash())
	if err != nil {
		return &errs.GitOperationFailed{Op: "rebase", Err: err}
	}

	bases, err := upstreamCommit.MergeBase(headCommit)
	if err != nil {
		return &errs.GitOperationFailed{Op: "rebase: find merge base", Err: err}
	}
	if len(bases) == 0 {
		return &errs.GitOperationFailed{Op: "rebase", Err: fmt.Errorf("no common ancestor with upstream")}
	}
	base := bases[0]

	if base.Hash == headCommit.Hash || base.Hash == upstreamCommit.Hash {
		// Already up to date, or a pure fast-forward: just move the ref.
		w, err := f.repo.Worktree()
		if err != nil {
			return &errs.GitOperationFailed{Op: "open worktree", Err: err}
		}
		if base.Hash == upstreamCommit.Hash {
			return nil
		}
		if err := w.Reset(&gogit.ResetOptions{Commit: upstreamRef.Hash(), Mode: gogit.HardReset}); err != nil {
			return &errs.GitOperationFailed{Op: "rebase: fast-forward", Err: err}
		}
		return nil
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
			return &errs.GitOperationFailed{Op: "rebase: walk history", Err: err}
		}
		cur = p
	}
	for i, j := 0, len(toReplay)-1; i < j; i, j = i+1, j-1 {
		toReplay[i], toReplay[j] = toReplay[j], toReplay[i]
	}

	w, err := f.repo.Worktree()
	if err != nil {
		return &errs.GitOperationFailed{Op: "open worktree", Err: err}
	}
	if err := w.Reset(&gogit.ResetOptions{Commit: upstreamRef.Hash(), Mode: gogit.HardReset}); err != nil {
		return &errs.GitOperationFailed{Op: "rebase: reset onto upstream", Err: err}
	}

	for _, c := range toReplay {
		if err := replayCommit(w, c); err != nil {
			return &errs.GitOperationFailed{Op: "rebase: replay " + c.Hash.String()[:7], Err: err}
		}
	}
	return nil
}

// replayCommit applies c's tree changes (relative to its first parent)
// onto the current worktree and commits them, preserving c's original
// author and message — cherry-picking without go-git's absent rebase
// porcelain.
func replayCommit(w *gogit.Worktree, c *object.Commit) error {
	if c.NumParents() == 0 {
		return fmt.Errorf("cannot replay a root commit")
	}
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
				_ = w.Filesystem.Remove(from.Path())
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
	_, err = w.Commit(c.Message, &gogit.CommitOptions{
		Author:            &c.Author,
		Committer:         &committer,
		AllowEmptyCommits: true,
	})
	return err
}

// Push uploads shortName to its remote, defaulting to "origin" when no
// upstream is configured yet — the ordinary case for a branch dah just
// created or renamed, which has no branch.<name>.remote/.merge until
// its first push. It then establishes (or re-establishes) tracking for
// <short-name> against refs/heads/<short-name> on that remote,
// overwriting any upstream configuration inherited from a prior branch
// name. When force is true, it approximates --force-with-lease: it
// refetches <remote>/<short-name> immediately beforehand and refuses to
// push if that ref has moved past what was last recorded there.
func (f *realFacade) Push(ctx context.Context, shortName string, force bool) error {
	remoteName, _ := f.Config("branch", shortName, "remote")
	if remoteName == "" {
		remoteName = "origin"
	}
	remoteTrackingRef := plumbing.NewRemoteReferenceName(remoteName, shortName)

	if force {
		leaseRef, leaseErr := f.repo.Reference(remoteTrackingRef, true)
		if err := f.repo.Fetch(&gogit.FetchOptions{RemoteName: remoteName}); err != nil && err != gogit.NoErrAlreadyUpToDate {
			return &errs.GitOperationFailed{Op: "push: refresh remote state", Err: err}
		}
		freshRef, err := f.repo.Reference(remoteTrackingRef, true)
		if leaseErr == nil && err == nil && freshRef.Hash() != leaseRef.Hash() {
			return &errs.GitOperationFailed{Op: "push " + shortName, Err: fmt.Errorf("remote has diverged since last seen, refusing force push")}
		}
	}

	refName := plumbing.NewBranchReferenceName(shortName)
	refSpec := config.RefSpec(fmt.Sprintf("%s%s:%s", forcePrefix(force), refName, refName))

	err := f.repo.Push(&gogit.PushOptions{
		RemoteName: remoteName,
		RefSpecs:   []config.RefSpec{refSpec},
		Force:      force,
	})
	if err != nil && err != gogit.NoErrAlreadyUpToDate {
		if err == transport.ErrAuthenticationRequired {
			return &errs.GitOperationFailed{Op: "push " + shortName, Err: fmt.Errorf("authentication required for remote %s", remoteName)}
		}
		return &errs.GitOperationFailed{Op: "push " + shortName, Err: err}
	}

	if err := f.setUpstream(shortName, remoteName); err != nil {
		return &errs.GitOperationFailed{Op: "push " + shortName, Err: err}
	}
	return nil
}

// setUpstream writes branch.<shortName>.remote/.merge so the branch
// tracks refs/heads/<shortName> on remoteName, replacing any upstream
// configuration the branch had before.
func (f *realFacade) setUpstream(shortName, remoteName string) error {
	cfg, err := f.repo.Config()
	if err != nil {
		return err
	}
	if cfg.Branches == nil {
		cfg.Branches = make(map[string]*config.Branch)
	}
	cfg.Branches[shortName] = &config.Branch{
		Name:   shortName,
		Remote: remoteName,
		Merge:  plumbing.NewBranchReferenceName(shortName),
	}
	return f.repo.Storer.SetConfig(cfg)
}

func forcePrefix(force bool) string {
	if force {
		return "+"
	}
	return ""
}

// DeleteLocalBranch removes a local branch ref. It refuses to delete
// the currently checked-out branch, and (unless force) a branch that
// is not fully merged into its upstream.
func (f *realFacade) DeleteLocalBranch(ctx context.Context, shortName string, force bool) error {
	refName := plumbing.NewBranchReferenceName(shortName)
	ref, err := f.repo.Reference(refName, true)
	if err != nil {
		return &errs.GitOperationFailed{Op: "delete branch " + shortName, Err: fmt.Errorf("branch not found")}
	}

	if head, err := f.repo.Head(); err == nil && head.Name() == refName {
		return &errs.GitOperationFailed{Op: "delete branch " + shortName, Err: fmt.Errorf("cannot delete the currently checked out branch")}
	}

	if !force {
		if upstreamName, ok := f.upstreamRefName(shortName); ok {
			if upstreamRef, err := f.repo.Reference(upstreamName, true); err == nil {
				merged, err := isAncestor(f.repo, ref.Hash(), upstreamRef.Hash())
				if err == nil && !merged {
					return &errs.GitOperationFailed{Op: "delete branch " + shortName, Err: fmt.Errorf("branch is not fully merged")}
				}
			}
		}
	}

	if err := f.repo.Storer.RemoveReference(refName); err != nil {
		return &errs.GitOperationFailed{Op: "delete branch " + shortName, Err: err}
	}
	return nil
}

// DeleteRemoteBranch deletes shortName on remote via a push with an
// empty source side of the refspec.
func (f *realFacade) DeleteRemoteBranch(ctx context.Context, remote, shortName string) error {
	refName := plumbing.NewBranchReferenceName(shortName)
	refSpec := config.RefSpec(fmt.Sprintf(":%s", refName))

	err := f.repo.Push(&gogit.PushOptions{
		RemoteName: remote,
		RefSpecs:   []config.RefSpec{refSpec},
	})
	if err != nil && err != gogit.NoErrAlreadyUpToDate {
		if err == transport.ErrAuthenticationRequired {
			return &errs.GitOperationFailed{Op: "delete remote branch " + shortName, Err: fmt.Errorf("authentication required for remote %s", remote)}
		}
		return &errs.GitOperationFailed{Op: "delete remote branch " + shortName, Err: err}
	}

	localRemoteRef := plumbing.NewRemoteReferenceName(remote, shortName)
	_ = f.repo.Storer.RemoveReference(localRemoteRef)
	return nil
}

// isAncestor reports whether commit `a` is reachable from `b` by
// first-parent-or-merge ancestry, i.e. whether a branch tipped at a
// is fully merged into b.
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
