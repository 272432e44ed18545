package gitfacade

import (
	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"

	"github.com/cobwebtools/dah/internal/errs"
)

// Head reads HEAD, reporting either a detached commit or the branch it
// points at.
func (f *realFacade) Head() (HeadState, error) {
	ref, err := f.repo.Head()
	if err != nil {
		return HeadState{}, &errs.GitOperationFailed{Op: "read HEAD", Err: err}
	}

	if ref.Name() == plumbing.HEAD || !ref.Name().IsBranch() {
		return HeadState{Detached: true, CommitID: ref.Hash().String()}, nil
	}

	return HeadState{
		Detached:  false,
		CommitID:  ref.Hash().String(),
		RefName:   ref.Name().String(),
		ShortName: ref.Name().Short(),
	}, nil
}

// HeadCommitMessage returns the full message of HEAD's commit.
func (f *realFacade) HeadCommitMessage() (string, error) {
	ref, err := f.repo.Head()
	if err != nil {
		return "", &errs.GitOperationFailed{Op: "read HEAD", Err: err}
	}
	commit, err := f.repo.CommitObject(ref.Hash())
	if err != nil {
		return "", &errs.GitOperationFailed{Op: "resolve HEAD commit", Err: err}
	}
	return commit.Message, nil
}

// Status classifies the worktree into the multi-valued flag of spec.md
// §3: clean, dirty, staged, dirty+staged, or conflicted.
func (f *realFacade) Status() (WorkingTreeStatus, error) {
	if f.isBare {
		return StatusClean, nil
	}

	w, err := f.repo.Worktree()
	if err != nil {
		return StatusClean, &errs.GitOperationFailed{Op: "open worktree", Err: err}
	}

	st, err := w.Status()
	if err != nil {
		return StatusClean, &errs.GitOperationFailed{Op: "read status", Err: err}
	}

	var dirty, staged, conflicted bool
	for _, fs := range st {
		if fs.Staging == gogit.UpdatedButUnmerged || fs.Worktree == gogit.UpdatedButUnmerged {
			conflicted = true
		}
		if fs.Worktree != gogit.Unmodified && fs.Worktree != gogit.Untracked {
			dirty = true
		}
		if fs.Staging != gogit.Unmodified && fs.Staging != gogit.Untracked {
			staged = true
		}
	}

	switch {
	case conflicted:
		return StatusConflicted, nil
	case dirty && staged:
		return StatusDirtyStaged, nil
	case dirty:
		return StatusDirty, nil
	case staged:
		return StatusStaged, nil
	default:
		return StatusClean, nil
	}
}
