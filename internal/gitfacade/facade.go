// Package gitfacade wraps a local git repository's object database and
// worktree behind the narrow capability set described in spec.md §9:
// open, read_head, read_status, list_branches, read_index_blob,
// walk_tree, read_reflog, stage, commit, rename_branch, create_branch,
// switch, rebase_onto_upstream, push, delete_local, delete_remote,
// read_config.
//
// All of dah/stale/whose's logic depends only on the Facade interface;
// the production implementation (Open) calls the go-git library, tests
// use the in-memory fake in gitfacadetest.
package gitfacade

import "context"

// Facade is the narrow capability set every core package depends on.
type Facade interface {
	// Root returns the absolute worktree root, or "" for a bare repository.
	Root() string
	// IsBare reports whether the repository has no worktree.
	IsBare() bool

	Head() (HeadState, error)
	// HeadCommitMessage returns the full message of the commit HEAD
	// points at, used to derive synthesized branch names.
	HeadCommitMessage() (string, error)
	Status() (WorkingTreeStatus, error)
	Branches() ([]BranchRecord, error)
	BranchUpstream(shortName string) (BranchRecord, bool, error)

	Config(section, subsection, key string) (string, bool)
	DefaultBranch() string
	ProtectedPatterns() []string
	BranchPrefix() string

	Reflog(refName string, limit int) ([]ReflogEntry, error)

	ReadIndexBlob(path string) ([]byte, bool, error)
	WalkIndexTree(path string) ([]TreeEntry, error)

	StageTracked(ctx context.Context) error
	Commit(ctx context.Context, message string) (string, error)
	RenameBranch(ctx context.Context, newShortName string) error
	CreateBranch(ctx context.Context, shortName string) error
	Switch(ctx context.Context, shortName string) error
	RebaseOntoUpstream(ctx context.Context) error
	Push(ctx context.Context, shortName string, force bool) error
	DeleteLocalBranch(ctx context.Context, shortName string, force bool) error
	DeleteRemoteBranch(ctx context.Context, remote, shortName string) error

	// BranchRefExists reports whether refs/heads/<shortName> exists,
	// used by branch-name synthesis to avoid collisions.
	BranchRefExists(shortName string) (bool, error)
}
