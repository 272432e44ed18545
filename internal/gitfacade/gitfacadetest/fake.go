// Package gitfacadetest provides an in-memory implementation of
// gitfacade.Facade for unit tests: a memfs worktree over an in-memory
// object store, with no real .git directory on disk.
package gitfacadetest

import (
	"context"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/memfs"
	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/filemode"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/storage/memory"

	"github.com/cobwebtools/dah/internal/errs"
	"github.com/cobwebtools/dah/internal/gitfacade"
)

// FakeFacade is an in-memory gitfacade.Facade. Tests build one with
// New or NewBare, populate the worktree through its Filesystem, and
// drive it through the same Facade methods production code uses.
type FakeFacade struct {
	repo   *gogit.Repository
	fs     billy.Filesystem
	isBare bool
	root   string // a real, absolute directory standing in for the worktree root

	defaultBranch string
	protected     []string
	branchPrefix  string
	commitMsg     string

	reflog  map[string][]gitfacade.ReflogEntry
	remotes map[string]*FakeFacade

	identity object.Signature
}

var _ gitfacade.Facade = (*FakeFacade)(nil)

// New creates an empty non-bare repository with an initial empty
// commit on the default branch, matching the shape tests need to then
// layer files and branches onto.
func New() (*FakeFacade, error) {
	return newFake(false)
}

// NewBare creates an empty bare repository, for exercising server-side
// scenarios (stale-branch cleanup against a shared remote, for example).
func NewBare() (*FakeFacade, error) {
	return newFake(true)
}

func newFake(bare bool) (*FakeFacade, error) {
	st := memory.NewStorage()
	var fs billy.Filesystem
	var repo *gogit.Repository
	var err error

	if bare {
		repo, err = gogit.Init(st, nil)
	} else {
		fs = memfs.New()
		repo, err = gogit.Init(st, fs)
	}
	if err != nil {
		return nil, err
	}

	var root string
	if !bare {
		// Pathspec normalization resolves relative paths against both a
		// cwd and this root; stand in with the process's real cwd so
		// callers can pass ordinary relative pathspecs in tests, the
		// same way they would against a real checkout.
		wd, err := os.Getwd()
		if err != nil {
			return nil, err
		}
		root = wd
	}

	f := &FakeFacade{
		repo:          repo,
		fs:            fs,
		isBare:        bare,
		root:          root,
		defaultBranch: "main",
		commitMsg:     "dah: automated commit",
		reflog:        make(map[string][]gitfacade.ReflogEntry),
		remotes:       make(map[string]*FakeFacade),
		identity:      object.Signature{Name: "Test User", Email: "test@example.com"},
	}

	if !bare {
		if _, err := f.Commit(context.Background(), "initial commit"); err != nil {
			return nil, err
		}
		if err := f.renameCheckedOutBranch("main"); err != nil {
			return nil, err
		}
	}

	return f, nil
}

// Filesystem exposes the in-memory worktree so tests can write files
// directly before staging them.
func (f *FakeFacade) Filesystem() billy.Filesystem { return f.fs }

// Repo exposes the underlying go-git repository for assertions and
// for linking fakes together as simulated remotes.
func (f *FakeFacade) Repo() *gogit.Repository { return f.repo }

// SetDefaultBranch overrides init.defaultBranch for this fake.
func (f *FakeFacade) SetDefaultBranch(name string) { f.defaultBranch = name }

// SetProtectedPatterns overrides dah.protectedBranch for this fake.
func (f *FakeFacade) SetProtectedPatterns(patterns ...string) { f.protected = patterns }

// SetBranchPrefix overrides dah.branchPrefix for this fake.
func (f *FakeFacade) SetBranchPrefix(prefix string) { f.branchPrefix = prefix }

// LinkRemote registers target as remoteName's remote, so Push and
// DeleteRemoteBranch can simulate network transfer the way the
// teacher's push command copied objects between in-memory repositories
// rather than performing real network I/O.
func (f *FakeFacade) LinkRemote(remoteName string, target *FakeFacade) error {
	f.remotes[remoteName] = target
	return f.repo.Storer.SetConfig(remoteConfig(f.repo, remoteName))
}

func remoteConfig(repo *gogit.Repository, remoteName string) *config.Config {
	cfg, _ := repo.Config()
	if cfg == nil {
		cfg = config.NewConfig()
	}
	if _, ok := cfg.Remotes[remoteName]; !ok {
		cfg.Remotes[remoteName] = &config.RemoteConfig{Name: remoteName, URLs: []string{"fake://" + remoteName}}
	}
	return cfg
}

// SetUpstream configures branch.<shortName>.remote/.merge, the way
// `git branch --set-upstream-to` would.
func (f *FakeFacade) SetUpstream(shortName, remote, remoteBranch string) error {
	cfg, err := f.repo.Config()
	if err != nil {
		return err
	}
	if cfg.Branches == nil {
		cfg.Branches = make(map[string]*config.Branch)
	}
	cfg.Branches[shortName] = &config.Branch{
		Name:   shortName,
		Remote: remote,
		Merge:  plumbing.NewBranchReferenceName(remoteBranch),
	}
	return f.repo.Storer.SetConfig(cfg)
}

func (f *FakeFacade) Root() string {
	return f.root
}
func (f *FakeFacade) IsBare() bool { return f.isBare }

func (f *FakeFacade) Head() (gitfacade.HeadState, error) {
	ref, err := f.repo.Head()
	if err != nil {
		return gitfacade.HeadState{}, &errs.GitOperationFailed{Op: "read HEAD", Err: err}
	}
	if !ref.Name().IsBranch() {
		return gitfacade.HeadState{Detached: true, CommitID: ref.Hash().String()}, nil
	}
	return gitfacade.HeadState{
		CommitID:  ref.Hash().String(),
		RefName:   ref.Name().String(),
		ShortName: ref.Name().Short(),
	}, nil
}

func (f *FakeFacade) HeadCommitMessage() (string, error) {
	ref, err := f.repo.Head()
	if err != nil {
		return "", err
	}
	commit, err := f.repo.CommitObject(ref.Hash())
	if err != nil {
		return "", err
	}
	return commit.Message, nil
}

func (f *FakeFacade) Status() (gitfacade.WorkingTreeStatus, error) {
	if f.isBare {
		return gitfacade.StatusClean, nil
	}
	w, err := f.repo.Worktree()
	if err != nil {
		return gitfacade.StatusClean, err
	}
	st, err := w.Status()
	if err != nil {
		return gitfacade.StatusClean, err
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
		return gitfacade.StatusConflicted, nil
	case dirty && staged:
		return gitfacade.StatusDirtyStaged, nil
	case dirty:
		return gitfacade.StatusDirty, nil
	case staged:
		return gitfacade.StatusStaged, nil
	default:
		return gitfacade.StatusClean, nil
	}
}

func (f *FakeFacade) Branches() ([]gitfacade.BranchRecord, error) {
	iter, err := f.repo.Branches()
	if err != nil {
		return nil, err
	}
	var out []gitfacade.BranchRecord
	err = iter.ForEach(func(ref *plumbing.Reference) error {
		rec, err := f.branchRecord(ref)
		if err != nil {
			return err
		}
		out = append(out, rec)
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ShortName < out[j].ShortName })
	return out, nil
}

func (f *FakeFacade) BranchUpstream(shortName string) (gitfacade.BranchRecord, bool, error) {
	ref, err := f.repo.Reference(plumbing.NewBranchReferenceName(shortName), true)
	if err != nil {
		return gitfacade.BranchRecord{}, false, &errs.GitOperationFailed{Op: "resolve branch " + shortName, Err: err}
	}
	rec, err := f.branchRecord(ref)
	return rec, rec.HasUpstream, err
}

func (f *FakeFacade) branchRecord(ref *plumbing.Reference) (gitfacade.BranchRecord, error) {
	rec := gitfacade.BranchRecord{FullRef: ref.Name().String(), ShortName: ref.Name().Short()}

	headCommit, err := f.repo.CommitObject(ref.Hash())
	if err == nil {
		rec.TipTime = headCommit.Committer.When
		rec.TipCommitID = headCommit.Hash.String()
	}

	cfg, err := f.repo.Config()
	if err != nil {
		return rec, nil
	}
	b, ok := cfg.Branches[rec.ShortName]
	if !ok || b.Remote == "" || b.Merge == "" {
		return rec, nil
	}
	rec.HasUpstream = true

	var upstreamRefName plumbing.ReferenceName
	if b.Remote == "." {
		upstreamRefName = b.Merge
	} else {
		upstreamRefName = plumbing.NewRemoteReferenceName(b.Remote, b.Merge.Short())
	}
	upstreamRef, err := f.repo.Reference(upstreamRefName, true)
	if err != nil {
		rec.Upstream = upstreamRefName.String()
		return rec, nil
	}
	rec.Upstream = upstreamRef.Name().String()

	if headCommit == nil {
		return rec, nil
	}
	upstreamCommit, err := f.repo.CommitObject(upstreamRef.Hash())
	if err != nil {
		return rec, nil
	}
	rec.UpstreamCommitID = upstreamCommit.Hash.String()
	if headCommit.Hash != upstreamCommit.Hash {
		bases, err := headCommit.MergeBase(upstreamCommit)
		if err == nil && len(bases) > 0 {
			rec.Ahead = countTo(headCommit, bases[0].Hash)
			rec.Behind = countTo(upstreamCommit, bases[0].Hash)
		}
	}
	return rec, nil
}

func countTo(from *object.Commit, base plumbing.Hash) int {
	count := 0
	cur := from
	for cur.Hash != base {
		count++
		if cur.NumParents() == 0 {
			break
		}
		next, err := cur.Parent(0)
		if err != nil {
			break
		}
		cur = next
	}
	return count
}

func (f *FakeFacade) BranchRefExists(shortName string) (bool, error) {
	_, err := f.repo.Reference(plumbing.NewBranchReferenceName(shortName), true)
	if err == nil {
		return true, nil
	}
	if err == plumbing.ErrReferenceNotFound {
		return false, nil
	}
	return false, err
}

func (f *FakeFacade) Config(section, subsection, key string) (string, bool) {
	cfg, err := f.repo.Config()
	if err != nil || cfg.Raw == nil {
		return "", false
	}
	sec := cfg.Raw.Section(section)
	if subsection != "" {
		sub := sec.Subsection(subsection)
		if !sub.HasOption(key) {
			return "", false
		}
		return sub.Option(key), true
	}
	if !sec.HasOption(key) {
		return "", false
	}
	return sec.Option(key), true
}

func (f *FakeFacade) DefaultBranch() string       { return f.defaultBranch }
func (f *FakeFacade) ProtectedPatterns() []string { return f.protected }
func (f *FakeFacade) BranchPrefix() string        { return f.branchPrefix }

func (f *FakeFacade) Reflog(refName string, limit int) ([]gitfacade.ReflogEntry, error) {
	entries := f.reflog[refName]
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	out := make([]gitfacade.ReflogEntry, len(entries))
	copy(out, entries)
	return out, nil
}

func (f *FakeFacade) recordReflog(refName string, oldHash, newHash plumbing.Hash, message string) {
	entry := gitfacade.ReflogEntry{OldHash: oldHash.String(), NewHash: newHash.String(), Message: message, When: time.Now()}
	f.reflog[refName] = append([]gitfacade.ReflogEntry{entry}, f.reflog[refName]...)
}

func (f *FakeFacade) headTree() (*object.Tree, error) {
	ref, err := f.repo.Head()
	if err != nil {
		return nil, err
	}
	commit, err := f.repo.CommitObject(ref.Hash())
	if err != nil {
		return nil, err
	}
	return commit.Tree()
}

func (f *FakeFacade) ReadIndexBlob(path string) ([]byte, bool, error) {
	tree, err := f.headTree()
	if err != nil {
		return nil, false, nil
	}
	entry, err := tree.File(strings.TrimPrefix(path, "/"))
	if err != nil {
		return nil, false, nil
	}
	r, err := entry.Reader()
	if err != nil {
		return nil, false, err
	}
	defer r.Close()
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, false, err
	}
	return data, true, nil
}

func (f *FakeFacade) WalkIndexTree(path string) ([]gitfacade.TreeEntry, error) {
	tree, err := f.headTree()
	if err != nil {
		return nil, nil
	}
	root := tree
	prefix := strings.TrimPrefix(strings.TrimSuffix(path, "/"), "/")
	if prefix != "" {
		sub, err := tree.Tree(prefix)
		if err != nil {
			if entry, ferr := tree.File(prefix); ferr == nil {
				return []gitfacade.TreeEntry{{Path: prefix, Mode: uint32(entry.Mode)}}, nil
			}
			return nil, nil
		}
		root = sub
	}

	var out []gitfacade.TreeEntry
	walker := object.NewTreeWalker(root, true, nil)
	defer walker.Close()
	for {
		name, entry, err := walker.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		if entry.Mode == filemode.Dir {
			continue
		}
		full := name
		if prefix != "" {
			full = prefix + "/" + name
		}
		out = append(out, gitfacade.TreeEntry{Path: full, Mode: uint32(entry.Mode)})
	}
	return out, nil
}
