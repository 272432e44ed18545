package gitfacade

import (
	"fmt"
	"sort"

	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"

	"github.com/cobwebtools/dah/internal/errs"
)

// Branches enumerates all local branches, sorted by short name.
func (f *realFacade) Branches() ([]BranchRecord, error) {
	iter, err := f.repo.Branches()
	if err != nil {
		return nil, &errs.GitOperationFailed{Op: "list branches", Err: err}
	}

	var out []BranchRecord
	err = iter.ForEach(func(ref *plumbing.Reference) error {
		rec, err := f.branchRecord(ref)
		if err != nil {
			return err
		}
		out = append(out, rec)
		return nil
	})
	if err != nil {
		return nil, &errs.GitOperationFailed{Op: "list branches", Err: err}
	}

	sort.Slice(out, func(i, j int) bool { return out[i].ShortName < out[j].ShortName })
	return out, nil
}

// BranchUpstream resolves the configured upstream of shortName and its
// ahead/behind counts relative to the local branch tip.
func (f *realFacade) BranchUpstream(shortName string) (BranchRecord, bool, error) {
	ref, err := f.repo.Reference(plumbing.NewBranchReferenceName(shortName), true)
	if err != nil {
		return BranchRecord{}, false, &errs.GitOperationFailed{Op: "resolve branch " + shortName, Err: err}
	}
	rec, err := f.branchRecord(ref)
	if err != nil {
		return BranchRecord{}, false, err
	}
	return rec, rec.HasUpstream, nil
}

func (f *realFacade) branchRecord(ref *plumbing.Reference) (BranchRecord, error) {
	rec := BranchRecord{
		FullRef:   ref.Name().String(),
		ShortName: ref.Name().Short(),
	}

	headCommit, err := f.repo.CommitObject(ref.Hash())
	if err == nil {
		rec.TipTime = headCommit.Committer.When
		rec.TipCommitID = headCommit.Hash.String()
	}

	upstreamRefName, ok := f.upstreamRefName(rec.ShortName)
	if !ok {
		return rec, nil
	}
	rec.HasUpstream = true

	upstreamRef, err := f.repo.Reference(upstreamRefName, true)
	if err != nil {
		// Configured upstream with no local remote-tracking ref yet
		// (never fetched): report as unresolved, not an error.
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

	ahead, behind, err := countAheadBehind(headCommit, upstreamCommit)
	if err != nil {
		return rec, nil
	}
	rec.Ahead, rec.Behind = ahead, behind
	return rec, nil
}

// upstreamRefName resolves the remote-tracking ref configured for the
// local branch shortName via branch.<name>.remote / .merge, the way
// `git` itself resolves "the upstream".
func (f *realFacade) upstreamRefName(shortName string) (plumbing.ReferenceName, bool) {
	cfg, err := f.repo.Config()
	if err != nil {
		return "", false
	}
	b, ok := cfg.Branches[shortName]
	if !ok || b.Remote == "" || b.Merge == "" {
		return "", false
	}
	if b.Remote == "." {
		// Upstream is a local branch.
		return b.Merge, true
	}
	return plumbing.NewRemoteReferenceName(b.Remote, b.Merge.Short()), true
}

// countAheadBehind counts commits reachable from head but not upstream
// (ahead) and vice versa (behind), walking first-parent history from
// each tip down to their merge base — the same traversal shape as the
// teacher's rebase replay-commit collection.
func countAheadBehind(head, upstream *object.Commit) (ahead, behind int, err error) {
	if head.Hash == upstream.Hash {
		return 0, 0, nil
	}

	bases, err := head.MergeBase(upstream)
	if err != nil {
		return 0, 0, err
	}
	if len(bases) == 0 {
		return 0, 0, fmt.Errorf("no common ancestor")
	}
	base := bases[0].Hash

	ahead, err = countCommitsToBase(head, base)
	if err != nil {
		return 0, 0, err
	}
	behind, err = countCommitsToBase(upstream, base)
	if err != nil {
		return 0, 0, err
	}
	return ahead, behind, nil
}

func countCommitsToBase(from *object.Commit, base plumbing.Hash) (int, error) {
	count := 0
	cur := from
	for cur.Hash != base {
		count++
		if cur.NumParents() == 0 {
			break
		}
		next, err := cur.Parent(0)
		if err != nil {
			return 0, err
		}
		cur = next
	}
	return count, nil
}

// BranchRefExists reports whether refs/heads/<shortName> exists.
func (f *realFacade) BranchRefExists(shortName string) (bool, error) {
	_, err := f.repo.Reference(plumbing.NewBranchReferenceName(shortName), true)
	if err == nil {
		return true, nil
	}
	if err == plumbing.ErrReferenceNotFound {
		return false, nil
	}
	return false, &errs.GitOperationFailed{Op: "check branch existence", Err: err}
}
