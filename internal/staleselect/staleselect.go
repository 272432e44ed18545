// Package staleselect implements stale's branch selection and batch
// deletion: a prefix filter plus an age predicate over local branches.
package staleselect

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/cobwebtools/dah/internal/gitfacade"
	"github.com/cobwebtools/dah/internal/logging"
	"github.com/cobwebtools/dah/internal/period"
)

var log = logging.New("staleselect")

// Candidate is one selected branch, carrying enough of its record to
// drive deletion (remote/upstream) without a second facade round trip.
type Candidate struct {
	ShortName string
	Upstream  gitfacade.BranchRecord
	HasUpstream bool
}

// Select returns every local branch matching prefixes (or all branches
// if prefixes is empty) whose tip commit is older than now-since, when
// since is non-nil. Results are sorted lexicographically by short name.
func Select(f gitfacade.Facade, prefixes []string, since *period.Period, now time.Time) ([]Candidate, error) {
	branches, err := f.Branches()
	if err != nil {
		return nil, err
	}

	var cutoff time.Time
	if since != nil {
		cutoff = period.Subtract(now, *since)
	}

	var out []Candidate
	for _, b := range branches {
		if !matchesPrefix(b.ShortName, prefixes) {
			continue
		}
		if since != nil && !b.TipTime.Before(cutoff) {
			continue
		}
		out = append(out, Candidate{ShortName: b.ShortName, Upstream: b, HasUpstream: b.HasUpstream})
	}

	sort.Slice(out, func(i, j int) bool { return out[i].ShortName < out[j].ShortName })
	return out, nil
}

func matchesPrefix(shortName string, prefixes []string) bool {
	if len(prefixes) == 0 {
		return true
	}
	for _, p := range prefixes {
		if strings.HasPrefix(shortName, p) {
			return true
		}
	}
	return false
}

// BranchFailure records one candidate's deletion error without
// aborting the rest of the batch.
type BranchFailure struct {
	ShortName string
	Err       error
}

// DeleteResult aggregates the outcome of a delete or delete+push run.
type DeleteResult struct {
	Deleted  []string
	Failures []BranchFailure
}

// OK reports whether every candidate was deleted without error.
func (r DeleteResult) OK() bool { return len(r.Failures) == 0 }

// DeleteLocal deletes each candidate's local branch. It never aborts
// the batch on a single failure; failures accumulate in the result so
// the caller can report an aggregate non-zero exit status.
func DeleteLocal(ctx context.Context, f gitfacade.Facade, candidates []Candidate) DeleteResult {
	var result DeleteResult
	for _, c := range candidates {
		if err := f.DeleteLocalBranch(ctx, c.ShortName, false); err != nil {
			log.Warnf("delete local branch %s: %v", c.ShortName, err)
			result.Failures = append(result.Failures, BranchFailure{ShortName: c.ShortName, Err: err})
			continue
		}
		result.Deleted = append(result.Deleted, c.ShortName)
	}
	return result
}

// DeletePushedUpstreams deletes, for each candidate that has a
// configured upstream, the matching branch on that upstream's remote —
// the local branch itself is never touched. Deletions are grouped by
// remote (to amortize connection setup) and issued in lexicographic
// order of branch name within each remote; a failure on one branch
// does not abort the rest of the batch.
func DeletePushedUpstreams(ctx context.Context, f gitfacade.Facade, candidates []Candidate) DeleteResult {
	byRemote := make(map[string][]Candidate)
	for _, c := range candidates {
		if !c.HasUpstream {
			continue
		}
		remote := remoteOf(c.Upstream.Upstream)
		if remote == "" {
			continue
		}
		byRemote[remote] = append(byRemote[remote], c)
	}

	remotes := make([]string, 0, len(byRemote))
	for r := range byRemote {
		remotes = append(remotes, r)
	}
	sort.Strings(remotes)

	var result DeleteResult
	for _, remote := range remotes {
		group := byRemote[remote]
		sort.Slice(group, func(i, j int) bool { return group[i].ShortName < group[j].ShortName })
		for _, c := range group {
			if err := f.DeleteRemoteBranch(ctx, remote, c.ShortName); err != nil {
				log.Warnf("delete remote branch %s/%s: %v", remote, c.ShortName, err)
				result.Failures = append(result.Failures, BranchFailure{ShortName: c.ShortName, Err: err})
				continue
			}
			result.Deleted = append(result.Deleted, c.ShortName)
		}
	}
	return result
}

// remoteOf extracts the remote name from a full remote-tracking ref
// name, e.g. "refs/remotes/origin/feat/a" -> "origin".
func remoteOf(remoteTrackingRef string) string {
	const remotesPrefix = "refs/remotes/"
	if !strings.HasPrefix(remoteTrackingRef, remotesPrefix) {
		return ""
	}
	rest := strings.TrimPrefix(remoteTrackingRef, remotesPrefix)
	idx := strings.IndexByte(rest, '/')
	if idx < 0 {
		return ""
	}
	return rest[:idx]
}
