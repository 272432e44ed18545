package dahengine

import "github.com/cobwebtools/dah/internal/gitfacade"

// observe takes a single consistent snapshot of the repository: HEAD,
// working-tree status, the upstream branch record (if any), and a
// bounded reflog window. dah never reuses an observation across a
// mutation — every step calls this exactly once.
func observe(f gitfacade.Facade, opts Options) (gitfacade.Snapshot, error) {
	var snap gitfacade.Snapshot

	head, err := f.Head()
	if err != nil {
		return snap, err
	}
	snap.Head = head

	status, err := f.Status()
	if err != nil {
		return snap, err
	}
	snap.Status = status

	if !head.Detached {
		rec, hasUpstream, err := f.BranchUpstream(head.ShortName)
		if err == nil && hasUpstream {
			snap.Upstream = rec
			snap.HasUpstream = true
		}

		reflog, err := f.Reflog(head.RefName, opts.ReflogLimit)
		if err == nil {
			snap.Reflog = reflog
		}
	}

	return snap, nil
}
