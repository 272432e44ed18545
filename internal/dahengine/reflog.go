package dahengine

import "github.com/cobwebtools/dah/internal/gitfacade"

// reflogContainsCommit reports whether commitID appears as the NewHash
// of any of the first limit entries of reflog (already newest-first,
// pre-trimmed by the facade to that limit). A limit of 0 or a negative
// value means no cap: every entry is scanned.
func reflogContainsCommit(reflog []gitfacade.ReflogEntry, commitID string, limit int) bool {
	if commitID == "" {
		return false
	}
	n := len(reflog)
	if limit > 0 && limit < n {
		n = limit
	}
	for i := 0; i < n; i++ {
		if reflog[i].NewHash == commitID {
			return true
		}
	}
	return false
}
