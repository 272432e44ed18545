package gitfacade

import "time"

// WorkingTreeStatus is the multi-valued status flag from spec.md §3.
type WorkingTreeStatus int

const (
	StatusClean WorkingTreeStatus = iota
	StatusDirty
	StatusStaged
	StatusDirtyStaged
	StatusConflicted
)

func (s WorkingTreeStatus) String() string {
	switch s {
	case StatusClean:
		return "clean"
	case StatusDirty:
		return "dirty"
	case StatusStaged:
		return "staged"
	case StatusDirtyStaged:
		return "dirty+staged"
	case StatusConflicted:
		return "conflicted"
	default:
		return "unknown"
	}
}

// HeadState is either Detached or OnBranch.
type HeadState struct {
	Detached  bool
	CommitID  string
	RefName   string // full ref name, e.g. refs/heads/main, only set when !Detached
	ShortName string // short branch name, only set when !Detached
}

// BranchRecord is the read-only snapshot of a local branch, per spec.md §3.
type BranchRecord struct {
	FullRef         string
	ShortName       string
	TipCommitID     string
	TipTime         time.Time
	Upstream        string // full ref name of the remote-tracking branch, "" if unset
	UpstreamCommitID string // resolved tip of Upstream, "" if never fetched
	Ahead           int
	Behind          int
	HasUpstream     bool
}

// ReflogEntry is one line of a ref's reflog, newest first.
type ReflogEntry struct {
	OldHash string
	NewHash string
	Message string
	When    time.Time
}

// Snapshot is the pure, point-in-time observation dah's step engine
// decides from. It is never reused across a mutation.
type Snapshot struct {
	Status        WorkingTreeStatus
	Head          HeadState
	Upstream      BranchRecord // zero value if HEAD has no upstream
	HasUpstream   bool
	DefaultBranch string
	Protected     []string // dah.protectedBranch glob list, raw patterns
	BranchPrefix  string
	Reflog        []ReflogEntry
}

// TreeEntry describes one path discovered while walking the index tree.
type TreeEntry struct {
	Path string
	Mode uint32
}
