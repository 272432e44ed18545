// Package dahengine implements the priority ladder that drives dah:
// given an observed repository snapshot, it picks exactly one action
// per iteration from an ordered rule table instead of a chain of
// conditionals.
package dahengine

import (
	"context"

	"github.com/cobwebtools/dah/internal/errs"
	"github.com/cobwebtools/dah/internal/gitfacade"
	"github.com/cobwebtools/dah/internal/logging"
)

var log = logging.New("dahengine")

// ActionKind names the single git operation a step applies.
type ActionKind int

const (
	ActionNone ActionKind = iota
	ActionStageTracked
	ActionCommit
	ActionRenameAndSwitch
	ActionCreateAndSwitch
	ActionRebase
	ActionPush
)

func (k ActionKind) String() string {
	switch k {
	case ActionStageTracked:
		return "stage-tracked"
	case ActionCommit:
		return "commit"
	case ActionRenameAndSwitch:
		return "rename-and-switch"
	case ActionCreateAndSwitch:
		return "create-and-switch"
	case ActionRebase:
		return "rebase"
	case ActionPush:
		return "push"
	default:
		return "none"
	}
}

// Outcome describes the result of one step: which action fired (if
// any), and whether the loop should stop.
type Outcome struct {
	Action   ActionKind
	Terminal bool
	Detail   string
}

// Options configures a run of the engine.
type Options struct {
	Protected   []string // glob patterns plus the default branch, see ProtectedSet
	BranchPrefix string
	ReflogLimit int
	Cooperative bool
}

// rule is one row of the priority ladder: a predicate over the
// observed snapshot and the action to apply when it matches first.
type rule struct {
	name  string
	match func(gitfacade.Snapshot, Options) bool
	apply func(context.Context, gitfacade.Facade, gitfacade.Snapshot, Options) (Outcome, error)
}

var ladder = []rule{
	{
		name: "conflicted",
		match: func(s gitfacade.Snapshot, o Options) bool {
			return s.Status == gitfacade.StatusConflicted
		},
		apply: func(ctx context.Context, f gitfacade.Facade, s gitfacade.Snapshot, o Options) (Outcome, error) {
			return Outcome{Action: ActionNone, Terminal: true, Detail: "conflicted"}, nil
		},
	},
	{
		name: "synced",
		match: func(s gitfacade.Snapshot, o Options) bool {
			return !s.Head.Detached && s.HasUpstream && s.Upstream.Ahead == 0 && s.Upstream.Behind == 0 &&
				s.Status == gitfacade.StatusClean
		},
		apply: func(ctx context.Context, f gitfacade.Facade, s gitfacade.Snapshot, o Options) (Outcome, error) {
			return Outcome{Action: ActionNone, Terminal: true, Detail: "synced"}, nil
		},
	},
	{
		name: "dirty",
		match: func(s gitfacade.Snapshot, o Options) bool {
			return s.Status == gitfacade.StatusDirty || s.Status == gitfacade.StatusDirtyStaged
		},
		apply: func(ctx context.Context, f gitfacade.Facade, s gitfacade.Snapshot, o Options) (Outcome, error) {
			if err := f.StageTracked(ctx); err != nil {
				return Outcome{}, err
			}
			return Outcome{Action: ActionStageTracked}, nil
		},
	},
	{
		name: "staged",
		match: func(s gitfacade.Snapshot, o Options) bool {
			return s.Status == gitfacade.StatusStaged
		},
		apply: func(ctx context.Context, f gitfacade.Facade, s gitfacade.Snapshot, o Options) (Outcome, error) {
			if _, err := f.Commit(ctx, ""); err != nil {
				return Outcome{}, err
			}
			return Outcome{Action: ActionCommit}, nil
		},
	},
	{
		name: "on-protected-branch",
		match: func(s gitfacade.Snapshot, o Options) bool {
			return !s.Head.Detached && isProtected(s.Head.ShortName, o.Protected)
		},
		apply: func(ctx context.Context, f gitfacade.Facade, s gitfacade.Snapshot, o Options) (Outcome, error) {
			name, err := synthesizeBranchName(f, o.BranchPrefix)
			if err != nil {
				return Outcome{}, err
			}
			if err := f.RenameBranch(ctx, name); err != nil {
				return Outcome{}, err
			}
			return Outcome{Action: ActionRenameAndSwitch, Detail: name}, nil
		},
	},
	{
		name: "detached",
		match: func(s gitfacade.Snapshot, o Options) bool {
			return s.Head.Detached
		},
		apply: func(ctx context.Context, f gitfacade.Facade, s gitfacade.Snapshot, o Options) (Outcome, error) {
			name, err := synthesizeBranchName(f, o.BranchPrefix)
			if err != nil {
				return Outcome{}, err
			}
			if err := f.CreateBranch(ctx, name); err != nil {
				return Outcome{}, err
			}
			if err := f.Switch(ctx, name); err != nil {
				return Outcome{}, err
			}
			return Outcome{Action: ActionCreateAndSwitch, Detail: name}, nil
		},
	},
	{
		name: "behind-upstream",
		match: func(s gitfacade.Snapshot, o Options) bool {
			if !s.HasUpstream || s.Upstream.Behind == 0 {
				return false
			}
			if o.Cooperative {
				return true
			}
			return !reflogContainsCommit(s.Reflog, s.Upstream.UpstreamCommitID, o.ReflogLimit)
		},
		apply: func(ctx context.Context, f gitfacade.Facade, s gitfacade.Snapshot, o Options) (Outcome, error) {
			if err := f.RebaseOntoUpstream(ctx); err != nil {
				return Outcome{}, err
			}
			return Outcome{Action: ActionRebase}, nil
		},
	},
	{
		name: "ahead-or-unpushed",
		match: func(s gitfacade.Snapshot, o Options) bool {
			if s.Head.Detached {
				return false
			}
			return !s.HasUpstream || s.Upstream.Ahead > 0
		},
		apply: func(ctx context.Context, f gitfacade.Facade, s gitfacade.Snapshot, o Options) (Outcome, error) {
			if isProtected(s.Head.ShortName, o.Protected) {
				return Outcome{}, &errs.GitOperationFailed{Op: "push", Err: errProtectedPush(s.Head.ShortName)}
			}
			force := !o.Cooperative
			if err := f.Push(ctx, s.Head.ShortName, force); err != nil {
				return Outcome{}, err
			}
			return Outcome{Action: ActionPush, Terminal: true, Detail: s.Head.ShortName}, nil
		},
	},
}

// Step observes the repository once and applies the single action
// selected by the priority ladder's first match.
func Step(ctx context.Context, f gitfacade.Facade, opts Options) (Outcome, error) {
	snap, err := observe(f, opts)
	if err != nil {
		return Outcome{}, err
	}

	for _, r := range ladder {
		if !r.match(snap, opts) {
			continue
		}
		log.Debugf("step: rule %q matched", r.name)
		return r.apply(ctx, f, snap, opts)
	}

	return Outcome{Action: ActionNone, Terminal: true, Detail: "no rule matched"}, nil
}

// Run drives Step to a fixpoint, stopping after a terminal outcome,
// after the first iteration when singleStep is true, or
// after a generous iteration cap that should never bind in practice
// (the ladder's progress property bounds real runs to ≤6 iterations).
func Run(ctx context.Context, f gitfacade.Facade, opts Options, singleStep bool) ([]Outcome, error) {
	const maxIterations = 64
	var outcomes []Outcome

	for i := 0; i < maxIterations; i++ {
		outcome, err := Step(ctx, f, opts)
		if err != nil {
			return outcomes, err
		}
		outcomes = append(outcomes, outcome)
		if outcome.Terminal || singleStep {
			return outcomes, nil
		}
	}
	return outcomes, &errs.GitOperationFailed{Op: "dah step loop", Err: errNoProgress}
}
