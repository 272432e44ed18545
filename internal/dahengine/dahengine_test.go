package dahengine

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/cobwebtools/dah/internal/gitfacade"
	"github.com/cobwebtools/dah/internal/gitfacade/gitfacadetest"
)

func TestStepOnProtectedBranchCommitsRenamesThenPushes(t *testing.T) {
	origin, err := gitfacadetest.NewBare()
	require.NoError(t, err)

	repo, err := gitfacadetest.New()
	require.NoError(t, err)
	require.NoError(t, repo.LinkRemote("origin", origin))

	ctx := context.Background()

	// Setup: commit a tracked file outside the engine, then dirty it —
	// the scenario is "HEAD=main with one staged change" (spec.md §8
	// scenario 5), reached here via one real edit to a tracked file.
	wf, err := repo.Filesystem().Create("file.txt")
	require.NoError(t, err)
	_, err = wf.Write([]byte("v1"))
	require.NoError(t, err)
	require.NoError(t, wf.Close())
	w, err := repo.Repo().Worktree()
	require.NoError(t, err)
	_, err = w.Add("file.txt")
	require.NoError(t, err)
	_, err = repo.Commit(ctx, "add file")
	require.NoError(t, err)

	wf, err = repo.Filesystem().OpenFile("file.txt", os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	require.NoError(t, err)
	_, err = wf.Write([]byte("v2"))
	require.NoError(t, err)
	require.NoError(t, wf.Close())

	opts := Options{
		Protected:   ProtectedSet(repo.DefaultBranch(), nil),
		ReflogLimit: 20,
	}

	out1, err := Step(ctx, repo, opts)
	require.NoError(t, err)
	require.Equal(t, ActionStageTracked, out1.Action)

	out2, err := Step(ctx, repo, opts)
	require.NoError(t, err)
	require.Equal(t, ActionCommit, out2.Action)

	out3, err := Step(ctx, repo, opts)
	require.NoError(t, err)
	require.Equal(t, ActionRenameAndSwitch, out3.Action)
	require.NotEqual(t, "main", out3.Detail)

	out4, err := Step(ctx, repo, opts)
	require.NoError(t, err)
	require.Equal(t, ActionPush, out4.Action)
	require.True(t, out4.Terminal)

	head, err := repo.Head()
	require.NoError(t, err)
	require.NotEqual(t, "main", head.ShortName)

	// Invariant: no step ever targeted the protected branch with a push.
	_, existsOnOrigin, _ := originHasBranch(origin, "main")
	require.False(t, existsOnOrigin)
}

func originHasBranch(f *gitfacadetest.FakeFacade, name string) (string, bool, error) {
	exists, err := f.BranchRefExists(name)
	return name, exists, err
}

func TestIsProtectedMatchesDefaultAndGlobs(t *testing.T) {
	require.True(t, isProtected("main", ProtectedSet("main", nil)))
	require.True(t, isProtected("release/v1", ProtectedSet("main", []string{"release/*"})))
	require.False(t, isProtected("feature/x", ProtectedSet("main", []string{"release/*"})))
}

func TestSlugFoldsAndFallsBack(t *testing.T) {
	require.Equal(t, "fix-the-thing", slug("Fix The Thing!!"))
	require.Equal(t, "work", slug(""))
	require.Equal(t, "work", slug("### ???"))
}

func TestReflogContainsCommitRespectsLimit(t *testing.T) {
	require.False(t, reflogContainsCommit(nil, "", 10))
	require.False(t, reflogContainsCommit(nil, "deadbeef", 10))

	reflog := []gitfacade.ReflogEntry{{NewHash: "c3"}, {NewHash: "b2"}, {NewHash: "a1"}}
	require.True(t, reflogContainsCommit(reflog, "b2", 2))
	require.False(t, reflogContainsCommit(reflog, "a1", 2))
	require.True(t, reflogContainsCommit(reflog, "a1", 0))
}
