package staleselect

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/cobwebtools/dah/internal/gitfacade/gitfacadetest"
	"github.com/cobwebtools/dah/internal/period"
)

func commitAt(t *testing.T, repo *gitfacadetest.FakeFacade, branch string, when time.Time) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, repo.CreateBranch(ctx, branch))
	require.NoError(t, repo.Switch(ctx, branch))

	w, err := repo.Repo().Worktree()
	require.NoError(t, err)
	f, err := w.Filesystem.Create(branch + ".txt")
	require.NoError(t, err)
	_, err = f.Write([]byte("x"))
	require.NoError(t, err)
	require.NoError(t, f.Close())
	require.NoError(t, repo.StageTracked(ctx))

	_, err = repo.CommitAt("work on "+branch, when)
	require.NoError(t, err)
}

func TestSelectByPrefixAndAge(t *testing.T) {
	repo, err := gitfacadetest.New()
	require.NoError(t, err)

	now := time.Date(2026, 7, 30, 12, 0, 0, 0, time.UTC)
	commitAt(t, repo, "feat/a", now.AddDate(0, -2, 0))
	require.NoError(t, repo.Switch(context.Background(), "main"))
	commitAt(t, repo, "feat/b", now.AddDate(0, 0, -1))
	require.NoError(t, repo.Switch(context.Background(), "main"))
	commitAt(t, repo, "bug/c", now.AddDate(-1, 0, 0))
	require.NoError(t, repo.Switch(context.Background(), "main"))

	since, err := period.Parse("1mo")
	require.NoError(t, err)

	withPrefix, err := Select(repo, []string{"feat"}, &since, now)
	require.NoError(t, err)
	require.Len(t, withPrefix, 1)
	require.Equal(t, "feat/a", withPrefix[0].ShortName)

	withoutPrefix, err := Select(repo, nil, &since, now)
	require.NoError(t, err)
	var names []string
	for _, c := range withoutPrefix {
		names = append(names, c.ShortName)
	}
	require.Equal(t, []string{"bug/c", "feat/a"}, names)
}

func TestDeleteLocalRefusesCurrentBranch(t *testing.T) {
	repo, err := gitfacadetest.New()
	require.NoError(t, err)
	ctx := context.Background()

	candidates := []Candidate{{ShortName: "main"}}
	result := DeleteLocal(ctx, repo, candidates)
	require.False(t, result.OK())
	require.Len(t, result.Failures, 1)
}
