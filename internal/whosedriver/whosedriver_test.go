package whosedriver

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/cobwebtools/dah/internal/gitfacade/gitfacadetest"
)

func writeAndCommit(t *testing.T, repo *gitfacadetest.FakeFacade, path, contents string) {
	t.Helper()
	ctx := context.Background()
	w, err := repo.Repo().Worktree()
	require.NoError(t, err)
	if err := w.Filesystem.MkdirAll(parentDir(path), 0755); err != nil {
		require.NoError(t, err)
	}
	f, err := w.Filesystem.Create(path)
	require.NoError(t, err)
	_, err = f.Write([]byte(contents))
	require.NoError(t, err)
	require.NoError(t, f.Close())
	_, err = w.Add(path)
	require.NoError(t, err)
	_, err = repo.Commit(ctx, "add "+path)
	require.NoError(t, err)
}

func parentDir(path string) string {
	for i := len(path) - 1; i >= 0; i-- {
		if path[i] == '/' {
			return path[:i]
		}
	}
	return "."
}

func TestResolveAssignsLastMatchingRule(t *testing.T) {
	repo, err := gitfacadetest.New()
	require.NoError(t, err)

	writeAndCommit(t, repo, ".github/CODEOWNERS", "*  @a\n/docs/ @b\n/docs/api.md @c\n")
	writeAndCommit(t, repo, "src/x.rs", "fn main() {}")
	writeAndCommit(t, repo, "docs/index.md", "# hi")
	writeAndCommit(t, repo, "docs/api.md", "# api")

	results, err := Resolve(repo, []string{""})
	require.NoError(t, err)

	owners := make(map[string][]string)
	for _, r := range results {
		owners[r.Path] = r.Owners
	}
	require.Equal(t, []string{"@a"}, owners["src/x.rs"])
	require.Equal(t, []string{"@b"}, owners["docs/index.md"])
	require.Equal(t, []string{"@c"}, owners["docs/api.md"])
}

func TestResolveDropsPathspecsAbsentFromIndex(t *testing.T) {
	repo, err := gitfacadetest.New()
	require.NoError(t, err)
	writeAndCommit(t, repo, "a.txt", "a")

	results, err := Resolve(repo, []string{"does/not/exist.txt"})
	require.NoError(t, err)
	require.Empty(t, results)
}
