package gitfacade

import (
	"fmt"
	"os"
	"path/filepath"

	gogit "github.com/go-git/go-git/v5"

	"github.com/cobwebtools/dah/internal/errs"
	"github.com/cobwebtools/dah/internal/logging"
)

var log = logging.New("gitfacade")

// realFacade is the production Facade, backed by a real on-disk
// repository opened through go-git.
type realFacade struct {
	repo     *gogit.Repository
	root     string // worktree root, "" if bare
	gitDir   string // the real .git directory, for reflog reads
	isBare   bool
}

// Open discovers and opens the repository containing path, walking up
// parent directories the way `git` itself does to find a .git
// directory or file (worktrees, submodules), and returns a Facade
// backed by it.
func Open(path string) (Facade, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, &errs.IoError{Op: "resolve path", Err: err}
	}

	gitDir, worktreeRoot, isBare, err := discoverGitDir(abs)
	if err != nil {
		return nil, &errs.RepositoryNotFound{Path: abs}
	}

	repo, err := gogit.PlainOpenWithOptions(abs, &gogit.PlainOpenOptions{
		DetectDotGit:          true,
		EnableDotGitCommonDir: true,
	})
	if err != nil {
		return nil, &errs.RepositoryNotFound{Path: abs}
	}

	log.Debugf("opened repository root=%s gitDir=%s bare=%v", worktreeRoot, gitDir, isBare)

	return &realFacade{repo: repo, root: worktreeRoot, gitDir: gitDir, isBare: isBare}, nil
}

func (f *realFacade) Root() string { return f.root }
func (f *realFacade) IsBare() bool { return f.isBare }

// discoverGitDir walks up from start looking for a ".git" entry,
// following the "gitdir: <path>" indirection file format used by
// worktrees and submodules.
func discoverGitDir(start string) (gitDir, worktreeRoot string, isBare bool, err error) {
	dir := start
	for {
		candidate := filepath.Join(dir, ".git")
		info, statErr := os.Stat(candidate)
		if statErr == nil {
			if info.IsDir() {
				return candidate, dir, false, nil
			}
			resolved, readErr := resolveGitDirFile(candidate)
			if readErr != nil {
				return "", "", false, readErr
			}
			return resolved, dir, false, nil
		}

		// Bare repository: dir itself looks like a git dir.
		if looksLikeGitDir(dir) {
			return dir, "", true, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", "", false, fmt.Errorf("no .git directory found above %s", start)
		}
		dir = parent
	}
}

func looksLikeGitDir(dir string) bool {
	for _, marker := range []string{"HEAD", "objects", "refs"} {
		if _, err := os.Stat(filepath.Join(dir, marker)); err != nil {
			return false
		}
	}
	return true
}

func resolveGitDirFile(gitFile string) (string, error) {
	data, err := os.ReadFile(gitFile)
	if err != nil {
		return "", err
	}
	const prefix = "gitdir: "
	s := string(data)
	for len(s) > 0 && (s[len(s)-1] == '\n' || s[len(s)-1] == '\r') {
		s = s[:len(s)-1]
	}
	if len(s) <= len(prefix) || s[:len(prefix)] != prefix {
		return "", fmt.Errorf("malformed .git file %s", gitFile)
	}
	target := s[len(prefix):]
	if !filepath.IsAbs(target) {
		target = filepath.Join(filepath.Dir(gitFile), target)
	}
	return filepath.Clean(target), nil
}
