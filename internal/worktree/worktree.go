// Package worktree manages git worktrees under a known directory: one per
// task, on a task-specific branch. It never touches locks or tmux panes -
// that composition happens in internal/resume.
package worktree

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/loomwork/village/internal/fileutil"
	"github.com/loomwork/village/internal/gitscm"
	"github.com/loomwork/village/internal/villageerr"
)

// BranchPrefix is prepended to every task ID to derive its branch name.
const BranchPrefix = "worktree-"

// Info describes a worktree on disk.
type Info struct {
	TaskID string
	Path   string
	Branch string
}

// BranchName returns the branch a task's worktree is checked out to.
func BranchName(taskID string) string {
	return BranchPrefix + taskID
}

// Path returns the worktree directory for a task.
func Path(worktreesDir, taskID string) string {
	return filepath.Join(worktreesDir, taskID)
}

// ErrCollision indicates that the worktree path or branch already exists.
var ErrCollision = villageerr.New(villageerr.Config, "worktree: path or branch already exists")

// Create adds a worktree for taskID, branching from baseRef (typically
// HEAD) in repoRoot. Returns ErrCollision if the path or branch already
// exists - callers retry with a suffixed task ID (see internal/resume).
func Create(repoRoot, worktreesDir, taskID, baseRef string) (Info, error) {
	repo := gitscm.NewRepo(repoRoot)
	path := Path(worktreesDir, taskID)
	branch := BranchName(taskID)

	if _, err := os.Stat(path); err == nil {
		return Info{}, ErrCollision
	}
	if repo.BranchExists(branch) {
		return Info{}, ErrCollision
	}

	if err := fileutil.EnsureDir(worktreesDir); err != nil {
		return Info{}, villageerr.Wrap(villageerr.SubprocessFailure, "creating worktrees dir", err)
	}
	if err := repo.CreateBranch(branch, baseRef); err != nil {
		return Info{}, err
	}
	if err := repo.CreateWorktree(path, branch); err != nil {
		if isCollisionErr(err) {
			return Info{}, ErrCollision
		}
		return Info{}, err
	}

	wtRepo := gitscm.NewRepo(path)
	wtRepo.EnsureIdentity()

	return Info{TaskID: taskID, Path: path, Branch: branch}, nil
}

func isCollisionErr(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "already exists") || strings.Contains(msg, "path exists") ||
		strings.Contains(msg, "already registered")
}

// GetInfo returns the Info for taskID if a worktree exists for it.
func GetInfo(repoRoot, worktreesDir, taskID string) (Info, bool, error) {
	entries, err := List(repoRoot, worktreesDir)
	if err != nil {
		return Info{}, false, err
	}
	for _, e := range entries {
		if e.TaskID == taskID {
			return e, true, nil
		}
	}
	return Info{}, false, nil
}

// List returns every worktree under worktreesDir known to git, regardless
// of whether it corresponds to a village-managed task branch.
func List(repoRoot, worktreesDir string) ([]Info, error) {
	repo := gitscm.NewRepo(repoRoot)
	entries, err := repo.ListWorktrees()
	if err != nil {
		return nil, err
	}
	var out []Info
	absWorktrees, err := filepath.Abs(worktreesDir)
	if err != nil {
		return nil, villageerr.Wrap(villageerr.Config, "resolving worktrees dir", err)
	}
	for _, e := range entries {
		absPath, err := filepath.Abs(e.Path)
		if err != nil {
			continue
		}
		if !strings.HasPrefix(absPath, absWorktrees+string(filepath.Separator)) {
			continue
		}
		taskID := filepath.Base(absPath)
		out = append(out, Info{TaskID: taskID, Path: e.Path, Branch: e.Branch})
	}
	return out, nil
}

// Delete removes a worktree and its branch. force passes --force to `git
// worktree remove`, needed when the worktree has uncommitted changes the
// reconciler has already decided to discard.
func Delete(repoRoot string, info Info, force bool) error {
	repo := gitscm.NewRepo(repoRoot)
	if err := repo.RemoveWorktree(info.Path, force); err != nil {
		return err
	}
	if info.Branch != "" {
		_ = repo.DeleteBranch(info.Branch)
	}
	return nil
}
