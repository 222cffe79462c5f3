// Package gitscm is the SCM facade: every git invocation the orchestrator
// makes goes through here. Transient lock-contention failures (two workers
// touching .git/index or a ref at once) are retried with backoff, the same
// policy the teacher's git wrapper uses for its rebase/commit cycle.
package gitscm

import (
	"context"
	"strings"
	"time"

	"github.com/loomwork/village/internal/subprocess"
	"github.com/loomwork/village/internal/villageerr"
)

const (
	retryInitialDelay = 200 * time.Millisecond
	retryMaxAttempts  = 6
	retryMultiplier   = 2
)

var transientPatterns = []string{
	"index file open failed",
	"index.lock",
	"cannot lock ref",
}

func isTransient(errMsg string) bool {
	for _, p := range transientPatterns {
		if strings.Contains(errMsg, p) {
			return true
		}
	}
	return false
}

// Repo wraps git operations rooted at Dir.
type Repo struct {
	Dir string

	// sleep is replaced in tests to avoid real delays.
	sleep func(time.Duration)
}

func NewRepo(dir string) *Repo {
	return &Repo{Dir: dir, sleep: time.Sleep}
}

func (r *Repo) sleepFunc() func(time.Duration) {
	if r.sleep != nil {
		return r.sleep
	}
	return time.Sleep
}

func (r *Repo) run(args ...string) (string, error) {
	delay := retryInitialDelay
	var lastErr error
	for attempt := 0; attempt < retryMaxAttempts; attempt++ {
		res, err := subprocess.Run(context.Background(), append([]string{"git"}, args...), subprocess.Options{Dir: r.Dir})
		if err == nil {
			return strings.TrimSpace(res.Stdout), nil
		}
		lastErr = err
		combined := res.Stdout + res.Stderr
		if !isTransient(combined) || attempt == retryMaxAttempts-1 {
			return "", villageerr.Wrap(villageerr.SubprocessFailure, "git "+strings.Join(args, " "), err)
		}
		r.sleepFunc()(delay)
		delay *= retryMultiplier
	}
	return "", villageerr.Wrap(villageerr.Transient, "git "+strings.Join(args, " "), lastErr)
}

// HeadCommit returns the commit hash that ref resolves to.
func (r *Repo) HeadCommit(ref string) (string, error) {
	return r.run("rev-parse", ref)
}

// BranchExists reports whether branch resolves to a commit.
func (r *Repo) BranchExists(branch string) bool {
	_, err := r.run("rev-parse", "--verify", branch)
	return err == nil
}

// CreateBranch creates branch name starting from from.
func (r *Repo) CreateBranch(name, from string) error {
	_, err := r.run("branch", name, from)
	return err
}

// DeleteBranch force-deletes a branch, tolerating "not found".
func (r *Repo) DeleteBranch(name string) error {
	_, err := r.run("branch", "-D", name)
	if err != nil && strings.Contains(err.Error(), "not found") {
		return nil
	}
	return err
}

// CreateWorktree adds a worktree at path checked out to branch.
func (r *Repo) CreateWorktree(path, branch string) error {
	_, err := r.run("worktree", "add", path, branch)
	return err
}

// RemoveWorktree removes a worktree directory and its administrative files.
func (r *Repo) RemoveWorktree(path string, force bool) error {
	args := []string{"worktree", "remove"}
	if force {
		args = append(args, "--force")
	}
	args = append(args, path)
	_, err := r.run(args...)
	return err
}

// PruneWorktrees discards administrative data for worktrees whose directory
// was removed out-of-band (e.g. rm -rf by a human).
func (r *Repo) PruneWorktrees() error {
	_, err := r.run("worktree", "prune")
	return err
}

// WorktreeEntry is one record from `git worktree list --porcelain`.
type WorktreeEntry struct {
	Path   string
	Branch string
	HEAD   string
}

// ListWorktrees parses `git worktree list --porcelain` into structured entries.
func (r *Repo) ListWorktrees() ([]WorktreeEntry, error) {
	out, err := r.run("worktree", "list", "--porcelain")
	if err != nil {
		return nil, err
	}
	return parseWorktreeList(out), nil
}

func parseWorktreeList(out string) []WorktreeEntry {
	var entries []WorktreeEntry
	var cur WorktreeEntry
	flush := func() {
		if cur.Path != "" {
			entries = append(entries, cur)
		}
		cur = WorktreeEntry{}
	}
	for _, line := range strings.Split(out, "\n") {
		switch {
		case strings.HasPrefix(line, "worktree "):
			flush()
			cur.Path = strings.TrimPrefix(line, "worktree ")
		case strings.HasPrefix(line, "HEAD "):
			cur.HEAD = strings.TrimPrefix(line, "HEAD ")
		case strings.HasPrefix(line, "branch "):
			cur.Branch = strings.TrimPrefix(strings.TrimPrefix(line, "branch "), "refs/heads/")
		}
	}
	flush()
	return entries
}

// StagedFiles returns paths currently staged for commit.
func (r *Repo) StagedFiles() ([]string, error) {
	out, err := r.run("diff", "--cached", "--name-only")
	if err != nil {
		return nil, err
	}
	if out == "" {
		return nil, nil
	}
	return strings.Split(out, "\n"), nil
}

// HasChanges reports whether the worktree has any uncommitted changes.
func (r *Repo) HasChanges() (bool, error) {
	out, err := r.run("status", "--porcelain")
	if err != nil {
		return false, err
	}
	return strings.TrimSpace(out) != "", nil
}

// StageAll stages every change, including untracked files.
func (r *Repo) StageAll() error {
	_, err := r.run("add", "-A")
	return err
}

// Commit records a commit, skipping hooks - no agent is present afterward
// to fix a hook failure, mirroring the teacher's --no-verify commit.
func (r *Repo) Commit(message string) error {
	_, err := r.run("commit", "--no-verify", "-m", message)
	return err
}

// EnsureIdentity sets a local user.name/user.email if none is resolvable,
// so commits inside a fresh worktree never fail with "identity unknown".
func (r *Repo) EnsureIdentity() {
	if _, err := r.run("config", "user.name"); err != nil {
		_, _ = r.run("config", "user.name", "village")
	}
	if _, err := r.run("config", "user.email"); err != nil {
		_, _ = r.run("config", "user.email", "village@localhost")
	}
}

// GitRoot returns the top-level directory of the git repository dir belongs to.
func GitRoot(dir string) (string, error) {
	out, err := subprocess.Output(context.Background(), []string{"git", "-C", dir, "rev-parse", "--show-toplevel"}, subprocess.Options{})
	if err != nil {
		return "", villageerr.Wrap(villageerr.Config, "not a git repository: "+dir, err)
	}
	return out, nil
}
