// Package resume implements the resume executor: the atomic-as-possible
// sequence that brings one task from pending to owned - worktree, tmux
// window, lock file, then best-effort contract injection.
package resume

import (
	"context"
	"fmt"
	"time"

	"github.com/loomwork/village/internal/config"
	"github.com/loomwork/village/internal/contract"
	"github.com/loomwork/village/internal/eventlog"
	"github.com/loomwork/village/internal/lock"
	"github.com/loomwork/village/internal/tmux"
	"github.com/loomwork/village/internal/villageerr"
	"github.com/loomwork/village/internal/worktree"
)

const maxWorktreeAttempts = 3

// Result is the outcome of one resume execution.
type Result struct {
	TaskID       string
	WorktreePath string
	Branch       string
	WindowName   string
	PaneID       string
	Interrupted  bool
	Warning      string // contract injection failed but everything else succeeded
}

// Options controls one resume invocation.
type Options struct {
	TaskID  string
	Agent   string // resolved agent label, already defaulted by the caller
	DryRun  bool   // stop after ensuring the worktree; PaneID left empty
	WorkerN int    // worker ordinal used in the window name; 0 means "derive from attempt"
}

// Execute runs the full ENSURE_WORKTREE -> CREATE_WINDOW -> WRITE_LOCK ->
// INJECT_CONTRACT sequence for one task. A lock already ACTIVE for TaskID
// aborts immediately - the queue is expected to have already filtered
// these, so this is a last line of defense, not the primary guard.
func Execute(ctx context.Context, cfg *config.Config, opts Options) (*Result, error) {
	if err := guardAgainstActiveLock(ctx, cfg, opts.TaskID); err != nil {
		return nil, err
	}

	_ = eventlog.LogStart(cfg.VillageDir, "resume", opts.TaskID)

	info, attempt, err := ensureWorktree(cfg, opts.TaskID)
	if err != nil {
		_ = eventlog.LogError(cfg.VillageDir, "resume", opts.TaskID, err)
		return nil, err
	}

	if err := writePermissions(info.Path, cfg.Permissions); err != nil {
		_ = eventlog.LogError(cfg.VillageDir, "resume", opts.TaskID, err)
		return nil, err
	}

	workerN := opts.WorkerN
	if workerN == 0 {
		workerN = attempt
	}
	// The window name is built from the requested task ID, not info.TaskID:
	// a collision retry suffixes info.TaskID (bd-a3f8-2) to keep the lock and
	// worktree identity unique, but the window name keeps the unsuffixed base
	// and carries the attempt number as workerN instead (worker-2-bd-a3f8).
	windowName := fmt.Sprintf("%s-%d-%s", opts.Agent, workerN, opts.TaskID)

	result := &Result{TaskID: info.TaskID, WorktreePath: info.Path, Branch: info.Branch, WindowName: windowName}

	if opts.DryRun {
		return result, nil
	}

	select {
	case <-ctx.Done():
		_ = eventlog.LogError(cfg.VillageDir, "resume", opts.TaskID, ctx.Err())
		return &Result{TaskID: info.TaskID, Interrupted: true}, villageerr.Wrap(villageerr.Interrupted, "resume interrupted before window creation", ctx.Err())
	default:
	}

	before, err := tmux.Panes(ctx, cfg.SessionName, true)
	if err != nil {
		_ = eventlog.LogError(cfg.VillageDir, "resume", opts.TaskID, err)
		return nil, err
	}
	if err := tmux.CreateWindow(ctx, cfg.SessionName, windowName, ""); err != nil {
		_ = eventlog.LogError(cfg.VillageDir, "resume", opts.TaskID, err)
		return nil, err
	}
	after, err := tmux.Panes(ctx, cfg.SessionName, true)
	if err != nil {
		_ = eventlog.LogError(cfg.VillageDir, "resume", opts.TaskID, err)
		return nil, err
	}
	paneID, err := tmux.NewestPane(before, after)
	if err != nil {
		_ = eventlog.LogError(cfg.VillageDir, "resume", opts.TaskID, err)
		return nil, villageerr.Wrap(villageerr.SubprocessFailure, "locating new pane", err)
	}
	result.PaneID = paneID

	l := &lock.Lock{
		TaskID:     info.TaskID,
		PaneID:     paneID,
		WindowName: windowName,
		Agent:      opts.Agent,
		ClaimedAt:  time.Now().UTC(),
		State:      lock.StateInProgress,
	}
	if err := lock.Write(cfg.VillageDir, l); err != nil {
		// The window and worktree now exist with no lock recorded; this is
		// surfaced to the caller as a failure requiring manual cleanup
		// rather than an automatic rollback.
		_ = eventlog.LogError(cfg.VillageDir, "resume", opts.TaskID, err)
		return nil, err
	}

	env := contract.Envelope{
		TaskID:       info.TaskID,
		Agent:        opts.Agent,
		WorktreePath: info.Path,
		GitRoot:      cfg.GitRoot,
		WindowName:   windowName,
		ClaimedAt:    l.ClaimedAt,
	}
	if err := injectContract(ctx, cfg, paneID, env); err != nil {
		result.Warning = "contract injection failed: " + err.Error()
	}

	_ = eventlog.LogOK(cfg.VillageDir, "resume", opts.TaskID, paneID)
	return result, nil
}

func guardAgainstActiveLock(ctx context.Context, cfg *config.Config, taskID string) error {
	path := lock.Path(cfg.VillageDir, taskID)
	l, err := lock.Parse(path)
	if err != nil {
		if _, corrupted := villageerr.As(err); corrupted {
			return nil // no lock, or it's corrupt - the reconciler's job, not resume's
		}
		return nil
	}
	panes, err := tmux.Panes(ctx, cfg.SessionName, false)
	if err != nil {
		return err
	}
	if lock.IsActive(l, panes) {
		return villageerr.New(villageerr.Blocked, fmt.Sprintf("task %s already has an active worker", taskID))
	}
	return nil
}

// ensureWorktree creates a worktree for taskID, retrying with a numeric
// suffix on collision up to maxWorktreeAttempts times.
func ensureWorktree(cfg *config.Config, taskID string) (worktree.Info, int, error) {
	base := taskID
	for attempt := 1; attempt <= maxWorktreeAttempts; attempt++ {
		candidate := base
		if attempt > 1 {
			candidate = fmt.Sprintf("%s-%d", base, attempt)
		}
		info, err := worktree.Create(cfg.GitRoot, cfg.WorktreesDir, candidate, "HEAD")
		if err == nil {
			return info, attempt, nil
		}
		if err == worktree.ErrCollision && attempt < maxWorktreeAttempts {
			continue
		}
		return worktree.Info{}, attempt, err
	}
	return worktree.Info{}, maxWorktreeAttempts, villageerr.New(villageerr.Config,
		fmt.Sprintf("could not allocate a worktree for %s after %d attempts", taskID, maxWorktreeAttempts))
}

func injectContract(ctx context.Context, cfg *config.Config, paneID string, env contract.Envelope) error {
	env, err := contract.Generate(env, cfg.Preamble)
	if err != nil {
		return err
	}
	cmd, err := contract.HeredocCommand(env.Agent, nil, env)
	if err != nil {
		return err
	}
	if err := tmux.SendKeys(ctx, paneID, cmd, true); err != nil {
		return err
	}
	return nil
}
