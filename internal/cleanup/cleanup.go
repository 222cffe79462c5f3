// Package cleanup is the reconciler: it plans removal of stale locks and
// orphan/stale worktrees, and only mutates anything when explicitly told
// to Apply the plan.
package cleanup

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/loomwork/village/internal/config"
	"github.com/loomwork/village/internal/eventlog"
	"github.com/loomwork/village/internal/lock"
	"github.com/loomwork/village/internal/tmux"
	"github.com/loomwork/village/internal/worktree"
)

// worktreeRemovalConcurrency bounds how many `git worktree remove`
// subprocesses cleanup runs at once. gitscm already retries past transient
// index.lock contention, so removals are safe to parallelize; the bound
// just keeps a large plan from forking the whole git porcelain at once.
const worktreeRemovalConcurrency = 4

// Plan is the result of scanning locks and worktrees, computed without
// mutating anything.
type Plan struct {
	StaleLocks      []*lock.Lock    // locks whose pane is gone
	OrphanWorktrees []worktree.Info // worktree dirs with no lock at all
	StaleWorktrees  []worktree.Info // worktree dirs whose lock is stale
	CorruptedLocks  []string        // lock file paths that failed to parse
}

// Compute scans the village's locks and worktrees and builds a Plan. It
// never deletes anything; call Apply to execute it.
func Compute(ctx context.Context, cfg *config.Config) (*Plan, error) {
	locks, parseErrs := lock.ListAll(cfg.VillageDir)
	panes, err := tmux.Panes(ctx, cfg.SessionName, true)
	if err != nil {
		return nil, err
	}

	plan := &Plan{}
	for path := range parseErrs {
		plan.CorruptedLocks = append(plan.CorruptedLocks, path)
	}

	lockedTasks := make(map[string]*lock.Lock, len(locks))
	for _, l := range locks {
		lockedTasks[l.TaskID] = l
		if lock.Evaluate(l, panes) == lock.Stale {
			plan.StaleLocks = append(plan.StaleLocks, l)
		}
	}

	worktrees, err := worktree.List(cfg.GitRoot, cfg.WorktreesDir)
	if err != nil {
		return nil, err
	}
	staleTaskIDs := make(map[string]bool, len(plan.StaleLocks))
	for _, l := range plan.StaleLocks {
		staleTaskIDs[l.TaskID] = true
	}
	for _, wt := range worktrees {
		l, hasLock := lockedTasks[wt.TaskID]
		switch {
		case !hasLock:
			plan.OrphanWorktrees = append(plan.OrphanWorktrees, wt)
		case l != nil && staleTaskIDs[wt.TaskID]:
			plan.StaleWorktrees = append(plan.StaleWorktrees, wt)
		}
	}

	return plan, nil
}

// IsEmpty reports whether the plan has nothing to do.
func (p *Plan) IsEmpty() bool {
	return len(p.StaleLocks) == 0 && len(p.OrphanWorktrees) == 0 &&
		len(p.StaleWorktrees) == 0 && len(p.CorruptedLocks) == 0
}

// Apply executes plan: removes stale locks first, then orphan worktrees,
// then stale worktrees, emitting one cleanup event per removal. It does
// not stop on a single failure - each step is best-effort so one bad
// worktree doesn't block cleanup of the rest.
func Apply(cfg *config.Config, plan *Plan) []error {
	var errs []error

	for _, l := range plan.StaleLocks {
		if err := lock.Remove(cfg.VillageDir, l.TaskID); err != nil {
			errs = append(errs, fmt.Errorf("removing stale lock %s: %w", l.TaskID, err))
			_ = eventlog.LogError(cfg.VillageDir, "cleanup", l.TaskID, err)
			continue
		}
		_ = eventlog.LogOK(cfg.VillageDir, "cleanup", l.TaskID, l.PaneID)
	}

	errs = append(errs, removeWorktrees(cfg, plan.OrphanWorktrees)...)
	errs = append(errs, removeWorktrees(cfg, plan.StaleWorktrees)...)

	return errs
}

// removeWorktrees deletes every entry in wts concurrently, bounded by
// worktreeRemovalConcurrency. One failing removal does not cancel the
// others - cleanup is best-effort across the whole plan.
func removeWorktrees(cfg *config.Config, wts []worktree.Info) []error {
	var (
		mu   sync.Mutex
		errs []error
	)

	g := new(errgroup.Group)
	g.SetLimit(worktreeRemovalConcurrency)
	for _, wt := range wts {
		wt := wt
		g.Go(func() error {
			if err := worktree.Delete(cfg.GitRoot, wt, true); err != nil {
				mu.Lock()
				errs = append(errs, fmt.Errorf("removing worktree %s: %w", wt.TaskID, err))
				mu.Unlock()
				_ = eventlog.LogError(cfg.VillageDir, "cleanup", wt.TaskID, err)
				return nil
			}
			_ = eventlog.LogOK(cfg.VillageDir, "cleanup", wt.TaskID, "")
			return nil
		})
	}
	_ = g.Wait()

	return errs
}
