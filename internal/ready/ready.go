// Package ready implements the non-mutating readiness probe: is the
// environment set up, is the runtime (tmux session) up, is there work
// available, and what should the user do next.
package ready

import (
	"context"
	"os"

	"github.com/loomwork/village/internal/config"
	"github.com/loomwork/village/internal/lock"
	"github.com/loomwork/village/internal/readysource"
	"github.com/loomwork/village/internal/tmux"
	"github.com/loomwork/village/internal/worktree"
)

// WorkState is the closed tri-state of task availability.
type WorkState string

const (
	WorkAvailable WorkState = "available"
	WorkNone      WorkState = "none"
	WorkUnknown   WorkState = "unknown"
)

// SuggestedAction is one actionable next step, ranked by priority.
type SuggestedAction struct {
	Command  string
	Blocking bool
	Reason   string
}

// Assessment is the full readiness snapshot.
type Assessment struct {
	EnvironmentReady bool
	RuntimeReady     bool
	WorkAvailable    WorkState
	ReadyTaskCount   int
	ActiveWorkers    int
	StaleLocks       int
	OrphanWorktrees  int
	SuggestedActions []SuggestedAction `json:"-"` // text output only
	Error            string
}

// CheckEnvironmentReady reports whether the required directories exist.
func CheckEnvironmentReady(cfg *config.Config) bool {
	return dirExists(cfg.VillageDir) && dirExists(cfg.WorktreesDir)
}

// CheckRuntimeReady reports whether the tmux session is up.
func CheckRuntimeReady(ctx context.Context, cfg *config.Config) bool {
	return tmux.SessionExists(ctx, cfg.SessionName)
}

// Assess runs every check and produces a ranked list of suggested actions.
// Any internal error is captured on Assessment.Error rather than returned,
// so the command surface can still render a (degraded) status.
func Assess(ctx context.Context, cfg *config.Config) Assessment {
	a := Assessment{WorkAvailable: WorkUnknown}

	defer func() {
		if r := recover(); r != nil {
			a.Error = "panic during readiness assessment"
		}
	}()

	a.EnvironmentReady = CheckEnvironmentReady(cfg)
	if !a.EnvironmentReady {
		a.SuggestedActions = append(a.SuggestedActions, SuggestedAction{
			Command: "village up", Blocking: true, Reason: "required directories are missing",
		})
		return a
	}

	a.RuntimeReady = CheckRuntimeReady(ctx, cfg)
	if !a.RuntimeReady {
		a.SuggestedActions = append(a.SuggestedActions, SuggestedAction{
			Command: "village up", Blocking: true, Reason: "tmux session is not running",
		})
		return a
	}

	locks, parseErrs := lock.ListAll(cfg.VillageDir)
	if len(parseErrs) > 0 {
		a.Error = "one or more lock files could not be parsed"
	}
	panes, err := tmux.Panes(ctx, cfg.SessionName, false)
	if err != nil {
		a.Error = err.Error()
		return a
	}
	statuses := lock.EvaluateAll(locks, panes)
	for _, s := range statuses {
		if s == lock.Active {
			a.ActiveWorkers++
		} else {
			a.StaleLocks++
		}
	}

	if worktrees, err := worktree.List(cfg.GitRoot, cfg.WorktreesDir); err == nil {
		lockedTasks := make(map[string]bool, len(locks))
		for _, l := range locks {
			lockedTasks[l.TaskID] = true
		}
		for _, wt := range worktrees {
			if !lockedTasks[wt.TaskID] {
				a.OrphanWorktrees++
			}
		}
	}

	if a.StaleLocks > 0 || a.OrphanWorktrees > 0 {
		a.SuggestedActions = append(a.SuggestedActions, SuggestedAction{
			Command: "village cleanup", Blocking: false,
			Reason: "stale locks or orphan worktrees are present",
		})
	}

	tasks, err := readysource.List(ctx, cfg.GitRoot, cfg.ReadySourceCmd)
	if err != nil {
		a.WorkAvailable = WorkUnknown
	} else if len(tasks) > 0 {
		a.WorkAvailable = WorkAvailable
		a.ReadyTaskCount = len(tasks)
		a.SuggestedActions = append(a.SuggestedActions, SuggestedAction{
			Command: "village queue", Blocking: false,
			Reason: "ready tasks are waiting to be queued",
		})
	} else {
		a.WorkAvailable = WorkNone
	}

	if a.ActiveWorkers > 0 {
		a.SuggestedActions = append(a.SuggestedActions, SuggestedAction{
			Command: "village status --workers", Blocking: false,
			Reason: "workers are currently active",
		})
	}

	if len(a.SuggestedActions) == 0 {
		a.SuggestedActions = append(a.SuggestedActions, SuggestedAction{
			Command: "village ready", Blocking: false,
			Reason: "nothing actionable right now; re-check later",
		})
	}

	return a
}

func dirExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
