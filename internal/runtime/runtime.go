// Package runtime is the idempotent bring-up/tear-down of the tmux session
// and the directories the orchestrator needs. It holds no daemon - every
// operation is a single probe-then-act CLI invocation.
package runtime

import (
	"context"
	"os"

	"github.com/loomwork/village/internal/config"
	"github.com/loomwork/village/internal/fileutil"
	"github.com/loomwork/village/internal/tmux"
	"github.com/loomwork/village/internal/villageerr"
)

const dashboardWindow = "dashboard"

// State is what CollectState found, before PlanInitialization decides what
// to create.
type State struct {
	DirectoriesExist bool
	SessionExists    bool
	DashboardExists  bool
}

// CollectState probes current runtime state without mutating anything.
func CollectState(ctx context.Context, cfg *config.Config) State {
	s := State{
		DirectoriesExist: dirExists(cfg.VillageDir) && dirExists(cfg.WorktreesDir),
		SessionExists:    tmux.SessionExists(ctx, cfg.SessionName),
	}
	if s.SessionExists {
		windows, _ := tmux.ListWindows(ctx, cfg.SessionName)
		for _, w := range windows {
			if w == dashboardWindow {
				s.DashboardExists = true
			}
		}
	}
	return s
}

// Plan is what ExecuteInitialization will do.
type Plan struct {
	NeedsDirectories bool
	NeedsSession     bool
	NeedsDashboard   bool
}

// PlanInitialization derives a Plan from a State.
func PlanInitialization(s State, cfg *config.Config) Plan {
	return Plan{
		NeedsDirectories: !s.DirectoriesExist,
		NeedsSession:     !s.SessionExists,
		NeedsDashboard:   cfg.Dashboard.Enabled && !s.DashboardExists,
	}
}

// ExecuteInitialization carries out plan in order: directories, session,
// dashboard window. Each step short-circuits on failure, matching the
// original runtime's ordering.
func ExecuteInitialization(ctx context.Context, cfg *config.Config, plan Plan) error {
	if plan.NeedsDirectories {
		if err := ensureDirectories(cfg); err != nil {
			return err
		}
	}
	if plan.NeedsSession {
		if err := tmux.CreateSession(ctx, cfg.SessionName); err != nil {
			return villageerr.Wrap(villageerr.SubprocessFailure, "creating tmux session", err)
		}
	}
	if plan.NeedsDashboard {
		cmd := cfg.Dashboard.Command
		if cmd == "" {
			cmd = "watch -n 2 village status --short"
		}
		if err := tmux.CreateWindow(ctx, cfg.SessionName, dashboardWindow, cmd); err != nil {
			return villageerr.Wrap(villageerr.SubprocessFailure, "creating dashboard window", err)
		}
	}
	return nil
}

func ensureDirectories(cfg *config.Config) error {
	dirs := []string{cfg.VillageDir, cfg.WorktreesDir, fileutil.VillageSubdir(cfg.VillageDir, "locks")}
	if err := fileutil.EnsureDirs(dirs...); err != nil {
		return villageerr.Wrap(villageerr.SubprocessFailure, "creating village directories", err)
	}
	return nil
}

// Shutdown kills the tmux session only; locks and worktrees are untouched -
// tearing down the runtime does not discard in-flight work.
func Shutdown(ctx context.Context, cfg *config.Config) error {
	if !tmux.SessionExists(ctx, cfg.SessionName) {
		return nil
	}
	return tmux.KillSession(ctx, cfg.SessionName)
}

func dirExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
