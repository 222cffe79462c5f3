// Package queue is the arbitration layer between ready tasks and the
// resume executor: it decides, deterministically, which ready tasks may be
// admitted given the concurrency budget and recent-execution history.
package queue

import (
	"context"

	"github.com/loomwork/village/internal/config"
	"github.com/loomwork/village/internal/eventlog"
	"github.com/loomwork/village/internal/lock"
	"github.com/loomwork/village/internal/readysource"
	"github.com/loomwork/village/internal/resume"
	"github.com/loomwork/village/internal/tmux"
)

// SkipReason is the closed set of reasons a ready task was not admitted.
type SkipReason string

const (
	SkipActiveLock       SkipReason = "active_lock"
	SkipConcurrencyLimit SkipReason = "concurrency_limit"
	SkipRecentlyExecuted SkipReason = "recently_executed"
)

// Task is one ready task carried through the plan.
type Task struct {
	TaskID string
	Agent  string
}

// Blocked pairs a skipped task with why it was skipped.
type Blocked struct {
	Task
	Reason SkipReason
}

// Plan is the deterministic admission decision for one queue evaluation.
type Plan struct {
	Available        []Task
	Blocked          []Blocked
	SlotsAvailable   int
	ActiveWorkers    int
	ConcurrencyLimit int
}

// BuildPlan fetches ready tasks and arbitrates them against current lock
// and pane state. Tasks are tested in source order, each against dedup
// (unless force), active-lock, then concurrency-limit, in that fixed
// order - the first failing test wins and no later test is consulted.
func BuildPlan(ctx context.Context, cfg *config.Config, force bool) (*Plan, error) {
	readyTasks, err := readysource.List(ctx, cfg.GitRoot, cfg.ReadySourceCmd)
	if err != nil {
		return nil, err
	}

	panes, err := tmux.Panes(ctx, cfg.SessionName, true)
	if err != nil {
		return nil, err
	}
	locks, _ := lock.ListAll(cfg.VillageDir)
	lockByTask := make(map[string]*lock.Lock, len(locks))
	for _, l := range locks {
		lockByTask[l.TaskID] = l
	}

	activeCount := 0
	for _, l := range locks {
		if lock.IsActive(l, panes) {
			activeCount++
		}
	}
	slots := cfg.MaxWorkers - activeCount
	if slots < 0 {
		slots = 0
	}

	events, _ := eventlog.Read(cfg.VillageDir)

	plan := &Plan{
		SlotsAvailable:   slots,
		ActiveWorkers:    activeCount,
		ConcurrencyLimit: cfg.MaxWorkers,
	}

	admitted := 0
	for _, rt := range readyTasks {
		task := Task{TaskID: rt.ID, Agent: readysource.ExtractAgent(rt.Metadata, cfg.DefaultAgent)}

		if !force {
			if recent, _ := eventlog.IsTaskRecent(events, rt.ID, cfg.QueueTTLMinutes); recent {
				plan.Blocked = append(plan.Blocked, Blocked{Task: task, Reason: SkipRecentlyExecuted})
				continue
			}
		}

		if l, ok := lockByTask[rt.ID]; ok && lock.IsActive(l, panes) {
			plan.Blocked = append(plan.Blocked, Blocked{Task: task, Reason: SkipActiveLock})
			continue
		}

		if admitted >= slots {
			plan.Blocked = append(plan.Blocked, Blocked{Task: task, Reason: SkipConcurrencyLimit})
			continue
		}

		plan.Available = append(plan.Available, task)
		admitted++
	}

	return plan, nil
}

// TaskOutcome is the per-task result of executing part of a plan.
type TaskOutcome struct {
	Task
	Result *resume.Result
	Err    error
}

// Execute runs resume.Execute for up to n of plan.Available, in order,
// sequentially within this process. Each task's outcome is independent:
// one failure does not stop the remaining tasks from being attempted.
func Execute(ctx context.Context, cfg *config.Config, plan *Plan, n int) []TaskOutcome {
	limit := len(plan.Available)
	if n > 0 && n < limit {
		limit = n
	}

	outcomes := make([]TaskOutcome, 0, limit)
	for i := 0; i < limit; i++ {
		task := plan.Available[i]
		res, err := resume.Execute(ctx, cfg, resume.Options{TaskID: task.TaskID, Agent: task.Agent})
		outcomes = append(outcomes, TaskOutcome{Task: task, Result: res, Err: err})
	}
	return outcomes
}

// ExitCode computes the closed exit-code policy for a batch of outcomes:
// all succeeded -> 0, a mix -> 4 (partial), none succeeded but at least one
// was attempted -> 1, nothing was attempted at all -> 3 (blocked).
func ExitCode(outcomes []TaskOutcome) int {
	if len(outcomes) == 0 {
		return 3
	}
	succeeded, failed := 0, 0
	for _, o := range outcomes {
		if o.Err == nil {
			succeeded++
		} else {
			failed++
		}
	}
	switch {
	case failed == 0:
		return 0
	case succeeded == 0:
		return 1
	default:
		return 4
	}
}
