// Package pipeline generalizes the teacher's concern-chain engine into an
// optional post-completion enrichment DAG: once a task's lock reaches the
// completed state, its branch can flow through one or more named concerns
// (security, style, docs, ...), each run as its own resumed task.
package pipeline

import (
	"context"
	"fmt"

	"github.com/loomwork/village/internal/config"
	"github.com/loomwork/village/internal/resume"
)

// TopologicalLevels groups concerns into levels such that every concern in
// level i only watches concerns in levels < i (or "completed"). Concerns
// within a level have no dependency on each other and could run in
// parallel; this module still dispatches them sequentially (see §5).
func TopologicalLevels(cfg *config.Config) [][]config.Concern {
	byName := make(map[string]config.Concern, len(cfg.Concerns))
	for _, c := range cfg.Concerns {
		byName[c.Name] = c
	}
	level := make(map[string]int, len(cfg.Concerns))

	var assign func(name string) int
	assign = func(name string) int {
		if lvl, ok := level[name]; ok {
			return lvl
		}
		c := byName[name]
		if !cfg.HasConcern(c.Watches) {
			level[name] = 0
			return 0
		}
		lvl := assign(c.Watches) + 1
		level[name] = lvl
		return lvl
	}

	maxLevel := 0
	for _, c := range cfg.Concerns {
		lvl := assign(c.Name)
		if lvl > maxLevel {
			maxLevel = lvl
		}
	}

	levels := make([][]config.Concern, maxLevel+1)
	for _, c := range cfg.Concerns {
		lvl := level[c.Name]
		levels[lvl] = append(levels[lvl], c)
	}
	return levels
}

// FanOutCompletion resumes every root concern (one whose Watches is
// "completed") for a task that just finished, each as its own task ID
// derived from the originating task, reusing the resume executor rather
// than a second execution path.
func FanOutCompletion(ctx context.Context, cfg *config.Config, completedTaskID string) []error {
	var errs []error
	for _, name := range cfg.FindRoots() {
		concernTaskID := fmt.Sprintf("%s-%s", completedTaskID, name)
		_, err := resume.Execute(ctx, cfg, resume.Options{
			TaskID: concernTaskID,
			Agent:  name,
		})
		if err != nil {
			errs = append(errs, fmt.Errorf("concern %s for %s: %w", name, completedTaskID, err))
		}
	}
	return errs
}
