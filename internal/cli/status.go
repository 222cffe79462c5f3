package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/loomwork/village/internal/cleanup"
	"github.com/loomwork/village/internal/config"
	"github.com/loomwork/village/internal/lock"
	"github.com/loomwork/village/internal/render"
	"github.com/loomwork/village/internal/tmux"
)

var (
	statusFollow   bool
	statusInterval float64
	statusJSON     bool
	statusShort    bool
	statusWorkers  bool
)

func init() {
	statusCmd.Flags().BoolVarP(&statusFollow, "follow", "f", false, "Live-update status (like watch)")
	statusCmd.Flags().Float64VarP(&statusInterval, "interval", "n", 2.0, "Seconds between updates (with --follow)")
	statusCmd.Flags().BoolVar(&statusJSON, "json", false, "Render as JSON")
	statusCmd.Flags().BoolVar(&statusShort, "short", false, "One-line summary, for embedding in a dashboard window")
	statusCmd.Flags().BoolVar(&statusWorkers, "workers", false, "Show pane, window and claim time under each worker")
	rootCmd.AddCommand(statusCmd)
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the status of every worker",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadAndValidateConfig()
		if err != nil {
			return err
		}
		if statusFollow {
			return followStatus(cfg)
		}
		return renderStatus(os.Stdout, cfg)
	},
}

// workerRow is one worker's status, the shape both text and JSON render.
type workerRow struct {
	TaskID     string `json:"task_id"`
	Status     string `json:"status"`
	State      string `json:"state,omitempty"`
	Agent      string `json:"agent"`
	PaneID     string `json:"pane_id,omitempty"`
	WindowName string `json:"window_name,omitempty"`
	ClaimedAt  string `json:"claimed_at,omitempty"`
}

type statusPayload struct {
	Workers         []workerRow `json:"workers"`
	ActiveCount     int         `json:"active_count"`
	StaleCount      int         `json:"stale_count"`
	OrphanWorktrees int         `json:"orphan_worktrees"`
}

func collectStatus(cfg *config.Config) (statusPayload, error) {
	ctx := context.Background()
	locks, _ := lock.ListAll(cfg.VillageDir)
	panes, err := tmux.Panes(ctx, cfg.SessionName, false)
	if err != nil {
		return statusPayload{}, err
	}

	var payload statusPayload
	for _, l := range locks {
		status := lock.Evaluate(l, panes)
		row := workerRow{
			TaskID:     l.TaskID,
			Status:     string(status),
			State:      string(l.State),
			Agent:      l.Agent,
			PaneID:     l.PaneID,
			WindowName: l.WindowName,
			ClaimedAt:  l.ClaimedAt.Format(time.RFC3339),
		}
		payload.Workers = append(payload.Workers, row)
		if status == lock.Active {
			payload.ActiveCount++
		} else {
			payload.StaleCount++
		}
	}
	sort.Slice(payload.Workers, func(i, j int) bool { return payload.Workers[i].TaskID < payload.Workers[j].TaskID })

	if plan, err := cleanup.Compute(ctx, cfg); err == nil {
		payload.OrphanWorktrees = len(plan.OrphanWorktrees)
	}

	return payload, nil
}

func renderStatus(w io.Writer, cfg *config.Config) error {
	payload, err := collectStatus(cfg)
	if err != nil {
		return err
	}

	if statusJSON {
		return render.JSON(w, "status", payload)
	}
	if statusShort {
		fmt.Fprintf(w, "%sworkers:%s %d active, %d stale, %d orphan worktrees\n",
			ansiBoldMagenta, ansiReset, payload.ActiveCount, payload.StaleCount, payload.OrphanWorktrees)
		return nil
	}

	fmt.Fprintln(w, "Worker Status")
	fmt.Fprintln(w, "──────────────────────────────────────")
	if len(payload.Workers) == 0 {
		fmt.Fprintln(w, "  (no workers)")
	}
	for _, wk := range payload.Workers {
		symbol, color := stateDisplay(lock.Status(wk.Status), lock.State(wk.State))
		fmt.Fprintf(w, "  %s%s%s  %-20s  agent=%-10s  %s\n", color, symbol, ansiReset, wk.TaskID, wk.Agent, displayLabel(lock.State(wk.State)))
		if statusWorkers {
			fmt.Fprintf(w, "      pane=%s window=%s claimed=%s\n", wk.PaneID, wk.WindowName, wk.ClaimedAt)
		}
	}
	if payload.OrphanWorktrees > 0 {
		fmt.Fprintf(w, "\n%d orphan worktree(s) - run `village cleanup`\n", payload.OrphanWorktrees)
	}
	return nil
}

func followStatus(cfg *config.Config) error {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	interval := time.Duration(statusInterval * float64(time.Second))

	for {
		fmt.Print("\033[H\033[2J")
		fmt.Printf("Every %.1fs: village status\n\n", statusInterval)
		if err := renderStatus(os.Stdout, cfg); err != nil {
			fmt.Fprintf(os.Stderr, "\nerror: %s\n", err)
		}

		select {
		case <-sigCh:
			fmt.Println()
			return nil
		case <-time.After(interval):
		}
	}
}
