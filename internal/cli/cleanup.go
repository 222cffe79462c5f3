package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/loomwork/village/internal/cleanup"
	"github.com/loomwork/village/internal/render"
)

var (
	cleanupApply bool
	cleanupJSON  bool
)

func init() {
	cleanupCmd.Flags().BoolVar(&cleanupApply, "apply", false, "Apply the plan instead of only printing it")
	cleanupCmd.Flags().BoolVar(&cleanupJSON, "json", false, "Render the plan as JSON")
	rootCmd.AddCommand(cleanupCmd)
}

var cleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Reconcile stale locks and orphan worktrees",
	Long: `Scan locks and worktrees and report what cleanup would do. Nothing
is removed unless --apply is given. Stale locks are removed first, then
orphan worktrees (no matching lock at all), then worktrees whose lock is
stale - each removal best-effort and logged independently.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadAndValidateConfig()
		if err != nil {
			return err
		}
		ctx := context.Background()
		plan, err := cleanup.Compute(ctx, cfg)
		if err != nil {
			return err
		}

		if cleanupJSON {
			if err := render.JSON(cmd.OutOrStdout(), "cleanup", plan); err != nil {
				return err
			}
		} else {
			printCleanupPlan(cmd, plan)
		}

		if !cleanupApply {
			if !plan.IsEmpty() && !cleanupJSON {
				cmd.Println("\nRun with --apply to remove these.")
			}
			return nil
		}
		if plan.IsEmpty() {
			return nil
		}

		errs := cleanup.Apply(cfg, plan)
		for _, e := range errs {
			fmt.Fprintf(cmd.ErrOrStderr(), "error: %s\n", e)
		}
		if len(errs) > 0 {
			return fmt.Errorf("%d cleanup error(s)", len(errs))
		}
		return nil
	},
}

func printCleanupPlan(cmd *cobra.Command, plan *cleanup.Plan) {
	if plan.IsEmpty() {
		cmd.Println("Nothing to clean up.")
		return
	}
	for _, l := range plan.StaleLocks {
		cmd.Printf("  stale lock       %s\n", l.TaskID)
	}
	for _, wt := range plan.OrphanWorktrees {
		cmd.Printf("  orphan worktree  %s (%s)\n", wt.TaskID, wt.Path)
	}
	for _, wt := range plan.StaleWorktrees {
		cmd.Printf("  stale worktree   %s (%s)\n", wt.TaskID, wt.Path)
	}
	for _, p := range plan.CorruptedLocks {
		cmd.Printf("  corrupted lock   %s\n", p)
	}
}
