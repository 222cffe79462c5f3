package cli

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"github.com/loomwork/village/internal/queue"
	"github.com/loomwork/village/internal/render"
)

var (
	queueForce      bool
	queueJSON       bool
	queueDryRun     bool
	queuePlan       bool
	queueMaxAdmit   int
	queueAgent      string
	queueMaxWorkers int
)

func init() {
	queueCmd.Flags().BoolVar(&queueForce, "force", false, "Ignore the recently-executed dedup window")
	queueCmd.Flags().BoolVar(&queueJSON, "json", false, "Render the plan/outcomes as JSON")
	queueCmd.Flags().BoolVar(&queueDryRun, "dry-run", false, "Only print the admission plan, don't execute anything")
	queueCmd.Flags().BoolVar(&queuePlan, "plan", false, "Alias for --dry-run")
	queueCmd.Flags().IntVarP(&queueMaxAdmit, "max", "n", 0, "Admit at most n tasks (0 = no extra limit beyond concurrency)")
	queueCmd.Flags().StringVar(&queueAgent, "agent", "", "Override the default agent for tasks with no agent in their ready metadata")
	queueCmd.Flags().IntVar(&queueMaxWorkers, "max-workers", 0, "Override the configured concurrency limit for this invocation (0 = use config)")
	rootCmd.AddCommand(queueCmd)
}

var queueCmd = &cobra.Command{
	Use:   "queue",
	Short: "Admit and dispatch ready tasks up to the concurrency budget",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadAndValidateConfig()
		if err != nil {
			return err
		}
		if queueAgent != "" {
			cfg.DefaultAgent = queueAgent
		}
		if queueMaxWorkers > 0 {
			cfg.MaxWorkers = queueMaxWorkers
		}
		ctx := context.Background()
		plan, err := queue.BuildPlan(ctx, cfg, queueForce)
		if err != nil {
			return err
		}

		if queueDryRun || queuePlan {
			if queueJSON {
				return render.JSON(cmd.OutOrStdout(), "queue", plan)
			}
			printQueuePlan(cmd, plan)
			return nil
		}

		outcomes := queue.Execute(ctx, cfg, plan, queueMaxAdmit)

		if queueJSON {
			if err := render.JSON(cmd.OutOrStdout(), "queue", outcomes); err != nil {
				return err
			}
		} else {
			printQueueOutcomes(cmd, outcomes)
		}

		os.Exit(queue.ExitCode(outcomes))
		return nil
	},
}

func printQueuePlan(cmd *cobra.Command, plan *queue.Plan) {
	cmd.Printf("slots: %d/%d available, %d active\n", plan.SlotsAvailable, plan.ConcurrencyLimit, plan.ActiveWorkers)
	for _, t := range plan.Available {
		cmd.Printf("  admit   %s  agent=%s\n", t.TaskID, t.Agent)
	}
	for _, b := range plan.Blocked {
		cmd.Printf("  skip    %s  agent=%s  reason=%s\n", b.TaskID, b.Agent, b.Reason)
	}
}

func printQueueOutcomes(cmd *cobra.Command, outcomes []queue.TaskOutcome) {
	if len(outcomes) == 0 {
		cmd.Println("No tasks admitted.")
		return
	}
	for _, o := range outcomes {
		if o.Err != nil {
			cmd.Printf("  failed   %s  %s\n", o.TaskID, o.Err)
			continue
		}
		cmd.Printf("  started  %s  pane=%s window=%s\n", o.TaskID, o.Result.PaneID, o.Result.WindowName)
	}
}
