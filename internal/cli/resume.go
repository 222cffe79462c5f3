package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/loomwork/village/internal/render"
	"github.com/loomwork/village/internal/resume"
)

var (
	resumeAgent  string
	resumeDryRun bool
	resumeJSON   bool
)

func init() {
	resumeCmd.Flags().StringVar(&resumeAgent, "agent", "", "Agent label (defaults to config.default_agent)")
	resumeCmd.Flags().BoolVar(&resumeDryRun, "dry-run", false, "Only create the worktree, skip the tmux window and lock")
	resumeCmd.Flags().BoolVar(&resumeJSON, "json", false, "Render the result as JSON")
	rootCmd.AddCommand(resumeCmd)
}

var resumeCmd = &cobra.Command{
	Use:   "resume <task-id>",
	Short: "Resume a single task: worktree, tmux window, lock, contract injection",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadAndValidateConfig()
		if err != nil {
			return err
		}
		taskID := args[0]
		agent := resumeAgent
		if agent == "" {
			agent = cfg.DefaultAgent
		}

		result, err := resume.Execute(context.Background(), cfg, resume.Options{
			TaskID: taskID,
			Agent:  agent,
			DryRun: resumeDryRun,
		})
		if err != nil {
			return err
		}

		if resumeJSON {
			return render.JSON(cmd.OutOrStdout(), "resume", result)
		}

		cmd.Printf("task=%s worktree=%s branch=%s window=%s pane=%s\n",
			result.TaskID, result.WorktreePath, result.Branch, result.WindowName, result.PaneID)
		if result.Warning != "" {
			cmd.Printf("warning: %s\n", result.Warning)
		}
		return nil
	},
}
