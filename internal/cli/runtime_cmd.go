package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/loomwork/village/internal/runtime"
)

var upCmd = &cobra.Command{
	Use:   "up",
	Short: "Bring up the village runtime (directories and tmux session)",
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := loadAndValidateConfig()
		if err != nil {
			exitForError(err)
		}
		ctx := context.Background()
		state := runtime.CollectState(ctx, cfg)
		plan := runtime.PlanInitialization(state, cfg)
		if err := runtime.ExecuteInitialization(ctx, cfg, plan); err != nil {
			exitForError(err)
		}
		fmt.Println("village is up")
	},
}

var downCmd = &cobra.Command{
	Use:   "down",
	Short: "Tear down the tmux session (locks and worktrees are left intact)",
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := loadAndValidateConfig()
		if err != nil {
			exitForError(err)
		}
		if err := runtime.Shutdown(context.Background(), cfg); err != nil {
			exitForError(err)
		}
		fmt.Println("village is down")
	},
}

func init() {
	rootCmd.AddCommand(upCmd)
	rootCmd.AddCommand(downCmd)
}
