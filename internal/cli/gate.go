package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/loomwork/village/internal/config"
	"github.com/loomwork/village/internal/gate"
)

var gateDir string

func init() {
	gateCmd.Flags().StringVar(&gateDir, "dir", "", "Directory to run gates against (default: repo root)")
	rootCmd.AddCommand(gateCmd)
}

var gateCmd = &cobra.Command{
	Use:   "gate",
	Short: "Run configured quality gates against staged files",
	Long: `Run every gate configured in village.yaml, in order, against the
staged files of a worktree. Each gate's run command may reference {staged},
the space-separated (and shell-quoted) list of staged file paths, filtered
by any .villageignore patterns present in that directory. Execution stops
at the first gate that fails.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadAndValidateConfig()
		if err != nil {
			return err
		}
		if errs := config.ValidateGates(cfg.Gates); len(errs) > 0 {
			return configErrorList(errs)
		}
		if len(cfg.Gates) == 0 {
			fmt.Println("No gates configured.")
			return nil
		}
		dir := gateDir
		if dir == "" {
			dir = cfg.GitRoot
		}
		return gate.Run(context.Background(), cfg, dir)
	},
}
