package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/loomwork/village/internal/config"
)

// Version is set at build time via ldflags.
var Version = "dev"

var configPath string

var rootCmd = &cobra.Command{
	Use:   "village",
	Short: "Orchestrate parallel AI coding workers over git worktrees and tmux",
	Long: `Orchestrate parallel AI coding workers over git worktrees and tmux.

village runs multiple AI coding workers in parallel against a single
git repository. Each worker owns an isolated git worktree and a tmux pane;
village arbitrates which pending tasks may start given a fixed concurrency
budget, tracks liveness by correlating lock files to live panes, and
reconciles drift through explicit cleanup passes.`,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "path", "p", "village.yaml", "Path to village config file")
	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("village %s\n", Version)
	},
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// loadAndValidateConfig loads village.yaml from configPath and validates it.
func loadAndValidateConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if errs := config.Validate(cfg); len(errs) > 0 {
		return nil, configErrorList(errs)
	}
	if !config.SatisfiesMinVersion(cfg, Version) {
		return nil, fmt.Errorf("village %s does not satisfy min_cli_version %s", Version, cfg.MinCLIVersion)
	}
	return cfg, nil
}
