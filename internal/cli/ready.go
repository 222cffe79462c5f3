package cli

import (
	"context"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/loomwork/village/internal/config"
	"github.com/loomwork/village/internal/ready"
	"github.com/loomwork/village/internal/render"
)

var readyJSON bool

func init() {
	readyCmd.Flags().BoolVar(&readyJSON, "json", false, "Render as JSON")
	rootCmd.AddCommand(readyCmd)
}

var readyCmd = &cobra.Command{
	Use:   "ready",
	Short: "Check whether the environment, runtime, and work queue are ready",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadAndValidateConfig()
		if err != nil {
			return err
		}
		a := ready.Assess(context.Background(), cfg)

		if readyJSON {
			return render.JSON(cmd.OutOrStdout(), "ready", a)
		}
		printReady(cmd, cfg, a)
		return nil
	},
}

func printReady(cmd *cobra.Command, cfg *config.Config, a ready.Assessment) {
	out := cmd.OutOrStdout()
	rows := []render.Field{
		{Name: "environment", Value: boolLabel(a.EnvironmentReady)},
		{Name: "runtime", Value: boolLabel(a.RuntimeReady)},
		{Name: "work available", Value: string(a.WorkAvailable)},
		{Name: "ready tasks", Value: itoa(a.ReadyTaskCount)},
		{Name: "active workers", Value: itoa(a.ActiveWorkers)},
		{Name: "stale locks", Value: itoa(a.StaleLocks)},
	}
	if a.Error != "" {
		rows = append(rows, render.Field{Name: "error", Value: a.Error})
	}
	render.Table(out, rows)

	if len(a.SuggestedActions) > 0 {
		cmd.Println()
		cmd.Println("Suggested next steps:")
		for _, s := range a.SuggestedActions {
			marker := "  "
			if s.Blocking {
				marker = "! "
			}
			cmd.Printf("%s%-20s  %s\n", marker, s.Command, s.Reason)
		}
	}
}

func boolLabel(b bool) string {
	if b {
		return "ready"
	}
	return "not ready"
}

func itoa(n int) string {
	return strconv.Itoa(n)
}
