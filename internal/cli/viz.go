package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/loomwork/village/internal/pipeline"
)

func init() {
	rootCmd.AddCommand(vizCmd)
}

var vizCmd = &cobra.Command{
	Use:   "viz",
	Short: "Visualize the concern pipeline graph",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadAndValidateConfig()
		if err != nil {
			return err
		}
		fmt.Print(pipeline.Render(cfg))
		return nil
	},
}
