package stats

import (
	"encoding/json"

	"github.com/spf13/cobra"

	"github.com/Himson2006/Yolo-Gpu-2/internal/config"
)

// Command creates the stats command, which prints the aggregation report as JSON.
func Command(app *config.Context) *cobra.Command {
	var compact bool

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Print class frequency, daily counts and co-occurrence as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.OpenStore(); err != nil {
				return err
			}
			report, err := app.AnalyticsEngine().Compute(cmd.Context())
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			if !compact {
				enc.SetIndent("", "  ")
			}
			return enc.Encode(report)
		},
	}

	cmd.Flags().BoolVar(&compact, "compact", false, "Print the report on one line")

	return cmd
}
