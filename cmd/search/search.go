package search

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/Himson2006/Yolo-Gpu-2/internal/config"
	"github.com/Himson2006/Yolo-Gpu-2/internal/search"
)

// Command creates the search command, which prints one page of matching events.
func Command(app *config.Context) *cobra.Command {
	var raw search.RawParams

	cmd := &cobra.Command{
		Use:   "search",
		Short: "Search events and print one page as a table",
		Example: `  camtrap search --species deer,fox --match all --min-count 2
  camtrap search --start-date 2024-05-01 --end-date 2024-05-31 --time-of-day night --sort longest`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.OpenStore(); err != nil {
				return err
			}
			result, err := app.SearchService().Search(cmd.Context(), raw)
			if err != nil {
				return err
			}
			return PrintResult(cmd.OutOrStdout(), result)
		},
	}

	f := cmd.Flags()
	f.StringSliceVarP(&raw.Species, "species", "s", nil, "Species labels, comma separated")
	f.StringVar(&raw.Match, "match", "", "Species match mode: any or all")
	f.StringVar(&raw.MinCount, "min-count", "", "Minimum per-frame count of the species")
	f.StringVar(&raw.MinDuration, "min-duration", "", "Minimum event duration in seconds")
	f.StringVar(&raw.StartDate, "start-date", "", "Start date, YYYY-MM-DD or YYYY-MM-DDTHH:MM:SS (UTC)")
	f.StringVar(&raw.EndDate, "end-date", "", "End date, YYYY-MM-DD (inclusive) or YYYY-MM-DDTHH:MM:SS (UTC)")
	f.StringVar(&raw.DeviceID, "device", "", "Device id")
	f.StringVar(&raw.TimeOfDay, "time-of-day", "", "day or night")
	f.StringVar(&raw.MinConfidence, "min-confidence", "", "Minimum detection confidence")
	f.StringVar(&raw.Behavior, "behavior", "", "Behavior description")
	f.StringVar(&raw.Sort, "sort", "", "recent, oldest, longest or shortest")
	f.StringVarP(&raw.Page, "page", "p", "", "Page number")

	return cmd
}

// PrintResult writes a page of events as an aligned table followed by a page footer.
// The footer says when no criterion was given and the page lists every event.
func PrintResult(w io.Writer, result *search.Result) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tDEVICE\tSTART (UTC)\tDURATION\tSPECIES\tBEHAVIORS")
	for i := range result.Events {
		e := &result.Events[i]
		var species []string
		if e.Detection != nil {
			species = e.Detection.EffectiveSpecies()
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%.1fs\t%s\t%d\n",
			e.ID,
			e.DeviceID,
			e.StartedAt.UTC().Format(time.DateTime),
			e.DurationSeconds,
			strings.Join(species, ", "),
			len(e.Behaviors))
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	win := result.Window
	if !result.Filter.SearchPerformed {
		_, err := fmt.Fprintf(w, "\npage %d of %d, %d events (no search criteria, showing all)\n", win.Page, win.Pages, win.Total)
		return err
	}
	_, err := fmt.Fprintf(w, "\npage %d of %d, %d matching events\n", win.Page, win.Pages, win.Total)
	return err
}
