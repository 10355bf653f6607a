package cli

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/DavidD95/Prueba-Data-Engineering/internal/app"
	"github.com/spf13/cobra"
)

func newHistoryCmd(ro *rootOptions) *cobra.Command {
	var limit int

	historyCmd := &cobra.Command{
		Use:   "history",
		Short: "List recent runs from the run ledger",
		RunE: func(cmd *cobra.Command, args []string) error {
			log := commandLogger(cmd)
			cfg, err := ro.loadConfig(nil)
			if err != nil {
				return err
			}
			a, err := app.New(cmd.Context(), cfg, log, ro.appOptions...)
			if err != nil {
				return err
			}
			defer a.Close()

			runs, err := a.Runs.List(cmd.Context(), limit, 0)
			if err != nil {
				return fmt.Errorf("failed to list runs: %w", err)
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "RUN ID\tSTARTED\tSTATUS\tUNITS\tLOADED\tFAILED\tARCHIVED\tARCHIVE FAILED")
			for _, r := range runs {
				fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\t%d\t%d\t%d\n",
					r.ID, r.StartedAt.Format(time.RFC3339), r.Status,
					r.TotalUnits, r.LoadedUnits, r.FailedUnits, r.ArchivedUnits, r.ArchiveFailedUnits)
			}
			return w.Flush()
		},
	}
	historyCmd.Flags().IntVarP(&limit, "limit", "n", 20, "Number of runs to show")

	return historyCmd
}
