package cli

import (
	"errors"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

func HistoryCommand() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show the latest remove and sync operations",
		Args:  cobra.NoArgs,
		RunE: withApp(func(cmd *cobra.Command, args []string, app *App) error {
			if app.History == nil {
				return errors.New("operation history is disabled, set database.enabled in the config")
			}

			records, err := app.History.List(limit)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tSTARTED\tKIND\tFOLDER\tTARGET\tSTATUS\tCOPIED\tSKIPPED\tDELETED\tDURATION\tERROR")
			for _, r := range records {
				fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\t%d\t%d\t%d\t%s\t%s\n",
					r.ID,
					r.StartedAt.Local().Format(time.DateTime),
					r.Kind,
					r.Folder,
					r.Target,
					r.Status,
					r.FilesCopied,
					r.FilesSkipped,
					r.EntriesDeleted,
					r.Duration,
					r.Error,
				)
			}
			return w.Flush()
		}),
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "Number of operations to show, 0 for all")
	return cmd
}
