package commands

import (
	"fmt"

	"econwatcher/internal/chrono"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(periodsCmd)
}

var periodsCmd = &cobra.Command{
	Use:   "periods",
	Short: "List the months the survey is available for.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newClient()
		if err != nil {
			return err
		}
		r, err := newReader(cmd.Context(), client)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		t := newTable(out)
		t.AppendHeader(table.Row{"month", "directory"})
		for _, source := range r.Period().Sources() {
			link, err := client.FileUrl(source.Link, "")
			if err != nil {
				link = source.Link
			}
			t.AppendRow(table.Row{source.Month.Format(chrono.MonthLayout), link})
		}
		t.Render()

		fmt.Fprintf(
			out,
			"earliest: %s, latest: %s\n",
			r.Earliest().Format(chrono.MonthLayout),
			r.Latest().Format(chrono.MonthLayout),
		)
		return nil
	},
}
