package commands

import (
	"fmt"
	"time"

	"econwatcher/internal/chrono"
	"econwatcher/internal/reader"

	"github.com/spf13/cobra"
)

var (
	getKind   string
	getStart  string
	getEnd    string
	getFormat string
)

func init() {
	getCmd.Flags().StringVar(&getKind, "kind", "current", "The survey to read, current or future.")
	getCmd.Flags().StringVar(&getStart, "start", "", "The first month to read (YYYY-MM), every available month if neither start nor end is set.")
	getCmd.Flags().StringVar(&getEnd, "end", "", "The last month to read (YYYY-MM), only the start month if not set.")
	getCmd.Flags().StringVar(&getFormat, "format", formatTable, "The output format: table, csv or json.")
	rootCmd.AddCommand(getCmd)
}

func parseMonthFlag(name, value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, nil
	}
	month, err := chrono.ParseMonth(value)
	if err != nil {
		return time.Time{}, fmt.Errorf("--%s: %w", name, err)
	}
	return month, nil
}

func parseQuery(kind, start, end string) (reader.Query, error) {
	startMonth, err := parseMonthFlag("start", start)
	if err != nil {
		return reader.Query{}, err
	}
	endMonth, err := parseMonthFlag("end", end)
	if err != nil {
		return reader.Query{}, err
	}
	return reader.Query{Kind: kind, Start: startMonth, End: endMonth}, nil
}

var getCmd = &cobra.Command{
	Use:   "get [--kind current|future] [--start YYYY-MM] [--end YYYY-MM] [--format table|csv|json]",
	Short: "Read, clean and print the survey responses of a range of months.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		switch getFormat {
		case formatTable, formatCsv, formatJson:
		default:
			return fmt.Errorf("unknown format %q", getFormat)
		}
		query, err := parseQuery(getKind, getStart, getEnd)
		if err != nil {
			return err
		}

		client, err := newClient()
		if err != nil {
			return err
		}
		r, err := newReader(cmd.Context(), client)
		if err != nil {
			return err
		}
		data, err := r.GetData(cmd.Context(), query)
		if err != nil {
			return err
		}
		return render(cmd.OutOrStdout(), data, getFormat)
	},
}
