package commands

import (
	"context"
	"fmt"
	"time"

	"econwatcher/internal/chrono"
	"econwatcher/internal/reader"
	"econwatcher/internal/store"
	"econwatcher/internal/survey"
	"econwatcher/internal/telemetry"

	"github.com/spf13/cobra"
)

const report_sync = "sync"

var (
	syncKinds []string
	syncDb    string
)

func init() {
	syncCmd.Flags().StringSliceVar(&syncKinds, "kind", []string{"current", "future"}, "The surveys to sync.")
	syncCmd.Flags().StringVar(&syncDb, "db", "", "The sqlite database to sync into, defaults to the db of the config.")
	rootCmd.AddCommand(syncCmd)
}

func parseKinds(kinds []string) ([]survey.Variant, error) {
	variants := make([]survey.Variant, 0, len(kinds))
	for _, kind := range kinds {
		variant, err := survey.ParseKind(kind)
		if err != nil {
			return nil, err
		}
		variants = append(variants, variant)
	}
	return variants, nil
}

// missingRuns groups the available months that are not stored yet into runs
// of consecutive available months, so each run is one GetData call.
func missingRuns(period reader.Period, stored []time.Time) [][]reader.Source {
	have := map[string]bool{}
	for _, month := range stored {
		have[month.Format(chrono.MonthLayout)] = true
	}

	var runs [][]reader.Source
	var current []reader.Source
	for _, source := range period.Sources() {
		if have[source.Month.Format(chrono.MonthLayout)] {
			if len(current) > 0 {
				runs = append(runs, current)
				current = nil
			}
			continue
		}
		current = append(current, source)
	}
	if len(current) > 0 {
		runs = append(runs, current)
	}
	return runs
}

// syncVariant stores every available month of a variant that is not stored
// yet and returns the amount of months it fetched.
func syncVariant(ctx context.Context, r *reader.Reader, s store.Store, variant survey.Variant, tel telemetry.API) (int, error) {
	stored, err := s.Months(ctx, variant)
	if err != nil {
		return 0, fmt.Errorf("stored months of %s: %w", variant, err)
	}

	fetched := 0
	for _, run := range missingRuns(r.Period(), stored) {
		data, err := r.GetData(ctx, reader.Query{
			Kind:  variant.String(),
			Start: run[0].Month,
			End:   run[len(run)-1].Month,
		})
		if err != nil {
			return fetched, err
		}
		err = s.Save(ctx, data)
		if err != nil {
			return fetched, fmt.Errorf("save %s: %w", variant, err)
		}
		fetched += len(run)
		tel.ReportDebug(
			"synced months",
			variant.String(),
			run[0].Month.Format(chrono.MonthLayout),
			run[len(run)-1].Month.Format(chrono.MonthLayout),
			len(data.Rows),
		)
	}
	return fetched, nil
}

func runSync(ctx context.Context, variants []survey.Variant, dbPath string) error {
	s, err := store.Open(dbPath)
	if err != nil {
		return err
	}
	defer s.Close()

	client, err := newClient()
	if err != nil {
		return err
	}
	r, err := newReader(ctx, client)
	if err != nil {
		return err
	}

	for _, variant := range variants {
		n, err := syncVariant(ctx, r, s, variant, app.tel)
		if err != nil {
			app.tel.ReportBroken(report_sync, err, variant.String())
			return err
		}
		app.tel.ReportCount(fmt.Sprintf("synced.%s", variant), int64(n))
	}
	return nil
}

func syncDbPath() string {
	if syncDb != "" {
		return syncDb
	}
	return app.cfg.Db
}

var syncCmd = &cobra.Command{
	Use:   "sync [--kind current,future] [--db <path/to/output.db>]",
	Short: "Fetch every available month that is not in the database yet.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		variants, err := parseKinds(syncKinds)
		if err != nil {
			return err
		}
		return runSync(cmd.Context(), variants, syncDbPath())
	},
}
