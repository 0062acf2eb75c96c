package commands

import (
	"fmt"
	"sync"

	"econwatcher/internal/chrono"
	"econwatcher/internal/telemetry"

	"github.com/spf13/cobra"
)

const report_watch = "watch"

var (
	watchKinds []string
	watchDb    string
)

func init() {
	watchCmd.Flags().StringSliceVar(&watchKinds, "kind", []string{"current", "future"}, "The surveys to sync.")
	watchCmd.Flags().StringVar(&watchDb, "db", "", "The sqlite database to sync into, defaults to the db of the config.")
	rootCmd.AddCommand(watchCmd)
}

// scheduleSync runs `job` on `spec`, skipping a tick while the previous run
// is still going.
func scheduleSync(cron chrono.CronAPI, spec string, job func() error, tel telemetry.API) error {
	var running sync.Mutex
	return cron.Cron(spec, func() {
		if !running.TryLock() {
			tel.ReportWarning(report_watch, "previous sync is still running, skipping")
			return
		}
		defer running.Unlock()

		err := job()
		if err != nil {
			tel.ReportBroken(report_watch, err)
		}
	})
}

var watchCmd = &cobra.Command{
	Use:   "watch [--kind current,future] [--db <path/to/output.db>]",
	Short: "Sync the database on the configured cron schedule until interrupted.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		variants, err := parseKinds(watchKinds)
		if err != nil {
			return err
		}
		dbPath := watchDb
		if dbPath == "" {
			dbPath = app.cfg.Db
		}

		telemetry.InstrumentPerfStats(ctx, app.tel)

		cron := chrono.NewStandardCron(app.tel)
		err = scheduleSync(cron, app.cfg.SyncCron, func() error {
			return runSync(ctx, variants, dbPath)
		}, app.tel)
		if err != nil {
			<-cron.Stop()
			return fmt.Errorf("schedule %q: %w", app.cfg.SyncCron, err)
		}
		app.tel.ReportDebug("watching", app.cfg.SyncCron, dbPath)

		<-ctx.Done()
		<-cron.Stop()
		return nil
	},
}
