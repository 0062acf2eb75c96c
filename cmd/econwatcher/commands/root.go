package commands

import (
	"context"
	"fmt"

	"econwatcher/internal/reader"
	"econwatcher/internal/scrapers/cao"
	"econwatcher/internal/serviceutil"
	"econwatcher/internal/telemetry"

	"github.com/spf13/cobra"
)

const serviceName = "econwatcher"

var (
	configPath string
	verbose    bool
	dumpHttp   string
)

// state shared by every command, filled in by setup
var app struct {
	cfg  Config
	tel  telemetry.API
	otel telemetry.Otel
}

var rootCmd = &cobra.Command{
	Use:   "econwatcher",
	Short: "econwatcher reads the economy watchers survey published by the Cabinet Office.",
	// ExecuteContext logs the error
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setup,
	PersistentPostRun: teardown,
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&configPath, "config", "econwatcher.json5", "The configuration file, looked up from the working directory upwards if not set explicitly.")
	flags.BoolVarP(&verbose, "verbose", "v", false, "Log debug messages.")
	flags.StringVar(&dumpHttp, "dump-http", "", "Write every http exchange to files in this directory.")
}

func setup(cmd *cobra.Command, args []string) error {
	telemetry.InitSlog(verbose)
	app.tel = telemetry.SlogAPI{}

	cfg, err := loadConfig(configPath, cmd.Flags().Changed("config"))
	if err != nil {
		return err
	}
	app.cfg = cfg

	app.otel, err = telemetry.Setup(cmd.Context(), serviceName, cfg.Otlp)
	if err != nil {
		return fmt.Errorf("setup otel: %w", err)
	}
	return nil
}

func teardown(cmd *cobra.Command, args []string) {
	err := app.otel.Shutdown(context.Background())
	if err != nil {
		app.tel.ReportWarning("otel.shutdown", err)
	}
}

func newClient() (cao.Client, error) {
	opts := app.cfg.caoOptions()
	if dumpHttp != "" {
		output, err := telemetry.NewFilesystemOutput(dumpHttp, app.tel)
		if err != nil {
			return cao.Client{}, fmt.Errorf("dump http: %w", err)
		}
		opts.Dump = output
	}
	return cao.NewClient(opts, app.tel)
}

func newReader(ctx context.Context, client cao.Client) (*reader.Reader, error) {
	return reader.New(ctx, reader.Options{
		Directory:   client,
		Files:       client,
		Tel:         app.tel,
		Concurrency: app.cfg.Concurrency,
	})
}

func ExecuteContext(ctx context.Context) {
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		serviceutil.Fatal("command failed", err)
	}
}
