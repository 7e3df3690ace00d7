package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"quietlog/internal/config"
	"quietlog/internal/constants"
	"quietlog/internal/logger"
	"quietlog/pkg/logging"
)

var version = "dev"

var (
	configFile string
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "quietlog [flags] [-- command args...]",
		Short: "Print JSON log lines only for transactions that went wrong",
		Long: `quietlog reads newline-delimited JSON log records from stdin, or from the
stdout of the given command, and groups them by a correlation id field.
Records are held back until one of them matches a flush rule, at which point
the whole history of that id is printed and later records pass straight
through. Transactions that stay quiet are dropped once they go idle.`,
		Version:       version,
		Args:          cobra.ArbitraryArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          run,
	}

	flags := cmd.Flags()
	flags.SetInterspersed(false)
	flags.StringVar(&configFile, "config", "", "Path to config file (or CONFIG_FILE environment variable)")
	flags.String("id-field", constants.DefaultIDField, "JSON field holding the correlation id")
	flags.Int64("timeout", constants.DefaultTimeoutMs, "Idle timeout in milliseconds before a quiet transaction is dropped")
	flags.Int64("cleanup-interval", constants.DefaultCleanupIntervalMs, "Interval in milliseconds between idle sweeps")
	flags.String("log-level", constants.DefaultLogLevel, "Diagnostic log level (debug, info, warn, error)")
	flags.String("log-format", constants.DefaultLogFormat, "Diagnostic log format (json, console)")
	flags.Bool("auto-decompress", true, "Inflate gzip or zstd data read from stdin")
	flags.String("metrics-addr", "", "Serve /metrics and /health on this address")

	return cmd
}

func run(cmd *cobra.Command, args []string) error {
	earlyLog := logging.NewEarlyLog()

	if configFile == "" {
		configFile = os.Getenv("CONFIG_FILE")
	}

	cfg, err := config.LoadConfig(configFile, cmd.Flags())
	if err != nil {
		earlyLog.Error("Failed to load config: %v", err)
		return err
	}

	log, err := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		earlyLog.Error("Failed to init logger: %v", err)
		return err
	}
	defer log.Sync()

	ctx := logging.WithServiceName(context.Background(), constants.ServiceName)
	ctx = logging.WithRunID(ctx, logging.NewRunID())
	if cfg.FileError != nil {
		log.WarnwCtx(ctx, "Config file unusable, falling back to defaults", "error", cfg.FileError)
	}

	interactive := isatty.IsTerminal(os.Stdin.Fd()) || isatty.IsCygwinTerminal(os.Stdin.Fd())
	if interactive {
		var cancel context.CancelFunc
		ctx, cancel = signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
		defer cancel()
	}

	app := NewApp(cfg, log, args, interactive)
	if err := app.Initialize(ctx); err != nil {
		log.ErrorwCtx(ctx, "Failed to initialize", "error", err)
		return err
	}

	log.InfowCtx(ctx, "Correlating",
		"id_field", cfg.Correlation.IDField,
		"timeout_ms", cfg.Correlation.TimeoutMs,
		"source", app.SourceName(),
	)

	if err := app.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.ErrorwCtx(ctx, "Stopped with error", "error", err)
		return err
	}

	return app.Shutdown(context.Background())
}
