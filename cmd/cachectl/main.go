package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/charlesng35/axoncache/internal/app"
	"github.com/charlesng35/axoncache/pkg/logger"
)

type cliOptions struct {
	configPath   string
	outputFormat string
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd(os.Stdout).ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd(out io.Writer) *cobra.Command {
	opts := &cliOptions{}

	rootCmd := &cobra.Command{
		Use:           "cachectl",
		Short:         "Inspect and maintain the application cache",
		Long:          "cachectl reports entry counts, flushes the cache and sweeps expired entries in the configured store",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.SetOut(out)

	rootCmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "Path to configuration directory or file")
	rootCmd.PersistentFlags().StringVarP(&opts.outputFormat, "output", "o", "table", "Output format (table, json, yaml)")

	rootCmd.AddCommand(
		statsCmd(opts),
		clearCmd(opts),
		sweepCmd(opts),
	)
	return rootCmd
}

// openRuntime loads configuration and opens the configured store. Logging follows the server
// settings but stays at warn level or above so command output is not interleaved with it.
func openRuntime(ctx context.Context, opts *cliOptions) (*app.Runtime, error) {
	cfg, err := app.LoadConfigPath(opts.configPath)
	if err != nil {
		return nil, err
	}

	logging := cfg.Server
	if logging.LogLevel == "" || logging.LogLevel == "debug" || logging.LogLevel == "info" {
		logging.LogLevel = "warn"
	}
	if err := app.ConfigureLogging(logging); err != nil {
		return nil, fmt.Errorf("configure logging: %w", err)
	}

	return app.NewRuntime(ctx, cfg, logger.WithModule("cachectl"))
}
