package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/multierr"
)

func statsCmd(opts *cliOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show cache statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) (err error) {
			rt, err := openRuntime(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer func() { err = multierr.Append(err, rt.Close()) }()

			stats, err := rt.Backend.Stats(cmd.Context())
			if err != nil {
				return fmt.Errorf("read cache stats: %w", err)
			}

			return newPrinter(cmd.OutOrStdout(), opts.outputFormat).PrintStats(statsView{
				Store:        rt.StoreName,
				TotalItems:   stats.Total,
				ActiveItems:  stats.Active,
				ExpiredItems: stats.Expired,
			})
		},
	}
}

func clearCmd(opts *cliOptions) *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Clear the cache",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) (err error) {
			if !all {
				fmt.Fprintln(cmd.OutOrStdout(), "Use --all to clear entire cache")
				return nil
			}

			rt, err := openRuntime(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer func() { err = multierr.Append(err, rt.Close()) }()

			if err := rt.Backend.Clear(cmd.Context()); err != nil {
				return fmt.Errorf("clear cache: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Cleared entire %s cache\n", rt.StoreName)
			return nil
		},
	}

	cmd.Flags().BoolVar(&all, "all", false, "Clear entire cache")
	return cmd
}

func sweepCmd(opts *cliOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Remove expired entries and orphaned index references",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) (err error) {
			rt, err := openRuntime(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer func() { err = multierr.Append(err, rt.Close()) }()

			stats, err := rt.Cleaner.Sweep(cmd.Context())
			if err != nil {
				return fmt.Errorf("sweep cache: %w", err)
			}
			return newPrinter(cmd.OutOrStdout(), opts.outputFormat).PrintSweep(stats)
		},
	}
}
