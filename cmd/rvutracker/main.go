package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

type rootOptions struct {
	logLevel string
	jsonOut  bool
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	rootCmd := &cobra.Command{
		Use:           "rvutracker",
		Short:         "RVU Tracker - reference catalog, visit analytics and favorites",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().BoolVar(&opts.jsonOut, "json", false, "print results as JSON")

	rootCmd.AddCommand(
		searchCmd(opts),
		lookupCmd(opts),
		summaryCmd(opts),
		breakdownCmd(opts),
		favoritesCmd(opts),
		serveCmd(opts),
		cacheCmd(opts),
	)
	return rootCmd
}
