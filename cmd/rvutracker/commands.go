package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/trackmyrvu/rvutracker/internal/domain/entities"
	apperrors "github.com/trackmyrvu/rvutracker/pkg/errors"
)

// withApp builds the app for a single command run and closes it afterwards.
func withApp(opts *rootOptions, fn func(ctx context.Context, a *app) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		a, err := newApp(ctx, opts, "warn")
		if err != nil {
			return err
		}
		defer a.Close()
		return fn(ctx, a)
	}
}

func searchCmd(opts *rootOptions) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search the reference catalog by code or description",
		Args:  cobra.MinimumNArgs(1),
	}
	cmd.Flags().IntVar(&limit, "limit", 0, "maximum results (default RVU_SEARCH_LIMIT)")
	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		return withApp(opts, func(ctx context.Context, a *app) error {
			if err := a.catalog.Load(ctx); err != nil {
				return err
			}
			if limit <= 0 {
				limit = a.cfg.Catalog.SearchLimit
			}
			results := a.catalog.Search(strings.Join(args, " "), limit)
			if opts.jsonOut {
				return writeJSON(cmd.OutOrStdout(), results)
			}
			return writeCodes(cmd.OutOrStdout(), results)
		})(cmd, args)
	}
	return cmd
}

func lookupCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "lookup <code>",
		Short: "Show the catalog entry for a code",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(opts, func(ctx context.Context, a *app) error {
				if err := a.catalog.Load(ctx); err != nil {
					return err
				}
				code, ok := a.catalog.Get(args[0])
				if !ok {
					return apperrors.NewNotFoundError(fmt.Sprintf("code %s not in catalog", args[0]), nil)
				}
				if opts.jsonOut {
					return writeJSON(cmd.OutOrStdout(), code)
				}
				return writeCodes(cmd.OutOrStdout(), []entities.ProcedureCode{code})
			})(cmd, args)
		},
	}
}

// analyticsFlags are shared by summary and breakdown.
type analyticsFlags struct {
	period  string
	from    string
	to      string
	selects int
	refresh bool
}

func (f *analyticsFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.period, "period", "daily", "bucket size: daily, weekly, monthly or yearly")
	cmd.Flags().StringVar(&f.from, "from", "", "first day of the range (YYYY-MM-DD)")
	cmd.Flags().StringVar(&f.to, "to", "", "last day of the range (YYYY-MM-DD)")
	cmd.Flags().IntVar(&f.selects, "select", -1, "restrict breakdowns to this bucket index")
	cmd.Flags().BoolVar(&f.refresh, "refresh", false, "ignore cached visits")
}

// apply loads visits and configures the aggregator from the flags.
func (f *analyticsFlags) apply(ctx context.Context, a *app) (entities.AnalyticsSnapshot, error) {
	if err := a.requireBackend(); err != nil {
		return entities.AnalyticsSnapshot{}, err
	}
	period, err := entities.ParsePeriod(f.period)
	if err != nil {
		return entities.AnalyticsSnapshot{}, apperrors.NewValidationError(err.Error())
	}

	load := a.visits.Load
	if f.refresh {
		load = a.visits.Refresh
	}
	visits, err := load(ctx)
	if err != nil {
		if len(visits) == 0 {
			return entities.AnalyticsSnapshot{}, err
		}
		log.Warn().Err(err).Msg("Refresh failed, showing cached visits")
	}

	a.analytics.SetVisits(visits)
	a.analytics.SetPeriod(period)
	if f.from != "" || f.to != "" {
		current := a.analytics.DateRange()
		start, end, err := parseRange(f.from, f.to, current)
		if err != nil {
			return entities.AnalyticsSnapshot{}, err
		}
		a.analytics.SetDateRange(start, end)
	}
	if f.selects >= 0 {
		a.analytics.SelectBucket(f.selects)
	}
	return a.analytics.Snapshot(), nil
}

// parseRange fills a missing bound from current.
func parseRange(from, to string, current entities.DateRange) (time.Time, time.Time, error) {
	start, end := current.Start, current.End
	if from != "" {
		t, ok := entities.ParseVisitDate(from)
		if !ok || len(from) != len(entities.VisitDateLayout) {
			return start, end, apperrors.NewValidationError(fmt.Sprintf("invalid --from %q", from))
		}
		start = t
	}
	if to != "" {
		t, ok := entities.ParseVisitDate(to)
		if !ok || len(to) != len(entities.VisitDateLayout) {
			return start, end, apperrors.NewValidationError(fmt.Sprintf("invalid --to %q", to))
		}
		end = t
	}
	return start, end, nil
}

func summaryCmd(opts *rootOptions) *cobra.Command {
	flags := &analyticsFlags{}
	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Show RVU totals per period",
	}
	flags.register(cmd)
	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		return withApp(opts, func(ctx context.Context, a *app) error {
			snapshot, err := flags.apply(ctx, a)
			if err != nil {
				return err
			}
			if opts.jsonOut {
				return writeJSON(cmd.OutOrStdout(), snapshot)
			}
			return writeSummary(cmd.OutOrStdout(), snapshot)
		})(cmd, args)
	}
	return cmd
}

func breakdownCmd(opts *rootOptions) *cobra.Command {
	flags := &analyticsFlags{}
	cmd := &cobra.Command{
		Use:   "breakdown",
		Short: "Show per-code RVU totals for each period",
	}
	flags.register(cmd)
	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		return withApp(opts, func(ctx context.Context, a *app) error {
			snapshot, err := flags.apply(ctx, a)
			if err != nil {
				return err
			}
			if opts.jsonOut {
				return writeJSON(cmd.OutOrStdout(), snapshot.Breakdowns)
			}
			return writeBreakdowns(cmd.OutOrStdout(), snapshot.Breakdowns)
		})(cmd, args)
	}
	return cmd
}

func favoritesCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "favorites",
		Short: "List and manage favorite codes",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withFavorites(opts, cmd, func(ctx context.Context, a *app) error {
				return nil
			})(cmd, args)
		},
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "add <code>",
			Short: "Add a code to favorites",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return withFavorites(opts, cmd, func(ctx context.Context, a *app) error {
					_, err := a.favorites.Add(ctx, args[0])
					return err
				})(cmd, args)
			},
		},
		&cobra.Command{
			Use:   "remove <code>",
			Short: "Remove a code from favorites",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return withFavorites(opts, cmd, func(ctx context.Context, a *app) error {
					return a.favorites.Remove(ctx, args[0])
				})(cmd, args)
			},
		},
		&cobra.Command{
			Use:   "toggle <code>",
			Short: "Add or remove a favorite",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return withFavorites(opts, cmd, func(ctx context.Context, a *app) error {
					_, err := a.favorites.Toggle(ctx, args[0])
					return err
				})(cmd, args)
			},
		},
		&cobra.Command{
			Use:   "reorder <code>...",
			Short: "Set the favorite order; unlisted favorites keep their relative order at the end",
			Args:  cobra.MinimumNArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return withFavorites(opts, cmd, func(ctx context.Context, a *app) error {
					return a.favorites.Reorder(ctx, args)
				})(cmd, args)
			},
		},
	)
	return cmd
}

// withFavorites refreshes favorites, runs fn, and prints the resulting list.
func withFavorites(opts *rootOptions, cmd *cobra.Command, fn func(ctx context.Context, a *app) error) func(*cobra.Command, []string) error {
	return withApp(opts, func(ctx context.Context, a *app) error {
		if err := a.requireBackend(); err != nil {
			return err
		}
		if err := a.catalog.Load(ctx); err != nil {
			log.Warn().Err(err).Msg("Reference catalog unavailable")
		}
		a.favorites.LoadCached(ctx)
		if _, err := a.favorites.Refresh(ctx); err != nil {
			return err
		}
		if err := fn(ctx, a); err != nil {
			return err
		}
		entries := a.favorites.Entries()
		if opts.jsonOut {
			return writeJSON(cmd.OutOrStdout(), entries)
		}
		return writeFavorites(cmd.OutOrStdout(), entries)
	})
}

func cacheCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the local cache",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "clear",
		Short: "Delete every cached entry",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(opts, func(ctx context.Context, a *app) error {
				if err := a.store.DeleteAll(ctx); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "cache cleared")
				return nil
			})(cmd, args)
		},
	})
	return cmd
}
