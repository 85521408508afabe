package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/trackmyrvu/rvutracker/internal/domain/entities"
)

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func newTable(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
}

func writeCodes(w io.Writer, codes []entities.ProcedureCode) error {
	if len(codes) == 0 {
		_, err := fmt.Fprintln(w, "no matching codes")
		return err
	}
	tw := newTable(w)
	fmt.Fprintln(tw, "CODE\tWORK RVU\tSTATUS\tDESCRIPTION")
	for _, c := range codes {
		fmt.Fprintf(tw, "%s\t%.2f\t%s\t%s\n", c.Code, c.WorkRVU, c.StatusCode, c.Description)
	}
	return tw.Flush()
}

func writeSummary(w io.Writer, s entities.AnalyticsSnapshot) error {
	fmt.Fprintf(w, "%s %s to %s\n", s.Period,
		s.DateRange.Start.Format(entities.VisitDateLayout),
		s.DateRange.End.Format(entities.VisitDateLayout))
	fmt.Fprintf(w, "Total RVU: %.2f  Encounters: %d  No-shows: %d  Avg RVU/encounter: %.2f\n\n",
		s.TotalRVU, s.TotalEncounters, s.TotalNoShows, s.AvgRVUPerEncounter)

	tw := newTable(w)
	fmt.Fprintln(tw, "#\tPERIOD\tRVU\tENCOUNTERS\tNO-SHOWS")
	for i, p := range s.Summaries {
		marker := ""
		if s.SelectedIndex != nil && *s.SelectedIndex == i {
			marker = "*"
		}
		fmt.Fprintf(tw, "%d%s\t%s\t%.2f\t%d\t%d\n", i, marker, p.PeriodLabel, p.TotalRVU, p.EncounterCount, p.NoShowCount)
	}
	return tw.Flush()
}

func writeBreakdowns(w io.Writer, breakdowns []entities.PeriodBreakdown) error {
	if len(breakdowns) == 0 {
		_, err := fmt.Fprintln(w, "no visits in range")
		return err
	}
	tw := newTable(w)
	for _, b := range breakdowns {
		fmt.Fprintf(tw, "%s\n", b.PeriodLabel)
		for _, row := range b.Rows {
			fmt.Fprintf(tw, "  %s\t%d\t%.2f\t%s\n", row.HCPCS, row.TotalQuantity, row.TotalWorkRVU, row.Description)
		}
	}
	return tw.Flush()
}

func writeFavorites(w io.Writer, entries []entities.FavoriteEntry) error {
	if len(entries) == 0 {
		_, err := fmt.Fprintln(w, "no favorites")
		return err
	}
	tw := newTable(w)
	fmt.Fprintln(tw, "ORDER\tCODE\tWORK RVU\tDESCRIPTION")
	for _, e := range entries {
		desc := e.Description
		if !e.Known {
			desc = "(not in catalog)"
		}
		fmt.Fprintf(tw, "%d\t%s\t%.2f\t%s\n", e.SortOrder, e.HCPCS, e.WorkRVU, desc)
	}
	return tw.Flush()
}
