package services_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trackmyrvu/rvutracker/internal/application/services"
	"github.com/trackmyrvu/rvutracker/internal/domain/entities"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func visit(id, date string, noShow bool, procs ...entities.VisitProcedure) entities.Visit {
	return entities.Visit{ID: id, Date: date, IsNoShow: noShow, Procedures: procs}
}

func proc(code string, rvu float64, qty int) entities.VisitProcedure {
	return entities.VisitProcedure{HCPCS: code, Description: "desc " + code, WorkRVU: rvu, Quantity: qty}
}

// Sunday, Feb 15 2026
var analyticsNow = time.Date(2026, 2, 15, 12, 0, 0, 0, time.UTC)

func newAnalytics(weekStart time.Weekday) *services.AnalyticsService {
	return services.NewAnalyticsService(newFakeClock(analyticsNow), weekStart)
}

func TestAnalytics_DefaultState(t *testing.T) {
	a := newAnalytics(time.Sunday)

	assert.Equal(t, entities.PeriodDaily, a.Period())
	assert.Nil(t, a.SelectedIndex())
	assert.Equal(t, entities.DateRange{Start: day(2026, 1, 16), End: day(2026, 2, 15)}, a.DateRange())
}

func TestAnalytics_VisitTotalWorkRVU(t *testing.T) {
	v := visit("1", "2026-02-10", false, proc("99213", 1.5, 2), proc("99211", 0.5, 1))
	assert.Equal(t, 3.5, v.TotalWorkRVU())
}

func TestAnalytics_FilterAndTotals(t *testing.T) {
	a := newAnalytics(time.Sunday)
	a.SetVisits([]entities.Visit{
		visit("1", "2026-02-10", false, proc("99213", 1.5, 2)),
		visit("2", "2026-02-12T00:00:00.000Z", false, proc("99214", 2.0, 1)),
		visit("3", "2026-02-14", true),
		visit("4", "2025-12-01", false, proc("99215", 9.0, 1)),
		visit("5", "not-a-date", false, proc("99215", 9.0, 1)),
		visit("6", "2026-02-15", false, proc("99211", 0.5, 1)),
	})

	filtered := a.FilteredVisits()
	ids := make([]string, len(filtered))
	for i, v := range filtered {
		ids[i] = v.ID
	}
	assert.Equal(t, []string{"1", "2", "3", "6"}, ids)

	assert.Equal(t, 5.5, a.TotalRVU())
	assert.Equal(t, 3, a.TotalEncounters())
	assert.Equal(t, 1, a.TotalNoShows())
	assert.InDelta(t, 5.5/3, a.AvgRVUPerEncounter(), 1e-9)
}

func TestAnalytics_AverageWithoutEncounters(t *testing.T) {
	a := newAnalytics(time.Sunday)
	a.SetVisits([]entities.Visit{visit("1", "2026-02-10", true)})

	assert.Equal(t, 0, a.TotalEncounters())
	assert.Equal(t, 0.0, a.AvgRVUPerEncounter())
}

func TestAnalytics_DateRangeIsInclusive(t *testing.T) {
	a := newAnalytics(time.Sunday)
	a.SetVisits([]entities.Visit{
		visit("1", "2026-01-31", false),
		visit("2", "2026-02-01", false),
		visit("3", "2026-02-28", false),
		visit("4", "2026-03-01", false),
	})
	a.SetDateRange(time.Date(2026, 2, 1, 18, 0, 0, 0, time.UTC), time.Date(2026, 2, 28, 6, 0, 0, 0, time.UTC))

	assert.Len(t, a.FilteredVisits(), 2)
}

func TestAnalytics_WeeklyBuckets(t *testing.T) {
	visits := []entities.Visit{
		visit("1", "2026-01-05", false, proc("99213", 1.0, 1)),
		visit("2", "2026-01-12", false, proc("99213", 1.0, 1)),
	}

	t.Run("sunday start", func(t *testing.T) {
		a := newAnalytics(time.Sunday)
		a.SetVisits(visits)
		a.SetDateRange(day(2026, 1, 1), day(2026, 1, 31))
		a.SetPeriod(entities.PeriodWeekly)

		summaries := a.PeriodSummaries()
		require.Len(t, summaries, 2)
		assert.Equal(t, day(2026, 1, 4), summaries[0].PeriodStart)
		assert.Equal(t, "Jan 4-Jan 10", summaries[0].PeriodLabel)
		assert.Equal(t, day(2026, 1, 11), summaries[1].PeriodStart)
		assert.Equal(t, "Jan 11-Jan 17", summaries[1].PeriodLabel)
	})

	t.Run("monday start", func(t *testing.T) {
		a := newAnalytics(time.Monday)
		a.SetVisits(visits)
		a.SetDateRange(day(2026, 1, 1), day(2026, 1, 31))
		a.SetPeriod(entities.PeriodWeekly)

		summaries := a.PeriodSummaries()
		require.Len(t, summaries, 2)
		assert.Equal(t, day(2026, 1, 5), summaries[0].PeriodStart)
		assert.Equal(t, day(2026, 1, 12), summaries[1].PeriodStart)
	})

	t.Run("week boundary", func(t *testing.T) {
		boundary := []entities.Visit{
			visit("1", "2026-01-04", false),
			visit("2", "2026-01-05", false),
		}

		sunday := newAnalytics(time.Sunday)
		sunday.SetVisits(boundary)
		sunday.SetDateRange(day(2026, 1, 1), day(2026, 1, 31))
		sunday.SetPeriod(entities.PeriodWeekly)
		require.Len(t, sunday.PeriodSummaries(), 1)
		assert.Equal(t, 2, sunday.PeriodSummaries()[0].EncounterCount)

		monday := newAnalytics(time.Monday)
		monday.SetVisits(boundary)
		monday.SetDateRange(day(2026, 1, 1), day(2026, 1, 31))
		monday.SetPeriod(entities.PeriodWeekly)
		summaries := monday.PeriodSummaries()
		require.Len(t, summaries, 2)
		assert.Equal(t, day(2025, 12, 29), summaries[0].PeriodStart)
		assert.Equal(t, "Dec 29-Jan 4", summaries[0].PeriodLabel)
	})
}

func TestAnalytics_DailySummaries(t *testing.T) {
	a := newAnalytics(time.Sunday)
	a.SetVisits([]entities.Visit{
		visit("1", "2026-02-12", false, proc("99213", 1.5, 1)),
		visit("2", "2026-02-10", false, proc("99213", 1.5, 2)),
		visit("3", "2026-02-10", true),
	})

	summaries := a.PeriodSummaries()
	require.Len(t, summaries, 2)
	assert.Equal(t, entities.PeriodSummary{
		PeriodStart:    day(2026, 2, 10),
		PeriodLabel:    "Feb 10",
		TotalRVU:       3.0,
		EncounterCount: 1,
		NoShowCount:    1,
	}, summaries[0])
	assert.Equal(t, "Feb 12", summaries[1].PeriodLabel)
}

func TestAnalytics_MonthlyAndYearlyLabels(t *testing.T) {
	a := newAnalytics(time.Sunday)
	a.SetVisits([]entities.Visit{
		visit("1", "2026-01-20", false),
		visit("2", "2026-02-03", false),
	})
	a.SetPeriod(entities.PeriodMonthly)
	a.SetDateRange(day(2026, 1, 1), day(2026, 2, 28))

	summaries := a.PeriodSummaries()
	require.Len(t, summaries, 2)
	assert.Equal(t, "Jan 2026", summaries[0].PeriodLabel)
	assert.Equal(t, day(2026, 2, 1), summaries[1].PeriodStart)

	a.SetPeriod(entities.PeriodYearly)
	summaries = a.PeriodSummaries()
	require.Len(t, summaries, 1)
	assert.Equal(t, "2026", summaries[0].PeriodLabel)
	assert.Equal(t, 2, summaries[0].EncounterCount)
}

func TestAnalytics_SetPeriodYearlyResetsRange(t *testing.T) {
	a := newAnalytics(time.Sunday)
	a.SelectBucket(0)

	a.SetPeriod(entities.PeriodYearly)

	assert.Nil(t, a.SelectedIndex())
	assert.Equal(t, entities.DateRange{Start: day(2026, 1, 1), End: day(2026, 12, 31)}, a.DateRange())
}

func TestAnalytics_SetPeriodClearsSelectionKeepsRange(t *testing.T) {
	a := newAnalytics(time.Sunday)
	a.SetDateRange(day(2026, 2, 1), day(2026, 2, 10))
	a.SelectBucket(1)

	a.SetPeriod(entities.PeriodWeekly)

	assert.Nil(t, a.SelectedIndex())
	assert.Equal(t, entities.DateRange{Start: day(2026, 2, 1), End: day(2026, 2, 10)}, a.DateRange())

	a.SetPeriod(entities.Period("hourly"))
	assert.Equal(t, entities.PeriodWeekly, a.Period())
}

func TestAnalytics_SelectBucketToggles(t *testing.T) {
	a := newAnalytics(time.Sunday)

	a.SelectBucket(2)
	require.NotNil(t, a.SelectedIndex())
	assert.Equal(t, 2, *a.SelectedIndex())

	a.SelectBucket(2)
	assert.Nil(t, a.SelectedIndex())

	a.SelectBucket(1)
	a.SelectBucket(3)
	assert.Equal(t, 3, *a.SelectedIndex())

	a.ClearSelection()
	assert.Nil(t, a.SelectedIndex())
}

func TestAnalytics_Breakdowns(t *testing.T) {
	a := newAnalytics(time.Sunday)
	a.SetVisits([]entities.Visit{
		visit("1", "2026-02-10", false, proc("99213", 1.5, 1), proc("99214", 2.0, 1)),
		visit("2", "2026-02-10", false, proc("99213", 1.5, 2)),
		visit("3", "2026-02-12", false, proc("99211", 0.5, 1), proc("99212", 0.5, 1)),
		visit("4", "2026-02-12", true),
	})

	breakdowns := a.PeriodBreakdowns()
	require.Len(t, breakdowns, 2)

	// Newest bucket first
	assert.Equal(t, day(2026, 2, 12), breakdowns[0].PeriodStart)
	assert.Equal(t, []entities.HCPCSBreakdownRow{
		{HCPCS: "99211", Description: "desc 99211", TotalQuantity: 1, TotalWorkRVU: 0.5},
		{HCPCS: "99212", Description: "desc 99212", TotalQuantity: 1, TotalWorkRVU: 0.5},
	}, breakdowns[0].Rows)

	assert.Equal(t, day(2026, 2, 10), breakdowns[1].PeriodStart)
	assert.Equal(t, "Feb 10", breakdowns[1].PeriodLabel)
	assert.Equal(t, []entities.HCPCSBreakdownRow{
		{HCPCS: "99213", Description: "desc 99213", TotalQuantity: 3, TotalWorkRVU: 4.5},
		{HCPCS: "99214", Description: "desc 99214", TotalQuantity: 1, TotalWorkRVU: 2.0},
	}, breakdowns[1].Rows)
}

func TestAnalytics_BreakdownsFollowSelection(t *testing.T) {
	a := newAnalytics(time.Sunday)
	a.SetVisits([]entities.Visit{
		visit("1", "2026-02-10", false, proc("99213", 1.5, 1)),
		visit("2", "2026-02-12", false, proc("99214", 2.0, 1)),
	})

	// Index refers to the ascending summaries: 0 is Feb 10
	a.SelectBucket(0)
	breakdowns := a.PeriodBreakdowns()
	require.Len(t, breakdowns, 1)
	assert.Equal(t, day(2026, 2, 10), breakdowns[0].PeriodStart)

	// An out-of-range selection is ignored
	a.SelectBucket(5)
	assert.Len(t, a.PeriodBreakdowns(), 2)
}

func TestAnalytics_Snapshot(t *testing.T) {
	a := newAnalytics(time.Sunday)
	a.SetVisits([]entities.Visit{
		visit("1", "2026-02-10", false, proc("99213", 1.5, 2)),
		visit("2", "2026-02-11", true),
	})
	a.SelectBucket(1)

	snap := a.Snapshot()
	assert.Equal(t, entities.PeriodDaily, snap.Period)
	assert.Equal(t, 3.0, snap.TotalRVU)
	assert.Equal(t, 1, snap.TotalEncounters)
	assert.Equal(t, 1, snap.TotalNoShows)
	assert.Equal(t, 3.0, snap.AvgRVUPerEncounter)
	require.NotNil(t, snap.SelectedIndex)
	assert.Equal(t, 1, *snap.SelectedIndex)
	assert.Len(t, snap.Summaries, 2)
	require.Len(t, snap.Breakdowns, 1)
	assert.Equal(t, day(2026, 2, 11), snap.Breakdowns[0].PeriodStart)
	assert.Empty(t, snap.Breakdowns[0].Rows)
}
