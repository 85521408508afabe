package services

import (
	"sort"
	"sync"
	"time"

	"github.com/trackmyrvu/rvutracker/internal/domain/entities"
	"github.com/trackmyrvu/rvutracker/internal/domain/providers"
)

// DefaultRangeDays is how far back the initial date range reaches
const DefaultRangeDays = 30

// AnalyticsService buckets enriched visits by period and supports drill-down
// into one bucket. Dates are interpreted in UTC so a visit never moves
// between buckets with the device time zone.
type AnalyticsService struct {
	clock     providers.Clock
	weekStart time.Weekday

	mu        sync.RWMutex
	period    entities.Period
	dateRange entities.DateRange
	selected  *int
	visits    []entities.Visit
}

// analyticsView is a consistent copy of the service state
type analyticsView struct {
	period    entities.Period
	dateRange entities.DateRange
	selected  *int
	visits    []entities.Visit
	weekStart time.Weekday
}

// NewAnalyticsService creates an aggregator with a daily period over the
// last DefaultRangeDays days
func NewAnalyticsService(clock providers.Clock, weekStart time.Weekday) *AnalyticsService {
	if clock == nil {
		clock = providers.SystemClock
	}
	today := calendarDay(clock.Now().UTC())
	return &AnalyticsService{
		clock:     clock,
		weekStart: weekStart,
		period:    entities.PeriodDaily,
		dateRange: entities.DateRange{
			Start: today.AddDate(0, 0, -DefaultRangeDays),
			End:   today,
		},
	}
}

// calendarDay returns midnight UTC of t's calendar date in t's own location
func calendarDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// SetVisits replaces the source visits; they should already be enriched
func (s *AnalyticsService) SetVisits(visits []entities.Visit) {
	copied := make([]entities.Visit, len(visits))
	copy(copied, visits)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.visits = copied
}

// SetPeriod changes the bucket granularity and clears the selection.
// Switching to yearly also resets the range to the current calendar year.
// Unknown periods are ignored.
func (s *AnalyticsService) SetPeriod(period entities.Period) {
	if !period.IsValid() {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.period = period
	s.selected = nil
	if period == entities.PeriodYearly {
		year := s.clock.Now().UTC().Year()
		s.dateRange = entities.DateRange{
			Start: time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC),
			End:   time.Date(year, time.December, 31, 0, 0, 0, 0, time.UTC),
		}
	}
}

// SetDateRange sets the inclusive range of calendar days
func (s *AnalyticsService) SetDateRange(start, end time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dateRange = entities.DateRange{Start: calendarDay(start), End: calendarDay(end)}
}

// SelectBucket selects a bucket of PeriodSummaries for drill-down;
// selecting the already selected bucket clears the selection
func (s *AnalyticsService) SelectBucket(index int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.selected != nil && *s.selected == index {
		s.selected = nil
		return
	}
	s.selected = &index
}

// ClearSelection drops any bucket selection
func (s *AnalyticsService) ClearSelection() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.selected = nil
}

// Period returns the current granularity
func (s *AnalyticsService) Period() entities.Period {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.period
}

// DateRange returns the current inclusive range
func (s *AnalyticsService) DateRange() entities.DateRange {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.dateRange
}

// SelectedIndex returns the selected bucket, or nil
func (s *AnalyticsService) SelectedIndex() *int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.selected == nil {
		return nil
	}
	idx := *s.selected
	return &idx
}

func (s *AnalyticsService) view() analyticsView {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v := analyticsView{
		period:    s.period,
		dateRange: s.dateRange,
		visits:    s.visits,
		weekStart: s.weekStart,
	}
	if s.selected != nil {
		idx := *s.selected
		v.selected = &idx
	}
	return v
}

// FilteredVisits returns visits dated within the range. Visits with an
// unparseable date are left out.
func (s *AnalyticsService) FilteredVisits() []entities.Visit {
	return s.view().filtered()
}

// TotalRVU sums the work RVU of the filtered visits
func (s *AnalyticsService) TotalRVU() float64 {
	return totalRVU(s.view().filtered())
}

// TotalEncounters counts filtered visits that were not no-shows
func (s *AnalyticsService) TotalEncounters() int {
	encounters, _ := countVisits(s.view().filtered())
	return encounters
}

// TotalNoShows counts filtered no-show visits
func (s *AnalyticsService) TotalNoShows() int {
	_, noShows := countVisits(s.view().filtered())
	return noShows
}

// AvgRVUPerEncounter is TotalRVU / TotalEncounters, or 0 without encounters
func (s *AnalyticsService) AvgRVUPerEncounter() float64 {
	filtered := s.view().filtered()
	encounters, _ := countVisits(filtered)
	return average(totalRVU(filtered), encounters)
}

// PeriodSummaries returns one summary per non-empty bucket, oldest first
func (s *AnalyticsService) PeriodSummaries() []entities.PeriodSummary {
	v := s.view()
	return v.summaries(v.filtered())
}

// PeriodBreakdowns returns per-code totals per bucket, newest bucket first
// and rows by RVU descending. With a valid selection only the selected
// bucket is included.
func (s *AnalyticsService) PeriodBreakdowns() []entities.PeriodBreakdown {
	v := s.view()
	filtered := v.filtered()
	return v.breakdowns(filtered, v.summaries(filtered))
}

// Snapshot computes every derived value from one consistent state
func (s *AnalyticsService) Snapshot() entities.AnalyticsSnapshot {
	v := s.view()
	filtered := v.filtered()
	summaries := v.summaries(filtered)
	encounters, noShows := countVisits(filtered)
	total := totalRVU(filtered)

	return entities.AnalyticsSnapshot{
		Period:             v.period,
		DateRange:          v.dateRange,
		SelectedIndex:      v.selected,
		TotalRVU:           total,
		TotalEncounters:    encounters,
		TotalNoShows:       noShows,
		AvgRVUPerEncounter: average(total, encounters),
		Summaries:          summaries,
		Breakdowns:         v.breakdowns(filtered, summaries),
	}
}

func (v analyticsView) filtered() []entities.Visit {
	filtered := make([]entities.Visit, 0, len(v.visits))
	for _, visit := range v.visits {
		date, ok := visit.ParsedDate()
		if !ok {
			continue
		}
		if date.Before(v.dateRange.Start) || date.After(v.dateRange.End) {
			continue
		}
		filtered = append(filtered, visit)
	}
	return filtered
}

func totalRVU(visits []entities.Visit) float64 {
	total := 0.0
	for _, visit := range visits {
		total += visit.TotalWorkRVU()
	}
	return total
}

func countVisits(visits []entities.Visit) (encounters, noShows int) {
	for _, visit := range visits {
		if visit.IsNoShow {
			noShows++
		} else {
			encounters++
		}
	}
	return encounters, noShows
}

func average(total float64, count int) float64 {
	if count == 0 {
		return 0
	}
	return total / float64(count)
}

// bucketStart maps a visit date to the start of its bucket
func (v analyticsView) bucketStart(date time.Time) time.Time {
	switch v.period {
	case entities.PeriodWeekly:
		offset := (int(date.Weekday()) - int(v.weekStart) + 7) % 7
		return date.AddDate(0, 0, -offset)
	case entities.PeriodMonthly:
		return time.Date(date.Year(), date.Month(), 1, 0, 0, 0, 0, time.UTC)
	case entities.PeriodYearly:
		return time.Date(date.Year(), time.January, 1, 0, 0, 0, 0, time.UTC)
	default:
		return date
	}
}

func (v analyticsView) bucketLabel(start time.Time) string {
	switch v.period {
	case entities.PeriodWeekly:
		return start.Format("Jan 2") + "-" + start.AddDate(0, 0, 6).Format("Jan 2")
	case entities.PeriodMonthly:
		return start.Format("Jan 2006")
	case entities.PeriodYearly:
		return start.Format("2006")
	default:
		return start.Format("Jan 2")
	}
}

func (v analyticsView) summaries(filtered []entities.Visit) []entities.PeriodSummary {
	buckets := map[time.Time]*entities.PeriodSummary{}
	for _, visit := range filtered {
		date, _ := visit.ParsedDate()
		key := v.bucketStart(date)
		bucket, ok := buckets[key]
		if !ok {
			bucket = &entities.PeriodSummary{PeriodStart: key, PeriodLabel: v.bucketLabel(key)}
			buckets[key] = bucket
		}
		bucket.TotalRVU += visit.TotalWorkRVU()
		if visit.IsNoShow {
			bucket.NoShowCount++
		} else {
			bucket.EncounterCount++
		}
	}

	summaries := make([]entities.PeriodSummary, 0, len(buckets))
	for _, bucket := range buckets {
		summaries = append(summaries, *bucket)
	}
	sort.Slice(summaries, func(i, j int) bool {
		return summaries[i].PeriodStart.Before(summaries[j].PeriodStart)
	})
	return summaries
}

func (v analyticsView) breakdowns(filtered []entities.Visit, summaries []entities.PeriodSummary) []entities.PeriodBreakdown {
	var only *time.Time
	if v.selected != nil && *v.selected >= 0 && *v.selected < len(summaries) {
		start := summaries[*v.selected].PeriodStart
		only = &start
	}

	type group struct {
		rows  map[string]*entities.HCPCSBreakdownRow
		order []string
	}
	groups := map[time.Time]*group{}
	for _, visit := range filtered {
		date, _ := visit.ParsedDate()
		key := v.bucketStart(date)
		if only != nil && !key.Equal(*only) {
			continue
		}
		g, ok := groups[key]
		if !ok {
			g = &group{rows: map[string]*entities.HCPCSBreakdownRow{}}
			groups[key] = g
		}
		for _, proc := range visit.Procedures {
			row, ok := g.rows[proc.HCPCS]
			if !ok {
				row = &entities.HCPCSBreakdownRow{HCPCS: proc.HCPCS, Description: proc.Description}
				g.rows[proc.HCPCS] = row
				g.order = append(g.order, proc.HCPCS)
			}
			row.TotalQuantity += proc.Quantity
			row.TotalWorkRVU += proc.WorkRVU * float64(proc.Quantity)
		}
	}

	breakdowns := make([]entities.PeriodBreakdown, 0, len(groups))
	for key, g := range groups {
		rows := make([]entities.HCPCSBreakdownRow, 0, len(g.order))
		for _, code := range g.order {
			rows = append(rows, *g.rows[code])
		}
		sort.SliceStable(rows, func(i, j int) bool {
			if rows[i].TotalWorkRVU != rows[j].TotalWorkRVU {
				return rows[i].TotalWorkRVU > rows[j].TotalWorkRVU
			}
			return rows[i].HCPCS < rows[j].HCPCS
		})
		breakdowns = append(breakdowns, entities.PeriodBreakdown{
			PeriodStart: key,
			PeriodLabel: v.bucketLabel(key),
			Rows:        rows,
		})
	}
	sort.Slice(breakdowns, func(i, j int) bool {
		return breakdowns[i].PeriodStart.After(breakdowns[j].PeriodStart)
	})
	return breakdowns
}
