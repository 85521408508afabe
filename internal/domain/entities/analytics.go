package entities

import (
	"fmt"
	"strings"
	"time"
)

// Period is the bucket granularity for analytics.
type Period string

const (
	PeriodDaily   Period = "daily"
	PeriodWeekly  Period = "weekly"
	PeriodMonthly Period = "monthly"
	PeriodYearly  Period = "yearly"
)

// Periods lists every period in display order.
var Periods = []Period{PeriodDaily, PeriodWeekly, PeriodMonthly, PeriodYearly}

// IsValid checks if the period is one of the known values.
func (p Period) IsValid() bool {
	switch p {
	case PeriodDaily, PeriodWeekly, PeriodMonthly, PeriodYearly:
		return true
	}
	return false
}

// ParsePeriod parses a case-insensitive period name.
func ParsePeriod(s string) (Period, error) {
	p := Period(strings.ToLower(strings.TrimSpace(s)))
	if !p.IsValid() {
		return "", fmt.Errorf("unknown period %q (want daily, weekly, monthly or yearly)", s)
	}
	return p, nil
}

// DateRange is an inclusive range of calendar days.
type DateRange struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// PeriodSummary aggregates one bucket of visits.
type PeriodSummary struct {
	PeriodStart    time.Time `json:"period_start"`
	PeriodLabel    string    `json:"period_label"`
	TotalRVU       float64   `json:"total_rvu"`
	EncounterCount int       `json:"encounter_count"`
	NoShowCount    int       `json:"no_show_count"`
}

// HCPCSBreakdownRow aggregates one code within a bucket.
type HCPCSBreakdownRow struct {
	HCPCS         string  `json:"hcpcs"`
	Description   string  `json:"description"`
	TotalQuantity int     `json:"total_quantity"`
	TotalWorkRVU  float64 `json:"total_work_rvu"`
}

// PeriodBreakdown lists per-code totals for one bucket.
type PeriodBreakdown struct {
	PeriodStart time.Time           `json:"period_start"`
	PeriodLabel string              `json:"period_label"`
	Rows        []HCPCSBreakdownRow `json:"rows"`
}

// AnalyticsSnapshot is every derived analytics value for the current state.
type AnalyticsSnapshot struct {
	Period             Period            `json:"period"`
	DateRange          DateRange         `json:"date_range"`
	SelectedIndex      *int              `json:"selected_index,omitempty"`
	TotalRVU           float64           `json:"total_rvu"`
	TotalEncounters    int               `json:"total_encounters"`
	TotalNoShows       int               `json:"total_no_shows"`
	AvgRVUPerEncounter float64           `json:"avg_rvu_per_encounter"`
	Summaries          []PeriodSummary   `json:"summaries"`
	Breakdowns         []PeriodBreakdown `json:"breakdowns"`
}
