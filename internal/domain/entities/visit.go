package entities

import (
	"encoding/json"
	"errors"
	"time"
)

// VisitDateLayout is the literal calendar date format of Visit.Date.
const VisitDateLayout = "2006-01-02"

// Visit is a logged patient encounter as returned by the backend.
type Visit struct {
	ID         string           `json:"id"`
	UserID     string           `json:"user_id"`
	Date       string           `json:"date"`
	Time       *string          `json:"time,omitempty"`
	Notes      *string          `json:"notes,omitempty"`
	IsNoShow   bool             `json:"is_no_show"`
	Procedures []VisitProcedure `json:"procedures"`
	CreatedAt  *time.Time       `json:"created_at,omitempty"`
	UpdatedAt  *time.Time       `json:"updated_at,omitempty"`
}

// VisitProcedure is one billed procedure within a visit.
type VisitProcedure struct {
	ID          string  `json:"id"`
	VisitID     string  `json:"visit_id"`
	HCPCS       string  `json:"hcpcs"`
	Description string  `json:"description"`
	StatusCode  string  `json:"status_code"`
	WorkRVU     float64 `json:"work_rvu"`
	Quantity    int     `json:"quantity"`
}

// TotalWorkRVU sums WorkRVU * Quantity over all procedures.
func (v Visit) TotalWorkRVU() float64 {
	total := 0.0
	for _, p := range v.Procedures {
		total += p.WorkRVU * float64(p.Quantity)
	}
	return total
}

// ParsedDate returns the visit's calendar date at midnight UTC.
func (v Visit) ParsedDate() (time.Time, bool) {
	return ParseVisitDate(v.Date)
}

// ParseVisitDate parses the first ten characters of s as YYYY-MM-DD in UTC.
// The backend sometimes sends a full ISO-8601 datetime; only the date part is
// meaningful and it is never shifted through a local time zone.
func ParseVisitDate(s string) (time.Time, bool) {
	if len(s) < len(VisitDateLayout) {
		return time.Time{}, false
	}
	t, err := time.ParseInLocation(VisitDateLayout, s[:len(VisitDateLayout)], time.UTC)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

type visitWire struct {
	ID         FlexibleID       `json:"id"`
	UserID     FlexibleID       `json:"user_id"`
	Date       *string          `json:"date"`
	Time       *string          `json:"time"`
	Notes      *string          `json:"notes"`
	IsNoShow   *bool            `json:"is_no_show"`
	Procedures []VisitProcedure `json:"procedures"`
	CreatedAt  *string          `json:"created_at"`
	UpdatedAt  *string          `json:"updated_at"`
}

// UnmarshalJSON accepts numeric ids, defaults is_no_show and procedures, and
// drops timestamps it cannot parse since they are advisory only.
func (v *Visit) UnmarshalJSON(data []byte) error {
	var w visitWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	if w.ID == "" {
		return errors.New("visit: missing id")
	}
	if w.Date == nil {
		return errors.New("visit: missing date")
	}

	*v = Visit{
		ID:         string(w.ID),
		UserID:     string(w.UserID),
		Date:       *w.Date,
		Time:       w.Time,
		Notes:      w.Notes,
		Procedures: w.Procedures,
		CreatedAt:  parseTimestamp(w.CreatedAt),
		UpdatedAt:  parseTimestamp(w.UpdatedAt),
	}
	if w.IsNoShow != nil {
		v.IsNoShow = *w.IsNoShow
	}
	if v.Procedures == nil {
		v.Procedures = []VisitProcedure{}
	}
	return nil
}

type visitProcedureWire struct {
	ID          FlexibleID `json:"id"`
	VisitID     FlexibleID `json:"visit_id"`
	HCPCS       *string    `json:"hcpcs"`
	Description string     `json:"description"`
	StatusCode  string     `json:"status_code"`
	WorkRVU     *float64   `json:"work_rvu"`
	Quantity    *int       `json:"quantity"`
}

// UnmarshalJSON requires hcpcs and defaults quantity to 1.
func (p *VisitProcedure) UnmarshalJSON(data []byte) error {
	var w visitProcedureWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	if w.HCPCS == nil {
		return errors.New("visit procedure: missing hcpcs")
	}

	*p = VisitProcedure{
		ID:          string(w.ID),
		VisitID:     string(w.VisitID),
		HCPCS:       *w.HCPCS,
		Description: w.Description,
		StatusCode:  w.StatusCode,
		Quantity:    1,
	}
	if w.WorkRVU != nil {
		p.WorkRVU = *w.WorkRVU
	}
	if w.Quantity != nil {
		p.Quantity = *w.Quantity
	}
	return nil
}

func parseTimestamp(s *string) *time.Time {
	if s == nil || *s == "" {
		return nil
	}
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, VisitDateLayout} {
		if t, err := time.Parse(layout, *s); err == nil {
			return &t
		}
	}
	return nil
}

// VisitDraft is the create/update request body for a visit.
type VisitDraft struct {
	Date       string           `json:"date"`
	Time       *string          `json:"time,omitempty"`
	Notes      *string          `json:"notes,omitempty"`
	Procedures []ProcedureDraft `json:"procedures"`
	IsNoShow   bool             `json:"is_no_show"`
}

// ProcedureDraft is one procedure line of a VisitDraft.
type ProcedureDraft struct {
	HCPCS       string  `json:"hcpcs"`
	Description string  `json:"description"`
	StatusCode  string  `json:"status_code"`
	WorkRVU     float64 `json:"work_rvu"`
	Quantity    int     `json:"quantity"`
}

// TotalWorkRVU sums WorkRVU * Quantity over the draft's procedures.
func (d VisitDraft) TotalWorkRVU() float64 {
	total := 0.0
	for _, p := range d.Procedures {
		total += p.WorkRVU * float64(p.Quantity)
	}
	return total
}

// ProcedureDraftFromCode builds a quantity-1 procedure line from a catalog entry.
func ProcedureDraftFromCode(code ProcedureCode) ProcedureDraft {
	return ProcedureDraft{
		HCPCS:       code.Code,
		Description: code.Description,
		StatusCode:  code.StatusCode,
		WorkRVU:     code.WorkRVU,
		Quantity:    1,
	}
}
