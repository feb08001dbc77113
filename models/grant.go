package models

import (
	"fmt"
	"strings"
	"time"
)

// DayLayout is the date format the grants service accepts in query parameters.
const DayLayout = "2006-01-02"

// Date is a calendar day as sent by the grants service. It accepts both
// plain days and full timestamps.
type Date struct {
	time.Time
}

var dateLayouts = []string{time.RFC3339Nano, "2006-01-02T15:04:05.999999", "2006-01-02T15:04:05", DayLayout}

func (d *Date) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		d.Time = time.Time{}
		return nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			d.Time = t
			return nil
		}
	}
	return fmt.Errorf("invalid date %q", s)
}

func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return []byte(`"` + d.Format(time.RFC3339) + `"`), nil
}

// NewDate is a convenience for building optional dates.
func NewDate(t time.Time) *Date {
	return &Date{Time: t}
}

type Grant struct {
	ID                  string   `json:"id"`
	Source              string   `json:"source"`
	Title               string   `json:"title"`
	Department          *string  `json:"department"`
	PublicationDate     *Date    `json:"publication_date"`
	ApplicationEndDate  *Date    `json:"application_end_date"`
	CapturedAt          *Date    `json:"captured_at"`
	BudgetAmount        *float64 `json:"budget_amount"`
	IsNonprofit         bool     `json:"is_nonprofit"`
	IsOpen              bool     `json:"is_open"`
	SentToN8n           bool     `json:"sent_to_n8n"`
	BdnsCode            *string  `json:"bdns_code"`
	NonprofitConfidence *float64 `json:"nonprofit_confidence"`
	Purpose             *string  `json:"purpose"`
}

// GrantPage is the response of GET /grants.
type GrantPage struct {
	Total  int     `json:"total"`
	Grants []Grant `json:"grants"`
}

// Str returns the value of an optional text field, or "".
func Str(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

type SourceStats struct {
	Source         string  `json:"source"`
	Count          int     `json:"count"`
	TotalBudget    float64 `json:"total_budget"`
	NonprofitCount int     `json:"nonprofit_count"`
	OpenCount      int     `json:"open_count"`
	SentToN8nCount int     `json:"sent_to_n8n_count"`
}

// Overview is the response of GET /analytics/overview.
type Overview struct {
	TotalGrants     int           `json:"total_grants"`
	TotalBudget     float64       `json:"total_budget"`
	NonprofitGrants int           `json:"nonprofit_grants"`
	OpenGrants      int           `json:"open_grants"`
	SentToN8n       int           `json:"sent_to_n8n"`
	AvgConfidence   float64       `json:"avg_confidence"`
	GrantsBySource  []SourceStats `json:"grants_by_source"`
}
