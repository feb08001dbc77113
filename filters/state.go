// Package filters owns the dashboard filter state and everything derived from
// it: the server query and the removable active-filter summary.
package filters

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"grant-dashboard/models"
)

// BudgetCap is the default upper budget bound. A budgetMax equal to it means
// "no maximum" and is never sent.
const BudgetCap = 10_000_000

// Tri is a boolean constraint that can also be unset.
type Tri int8

const (
	Any Tri = iota
	Yes
	No
)

// TriOf converts an optional bool.
func TriOf(b *bool) Tri {
	switch {
	case b == nil:
		return Any
	case *b:
		return Yes
	default:
		return No
	}
}

func (t Tri) String() string {
	switch t {
	case Yes:
		return "true"
	case No:
		return "false"
	default:
		return "null"
	}
}

func (t Tri) MarshalJSON() ([]byte, error) {
	return []byte(t.String()), nil
}

func (t *Tri) UnmarshalJSON(b []byte) error {
	switch string(bytes.TrimSpace(b)) {
	case "null", `""`:
		*t = Any
	case "true":
		*t = Yes
	case "false":
		*t = No
	default:
		return fmt.Errorf("invalid tri-state value %s", b)
	}
	return nil
}

type DateField string

const (
	DateDeadline    DateField = "deadline"
	DatePublication DateField = "publication"
	DateCaptured    DateField = "captured"
)

func (f DateField) valid() bool {
	switch f {
	case DateDeadline, DatePublication, DateCaptured:
		return true
	}
	return false
}

type Tab string

const (
	TabAll  Tab = "all"
	TabOpen Tab = "open"
	TabSent Tab = "sentToExternal"
)

func (t Tab) valid() bool {
	switch t {
	case TabAll, TabOpen, TabSent:
		return true
	}
	return false
}

type Source string

const (
	SourceAny    Source = ""
	SourceBOE    Source = "BOE"
	SourceBDNS   Source = "BDNS"
	SourcePLACSP Source = "PLACSP"
)

func (s Source) valid() bool {
	switch s {
	case SourceAny, SourceBOE, SourceBDNS, SourcePLACSP:
		return true
	}
	return false
}

type QuickFilter struct {
	ID     string `json:"id"`
	Label  string `json:"label"`
	Active bool   `json:"active"`
}

// Advanced is the multi-field filter form.
type Advanced struct {
	Search         string  `json:"search"`
	BudgetMin      float64 `json:"budgetMin"`
	BudgetMax      float64 `json:"budgetMax"`
	ConfidenceMin  int     `json:"confidenceMin"`
	Department     string  `json:"department"`
	Source         Source  `json:"source"`
	IsOpen         Tri     `json:"isOpen"`
	SentToExternal Tri     `json:"sentToExternal"`
	IsNonprofit    bool    `json:"isNonprofit"`
}

// DateRange bounds are calendar days (YYYY-MM-DD); empty means unbounded.
type DateRange struct {
	From string `json:"from"`
	To   string `json:"to"`
}

func (r DateRange) IsZero() bool {
	return r.From == "" && r.To == ""
}

func (r DateRange) validate() error {
	for _, d := range []string{r.From, r.To} {
		if d == "" {
			continue
		}
		if _, err := time.Parse(models.DayLayout, d); err != nil {
			return fmt.Errorf("invalid date %q: want YYYY-MM-DD", d)
		}
	}
	return nil
}

// State is the complete filter state. The free-text search lives only in
// Advanced.Search; the search bar and the panel both edit it.
type State struct {
	Quick     []QuickFilter `json:"quickFilters"`
	Advanced  Advanced      `json:"advanced"`
	Dates     DateRange     `json:"dateRange"`
	DateField DateField     `json:"dateField"`
	Tab       Tab           `json:"tab"`
}

func defaultAdvanced() Advanced {
	return Advanced{BudgetMax: BudgetCap}
}

// Defaults returns the default state. Every call returns a fresh copy.
func Defaults() State {
	quick := make([]QuickFilter, len(Catalog))
	for i, def := range Catalog {
		quick[i] = QuickFilter{ID: def.ID, Label: def.Label}
	}
	return State{
		Quick:     quick,
		Advanced:  defaultAdvanced(),
		DateField: DateDeadline,
		Tab:       TabAll,
	}
}

// Search is the unified free-text query.
func (s State) Search() string {
	return s.Advanced.Search
}

// Clone returns a deep copy.
func (s State) Clone() State {
	s.Quick = append([]QuickFilter(nil), s.Quick...)
	return s
}

// Equal reports whether two states are identical.
func (s State) Equal(o State) bool {
	if len(s.Quick) != len(o.Quick) {
		return false
	}
	for i := range s.Quick {
		if s.Quick[i] != o.Quick[i] {
			return false
		}
	}
	return s.Advanced == o.Advanced && s.Dates == o.Dates && s.DateField == o.DateField && s.Tab == o.Tab
}

// IsDefault reports whether s equals Defaults().
func (s State) IsDefault() bool {
	return s.Equal(Defaults())
}

// QuickActive reports whether the quick filter id is on.
func (s State) QuickActive(id string) bool {
	for _, q := range s.Quick {
		if q.ID == id {
			return q.Active
		}
	}
	return false
}

// String renders the state as JSON, for logs.
func (s State) String() string {
	b, _ := json.Marshal(s)
	return string(b)
}
