package filters

import (
	"net/url"
	"strconv"
	"strings"
)

// Query parameter names understood by GET /grants.
const (
	ParamDateField      = "date_field"
	ParamDateFrom       = "date_from"
	ParamDateTo         = "date_to"
	ParamIsOpen         = "is_open"
	ParamSentToExternal = "sent_to_n8n"
	ParamSearch         = "search"
	ParamBudgetMin      = "budget_min"
	ParamBudgetMax      = "budget_max"
	ParamConfidenceMin  = "confidence_min"
	ParamDepartment     = "department"
	ParamSource         = "source"
	ParamIsNonprofit    = "is_nonprofit"
	ParamLimit          = "limit"
)

type Param struct {
	Key   string
	Value string
}

// Query is an ordered parameter set. Each key appears at most once; setting an
// existing key replaces its value in place.
type Query struct {
	params []Param
}

func (q *Query) index(key string) int {
	for i, p := range q.params {
		if p.Key == key {
			return i
		}
	}
	return -1
}

// Set writes key=value, last writer wins.
func (q *Query) Set(key, value string) {
	if i := q.index(key); i >= 0 {
		q.params[i].Value = value
		return
	}
	q.params = append(q.params, Param{Key: key, Value: value})
}

// Or turns a boolean parameter on unless it is already on.
func (q *Query) Or(key string) {
	if v, ok := q.Get(key); ok && v == "true" {
		return
	}
	q.Set(key, "true")
}

// Append writes key=value as the final parameter.
func (q *Query) Append(key, value string) {
	if i := q.index(key); i >= 0 {
		q.params = append(q.params[:i], q.params[i+1:]...)
	}
	q.params = append(q.params, Param{Key: key, Value: value})
}

func (q Query) Get(key string) (string, bool) {
	if i := q.index(key); i >= 0 {
		return q.params[i].Value, true
	}
	return "", false
}

func (q Query) Has(key string) bool {
	return q.index(key) >= 0
}

// Params returns a copy of the parameters in order.
func (q Query) Params() []Param {
	return append([]Param(nil), q.params...)
}

// Keys returns the parameter names in order.
func (q Query) Keys() []string {
	keys := make([]string, len(q.params))
	for i, p := range q.params {
		keys[i] = p.Key
	}
	return keys
}

// Map returns the parameters as a plain map.
func (q Query) Map() map[string]string {
	m := make(map[string]string, len(q.params))
	for _, p := range q.params {
		m[p.Key] = p.Value
	}
	return m
}

// Encode renders the query string in parameter order.
func (q Query) Encode() string {
	var b strings.Builder
	for i, p := range q.params {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(url.QueryEscape(p.Key))
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(p.Value))
	}
	return b.String()
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// BuildQuery maps a filter state to GET /grants parameters. The rules run in
// a fixed order and a later rule overrides an earlier one only by writing the
// same key:
//
//  1. date_field, always
//  2. date_from / date_to when set
//  3. the tab (open → is_open=true, sentToExternal → sent_to_n8n=true)
//  4. search
//  5. budget_min / budget_max when they differ from 0 / BudgetCap,
//     then department and source when set
//  6. confidence_min when > 0, scaled from 0–100 to 0–1
//  7. active quick filters in catalog order; these overwrite, so a
//     large_amount floor replaces any advanced budget_min
//  8. advanced tri-state flags; is_nonprofit is OR'd with the quick filter
//  9. limit, always last
func BuildQuery(s State, limit int) Query {
	var q Query
	adv := s.Advanced

	q.Set(ParamDateField, string(s.DateField))

	if s.Dates.From != "" {
		q.Set(ParamDateFrom, s.Dates.From)
	}
	if s.Dates.To != "" {
		q.Set(ParamDateTo, s.Dates.To)
	}

	switch s.Tab {
	case TabOpen:
		q.Set(ParamIsOpen, "true")
	case TabSent:
		q.Set(ParamSentToExternal, "true")
	}

	if adv.Search != "" {
		q.Set(ParamSearch, adv.Search)
	}

	if adv.BudgetMin != 0 {
		q.Set(ParamBudgetMin, formatNumber(adv.BudgetMin))
	}
	if adv.BudgetMax != BudgetCap {
		q.Set(ParamBudgetMax, formatNumber(adv.BudgetMax))
	}
	if adv.Department != "" {
		q.Set(ParamDepartment, adv.Department)
	}
	if adv.Source != SourceAny {
		q.Set(ParamSource, string(adv.Source))
	}

	if adv.ConfidenceMin > 0 {
		q.Set(ParamConfidenceMin, formatNumber(float64(adv.ConfidenceMin)/100))
	}

	for _, qf := range s.Quick {
		if !qf.Active {
			continue
		}
		def, ok := lookupQuick(qf.ID)
		if !ok {
			continue
		}
		for _, e := range def.Effects {
			switch e.Mode {
			case Or:
				q.Or(e.Param)
			default:
				q.Set(e.Param, e.Value)
			}
		}
	}

	if adv.IsOpen != Any {
		q.Set(ParamIsOpen, adv.IsOpen.String())
	}
	if adv.SentToExternal != Any {
		q.Set(ParamSentToExternal, adv.SentToExternal.String())
	}
	if adv.IsNonprofit {
		q.Or(ParamIsNonprofit)
	}

	q.Append(ParamLimit, strconv.Itoa(limit))
	return q
}
