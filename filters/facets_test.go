package filters

import (
	"fmt"
	"math/rand"
)

// facet describes one independently editable piece of state, how to move it
// off its default and which query parameters it then contributes.
type facet struct {
	key    string
	apply  func(*State, *rand.Rand)
	params []string
}

func quickFacet(id string, params ...string) facet {
	return facet{
		key:    id,
		apply:  func(s *State, _ *rand.Rand) { setQuick(s, id, true) },
		params: params,
	}
}

var facets = []facet{
	quickFacet("open_only", ParamIsOpen),
	quickFacet("nonprofit", ParamIsNonprofit),
	quickFacet("large_amount", ParamBudgetMin),
	quickFacet("high_confidence", ParamConfidenceMin),
	quickFacet("pending_send", ParamSentToExternal),
	{
		key: KeyDateRange,
		apply: func(s *State, r *rand.Rand) {
			s.DateField = DatePublication
			s.Dates = DateRange{
				From: fmt.Sprintf("2025-%02d-%02d", 1+r.Intn(6), 1+r.Intn(28)),
				To:   fmt.Sprintf("2025-%02d-%02d", 7+r.Intn(6), 1+r.Intn(28)),
			}
		},
		params: []string{ParamDateField, ParamDateFrom, ParamDateTo},
	},
	{
		key:    KeySearch,
		apply:  func(s *State, r *rand.Rand) { s.Advanced.Search = fmt.Sprintf("term-%d", r.Intn(1000)) },
		params: []string{ParamSearch},
	},
	{
		key:    KeyBudgetMin,
		apply:  func(s *State, r *rand.Rand) { s.Advanced.BudgetMin = float64(1 + r.Intn(1_000_000)) },
		params: []string{ParamBudgetMin},
	},
	{
		key:    KeyBudgetMax,
		apply:  func(s *State, r *rand.Rand) { s.Advanced.BudgetMax = float64(r.Intn(BudgetCap)) },
		params: []string{ParamBudgetMax},
	},
	{
		key:    KeyConfidenceMin,
		apply:  func(s *State, r *rand.Rand) { s.Advanced.ConfidenceMin = 1 + r.Intn(100) },
		params: []string{ParamConfidenceMin},
	},
	{
		key:    KeyDepartment,
		apply:  func(s *State, r *rand.Rand) { s.Advanced.Department = fmt.Sprintf("dept-%d", r.Intn(50)) },
		params: []string{ParamDepartment},
	},
	{
		key: KeySource,
		apply: func(s *State, r *rand.Rand) {
			s.Advanced.Source = []Source{SourceBOE, SourceBDNS, SourcePLACSP}[r.Intn(3)]
		},
		params: []string{ParamSource},
	},
	{
		key:    KeyIsOpen,
		apply:  func(s *State, r *rand.Rand) { s.Advanced.IsOpen = []Tri{Yes, No}[r.Intn(2)] },
		params: []string{ParamIsOpen},
	},
	{
		key:    KeySentToExternal,
		apply:  func(s *State, r *rand.Rand) { s.Advanced.SentToExternal = []Tri{Yes, No}[r.Intn(2)] },
		params: []string{ParamSentToExternal},
	},
	{
		key:    KeyIsNonprofit,
		apply:  func(s *State, _ *rand.Rand) { s.Advanced.IsNonprofit = true },
		params: []string{ParamIsNonprofit},
	},
	{
		key:    KeyTab,
		apply:  func(s *State, _ *rand.Rand) { s.Tab = TabSent },
		params: []string{ParamSentToExternal},
	},
}

type sample struct {
	state   State
	touched []string
}

// samples builds n random non-default states, each touching a random
// non-empty subset of facets.
func samples(n int, seed int64) []sample {
	r := rand.New(rand.NewSource(seed))
	out := make([]sample, 0, n)
	for len(out) < n {
		s := Defaults()
		var touched []string
		for _, f := range facets {
			if r.Intn(3) == 0 {
				f.apply(&s, r)
				touched = append(touched, f.key)
			}
		}
		if len(touched) == 0 {
			continue
		}
		out = append(out, sample{state: s, touched: touched})
	}
	return out
}

func sampleStates(n int, seed int64) []State {
	var states []State
	for _, s := range samples(n, seed) {
		states = append(states, s.state)
	}
	return states
}

// changedParams lists the keys of q whose value differs from, or is missing
// in, base.
func changedParams(q, base Query) []string {
	var out []string
	for _, p := range q.Params() {
		if v, ok := base.Get(p.Key); !ok || v != p.Value {
			out = append(out, p.Key)
		}
	}
	return out
}

func newRand() *rand.Rand {
	return rand.New(rand.NewSource(1))
}
