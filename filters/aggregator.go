package filters

import (
	"errors"
	"fmt"
	"sync"
)

// ErrUnknownKey is returned for a quick filter id or removal key that does not
// exist.
var ErrUnknownKey = errors.New("filters: unknown key")

// Aggregator owns the filter state. Every mutator replaces only the facet it
// touches, and every change is published to subscribers exactly once.
type Aggregator struct {
	mu    sync.Mutex
	state State
	subs  map[int]func(State)
	next  int
}

func NewAggregator() *Aggregator {
	return &Aggregator{state: Defaults(), subs: make(map[int]func(State))}
}

// State returns a snapshot of the current state.
func (a *Aggregator) State() State {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state.Clone()
}

// Subscribe registers fn to receive the new state after each change. fn is
// called outside the aggregator lock.
func (a *Aggregator) Subscribe(fn func(State)) (cancel func()) {
	a.mu.Lock()
	defer a.mu.Unlock()
	id := a.next
	a.next++
	a.subs[id] = fn
	return func() {
		a.mu.Lock()
		defer a.mu.Unlock()
		delete(a.subs, id)
	}
}

// update applies fn to a copy of the state and swaps it in atomically. A
// mutation that leaves the state unchanged publishes nothing.
func (a *Aggregator) update(fn func(*State) error) error {
	a.mu.Lock()
	next := a.state.Clone()
	if err := fn(&next); err != nil {
		a.mu.Unlock()
		return err
	}
	if next.Equal(a.state) {
		a.mu.Unlock()
		return nil
	}
	a.state = next
	subs := make([]func(State), 0, len(a.subs))
	for _, fn := range a.subs {
		subs = append(subs, fn)
	}
	a.mu.Unlock()

	for _, fn := range subs {
		fn(next.Clone())
	}
	return nil
}

// SetSearch sets the unified free-text search.
func (a *Aggregator) SetSearch(search string) {
	_ = a.update(func(s *State) error {
		s.Advanced.Search = search
		return nil
	})
}

// SetQuickFilter switches one quick filter on or off.
func (a *Aggregator) SetQuickFilter(id string, active bool) error {
	return a.update(func(s *State) error {
		for i := range s.Quick {
			if s.Quick[i].ID == id {
				s.Quick[i].Active = active
				return nil
			}
		}
		return fmt.Errorf("%w: quick filter %q", ErrUnknownKey, id)
	})
}

// ToggleQuickFilter flips one quick filter.
func (a *Aggregator) ToggleQuickFilter(id string) error {
	return a.update(func(s *State) error {
		for i := range s.Quick {
			if s.Quick[i].ID == id {
				s.Quick[i].Active = !s.Quick[i].Active
				return nil
			}
		}
		return fmt.Errorf("%w: quick filter %q", ErrUnknownKey, id)
	})
}

// SetAdvanced replaces the advanced form. Budgets below zero are raised to
// zero and confidence is clamped to 0–100; a minimum above the maximum is
// kept as given.
func (a *Aggregator) SetAdvanced(adv Advanced) error {
	if !adv.Source.valid() {
		return fmt.Errorf("filters: invalid source %q", adv.Source)
	}
	adv = normalizeAdvanced(adv)
	return a.update(func(s *State) error {
		s.Advanced = adv
		return nil
	})
}

// UpdateAdvanced edits the advanced form in place.
func (a *Aggregator) UpdateAdvanced(fn func(*Advanced)) error {
	return a.update(func(s *State) error {
		adv := s.Advanced
		fn(&adv)
		if !adv.Source.valid() {
			return fmt.Errorf("filters: invalid source %q", adv.Source)
		}
		s.Advanced = normalizeAdvanced(adv)
		return nil
	})
}

func normalizeAdvanced(adv Advanced) Advanced {
	if adv.BudgetMin < 0 {
		adv.BudgetMin = 0
	}
	if adv.BudgetMax < 0 {
		adv.BudgetMax = 0
	}
	if adv.ConfidenceMin < 0 {
		adv.ConfidenceMin = 0
	}
	if adv.ConfidenceMin > 100 {
		adv.ConfidenceMin = 100
	}
	return adv
}

// SetDateRange sets the date bounds.
func (a *Aggregator) SetDateRange(r DateRange) error {
	if err := r.validate(); err != nil {
		return fmt.Errorf("filters: %w", err)
	}
	return a.update(func(s *State) error {
		s.Dates = r
		return nil
	})
}

// SetDateField selects which grant date the range constrains.
func (a *Aggregator) SetDateField(f DateField) error {
	if !f.valid() {
		return fmt.Errorf("filters: invalid date field %q", f)
	}
	return a.update(func(s *State) error {
		s.DateField = f
		return nil
	})
}

// SetDates sets the range and the date field together.
func (a *Aggregator) SetDates(r DateRange, f DateField) error {
	if err := r.validate(); err != nil {
		return fmt.Errorf("filters: %w", err)
	}
	if !f.valid() {
		return fmt.Errorf("filters: invalid date field %q", f)
	}
	return a.update(func(s *State) error {
		s.Dates = r
		s.DateField = f
		return nil
	})
}

func (a *Aggregator) SetTab(t Tab) error {
	if !t.valid() {
		return fmt.Errorf("filters: invalid tab %q", t)
	}
	return a.update(func(s *State) error {
		s.Tab = t
		return nil
	})
}

// ClearAll resets every facet to the defaults in one transition.
func (a *Aggregator) ClearAll() {
	_ = a.update(func(s *State) error {
		*s = Defaults()
		return nil
	})
}

// RemoveOne resets the single facet named by key, as listed by the
// Projector. Compound facets reset only the named part.
func (a *Aggregator) RemoveOne(key string) error {
	return a.update(func(s *State) error {
		return removeKey(s, key)
	})
}

func removeKey(s *State, key string) error {
	def := Defaults()
	switch key {
	case KeyDateRange:
		s.Dates = def.Dates
		s.DateField = def.DateField
	case KeySearch:
		s.Advanced.Search = def.Advanced.Search
	case KeyBudgetMin:
		s.Advanced.BudgetMin = def.Advanced.BudgetMin
	case KeyBudgetMax:
		s.Advanced.BudgetMax = def.Advanced.BudgetMax
	case KeyConfidenceMin:
		s.Advanced.ConfidenceMin = def.Advanced.ConfidenceMin
	case KeyDepartment:
		s.Advanced.Department = def.Advanced.Department
	case KeySource:
		s.Advanced.Source = def.Advanced.Source
	case KeyIsOpen:
		s.Advanced.IsOpen = def.Advanced.IsOpen
	case KeySentToExternal:
		s.Advanced.SentToExternal = def.Advanced.SentToExternal
	case KeyIsNonprofit:
		s.Advanced.IsNonprofit = def.Advanced.IsNonprofit
	case KeyTab:
		s.Tab = def.Tab
	default:
		for i := range s.Quick {
			if s.Quick[i].ID == key {
				s.Quick[i].Active = false
				return nil
			}
		}
		return fmt.Errorf("%w: %q", ErrUnknownKey, key)
	}
	return nil
}
