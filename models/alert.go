package models

import "strings"

// AlertCriteria is the saved search an alert matches new grants against.
// Nil fields mean "any".
type AlertCriteria struct {
	Keywords    *string  `json:"keywords"`
	Source      *string  `json:"source"`
	MinBudget   *float64 `json:"min_budget"`
	MaxBudget   *float64 `json:"max_budget"`
	IsNonprofit *bool    `json:"is_nonprofit"`
	Regions     []string `json:"regions,omitempty"`
	Sectors     []string `json:"sectors,omitempty"`
}

type Alert struct {
	ID              int64  `json:"id"`
	Name            string `json:"name"`
	Email           string `json:"email"`
	Active          bool   `json:"is_active"`
	MatchCount      int    `json:"matches_count"`
	LastTriggeredAt *Date  `json:"last_triggered_at"`
	AlertCriteria
}

// AlertList is the response of GET /alerts.
type AlertList struct {
	Alerts []Alert `json:"alerts"`
	Total  int     `json:"total"`
}

// AlertInput is the body of POST /alerts.
type AlertInput struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	AlertCriteria
}

// AlertPatch is the body of PUT /alerts/{id}. Only non-nil fields change.
type AlertPatch struct {
	Name        *string  `json:"name,omitempty"`
	Email       *string  `json:"email,omitempty"`
	Keywords    *string  `json:"keywords,omitempty"`
	Source      *string  `json:"source,omitempty"`
	MinBudget   *float64 `json:"min_budget,omitempty"`
	MaxBudget   *float64 `json:"max_budget,omitempty"`
	IsNonprofit *bool    `json:"is_nonprofit,omitempty"`
	Regions     []string `json:"regions,omitempty"`
	Sectors     []string `json:"sectors,omitempty"`
	Active      *bool    `json:"is_active,omitempty"`
}

// Apply returns a copy of a with the patch applied.
func (p AlertPatch) Apply(a Alert) Alert {
	if p.Name != nil {
		a.Name = *p.Name
	}
	if p.Email != nil {
		a.Email = *p.Email
	}
	if p.Keywords != nil {
		a.Keywords = p.Keywords
	}
	if p.Source != nil {
		// An empty source clears the constraint.
		if *p.Source == "" {
			a.Source = nil
		} else {
			a.Source = p.Source
		}
	}
	if p.MinBudget != nil {
		a.MinBudget = p.MinBudget
	}
	if p.MaxBudget != nil {
		a.MaxBudget = p.MaxBudget
	}
	if p.IsNonprofit != nil {
		a.IsNonprofit = p.IsNonprofit
	}
	if p.Regions != nil {
		a.Regions = append([]string(nil), p.Regions...)
	}
	if p.Sectors != nil {
		a.Sectors = append([]string(nil), p.Sectors...)
	}
	if p.Active != nil {
		a.Active = *p.Active
	}
	return a
}

// Matches reports whether g satisfies the alert criteria. Regions and sectors
// are not part of the list payload, so they are not checked here.
func (c AlertCriteria) Matches(g Grant) bool {
	if c.Source != nil && *c.Source != "" && g.Source != *c.Source {
		return false
	}
	if c.MinBudget != nil && (g.BudgetAmount == nil || *g.BudgetAmount < *c.MinBudget) {
		return false
	}
	if c.MaxBudget != nil && (g.BudgetAmount == nil || *g.BudgetAmount > *c.MaxBudget) {
		return false
	}
	if c.IsNonprofit != nil && *c.IsNonprofit && !g.IsNonprofit {
		return false
	}
	if c.Keywords != nil {
		var keywords []string
		for _, k := range strings.Split(*c.Keywords, ",") {
			if k = strings.ToLower(strings.TrimSpace(k)); k != "" {
				keywords = append(keywords, k)
			}
		}
		if len(keywords) > 0 {
			text := strings.ToLower(g.Title + " " + Str(g.Purpose))
			found := false
			for _, k := range keywords {
				if strings.Contains(text, k) {
					found = true
					break
				}
			}
			if !found {
				return false
			}
		}
	}
	return true
}
