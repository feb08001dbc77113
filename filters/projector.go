package filters

import (
	"fmt"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

// Removal keys for facets that are not quick filters. Quick filters use their
// catalog id.
const (
	KeyDateRange      = "dateRange"
	KeySearch         = "search"
	KeyBudgetMin      = "budgetMin"
	KeyBudgetMax      = "budgetMax"
	KeyConfidenceMin  = "confidenceMin"
	KeyDepartment     = "department"
	KeySource         = "source"
	KeyIsOpen         = "isOpen"
	KeySentToExternal = "sentToExternal"
	KeyIsNonprofit    = "isNonprofit"
	KeyTab            = "tab"
)

// ActiveFilter is one removable entry of the active-filter summary. Key is
// what RemoveOne takes; Value is display text only.
type ActiveFilter struct {
	Key   string `json:"key"`
	Label string `json:"label"`
	Value string `json:"value"`
}

// Projector renders the active-filter summary for one locale.
type Projector struct {
	printer *message.Printer
}

// NewProjector returns a projector formatting numbers for locale (a BCP 47
// tag such as "es" or "en-GB"). Unknown tags fall back to English.
func NewProjector(locale string) *Projector {
	tag, err := language.Parse(locale)
	if err != nil {
		tag = language.English
	}
	return &Projector{printer: message.NewPrinter(tag)}
}

var dateFieldLabels = map[DateField]string{
	DateDeadline:    "Deadline",
	DatePublication: "Publication date",
	DateCaptured:    "Captured date",
}

// Project lists every non-default facet: quick filters first, then the date
// range, then the advanced fields in form order, then the tab. The list is
// empty exactly when s is the default state.
func (p *Projector) Project(s State) []ActiveFilter {
	def := Defaults()
	var out []ActiveFilter

	for _, qf := range s.Quick {
		if qf.Active {
			out = append(out, ActiveFilter{Key: qf.ID, Label: "Quick filter", Value: qf.Label})
		}
	}

	if s.Dates != def.Dates || s.DateField != def.DateField {
		out = append(out, ActiveFilter{
			Key:   KeyDateRange,
			Label: dateFieldLabels[s.DateField],
			Value: dateRangeText(s.Dates),
		})
	}

	adv, dadv := s.Advanced, def.Advanced
	if adv.Search != dadv.Search {
		out = append(out, ActiveFilter{Key: KeySearch, Label: "Search", Value: fmt.Sprintf("%q", adv.Search)})
	}
	if adv.BudgetMin != dadv.BudgetMin {
		out = append(out, ActiveFilter{Key: KeyBudgetMin, Label: "Min budget", Value: p.money(adv.BudgetMin)})
	}
	if adv.BudgetMax != dadv.BudgetMax {
		out = append(out, ActiveFilter{Key: KeyBudgetMax, Label: "Max budget", Value: p.money(adv.BudgetMax)})
	}
	if adv.ConfidenceMin != dadv.ConfidenceMin {
		out = append(out, ActiveFilter{Key: KeyConfidenceMin, Label: "Min confidence", Value: fmt.Sprintf("%d%%", adv.ConfidenceMin)})
	}
	if adv.Department != dadv.Department {
		out = append(out, ActiveFilter{Key: KeyDepartment, Label: "Department", Value: adv.Department})
	}
	if adv.Source != dadv.Source {
		out = append(out, ActiveFilter{Key: KeySource, Label: "Source", Value: string(adv.Source)})
	}
	if adv.IsOpen != dadv.IsOpen {
		out = append(out, ActiveFilter{Key: KeyIsOpen, Label: "Open", Value: yesNo(adv.IsOpen)})
	}
	if adv.SentToExternal != dadv.SentToExternal {
		out = append(out, ActiveFilter{Key: KeySentToExternal, Label: "Sent", Value: yesNo(adv.SentToExternal)})
	}
	if adv.IsNonprofit != dadv.IsNonprofit {
		out = append(out, ActiveFilter{Key: KeyIsNonprofit, Label: "Nonprofit only", Value: "Yes"})
	}

	if s.Tab != def.Tab {
		out = append(out, ActiveFilter{Key: KeyTab, Label: "Tab", Value: tabLabels[s.Tab]})
	}
	return out
}

var tabLabels = map[Tab]string{
	TabAll:  "All",
	TabOpen: "Open",
	TabSent: "Sent",
}

func (p *Projector) money(v float64) string {
	return p.printer.Sprintf("%v €", number.Decimal(v, number.MaxFractionDigits(2)))
}

func yesNo(t Tri) string {
	if t == Yes {
		return "Yes"
	}
	return "No"
}

func dateRangeText(r DateRange) string {
	switch {
	case r.From != "" && r.To != "":
		return r.From + " – " + r.To
	case r.From != "":
		return "from " + r.From
	case r.To != "":
		return "until " + r.To
	default:
		return "any date"
	}
}
