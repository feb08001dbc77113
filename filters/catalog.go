package filters

// Mode says how a quick-filter effect combines with a value already in the
// query.
type Mode int

const (
	// Overwrite replaces any earlier value, even a stricter one.
	Overwrite Mode = iota
	// Or turns a boolean parameter on; it never turns it off.
	Or
)

// Effect is one query parameter a quick filter contributes.
type Effect struct {
	Param string
	Value string
	Mode  Mode
}

// QuickFilterDef declares a quick filter and its query effects. New quick
// filters are new rows here, nothing else.
type QuickFilterDef struct {
	ID      string
	Label   string
	Effects []Effect
}

// LargeAmountFloor is the budget floor forced by the large_amount quick filter.
const LargeAmountFloor = 500000

var Catalog = []QuickFilterDef{
	{
		ID:      "open_only",
		Label:   "Open calls",
		Effects: []Effect{{Param: ParamIsOpen, Value: "true", Mode: Overwrite}},
	},
	{
		ID:      "nonprofit",
		Label:   "Nonprofit",
		Effects: []Effect{{Param: ParamIsNonprofit, Value: "true", Mode: Or}},
	},
	{
		ID:      "large_amount",
		Label:   "Over 500,000",
		Effects: []Effect{{Param: ParamBudgetMin, Value: "500000", Mode: Overwrite}},
	},
	{
		ID:      "high_confidence",
		Label:   "High confidence",
		Effects: []Effect{{Param: ParamConfidenceMin, Value: "0.8", Mode: Overwrite}},
	},
	{
		ID:      "pending_send",
		Label:   "Not sent yet",
		Effects: []Effect{{Param: ParamSentToExternal, Value: "false", Mode: Overwrite}},
	},
}

func lookupQuick(id string) (QuickFilterDef, bool) {
	for _, def := range Catalog {
		if def.ID == id {
			return def, true
		}
	}
	return QuickFilterDef{}, false
}
