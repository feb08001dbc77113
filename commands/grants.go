package commands

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/gosuri/uitable"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"grant-dashboard/filters"
	"grant-dashboard/listview"
	"grant-dashboard/models"
)

type grantsOptions struct {
	search        string
	quick         []string
	budgetMin     float64
	budgetMax     float64
	confidenceMin int
	department    string
	source        string
	open          string
	sent          string
	nonprofit     bool
	from, to      string
	dateField     string
	tab           string
	sort          string
	desc          bool
	page          int
	pageSize      int
}

func addGrants(topLevel *cobra.Command, o *options) {
	g := &grantsOptions{}

	cmd := &cobra.Command{
		Use:   "grants",
		Short: "Query grants with dashboard filters.",
		Example: `
grantdash grants --search agua --quick large_amount
grantdash grants --source BDNS --open true --sort deadline --page 2
`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			field, err := listview.ParseSortField(g.sort)
			if err != nil {
				return err
			}
			agg := filters.NewAggregator()
			if err := g.apply(agg); err != nil {
				return err
			}
			q := filters.BuildQuery(agg.State(), o.cfg.QueryLimit)
			o.log.Debug("Listing grants", zap.String("query", q.Encode()))

			client := o.client()
			result, err := client.ListGrants(cmd.Context(), q)
			if err != nil {
				return err
			}
			favs := map[string]bool{}
			if ids, err := client.FavoriteIDs(cmd.Context()); err == nil {
				for _, id := range ids {
					favs[id] = true
				}
			}

			list := listview.New(o.cfg.Locale, o.cfg.PageSize)
			list.SetRecords(result.Grants)
			if g.pageSize != 0 {
				if err := list.SetPageSize(g.pageSize); err != nil {
					return err
				}
			}
			dir := listview.Ascending
			if g.desc {
				dir = listview.Descending
			}
			list.SetSort(field, dir)
			list.SetPage(g.page)

			out := cmd.OutOrStdout()
			printActive(out, filters.NewProjector(o.cfg.Locale).Project(agg.State()))
			printGrants(out, list.View(), result.Total, favs)
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVarP(&g.search, "search", "s", "", "Free-text search.")
	f.StringSliceVarP(&g.quick, "quick", "q", nil, "Quick filters to enable ("+quickIDs()+").")
	f.Float64Var(&g.budgetMin, "budget-min", 0, "Minimum budget.")
	f.Float64Var(&g.budgetMax, "budget-max", filters.BudgetCap, "Maximum budget.")
	f.IntVar(&g.confidenceMin, "confidence-min", 0, "Minimum nonprofit confidence, 0-100.")
	f.StringVar(&g.department, "department", "", "Department contains.")
	f.StringVar(&g.source, "source", "", "One of BOE, BDNS, PLACSP.")
	f.StringVar(&g.open, "open", "", "Only open (true) or closed (false) calls.")
	f.StringVar(&g.sent, "sent", "", "Only sent (true) or unsent (false) grants.")
	f.BoolVar(&g.nonprofit, "nonprofit", false, "Only grants for nonprofits.")
	f.StringVar(&g.from, "from", "", "Earliest date, YYYY-MM-DD.")
	f.StringVar(&g.to, "to", "", "Latest date, YYYY-MM-DD.")
	f.StringVar(&g.dateField, "date-field", string(filters.DateDeadline), "Date the range applies to: deadline, publication or captured.")
	f.StringVar(&g.tab, "tab", string(filters.TabAll), "Tab: all, open or sentToExternal.")
	f.StringVar(&g.sort, "sort", "", "Sort column: title, department, source, budget, deadline, publication, confidence.")
	f.BoolVar(&g.desc, "desc", false, "Sort descending.")
	f.IntVar(&g.page, "page", 1, "Page to show.")
	f.IntVar(&g.pageSize, "page-size", 0, "Rows per page: 10, 25, 50 or 100 (default from config).")

	topLevel.AddCommand(cmd)
}

// apply feeds the flags through the aggregator, as the dashboard would.
func (g *grantsOptions) apply(agg *filters.Aggregator) error {
	for _, id := range g.quick {
		if err := agg.SetQuickFilter(strings.TrimSpace(id), true); err != nil {
			return fmt.Errorf("--quick: %w", err)
		}
	}
	open, err := parseTri(g.open)
	if err != nil {
		return fmt.Errorf("--open: %w", err)
	}
	sent, err := parseTri(g.sent)
	if err != nil {
		return fmt.Errorf("--sent: %w", err)
	}
	if err := agg.SetAdvanced(filters.Advanced{
		Search:         g.search,
		BudgetMin:      g.budgetMin,
		BudgetMax:      g.budgetMax,
		ConfidenceMin:  g.confidenceMin,
		Department:     g.department,
		Source:         filters.Source(g.source),
		IsOpen:         open,
		SentToExternal: sent,
		IsNonprofit:    g.nonprofit,
	}); err != nil {
		return err
	}
	if err := agg.SetDates(filters.DateRange{From: g.from, To: g.to}, filters.DateField(g.dateField)); err != nil {
		return err
	}
	return agg.SetTab(filters.Tab(g.tab))
}

func parseTri(s string) (filters.Tri, error) {
	switch strings.ToLower(s) {
	case "":
		return filters.Any, nil
	case "true", "yes":
		return filters.Yes, nil
	case "false", "no":
		return filters.No, nil
	}
	return filters.Any, fmt.Errorf("want true or false, got %q", s)
}

func quickIDs() string {
	ids := make([]string, len(filters.Catalog))
	for i, def := range filters.Catalog {
		ids[i] = def.ID
	}
	return strings.Join(ids, ", ")
}

func printActive(w io.Writer, active []filters.ActiveFilter) {
	if len(active) == 0 {
		return
	}
	label := color.New(color.FgCyan)
	parts := make([]string, len(active))
	for i, a := range active {
		parts[i] = label.Sprint(a.Label+":") + " " + a.Value
	}
	_, _ = fmt.Fprintln(w, strings.Join(parts, "  "))
	_, _ = fmt.Fprintln(w)
}

func printGrants(w io.Writer, p listview.Page, matched int, favs map[string]bool) {
	bold := color.New(color.Bold)

	tbl := uitable.New()
	tbl.Separator = "  "
	tbl.MaxColWidth = 60
	tbl.AddRow("", bold.Sprint("ID"), bold.Sprint("Source"), bold.Sprint("Title"), bold.Sprint("Deadline"), bold.Sprint("Budget"))
	for _, g := range p.Items {
		star := ""
		if favs[g.ID] {
			star = color.YellowString("*")
		}
		tbl.AddRow(star, g.ID, g.Source, g.Title, day(g.ApplicationEndDate), budget(g.BudgetAmount))
	}
	tbl.RightAlign(5)
	_, _ = fmt.Fprintln(w, tbl)

	_, _ = fmt.Fprintf(w, "\n%d-%d of %d shown, %d matched. Page %d/%d.\n", p.First, p.Last, p.Total, matched, p.Page, p.PageCount)
}

func day(d *models.Date) string {
	if d == nil || d.IsZero() {
		return "-"
	}
	return d.Format(models.DayLayout)
}

func budget(v *float64) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf("%.0f", *v)
}
