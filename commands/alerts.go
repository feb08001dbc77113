package commands

import (
	"context"
	"fmt"
	"strconv"

	"github.com/fatih/color"
	"github.com/gosuri/uitable"
	"github.com/spf13/cobra"

	"grant-dashboard/models"
	"grant-dashboard/resources"
)

func addAlerts(topLevel *cobra.Command, o *options) {
	cmd := &cobra.Command{
		Use:   "alerts",
		Short: "Manage saved grant alerts.",
		Example: `
grantdash alerts
grantdash alerts create --name "Agua" --email me@example.org --keywords agua,riego
grantdash alerts toggle 12
`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return o.withAlerts(cmd.Context(), func(a *resources.Alerts) error {
				printAlerts(cmd, a.List())
				return nil
			})
		},
	}

	var (
		in                   models.AlertInput
		keywords, source     string
		minBudget, maxBudget float64
		nonprofit            bool
	)
	create := &cobra.Command{
		Use:   "create",
		Short: "Create an alert.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			f := cmd.Flags()
			if keywords != "" {
				in.Keywords = &keywords
			}
			if source != "" {
				in.Source = &source
			}
			if f.Changed("min-budget") {
				in.MinBudget = &minBudget
			}
			if f.Changed("max-budget") {
				in.MaxBudget = &maxBudget
			}
			if f.Changed("nonprofit") {
				in.IsNonprofit = &nonprofit
			}
			return o.withAlerts(cmd.Context(), func(a *resources.Alerts) error {
				tmp, m := a.Create(in)
				if err := m.Wait(cmd.Context()); err != nil {
					return err
				}
				id, _ := a.ServerID(tmp)
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Created alert %d.\n", id)
				return nil
			})
		},
	}
	cf := create.Flags()
	cf.StringVar(&in.Name, "name", "", "Alert name.")
	cf.StringVar(&in.Email, "email", "", "Where to send matches.")
	cf.StringVar(&keywords, "keywords", "", "Comma-separated keywords; any one matches.")
	cf.StringVar(&source, "source", "", "One of BOE, BDNS, PLACSP.")
	cf.Float64Var(&minBudget, "min-budget", 0, "Minimum budget.")
	cf.Float64Var(&maxBudget, "max-budget", 0, "Maximum budget.")
	cf.BoolVar(&nonprofit, "nonprofit", false, "Only grants for nonprofits.")
	_ = create.MarkFlagRequired("name")
	_ = create.MarkFlagRequired("email")
	cmd.AddCommand(create)

	cmd.AddCommand(alertCommand(o, "toggle", "Pause or resume an alert.", (*resources.Alerts).Toggle))
	cmd.AddCommand(alertCommand(o, "delete", "Delete an alert.", (*resources.Alerts).Delete))

	topLevel.AddCommand(cmd)
}

func alertCommand(o *options, use, short string, op func(*resources.Alerts, int64) *resources.Mutation) *cobra.Command {
	return &cobra.Command{
		Use:   use + " ID",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid alert id %q", args[0])
			}
			return o.withAlerts(cmd.Context(), func(a *resources.Alerts) error {
				if err := op(a, id).Wait(cmd.Context()); err != nil {
					return err
				}
				printAlerts(cmd, a.List())
				return nil
			})
		},
	}
}

func (o *options) withAlerts(ctx context.Context, fn func(*resources.Alerts) error) error {
	a := resources.NewAlerts(o.client(), o.log.Named("alerts"))
	defer a.Close()
	if err := a.Load(ctx); err != nil {
		return err
	}
	return fn(a)
}

func printAlerts(cmd *cobra.Command, alerts []models.Alert) {
	bold := color.New(color.Bold)

	tbl := uitable.New()
	tbl.Separator = "  "
	tbl.AddRow(bold.Sprint("ID"), bold.Sprint("Name"), bold.Sprint("Email"), bold.Sprint("Keywords"), bold.Sprint("Status"), bold.Sprint("Matches"))
	for _, a := range alerts {
		status := color.GreenString("active")
		if !a.Active {
			status = color.New(color.Faint).Sprint("paused")
		}
		tbl.AddRow(a.ID, a.Name, a.Email, models.Str(a.Keywords), status, a.MatchCount)
	}
	tbl.RightAlign(0)
	_, _ = fmt.Fprintln(cmd.OutOrStdout(), tbl)
}
