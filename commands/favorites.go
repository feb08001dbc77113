package commands

import (
	"context"
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"grant-dashboard/resources"
)

func addFavorites(topLevel *cobra.Command, o *options) {
	cmd := &cobra.Command{
		Use:     "favorites",
		Aliases: []string{"fav"},
		Short:   "List or change favorite grants.",
		Example: `
grantdash favorites
grantdash favorites add BDNS-778812
grantdash favorites toggle BDNS-778812
`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return o.withFavorites(cmd.Context(), func(f *resources.Favorites) error {
				out := cmd.OutOrStdout()
				if f.Origin() == resources.OriginMirror {
					_, _ = fmt.Fprintln(out, color.YellowString("Service unreachable; showing the local copy."))
				}
				for _, id := range f.IDs() {
					_, _ = fmt.Fprintln(out, id)
				}
				return nil
			})
		},
	}

	for _, sub := range []struct {
		use, short string
		op         func(*resources.Favorites, string) *resources.Mutation
	}{
		{"add", "Add a grant to favorites.", (*resources.Favorites).Add},
		{"remove", "Remove a grant from favorites.", (*resources.Favorites).Remove},
		{"toggle", "Add or remove a grant.", (*resources.Favorites).Toggle},
	} {
		op := sub.op
		cmd.AddCommand(&cobra.Command{
			Use:   sub.use + " GRANT_ID",
			Short: sub.short,
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return o.withFavorites(cmd.Context(), func(f *resources.Favorites) error {
					if err := op(f, args[0]).Wait(cmd.Context()); err != nil {
						return err
					}
					state := "not a favorite"
					if f.Has(args[0]) {
						state = color.GreenString("favorite")
					}
					_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", args[0], state)
					return nil
				})
			},
		})
	}

	topLevel.AddCommand(cmd)
}

// withFavorites loads the favorites, backed by the local mirror, and runs fn.
func (o *options) withFavorites(ctx context.Context, fn func(*resources.Favorites) error) error {
	mirror, closeMirror, err := o.openMirror()
	if err != nil {
		return err
	}
	defer closeMirror()

	f := resources.NewFavorites(o.client(), mirror, o.log.Named("favorites"))
	defer f.Close()
	if _, err := f.Load(ctx); err != nil {
		return err
	}
	return fn(f)
}
