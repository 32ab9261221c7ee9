package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

// NewFavoritesCommand creates the favorites command group.
func NewFavoritesCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "favorites",
		Short: "Toggle and show the acting user's favorite listings",
	}

	cmd.AddCommand(&cobra.Command{
		Use:           "toggle <listing-id>",
		Short:         "Add or remove a listing from favorites",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := newFormatter(rootOpts, cmd)
			user, err := rootOpts.user()
			if err != nil {
				return fail(f, "failed to toggle favorite", err)
			}

			a, closeApp, err := openApp(rootOpts, cmd, f)
			if err != nil {
				return err
			}
			defer closeApp()

			ids, err := a.Favorites.Toggle(commandContext(cmd), user.ID, args[0])
			if err != nil {
				return fail(f, "failed to toggle favorite", err)
			}
			return f.Success(lines{items: ids, empty: "No favorites."})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:           "fetch",
		Short:         "Show favorites, refreshed from the remote store when reachable",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := newFormatter(rootOpts, cmd)
			user, err := rootOpts.user()
			if err != nil {
				return fail(f, "failed to fetch favorites", err)
			}

			a, closeApp, err := openApp(rootOpts, cmd, f)
			if err != nil {
				return err
			}
			defer closeApp()

			ids, err := a.Favorites.Fetch(commandContext(cmd), user.ID)
			if err != nil {
				return fail(f, "failed to fetch favorites", err)
			}
			return f.Success(lines{items: ids, empty: "No favorites."})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:           "check <listing-id>",
		Short:         "Report whether a listing is in the cached favorites",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := newFormatter(rootOpts, cmd)
			user, err := rootOpts.user()
			if err != nil {
				return fail(f, "failed to check favorite", err)
			}

			a, closeApp, err := openApp(rootOpts, cmd, f)
			if err != nil {
				return err
			}
			defer closeApp()

			fav, err := a.Favorites.IsFavorite(commandContext(cmd), user.ID, args[0])
			if err != nil {
				return fail(f, "failed to check favorite", err)
			}
			return f.Success(favoriteStatus{ListingID: args[0], Favorite: fav})
		},
	})

	return cmd
}

type favoriteStatus struct {
	ListingID string `json:"listing_id"`
	Favorite  bool   `json:"favorite"`
}

func (s favoriteStatus) RenderText(w io.Writer) error {
	if s.Favorite {
		_, err := fmt.Fprintf(w, "%s is a favorite\n", s.ListingID)
		return err
	}
	_, err := fmt.Fprintf(w, "%s is not a favorite\n", s.ListingID)
	return err
}
