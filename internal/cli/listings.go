package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/roach88/propsync/internal/listing"
	"github.com/roach88/propsync/internal/model"
)

// NewListingsCommand creates the listings command group.
func NewListingsCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "listings",
		Short: "List, create and manage property listings",
	}

	cmd.AddCommand(newListingsListCommand(rootOpts))
	cmd.AddCommand(newListingsGetCommand(rootOpts))
	cmd.AddCommand(newListingsCreateCommand(rootOpts))
	cmd.AddCommand(newListingsRemoveCommand(rootOpts))
	cmd.AddCommand(newListingsStatusCommand(rootOpts))
	cmd.AddCommand(newListingsSyncCommand(rootOpts))
	cmd.AddCommand(newListingsPendingCommand(rootOpts))
	cmd.AddCommand(newListingsLocationsCommand(rootOpts))

	return cmd
}

// listingTable renders listings as an aligned table.
type listingTable []model.Listing

func (t listingTable) RenderText(w io.Writer) error {
	if len(t) == 0 {
		_, err := fmt.Fprintln(w, "No listings.")
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSTATUS\tPRICE\tCATEGORY\tLOCATION\tTITLE")
	for _, l := range t {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			l.ID, l.Status, formatPrice(l.Price), l.Category, l.Location, l.Title)
	}
	return tw.Flush()
}

// listingDetail renders one listing as labeled lines.
type listingDetail model.Listing

func (d listingDetail) RenderText(w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "ID:\t%s\n", d.ID)
	fmt.Fprintf(tw, "Title:\t%s\n", d.Title)
	fmt.Fprintf(tw, "Status:\t%s\n", d.Status)
	fmt.Fprintf(tw, "Price:\t%s\n", formatPrice(d.Price))
	fmt.Fprintf(tw, "Category:\t%s\n", d.Category)
	fmt.Fprintf(tw, "Location:\t%s\n", d.Location)
	fmt.Fprintf(tw, "Area:\t%s %s\n", strconv.FormatFloat(d.Area, 'f', -1, 64), d.AreaUnit)
	fmt.Fprintf(tw, "Owner:\t%s (%s)\n", d.OwnerName, d.OwnerID)
	if d.ContactNumber != "" {
		fmt.Fprintf(tw, "Contact:\t%s\n", d.ContactNumber)
	}
	if model.IsLocalID(d.ID) {
		fmt.Fprintf(tw, "Stored:\tlocal cache (pending sync)\n")
	} else {
		fmt.Fprintf(tw, "Stored:\tremote\n")
	}
	return tw.Flush()
}

func formatPrice(p float64) string {
	return strconv.FormatFloat(p, 'f', 2, 64)
}

// syncReport renders a sync result.
type syncReport listing.SyncResult

func (r syncReport) RenderText(w io.Writer) error {
	localIDs := make([]string, 0, len(r.Synced))
	for id := range r.Synced {
		localIDs = append(localIDs, id)
	}
	sort.Strings(localIDs)
	for _, id := range localIDs {
		fmt.Fprintf(w, "synced %s -> %s\n", id, r.Synced[id])
	}
	_, err := fmt.Fprintf(w, "%d synced, %d pending\n", len(r.Synced), r.Pending)
	return err
}

// lines renders a string list one item per line.
type lines struct {
	items []string
	empty string
}

func (l lines) RenderText(w io.Writer) error {
	if len(l.items) == 0 {
		_, err := fmt.Fprintln(w, l.empty)
		return err
	}
	for _, s := range l.items {
		if _, err := fmt.Fprintln(w, s); err != nil {
			return err
		}
	}
	return nil
}

func (l lines) MarshalJSON() ([]byte, error) {
	if l.items == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(l.items)
}

func newListingsListCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "list",
		Short:         "Show local and remote listings",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := newFormatter(rootOpts, cmd)
			a, closeApp, err := openApp(rootOpts, cmd, f)
			if err != nil {
				return err
			}
			defer closeApp()

			all := a.Listings.ListAll(commandContext(cmd))
			return f.Success(listingTable(all))
		},
	}
}

func newListingsGetCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "get <id>",
		Short:         "Show one listing",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := newFormatter(rootOpts, cmd)
			a, closeApp, err := openApp(rootOpts, cmd, f)
			if err != nil {
				return err
			}
			defer closeApp()

			l, err := a.Listings.Get(commandContext(cmd), args[0])
			if err != nil {
				return fail(f, "failed to get listing", err)
			}
			return f.Success(listingDetail(l))
		},
	}
}

// CreateOptions holds flags for the listings create command.
type CreateOptions struct {
	*RootOptions
	Draft      model.ListingDraft
	Category   string
	Unit       string
	Rooms      int
	Bathrooms  int
	Parking    bool
	Furnishing string
}

func newListingsCreateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CreateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a listing",
		Long: `Create a listing owned by --user-id.

The listing is stored remotely when the remote store is reachable. Otherwise
it is kept in the local cache with a local_ id until "listings sync".

Example:
  propsync listings create --user-id u1 --user-name Ayesha \
    --title "3 bed house" --location "DHA Phase 5" --category house-sale \
    --price 250000 --area 10 --unit sqm --rooms 3`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCreate(opts, cmd)
		},
	}

	fl := cmd.Flags()
	fl.StringVar(&opts.Draft.Title, "title", "", "listing title (required)")
	fl.StringVar(&opts.Draft.Description, "description", "", "listing description")
	fl.Float64Var(&opts.Draft.Price, "price", 0, "asking price")
	fl.StringVar(&opts.Draft.Location, "location", "", "location (required)")
	fl.StringVar(&opts.Category, "category", "", "house-rent|house-sale|shop-rent|shop-sale|land-sale (required)")
	fl.Float64Var(&opts.Draft.Area, "area", 0, "area")
	fl.StringVar(&opts.Unit, "unit", string(model.AreaSquareFeet), "area unit (sqft|sqm)")
	fl.StringSliceVar(&opts.Draft.Images, "image", nil, "image URL (repeatable)")
	fl.StringVar(&opts.Draft.ContactNumber, "contact", "", "contact number")
	fl.IntVar(&opts.Rooms, "rooms", 0, "number of rooms")
	fl.IntVar(&opts.Bathrooms, "bathrooms", 0, "number of bathrooms")
	fl.BoolVar(&opts.Parking, "parking", false, "has parking")
	fl.StringVar(&opts.Furnishing, "furnishing", "", "furnishing description")

	return cmd
}

func runCreate(opts *CreateOptions, cmd *cobra.Command) error {
	f := newFormatter(opts.RootOptions, cmd)

	owner, err := opts.user()
	if err != nil {
		return fail(f, "failed to create listing", err)
	}

	draft := opts.Draft
	draft.Category = model.Category(opts.Category)
	draft.AreaUnit = model.AreaUnit(opts.Unit)
	fl := cmd.Flags()
	if fl.Changed("rooms") || fl.Changed("bathrooms") || fl.Changed("parking") || fl.Changed("furnishing") {
		draft.Config = &model.Configuration{
			Rooms:      opts.Rooms,
			Bathrooms:  opts.Bathrooms,
			Parking:    opts.Parking,
			Furnishing: opts.Furnishing,
		}
	}
	if err := draft.Validate(); err != nil {
		return fail(f, "failed to create listing", err)
	}

	a, closeApp, err := openApp(opts.RootOptions, cmd, f)
	if err != nil {
		return err
	}
	defer closeApp()

	l, err := a.Listings.Create(commandContext(cmd), draft, owner)
	if err != nil {
		return fail(f, "failed to create listing", err)
	}
	if l.IsLocal() {
		f.VerboseLog("remote store unreachable; %s kept in the local cache", l.ID)
	}
	return f.Success(listingDetail(l))
}

func newListingsRemoveCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "remove <id>",
		Short:         "Delete a listing",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := newFormatter(rootOpts, cmd)
			a, closeApp, err := openApp(rootOpts, cmd, f)
			if err != nil {
				return err
			}
			defer closeApp()

			if err := a.Listings.Remove(commandContext(cmd), args[0]); err != nil {
				return fail(f, "failed to remove listing", err)
			}
			return f.Success(fmt.Sprintf("Removed %s", args[0]))
		},
	}
}

func newListingsStatusCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "status <id> <active|sold|rented|booked>",
		Short:         "Change a listing's status",
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := newFormatter(rootOpts, cmd)

			status, err := model.ParseStatus(args[1])
			if err != nil {
				return fail(f, "failed to set status", err)
			}

			a, closeApp, err := openApp(rootOpts, cmd, f)
			if err != nil {
				return err
			}
			defer closeApp()

			if err := a.Listings.SetStatus(commandContext(cmd), args[0], status); err != nil {
				return fail(f, "failed to set status", err)
			}
			return f.Success(fmt.Sprintf("%s is now %s", args[0], status))
		},
	}
}

func newListingsSyncCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Push locally cached listings to the remote store",
		Long: `Push every listing held only in the local cache to the remote store,
oldest first. Each pushed listing gets a remote id and its local copy is
dropped. The run stops at the first remote failure.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := newFormatter(rootOpts, cmd)
			a, closeApp, err := openApp(rootOpts, cmd, f)
			if err != nil {
				return err
			}
			defer closeApp()

			res, err := a.Listings.SyncPending(commandContext(cmd))
			if err != nil {
				_ = f.Error(ErrCodeRemote, err.Error(), res)
				return WrapExitError(ExitFailure, "sync incomplete", err)
			}
			return f.Success(syncReport(res))
		},
	}
}

// pendingCount renders the number of listings waiting for sync.
type pendingCount struct {
	Pending int `json:"pending"`
}

func (p pendingCount) RenderText(w io.Writer) error {
	_, err := fmt.Fprintf(w, "%d pending\n", p.Pending)
	return err
}

func newListingsPendingCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "pending",
		Short:         "Show how many listings are waiting for sync",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := newFormatter(rootOpts, cmd)
			a, closeApp, err := openApp(rootOpts, cmd, f)
			if err != nil {
				return err
			}
			defer closeApp()

			n, err := a.Listings.PendingCount(commandContext(cmd))
			if err != nil {
				return fail(f, "failed to count pending listings", err)
			}
			return f.Success(pendingCount{Pending: n})
		},
	}
}

func newListingsLocationsCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "locations",
		Short:         "Show recently used locations",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := newFormatter(rootOpts, cmd)
			a, closeApp, err := openApp(rootOpts, cmd, f)
			if err != nil {
				return err
			}
			defer closeApp()

			locs, err := a.Listings.RecentLocations(commandContext(cmd))
			if err != nil {
				return fail(f, "failed to read locations", err)
			}
			return f.Success(lines{items: locs, empty: "No recent locations."})
		},
	}
}
