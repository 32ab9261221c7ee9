// Package listing reconciles the local cache and the remote store for
// property listings.
//
// Reads merge both stores and never fail on remote trouble. Creates try the
// remote first and fall back to a local-prefixed record. Mutations route by
// id prefix alone: a local id only ever touches the local cache, any other id
// only ever touches the remote store, and remote failures propagate.
package listing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/roach88/propsync/internal/clock"
	"github.com/roach88/propsync/internal/ids"
	"github.com/roach88/propsync/internal/model"
	"github.com/roach88/propsync/internal/remote"
)

// ErrRemoteMutation wraps a failed delete or status update of a remote listing.
// There is no local copy to fall back to, so the caller must report it.
var ErrRemoteMutation = errors.New("remote mutation failed")

// DefaultRecentLocations is how many recent locations are remembered.
const DefaultRecentLocations = 5

// LocalStore is the slice of the local cache the repository needs.
// Implemented by *store.Store.
type LocalStore interface {
	LocalListings(ctx context.Context) ([]model.Listing, error)
	LocalListing(ctx context.Context, id string) (model.Listing, error)
	PutLocalListing(ctx context.Context, l model.Listing) error
	DeleteLocalListing(ctx context.Context, id string) error
	UpdateLocalListing(ctx context.Context, id string, fn func(*model.Listing)) (model.Listing, error)
	RecentLocations(ctx context.Context) ([]string, error)
	PushRecentLocation(ctx context.Context, loc string, limit int) error
}

// Repository merges local and remote listing storage.
//
// Thread-safety: safe for concurrent use. Each store serializes its own
// writes; the repository keeps no mutable state.
type Repository struct {
	local       LocalStore
	remote      remote.ListingStore
	clock       clock.Clock
	ids         ids.Generator
	timeout     time.Duration
	recentLimit int
	logger      *slog.Logger
}

// Option configures a Repository.
type Option func(*Repository)

// WithClock sets the clock used for creation timestamps.
func WithClock(c clock.Clock) Option {
	return func(r *Repository) { r.clock = c }
}

// WithIDGenerator sets the generator for local id suffixes.
func WithIDGenerator(g ids.Generator) Option {
	return func(r *Repository) { r.ids = g }
}

// WithRemoteTimeout bounds every remote call. Zero means no bound beyond ctx.
func WithRemoteTimeout(d time.Duration) Option {
	return func(r *Repository) { r.timeout = d }
}

// WithRecentLocations sets how many recent locations are kept.
func WithRecentLocations(n int) Option {
	return func(r *Repository) { r.recentLimit = n }
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(r *Repository) { r.logger = l }
}

// New creates a Repository over the given stores.
func New(local LocalStore, rem remote.ListingStore, opts ...Option) *Repository {
	r := &Repository{
		local:       local,
		remote:      rem,
		clock:       clock.System{},
		ids:         ids.UUIDv7Generator{},
		recentLimit: DefaultRecentLocations,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Repository) remoteCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	if r.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, r.timeout)
}

// ListAll returns every listing visible on this device: local listings
// first (newest first), then remote listings ordered by CreatedAt descending.
//
// It never fails. A store that cannot be read contributes nothing and the
// failure is logged; callers must treat a partial result as valid.
func (r *Repository) ListAll(ctx context.Context) []model.Listing {
	local, err := r.local.LocalListings(ctx)
	if err != nil {
		r.logger.Error("read local listings failed", "error", err)
		local = nil
	}
	sortNewestFirst(local)

	rctx, cancel := r.remoteCtx(ctx)
	defer cancel()
	remoteListings, err := r.remote.ListListings(rctx)
	if err != nil {
		r.logger.Warn("remote listings unavailable, showing local only",
			"local", len(local),
			"error", err,
		)
		remoteListings = nil
	}
	sortNewestFirst(remoteListings)

	out := make([]model.Listing, 0, len(local)+len(remoteListings))
	seen := make(map[string]struct{}, cap(out))
	for _, group := range [][]model.Listing{local, remoteListings} {
		for _, l := range group {
			if _, dup := seen[l.ID]; dup {
				continue
			}
			seen[l.ID] = struct{}{}
			out = append(out, l)
		}
	}

	r.logger.Debug("listed listings", "local", len(local), "remote", len(remoteListings))
	return out
}

func sortNewestFirst(ls []model.Listing) {
	sort.SliceStable(ls, func(i, j int) bool {
		return ls[i].CreatedAt > ls[j].CreatedAt
	})
}

// Get returns one listing, routed by id prefix.
// Returns model.ErrNotFound if the owning store has no such listing.
func (r *Repository) Get(ctx context.Context, id string) (model.Listing, error) {
	switch ref := model.ParseRef(id).(type) {
	case model.LocalRef:
		return r.local.LocalListing(ctx, ref.ID())
	case model.RemoteRef:
		rctx, cancel := r.remoteCtx(ctx)
		defer cancel()
		l, err := r.remote.GetListing(rctx, ref.ID())
		if err != nil {
			return model.Listing{}, fmt.Errorf("get listing %s: %w", id, err)
		}
		return l, nil
	default:
		return model.Listing{}, fmt.Errorf("get listing %s: unknown ref %T", id, ref)
	}
}

// Create stores a new listing owned by owner.
//
// The remote store is tried first. On any remote failure the listing gets a
// local-prefixed id and is kept in the local cache. Either way the returned
// listing is fully populated; only the id prefix tells the paths apart.
// Fails only on an invalid draft or when the local fallback also fails.
func (r *Repository) Create(ctx context.Context, draft model.ListingDraft, owner model.User) (model.Listing, error) {
	if err := draft.Validate(); err != nil {
		return model.Listing{}, err
	}

	l := model.NewListing("", draft, owner, r.clock.NowMillis())

	rctx, cancel := r.remoteCtx(ctx)
	created, err := r.remote.AddListing(rctx, l)
	cancel()
	if err == nil {
		r.logger.Info("listing created", "id", created.ID, "owner", owner.ID, "store", "remote")
		r.rememberLocation(ctx, created.Location)
		return created, nil
	}

	r.logger.Warn("remote create failed, storing listing locally", "owner", owner.ID, "error", err)

	l.ID = model.LocalIDPrefix + r.ids.Generate()
	if err := r.local.PutLocalListing(ctx, l); err != nil {
		return model.Listing{}, fmt.Errorf("create listing: %w", err)
	}

	r.logger.Info("listing created", "id", l.ID, "owner", owner.ID, "store", "local")
	r.rememberLocation(ctx, l.Location)
	return l, nil
}

func (r *Repository) rememberLocation(ctx context.Context, loc string) {
	if err := r.local.PushRecentLocation(ctx, loc, r.recentLimit); err != nil {
		r.logger.Warn("remember location failed", "location", loc, "error", err)
	}
}

// Remove deletes a listing from the store that owns it.
// A remote failure is returned wrapped in ErrRemoteMutation.
func (r *Repository) Remove(ctx context.Context, id string) error {
	switch ref := model.ParseRef(id).(type) {
	case model.LocalRef:
		if err := r.local.DeleteLocalListing(ctx, ref.ID()); err != nil {
			return fmt.Errorf("remove listing: %w", err)
		}
	case model.RemoteRef:
		rctx, cancel := r.remoteCtx(ctx)
		defer cancel()
		if err := r.remote.DeleteListing(rctx, ref.ID()); err != nil {
			return fmt.Errorf("remove listing %s: %w: %w", id, ErrRemoteMutation, err)
		}
	default:
		return fmt.Errorf("remove listing %s: unknown ref %T", id, ref)
	}

	r.logger.Info("listing removed", "id", id)
	return nil
}

// SetStatus changes a listing's status in place, leaving every other field
// untouched. Routing and error handling match Remove.
func (r *Repository) SetStatus(ctx context.Context, id string, status model.Status) error {
	if !status.Valid() {
		return fmt.Errorf("set status: %w: %q", model.ErrInvalidStatus, status)
	}

	switch ref := model.ParseRef(id).(type) {
	case model.LocalRef:
		_, err := r.local.UpdateLocalListing(ctx, ref.ID(), func(l *model.Listing) {
			l.Status = status
		})
		if err != nil {
			return fmt.Errorf("set status: %w", err)
		}
	case model.RemoteRef:
		rctx, cancel := r.remoteCtx(ctx)
		defer cancel()
		if err := r.remote.UpdateListingStatus(rctx, ref.ID(), status); err != nil {
			return fmt.Errorf("set status %s: %w: %w", id, ErrRemoteMutation, err)
		}
	default:
		return fmt.Errorf("set status %s: unknown ref %T", id, ref)
	}

	r.logger.Info("listing status changed", "id", id, "status", status)
	return nil
}

// RecentLocations returns recently used listing locations, newest first.
func (r *Repository) RecentLocations(ctx context.Context) ([]string, error) {
	return r.local.RecentLocations(ctx)
}
