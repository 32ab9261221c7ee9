// Package favorite tracks each user's set of favorite listing ids.
//
// The local cache is written first and is always authoritative for the
// device; the remote copy is a best-effort mirror refreshed on every toggle
// and read back by Fetch.
package favorite

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/roach88/propsync/internal/model"
	"github.com/roach88/propsync/internal/remote"
)

// ErrEmptyListingID is returned when Toggle is called without a listing id.
var ErrEmptyListingID = errors.New("listing id is empty")

// LocalStore is the slice of the local cache the tracker needs.
// Implemented by *store.Store.
type LocalStore interface {
	Favorites(ctx context.Context, userID string) ([]string, error)
	SetFavorites(ctx context.Context, userID string, ids []string) error
	UpdateFavorites(ctx context.Context, userID string, fn func(cur []string) []string) ([]string, error)
}

// Tracker toggles and fetches favorites.
//
// Thread-safety: safe for concurrent use. Operations for the same user are
// serialized end to end, local and remote write included.
type Tracker struct {
	local   LocalStore
	remote  remote.FavoriteStore
	timeout time.Duration
	logger  *slog.Logger

	mu    sync.Mutex
	users map[string]*sync.Mutex
}

// Option configures a Tracker.
type Option func(*Tracker)

// WithRemoteTimeout bounds every remote call.
func WithRemoteTimeout(d time.Duration) Option {
	return func(t *Tracker) { t.timeout = d }
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(t *Tracker) { t.logger = l }
}

// New creates a Tracker.
func New(local LocalStore, rem remote.FavoriteStore, opts ...Option) *Tracker {
	t := &Tracker{
		local:  local,
		remote: rem,
		logger: slog.Default(),
		users:  make(map[string]*sync.Mutex),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

func (t *Tracker) lock(userID string) func() {
	t.mu.Lock()
	m, ok := t.users[userID]
	if !ok {
		m = &sync.Mutex{}
		t.users[userID] = m
	}
	t.mu.Unlock()

	m.Lock()
	return m.Unlock
}

func (t *Tracker) remoteCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	if t.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, t.timeout)
}

// Toggle flips listingID in userID's favorite set and returns the new set.
//
// The local write is transactional and must succeed. The remote mirror write
// that follows is best-effort: its failure is logged and not returned.
func (t *Tracker) Toggle(ctx context.Context, userID, listingID string) ([]string, error) {
	if listingID == "" {
		return nil, fmt.Errorf("toggle favorite: %w", ErrEmptyListingID)
	}

	unlock := t.lock(userID)
	defer unlock()

	next, err := t.local.UpdateFavorites(ctx, userID, func(cur []string) []string {
		return model.ToggleFavorite(cur, listingID)
	})
	if err != nil {
		return nil, fmt.Errorf("toggle favorite: %w", err)
	}

	rctx, cancel := t.remoteCtx(ctx)
	defer cancel()
	if err := t.remote.MergeFavorites(rctx, userID, next); err != nil {
		t.logger.Warn("remote favorites write failed, kept locally",
			"user", userID,
			"listing", listingID,
			"error", err,
		)
	}

	t.logger.Debug("favorite toggled",
		"user", userID,
		"listing", listingID,
		"favorite", model.ContainsFavorite(next, listingID),
	)
	return next, nil
}

// Fetch returns userID's favorites. The remote copy wins when reachable and
// replaces the local one; otherwise the local copy is returned.
func (t *Tracker) Fetch(ctx context.Context, userID string) ([]string, error) {
	unlock := t.lock(userID)
	defer unlock()

	rctx, cancel := t.remoteCtx(ctx)
	ids, err := t.remote.GetFavorites(rctx, userID)
	cancel()
	if err != nil {
		t.logger.Warn("remote favorites unavailable, using local copy", "user", userID, "error", err)
		local, lerr := t.local.Favorites(ctx, userID)
		if lerr != nil {
			return nil, fmt.Errorf("fetch favorites: %w", lerr)
		}
		return local, nil
	}

	ids = model.NormalizeFavorites(ids)
	if err := t.local.SetFavorites(ctx, userID, ids); err != nil {
		t.logger.Error("cache remote favorites failed", "user", userID, "error", err)
	}
	return ids, nil
}

// IsFavorite reports whether listingID is in userID's local favorite set.
func (t *Tracker) IsFavorite(ctx context.Context, userID, listingID string) (bool, error) {
	ids, err := t.local.Favorites(ctx, userID)
	if err != nil {
		return false, fmt.Errorf("is favorite: %w", err)
	}
	return model.ContainsFavorite(ids, listingID), nil
}
