// Package remote defines the contract of the hosted document store.
//
// The store holds authoritative listings, one favorites document per user
// and an append-only message collection per chat channel. Implementations:
//   - mongostore: MongoDB
//   - memstore: in-process, used in tests and for single-process demos
//   - Unavailable: always fails, used when no remote is configured
//
// Callers treat every error from a remote store as potentially transient.
package remote

import (
	"context"
	"errors"

	"github.com/roach88/propsync/internal/model"
)

// ErrUnavailable is returned when the remote store cannot be reached.
var ErrUnavailable = errors.New("remote store unavailable")

// ListingStore is the `listings` collection.
type ListingStore interface {
	// ListListings returns all listings ordered by CreatedAt descending.
	ListListings(ctx context.Context) ([]model.Listing, error)

	// GetListing returns one listing. Returns model.ErrNotFound if absent.
	GetListing(ctx context.Context, id string) (model.Listing, error)

	// AddListing stores l under a new server-assigned id and returns the
	// stored record. l.ID is ignored.
	AddListing(ctx context.Context, l model.Listing) (model.Listing, error)

	// UpdateListingStatus sets the status field only.
	// Returns model.ErrNotFound if absent.
	UpdateListingStatus(ctx context.Context, id string, status model.Status) error

	// DeleteListing removes a listing. Returns model.ErrNotFound if absent.
	DeleteListing(ctx context.Context, id string) error
}

// FavoriteStore is the `users/{userId}` favorites field.
type FavoriteStore interface {
	// GetFavorites returns the user's favorite ids. A user without a
	// document has an empty set, not an error.
	GetFavorites(ctx context.Context, userID string) ([]string, error)

	// MergeFavorites writes the favorites field, creating the user
	// document if needed and leaving other fields untouched.
	MergeFavorites(ctx context.Context, userID string, ids []string) error
}

// MessageStore is the `chats/{channelId}/messages` sub-collection.
type MessageStore interface {
	// AppendMessage stores m under a new server-assigned id.
	AppendMessage(ctx context.Context, m model.Message) (model.Message, error)

	// ListMessages returns the channel's messages ordered by Timestamp ascending.
	ListMessages(ctx context.Context, channelID string) ([]model.Message, error)

	// WatchChannel returns a feed that receives a signal after messages are
	// appended to the channel. Signals may be coalesced. The feed is closed
	// when ctx is done or the underlying watch fails.
	WatchChannel(ctx context.Context, channelID string) (<-chan struct{}, error)
}

// Store is a complete remote document store.
type Store interface {
	ListingStore
	FavoriteStore
	MessageStore
	Close(ctx context.Context) error
}

// Notifier fans out "channel changed" signals between processes.
// Implemented by mongostore.ChangeStreamNotifier and redisbus.Bus.
type Notifier interface {
	Publish(ctx context.Context, channelID string) error
	Subscribe(ctx context.Context, channelID string) (<-chan struct{}, error)
}

// Signal performs a non-blocking send on a buffered feed. A pending signal
// already covers the new change, so nothing is lost when the send is skipped.
func Signal(feed chan<- struct{}) {
	select {
	case feed <- struct{}{}:
	default:
	}
}
