package remote

import (
	"context"

	"github.com/roach88/propsync/internal/model"
)

// Unavailable is a Store that is never reachable. Every operation fails
// with ErrUnavailable, which puts the repository in local-only mode.
type Unavailable struct{}

var _ Store = Unavailable{}

func (Unavailable) ListListings(context.Context) ([]model.Listing, error) {
	return nil, ErrUnavailable
}

func (Unavailable) GetListing(context.Context, string) (model.Listing, error) {
	return model.Listing{}, ErrUnavailable
}

func (Unavailable) AddListing(context.Context, model.Listing) (model.Listing, error) {
	return model.Listing{}, ErrUnavailable
}

func (Unavailable) UpdateListingStatus(context.Context, string, model.Status) error {
	return ErrUnavailable
}

func (Unavailable) DeleteListing(context.Context, string) error {
	return ErrUnavailable
}

func (Unavailable) GetFavorites(context.Context, string) ([]string, error) {
	return nil, ErrUnavailable
}

func (Unavailable) MergeFavorites(context.Context, string, []string) error {
	return ErrUnavailable
}

func (Unavailable) AppendMessage(context.Context, model.Message) (model.Message, error) {
	return model.Message{}, ErrUnavailable
}

func (Unavailable) ListMessages(context.Context, string) ([]model.Message, error) {
	return nil, ErrUnavailable
}

func (Unavailable) WatchChannel(context.Context, string) (<-chan struct{}, error) {
	return nil, ErrUnavailable
}

func (Unavailable) Close(context.Context) error { return nil }

// Silent is a Notifier that carries no signals. Publish succeeds and
// Subscribe fails, so live readers fall back to the last listed state.
type Silent struct{}

var _ Notifier = Silent{}

func (Silent) Publish(context.Context, string) error { return nil }

func (Silent) Subscribe(context.Context, string) (<-chan struct{}, error) {
	return nil, ErrUnavailable
}
