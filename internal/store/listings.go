package store

import (
	"context"
	"fmt"

	"github.com/roach88/propsync/internal/model"
)

// KeyUnsyncedListings holds the array of listings that exist only locally.
const KeyUnsyncedListings = "listings:unsynced"

// LocalListings returns every locally stored listing in insertion order.
// Returns an empty slice (not nil) if none exist.
func (s *Store) LocalListings(ctx context.Context) ([]model.Listing, error) {
	var listings []model.Listing
	if _, err := s.getJSON(ctx, KeyUnsyncedListings, &listings); err != nil {
		return nil, fmt.Errorf("local listings: %w", err)
	}
	if listings == nil {
		listings = []model.Listing{}
	}
	return listings, nil
}

// LocalListing returns the local listing with the given id.
// Returns model.ErrNotFound if absent.
func (s *Store) LocalListing(ctx context.Context, id string) (model.Listing, error) {
	listings, err := s.LocalListings(ctx)
	if err != nil {
		return model.Listing{}, err
	}
	for _, l := range listings {
		if l.ID == id {
			return l, nil
		}
	}
	return model.Listing{}, fmt.Errorf("local listing %s: %w", id, model.ErrNotFound)
}

// PutLocalListing stores l, replacing any local listing with the same id.
func (s *Store) PutLocalListing(ctx context.Context, l model.Listing) error {
	_, err := update(ctx, s, KeyUnsyncedListings, func(cur []model.Listing, _ bool) ([]model.Listing, error) {
		for i := range cur {
			if cur[i].ID == l.ID {
				cur[i] = l
				return cur, nil
			}
		}
		return append(cur, l), nil
	})
	if err != nil {
		return fmt.Errorf("put local listing: %w", err)
	}
	return nil
}

// DeleteLocalListing removes the local listing with the given id.
// Returns model.ErrNotFound if absent.
func (s *Store) DeleteLocalListing(ctx context.Context, id string) error {
	_, err := update(ctx, s, KeyUnsyncedListings, func(cur []model.Listing, _ bool) ([]model.Listing, error) {
		next := make([]model.Listing, 0, len(cur))
		for _, l := range cur {
			if l.ID != id {
				next = append(next, l)
			}
		}
		if len(next) == len(cur) {
			return nil, model.ErrNotFound
		}
		return next, nil
	})
	if err != nil {
		return fmt.Errorf("delete local listing %s: %w", id, err)
	}
	return nil
}

// UpdateLocalListing applies fn to the local listing with the given id in
// place and returns the updated record. fn must not change the id.
// Returns model.ErrNotFound if absent.
func (s *Store) UpdateLocalListing(ctx context.Context, id string, fn func(*model.Listing)) (model.Listing, error) {
	var updated model.Listing
	_, err := update(ctx, s, KeyUnsyncedListings, func(cur []model.Listing, _ bool) ([]model.Listing, error) {
		for i := range cur {
			if cur[i].ID == id {
				fn(&cur[i])
				cur[i].ID = id
				updated = cur[i]
				return cur, nil
			}
		}
		return nil, model.ErrNotFound
	})
	if err != nil {
		return model.Listing{}, fmt.Errorf("update local listing %s: %w", id, err)
	}
	return updated, nil
}
