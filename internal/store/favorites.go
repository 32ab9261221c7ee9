package store

import (
	"context"
	"fmt"

	"github.com/roach88/propsync/internal/model"
)

const favoritesKeyPrefix = "favorites:"

// FavoritesKey returns the cache key holding userID's favorite ids.
func FavoritesKey(userID string) string {
	return favoritesKeyPrefix + userID
}

// Favorites returns userID's locally stored favorite ids, sorted.
// A user with no entry has an empty set.
func (s *Store) Favorites(ctx context.Context, userID string) ([]string, error) {
	var ids []string
	if _, err := s.getJSON(ctx, FavoritesKey(userID), &ids); err != nil {
		return nil, fmt.Errorf("favorites: %w", err)
	}
	return model.NormalizeFavorites(ids), nil
}

// SetFavorites overwrites userID's local favorite set.
func (s *Store) SetFavorites(ctx context.Context, userID string, ids []string) error {
	if err := s.putJSON(ctx, FavoritesKey(userID), model.NormalizeFavorites(ids)); err != nil {
		return fmt.Errorf("set favorites: %w", err)
	}
	return nil
}

// UpdateFavorites computes and stores a new favorite set for userID from the
// current one in a single transaction, and returns the stored set.
func (s *Store) UpdateFavorites(ctx context.Context, userID string, fn func(cur []string) []string) ([]string, error) {
	next, err := update(ctx, s, FavoritesKey(userID), func(cur []string, _ bool) ([]string, error) {
		return model.NormalizeFavorites(fn(model.NormalizeFavorites(cur))), nil
	})
	if err != nil {
		return nil, fmt.Errorf("update favorites: %w", err)
	}
	return next, nil
}
