package store

import (
	"context"
	"fmt"
	"strings"
)

// KeyRecentLocations holds recently used location strings, newest first.
const KeyRecentLocations = "locations:recent"

// RecentLocations returns recently used locations, newest first.
func (s *Store) RecentLocations(ctx context.Context) ([]string, error) {
	var locs []string
	if _, err := s.getJSON(ctx, KeyRecentLocations, &locs); err != nil {
		return nil, fmt.Errorf("recent locations: %w", err)
	}
	if locs == nil {
		locs = []string{}
	}
	return locs, nil
}

// PushRecentLocation moves loc to the front of the recent list, keeping at
// most limit entries. Matching is case-insensitive; blank locations are ignored.
func (s *Store) PushRecentLocation(ctx context.Context, loc string, limit int) error {
	loc = strings.TrimSpace(loc)
	if loc == "" || limit <= 0 {
		return nil
	}

	_, err := update(ctx, s, KeyRecentLocations, func(cur []string, _ bool) ([]string, error) {
		next := make([]string, 0, limit)
		next = append(next, loc)
		for _, l := range cur {
			if len(next) == limit {
				break
			}
			if !strings.EqualFold(l, loc) {
				next = append(next, l)
			}
		}
		return next, nil
	})
	if err != nil {
		return fmt.Errorf("push recent location: %w", err)
	}
	return nil
}
