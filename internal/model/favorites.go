package model

import "sort"

// NormalizeFavorites returns ids sorted and de-duplicated.
// Empty ids are dropped. The result is never nil.
func NormalizeFavorites(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// ToggleFavorite flips membership of id in set and returns a new normalized set.
// The input slice is not modified.
func ToggleFavorite(set []string, id string) []string {
	next := make([]string, 0, len(set)+1)
	found := false
	for _, v := range set {
		if v == id {
			found = true
			continue
		}
		next = append(next, v)
	}
	if !found {
		next = append(next, id)
	}
	return NormalizeFavorites(next)
}

// ContainsFavorite reports whether id is in set.
func ContainsFavorite(set []string, id string) bool {
	for _, v := range set {
		if v == id {
			return true
		}
	}
	return false
}
