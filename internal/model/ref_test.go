package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseRef_RoutesByPrefix(t *testing.T) {
	tests := []struct {
		id    string
		local bool
	}{
		{"local_0192f5c0-aaaa", true},
		{"local_", true},
		{"65f1c0ffee0123456789abcd", false},
		{"Local_abc", false},
		{"", false},
		{"xlocal_abc", false},
	}

	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			ref := ParseRef(tt.id)
			assert.Equal(t, tt.id, ref.ID())
			_, isLocal := ref.(LocalRef)
			assert.Equal(t, tt.local, isLocal)
			assert.Equal(t, tt.local, IsLocalID(tt.id))
		})
	}
}

func TestParseRef_Pure(t *testing.T) {
	// Same input always routes the same way regardless of call order.
	ids := []string{"local_a", "remote1", "local_b", "remote1", "local_a"}
	first := make(map[string]bool)
	for _, id := range ids {
		_, local := ParseRef(id).(LocalRef)
		if prev, ok := first[id]; ok {
			assert.Equal(t, prev, local, "routing changed for %s", id)
		}
		first[id] = local
	}
}

func TestListing_IsLocal(t *testing.T) {
	assert.True(t, Listing{ID: "local_1"}.IsLocal())
	assert.False(t, Listing{ID: "abc"}.IsLocal())
}
