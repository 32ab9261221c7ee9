package store

import (
	"path/filepath"
	"testing"

	"github.com/roach88/propsync/internal/model"
)

// createTestStore creates a new store in a temp directory for testing.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createTestListing creates a local listing with minimal required fields.
func createTestListing(id string, createdAt int64) model.Listing {
	return model.Listing{
		ID:        id,
		Title:     "Listing " + id,
		Price:     100,
		Location:  "Model Town",
		Category:  model.CategoryHouseSale,
		AreaUnit:  model.AreaSquareFeet,
		Images:    []string{},
		OwnerID:   "owner-1",
		OwnerName: "Owner",
		CreatedAt: createdAt,
		Status:    model.StatusActive,
	}
}
