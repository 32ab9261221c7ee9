package listing

import (
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/roach88/propsync/internal/ids"
	"github.com/roach88/propsync/internal/model"
	"github.com/roach88/propsync/internal/remote/memstore"
	"github.com/roach88/propsync/internal/store"
	"github.com/roach88/propsync/internal/testutil"
)

var owner = model.User{ID: "u1", Name: "Ayesha"}

type fixture struct {
	repo   *Repository
	local  *store.Store
	remote *memstore.Store
	clock  *testutil.DeterministicClock
}

// newFixture wires a repository over a temp SQLite cache and an in-memory remote.
func newFixture(t *testing.T, localIDs ...string) *fixture {
	t.Helper()

	local, err := store.Open(filepath.Join(t.TempDir(), "cache.db"))
	if err != nil {
		t.Fatalf("store.Open() failed: %v", err)
	}
	t.Cleanup(func() { local.Close() })

	rem := memstore.New()
	clk := testutil.NewDeterministicClock(1_700_000_000_000)

	repo := New(local, rem,
		WithClock(clk),
		WithIDGenerator(ids.NewFixedGenerator(localIDs...)),
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	)

	return &fixture{repo: repo, local: local, remote: rem, clock: clk}
}

func draft(title string) model.ListingDraft {
	return model.ListingDraft{
		Title:         title,
		Description:   "Near the park",
		Price:         250000,
		Location:      "Bahria Town",
		Category:      model.CategoryHouseSale,
		Area:          1800,
		AreaUnit:      model.AreaSquareFeet,
		Images:        []string{"https://img.example/" + title + ".jpg"},
		ContactNumber: "+92 300 0000000",
		Config:        &model.Configuration{Rooms: 3, Bathrooms: 2},
	}
}

func listingIDs(ls []model.Listing) []string {
	out := make([]string, len(ls))
	for i, l := range ls {
		out[i] = l.ID
	}
	return out
}
