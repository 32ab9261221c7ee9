package mongostore

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/propsync/internal/model"
)

// connectTestStore connects to PROPSYNC_TEST_MONGO_URI or skips the test.
// Each test gets its own database, dropped on cleanup.
func connectTestStore(t *testing.T) *Store {
	t.Helper()
	uri := os.Getenv("PROPSYNC_TEST_MONGO_URI")
	if uri == "" {
		t.Skip("PROPSYNC_TEST_MONGO_URI not set")
	}

	ctx := context.Background()
	dbName := fmt.Sprintf("propsync_test_%d", time.Now().UnixNano())
	s, err := Connect(ctx, uri, dbName)
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = s.client.Database(dbName).Drop(context.Background())
		_ = s.Close(context.Background())
	})
	return s
}

func TestStore_ListingLifecycle(t *testing.T) {
	s := connectTestStore(t)
	ctx := context.Background()

	older, err := s.AddListing(ctx, model.Listing{Title: "old", CreatedAt: 100, Status: model.StatusActive})
	require.NoError(t, err)
	newer, err := s.AddListing(ctx, model.Listing{Title: "new", CreatedAt: 200, Status: model.StatusActive})
	require.NoError(t, err)

	all, err := s.ListListings(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, newer.ID, all[0].ID)
	assert.Equal(t, older.ID, all[1].ID)

	require.NoError(t, s.UpdateListingStatus(ctx, older.ID, model.StatusRented))
	got, err := s.GetListing(ctx, older.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusRented, got.Status)
	assert.Equal(t, "old", got.Title)

	require.NoError(t, s.DeleteListing(ctx, older.ID))
	assert.True(t, errors.Is(s.DeleteListing(ctx, older.ID), model.ErrNotFound))
	_, err = s.GetListing(ctx, older.ID)
	assert.True(t, errors.Is(err, model.ErrNotFound))
}

func TestStore_Favorites(t *testing.T) {
	s := connectTestStore(t)
	ctx := context.Background()

	ids, err := s.GetFavorites(ctx, "fresh")
	require.NoError(t, err)
	assert.Empty(t, ids)

	require.NoError(t, s.MergeFavorites(ctx, "u1", []string{"L2", "L1"}))
	ids, err = s.GetFavorites(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, []string{"L1", "L2"}, ids)
}

func TestStore_MessagesOrdered(t *testing.T) {
	s := connectTestStore(t)
	ctx := context.Background()

	for _, ts := range []int64{3, 1, 2} {
		_, err := s.AppendMessage(ctx, model.Message{ChannelID: "c", Text: "m", Timestamp: ts})
		require.NoError(t, err)
	}

	msgs, err := s.ListMessages(ctx, "c")
	require.NoError(t, err)
	require.Len(t, msgs, 3)
	assert.Equal(t, int64(1), msgs[0].Timestamp)
	assert.Equal(t, int64(3), msgs[2].Timestamp)
}
