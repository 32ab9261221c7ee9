package remote

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/propsync/internal/model"
)

func TestUnavailable_EveryOperationFails(t *testing.T) {
	ctx := context.Background()
	var s Store = Unavailable{}

	_, err := s.ListListings(ctx)
	assert.True(t, errors.Is(err, ErrUnavailable))
	_, err = s.GetListing(ctx, "x")
	assert.True(t, errors.Is(err, ErrUnavailable))
	_, err = s.AddListing(ctx, model.Listing{})
	assert.True(t, errors.Is(err, ErrUnavailable))
	assert.True(t, errors.Is(s.UpdateListingStatus(ctx, "x", model.StatusSold), ErrUnavailable))
	assert.True(t, errors.Is(s.DeleteListing(ctx, "x"), ErrUnavailable))
	_, err = s.GetFavorites(ctx, "u")
	assert.True(t, errors.Is(err, ErrUnavailable))
	assert.True(t, errors.Is(s.MergeFavorites(ctx, "u", nil), ErrUnavailable))
	_, err = s.AppendMessage(ctx, model.Message{})
	assert.True(t, errors.Is(err, ErrUnavailable))
	_, err = s.ListMessages(ctx, "c")
	assert.True(t, errors.Is(err, ErrUnavailable))
	_, err = s.WatchChannel(ctx, "c")
	assert.True(t, errors.Is(err, ErrUnavailable))
	require.NoError(t, s.Close(ctx))
}

func TestSignal_Coalesces(t *testing.T) {
	feed := make(chan struct{}, 1)
	Signal(feed)
	Signal(feed) // must not block
	assert.Len(t, feed, 1)
}

func TestSilent(t *testing.T) {
	ctx := context.Background()
	var n Notifier = Silent{}

	require.NoError(t, n.Publish(ctx, "c"))
	feed, err := n.Subscribe(ctx, "c")
	assert.Nil(t, feed)
	assert.ErrorIs(t, err, ErrUnavailable)
}
