package chat

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/propsync/internal/model"
)

const waitFor = 2 * time.Second

// next waits for the next update, or fails the test.
func next(t *testing.T, sub *Subscription) []model.Message {
	t.Helper()
	select {
	case msgs, ok := <-sub.Updates():
		require.True(t, ok, "updates closed")
		return msgs
	case <-time.After(waitFor):
		t.Fatal("timed out waiting for update")
		return nil
	}
}

func texts(msgs []model.Message) []string {
	out := make([]string, len(msgs))
	for i, m := range msgs {
		out[i] = m.Text
	}
	return out
}

func TestSubscribe_DeliversHistoryThenAppends(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	_, err := svc.Send(ctx, "L5", seller.ID, buyer, "one")
	require.NoError(t, err)

	sub := svc.Subscribe(ctx, "L5", buyer.ID, seller.ID)
	defer sub.Close()

	assert.Equal(t, "L5|u1|u2", sub.ChannelID())
	assert.Equal(t, []string{"one"}, texts(next(t, sub)))
	assert.Equal(t, StateLive, sub.State())

	_, err = svc.Send(ctx, "L5", seller.ID, buyer, "two")
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		select {
		case msgs := <-sub.Updates():
			return assert.ObjectsAreEqual([]string{"one", "two"}, texts(msgs))
		default:
			return false
		}
	}, waitFor, 10*time.Millisecond)
}

func TestSubscribe_ReopenDeliversFullHistory(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	for _, text := range []string{"a", "b", "c"} {
		_, err := svc.Send(ctx, "L5", seller.ID, buyer, text)
		require.NoError(t, err)
	}

	for i := 0; i < 3; i++ {
		sub := svc.Subscribe(ctx, "L5", seller.ID, buyer.ID)
		assert.Equal(t, []string{"a", "b", "c"}, texts(next(t, sub)), "open #%d", i)
		sub.Close()
	}
}

func TestSubscribe_CloseReleasesWatch(t *testing.T) {
	svc, rem := newService(t)
	ctx := context.Background()

	sub := svc.Subscribe(ctx, "L5", seller.ID, buyer.ID)
	next(t, sub)
	assert.Equal(t, 1, rem.Watchers(sub.ChannelID()))

	sub.Close()
	sub.Close()

	assert.Equal(t, StateClosed, sub.State())
	_, ok := <-sub.Updates()
	assert.False(t, ok)
	require.Eventually(t, func() bool {
		return rem.Watchers(sub.ChannelID()) == 0
	}, waitFor, 10*time.Millisecond)
}

func TestSubscribe_ParentContextEndsSubscription(t *testing.T) {
	svc, _ := newService(t)
	ctx, cancel := context.WithCancel(context.Background())

	sub := svc.Subscribe(ctx, "L5", seller.ID, buyer.ID)
	next(t, sub)
	cancel()

	select {
	case <-sub.Done():
	case <-time.After(waitFor):
		t.Fatal("subscription did not stop")
	}
	assert.Equal(t, StateClosed, sub.State())
}

func TestSubscribe_RemoteFailureStaysLiveWithEmptyList(t *testing.T) {
	svc, rem := newService(t)
	rem.SetFailure(errOffline)

	sub := svc.Subscribe(context.Background(), "L5", seller.ID, buyer.ID)
	defer sub.Close()

	msgs := next(t, sub)
	assert.NotNil(t, msgs)
	assert.Empty(t, msgs)
	assert.Equal(t, StateLive, sub.State())
}

func TestWatch_ClosesWhenCallbackFails(t *testing.T) {
	svc, rem := newService(t)
	ctx := context.Background()

	_, err := svc.Send(ctx, "L5", seller.ID, buyer, "hello")
	require.NoError(t, err)

	stop := errors.New("stop")
	var got [][]string
	err = svc.Watch(ctx, "L5", seller.ID, buyer.ID, func(msgs []model.Message) error {
		got = append(got, texts(msgs))
		return stop
	})
	assert.ErrorIs(t, err, stop)
	assert.Equal(t, [][]string{{"hello"}}, got)

	require.Eventually(t, func() bool {
		return rem.Watchers(ChannelID(seller.ID, buyer.ID, "L5")) == 0
	}, waitFor, 10*time.Millisecond)
}

func TestWatch_ReturnsNilWhenContextEnds(t *testing.T) {
	svc, _ := newService(t)
	ctx, cancel := context.WithCancel(context.Background())

	err := svc.Watch(ctx, "L5", seller.ID, buyer.ID, func(msgs []model.Message) error {
		cancel()
		return nil
	})
	assert.NoError(t, err)
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "closed", StateClosed.String())
	assert.Equal(t, "subscribing", StateSubscribing.String())
	assert.Equal(t, "live", StateLive.String())
}
