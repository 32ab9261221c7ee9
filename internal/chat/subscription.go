package chat

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/roach88/propsync/internal/model"
)

// State is the lifecycle state of a Subscription.
type State int32

const (
	StateClosed State = iota
	StateSubscribing
	StateLive
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateSubscribing:
		return "subscribing"
	case StateLive:
		return "live"
	default:
		return "unknown"
	}
}

// Subscription is a live view of one channel.
//
// Updates delivers the full ordered message list: first the complete history,
// then a fresh list after every change. Delivery coalesces, so a slow reader
// only ever sees the latest list. The channel is closed when the
// subscription ends.
type Subscription struct {
	channelID string
	updates   chan []model.Message
	state     atomic.Int32
	cancel    context.CancelFunc
	done      chan struct{}
	closeOnce sync.Once
}

// ChannelID returns the channel being watched.
func (sub *Subscription) ChannelID() string { return sub.channelID }

// Updates returns the message list feed.
func (sub *Subscription) Updates() <-chan []model.Message { return sub.updates }

// State returns the current lifecycle state.
func (sub *Subscription) State() State { return State(sub.state.Load()) }

// Done is closed once the subscription has fully shut down.
func (sub *Subscription) Done() <-chan struct{} { return sub.done }

// Close stops the subscription and waits for it to release the watch.
// Safe to call more than once.
func (sub *Subscription) Close() {
	sub.closeOnce.Do(sub.cancel)
	<-sub.done
}

func (sub *Subscription) setState(st State) { sub.state.Store(int32(st)) }

// deliver replaces any unread list with msgs.
// Only the subscription goroutine sends, so the loop settles quickly.
func (sub *Subscription) deliver(msgs []model.Message) {
	for {
		select {
		case sub.updates <- msgs:
			return
		default:
		}
		select {
		case <-sub.updates:
		default:
		}
	}
}

// Subscribe opens a live subscription to the channel between senderID and
// recipientID about listingID. It ends when Close is called or ctx is done.
//
// Watch and list failures are logged, not returned: the subscription still
// goes live, delivering an empty list if the history could not be read.
func (s *Service) Subscribe(ctx context.Context, listingID, recipientID, senderID string) *Subscription {
	ctx, cancel := context.WithCancel(ctx)
	sub := &Subscription{
		channelID: ChannelID(senderID, recipientID, listingID),
		updates:   make(chan []model.Message, 1),
		cancel:    cancel,
		done:      make(chan struct{}),
	}
	sub.setState(StateSubscribing)

	go s.run(ctx, sub)
	return sub
}

func (s *Service) run(ctx context.Context, sub *Subscription) {
	defer close(sub.done)
	defer close(sub.updates)
	defer sub.setState(StateClosed)

	logger := s.logger.With("channel", sub.channelID)

	// Watch before listing so an append between the two is not missed.
	feed, err := s.remote.WatchChannel(ctx, sub.channelID)
	if err != nil {
		logger.Warn("chat watch failed, updates paused", "error", err)
		feed = nil
	}

	msgs, err := s.list(ctx, sub.channelID)
	if err != nil {
		logger.Warn("chat history unavailable", "error", err)
		msgs = []model.Message{}
	}
	sub.setState(StateLive)
	sub.deliver(msgs)
	logger.Debug("chat subscription live", "messages", len(msgs))

	for {
		select {
		case <-ctx.Done():
			logger.Debug("chat subscription closed")
			return
		case _, ok := <-feed:
			if !ok {
				if ctx.Err() != nil {
					return
				}
				logger.Warn("chat watch ended, updates paused")
				feed = nil
				continue
			}
			msgs, err := s.list(ctx, sub.channelID)
			if err != nil {
				logger.Warn("chat refresh failed, keeping last list", "error", err)
				continue
			}
			sub.deliver(msgs)
		}
	}
}

func (s *Service) list(ctx context.Context, channelID string) ([]model.Message, error) {
	rctx, cancel := s.remoteCtx(ctx)
	defer cancel()
	msgs, err := s.remote.ListMessages(rctx, channelID)
	if err != nil {
		return nil, err
	}
	if msgs == nil {
		msgs = []model.Message{}
	}
	return msgs, nil
}

// Watch subscribes and calls fn with every update until ctx is done or fn
// returns an error. The subscription is always closed before Watch returns.
// Returns fn's error, or nil when ctx ends.
func (s *Service) Watch(ctx context.Context, listingID, recipientID, senderID string, fn func([]model.Message) error) error {
	sub := s.Subscribe(ctx, listingID, recipientID, senderID)
	defer sub.Close()

	for msgs := range sub.Updates() {
		if err := fn(msgs); err != nil {
			return err
		}
	}
	return nil
}
