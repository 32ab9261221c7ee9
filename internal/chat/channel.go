// Package chat implements per-listing conversations between two users.
package chat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"golang.org/x/text/unicode/norm"

	"github.com/roach88/propsync/internal/clock"
	"github.com/roach88/propsync/internal/model"
	"github.com/roach88/propsync/internal/remote"
)

// ChannelSeparator joins the parts of a channel id.
const ChannelSeparator = "|"

// partEscaper keeps the separator out of the joined parts.
var partEscaper = strings.NewReplacer("%", "%25", ChannelSeparator, "%7C")

// ErrMissingParticipant is returned when a listing id or either participant
// id is empty.
var ErrMissingParticipant = errors.New("listing and both participants are required")

// ChannelID derives the channel shared by two participants about a listing.
// The three ids are sorted lexicographically and joined, so the result does
// not depend on which participant is passed first. Any '%' or separator
// inside an id is percent-escaped, so distinct triples never share a channel.
func ChannelID(a, b, listingID string) string {
	parts := []string{a, b, listingID}
	sort.Strings(parts)
	for i, p := range parts {
		parts[i] = partEscaper.Replace(p)
	}
	return strings.Join(parts, ChannelSeparator)
}

// Service sends and subscribes to chat messages.
//
// Thread-safety: safe for concurrent use.
type Service struct {
	remote  remote.MessageStore
	clock   clock.Clock
	timeout time.Duration
	logger  *slog.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithClock sets the clock used for message timestamps.
func WithClock(c clock.Clock) Option {
	return func(s *Service) { s.clock = c }
}

// WithRemoteTimeout bounds each append and list call.
func WithRemoteTimeout(d time.Duration) Option {
	return func(s *Service) { s.timeout = d }
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// New creates a Service backed by the given message store.
func New(rem remote.MessageStore, opts ...Option) *Service {
	s := &Service{
		remote: rem,
		clock:  clock.System{},
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) remoteCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, s.timeout)
}

// Send appends a message from sender to recipientID about listingID.
//
// Text is NFC-normalized and trimmed. Empty text is rejected with
// model.ErrEmptyMessage before the store is touched. Store failures are
// returned to the caller.
func (s *Service) Send(ctx context.Context, listingID, recipientID string, sender model.User, text string) (model.Message, error) {
	if listingID == "" || recipientID == "" || sender.ID == "" {
		return model.Message{}, fmt.Errorf("send message: %w", ErrMissingParticipant)
	}

	text = strings.TrimSpace(norm.NFC.String(text))
	if text == "" {
		return model.Message{}, fmt.Errorf("send message: %w", model.ErrEmptyMessage)
	}

	m := model.Message{
		ChannelID:  ChannelID(sender.ID, recipientID, listingID),
		SenderID:   sender.ID,
		SenderName: sender.Name,
		Text:       text,
		Timestamp:  s.clock.NowMillis(),
	}

	rctx, cancel := s.remoteCtx(ctx)
	defer cancel()
	stored, err := s.remote.AppendMessage(rctx, m)
	if err != nil {
		return model.Message{}, fmt.Errorf("send message: %w", err)
	}

	s.logger.Debug("message sent", "channel", stored.ChannelID, "id", stored.ID, "sender", sender.ID)
	return stored, nil
}

// History returns the channel's messages in timestamp order.
func (s *Service) History(ctx context.Context, listingID, recipientID, senderID string) ([]model.Message, error) {
	rctx, cancel := s.remoteCtx(ctx)
	defer cancel()
	msgs, err := s.remote.ListMessages(rctx, ChannelID(senderID, recipientID, listingID))
	if err != nil {
		return nil, fmt.Errorf("chat history: %w", err)
	}
	return msgs, nil
}
