// Package memstore is an in-process remote.Store.
//
// It keeps every collection in memory behind one mutex and notifies channel
// watchers directly. SetFailure makes every call fail, which lets tests
// simulate an unreachable remote without a network.
package memstore

import (
	"context"
	"sort"
	"sync"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/roach88/propsync/internal/model"
	"github.com/roach88/propsync/internal/remote"
)

// Store is a thread-safe in-memory document store.
type Store struct {
	mu        sync.Mutex
	fail      error
	calls     map[string]int
	listings  map[string]model.Listing
	favorites map[string][]string
	messages  map[string][]model.Message
	watchers  map[string]map[chan struct{}]struct{}
}

var _ remote.Store = (*Store)(nil)

// New returns an empty store.
func New() *Store {
	return &Store{
		calls:     make(map[string]int),
		listings:  make(map[string]model.Listing),
		favorites: make(map[string][]string),
		messages:  make(map[string][]model.Message),
		watchers:  make(map[string]map[chan struct{}]struct{}),
	}
}

// SetFailure makes every subsequent call return err. Pass nil to recover.
// Open watch feeds are not affected.
func (s *Store) SetFailure(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fail = err
}

// Calls returns how many times the named operation was invoked, including
// failed calls.
func (s *Store) Calls(op string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[op]
}

// enter records a call and returns the injected failure, if any.
// Caller must hold s.mu.
func (s *Store) enter(op string) error {
	s.calls[op]++
	return s.fail
}

func (s *Store) ListListings(ctx context.Context) ([]model.Listing, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("ListListings"); err != nil {
		return nil, err
	}

	out := make([]model.Listing, 0, len(s.listings))
	for _, l := range s.listings {
		out = append(out, l)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt != out[j].CreatedAt {
			return out[i].CreatedAt > out[j].CreatedAt
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *Store) GetListing(ctx context.Context, id string) (model.Listing, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("GetListing"); err != nil {
		return model.Listing{}, err
	}

	l, ok := s.listings[id]
	if !ok {
		return model.Listing{}, model.ErrNotFound
	}
	return l, nil
}

func (s *Store) AddListing(ctx context.Context, l model.Listing) (model.Listing, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("AddListing"); err != nil {
		return model.Listing{}, err
	}

	l.ID = primitive.NewObjectID().Hex()
	s.listings[l.ID] = l
	return l, nil
}

func (s *Store) UpdateListingStatus(ctx context.Context, id string, status model.Status) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("UpdateListingStatus"); err != nil {
		return err
	}

	l, ok := s.listings[id]
	if !ok {
		return model.ErrNotFound
	}
	l.Status = status
	s.listings[id] = l
	return nil
}

func (s *Store) DeleteListing(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("DeleteListing"); err != nil {
		return err
	}

	if _, ok := s.listings[id]; !ok {
		return model.ErrNotFound
	}
	delete(s.listings, id)
	return nil
}

func (s *Store) GetFavorites(ctx context.Context, userID string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("GetFavorites"); err != nil {
		return nil, err
	}
	return model.NormalizeFavorites(s.favorites[userID]), nil
}

func (s *Store) MergeFavorites(ctx context.Context, userID string, ids []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("MergeFavorites"); err != nil {
		return err
	}
	s.favorites[userID] = model.NormalizeFavorites(ids)
	return nil
}

func (s *Store) AppendMessage(ctx context.Context, m model.Message) (model.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("AppendMessage"); err != nil {
		return model.Message{}, err
	}

	m.ID = primitive.NewObjectID().Hex()
	s.messages[m.ChannelID] = append(s.messages[m.ChannelID], m)
	for feed := range s.watchers[m.ChannelID] {
		remote.Signal(feed)
	}
	return m, nil
}

func (s *Store) ListMessages(ctx context.Context, channelID string) ([]model.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("ListMessages"); err != nil {
		return nil, err
	}

	out := make([]model.Message, len(s.messages[channelID]))
	copy(out, s.messages[channelID])
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp < out[j].Timestamp
	})
	return out, nil
}

func (s *Store) WatchChannel(ctx context.Context, channelID string) (<-chan struct{}, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("WatchChannel"); err != nil {
		return nil, err
	}

	feed := make(chan struct{}, 1)
	if s.watchers[channelID] == nil {
		s.watchers[channelID] = make(map[chan struct{}]struct{})
	}
	s.watchers[channelID][feed] = struct{}{}

	go func() {
		<-ctx.Done()
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.watchers[channelID], feed)
		if len(s.watchers[channelID]) == 0 {
			delete(s.watchers, channelID)
		}
		close(feed)
	}()

	return feed, nil
}

// Watchers returns the number of open feeds on channelID.
func (s *Store) Watchers(channelID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.watchers[channelID])
}

// Close is a no-op; the store lives as long as the process.
func (s *Store) Close(ctx context.Context) error {
	return nil
}
