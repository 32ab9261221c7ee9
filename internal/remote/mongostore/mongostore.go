// Package mongostore implements remote.Store on MongoDB.
//
// Collections:
//   - listings: one document per listing, _id is a hex ObjectID string
//   - users:    _id is the user id, favorites is an array of listing ids
//   - messages: chat messages, indexed by (channel_id, timestamp)
//
// Live chat updates come from a remote.Notifier. The default is a change
// stream on the messages collection, which requires a replica set; use
// redisbus.Bus against a standalone server.
package mongostore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/roach88/propsync/internal/model"
	"github.com/roach88/propsync/internal/remote"
)

// Collection names.
const (
	ListingsCollection = "listings"
	UsersCollection    = "users"
	MessagesCollection = "messages"
)

// Store is a MongoDB-backed remote.Store.
type Store struct {
	client   *mongo.Client
	listings *mongo.Collection
	users    *mongo.Collection
	messages *mongo.Collection
	notifier remote.Notifier
}

var _ remote.Store = (*Store)(nil)

// Option configures a Store.
type Option func(*Store)

// WithNotifier replaces the default change-stream notifier.
func WithNotifier(n remote.Notifier) Option {
	return func(s *Store) {
		s.notifier = n
	}
}

// Connect dials uri, verifies the connection and ensures indexes.
func Connect(ctx context.Context, uri, database string, opts ...Option) (*Store, error) {
	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("mongo connect: %w", err)
	}

	if err := client.Ping(connectCtx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongo ping: %w", err)
	}

	s := New(client, database, opts...)
	if err := s.EnsureIndexes(connectCtx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}

	slog.Info("connected to mongodb", "database", database)
	return s, nil
}

// New wraps an already connected client.
func New(client *mongo.Client, database string, opts ...Option) *Store {
	db := client.Database(database)
	s := &Store{
		client:   client,
		listings: db.Collection(ListingsCollection),
		users:    db.Collection(UsersCollection),
		messages: db.Collection(MessagesCollection),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.notifier == nil {
		s.notifier = &ChangeStreamNotifier{Messages: s.messages}
	}
	return s
}

// EnsureIndexes creates the indexes the queries rely on. Idempotent.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	_, err := s.messages.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "channel_id", Value: 1}, {Key: "timestamp", Value: 1}},
	})
	if err != nil {
		return fmt.Errorf("ensure messages index: %w", err)
	}

	_, err = s.listings.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "created_at", Value: -1}},
	})
	if err != nil {
		return fmt.Errorf("ensure listings index: %w", err)
	}
	return nil
}

// Close disconnects the client.
func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

func (s *Store) ListListings(ctx context.Context) ([]model.Listing, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: 1}})
	cursor, err := s.listings.Find(ctx, bson.D{}, opts)
	if err != nil {
		return nil, fmt.Errorf("list listings: %w", err)
	}
	defer cursor.Close(ctx)

	listings := []model.Listing{}
	if err := cursor.All(ctx, &listings); err != nil {
		return nil, fmt.Errorf("decode listings: %w", err)
	}
	return listings, nil
}

func (s *Store) GetListing(ctx context.Context, id string) (model.Listing, error) {
	var l model.Listing
	err := s.listings.FindOne(ctx, bson.D{{Key: "_id", Value: id}}).Decode(&l)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return model.Listing{}, model.ErrNotFound
	}
	if err != nil {
		return model.Listing{}, fmt.Errorf("get listing %s: %w", id, err)
	}
	return l, nil
}

func (s *Store) AddListing(ctx context.Context, l model.Listing) (model.Listing, error) {
	l.ID = primitive.NewObjectID().Hex()
	if l.Images == nil {
		l.Images = []string{}
	}
	if _, err := s.listings.InsertOne(ctx, l); err != nil {
		return model.Listing{}, fmt.Errorf("add listing: %w", err)
	}
	return l, nil
}

func (s *Store) UpdateListingStatus(ctx context.Context, id string, status model.Status) error {
	res, err := s.listings.UpdateOne(ctx,
		bson.D{{Key: "_id", Value: id}},
		bson.D{{Key: "$set", Value: bson.D{{Key: "status", Value: status}}}},
	)
	if err != nil {
		return fmt.Errorf("update listing %s: %w", id, err)
	}
	if res.MatchedCount == 0 {
		return model.ErrNotFound
	}
	return nil
}

func (s *Store) DeleteListing(ctx context.Context, id string) error {
	res, err := s.listings.DeleteOne(ctx, bson.D{{Key: "_id", Value: id}})
	if err != nil {
		return fmt.Errorf("delete listing %s: %w", id, err)
	}
	if res.DeletedCount == 0 {
		return model.ErrNotFound
	}
	return nil
}

type userDoc struct {
	Favorites []string `bson:"favorites"`
}

func (s *Store) GetFavorites(ctx context.Context, userID string) ([]string, error) {
	var doc userDoc
	err := s.users.FindOne(ctx, bson.D{{Key: "_id", Value: userID}}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return []string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get favorites %s: %w", userID, err)
	}
	return model.NormalizeFavorites(doc.Favorites), nil
}

func (s *Store) MergeFavorites(ctx context.Context, userID string, ids []string) error {
	_, err := s.users.UpdateOne(ctx,
		bson.D{{Key: "_id", Value: userID}},
		bson.D{{Key: "$set", Value: bson.D{{Key: "favorites", Value: model.NormalizeFavorites(ids)}}}},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("merge favorites %s: %w", userID, err)
	}
	return nil
}

func (s *Store) AppendMessage(ctx context.Context, m model.Message) (model.Message, error) {
	m.ID = primitive.NewObjectID().Hex()
	if _, err := s.messages.InsertOne(ctx, m); err != nil {
		return model.Message{}, fmt.Errorf("append message: %w", err)
	}

	// The message is stored; a missed notification only delays live readers.
	if err := s.notifier.Publish(ctx, m.ChannelID); err != nil {
		slog.Warn("publish channel change failed", "channel", m.ChannelID, "error", err)
	}
	return m, nil
}

func (s *Store) ListMessages(ctx context.Context, channelID string) ([]model.Message, error) {
	opts := options.Find().SetSort(bson.D{{Key: "timestamp", Value: 1}, {Key: "_id", Value: 1}})
	cursor, err := s.messages.Find(ctx, bson.D{{Key: "channel_id", Value: channelID}}, opts)
	if err != nil {
		return nil, fmt.Errorf("list messages %s: %w", channelID, err)
	}
	defer cursor.Close(ctx)

	msgs := []model.Message{}
	if err := cursor.All(ctx, &msgs); err != nil {
		return nil, fmt.Errorf("decode messages %s: %w", channelID, err)
	}
	return msgs, nil
}

func (s *Store) WatchChannel(ctx context.Context, channelID string) (<-chan struct{}, error) {
	return s.notifier.Subscribe(ctx, channelID)
}
