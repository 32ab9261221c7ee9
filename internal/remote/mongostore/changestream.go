package mongostore

import (
	"context"
	"fmt"
	"log/slog"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/roach88/propsync/internal/remote"
)

// ChangeStreamNotifier turns inserts into the messages collection into
// channel signals. Publish is a no-op because the insert itself is the event.
type ChangeStreamNotifier struct {
	Messages *mongo.Collection
}

var _ remote.Notifier = (*ChangeStreamNotifier)(nil)

// Publish does nothing; inserts are observed by Subscribe directly.
func (n *ChangeStreamNotifier) Publish(ctx context.Context, channelID string) error {
	return nil
}

// Subscribe opens a change stream filtered to inserts on channelID.
func (n *ChangeStreamNotifier) Subscribe(ctx context.Context, channelID string) (<-chan struct{}, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.D{
			{Key: "operationType", Value: "insert"},
			{Key: "fullDocument.channel_id", Value: channelID},
		}}},
	}

	cs, err := n.Messages.Watch(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("watch channel %s: %w", channelID, err)
	}

	feed := make(chan struct{}, 1)
	go func() {
		defer close(feed)
		defer cs.Close(context.Background())

		for cs.Next(ctx) {
			remote.Signal(feed)
		}
		if err := cs.Err(); err != nil && ctx.Err() == nil {
			slog.Warn("change stream ended", "channel", channelID, "error", err)
		}
	}()

	return feed, nil
}
