// Package redisbus fans out chat channel change signals over Redis pub/sub.
//
// Every process that appends a message publishes on the channel's topic;
// every open subscription listens on it. Payloads carry no data, readers
// re-query the message store on each signal.
package redisbus

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/go-redis/redis/v8"

	"github.com/roach88/propsync/internal/remote"
)

// DefaultPrefix namespaces topics on a shared Redis.
const DefaultPrefix = "propsync:chat:"

// Bus is a remote.Notifier backed by Redis pub/sub.
type Bus struct {
	client *redis.Client
	prefix string
}

var _ remote.Notifier = (*Bus)(nil)

// Options configures a Bus.
type Options struct {
	Addr     string
	Password string
	DB       int
	Prefix   string
}

// Dial connects to Redis and verifies the connection.
func Dial(ctx context.Context, opts Options) (*Bus, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping %s: %w", opts.Addr, err)
	}

	slog.Info("redis bus connected", "addr", opts.Addr)
	return New(client, opts.Prefix), nil
}

// New wraps an existing client. An empty prefix uses DefaultPrefix.
func New(client *redis.Client, prefix string) *Bus {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &Bus{client: client, prefix: prefix}
}

// Topic returns the pub/sub topic for channelID.
func (b *Bus) Topic(channelID string) string {
	return b.prefix + channelID
}

// Publish announces that channelID changed.
func (b *Bus) Publish(ctx context.Context, channelID string) error {
	if err := b.client.Publish(ctx, b.Topic(channelID), "changed").Err(); err != nil {
		return fmt.Errorf("publish %s: %w", channelID, err)
	}
	return nil
}

// Subscribe listens on channelID's topic until ctx is done.
// Returns after Redis has confirmed the subscription, so no publish issued
// after Subscribe returns can be missed.
func (b *Bus) Subscribe(ctx context.Context, channelID string) (<-chan struct{}, error) {
	ps := b.client.Subscribe(ctx, b.Topic(channelID))
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, fmt.Errorf("subscribe %s: %w", channelID, err)
	}

	msgs := ps.Channel()
	feed := make(chan struct{}, 1)
	go func() {
		defer close(feed)
		defer ps.Close()

		for {
			select {
			case <-ctx.Done():
				return
			case _, ok := <-msgs:
				if !ok {
					return
				}
				remote.Signal(feed)
			}
		}
	}()

	return feed, nil
}

// Close closes the underlying client.
func (b *Bus) Close() error {
	return b.client.Close()
}
