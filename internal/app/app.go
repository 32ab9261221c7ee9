// Package app assembles the cache, remote store and services from a Config.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/roach88/propsync/internal/chat"
	"github.com/roach88/propsync/internal/clock"
	"github.com/roach88/propsync/internal/config"
	"github.com/roach88/propsync/internal/favorite"
	"github.com/roach88/propsync/internal/ids"
	"github.com/roach88/propsync/internal/listing"
	"github.com/roach88/propsync/internal/remote"
	"github.com/roach88/propsync/internal/remote/memstore"
	"github.com/roach88/propsync/internal/remote/mongostore"
	"github.com/roach88/propsync/internal/remote/redisbus"
	"github.com/roach88/propsync/internal/store"
)

// App owns every long-lived dependency of a propsync process.
type App struct {
	Config    config.Config
	Logger    *slog.Logger
	Cache     *store.Store
	Remote    remote.Store
	Listings  *listing.Repository
	Favorites *favorite.Tracker
	Chat      *chat.Service

	closers []func(context.Context) error
}

type options struct {
	remote remote.Store
	clock  clock.Clock
	ids    ids.Generator
}

// Option overrides a dependency that would otherwise come from the Config.
type Option func(*options)

// WithRemote uses rem instead of the configured remote driver.
// The caller keeps ownership of rem.
func WithRemote(rem remote.Store) Option {
	return func(o *options) { o.remote = rem }
}

// WithClock sets the clock for listing and message timestamps.
func WithClock(c clock.Clock) Option {
	return func(o *options) { o.clock = c }
}

// WithIDGenerator sets the generator for local listing ids.
func WithIDGenerator(g ids.Generator) Option {
	return func(o *options) { o.ids = g }
}

// Open opens the local cache, connects the remote store and builds the
// services. Close releases everything Open acquired.
func Open(ctx context.Context, cfg config.Config, logger *slog.Logger, opts ...Option) (*App, error) {
	o := options{clock: clock.System{}, ids: ids.UUIDv7Generator{}}
	for _, opt := range opts {
		opt(&o)
	}
	if logger == nil {
		logger = slog.Default()
	}

	a := &App{Config: cfg, Logger: logger}

	cache, err := store.Open(cfg.Cache.Path)
	if err != nil {
		return nil, fmt.Errorf("open cache: %w", err)
	}
	a.Cache = cache
	a.closers = append(a.closers, func(context.Context) error { return cache.Close() })

	rem := o.remote
	if rem == nil {
		rem, err = a.openRemote(ctx)
		if err != nil {
			a.Close(ctx)
			return nil, err
		}
	}
	a.Remote = rem

	timeout := cfg.Remote.Timeout
	a.Listings = listing.New(cache, rem,
		listing.WithClock(o.clock),
		listing.WithIDGenerator(o.ids),
		listing.WithRemoteTimeout(timeout),
		listing.WithRecentLocations(cfg.Cache.RecentLocations),
		listing.WithLogger(logger.With("component", "listings")),
	)
	a.Favorites = favorite.New(cache, rem,
		favorite.WithRemoteTimeout(timeout),
		favorite.WithLogger(logger.With("component", "favorites")),
	)
	a.Chat = chat.New(rem,
		chat.WithClock(o.clock),
		chat.WithRemoteTimeout(timeout),
		chat.WithLogger(logger.With("component", "chat")),
	)

	logger.Debug("app ready",
		"cache", cfg.Cache.Path,
		"remote", cfg.Remote.Driver,
		"notifier", cfg.Chat.Notifier,
	)
	return a, nil
}

func (a *App) openRemote(ctx context.Context) (remote.Store, error) {
	cfg := a.Config
	switch cfg.Remote.Driver {
	case config.DriverNone:
		return remote.Unavailable{}, nil

	case config.DriverMemory:
		if cfg.Chat.Notifier != config.NotifierNone {
			a.Logger.Warn("chat notifier ignored by the memory driver", "notifier", cfg.Chat.Notifier)
		}
		return memstore.New(), nil

	case config.DriverMongo:
		var opts []mongostore.Option
		switch cfg.Chat.Notifier {
		case config.NotifierRedis:
			bus, err := redisbus.Dial(ctx, redisbus.Options{
				Addr:     cfg.Chat.RedisAddr,
				Password: cfg.Chat.RedisPassword,
				DB:       cfg.Chat.RedisDB,
				Prefix:   cfg.Chat.RedisPrefix,
			})
			if err != nil {
				return nil, fmt.Errorf("open chat notifier: %w", err)
			}
			a.closers = append(a.closers, func(context.Context) error { return bus.Close() })
			opts = append(opts, mongostore.WithNotifier(bus))
		case config.NotifierNone:
			opts = append(opts, mongostore.WithNotifier(remote.Silent{}))
		}

		ms, err := mongostore.Connect(ctx, cfg.Remote.MongoURI, cfg.Remote.Database, opts...)
		if err != nil {
			// The cache still works; run local-only rather than refusing to start.
			a.Logger.Warn("remote store unreachable, running local-only", "error", err)
			return remote.Unavailable{}, nil
		}
		a.closers = append(a.closers, ms.Close)
		return ms, nil

	default:
		return nil, fmt.Errorf("%w: unknown remote driver %q", config.ErrInvalid, cfg.Remote.Driver)
	}
}

// Close releases resources in reverse order of acquisition.
func (a *App) Close(ctx context.Context) error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
