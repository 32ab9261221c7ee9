// Package config loads propsync settings.
//
// Settings are layered: built-in defaults, then an optional YAML file, then
// PROPSYNC_* environment variables (a .env file is read into the environment
// first). The result is checked against an embedded CUE schema.
package config

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"time"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

//go:embed schema.cue
var schemaSource string

// ErrInvalid is returned when a configuration fails validation.
var ErrInvalid = errors.New("invalid config")

// Remote drivers.
const (
	DriverMongo  = "mongo"
	DriverMemory = "memory"
	DriverNone   = "none"
)

// Chat notifiers.
const (
	NotifierChangeStream = "changestream"
	NotifierRedis        = "redis"
	NotifierNone         = "none"
)

// Config is the complete propsync configuration.
type Config struct {
	Cache  CacheConfig  `yaml:"cache" json:"cache"`
	Remote RemoteConfig `yaml:"remote" json:"remote"`
	Chat   ChatConfig   `yaml:"chat" json:"chat"`
	Server ServerConfig `yaml:"server" json:"server"`
	Log    LogConfig    `yaml:"log" json:"log"`
}

// CacheConfig configures the on-device SQLite cache.
type CacheConfig struct {
	Path            string `yaml:"path" json:"path"`
	RecentLocations int    `yaml:"recent_locations" json:"recent_locations"`
}

// RemoteConfig selects and configures the remote document store.
type RemoteConfig struct {
	Driver   string        `yaml:"driver" json:"driver"`
	MongoURI string        `yaml:"mongo_uri" json:"mongo_uri"`
	Database string        `yaml:"database" json:"database"`
	Timeout  time.Duration `yaml:"timeout" json:"timeout"`
}

// ChatConfig selects how chat change signals reach other processes.
type ChatConfig struct {
	Notifier      string `yaml:"notifier" json:"notifier"`
	RedisAddr     string `yaml:"redis_addr" json:"redis_addr"`
	RedisPassword string `yaml:"redis_password" json:"redis_password"`
	RedisDB       int    `yaml:"redis_db" json:"redis_db"`
	RedisPrefix   string `yaml:"redis_prefix" json:"redis_prefix"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Addr string `yaml:"addr" json:"addr"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level string `yaml:"level" json:"level"`
}

// SlogLevel converts Level to a slog.Level, defaulting to Info.
func (l LogConfig) SlogLevel() slog.Level {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(l.Level)); err != nil {
		return slog.LevelInfo
	}
	return lvl
}

// Default returns the built-in configuration: a local cache file, no remote
// store and no cross-process chat notifier. Listings created without a remote
// stay in the cache until a sync against a configured remote.
func Default() Config {
	return Config{
		Cache: CacheConfig{
			Path:            "propsync.db",
			RecentLocations: 5,
		},
		Remote: RemoteConfig{
			Driver:   DriverNone,
			Database: "propsync",
			Timeout:  5 * time.Second,
		},
		Chat: ChatConfig{
			Notifier:    NotifierNone,
			RedisPrefix: "propsync:chat:",
		},
		Server: ServerConfig{Addr: ":8080"},
		Log:    LogConfig{Level: "info"},
	}
}

// Load builds a Config from defaults, the YAML file at path (skipped when
// path is empty) and the environment. envFiles are loaded with godotenv
// before the environment is read; with none given, ./.env is tried. Missing
// env files are ignored. Existing environment variables are never replaced
// by env file values.
func Load(path string, envFiles ...string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("failed to read config file: %w", err)
		}
		decoder := yaml.NewDecoder(bytes.NewReader(data))
		decoder.KnownFields(true)
		if err := decoder.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
			return Config{}, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	}

	if err := loadEnvFiles(envFiles...); err != nil {
		return Config{}, err
	}
	if err := applyEnv(&cfg, os.LookupEnv); err != nil {
		return Config{}, err
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func loadEnvFiles(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("failed to load env file %s: %w", f, err)
		}
	}
	return nil
}

// Environment variables read by Load.
const (
	EnvCachePath     = "PROPSYNC_CACHE_PATH"
	EnvRemoteDriver  = "PROPSYNC_REMOTE_DRIVER"
	EnvMongoURI      = "PROPSYNC_MONGO_URI"
	EnvMongoDatabase = "PROPSYNC_MONGO_DATABASE"
	EnvRemoteTimeout = "PROPSYNC_REMOTE_TIMEOUT"
	EnvChatNotifier  = "PROPSYNC_CHAT_NOTIFIER"
	EnvRedisAddr     = "PROPSYNC_REDIS_ADDR"
	EnvRedisPassword = "PROPSYNC_REDIS_PASSWORD"
	EnvRedisDB       = "PROPSYNC_REDIS_DB"
	EnvServerAddr    = "PROPSYNC_SERVER_ADDR"
	EnvLogLevel      = "PROPSYNC_LOG_LEVEL"
)

func applyEnv(cfg *Config, lookup func(string) (string, bool)) error {
	strs := map[string]*string{
		EnvCachePath:     &cfg.Cache.Path,
		EnvRemoteDriver:  &cfg.Remote.Driver,
		EnvMongoURI:      &cfg.Remote.MongoURI,
		EnvMongoDatabase: &cfg.Remote.Database,
		EnvChatNotifier:  &cfg.Chat.Notifier,
		EnvRedisAddr:     &cfg.Chat.RedisAddr,
		EnvRedisPassword: &cfg.Chat.RedisPassword,
		EnvServerAddr:    &cfg.Server.Addr,
		EnvLogLevel:      &cfg.Log.Level,
	}
	for key, dst := range strs {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}

	if v, ok := lookup(EnvRemoteTimeout); ok && v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvRemoteTimeout, err)
		}
		cfg.Remote.Timeout = d
	}
	if v, ok := lookup(EnvRedisDB); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvRedisDB, err)
		}
		cfg.Chat.RedisDB = n
	}
	return nil
}

// Validate checks c against the embedded schema, then checks the settings
// that depend on each other. Errors wrap ErrInvalid.
func (c Config) Validate() error {
	ctx := cuecontext.New()
	schema := ctx.CompileString(schemaSource, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return fmt.Errorf("compile config schema: %w", err)
	}

	def := schema.LookupPath(cue.ParsePath("#Config"))
	v := def.Unify(ctx.Encode(c))
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalid, cueerrors.Details(err, nil))
	}

	if c.Remote.Driver == DriverMongo && c.Remote.MongoURI == "" {
		return fmt.Errorf("%w: remote.mongo_uri is required for the mongo driver", ErrInvalid)
	}
	if c.Remote.Driver == DriverMongo && c.Remote.Database == "" {
		return fmt.Errorf("%w: remote.database is required for the mongo driver", ErrInvalid)
	}
	if c.Chat.Notifier == NotifierChangeStream && c.Remote.Driver != DriverMongo {
		return fmt.Errorf("%w: chat.notifier changestream needs the mongo driver", ErrInvalid)
	}
	if c.Chat.Notifier == NotifierRedis && c.Chat.RedisAddr == "" {
		return fmt.Errorf("%w: chat.redis_addr is required for the redis notifier", ErrInvalid)
	}
	return nil
}
