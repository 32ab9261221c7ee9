package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/roach88/propsync/internal/app"
	"github.com/roach88/propsync/internal/config"
	"github.com/roach88/propsync/internal/model"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose    bool
	Format     string // "json" | "text"
	ConfigPath string
	UserID     string
	UserName   string

	// AppOptions are passed to app.Open (for testing).
	AppOptions []app.Option
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

var errNoUser = errors.New("--user-id is required")

// NewRootCommand creates the root command for the propsync CLI.
func NewRootCommand() *cobra.Command {
	return NewRootCommandWithOptions(&RootOptions{})
}

// NewRootCommandWithOptions creates the root command around opts, letting
// tests inject app options.
func NewRootCommandWithOptions(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "propsync",
		Short: "propsync - property listings that keep working offline",
		Long: `Manage property listings, favorites and listing chats.

Listings are written to the remote store when it is reachable and to the
local cache when it is not; "listings sync" pushes cached listings later.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			return nil
		},
	}

	// Global flags
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVarP(&opts.ConfigPath, "config", "c", "", "path to YAML config file")
	cmd.PersistentFlags().StringVar(&opts.UserID, "user-id", "", "acting user id")
	cmd.PersistentFlags().StringVar(&opts.UserName, "user-name", "", "acting user display name")

	cmd.AddCommand(NewListingsCommand(opts))
	cmd.AddCommand(NewFavoritesCommand(opts))
	cmd.AddCommand(NewChatCommand(opts))
	cmd.AddCommand(NewServeCommand(opts))
	cmd.AddCommand(NewScenarioCommand(opts))

	return cmd
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}

func newFormatter(opts *RootOptions, cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(), // Verbose logs go to stderr to avoid corrupting JSON
		Verbose:   opts.Verbose,
	}
}

func (opts *RootOptions) user() (model.User, error) {
	if opts.UserID == "" {
		return model.User{}, errNoUser
	}
	return model.User{ID: opts.UserID, Name: opts.UserName}, nil
}

func newLogger(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

// openApp loads configuration and opens the application. The caller must
// call the returned close function.
func openApp(opts *RootOptions, cmd *cobra.Command, f *OutputFormatter) (*app.App, func(), error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		_ = f.Error(ErrCodeConfig, err.Error(), nil)
		return nil, nil, WrapExitError(ExitCommandError, "failed to load config", err)
	}

	level := cfg.Log.SlogLevel()
	if opts.Verbose {
		level = slog.LevelDebug
	}
	logger := newLogger(cmd.ErrOrStderr(), level)
	slog.SetDefault(logger)

	ctx := commandContext(cmd)
	a, err := app.Open(ctx, cfg, logger, opts.AppOptions...)
	if err != nil {
		_ = f.Error(ErrCodeCache, err.Error(), nil)
		return nil, nil, WrapExitError(ExitCommandError, "failed to open app", err)
	}
	f.VerboseLog("cache %s, remote %s", cfg.Cache.Path, cfg.Remote.Driver)

	return a, func() {
		if err := a.Close(context.Background()); err != nil {
			logger.Error("error closing app", "error", err)
		}
	}, nil
}
