package cli

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/propsync/internal/model"
)

// NewChatCommand creates the chat command group.
func NewChatCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Send and follow messages about a listing",
	}

	cmd.AddCommand(newChatSendCommand(rootOpts))
	cmd.AddCommand(newChatWatchCommand(rootOpts))

	return cmd
}

// transcript renders messages one per line.
type transcript []model.Message

func (t transcript) RenderText(w io.Writer) error {
	if len(t) == 0 {
		_, err := fmt.Fprintln(w, "No messages.")
		return err
	}
	for _, m := range t {
		name := m.SenderName
		if name == "" {
			name = m.SenderID
		}
		ts := time.UnixMilli(m.Timestamp).UTC().Format("2006-01-02 15:04:05")
		if _, err := fmt.Fprintf(w, "[%s] %s: %s\n", ts, name, m.Text); err != nil {
			return err
		}
	}
	return nil
}

func newChatSendCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "send <listing-id> <recipient-id> <text>...",
		Short:         "Send a message to another user about a listing",
		Args:          cobra.MinimumNArgs(3),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := newFormatter(rootOpts, cmd)
			sender, err := rootOpts.user()
			if err != nil {
				return fail(f, "failed to send message", err)
			}

			a, closeApp, err := openApp(rootOpts, cmd, f)
			if err != nil {
				return err
			}
			defer closeApp()

			text := strings.Join(args[2:], " ")
			m, err := a.Chat.Send(commandContext(cmd), args[0], args[1], sender, text)
			if err != nil {
				return fail(f, "failed to send message", err)
			}
			return f.Success(transcript{m})
		},
	}
}

// errWatchDone stops a watch after the requested number of updates.
var errWatchDone = errors.New("watch done")

// WatchOptions holds flags for the chat watch command.
type WatchOptions struct {
	*RootOptions
	Count int
}

func newChatWatchCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &WatchOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "watch <listing-id> <recipient-id>",
		Short: "Follow a conversation live",
		Long: `Print the full conversation, then print it again after every new
message until interrupted (or until --count updates have been shown).`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWatch(opts, args[0], args[1], cmd)
		},
	}

	cmd.Flags().IntVar(&opts.Count, "count", 0, "stop after this many updates (0 = until interrupted)")

	return cmd
}

func runWatch(opts *WatchOptions, listingID, recipientID string, cmd *cobra.Command) error {
	f := newFormatter(opts.RootOptions, cmd)
	user, err := opts.user()
	if err != nil {
		return fail(f, "failed to watch chat", err)
	}

	a, closeApp, err := openApp(opts.RootOptions, cmd, f)
	if err != nil {
		return err
	}
	defer closeApp()

	ctx, stop := signalContext(commandContext(cmd))
	defer stop()

	seen := 0
	err = a.Chat.Watch(ctx, listingID, recipientID, user.ID, func(msgs []model.Message) error {
		if seen > 0 && f.Format != "json" {
			fmt.Fprintln(f.Writer, "---")
		}
		if err := f.Success(transcript(msgs)); err != nil {
			return err
		}
		seen++
		if opts.Count > 0 && seen >= opts.Count {
			return errWatchDone
		}
		return nil
	})
	if err != nil && !errors.Is(err, errWatchDone) {
		return fail(f, "chat watch failed", err)
	}
	return nil
}
