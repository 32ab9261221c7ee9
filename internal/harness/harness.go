package harness

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"slices"
	"strings"

	"github.com/roach88/propsync/internal/chat"
	"github.com/roach88/propsync/internal/favorite"
	"github.com/roach88/propsync/internal/ids"
	"github.com/roach88/propsync/internal/listing"
	"github.com/roach88/propsync/internal/model"
	"github.com/roach88/propsync/internal/remote"
	"github.com/roach88/propsync/internal/remote/memstore"
	"github.com/roach88/propsync/internal/store"
	"github.com/roach88/propsync/internal/testutil"
)

// StartMillis is the clock reading every run starts from.
const StartMillis int64 = 1_700_000_000_000

// maxLocalIDs bounds how many listings a scenario can create offline.
const maxLocalIDs = 256

// Run executes a scenario with a fresh cache under dir and an empty
// in-memory remote store.
//
// Run returns an error only when the environment cannot be set up. Step
// failures and unmet expectations are reported in the Result.
func Run(ctx context.Context, s *Scenario, dir string) (*Result, error) {
	local, err := store.Open(filepath.Join(dir, "harness.db"))
	if err != nil {
		return nil, fmt.Errorf("open cache: %w", err)
	}
	defer local.Close()

	seq := make([]string, maxLocalIDs)
	for i := range seq {
		seq[i] = fmt.Sprintf("%04d", i+1)
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	clk := testutil.NewDeterministicClock(StartMillis)
	rem := memstore.New()

	r := &runner{
		scenario: s,
		remote:   rem,
		listings: listing.New(local, rem,
			listing.WithClock(clk),
			listing.WithIDGenerator(ids.NewFixedGenerator(seq...)),
			listing.WithLogger(logger),
		),
		favorites: favorite.New(local, rem, favorite.WithLogger(logger)),
		chat:      chat.New(rem, chat.WithClock(clk), chat.WithLogger(logger)),
		names:     make(map[string]string),
		display:   make(map[string]string),
	}

	res := &Result{Pass: true, Trace: make([]TraceEvent, 0, len(s.Steps))}
	for i, st := range s.Steps {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		r.step(ctx, res, i+1, st)
	}
	return res, nil
}

type runner struct {
	scenario  *Scenario
	remote    *memstore.Store
	listings  *listing.Repository
	favorites *favorite.Tracker
	chat      *chat.Service

	names   map[string]string // bound name -> listing id
	display map[string]string // remote listing id -> label
	unnamed int
}

func (r *runner) user(id string) model.User {
	name := r.scenario.Users[id]
	if name == "" {
		name = id
	}
	return model.User{ID: id, Name: name}
}

func (r *runner) resolve(v string) string {
	if name, ok := strings.CutPrefix(v, "$"); ok {
		return r.names[name]
	}
	return v
}

// label renders a listing id for the trace. Local ids are already
// deterministic; remote ids are replaced by the name they were bound to.
func (r *runner) label(id string) string {
	if model.IsLocalID(id) {
		return id
	}
	if l, ok := r.display[id]; ok {
		return l
	}
	r.unnamed++
	l := fmt.Sprintf("remote:#%d", r.unnamed)
	r.display[id] = l
	return l
}

func (r *runner) bind(name, id string) {
	if name == "" {
		return
	}
	r.names[name] = id
	if !model.IsLocalID(id) {
		r.display[id] = "remote:" + name
	}
}

func (r *runner) labels(ids []string) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = r.label(id)
	}
	return out
}

func (r *runner) step(ctx context.Context, res *Result, n int, st Step) {
	ev := TraceEvent{Step: n, Op: st.Op, Outcome: "ok"}
	var (
		err error
		got observed
	)

	switch st.Op {
	case OpRemoteDown:
		r.remote.SetFailure(remote.ErrUnavailable)
	case OpRemoteUp:
		r.remote.SetFailure(nil)

	case OpCreate:
		var draft model.ListingDraft
		if draft, err = decodeDraft(st.Draft); err != nil {
			break
		}
		var l model.Listing
		if l, err = r.listings.Create(ctx, draft, r.user(st.User)); err != nil {
			break
		}
		r.bind(st.As, l.ID)
		local := l.IsLocal()
		got.local = &local
		ev.Data = createdData{ID: r.label(l.ID), Local: local}

	case OpGet:
		var l model.Listing
		if l, err = r.listings.Get(ctx, r.resolve(st.Listing)); err != nil {
			break
		}
		got.status = string(l.Status)
		ev.Data = listingData{ID: r.label(l.ID), Title: l.Title, Status: string(l.Status)}

	case OpList:
		all := r.listings.ListAll(ctx)
		shown := make([]string, len(all))
		for i, l := range all {
			shown[i] = r.label(l.ID)
		}
		got.ids = shown
		ev.Data = shown

	case OpRemove:
		err = r.listings.Remove(ctx, r.resolve(st.Listing))

	case OpSetStatus:
		err = r.listings.SetStatus(ctx, r.resolve(st.Listing), model.Status(st.Status))

	case OpSync:
		var sr listing.SyncResult
		sr, err = r.listings.SyncPending(ctx)
		r.rebind(sr)
		synced := len(sr.Synced)
		got.synced, got.pending = &synced, &sr.Pending
		ev.Data = syncData{Synced: synced, Pending: sr.Pending}

	case OpToggle:
		var favs []string
		if favs, err = r.favorites.Toggle(ctx, st.User, r.resolve(st.Listing)); err != nil {
			break
		}
		got.favorites = r.labels(favs)
		ev.Data = got.favorites

	case OpFavorites:
		var favs []string
		if favs, err = r.favorites.Fetch(ctx, st.User); err != nil {
			break
		}
		got.favorites = r.labels(favs)
		ev.Data = got.favorites

	case OpSend:
		var m model.Message
		if m, err = r.chat.Send(ctx, r.resolve(st.Listing), st.Recipient, r.user(st.User), st.Text); err != nil {
			break
		}
		ev.Data = sentData{Channel: r.channelLabel(st), Text: m.Text}

	case OpHistory:
		var msgs []model.Message
		if msgs, err = r.chat.History(ctx, r.resolve(st.Listing), st.Recipient, st.User); err != nil {
			break
		}
		texts := make([]string, len(msgs))
		for i, m := range msgs {
			texts[i] = m.SenderName + ": " + m.Text
		}
		got.texts = texts
		ev.Data = texts
	}

	kind := errorKind(err)
	if kind != "" {
		ev.Outcome = "error: " + kind
	}
	res.Trace = append(res.Trace, ev)

	if st.Expect == nil {
		if err != nil {
			res.failf(n, "%s failed: %v", st.Op, err)
		}
		return
	}
	check(res, n, st.Expect, kind, got)
}

// rebind moves names bound to synced local ids onto their new remote ids.
func (r *runner) rebind(sr listing.SyncResult) {
	for name, id := range r.names {
		if remoteID, ok := sr.Synced[id]; ok {
			r.bind(name, remoteID)
		}
	}
}

// channelLabel renders a channel id with the listing part relabelled.
func (r *runner) channelLabel(st Step) string {
	return chat.ChannelID(st.User, st.Recipient, r.label(r.resolve(st.Listing)))
}

func decodeDraft(m map[string]any) (model.ListingDraft, error) {
	var d model.ListingDraft
	raw, err := json.Marshal(m)
	if err != nil {
		return d, fmt.Errorf("encode draft: %w", err)
	}
	if err := json.Unmarshal(raw, &d); err != nil {
		return d, fmt.Errorf("decode draft: %w", err)
	}
	return d, nil
}

// observed holds the step values an Expect can check.
type observed struct {
	local     *bool
	ids       []string
	favorites []string
	texts     []string
	status    string
	synced    *int
	pending   *int
}

func check(res *Result, n int, exp *Expect, kind string, got observed) {
	if exp.Error != kind {
		switch {
		case exp.Error == "":
			res.failf(n, "unexpected error %q", kind)
		case kind == "":
			res.failf(n, "expected error %q, step succeeded", exp.Error)
		default:
			res.failf(n, "expected error %q, got %q", exp.Error, kind)
		}
		return
	}

	if exp.Local != nil && (got.local == nil || *got.local != *exp.Local) {
		res.failf(n, "expected local=%t", *exp.Local)
	}
	if exp.Count != nil {
		if c := count(got); c != *exp.Count {
			res.failf(n, "expected count %d, got %d", *exp.Count, c)
		}
	}
	if exp.IDs != nil && !slices.Equal(exp.IDs, got.ids) {
		res.failf(n, "expected ids %v, got %v", exp.IDs, got.ids)
	}
	if exp.Favorites != nil && !slices.Equal(exp.Favorites, got.favorites) {
		res.failf(n, "expected favorites %v, got %v", exp.Favorites, got.favorites)
	}
	if exp.Texts != nil && !slices.Equal(exp.Texts, got.texts) {
		res.failf(n, "expected texts %v, got %v", exp.Texts, got.texts)
	}
	if exp.Status != "" && exp.Status != got.status {
		res.failf(n, "expected status %q, got %q", exp.Status, got.status)
	}
	if exp.Synced != nil && (got.synced == nil || *got.synced != *exp.Synced) {
		res.failf(n, "expected synced %d", *exp.Synced)
	}
	if exp.Pending != nil && (got.pending == nil || *got.pending != *exp.Pending) {
		res.failf(n, "expected pending %d", *exp.Pending)
	}
}

// count is the length of whichever collection the step produced.
func count(got observed) int {
	switch {
	case got.ids != nil:
		return len(got.ids)
	case got.favorites != nil:
		return len(got.favorites)
	default:
		return len(got.texts)
	}
}

func errorKind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, model.ErrInvalidListing):
		return "invalid_listing"
	case errors.Is(err, model.ErrInvalidStatus):
		return "invalid_status"
	case errors.Is(err, model.ErrEmptyMessage):
		return "empty_message"
	case errors.Is(err, favorite.ErrEmptyListingID):
		return "empty_listing_id"
	case errors.Is(err, chat.ErrMissingParticipant):
		return "missing_participant"
	case errors.Is(err, model.ErrNotFound):
		return "not_found"
	case errors.Is(err, listing.ErrRemoteMutation):
		return "remote_mutation"
	case errors.Is(err, remote.ErrUnavailable):
		return "unavailable"
	default:
		return "error"
	}
}
