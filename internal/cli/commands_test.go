package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/propsync/internal/app"
	"github.com/roach88/propsync/internal/ids"
	"github.com/roach88/propsync/internal/remote/memstore"
	"github.com/roach88/propsync/internal/testutil"
)

var errOffline = errors.New("network unreachable")

// cliEnv runs commands against one cache file and one set of app options,
// the way repeated invocations of the binary share a machine.
type cliEnv struct {
	configPath string
	appOpts    []app.Option
}

func newCLIEnv(t *testing.T, driver string, extra ...app.Option) *cliEnv {
	t.Helper()
	dir := t.TempDir()
	configPath := filepath.Join(dir, "propsync.yaml")
	content := "cache:\n  path: " + filepath.Join(dir, "cache.db") + "\n" +
		"remote:\n  driver: " + driver + "\n" +
		"log:\n  level: error\n"
	require.NoError(t, os.WriteFile(configPath, []byte(content), 0o600))

	opts := []app.Option{
		app.WithClock(testutil.NewDeterministicClock(1_700_000_000_000)),
		app.WithIDGenerator(ids.NewFixedGenerator("0001", "0002", "0003", "0004")),
	}
	return &cliEnv{configPath: configPath, appOpts: append(opts, extra...)}
}

func (e *cliEnv) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommandWithOptions(&RootOptions{AppOptions: e.appOpts})
	out := &bytes.Buffer{}
	errOut := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(errOut)
	cmd.SetArgs(append([]string{"--config", e.configPath}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func (e *cliEnv) mustRun(t *testing.T, args ...string) string {
	t.Helper()
	out, err := e.run(t, args...)
	require.NoError(t, err, out)
	return out
}

func (e *cliEnv) createListings(t *testing.T) {
	t.Helper()
	e.mustRun(t, "listings", "create", "--user-id", "u1", "--user-name", "Ayesha",
		"--title", "3 bed house", "--location", "DHA Phase 5", "--category", "house-sale",
		"--price", "250000", "--area", "10", "--unit", "sqm", "--rooms", "3")
	e.mustRun(t, "listings", "create", "--user-id", "u2", "--user-name", "Bilal",
		"--title", "Corner shop", "--location", "Saddar", "--category", "shop-rent",
		"--price", "900", "--area", "400", "--contact", "+92 300 1234567")
}

func golden(t *testing.T) *goldie.Goldie {
	return goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
}

func TestListings_OfflineWorkflow(t *testing.T) {
	env := newCLIEnv(t, "none")
	env.createListings(t)

	out := env.mustRun(t, "listings", "status", "local_0001", "sold")
	assert.Equal(t, "local_0001 is now sold\n", out)

	golden(t).Assert(t, "listings_list_offline", []byte(env.mustRun(t, "listings", "list")))
	golden(t).Assert(t, "listings_get_local", []byte(env.mustRun(t, "listings", "get", "local_0002")))

	out = env.mustRun(t, "listings", "locations")
	assert.Equal(t, "Saddar\nDHA Phase 5\n", out)
}

func TestListings_JSONOutput(t *testing.T) {
	env := newCLIEnv(t, "none")
	env.createListings(t)

	out := env.mustRun(t, "--format", "json", "listings", "list")

	var resp struct {
		Status string            `json:"status"`
		Data   []json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Len(t, resp.Data, 2)
}

func TestListings_DefaultDriverKeepsListings(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "propsync.yaml")
	content := "cache:\n  path: " + filepath.Join(dir, "cache.db") + "\n" +
		"log:\n  level: error\n"
	require.NoError(t, os.WriteFile(configPath, []byte(content), 0o600))

	env := &cliEnv{configPath: configPath}
	out := env.mustRun(t, "--format", "json", "listings", "create", "--user-id", "u1",
		"--title", "T", "--location", "Gulberg", "--category", "land-sale")

	var created struct {
		Data struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &created))
	assert.True(t, strings.HasPrefix(created.Data.ID, "local_"), "id %q", created.Data.ID)

	out = env.mustRun(t, "--format", "json", "listings", "list")
	var listed struct {
		Data []struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &listed))
	require.Len(t, listed.Data, 1)
	assert.Equal(t, created.Data.ID, listed.Data[0].ID)

	out = env.mustRun(t, "listings", "get", created.Data.ID)
	assert.Contains(t, out, "Gulberg")
}

func TestListings_SyncToRemote(t *testing.T) {
	rem := memstore.New()
	rem.SetFailure(errOffline)
	env := newCLIEnv(t, "none", app.WithRemote(rem))
	env.createListings(t)

	out, err := env.run(t, "listings", "sync")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "Error [E005]")

	assert.Equal(t, "2 pending\n", env.mustRun(t, "listings", "pending"))

	rem.SetFailure(nil)
	out = env.mustRun(t, "listings", "sync")
	assert.Contains(t, out, "synced local_0001 -> ")
	assert.Contains(t, out, "synced local_0002 -> ")
	assert.Contains(t, out, "2 synced, 0 pending\n")

	all, err := rem.ListListings(t.Context())
	require.NoError(t, err)
	assert.Len(t, all, 2)
	assert.Equal(t, "0 pending\n", env.mustRun(t, "listings", "pending"))
}

func TestListings_Remove(t *testing.T) {
	env := newCLIEnv(t, "none")
	env.createListings(t)

	assert.Equal(t, "Removed local_0001\n", env.mustRun(t, "listings", "remove", "local_0001"))

	out, err := env.run(t, "listings", "remove", "local_0001")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "Error [E004]")
}

func TestListings_InputErrors(t *testing.T) {
	env := newCLIEnv(t, "none")

	tests := []struct {
		name string
		args []string
	}{
		{"create without user", []string{"listings", "create", "--title", "x", "--location", "y", "--category", "land-sale"}},
		{"create bad category", []string{"listings", "create", "--user-id", "u1", "--title", "x", "--location", "y", "--category", "castle"}},
		{"create without title", []string{"listings", "create", "--user-id", "u1", "--location", "y", "--category", "land-sale"}},
		{"bad status", []string{"listings", "status", "local_0001", "haunted"}},
		{"toggle without user", []string{"favorites", "toggle", "L1"}},
		{"send empty text", []string{"chat", "send", "L5", "u2", "   ", "--user-id", "u1"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := env.run(t, tt.args...)
			require.Error(t, err)
			assert.Equal(t, ExitCommandError, GetExitCode(err))
			assert.Contains(t, out, "Error [E003]")
		})
	}
}

func TestInvalidFormat(t *testing.T) {
	env := newCLIEnv(t, "none")

	_, err := env.run(t, "--format", "xml", "listings", "list")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid format")
}

func TestInvalidConfig(t *testing.T) {
	env := newCLIEnv(t, "firebase")

	out, err := env.run(t, "listings", "list")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "Error [E002]")
}

func TestFavorites(t *testing.T) {
	rem := memstore.New()
	env := newCLIEnv(t, "none", app.WithRemote(rem))

	assert.Equal(t, "No favorites.\n", env.mustRun(t, "favorites", "fetch", "--user-id", "u1"))
	assert.Equal(t, "L1\n", env.mustRun(t, "favorites", "toggle", "L1", "--user-id", "u1"))
	assert.Equal(t, "L1\nL2\n", env.mustRun(t, "favorites", "toggle", "L2", "--user-id", "u1"))
	assert.Equal(t, "L2\n", env.mustRun(t, "favorites", "toggle", "L1", "--user-id", "u1"))

	// Offline, the cached copy is served.
	rem.SetFailure(errOffline)
	assert.Equal(t, "L2\n", env.mustRun(t, "favorites", "fetch", "--user-id", "u1"))

	assert.Equal(t, "L2 is a favorite\n", env.mustRun(t, "favorites", "check", "L2", "--user-id", "u1"))
	assert.Equal(t, "L1 is not a favorite\n", env.mustRun(t, "favorites", "check", "L1", "--user-id", "u1"))
}

func TestChat_SendAndWatch(t *testing.T) {
	rem := memstore.New()
	env := newCLIEnv(t, "none", app.WithRemote(rem))

	out := env.mustRun(t, "chat", "send", "L5", "u2", "is", "it", "available?",
		"--user-id", "u1", "--user-name", "Bilal")
	assert.Equal(t, "[2023-11-14 22:13:20] Bilal: is it available?\n", out)
	env.mustRun(t, "chat", "send", "L5", "u1", "yes, until Friday",
		"--user-id", "u2", "--user-name", "Sana")

	out = env.mustRun(t, "chat", "watch", "L5", "u2", "--user-id", "u1", "--count", "1")
	golden(t).Assert(t, "chat_watch", []byte(out))
	require.Eventually(t, func() bool {
		return rem.Watchers("L5|u1|u2") == 0
	}, 2*time.Second, 10*time.Millisecond)
}
