package harness

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/sebdah/goldie/v2"
)

// Snapshot is the golden-file form of a run.
type Snapshot struct {
	Scenario string       `json:"scenario"`
	Pass     bool         `json:"pass"`
	Trace    []TraceEvent `json:"trace"`
}

// MarshalSnapshot renders a run as indented JSON with a trailing newline.
func MarshalSnapshot(s *Scenario, res *Result) ([]byte, error) {
	out, err := json.MarshalIndent(Snapshot{Scenario: s.Name, Pass: res.Pass, Trace: res.Trace}, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(out, '\n'), nil
}

// RunWithGolden runs a scenario in a temp dir, fails the test on unmet
// expectations, and compares the trace against
// testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
func RunWithGolden(t *testing.T, s *Scenario) *Result {
	t.Helper()

	res, err := Run(context.Background(), s, t.TempDir())
	if err != nil {
		t.Fatalf("run scenario %s: %v", s.Name, err)
	}
	for _, e := range res.Errors {
		t.Errorf("%s: %s", s.Name, e)
	}

	data, err := MarshalSnapshot(s, res)
	if err != nil {
		t.Fatalf("marshal snapshot: %v", err)
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, s.Name, data)
	return res
}
