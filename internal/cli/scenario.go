package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/propsync/internal/harness"
)

type scenarioOutcome struct {
	Name   string   `json:"name"`
	Pass   bool     `json:"pass"`
	Steps  int      `json:"steps"`
	Errors []string `json:"errors,omitempty"`
}

type scenarioReport struct {
	Scenarios []scenarioOutcome `json:"scenarios"`
	Passed    int               `json:"passed"`
	Failed    int               `json:"failed"`
}

func (r scenarioReport) RenderText(w io.Writer) error {
	for _, s := range r.Scenarios {
		status := "PASS"
		if !s.Pass {
			status = "FAIL"
		}
		if _, err := fmt.Fprintf(w, "%s %s (%d steps)\n", status, s.Name, s.Steps); err != nil {
			return err
		}
		for _, e := range s.Errors {
			if _, err := fmt.Fprintf(w, "  %s\n", e); err != nil {
				return err
			}
		}
	}
	_, err := fmt.Fprintf(w, "%d passed, %d failed\n", r.Passed, r.Failed)
	return err
}

// NewScenarioCommand creates the scenario command.
//
// Scenarios run against a throwaway cache and an in-memory remote store, so
// they never touch the configured stores.
func NewScenarioCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "scenario <file.yaml>...",
		Short: "Run scripted listing, favorite and chat scenarios",
		Long: `Run one or more YAML scenarios against the listing, favorite and chat
services. Each run uses a fresh temporary cache and an in-memory remote store
that the scenario can take offline with remote_down.`,
		Example: `  propsync scenario testdata/scenarios/offline_listing.yaml
  propsync scenario --format json scenarios/*.yaml`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := newFormatter(rootOpts, cmd)
			ctx := commandContext(cmd)

			var report scenarioReport
			for _, path := range args {
				s, err := harness.LoadScenario(path)
				if err != nil {
					_ = f.Error(ErrCodeInput, err.Error(), nil)
					return WrapExitError(ExitCommandError, "invalid scenario", err)
				}
				f.VerboseLog("running scenario %s (%d steps)", s.Name, len(s.Steps))

				res, err := runScenario(ctx, s)
				if err != nil {
					return fail(f, "failed to run scenario "+s.Name, err)
				}

				report.Scenarios = append(report.Scenarios, scenarioOutcome{
					Name:   s.Name,
					Pass:   res.Pass,
					Steps:  len(res.Trace),
					Errors: res.Errors,
				})
				if res.Pass {
					report.Passed++
				} else {
					report.Failed++
				}
			}

			if err := f.Success(report); err != nil {
				return err
			}
			if report.Failed > 0 {
				return NewExitError(ExitFailure, fmt.Sprintf("%d scenario(s) failed", report.Failed))
			}
			return nil
		},
	}
}

func runScenario(ctx context.Context, s *harness.Scenario) (*harness.Result, error) {
	dir, err := os.MkdirTemp("", "propsync-scenario-*")
	if err != nil {
		return nil, fmt.Errorf("create scenario dir: %w", err)
	}
	defer os.RemoveAll(dir)

	return harness.Run(ctx, s, dir)
}
