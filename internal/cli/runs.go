package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/flatc/internal/store"
)

// RunsOptions holds flags for the runs command.
type RunsOptions struct {
	*RootOptions
	Database string
	Unit     string // optional - specific unit only
}

// RunSummary describes one recorded run.
type RunSummary struct {
	ID      string `json:"id"`
	Seq     int64  `json:"seq"`
	Unit    string `json:"unit"`
	Status  string `json:"status"`
	Error   string `json:"error,omitempty"`
	Symbols int    `json:"symbols"`
	// Stable reports whether the run matches the first run of the same
	// input under the same scheme and compiler version.
	Stable bool `json:"stable"`
	// Baseline is the run it was compared with; empty for a first run.
	Baseline string `json:"baseline,omitempty"`
}

// RunsResult holds the overall runs output.
type RunsResult struct {
	Runs      []RunSummary `json:"runs"`
	TotalRuns int          `json:"total_runs"`
	AllStable bool         `json:"all_stable"`
}

// NewRunsCommand creates the runs command.
func NewRunsCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunsOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List recorded runs and verify determinism",
		Long: `List the runs recorded in the database and verify determinism.

Runs of the same input (same unit hash) under the same mangling scheme and
compiler version must produce the same outcome and the same flat-name
table. Each run is compared with the first such run.

Exit codes:
  0 - All runs are stable
  1 - A run differs from its baseline
  2 - Command error (database not found, etc.)

Examples:
  flatc runs --db ./flatc.db
  flatc runs --db ./flatc.db --unit shapes
  flatc runs --db ./flatc.db --format json`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRuns(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.Unit, "unit", "", "show runs of this unit only")

	return cmd
}

func runRuns(opts *RunsOptions, cmd *cobra.Command) error {
	ctx := context.Background()

	st, err := store.Open(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	runs, err := st.Runs(ctx)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to list runs", err)
	}

	result, err := verifyRuns(ctx, st, runs, opts.Unit)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to verify runs", err)
	}

	if opts.Format == "json" {
		return outputRunsJSON(cmd, result)
	}
	return outputRunsText(cmd, result, opts.Verbose)
}

type baselineKey struct {
	hash, scheme, version string
}

type baseline struct {
	run     store.Run
	symbols []store.Symbol
}

// verifyRuns compares every run with the first run of the same input.
// Runs of other units still serve as baselines, so filtering never
// changes a run's verdict.
func verifyRuns(ctx context.Context, st *store.Store, runs []store.Run, unit string) (RunsResult, error) {
	result := RunsResult{Runs: []RunSummary{}, AllStable: true}
	baselines := make(map[baselineKey]baseline)

	for _, run := range runs {
		symbols, err := st.RunSymbols(ctx, run.ID)
		if err != nil {
			return RunsResult{}, err
		}

		summary := RunSummary{
			ID:      run.ID,
			Seq:     run.Seq,
			Unit:    run.Unit,
			Status:  run.Status,
			Error:   run.Error,
			Symbols: len(symbols),
			Stable:  true,
		}

		key := baselineKey{run.UnitHash, run.Scheme, run.CompilerVersion}
		if base, ok := baselines[key]; ok {
			summary.Baseline = base.run.ID
			summary.Stable = sameOutcome(base.run, run) && sameSymbols(base.symbols, symbols)
		} else {
			baselines[key] = baseline{run: run, symbols: symbols}
		}

		if unit != "" && run.Unit != unit {
			continue
		}
		result.Runs = append(result.Runs, summary)
		if !summary.Stable {
			result.AllStable = false
		}
	}
	result.TotalRuns = len(result.Runs)
	return result, nil
}

func sameOutcome(a, b store.Run) bool {
	return a.Status == b.Status && a.Error == b.Error && a.Stats == b.Stats
}

// sameSymbols compares two flat-name tables, ignoring run IDs.
func sameSymbols(a, b []store.Symbol) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		x, y := a[i], b[i]
		x.RunID, y.RunID = "", ""
		if x != y {
			return false
		}
	}
	return true
}

// outputRunsJSON outputs the runs result as JSON.
func outputRunsJSON(cmd *cobra.Command, result RunsResult) error {
	response := CLIResponse{
		Status: "ok",
		Data:   result,
	}

	if !result.AllStable {
		response.Status = "error"
		response.Error = &CLIError{
			Code:    "E_DETERMINISM",
			Message: "determinism verification failed",
		}
	}

	if err := encodeResponse(cmd.OutOrStdout(), response); err != nil {
		return err
	}

	if !result.AllStable {
		// Determinism failure = exit code 1
		return NewExitError(ExitFailure, "determinism verification failed")
	}
	return nil
}

// outputRunsText outputs the runs result as text.
func outputRunsText(cmd *cobra.Command, result RunsResult, verbose bool) error {
	w := cmd.OutOrStdout()

	if result.TotalRuns == 0 {
		fmt.Fprintln(w, "No runs found in database.")
		return nil
	}

	fmt.Fprintf(w, "Runs Summary: %d run(s)\n", result.TotalRuns)
	fmt.Fprintln(w)

	for _, run := range result.Runs {
		status := "✓"
		if !run.Stable {
			status = "✗"
		}

		fmt.Fprintf(w, "%s #%d %s (%s)\n", status, run.Seq, run.Unit, run.Status)
		if run.Error != "" {
			fmt.Fprintf(w, "  Error: %s\n", run.Error)
		} else {
			fmt.Fprintf(w, "  Symbols: %d\n", run.Symbols)
		}
		if verbose {
			fmt.Fprintf(w, "  ID: %s\n", run.ID)
			if run.Baseline != "" {
				fmt.Fprintf(w, "  Baseline: %s\n", run.Baseline)
			}
		}

		if !run.Stable {
			fmt.Fprintln(w, "  Warning: differs from an earlier run of the same input!")
		}
		fmt.Fprintln(w)
	}

	if result.AllStable {
		fmt.Fprintln(w, "✓ All runs verified deterministic")
		return nil
	}

	fmt.Fprintln(w, "✗ Determinism verification failed")
	// Determinism failure = exit code 1
	return NewExitError(ExitFailure, "determinism verification failed")
}
