package harness

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/roach88/flatc/internal/compiler"
	"github.com/roach88/flatc/internal/diag"
	"github.com/roach88/flatc/internal/frontend"
	"github.com/roach88/flatc/internal/ir"
	"github.com/roach88/flatc/internal/store"
	"github.com/roach88/flatc/internal/testutil"
)

// Harness runs scenarios against one store.
type Harness struct {
	store  *store.Store
	logger *slog.Logger
}

// Run executes a scenario and returns the result.
//
// Each scenario runs in a fresh in-memory database with sequential run
// IDs, so results are reproducible.
//
// Execution flow:
// 1. Load the unit through the CUE frontend
// 2. Lower it through the compiler pipeline
// 3. Record the run and its symbols in the store
// 4. Check the expected outcome and evaluate assertions
//
// The returned error covers infrastructure failures only (unreadable
// unit, store errors); a lowering error is part of the Result.
func Run(scenario *Scenario) (*Result, error) {
	st, err := store.Open(":memory:", store.WithIDGenerator(testutil.NewSequenceIDGenerator("run")))
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	h := &Harness{
		store:  st,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	return h.Run(context.Background(), scenario)
}

// New creates a harness that records into st and logs to logger.
func New(st *store.Store, logger *slog.Logger) *Harness {
	return &Harness{store: st, logger: logger}
}

// Run executes one scenario against the harness store.
func (h *Harness) Run(ctx context.Context, scenario *Scenario) (*Result, error) {
	u, err := frontend.LoadUnit(scenario.Unit)
	if err != nil {
		return nil, fmt.Errorf("failed to load unit %s: %w", scenario.Unit, err)
	}
	hash, err := ir.UnitHash(u)
	if err != nil {
		return nil, fmt.Errorf("failed to hash unit: %w", err)
	}

	result := NewResult()
	compiled, cerr := compiler.Compile(ctx, u, compiler.WithLogger(h.logger))
	if cerr != nil {
		result.Err = cerr
		run, err := h.store.RecordRun(ctx, store.Run{
			Unit:     u.Name,
			UnitHash: hash,
			Status:   store.StatusFailed,
			Error:    cerr.Error(),
		}, nil)
		if err != nil {
			return nil, err
		}
		result.RunID = run.ID
		checkFailure(result, scenario.Expect, cerr)
		return result, nil
	}

	symbols, err := store.SymbolsOf(compiled.Names)
	if err != nil {
		return nil, fmt.Errorf("failed to build symbols: %w", err)
	}
	stats, err := json.Marshal(compiled.Stats)
	if err != nil {
		return nil, fmt.Errorf("failed to encode stats: %w", err)
	}
	run, err := h.store.RecordRun(ctx, store.Run{
		Unit:     u.Name,
		UnitHash: hash,
		Stats:    string(stats),
	}, symbols)
	if err != nil {
		return nil, err
	}

	result.RunID = run.ID
	result.Listing = compiler.Dump(compiled)
	result.Emissions = compiled.Emissions
	result.Stats = compiled.Stats
	if result.Symbols, err = h.store.RunSymbols(ctx, run.ID); err != nil {
		return nil, err
	}

	if scenario.Expect.Error != "" {
		result.AddError(fmt.Sprintf("expected %s error, but the unit lowered cleanly", scenario.Expect.Error))
		return result, nil
	}

	actx := &AssertionContext{
		Store: h.store,
		Ctx:   ctx,
	}
	for _, errMsg := range EvaluateAssertions(result, scenario.Assertions, actx) {
		result.AddError(errMsg)
	}

	h.logger.Info("scenario completed",
		"unit", u.Name,
		"run_id", run.ID,
		"pass", result.Pass,
	)
	return result, nil
}

func checkFailure(result *Result, expect Expect, err error) {
	if expect.Error == "" {
		result.AddError(fmt.Sprintf("unexpected lowering error: %v", err))
		return
	}
	if !diag.Is(err, diag.Kind(expect.Error)) {
		kind, _ := diag.KindOf(err)
		result.AddError(fmt.Sprintf("expected %s error, got %s: %v", expect.Error, kind, err))
		return
	}
	if expect.Message != "" && !strings.Contains(err.Error(), expect.Message) {
		result.AddError(fmt.Sprintf("error %q does not contain %q", err.Error(), expect.Message))
	}
}
