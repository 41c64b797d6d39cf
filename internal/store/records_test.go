package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/flatc/internal/compiler"
	"github.com/roach88/flatc/internal/ir"
	"github.com/roach88/flatc/internal/mangle"
	"github.com/roach88/flatc/internal/testutil"
)

func lowered(t *testing.T, u *ir.Unit) (Run, []Symbol) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	r, err := compiler.Compile(context.Background(), u, compiler.WithLogger(logger))
	require.NoError(t, err)

	stats, err := json.Marshal(r.Stats)
	require.NoError(t, err)
	syms, err := SymbolsOf(r.Names)
	require.NoError(t, err)
	return Run{Unit: u.Name, UnitHash: r.Hash, Stats: string(stats)}, syms
}

func TestSymbolsOf_ClassScenario(t *testing.T) {
	_, syms := lowered(t, testutil.ClassUnit())

	want := []Symbol{
		{Flat: "_EC6Person", Kind: KindAggregate, DeclName: "Person", Signature: "class Person", Index: 0},
		{Flat: "_EC6PersonIB3intB3str", Kind: KindFunction, DeclName: "Person::Person", Signature: "class Person::Person(int, str)", Index: 1},
		{Flat: "_EC6PersonD", Kind: KindFunction, DeclName: "Person::~Person", Signature: "class Person::~Person()", Index: 2},
		{Flat: "_EF7consumeC6Person", Kind: KindFunction, DeclName: "consume", Signature: "consume(class Person)", Index: 3},
		{Flat: "main", Kind: KindFunction, DeclName: "main", Signature: "main", Index: 4},
	}
	assert.Equal(t, want, syms)
}

func TestSymbolsOf_AliasesAndPositions(t *testing.T) {
	decls := []ir.Decl{
		&ir.Alias{Name: "nb", Target: ir.Int, Index: 0, Pos: ir.Pos{File: "a.cue", Line: 3, Col: 2}},
		&ir.Function{Name: "puts", Role: ir.RoleFree, Linkage: ir.LinkageC, Flat: "puts", Index: 1},
	}
	table, err := mangle.NewTable(decls)
	require.NoError(t, err)

	syms, err := SymbolsOf(table)
	require.NoError(t, err)
	require.Len(t, syms, 2)
	assert.Equal(t, Symbol{Flat: "nb", Kind: KindAlias, DeclName: "nb", Signature: "nb = int", File: "a.cue", Line: 3}, syms[0])
	assert.Equal(t, "puts", syms[1].Signature, "unmangled names keep the declaration name")
}

func TestRecordRun_AssignsIdentity(t *testing.T) {
	s := createTestStore(t, WithIDGenerator(testutil.NewSequenceIDGenerator("run")))
	ctx := context.Background()

	run, syms := lowered(t, testutil.ClassUnit())
	got, err := s.RecordRun(ctx, run, syms)
	require.NoError(t, err)

	assert.Equal(t, "run-1", got.ID)
	assert.Equal(t, int64(1), got.Seq)
	assert.Equal(t, ir.MangleSchemeVersion, got.Scheme)
	assert.Equal(t, ir.CompilerVersion, got.CompilerVersion)
	assert.Equal(t, StatusOK, got.Status)

	stored, err := s.ReadRun(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, got, stored)

	rows, err := s.RunSymbols(ctx, "run-1")
	require.NoError(t, err)
	require.Len(t, rows, len(syms))
	for i := range syms {
		syms[i].RunID = "run-1"
	}
	assert.Equal(t, syms, rows)
}

func TestRecordRun_FailedRun(t *testing.T) {
	s := createTestStore(t, WithIDGenerator(testutil.NewSequenceIDGenerator("run")))
	ctx := context.Background()

	_, err := s.RecordRun(ctx, Run{Unit: "value_cycle", Status: StatusFailed, Error: "aggregates contain each other by value"}, nil)
	require.NoError(t, err)

	_, err = s.RecordRun(ctx, Run{Unit: "bad", Status: StatusFailed}, []Symbol{{Flat: "_ES1A"}})
	assert.ErrorContains(t, err, "has 1 symbols")

	runs, err := s.Runs(ctx)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, StatusFailed, runs[0].Status)
	assert.Equal(t, "{}", runs[0].Stats)

	syms, err := s.RunSymbols(ctx, runs[0].ID)
	require.NoError(t, err)
	assert.Empty(t, syms)
	assert.NotNil(t, syms)
}

func TestRecordRun_DuplicateSymbolRollsBack(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	dup := []Symbol{
		{Flat: "_ES1A", Kind: KindAggregate, DeclName: "A", Signature: "struct A"},
		{Flat: "_ES1A", Kind: KindAggregate, DeclName: "A", Signature: "struct A", Index: 1},
	}
	_, err := s.RecordRun(ctx, Run{Unit: "dup"}, dup)
	require.Error(t, err)

	runs, err := s.Runs(ctx)
	require.NoError(t, err)
	assert.Empty(t, runs, "the run row is rolled back with its symbols")
}

func TestLookup_AcrossRuns(t *testing.T) {
	s := createTestStore(t, WithIDGenerator(testutil.NewSequenceIDGenerator("run")))
	ctx := context.Background()

	for _, u := range []*ir.Unit{testutil.ClassUnit(), testutil.PointerCycleUnit(), testutil.ClassUnit()} {
		run, syms := lowered(t, u)
		_, err := s.RecordRun(ctx, run, syms)
		require.NoError(t, err)
	}

	matches, err := s.Lookup(ctx, "_EC6PersonD")
	require.NoError(t, err)
	require.Len(t, matches, 2)
	assert.Equal(t, "run-1", matches[0].RunID)
	assert.Equal(t, int64(1), matches[0].Seq)
	assert.Equal(t, "run-3", matches[1].RunID)
	assert.Equal(t, "class_scenario", matches[1].Unit)
	assert.Equal(t, "class Person::~Person()", matches[1].Signature)

	matches, err = s.Lookup(ctx, "_ES1B")
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "pointer_cycle", matches[0].Unit)

	matches, err = s.Lookup(ctx, "_EF4nope")
	require.NoError(t, err)
	assert.Empty(t, matches)
	assert.NotNil(t, matches)
}

func TestReadRun_Missing(t *testing.T) {
	s := createTestStore(t)
	_, err := s.ReadRun(context.Background(), "nope")
	assert.True(t, errors.Is(err, sql.ErrNoRows))
}

func TestRuns_SameHashForSameInput(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		run, syms := lowered(t, testutil.VariadicUnit())
		_, err := s.RecordRun(ctx, run, syms)
		require.NoError(t, err)
	}
	runs, err := s.Runs(ctx)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, runs[0].UnitHash, runs[1].UnitHash)
	assert.NotEqual(t, runs[0].ID, runs[1].ID)
	assert.Less(t, runs[0].Seq, runs[1].Seq)
}

func TestUUIDv7Generator(t *testing.T) {
	var g UUIDv7Generator
	id, err := uuid.Parse(g.Generate())
	require.NoError(t, err)
	assert.Equal(t, uuid.Version(7), id.Version())
	assert.NotEqual(t, g.Generate(), g.Generate())
}
