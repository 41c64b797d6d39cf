package compiler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/flatc/internal/diag"
	"github.com/roach88/flatc/internal/ir"
	"github.com/roach88/flatc/internal/testutil"
)

func quiet() Option {
	return WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func compile(t *testing.T, u *ir.Unit) *Result {
	t.Helper()
	res, err := Compile(context.Background(), u, quiet())
	require.NoError(t, err)
	return res
}

func definedFunctions(res *Result) []*ir.Function {
	var out []*ir.Function
	for _, e := range res.Emissions {
		if f, ok := e.Decl.(*ir.Function); ok && e.Phase == PhaseDefine {
			out = append(out, f)
		}
	}
	return out
}

func TestCompile_ClassScenario(t *testing.T) {
	res := compile(t, testutil.ClassUnit())

	var inits, finals int
	var main *ir.Function
	for _, f := range definedFunctions(res) {
		switch {
		case f.Role == ir.RoleConstructor:
			inits++
		case f.Role == ir.RoleDestructor:
			finals++
		case f.Name == "main":
			main = f
		}
	}
	assert.Equal(t, 1, inits, "one initializer per declared constructor")
	assert.Equal(t, 1, finals)
	require.NotNil(t, main)

	initCalls := 0
	ir.Inspect(main.Body, func(e ir.Expr) bool {
		if c, ok := e.(*ir.Call); ok && c.Target == "_EC6PersonIB3intB3str" {
			initCalls++
		}
		return true
	})
	assert.Equal(t, 2, initCalls, "each construction initializes exactly once")
	assert.Equal(t, 1, res.Stats.Temporaries, "only the argument needs a temporary")
	assert.Equal(t, 0, res.Stats.Forward)
	assert.Equal(t, 5, res.Stats.Defined)

	d, ok := res.Names.Lookup("_EC6PersonD")
	require.True(t, ok)
	assert.Equal(t, "Person::~Person", d.DeclName())
	_, ok = res.Names.Lookup("main")
	assert.True(t, ok, "the entry point keeps its name")
}

func TestCompile_DoesNotModifyInput(t *testing.T) {
	u := testutil.ClassUnit()
	before := ir.MustUnitHash(u)
	res := compile(t, u)

	assert.Equal(t, before, ir.MustUnitHash(u))
	assert.Equal(t, before, res.Hash)
	for _, d := range u.Decls {
		assert.Empty(t, d.FlatName(), "input declarations stay unmangled")
	}
}

func TestCompile_Deterministic(t *testing.T) {
	first := Dump(compile(t, testutil.ClassUnit()))
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, Dump(compile(t, testutil.ClassUnit())))
	}
}

func TestCompile_Cycles(t *testing.T) {
	res := compile(t, testutil.PointerCycleUnit())
	assert.Equal(t, 2, res.Stats.Forward)
	assert.Equal(t, 2, res.Stats.Defined)

	_, err := Compile(context.Background(), testutil.ValueCycleUnit(), quiet())
	require.Error(t, err)
	assert.True(t, diag.IsUnresolvableLayout(err))
	assert.Contains(t, err.Error(), StageOrder+": ")
}

func TestCompile_ZeroDepthPointerCycle(t *testing.T) {
	u := unitOf(
		&ir.Aggregate{Kind: ir.KindStruct, Name: "A", Fields: []ir.Field{
			{Name: "b", Type: ir.Pointer{Elem: ir.Named{Kind: ir.KindStruct, Name: "B"}, Depth: 0}}}},
		&ir.Aggregate{Kind: ir.KindStruct, Name: "B", Fields: []ir.Field{
			{Name: "a", Type: ir.Pointer{Elem: ir.Named{Kind: ir.KindStruct, Name: "A"}, Depth: 0}}}},
	)
	_, err := Compile(context.Background(), u, quiet())
	require.Error(t, err)
	assert.True(t, diag.IsUnresolvableLayout(err), "a zero-depth pointer holds its element by value")
}

func TestCompile_AggregateNameReusedAcrossKinds(t *testing.T) {
	u := unitOf(
		&ir.Aggregate{Kind: ir.KindClass, Name: "A"},
		&ir.Aggregate{Kind: ir.KindStruct, Name: "A"},
	)
	_, err := Compile(context.Background(), u, quiet())
	require.True(t, diag.IsInvalidInput(err))

	var ve ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, ErrDuplicateName, ve.Code)
}

func TestCompile_InvalidInput(t *testing.T) {
	u := unitOf(
		&ir.Aggregate{Kind: ir.KindStruct, Name: "S", Fields: []ir.Field{{Name: "v", Type: ir.Void}}},
		&ir.Function{Name: "_Ebad", Role: ir.RoleFree, Return: ir.Void},
	)
	res, err := Compile(context.Background(), u, quiet())
	assert.Nil(t, res)
	require.True(t, diag.IsInvalidInput(err))

	var de *diag.Error
	require.ErrorAs(t, err, &de)
	assert.Len(t, de.Causes, 2)

	var ve ValidationError
	require.ErrorAs(t, err, &ve, "causes are reachable with errors.As")
	assert.Equal(t, ErrInvalidType, ve.Code)
}

func TestCompile_NamingConflict(t *testing.T) {
	u := unitOf(
		&ir.Function{Name: "f", Role: ir.RoleFree, Return: ir.Int, Params: []ir.Param{{Name: "a", Type: ir.Int}}, Body: &ir.Block{}},
		&ir.Function{Name: "f", Role: ir.RoleFree, Return: ir.Void, Params: []ir.Param{{Name: "b", Type: ir.Int}}, Body: &ir.Block{}},
	)
	_, err := Compile(context.Background(), u, quiet())
	require.Error(t, err)
	assert.True(t, diag.IsNamingConflict(err), "a return-only difference is a conflict")

	var de *diag.Error
	require.ErrorAs(t, err, &de)
	assert.Equal(t, 1, de.Site.Index)
	assert.Equal(t, 0, de.Related[0].Index, "both declarations are reported")
}

func TestCompile_StageErrorsAbortTheUnit(t *testing.T) {
	main := &ir.Function{Name: "main", Role: ir.RoleFree, Return: ir.Int, Body: &ir.Block{Stmts: []ir.Stmt{
		&ir.ExprStmt{X: &ir.Call{Func: "missing"}},
	}}}
	res, err := Compile(context.Background(), unitOf(main), quiet())
	assert.Nil(t, res)
	assert.True(t, diag.IsUnresolvedOverload(err))
	assert.Contains(t, err.Error(), StageAggregates+": ")
}

func TestCompile_Variadic(t *testing.T) {
	res := compile(t, testutil.VariadicUnit())

	require.Len(t, res.Emissions, 2)
	assert.Equal(t, PhaseForward, res.Emissions[0].Phase)
	sum := res.Emissions[0].Decl.(*ir.Function)
	assert.Equal(t, "_EF3sumVB3int", sum.Flat)
	assert.Equal(t, []ir.Type{ir.Int, ir.Array{Elem: ir.Int}}, sum.ParamTypes())
}

func TestCompile_MacrosPassThrough(t *testing.T) {
	u := testutil.ClassUnit()
	u.Macros = []ir.Macro{{Kind: ir.MacroObject, Name: "ANSWER", Body: []string{"42"}}}
	res := compile(t, u)
	assert.Equal(t, u.Macros, res.Macros)
}

func TestCompile_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Compile(ctx, testutil.ClassUnit(), quiet())
	assert.True(t, errors.Is(err, context.Canceled))
}
