package lower

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/flatc/internal/diag"
	"github.com/roach88/flatc/internal/ir"
)

func variadicFunc(name string, spec *ir.VariadicSpec) *ir.Function {
	f := freeFunc(name, ir.Void, params(ir.Str), nil)
	f.Variadic = spec
	return f
}

func callWithTail(name string, tail ...ir.Expr) *ir.ExprStmt {
	return &ir.ExprStmt{X: call(name, append([]ir.Expr{lit(`"fmt"`, ir.Str)}, tail...)...)}
}

func lowerAll(t *testing.T, decls ...ir.Decl) []ir.Decl {
	t.Helper()
	return run(t, prepare(t, decls...), Aggregates, SpecialMembers, Variadics)
}

func TestVariadics_CountAndArrayMatchArity(t *testing.T) {
	for _, n := range []int{0, 1, 3} {
		t.Run(fmt.Sprintf("n=%d", n), func(t *testing.T) {
			tail := make([]ir.Expr, n)
			for i := range tail {
				tail[i] = lit(fmt.Sprint(i), ir.Int)
			}
			spec := &ir.VariadicSpec{Name: "args", Elem: ir.Int, Explicit: true}
			main := freeFunc("main", ir.Int, nil, body(callWithTail("sum", tail...)))
			out := lowerAll(t, variadicFunc("sum", spec), main)

			c := find(t, out, "main").Body.Stmts[0].(*ir.ExprStmt).X.(*ir.Call)
			require.Len(t, c.Args, 3, "fixed argument, count, array")
			assert.Equal(t, fmt.Sprint(n), c.Args[1].(*ir.Literal).Value)
			arr := c.Args[2].(*ir.ArrayLit)
			assert.Len(t, arr.Items, n)
			assert.Equal(t, ir.Int, arr.Elem)
		})
	}
}

func TestVariadics_DeclarationShape(t *testing.T) {
	out := lowerAll(t, variadicFunc("sum", &ir.VariadicSpec{Name: "args", Elem: ir.Int, Explicit: true}))

	f := find(t, out, "sum")
	assert.Nil(t, f.Variadic)
	require.Len(t, f.Params, 3)
	assert.Equal(t, ir.Param{Name: "args_len", Type: ir.Int}, f.Params[1])
	assert.Equal(t, ir.Param{Name: "args", Type: ir.Array{Elem: ir.Int}}, f.Params[2])
	assert.Equal(t, "_EF3sumB3strVB3int", f.Flat)
}

func TestVariadics_ImplicitHomogeneousInfersConcrete(t *testing.T) {
	main := freeFunc("main", ir.Int, nil, body(
		callWithTail("log", lit("1", ir.Int), lit("2", ir.Int)),
		callWithTail("log", lit("3", ir.Builtin{Name: "int", Const: true})),
	))
	out := lowerAll(t, variadicFunc("log", &ir.VariadicSpec{Name: "args"}), main)

	f := find(t, out, "log")
	assert.Equal(t, ir.Array{Elem: ir.Int}, f.Params[len(f.Params)-1].Type)
	c := find(t, out, "main").Body.Stmts[0].(*ir.ExprStmt).X.(*ir.Call)
	for _, item := range c.Args[2].(*ir.ArrayLit).Items {
		assert.IsType(t, &ir.Literal{}, item, "concrete tails are not boxed")
	}
}

func TestVariadics_ImplicitMixedErases(t *testing.T) {
	main := freeFunc("main", ir.Int, nil, body(
		callWithTail("log", lit("1", ir.Int), lit(`"s"`, ir.Str)),
	))
	out := lowerAll(t, variadicFunc("log", &ir.VariadicSpec{Name: "args"}), main)

	f := find(t, out, "log")
	assert.Equal(t, ir.Array{Elem: ir.Erased{}}, f.Params[len(f.Params)-1].Type)

	arr := find(t, out, "main").Body.Stmts[0].(*ir.ExprStmt).X.(*ir.Call).Args[2].(*ir.ArrayLit)
	require.Len(t, arr.Items, 2)
	for _, item := range arr.Items {
		assert.IsType(t, &ir.Box{}, item)
	}
}

func TestVariadics_ImplicitWithoutCallSitesErases(t *testing.T) {
	out := lowerAll(t, variadicFunc("log", &ir.VariadicSpec{Name: "args"}))
	f := find(t, out, "log")
	assert.Equal(t, ir.Array{Elem: ir.Erased{}}, f.Params[len(f.Params)-1].Type)
}

func TestVariadics_AggregatesTravelByPointer(t *testing.T) {
	main := freeFunc("main", ir.Int, nil, body(
		&ir.Local{Name: "p", Typ: person, Init: construct(lit("1", ir.Int), lit(`"a"`, ir.Str))},
		callWithTail("log", ident("p", person)),
	))
	decls := append(personDecls(), variadicFunc("log", &ir.VariadicSpec{Name: "people"}), main)
	out := lowerAll(t, decls...)

	f := find(t, out, "log")
	assert.Equal(t, ir.Array{Elem: personPtr}, f.Params[len(f.Params)-1].Type)

	stmts := find(t, out, "main").Body.Stmts
	c := stmts[len(stmts)-1].(*ir.ExprStmt).X.(*ir.Call)
	item := c.Args[2].(*ir.ArrayLit).Items[0].(*ir.Unary)
	assert.Equal(t, "&", item.Op)
}

func TestVariadics_MethodTail(t *testing.T) {
	m := member(ir.RoleMethod, person, "say", ir.Void, nil, nil)
	m.Variadic = &ir.VariadicSpec{Name: "words", Elem: ir.Str, Explicit: true}
	main := freeFunc("main", ir.Int, nil, body(
		&ir.ExprStmt{X: &ir.Call{Func: "say", Recv: ident("pp", personPtr), Args: []ir.Expr{lit(`"a"`, ir.Str), lit(`"b"`, ir.Str)}}},
	))
	out := lowerAll(t, append(personDecls(), m, main)...)

	c := find(t, out, "main").Body.Stmts[0].(*ir.ExprStmt).X.(*ir.Call)
	require.Len(t, c.Args, 3, "receiver, count, array")
	assert.Equal(t, "2", c.Args[1].(*ir.Literal).Value)
}

func TestVariadics_UnboxableArgumentIsMalformed(t *testing.T) {
	fp := ir.FuncPtr{Params: []ir.Type{ir.Int}, Return: ir.Void}
	main := freeFunc("main", ir.Int, nil, body(
		callWithTail("log", lit("1", ir.Int), ident("cb", fp)),
	))
	decls := run(t, prepare(t, variadicFunc("log", &ir.VariadicSpec{Name: "args"}), main), Aggregates, SpecialMembers)

	_, err := Variadics(decls)
	require.Error(t, err)
	assert.True(t, diag.IsMalformedVariadic(err))
	assert.Contains(t, err.Error(), "no erased form")
}

func TestVariadics_ExplicitErasedRejectsFunctionPointer(t *testing.T) {
	fp := ir.FuncPtr{Params: nil, Return: ir.Void}
	main := freeFunc("main", ir.Int, nil, body(callWithTail("log", ident("cb", fp))))
	decls := run(t, prepare(t, variadicFunc("log", &ir.VariadicSpec{Name: "args", Elem: ir.Erased{}, Explicit: true}), main),
		Aggregates, SpecialMembers)

	_, err := Variadics(decls)
	assert.True(t, diag.IsMalformedVariadic(err))
}

func TestVariadics_FirstDeclaredMalformedTailReported(t *testing.T) {
	main := freeFunc("main", ir.Int, nil, body(
		callWithTail("beta", call("noop")),
		callWithTail("alpha", call("noop")),
	))
	decls := run(t, prepare(t,
		freeFunc("noop", ir.Void, nil, nil),
		variadicFunc("alpha", &ir.VariadicSpec{Name: "xs"}),
		variadicFunc("beta", &ir.VariadicSpec{Name: "ys"}),
		main,
	), Aggregates, SpecialMembers)

	for i := 0; i < 20; i++ {
		_, err := Variadics(decls)
		var de *diag.Error
		require.ErrorAs(t, err, &de)
		assert.Equal(t, diag.KindMalformedVariadic, de.Kind)
		assert.Equal(t, "alpha", de.Site.Decl)
		assert.Contains(t, de.Message, "variadic tail xs of alpha receives void arguments")
	}
}

func TestVariadics_NoTailsReturnsNewList(t *testing.T) {
	decls := prepare(t, freeFunc("f", ir.Void, nil, nil))
	out, err := Variadics(decls)
	require.NoError(t, err)
	assert.Equal(t, decls, out)

	out[0] = nil
	assert.NotNil(t, decls[0], "input list is not shared")
}
