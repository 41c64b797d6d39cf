package frontend

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/flatc/internal/compiler"
	"github.com/roach88/flatc/internal/ir"
	"github.com/roach88/flatc/internal/testutil"
)

func dump(t *testing.T, u *ir.Unit) string {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	r, err := compiler.Compile(context.Background(), u, compiler.WithLogger(logger))
	require.NoError(t, err)
	return compiler.Dump(r)
}

func parse(t *testing.T, src string) *ir.Unit {
	t.Helper()
	u, err := ParseUnit("test.cue", []byte(src))
	require.NoError(t, err)
	return u
}

func TestLoadUnit_MatchesFixtures(t *testing.T) {
	tests := []struct {
		file    string
		fixture func() *ir.Unit
	}{
		{"testdata/class_scenario.cue", testutil.ClassUnit},
		{"testdata/variadic.cue", testutil.VariadicUnit},
		{"testdata/mutual_recursion.cue", testutil.MutualRecursionUnit},
	}
	for _, tt := range tests {
		t.Run(tt.file, func(t *testing.T) {
			u, err := LoadUnit(tt.file)
			require.NoError(t, err)
			assert.Equal(t, dump(t, tt.fixture()), dump(t, u))
		})
	}
}

func TestLoadUnit_Directory(t *testing.T) {
	u, err := LoadUnit("testdata/shapes")
	require.NoError(t, err)

	assert.Equal(t, "shapes", u.Name, "name defaults to the directory")
	require.Len(t, u.Decls, 3)

	point, ok := u.Decls[0].(*ir.Aggregate)
	require.True(t, ok)
	assert.Equal(t, []ir.Field{{Name: "x", Type: ir.Int}, {Name: "y", Type: ir.Int}}, point.Fields, "aliases are substituted")

	alias, ok := u.Decls[1].(*ir.Alias)
	require.True(t, ok)
	assert.Equal(t, ir.Int, alias.Target)
	assert.Equal(t, 1, alias.Index)

	sum, ok := u.Decls[2].(*ir.Function)
	require.True(t, ok)
	assert.Equal(t, ir.RoleMethod, sum.Role)
	assert.True(t, sum.ConstReceiver)
	assert.Equal(t, ir.KindStruct, sum.OwnerKind)
	assert.Equal(t, ir.Int, sum.Return)
	require.Len(t, sum.Body.Stmts, 1)

	require.Len(t, u.Macros, 3)
	assert.Equal(t, ir.Macro{Kind: ir.MacroObject, Name: "ORIGIN", Body: []string{"0"}}, u.Macros[0])
	assert.Equal(t, ir.Builtin{Name: "uint8"}, u.Macros[1].Type)
	assert.Equal(t, ir.MacroObject, u.Macros[2].Kind)
}

func TestLoadUnit_Missing(t *testing.T) {
	_, err := LoadUnit("testdata/nope.cue")
	assert.Error(t, err)
}

func TestParseUnit_DefaultName(t *testing.T) {
	u, err := ParseUnit("units/geometry.cue", []byte(`decls: []`))
	require.NoError(t, err)
	assert.Equal(t, "geometry", u.Name)
	assert.Empty(t, u.Decls)
}

func TestParseUnit_Positions(t *testing.T) {
	u := parse(t, `unit: "p"
decls: [
	{struct: "A"},
	{func: "f"},
]`)
	for i, d := range u.Decls {
		idx, pos := d.Position()
		assert.Equal(t, i, idx)
		assert.Equal(t, "test.cue", pos.File)
		assert.Equal(t, i+3, pos.Line)
	}
}

func TestParseUnit_Statements(t *testing.T) {
	u := parse(t, `unit: "flow"
decls: [
	{func: "countdown", params: [{name: "n", type: "int"}], body: [
		{while: "n > 0", do: [
			{"if": "n == 3", then: [{break: true}], else: [{assign: "n", op: "-=", value: "1"}]},
		]},
		{return: null},
	]},
]`)
	want := `unit flow
define func _EF9countdownB3int(n int) void {
  while n > 0 {
    if n == 3 {
      break
    } else {
      n -= 1
    }
  }
  return
}
`
	assert.Equal(t, want, dump(t, u))
}

func TestParseUnit_Declarations(t *testing.T) {
	u := parse(t, `decls: [
	{union: "U", opaque: true},
	{func: "proto", returns: "ptr union U"},
	{func: "empty", body: []},
	{func: "puts", linkage: "c", params: [{name: "s", type: "str"}]},
	{func: "log", params: [{name: "fmt", type: "str"}], variadic: {name: "rest"}},
	{func: "any", variadic: {name: "xs", type: "any"}},
	{destructor: "U", body: []},
]`)
	u0 := u.Decls[0].(*ir.Aggregate)
	assert.True(t, u0.Opaque)
	assert.Equal(t, ir.KindUnion, u0.Kind)

	proto := u.Decls[1].(*ir.Function)
	assert.Nil(t, proto.Body, "no body is a prototype")
	assert.Equal(t, ir.PointerTo(ir.Named{Kind: ir.KindUnion, Name: "U"}, 1), proto.Return)

	empty := u.Decls[2].(*ir.Function)
	assert.NotNil(t, empty.Body)
	assert.Equal(t, ir.Void, empty.Return)

	assert.Equal(t, ir.LinkageC, u.Decls[3].(*ir.Function).Linkage)

	assert.Equal(t, &ir.VariadicSpec{Name: "rest"}, u.Decls[4].(*ir.Function).Variadic)
	assert.Equal(t, &ir.VariadicSpec{Name: "xs", Elem: ir.Erased{}, Explicit: true}, u.Decls[5].(*ir.Function).Variadic)

	dtor := u.Decls[6].(*ir.Function)
	assert.Equal(t, ir.RoleDestructor, dtor.Role)
	assert.Equal(t, "U", dtor.Owner)
	assert.Equal(t, ir.KindUnion, dtor.OwnerKind)
}

func TestParseUnit_DefaultParams(t *testing.T) {
	u := parse(t, `unit: "defaults"
decls: [
	{func: "func_with_default_params", params: [{name: "par1", type: "int"}, {name: "par2", type: "int", default: "0"}]},
	{func: "main", returns: "int", body: [
		{expr: "func_with_default_params(1, 2)"},
		{expr: "func_with_default_params(3)"},
		{return: "0"},
	]},
]`)
	f := u.Decls[0].(*ir.Function)
	assert.Nil(t, f.Params[0].Default)
	assert.Equal(t, &ir.Literal{Value: "0", Typ: ir.Int}, f.Params[1].Default)

	want := `unit defaults
forward func _EF24func_with_default_paramsB3intB3int(int, int) void
define func main() int {
  _EF24func_with_default_paramsB3intB3int(1, 2)
  _EF24func_with_default_paramsB3intB3int(3, 0)
  return 0
}
`
	assert.Equal(t, want, dump(t, u))
}

func TestParseUnit_FunctionReference(t *testing.T) {
	u := parse(t, `decls: [
	{func: "inc", params: [{name: "x", type: "int"}], returns: "int", body: [{return: "x + 1"}]},
	{func: "main", returns: "int", body: [
		{var: "f", type: "func(int) int", init: "&inc"},
		{return: "0"},
	]},
]`)
	main := u.Decls[1].(*ir.Function)
	local := main.Body.Stmts[0].(*ir.Local)
	sig := ir.FuncPtr{Params: []ir.Type{ir.Int}, Return: ir.Int}
	assert.Equal(t, &ir.FuncRef{Func: "inc", Typ: sig}, local.Init, "the declared type selects the overload")
}

func TestParseUnit_Errors(t *testing.T) {
	tests := []struct {
		name  string
		src   string
		field string
		want  string
	}{
		{"unknown type", "decls: [\n\t{func: \"f\", params: [{name: \"x\", type: \"Widget\"}]},\n]",
			"decls[0].params[0].type", `unknown type "Widget"`},
		{"no kind", `decls: [{foo: 1}]`, "decls[0]", "expected one of"},
		{"two kinds", `decls: [{func: "f", class: "C"}]`, "decls[0]", "ambiguous entry"},
		{"missing name", `decls: [{func: "f", params: [{type: "int"}]}]`, "decls[0].params[0].name", "name is required"},
		{"bad linkage", `decls: [{func: "f", linkage: "pascal"}]`, "decls[0].linkage", `unknown linkage "pascal"`},
		{"bad expression", `decls: [{func: "f", body: [{expr: "1 +"}]}]`, "decls[0].body[0].expr", "unexpected end"},
		{"bad operator", `decls: [{func: "f", body: [{var: "x", type: "int"}, {assign: "x", op: "<<=", value: "1"}]}]`,
			"decls[0].body[1].op", "unknown assignment operator"},
		{"self initializer", `decls: [{func: "f", body: [{var: "x", type: "int", init: "x"}]}]`,
			"decls[0].body[0].init", "undefined: x"},
		{"block scope", `decls: [{func: "f", body: [{block: [{var: "t", type: "int"}]}, {expr: "t"}]}]`,
			"decls[0].body[1].expr", "undefined: t"},
		{"decls not a list", `decls: {a: 1}`, "decls", "expected a list"},
		{"bad macro", `macros: [{object: "A", function: "B"}]`, "macros[0]", "ambiguous entry"},
		{"default not trailing", `decls: [{func: "f", params: [{name: "a", type: "int", default: "1"}, {name: "b", type: "int"}]}]`,
			"decls[0].params[1]", `parameter "b" follows a parameter with a default value`},
		{"default calls", `decls: [{func: "g", returns: "int"}, {func: "f", params: [{name: "a", type: "int", default: "g()"}]}]`,
			"decls[1].params[0].default", "must not call a function"},
		{"default type", `decls: [{func: "f", params: [{name: "a", type: "int", default: "\"s\""}]}]`,
			"decls[0].params[0].default", "does not fit parameter"},
		{"default names parameter", `decls: [{func: "f", params: [{name: "a", type: "int"}, {name: "b", type: "int", default: "a"}]}]`,
			"decls[0].params[1].default", "undefined: a"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseUnit("test.cue", []byte(tt.src))
			require.Error(t, err)
			var fe *Error
			require.True(t, errors.As(err, &fe), "got %T: %v", err, err)
			assert.Equal(t, tt.field, fe.Field)
			assert.Contains(t, fe.Message, tt.want)
		})
	}
}

func TestParseUnit_ErrorPosition(t *testing.T) {
	_, err := ParseUnit("test.cue", []byte("decls: [\n\t{func: \"f\", returns: \"Widget\"},\n]"))
	var fe *Error
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, 2, fe.Pos.Line())
	assert.Contains(t, fe.Error(), "test.cue:2:")
}

func TestParseUnit_SyntaxError(t *testing.T) {
	_, err := ParseUnit("test.cue", []byte("decls: [\n{func: }\n"))
	var fe *Error
	require.True(t, errors.As(err, &fe), "got %T: %v", err, err)
	assert.Equal(t, "cue", fe.Field)
}
