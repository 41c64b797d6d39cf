package lower

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/flatc/internal/ir"
	"github.com/roach88/flatc/internal/mangle"
)

var (
	person    = ir.Named{Kind: ir.KindClass, Name: "Person"}
	personPtr = ir.Pointer{Elem: person, Depth: 1}
)

func lit(v string, t ir.Type) *ir.Literal { return &ir.Literal{Value: v, Typ: t} }

func ident(name string, t ir.Type) *ir.Ident { return &ir.Ident{Name: name, Typ: t} }

func body(stmts ...ir.Stmt) *ir.Block { return &ir.Block{Stmts: stmts} }

func call(name string, args ...ir.Expr) *ir.Call { return &ir.Call{Func: name, Args: args} }

func params(types ...ir.Type) []ir.Param {
	out := make([]ir.Param, len(types))
	for i, t := range types {
		out[i] = ir.Param{Name: string(rune('a' + i)), Type: t}
	}
	return out
}

func freeFunc(name string, ret ir.Type, ps []ir.Param, b *ir.Block) *ir.Function {
	return &ir.Function{Name: name, Role: ir.RoleFree, Params: ps, Return: ret, Body: b}
}

func member(role ir.Role, owner ir.Named, name string, ret ir.Type, ps []ir.Param, b *ir.Block) *ir.Function {
	return &ir.Function{Owner: owner.Name, OwnerKind: owner.Kind, Name: name, Role: role, Params: ps, Return: ret, Body: b}
}

// personDecls is a class with a (int, str) constructor and a destructor.
func personDecls() []ir.Decl {
	return []ir.Decl{
		&ir.Aggregate{Kind: ir.KindClass, Name: "Person", Fields: []ir.Field{{Name: "age", Type: ir.Int}, {Name: "name", Type: ir.Str}}},
		member(ir.RoleConstructor, person, "", ir.Void, params(ir.Int, ir.Str), body(
			&ir.Assign{Target: &ir.FieldAccess{X: &ir.This{}, Field: "age", Typ: ir.Int}, Op: "=", Value: ident("a", ir.Int)},
		)),
		member(ir.RoleDestructor, person, "", ir.Void, nil, body()),
	}
}

// prepare indexes decls and assigns flat names.
func prepare(t *testing.T, decls ...ir.Decl) []ir.Decl {
	t.Helper()
	for i, d := range decls {
		switch v := d.(type) {
		case *ir.Aggregate:
			v.Index = i
		case *ir.Function:
			v.Index = i
		case *ir.Alias:
			v.Index = i
		}
	}
	out, _, err := mangle.Assign(decls)
	require.NoError(t, err)
	return out
}

// run applies the lowering stages in order up to and including last.
func run(t *testing.T, decls []ir.Decl, stages ...func([]ir.Decl) ([]ir.Decl, error)) []ir.Decl {
	t.Helper()
	var err error
	for _, stage := range stages {
		decls, err = stage(decls)
		require.NoError(t, err)
	}
	return decls
}

func find(t *testing.T, decls []ir.Decl, name string) *ir.Function {
	t.Helper()
	for _, f := range ir.Functions(decls) {
		if f.DeclName() == name {
			return f
		}
	}
	t.Fatalf("function %s not found", name)
	return nil
}

// callsTo counts calls in b whose target is flat.
func callsTo(b *ir.Block, flat string) int {
	n := 0
	ir.Inspect(b, func(e ir.Expr) bool {
		if c, ok := e.(*ir.Call); ok && c.Target == flat {
			n++
		}
		return true
	})
	return n
}

func localsNamed(b *ir.Block, prefix string) []string {
	var out []string
	ir.InspectLocals(b, func(l *ir.Local) {
		if len(l.Name) >= len(prefix) && l.Name[:len(prefix)] == prefix {
			out = append(out, l.Name)
		}
	})
	return out
}
