// Package testutil provides fixture units and deterministic helpers shared
// by tests.
package testutil

import "github.com/roach88/flatc/internal/ir"

// Frequently used types.
var (
	Person    = ir.Named{Kind: ir.KindClass, Name: "Person"}
	PersonPtr = ir.Pointer{Elem: Person, Depth: 1}
)

// Indexed sets each declaration's Index to its position and returns decls.
func Indexed(decls ...ir.Decl) []ir.Decl {
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
	return decls
}

func lit(v string, t ir.Type) *ir.Literal { return &ir.Literal{Value: v, Typ: t} }

func ident(name string, t ir.Type) *ir.Ident { return &ir.Ident{Name: name, Typ: t} }

func thisField(name string, t ir.Type) *ir.FieldAccess {
	return &ir.FieldAccess{X: &ir.This{}, Field: name, Typ: t}
}

// ClassUnit is a class with one (int, str) constructor and a destructor.
// main builds one Person into a local and passes a temporary Person by
// value to consume.
func ClassUnit() *ir.Unit {
	return &ir.Unit{
		Name: "class_scenario",
		Decls: Indexed(
			&ir.Aggregate{Kind: ir.KindClass, Name: "Person", Fields: []ir.Field{
				{Name: "age", Type: ir.Int},
				{Name: "name", Type: ir.Str},
			}},
			&ir.Function{Owner: "Person", OwnerKind: ir.KindClass, Role: ir.RoleConstructor, Return: ir.Void,
				Params: []ir.Param{{Name: "age", Type: ir.Int}, {Name: "name", Type: ir.Str}},
				Body: &ir.Block{Stmts: []ir.Stmt{
					&ir.Assign{Target: thisField("age", ir.Int), Op: "=", Value: ident("age", ir.Int)},
					&ir.Assign{Target: thisField("name", ir.Str), Op: "=", Value: ident("name", ir.Str)},
				}},
			},
			&ir.Function{Owner: "Person", OwnerKind: ir.KindClass, Role: ir.RoleDestructor, Return: ir.Void,
				Body: &ir.Block{},
			},
			&ir.Function{Name: "consume", Role: ir.RoleFree, Return: ir.Void,
				Params: []ir.Param{{Name: "p", Type: Person}},
				Body:   &ir.Block{},
			},
			&ir.Function{Name: "main", Role: ir.RoleFree, Return: ir.Int,
				Body: &ir.Block{Stmts: []ir.Stmt{
					&ir.Local{Name: "p", Typ: Person, Init: &ir.Construct{Typ: Person, Args: []ir.Expr{lit("42", ir.Int), lit(`"Ann"`, ir.Str)}}},
					&ir.ExprStmt{X: &ir.Call{Func: "consume", Args: []ir.Expr{
						&ir.Construct{Typ: Person, Args: []ir.Expr{lit("1", ir.Int), lit(`"Bo"`, ir.Str)}},
					}}},
					&ir.Destroy{X: ident("p", Person)},
					&ir.Return{X: lit("0", ir.Int)},
				}},
			},
		),
	}
}

// PointerCycleUnit has two structs holding pointers to each other.
func PointerCycleUnit() *ir.Unit {
	a := ir.Named{Kind: ir.KindStruct, Name: "A"}
	b := ir.Named{Kind: ir.KindStruct, Name: "B"}
	return &ir.Unit{
		Name: "pointer_cycle",
		Decls: Indexed(
			&ir.Aggregate{Kind: ir.KindStruct, Name: "A", Fields: []ir.Field{{Name: "b", Type: ir.Pointer{Elem: b, Depth: 1}}}},
			&ir.Aggregate{Kind: ir.KindStruct, Name: "B", Fields: []ir.Field{{Name: "a", Type: ir.Pointer{Elem: a, Depth: 1}}}},
		),
	}
}

// ValueCycleUnit has two structs holding each other by value.
func ValueCycleUnit() *ir.Unit {
	a := ir.Named{Kind: ir.KindStruct, Name: "A"}
	b := ir.Named{Kind: ir.KindStruct, Name: "B"}
	return &ir.Unit{
		Name: "value_cycle",
		Decls: Indexed(
			&ir.Aggregate{Kind: ir.KindStruct, Name: "A", Fields: []ir.Field{{Name: "b", Type: b}}},
			&ir.Aggregate{Kind: ir.KindStruct, Name: "B", Fields: []ir.Field{{Name: "a", Type: a}}},
		),
	}
}

// VariadicUnit declares sum(int...) and calls it with zero and three
// arguments.
func VariadicUnit() *ir.Unit {
	call := func(args ...ir.Expr) ir.Stmt {
		return &ir.ExprStmt{X: &ir.Call{Func: "sum", Args: args}}
	}
	return &ir.Unit{
		Name: "variadic",
		Decls: Indexed(
			&ir.Function{Name: "sum", Role: ir.RoleFree, Return: ir.Int,
				Variadic: &ir.VariadicSpec{Name: "args", Elem: ir.Int, Explicit: true},
			},
			&ir.Function{Name: "main", Role: ir.RoleFree, Return: ir.Int,
				Body: &ir.Block{Stmts: []ir.Stmt{
					call(),
					call(lit("1", ir.Int), lit("2", ir.Int), lit("3", ir.Int)),
					&ir.Return{X: lit("0", ir.Int)},
				}},
			},
		),
	}
}

// MutualRecursionUnit has two functions calling each other, so both need
// prototypes.
func MutualRecursionUnit() *ir.Unit {
	call := func(name string) ir.Stmt {
		return &ir.ExprStmt{X: &ir.Call{Func: name, Args: []ir.Expr{ident("n", ir.Int)}}}
	}
	return &ir.Unit{
		Name: "mutual_recursion",
		Decls: Indexed(
			&ir.Function{Name: "ping", Role: ir.RoleFree, Return: ir.Void,
				Params: []ir.Param{{Name: "n", Type: ir.Int}},
				Body:   &ir.Block{Stmts: []ir.Stmt{call("pong")}},
			},
			&ir.Function{Name: "pong", Role: ir.RoleFree, Return: ir.Void,
				Params: []ir.Param{{Name: "n", Type: ir.Int}},
				Body:   &ir.Block{Stmts: []ir.Stmt{call("ping")}},
			},
		),
	}
}
