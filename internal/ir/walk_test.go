package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInspect_VisitsNestedCalls(t *testing.T) {
	body := &Block{Stmts: []Stmt{
		&ExprStmt{X: &Call{Func: "f", Args: []Expr{&Call{Func: "g"}}}},
		&If{
			Cond: &Literal{Value: "1", Typ: Bool},
			Then: &Block{Stmts: []Stmt{&Return{X: &Call{Func: "h"}}}},
		},
	}}

	var calls []string
	Inspect(body, func(e Expr) bool {
		if c, ok := e.(*Call); ok {
			calls = append(calls, c.Func)
		}
		return true
	})
	assert.Equal(t, []string{"f", "g", "h"}, calls)
}

func TestRewriter_LeavesInputUntouched(t *testing.T) {
	orig := &Block{Stmts: []Stmt{
		&ExprStmt{X: &Call{Func: "f", Args: []Expr{&Ident{Name: "x", Typ: Int}}}},
	}}
	rw := &Rewriter{OnExpr: func(e Expr) (Expr, error) {
		if id, ok := e.(*Ident); ok {
			id.Name = "y"
		}
		return e, nil
	}}

	out, err := rw.RewriteBlock(orig)
	require.NoError(t, err)

	got := out.Stmts[0].(*ExprStmt).X.(*Call).Args[0].(*Ident).Name
	assert.Equal(t, "y", got)
	assert.Equal(t, "x", orig.Stmts[0].(*ExprStmt).X.(*Call).Args[0].(*Ident).Name)
}

func TestRewriter_OnStmtExpands(t *testing.T) {
	orig := &Block{Stmts: []Stmt{&Break{}, &Destroy{X: &Ident{Name: "a"}}}}
	rw := &Rewriter{OnStmt: func(s Stmt, _ *Rewriter) ([]Stmt, bool, error) {
		if _, ok := s.(*Destroy); ok {
			return nil, true, nil
		}
		return nil, false, nil
	}}

	out, err := rw.RewriteBlock(orig)
	require.NoError(t, err)
	require.Len(t, out.Stmts, 1)
	assert.IsType(t, &Break{}, out.Stmts[0])
}

func TestAddrOf(t *testing.T) {
	x := &Ident{Name: "x", Typ: Int}
	addr := AddrOf(x)
	assert.Equal(t, Pointer{Elem: Int, Depth: 1}, addr.Type())

	assert.Same(t, x, Deref(AddrOf(x)))

	comma := &Comma{Exprs: []Expr{&Call{Func: "init", Typ: Void}, x}}
	got := AddrOf(comma).(*Comma)
	assert.IsType(t, &Call{}, got.Exprs[0])
	assert.Equal(t, "&", got.Exprs[1].(*Unary).Op)
	assert.Same(t, Expr(x), comma.Exprs[1], "input comma is not modified")
}
