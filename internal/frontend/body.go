package frontend

import (
	"fmt"

	"cuelang.org/go/cue"

	"github.com/roach88/flatc/internal/ir"
)

// Statement keys; each statement entry carries exactly one.
var stmtKeys = []string{"var", "expr", "assign", "return", "if", "while", "break", "destroy", "block"}

var assignOps = map[string]bool{"=": true, "+=": true, "-=": true, "*=": true, "/=": true, "%=": true}

// block decodes a statement list in a fresh lexical frame.
func (e *bodyEnv) block(v cue.Value, field string) (*ir.Block, error) {
	items, err := listOf(v, field)
	if err != nil {
		return nil, err
	}
	e.push()
	defer e.pop()

	b := &ir.Block{}
	for i, item := range items {
		s, err := e.stmt(item, fmt.Sprintf("%s[%d]", field, i))
		if err != nil {
			return nil, err
		}
		b.Stmts = append(b.Stmts, s)
	}
	return b, nil
}

func (e *bodyEnv) stmt(v cue.Value, field string) (ir.Stmt, error) {
	key, err := oneOf(v, field, stmtKeys)
	if err != nil {
		return nil, err
	}

	switch key {
	case "var":
		return e.local(v, field)

	case "expr":
		x, err := e.exprField(v, field, "expr", nil)
		if err != nil {
			return nil, err
		}
		return &ir.ExprStmt{X: x}, nil

	case "assign":
		target, err := e.exprField(v, field, "assign", nil)
		if err != nil {
			return nil, err
		}
		op := "="
		if s, ok, err := optString(v, "op"); err != nil {
			return nil, err
		} else if ok {
			op = s
		}
		if !assignOps[op] {
			return nil, errorf(v.Pos(), field+".op", "unknown assignment operator %q", op)
		}
		value, err := e.exprField(v, field, "value", valueType(target.Type()))
		if err != nil {
			return nil, err
		}
		return &ir.Assign{Target: target, Op: op, Value: value}, nil

	case "return":
		rv := lookup(v, "return")
		if rv.IsNull() {
			return &ir.Return{}, nil
		}
		src, err := rv.String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		if src == "" {
			return &ir.Return{}, nil
		}
		var hint ir.Type
		if e.fn != nil {
			hint = e.fn.Return
		}
		x, err := e.parseExpr(src, hint)
		if err != nil {
			return nil, errorf(rv.Pos(), field+".return", "%v", err)
		}
		return &ir.Return{X: x}, nil

	case "if":
		cond, err := e.exprField(v, field, "if", ir.Bool)
		if err != nil {
			return nil, err
		}
		s := &ir.If{Cond: cond}
		if s.Then, err = e.optBlock(v, field, "then"); err != nil {
			return nil, err
		}
		if s.Then == nil {
			s.Then = &ir.Block{}
		}
		if s.Else, err = e.optBlock(v, field, "else"); err != nil {
			return nil, err
		}
		return s, nil

	case "while":
		cond, err := e.exprField(v, field, "while", ir.Bool)
		if err != nil {
			return nil, err
		}
		body, err := e.optBlock(v, field, "do")
		if err != nil {
			return nil, err
		}
		if body == nil {
			body = &ir.Block{}
		}
		return &ir.While{Cond: cond, Body: body}, nil

	case "break":
		return &ir.Break{}, nil

	case "destroy":
		x, err := e.exprField(v, field, "destroy", nil)
		if err != nil {
			return nil, err
		}
		return &ir.Destroy{X: x}, nil

	default: // block
		return e.block(lookup(v, "block"), field+".block")
	}
}

func (e *bodyEnv) local(v cue.Value, field string) (ir.Stmt, error) {
	name, err := reqString(v, field, "var")
	if err != nil {
		return nil, err
	}
	src, err := reqString(v, field, "type")
	if err != nil {
		return nil, err
	}
	t, err := ParseType(src, e.scope)
	if err != nil {
		return nil, errorf(v.Pos(), field+".type", "%v", err)
	}

	s := &ir.Local{Name: name, Typ: t}
	if lookup(v, "init").Exists() {
		if s.Init, err = e.exprField(v, field, "init", t); err != nil {
			return nil, err
		}
	}
	// The name is visible only after its own initializer.
	e.declare(name, t)
	return s, nil
}

func (e *bodyEnv) exprField(v cue.Value, field, key string, hint ir.Type) (ir.Expr, error) {
	src, err := reqString(v, field, key)
	if err != nil {
		return nil, err
	}
	x, err := e.parseExpr(src, hint)
	if err != nil {
		return nil, errorf(lookup(v, key).Pos(), field+"."+key, "%v", err)
	}
	return x, nil
}

func (e *bodyEnv) optBlock(v cue.Value, field, key string) (*ir.Block, error) {
	bv := lookup(v, key)
	if !bv.Exists() {
		return nil, nil
	}
	return e.block(bv, field+"."+key)
}
