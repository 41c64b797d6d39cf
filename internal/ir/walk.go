package ir

import "fmt"

// Inspect calls fn for every expression in b in depth-first pre-order.
// If fn returns false, the children of that expression are skipped.
func Inspect(b *Block, fn func(Expr) bool) {
	if b == nil {
		return
	}
	for _, s := range b.Stmts {
		inspectStmt(s, fn)
	}
}

func inspectStmt(s Stmt, fn func(Expr) bool) {
	switch v := s.(type) {
	case *Block:
		Inspect(v, fn)
	case *Local:
		InspectExpr(v.Init, fn)
	case *ExprStmt:
		InspectExpr(v.X, fn)
	case *Assign:
		InspectExpr(v.Target, fn)
		InspectExpr(v.Value, fn)
	case *Return:
		InspectExpr(v.X, fn)
	case *If:
		InspectExpr(v.Cond, fn)
		Inspect(v.Then, fn)
		Inspect(v.Else, fn)
	case *While:
		InspectExpr(v.Cond, fn)
		Inspect(v.Body, fn)
	case *Destroy:
		InspectExpr(v.X, fn)
	}
}

// InspectExpr calls fn for e and its sub-expressions in pre-order.
func InspectExpr(e Expr, fn func(Expr) bool) {
	if e == nil || !fn(e) {
		return
	}
	for _, c := range children(e) {
		InspectExpr(c, fn)
	}
}

// InspectLocals calls fn for every local declared in b, nested blocks
// included.
func InspectLocals(b *Block, fn func(*Local)) {
	if b == nil {
		return
	}
	for _, s := range b.Stmts {
		switch v := s.(type) {
		case *Local:
			fn(v)
		case *Block:
			InspectLocals(v, fn)
		case *If:
			InspectLocals(v.Then, fn)
			InspectLocals(v.Else, fn)
		case *While:
			InspectLocals(v.Body, fn)
		}
	}
}

func children(e Expr) []Expr {
	switch v := e.(type) {
	case *FieldAccess:
		return []Expr{v.X}
	case *Unary:
		return []Expr{v.X}
	case *Binary:
		return []Expr{v.L, v.R}
	case *Call:
		if v.Recv != nil {
			return append([]Expr{v.Recv}, v.Args...)
		}
		return v.Args
	case *Construct:
		return v.Args
	case *Cast:
		return []Expr{v.X}
	case *ArrayLit:
		return v.Items
	case *Box:
		return []Expr{v.X}
	case *Comma:
		return v.Exprs
	default:
		return nil
	}
}

// Rewriter rebuilds a body bottom-up without touching the original.
//
// OnExpr is applied to every expression after its children have been
// rewritten. OnStmt is consulted before the default handling of each
// statement; when it reports handled, its statements replace the input and
// the default handling is skipped. Either hook may be nil.
type Rewriter struct {
	OnExpr func(Expr) (Expr, error)
	OnStmt func(s Stmt, rw *Rewriter) (out []Stmt, handled bool, err error)
}

// RewriteBlock returns a rewritten copy of b.
func (rw *Rewriter) RewriteBlock(b *Block) (*Block, error) {
	if b == nil {
		return nil, nil
	}
	out := &Block{Stmts: make([]Stmt, 0, len(b.Stmts))}
	for _, s := range b.Stmts {
		stmts, err := rw.RewriteStmt(s)
		if err != nil {
			return nil, err
		}
		out.Stmts = append(out.Stmts, stmts...)
	}
	return out, nil
}

// RewriteStmt returns the rewritten form of s, which may be zero or more
// statements.
func (rw *Rewriter) RewriteStmt(s Stmt) ([]Stmt, error) {
	if rw.OnStmt != nil {
		out, handled, err := rw.OnStmt(s, rw)
		if err != nil {
			return nil, err
		}
		if handled {
			return out, nil
		}
	}

	var err error
	switch v := s.(type) {
	case *Block:
		var b *Block
		if b, err = rw.RewriteBlock(v); err == nil {
			return []Stmt{b}, nil
		}
	case *Local:
		n := *v
		if n.Init, err = rw.RewriteExpr(v.Init); err == nil {
			return []Stmt{&n}, nil
		}
	case *ExprStmt:
		var x Expr
		if x, err = rw.RewriteExpr(v.X); err == nil {
			return []Stmt{&ExprStmt{X: x}}, nil
		}
	case *Assign:
		n := *v
		if n.Target, err = rw.RewriteExpr(v.Target); err != nil {
			return nil, err
		}
		if n.Value, err = rw.RewriteExpr(v.Value); err == nil {
			return []Stmt{&n}, nil
		}
	case *Return:
		var x Expr
		if x, err = rw.RewriteExpr(v.X); err == nil {
			return []Stmt{&Return{X: x}}, nil
		}
	case *If:
		n := &If{}
		if n.Cond, err = rw.RewriteExpr(v.Cond); err != nil {
			return nil, err
		}
		if n.Then, err = rw.RewriteBlock(v.Then); err != nil {
			return nil, err
		}
		if n.Else, err = rw.RewriteBlock(v.Else); err == nil {
			return []Stmt{n}, nil
		}
	case *While:
		n := &While{}
		if n.Cond, err = rw.RewriteExpr(v.Cond); err != nil {
			return nil, err
		}
		if n.Body, err = rw.RewriteBlock(v.Body); err == nil {
			return []Stmt{n}, nil
		}
	case *Break:
		return []Stmt{&Break{}}, nil
	case *Destroy:
		var x Expr
		if x, err = rw.RewriteExpr(v.X); err == nil {
			return []Stmt{&Destroy{X: x}}, nil
		}
	default:
		return nil, fmt.Errorf("ir: unknown statement %T", s)
	}
	return nil, err
}

// RewriteExpr returns the rewritten form of e. A nil expression stays nil.
func (rw *Rewriter) RewriteExpr(e Expr) (Expr, error) {
	if e == nil {
		return nil, nil
	}
	n, err := rw.rebuild(e)
	if err != nil {
		return nil, err
	}
	if rw.OnExpr == nil {
		return n, nil
	}
	return rw.OnExpr(n)
}

func (rw *Rewriter) rewriteList(es []Expr) ([]Expr, error) {
	if es == nil {
		return nil, nil
	}
	out := make([]Expr, len(es))
	for i, e := range es {
		var err error
		if out[i], err = rw.RewriteExpr(e); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// rebuild copies e with rewritten children.
func (rw *Rewriter) rebuild(e Expr) (Expr, error) {
	var err error
	switch v := e.(type) {
	case *Ident:
		n := *v
		return &n, nil
	case *This:
		n := *v
		return &n, nil
	case *Literal:
		n := *v
		return &n, nil
	case *FuncRef:
		n := *v
		return &n, nil
	case *FieldAccess:
		n := *v
		if n.X, err = rw.RewriteExpr(v.X); err != nil {
			return nil, err
		}
		return &n, nil
	case *Unary:
		n := *v
		if n.X, err = rw.RewriteExpr(v.X); err != nil {
			return nil, err
		}
		return &n, nil
	case *Binary:
		n := *v
		if n.L, err = rw.RewriteExpr(v.L); err != nil {
			return nil, err
		}
		if n.R, err = rw.RewriteExpr(v.R); err != nil {
			return nil, err
		}
		return &n, nil
	case *Call:
		n := *v
		if n.Recv, err = rw.RewriteExpr(v.Recv); err != nil {
			return nil, err
		}
		if n.Args, err = rw.rewriteList(v.Args); err != nil {
			return nil, err
		}
		return &n, nil
	case *Construct:
		n := *v
		if n.Args, err = rw.rewriteList(v.Args); err != nil {
			return nil, err
		}
		return &n, nil
	case *Cast:
		n := *v
		if n.X, err = rw.RewriteExpr(v.X); err != nil {
			return nil, err
		}
		return &n, nil
	case *ArrayLit:
		n := *v
		if n.Items, err = rw.rewriteList(v.Items); err != nil {
			return nil, err
		}
		return &n, nil
	case *Box:
		n := *v
		if n.X, err = rw.RewriteExpr(v.X); err != nil {
			return nil, err
		}
		return &n, nil
	case *Comma:
		n := *v
		if n.Exprs, err = rw.rewriteList(v.Exprs); err != nil {
			return nil, err
		}
		return &n, nil
	default:
		return nil, fmt.Errorf("ir: unknown expression %T", e)
	}
}
