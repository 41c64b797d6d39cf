package ir

// Expr is a sealed interface over typed expressions. Types are supplied by
// the front end; lowering stages keep them consistent as they rewrite.
type Expr interface {
	irExpr()
	Type() Type
}

// Ident names a parameter, local or global.
type Ident struct {
	Name string
	Typ  Type
}

// This is the implicit receiver inside a member body.
type This struct {
	Typ Type // pointer to the owner
}

// Literal is a number, string, char, bool or null literal in source form.
type Literal struct {
	Value string
	Typ   Type
}

// FieldAccess reads a field of X. X may be an aggregate value or a
// pointer/reference to one.
type FieldAccess struct {
	X     Expr
	Field string
	Typ   Type
}

// Unary applies a prefix operator. "&" takes an address, "*" dereferences.
type Unary struct {
	Op  string
	X   Expr
	Typ Type
}

// Binary applies an infix operator.
type Binary struct {
	Op   string
	L, R Expr
	Typ  Type
}

// Call is a call by name. Recv is set for method calls. Target holds the
// resolved flat name once the call has been lowered; lowered calls carry
// the receiver, if any, as their first argument.
type Call struct {
	Func   string
	Recv   Expr
	Args   []Expr
	Typ    Type
	Target string
}

// Construct builds a temporary aggregate value.
type Construct struct {
	Typ  Named
	Args []Expr
}

// FuncRef takes the address of a function, selected by Typ's signature.
type FuncRef struct {
	Func   string
	Owner  string
	Typ    FuncPtr
	Target string
}

// Cast converts X to To.
type Cast struct {
	To Type
	X  Expr
}

// ArrayLit is a fixed-size array literal.
type ArrayLit struct {
	Elem  Type
	Items []Expr
}

// Box converts X to the erased representation.
type Box struct {
	X Expr
}

// Comma evaluates Exprs in order and yields the last one.
type Comma struct {
	Exprs []Expr
}

func (*Ident) irExpr()       {}
func (*This) irExpr()        {}
func (*Literal) irExpr()     {}
func (*FieldAccess) irExpr() {}
func (*Unary) irExpr()       {}
func (*Binary) irExpr()      {}
func (*Call) irExpr()        {}
func (*Construct) irExpr()   {}
func (*FuncRef) irExpr()     {}
func (*Cast) irExpr()        {}
func (*ArrayLit) irExpr()    {}
func (*Box) irExpr()         {}
func (*Comma) irExpr()       {}

func (e *Ident) Type() Type       { return e.Typ }
func (e *This) Type() Type        { return e.Typ }
func (e *Literal) Type() Type     { return e.Typ }
func (e *FieldAccess) Type() Type { return e.Typ }
func (e *Unary) Type() Type       { return e.Typ }
func (e *Binary) Type() Type      { return e.Typ }
func (e *Call) Type() Type        { return e.Typ }
func (e *Construct) Type() Type   { return e.Typ }
func (e *FuncRef) Type() Type     { return e.Typ }
func (e *Cast) Type() Type        { return e.To }
func (e *ArrayLit) Type() Type    { return Array{Elem: e.Elem} }
func (e *Box) Type() Type         { return Erased{} }

func (e *Comma) Type() Type {
	if len(e.Exprs) == 0 {
		return Void
	}
	return e.Exprs[len(e.Exprs)-1].Type()
}

// AddrOf returns an expression taking the address of e. The address of a
// comma expression is taken on its final operand.
func AddrOf(e Expr) Expr {
	switch v := e.(type) {
	case *Comma:
		exprs := append([]Expr(nil), v.Exprs...)
		exprs[len(exprs)-1] = AddrOf(exprs[len(exprs)-1])
		return &Comma{Exprs: exprs}
	case *Unary:
		if v.Op == "*" {
			return v.X
		}
	}
	return &Unary{Op: "&", X: e, Typ: PointerTo(e.Type(), 1)}
}

// Deref returns an expression dereferencing e.
func Deref(e Expr) Expr {
	var elem Type = Erased{}
	if p, ok := Canonical(e.Type()).(Pointer); ok {
		elem = PointerTo(p.Elem, p.Depth-1)
	}
	if u, ok := e.(*Unary); ok && u.Op == "&" {
		return u.X
	}
	return &Unary{Op: "*", X: e, Typ: elem}
}

// Stmt is a sealed interface over statements.
type Stmt interface {
	irStmt()
}

// Block is a braced statement list.
type Block struct {
	Stmts []Stmt
}

// Local declares a local variable with an optional initializer.
type Local struct {
	Name string
	Typ  Type
	Init Expr
}

// ExprStmt evaluates X for its effects.
type ExprStmt struct {
	X Expr
}

// Assign stores Value into Target. Op is "=" or a compound operator.
type Assign struct {
	Target Expr
	Op     string
	Value  Expr
}

// Return leaves the function, with X nil for void returns.
type Return struct {
	X Expr
}

// If is a conditional with an optional else branch.
type If struct {
	Cond Expr
	Then *Block
	Else *Block
}

// While is a pre-tested loop.
type While struct {
	Cond Expr
	Body *Block
}

// Break leaves the innermost loop.
type Break struct{}

// Destroy ends the lifetime of X, which is an aggregate value or a
// pointer to one.
type Destroy struct {
	X Expr
}

func (*Block) irStmt()    {}
func (*Local) irStmt()    {}
func (*ExprStmt) irStmt() {}
func (*Assign) irStmt()   {}
func (*Return) irStmt()   {}
func (*If) irStmt()       {}
func (*While) irStmt()    {}
func (*Break) irStmt()    {}
func (*Destroy) irStmt()  {}
