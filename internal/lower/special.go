package lower

import (
	"fmt"

	"github.com/roach88/flatc/internal/diag"
	"github.com/roach88/flatc/internal/ir"
)

// TempPrefix starts the names of locals synthesized for temporaries.
const TempPrefix = ir.ReservedPrefix + "tmp"

// SpecialMembers replaces constructors and destructors with their
// initializer and finalizer calls. Constructors and destructors lowered by
// Aggregates already are those functions; this stage rewrites their uses:
//
//   - a construction in expression position allocates one local per
//     construction, hoisted to the top of the function, and becomes
//     (init(&tmp, args...), tmp)
//   - a local initialized by a construction is initialized in place
//   - a destroy statement calls the finalizer, or disappears when the
//     aggregate has none
//
// Aggregates without constructors accept an empty construction or one
// argument per field. A construction matching no constructor is an
// UnresolvedOverload.
func SpecialMembers(decls []ir.Decl) ([]ir.Decl, error) {
	s := &synthesizer{
		ov:   indexFunctions(decls),
		aggs: ir.Aggregates(decls),
	}
	out := make([]ir.Decl, 0, len(decls))
	for _, d := range decls {
		f, ok := d.(*ir.Function)
		if !ok || f.Body == nil {
			out = append(out, d)
			continue
		}
		lowered, err := s.function(f)
		if err != nil {
			return nil, err
		}
		out = append(out, lowered)
	}
	return out, nil
}

type synthesizer struct {
	ov   *overloads
	aggs map[string]*ir.Aggregate

	// per-function state
	site  *ir.Function
	temps []ir.Stmt
}

func (s *synthesizer) function(f *ir.Function) (*ir.Function, error) {
	s.site, s.temps = f, nil

	rw := &ir.Rewriter{OnExpr: s.expr, OnStmt: s.stmt}
	body, err := rw.RewriteBlock(f.Body)
	if err != nil {
		return nil, err
	}

	out := f.Clone()
	if f.Role == ir.RoleConstructor || f.Role == ir.RoleDestructor {
		out.Return = ir.Void
	}
	out.Body = &ir.Block{Stmts: append(s.temps, body.Stmts...)}
	return out, nil
}

func (s *synthesizer) newTemp(t ir.Named) *ir.Ident {
	name := fmt.Sprintf("%s%d", TempPrefix, len(s.temps))
	s.temps = append(s.temps, &ir.Local{Name: name, Typ: t})
	return &ir.Ident{Name: name, Typ: t}
}

func (s *synthesizer) expr(e ir.Expr) (ir.Expr, error) {
	switch v := e.(type) {
	case *ir.Construct:
		tmp := s.newTemp(v.Typ)
		inits, err := s.initialize(tmp, v)
		if err != nil {
			return nil, err
		}
		return &ir.Comma{Exprs: append(inits, tmp)}, nil
	case *ir.Unary:
		// The address of a rewritten construction is the address of its
		// temporary.
		if c, ok := v.X.(*ir.Comma); ok && v.Op == "&" {
			return ir.AddrOf(c), nil
		}
	}
	return e, nil
}

func (s *synthesizer) stmt(st ir.Stmt, rw *ir.Rewriter) ([]ir.Stmt, bool, error) {
	switch v := st.(type) {
	case *ir.Local:
		c, ok := v.Init.(*ir.Construct)
		if !ok || !ir.EqualUnqualified(c.Typ, v.Typ) {
			return nil, false, nil
		}
		args := make([]ir.Expr, len(c.Args))
		for i, a := range c.Args {
			var err error
			if args[i], err = rw.RewriteExpr(a); err != nil {
				return nil, false, err
			}
		}
		target := &ir.Ident{Name: v.Name, Typ: v.Typ}
		inits, err := s.initialize(target, &ir.Construct{Typ: c.Typ, Args: args})
		if err != nil {
			return nil, false, err
		}
		out := []ir.Stmt{&ir.Local{Name: v.Name, Typ: v.Typ}}
		for _, init := range inits {
			out = append(out, &ir.ExprStmt{X: init})
		}
		return out, true, nil

	case *ir.Destroy:
		x, err := rw.RewriteExpr(v.X)
		if err != nil {
			return nil, false, err
		}
		call, err := s.finalize(x)
		if err != nil {
			return nil, false, err
		}
		if call == nil {
			return nil, true, nil
		}
		return []ir.Stmt{&ir.ExprStmt{X: call}}, true, nil
	}
	return nil, false, nil
}

// initialize returns the expressions that initialize target, an lvalue of
// the constructed aggregate type.
func (s *synthesizer) initialize(target ir.Expr, c *ir.Construct) ([]ir.Expr, error) {
	if ctors := s.ov.constructors(c.Typ.Name); len(ctors) > 0 {
		ctor, err := pick(s.site, c.Typ.Name, ctors, nil, c.Args)
		if err != nil {
			return nil, err
		}
		args := append([]ir.Expr{ir.AddrOf(target)}, adaptArgs(ctor, c.Args)...)
		return []ir.Expr{&ir.Call{Func: c.Typ.Name, Args: args, Typ: ir.Void, Target: ctor.Flat}}, nil
	}

	if len(c.Args) == 0 {
		return nil, nil
	}
	agg := s.aggs[c.Typ.Name]
	if agg == nil || agg.Opaque {
		return nil, diag.NewUnresolvedOverload(s.site, describeCall(c.Typ.String(), nil, c.Args)+" of an incomplete aggregate", nil)
	}

	// Field-by-field initialization; a union initializes its first field.
	fields := agg.Fields
	if agg.Kind == ir.KindUnion && len(fields) > 1 {
		fields = fields[:1]
	}
	if len(c.Args) != len(fields) {
		return nil, diag.NewUnresolvedOverload(s.site, describeCall(c.Typ.String(), nil, c.Args), []string{fieldwise(agg, fields)})
	}
	inits := make([]ir.Expr, len(fields))
	for i, f := range fields {
		if argCost(f.Type, c.Args[i].Type()) == ir.NotViable {
			return nil, diag.NewUnresolvedOverload(s.site, describeCall(c.Typ.String(), nil, c.Args), []string{fieldwise(agg, fields)})
		}
		inits[i] = &ir.Binary{
			Op:  "=",
			L:   &ir.FieldAccess{X: target, Field: f.Name, Typ: f.Type},
			R:   adaptArg(f.Type, c.Args[i]),
			Typ: f.Type,
		}
	}
	return inits, nil
}

// finalize returns the finalizer call for x, or nil when the aggregate has
// no destructor.
func (s *synthesizer) finalize(x ir.Expr) (ir.Expr, error) {
	agg, ok := receiverAggregate(x.Type())
	if !ok {
		return nil, diag.NewUnresolvedOverload(s.site, fmt.Sprintf("destroy of %s", x.Type()), nil)
	}
	dtor := s.ov.destructor(agg.Name)
	if dtor == nil {
		return nil, nil
	}
	return &ir.Call{Func: "~" + agg.Name, Args: []ir.Expr{adaptReceiver(x)}, Typ: ir.Void, Target: dtor.Flat}, nil
}

func fieldwise(agg *ir.Aggregate, fields []ir.Field) string {
	parts := make([]ir.Expr, len(fields))
	for i, f := range fields {
		parts[i] = &ir.Ident{Name: f.Name, Typ: f.Type}
	}
	return describeCall(agg.Type().String(), nil, parts)
}
