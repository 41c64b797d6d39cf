// Package lower rewrites mangled declarations into their flat form.
//
// The stages run in order on a unit's declaration list, each returning a
// new list and leaving its input untouched:
//
//	Aggregates      members become free functions with an explicit receiver,
//	                and every call and function reference is resolved
//	SpecialMembers  constructions become allocate-then-initialize sequences
//	                and destroy statements become finalizer calls
//	Variadics       variadic tails become a count and an array parameter
package lower

import (
	"github.com/roach88/flatc/internal/diag"
	"github.com/roach88/flatc/internal/ir"
)

// Aggregates lowers every member function to a free function whose first
// parameter is a pointer to the owner, named _this. The pointer is const
// for const receivers. Inside member bodies the implicit receiver becomes
// *_this. Every call and function reference in every body is resolved to
// its target's flat name, and arguments are adapted to the passing mode of
// the selected parameters.
//
// Aggregates themselves keep their fields in declaration order.
func Aggregates(decls []ir.Decl) ([]ir.Decl, error) {
	ov := indexFunctions(decls)
	out := make([]ir.Decl, 0, len(decls))
	for _, d := range decls {
		switch v := d.(type) {
		case *ir.Aggregate:
			c := *v
			c.Fields = append([]ir.Field(nil), v.Fields...)
			out = append(out, &c)
		case *ir.Function:
			f, err := lowerMember(v, ov)
			if err != nil {
				return nil, err
			}
			out = append(out, f)
		case *ir.Alias:
			c := *v
			out = append(out, &c)
		}
	}
	return out, nil
}

// receiverType is the type of the explicit receiver of f.
func receiverType(f *ir.Function) ir.Pointer {
	owner := f.OwnerType()
	owner.Const = f.ConstReceiver
	return ir.Pointer{Elem: owner, Depth: 1}
}

func lowerMember(f *ir.Function, ov *overloads) (*ir.Function, error) {
	out := f.Clone()
	if f.HasReceiver() {
		recv := ir.Param{Name: ir.ReceiverName, Type: receiverType(f)}
		out.Params = append([]ir.Param{recv}, f.Params...)
	}
	if f.Body == nil {
		return out, nil
	}

	rw := &ir.Rewriter{OnExpr: func(e ir.Expr) (ir.Expr, error) {
		switch v := e.(type) {
		case *ir.This:
			if !f.HasReceiver() {
				return nil, &diag.Error{
					Kind:    diag.KindInvalidInput,
					Message: "receiver used outside a member function",
					Site:    diag.SiteOf(f),
				}
			}
			return ir.Deref(&ir.Ident{Name: ir.ReceiverName, Typ: receiverType(f)}), nil
		case *ir.Call:
			return resolveCall(f, v, ov)
		case *ir.FuncRef:
			return resolveFuncRef(f, v, ov)
		}
		return e, nil
	}}

	body, err := rw.RewriteBlock(f.Body)
	if err != nil {
		return nil, err
	}
	out.Body = body
	return out, nil
}

// resolveCall selects the target of c. Method calls pass their receiver
// as the first argument, by address when the receiver is a value.
func resolveCall(site *ir.Function, c *ir.Call, ov *overloads) (ir.Expr, error) {
	if c.Target != "" {
		return c, nil
	}

	if c.Recv == nil {
		target, err := pick(site, c.Func, ov.free(c.Func), nil, c.Args)
		if err != nil {
			return nil, err
		}
		return &ir.Call{Func: c.Func, Args: adaptArgs(target, c.Args), Typ: target.Return, Target: target.Flat}, nil
	}

	agg, ok := receiverAggregate(c.Recv.Type())
	if !ok {
		return nil, diag.NewUnresolvedOverload(site, describeCall(c.Func, nil, c.Args)+" on a non-aggregate receiver", nil)
	}
	target, err := pick(site, c.Func, ov.methods(agg.Name, c.Func), &agg, c.Args)
	if err != nil {
		return nil, err
	}
	args := append([]ir.Expr{adaptReceiver(c.Recv)}, adaptArgs(target, c.Args)...)
	return &ir.Call{Func: c.Func, Args: args, Typ: target.Return, Target: target.Flat}, nil
}

// resolveFuncRef selects the function whose signature matches the pointer
// type of r. Member functions match with their receiver pointer as the
// first parameter. A reference without a return type accepts the only
// candidate of that name.
func resolveFuncRef(site *ir.Function, r *ir.FuncRef, ov *overloads) (ir.Expr, error) {
	if r.Target != "" {
		return r, nil
	}

	cands := ov.free(r.Func)
	if r.Owner != "" {
		cands = ov.methods(r.Owner, r.Func)
	}

	var match []*ir.Function
	for _, f := range cands {
		if (r.Typ.Return == nil && len(cands) == 1) || ir.Equal(pointerSignature(f), r.Typ) {
			match = append(match, f)
		}
	}
	name := r.Func
	if r.Owner != "" {
		name = r.Owner + "::" + r.Func
	}
	switch len(match) {
	case 0:
		return nil, diag.NewUnresolvedOverload(site, "&"+name+" as "+r.Typ.String(), describeAll(cands))
	case 1:
		return &ir.FuncRef{Func: r.Func, Owner: r.Owner, Typ: pointerSignature(match[0]), Target: match[0].Flat}, nil
	default:
		return nil, diag.NewAmbiguousOverload(site, "&"+name, describeAll(match))
	}
}

// pointerSignature is the function pointer type of f after lowering.
func pointerSignature(f *ir.Function) ir.FuncPtr {
	sig := f.Signature()
	if f.HasReceiver() && (len(f.Params) == 0 || f.Params[0].Name != ir.ReceiverName) {
		sig.Params = append([]ir.Type{receiverType(f)}, sig.Params...)
	}
	return sig
}
