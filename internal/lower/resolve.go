package lower

import (
	"fmt"
	"strings"

	"github.com/roach88/flatc/internal/diag"
	"github.com/roach88/flatc/internal/ir"
)

// variadicPenalty ranks every viable variadic candidate behind every
// viable fixed-arity one.
const variadicPenalty = 1000

type overloadKey struct {
	owner string
	name  string
	role  ir.Role
}

// overloads indexes the functions of a unit for call resolution.
type overloads struct {
	byKey  map[overloadKey][]*ir.Function
	byFlat map[string]*ir.Function
}

func indexFunctions(decls []ir.Decl) *overloads {
	o := &overloads{
		byKey:  make(map[overloadKey][]*ir.Function),
		byFlat: make(map[string]*ir.Function),
	}
	for _, f := range ir.Functions(decls) {
		name := f.Name
		if f.Role == ir.RoleConstructor || f.Role == ir.RoleDestructor {
			name = ""
		}
		k := overloadKey{owner: f.Owner, name: name, role: f.Role}
		o.byKey[k] = append(o.byKey[k], f)
		o.byFlat[f.Flat] = f
	}
	return o
}

func (o *overloads) free(name string) []*ir.Function {
	return o.byKey[overloadKey{name: name, role: ir.RoleFree}]
}

func (o *overloads) methods(owner, name string) []*ir.Function {
	return o.byKey[overloadKey{owner: owner, name: name, role: ir.RoleMethod}]
}

func (o *overloads) constructors(owner string) []*ir.Function {
	return o.byKey[overloadKey{owner: owner, role: ir.RoleConstructor}]
}

func (o *overloads) destructor(owner string) *ir.Function {
	ds := o.byKey[overloadKey{owner: owner, role: ir.RoleDestructor}]
	if len(ds) == 0 {
		return nil
	}
	return ds[0]
}

// declaredParams returns the parameters of f as written in the source,
// without the explicit receiver added by aggregate lowering.
func declaredParams(f *ir.Function) []ir.Param {
	if f.HasReceiver() && len(f.Params) > 0 && f.Params[0].Name == ir.ReceiverName {
		return f.Params[1:]
	}
	return f.Params
}

// valueType is the type an expression of type t has when read as a value.
func valueType(t ir.Type) ir.Type {
	if r, ok := ir.Canonical(t).(ir.Reference); ok {
		return ir.WithConst(r.Elem, !r.Mutable)
	}
	return t
}

// argCost is the cost of passing arg for param, reading references
// through when a direct match fails.
func argCost(param, arg ir.Type) int {
	if arg == nil {
		return ir.NotViable
	}
	c := ir.Assignable(param, arg)
	if _, isRef := ir.Canonical(arg).(ir.Reference); isRef && c == ir.NotViable {
		c = ir.Assignable(param, valueType(arg))
	}
	return c
}

// receiverAggregate returns the aggregate an expression of type t
// designates as a method receiver, and whether it is const.
func receiverAggregate(t ir.Type) (ir.Named, bool) {
	switch v := ir.Canonical(t).(type) {
	case ir.Named:
		return v, true
	case ir.Pointer:
		if n, ok := v.Elem.(ir.Named); ok && v.Depth == 1 {
			return n, true
		}
	case ir.Reference:
		if n, ok := v.Elem.(ir.Named); ok {
			if !v.Mutable {
				n.Const = true
			}
			return n, true
		}
	}
	return ir.Named{}, false
}

// callCost scores f against a call. recv is the receiver aggregate for
// method calls. Trailing parameters with a default value may be omitted.
func callCost(f *ir.Function, recv *ir.Named, args []ir.Expr) int {
	params := declaredParams(f)
	if f.Variadic == nil && len(args) > len(params) {
		return ir.NotViable
	}
	if len(args) < len(params) {
		for _, p := range params[len(args):] {
			if p.Default == nil {
				return ir.NotViable
			}
		}
		params = params[:len(args)]
	}

	total := 0
	if recv != nil {
		if recv.Const && !f.ConstReceiver {
			return ir.NotViable
		}
		if !recv.Const && f.ConstReceiver {
			total += ir.CostQualify
		}
	}
	for i, p := range params {
		c := argCost(p.Type, args[i].Type())
		if c == ir.NotViable {
			return ir.NotViable
		}
		total += c
	}
	if f.Variadic != nil {
		total += variadicPenalty
		for _, a := range args[len(params):] {
			c := variadicCost(f.Variadic, a.Type())
			if c == ir.NotViable {
				return ir.NotViable
			}
			total += c
		}
	}
	return total
}

// variadicCost checks one tail argument. Erasure of unboxable values is
// left to variadic lowering, which reports it as a malformed tail.
func variadicCost(v *ir.VariadicSpec, arg ir.Type) int {
	if arg == nil {
		return ir.NotViable
	}
	if !v.Explicit || v.Elem == nil {
		return ir.CostExact
	}
	if _, erased := v.Elem.(ir.Erased); erased {
		return ir.CostErase
	}
	return argCost(v.Elem, arg)
}

// pick selects the cheapest viable candidate. A tie between the cheapest
// candidates is ambiguous.
func pick(site ir.Decl, call string, cands []*ir.Function, recv *ir.Named, args []ir.Expr) (*ir.Function, error) {
	best, bestCost := []*ir.Function(nil), ir.NotViable
	for _, f := range cands {
		c := callCost(f, recv, args)
		switch {
		case c == ir.NotViable:
		case bestCost == ir.NotViable || c < bestCost:
			best, bestCost = []*ir.Function{f}, c
		case c == bestCost:
			best = append(best, f)
		}
	}

	switch len(best) {
	case 1:
		return best[0], nil
	case 0:
		return nil, diag.NewUnresolvedOverload(site, describeCall(call, recv, args), describeAll(cands))
	default:
		return nil, diag.NewAmbiguousOverload(site, describeCall(call, recv, args), describeAll(best))
	}
}

// adaptArgs converts arguments to the passing mode of f's parameters:
// reference parameters take the address of their argument and erased
// parameters box it. Omitted trailing arguments take their parameter's
// default value. Tail arguments are left to variadic lowering.
func adaptArgs(f *ir.Function, args []ir.Expr) []ir.Expr {
	params := declaredParams(f)
	if len(args) < len(params) {
		args = append([]ir.Expr(nil), args...)
		for _, p := range params[len(args):] {
			args = append(args, p.Default)
		}
	}
	out := make([]ir.Expr, len(args))
	for i, a := range args {
		if i < len(params) {
			out[i] = adaptArg(params[i].Type, a)
		} else {
			out[i] = a
		}
	}
	return out
}

func adaptArg(param ir.Type, arg ir.Expr) ir.Expr {
	argType := ir.Canonical(arg.Type())
	switch p := ir.Canonical(param).(type) {
	case ir.Reference:
		if _, ok := argType.(ir.Reference); ok {
			return arg
		}
		return ir.AddrOf(arg)
	case ir.Erased:
		if _, ok := argType.(ir.Erased); ok {
			return arg
		}
		return &ir.Box{X: arg}
	case ir.Pointer:
		if _, ok := argType.(ir.Erased); ok {
			return &ir.Cast{To: p, X: arg}
		}
	}
	return arg
}

// adaptReceiver turns a receiver expression into the receiver pointer.
func adaptReceiver(recv ir.Expr) ir.Expr {
	switch ir.Canonical(recv.Type()).(type) {
	case ir.Pointer, ir.Reference:
		return recv
	default:
		return ir.AddrOf(recv)
	}
}

func describeCall(name string, recv *ir.Named, args []ir.Expr) string {
	parts := make([]string, len(args))
	for i, a := range args {
		if t := a.Type(); t != nil {
			parts[i] = t.String()
		} else {
			parts[i] = "?"
		}
	}
	if recv != nil {
		name = recv.String() + "::" + name
	}
	return fmt.Sprintf("%s(%s)", name, strings.Join(parts, ", "))
}

func describeAll(fs []*ir.Function) []string {
	out := make([]string, len(fs))
	for i, f := range fs {
		out[i] = describe(f)
	}
	return out
}

func describe(f *ir.Function) string {
	params := declaredParams(f)
	parts := make([]string, 0, len(params)+1)
	for _, p := range params {
		parts = append(parts, p.Type.String())
	}
	if f.Variadic != nil {
		parts = append(parts, "...")
	}
	s := fmt.Sprintf("%s(%s)", f.DeclName(), strings.Join(parts, ", "))
	if f.ConstReceiver {
		s += " const"
	}
	return s
}
