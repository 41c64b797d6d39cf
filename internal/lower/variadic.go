package lower

import (
	"strconv"

	"github.com/roach88/flatc/internal/diag"
	"github.com/roach88/flatc/internal/ir"
)

// Variadics replaces every variadic tail with two trailing parameters: a
// count named <tail>_len and an array named <tail>. Both implicit and
// explicit tails converge on this shape.
//
// An explicit tail keeps its declared element type. An implicit tail takes
// the one type shared by every tail argument at every call site of the
// function, or the erased type when call sites disagree or pass nothing.
// The array holds SlotType(elem): aggregates travel by pointer.
//
// Each call site passes its tail as a count literal and an array literal of
// exactly that many elements. Arguments of an erased tail are boxed; an
// argument with no boxed form is a MalformedVariadic.
func Variadics(decls []ir.Decl) ([]ir.Decl, error) {
	tails := make(map[string]*ir.Function)
	for _, f := range ir.Functions(decls) {
		if f.Variadic != nil {
			tails[f.Flat] = f
		}
	}
	if len(tails) == 0 {
		return append([]ir.Decl(nil), decls...), nil
	}

	elems, err := inferElems(decls, tails)
	if err != nil {
		return nil, err
	}

	out := make([]ir.Decl, 0, len(decls))
	for _, d := range decls {
		f, ok := d.(*ir.Function)
		if !ok {
			out = append(out, d)
			continue
		}
		lowered := f.Clone()
		if f.Variadic != nil {
			elem := elems[f.Flat]
			lowered.Params = append(lowered.Params,
				ir.Param{Name: f.Variadic.LenName(), Type: ir.Int},
				ir.Param{Name: f.Variadic.Name, Type: ir.Array{Elem: ir.SlotType(elem)}},
			)
			lowered.Variadic = nil
		}
		if f.Body != nil {
			rw := &ir.Rewriter{OnExpr: func(e ir.Expr) (ir.Expr, error) {
				return rewriteTailCall(f, e, tails, elems)
			}}
			if lowered.Body, err = rw.RewriteBlock(f.Body); err != nil {
				return nil, err
			}
		}
		out = append(out, lowered)
	}
	return out, nil
}

// inferElems returns the element type of every variadic function, keyed by
// flat name.
func inferElems(decls []ir.Decl, tails map[string]*ir.Function) (map[string]ir.Type, error) {
	elems := make(map[string]ir.Type, len(tails))
	mixed := make(map[string]bool)
	for flat, f := range tails {
		if f.Variadic.Explicit && f.Variadic.Elem != nil {
			elems[flat] = f.Variadic.Elem
		}
	}

	for _, caller := range ir.Functions(decls) {
		ir.Inspect(caller.Body, func(e ir.Expr) bool {
			c, ok := e.(*ir.Call)
			if !ok {
				return true
			}
			f, ok := tails[c.Target]
			if !ok || f.Variadic.Explicit || mixed[c.Target] {
				return true
			}
			for _, a := range tailArgs(f, c) {
				t := ir.WithConst(ir.Canonical(valueType(a.Type())), false)
				prev, seen := elems[c.Target]
				switch {
				case !seen:
					elems[c.Target] = t
				case !ir.Equal(prev, t):
					mixed[c.Target] = true
				}
			}
			return true
		})
	}

	// Declaration order keeps the reported error stable.
	for _, f := range ir.Functions(decls) {
		flat := f.Flat
		if _, ok := tails[flat]; !ok {
			continue
		}
		if mixed[flat] {
			elems[flat] = ir.Erased{}
			continue
		}
		elem, ok := elems[flat]
		if !ok {
			elems[flat] = ir.Erased{}
			continue
		}
		if ir.IsVoid(elem) {
			return nil, diag.NewMalformedVariadic(f, "variadic tail %s of %s receives void arguments", f.Variadic.Name, f.DeclName())
		}
	}
	return elems, nil
}

// tailArgs returns the arguments of a resolved call that belong to f's
// variadic tail.
func tailArgs(f *ir.Function, c *ir.Call) []ir.Expr {
	if len(c.Args) <= len(f.Params) {
		return nil
	}
	return c.Args[len(f.Params):]
}

func rewriteTailCall(site *ir.Function, e ir.Expr, tails map[string]*ir.Function, elems map[string]ir.Type) (ir.Expr, error) {
	c, ok := e.(*ir.Call)
	if !ok {
		return e, nil
	}
	f, ok := tails[c.Target]
	if !ok {
		return e, nil
	}

	elem := elems[c.Target]
	slot := ir.SlotType(elem)
	tail := tailArgs(f, c)
	items := make([]ir.Expr, len(tail))
	for i, a := range tail {
		item, err := tailItem(site, f, elem, a)
		if err != nil {
			return nil, err
		}
		items[i] = item
	}

	fixed := len(c.Args) - len(tail)
	args := make([]ir.Expr, 0, fixed+2)
	args = append(args, c.Args[:fixed]...)
	args = append(args,
		&ir.Literal{Value: strconv.Itoa(len(items)), Typ: ir.Int},
		&ir.ArrayLit{Elem: slot, Items: items},
	)
	out := *c
	out.Args = args
	return &out, nil
}

// tailItem converts one tail argument to the array's slot representation.
func tailItem(site, f *ir.Function, elem ir.Type, arg ir.Expr) (ir.Expr, error) {
	argType := arg.Type()
	switch elem.(type) {
	case ir.Erased:
		if _, ok := ir.Canonical(argType).(ir.Erased); ok {
			return arg, nil
		}
		if argType == nil || !ir.Boxable(valueType(argType)) {
			return nil, diag.NewMalformedVariadic(site, "argument of type %s to variadic tail %s of %s has no erased form",
				argType, f.Variadic.Name, f.DeclName())
		}
		return &ir.Box{X: arg}, nil
	case ir.Named:
		if _, ok := ir.Canonical(argType).(ir.Named); ok {
			return ir.AddrOf(arg), nil
		}
		return arg, nil
	}
	if argCost(elem, argType) == ir.NotViable {
		return nil, diag.NewMalformedVariadic(site, "argument of type %s does not fit variadic tail %s of %s (%s)",
			argType, f.Variadic.Name, f.DeclName(), elem)
	}
	return arg, nil
}
