package ir

import (
	"fmt"
	"strings"
)

// Type is a sealed interface over the closed set of type variants.
// Only Builtin, Named, Pointer, Reference, Array, Erased and FuncPtr implement it.
type Type interface {
	irType() // Sealed - only these types implement it
	String() string
}

// AggregateKind distinguishes class, struct and union aggregates.
type AggregateKind string

const (
	KindClass  AggregateKind = "class"
	KindStruct AggregateKind = "struct"
	KindUnion  AggregateKind = "union"
)

// ValidAggregateKinds defines allowed aggregate kinds.
var ValidAggregateKinds = map[AggregateKind]bool{
	KindClass:  true,
	KindStruct: true,
	KindUnion:  true,
}

// Builtin is a language builtin such as int or str.
type Builtin struct {
	Name  string
	Const bool
}

func (Builtin) irType() {}

// Named refers to a class, struct or union by name.
type Named struct {
	Kind  AggregateKind
	Name  string
	Const bool
}

func (Named) irType() {}

// Pointer is a raw pointer with Depth levels of indirection.
type Pointer struct {
	Elem  Type
	Depth int
}

func (Pointer) irType() {}

// Reference is a reference to Elem. A reference that is not Mutable
// is a const reference.
type Reference struct {
	Elem    Type
	Mutable bool
}

func (Reference) irType() {}

// Array is an unsized array of Elem.
type Array struct {
	Elem Type
}

func (Array) irType() {}

// Erased is the type-erased "any".
type Erased struct{}

func (Erased) irType() {}

// FuncPtr is a pointer to a function with the given signature.
type FuncPtr struct {
	Params []Type
	Return Type
}

func (FuncPtr) irType() {}

// BuiltinInfo describes one entry of the builtin catalog.
type BuiltinInfo struct {
	Name  string // front-language name
	CType string // spelling in the flat target
}

// Builtins is the closed builtin catalog keyed by front-language name.
var Builtins = map[string]BuiltinInfo{
	"void":   {"void", "void"},
	"char":   {"char", "int8_t"},
	"int":    {"int", "int32_t"},
	"int8":   {"int8", "int8_t"},
	"int16":  {"int16", "int16_t"},
	"int32":  {"int32", "int32_t"},
	"int64":  {"int64", "int64_t"},
	"uint8":  {"uint8", "uint8_t"},
	"uint16": {"uint16", "uint16_t"},
	"uint32": {"uint32", "uint32_t"},
	"uint64": {"uint64", "uint64_t"},
	"size":   {"size", "size_t"},
	"bool":   {"bool", "uint8_t"},
	"str":    {"str", "char*"},
	"float":  {"float", "float"},
	"double": {"double", "double"},
}

// Common builtin values.
var (
	Void = Builtin{Name: "void"}
	Int  = Builtin{Name: "int"}
	Str  = Builtin{Name: "str"}
	Bool = Builtin{Name: "bool"}
	Size = Builtin{Name: "size"}
)

// PointerTo returns a pointer of the given depth to elem, collapsing
// nested pointers. A depth of zero returns elem unchanged.
func PointerTo(elem Type, depth int) Type {
	if depth <= 0 {
		return elem
	}
	if p, ok := elem.(Pointer); ok {
		return Pointer{Elem: p.Elem, Depth: p.Depth + depth}
	}
	return Pointer{Elem: elem, Depth: depth}
}

// IsVoid reports whether t is the void builtin.
func IsVoid(t Type) bool {
	b, ok := t.(Builtin)
	return ok && b.Name == "void"
}

// IsConst reports whether t carries a top-level const qualifier.
func IsConst(t Type) bool {
	switch v := t.(type) {
	case Builtin:
		return v.Const
	case Named:
		return v.Const
	default:
		return false
	}
}

// WithConst returns t with its top-level const qualifier set to c.
// Types that cannot carry a qualifier are returned unchanged.
func WithConst(t Type, c bool) Type {
	switch v := t.(type) {
	case Builtin:
		v.Const = c
		return v
	case Named:
		v.Const = c
		return v
	default:
		return t
	}
}

// Canonical returns the normal form of t used for equality and mangling:
// nested pointers are collapsed, zero-depth pointers removed, and a
// reference to a const element becomes a const reference.
func Canonical(t Type) Type {
	switch v := t.(type) {
	case Pointer:
		elem := Canonical(v.Elem)
		return PointerTo(elem, v.Depth)
	case Reference:
		elem := Canonical(v.Elem)
		mutable := v.Mutable
		if IsConst(elem) {
			mutable = false
		}
		if !mutable {
			elem = WithConst(elem, false)
		}
		return Reference{Elem: elem, Mutable: mutable}
	case Array:
		return Array{Elem: Canonical(v.Elem)}
	case FuncPtr:
		params := make([]Type, len(v.Params))
		for i, p := range v.Params {
			params[i] = Canonical(p)
		}
		return FuncPtr{Params: params, Return: Canonical(v.Return)}
	default:
		return t
	}
}

// Equal reports whether a and b are structurally equal after
// canonicalization.
func Equal(a, b Type) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return equalCanonical(Canonical(a), Canonical(b))
}

func equalCanonical(a, b Type) bool {
	switch x := a.(type) {
	case Builtin:
		y, ok := b.(Builtin)
		return ok && x == y
	case Named:
		y, ok := b.(Named)
		return ok && x == y
	case Pointer:
		y, ok := b.(Pointer)
		return ok && x.Depth == y.Depth && equalCanonical(x.Elem, y.Elem)
	case Reference:
		y, ok := b.(Reference)
		return ok && x.Mutable == y.Mutable && equalCanonical(x.Elem, y.Elem)
	case Array:
		y, ok := b.(Array)
		return ok && equalCanonical(x.Elem, y.Elem)
	case Erased:
		_, ok := b.(Erased)
		return ok
	case FuncPtr:
		y, ok := b.(FuncPtr)
		if !ok || len(x.Params) != len(y.Params) || !equalCanonical(x.Return, y.Return) {
			return false
		}
		for i := range x.Params {
			if !equalCanonical(x.Params[i], y.Params[i]) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

// EqualUnqualified compares a and b ignoring their top-level const.
func EqualUnqualified(a, b Type) bool {
	return Equal(WithConst(a, false), WithConst(b, false))
}

// SlotType returns the element representation used when values of t are
// stored in a variadic argument array. Aggregates travel by pointer.
func SlotType(t Type) Type {
	switch v := t.(type) {
	case Named:
		return Pointer{Elem: v, Depth: 1}
	case Erased:
		return v
	default:
		return Canonical(t)
	}
}

// Boxable reports whether values of t have a boxed erased representation.
func Boxable(t Type) bool {
	switch t.(type) {
	case FuncPtr:
		return false
	default:
		return !IsVoid(t)
	}
}

// NotViable is the conversion cost of an argument that cannot be passed.
const NotViable = -1

// Conversion costs returned by Assignable.
const (
	CostExact   = 0
	CostQualify = 1
	CostErase   = 2
)

// Assignable returns the cost of passing an argument of type arg to a
// parameter of type param, or NotViable.
func Assignable(param, arg Type) int {
	param, arg = Canonical(param), Canonical(arg)
	if equalCanonical(param, arg) {
		return CostExact
	}

	switch p := param.(type) {
	case Builtin, Named:
		// By-value copies drop the qualifier of either side.
		if EqualUnqualified(p, arg) {
			return CostQualify
		}
	case Reference:
		switch a := arg.(type) {
		case Reference:
			if equalCanonical(p.Elem, a.Elem) && (!p.Mutable || a.Mutable) {
				return CostQualify
			}
		default:
			if p.Mutable && IsConst(a) {
				return NotViable
			}
			if EqualUnqualified(p.Elem, a) {
				return CostQualify
			}
		}
	case Pointer:
		switch a := arg.(type) {
		case Pointer:
			// Adding const to the pointee is allowed, dropping it is not.
			if p.Depth == a.Depth && EqualUnqualified(p.Elem, a.Elem) && (IsConst(p.Elem) || !IsConst(a.Elem)) {
				return CostQualify
			}
		case Erased:
			return CostErase
		}
	case Erased:
		if Boxable(arg) {
			return CostErase
		}
	}
	return NotViable
}

// String renders t in the type-expression notation, e.g. "const ref int".
func (b Builtin) String() string {
	if b.Const {
		return "const " + b.Name
	}
	return b.Name
}

func (n Named) String() string {
	s := string(n.Kind) + " " + n.Name
	if n.Const {
		return "const " + s
	}
	return s
}

func (p Pointer) String() string {
	return strings.Repeat("ptr ", p.Depth) + typeString(p.Elem)
}

func (r Reference) String() string {
	if r.Mutable {
		return "ref " + typeString(r.Elem)
	}
	return "const ref " + typeString(WithConst(r.Elem, false))
}

func (a Array) String() string {
	return "array " + typeString(a.Elem)
}

func (Erased) String() string {
	return "any"
}

func (f FuncPtr) String() string {
	parts := make([]string, len(f.Params))
	for i, p := range f.Params {
		parts[i] = typeString(p)
	}
	return fmt.Sprintf("func(%s) %s", strings.Join(parts, ", "), typeString(f.Return))
}

func typeString(t Type) string {
	if t == nil {
		return "<nil>"
	}
	return t.String()
}

// Mentions calls fn for every aggregate named anywhere inside t, with
// byValue set when the aggregate is held directly rather than behind a
// pointer, reference, array or function pointer. t is canonicalized
// first, so a zero-depth pointer holds its element by value.
func Mentions(t Type, fn func(n Named, byValue bool)) {
	mentions(Canonical(t), true, fn)
}

func mentions(t Type, byValue bool, fn func(Named, bool)) {
	switch v := t.(type) {
	case Named:
		fn(v, byValue)
	case Pointer:
		mentions(v.Elem, false, fn)
	case Reference:
		mentions(v.Elem, false, fn)
	case Array:
		mentions(v.Elem, false, fn)
	case FuncPtr:
		for _, p := range v.Params {
			mentions(p, false, fn)
		}
		mentions(v.Return, false, fn)
	}
}
