// Package mangle assigns flat names to declarations.
//
// Every flat name starts with the reserved prefix "_E". Identifiers are
// length-prefixed, so a token can never run into its neighbour:
//
//	builtin            B<n><name>          int         -> B3int
//	class/struct/union C|S|U<n><name>      class Foo   -> C3Foo
//	const              K<type>             const int   -> KB3int
//	pointer            P per level         ptr ptr int -> PPB3int
//	mutable reference  R<type>             ref int     -> RB3int
//	const reference    r<type>             const ref   -> rB3int
//	array              A<type>             array str   -> AB3str
//	erased             X                   any         -> X
//	function pointer   Q<count><params><return>
//
// Declarations:
//
//	aggregate    _E<aggregate>
//	function     _EF<n><name><params>[V[<elem>]]
//	method       _E<owner>[K]F<n><name><params>[V[<elem>]]
//	initializer  _E<owner>I<params>[V[<elem>]]
//	finalizer    _E<owner>D
//
// The receiver is never encoded as a parameter and return types appear
// only inside function pointer tokens. Declarations with C linkage, type
// aliases and the entry point main keep their source names.
package mangle

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/roach88/flatc/internal/ir"
)

// Prefix starts every mangled name.
const Prefix = ir.ReservedPrefix

// Token letters. Type tokens and declaration markers never share a letter
// at a position where both could appear.
const (
	tokBuiltin   = 'B'
	tokClass     = 'C'
	tokStruct    = 'S'
	tokUnion     = 'U'
	tokConst     = 'K'
	tokPointer   = 'P'
	tokRef       = 'R'
	tokConstRef  = 'r'
	tokArray     = 'A'
	tokErased    = 'X'
	tokFuncPtr   = 'Q'
	tokFunction  = 'F'
	tokInit      = 'I'
	tokFinal     = 'D'
	tokVariadic  = 'V'
	entryPoint   = "main"
	unknownToken = "?"
)

var kindTokens = map[ir.AggregateKind]byte{
	ir.KindClass:  tokClass,
	ir.KindStruct: tokStruct,
	ir.KindUnion:  tokUnion,
}

// Mangle returns the flat name of d. It is pure: the result depends only
// on d's kind, owner, name, role, receiver constness, parameter types and
// variadic tail.
func Mangle(d ir.Decl) string {
	switch v := d.(type) {
	case *ir.Aggregate:
		if v.Linkage == ir.LinkageC {
			return v.Name
		}
		return Prefix + aggregateToken(v.Kind, v.Name)
	case *ir.Function:
		return mangleFunction(v)
	case *ir.Alias:
		return v.Name
	default:
		panic(fmt.Sprintf("mangle: unknown declaration %T", d))
	}
}

// KeepsSourceName reports whether d is exempt from mangling.
func KeepsSourceName(d ir.Decl) bool {
	switch v := d.(type) {
	case *ir.Aggregate:
		return v.Linkage == ir.LinkageC
	case *ir.Function:
		return v.Linkage == ir.LinkageC || isEntryPoint(v)
	default:
		return true
	}
}

func isEntryPoint(f *ir.Function) bool {
	return f.Owner == "" && f.Role == ir.RoleFree && f.Name == entryPoint
}

func mangleFunction(f *ir.Function) string {
	if f.Linkage == ir.LinkageC || isEntryPoint(f) {
		return f.Name
	}

	var b strings.Builder
	b.WriteString(Prefix)
	switch f.Role {
	case ir.RoleFree:
		b.WriteByte(tokFunction)
		writeIdent(&b, f.Name)
	case ir.RoleMethod:
		b.WriteString(aggregateToken(f.OwnerKind, f.Owner))
		if f.ConstReceiver {
			b.WriteByte(tokConst)
		}
		b.WriteByte(tokFunction)
		writeIdent(&b, f.Name)
	case ir.RoleConstructor:
		b.WriteString(aggregateToken(f.OwnerKind, f.Owner))
		b.WriteByte(tokInit)
	case ir.RoleDestructor:
		b.WriteString(aggregateToken(f.OwnerKind, f.Owner))
		b.WriteByte(tokFinal)
		return b.String()
	}

	for _, p := range f.Params {
		writeType(&b, p.Type)
	}
	if f.Variadic != nil {
		b.WriteByte(tokVariadic)
		if f.Variadic.Explicit && f.Variadic.Elem != nil {
			writeType(&b, f.Variadic.Elem)
		}
	}
	return b.String()
}

// MangleType returns the token of t.
func MangleType(t ir.Type) string {
	var b strings.Builder
	writeType(&b, t)
	return b.String()
}

func aggregateToken(kind ir.AggregateKind, name string) string {
	var b strings.Builder
	b.WriteByte(kindTokens[kind])
	writeIdent(&b, name)
	return b.String()
}

func writeIdent(b *strings.Builder, name string) {
	b.WriteString(strconv.Itoa(len(name)))
	b.WriteString(name)
}

func writeType(b *strings.Builder, t ir.Type) {
	switch v := ir.Canonical(t).(type) {
	case ir.Builtin:
		if v.Const {
			b.WriteByte(tokConst)
		}
		b.WriteByte(tokBuiltin)
		writeIdent(b, v.Name)
	case ir.Named:
		if v.Const {
			b.WriteByte(tokConst)
		}
		b.WriteString(aggregateToken(v.Kind, v.Name))
	case ir.Pointer:
		b.WriteString(strings.Repeat(string(rune(tokPointer)), v.Depth))
		writeType(b, v.Elem)
	case ir.Reference:
		if v.Mutable {
			b.WriteByte(tokRef)
		} else {
			b.WriteByte(tokConstRef)
		}
		writeType(b, v.Elem)
	case ir.Array:
		b.WriteByte(tokArray)
		writeType(b, v.Elem)
	case ir.Erased:
		b.WriteByte(tokErased)
	case ir.FuncPtr:
		b.WriteByte(tokFuncPtr)
		b.WriteString(strconv.Itoa(len(v.Params)))
		for _, p := range v.Params {
			writeType(b, p)
		}
		writeType(b, v.Return)
	default:
		// Validation rejects missing types before mangling.
		b.WriteString(unknownToken)
	}
}
