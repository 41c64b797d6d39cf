package compiler

import (
	"fmt"
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/roach88/flatc/internal/ir"
)

// Validation error codes (E100-E199)
const (
	ErrUnsupportedDecl = "E100" // declaration of unknown variant

	ErrInvalidIdentifier   = "E101" // name is not an identifier
	ErrReservedIdentifier  = "E102" // name uses the reserved prefix or receiver name
	ErrInvalidKind         = "E103" // unknown aggregate kind
	ErrInvalidType         = "E104" // malformed or unknown type
	ErrDuplicateName       = "E105" // duplicate field or parameter name, or aggregate name reused across kinds
	ErrInvalidRole         = "E106" // unknown function role
	ErrUnknownOwner        = "E107" // member owner is not a declared aggregate
	ErrUnexpectedOwner     = "E108" // free function with an owner
	ErrDestructorShape     = "E109" // destructor takes parameters or returns a value
	ErrConstructorShape    = "E110" // constructor returns a value or has a const receiver
	ErrInvalidVariadic     = "E111" // malformed variadic tail
	ErrOpaqueWithFields    = "E112" // opaque aggregate declares fields
	ErrReceiverOutside     = "E113" // receiver used in a free function body
	ErrInvalidMacro        = "E114" // malformed macro
	ErrConstReceiverOnFree = "E115" // const receiver on a non-method
)

var identPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// ValidationError represents one problem in the input declaration list.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
	Line    int    `json:"line,omitempty"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("[%s] line %d: %s: %s", e.Code, e.Line, e.Field, e.Message)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
}

// Validate checks the structural rules the lowering stages rely on.
// Returns all errors found (does not fail-fast).
func Validate(u *ir.Unit) []ValidationError {
	v := &validator{aggs: make(map[string]ir.AggregateKind)}
	for _, d := range u.Decls {
		if a, ok := d.(*ir.Aggregate); ok && ir.ValidAggregateKinds[a.Kind] {
			if _, seen := v.aggs[a.Name]; !seen {
				v.aggs[a.Name] = a.Kind
			}
		}
	}

	for i, d := range u.Decls {
		path := fmt.Sprintf("decls[%d]", i)
		switch decl := d.(type) {
		case *ir.Aggregate:
			v.line = decl.Pos.Line
			v.aggregate(path, decl)
		case *ir.Function:
			v.line = decl.Pos.Line
			v.function(path, decl)
		case *ir.Alias:
			v.line = decl.Pos.Line
			v.ident(path+".name", decl.Name)
			v.typ(path+".target", decl.Target, false)
		default:
			v.add(path, ErrUnsupportedDecl, "unsupported declaration: %T", d)
		}
	}

	v.line = 0
	for i, m := range u.Macros {
		v.macro(fmt.Sprintf("macros[%d]", i), m)
	}
	return v.errs
}

type validator struct {
	aggs map[string]ir.AggregateKind
	line int
	errs []ValidationError
}

func (v *validator) add(field, code, format string, args ...any) {
	v.errs = append(v.errs, ValidationError{
		Field:   field,
		Message: fmt.Sprintf(format, args...),
		Code:    code,
		Line:    v.line,
	})
}

func (v *validator) ident(field, name string) {
	switch {
	case !identPattern.MatchString(name):
		v.add(field, ErrInvalidIdentifier, "invalid identifier %q", name)
	case strings.HasPrefix(name, ir.ReservedPrefix) || name == ir.ReceiverName:
		v.add(field, ErrReservedIdentifier, "identifier %q is reserved", name)
	}
}

func (v *validator) aggregate(path string, a *ir.Aggregate) {
	v.ident(path+".name", a.Name)
	if !ir.ValidAggregateKinds[a.Kind] {
		v.add(path+".kind", ErrInvalidKind, "invalid aggregate kind %q", a.Kind)
	} else if kind := v.aggs[a.Name]; kind != a.Kind {
		v.add(path+".name", ErrDuplicateName, "%s %s is already declared as a %s", a.Kind, a.Name, kind)
	}
	if a.Opaque && len(a.Fields) > 0 {
		v.add(path+".fields", ErrOpaqueWithFields, "opaque aggregate %s declares fields", a.Name)
	}
	seen := make(map[string]bool)
	for i, f := range a.Fields {
		fp := fmt.Sprintf("%s.fields[%d]", path, i)
		v.ident(fp+".name", f.Name)
		if seen[f.Name] {
			v.add(fp+".name", ErrDuplicateName, "duplicate field name %q", f.Name)
		}
		seen[f.Name] = true
		v.typ(fp+".type", f.Type, false)
	}
}

func (v *validator) function(path string, f *ir.Function) {
	if !ir.ValidRoles[f.Role] {
		v.add(path+".role", ErrInvalidRole, "invalid role %q", f.Role)
		return
	}

	if f.Role == ir.RoleFree || f.Role == ir.RoleMethod {
		v.ident(path+".name", f.Name)
	}
	if f.Role == ir.RoleFree {
		if f.Owner != "" {
			v.add(path+".owner", ErrUnexpectedOwner, "free function %s has owner %s", f.Name, f.Owner)
		}
	} else if kind, ok := v.aggs[f.Owner]; !ok || kind != f.OwnerKind {
		v.add(path+".owner", ErrUnknownOwner, "owner %s %s of %s is not a declared aggregate", f.OwnerKind, f.Owner, f.DeclName())
	}
	if f.ConstReceiver && f.Role != ir.RoleMethod {
		v.add(path+".const_receiver", ErrConstReceiverOnFree, "%s cannot have a const receiver", f.DeclName())
	}

	switch f.Role {
	case ir.RoleConstructor:
		if f.Return != nil && !ir.IsVoid(f.Return) {
			v.add(path+".return", ErrConstructorShape, "constructor %s must not return a value", f.DeclName())
		}
	case ir.RoleDestructor:
		if len(f.Params) > 0 || f.Variadic != nil || (f.Return != nil && !ir.IsVoid(f.Return)) {
			v.add(path, ErrDestructorShape, "destructor %s takes no parameters and returns nothing", f.DeclName())
		}
	default:
		v.typ(path+".return", f.Return, true)
	}

	seen := make(map[string]bool)
	for i, p := range f.Params {
		pp := fmt.Sprintf("%s.params[%d]", path, i)
		v.ident(pp+".name", p.Name)
		if seen[p.Name] {
			v.add(pp+".name", ErrDuplicateName, "duplicate parameter name %q", p.Name)
		}
		seen[p.Name] = true
		v.typ(pp+".type", p.Type, false)
	}

	if tail := f.Variadic; tail != nil {
		vp := path + ".variadic"
		v.ident(vp+".name", tail.Name)
		if seen[tail.Name] || seen[tail.LenName()] {
			v.add(vp+".name", ErrDuplicateName, "variadic tail %q collides with a parameter", tail.Name)
		}
		switch {
		case tail.Explicit && tail.Elem == nil:
			v.add(vp+".elem", ErrInvalidVariadic, "explicit variadic tail %s needs an element type", tail.Name)
		case !tail.Explicit && tail.Elem != nil:
			v.add(vp+".elem", ErrInvalidVariadic, "implicit variadic tail %s cannot declare an element type", tail.Name)
		case tail.Elem != nil:
			v.typ(vp+".elem", tail.Elem, false)
		}
	}

	if f.Body != nil && !f.HasReceiver() {
		ir.Inspect(f.Body, func(e ir.Expr) bool {
			if _, ok := e.(*ir.This); ok {
				v.add(path+".body", ErrReceiverOutside, "receiver used in free function %s", f.Name)
				return false
			}
			return true
		})
	}
}

// typ checks that t is a well-formed member of the type model. void is
// legal as a return type and behind a pointer.
func (v *validator) typ(field string, t ir.Type, allowVoid bool) {
	switch x := t.(type) {
	case nil:
		v.add(field, ErrInvalidType, "missing type")
	case ir.Builtin:
		if _, ok := ir.Builtins[x.Name]; !ok {
			v.add(field, ErrInvalidType, "unknown builtin %q", x.Name)
		} else if ir.IsVoid(x) && !allowVoid {
			v.add(field, ErrInvalidType, "void is only legal as a return type or behind a pointer")
		}
	case ir.Named:
		if kind, ok := v.aggs[x.Name]; !ok {
			v.add(field, ErrInvalidType, "unknown aggregate %s", x.Name)
		} else if kind != x.Kind {
			v.add(field, ErrInvalidType, "%s is declared as a %s, not a %s", x.Name, kind, x.Kind)
		}
	case ir.Pointer:
		if x.Depth < 0 {
			v.add(field, ErrInvalidType, "negative pointer depth %d", x.Depth)
		}
		v.typ(field, x.Elem, x.Depth > 0 || allowVoid)
	case ir.Reference:
		if _, ok := x.Elem.(ir.Reference); ok {
			v.add(field, ErrInvalidType, "reference to reference")
			return
		}
		v.typ(field, x.Elem, false)
	case ir.Array:
		v.typ(field, x.Elem, false)
	case ir.Erased:
	case ir.FuncPtr:
		for i, p := range x.Params {
			v.typ(fmt.Sprintf("%s.params[%d]", field, i), p, false)
		}
		v.typ(field+".return", x.Return, true)
	}
}

func (v *validator) macro(path string, m ir.Macro) {
	if !identPattern.MatchString(m.Name) {
		v.add(path+".name", ErrInvalidIdentifier, "invalid macro name %q", m.Name)
	}
	for i, tok := range m.Body {
		if !norm.NFC.IsNormalString(tok) {
			v.add(fmt.Sprintf("%s.body[%d]", path, i), ErrInvalidMacro, "token %q is not NFC normalized", tok)
		}
	}
	switch m.Kind {
	case ir.MacroObject:
		if len(m.Params) > 0 {
			v.add(path+".params", ErrInvalidMacro, "object-like macro %s takes no parameters", m.Name)
		}
	case ir.MacroFunction:
		seen := make(map[string]bool)
		for i, p := range m.Params {
			if !identPattern.MatchString(p) || seen[p] {
				v.add(fmt.Sprintf("%s.params[%d]", path, i), ErrInvalidMacro, "invalid or duplicate macro parameter %q", p)
			}
			seen[p] = true
		}
	case ir.MacroTypeAlias:
		if m.Type == nil {
			v.add(path+".type", ErrInvalidMacro, "type-alias macro %s has no resolved type", m.Name)
		}
	default:
		v.add(path+".kind", ErrInvalidMacro, "unknown macro kind %q", m.Kind)
	}
}
