package ir

import "fmt"

// Pos is a source position supplied by the front end.
type Pos struct {
	File string `json:"file,omitempty"`
	Line int    `json:"line,omitempty"`
	Col  int    `json:"col,omitempty"`
}

// IsValid reports whether the position carries a line.
func (p Pos) IsValid() bool {
	return p.Line > 0
}

func (p Pos) String() string {
	if !p.IsValid() {
		return ""
	}
	return fmt.Sprintf("%s:%d:%d", p.File, p.Line, p.Col)
}

// Linkage controls whether a declaration keeps its source name.
type Linkage string

const (
	// LinkageDefault declarations receive mangled flat names.
	LinkageDefault Linkage = ""
	// LinkageC declarations keep their source name unchanged.
	LinkageC Linkage = "c"
)

// Role is the role a function plays in its owning aggregate.
type Role string

const (
	RoleFree        Role = "free"
	RoleMethod      Role = "method"
	RoleConstructor Role = "constructor"
	RoleDestructor  Role = "destructor"
)

// ValidRoles defines allowed function roles.
var ValidRoles = map[Role]bool{
	RoleFree:        true,
	RoleMethod:      true,
	RoleConstructor: true,
	RoleDestructor:  true,
}

// ReceiverName is the parameter name of the explicit receiver slot.
const ReceiverName = "_this"

// ReservedPrefix starts every mangled name and every synthesized local.
const ReservedPrefix = "_E"

// Decl is a sealed interface over top-level declarations.
type Decl interface {
	irDecl()
	// DeclName is the source-level name, qualified by owner for members.
	DeclName() string
	// FlatName is the assigned flat identifier, empty before mangling.
	FlatName() string
	// Position returns the declaration's index in the input list and its
	// source position.
	Position() (int, Pos)
}

// Field is a named aggregate field.
type Field struct {
	Name string
	Type Type
}

// Param is a named function parameter. Default, when set, is the value
// a call passes for the parameter when it omits the argument; only
// trailing parameters carry one.
type Param struct {
	Name    string
	Type    Type
	Default Expr
}

// Aggregate is a class, struct or union declaration. Methods are separate
// Function declarations whose Owner names the aggregate.
type Aggregate struct {
	Kind    AggregateKind
	Name    string
	Fields  []Field
	Opaque  bool // name-only forward declaration
	Linkage Linkage
	Flat    string
	Index   int
	Pos     Pos
}

func (*Aggregate) irDecl() {}

func (a *Aggregate) DeclName() string { return a.Name }

func (a *Aggregate) FlatName() string { return a.Flat }

func (a *Aggregate) Position() (int, Pos) { return a.Index, a.Pos }

// Type returns the Named type of the aggregate.
func (a *Aggregate) Type() Named {
	return Named{Kind: a.Kind, Name: a.Name}
}

// VariadicSpec describes a variable-argument tail. Elem is Erased for
// heterogeneous tails, a concrete type for homogeneous ones, and nil for
// an implicit tail whose element has not been inferred yet.
type VariadicSpec struct {
	Name     string
	Elem     Type
	Explicit bool
}

// LenName is the name of the count parameter of the lowered tail.
func (v *VariadicSpec) LenName() string {
	return v.Name + "_len"
}

// Function is a free function, method, constructor or destructor.
type Function struct {
	Owner         string
	OwnerKind     AggregateKind
	Name          string
	Params        []Param
	Return        Type
	Variadic      *VariadicSpec
	Role          Role
	ConstReceiver bool
	Linkage       Linkage
	Body          *Block // nil for a prototype
	Flat          string
	Index         int
	Pos           Pos
}

func (*Function) irDecl() {}

func (f *Function) DeclName() string {
	switch f.Role {
	case RoleConstructor:
		return f.Owner + "::" + f.Owner
	case RoleDestructor:
		return f.Owner + "::~" + f.Owner
	}
	if f.Owner != "" {
		return f.Owner + "::" + f.Name
	}
	return f.Name
}

func (f *Function) FlatName() string { return f.Flat }

func (f *Function) Position() (int, Pos) { return f.Index, f.Pos }

// OwnerType returns the Named type of the owning aggregate.
func (f *Function) OwnerType() Named {
	return Named{Kind: f.OwnerKind, Name: f.Owner}
}

// HasReceiver reports whether the function takes an implicit receiver.
func (f *Function) HasReceiver() bool {
	return f.Role == RoleMethod || f.Role == RoleConstructor || f.Role == RoleDestructor
}

// ParamTypes returns the declared parameter types in order.
func (f *Function) ParamTypes() []Type {
	types := make([]Type, len(f.Params))
	for i, p := range f.Params {
		types[i] = p.Type
	}
	return types
}

// Signature returns the function pointer type matching f.
func (f *Function) Signature() FuncPtr {
	return FuncPtr{Params: f.ParamTypes(), Return: f.Return}
}

// SameSignature reports whether f and g declare the same full signature,
// return type included. Parameter names are not compared.
func (f *Function) SameSignature(g *Function) bool {
	if f.Owner != g.Owner || f.OwnerKind != g.OwnerKind || f.Name != g.Name ||
		f.Role != g.Role || f.ConstReceiver != g.ConstReceiver || f.Linkage != g.Linkage {
		return false
	}
	if len(f.Params) != len(g.Params) || !Equal(f.Return, g.Return) {
		return false
	}
	for i := range f.Params {
		if !Equal(f.Params[i].Type, g.Params[i].Type) {
			return false
		}
	}
	if (f.Variadic == nil) != (g.Variadic == nil) {
		return false
	}
	if f.Variadic != nil {
		if f.Variadic.Explicit != g.Variadic.Explicit || !Equal(f.Variadic.Elem, g.Variadic.Elem) {
			return false
		}
	}
	return true
}

// Clone returns a shallow copy of f with its own parameter slice.
func (f *Function) Clone() *Function {
	c := *f
	c.Params = append([]Param(nil), f.Params...)
	if f.Variadic != nil {
		v := *f.Variadic
		c.Variadic = &v
	}
	return &c
}

// Alias is a type alias kept for the emitter. Its Target is already
// substituted everywhere the alias was used.
type Alias struct {
	Name   string
	Target Type
	Index  int
	Pos    Pos
}

func (*Alias) irDecl() {}

func (a *Alias) DeclName() string { return a.Name }

func (a *Alias) FlatName() string { return a.Name }

func (a *Alias) Position() (int, Pos) { return a.Index, a.Pos }

// Unit is one compilation unit handed to the lowering core.
type Unit struct {
	Name   string
	Decls  []Decl
	Macros []Macro
}

// MacroKind distinguishes the three macro forms of the macro contract.
type MacroKind string

const (
	MacroObject    MacroKind = "object"
	MacroFunction  MacroKind = "function"
	MacroTypeAlias MacroKind = "type_alias"
)

// Macro is a resolved macro passed through to the emitter verbatim.
type Macro struct {
	Kind   MacroKind `json:"kind"`
	Name   string    `json:"name"`
	Params []string  `json:"params,omitempty"`
	Body   []string  `json:"body,omitempty"` // token sequence, may be empty
	Type   Type      `json:"-"`              // set for type-alias macros
}

// Aggregates returns the aggregates of decls indexed by name.
func Aggregates(decls []Decl) map[string]*Aggregate {
	out := make(map[string]*Aggregate)
	for _, d := range decls {
		if a, ok := d.(*Aggregate); ok {
			if prev, seen := out[a.Name]; !seen || prev.Opaque {
				out[a.Name] = a
			}
		}
	}
	return out
}

// Functions returns the functions of decls in order.
func Functions(decls []Decl) []*Function {
	var out []*Function
	for _, d := range decls {
		if f, ok := d.(*Function); ok {
			out = append(out, f)
		}
	}
	return out
}
