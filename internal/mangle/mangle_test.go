package mangle

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/flatc/internal/ir"
)

var testClass = ir.Named{Kind: ir.KindClass, Name: "test_class"}

func freeFn(name string, params ...ir.Type) *ir.Function {
	f := &ir.Function{Name: name, Role: ir.RoleFree, Return: ir.Void}
	for i, p := range params {
		f.Params = append(f.Params, ir.Param{Name: string(rune('a' + i)), Type: p})
	}
	return f
}

func method(owner ir.Named, name string, params ...ir.Type) *ir.Function {
	f := freeFn(name, params...)
	f.Role = ir.RoleMethod
	f.Owner = owner.Name
	f.OwnerKind = owner.Kind
	return f
}

func TestMangle_Aggregates(t *testing.T) {
	assert.Equal(t, "_EC10test_class", Mangle(&ir.Aggregate{Kind: ir.KindClass, Name: "test_class"}))
	assert.Equal(t, "_ES12forward_decl", Mangle(&ir.Aggregate{Kind: ir.KindStruct, Name: "forward_decl", Opaque: true}))
	assert.Equal(t, "_EU1u", Mangle(&ir.Aggregate{Kind: ir.KindUnion, Name: "u"}))
	assert.Equal(t, "sockaddr", Mangle(&ir.Aggregate{Kind: ir.KindStruct, Name: "sockaddr", Linkage: ir.LinkageC}))
}

func TestMangle_Functions(t *testing.T) {
	refArrayInt := ir.Reference{Elem: ir.Array{Elem: ir.Int}, Mutable: true}

	tests := []struct {
		name string
		decl *ir.Function
		want string
	}{
		{"free with mutable ref", freeFn("fun", ir.Reference{Elem: ir.Int, Mutable: true}), "_EF3funRB3int"},
		{"free taking a class by ref", freeFn("class_fun", ir.Reference{Elem: testClass, Mutable: true}), "_EF9class_funRC10test_class"},
		{"method", method(testClass, "set_fields", ir.Int, ir.Str, refArrayInt), "_EC10test_classF10set_fieldsB3intB3strRAB3int"},
		{"erased param", freeFn("any_fun", ir.Erased{}), "_EF7any_funX"},
		{"no params", freeFn("f"), "_EF1f"},
		{"const param", freeFn("f", ir.Builtin{Name: "int", Const: true}), "_EF1fKB3int"},
		{"pointer depth", freeFn("f", ir.Pointer{Elem: ir.Str, Depth: 2}), "_EF1fPPB3str"},
		{"const ref", freeFn("f", ir.Reference{Elem: ir.Str}), "_EF1frB3str"},
		{"function pointer", freeFn("f", ir.FuncPtr{Params: []ir.Type{ir.Int}, Return: ir.Void}), "_EF1fQ1B3intB4void"},
		{"entry point", freeFn("main"), "main"},
		{"c linkage", func() *ir.Function { f := freeFn("puts", ir.Str); f.Linkage = ir.LinkageC; return f }(), "puts"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Mangle(tt.decl))
		})
	}
}

func TestMangle_SpecialMembers(t *testing.T) {
	ctor := method(testClass, "", ir.Int, ir.Str)
	ctor.Role = ir.RoleConstructor
	dtor := method(testClass, "")
	dtor.Role = ir.RoleDestructor

	assert.Equal(t, "_EC10test_classIB3intB3str", Mangle(ctor))
	assert.Equal(t, "_EC10test_classD", Mangle(dtor))
}

func TestMangle_ConstReceiver(t *testing.T) {
	m := method(testClass, "get")
	c := method(testClass, "get")
	c.ConstReceiver = true

	assert.Equal(t, "_EC10test_classF3get", Mangle(m))
	assert.Equal(t, "_EC10test_classKF3get", Mangle(c))
}

func TestMangle_Variadic(t *testing.T) {
	implicit := freeFn("printf", ir.Str)
	implicit.Variadic = &ir.VariadicSpec{Name: "args"}

	explicitInt := freeFn("printf", ir.Str)
	explicitInt.Variadic = &ir.VariadicSpec{Name: "args", Elem: ir.Int, Explicit: true}

	explicitAny := freeFn("printf", ir.Str)
	explicitAny.Variadic = &ir.VariadicSpec{Name: "args", Elem: ir.Erased{}, Explicit: true}

	assert.Equal(t, "_EF6printfB3strV", Mangle(implicit))
	assert.Equal(t, "_EF6printfB3strVB3int", Mangle(explicitInt))
	assert.Equal(t, "_EF6printfB3strVX", Mangle(explicitAny))
	assert.NotEqual(t, Mangle(freeFn("printf", ir.Str)), Mangle(implicit))
}

func TestMangle_QualifierSeparation(t *testing.T) {
	names := map[string]string{
		"value":     Mangle(freeFn("f", ir.Int)),
		"mut ref":   Mangle(freeFn("f", ir.Reference{Elem: ir.Int, Mutable: true})),
		"const ref": Mangle(freeFn("f", ir.Reference{Elem: ir.Int})),
		"pointer":   Mangle(freeFn("f", ir.Pointer{Elem: ir.Int, Depth: 1})),
	}
	seen := make(map[string]string)
	for kind, n := range names {
		if other, dup := seen[n]; dup {
			t.Fatalf("%s and %s both mangle to %s", kind, other, n)
		}
		seen[n] = kind
	}
	assert.Len(t, seen, 4)
}

func TestMangle_ErasedNeverMatchesConcrete(t *testing.T) {
	erased := Mangle(freeFn("f", ir.Erased{}))
	for name := range ir.Builtins {
		assert.NotEqual(t, erased, Mangle(freeFn("f", ir.Builtin{Name: name})), name)
	}
	for _, kind := range []ir.AggregateKind{ir.KindClass, ir.KindStruct, ir.KindUnion} {
		for _, agg := range []string{"X", "any", "A"} {
			assert.NotEqual(t, erased, Mangle(freeFn("f", ir.Named{Kind: kind, Name: agg})))
		}
	}
}

func TestMangle_Injective(t *testing.T) {
	decls := []ir.Decl{
		&ir.Aggregate{Kind: ir.KindClass, Name: "A"},
		&ir.Aggregate{Kind: ir.KindStruct, Name: "A"},
		freeFn("A"),
		freeFn("f"),
		freeFn("f", ir.Int),
		freeFn("f", ir.Int, ir.Int),
		freeFn("f", ir.Array{Elem: ir.Int}),
		freeFn("f", ir.Pointer{Elem: ir.Int, Depth: 1}),
		freeFn("f", ir.Pointer{Elem: ir.Builtin{Name: "int", Const: true}, Depth: 1}),
		freeFn("f1", ir.Int),
		freeFn("f", ir.Builtin{Name: "int8"}),
		method(ir.Named{Kind: ir.KindClass, Name: "A"}, "f"),
		method(ir.Named{Kind: ir.KindStruct, Name: "A"}, "f"),
		method(ir.Named{Kind: ir.KindClass, Name: "A"}, "f", ir.Int),
		method(ir.Named{Kind: ir.KindClass, Name: "Af"}, "f"),
		freeFn("f", ir.FuncPtr{Params: []ir.Type{ir.Int}, Return: ir.Void}),
		freeFn("f", ir.FuncPtr{Params: []ir.Type{}, Return: ir.Int}, ir.Void),
	}

	seen := make(map[string]int)
	for i, d := range decls {
		name := Mangle(d)
		if j, dup := seen[name]; dup {
			t.Fatalf("declarations %d and %d both mangle to %s", j, i, name)
		}
		seen[name] = i
	}
}

func TestMangle_Deterministic(t *testing.T) {
	f := method(testClass, "set_fields", ir.Int, ir.Str)
	first := Mangle(f)
	for i := 0; i < 10; i++ {
		require.Equal(t, first, Mangle(f))
	}
}

func TestMangle_CanonicalFormsAgree(t *testing.T) {
	nested := freeFn("f", ir.Pointer{Elem: ir.Pointer{Elem: ir.Int, Depth: 1}, Depth: 1})
	flat := freeFn("f", ir.Pointer{Elem: ir.Int, Depth: 2})
	assert.Equal(t, Mangle(flat), Mangle(nested))

	refConst := freeFn("f", ir.Reference{Elem: ir.Builtin{Name: "int", Const: true}, Mutable: true})
	constRef := freeFn("f", ir.Reference{Elem: ir.Int})
	assert.Equal(t, Mangle(constRef), Mangle(refConst))
}
