package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func cls(name string) Named {
	return Named{Kind: KindClass, Name: name}
}

func TestPointerTo_CollapsesNesting(t *testing.T) {
	p := PointerTo(PointerTo(Int, 1), 2)
	assert.Equal(t, Pointer{Elem: Int, Depth: 3}, p)
	assert.Equal(t, Int, PointerTo(Int, 0))
}

func TestCanonical(t *testing.T) {
	tests := []struct {
		name string
		in   Type
		want Type
	}{
		{"builtin unchanged", Int, Int},
		{"nested pointer", Pointer{Elem: Pointer{Elem: Int, Depth: 1}, Depth: 1}, Pointer{Elem: Int, Depth: 2}},
		{"zero depth pointer", Pointer{Elem: Str, Depth: 0}, Str},
		{"ref to const folds", Reference{Elem: Builtin{Name: "int", Const: true}, Mutable: true}, Reference{Elem: Int}},
		{"const ref strips elem const", Reference{Elem: Builtin{Name: "int", Const: true}}, Reference{Elem: Int}},
		{"array elem", Array{Elem: Pointer{Elem: Pointer{Elem: Int, Depth: 1}, Depth: 1}}, Array{Elem: Pointer{Elem: Int, Depth: 2}}},
		{"funcptr params", FuncPtr{Params: []Type{Pointer{Elem: Int}}, Return: Void}, FuncPtr{Params: []Type{Int}, Return: Void}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Canonical(tt.in))
		})
	}
}

func TestEqual_Structural(t *testing.T) {
	assert.True(t, Equal(cls("A"), cls("A")))
	assert.False(t, Equal(cls("A"), Named{Kind: KindStruct, Name: "A"}), "kind is part of identity")
	assert.False(t, Equal(Int, Builtin{Name: "int", Const: true}))
	assert.True(t, Equal(Reference{Elem: Builtin{Name: "str", Const: true}, Mutable: true}, Reference{Elem: Str}))
	assert.False(t, Equal(Reference{Elem: Int, Mutable: true}, Reference{Elem: Int}))
	assert.False(t, Equal(Reference{Elem: Int, Mutable: true}, Pointer{Elem: Int, Depth: 1}))
	assert.False(t, Equal(Erased{}, Pointer{Elem: Void, Depth: 1}))
	assert.True(t, Equal(nil, nil))
	assert.False(t, Equal(Int, nil))
}

func TestAssignable(t *testing.T) {
	constInt := Builtin{Name: "int", Const: true}
	tests := []struct {
		name  string
		param Type
		arg   Type
		want  int
	}{
		{"exact", Int, Int, CostExact},
		{"drop const by value", Int, constInt, CostQualify},
		{"builtin mismatch", Int, Str, NotViable},
		{"mutable ref binds lvalue", Reference{Elem: Int, Mutable: true}, Int, CostQualify},
		{"mutable ref rejects const", Reference{Elem: Int, Mutable: true}, constInt, NotViable},
		{"const ref binds const", Reference{Elem: Int}, constInt, CostQualify},
		{"const ref binds mutable ref", Reference{Elem: Int}, Reference{Elem: Int, Mutable: true}, CostQualify},
		{"mutable ref rejects const ref", Reference{Elem: Int, Mutable: true}, Reference{Elem: Int}, NotViable},
		{"pointer adds const", Pointer{Elem: Named{Kind: KindClass, Name: "A", Const: true}, Depth: 1}, Pointer{Elem: cls("A"), Depth: 1}, CostQualify},
		{"pointer drops const", Pointer{Elem: cls("A"), Depth: 1}, Pointer{Elem: Named{Kind: KindClass, Name: "A", Const: true}, Depth: 1}, NotViable},
		{"pointer depth mismatch", Pointer{Elem: Int, Depth: 1}, Pointer{Elem: Int, Depth: 2}, NotViable},
		{"erased takes builtin", Erased{}, Int, CostErase},
		{"erased takes aggregate", Erased{}, cls("A"), CostErase},
		{"erased rejects funcptr", Erased{}, FuncPtr{Return: Void}, NotViable},
		{"pointer from erased", Pointer{Elem: Int, Depth: 1}, Erased{}, CostErase},
		{"builtin from erased", Int, Erased{}, NotViable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Assignable(tt.param, tt.arg))
		})
	}
}

func TestSlotType(t *testing.T) {
	assert.Equal(t, Pointer{Elem: cls("A"), Depth: 1}, SlotType(cls("A")))
	assert.Equal(t, Int, SlotType(Int))
	assert.Equal(t, Erased{}, SlotType(Erased{}))
	assert.Equal(t, Pointer{Elem: Int, Depth: 2}, SlotType(Pointer{Elem: Pointer{Elem: Int, Depth: 1}, Depth: 1}))
}

func TestBoxable(t *testing.T) {
	assert.True(t, Boxable(Int))
	assert.True(t, Boxable(cls("A")))
	assert.True(t, Boxable(Pointer{Elem: Int, Depth: 1}))
	assert.False(t, Boxable(Void))
	assert.False(t, Boxable(FuncPtr{Return: Void}))
}

func TestTypeString(t *testing.T) {
	tests := []struct {
		in   Type
		want string
	}{
		{Int, "int"},
		{Builtin{Name: "int", Const: true}, "const int"},
		{cls("Foo"), "class Foo"},
		{Named{Kind: KindUnion, Name: "U", Const: true}, "const union U"},
		{Pointer{Elem: Int, Depth: 2}, "ptr ptr int"},
		{Reference{Elem: Int, Mutable: true}, "ref int"},
		{Reference{Elem: Int}, "const ref int"},
		{Array{Elem: Str}, "array str"},
		{Erased{}, "any"},
		{FuncPtr{Params: []Type{Int, Str}, Return: Void}, "func(int, str) void"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.in.String())
		})
	}
}

func TestMentions_ByValueOnlyAtTopLevel(t *testing.T) {
	type mention struct {
		name    string
		byValue bool
	}
	collect := func(ty Type) []mention {
		var out []mention
		Mentions(ty, func(n Named, byValue bool) {
			out = append(out, mention{n.Name, byValue})
		})
		return out
	}

	assert.Equal(t, []mention{{"A", true}}, collect(cls("A")))
	assert.Equal(t, []mention{{"A", false}}, collect(Pointer{Elem: cls("A"), Depth: 1}))
	assert.Equal(t, []mention{{"A", true}}, collect(Pointer{Elem: cls("A"), Depth: 0}))
	assert.Equal(t, []mention{{"A", false}}, collect(Pointer{Elem: Pointer{Elem: cls("A"), Depth: 0}, Depth: 1}))
	assert.Equal(t, []mention{{"A", false}}, collect(Reference{Elem: cls("A"), Mutable: true}))
	assert.Equal(t, []mention{{"A", false}, {"B", false}},
		collect(FuncPtr{Params: []Type{cls("A")}, Return: cls("B")}))
	assert.Empty(t, collect(Int))
}
