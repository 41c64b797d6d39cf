// Package frontend decodes compilation units written in CUE into the IR
// consumed by the lowering pipeline.
//
// A unit file looks like:
//
//	unit: "shapes"
//	decls: [
//		{class: "Point", fields: [{name: "x", type: "int"}]},
//		{constructor: "Point", params: [{name: "x", type: "int"}], body: [
//			{assign: "this.x", value: "x"},
//		]},
//		{func: "main", returns: "int", body: [
//			{var: "p", type: "Point", init: "Point(1)"},
//			{"return": "p.x"},
//		]},
//	]
//	macros: [{object: "ORIGIN", body: ["0"]}]
//
// Types use the notation accepted by ParseType; expressions use an infix
// notation with C-like precedence.
package frontend

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/load"

	"github.com/roach88/flatc/internal/ir"
)

var declKeys = []string{"class", "struct", "union", "func", "method", "constructor", "destructor", "alias"}

var macroKeys = []string{string(ir.MacroObject), string(ir.MacroFunction), string(ir.MacroTypeAlias)}

// LoadUnit loads a unit from a .cue file or from a directory holding one
// CUE package. The unit name defaults to the file or directory base name.
func LoadUnit(path string) (*ir.Unit, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		src, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		return ParseUnit(path, src)
	}

	dir, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	ctx := cuecontext.New()
	insts := load.Instances([]string{"."}, &load.Config{Dir: dir})
	if len(insts) == 0 {
		return nil, fmt.Errorf("%s: no CUE instances", path)
	}
	if err := insts[0].Err; err != nil {
		return nil, formatCUEError(err)
	}
	v := ctx.BuildInstance(insts[0])
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}
	return DecodeUnit(v, filepath.Base(dir))
}

// ParseUnit compiles CUE source and decodes it as a unit.
func ParseUnit(filename string, src []byte) (*ir.Unit, error) {
	ctx := cuecontext.New()
	v := ctx.CompileBytes(src, cue.Filename(filename))
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}
	base := filepath.Base(filename)
	return DecodeUnit(v, strings.TrimSuffix(base, filepath.Ext(base)))
}

// DecodeUnit decodes a CUE value into a unit. Declaration indexes follow
// the order of the decls list.
func DecodeUnit(v cue.Value, defaultName string) (*ir.Unit, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	name, ok, err := optString(v, "unit")
	if err != nil {
		return nil, err
	}
	if !ok {
		name = defaultName
	}

	d := &decoder{scope: newScope()}
	decls, err := d.decls(lookup(v, "decls"))
	if err != nil {
		return nil, err
	}
	macros, err := decodeMacros(lookup(v, "macros"))
	if err != nil {
		return nil, err
	}
	return &ir.Unit{Name: name, Decls: decls, Macros: macros}, nil
}

type decoder struct {
	*scope
}

type declEntry struct {
	key   string
	value cue.Value
	field string
}

// decls decodes in passes so that every declaration may refer to any
// aggregate, and every body to any function, regardless of order.
// Aliases see the aliases declared before them.
func (d *decoder) decls(v cue.Value) ([]ir.Decl, error) {
	items, err := listOf(v, "decls")
	if err != nil {
		return nil, err
	}
	entries := make([]declEntry, len(items))
	out := make([]ir.Decl, len(items))

	for i, item := range items {
		field := fmt.Sprintf("decls[%d]", i)
		key, err := oneOf(item, field, declKeys)
		if err != nil {
			return nil, err
		}
		entries[i] = declEntry{key: key, value: item, field: field}
		switch key {
		case "class", "struct", "union":
			a, err := aggregateHead(item, field, ir.AggregateKind(key))
			if err != nil {
				return nil, err
			}
			a.Index = i
			out[i] = a
			if prev, seen := d.aggs[a.Name]; !seen || prev.Opaque {
				d.aggs[a.Name] = a
			}
		}
	}

	for i, e := range entries {
		if e.key != "alias" {
			continue
		}
		a, err := d.alias(e)
		if err != nil {
			return nil, err
		}
		a.Index = i
		out[i] = a
		d.aliases[a.Name] = a.Target
	}

	for i, e := range entries {
		switch e.key {
		case "class", "struct", "union":
			if err := d.fields(out[i].(*ir.Aggregate), e); err != nil {
				return nil, err
			}
		case "alias":
		default:
			f, err := d.signature(e)
			if err != nil {
				return nil, err
			}
			f.Index = i
			out[i] = f
			d.addFunction(f)
		}
	}

	for i, e := range entries {
		f, ok := out[i].(*ir.Function)
		if !ok {
			continue
		}
		if err := d.defaults(f, e); err != nil {
			return nil, err
		}
		bv := lookup(e.value, "body")
		if !bv.Exists() {
			continue
		}
		body, err := newBodyEnv(d.scope, f).block(bv, e.field+".body")
		if err != nil {
			return nil, err
		}
		f.Body = body
	}
	return out, nil
}

func aggregateHead(v cue.Value, field string, kind ir.AggregateKind) (*ir.Aggregate, error) {
	name, err := reqString(v, field, string(kind))
	if err != nil {
		return nil, err
	}
	a := &ir.Aggregate{Kind: kind, Name: name, Pos: irPos(v.Pos())}
	if a.Opaque, err = optBool(v, "opaque"); err != nil {
		return nil, err
	}
	if a.Linkage, err = linkage(v, field); err != nil {
		return nil, err
	}
	return a, nil
}

func (d *decoder) fields(a *ir.Aggregate, e declEntry) error {
	items, err := listOf(lookup(e.value, "fields"), e.field+".fields")
	if err != nil {
		return err
	}
	for j, item := range items {
		f, err := d.named(item, fmt.Sprintf("%s.fields[%d]", e.field, j))
		if err != nil {
			return err
		}
		a.Fields = append(a.Fields, ir.Field(f))
	}
	return nil
}

func (d *decoder) alias(e declEntry) (*ir.Alias, error) {
	name, err := reqString(e.value, e.field, "alias")
	if err != nil {
		return nil, err
	}
	target, err := d.typeField(e.value, e.field, "type")
	if err != nil {
		return nil, err
	}
	return &ir.Alias{Name: name, Target: target, Pos: irPos(e.value.Pos())}, nil
}

func (d *decoder) signature(e declEntry) (*ir.Function, error) {
	v := e.value
	f := &ir.Function{Return: ir.Void, Pos: irPos(v.Pos())}

	var err error
	switch e.key {
	case "func":
		f.Role = ir.RoleFree
		f.Name, err = reqString(v, e.field, "func")
	case "method":
		f.Role = ir.RoleMethod
		if f.Name, err = reqString(v, e.field, "method"); err == nil {
			f.Owner, err = reqString(v, e.field, "owner")
		}
	case "constructor":
		f.Role = ir.RoleConstructor
		f.Owner, err = reqString(v, e.field, "constructor")
	case "destructor":
		f.Role = ir.RoleDestructor
		f.Owner, err = reqString(v, e.field, "destructor")
	}
	if err != nil {
		return nil, err
	}
	if a, ok := d.aggs[f.Owner]; ok {
		f.OwnerKind = a.Kind
	}

	if f.ConstReceiver, err = optBool(v, "const"); err != nil {
		return nil, err
	}
	if f.Linkage, err = linkage(v, e.field); err != nil {
		return nil, err
	}
	if lookup(v, "returns").Exists() {
		if f.Return, err = d.typeField(v, e.field, "returns"); err != nil {
			return nil, err
		}
	}

	params, err := listOf(lookup(v, "params"), e.field+".params")
	if err != nil {
		return nil, err
	}
	for j, pv := range params {
		p, err := d.named(pv, fmt.Sprintf("%s.params[%d]", e.field, j))
		if err != nil {
			return nil, err
		}
		f.Params = append(f.Params, ir.Param{Name: p.Name, Type: p.Type})
	}

	if vv := lookup(v, "variadic"); vv.Exists() {
		spec := &ir.VariadicSpec{}
		field := e.field + ".variadic"
		if spec.Name, err = reqString(vv, field, "name"); err != nil {
			return nil, err
		}
		if lookup(vv, "type").Exists() {
			if spec.Elem, err = d.typeField(vv, field, "type"); err != nil {
				return nil, err
			}
			spec.Explicit = true
		}
		f.Variadic = spec
	}
	return f, nil
}

// defaults decodes the default values of f's parameters. They are
// parsed at unit scope, so they cannot name other parameters, and they
// must not call functions or construct aggregates.
func (d *decoder) defaults(f *ir.Function, e declEntry) error {
	params, err := listOf(lookup(e.value, "params"), e.field+".params")
	if err != nil {
		return err
	}
	env := newBodyEnv(d.scope, &ir.Function{Return: ir.Void})
	for j, pv := range params {
		field := fmt.Sprintf("%s.params[%d]", e.field, j)
		dv := lookup(pv, "default")
		if !dv.Exists() {
			if j > 0 && f.Params[j-1].Default != nil {
				return errorf(pv.Pos(), field, "parameter %q follows a parameter with a default value", f.Params[j].Name)
			}
			continue
		}
		p := &f.Params[j]
		x, err := env.exprField(pv, field, "default", p.Type)
		if err != nil {
			return err
		}
		var call bool
		ir.InspectExpr(x, func(n ir.Expr) bool {
			switch n.(type) {
			case *ir.Call, *ir.Construct, *ir.FuncRef:
				call = true
			}
			return !call
		})
		if call {
			return errorf(dv.Pos(), field+".default", "default value of %q must not call a function", p.Name)
		}
		if xt := x.Type(); xt == nil || ir.Assignable(p.Type, xt) == ir.NotViable {
			return errorf(dv.Pos(), field+".default", "default value of type %v does not fit parameter %q of type %v",
				xt, p.Name, p.Type)
		}
		p.Default = x
	}
	return nil
}

type namedType struct {
	Name string
	Type ir.Type
}

// named decodes a {name, type} entry.
func (d *decoder) named(v cue.Value, field string) (namedType, error) {
	name, err := reqString(v, field, "name")
	if err != nil {
		return namedType{}, err
	}
	t, err := d.typeField(v, field, "type")
	if err != nil {
		return namedType{}, err
	}
	return namedType{Name: name, Type: t}, nil
}

func (d *decoder) typeField(v cue.Value, field, key string) (ir.Type, error) {
	src, err := reqString(v, field, key)
	if err != nil {
		return nil, err
	}
	t, err := ParseType(src, d.scope)
	if err != nil {
		return nil, errorf(lookup(v, key).Pos(), field+"."+key, "%v", err)
	}
	return t, nil
}

func linkage(v cue.Value, field string) (ir.Linkage, error) {
	s, ok, err := optString(v, "linkage")
	if err != nil || !ok {
		return ir.LinkageDefault, err
	}
	switch ir.Linkage(s) {
	case ir.LinkageC:
		return ir.LinkageC, nil
	}
	return "", errorf(v.Pos(), field+".linkage", "unknown linkage %q", s)
}

func decodeMacros(v cue.Value) ([]ir.Macro, error) {
	items, err := listOf(v, "macros")
	if err != nil {
		return nil, err
	}
	var out []ir.Macro
	for i, item := range items {
		field := fmt.Sprintf("macros[%d]", i)
		key, err := oneOf(item, field, macroKeys)
		if err != nil {
			return nil, err
		}
		m := ir.Macro{Kind: ir.MacroKind(key)}
		if m.Name, err = reqString(item, field, key); err != nil {
			return nil, err
		}
		if m.Params, err = stringList(lookup(item, "params"), field+".params"); err != nil {
			return nil, err
		}
		if m.Body, err = stringList(lookup(item, "body"), field+".body"); err != nil {
			return nil, err
		}
		out = append(out, resolveMacro(m))
	}
	return out, nil
}
