package mangle

import (
	"github.com/roach88/flatc/internal/diag"
	"github.com/roach88/flatc/internal/ir"
)

// Entry pairs a flat name with the declaration that owns it.
type Entry struct {
	Flat string
	Decl ir.Decl
}

// Table is the flat-name table of one unit: the forward map from
// declaration to flat name is each declaration's Flat field, and the table
// holds the inverse. A Table is never shared between units.
type Table struct {
	byFlat  map[string]ir.Decl
	entries []Entry
}

// Lookup returns the declaration that owns flat.
func (t *Table) Lookup(flat string) (ir.Decl, bool) {
	d, ok := t.byFlat[flat]
	return d, ok
}

// Entries returns the table in declaration order.
func (t *Table) Entries() []Entry {
	return append([]Entry(nil), t.entries...)
}

// Len returns the number of flat names in the table.
func (t *Table) Len() int {
	return len(t.entries)
}

// NewTable indexes decls, whose flat names must already be assigned and
// unique.
func NewTable(decls []ir.Decl) (*Table, error) {
	t := &Table{byFlat: make(map[string]ir.Decl, len(decls))}
	for _, d := range decls {
		flat := d.FlatName()
		if prev, ok := t.byFlat[flat]; ok {
			return nil, diag.NewNamingConflict(flat, d, prev)
		}
		t.byFlat[flat] = d
		t.entries = append(t.entries, Entry{Flat: flat, Decl: d})
	}
	return t, nil
}

// Assign returns a copy of decls with flat names assigned and
// redeclarations merged, plus the unit's table.
//
// Two declarations with the same flat name are one declaration seen twice
// when their full signatures match: a prototype and its definition, an
// opaque aggregate and its layout, or identical repeats. The merged
// declaration keeps the first position and the definition's content. Any
// other sharing of a flat name is a NamingConflict naming both sides.
func Assign(decls []ir.Decl) ([]ir.Decl, *Table, error) {
	out := make([]ir.Decl, 0, len(decls))
	slot := make(map[string]int, len(decls))

	for _, d := range decls {
		flat := Mangle(d)
		i, seen := slot[flat]
		if !seen {
			slot[flat] = len(out)
			out = append(out, withFlat(d, flat))
			continue
		}
		merged, ok := merge(out[i], d)
		if !ok {
			return nil, nil, diag.NewNamingConflict(flat, d, out[i])
		}
		out[i] = merged
	}

	t, err := NewTable(out)
	if err != nil {
		return nil, nil, err
	}
	return out, t, nil
}

func withFlat(d ir.Decl, flat string) ir.Decl {
	switch v := d.(type) {
	case *ir.Aggregate:
		c := *v
		c.Fields = append([]ir.Field(nil), v.Fields...)
		c.Flat = flat
		return &c
	case *ir.Function:
		c := v.Clone()
		c.Flat = flat
		return c
	case *ir.Alias:
		c := *v
		return &c
	default:
		return d
	}
}

// merge folds d into prev when both are the same declaration.
func merge(prev, d ir.Decl) (ir.Decl, bool) {
	switch p := prev.(type) {
	case *ir.Aggregate:
		a, ok := d.(*ir.Aggregate)
		if !ok || a.Kind != p.Kind || a.Name != p.Name {
			return nil, false
		}
		switch {
		case a.Opaque:
			return p, true
		case p.Opaque:
			c := *p
			c.Fields = append([]ir.Field(nil), a.Fields...)
			c.Opaque = false
			return &c, true
		case sameFields(p.Fields, a.Fields):
			return p, true
		}
		return nil, false
	case *ir.Function:
		f, ok := d.(*ir.Function)
		if !ok || !p.SameSignature(f) {
			return nil, false
		}
		switch {
		case f.Body == nil:
			return p, true
		case p.Body == nil:
			c := p.Clone()
			c.Body = f.Body
			c.Params = append([]ir.Param(nil), f.Params...)
			return c, true
		}
		// Two bodies for one signature.
		return nil, false
	case *ir.Alias:
		a, ok := d.(*ir.Alias)
		return p, ok && ir.Equal(a.Target, p.Target)
	}
	return nil, false
}

func sameFields(a, b []ir.Field) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].Name != b[i].Name || !ir.Equal(a[i].Type, b[i].Type) {
			return false
		}
	}
	return true
}
