package store

import (
	"errors"

	"github.com/roach88/flatc/internal/ir"
	"github.com/roach88/flatc/internal/mangle"
)

// Symbol kinds stored in the symbols table.
const (
	KindAggregate = "aggregate"
	KindFunction  = "function"
	KindAlias     = "alias"
)

// Symbol is one row of a run's flat-name table.
type Symbol struct {
	RunID     string `json:"run_id"`
	Flat      string `json:"flat_name"`
	Kind      string `json:"kind"`
	DeclName  string `json:"decl_name"`
	Signature string `json:"signature"`
	Index     int    `json:"decl_index"`
	File      string `json:"file,omitempty"`
	Line      int    `json:"line,omitempty"`
}

// SymbolsOf converts a unit's flat-name table into symbol rows, in table
// order. Mangled names carry their decoded signature; names kept from
// the source carry the declaration name.
func SymbolsOf(t *mangle.Table) ([]Symbol, error) {
	entries := t.Entries()
	out := make([]Symbol, 0, len(entries))
	for _, e := range entries {
		idx, pos := e.Decl.Position()
		sym := Symbol{
			Flat:     e.Flat,
			DeclName: e.Decl.DeclName(),
			Index:    idx,
			File:     pos.File,
			Line:     pos.Line,
		}
		switch d := e.Decl.(type) {
		case *ir.Aggregate:
			sym.Kind = KindAggregate
		case *ir.Function:
			sym.Kind = KindFunction
		case *ir.Alias:
			sym.Kind = KindAlias
			sym.Signature = d.Name + " = " + d.Target.String()
		}

		if sym.Signature == "" {
			sig, err := mangle.Demangle(e.Flat)
			switch {
			case err == nil:
				sym.Signature = sig.String()
			case errors.Is(err, mangle.ErrNotMangled):
				sym.Signature = sym.DeclName
			default:
				return nil, err
			}
		}
		out = append(out, sym)
	}
	return out, nil
}
