package frontend

import (
	"fmt"
	"strings"

	"github.com/roach88/flatc/internal/ir"
)

// TypeScope resolves bare names in type expressions.
type TypeScope interface {
	// Aggregate returns the kind of the aggregate called name.
	Aggregate(name string) (ir.AggregateKind, bool)
	// Alias returns the target of the type alias called name.
	Alias(name string) (ir.Type, bool)
}

// ParseType parses the type-expression notation:
//
//	type  = "const" "ref" type | "const" base | "ptr" type | "ref" type
//	      | "array" type | "any" | "func" "(" [type {"," type}] ")" type
//	      | base
//	base  = builtin | ("class" | "struct" | "union") ident | ident
//
// A bare identifier names an aggregate or an alias of scope; aliases are
// replaced by their target. scope may be nil.
func ParseType(s string, scope TypeScope) (ir.Type, error) {
	p := &typeParser{toks: tokenizeType(s), scope: scope}
	t, err := p.parse()
	if err != nil {
		return nil, fmt.Errorf("type %q: %w", s, err)
	}
	if !p.eof() {
		return nil, fmt.Errorf("type %q: unexpected %q", s, p.peek())
	}
	return t, nil
}

func tokenizeType(s string) []string {
	var toks []string
	var cur strings.Builder
	flush := func() {
		if cur.Len() > 0 {
			toks = append(toks, cur.String())
			cur.Reset()
		}
	}
	for _, r := range s {
		switch {
		case r == '(' || r == ')' || r == ',':
			flush()
			toks = append(toks, string(r))
		case r == ' ' || r == '\t' || r == '\n':
			flush()
		default:
			cur.WriteRune(r)
		}
	}
	flush()
	return toks
}

type typeParser struct {
	toks  []string
	pos   int
	scope TypeScope
}

func (p *typeParser) eof() bool { return p.pos >= len(p.toks) }

func (p *typeParser) peek() string {
	if p.eof() {
		return ""
	}
	return p.toks[p.pos]
}

func (p *typeParser) next() string {
	t := p.peek()
	p.pos++
	return t
}

func (p *typeParser) expect(tok string) error {
	if got := p.next(); got != tok {
		return fmt.Errorf("expected %q, got %q", tok, got)
	}
	return nil
}

func (p *typeParser) parse() (ir.Type, error) {
	switch tok := p.next(); tok {
	case "":
		return nil, fmt.Errorf("unexpected end")
	case "const":
		if p.peek() == "ref" {
			p.next()
			elem, err := p.parse()
			if err != nil {
				return nil, err
			}
			return ir.Reference{Elem: elem, Mutable: false}, nil
		}
		base, err := p.parse()
		if err != nil {
			return nil, err
		}
		switch base.(type) {
		case ir.Builtin, ir.Named:
			return ir.WithConst(base, true), nil
		}
		return nil, fmt.Errorf("const applies to builtins and aggregates, not %s", base)
	case "ptr":
		elem, err := p.parse()
		if err != nil {
			return nil, err
		}
		return ir.PointerTo(elem, 1), nil
	case "ref":
		elem, err := p.parse()
		if err != nil {
			return nil, err
		}
		return ir.Reference{Elem: elem, Mutable: true}, nil
	case "array":
		elem, err := p.parse()
		if err != nil {
			return nil, err
		}
		return ir.Array{Elem: elem}, nil
	case "any":
		return ir.Erased{}, nil
	case "func":
		return p.funcPtr()
	case string(ir.KindClass), string(ir.KindStruct), string(ir.KindUnion):
		name := p.next()
		if name == "" {
			return nil, fmt.Errorf("%s needs a name", tok)
		}
		return ir.Named{Kind: ir.AggregateKind(tok), Name: name}, nil
	default:
		if _, ok := ir.Builtins[tok]; ok {
			return ir.Builtin{Name: tok}, nil
		}
		if p.scope != nil {
			if kind, ok := p.scope.Aggregate(tok); ok {
				return ir.Named{Kind: kind, Name: tok}, nil
			}
			if target, ok := p.scope.Alias(tok); ok {
				return target, nil
			}
		}
		return nil, fmt.Errorf("unknown type %q", tok)
	}
}

func (p *typeParser) funcPtr() (ir.Type, error) {
	if err := p.expect("("); err != nil {
		return nil, err
	}
	var params []ir.Type
	for p.peek() != ")" {
		if len(params) > 0 {
			if err := p.expect(","); err != nil {
				return nil, err
			}
		}
		t, err := p.parse()
		if err != nil {
			return nil, err
		}
		params = append(params, t)
	}
	p.next()
	ret, err := p.parse()
	if err != nil {
		return nil, err
	}
	return ir.FuncPtr{Params: params, Return: ret}, nil
}
