package mangle

import (
	"errors"
	"fmt"
	"strings"

	"github.com/roach88/flatc/internal/ir"
)

// ErrNotMangled is returned by Demangle for names without the reserved
// prefix, such as C-linkage names and main.
var ErrNotMangled = errors.New("not a mangled name")

// SymbolKind is the declaration kind encoded in a flat name.
type SymbolKind string

const (
	SymbolAggregate   SymbolKind = "aggregate"
	SymbolFunction    SymbolKind = "function"
	SymbolMethod      SymbolKind = "method"
	SymbolConstructor SymbolKind = "constructor"
	SymbolDestructor  SymbolKind = "destructor"
)

// Signature is the decoded form of a flat name.
type Signature struct {
	Kind          SymbolKind
	Aggregate     ir.Named // the aggregate itself, or the owner of a member
	Name          string   // function or method name
	ConstReceiver bool
	Params        []ir.Type
	Variadic      bool
	VariadicElem  ir.Type // nil for an implicit tail
}

// String renders s in the type-expression notation, e.g.
// "class Foo::set(int, ref str)".
func (s Signature) String() string {
	var b strings.Builder
	switch s.Kind {
	case SymbolAggregate:
		return s.Aggregate.String()
	case SymbolFunction:
		b.WriteString(s.Name)
	case SymbolMethod:
		fmt.Fprintf(&b, "%s::%s", s.Aggregate, s.Name)
	case SymbolConstructor:
		fmt.Fprintf(&b, "%s::%s", s.Aggregate, s.Aggregate.Name)
	case SymbolDestructor:
		fmt.Fprintf(&b, "%s::~%s", s.Aggregate, s.Aggregate.Name)
	}
	parts := make([]string, 0, len(s.Params)+1)
	for _, p := range s.Params {
		parts = append(parts, p.String())
	}
	if s.Variadic {
		if s.VariadicElem != nil {
			parts = append(parts, s.VariadicElem.String()+"...")
		} else {
			parts = append(parts, "...")
		}
	}
	fmt.Fprintf(&b, "(%s)", strings.Join(parts, ", "))
	if s.ConstReceiver {
		b.WriteString(" const")
	}
	return b.String()
}

// Demangle decodes a flat name produced by Mangle. Trailing or malformed
// input is an error.
func Demangle(name string) (Signature, error) {
	if !strings.HasPrefix(name, Prefix) {
		return Signature{}, ErrNotMangled
	}
	p := &parser{s: name, pos: len(Prefix)}
	sig, err := p.parseSymbol()
	if err != nil {
		return Signature{}, fmt.Errorf("demangle %s: %w", name, err)
	}
	if !p.eof() {
		return Signature{}, fmt.Errorf("demangle %s: trailing characters at position %d", name, p.pos)
	}
	return sig, nil
}

// DemangleType decodes a single type token.
func DemangleType(token string) (ir.Type, error) {
	p := &parser{s: token}
	t, err := p.parseType()
	if err != nil {
		return nil, fmt.Errorf("demangle type %s: %w", token, err)
	}
	if !p.eof() {
		return nil, fmt.Errorf("demangle type %s: trailing characters at position %d", token, p.pos)
	}
	return t, nil
}

type parser struct {
	s   string
	pos int
}

func (p *parser) eof() bool {
	return p.pos >= len(p.s)
}

func (p *parser) peek() byte {
	if p.eof() {
		return 0
	}
	return p.s[p.pos]
}

func (p *parser) consume(c byte) bool {
	if p.peek() == c && !p.eof() {
		p.pos++
		return true
	}
	return false
}

func (p *parser) parseSymbol() (Signature, error) {
	if p.consume(tokFunction) {
		name, err := p.parseIdent()
		if err != nil {
			return Signature{}, err
		}
		sig := Signature{Kind: SymbolFunction, Name: name}
		return sig, p.parseParams(&sig)
	}

	owner, err := p.parseAggregate()
	if err != nil {
		return Signature{}, err
	}
	sig := Signature{Aggregate: owner}
	if p.eof() {
		sig.Kind = SymbolAggregate
		return sig, nil
	}

	sig.ConstReceiver = p.consume(tokConst)
	switch {
	case p.consume(tokFunction):
		sig.Kind = SymbolMethod
		if sig.Name, err = p.parseIdent(); err != nil {
			return Signature{}, err
		}
	case sig.ConstReceiver:
		return Signature{}, fmt.Errorf("const receiver on non-method at position %d", p.pos)
	case p.consume(tokInit):
		sig.Kind = SymbolConstructor
	case p.consume(tokFinal):
		sig.Kind = SymbolDestructor
		return sig, nil
	default:
		return Signature{}, fmt.Errorf("unexpected %q at position %d", p.peek(), p.pos)
	}
	return sig, p.parseParams(&sig)
}

func (p *parser) parseParams(sig *Signature) error {
	for !p.eof() && p.peek() != tokVariadic {
		t, err := p.parseType()
		if err != nil {
			return err
		}
		sig.Params = append(sig.Params, t)
	}
	if p.consume(tokVariadic) {
		sig.Variadic = true
		if !p.eof() {
			elem, err := p.parseType()
			if err != nil {
				return err
			}
			sig.VariadicElem = elem
		}
	}
	return nil
}

func (p *parser) parseAggregate() (ir.Named, error) {
	var kind ir.AggregateKind
	switch p.peek() {
	case tokClass:
		kind = ir.KindClass
	case tokStruct:
		kind = ir.KindStruct
	case tokUnion:
		kind = ir.KindUnion
	default:
		return ir.Named{}, fmt.Errorf("expected aggregate token at position %d", p.pos)
	}
	p.pos++
	name, err := p.parseIdent()
	if err != nil {
		return ir.Named{}, err
	}
	return ir.Named{Kind: kind, Name: name}, nil
}

func (p *parser) parseType() (ir.Type, error) {
	if p.eof() {
		return nil, fmt.Errorf("unexpected end of input")
	}
	switch c := p.peek(); c {
	case tokConst:
		p.pos++
		t, err := p.parseType()
		if err != nil {
			return nil, err
		}
		switch t.(type) {
		case ir.Builtin, ir.Named:
			if ir.IsConst(t) {
				return nil, fmt.Errorf("repeated const at position %d", p.pos)
			}
			return ir.WithConst(t, true), nil
		}
		return nil, fmt.Errorf("const applied to %s", t)
	case tokBuiltin:
		p.pos++
		name, err := p.parseIdent()
		if err != nil {
			return nil, err
		}
		if _, ok := ir.Builtins[name]; !ok {
			return nil, fmt.Errorf("unknown builtin %q", name)
		}
		return ir.Builtin{Name: name}, nil
	case tokClass, tokStruct, tokUnion:
		return p.parseAggregate()
	case tokPointer:
		depth := 0
		for p.consume(tokPointer) {
			depth++
		}
		elem, err := p.parseType()
		if err != nil {
			return nil, err
		}
		return ir.Pointer{Elem: elem, Depth: depth}, nil
	case tokRef, tokConstRef:
		p.pos++
		elem, err := p.parseType()
		if err != nil {
			return nil, err
		}
		return ir.Reference{Elem: elem, Mutable: c == tokRef}, nil
	case tokArray:
		p.pos++
		elem, err := p.parseType()
		if err != nil {
			return nil, err
		}
		return ir.Array{Elem: elem}, nil
	case tokErased:
		p.pos++
		return ir.Erased{}, nil
	case tokFuncPtr:
		p.pos++
		n, err := p.parseNumber()
		if err != nil {
			return nil, err
		}
		params := make([]ir.Type, n)
		for i := range params {
			if params[i], err = p.parseType(); err != nil {
				return nil, err
			}
		}
		ret, err := p.parseType()
		if err != nil {
			return nil, err
		}
		return ir.FuncPtr{Params: params, Return: ret}, nil
	default:
		return nil, fmt.Errorf("unexpected %q at position %d", c, p.pos)
	}
}

func (p *parser) parseNumber() (int, error) {
	start := p.pos
	n := 0
	for !p.eof() && p.peek() >= '0' && p.peek() <= '9' {
		if p.pos > start && p.s[start] == '0' {
			return 0, fmt.Errorf("leading zero in number at position %d", start)
		}
		n = n*10 + int(p.peek()-'0')
		if n > len(p.s) {
			return 0, fmt.Errorf("number too large at position %d", start)
		}
		p.pos++
	}
	if p.pos == start {
		return 0, fmt.Errorf("expected number at position %d", start)
	}
	return n, nil
}

func (p *parser) parseIdent() (string, error) {
	n, err := p.parseNumber()
	if err != nil {
		return "", err
	}
	if n == 0 || p.pos+n > len(p.s) {
		return "", fmt.Errorf("identifier length %d out of range at position %d", n, p.pos)
	}
	name := p.s[p.pos : p.pos+n]
	p.pos += n
	return name, nil
}
