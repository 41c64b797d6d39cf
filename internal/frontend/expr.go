package frontend

import (
	"fmt"
	"strings"

	"github.com/roach88/flatc/internal/ir"
)

type tokKind int

const (
	tokEOF tokKind = iota
	tokIdent
	tokInt
	tokFloat
	tokString
	tokChar
	tokPunct
)

type exprToken struct {
	kind tokKind
	text string
	off  int
}

var twoCharPunct = []string{"&&", "||", "==", "!=", "<=", ">=", "::"}

const oneCharPunct = "+-*/%<>!&(),.[]"

// lexExpr splits an expression into tokens. String and char literals keep
// their quotes.
func lexExpr(src string) ([]exprToken, error) {
	var toks []exprToken
	i := 0
	for i < len(src) {
		c := src[i]
		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			i++
		case isIdentStart(c):
			j := i + 1
			for j < len(src) && isIdentPart(src[j]) {
				j++
			}
			toks = append(toks, exprToken{tokIdent, src[i:j], i})
			i = j
		case c >= '0' && c <= '9':
			j := i
			for j < len(src) && src[j] >= '0' && src[j] <= '9' {
				j++
			}
			kind := tokInt
			if j+1 < len(src) && src[j] == '.' && src[j+1] >= '0' && src[j+1] <= '9' {
				kind = tokFloat
				j++
				for j < len(src) && src[j] >= '0' && src[j] <= '9' {
					j++
				}
			}
			toks = append(toks, exprToken{kind, src[i:j], i})
			i = j
		case c == '"' || c == '\'':
			j := i + 1
			for j < len(src) && src[j] != c {
				if src[j] == '\\' {
					j++
				}
				j++
			}
			if j >= len(src) {
				return nil, fmt.Errorf("offset %d: unterminated literal", i)
			}
			kind := tokString
			if c == '\'' {
				kind = tokChar
			}
			toks = append(toks, exprToken{kind, src[i : j+1], i})
			i = j + 1
		default:
			if i+1 < len(src) {
				pair := src[i : i+2]
				matched := false
				for _, p := range twoCharPunct {
					if pair == p {
						matched = true
						break
					}
				}
				if matched {
					toks = append(toks, exprToken{tokPunct, pair, i})
					i += 2
					continue
				}
			}
			if !strings.ContainsRune(oneCharPunct, rune(c)) {
				return nil, fmt.Errorf("offset %d: unexpected character %q", i, c)
			}
			toks = append(toks, exprToken{tokPunct, string(c), i})
			i++
		}
	}
	return append(toks, exprToken{kind: tokEOF, off: len(src)}), nil
}

func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentPart(c byte) bool {
	return isIdentStart(c) || (c >= '0' && c <= '9')
}

// Binary operator precedence, loosest first.
var binaryPrec = map[string]int{
	"||": 1,
	"&&": 2,
	"==": 3, "!=": 3,
	"<": 4, "<=": 4, ">": 4, ">=": 4,
	"+": 5, "-": 5,
	"*": 6, "/": 6, "%": 6,
}

type exprParser struct {
	env  *bodyEnv
	toks []exprToken
	pos  int
}

// parseExpr parses and types src in the current body scope. hint is the
// type the context expects, or nil; it selects function references and
// types empty array literals.
func (e *bodyEnv) parseExpr(src string, hint ir.Type) (ir.Expr, error) {
	toks, err := lexExpr(src)
	if err != nil {
		return nil, err
	}
	p := &exprParser{env: e, toks: toks}
	x, err := p.expr(0, hint)
	if err != nil {
		return nil, err
	}
	if t := p.peek(); t.kind != tokEOF {
		return nil, fmt.Errorf("offset %d: unexpected %q", t.off, t.text)
	}
	return x, nil
}

func (p *exprParser) peek() exprToken { return p.toks[p.pos] }

func (p *exprParser) peekAt(n int) exprToken {
	if p.pos+n >= len(p.toks) {
		return p.toks[len(p.toks)-1]
	}
	return p.toks[p.pos+n]
}

func (p *exprParser) next() exprToken {
	t := p.toks[p.pos]
	if t.kind != tokEOF {
		p.pos++
	}
	return t
}

func (p *exprParser) is(text string) bool {
	t := p.peek()
	return t.kind == tokPunct && t.text == text
}

func (p *exprParser) expect(text string) error {
	if !p.is(text) {
		t := p.peek()
		return fmt.Errorf("offset %d: expected %q, got %q", t.off, text, t.text)
	}
	p.next()
	return nil
}

func (p *exprParser) ident() (string, error) {
	t := p.next()
	if t.kind != tokIdent {
		return "", fmt.Errorf("offset %d: expected identifier, got %q", t.off, t.text)
	}
	return t.text, nil
}

func (p *exprParser) expr(minPrec int, hint ir.Type) (ir.Expr, error) {
	left, err := p.unary(hint)
	if err != nil {
		return nil, err
	}
	for {
		op := p.peek()
		prec, ok := binaryPrec[op.text]
		if op.kind != tokPunct || !ok || prec <= minPrec {
			return left, nil
		}
		p.next()
		right, err := p.expr(prec, nil)
		if err != nil {
			return nil, err
		}
		left = &ir.Binary{Op: op.text, L: left, R: right, Typ: binaryType(op.text, left)}
	}
}

func binaryType(op string, left ir.Expr) ir.Type {
	switch op {
	case "||", "&&", "==", "!=", "<", "<=", ">", ">=":
		return ir.Bool
	}
	return valueType(left.Type())
}

// valueType strips a reference from t.
func valueType(t ir.Type) ir.Type {
	if r, ok := ir.Canonical(t).(ir.Reference); ok {
		return ir.WithConst(r.Elem, !r.Mutable)
	}
	return t
}

func (p *exprParser) unary(hint ir.Type) (ir.Expr, error) {
	t := p.peek()
	if t.kind != tokPunct {
		return p.postfix(hint)
	}
	switch t.text {
	case "&":
		p.next()
		if ref, ok, err := p.funcRef(hint); ok || err != nil {
			return ref, err
		}
		x, err := p.unary(nil)
		if err != nil {
			return nil, err
		}
		return &ir.Unary{Op: "&", X: x, Typ: ir.PointerTo(x.Type(), 1)}, nil
	case "*":
		p.next()
		x, err := p.unary(nil)
		if err != nil {
			return nil, err
		}
		var elem ir.Type = ir.Erased{}
		if ptr, ok := ir.Canonical(valueType(x.Type())).(ir.Pointer); ok {
			elem = ir.PointerTo(ptr.Elem, ptr.Depth-1)
		}
		return &ir.Unary{Op: "*", X: x, Typ: elem}, nil
	case "-":
		p.next()
		x, err := p.unary(hint)
		if err != nil {
			return nil, err
		}
		return &ir.Unary{Op: "-", X: x, Typ: valueType(x.Type())}, nil
	case "!":
		p.next()
		x, err := p.unary(nil)
		if err != nil {
			return nil, err
		}
		return &ir.Unary{Op: "!", X: x, Typ: ir.Bool}, nil
	}
	return p.postfix(hint)
}

// funcRef parses the operand of "&" when it names a function rather than
// a variable: "&f" or "&Owner::m".
func (p *exprParser) funcRef(hint ir.Type) (ir.Expr, bool, error) {
	t := p.peek()
	if t.kind != tokIdent {
		return nil, false, nil
	}
	sig, _ := hint.(ir.FuncPtr)

	if next := p.peekAt(1); next.kind == tokPunct && next.text == "::" {
		if _, ok := p.env.aggs[t.text]; !ok {
			return nil, true, fmt.Errorf("offset %d: unknown aggregate %q", t.off, t.text)
		}
		p.next()
		p.next()
		name, err := p.ident()
		if err != nil {
			return nil, true, err
		}
		return &ir.FuncRef{Func: name, Owner: t.text, Typ: sig}, true, nil
	}

	if _, local := p.env.lookup(t.text); local {
		return nil, false, nil
	}
	if _, fn := p.env.free[t.text]; !fn {
		return nil, false, nil
	}
	if next := p.peekAt(1); next.kind == tokPunct && (next.text == "(" || next.text == ".") {
		return nil, false, nil
	}
	p.next()
	return &ir.FuncRef{Func: t.text, Typ: sig}, true, nil
}

func (p *exprParser) postfix(hint ir.Type) (ir.Expr, error) {
	x, err := p.primary(hint)
	if err != nil {
		return nil, err
	}
	for p.is(".") {
		p.next()
		name, err := p.ident()
		if err != nil {
			return nil, err
		}
		agg, ok := p.env.aggregateOf(x.Type())
		if !ok {
			return nil, fmt.Errorf("selector %s on non-aggregate %s", name, x.Type())
		}
		if p.is("(") {
			args, err := p.args()
			if err != nil {
				return nil, err
			}
			x = &ir.Call{Func: name, Recv: x, Args: args, Typ: returnOf(p.env.methods[methodKey(agg.Name, name)])}
			continue
		}
		f, ok := fieldOf(agg, name)
		if !ok {
			return nil, fmt.Errorf("%s %s has no field %s", agg.Kind, agg.Name, name)
		}
		x = &ir.FieldAccess{X: x, Field: name, Typ: f.Type}
	}
	return x, nil
}

func (p *exprParser) args() ([]ir.Expr, error) {
	if err := p.expect("("); err != nil {
		return nil, err
	}
	var args []ir.Expr
	for !p.is(")") {
		if len(args) > 0 {
			if err := p.expect(","); err != nil {
				return nil, err
			}
		}
		a, err := p.expr(0, nil)
		if err != nil {
			return nil, err
		}
		args = append(args, a)
	}
	p.next()
	return args, nil
}

func (p *exprParser) primary(hint ir.Type) (ir.Expr, error) {
	t := p.peek()
	switch t.kind {
	case tokInt:
		p.next()
		return &ir.Literal{Value: t.text, Typ: ir.Int}, nil
	case tokFloat:
		p.next()
		return &ir.Literal{Value: t.text, Typ: ir.Builtin{Name: "double"}}, nil
	case tokString:
		p.next()
		return &ir.Literal{Value: t.text, Typ: ir.Str}, nil
	case tokChar:
		p.next()
		return &ir.Literal{Value: t.text, Typ: ir.Builtin{Name: "char"}}, nil
	case tokIdent:
		return p.name()
	case tokPunct:
		switch t.text {
		case "(":
			return p.paren()
		case "[":
			return p.array(hint)
		}
	}
	if t.kind == tokEOF {
		return nil, fmt.Errorf("offset %d: unexpected end of expression", t.off)
	}
	return nil, fmt.Errorf("offset %d: unexpected %q", t.off, t.text)
}

func (p *exprParser) name() (ir.Expr, error) {
	t := p.next()
	switch t.text {
	case "true", "false":
		return &ir.Literal{Value: t.text, Typ: ir.Bool}, nil
	case "null":
		return &ir.Literal{Value: t.text, Typ: ir.PointerTo(ir.Void, 1)}, nil
	case "this":
		var typ ir.Type
		if f := p.env.fn; f != nil && f.HasReceiver() {
			typ = ir.PointerTo(ir.WithConst(f.OwnerType(), f.ConstReceiver), 1)
		}
		return &ir.This{Typ: typ}, nil
	}

	if p.is("(") {
		args, err := p.args()
		if err != nil {
			return nil, err
		}
		if agg, ok := p.env.aggs[t.text]; ok {
			return &ir.Construct{Typ: agg.Type(), Args: args}, nil
		}
		return &ir.Call{Func: t.text, Args: args, Typ: returnOf(p.env.free[t.text])}, nil
	}
	if typ, ok := p.env.lookup(t.text); ok {
		return &ir.Ident{Name: t.text, Typ: typ}, nil
	}
	return nil, fmt.Errorf("offset %d: undefined: %s", t.off, t.text)
}

// paren parses a parenthesized expression or a cast "(T)x". A group is a
// cast when its content parses as a type, does not start with a variable
// and is followed by an operand.
func (p *exprParser) paren() (ir.Expr, error) {
	open := p.pos
	p.next()
	if to, ok := p.castType(); ok {
		x, err := p.unary(nil)
		if err != nil {
			return nil, err
		}
		return &ir.Cast{To: to, X: x}, nil
	}
	p.pos = open + 1
	x, err := p.expr(0, nil)
	if err != nil {
		return nil, err
	}
	if err := p.expect(")"); err != nil {
		return nil, err
	}
	return x, nil
}

func (p *exprParser) castType() (ir.Type, bool) {
	first := p.peek()
	if first.kind != tokIdent {
		return nil, false
	}
	if _, local := p.env.lookup(first.text); local {
		return nil, false
	}
	var parts []string
	depth := 0
	for {
		t := p.next()
		if t.kind == tokEOF {
			return nil, false
		}
		if t.kind == tokPunct && t.text == "(" {
			depth++
		}
		if t.kind == tokPunct && t.text == ")" {
			if depth == 0 {
				break
			}
			depth--
		}
		parts = append(parts, t.text)
	}
	if !startsOperand(p.peek()) {
		return nil, false
	}
	to, err := ParseType(strings.Join(parts, " "), p.env.scope)
	if err != nil {
		return nil, false
	}
	return to, true
}

func startsOperand(t exprToken) bool {
	switch t.kind {
	case tokIdent, tokInt, tokFloat, tokString, tokChar:
		return true
	case tokPunct:
		return strings.Contains("(&*-![", t.text)
	}
	return false
}

func (p *exprParser) array(hint ir.Type) (ir.Expr, error) {
	p.next()
	var elemHint ir.Type
	if a, ok := ir.Canonical(hint).(ir.Array); ok {
		elemHint = a.Elem
	}
	var items []ir.Expr
	for !p.is("]") {
		if len(items) > 0 {
			if err := p.expect(","); err != nil {
				return nil, err
			}
		}
		x, err := p.expr(0, elemHint)
		if err != nil {
			return nil, err
		}
		items = append(items, x)
	}
	p.next()

	elem := elemHint
	if elem == nil && len(items) > 0 {
		elem = valueType(items[0].Type())
	}
	if elem == nil {
		elem = ir.Erased{}
	}
	return &ir.ArrayLit{Elem: elem, Items: items}, nil
}

// returnOf is the return type shared by a candidate set, or void when the
// set is empty. Overload resolution later settles the exact callee.
func returnOf(cands []*ir.Function) ir.Type {
	if len(cands) == 0 || cands[0].Return == nil {
		return ir.Void
	}
	return cands[0].Return
}

func fieldOf(a *ir.Aggregate, name string) (ir.Field, bool) {
	for _, f := range a.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return ir.Field{}, false
}
