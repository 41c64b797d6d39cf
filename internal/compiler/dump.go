package compiler

import (
	"fmt"
	"strings"

	"github.com/roach88/flatc/internal/ir"
)

// Dump renders a result as a deterministic text listing: forward
// declarations, then definitions, then the macro table. Declarations are
// shown under their flat names; types use the type-expression notation.
func Dump(r *Result) string {
	var b strings.Builder
	fmt.Fprintf(&b, "unit %s\n", r.Unit)
	for _, e := range r.Emissions {
		switch e.Phase {
		case PhaseForward:
			dumpForward(&b, e.Decl)
		default:
			dumpDefine(&b, e.Decl)
		}
	}
	for _, m := range r.Macros {
		dumpMacro(&b, m)
	}
	return b.String()
}

func dumpForward(b *strings.Builder, d ir.Decl) {
	switch v := d.(type) {
	case *ir.Aggregate:
		fmt.Fprintf(b, "forward %s %s\n", v.Kind, v.Flat)
	case *ir.Function:
		fmt.Fprintf(b, "forward func %s(%s) %s\n", v.Flat, typeList(v.ParamTypes()), v.Return)
	}
}

func dumpDefine(b *strings.Builder, d ir.Decl) {
	switch v := d.(type) {
	case *ir.Aggregate:
		fmt.Fprintf(b, "define %s %s {\n", v.Kind, v.Flat)
		for _, f := range v.Fields {
			fmt.Fprintf(b, "  %s %s\n", f.Name, f.Type)
		}
		b.WriteString("}\n")
	case *ir.Function:
		ps := make([]string, len(v.Params))
		for i, p := range v.Params {
			ps[i] = p.Name + " " + p.Type.String()
		}
		fmt.Fprintf(b, "define func %s(%s) %s {\n", v.Flat, strings.Join(ps, ", "), v.Return)
		p := &printer{b: b}
		p.block(v.Body, 1)
		b.WriteString("}\n")
	case *ir.Alias:
		fmt.Fprintf(b, "define alias %s = %s\n", v.Name, v.Target)
	}
}

func dumpMacro(b *strings.Builder, m ir.Macro) {
	switch m.Kind {
	case ir.MacroFunction:
		fmt.Fprintf(b, "macro function %s(%s) =", m.Name, strings.Join(m.Params, ", "))
	case ir.MacroTypeAlias:
		fmt.Fprintf(b, "macro type_alias %s = %s\n", m.Name, m.Type)
		return
	default:
		fmt.Fprintf(b, "macro object %s =", m.Name)
	}
	for _, tok := range m.Body {
		b.WriteString(" " + tok)
	}
	b.WriteString("\n")
}

func typeList(ts []ir.Type) string {
	parts := make([]string, len(ts))
	for i, t := range ts {
		parts[i] = t.String()
	}
	return strings.Join(parts, ", ")
}

// printer renders lowered bodies in a C-like pseudo syntax.
type printer struct {
	b *strings.Builder
}

func (p *printer) line(depth int, format string, args ...any) {
	p.b.WriteString(strings.Repeat("  ", depth))
	fmt.Fprintf(p.b, format, args...)
	p.b.WriteString("\n")
}

func (p *printer) block(blk *ir.Block, depth int) {
	if blk == nil {
		return
	}
	for _, s := range blk.Stmts {
		p.stmt(s, depth)
	}
}

func (p *printer) stmt(s ir.Stmt, depth int) {
	switch v := s.(type) {
	case *ir.Block:
		p.line(depth, "{")
		p.block(v, depth+1)
		p.line(depth, "}")
	case *ir.Local:
		if v.Init != nil {
			p.line(depth, "var %s %s = %s", v.Name, v.Typ, expr(v.Init))
		} else {
			p.line(depth, "var %s %s", v.Name, v.Typ)
		}
	case *ir.ExprStmt:
		p.line(depth, "%s", expr(v.X))
	case *ir.Assign:
		p.line(depth, "%s %s %s", expr(v.Target), v.Op, expr(v.Value))
	case *ir.Return:
		if v.X == nil {
			p.line(depth, "return")
		} else {
			p.line(depth, "return %s", expr(v.X))
		}
	case *ir.If:
		p.line(depth, "if %s {", expr(v.Cond))
		p.block(v.Then, depth+1)
		if v.Else != nil {
			p.line(depth, "} else {")
			p.block(v.Else, depth+1)
		}
		p.line(depth, "}")
	case *ir.While:
		p.line(depth, "while %s {", expr(v.Cond))
		p.block(v.Body, depth+1)
		p.line(depth, "}")
	case *ir.Break:
		p.line(depth, "break")
	case *ir.Destroy:
		p.line(depth, "destroy %s", expr(v.X))
	}
}

func expr(e ir.Expr) string {
	switch v := e.(type) {
	case *ir.Ident:
		return v.Name
	case *ir.This:
		return "this"
	case *ir.Literal:
		return v.Value
	case *ir.FieldAccess:
		return operand(v.X) + "." + v.Field
	case *ir.Unary:
		return v.Op + operand(v.X)
	case *ir.Binary:
		return operand(v.L) + " " + v.Op + " " + operand(v.R)
	case *ir.Call:
		name := v.Target
		if name == "" {
			name = v.Func
		}
		if v.Recv != nil {
			name = operand(v.Recv) + "." + name
		}
		return name + "(" + exprList(v.Args) + ")"
	case *ir.Construct:
		return v.Typ.String() + "(" + exprList(v.Args) + ")"
	case *ir.FuncRef:
		if v.Target != "" {
			return "&" + v.Target
		}
		return "&" + v.Func
	case *ir.Cast:
		return "(" + v.To.String() + ")" + operand(v.X)
	case *ir.ArrayLit:
		return "array " + v.Elem.String() + "{" + exprList(v.Items) + "}"
	case *ir.Box:
		return "box(" + expr(v.X) + ")"
	case *ir.Comma:
		return "(" + exprList(v.Exprs) + ")"
	}
	return "<?>"
}

// operand parenthesizes compound expressions used as an operand.
func operand(e ir.Expr) string {
	switch e.(type) {
	case *ir.Unary, *ir.Binary, *ir.Cast:
		return "(" + expr(e) + ")"
	}
	return expr(e)
}

func exprList(es []ir.Expr) string {
	parts := make([]string, len(es))
	for i, e := range es {
		parts[i] = expr(e)
	}
	return strings.Join(parts, ", ")
}
