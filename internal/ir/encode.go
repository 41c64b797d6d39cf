package ir

import "fmt"

// EncodeUnit converts u into a value tree for canonical hashing.
func EncodeUnit(u *Unit) Node {
	decls := make(NodeList, len(u.Decls))
	for i, d := range u.Decls {
		decls[i] = EncodeDecl(d)
	}
	macros := make(NodeList, len(u.Macros))
	for i, m := range u.Macros {
		macros[i] = encodeMacro(m)
	}
	return NodeObject{
		"ir_version": NodeString(IRVersion),
		"name":       NodeString(u.Name),
		"decls":      decls,
		"macros":     macros,
	}
}

// EncodeDecl converts one declaration into a value tree.
func EncodeDecl(d Decl) Node {
	switch v := d.(type) {
	case *Aggregate:
		fields := make(NodeList, len(v.Fields))
		for i, f := range v.Fields {
			fields[i] = NodeList{NodeString(f.Name), encodeType(f.Type)}
		}
		return NodeObject{
			"decl":    NodeString("aggregate"),
			"kind":    NodeString(v.Kind),
			"name":    NodeString(v.Name),
			"fields":  fields,
			"opaque":  NodeBool(v.Opaque),
			"linkage": NodeString(v.Linkage),
		}
	case *Function:
		params := make(NodeList, len(v.Params))
		for i, p := range v.Params {
			param := NodeList{NodeString(p.Name), encodeType(p.Type)}
			if p.Default != nil {
				param = append(param, encodeExpr(p.Default))
			}
			params[i] = param
		}
		obj := NodeObject{
			"decl":           NodeString("function"),
			"owner":          NodeString(v.Owner),
			"owner_kind":     NodeString(v.OwnerKind),
			"name":           NodeString(v.Name),
			"role":           NodeString(v.Role),
			"params":         params,
			"return":         encodeType(v.Return),
			"const_receiver": NodeBool(v.ConstReceiver),
			"linkage":        NodeString(v.Linkage),
		}
		if v.Variadic != nil {
			obj["variadic"] = NodeObject{
				"name":     NodeString(v.Variadic.Name),
				"elem":     encodeType(v.Variadic.Elem),
				"explicit": NodeBool(v.Variadic.Explicit),
			}
		}
		if v.Body != nil {
			obj["body"] = encodeBlock(v.Body)
		}
		return obj
	case *Alias:
		return NodeObject{
			"decl":   NodeString("alias"),
			"name":   NodeString(v.Name),
			"target": encodeType(v.Target),
		}
	default:
		panic(fmt.Sprintf("ir: unknown declaration %T", d))
	}
}

func encodeMacro(m Macro) Node {
	params := make(NodeList, len(m.Params))
	for i, p := range m.Params {
		params[i] = NodeString(p)
	}
	body := make(NodeList, len(m.Body))
	for i, tok := range m.Body {
		body[i] = NodeString(tok)
	}
	return NodeObject{
		"kind":   NodeString(m.Kind),
		"name":   NodeString(m.Name),
		"params": params,
		"body":   body,
		"type":   encodeType(m.Type),
	}
}

// encodeType uses the notation of the canonical form, which is injective
// over canonical types. A missing type encodes as the empty string.
func encodeType(t Type) Node {
	if t == nil {
		return NodeString("")
	}
	return NodeString(Canonical(t).String())
}

func encodeBlock(b *Block) Node {
	if b == nil {
		return NodeList{}
	}
	stmts := make(NodeList, len(b.Stmts))
	for i, s := range b.Stmts {
		stmts[i] = encodeStmt(s)
	}
	return stmts
}

func encodeStmt(s Stmt) Node {
	switch v := s.(type) {
	case *Block:
		return NodeObject{"stmt": NodeString("block"), "body": encodeBlock(v)}
	case *Local:
		obj := NodeObject{"stmt": NodeString("local"), "name": NodeString(v.Name), "type": encodeType(v.Typ)}
		if v.Init != nil {
			obj["init"] = encodeExpr(v.Init)
		}
		return obj
	case *ExprStmt:
		return NodeObject{"stmt": NodeString("expr"), "x": encodeExpr(v.X)}
	case *Assign:
		return NodeObject{"stmt": NodeString("assign"), "op": NodeString(v.Op),
			"target": encodeExpr(v.Target), "value": encodeExpr(v.Value)}
	case *Return:
		obj := NodeObject{"stmt": NodeString("return")}
		if v.X != nil {
			obj["x"] = encodeExpr(v.X)
		}
		return obj
	case *If:
		obj := NodeObject{"stmt": NodeString("if"), "cond": encodeExpr(v.Cond), "then": encodeBlock(v.Then)}
		if v.Else != nil {
			obj["else"] = encodeBlock(v.Else)
		}
		return obj
	case *While:
		return NodeObject{"stmt": NodeString("while"), "cond": encodeExpr(v.Cond), "body": encodeBlock(v.Body)}
	case *Break:
		return NodeObject{"stmt": NodeString("break")}
	case *Destroy:
		return NodeObject{"stmt": NodeString("destroy"), "x": encodeExpr(v.X)}
	default:
		panic(fmt.Sprintf("ir: unknown statement %T", s))
	}
}

func encodeExprs(es []Expr) NodeList {
	out := make(NodeList, len(es))
	for i, e := range es {
		out[i] = encodeExpr(e)
	}
	return out
}

func encodeExpr(e Expr) Node {
	switch v := e.(type) {
	case nil:
		return NodeObject{"expr": NodeString("none")}
	case *Ident:
		return NodeObject{"expr": NodeString("ident"), "name": NodeString(v.Name), "type": encodeType(v.Typ)}
	case *This:
		return NodeObject{"expr": NodeString("this")}
	case *Literal:
		return NodeObject{"expr": NodeString("literal"), "value": NodeString(v.Value), "type": encodeType(v.Typ)}
	case *FieldAccess:
		return NodeObject{"expr": NodeString("field"), "x": encodeExpr(v.X), "field": NodeString(v.Field)}
	case *Unary:
		return NodeObject{"expr": NodeString("unary"), "op": NodeString(v.Op), "x": encodeExpr(v.X)}
	case *Binary:
		return NodeObject{"expr": NodeString("binary"), "op": NodeString(v.Op),
			"l": encodeExpr(v.L), "r": encodeExpr(v.R)}
	case *Call:
		obj := NodeObject{"expr": NodeString("call"), "func": NodeString(v.Func), "args": encodeExprs(v.Args)}
		if v.Recv != nil {
			obj["recv"] = encodeExpr(v.Recv)
		}
		return obj
	case *Construct:
		return NodeObject{"expr": NodeString("construct"), "type": encodeType(v.Typ), "args": encodeExprs(v.Args)}
	case *FuncRef:
		return NodeObject{"expr": NodeString("funcref"), "func": NodeString(v.Func),
			"owner": NodeString(v.Owner), "type": encodeType(v.Typ)}
	case *Cast:
		return NodeObject{"expr": NodeString("cast"), "to": encodeType(v.To), "x": encodeExpr(v.X)}
	case *ArrayLit:
		return NodeObject{"expr": NodeString("array"), "elem": encodeType(v.Elem), "items": encodeExprs(v.Items)}
	case *Box:
		return NodeObject{"expr": NodeString("box"), "x": encodeExpr(v.X)}
	case *Comma:
		return NodeObject{"expr": NodeString("comma"), "exprs": encodeExprs(v.Exprs)}
	default:
		panic(fmt.Sprintf("ir: unknown expression %T", e))
	}
}
