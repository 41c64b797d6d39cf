package frontend

import "github.com/roach88/flatc/internal/ir"

// scope holds the unit-level names visible while decoding.
type scope struct {
	aggs    map[string]*ir.Aggregate
	aliases map[string]ir.Type
	free    map[string][]*ir.Function
	methods map[string][]*ir.Function
}

func newScope() *scope {
	return &scope{
		aggs:    make(map[string]*ir.Aggregate),
		aliases: make(map[string]ir.Type),
		free:    make(map[string][]*ir.Function),
		methods: make(map[string][]*ir.Function),
	}
}

func (s *scope) Aggregate(name string) (ir.AggregateKind, bool) {
	a, ok := s.aggs[name]
	if !ok {
		return "", false
	}
	return a.Kind, true
}

func (s *scope) Alias(name string) (ir.Type, bool) {
	t, ok := s.aliases[name]
	return t, ok
}

func methodKey(owner, name string) string {
	return owner + "::" + name
}

func (s *scope) addFunction(f *ir.Function) {
	switch f.Role {
	case ir.RoleFree:
		s.free[f.Name] = append(s.free[f.Name], f)
	case ir.RoleMethod:
		k := methodKey(f.Owner, f.Name)
		s.methods[k] = append(s.methods[k], f)
	}
}

// aggregateOf returns the aggregate t designates, looking through one
// pointer or reference.
func (s *scope) aggregateOf(t ir.Type) (*ir.Aggregate, bool) {
	switch v := ir.Canonical(t).(type) {
	case ir.Named:
		a, ok := s.aggs[v.Name]
		return a, ok
	case ir.Pointer:
		if v.Depth == 1 {
			return s.aggregateOf(v.Elem)
		}
	case ir.Reference:
		return s.aggregateOf(v.Elem)
	}
	return nil, false
}

// bodyEnv is the lexical environment of one function body.
type bodyEnv struct {
	*scope
	fn     *ir.Function
	frames []map[string]ir.Type
}

func newBodyEnv(s *scope, f *ir.Function) *bodyEnv {
	e := &bodyEnv{scope: s, fn: f}
	e.push()
	for _, p := range f.Params {
		e.declare(p.Name, p.Type)
	}
	if v := f.Variadic; v != nil {
		var elem ir.Type = ir.Erased{}
		if v.Elem != nil {
			elem = v.Elem
		}
		e.declare(v.Name, ir.Array{Elem: elem})
	}
	return e
}

func (e *bodyEnv) push() {
	e.frames = append(e.frames, make(map[string]ir.Type))
}

func (e *bodyEnv) pop() {
	e.frames = e.frames[:len(e.frames)-1]
}

func (e *bodyEnv) declare(name string, t ir.Type) {
	e.frames[len(e.frames)-1][name] = t
}

func (e *bodyEnv) lookup(name string) (ir.Type, bool) {
	for i := len(e.frames) - 1; i >= 0; i-- {
		if t, ok := e.frames[i][name]; ok {
			return t, true
		}
	}
	return nil, false
}
