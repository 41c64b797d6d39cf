package compiler

import (
	"container/heap"
	"slices"

	"github.com/roach88/flatc/internal/diag"
	"github.com/roach88/flatc/internal/ir"
)

// Phase says whether an emission is a name-only forward declaration or a
// full definition.
type Phase string

const (
	PhaseForward Phase = "forward"
	PhaseDefine  Phase = "define"
)

// Emission is one entry of the ordered output handed to the emitter.
type Emission struct {
	Phase Phase
	Decl  ir.Decl
}

// Order computes the emission order of a lowered declaration list.
//
// The algorithm:
//  1. Build a reference graph over declarations. Edges are "mentions by
//     name"; an edge is strong when the target aggregate is needed by
//     value (a field, a by-value parameter or local).
//  2. Reject strong cycles among aggregates (UnresolvableLayout).
//  3. Find strongly connected components with Tarjan's algorithm. Every
//     member of an SCC with more than one node or a self-loop gets a
//     forward declaration, as do opaque aggregates, prototypes and the
//     aggregates named in any forward-declared signature.
//  4. Emit definitions with Kahn's algorithm over the condensation,
//     first-declared component first.
//
// All forward declarations precede all definitions. The result depends only
// on the order of decls.
func Order(decls []ir.Decl) ([]Emission, error) {
	g := buildRefGraph(decls)

	if cycle := g.layoutCycle(); cycle != nil {
		members := make([]ir.Decl, len(cycle))
		for i, v := range cycle {
			members[i] = decls[v]
		}
		return nil, diag.NewUnresolvableLayout(members)
	}

	sccs := tarjanSCC(len(decls), g.successors)
	forward := g.forwardSet(sccs)

	emissions := make([]Emission, 0, len(decls)+len(forward))
	// Aggregate names first so function prototypes can mention them.
	for _, wantAgg := range []bool{true, false} {
		for i, d := range decls {
			_, isAgg := d.(*ir.Aggregate)
			if forward[i] && isAgg == wantAgg {
				emissions = append(emissions, Emission{Phase: PhaseForward, Decl: d})
			}
		}
	}

	for _, v := range g.definitionOrder(sccs) {
		if forwardOnly(decls[v]) {
			continue
		}
		emissions = append(emissions, Emission{Phase: PhaseDefine, Decl: decls[v]})
	}
	return emissions, nil
}

// forwardOnly reports declarations that have nothing to define.
func forwardOnly(d ir.Decl) bool {
	switch v := d.(type) {
	case *ir.Aggregate:
		return v.Opaque
	case *ir.Function:
		return v.Body == nil
	}
	return false
}

type refEdge struct {
	to     int
	strong bool
}

// refGraph is the reference graph over declaration positions.
type refGraph struct {
	decls []ir.Decl
	edges [][]refEdge
}

func buildRefGraph(decls []ir.Decl) *refGraph {
	g := &refGraph{decls: decls, edges: make([][]refEdge, len(decls))}

	aggs := make(map[string]int)
	funcs := make(map[string]int)
	for i, d := range decls {
		switch v := d.(type) {
		case *ir.Aggregate:
			if _, ok := aggs[v.Name]; !ok {
				aggs[v.Name] = i
			}
		case *ir.Function:
			funcs[v.Flat] = i
		}
	}

	for i, d := range decls {
		seen := make(map[int]int)
		add := func(to int, strong bool) {
			if at, ok := seen[to]; ok {
				if strong {
					g.edges[i][at].strong = true
				}
				return
			}
			seen[to] = len(g.edges[i])
			g.edges[i] = append(g.edges[i], refEdge{to: to, strong: strong})
		}
		mention := func(t ir.Type) {
			ir.Mentions(t, func(n ir.Named, byValue bool) {
				if j, ok := aggs[n.Name]; ok {
					add(j, byValue)
				}
			})
		}

		switch v := d.(type) {
		case *ir.Aggregate:
			for _, f := range v.Fields {
				mention(f.Type)
			}
		case *ir.Alias:
			mention(v.Target)
		case *ir.Function:
			for _, p := range v.Params {
				mention(p.Type)
			}
			mention(v.Return)
			if v.Body == nil {
				continue
			}
			ir.InspectLocals(v.Body, func(l *ir.Local) { mention(l.Typ) })
			ir.Inspect(v.Body, func(e ir.Expr) bool {
				var target string
				switch x := e.(type) {
				case *ir.Call:
					target = x.Target
				case *ir.FuncRef:
					target = x.Target
				}
				if j, ok := funcs[target]; ok && target != "" {
					add(j, false)
				}
				return true
			})
		}
	}
	return g
}

func (g *refGraph) successors(v int) []int {
	out := make([]int, len(g.edges[v]))
	for i, e := range g.edges[v] {
		out[i] = e.to
	}
	return out
}

// strongAggregateSuccessors restricts the graph to by-value containment
// between aggregates.
func (g *refGraph) strongAggregateSuccessors(v int) []int {
	if _, ok := g.decls[v].(*ir.Aggregate); !ok {
		return nil
	}
	var out []int
	for _, e := range g.edges[v] {
		if _, ok := g.decls[e.to].(*ir.Aggregate); ok && e.strong {
			out = append(out, e.to)
		}
	}
	return out
}

// layoutCycle returns the members of the first-declared value-containment
// cycle in declaration order, or nil.
func (g *refGraph) layoutCycle() []int {
	var found []int
	for _, scc := range tarjanSCC(len(g.decls), g.strongAggregateSuccessors) {
		if len(scc) == 1 && !hasSelfLoop(scc[0], g.strongAggregateSuccessors) {
			continue
		}
		if found == nil || scc[0] < found[0] {
			found = scc
		}
	}
	return found
}

// forwardSet marks the declarations that need a forward declaration.
func (g *refGraph) forwardSet(sccs [][]int) map[int]bool {
	forward := make(map[int]bool)
	for _, scc := range sccs {
		if len(scc) > 1 || hasSelfLoop(scc[0], g.successors) {
			for _, v := range scc {
				forward[v] = true
			}
		}
	}
	for i, d := range g.decls {
		if forwardOnly(d) {
			forward[i] = true
		}
	}
	for i, d := range g.decls {
		f, ok := d.(*ir.Function)
		if !ok || !forward[i] {
			continue
		}
		// The signature of a prototype names aggregates that may not be
		// defined yet.
		sig := make(map[string]bool)
		for _, t := range append(f.ParamTypes(), f.Return) {
			ir.Mentions(t, func(n ir.Named, _ bool) { sig[n.Name] = true })
		}
		for _, e := range g.edges[i] {
			if a, ok := g.decls[e.to].(*ir.Aggregate); ok && sig[a.Name] {
				forward[e.to] = true
			}
		}
	}
	return forward
}

// definitionOrder runs Kahn's algorithm over the condensation of the
// graph. Ready components are taken lowest-position first; members of one
// component are ordered so that by-value dependencies come first.
func (g *refGraph) definitionOrder(sccs [][]int) []int {
	comp := make([]int, len(g.decls))
	for c, scc := range sccs {
		for _, v := range scc {
			comp[v] = c
		}
	}

	indegree := make([]int, len(sccs))
	dependents := make([][]int, len(sccs))
	for c, scc := range sccs {
		deps := make(map[int]bool)
		for _, v := range scc {
			for _, e := range g.edges[v] {
				if d := comp[e.to]; d != c && !deps[d] {
					deps[d] = true
					dependents[d] = append(dependents[d], c)
					indegree[c]++
				}
			}
		}
	}

	ready := &compQueue{}
	for c := range sccs {
		if indegree[c] == 0 {
			heap.Push(ready, compItem{comp: c, key: sccs[c][0]})
		}
	}

	order := make([]int, 0, len(g.decls))
	for ready.Len() > 0 {
		c := heap.Pop(ready).(compItem).comp
		order = append(order, g.orderWithin(sccs[c])...)
		for _, d := range dependents[c] {
			indegree[d]--
			if indegree[d] == 0 {
				heap.Push(ready, compItem{comp: d, key: sccs[d][0]})
			}
		}
	}
	return order
}

// orderWithin orders the members of one component. Strong edges inside a
// component are acyclic once layoutCycle has found nothing.
func (g *refGraph) orderWithin(scc []int) []int {
	if len(scc) == 1 {
		return scc
	}
	member := make(map[int]bool, len(scc))
	for _, v := range scc {
		member[v] = true
	}
	placed := make(map[int]bool, len(scc))
	out := make([]int, 0, len(scc))
	for len(out) < len(scc) {
		for _, v := range scc {
			if placed[v] {
				continue
			}
			ready := true
			for _, e := range g.edges[v] {
				if e.strong && e.to != v && member[e.to] && !placed[e.to] {
					ready = false
					break
				}
			}
			if ready {
				placed[v] = true
				out = append(out, v)
				break
			}
		}
	}
	return out
}

type compItem struct {
	comp int
	key  int
}

// compQueue is a min-heap of components keyed by their first position.
type compQueue []compItem

func (q compQueue) Len() int           { return len(q) }
func (q compQueue) Less(i, j int) bool { return q[i].key < q[j].key }
func (q compQueue) Swap(i, j int)      { q[i], q[j] = q[j], q[i] }
func (q *compQueue) Push(x any)        { *q = append(*q, x.(compItem)) }
func (q *compQueue) Pop() any {
	old := *q
	n := len(old)
	item := old[n-1]
	*q = old[:n-1]
	return item
}

// hasSelfLoop checks if a node has an edge to itself.
func hasSelfLoop(v int, succ func(int) []int) bool {
	for _, w := range succ(v) {
		if w == v {
			return true
		}
	}
	return false
}

// tarjanSCC finds strongly connected components using Tarjan's algorithm.
//
// Nodes are visited in ascending order and successors in edge order, so
// the result is deterministic. Each SCC is returned sorted ascending.
func tarjanSCC(n int, succ func(int) []int) [][]int {
	var (
		index   = 0
		stack   []int
		indices = make([]int, n)
		lowlink = make([]int, n)
		onStack = make([]bool, n)
		sccs    [][]int
	)
	for i := range indices {
		indices[i] = -1
	}

	var strongConnect func(int)
	strongConnect = func(v int) {
		indices[v] = index
		lowlink[v] = index
		index++
		stack = append(stack, v)
		onStack[v] = true

		for _, w := range succ(v) {
			if indices[w] < 0 {
				strongConnect(w)
				lowlink[v] = min(lowlink[v], lowlink[w])
			} else if onStack[w] {
				lowlink[v] = min(lowlink[v], indices[w])
			}
		}

		// If v is a root node, pop the stack and create an SCC
		if lowlink[v] == indices[v] {
			var scc []int
			for {
				w := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				onStack[w] = false
				scc = append(scc, w)
				if w == v {
					break
				}
			}
			slices.Sort(scc)
			sccs = append(sccs, scc)
		}
	}

	for v := 0; v < n; v++ {
		if indices[v] < 0 {
			strongConnect(v)
		}
	}
	return sccs
}
