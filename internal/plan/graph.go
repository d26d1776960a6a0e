package plan

import (
	"fmt"
	"sort"
)

// Graph tracks dependency bookkeeping for one plan. It is not
// goroutine-safe: the engine's scheduler loop is its only caller.
type Graph struct {
	unmet      map[int]map[int]struct{} // step id -> dependency ids not yet completed
	dependents map[int][]int            // step id -> steps that list it as a dependency
	issued     map[int]struct{}         // handed out by Ready and not yet resolved
	resolved   map[int]struct{}         // completed, failed, or blocked
}

// NewGraph validates the spec's dependency structure and builds the
// scheduling graph. Unknown dependency ids, self-dependencies, and
// cycles are rejected here, before any step runs.
func NewGraph(spec Spec) (*Graph, error) {
	if len(spec.Steps) == 0 {
		return nil, ErrEmptyPlan
	}

	ids := make(map[int]struct{}, len(spec.Steps))
	for _, s := range spec.Steps {
		if _, dup := ids[s.ID]; dup {
			return nil, fmt.Errorf("duplicate step id %d", s.ID)
		}
		ids[s.ID] = struct{}{}
	}

	g := &Graph{
		unmet:      make(map[int]map[int]struct{}, len(spec.Steps)),
		dependents: make(map[int][]int),
		issued:     make(map[int]struct{}),
		resolved:   make(map[int]struct{}),
	}

	for _, s := range spec.Steps {
		deps := make(map[int]struct{}, len(s.Dependencies))
		for _, d := range s.Dependencies {
			if d == s.ID {
				return nil, fmt.Errorf("step %d: %w", s.ID, ErrDependencyCycle)
			}
			if _, ok := ids[d]; !ok {
				return nil, fmt.Errorf("step %d depends on %d: %w", s.ID, d, ErrUnknownDependency)
			}
			deps[d] = struct{}{}
		}
		g.unmet[s.ID] = deps
		for d := range deps {
			g.dependents[d] = append(g.dependents[d], s.ID)
		}
	}

	if err := g.checkAcyclic(); err != nil {
		return nil, err
	}

	return g, nil
}

// checkAcyclic runs Kahn's algorithm over a scratch copy of the
// in-degree table; leftover nodes mean a cycle.
func (g *Graph) checkAcyclic() error {
	inDegree := make(map[int]int, len(g.unmet))
	for id, deps := range g.unmet {
		inDegree[id] = len(deps)
	}

	queue := make([]int, 0, len(inDegree))
	for id, deg := range inDegree {
		if deg == 0 {
			queue = append(queue, id)
		}
	}

	visited := 0
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		visited++
		for _, dep := range g.dependents[id] {
			inDegree[dep]--
			if inDegree[dep] == 0 {
				queue = append(queue, dep)
			}
		}
	}

	if visited != len(g.unmet) {
		return ErrDependencyCycle
	}
	return nil
}

// Ready returns up to limit steps whose dependencies are all
// completed and which have not been issued or resolved yet, in
// ascending id order (ties broken by ascending id). A limit of 0 or
// less means no limit. Returned ids are marked issued: each step is
// handed out exactly once.
func (g *Graph) Ready(limit int) []int {
	var ready []int
	for id, deps := range g.unmet {
		if len(deps) != 0 {
			continue
		}
		if _, ok := g.issued[id]; ok {
			continue
		}
		if _, ok := g.resolved[id]; ok {
			continue
		}
		ready = append(ready, id)
	}
	sort.Ints(ready)
	if limit > 0 && len(ready) > limit {
		ready = ready[:limit]
	}
	for _, id := range ready {
		g.issued[id] = struct{}{}
	}
	return ready
}

// MarkCompleted records a successful step and unblocks its dependents.
func (g *Graph) MarkCompleted(id int) {
	delete(g.issued, id)
	g.resolved[id] = struct{}{}
	for _, dep := range g.dependents[id] {
		delete(g.unmet[dep], id)
	}
}

// MarkFailed records a failed step and returns every unresolved
// transitive dependent, in ascending id order. The blocked steps are
// resolved as a side effect: they will never appear in Ready.
func (g *Graph) MarkFailed(id int) []int {
	delete(g.issued, id)
	g.resolved[id] = struct{}{}

	// Cascade to a fixed point: skipping a step blocks its own
	// dependents in turn.
	var blocked []int
	queue := append([]int(nil), g.dependents[id]...)
	for len(queue) > 0 {
		next := queue[0]
		queue = queue[1:]
		if _, done := g.resolved[next]; done {
			continue
		}
		if _, running := g.issued[next]; running {
			// Already executing; its own outcome decides its fate.
			continue
		}
		g.resolved[next] = struct{}{}
		blocked = append(blocked, next)
		queue = append(queue, g.dependents[next]...)
	}

	sort.Ints(blocked)
	return blocked
}

// IsEmpty reports whether every step has been resolved.
func (g *Graph) IsEmpty() bool {
	return len(g.resolved) == len(g.unmet)
}

// Unresolved returns the ids of steps not yet resolved, ascending.
// Used by cancellation to sweep everything still outstanding.
func (g *Graph) Unresolved() []int {
	var out []int
	for id := range g.unmet {
		if _, ok := g.resolved[id]; !ok {
			out = append(out, id)
		}
	}
	sort.Ints(out)
	return out
}

// Resolve marks a step resolved without cascading. Used by
// cancellation, where every outstanding step fails uniformly.
func (g *Graph) Resolve(id int) {
	delete(g.issued, id)
	g.resolved[id] = struct{}{}
}
