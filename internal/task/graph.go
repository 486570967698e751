package task

import (
	"fmt"
	"sort"

	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

// Graph is an in-memory view of a task set used for topological ordering,
// wave grouping, cycle detection, and impact/critical-path queries. It is
// rebuilt from a snapshot of tasks rather than kept live, the same
// "scan everything, build adjacency, then answer" shape the teacher uses
// in kanban/conflict.go for overlap detection.
type Graph struct {
	byID  map[string]*Task
	edges map[string][]string // id -> depends-on ids
}

// NewGraph builds a Graph from a flat task slice.
func NewGraph(tasks []*Task) *Graph {
	g := &Graph{
		byID:  make(map[string]*Task, len(tasks)),
		edges: make(map[string][]string, len(tasks)),
	}
	for _, t := range tasks {
		g.byID[t.ID] = t
		deps := slices.Clone(t.Depends)
		sort.Strings(deps)
		g.edges[t.ID] = deps
	}
	return g
}

// DetectCycles returns the node IDs participating in a dependency cycle,
// or nil if the graph is acyclic. Uses the standard white/gray/black DFS
// coloring so the first back-edge found pinpoints the cycle.
func (g *Graph) DetectCycles() []string {
	const (
		white = 0
		gray  = 1
		black = 2
	)
	color := make(map[string]int, len(g.byID))
	var path []string
	var cycle []string

	var visit func(id string) bool
	visit = func(id string) bool {
		color[id] = gray
		path = append(path, id)
		for _, dep := range g.edges[id] {
			if _, ok := g.byID[dep]; !ok {
				continue // dangling dependency, not a cycle participant
			}
			switch color[dep] {
			case gray:
				// Found the back edge; extract the cycle from path.
				for i, p := range path {
					if p == dep {
						cycle = append([]string{}, path[i:]...)
						return true
					}
				}
			case white:
				if visit(dep) {
					return true
				}
			}
		}
		path = path[:len(path)-1]
		color[id] = black
		return false
	}

	ids := maps.Keys(g.byID)
	sort.Strings(ids)
	for _, id := range ids {
		if color[id] == white {
			if visit(id) {
				return cycle
			}
		}
	}
	return nil
}

// TopoSort returns task IDs in dependency order using Kahn's algorithm.
// Ties within the same in-degree break on (priority desc, id asc) so the
// result is deterministic across runs. Returns an error if the graph has
// a cycle.
func (g *Graph) TopoSort() ([]string, error) {
	if cyc := g.DetectCycles(); cyc != nil {
		return nil, fmt.Errorf("cycle detected: %v", cyc)
	}

	inDegree := make(map[string]int, len(g.byID))
	dependents := make(map[string][]string, len(g.byID))
	for id := range g.byID {
		inDegree[id] = 0
	}
	for id, deps := range g.edges {
		for _, dep := range deps {
			if _, ok := g.byID[dep]; !ok {
				continue
			}
			inDegree[id]++
			dependents[dep] = append(dependents[dep], id)
		}
	}

	var ready []string
	for id, deg := range inDegree {
		if deg == 0 {
			ready = append(ready, id)
		}
	}
	sortReady := func(ids []string) {
		sort.Slice(ids, func(i, j int) bool {
			pi, pj := priorityRank(g.byID[ids[i]].Priority), priorityRank(g.byID[ids[j]].Priority)
			if pi != pj {
				return pi > pj
			}
			return ids[i] < ids[j]
		})
	}
	sortReady(ready)

	order := make([]string, 0, len(g.byID))
	for len(ready) > 0 {
		next := ready[0]
		ready = ready[1:]
		order = append(order, next)
		for _, dep := range dependents[next] {
			inDegree[dep]--
			if inDegree[dep] == 0 {
				ready = append(ready, dep)
				sortReady(ready)
			}
		}
	}
	if len(order) != len(g.byID) {
		return nil, fmt.Errorf("cycle detected: topo sort covered %d of %d nodes", len(order), len(g.byID))
	}
	return order, nil
}

// ExecutionWaves groups the topological order into waves: each wave holds
// every task whose dependencies are all satisfied by prior waves, so
// independent tasks within a wave can run concurrently.
func (g *Graph) ExecutionWaves() ([][]string, error) {
	order, err := g.TopoSort()
	if err != nil {
		return nil, err
	}
	done := make(map[string]bool, len(order))
	remaining := append([]string{}, order...)
	var waves [][]string

	for len(remaining) > 0 {
		var wave []string
		var next []string
		for _, id := range remaining {
			ready := true
			for _, dep := range g.edges[id] {
				if _, ok := g.byID[dep]; ok && !done[dep] {
					ready = false
					break
				}
			}
			if ready {
				wave = append(wave, id)
			} else {
				next = append(next, id)
			}
		}
		if len(wave) == 0 {
			return nil, fmt.Errorf("cycle detected: no progress building waves, %d tasks stuck", len(remaining))
		}
		sort.Strings(wave)
		waves = append(waves, wave)
		for _, id := range wave {
			done[id] = true
		}
		remaining = next
	}
	return waves, nil
}

// CriticalPath returns the longest dependency chain ending at id (inclusive),
// root-first. Used by orchestrate.Status to report what's gating a task.
func (g *Graph) CriticalPath(id string) []string {
	memo := make(map[string][]string)
	var longest func(string) []string
	longest = func(cur string) []string {
		if p, ok := memo[cur]; ok {
			return p
		}
		best := []string{}
		for _, dep := range g.edges[cur] {
			if _, ok := g.byID[dep]; !ok {
				continue
			}
			candidate := longest(dep)
			if len(candidate) > len(best) {
				best = candidate
			}
		}
		path := append(append([]string{}, best...), cur)
		memo[cur] = path
		return path
	}
	return longest(id)
}

// Impact returns every task (transitively) depending on id — the set that
// would become newly unblocked, or newly blocked, if id's status flips.
func (g *Graph) Impact(id string) []string {
	dependents := make(map[string][]string, len(g.byID))
	for tid, deps := range g.edges {
		for _, dep := range deps {
			dependents[dep] = append(dependents[dep], tid)
		}
	}
	seen := map[string]bool{}
	var out []string
	var walk func(string)
	walk = func(cur string) {
		for _, dep := range dependents[cur] {
			if seen[dep] {
				continue
			}
			seen[dep] = true
			out = append(out, dep)
			walk(dep)
		}
	}
	walk(id)
	sort.Strings(out)
	return out
}

func priorityRank(p Priority) int {
	switch p {
	case PriorityCritical:
		return 3
	case PriorityHigh:
		return 2
	case PriorityMedium:
		return 1
	default:
		return 0
	}
}
