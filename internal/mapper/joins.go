package mapper

import (
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/starcube/internal/model"
)

// UnresolvedJoinError reports tables that are neither the fact table nor
// the detail of any join.
type UnresolvedJoinError struct {
	Tables []string
}

func (e *UnresolvedJoinError) Error() string {
	return fmt.Sprintf("no join path from the fact table to: %s", strings.Join(e.Tables, ", "))
}

// JoinCycleError reports join specs that form a cycle.
type JoinCycleError struct {
	Path []string
}

func (e *JoinCycleError) Error() string {
	return "join cycle: " + strings.Join(e.Path, " -> ")
}

// collectJoins indexes joins by detail identity and checks the graph.
func (m *Mapper) collectJoins(specs []model.JoinSpec) error {
	m.joins = make(map[string]model.JoinSpec, len(specs))
	for _, j := range specs {
		id := j.DetailIdentity()
		if prev, dup := m.joins[id]; dup {
			return fmt.Errorf("duplicate join to %q: %s and %s", id, prev, j)
		}
		if id == m.factTable {
			return fmt.Errorf("join %s targets the fact table", j)
		}
		m.joins[id] = j
	}

	if cycle := findJoinCycle(m.joins); cycle != nil {
		return &JoinCycleError{Path: cycle}
	}

	for _, j := range specs {
		if _, ok := m.joins[j.Master.Table]; !ok && j.Master.Table != m.factTable {
			return fmt.Errorf("join %s: master table %q is neither the fact table %q nor joined", j, j.Master.Table, m.factTable)
		}
	}

	// Every join reachable from some detail, masters first, declaration order.
	tables := make([]string, 0, len(specs))
	for _, j := range specs {
		tables = append(tables, j.DetailIdentity())
	}
	m.ordered, _ = m.RelevantJoins(tables)
	return nil
}

// Joins returns every join, masters before their details.
func (m *Mapper) Joins() []model.JoinSpec {
	return slices.Clone(m.ordered)
}

// Join returns the join whose detail identity is table.
func (m *Mapper) Join(table string) (model.JoinSpec, bool) {
	j, ok := m.joins[table]
	return j, ok
}

// RelevantJoins returns the joins needed to reach every table from the
// fact table, deduplicated, masters before their details. The fact table
// itself needs no join. Tables with no join path are reported in an
// *UnresolvedJoinError; the joins found for the others are still returned.
func (m *Mapper) RelevantJoins(tables []string) ([]model.JoinSpec, error) {
	var (
		result     []model.JoinSpec
		seen       = make(map[string]bool)
		unresolved []string
	)

	for _, table := range tables {
		if table == m.factTable {
			continue
		}
		if _, ok := m.joins[table]; !ok {
			if !slices.Contains(unresolved, table) {
				unresolved = append(unresolved, table)
			}
			continue
		}

		// Walk detail -> master until the fact table or a joined table.
		var chain []model.JoinSpec
		id := table
		for id != m.factTable && !seen[id] {
			j, ok := m.joins[id]
			if !ok {
				break
			}
			chain = append(chain, j)
			id = j.Master.Table
		}
		if id != m.factTable && !seen[id] {
			if !slices.Contains(unresolved, table) {
				unresolved = append(unresolved, table)
			}
			continue
		}

		for i := len(chain) - 1; i >= 0; i-- {
			id := chain[i].DetailIdentity()
			if !seen[id] {
				seen[id] = true
				result = append(result, chain[i])
			}
		}
	}

	if len(unresolved) > 0 {
		return result, &UnresolvedJoinError{Tables: unresolved}
	}
	return result, nil
}

// findJoinCycle runs Tarjan's strongly connected components algorithm over
// master -> detail edges and returns one cycle path, or nil.
func findJoinCycle(joins map[string]model.JoinSpec) []string {
	graph := make(map[string][]string)
	for id, j := range joins {
		graph[j.Master.Table] = append(graph[j.Master.Table], id)
		if graph[id] == nil {
			graph[id] = []string{}
		}
	}

	// Visit nodes in a stable order so the reported path is deterministic.
	nodes := make([]string, 0, len(graph))
	for n, edges := range graph {
		slices.Sort(edges)
		nodes = append(nodes, n)
	}
	slices.Sort(nodes)

	var (
		index   = 0
		stack   []string
		indices = make(map[string]int)
		lowlink = make(map[string]int)
		onStack = make(map[string]bool)
		cycle   []string
	)

	var strongConnect func(string)
	strongConnect = func(v string) {
		indices[v] = index
		lowlink[v] = index
		index++
		stack = append(stack, v)
		onStack[v] = true

		for _, w := range graph[v] {
			if _, visited := indices[w]; !visited {
				strongConnect(w)
				lowlink[v] = min(lowlink[v], lowlink[w])
			} else if onStack[w] {
				lowlink[v] = min(lowlink[v], indices[w])
			}
		}

		if lowlink[v] == indices[v] {
			var scc []string
			for {
				w := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				onStack[w] = false
				scc = append(scc, w)
				if w == v {
					break
				}
			}
			if cycle == nil && (len(scc) > 1 || slices.Contains(graph[v], v)) {
				cycle = cyclePath(scc, graph)
			}
		}
	}

	for _, n := range nodes {
		if _, visited := indices[n]; !visited {
			strongConnect(n)
		}
	}
	return cycle
}

// cyclePath follows edges inside an SCC from its smallest member back to it.
func cyclePath(scc []string, graph map[string][]string) []string {
	members := make(map[string]bool, len(scc))
	for _, n := range scc {
		members[n] = true
	}
	start := slices.Min(scc)
	path := []string{start}
	visited := map[string]bool{start: true}

	for current := start; ; {
		var next string
		for _, w := range graph[current] {
			if w == start || (members[w] && !visited[w]) {
				next = w
				break
			}
		}
		if next == "" {
			return path
		}
		path = append(path, next)
		if next == start {
			return path
		}
		visited[next] = true
		current = next
	}
}
