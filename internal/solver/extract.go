package solver

import (
	"fmt"
	"sort"
)

// extractCycles decomposes a depot-connected selection into the depot-rooted
// cycles it encodes, each as a local index sequence [0, s1, ..., sm, 0].
// Depot edges are consumed smallest-neighbor first, so the cycle order and
// each cycle's orientation are deterministic. Any structural defect, a shop
// with degree other than two or edges left over after the walk, is reported
// as a malformed solution.
func extractCycles(n int, sel arcSel) ([][]int, error) {
	remaining := make(arcSel, len(sel))
	deg := make([]int, n)
	adj := make([][]int, n)
	for p, c := range sel {
		remaining[p] = c
		deg[p.i] += c
		deg[p.j] += c
		adj[p.i] = append(adj[p.i], p.j)
		adj[p.j] = append(adj[p.j], p.i)
	}
	for i := range adj {
		sort.Ints(adj[i])
	}
	for i := 1; i < n; i++ {
		if deg[i] != 2 {
			return nil, fmt.Errorf("%w: node %d has degree %d, want 2", ErrMalformedSolution, i, deg[i])
		}
	}

	use := func(a, b int) bool {
		p := mkPair(a, b)
		if remaining[p] == 0 {
			return false
		}
		remaining[p]--
		if remaining[p] == 0 {
			delete(remaining, p)
		}
		return true
	}

	var cycles [][]int
	for {
		start := -1
		for _, nb := range adj[0] {
			if remaining[mkPair(0, nb)] > 0 {
				start = nb
				break
			}
		}
		if start < 0 {
			break
		}
		use(0, start)
		cycle := []int{0, start}
		cur := start
		for cur != 0 {
			next := -1
			for _, nb := range adj[cur] {
				if remaining[mkPair(cur, nb)] > 0 {
					next = nb
					break
				}
			}
			if next < 0 {
				return nil, fmt.Errorf("%w: walk stranded at node %d", ErrMalformedSolution, cur)
			}
			use(cur, next)
			cycle = append(cycle, next)
			cur = next
			if len(cycle) > n+1 {
				return nil, fmt.Errorf("%w: cycle walk exceeded node count", ErrMalformedSolution)
			}
		}
		cycles = append(cycles, cycle)
	}
	if len(remaining) > 0 {
		return nil, fmt.Errorf("%w: %d edges unreachable from depot", ErrMalformedSolution, len(remaining))
	}
	return cycles, nil
}

// buildRoutes maps local cycle sequences back to instance-level routes.
// Distances and demands are filled in by evaluate.
func buildRoutes(in *Instance, nodes []int, cycles [][]int) []Route {
	routes := make([]Route, 0, len(cycles))
	for _, cyc := range cycles {
		r := Route{
			Nodes: make([]string, 0, len(cyc)),
			idx:   make([]int, 0, len(cyc)),
		}
		for _, local := range cyc {
			abs := nodes[local]
			r.idx = append(r.idx, abs)
			r.Nodes = append(r.Nodes, in.Node(abs).ID)
		}
		routes = append(routes, r)
	}
	return routes
}
