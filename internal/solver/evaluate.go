package solver

import (
	"fmt"
)

// evaluate computes per-route distance and demand, validates the route set
// against the instance, and assembles the final solution. Validation runs
// even for routes the solvers produced themselves, so a defect in extraction
// surfaces as ErrMalformedSolution instead of a silently wrong answer.
func evaluate(in *Instance, routes []Route, flag Flag, gap float64, diag Diagnostics) (*Solution, error) {
	visited := make([]int, in.NumNodes())
	var total float64
	for ri := range routes {
		r := &routes[ri]
		if len(r.idx) < 3 || r.idx[0] != 0 || r.idx[len(r.idx)-1] != 0 {
			return nil, fmt.Errorf("%w: route %d is not a depot round trip", ErrMalformedSolution, ri)
		}
		var dist, demand float64
		for i := 0; i+1 < len(r.idx); i++ {
			dist += in.Dist(r.idx[i], r.idx[i+1])
		}
		for _, v := range r.idx[1 : len(r.idx)-1] {
			if v == 0 {
				return nil, fmt.Errorf("%w: route %d revisits the depot", ErrMalformedSolution, ri)
			}
			visited[v]++
			demand += in.Node(v).Demand
		}
		if demand > in.Capacity()+distEps {
			return nil, fmt.Errorf("%w: route %d demand %.6g exceeds capacity %.6g",
				ErrMalformedSolution, ri, demand, in.Capacity())
		}
		if in.MaxRouteLen() > 0 && dist > in.MaxRouteLen()+distEps {
			return nil, fmt.Errorf("%w: route %d length %.6g exceeds bound %.6g",
				ErrMalformedSolution, ri, dist, in.MaxRouteLen())
		}
		r.Distance = dist
		r.Demand = demand
		total += dist
	}
	for v := 1; v < in.NumNodes(); v++ {
		if visited[v] != 1 {
			return nil, fmt.Errorf("%w: node %q visited %d times", ErrMalformedSolution, in.Node(v).ID, visited[v])
		}
	}
	if gap < 0 {
		gap = 0
	}
	return &Solution{
		Routes:    routes,
		TotalCost: total,
		Flag:      flag,
		Gap:       gap,
		Diag:      diag,
	}, nil
}
