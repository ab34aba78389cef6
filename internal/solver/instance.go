// Package solver computes low-cost delivery routes for a capacity-limited
// fleet serving dispersed shops from a single depot: the capacitated vehicle
// routing problem. Three interchangeable strategies share one arc-selection
// formulation, a subtour-elimination mechanism, and a sweep clustering
// heuristic; see Solve.
package solver

import (
	"fmt"
	"math"
)

// Node is a problem location: the depot or a shop.
type Node struct {
	ID     string
	X, Y   float64
	Demand float64
}

// Instance is a validated CVRP problem: a depot, shops with demands, the
// per-vehicle capacity and an optional maximum route length. Node index 0 is
// always the depot; shops follow in input order.
type Instance struct {
	nodes       []Node
	capacity    float64
	maxRouteLen float64 // 0 means unbounded
	dist        *DistanceMatrix
}

// NewInstance validates the raw problem data and derives the distance
// matrix. Duplicate identifiers, negative demands, non-positive capacity and
// any shop demand above capacity are rejected with ErrInvalidInstance.
func NewInstance(depot Node, shops []Node, capacity, maxRouteLen float64) (*Instance, error) {
	if capacity <= 0 {
		return nil, fmt.Errorf("%w: capacity %v must be positive", ErrInvalidInstance, capacity)
	}
	if len(shops) == 0 {
		return nil, fmt.Errorf("%w: no shops", ErrInvalidInstance)
	}
	seen := map[string]struct{}{depot.ID: {}}
	for _, s := range shops {
		if s.ID == "" {
			return nil, fmt.Errorf("%w: empty shop identifier", ErrInvalidInstance)
		}
		if _, dup := seen[s.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate identifier %q", ErrInvalidInstance, s.ID)
		}
		seen[s.ID] = struct{}{}
		if s.Demand < 0 {
			return nil, fmt.Errorf("%w: shop %q has negative demand %v", ErrInvalidInstance, s.ID, s.Demand)
		}
		if s.Demand > capacity {
			return nil, fmt.Errorf("%w: shop %q demand %v exceeds capacity %v", ErrInvalidInstance, s.ID, s.Demand, capacity)
		}
	}
	if maxRouteLen < 0 {
		return nil, fmt.Errorf("%w: negative route length bound %v", ErrInvalidInstance, maxRouteLen)
	}

	depot.Demand = 0
	nodes := make([]Node, 0, len(shops)+1)
	nodes = append(nodes, depot)
	nodes = append(nodes, shops...)
	return &Instance{
		nodes:       nodes,
		capacity:    capacity,
		maxRouteLen: maxRouteLen,
		dist:        NewDistanceMatrix(nodes),
	}, nil
}

// NumNodes is the node count including the depot.
func (in *Instance) NumNodes() int { return len(in.nodes) }

// NumShops is the shop count (nodes excluding the depot).
func (in *Instance) NumShops() int { return len(in.nodes) - 1 }

// Node returns the node at index i (0 is the depot).
func (in *Instance) Node(i int) Node { return in.nodes[i] }

// Capacity is the per-vehicle load limit Q.
func (in *Instance) Capacity() float64 { return in.capacity }

// MaxRouteLen is the optional route length bound L; 0 means unbounded.
func (in *Instance) MaxRouteLen() float64 { return in.maxRouteLen }

// Dist is the Euclidean distance between nodes i and j.
func (in *Instance) Dist(i, j int) float64 { return in.dist.At(i, j) }

// TotalDemand sums all shop demands.
func (in *Instance) TotalDemand() float64 {
	var t float64
	for _, n := range in.nodes[1:] {
		t += n.Demand
	}
	return t
}

// MinVehicles is the minimum feasible fleet size K = ceil(total demand / Q),
// used to size the depot degree constraint.
func (in *Instance) MinVehicles() int {
	k := int(math.Ceil(in.TotalDemand()/in.capacity - 1e-9))
	if k < 1 {
		k = 1
	}
	return k
}

// checkReachable rejects a distance bound no single round-trip can satisfy.
// The longest depot round-trip is a lower bound on any route containing that
// shop, so an unreachably small L is infeasible by construction.
func (in *Instance) checkReachable() error {
	if in.maxRouteLen == 0 {
		return nil
	}
	for i := 1; i < len(in.nodes); i++ {
		if rt := 2 * in.Dist(0, i); rt > in.maxRouteLen+distEps {
			return fmt.Errorf("%w: shop %q round trip %.4f exceeds route bound %.4f",
				ErrInfeasibleInstance, in.nodes[i].ID, rt, in.maxRouteLen)
		}
	}
	return nil
}

const distEps = 1e-9
