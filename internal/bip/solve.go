package bip

import (
	"context"
	"math"
	"sort"
	"time"
)

// Status is the terminal state of a solve.
type Status int

const (
	// StatusOptimal means the search proved optimality (or reached the
	// configured gap tolerance).
	StatusOptimal Status = iota
	// StatusTimeLimit means the time budget expired; Result carries the best
	// incumbent found so far, which may be absent.
	StatusTimeLimit
	// StatusInfeasible means no assignment satisfies the constraints.
	StatusInfeasible
)

func (s Status) String() string {
	switch s {
	case StatusOptimal:
		return "optimal"
	case StatusTimeLimit:
		return "time_limit"
	case StatusInfeasible:
		return "infeasible"
	}
	return "unknown"
}

// Params bounds a single solve call.
type Params struct {
	// TimeLimit caps wall time; zero means no limit.
	TimeLimit time.Duration
	// GapTol stops the search once (incumbent-bound)/incumbent <= GapTol.
	GapTol float64
}

// Result reports the outcome of Solve.
type Result struct {
	Status Status
	// X is the incumbent assignment, indexed by variable; nil when no
	// feasible assignment was found.
	X []int
	// Cost is the incumbent objective value.
	Cost float64
	// Bound is the best proven lower bound on the optimum.
	Bound float64
	// Gap is (Cost-Bound)/Cost for a positive incumbent, 0 when optimal.
	Gap float64
	// Nodes counts explored branch-and-bound nodes.
	Nodes int64
}

const eps = 1e-6

// node is one open subproblem: a partial assignment plus its lower bound.
type node struct {
	values []int8 // -1 = unassigned
	bound  float64
}

// Solve runs a depth-first branch and bound over the model. Branching order
// is fixed (variables by ascending cost, index tiebreak; larger values tried
// first), so repeated solves of an identical model explore identical trees.
func (m *Model) Solve(ctx context.Context, p Params) (Result, error) {
	n := len(m.costs)

	// Variables sorted by cost ascending; cheap arcs are decided first so
	// greedy-looking incumbents appear early and tighten pruning.
	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool { return m.costs[order[a]] < m.costs[order[b]] })

	var deadline time.Time
	if p.TimeLimit > 0 {
		deadline = time.Now().Add(p.TimeLimit)
	}

	root := node{values: make([]int8, n)}
	for i := range root.values {
		root.values[i] = -1
	}

	var (
		bestX     []int8
		bestCost  = math.Inf(1)
		res       Result
		stack     = []node{root}
		steps     int
		stopLimit bool
	)

search:
	for len(stack) > 0 {
		// Sparse deadline/cancellation checks keep hot-loop overhead low.
		steps++
		if steps&1023 == 0 {
			if err := ctx.Err(); err != nil {
				return Result{}, err
			}
			if !deadline.IsZero() && time.Now().After(deadline) {
				stopLimit = true
				break search
			}
			if p.GapTol > 0 && !math.IsInf(bestCost, 1) {
				fb := frontierBound(stack, bestCost)
				if gapOf(bestCost, fb) <= p.GapTol {
					break search
				}
			}
		}

		nd := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		res.Nodes++

		if nd.bound >= bestCost-eps {
			continue
		}
		ok := m.propagate(nd.values)
		if !ok {
			continue
		}
		cost, lb := m.lowerBound(nd.values)
		if lb >= bestCost-eps {
			continue
		}

		branch := -1
		for _, v := range order {
			if nd.values[v] < 0 {
				branch = v
				break
			}
		}
		if branch < 0 {
			// Complete assignment; propagation guarantees bound consistency
			// but a full check guards against rounding artifacts.
			if m.feasible(nd.values) && cost < bestCost-eps {
				bestCost = cost
				bestX = append(bestX[:0], nd.values...)
			}
			continue
		}

		// Push value 0 first so the largest value is explored first.
		for v := 0; v <= m.ubs[branch]; v++ {
			child := node{values: make([]int8, n), bound: lb}
			copy(child.values, nd.values)
			child.values[branch] = int8(v)
			stack = append(stack, child)
		}
	}

	res.Bound = frontierBound(stack, bestCost)
	if bestX != nil {
		res.X = make([]int, n)
		for i, v := range bestX {
			res.X[i] = int(v)
		}
		res.Cost = bestCost
	}
	switch {
	case stopLimit:
		res.Status = StatusTimeLimit
		res.Gap = gapOf(bestCost, res.Bound)
	case bestX == nil:
		res.Status = StatusInfeasible
		res.Bound = math.Inf(1)
	default:
		res.Status = StatusOptimal
		res.Gap = gapOf(bestCost, res.Bound)
	}
	return res, nil
}

// frontierBound is the tightest lower bound provable from the remaining open
// nodes: the optimum cannot be below the minimum open-node bound, nor above
// the incumbent.
func frontierBound(stack []node, incumbent float64) float64 {
	b := incumbent
	for i := range stack {
		if stack[i].bound < b {
			b = stack[i].bound
		}
	}
	if math.IsInf(b, 1) {
		return 0
	}
	return b
}

func gapOf(incumbent, bound float64) float64 {
	if math.IsInf(incumbent, 1) {
		return math.Inf(1)
	}
	if incumbent <= eps {
		return 0
	}
	g := (incumbent - bound) / incumbent
	if g < 0 {
		return 0
	}
	return g
}

// propagate runs bound-consistency over every constraint until fixpoint,
// fixing free variables whose feasible interval collapses to a point.
// Reports false when some constraint cannot be satisfied.
func (m *Model) propagate(values []int8) bool {
	changed := true
	for changed {
		changed = false
		for ci := range m.cons {
			c := &m.cons[ci]
			minL, maxL := lhsRange(c, values, m.ubs)
			switch c.sense {
			case LessEq:
				if minL > c.rhs+eps {
					return false
				}
			case GreaterEq:
				if maxL < c.rhs-eps {
					return false
				}
			case Equal:
				if minL > c.rhs+eps || maxL < c.rhs-eps {
					return false
				}
			}
			for _, t := range c.terms {
				if values[t.Var] >= 0 || t.Coef == 0 {
					continue
				}
				ub := float64(m.ubs[t.Var])
				// Contribution bounds of this variable alone.
				cMin, cMax := 0.0, t.Coef*ub
				if t.Coef < 0 {
					cMin, cMax = t.Coef*ub, 0
				}
				othersMin := minL - cMin
				othersMax := maxL - cMax
				lo, hi := 0, m.ubs[t.Var]
				if c.sense == LessEq || c.sense == Equal {
					// t.Coef*x + othersMin <= rhs
					if t.Coef > 0 {
						hi = minInt(hi, int(math.Floor((c.rhs-othersMin)/t.Coef+eps)))
					} else {
						lo = maxInt(lo, int(math.Ceil((c.rhs-othersMin)/t.Coef-eps)))
					}
				}
				if c.sense == GreaterEq || c.sense == Equal {
					// t.Coef*x + othersMax >= rhs
					if t.Coef > 0 {
						lo = maxInt(lo, int(math.Ceil((c.rhs-othersMax)/t.Coef-eps)))
					} else {
						hi = minInt(hi, int(math.Floor((c.rhs-othersMax)/t.Coef+eps)))
					}
				}
				if lo > hi {
					return false
				}
				if lo == hi {
					values[t.Var] = int8(lo)
					changed = true
				}
			}
		}
	}
	return true
}

// lhsRange computes the reachable [min,max] of a constraint LHS given the
// partial assignment, with free variables at their extreme values.
func lhsRange(c *constraint, values []int8, ubs []int) (minL, maxL float64) {
	for _, t := range c.terms {
		if v := values[t.Var]; v >= 0 {
			x := t.Coef * float64(v)
			minL += x
			maxL += x
			continue
		}
		hi := t.Coef * float64(ubs[t.Var])
		if t.Coef > 0 {
			maxL += hi
		} else {
			minL += hi
		}
	}
	return minL, maxL
}

// lowerBound returns the cost of the assigned part and an admissible lower
// bound for the full completion: take the most demanding covering constraint
// and price its deficit at the cheapest cost-per-unit among its free
// variables. Free variables otherwise contribute zero (costs are >= 0).
func (m *Model) lowerBound(values []int8) (assigned, bound float64) {
	for i, v := range values {
		if v > 0 {
			assigned += m.costs[i] * float64(v)
		}
	}
	extra := 0.0
	for ci := range m.cons {
		c := &m.cons[ci]
		if c.sense == LessEq {
			continue
		}
		minL, _ := lhsRange(c, values, m.ubs)
		deficit := c.rhs - minL
		if deficit <= eps {
			continue
		}
		cheapest := math.Inf(1)
		for _, t := range c.terms {
			if values[t.Var] >= 0 || t.Coef <= 0 {
				continue
			}
			if cpu := m.costs[t.Var] / t.Coef; cpu < cheapest {
				cheapest = cpu
			}
		}
		if math.IsInf(cheapest, 1) {
			continue // propagate will flag infeasibility
		}
		if e := deficit * cheapest; e > extra {
			extra = e
		}
	}
	return assigned, assigned + extra
}

// feasible checks every constraint against a complete assignment.
func (m *Model) feasible(values []int8) bool {
	for ci := range m.cons {
		c := &m.cons[ci]
		lhs := 0.0
		for _, t := range c.terms {
			lhs += t.Coef * float64(values[t.Var])
		}
		switch c.sense {
		case LessEq:
			if lhs > c.rhs+eps {
				return false
			}
		case GreaterEq:
			if lhs < c.rhs-eps {
				return false
			}
		case Equal:
			if math.Abs(lhs-c.rhs) > eps {
				return false
			}
		}
	}
	return true
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
