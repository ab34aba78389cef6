package solver

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"fleetroute/internal/bip"
)

// pair is a canonical unordered node pair, always i < j in local indexes.
type pair struct{ i, j int }

func mkPair(a, b int) pair {
	if a > b {
		a, b = b, a
	}
	return pair{a, b}
}

// arcSel maps selected pairs to their multiplicity in a candidate solution.
// A depot edge used for an out-and-back single-shop route carries value 2.
type arcSel map[pair]int

// formulation is the shared arc-selection skeleton: binary variables per
// unordered node pair, degree constraints (2 per shop, 2K at the depot) and
// a distance-minimizing objective. Depot edges can be traversed twice by an
// out-and-back route, so each is split into an ordered pair of binaries; the
// first acts as a presence indicator, which keeps cycle cuts exact. The
// skeleton works over an arbitrary node subset so the sweep heuristic can
// reuse it for per-cluster tours. Without subtour constraints it still
// permits depot-disconnected cycles; cuts come in through addSubsetCut and
// addCycleCut.
type formulation struct {
	inst   *Instance
	nodes  []int // local index -> instance index; nodes[0] is the depot
	k      int
	model  *bip.Model
	vars   map[pair]int // shop-shop local pair -> model variable
	depotA []int        // local shop index -> first depot-edge variable
	depotB []int        // local shop index -> second depot-edge variable
	cuts   map[string]struct{}
}

// newFormulation builds the skeleton for k vehicles over the given instance
// node subset. nodes[0] must be the depot.
func newFormulation(inst *Instance, nodes []int, k int) *formulation {
	n := len(nodes)
	f := &formulation{
		inst:   inst,
		nodes:  nodes,
		k:      k,
		model:  bip.NewModel(),
		vars:   map[pair]int{},
		depotA: make([]int, n),
		depotB: make([]int, n),
		cuts:   map[string]struct{}{},
	}
	for j := 1; j < n; j++ {
		d := inst.Dist(nodes[0], nodes[j])
		f.depotA[j] = f.model.AddVar(d, 1)
		f.depotB[j] = f.model.AddVar(d, 1)
		// Symmetry break: the second copy only after the first.
		f.model.AddConstr([]bip.Term{
			{Var: f.depotB[j], Coef: 1},
			{Var: f.depotA[j], Coef: -1},
		}, bip.LessEq, 0)
	}
	for i := 1; i < n; i++ {
		for j := i + 1; j < n; j++ {
			f.vars[pair{i, j}] = f.model.AddVar(inst.Dist(nodes[i], nodes[j]), 1)
		}
	}
	for i := 1; i < n; i++ {
		terms := make([]bip.Term, 0, n)
		terms = append(terms,
			bip.Term{Var: f.depotA[i], Coef: 1},
			bip.Term{Var: f.depotB[i], Coef: 1})
		for j := 1; j < n; j++ {
			if j == i {
				continue
			}
			terms = append(terms, bip.Term{Var: f.vars[mkPair(i, j)], Coef: 1})
		}
		f.model.AddConstr(terms, bip.Equal, 2)
	}
	depotTerms := make([]bip.Term, 0, 2*(n-1))
	for j := 1; j < n; j++ {
		depotTerms = append(depotTerms,
			bip.Term{Var: f.depotA[j], Coef: 1},
			bip.Term{Var: f.depotB[j], Coef: 1})
	}
	f.model.AddConstr(depotTerms, bip.Equal, 2*float64(k))
	return f
}

// demandOf sums shop demand over a local node set.
func (f *formulation) demandOf(set []int) float64 {
	var d float64
	for _, i := range set {
		d += f.inst.Node(f.nodes[i]).Demand
	}
	return d
}

// addSubsetCut adds the rounded-capacity subtour-elimination constraint for
// the local shop set S: arcs within S limited to |S| - max(1, ceil(d(S)/Q)).
// This both breaks any cycle confined to S and cuts off routes overloading a
// vehicle. Reports false when the identical constraint already exists.
func (f *formulation) addSubsetCut(set []int) bool {
	key := subsetKey(set)
	if _, dup := f.cuts[key]; dup {
		return false
	}
	f.cuts[key] = struct{}{}

	var terms []bip.Term
	for a := 0; a < len(set); a++ {
		for b := a + 1; b < len(set); b++ {
			terms = append(terms, bip.Term{Var: f.vars[mkPair(set[a], set[b])], Coef: 1})
		}
	}
	bins := math.Ceil(f.demandOf(set)/f.inst.Capacity() - distEps)
	if bins < 1 {
		bins = 1
	}
	f.model.AddConstr(terms, bip.LessEq, float64(len(set))-bins)
	return true
}

// addCycleCut forbids reusing the exact edge multiset of one depot-rooted
// cycle, used to cut off routes exceeding the distance bound. Depot edges
// enter through their presence variable, so a solution that merely reuses a
// depot edge for an unrelated out-and-back trip is not affected; the cut
// binds only when the whole cycle is present. Reports false on a duplicate.
func (f *formulation) addCycleCut(edges arcSel) bool {
	key := cycleKey(edges)
	if _, dup := f.cuts[key]; dup {
		return false
	}
	f.cuts[key] = struct{}{}

	total := 0
	var terms []bip.Term
	for _, p := range sortedPairs(edges) {
		mult := edges[p]
		total += mult
		if p.i != 0 {
			terms = append(terms, bip.Term{Var: f.vars[p], Coef: 1})
			continue
		}
		terms = append(terms, bip.Term{Var: f.depotA[p.j], Coef: 1})
		if mult == 2 {
			terms = append(terms, bip.Term{Var: f.depotB[p.j], Coef: 1})
		}
	}
	f.model.AddConstr(terms, bip.LessEq, float64(total-1))
	return true
}

// selection converts a model assignment into the selected-arc multiset.
func (f *formulation) selection(x []int) arcSel {
	sel := arcSel{}
	for j := 1; j < len(f.nodes); j++ {
		if m := x[f.depotA[j]] + x[f.depotB[j]]; m > 0 {
			sel[pair{0, j}] = m
		}
	}
	for p, v := range f.vars {
		if x[v] > 0 {
			sel[p] = x[v]
		}
	}
	return sel
}

func subsetKey(set []int) string {
	var b strings.Builder
	b.WriteString("s:")
	for i, v := range set {
		if i > 0 {
			b.WriteByte(',')
		}
		fmt.Fprintf(&b, "%d", v)
	}
	return b.String()
}

func cycleKey(edges arcSel) string {
	var b strings.Builder
	b.WriteString("c:")
	for i, p := range sortedPairs(edges) {
		if i > 0 {
			b.WriteByte(',')
		}
		fmt.Fprintf(&b, "%d-%d*%d", p.i, p.j, edges[p])
	}
	return b.String()
}

func sortedPairs(edges arcSel) []pair {
	ps := make([]pair, 0, len(edges))
	for p := range edges {
		ps = append(ps, p)
	}
	sort.Slice(ps, func(a, b int) bool {
		if ps[a].i != ps[b].i {
			return ps[a].i < ps[b].i
		}
		return ps[a].j < ps[b].j
	})
	return ps
}
