package solver

import (
	"sort"
)

// components decomposes the selected-arc graph into connected components.
// Components are reported with members ascending and ordered by their
// smallest member, so repeated runs discover violations in the same order.
func components(n int, sel arcSel) [][]int {
	adj := make([][]int, n)
	for p := range sel {
		adj[p.i] = append(adj[p.i], p.j)
		adj[p.j] = append(adj[p.j], p.i)
	}
	seen := make([]bool, n)
	var comps [][]int
	for start := 0; start < n; start++ {
		if seen[start] || len(adj[start]) == 0 {
			continue
		}
		var comp, stack []int
		stack = append(stack, start)
		seen[start] = true
		for len(stack) > 0 {
			v := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			comp = append(comp, v)
			for _, w := range adj[v] {
				if !seen[w] {
					seen[w] = true
					stack = append(stack, w)
				}
			}
		}
		sort.Ints(comp)
		comps = append(comps, comp)
	}
	return comps
}

// violations collects everything wrong with a candidate arc selection, plus
// the extracted routes when it is clean enough to walk.
type violations struct {
	subsets [][]int  // depot-disconnected components (shop sets, local idx)
	overCap [][]int  // shop sets of routes exceeding capacity
	overLen []arcSel // edge multisets of routes exceeding the length bound
	cycles  [][]int  // depot-rooted cycles, only set when subsets is empty
}

func (v violations) clean() bool {
	return len(v.subsets) == 0 && len(v.overCap) == 0 && len(v.overLen) == 0
}

// detect finds illegal structure in a selection: depot-disconnected
// components always; overloaded and (when checkLen) over-long depot-rooted
// routes once the selection is connected enough to decompose into cycles.
func (f *formulation) detect(sel arcSel, checkLen bool) (violations, error) {
	var v violations
	for _, comp := range components(len(f.nodes), sel) {
		if comp[0] != 0 {
			v.subsets = append(v.subsets, comp)
		}
	}
	if len(v.subsets) > 0 {
		return v, nil
	}

	cycles, err := extractCycles(len(f.nodes), sel)
	if err != nil {
		return v, err
	}
	v.cycles = cycles
	for _, cyc := range cycles {
		shops := append([]int(nil), cyc[1:len(cyc)-1]...)
		sort.Ints(shops)
		if f.demandOf(shops) > f.inst.Capacity()+distEps {
			v.overCap = append(v.overCap, shops)
		}
		if checkLen && f.inst.MaxRouteLen() > 0 && f.cycleLength(cyc) > f.inst.MaxRouteLen()+distEps {
			v.overLen = append(v.overLen, cycleEdges(cyc))
		}
	}
	return v, nil
}

// applyCuts adds one constraint per violation, in the fixed detection order,
// and reports how many were new.
func (f *formulation) applyCuts(v violations) int {
	added := 0
	for _, set := range v.subsets {
		if f.addSubsetCut(set) {
			added++
		}
	}
	for _, set := range v.overCap {
		if f.addSubsetCut(set) {
			added++
		}
	}
	for _, edges := range v.overLen {
		if f.addCycleCut(edges) {
			added++
		}
	}
	return added
}

// cycleLength sums distances along a local cycle sequence.
func (f *formulation) cycleLength(cyc []int) float64 {
	var total float64
	for i := 0; i+1 < len(cyc); i++ {
		total += f.inst.Dist(f.nodes[cyc[i]], f.nodes[cyc[i+1]])
	}
	return total
}

// cycleEdges converts a cycle sequence into its edge multiset.
func cycleEdges(cyc []int) arcSel {
	edges := arcSel{}
	for i := 0; i+1 < len(cyc); i++ {
		edges[mkPair(cyc[i], cyc[i+1])]++
	}
	return edges
}
