package solver

// nearestNeighborTour builds a closed tour [depot, ..., depot] over the given
// instance indexes, greedily visiting the closest unvisited shop and breaking
// distance ties on the smaller index.
func nearestNeighborTour(in *Instance, shops []int) []int {
	tour := make([]int, 0, len(shops)+2)
	tour = append(tour, 0)
	remaining := append([]int(nil), shops...)
	cur := 0
	for len(remaining) > 0 {
		best := 0
		for i := 1; i < len(remaining); i++ {
			di, db := in.Dist(cur, remaining[i]), in.Dist(cur, remaining[best])
			if di < db-distEps || (di < db+distEps && remaining[i] < remaining[best]) {
				best = i
			}
		}
		cur = remaining[best]
		tour = append(tour, cur)
		remaining = append(remaining[:best], remaining[best+1:]...)
	}
	return append(tour, 0)
}

// improveTour2Opt applies 2-opt passes to a closed tour until no segment
// reversal improves it. Endpoints stay fixed at the depot.
func improveTour2Opt(in *Instance, tour []int) []int {
	best := append([]int(nil), tour...)
	bestDist := tourLength(in, best)
	n := len(best)
	for {
		improved := false
		for i := 1; i < n-2; i++ {
			for k := i + 1; k < n-1; k++ {
				cand := twoOptSwap(best, i, k)
				d := tourLength(in, cand)
				if d+distEps < bestDist {
					best = cand
					bestDist = d
					improved = true
				}
			}
		}
		if !improved {
			break
		}
	}
	return best
}

func twoOptSwap(ord []int, i, k int) []int {
	out := make([]int, len(ord))
	copy(out, ord[:i])
	pos := i
	for j := k; j >= i; j-- {
		out[pos] = ord[j]
		pos++
	}
	copy(out[pos:], ord[k+1:])
	return out
}

func tourLength(in *Instance, tour []int) float64 {
	total := 0.0
	for i := 0; i+1 < len(tour); i++ {
		total += in.Dist(tour[i], tour[i+1])
	}
	return total
}
