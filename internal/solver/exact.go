package solver

import (
	"context"
	"fmt"
	"math/bits"
	"time"

	"fleetroute/internal/bip"
)

// maxExactShops caps the full-enumeration strategy. Beyond this the model
// carries billions of subset constraints and the point of the strategy, a
// ground-truth reference for the cutting-plane loop, is lost.
const maxExactShops = 16

// solveExact builds the formulation with every rounded-capacity subset
// constraint added up front, one per shop subset of size two or more. With
// no route-length bound a single solve is terminal; with one, over-long
// routes are still cut lazily since their constraints depend on the exact
// edge multiset. Like the iterative strategy, an infeasible model grows the
// fleet by one vehicle and retries.
func solveExact(ctx context.Context, in *Instance, cfg Config) (*Solution, error) {
	if in.NumShops() > maxExactShops {
		return nil, fmt.Errorf("%w: %d shops exceeds limit of %d", ErrExactScale, in.NumShops(), maxExactShops)
	}
	start := time.Now()
	deadline := start.Add(cfg.TimeLimit)

	var diag Diagnostics
	for k := in.MinVehicles(); k <= in.NumShops(); k++ {
		sol, err := exactLoop(ctx, in, cfg, k, start, deadline, &diag)
		if err == errFleetTooSmall {
			continue
		}
		return sol, err
	}
	diag.Elapsed = time.Since(start)
	return nil, fmt.Errorf("%w: no fleet size up to %d admits a solution", ErrInfeasibleInstance, in.NumShops())
}

func exactLoop(ctx context.Context, in *Instance, cfg Config, k int, start, deadline time.Time, diag *Diagnostics) (*Solution, error) {
	f := newFormulation(in, identityNodes(in.NumNodes()), k)

	s := in.NumShops()
	set := make([]int, 0, s)
	for mask := uint32(1); mask < 1<<s; mask++ {
		if bits.OnesCount32(mask) < 2 {
			continue
		}
		set = set[:0]
		for b := 0; b < s; b++ {
			if mask&(1<<b) != 0 {
				set = append(set, b+1)
			}
		}
		f.addSubsetCut(set)
	}
	cfg.emit(ProgressEvent{Phase: "formulated", CutsAdded: f.model.NumConstrs()})
	diag.CutsAdded = len(f.cuts)

	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		rem := time.Until(deadline)
		if rem <= 0 {
			diag.Elapsed = time.Since(start)
			return nil, fmt.Errorf("%w: budget exhausted after %d iterations", ErrTimeLimit, diag.Iterations)
		}
		res, err := f.model.Solve(ctx, bip.Params{TimeLimit: rem, GapTol: cfg.GapTol})
		if err != nil {
			return nil, err
		}
		diag.Iterations++
		diag.SearchNodes += res.Nodes
		diag.BestBound = res.Bound

		if res.Status == bip.StatusInfeasible {
			return nil, errFleetTooSmall
		}
		if res.X == nil {
			diag.Elapsed = time.Since(start)
			return nil, fmt.Errorf("%w: no incumbent within budget", ErrTimeLimit)
		}

		sel := f.selection(res.X)
		viol, err := f.detect(sel, true)
		if err != nil {
			return nil, err
		}
		if viol.clean() {
			diag.Elapsed = time.Since(start)
			flag := FlagOptimal
			if res.Status == bip.StatusTimeLimit || res.Gap > cfg.GapTol+distEps {
				flag = FlagSuboptimal
			}
			cfg.emit(ProgressEvent{Phase: "iteration", Iteration: diag.Iterations, CutsAdded: diag.CutsAdded, Incumbent: res.Cost})
			routes := buildRoutes(in, f.nodes, viol.cycles)
			return evaluate(in, routes, flag, res.Gap, *diag)
		}
		// Subset constraints are exhaustive, so only length violations remain.
		added := f.applyCuts(viol)
		if added == 0 {
			return nil, fmt.Errorf("%w: violated constraints already present in model", ErrMalformedSolution)
		}
		diag.CutsAdded += added
		cfg.emit(ProgressEvent{Phase: "iteration", Iteration: diag.Iterations, CutsAdded: diag.CutsAdded, Incumbent: res.Cost})

		if res.Status == bip.StatusTimeLimit {
			diag.Elapsed = time.Since(start)
			return nil, fmt.Errorf("%w: budget exhausted with over-length routes outstanding", ErrTimeLimit)
		}
	}
}
