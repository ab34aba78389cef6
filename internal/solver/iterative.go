package solver

import (
	"context"
	"fmt"
	"time"

	"fleetroute/internal/bip"
)

// solveIterative runs the cutting-plane loop: solve the degree-constrained
// relaxation, detect disconnected components, overloaded routes and
// over-long routes, add one cut per violation, and repeat. The loop ends
// when a solve returns a violation-free selection, or when the time budget
// runs out before one exists.
//
// The depot degree pins the route count at exactly k. The demand lower
// bound ceil(total/Q) need not be achievable (bin packing, or a route bound
// forcing extra splits), so an infeasible model retries with one more
// vehicle before the instance is declared infeasible.
func solveIterative(ctx context.Context, in *Instance, cfg Config) (*Solution, error) {
	start := time.Now()
	deadline := start.Add(cfg.TimeLimit)

	var diag Diagnostics
	for k := in.MinVehicles(); k <= in.NumShops(); k++ {
		sol, err := cutLoop(ctx, in, cfg, k, start, deadline, &diag)
		if err == errFleetTooSmall {
			continue
		}
		return sol, err
	}
	diag.Elapsed = time.Since(start)
	return nil, fmt.Errorf("%w: no fleet size up to %d admits a solution after %d cuts",
		ErrInfeasibleInstance, in.NumShops(), diag.CutsAdded)
}

// errFleetTooSmall is internal to the strategies: the model with the current
// vehicle count has no solution, but a larger fleet might.
var errFleetTooSmall = fmt.Errorf("fleet too small")

func cutLoop(ctx context.Context, in *Instance, cfg Config, k int, start, deadline time.Time, diag *Diagnostics) (*Solution, error) {
	f := newFormulation(in, identityNodes(in.NumNodes()), k)
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		rem := time.Until(deadline)
		if rem <= 0 {
			diag.Elapsed = time.Since(start)
			return nil, fmt.Errorf("%w: no violation-free solution after %d iterations, %d cuts",
				ErrTimeLimit, diag.Iterations, diag.CutsAdded)
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
			return nil, fmt.Errorf("%w: no incumbent within budget at iteration %d", ErrTimeLimit, diag.Iterations)
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

		added := f.applyCuts(viol)
		if added == 0 {
			return nil, fmt.Errorf("%w: violated constraints already present in model", ErrMalformedSolution)
		}
		diag.CutsAdded += added
		cfg.emit(ProgressEvent{Phase: "iteration", Iteration: diag.Iterations, CutsAdded: diag.CutsAdded, Incumbent: res.Cost})

		if res.Status == bip.StatusTimeLimit {
			diag.Elapsed = time.Since(start)
			return nil, fmt.Errorf("%w: budget exhausted with %d violations outstanding",
				ErrTimeLimit, len(viol.subsets)+len(viol.overCap)+len(viol.overLen))
		}
	}
}

func identityNodes(n int) []int {
	nodes := make([]int, n)
	for i := range nodes {
		nodes[i] = i
	}
	return nodes
}
