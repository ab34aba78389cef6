package solver

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"fleetroute/internal/bip"
)

// solveSweep clusters shops by polar angle around the depot, then routes
// each cluster independently: single shops are trivial out-and-back trips,
// small clusters get an exact tour, larger ones nearest-neighbor plus 2-opt.
// Clusters are routed concurrently and merged back in formation order, so
// the result is independent of goroutine scheduling.
func solveSweep(ctx context.Context, in *Instance, cfg Config) (*Solution, error) {
	start := time.Now()
	deadline := start.Add(cfg.TimeLimit)

	clusters := sweepClusters(in, cfg.SweepSlack)
	cfg.emit(ProgressEvent{Phase: "clustered", Iteration: len(clusters)})

	tours := make([][][]int, len(clusters))
	errs := make([]error, len(clusters))
	var wg sync.WaitGroup
	for i := range clusters {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			tours[i], errs[i] = routeClusterSplit(ctx, in, cfg, clusters[i], deadline)
		}(i)
	}
	wg.Wait()
	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}

	var routes []Route
	for i, group := range tours {
		for _, tour := range group {
			r := Route{
				Nodes: make([]string, 0, len(tour)),
				idx:   append([]int(nil), tour...),
			}
			for _, v := range tour {
				r.Nodes = append(r.Nodes, in.Node(v).ID)
			}
			routes = append(routes, r)
		}
		cfg.emit(ProgressEvent{Phase: "cluster", Iteration: i + 1})
	}

	diag := Diagnostics{Elapsed: time.Since(start)}
	return evaluate(in, routes, FlagSuboptimal, 0, diag)
}

// sweepClusters partitions shops into capacity-feasible clusters in polar
// angle order around the depot. Angles are normalized to [0, 2π); ties break
// on the smaller index. The capacity boundary is inclusive: a shop that
// exactly fills the cluster joins it, the next shop starts a fresh one.
func sweepClusters(in *Instance, slack float64) [][]int {
	depot := in.Node(0)
	type shopAngle struct {
		idx   int
		angle float64
	}
	order := make([]shopAngle, 0, in.NumShops())
	for i := 1; i < in.NumNodes(); i++ {
		nd := in.Node(i)
		a := math.Atan2(nd.Y-depot.Y, nd.X-depot.X)
		if a < 0 {
			a += 2 * math.Pi
		}
		order = append(order, shopAngle{idx: i, angle: a})
	}
	sort.Slice(order, func(i, j int) bool {
		if order[i].angle != order[j].angle {
			return order[i].angle < order[j].angle
		}
		return order[i].idx < order[j].idx
	})

	capEff := in.Capacity() * slack
	var clusters [][]int
	var cur []int
	var load float64
	for _, s := range order {
		d := in.Node(s.idx).Demand
		if len(cur) > 0 && load+d > capEff+distEps {
			clusters = append(clusters, cur)
			cur, load = nil, 0
		}
		cur = append(cur, s.idx)
		load += d
	}
	if len(cur) > 0 {
		clusters = append(clusters, cur)
	}
	return clusters
}

// routeClusterSplit routes one cluster and, when a route-length bound is
// set and the tour exceeds it, peels the last shop in sweep order into a
// follow-on cluster and retries both halves. Shops stay in sweep order
// across the split, so the final route order matches cluster formation.
func routeClusterSplit(ctx context.Context, in *Instance, cfg Config, shops []int, deadline time.Time) ([][]int, error) {
	tour, err := routeCluster(ctx, in, cfg, shops, deadline)
	if err != nil {
		return nil, err
	}
	bound := in.MaxRouteLen()
	if bound <= 0 || tourLength(in, tour) <= bound+distEps {
		return [][]int{tour}, nil
	}
	if len(shops) == 1 {
		return nil, fmt.Errorf("%w: shop %q unreachable within route length bound",
			ErrInfeasibleInstance, in.Node(shops[0]).ID)
	}
	head, err := routeClusterSplit(ctx, in, cfg, shops[:len(shops)-1], deadline)
	if err != nil {
		return nil, err
	}
	tail, err := routeClusterSplit(ctx, in, cfg, shops[len(shops)-1:], deadline)
	if err != nil {
		return nil, err
	}
	return append(head, tail...), nil
}

// routeCluster produces one closed tour over the depot and the given shops.
func routeCluster(ctx context.Context, in *Instance, cfg Config, shops []int, deadline time.Time) ([]int, error) {
	if len(shops) == 1 {
		return []int{0, shops[0], 0}, nil
	}
	if len(shops) <= cfg.SweepExactLimit {
		return routeClusterExact(ctx, in, cfg, shops, deadline)
	}
	return improveTour2Opt(in, nearestNeighborTour(in, shops)), nil
}

// routeClusterExact solves the single-vehicle tour over a cluster with the
// same formulation the full strategies use, k fixed to one. Capacity and
// length checks are the caller's concern here; only connectivity is cut.
func routeClusterExact(ctx context.Context, in *Instance, cfg Config, shops []int, deadline time.Time) ([]int, error) {
	nodes := make([]int, 0, len(shops)+1)
	nodes = append(nodes, 0)
	nodes = append(nodes, shops...)
	f := newFormulation(in, nodes, 1)
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		rem := time.Until(deadline)
		if rem <= 0 {
			return nil, fmt.Errorf("%w: cluster tour budget exhausted", ErrTimeLimit)
		}
		res, err := f.model.Solve(ctx, bip.Params{TimeLimit: rem, GapTol: cfg.GapTol})
		if err != nil {
			return nil, err
		}
		if res.Status == bip.StatusInfeasible {
			return nil, fmt.Errorf("%w: tour model over complete cluster infeasible", ErrMalformedSolution)
		}
		if res.X == nil {
			return nil, fmt.Errorf("%w: cluster tour budget exhausted", ErrTimeLimit)
		}
		sel := f.selection(res.X)
		viol, err := f.detect(sel, false)
		if err != nil {
			return nil, err
		}
		if viol.clean() {
			tour := make([]int, 0, len(viol.cycles[0]))
			for _, local := range viol.cycles[0] {
				tour = append(tour, nodes[local])
			}
			return tour, nil
		}
		if f.applyCuts(viol) == 0 {
			return nil, fmt.Errorf("%w: violated constraints already present in model", ErrMalformedSolution)
		}
		if res.Status == bip.StatusTimeLimit {
			return nil, fmt.Errorf("%w: cluster tour budget exhausted", ErrTimeLimit)
		}
	}
}
