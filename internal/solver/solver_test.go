package solver

import (
	"context"
	"math"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func solveWith(t *testing.T, in *Instance, s Strategy) *Solution {
	t.Helper()
	sol, err := Solve(context.Background(), in, Config{Strategy: s, TimeLimit: 30 * time.Second})
	require.NoError(t, err)
	return sol
}

// visitedShops flattens a solution into the sorted multiset of shop IDs.
func visitedShops(sol *Solution) []string {
	var ids []string
	for _, r := range sol.Routes {
		ids = append(ids, r.Nodes[1:len(r.Nodes)-1]...)
	}
	sort.Strings(ids)
	return ids
}

func TestSolveSquareAllStrategies(t *testing.T) {
	// Four unit-demand shops on the axes, capacity two: the optimum pairs
	// adjacent shops, total cost 4+2*sqrt(2). The sweep clustering happens
	// to produce the same pairing here.
	want := 4 + 2*math.Sqrt2
	for _, s := range Strategies() {
		t.Run(string(s), func(t *testing.T) {
			sol := solveWith(t, squareInstance(t), s)
			assert.InDelta(t, want, sol.TotalCost, 1e-9)
			require.Len(t, sol.Routes, 2)
			assert.Equal(t, []string{"e", "n", "s", "w"}, visitedShops(sol))
			if s != SweepClusterAndRoute {
				assert.Equal(t, FlagOptimal, sol.Flag)
				assert.Zero(t, sol.Gap)
			}
		})
	}
}

func TestSolveSingleShop(t *testing.T) {
	in, err := NewInstance(depotAt(0, 0), []Node{{ID: "only", X: 3, Y: 4, Demand: 1}}, 5, 0)
	require.NoError(t, err)

	for _, s := range Strategies() {
		t.Run(string(s), func(t *testing.T) {
			sol := solveWith(t, in, s)
			require.Len(t, sol.Routes, 1)
			assert.Equal(t, []string{"depot", "only", "depot"}, sol.Routes[0].Nodes)
			assert.InDelta(t, 10.0, sol.TotalCost, 1e-9)
		})
	}
}

func TestExactMatchesIterative(t *testing.T) {
	// Asymmetric layout where clustering is not obviously optimal.
	in, err := NewInstance(depotAt(0, 0), []Node{
		{ID: "a", X: 2, Y: 1, Demand: 2},
		{ID: "b", X: 3, Y: -1, Demand: 1},
		{ID: "c", X: -1, Y: 2, Demand: 2},
		{ID: "d", X: -2, Y: -2, Demand: 1},
		{ID: "e", X: 0.5, Y: 3, Demand: 1},
	}, 4, 0)
	require.NoError(t, err)

	exact := solveWith(t, in, ExactAllConstraints)
	iter := solveWith(t, in, IterativeAddConstraints)
	sweep := solveWith(t, in, SweepClusterAndRoute)

	assert.Equal(t, FlagOptimal, exact.Flag)
	assert.Equal(t, FlagOptimal, iter.Flag)
	assert.InDelta(t, exact.TotalCost, iter.TotalCost, 1e-9)
	assert.GreaterOrEqual(t, sweep.TotalCost+1e-9, exact.TotalCost)

	want := []string{"a", "b", "c", "d", "e"}
	for _, sol := range []*Solution{exact, iter, sweep} {
		assert.Equal(t, want, visitedShops(sol))
	}
}

func TestSolveRouteLengthBound(t *testing.T) {
	// One combined tour would be length 4; the bound forces two round trips.
	in, err := NewInstance(depotAt(0, 0), []Node{
		{ID: "a", X: 1, Demand: 1},
		{ID: "b", X: -1, Demand: 1},
	}, 2, 2.5)
	require.NoError(t, err)

	for _, s := range []Strategy{ExactAllConstraints, IterativeAddConstraints} {
		t.Run(string(s), func(t *testing.T) {
			sol := solveWith(t, in, s)
			require.Len(t, sol.Routes, 2)
			assert.InDelta(t, 4.0, sol.TotalCost, 1e-9)
			for _, r := range sol.Routes {
				assert.InDelta(t, 2.0, r.Distance, 1e-9)
			}
		})
	}
}

func TestSolveFleetGrowsBeyondDemandBound(t *testing.T) {
	// Total demand 6 with capacity 3 suggests two vehicles, but no pair of
	// shops fits on one, so three routes are required. The demand bound is a
	// lower bound only; the model must grow the fleet, not fail.
	in, err := NewInstance(depotAt(0, 0), []Node{
		{ID: "a", X: 1, Y: 0, Demand: 2},
		{ID: "b", X: 0, Y: 1, Demand: 2},
		{ID: "c", X: -1, Y: 0, Demand: 2},
	}, 3, 0)
	require.NoError(t, err)
	require.Equal(t, 2, in.MinVehicles())

	for _, s := range Strategies() {
		t.Run(string(s), func(t *testing.T) {
			sol := solveWith(t, in, s)
			require.Len(t, sol.Routes, 3)
			assert.InDelta(t, 6.0, sol.TotalCost, 1e-9)
			assert.Equal(t, []string{"a", "b", "c"}, visitedShops(sol))
			for _, r := range sol.Routes {
				assert.InDelta(t, 2.0, r.Demand, 1e-9)
			}
		})
	}
}

func TestSolveUnreachableShop(t *testing.T) {
	in, err := NewInstance(depotAt(0, 0), []Node{{ID: "far", X: 10, Demand: 1}}, 5, 5)
	require.NoError(t, err)

	for _, s := range Strategies() {
		t.Run(string(s), func(t *testing.T) {
			_, err := Solve(context.Background(), in, Config{Strategy: s})
			assert.ErrorIs(t, err, ErrInfeasibleInstance)
		})
	}
}

func TestSolveTimeLimitExceeded(t *testing.T) {
	in := squareInstance(t)
	_, err := Solve(context.Background(), in, Config{
		Strategy:  IterativeAddConstraints,
		TimeLimit: time.Nanosecond,
	})
	assert.ErrorIs(t, err, ErrTimeLimit)
}

func TestSolveExactScaleGuard(t *testing.T) {
	shops := make([]Node, maxExactShops+1)
	for i := range shops {
		shops[i] = Node{ID: string(rune('a' + i)), X: float64(i + 1), Y: 1, Demand: 1}
	}
	in, err := NewInstance(depotAt(0, 0), shops, float64(len(shops)), 0)
	require.NoError(t, err)

	_, err = Solve(context.Background(), in, Config{Strategy: ExactAllConstraints})
	assert.ErrorIs(t, err, ErrExactScale)
}

func TestSolveUnknownStrategy(t *testing.T) {
	in := squareInstance(t)
	_, err := Solve(context.Background(), in, Config{Strategy: "BOGUS"})
	assert.ErrorIs(t, err, ErrUnknownStrategy)
}

func TestParseStrategy(t *testing.T) {
	for _, s := range Strategies() {
		got, err := ParseStrategy(string(s))
		require.NoError(t, err)
		assert.Equal(t, s, got)
	}
	_, err := ParseStrategy("nope")
	assert.ErrorIs(t, err, ErrUnknownStrategy)
}

func TestSolveEmitsProgress(t *testing.T) {
	var events []ProgressEvent
	in := squareInstance(t)
	_, err := Solve(context.Background(), in, Config{
		Strategy:  IterativeAddConstraints,
		TimeLimit: 30 * time.Second,
		Progress:  func(ev ProgressEvent) { events = append(events, ev) },
	})
	require.NoError(t, err)
	require.NotEmpty(t, events)
	last := 0
	for _, ev := range events {
		assert.Equal(t, "iteration", ev.Phase)
		assert.GreaterOrEqual(t, ev.CutsAdded, last)
		last = ev.CutsAdded
	}
}

func TestSolveDiagnostics(t *testing.T) {
	sol := solveWith(t, squareInstance(t), IterativeAddConstraints)
	assert.Positive(t, sol.Diag.Iterations)
	assert.Positive(t, sol.Diag.SearchNodes)
	assert.InDelta(t, sol.TotalCost, sol.Diag.BestBound, 1e-6)
}

func TestSolveCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	in, err := NewInstance(depotAt(0, 0), []Node{
		{ID: "a", X: 2, Y: 1, Demand: 2},
		{ID: "b", X: 3, Y: -1, Demand: 1},
		{ID: "c", X: -1, Y: 2, Demand: 2},
		{ID: "d", X: -2, Y: -2, Demand: 1},
		{ID: "e", X: 0.5, Y: 3, Demand: 1},
		{ID: "f", X: 1.5, Y: -3, Demand: 2},
		{ID: "g", X: -3, Y: 0.5, Demand: 1},
	}, 4, 0)
	require.NoError(t, err)

	_, err = Solve(ctx, in, Config{Strategy: IterativeAddConstraints})
	assert.ErrorIs(t, err, context.Canceled)
}
