package bip

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSolveCoverPicksCheapest(t *testing.T) {
	m := NewModel()
	a := m.AddVar(1, 1)
	b := m.AddVar(2, 1)
	c := m.AddVar(3, 1)
	m.AddConstr([]Term{{a, 1}, {b, 1}, {c, 1}}, GreaterEq, 2)

	res, err := m.Solve(context.Background(), Params{})
	require.NoError(t, err)
	require.Equal(t, StatusOptimal, res.Status)
	assert.InDelta(t, 3.0, res.Cost, 1e-9)
	assert.Equal(t, []int{1, 1, 0}, res.X)
	assert.Zero(t, res.Gap)
}

func TestSolveEquality(t *testing.T) {
	m := NewModel()
	a := m.AddVar(2, 1)
	b := m.AddVar(1, 1)
	m.AddConstr([]Term{{a, 1}, {b, 1}}, Equal, 1)

	res, err := m.Solve(context.Background(), Params{})
	require.NoError(t, err)
	require.Equal(t, StatusOptimal, res.Status)
	assert.InDelta(t, 1.0, res.Cost, 1e-9)
	assert.Equal(t, []int{0, 1}, res.X)
}

func TestSolveInfeasible(t *testing.T) {
	m := NewModel()
	a := m.AddVar(1, 1)
	b := m.AddVar(1, 1)
	m.AddConstr([]Term{{a, 1}, {b, 1}}, GreaterEq, 3)

	res, err := m.Solve(context.Background(), Params{})
	require.NoError(t, err)
	assert.Equal(t, StatusInfeasible, res.Status)
	assert.Nil(t, res.X)
}

func TestSolveGeneralUpperBound(t *testing.T) {
	m := NewModel()
	a := m.AddVar(1.5, 2)
	m.AddConstr([]Term{{a, 1}}, GreaterEq, 2)

	res, err := m.Solve(context.Background(), Params{})
	require.NoError(t, err)
	require.Equal(t, StatusOptimal, res.Status)
	assert.Equal(t, []int{2}, res.X)
	assert.InDelta(t, 3.0, res.Cost, 1e-9)
}

func TestSolveNegativeCoefficient(t *testing.T) {
	m := NewModel()
	x := m.AddVar(1, 1)
	y := m.AddVar(1, 1)
	// y only after x, and at least one of the two.
	m.AddConstr([]Term{{y, 1}, {x, -1}}, LessEq, 0)
	m.AddConstr([]Term{{x, 1}, {y, 1}}, GreaterEq, 1)

	res, err := m.Solve(context.Background(), Params{})
	require.NoError(t, err)
	require.Equal(t, StatusOptimal, res.Status)
	assert.Equal(t, []int{1, 0}, res.X)
}

// wideModel is large enough that the search cannot finish before the first
// sparse deadline check.
func wideModel(n int) *Model {
	m := NewModel()
	vars := make([]Term, n)
	for i := range vars {
		vars[i] = Term{m.AddVar(1, 1), 1}
	}
	m.AddConstr(vars, GreaterEq, float64(n/2))
	return m
}

func TestSolveCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := wideModel(20).Solve(ctx, Params{})
	require.ErrorIs(t, err, context.Canceled)
}

func TestSolveTimeLimit(t *testing.T) {
	res, err := wideModel(20).Solve(context.Background(), Params{TimeLimit: time.Nanosecond})
	require.NoError(t, err)
	assert.Equal(t, StatusTimeLimit, res.Status)
}

func TestModelPanics(t *testing.T) {
	m := NewModel()
	require.Panics(t, func() { m.AddVar(-1, 1) })
	v := m.AddVar(1, 1)
	require.Panics(t, func() { m.AddConstr([]Term{{v + 1, 1}}, LessEq, 0) })
}
