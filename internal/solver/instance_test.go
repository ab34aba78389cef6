package solver

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func depotAt(x, y float64) Node { return Node{ID: "depot", X: x, Y: y} }

func TestNewInstanceValidation(t *testing.T) {
	depot := depotAt(0, 0)
	ok := []Node{{ID: "a", X: 1, Demand: 1}}

	tests := []struct {
		name     string
		shops    []Node
		capacity float64
		maxLen   float64
	}{
		{name: "no shops", shops: nil, capacity: 10},
		{name: "zero capacity", shops: ok, capacity: 0},
		{name: "negative capacity", shops: ok, capacity: -5},
		{name: "empty shop id", shops: []Node{{ID: "", Demand: 1}}, capacity: 10},
		{name: "duplicate shop id", shops: []Node{{ID: "a", Demand: 1}, {ID: "a", Demand: 2}}, capacity: 10},
		{name: "shop id clashes with depot", shops: []Node{{ID: "depot", Demand: 1}}, capacity: 10},
		{name: "negative demand", shops: []Node{{ID: "a", Demand: -1}}, capacity: 10},
		{name: "demand above capacity", shops: []Node{{ID: "a", Demand: 11}}, capacity: 10},
		{name: "negative route bound", shops: ok, capacity: 10, maxLen: -1},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewInstance(depot, tc.shops, tc.capacity, tc.maxLen)
			assert.ErrorIs(t, err, ErrInvalidInstance)
		})
	}
}

func TestNewInstanceAccessors(t *testing.T) {
	in, err := NewInstance(depotAt(0, 0), []Node{
		{ID: "a", X: 1, Demand: 2},
		{ID: "b", X: 2, Demand: 3},
	}, 4, 0)
	require.NoError(t, err)

	assert.Equal(t, 3, in.NumNodes())
	assert.Equal(t, 2, in.NumShops())
	assert.Equal(t, "depot", in.Node(0).ID)
	assert.Equal(t, "a", in.Node(1).ID)
	assert.InDelta(t, 5.0, in.TotalDemand(), 1e-12)
	assert.InDelta(t, 4.0, in.Capacity(), 1e-12)
	assert.InDelta(t, 1.0, in.Dist(0, 1), 1e-12)
}

func TestMinVehicles(t *testing.T) {
	tests := []struct {
		name    string
		demands []float64
		cap     float64
		want    int
	}{
		{name: "exact fill", demands: []float64{2, 2}, cap: 2, want: 2},
		{name: "round up", demands: []float64{1, 1, 1}, cap: 2, want: 2},
		{name: "single vehicle", demands: []float64{1}, cap: 10, want: 1},
		{name: "zero demand still needs one", demands: []float64{0, 0}, cap: 5, want: 1},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			shops := make([]Node, len(tc.demands))
			for i, d := range tc.demands {
				shops[i] = Node{ID: string(rune('a' + i)), X: float64(i + 1), Demand: d}
			}
			in, err := NewInstance(depotAt(0, 0), shops, tc.cap, 0)
			require.NoError(t, err)
			assert.Equal(t, tc.want, in.MinVehicles())
		})
	}
}

func TestCheckReachable(t *testing.T) {
	in, err := NewInstance(depotAt(0, 0), []Node{{ID: "far", X: 10, Demand: 1}}, 5, 5)
	require.NoError(t, err)
	assert.ErrorIs(t, in.checkReachable(), ErrInfeasibleInstance)

	in, err = NewInstance(depotAt(0, 0), []Node{{ID: "near", X: 2, Demand: 1}}, 5, 5)
	require.NoError(t, err)
	assert.NoError(t, in.checkReachable())
}
