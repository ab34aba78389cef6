package solver

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDistanceMatrix(t *testing.T) {
	nodes := []Node{
		{ID: "depot", X: 0, Y: 0},
		{ID: "a", X: 3, Y: 4},
		{ID: "b", X: -1, Y: 0},
	}
	m := NewDistanceMatrix(nodes)

	assert.Equal(t, 3, m.Size())
	for i := 0; i < 3; i++ {
		assert.Zero(t, m.At(i, i))
		for j := 0; j < 3; j++ {
			assert.Equal(t, m.At(i, j), m.At(j, i))
		}
	}
	assert.InDelta(t, 5.0, m.At(0, 1), 1e-12)
	assert.InDelta(t, 1.0, m.At(0, 2), 1e-12)
	assert.InDelta(t, 32.0, m.At(1, 2)*m.At(1, 2), 1e-9) // (3-(-1))^2 + 4^2
}
