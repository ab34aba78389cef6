package solver

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// DistanceMatrix holds pairwise Euclidean distances between nodes. It is
// derived once from coordinates and never mutated: d(i,i)=0, d(i,j)=d(j,i),
// and the triangle inequality holds because the metric is Euclidean.
type DistanceMatrix struct {
	d *mat.SymDense
}

// NewDistanceMatrix computes the full matrix for the given nodes.
func NewDistanceMatrix(nodes []Node) *DistanceMatrix {
	n := len(nodes)
	d := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			d.SetSym(i, j, math.Hypot(nodes[i].X-nodes[j].X, nodes[i].Y-nodes[j].Y))
		}
	}
	return &DistanceMatrix{d: d}
}

// At returns the distance between node indexes i and j.
func (m *DistanceMatrix) At(i, j int) float64 { return m.d.At(i, j) }

// Size is the node count n of the n×n matrix.
func (m *DistanceMatrix) Size() int {
	r, _ := m.d.Dims()
	return r
}
