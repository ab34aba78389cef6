// Package bip solves small bounded integer programs by branch and bound.
//
// A Model holds integer variables x_j in [0, ub_j] with non-negative costs,
// linear constraints over them, and a minimization objective. Models are
// built fresh per solve attempt and may be augmented with new constraints
// between solves (lazy cuts); they are not safe for concurrent use.
package bip

import "fmt"

// Sense is the relational operator of a linear constraint.
type Sense int

const (
	LessEq Sense = iota
	Equal
	GreaterEq
)

func (s Sense) String() string {
	switch s {
	case LessEq:
		return "<="
	case Equal:
		return "=="
	case GreaterEq:
		return ">="
	}
	return "?"
}

// Term is one coefficient of a linear constraint.
type Term struct {
	Var  int
	Coef float64
}

type constraint struct {
	terms []Term
	sense Sense
	rhs   float64
}

// Model is a bounded integer program: minimize c·x subject to linear
// constraints, x integer, 0 <= x_j <= ub_j.
type Model struct {
	costs []float64
	ubs   []int
	cons  []constraint
}

func NewModel() *Model {
	return &Model{}
}

// AddVar appends a variable with the given objective cost and integer upper
// bound, returning its index. Costs must be non-negative; the search relies
// on this when bounding.
func (m *Model) AddVar(cost float64, ub int) int {
	if cost < 0 {
		panic(fmt.Sprintf("bip: negative cost %v", cost))
	}
	if ub < 0 {
		ub = 0
	}
	m.costs = append(m.costs, cost)
	m.ubs = append(m.ubs, ub)
	return len(m.costs) - 1
}

// NumVars reports the number of variables added so far.
func (m *Model) NumVars() int { return len(m.costs) }

// NumConstrs reports the number of constraints added so far.
func (m *Model) NumConstrs() int { return len(m.cons) }

// ConstrBounds reports the sense and right-hand side of constraint i.
func (m *Model) ConstrBounds(i int) (Sense, float64) {
	c := &m.cons[i]
	return c.sense, c.rhs
}

// AddConstr appends the constraint sum(terms) sense rhs. Terms referencing
// out-of-range variables panic: that is a programming error, not input error.
func (m *Model) AddConstr(terms []Term, sense Sense, rhs float64) {
	for _, t := range terms {
		if t.Var < 0 || t.Var >= len(m.costs) {
			panic(fmt.Sprintf("bip: constraint references unknown variable %d", t.Var))
		}
	}
	cp := make([]Term, len(terms))
	copy(cp, terms)
	m.cons = append(m.cons, constraint{terms: cp, sense: sense, rhs: rhs})
}
