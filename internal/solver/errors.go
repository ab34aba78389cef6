package solver

import "errors"

var (
	// ErrInvalidInstance marks structurally bad input: duplicate identifiers,
	// negative demand, non-positive capacity, or a shop demand above capacity.
	// Raised during validation, before any solver resource is allocated.
	ErrInvalidInstance = errors.New("solver: invalid instance")

	// ErrInfeasibleInstance means the model admits no feasible solution,
	// e.g. an unreachably small route-distance bound.
	ErrInfeasibleInstance = errors.New("solver: infeasible instance")

	// ErrTimeLimit means the time budget expired before any feasible set of
	// routes was proven; when an incumbent exists the solve instead returns
	// it flagged suboptimal.
	ErrTimeLimit = errors.New("solver: time limit exceeded")

	// ErrMalformedSolution flags an internal invariant violation: an arc
	// selection that should decompose into depot-rooted cycles does not.
	// Always a solver defect, never a user error.
	ErrMalformedSolution = errors.New("solver: malformed solution")

	// ErrExactScale is returned by the exhaustive strategy when the subset
	// family is too large to enumerate; use the iterative strategy instead.
	ErrExactScale = errors.New("solver: instance too large for exhaustive constraint enumeration")

	// ErrUnknownStrategy is returned for a strategy outside the closed set.
	ErrUnknownStrategy = errors.New("solver: unknown strategy")
)
