package solver

import (
	"context"
	"fmt"
	"time"
)

// Strategy selects one of the closed set of solving approaches.
type Strategy string

const (
	// ExactAllConstraints builds the complete exponential subtour family and
	// solves once; certified optimum, viable for small instances only.
	ExactAllConstraints Strategy = "EXACT_ALL_CONSTR"
	// IterativeAddConstraints runs the cutting-plane loop, lazily adding only
	// violated subtour constraints until the solution is clean.
	IterativeAddConstraints Strategy = "ITERATIVE_ADD_CONSTR"
	// SweepClusterAndRoute clusters shops by polar angle around the depot and
	// routes each capacity-feasible cluster independently.
	SweepClusterAndRoute Strategy = "SWEEP_CLUSTER_AND_ROUTE"
)

// Strategies lists the supported strategies in a stable order.
func Strategies() []Strategy {
	return []Strategy{ExactAllConstraints, IterativeAddConstraints, SweepClusterAndRoute}
}

// Flag qualifies the returned solution.
type Flag string

const (
	// FlagOptimal: proven optimal (within the configured gap tolerance).
	FlagOptimal Flag = "optimal"
	// FlagSuboptimal: feasible but without an optimality certificate, either
	// because the time budget expired or because the strategy is heuristic.
	FlagSuboptimal Flag = "suboptimal"
)

// ProgressEvent is emitted by long-running strategies after each solver
// iteration or finished cluster. Callbacks run synchronously on the solving
// goroutine and must be fast.
type ProgressEvent struct {
	Phase     string  `json:"phase"` // "iteration" or "cluster"
	Iteration int     `json:"iteration"`
	CutsAdded int     `json:"cutsAdded"`
	Incumbent float64 `json:"incumbent"`
}

// Config tunes a single solve invocation. The zero value solves with the
// iterative strategy and engine defaults.
type Config struct {
	Strategy  Strategy
	TimeLimit time.Duration // whole-invocation budget; default 30s
	GapTol    float64       // relative optimality gap tolerance

	// SweepExactLimit is the largest cluster routed by the exact machinery;
	// bigger clusters fall back to nearest-neighbor plus 2-opt.
	SweepExactLimit int
	// SweepSlack scales the capacity used while forming clusters, in (0,1];
	// values below 1 leave headroom in every cluster.
	SweepSlack float64

	Progress func(ProgressEvent)
}

const (
	defaultTimeLimit       = 30 * time.Second
	defaultSweepExactLimit = 8
)

func (c Config) withDefaults() Config {
	if c.Strategy == "" {
		c.Strategy = IterativeAddConstraints
	}
	if c.TimeLimit <= 0 {
		c.TimeLimit = defaultTimeLimit
	}
	if c.SweepExactLimit <= 0 {
		c.SweepExactLimit = defaultSweepExactLimit
	}
	if c.SweepSlack <= 0 || c.SweepSlack > 1 {
		c.SweepSlack = 1
	}
	return c
}

func (c Config) emit(ev ProgressEvent) {
	if c.Progress != nil {
		c.Progress(ev)
	}
}

// Route is one depot-rooted tour: node identifiers from depot to depot, the
// travelled distance and the served demand.
type Route struct {
	Nodes    []string `json:"nodes"`
	Distance float64  `json:"distance"`
	Demand   float64  `json:"demand"`

	idx []int // instance node indexes, parallel to Nodes
}

// Diagnostics carries solve-time context sufficient to explain the outcome.
type Diagnostics struct {
	Iterations  int           `json:"iterations"`
	CutsAdded   int           `json:"cutsAdded"`
	SearchNodes int64         `json:"searchNodes"`
	BestBound   float64       `json:"bestBound"`
	Elapsed     time.Duration `json:"elapsed"`
}

// Solution is an immutable set of routes partitioning all shops exactly once.
type Solution struct {
	Routes    []Route     `json:"routes"`
	TotalCost float64     `json:"totalCost"`
	Flag      Flag        `json:"flag"`
	Gap       float64     `json:"gap"`
	Diag      Diagnostics `json:"diagnostics"`
}

// Solve runs the configured strategy on the instance. Every invocation
// builds its model fresh; nothing is shared across calls.
func Solve(ctx context.Context, in *Instance, cfg Config) (*Solution, error) {
	cfg = cfg.withDefaults()
	if err := in.checkReachable(); err != nil {
		return nil, err
	}
	switch cfg.Strategy {
	case ExactAllConstraints:
		return solveExact(ctx, in, cfg)
	case IterativeAddConstraints:
		return solveIterative(ctx, in, cfg)
	case SweepClusterAndRoute:
		return solveSweep(ctx, in, cfg)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownStrategy, cfg.Strategy)
	}
}

// ParseStrategy maps the wire name onto the closed strategy set.
func ParseStrategy(s string) (Strategy, error) {
	switch Strategy(s) {
	case ExactAllConstraints, IterativeAddConstraints, SweepClusterAndRoute:
		return Strategy(s), nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownStrategy, s)
}
