package model

import "time"

// Wire types shared by the HTTP API and the stores.

type PointIn struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

type ShopIn struct {
	ID     string  `json:"id"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Demand float64 `json:"demand"`
}

// InstanceIn is a routing problem as submitted: one depot, shops with
// demands, the vehicle capacity and an optional route length bound
// (0 means unbounded).
type InstanceIn struct {
	Name        string   `json:"name,omitempty"`
	Depot       PointIn  `json:"depot"`
	Shops       []ShopIn `json:"shops"`
	Capacity    float64  `json:"capacity"`
	MaxRouteLen float64  `json:"maxRouteLen,omitempty"`
}

// InstanceRec is a stored instance.
type InstanceRec struct {
	ID        string     `json:"id"`
	TenantID  string     `json:"tenantId"`
	Name      string     `json:"name,omitempty"`
	Spec      InstanceIn `json:"spec"`
	CreatedAt time.Time  `json:"createdAt"`
}

// SolveRequest submits an instance to a strategy. Zero values pick server
// defaults.
type SolveRequest struct {
	InstanceID      string  `json:"instanceId"`
	Strategy        string  `json:"strategy"`
	TimeLimitMs     int     `json:"timeLimitMs,omitempty"`
	GapTol          float64 `json:"gapTol,omitempty"`
	SweepExactLimit int     `json:"sweepExactLimit,omitempty"`
	SweepSlack      float64 `json:"sweepSlack,omitempty"`
}

// Solve job lifecycle states.
const (
	JobQueued    = "queued"
	JobRunning   = "running"
	JobCompleted = "completed"
	JobFailed    = "failed"
)

// SolveJob tracks one asynchronous solve from submission to terminal state.
type SolveJob struct {
	ID          string          `json:"id"`
	TenantID    string          `json:"tenantId"`
	InstanceID  string          `json:"instanceId"`
	Strategy    string          `json:"strategy"`
	Status      string          `json:"status"`
	SubmittedAt time.Time       `json:"submittedAt"`
	StartedAt   *time.Time      `json:"startedAt,omitempty"`
	FinishedAt  *time.Time      `json:"finishedAt,omitempty"`
	Result      *SolutionReport `json:"result,omitempty"`
	Error       string          `json:"error,omitempty"`
}

type RouteOut struct {
	Nodes    []string `json:"nodes"`
	Distance float64  `json:"distance"`
	Demand   float64  `json:"demand"`
}

// SolutionReport is the externalized solve outcome.
type SolutionReport struct {
	Routes      []RouteOut `json:"routes"`
	TotalCost   float64    `json:"totalCost"`
	Flag        string     `json:"flag"`
	Gap         float64    `json:"gap"`
	Iterations  int        `json:"iterations"`
	CutsAdded   int        `json:"cutsAdded"`
	SearchNodes int64      `json:"searchNodes"`
	ElapsedMs   int64      `json:"elapsedMs"`
}

type SubscriptionRequest struct {
	TenantID string   `json:"tenantId"`
	URL      string   `json:"url"`
	Events   []string `json:"events"`
	Secret   string   `json:"secret"`
}

type Subscription struct {
	ID       string   `json:"id"`
	TenantID string   `json:"tenantId"`
	URL      string   `json:"url"`
	Events   []string `json:"events"`
	Secret   string   `json:"secret,omitempty"`
}
