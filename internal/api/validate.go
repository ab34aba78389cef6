package api

import (
	"fmt"
	"math"
	"net/url"

	"fleetroute/internal/config"
	"fleetroute/internal/model"
	"fleetroute/internal/solver"
)

func validateInstanceIn(in *model.InstanceIn, cfg config.Config) error {
	if !finite(in.Depot.X) || !finite(in.Depot.Y) {
		return fmt.Errorf("depot coordinates must be finite")
	}
	if len(in.Shops) == 0 {
		return fmt.Errorf("at least one shop is required")
	}
	if cfg.Solver.MaxShops > 0 && len(in.Shops) > cfg.Solver.MaxShops {
		return fmt.Errorf("too many shops: %d (limit %d)", len(in.Shops), cfg.Solver.MaxShops)
	}
	if in.Capacity <= 0 || !finite(in.Capacity) {
		return fmt.Errorf("capacity must be positive")
	}
	if in.MaxRouteLen < 0 || !finite(in.MaxRouteLen) {
		return fmt.Errorf("maxRouteLen must be >= 0")
	}
	seen := map[string]struct{}{}
	for i, s := range in.Shops {
		if s.ID == "" {
			return fmt.Errorf("shop %d: id is required", i)
		}
		if _, dup := seen[s.ID]; dup {
			return fmt.Errorf("duplicate shop id %q", s.ID)
		}
		seen[s.ID] = struct{}{}
		if !finite(s.X) || !finite(s.Y) {
			return fmt.Errorf("shop %q: coordinates must be finite", s.ID)
		}
		if s.Demand <= 0 || !finite(s.Demand) {
			return fmt.Errorf("shop %q: demand must be positive", s.ID)
		}
		if s.Demand > in.Capacity {
			return fmt.Errorf("shop %q: demand %v exceeds vehicle capacity %v", s.ID, s.Demand, in.Capacity)
		}
	}
	return nil
}

func validateSolveRequest(req *model.SolveRequest, cfg config.Config) error {
	if req.InstanceID == "" {
		return fmt.Errorf("instanceId is required")
	}
	if req.Strategy != "" {
		if _, err := solver.ParseStrategy(req.Strategy); err != nil {
			return fmt.Errorf("unknown strategy %q", req.Strategy)
		}
	}
	if req.TimeLimitMs < 0 {
		return fmt.Errorf("timeLimitMs must be >= 0")
	}
	if lim := cfg.Solver.MaxTimeLimit.Std(); lim > 0 && req.TimeLimitMs > int(lim.Milliseconds()) {
		return fmt.Errorf("timeLimitMs exceeds server limit %d", lim.Milliseconds())
	}
	if req.GapTol < 0 || req.GapTol >= 1 {
		return fmt.Errorf("gapTol must be in [0,1)")
	}
	if req.SweepExactLimit < 0 {
		return fmt.Errorf("sweepExactLimit must be >= 0")
	}
	if req.SweepSlack != 0 && (req.SweepSlack <= 0 || req.SweepSlack > 1) {
		return fmt.Errorf("sweepSlack must be in (0,1]")
	}
	return nil
}

func validateSubscriptionRequest(req *model.SubscriptionRequest) error {
	u, err := url.Parse(req.URL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("url must be an absolute http(s) URL")
	}
	if len(req.Events) == 0 {
		return fmt.Errorf("at least one event type is required")
	}
	for _, e := range req.Events {
		switch e {
		case "*", "solve.completed", "solve.failed":
		default:
			return fmt.Errorf("unknown event type %q", e)
		}
	}
	if req.Secret == "" {
		return fmt.Errorf("secret is required")
	}
	return nil
}

func finite(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }
