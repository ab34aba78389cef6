package api

import (
	"net/http"
	"time"

	"fleetroute/internal/buildinfo"
)

// DebugJSON reports build and effective runtime configuration. Secrets are
// reduced to presence flags.
func (s *Server) DebugJSON(w http.ResponseWriter, r *http.Request) {
	info := map[string]any{
		"build": buildinfo.Info(),
		"time":  time.Now().UTC().Format(time.RFC3339),
		"config": map[string]any{
			"addr":             s.Cfg.Addr,
			"authMode":         s.Cfg.Auth.Mode,
			"solverWorkers":    s.Cfg.Solver.Workers,
			"defaultTimeLimit": s.Cfg.Solver.DefaultTimeLimit.Std().String(),
			"maxTimeLimit":     s.Cfg.Solver.MaxTimeLimit.Std().String(),
			"maxShops":         s.Cfg.Solver.MaxShops,
			"rateLimitRps":     s.Cfg.RateLimit.RPS,
			"hasDatabaseUrl":   s.Cfg.DatabaseURL != "",
			"hasRedisUrl":      s.Cfg.RedisURL != "",
		},
	}
	writeJSON(w, http.StatusOK, info)
}
