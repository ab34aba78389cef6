package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"fleetroute/internal/model"
	"fleetroute/internal/solver"
	"fleetroute/internal/store"
)

// InstancesHandler handles POST/GET /v1/instances
func (s *Server) InstancesHandler(w http.ResponseWriter, r *http.Request) {
	p := s.getPrincipal(r)
	switch r.Method {
	case http.MethodPost:
		if !p.CanSubmit() {
			writeProblem(w, 403, "Forbidden", "planner or admin required", r.URL.Path)
			return
		}
		var in model.InstanceIn
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
			writeProblem(w, http.StatusBadRequest, "Invalid JSON", err.Error(), r.URL.Path)
			return
		}
		if err := validateInstanceIn(&in, s.Cfg); err != nil {
			writeProblem(w, http.StatusBadRequest, "Invalid instance", err.Error(), r.URL.Path)
			return
		}
		// exercise the solver-side validation too so a stored instance is
		// guaranteed solvable in shape
		if _, err := instanceFromSpec(in); err != nil {
			writeProblem(w, http.StatusBadRequest, "Invalid instance", err.Error(), r.URL.Path)
			return
		}
		rec, err := s.Store.CreateInstance(r.Context(), p.Tenant, in)
		if err != nil {
			writeProblem(w, http.StatusInternalServerError, "Create instance failed", err.Error(), r.URL.Path)
			return
		}
		writeJSON(w, http.StatusCreated, rec)
	case http.MethodGet:
		cursor := r.URL.Query().Get("cursor")
		limit := 100
		if v := r.URL.Query().Get("limit"); v != "" {
			fmt.Sscanf(v, "%d", &limit)
		}
		items, next, err := s.Store.ListInstances(r.Context(), p.Tenant, cursor, limit)
		if err != nil {
			writeProblem(w, http.StatusInternalServerError, "List instances failed", err.Error(), r.URL.Path)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"items": items, "nextCursor": next})
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// InstanceByIDHandler handles GET/DELETE /v1/instances/{id}
func (s *Server) InstanceByIDHandler(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/v1/instances/")
	if id == "" || strings.Contains(id, "/") {
		writeProblem(w, http.StatusNotFound, "Not Found", "", r.URL.Path)
		return
	}
	p := s.getPrincipal(r)
	switch r.Method {
	case http.MethodGet:
		rec, err := s.Store.GetInstance(r.Context(), p.Tenant, id)
		if err != nil {
			writeProblem(w, statusFor(err), "Instance not found", err.Error(), r.URL.Path)
			return
		}
		writeJSON(w, http.StatusOK, rec)
	case http.MethodDelete:
		if !p.CanSubmit() {
			writeProblem(w, 403, "Forbidden", "planner or admin required", r.URL.Path)
			return
		}
		if err := s.Store.DeleteInstance(r.Context(), p.Tenant, id); err != nil {
			writeProblem(w, statusFor(err), "Delete instance failed", err.Error(), r.URL.Path)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// SolvesHandler handles POST/GET /v1/solves
func (s *Server) SolvesHandler(w http.ResponseWriter, r *http.Request) {
	p := s.getPrincipal(r)
	switch r.Method {
	case http.MethodPost:
		if !p.CanSubmit() {
			writeProblem(w, 403, "Forbidden", "planner or admin required", r.URL.Path)
			return
		}
		var req model.SolveRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeProblem(w, http.StatusBadRequest, "Invalid JSON", err.Error(), r.URL.Path)
			return
		}
		if err := validateSolveRequest(&req, s.Cfg); err != nil {
			writeProblem(w, http.StatusBadRequest, "Invalid solve request", err.Error(), r.URL.Path)
			return
		}
		rec, err := s.Store.GetInstance(r.Context(), p.Tenant, req.InstanceID)
		if err != nil {
			writeProblem(w, statusFor(err), "Instance not found", err.Error(), r.URL.Path)
			return
		}
		in, err := instanceFromSpec(rec.Spec)
		if err != nil {
			writeProblem(w, http.StatusBadRequest, "Invalid instance", err.Error(), r.URL.Path)
			return
		}
		strategy := req.Strategy
		if strategy == "" {
			strategy = string(solver.IterativeAddConstraints)
		}
		job := model.SolveJob{
			ID:          "job_" + uuid.NewString(),
			TenantID:    p.Tenant,
			InstanceID:  rec.ID,
			Strategy:    strategy,
			Status:      model.JobQueued,
			SubmittedAt: time.Now().UTC(),
		}
		if err := s.Store.CreateSolveJob(r.Context(), job); err != nil {
			writeProblem(w, http.StatusInternalServerError, "Create job failed", err.Error(), r.URL.Path)
			return
		}
		if !s.Runner.Submit(job, req, in) {
			job.Status = model.JobFailed
			job.Error = "solve queue full"
			_ = s.Store.UpdateSolveJob(r.Context(), job)
			writeProblem(w, http.StatusTooManyRequests, "Queue full", "retry later", r.URL.Path)
			return
		}
		writeJSON(w, http.StatusAccepted, job)
	case http.MethodGet:
		status := r.URL.Query().Get("status")
		cursor := r.URL.Query().Get("cursor")
		limit := 100
		if v := r.URL.Query().Get("limit"); v != "" {
			fmt.Sscanf(v, "%d", &limit)
		}
		items, next, err := s.Store.ListSolveJobs(r.Context(), p.Tenant, status, cursor, limit)
		if err != nil {
			writeProblem(w, http.StatusInternalServerError, "List jobs failed", err.Error(), r.URL.Path)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"items": items, "nextCursor": next})
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// SolveByIDHandler handles GET /v1/solves/{id} and the event streams at
// /v1/solves/{id}/events/stream (SSE) and /v1/solves/{id}/events/ws.
func (s *Server) SolveByIDHandler(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/v1/solves/")
	if rest == r.URL.Path || rest == "" {
		writeProblem(w, http.StatusNotFound, "Not Found", "missing id", r.URL.Path)
		return
	}
	parts := strings.Split(rest, "/")
	id := parts[0]
	p := s.getPrincipal(r)

	if len(parts) == 3 && parts[1] == "events" {
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		if _, err := s.Store.GetSolveJob(r.Context(), p.Tenant, id); err != nil {
			writeProblem(w, statusFor(err), "Job not found", err.Error(), r.URL.Path)
			return
		}
		switch parts[2] {
		case "stream":
			s.streamSSE(w, r, p.Tenant, id)
		case "ws":
			s.streamWS(w, r, p.Tenant, id)
		default:
			writeProblem(w, http.StatusNotFound, "Not Found", "", r.URL.Path)
		}
		return
	}
	if len(parts) != 1 {
		writeProblem(w, http.StatusNotFound, "Not Found", "", r.URL.Path)
		return
	}
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	job, err := s.Store.GetSolveJob(r.Context(), p.Tenant, id)
	if err != nil {
		writeProblem(w, statusFor(err), "Job not found", err.Error(), r.URL.Path)
		return
	}
	writeJSON(w, http.StatusOK, job)
}

func (s *Server) streamSSE(w http.ResponseWriter, r *http.Request, tenant, jobID string) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeProblem(w, 500, "Streaming unsupported", "", r.URL.Path)
		return
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ch := s.Broker.Subscribe(jobID)
	defer s.Broker.Unsubscribe(jobID, ch)

	writeEvent := func(evt Event) {
		b, _ := json.Marshal(evt.Data)
		fmt.Fprintf(w, "event: %s\n", evt.Type)
		fmt.Fprintf(w, "data: %s\n\n", string(b))
		flusher.Flush()
	}
	heartbeat := func() {
		fmt.Fprintf(w, "event: heartbeat\n")
		fmt.Fprintf(w, "data: {\"jobId\":%q,\"ts\":%q}\n\n", jobID, time.Now().UTC().Format(time.RFC3339))
		flusher.Flush()
	}
	heartbeat()

	// The broker has no replay. Re-reading after subscribing closes the gap
	// for jobs that went terminal before the stream was opened.
	if job, err := s.Store.GetSolveJob(r.Context(), tenant, jobID); err == nil {
		if evt, terminal := terminalEvent(job); terminal {
			writeEvent(evt)
			return
		}
	}

	notify := r.Context().Done()
	for {
		select {
		case <-notify:
			return
		case evt, open := <-ch:
			if !open {
				return
			}
			writeEvent(evt)
			if evt.Type == "job.completed" || evt.Type == "job.failed" {
				return
			}
		case <-time.After(15 * time.Second):
			heartbeat()
		}
	}
}

// StrategiesHandler handles GET /v1/strategies
func (s *Server) StrategiesHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	type strat struct {
		Name        string `json:"name"`
		Description string `json:"description"`
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": []strat{
		{Name: string(solver.ExactAllConstraints), Description: "full constraint enumeration; certified optimum on small instances"},
		{Name: string(solver.IterativeAddConstraints), Description: "cutting-plane loop adding violated constraints lazily"},
		{Name: string(solver.SweepClusterAndRoute), Description: "polar-angle clustering plus per-cluster routing heuristic"},
	}})
}

// SubscriptionsHandler handles POST/GET /v1/subscriptions
func (s *Server) SubscriptionsHandler(w http.ResponseWriter, r *http.Request) {
	p := s.getPrincipal(r)
	if !p.IsAdmin() {
		writeProblem(w, 403, "Forbidden", "admin required", r.URL.Path)
		return
	}
	switch r.Method {
	case http.MethodPost:
		var req model.SubscriptionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeProblem(w, http.StatusBadRequest, "Invalid JSON", err.Error(), r.URL.Path)
			return
		}
		if err := validateSubscriptionRequest(&req); err != nil {
			writeProblem(w, http.StatusBadRequest, "Invalid subscription", err.Error(), r.URL.Path)
			return
		}
		req.TenantID = p.Tenant
		sub, err := s.Store.CreateSubscription(r.Context(), req)
		if err != nil {
			writeProblem(w, http.StatusInternalServerError, "Create subscription failed", err.Error(), r.URL.Path)
			return
		}
		writeJSON(w, http.StatusCreated, sub)
	case http.MethodGet:
		cursor := r.URL.Query().Get("cursor")
		limit := 100
		if v := r.URL.Query().Get("limit"); v != "" {
			fmt.Sscanf(v, "%d", &limit)
		}
		items, next, err := s.Store.ListSubscriptions(r.Context(), p.Tenant, cursor, limit)
		if err != nil {
			writeProblem(w, 500, "List subscriptions failed", err.Error(), r.URL.Path)
			return
		}
		writeJSON(w, 200, map[string]any{"items": items, "nextCursor": next})
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// SubscriptionByIDHandler handles DELETE /v1/subscriptions/{id}
func (s *Server) SubscriptionByIDHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	p := s.getPrincipal(r)
	if !p.IsAdmin() {
		writeProblem(w, 403, "Forbidden", "admin required", r.URL.Path)
		return
	}
	id := strings.TrimPrefix(r.URL.Path, "/v1/subscriptions/")
	if err := s.Store.DeleteSubscription(r.Context(), p.Tenant, id); err != nil {
		writeProblem(w, statusFor(err), "Delete subscription failed", err.Error(), r.URL.Path)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Health
func (s *Server) HealthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, 200, map[string]string{"status": "ok"})
}

func (s *Server) ReadyHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 500*time.Millisecond)
	defer cancel()
	if err := s.Store.Ping(ctx); err != nil {
		writeProblem(w, http.StatusServiceUnavailable, "Not Ready", err.Error(), r.URL.Path)
		return
	}
	writeJSON(w, 200, map[string]string{"status": "ready"})
}

func statusFor(err error) int {
	if errors.Is(err, store.ErrNotFound) {
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}

func instanceFromSpec(spec model.InstanceIn) (*solver.Instance, error) {
	shops := make([]solver.Node, 0, len(spec.Shops))
	for _, sh := range spec.Shops {
		shops = append(shops, solver.Node{ID: sh.ID, X: sh.X, Y: sh.Y, Demand: sh.Demand})
	}
	depot := solver.Node{ID: "depot", X: spec.Depot.X, Y: spec.Depot.Y}
	return solver.NewInstance(depot, shops, spec.Capacity, spec.MaxRouteLen)
}
