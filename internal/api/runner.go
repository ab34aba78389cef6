package api

import (
	"context"
	"errors"
	"log"
	"time"

	"fleetroute/internal/metrics"
	"fleetroute/internal/model"
	"fleetroute/internal/solver"
	"fleetroute/internal/webhooks"
)

type solveTask struct {
	job model.SolveJob
	req model.SolveRequest
	in  *solver.Instance
}

// Runner executes queued solve jobs on a fixed pool of workers. Progress is
// fanned out through the event broker; terminal states go to the store, the
// broker and the webhook publisher.
type Runner struct {
	srv   *Server
	tasks chan solveTask
}

func NewRunner(srv *Server, workers int) *Runner {
	if workers <= 0 {
		workers = 4
	}
	r := &Runner{srv: srv, tasks: make(chan solveTask, 64)}
	for i := 0; i < workers; i++ {
		go r.loop()
	}
	return r
}

// Submit queues the job. It returns false when the queue is full; the caller
// should surface backpressure instead of blocking the request.
func (r *Runner) Submit(job model.SolveJob, req model.SolveRequest, in *solver.Instance) bool {
	select {
	case r.tasks <- solveTask{job: job, req: req, in: in}:
		return true
	default:
		return false
	}
}

func (r *Runner) loop() {
	for t := range r.tasks {
		r.run(t)
	}
}

func (r *Runner) run(t solveTask) {
	ctx := context.Background()
	job := t.job

	now := time.Now().UTC()
	job.Status = model.JobRunning
	job.StartedAt = &now
	if err := r.srv.Store.UpdateSolveJob(ctx, job); err != nil {
		log.Printf("job %s: mark running: %v", job.ID, err)
	}
	r.srv.Broker.Publish(job.ID, Event{Type: "job.running", Data: map[string]any{
		"jobId": job.ID, "strategy": job.Strategy,
	}})

	metrics.JobsInFlight.Inc()
	start := time.Now()

	cfg := solver.Config{
		Strategy:        solver.Strategy(job.Strategy),
		TimeLimit:       time.Duration(t.req.TimeLimitMs) * time.Millisecond,
		GapTol:          t.req.GapTol,
		SweepExactLimit: t.req.SweepExactLimit,
		SweepSlack:      t.req.SweepSlack,
		Progress: func(ev solver.ProgressEvent) {
			r.srv.Broker.Publish(job.ID, Event{Type: "job.progress", Data: map[string]any{
				"phase":     ev.Phase,
				"iteration": ev.Iteration,
				"cutsAdded": ev.CutsAdded,
				"incumbent": ev.Incumbent,
			}})
		},
	}
	if cfg.TimeLimit <= 0 {
		cfg.TimeLimit = r.srv.Cfg.Solver.DefaultTimeLimit.Std()
	}
	if lim := r.srv.Cfg.Solver.MaxTimeLimit.Std(); lim > 0 && cfg.TimeLimit > lim {
		cfg.TimeLimit = lim
	}

	sol, err := solver.Solve(ctx, t.in, cfg)
	elapsed := time.Since(start)
	metrics.JobsInFlight.Dec()
	metrics.SolveDuration.WithLabelValues(job.Strategy).Observe(elapsed.Seconds())

	fin := time.Now().UTC()
	job.FinishedAt = &fin
	if err != nil {
		job.Status = model.JobFailed
		job.Error = err.Error()
		metrics.SolvesTotal.WithLabelValues(job.Strategy, outcomeFor(err)).Inc()
	} else {
		job.Status = model.JobCompleted
		job.Result = reportFromSolution(sol, elapsed)
		metrics.SolvesTotal.WithLabelValues(job.Strategy, "completed").Inc()
		metrics.SolveCuts.WithLabelValues(job.Strategy).Observe(float64(sol.Diag.CutsAdded))
	}
	if uerr := r.srv.Store.UpdateSolveJob(ctx, job); uerr != nil {
		log.Printf("job %s: mark %s: %v", job.ID, job.Status, uerr)
	}

	if evt, terminal := terminalEvent(job); terminal {
		r.srv.Broker.Publish(job.ID, evt)
	}
	if err != nil {
		r.srv.Pub.Emit(ctx, job.TenantID, webhooks.EventSolveFailed, job)
		return
	}
	r.srv.Pub.Emit(ctx, job.TenantID, webhooks.EventSolveCompleted, job)
}

// terminalEvent maps a terminal job state to its stream event. Event streams
// synthesize this when a subscriber arrives after the job already finished.
func terminalEvent(job model.SolveJob) (Event, bool) {
	switch job.Status {
	case model.JobCompleted:
		data := map[string]any{"jobId": job.ID}
		if job.Result != nil {
			data["totalCost"] = job.Result.TotalCost
			data["flag"] = job.Result.Flag
			data["routes"] = len(job.Result.Routes)
		}
		return Event{Type: "job.completed", Data: data}, true
	case model.JobFailed:
		return Event{Type: "job.failed", Data: map[string]any{"jobId": job.ID, "error": job.Error}}, true
	}
	return Event{}, false
}

func outcomeFor(err error) string {
	switch {
	case errors.Is(err, solver.ErrInfeasibleInstance):
		return "infeasible"
	case errors.Is(err, solver.ErrTimeLimit):
		return "time_limit"
	default:
		return "error"
	}
}

func reportFromSolution(sol *solver.Solution, elapsed time.Duration) *model.SolutionReport {
	rep := &model.SolutionReport{
		TotalCost:   sol.TotalCost,
		Flag:        string(sol.Flag),
		Gap:         sol.Gap,
		Iterations:  sol.Diag.Iterations,
		CutsAdded:   sol.Diag.CutsAdded,
		SearchNodes: sol.Diag.SearchNodes,
		ElapsedMs:   elapsed.Milliseconds(),
	}
	for _, rt := range sol.Routes {
		rep.Routes = append(rep.Routes, model.RouteOut{
			Nodes:    rt.Nodes,
			Distance: rt.Distance,
			Demand:   rt.Demand,
		})
	}
	return rep
}
