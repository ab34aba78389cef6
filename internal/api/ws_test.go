package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"fleetroute/internal/model"
)

func TestSolveEventsWebSocket(t *testing.T) {
	s := newTestServer(t)
	job := model.SolveJob{
		ID:          "job_ws",
		TenantID:    "t_demo",
		InstanceID:  "inst_x",
		Strategy:    "SWEEP_CLUSTER_AND_ROUTE",
		Status:      model.JobQueued,
		SubmittedAt: time.Now().UTC(),
	}
	if err := s.Store.CreateSolveJob(context.Background(), job); err != nil {
		t.Fatalf("seed job: %v", err)
	}

	ts := httptest.NewServer(http.HandlerFunc(s.SolveByIDHandler))
	defer ts.Close()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/v1/solves/" + job.ID + "/events/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	// give the server side time to register with the broker
	time.Sleep(50 * time.Millisecond)
	s.Broker.Publish(job.ID, Event{Type: "job.running", Data: map[string]any{"jobId": job.ID}})
	s.Broker.Publish(job.ID, Event{Type: "job.completed", Data: map[string]any{"totalCost": 2.5}})

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var first Event
	if err := conn.ReadJSON(&first); err != nil {
		t.Fatalf("read first: %v", err)
	}
	if first.Type != "job.running" {
		t.Fatalf("first event: %s", first.Type)
	}
	var second Event
	if err := conn.ReadJSON(&second); err != nil {
		t.Fatalf("read second: %v", err)
	}
	if second.Type != "job.completed" {
		t.Fatalf("second event: %s", second.Type)
	}
	// server closes after the terminal event
	if _, _, err := conn.ReadMessage(); err == nil {
		t.Fatal("expected close after terminal event")
	}
}

func TestSolveEventsWebSocketAfterTerminal(t *testing.T) {
	s := newTestServer(t)
	job := model.SolveJob{
		ID:          "job_ws_done",
		TenantID:    "t_demo",
		InstanceID:  "inst_x",
		Strategy:    "SWEEP_CLUSTER_AND_ROUTE",
		Status:      model.JobFailed,
		SubmittedAt: time.Now().UTC(),
		Error:       "no feasible assignment",
	}
	if err := s.Store.CreateSolveJob(context.Background(), job); err != nil {
		t.Fatalf("seed job: %v", err)
	}

	ts := httptest.NewServer(http.HandlerFunc(s.SolveByIDHandler))
	defer ts.Close()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/v1/solves/" + job.ID + "/events/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	// the terminal outcome is replayed without any broker traffic
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var evt Event
	if err := conn.ReadJSON(&evt); err != nil {
		t.Fatalf("read replayed event: %v", err)
	}
	if evt.Type != "job.failed" {
		t.Fatalf("replayed event: %s", evt.Type)
	}
	if evt.Data["error"] != "no feasible assignment" {
		t.Fatalf("replayed error payload: %v", evt.Data)
	}
	if _, _, err := conn.ReadMessage(); err == nil {
		t.Fatal("expected close after replayed terminal event")
	}
}
