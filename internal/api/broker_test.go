package api

import (
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
)

func TestBrokerPublishSubscribe(t *testing.T) {
	b := NewBroker()
	jobID := "job_1"
	ch := b.Subscribe(jobID)

	evt := Event{Type: "job.progress", Data: map[string]any{"iteration": 3}}
	b.Publish(jobID, evt)

	select {
	case got := <-ch:
		if got.Type != evt.Type {
			t.Fatalf("got type %s, want %s", got.Type, evt.Type)
		}
		if got.Data["iteration"].(int) != 3 {
			t.Fatalf("bad payload: %+v", got.Data)
		}
	case <-time.After(200 * time.Millisecond):
		t.Fatal("timeout waiting for event")
	}

	b.Unsubscribe(jobID, ch)
	if _, ok := <-ch; ok {
		t.Fatal("channel should be closed after unsubscribe")
	}
	// publishing after the last unsubscribe must not panic
	b.Publish(jobID, evt)
}

func TestBrokerIsolatesJobs(t *testing.T) {
	b := NewBroker()
	chA := b.Subscribe("job_a")
	chB := b.Subscribe("job_b")
	defer b.Unsubscribe("job_a", chA)
	defer b.Unsubscribe("job_b", chB)

	b.Publish("job_a", Event{Type: "job.running"})
	select {
	case <-chA:
	case <-time.After(200 * time.Millisecond):
		t.Fatal("timeout waiting for event on job_a")
	}
	select {
	case evt := <-chB:
		t.Fatalf("job_b should not receive job_a events, got %+v", evt)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestRedisBrokerRoundTrip(t *testing.T) {
	mr := miniredis.RunT(t)

	b, err := NewRedisBroker("redis://" + mr.Addr())
	if err != nil {
		t.Fatalf("redis broker: %v", err)
	}
	ch := b.Subscribe("job_r")
	defer b.Unsubscribe("job_r", ch)

	b.Publish("job_r", Event{Type: "job.completed", Data: map[string]any{"totalCost": 4.2}})

	select {
	case got := <-ch:
		if got.Type != "job.completed" {
			t.Fatalf("got type %s", got.Type)
		}
		if got.Data["totalCost"].(float64) != 4.2 {
			t.Fatalf("bad payload: %+v", got.Data)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for redis event")
	}
}
