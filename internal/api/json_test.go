package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestWriteProblem(t *testing.T) {
	rr := httptest.NewRecorder()
	writeProblem(rr, http.StatusBadRequest, "Invalid solve request", "strategy is required", "/v1/solves")

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status: %d", rr.Code)
	}
	if ct := rr.Header().Get("Content-Type"); ct != "application/problem+json" {
		t.Fatalf("content type: %s", ct)
	}
	var p Problem
	if err := json.Unmarshal(rr.Body.Bytes(), &p); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if p.Type != problemBase+"invalid-solve-request" {
		t.Fatalf("type: %s", p.Type)
	}
	if p.Title != "Invalid solve request" || p.Status != 400 || p.Instance != "/v1/solves" {
		t.Fatalf("fields: %+v", p)
	}
}
