package store

import (
	"encoding/hex"
	"testing"
)

func TestComputeDedupKeyFromID(t *testing.T) {
	body := []byte(`{"id":"evt_123","type":"solve.completed"}`)
	if got := computeDedupKey(body); got != "evt_123" {
		t.Fatalf("want evt_123, got %s", got)
	}
}

func TestComputeDedupKeyFromHash(t *testing.T) {
	body := []byte(`{"notId":"x"}`)
	got := computeDedupKey(body)
	// hex-encoded first 8 bytes -> 16 hex chars
	b, err := hex.DecodeString(got)
	if err != nil {
		t.Fatalf("invalid hex: %v", err)
	}
	if len(b) != 8 {
		t.Fatalf("expected 8 bytes, got %d", len(b))
	}
}

func TestParseTextArray(t *testing.T) {
	if v := parseTextArray([]byte(`{}`)); v != nil {
		t.Fatalf("empty array -> nil expected, got %v", v)
	}
	got := parseTextArray([]byte(`{solve.completed,solve.failed}`))
	if len(got) != 2 || got[0] != "solve.completed" || got[1] != "solve.failed" {
		t.Fatalf("bad parse: %v", got)
	}
	if v := parseTextArray([]byte(`not-an-array`)); v != nil {
		t.Fatalf("garbage -> nil expected, got %v", v)
	}
}
