// Package main runs a demo WebSocket client for solve job events.
package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/gorilla/websocket"
)

func post(base, path string, body []byte, out any) error {
	req, _ := http.NewRequest(http.MethodPost, base+path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Tenant-Id", "t_demo")
	req.Header.Set("X-Role", "admin")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("%s: status %d", path, resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func main() {
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	base := fmt.Sprintf("http://localhost:%s", port)

	// Create a tiny instance
	instBody := []byte(`{
		"name": "demo",
		"depot": {"x": 0, "y": 0},
		"shops": [
			{"id": "s1", "x": 1, "y": 0, "demand": 1},
			{"id": "s2", "x": 0, "y": 1, "demand": 1},
			{"id": "s3", "x": -1, "y": 0, "demand": 1}
		],
		"capacity": 2
	}`)
	var inst struct {
		ID string `json:"id"`
	}
	if err := post(base, "/v1/instances", instBody, &inst); err != nil {
		log.Fatal(err)
	}
	log.Printf("Instance ID: %s", inst.ID)

	// Submit a solve
	solveBody := []byte(fmt.Sprintf(`{"instanceId":%q,"strategy":"ITERATIVE_ADD_CONSTR"}`, inst.ID))
	var job struct {
		ID string `json:"id"`
	}
	if err := post(base, "/v1/solves", solveBody, &job); err != nil {
		log.Fatal(err)
	}
	log.Printf("Job ID: %s", job.ID)

	// Connect WS for job events
	u := url.URL{Scheme: "ws", Host: "localhost:" + port, Path: "/v1/solves/" + job.ID + "/events/ws"}
	hdr := http.Header{}
	hdr.Set("X-Tenant-Id", "t_demo")
	hdr.Set("X-Role", "admin")
	c, _, err := websocket.DefaultDialer.Dial(u.String(), hdr)
	if err != nil {
		log.Fatal("dial:", err)
	}
	defer func() { _ = c.Close() }()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			var m struct {
				Type string         `json:"type"`
				Data map[string]any `json:"data"`
			}
			if err := c.ReadJSON(&m); err != nil {
				log.Printf("read: %v", err)
				return
			}
			b, _ := json.Marshal(m.Data)
			log.Printf("WS <- %s: %s", m.Type, string(b))
			if m.Type == "job.completed" || m.Type == "job.failed" {
				return
			}
		}
	}()

	select {
	case <-done:
	case <-time.After(30 * time.Second):
		log.Printf("timed out waiting for terminal event")
	}
}
