package api

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

var wsUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// the API is token-authenticated, not cookie-authenticated
	CheckOrigin: func(r *http.Request) bool { return true },
}

// streamWS pushes solve job events over a WebSocket. The connection closes
// after a terminal event or when the client goes away.
func (s *Server) streamWS(w http.ResponseWriter, r *http.Request, tenant, jobID string) {
	conn, err := wsUpgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	ch := s.Broker.Subscribe(jobID)
	defer s.Broker.Unsubscribe(jobID, ch)

	closeNormal := func() {
		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "done")
		_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
	}

	// Jobs that finished before this subscriber arrived get their terminal
	// event synthesized; the broker itself does not replay.
	if job, err := s.Store.GetSolveJob(r.Context(), tenant, jobID); err == nil {
		if evt, terminal := terminalEvent(job); terminal {
			conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
			_ = conn.WriteJSON(evt)
			closeNormal()
			return
		}
	}

	// drain client frames so pings and close frames are processed
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ping := time.NewTicker(15 * time.Second)
	defer ping.Stop()

	for {
		select {
		case <-done:
			return
		case evt, open := <-ch:
			if !open {
				return
			}
			conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
			if err := conn.WriteJSON(evt); err != nil {
				return
			}
			if evt.Type == "job.completed" || evt.Type == "job.failed" {
				closeNormal()
				return
			}
		case <-ping.C:
			conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
