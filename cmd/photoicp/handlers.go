package main

import (
	"encoding/json"
	"log"
	"net/http"
	"time"
)

// healthStatus is the /health response shape: the controller's current
// outer-loop state, iteration count and last-seen delta/global transform.
type healthStatus struct {
	Status      string    `json:"status"`
	Timestamp   time.Time `json:"timestamp"`
	State       string    `json:"state"`
	Iterations  int       `json:"iterations"`
	Degenerate  bool      `json:"degenerate"`
	Angle       float64   `json:"lastAngleDeltaRad"`
	Translation float64   `json:"lastTranslationDeltaMm"`
	Scale       float64   `json:"globalScale"`
}

// newHTTPServer builds the status mux for a's registration run.
func newHTTPServer(a *App) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		log.Printf("[HTTP] /health request from %s", r.RemoteAddr)
		w.Header().Set("Content-Type", "application/json")

		a.mu.Lock()
		delta, degenerate := a.lastDelta, a.degenerate
		a.mu.Unlock()

		status := healthStatus{
			Status:      "ok",
			Timestamp:   time.Now(),
			State:       a.Controller.State().String(),
			Iterations:  a.Controller.Iterations(),
			Degenerate:  degenerate,
			Angle:       delta.Q.AngleDelta(),
			Translation: delta.T.Norm(),
			Scale:       a.Controller.GlobalTransform().S,
		}
		if err := json.NewEncoder(w).Encode(status); err != nil {
			log.Printf("error encoding health status: %v", err)
		}
	})

	return mux
}
