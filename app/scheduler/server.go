package scheduler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/canopy-network/salesdw/pkg/utils"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// SetupServer sets up the HTTP server.
func (a *App) SetupServer() {
	// use <ip>:<port> to bind to a specific interface or :<port> to bind to all interfaces
	addr := utils.Env("ADDR", ":3002")
	a.Server = &http.Server{Addr: addr, Handler: a.Router(), ReadHeaderTimeout: 10 * time.Second}
}

// Router serves the health probes and the manual trigger:
//
//	POST /batches/{date}?source=<uri>
func (a *App) Router() *mux.Router {
	r := mux.NewRouter()

	r.Handle("/healthz", http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) })).Methods("GET")
	r.Handle("/readyz", http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		if a.Ready(req.Context()) {
			w.WriteHeader(http.StatusOK)
		} else {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
	})).Methods("GET")
	r.HandleFunc("/batches/{date}", a.handleTrigger).Methods("POST")

	return r
}

func (a *App) handleTrigger(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	batchDate, err := time.Parse(time.DateOnly, mux.Vars(r)["date"])
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": "date must be YYYY-MM-DD"})
		return
	}

	workflowID, runID, err := a.Trigger(r.Context(), batchDate, r.URL.Query().Get("source"))
	if err != nil {
		a.Logger.Error("failed to start load", zap.String("batch_date", batchDate.Format(time.DateOnly)), zap.Error(err))
		w.WriteHeader(http.StatusInternalServerError)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": "failed to start load"})
		return
	}

	w.WriteHeader(http.StatusAccepted)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"workflow_id": workflowID,
		"run_id":      runID,
	})
}
