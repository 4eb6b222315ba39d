package main

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/rickgao/gate-console/internal/dashboard"
	"github.com/rickgao/gate-console/internal/journal"
	"github.com/rickgao/gate-console/internal/realtime"
	"github.com/rickgao/gate-console/internal/version"
)

// realtimeStatus is the part of the realtime client the health routes read.
type realtimeStatus interface {
	IsConnected() bool
	Stats() realtime.Stats
	Ping() error
}

type healthDeps struct {
	realtime  realtimeStatus
	dashboard *dashboard.Adapter
	journal   *journal.Recorder // nil when disabled
	active    func() bool       // whether the session wants a connection
	logger    *slog.Logger
}

// newHealthRouter creates the HTTP handler for health checks and debugging.
func newHealthRouter(d healthDeps) http.Handler {
	r := mux.NewRouter()

	r.HandleFunc("/health", func(w http.ResponseWriter, req *http.Request) {
		stats := d.realtime.Stats()

		health := struct {
			Status     string         `json:"status"`
			Version    string         `json:"version"`
			Components map[string]any `json:"components"`
		}{
			Status:     "healthy",
			Version:    version.Version,
			Components: make(map[string]any),
		}

		health.Components["realtime"] = map[string]any{
			"state":              stats.State.String(),
			"connected":          d.realtime.IsConnected(),
			"reconnect_attempts": stats.ReconnectAttempts,
		}
		if d.active() && !d.realtime.IsConnected() {
			health.Status = "degraded"
		}
		if stats.State == realtime.StateDisconnected && d.active() && stats.Dials > 0 {
			health.Status = "unhealthy"
		}

		if d.journal != nil {
			js := d.journal.Stats()
			health.Components["journal"] = map[string]any{
				"inserts": js.Inserts,
				"dropped": js.Dropped,
				"errors":  js.Errors,
			}
		}

		w.Header().Set("Content-Type", "application/json")
		if health.Status == "unhealthy" {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		json.NewEncoder(w).Encode(health)
	}).Methods(http.MethodGet)

	debug := r.PathPrefix("/debug").Subrouter()

	debug.HandleFunc("/realtime", func(w http.ResponseWriter, req *http.Request) {
		writeJSON(w, d.realtime.Stats())
	}).Methods(http.MethodGet)

	debug.HandleFunc("/dashboard", func(w http.ResponseWriter, req *http.Request) {
		writeJSON(w, d.dashboard.Snapshot())
	}).Methods(http.MethodGet)

	debug.HandleFunc("/users/{telegram_id:[0-9]+}", func(w http.ResponseWriter, req *http.Request) {
		id, err := strconv.ParseInt(mux.Vars(req)["telegram_id"], 10, 64)
		if err != nil {
			http.Error(w, "invalid telegram id", http.StatusBadRequest)
			return
		}
		writeJSON(w, map[string]any{
			"telegram_id": id,
			"connected":   d.dashboard.IsUserConnected(id),
		})
	}).Methods(http.MethodGet)

	debug.HandleFunc("/ping", func(w http.ResponseWriter, req *http.Request) {
		if err := d.realtime.Ping(); err != nil {
			d.logger.Warn("debug ping failed", "error", err)
			http.Error(w, err.Error(), http.StatusConflict)
			return
		}
		w.WriteHeader(http.StatusAccepted)
	}).Methods(http.MethodPost)

	return r
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}
