package handlers

import (
	"database/sql"
	"encoding/json"
	"net/http"

	"github.com/redis/go-redis/v9"
)

// HealthHandler reports service liveness and the state of its two
// backing stores. Used by container orchestration probes.
type HealthHandler struct {
	db     *sql.DB
	valkey *redis.Client
}

// NewHealthHandler creates the health check handler.
func NewHealthHandler(db *sql.DB, valkey *redis.Client) *HealthHandler {
	return &HealthHandler{db: db, valkey: valkey}
}

// Check answers 200 when both stores respond and 503 otherwise.
func (h *HealthHandler) Check(w http.ResponseWriter, r *http.Request) {
	status := http.StatusOK
	body := map[string]string{
		"status":   "ok",
		"database": "ok",
		"valkey":   "ok",
	}

	if err := h.db.PingContext(r.Context()); err != nil {
		status = http.StatusServiceUnavailable
		body["status"] = "degraded"
		body["database"] = "unreachable"
	}
	if err := h.valkey.Ping(r.Context()).Err(); err != nil {
		status = http.StatusServiceUnavailable
		body["status"] = "degraded"
		body["valkey"] = "unreachable"
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
