package api

import (
	"context"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/andrapra-work/rag-system-api/internal/log"
)

const readinessTimeout = 2 * time.Second

// healthHandler serves liveness and readiness probes. Both endpoints
// sit outside the middleware stack so probes are never rate limited.
type healthHandler struct {
	pool        *pgxpool.Pool
	version     string
	environment string
	logger      log.Logger
}

// health reports process liveness.
func (h *healthHandler) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":      "ok",
		"version":     h.version,
		"environment": h.environment,
	}, h.logger)
}

// ready reports whether the database is reachable. Returns 503 when the
// pool is absent or the ping fails.
func (h *healthHandler) ready(w http.ResponseWriter, r *http.Request) {
	if h.pool == nil {
		writeError(w, http.StatusServiceUnavailable, "not_ready", "database pool not configured", h.logger)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
	defer cancel()

	if err := h.pool.Ping(ctx); err != nil {
		h.logger.Warn("readiness ping failed", "error", err)
		writeError(w, http.StatusServiceUnavailable, "not_ready", "database unreachable", h.logger)
		return
	}

	stats := h.pool.Stat()
	writeJSON(w, http.StatusOK, map[string]any{
		"status":            "ready",
		"pool_total_conns":  stats.TotalConns(),
		"pool_idle_conns":   stats.IdleConns(),
		"pool_in_use_conns": stats.AcquiredConns(),
	}, h.logger)
}
