package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/quillchat/quill/internal/log"
)

// Pinger reports database liveness. *pgxpool.Pool satisfies it.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Health reports service liveness and readiness.
type Health struct {
	db      Pinger
	version string
	logger  log.Logger
}

// NewHealth creates the Health handler.
func NewHealth(db Pinger, version string, logger log.Logger) *Health {
	return &Health{db: db, version: version, logger: logger}
}

// Check responds 200 when the service and its database are reachable.
func (h *Health) Check(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := h.db.Ping(ctx); err != nil {
		h.logger.Warn("health check failed", "error", err)
		writeJSON(w, h.logger, http.StatusServiceUnavailable, map[string]string{
			"status": "degraded",
		})
		return
	}
	writeJSON(w, h.logger, http.StatusOK, map[string]string{
		"status":  "ok",
		"version": h.version,
	})
}
