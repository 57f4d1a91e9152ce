package health

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/dmitrymomot/tailqueue/core/logger"
)

// DefaultCheckTimeout bounds a single readiness probe.
const DefaultCheckTimeout = 5 * time.Second

// Readiness verifies that every dependency check succeeds.
// Returns "READY" if all checks pass, 503 Service Unavailable if any fail.
func Readiness(log *slog.Logger, fn ...func(context.Context) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), DefaultCheckTimeout)
		defer cancel()

		for _, f := range fn {
			if err := f(ctx); err != nil {
				log.ErrorContext(ctx, "readiness check failed", logger.Error(err))
				writeText(w, http.StatusServiceUnavailable, "NOT READY")
				return
			}
		}

		writeText(w, http.StatusOK, "READY")
	}
}

// NewMux registers the probes under /health/live, /health/ready and /ping.
func NewMux(log *slog.Logger, fn ...func(context.Context) error) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health/live", Liveness)
	mux.HandleFunc("GET /health/ready", Readiness(log, fn...))
	mux.HandleFunc("GET /ping", NoContent)
	return mux
}
