package handler

import (
	"context"
	"net/http"
	"time"

	"relocation/internal/httputil"
)

// Pinger is satisfied by *pgxpool.Pool
type Pinger interface {
	Ping(ctx context.Context) error
}

// Health reports whether the database answers
// GET /health
func Health(db Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := db.Ping(ctx); err != nil {
			httputil.RespondError(w, http.StatusServiceUnavailable, "database unavailable")
			return
		}
		httputil.RespondOK(w, http.StatusOK, "ok", nil)
	}
}
