package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"relocation/internal/domain"
	"relocation/internal/httputil"
)

// handleError converts domain errors to envelope responses
func handleError(w http.ResponseWriter, r *http.Request, err error, logger *slog.Logger) {
	var httpErr domain.HTTPError

	switch {
	case errors.As(err, &httpErr):
		httputil.RespondError(w, httpErr.StatusCode(), httpErr.Error())
	case errors.Is(err, domain.ErrValidation):
		httputil.RespondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrNotFound):
		httputil.RespondError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrUnauthorized):
		httputil.RespondError(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, domain.ErrForbidden):
		httputil.RespondError(w, http.StatusForbidden, err.Error())
	default:
		logger.Error("request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"error", err,
		)
		httputil.RespondError(w, http.StatusInternalServerError, "Internal server error")
	}
}
