package middleware

import (
	"log/slog"
	"net/http"
	"strings"

	"relocation/internal/auth"
	"relocation/internal/httputil"
)

// TokenCookie is the cookie checked when no Authorization header is sent.
const TokenCookie = "token"

// AuthMiddleware requires a valid token on mutating requests. Safe methods
// pass through unauthenticated.
func AuthMiddleware(verifier auth.JWTVerifier, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodGet, http.MethodHead, http.MethodOptions:
				next.ServeHTTP(w, r)
				return
			}

			token := tokenFromRequest(r)
			if token == "" {
				httputil.RespondError(w, http.StatusUnauthorized, "Token is Missing")
				return
			}

			claims, err := verifier.VerifyToken(token)
			if err != nil {
				logger.Info("rejected token",
					"method", r.Method,
					"path", r.URL.Path,
					"error", err,
				)
				httputil.RespondError(w, http.StatusUnauthorized, "Token is invalid")
				return
			}

			next.ServeHTTP(w, httputil.WithSubject(r, claims.GetUserID()))
		})
	}
}

// tokenFromRequest reads a bearer token from the Authorization header, then
// from the token cookie.
func tokenFromRequest(r *http.Request) string {
	if header := r.Header.Get("Authorization"); header != "" {
		scheme, token, ok := strings.Cut(header, " ")
		if ok && strings.EqualFold(scheme, "Bearer") {
			return strings.TrimSpace(token)
		}
		return ""
	}
	if cookie, err := r.Cookie(TokenCookie); err == nil {
		return cookie.Value
	}
	return ""
}
