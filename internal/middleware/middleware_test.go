package middleware

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"relocation/internal/domain"
	"relocation/internal/domain/models"
	"relocation/internal/httputil"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

// stubVerifier accepts exactly one token.
type stubVerifier struct{ valid string }

func (s stubVerifier) VerifyToken(token string) (*models.TokenClaims, error) {
	if token != s.valid {
		return nil, domain.ErrUnauthorized
	}
	claims := &models.TokenClaims{}
	claims.Subject = "ops"
	return claims, nil
}

func (stubVerifier) Close() error { return nil }

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) httputil.Envelope {
	t.Helper()
	var env httputil.Envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	return env
}

func TestAuthMiddleware(t *testing.T) {
	var gotSubject string
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotSubject = httputil.GetSubject(r)
		w.WriteHeader(http.StatusNoContent)
	})
	h := AuthMiddleware(stubVerifier{valid: "good"}, discard)(next)

	tests := []struct {
		name        string
		method      string
		header      string
		cookie      string
		wantStatus  int
		wantMessage string
		wantSubject string
	}{
		{name: "reads are public", method: http.MethodGet, wantStatus: http.StatusNoContent},
		{name: "missing token", method: http.MethodPut, wantStatus: http.StatusUnauthorized, wantMessage: "Token is Missing"},
		{name: "bearer header", method: http.MethodPut, header: "Bearer good", wantStatus: http.StatusNoContent, wantSubject: "ops"},
		{name: "lowercase scheme", method: http.MethodDelete, header: "bearer good", wantStatus: http.StatusNoContent, wantSubject: "ops"},
		{name: "cookie", method: http.MethodPost, cookie: "good", wantStatus: http.StatusNoContent, wantSubject: "ops"},
		{name: "bad token", method: http.MethodPost, header: "Bearer bad", wantStatus: http.StatusUnauthorized, wantMessage: "Token is invalid"},
		{name: "basic scheme", method: http.MethodPost, header: "Basic good", wantStatus: http.StatusUnauthorized, wantMessage: "Token is Missing"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gotSubject = ""
			req := httptest.NewRequest(tt.method, "/stages/x", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			if tt.cookie != "" {
				req.AddCookie(&http.Cookie{Name: TokenCookie, Value: tt.cookie})
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, tt.wantSubject, gotSubject)
			if tt.wantMessage != "" {
				env := decodeEnvelope(t, rec)
				assert.True(t, env.Error)
				assert.Equal(t, tt.wantMessage, env.Message)
			}
		})
	}
}

func TestRecovery(t *testing.T) {
	h := Recovery(discard)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic(errors.New("boom"))
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.True(t, decodeEnvelope(t, rec).Error)
}

func TestRecoveryReraisesAbort(t *testing.T) {
	h := Recovery(discard)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic(http.ErrAbortHandler)
	}))
	assert.PanicsWithValue(t, http.ErrAbortHandler, func() {
		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	})
}

func TestRequestLoggerPassesStatus(t *testing.T) {
	h := RequestLogger(discard)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusTeapot, rec.Code)
}
