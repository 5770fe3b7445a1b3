package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"relocation/internal/config"
	"relocation/internal/domain"
	"relocation/internal/domain/models"

	"github.com/golang-jwt/jwt/v5"
)

// HMACVerifier implements JWTVerifier for HS256 tokens signed with a shared
// secret.
type HMACVerifier struct {
	secret []byte
	logger *slog.Logger
}

// NewHMACVerifier creates a verifier for tokens signed with secret.
func NewHMACVerifier(secret string, logger *slog.Logger) (*HMACVerifier, error) {
	if secret == "" {
		return nil, errors.New("JWT secret cannot be empty")
	}
	logger.Info("JWT verifier initialized", "mode", "hs256")
	return &HMACVerifier{secret: []byte(secret), logger: logger}, nil
}

// VerifyToken validates an HS256 token. Tokens without exp are accepted.
func (v *HMACVerifier) VerifyToken(tokenString string) (*models.TokenClaims, error) {
	claims := &models.TokenClaims{}
	_, err := jwt.ParseWithClaims(tokenString, claims,
		func(*jwt.Token) (any, error) { return v.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
	)
	if err != nil {
		v.logger.Debug("token rejected", "error", err)
		return nil, fmt.Errorf("%w: %v", domain.ErrUnauthorized, err)
	}
	return claims, nil
}

// Close is a no-op.
func (v *HMACVerifier) Close() error { return nil }

// Sign mints an HS256 token for subject valid for ttl. Used by the seed
// command to print an operator token.
func (v *HMACVerifier) Sign(subject string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := models.TokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Role: "operator",
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(v.secret)
}

// NewVerifier picks the JWKS verifier when a key set URL is configured and
// the shared secret verifier otherwise.
func NewVerifier(ctx context.Context, cfg *config.Config, logger *slog.Logger) (JWTVerifier, error) {
	if cfg.JWKSURL != "" {
		return NewJWKSVerifier(ctx, cfg.JWKSURL, logger)
	}
	return NewHMACVerifier(cfg.JWTSecret, logger)
}
