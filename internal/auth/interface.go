package auth

import "relocation/internal/domain/models"

// JWTVerifier validates bearer tokens presented on mutating requests.
type JWTVerifier interface {
	// VerifyToken validates a token string and returns its claims.
	// Returns domain.ErrUnauthorized if the token is invalid or expired.
	VerifyToken(tokenString string) (*models.TokenClaims, error)

	// Close releases any resources held by the verifier.
	Close() error
}
