package models

import "github.com/golang-jwt/jwt/v5"

// TokenClaims are the claims accepted on mutating requests. Only the
// registered claims are checked; Email and Role are informational.
type TokenClaims struct {
	jwt.RegisteredClaims
	Email string `json:"email,omitempty"`
	Role  string `json:"role,omitempty"`
}

// GetUserID returns the subject claim.
func (c *TokenClaims) GetUserID() string {
	return c.Subject
}
