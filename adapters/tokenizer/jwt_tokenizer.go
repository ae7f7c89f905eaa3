package tokenizer

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/layer-3/herald/ports"
)

// JWTInspector implements the TokenInspector interface for JWT access tokens
type JWTInspector struct {
	parser *jwt.Parser
}

// NewJWTInspector creates a new JWT inspector
func NewJWTInspector() ports.TokenInspector {
	return &JWTInspector{parser: jwt.NewParser()}
}

// AccessExpiry returns the exp claim of token. The signature is not checked:
// the service is the only party that validates its own tokens.
func (j *JWTInspector) AccessExpiry(token string) (time.Time, bool) {
	var claims jwt.RegisteredClaims
	if _, _, err := j.parser.ParseUnverified(token, &claims); err != nil {
		return time.Time{}, false
	}
	if claims.ExpiresAt == nil {
		return time.Time{}, false
	}
	return claims.ExpiresAt.Time, true
}
