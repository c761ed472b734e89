package session

import (
	"time"

	"github.com/dgrijalva/jwt-go"
)

// TokenExpiry reads the expiry claim out of a backend-issued JWT without
// verifying its signature (only the backend holds the signing key; the
// client just needs the lifetime for credential housekeeping).
func TokenExpiry(token string) (time.Time, bool) {
	var claims jwt.StandardClaims
	parser := &jwt.Parser{}
	if _, _, err := parser.ParseUnverified(token, &claims); err != nil {
		return time.Time{}, false
	}
	if claims.ExpiresAt == 0 {
		return time.Time{}, false
	}
	return time.Unix(claims.ExpiresAt, 0), true
}
