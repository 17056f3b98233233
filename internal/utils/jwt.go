package utils // package utils provides helpers for identity tokens and password hashing

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5" // JWT library for creating and verifying signed tokens
)

// Identity is the verified payload of an auth cookie.  It is everything a
// handler needs to authorize a request: who is calling and whether they
// are an administrator.
type Identity struct {
	UserID  uint64
	IsAdmin bool
}

var errInvalidToken = errors.New("invalid auth token")

// NewAuthToken builds and signs an HS256 JWT carrying the user's identity.
// The token is stored in an httpOnly cookie rather than returned as a
// bearer token.  Claims: subject (sub), is_admin, expiration (exp) and
// issued at (iat).
func NewAuthToken(secret string, userID uint64, isAdmin bool, ttlDays int) (string, time.Time, error) {
	exp := time.Now().UTC().Add(time.Duration(ttlDays) * 24 * time.Hour)
	claims := jwt.MapClaims{
		"sub":      userID,
		"is_admin": isAdmin,
		"exp":      exp.Unix(),
		"iat":      time.Now().UTC().Unix(),
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := t.SignedString([]byte(secret))
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, exp, nil
}

// ParseAuthToken verifies a cookie token and extracts the identity.  Any
// parse or signature failure is reported as a single invalid-token error;
// callers treat the request as unauthenticated, never as a server error.
func ParseAuthToken(secret, raw string) (Identity, error) {
	tok, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
		// only HMAC-signed tokens are ever issued
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errInvalidToken
		}
		return []byte(secret), nil
	})
	if err != nil || !tok.Valid {
		return Identity{}, errInvalidToken
	}
	claims, ok := tok.Claims.(jwt.MapClaims)
	if !ok {
		return Identity{}, errInvalidToken
	}
	sub, ok := claims["sub"].(float64) // JSON numbers decode as float64
	if !ok || sub <= 0 {
		return Identity{}, errInvalidToken
	}
	ident := Identity{UserID: uint64(sub)}
	if admin, ok := claims["is_admin"].(bool); ok {
		ident.IsAdmin = admin
	}
	return ident, nil
}
