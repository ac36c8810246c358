package shared

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
)

const tokenIssuer = "iwkbu-monitor"

// TokenClaims are the claims carried by API bearer tokens.
type TokenClaims struct {
	jwt.RegisteredClaims
}

// TokenIssuer signs and verifies HS256 bearer tokens for the JSON API.
type TokenIssuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewTokenIssuer constructs an issuer. A zero ttl defaults to 12 hours.
func NewTokenIssuer(secret string, ttl time.Duration) *TokenIssuer {
	if ttl <= 0 {
		ttl = 12 * time.Hour
	}
	return &TokenIssuer{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// WithNow overrides the clock for testing.
func (t *TokenIssuer) WithNow(fn func() time.Time) *TokenIssuer {
	if fn != nil {
		t.now = fn
	}
	return t
}

// Issue signs a token for username and returns it with its expiry.
func (t *TokenIssuer) Issue(username string) (string, time.Time, error) {
	if username == "" {
		return "", time.Time{}, errors.New("token: username required")
	}
	now := t.now().UTC()
	expires := now.Add(t.ttl)
	claims := TokenClaims{RegisteredClaims: jwt.RegisteredClaims{
		Issuer:    tokenIssuer,
		Subject:   username,
		ID:        uuid.NewString(),
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expires),
	}}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("token: sign: %w", err)
	}
	return signed, expires, nil
}

// Parse validates a token and returns the username it was issued to.
func (t *TokenIssuer) Parse(raw string) (string, error) {
	claims := &TokenClaims{}
	parsed, err := jwt.ParseWithClaims(raw, claims, func(tok *jwt.Token) (interface{}, error) {
		if _, ok := tok.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", tok.Header["alg"])
		}
		return t.secret, nil
	})
	if err != nil || !parsed.Valid {
		return "", fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}
	if claims.Issuer != tokenIssuer || claims.Subject == "" {
		return "", ErrTokenInvalid
	}
	if claims.ExpiresAt == nil || !claims.ExpiresAt.After(t.now()) {
		return "", fmt.Errorf("%w: expired", ErrTokenInvalid)
	}
	return claims.Subject, nil
}
