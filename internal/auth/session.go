package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// SessionCookie is the name of the browser session cookie.
const SessionCookie = "quill_session"

const minSecretLen = 32

var (
	ErrWeakSecret     = errors.New("auth: session secret must be at least 32 bytes")
	ErrInvalidSession = errors.New("auth: invalid session token")
)

// Sessions issues and verifies signed session tokens. The token carries
// only the user's subject ID; everything else lives in the store.
type Sessions struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewSessions creates a session signer with the given HMAC secret and
// token lifetime.
func NewSessions(secret []byte, ttl time.Duration) (*Sessions, error) {
	if len(secret) < minSecretLen {
		return nil, ErrWeakSecret
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Sessions{secret: secret, ttl: ttl, now: time.Now}, nil
}

// Issue returns a signed session token for the given user.
func (s *Sessions) Issue(userID string) (string, error) {
	now := s.now()
	claims := jwt.RegisteredClaims{
		Subject:   userID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("signing session token: %w", err)
	}
	return signed, nil
}

// Verify parses a session token and returns the user ID it was issued
// for. Expired or tampered tokens return ErrInvalidSession.
func (s *Sessions) Verify(tokenString string) (string, error) {
	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims,
		func(t *jwt.Token) (any, error) { return s.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(func() time.Time { return s.now() }),
	)
	if err != nil || !token.Valid || claims.Subject == "" {
		return "", ErrInvalidSession
	}
	return claims.Subject, nil
}

// TTL reports the configured token lifetime, for cookie expiry.
func (s *Sessions) TTL() time.Duration {
	return s.ttl
}
