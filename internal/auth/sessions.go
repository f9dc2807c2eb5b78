package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	SessionCookieName = "admin_session"
	DefaultSessionTTL = 7 * 24 * time.Hour
	minSecretLen      = 16
	sessionIssuer     = "slotbook"
)

var ErrSessionsDisabled = errors.New("admin sessions disabled")

type sessionClaims struct {
	jwt.RegisteredClaims
}

// Sessions issues and verifies HS256 admin session tokens.
type Sessions struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewSessions returns ErrSessionsDisabled when the secret is shorter than 16 bytes.
func NewSessions(secret string, ttl time.Duration) (*Sessions, error) {
	if len(secret) < minSecretLen {
		return nil, ErrSessionsDisabled
	}
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &Sessions{secret: []byte(secret), ttl: ttl, now: time.Now}, nil
}

func (s *Sessions) TTL() time.Duration {
	return s.ttl
}

func (s *Sessions) Issue(subject string) (string, time.Time, error) {
	now := s.now()
	expires := now.Add(s.ttl)
	claims := sessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    sessionIssuer,
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign session: %w", err)
	}
	return token, expires, nil
}

// Verify returns the session subject.
func (s *Sessions) Verify(token string) (string, error) {
	if s == nil {
		return "", ErrSessionsDisabled
	}
	claims := &sessionClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(sessionIssuer),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil || !parsed.Valid {
		return "", ErrUnauthorized
	}
	return claims.Subject, nil
}
