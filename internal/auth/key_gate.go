package auth

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

var ErrUnauthorized = errors.New("unauthorized")

// KeyGate checks the shared admin key against a bcrypt hash. The plaintext key never stays in memory.
type KeyGate struct {
	hash []byte
}

// NewKeyGate hashes key with the given bcrypt cost. An empty key yields a gate that rejects everything.
func NewKeyGate(key string, cost int) (*KeyGate, error) {
	if key == "" {
		return &KeyGate{}, nil
	}
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(key), cost)
	if err != nil {
		return nil, fmt.Errorf("hash admin key: %w", err)
	}
	return &KeyGate{hash: hash}, nil
}

// NewKeyGateFromHash uses a precomputed bcrypt hash.
func NewKeyGateFromHash(hash string) (*KeyGate, error) {
	hash = strings.TrimSpace(hash)
	if hash == "" {
		return &KeyGate{}, nil
	}
	if _, err := bcrypt.Cost([]byte(hash)); err != nil {
		return nil, fmt.Errorf("invalid admin key hash: %w", err)
	}
	return &KeyGate{hash: []byte(hash)}, nil
}

func (g *KeyGate) Enabled() bool {
	return g != nil && len(g.hash) > 0
}

func (g *KeyGate) Check(candidate string) bool {
	if !g.Enabled() || candidate == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword(g.hash, []byte(candidate)) == nil
}

// BasicCredentials guards the session login endpoint.
type BasicCredentials struct {
	User string
	Pass string
}

func (b BasicCredentials) Enabled() bool {
	return b.User != "" && b.Pass != ""
}

func (b BasicCredentials) Check(user, pass string) bool {
	if !b.Enabled() {
		return false
	}
	userOK := subtle.ConstantTimeCompare([]byte(user), []byte(b.User)) == 1
	passOK := subtle.ConstantTimeCompare([]byte(pass), []byte(b.Pass)) == 1
	return userOK && passOK
}
