package auth

import (
	"errors"
	"strings"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"
)

func TestKeyGate_Check(t *testing.T) {
	gate, err := NewKeyGate("s3cret", bcrypt.MinCost)
	if err != nil {
		t.Fatalf("NewKeyGate error: %v", err)
	}

	tests := []struct {
		candidate string
		want      bool
	}{
		{candidate: "s3cret", want: true},
		{candidate: "s3cre", want: false},
		{candidate: "S3CRET", want: false},
		{candidate: "", want: false},
	}
	for _, tt := range tests {
		if got := gate.Check(tt.candidate); got != tt.want {
			t.Fatalf("Check(%q) = %v, want %v", tt.candidate, got, tt.want)
		}
	}
}

func TestKeyGate_EmptyKeyRejectsEverything(t *testing.T) {
	gate, err := NewKeyGate("", bcrypt.MinCost)
	if err != nil {
		t.Fatalf("NewKeyGate error: %v", err)
	}
	if gate.Enabled() || gate.Check("") || gate.Check("anything") {
		t.Fatalf("empty gate must reject")
	}

	var nilGate *KeyGate
	if nilGate.Check("x") {
		t.Fatalf("nil gate must reject")
	}
}

func TestNewKeyGateFromHash(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("k"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("GenerateFromPassword error: %v", err)
	}
	gate, err := NewKeyGateFromHash(" " + string(hash) + "\n")
	if err != nil {
		t.Fatalf("NewKeyGateFromHash error: %v", err)
	}
	if !gate.Check("k") {
		t.Fatalf("Check(k) = false")
	}

	if _, err := NewKeyGateFromHash("plaintext"); err == nil {
		t.Fatalf("expected error for non-bcrypt hash")
	}
}

func TestBasicCredentials(t *testing.T) {
	creds := BasicCredentials{User: "admin", Pass: "pw"}
	if !creds.Check("admin", "pw") {
		t.Fatalf("valid credentials rejected")
	}
	if creds.Check("admin", "PW") || creds.Check("root", "pw") {
		t.Fatalf("invalid credentials accepted")
	}
	if (BasicCredentials{User: "admin"}).Check("admin", "") {
		t.Fatalf("credentials without password must be disabled")
	}
}

func TestSessions_IssueVerify(t *testing.T) {
	s, err := NewSessions(strings.Repeat("x", 32), 0)
	if err != nil {
		t.Fatalf("NewSessions error: %v", err)
	}
	if s.TTL() != DefaultSessionTTL {
		t.Fatalf("TTL = %v, want %v", s.TTL(), DefaultSessionTTL)
	}

	base := time.Date(2026, 1, 5, 10, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return base }

	token, expires, err := s.Issue("admin")
	if err != nil {
		t.Fatalf("Issue error: %v", err)
	}
	if !expires.Equal(base.Add(DefaultSessionTTL)) {
		t.Fatalf("expires = %v", expires)
	}

	sub, err := s.Verify(token)
	if err != nil || sub != "admin" {
		t.Fatalf("Verify = %q, %v", sub, err)
	}

	if _, err := s.Verify(token + "x"); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("tampered token error = %v, want ErrUnauthorized", err)
	}

	other, _ := NewSessions(strings.Repeat("y", 32), 0)
	if _, err := other.Verify(token); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("foreign secret error = %v, want ErrUnauthorized", err)
	}

	s.now = func() time.Time { return base.Add(DefaultSessionTTL + time.Minute) }
	if _, err := s.Verify(token); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expired token error = %v, want ErrUnauthorized", err)
	}
}

func TestNewSessions_ShortSecretDisables(t *testing.T) {
	if _, err := NewSessions("short", time.Hour); !errors.Is(err, ErrSessionsDisabled) {
		t.Fatalf("error = %v, want ErrSessionsDisabled", err)
	}
}

func TestAuthenticator_IsAdmin(t *testing.T) {
	gate, _ := NewKeyGate("key", bcrypt.MinCost)
	sessions, _ := NewSessions(strings.Repeat("z", 16), time.Hour)
	token, _, _ := sessions.Issue("admin")

	a := NewAuthenticator(gate, sessions)
	tests := []struct {
		name string
		cred Credential
		want bool
	}{
		{name: "key", cred: Credential{Key: "key"}, want: true},
		{name: "session", cred: Credential{Session: token}, want: true},
		{name: "bad key good session", cred: Credential{Key: "nope", Session: token}, want: true},
		{name: "bad both", cred: Credential{Key: "nope", Session: "garbage"}, want: false},
		{name: "none", cred: Credential{}, want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := a.IsAdmin(tt.cred); got != tt.want {
				t.Fatalf("IsAdmin = %v, want %v", got, tt.want)
			}
		})
	}

	keyOnly := NewAuthenticator(gate, nil)
	if keyOnly.IsAdmin(Credential{Session: token}) {
		t.Fatalf("session accepted without session support")
	}
}
