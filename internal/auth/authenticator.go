package auth

// Credential is whatever the caller presented: a raw admin key, a session token, or both.
type Credential struct {
	Key     string
	Session string
}

// Authenticator accepts a credential when either the key matches the gate or the session verifies.
type Authenticator struct {
	gate     *KeyGate
	sessions *Sessions
}

// NewAuthenticator tolerates nil parts; a missing part never grants access.
func NewAuthenticator(gate *KeyGate, sessions *Sessions) *Authenticator {
	return &Authenticator{gate: gate, sessions: sessions}
}

func (a *Authenticator) IsAdmin(c Credential) bool {
	if a == nil {
		return false
	}
	if c.Key != "" && a.gate.Check(c.Key) {
		return true
	}
	if c.Session != "" && a.sessions != nil {
		if _, err := a.sessions.Verify(c.Session); err == nil {
			return true
		}
	}
	return false
}
