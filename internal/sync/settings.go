package sync

import "sync"

// Settings holds the mutable knobs that gate sync attempts. Changing a
// setting never interrupts an in-flight sync; it affects the gating of
// the next attempt only.
type Settings struct {
	mu      sync.RWMutex
	enabled bool
	token   string
}

// NewSettings creates the shared sync settings.
func NewSettings(enabled bool, token string) *Settings {
	return &Settings{enabled: enabled, token: token}
}

// Enabled reports whether sync is administratively enabled.
func (s *Settings) Enabled() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.enabled
}

// SetEnabled toggles sync for subsequent attempts.
func (s *Settings) SetEnabled(enabled bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.enabled = enabled
}

// Token returns the current auth token.
func (s *Settings) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// SetToken replaces the auth token for subsequent attempts.
func (s *Settings) SetToken(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = token
}

// Authenticated reports whether a token is present at all. Token
// validity is the prober's call.
func (s *Settings) Authenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token != ""
}
