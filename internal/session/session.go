// Package session holds the authenticated user's identity and jwt
// credential. The session is an explicit object handed to the API client
// rather than process-global state, and it persists across CLI
// invocations as a JSON file under the data dir.
package session

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/taskbounty/bountyctl/internal/model"
)

var ErrNotAuthenticated = errors.New("not authenticated - run 'bountyctl login'")

type Session struct {
	mu   sync.Mutex
	path string
	data state
}

type state struct {
	Profile   model.Profile `json:"profile"`
	Token     string        `json:"token"`
	ExpiresAt time.Time     `json:"token_expires,omitzero"`
}

// Load reads the persisted session, if any. A missing or unreadable file
// yields an empty (unauthenticated) session, never an error.
func Load(path string) *Session {
	s := &Session{path: path}
	data, err := os.ReadFile(path)
	if err != nil {
		return s
	}
	if err := json.Unmarshal(data, &s.data); err != nil {
		s.data = state{}
	}
	return s
}

// Login adopts the profile and jwt credential from an auth response and
// persists them. The token's expiry is read from its payload; the client
// holds no key material, so the claims are decoded without verification
// and trusted only for staleness reporting.
func (s *Session) Login(profile model.Profile, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data = state{Profile: profile, Token: token, ExpiresAt: tokenExpiry(token)}
	return s.save()
}

// Logout clears the session and removes the persisted file.
func (s *Session) Logout() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data = state{}
	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

func (s *Session) Token() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data.Token
}

func (s *Session) Profile() model.Profile {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data.Profile
}

// SetProfile updates the stored profile after a profile edit succeeds.
func (s *Session) SetProfile(profile model.Profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.Profile = profile
	return s.save()
}

// Authenticated reports whether a credential is present and not known to
// be expired. Tokens without a decodable expiry are assumed live; the
// server is the authority either way.
func (s *Session) Authenticated() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.data.Token == "" {
		return false
	}
	return s.data.ExpiresAt.IsZero() || time.Now().Before(s.data.ExpiresAt)
}

// ExpiresAt returns the credential expiry, zero if unknown.
func (s *Session) ExpiresAt() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data.ExpiresAt
}

func (s *Session) save() error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0700); err != nil {
		return err
	}
	data, err := json.MarshalIndent(s.data, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(s.path, data, 0600)
}

func tokenExpiry(token string) time.Time {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return time.Time{}
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}
	}
	return exp.Time
}
