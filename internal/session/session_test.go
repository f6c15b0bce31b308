package session

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/taskbounty/bountyctl/internal/model"
)

// fakeJWT builds a structurally valid, unsigned token carrying the given
// expiry. Only the claims are read; the signature is never checked.
func fakeJWT(t *testing.T, exp time.Time) string {
	t.Helper()
	enc := func(v any) string {
		data, err := json.Marshal(v)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		return base64.RawURLEncoding.EncodeToString(data)
	}
	header := enc(map[string]string{"alg": "HS256", "typ": "JWT"})
	claims := enc(map[string]any{"sub": "u1", "exp": exp.Unix()})
	return fmt.Sprintf("%s.%s.%s", header, claims, base64.RawURLEncoding.EncodeToString([]byte("sig")))
}

func testProfile() model.Profile {
	return model.Profile{UserID: "u1", Username: "alice", Email: "a@example.com", CountryCode: "US"}
}

func TestLoginPersistsAcrossLoads(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	exp := time.Now().Add(time.Hour).Truncate(time.Second)

	s := Load(path)
	if s.Authenticated() {
		t.Fatalf("empty session should not be authenticated")
	}
	if err := s.Login(testProfile(), fakeJWT(t, exp)); err != nil {
		t.Fatalf("login: %v", err)
	}

	reloaded := Load(path)
	if !reloaded.Authenticated() {
		t.Fatalf("reloaded session should be authenticated")
	}
	if reloaded.Profile().Username != "alice" {
		t.Fatalf("unexpected profile: %+v", reloaded.Profile())
	}
	if got := reloaded.ExpiresAt().Unix(); got != exp.Unix() {
		t.Fatalf("expected expiry %d, got %d", exp.Unix(), got)
	}
}

func TestExpiredTokenIsNotAuthenticated(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	s := Load(path)
	if err := s.Login(testProfile(), fakeJWT(t, time.Now().Add(-time.Hour))); err != nil {
		t.Fatalf("login: %v", err)
	}
	if s.Authenticated() {
		t.Fatalf("expired token should not count as authenticated")
	}
}

func TestUndecodableTokenAssumedLive(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	s := Load(path)
	if err := s.Login(testProfile(), "not-a-jwt"); err != nil {
		t.Fatalf("login: %v", err)
	}
	if !s.Authenticated() {
		t.Fatalf("token without readable expiry should be assumed live")
	}
	if !s.ExpiresAt().IsZero() {
		t.Fatalf("expected zero expiry for undecodable token")
	}
}

func TestLogoutClearsStateAndFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	s := Load(path)
	if err := s.Login(testProfile(), fakeJWT(t, time.Now().Add(time.Hour))); err != nil {
		t.Fatalf("login: %v", err)
	}

	if err := s.Logout(); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if s.Authenticated() || s.Token() != "" {
		t.Fatalf("logout should clear the credential")
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatalf("logout should remove the session file")
	}

	// Logout of an already-empty session is fine.
	if err := s.Logout(); err != nil {
		t.Fatalf("second logout: %v", err)
	}
}

func TestCorruptSessionFileYieldsEmptySession(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	if err := os.WriteFile(path, []byte("{garbage"), 0600); err != nil {
		t.Fatalf("write: %v", err)
	}

	s := Load(path)
	if s.Authenticated() || s.Token() != "" {
		t.Fatalf("corrupt file should load as an empty session")
	}
}

func TestSetProfilePersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	s := Load(path)
	if err := s.Login(testProfile(), fakeJWT(t, time.Now().Add(time.Hour))); err != nil {
		t.Fatalf("login: %v", err)
	}

	updated := testProfile()
	updated.Username = "alice2"
	if err := s.SetProfile(updated); err != nil {
		t.Fatalf("set profile: %v", err)
	}

	if got := Load(path).Profile().Username; got != "alice2" {
		t.Fatalf("expected persisted username alice2, got %s", got)
	}
}
