package session

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestSaveAndReload(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(dir)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}

	expires := time.Now().Add(time.Hour).UTC()
	if err := s.Save("tok_abc", expires, "u1", "read-financial-domain"); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	// Reopen from disk
	s2, err := Open(dir)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	if s2.Token() != "tok_abc" {
		t.Errorf("expected token to survive reload, got %q", s2.Token())
	}
	if s2.UserID() != "u1" {
		t.Errorf("expected user id u1, got %q", s2.UserID())
	}

	info := s2.Info()
	if !info.IsActive || info.Scope != "read-financial-domain" {
		t.Errorf("unexpected session info: %+v", info)
	}
	if info.Token != "" {
		t.Error("Info must not expose the raw token")
	}
}

func TestSessionFileEncryptedAtRest(t *testing.T) {
	dir := t.TempDir()
	s, _ := Open(dir)
	if err := s.Save("tok_secret_value", time.Now().Add(time.Hour), "u1", ""); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	raw, err := os.ReadFile(filepath.Join(dir, "session"))
	if err != nil {
		t.Fatalf("reading session file: %v", err)
	}
	if strings.Contains(string(raw), "tok_secret_value") {
		t.Error("session file must not contain the plaintext token")
	}
}

func TestExpiredSessionYieldsNoToken(t *testing.T) {
	dir := t.TempDir()
	s, _ := Open(dir)
	if err := s.Save("tok_old", time.Now().Add(-time.Minute), "u1", ""); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	if s.Token() != "" {
		t.Error("expired session must yield no bearer token")
	}
	if s.Info().IsActive {
		t.Error("expired session must not report active")
	}
	// The user id remains known; unauthenticated fetches still need it.
	if s.UserID() != "u1" {
		t.Errorf("user id should survive expiry, got %q", s.UserID())
	}
}

func TestClearForcesReauth(t *testing.T) {
	dir := t.TempDir()
	s, _ := Open(dir)
	s.Save("tok_abc", time.Now().Add(time.Hour), "u1", "") //nolint:errcheck

	s.Clear()
	if s.Token() != "" {
		t.Error("cleared session must yield no token")
	}

	// Cleared state survives reopen.
	s2, _ := Open(dir)
	if s2.Token() != "" {
		t.Error("cleared session must not reappear after reload")
	}
}

func TestCorruptSessionTreatedAsAbsent(t *testing.T) {
	dir := t.TempDir()
	s, _ := Open(dir)
	s.Save("tok_abc", time.Now().Add(time.Hour), "u1", "") //nolint:errcheck

	if err := os.WriteFile(filepath.Join(dir, "session"), []byte("garbage"), 0600); err != nil {
		t.Fatal(err)
	}

	s2, err := Open(dir)
	if err != nil {
		t.Fatalf("Open should tolerate a corrupt session file: %v", err)
	}
	if s2.Token() != "" {
		t.Error("corrupt session must behave as absent")
	}
}
