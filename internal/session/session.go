// Package session manages the locally persisted session state: the
// bearer token, its expiry, and the acting user id. The session file is
// encrypted at rest; the machine key lives next to it with 0600 perms.
package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/org/consentd/internal/crypto"
	"github.com/org/consentd/pkg/models"
	"github.com/rs/zerolog/log"
)

const keyContext = "consentd/session"

// ErrNoSession is returned when no session has been stored.
var ErrNoSession = errors.New("no session")

type persisted struct {
	SessionToken        string    `json:"session_token"`
	SessionTokenExpires time.Time `json:"session_token_expires"`
	UserID              string    `json:"user_id"`
	Scope               string    `json:"scope"`
}

// Store reads and writes the encrypted session file.
type Store struct {
	mu   sync.Mutex
	dir  string
	data *persisted
}

// Open loads the session store rooted at dir, creating the directory and
// machine key on first use. A corrupt or undecryptable session file is
// treated as absent.
func Open(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("creating session dir: %w", err)
	}
	s := &Store{dir: dir}
	if err := s.load(); err != nil && !errors.Is(err, ErrNoSession) {
		log.Warn().Err(err).Msg("discarding unreadable session file")
	}
	return s, nil
}

func (s *Store) sessionPath() string { return filepath.Join(s.dir, "session") }
func (s *Store) keyPath() string     { return filepath.Join(s.dir, "machine.key") }

func (s *Store) machineKey() ([]byte, error) {
	if key, err := os.ReadFile(s.keyPath()); err == nil && len(key) == 32 {
		return key, nil
	}
	key, err := crypto.GenerateMachineKey()
	if err != nil {
		return nil, err
	}
	if err := os.WriteFile(s.keyPath(), key, 0600); err != nil {
		return nil, fmt.Errorf("writing machine key: %w", err)
	}
	return key, nil
}

func (s *Store) load() error {
	ciphertext, err := os.ReadFile(s.sessionPath())
	if err != nil {
		return ErrNoSession
	}
	machineKey, err := s.machineKey()
	if err != nil {
		return err
	}
	key, err := crypto.DeriveKey(machineKey, keyContext)
	if err != nil {
		return err
	}
	plaintext, err := crypto.Decrypt(ciphertext, key)
	if err != nil {
		return fmt.Errorf("decrypting session: %w", err)
	}
	var p persisted
	if err := json.Unmarshal(plaintext, &p); err != nil {
		return fmt.Errorf("parsing session: %w", err)
	}
	s.data = &p
	return nil
}

// Save persists a new session.
func (s *Store) Save(token string, expires time.Time, userID, scope string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p := &persisted{
		SessionToken:        token,
		SessionTokenExpires: expires,
		UserID:              userID,
		Scope:               scope,
	}
	plaintext, err := json.Marshal(p)
	if err != nil {
		return err
	}
	machineKey, err := s.machineKey()
	if err != nil {
		return err
	}
	key, err := crypto.DeriveKey(machineKey, keyContext)
	if err != nil {
		return err
	}
	ciphertext, err := crypto.Encrypt(plaintext, key)
	if err != nil {
		return err
	}
	if err := os.WriteFile(s.sessionPath(), ciphertext, 0600); err != nil {
		return fmt.Errorf("writing session: %w", err)
	}
	s.data = p
	return nil
}

// Clear removes the persisted session, forcing re-authentication.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data = nil
	if err := os.Remove(s.sessionPath()); err != nil && !os.IsNotExist(err) {
		log.Warn().Err(err).Msg("removing session file")
	}
}

// Token returns the bearer token, or "" when no live session exists.
// Callers treat "" as "skip authenticated fetches", not as an error.
func (s *Store) Token() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.data == nil || s.expiredLocked() {
		return ""
	}
	return s.data.SessionToken
}

// UserID returns the acting user id, or "" when unknown.
func (s *Store) UserID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.data == nil {
		return ""
	}
	return s.data.UserID
}

// Info derives the session view from the persisted fields.
func (s *Store) Info() models.SessionInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.data == nil {
		return models.SessionInfo{}
	}
	return models.SessionInfo{
		IsActive:  !s.expiredLocked(),
		ExpiresAt: s.data.SessionTokenExpires,
		Scope:     s.data.Scope,
		UserID:    s.data.UserID,
	}
}

func (s *Store) expiredLocked() bool {
	return !s.data.SessionTokenExpires.IsZero() && time.Now().After(s.data.SessionTokenExpires)
}
