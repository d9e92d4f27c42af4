// Package session holds the authenticated author and credential.
// Every other component reads it; only Login and Logout change it.
package session

import (
	"fmt"
	"sync"

	"github.com/tkrehbiel/distrolace/client/storage"
	"github.com/tkrehbiel/distrolace/client/telemetry"
)

// Persisted setting names
const (
	AuthorIDKey  = "authorId"
	AuthTokenKey = "authToken"
	HostKey      = "host"
)

// Store is the durable part of a session
type Store interface {
	FindSetting(name string) (*storage.Setting, error)
	SaveSettings(settings ...storage.Setting) error
	DeleteSettings(names ...string) error
}

type Session struct {
	store Store

	lock     sync.RWMutex
	authorID string
	token    string
	host     string
}

// New creates an empty session for the local node host.
// Call Load to pick up a session persisted by a previous run.
func New(store Store, host string) *Session {
	return &Session{
		store: store,
		host:  host,
	}
}

// Load reads a previously persisted session
func (s *Session) Load() error {
	values := make(map[string]string)
	for _, name := range []string{AuthorIDKey, AuthTokenKey, HostKey} {
		setting, err := s.store.FindSetting(name)
		if err != nil {
			return fmt.Errorf("reading session %s: %w", name, err)
		}
		if setting != nil {
			values[name] = setting.Value
		}
	}

	s.lock.Lock()
	defer s.lock.Unlock()
	s.authorID = values[AuthorIDKey]
	s.token = values[AuthTokenKey]
	if values[HostKey] != "" {
		s.host = values[HostKey]
	}
	telemetry.Trace("session loaded for author [%s]", s.authorID)
	return nil
}

func (s *Session) CurrentAuthorID() string {
	s.lock.RLock()
	defer s.lock.RUnlock()
	return s.authorID
}

func (s *Session) Credential() string {
	s.lock.RLock()
	defer s.lock.RUnlock()
	return s.token
}

// Host is the local node host this session belongs to
func (s *Session) Host() string {
	s.lock.RLock()
	defer s.lock.RUnlock()
	return s.host
}

func (s *Session) Authenticated() bool {
	s.lock.RLock()
	defer s.lock.RUnlock()
	return s.authorID != "" && s.token != ""
}

// Login replaces the whole session and persists it.
// On a storage error the in-memory session is left as it was.
func (s *Session) Login(authorID, token string) error {
	if authorID == "" || token == "" {
		return fmt.Errorf("login needs both an author id and a token")
	}
	s.lock.Lock()
	defer s.lock.Unlock()
	err := s.store.SaveSettings(
		storage.Setting{Name: AuthorIDKey, Value: authorID},
		storage.Setting{Name: AuthTokenKey, Value: token},
		storage.Setting{Name: HostKey, Value: s.host},
	)
	if err != nil {
		return fmt.Errorf("saving session: %w", err)
	}
	s.authorID = authorID
	s.token = token
	telemetry.Increment("logins", 1)
	return nil
}

// Logout clears the session. The in-memory session is cleared even
// when storage fails, so protected views stop working right away.
func (s *Session) Logout() error {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.authorID = ""
	s.token = ""
	telemetry.Increment("logouts", 1)
	if err := s.store.DeleteSettings(AuthorIDKey, AuthTokenKey, HostKey); err != nil {
		return fmt.Errorf("clearing session: %w", err)
	}
	return nil
}
