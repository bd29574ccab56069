// Package auth provides the local sign-in session used as the board's
// authentication collaborator.
package auth

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/evanschultz/todoboard/internal/domain"
)

// ErrNotSignedIn reports that no session file holds a user.
var ErrNotSignedIn = errors.New("not signed in")

// sessionFile is the on-disk TOML shape.
type sessionFile struct {
	User *domain.User `toml:"user"`
}

// SessionStore persists the signed-in user in a TOML file.
type SessionStore struct {
	path  string
	clock func() time.Time
}

// NewSessionStore constructs a store for path. A nil clock uses time.Now.
func NewSessionStore(path string, clock func() time.Time) (*SessionStore, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("session file path is required")
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve session path: %w", err)
	}
	if clock == nil {
		clock = time.Now
	}
	return &SessionStore{path: filepath.Clean(abs), clock: clock}, nil
}

// Path returns the absolute session file path.
func (s *SessionStore) Path() string {
	return s.path
}

// Current returns the signed-in user, or nil when signed out.
func (s *SessionStore) Current() (*domain.User, error) {
	content, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read session file %q: %w", s.path, err)
	}
	if strings.TrimSpace(string(content)) == "" {
		return nil, nil
	}
	var file sessionFile
	if err := toml.Unmarshal(content, &file); err != nil {
		return nil, fmt.Errorf("decode session file %q: %w", s.path, err)
	}
	if file.User == nil || strings.TrimSpace(file.User.ID) == "" {
		return nil, nil
	}
	return file.User, nil
}

// RequireCurrent returns the signed-in user or ErrNotSignedIn.
func (s *SessionStore) RequireCurrent() (domain.User, error) {
	user, err := s.Current()
	if err != nil {
		return domain.User{}, err
	}
	if user == nil {
		return domain.User{}, ErrNotSignedIn
	}
	return *user, nil
}

// SignIn records a new session for the given identity.
func (s *SessionStore) SignIn(id, name, email, provider string) (domain.User, error) {
	user, err := domain.NewUser(id, name, email, provider, s.clock())
	if err != nil {
		return domain.User{}, err
	}
	content, err := toml.Marshal(sessionFile{User: &user})
	if err != nil {
		return domain.User{}, fmt.Errorf("encode session: %w", err)
	}
	if err := writeFileAtomic(s.path, content); err != nil {
		return domain.User{}, err
	}
	return user, nil
}

// SignOut removes the session. Signing out twice is not an error.
func (s *SessionStore) SignOut() error {
	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove session file %q: %w", s.path, err)
	}
	return nil
}

// writeFileAtomic writes through a temp file and rename so watchers never see partial content.
func writeFileAtomic(path string, content []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create session dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".session-*.toml")
	if err != nil {
		return fmt.Errorf("create temp session file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(content); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("write temp session file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("close temp session file: %w", err)
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("chmod temp session file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("replace session file: %w", err)
	}
	return nil
}
