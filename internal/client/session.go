package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/sakif/carkeeper/internal/model"
)

// Session is the signed-in user persisted across process restarts, the
// desktop analog of a browser keeping you logged in. It lives in a single
// JSON file so signing out is just deleting it.
type Session struct {
	User  *model.User `json:"user"`
	Token string      `json:"token"`
}

// SessionFile reads and writes the session at a fixed path.
type SessionFile struct {
	path string
}

// NewSessionFile creates a SessionFile at the given path. The parent
// directory is created on first Save, not here.
func NewSessionFile(path string) *SessionFile {
	return &SessionFile{path: path}
}

// DefaultSessionPath returns the per-user session location, e.g.
// ~/.config/carkeeper/session.json on Linux.
func DefaultSessionPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("session: locating config dir: %w", err)
	}
	return filepath.Join(dir, "carkeeper", "session.json"), nil
}

// Load reads the stored session. A missing file is not an error: it returns
// (nil, nil), meaning nobody is signed in. A corrupt file is treated the
// same way — the worst outcome of a bad session file should be having to
// log in again, never a crash at startup.
func (s *SessionFile) Load() (*Session, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("session: reading %s: %w", s.path, err)
	}

	var session Session
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, nil
	}
	if session.User == nil || session.Token == "" {
		return nil, nil
	}
	return &session, nil
}

// Save writes the session atomically (write temp, rename) so a crash
// mid-write never leaves a half-written file behind.
func (s *SessionFile) Save(session *Session) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("session: creating dir: %w", err)
	}

	data, err := json.MarshalIndent(session, "", "  ")
	if err != nil {
		return fmt.Errorf("session: encoding: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("session: writing %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("session: renaming into place: %w", err)
	}
	return nil
}

// Clear removes the session file. Clearing an absent session is a no-op.
func (s *SessionFile) Clear() error {
	if err := os.Remove(s.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("session: removing %s: %w", s.path, err)
	}
	return nil
}
