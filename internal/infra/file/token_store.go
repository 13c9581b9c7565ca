package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"gatemaster/internal/domain"
)

// record is the on-disk layout. Key names follow the browser storage keys
// the web client used, so a session can be carried over by hand.
type record struct {
	AuthTokens *domain.TokenPair `json:"authTokens,omitempty"`
	Theme      domain.Theme      `json:"theme,omitempty"`
}

// TokenStore persists the session as a single JSON file, readable only by
// the owner. Writes go through a temp file and rename.
type TokenStore struct {
	path string
	mu   sync.Mutex
}

func NewTokenStore(path string) *TokenStore {
	return &TokenStore{path: path}
}

// Path is the backing file.
func (s *TokenStore) Path() string { return s.path }

func (s *TokenStore) LoadTokens(context.Context) (domain.TokenPair, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, err := s.read()
	if err != nil || rec.AuthTokens == nil {
		return domain.TokenPair{}, err
	}
	return *rec.AuthTokens, nil
}

func (s *TokenStore) SaveTokens(_ context.Context, tokens domain.TokenPair) error {
	return s.update(func(rec *record) {
		rec.AuthTokens = &tokens
	})
}

func (s *TokenStore) ClearTokens(context.Context) error {
	return s.update(func(rec *record) {
		rec.AuthTokens = nil
	})
}

func (s *TokenStore) LoadTheme(context.Context) (domain.Theme, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, err := s.read()
	if err != nil {
		return "", err
	}
	return rec.Theme, nil
}

func (s *TokenStore) SaveTheme(_ context.Context, theme domain.Theme) error {
	return s.update(func(rec *record) {
		rec.Theme = theme
	})
}

func (s *TokenStore) update(mutate func(*record)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, err := s.read()
	if err != nil {
		return err
	}
	mutate(&rec)
	return s.write(rec)
}

func (s *TokenStore) read() (record, error) {
	var rec record
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return rec, nil
	}
	if err != nil {
		return rec, fmt.Errorf("read session file: %w", err)
	}
	if len(data) == 0 {
		return rec, nil
	}
	if err := json.Unmarshal(data, &rec); err != nil {
		return rec, fmt.Errorf("decode session file %s: %w", s.path, err)
	}
	return rec, nil
}

func (s *TokenStore) write(rec record) error {
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return err
	}
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("create session dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".session-*.json")
	if err != nil {
		return fmt.Errorf("create temp session file: %w", err)
	}
	defer os.Remove(tmp.Name()) // no-op after a successful rename

	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write session file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("replace session file: %w", err)
	}
	return nil
}
