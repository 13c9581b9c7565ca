package memory

import (
	"context"
	"sync"

	"gatemaster/internal/domain"
)

// TokenStore is an in-memory implementation of app.TokenStorage. Nothing
// survives the process, so it suits tests and one-shot commands.
type TokenStore struct {
	mu     sync.RWMutex
	tokens domain.TokenPair
	theme  domain.Theme
}

func NewTokenStore() *TokenStore {
	return &TokenStore{}
}

func (s *TokenStore) LoadTokens(context.Context) (domain.TokenPair, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tokens, nil
}

func (s *TokenStore) SaveTokens(_ context.Context, tokens domain.TokenPair) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens = tokens
	return nil
}

func (s *TokenStore) ClearTokens(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens = domain.TokenPair{}
	return nil
}

func (s *TokenStore) LoadTheme(context.Context) (domain.Theme, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.theme, nil
}

func (s *TokenStore) SaveTheme(_ context.Context, theme domain.Theme) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.theme = theme
	return nil
}
