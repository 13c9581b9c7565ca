package app

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"

	"gatemaster/internal/domain"
)

// DefaultRefreshInterval matches the access token lifetime minus a safety margin.
const DefaultRefreshInterval = 4 * time.Minute

// TokenStorage abstracts durable client storage (JSON file, Redis, memory).
// LoadTokens returns an empty pair and a nil error when nothing is stored.
type TokenStorage interface {
	LoadTokens(ctx context.Context) (domain.TokenPair, error)
	SaveTokens(ctx context.Context, tokens domain.TokenPair) error
	ClearTokens(ctx context.Context) error
	LoadTheme(ctx context.Context) (domain.Theme, error)
	SaveTheme(ctx context.Context, theme domain.Theme) error
}

// AuthAPI is the token side of the backend. RefreshToken must wrap
// domain.ErrTokenRejected when the server refuses the refresh token, and
// anything else is treated as a temporary failure.
type AuthAPI interface {
	ObtainToken(ctx context.Context, creds domain.Credentials) (domain.TokenPair, error)
	RefreshToken(ctx context.Context, refresh string) (domain.TokenPair, error)
}

// AuthSession owns the token pair, the decoded identity and the theme.
// It is constructed once per process and passed to whatever needs it.
type AuthSession struct {
	store    TokenStorage
	api      AuthAPI
	log      zerolog.Logger
	interval time.Duration

	// refreshing serialises refresh calls so ticks never overlap.
	refreshing sync.Mutex

	mu       sync.RWMutex
	tokens   domain.TokenPair
	identity domain.Identity
	theme    domain.Theme

	ready     chan struct{}
	readyOnce sync.Once
}

func NewAuthSession(store TokenStorage, api AuthAPI, log zerolog.Logger, interval time.Duration) *AuthSession {
	if interval <= 0 {
		interval = DefaultRefreshInterval
	}
	return &AuthSession{
		store:    store,
		api:      api,
		log:      log.With().Str("component", "session").Logger(),
		interval: interval,
		theme:    domain.ThemeLight,
		ready:    make(chan struct{}),
	}
}

// Restore loads the persisted token pair and theme. An undecodable access
// token is discarded and the session starts logged out.
func (s *AuthSession) Restore(ctx context.Context) error {
	theme, err := s.store.LoadTheme(ctx)
	if err != nil {
		return fmt.Errorf("load theme: %w", err)
	}
	tokens, err := s.store.LoadTokens(ctx)
	if err != nil {
		return fmt.Errorf("load tokens: %w", err)
	}

	s.mu.Lock()
	if theme != "" {
		s.theme = theme
	}
	s.mu.Unlock()

	if tokens.Empty() {
		return nil
	}
	identity, err := DecodeIdentity(tokens.Access)
	if err != nil {
		s.log.Warn().Err(err).Msg("discarding unreadable stored session")
		return s.Logout(ctx)
	}

	s.mu.Lock()
	s.tokens = tokens
	s.identity = identity
	s.mu.Unlock()
	return nil
}

// Init restores the session and, when a token pair exists, performs one
// refresh before the session is marked ready.
func (s *AuthSession) Init(ctx context.Context) error {
	defer s.markReady()
	if err := s.Restore(ctx); err != nil {
		return err
	}
	if s.Authenticated() {
		// Failures are already classified and logged by Refresh.
		_ = s.Refresh(ctx)
	}
	return nil
}

// Ready is closed once Init has finished.
func (s *AuthSession) Ready() <-chan struct{} {
	return s.ready
}

func (s *AuthSession) markReady() {
	s.readyOnce.Do(func() { close(s.ready) })
}

// Run refreshes the token pair on a fixed interval until ctx is done.
func (s *AuthSession) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if !s.Authenticated() {
				continue
			}
			_ = s.Refresh(ctx)
		}
	}
}

// Login exchanges credentials for a token pair. On failure the state is unchanged.
func (s *AuthSession) Login(ctx context.Context, creds domain.Credentials) error {
	tokens, err := s.api.ObtainToken(ctx, creds)
	if err != nil {
		return err
	}
	identity, err := DecodeIdentity(tokens.Access)
	if err != nil {
		return err
	}
	if err := s.store.SaveTokens(ctx, tokens); err != nil {
		return fmt.Errorf("persist tokens: %w", err)
	}

	s.mu.Lock()
	s.tokens = tokens
	s.identity = identity
	s.mu.Unlock()
	s.log.Info().Int("user_id", identity.UserID).Msg("logged in")
	return nil
}

// Logout clears the in-memory and persisted session.
func (s *AuthSession) Logout(ctx context.Context) error {
	s.mu.Lock()
	s.tokens = domain.TokenPair{}
	s.identity = domain.Identity{}
	s.mu.Unlock()
	return s.store.ClearTokens(ctx)
}

// Refresh calls the refresh endpoint once. A rejected refresh token ends the
// session; any other failure keeps it so the next tick can retry.
func (s *AuthSession) Refresh(ctx context.Context) error {
	s.refreshing.Lock()
	defer s.refreshing.Unlock()

	current := s.Tokens()
	if current.Refresh == "" {
		return domain.ErrNotAuthenticated
	}

	tokens, err := s.api.RefreshToken(ctx, current.Refresh)
	if err != nil {
		if errors.Is(err, domain.ErrTokenRejected) {
			s.log.Info().Err(err).Msg("refresh token rejected, logging out")
			if lerr := s.Logout(ctx); lerr != nil {
				s.log.Error().Err(lerr).Msg("clear stored session")
			}
			return err
		}
		s.log.Warn().Err(err).Msg("token refresh failed, will retry on next tick")
		return err
	}

	// Without rotation the server returns only a new access token.
	if tokens.Refresh == "" {
		tokens.Refresh = current.Refresh
	}
	identity, err := DecodeIdentity(tokens.Access)
	if err != nil {
		s.log.Warn().Err(err).Msg("refreshed access token unreadable")
		return err
	}

	s.mu.Lock()
	if s.tokens.Refresh != current.Refresh {
		// Logged out or logged in again while the call was in flight.
		s.mu.Unlock()
		return nil
	}
	s.tokens = tokens
	s.identity = identity
	s.mu.Unlock()

	if err := s.store.SaveTokens(ctx, tokens); err != nil {
		return fmt.Errorf("persist tokens: %w", err)
	}
	s.log.Info().Time("expires_at", identity.ExpiresAt).Msg("token refreshed")
	return nil
}

// Authenticated reports whether a token pair is held.
func (s *AuthSession) Authenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return !s.tokens.Empty()
}

// Identity returns the decoded user, if authenticated.
func (s *AuthSession) Identity() (domain.Identity, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.identity, !s.tokens.Empty()
}

// Tokens returns a copy of the current pair.
func (s *AuthSession) Tokens() domain.TokenPair {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tokens
}

// AccessToken is the bearer credential for outgoing requests, empty when logged out.
func (s *AuthSession) AccessToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tokens.Access
}

func (s *AuthSession) Theme() domain.Theme {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.theme
}

// SetTheme persists and applies a colour preference.
func (s *AuthSession) SetTheme(ctx context.Context, theme domain.Theme) error {
	if err := s.store.SaveTheme(ctx, theme); err != nil {
		return fmt.Errorf("persist theme: %w", err)
	}
	s.mu.Lock()
	s.theme = theme
	s.mu.Unlock()
	return nil
}

// accessClaims is the payload of a simplejwt access token.
type accessClaims struct {
	UserID flexibleID `json:"user_id"`
	// Username is only present when the server adds it to the token.
	Username string `json:"username,omitempty"`
	jwt.RegisteredClaims
}

// flexibleID accepts user ids encoded either as numbers or strings.
type flexibleID int

func (f *flexibleID) UnmarshalJSON(data []byte) error {
	raw := string(bytes.Trim(bytes.TrimSpace(data), `"`))
	if raw == "" || raw == "null" {
		*f = 0
		return nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return fmt.Errorf("user_id: %w", err)
	}
	*f = flexibleID(n)
	return nil
}

// DecodeIdentity reads the identity claims of an access token. The signature
// is not checked; the client only needs the claims for display and routing.
func DecodeIdentity(access string) (domain.Identity, error) {
	claims := &accessClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(access, claims); err != nil {
		return domain.Identity{}, fmt.Errorf("decode access token: %w", err)
	}
	identity := domain.Identity{
		UserID:   int(claims.UserID),
		Username: claims.Username,
	}
	if claims.ExpiresAt != nil {
		identity.ExpiresAt = claims.ExpiresAt.Time
	}
	return identity, nil
}
