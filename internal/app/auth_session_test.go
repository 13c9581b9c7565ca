package app_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"

	"gatemaster/internal/app"
	"gatemaster/internal/domain"
	"gatemaster/internal/infra/memory"
)

func TestRestoreDecodesIdentity(t *testing.T) {
	ctx := context.Background()
	store := memory.NewTokenStore()
	_ = store.SaveTokens(ctx, domain.TokenPair{Access: accessToken(t, 7, time.Hour), Refresh: "r1"})
	_ = store.SaveTheme(ctx, domain.ThemeDark)

	session := app.NewAuthSession(store, &fakeAuthAPI{}, zerolog.Nop(), time.Minute)
	if err := session.Restore(ctx); err != nil {
		t.Fatalf("restore: %v", err)
	}
	id, ok := session.Identity()
	if !ok || id.UserID != 7 {
		t.Fatalf("expected user 7, got %+v (authenticated=%v)", id, ok)
	}
	if session.Theme() != domain.ThemeDark {
		t.Fatalf("expected dark theme, got %s", session.Theme())
	}
}

func TestRestoreDiscardsGarbageToken(t *testing.T) {
	ctx := context.Background()
	store := memory.NewTokenStore()
	_ = store.SaveTokens(ctx, domain.TokenPair{Access: "not-a-jwt", Refresh: "r1"})

	session := app.NewAuthSession(store, &fakeAuthAPI{}, zerolog.Nop(), time.Minute)
	if err := session.Restore(ctx); err != nil {
		t.Fatalf("restore: %v", err)
	}
	if session.Authenticated() {
		t.Fatalf("expected logged out after unreadable token")
	}
	if stored, _ := store.LoadTokens(ctx); !stored.Empty() {
		t.Fatalf("expected stored tokens cleared, got %+v", stored)
	}
}

func TestRefreshTransportErrorKeepsSession(t *testing.T) {
	ctx := context.Background()
	original := domain.TokenPair{Access: accessToken(t, 7, time.Hour), Refresh: "r1"}
	api := &fakeAuthAPI{refresh: func(string) (domain.TokenPair, error) {
		return domain.TokenPair{}, errors.New("dial tcp 127.0.0.1:8000: connection refused")
	}}
	session, store := loggedInSession(t, original, api)

	if err := session.Refresh(ctx); err == nil {
		t.Fatalf("expected refresh error")
	}
	if !session.Authenticated() {
		t.Fatalf("transport error must not end the session")
	}
	if session.Tokens() != original {
		t.Fatalf("expected tokens unchanged, got %+v", session.Tokens())
	}
	if stored, _ := store.LoadTokens(ctx); stored != original {
		t.Fatalf("expected stored tokens unchanged, got %+v", stored)
	}
}

func TestRefreshRejectionEndsSession(t *testing.T) {
	ctx := context.Background()
	api := &fakeAuthAPI{refresh: func(string) (domain.TokenPair, error) {
		return domain.TokenPair{}, fmt.Errorf("%w: status 401", domain.ErrTokenRejected)
	}}
	session, store := loggedInSession(t, domain.TokenPair{Access: accessToken(t, 7, time.Hour), Refresh: "r1"}, api)

	if err := session.Refresh(ctx); !errors.Is(err, domain.ErrTokenRejected) {
		t.Fatalf("expected rejection, got %v", err)
	}
	if session.Authenticated() {
		t.Fatalf("expected session to end on rejected refresh")
	}
	if stored, _ := store.LoadTokens(ctx); !stored.Empty() {
		t.Fatalf("expected stored tokens cleared, got %+v", stored)
	}
}

func TestRefreshReplacesTokens(t *testing.T) {
	ctx := context.Background()
	fresh := accessToken(t, 7, 2*time.Hour)
	api := &fakeAuthAPI{refresh: func(refresh string) (domain.TokenPair, error) {
		if refresh != "r1" {
			t.Errorf("expected refresh token r1, got %q", refresh)
		}
		// no rotation: only a new access token
		return domain.TokenPair{Access: fresh}, nil
	}}
	session, store := loggedInSession(t, domain.TokenPair{Access: accessToken(t, 7, time.Hour), Refresh: "r1"}, api)

	if err := session.Refresh(ctx); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	want := domain.TokenPair{Access: fresh, Refresh: "r1"}
	if session.Tokens() != want {
		t.Fatalf("expected %+v, got %+v", want, session.Tokens())
	}
	if stored, _ := store.LoadTokens(ctx); stored != want {
		t.Fatalf("expected persisted %+v, got %+v", want, stored)
	}
}

func TestInitRefreshesBeforeReady(t *testing.T) {
	ctx := context.Background()
	store := memory.NewTokenStore()
	_ = store.SaveTokens(ctx, domain.TokenPair{Access: accessToken(t, 3, time.Hour), Refresh: "r1"})
	api := &fakeAuthAPI{refresh: func(string) (domain.TokenPair, error) {
		return domain.TokenPair{Access: accessToken(t, 3, time.Hour), Refresh: "r2"}, nil
	}}
	session := app.NewAuthSession(store, api, zerolog.Nop(), time.Minute)

	select {
	case <-session.Ready():
		t.Fatalf("ready before init")
	default:
	}
	if err := session.Init(ctx); err != nil {
		t.Fatalf("init: %v", err)
	}
	select {
	case <-session.Ready():
	default:
		t.Fatalf("expected ready after init")
	}
	if api.refreshCalls() != 1 {
		t.Fatalf("expected one refresh during init, got %d", api.refreshCalls())
	}
	if session.Tokens().Refresh != "r2" {
		t.Fatalf("expected rotated refresh token, got %q", session.Tokens().Refresh)
	}
}

func TestInitWithoutTokensSkipsRefresh(t *testing.T) {
	api := &fakeAuthAPI{}
	session := app.NewAuthSession(memory.NewTokenStore(), api, zerolog.Nop(), time.Minute)
	if err := session.Init(context.Background()); err != nil {
		t.Fatalf("init: %v", err)
	}
	if api.refreshCalls() != 0 {
		t.Fatalf("expected no refresh without tokens, got %d", api.refreshCalls())
	}
	if session.Authenticated() {
		t.Fatalf("expected logged out")
	}
}

func TestLoginFailureLeavesStateUnchanged(t *testing.T) {
	ctx := context.Background()
	api := &fakeAuthAPI{obtain: func(domain.Credentials) (domain.TokenPair, error) {
		return domain.TokenPair{}, domain.ErrInvalidCredentials
	}}
	session := app.NewAuthSession(memory.NewTokenStore(), api, zerolog.Nop(), time.Minute)

	err := session.Login(ctx, domain.Credentials{Username: "asha", Password: "wrong"})
	if !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Fatalf("expected invalid credentials, got %v", err)
	}
	if session.Authenticated() {
		t.Fatalf("expected logged out after failed login")
	}
}

func TestLoginAndLogout(t *testing.T) {
	ctx := context.Background()
	access := accessToken(t, 11, time.Hour)
	api := &fakeAuthAPI{obtain: func(c domain.Credentials) (domain.TokenPair, error) {
		return domain.TokenPair{Access: access, Refresh: "r-" + c.Username}, nil
	}}
	store := memory.NewTokenStore()
	session := app.NewAuthSession(store, api, zerolog.Nop(), time.Minute)

	if err := session.Login(ctx, domain.Credentials{Username: "asha", Password: "pw"}); err != nil {
		t.Fatalf("login: %v", err)
	}
	if id, ok := session.Identity(); !ok || id.UserID != 11 {
		t.Fatalf("expected user 11, got %+v", id)
	}
	if session.AccessToken() != access {
		t.Fatalf("expected access token to be exposed")
	}
	if stored, _ := store.LoadTokens(ctx); stored.Refresh != "r-asha" {
		t.Fatalf("expected tokens persisted, got %+v", stored)
	}

	if err := session.Logout(ctx); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if session.Authenticated() || session.AccessToken() != "" {
		t.Fatalf("expected logged out")
	}
	if stored, _ := store.LoadTokens(ctx); !stored.Empty() {
		t.Fatalf("expected stored tokens cleared")
	}
}

func TestRunRefreshesOnInterval(t *testing.T) {
	api := &fakeAuthAPI{refresh: func(string) (domain.TokenPair, error) {
		return domain.TokenPair{}, errors.New("timeout")
	}}
	session, _ := loggedInSessionWithInterval(t, domain.TokenPair{Access: accessToken(t, 7, time.Hour), Refresh: "r1"}, api, 10*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- session.Run(ctx) }()

	deadline := time.Now().Add(2 * time.Second)
	for api.refreshCalls() < 2 {
		if time.Now().After(deadline) {
			t.Fatalf("expected repeated refresh attempts, got %d", api.refreshCalls())
		}
		time.Sleep(5 * time.Millisecond)
	}
	cancel()
	if err := <-done; err != nil {
		t.Fatalf("run: %v", err)
	}
	if !session.Authenticated() {
		t.Fatalf("transient failures must keep the session")
	}
}

func TestSetThemePersists(t *testing.T) {
	ctx := context.Background()
	store := memory.NewTokenStore()
	session := app.NewAuthSession(store, &fakeAuthAPI{}, zerolog.Nop(), time.Minute)
	if session.Theme() != domain.ThemeLight {
		t.Fatalf("expected light default, got %s", session.Theme())
	}
	if err := session.SetTheme(ctx, session.Theme().Toggle()); err != nil {
		t.Fatalf("set theme: %v", err)
	}
	if theme, _ := store.LoadTheme(ctx); theme != domain.ThemeDark {
		t.Fatalf("expected dark persisted, got %s", theme)
	}
}

func TestDecodeIdentityAcceptsStringUserID(t *testing.T) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id":  "42",
		"username": "asha",
		"exp":      time.Now().Add(time.Hour).Unix(),
	})
	signed, err := token.SignedString([]byte("test-secret"))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	id, err := app.DecodeIdentity(signed)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if id.UserID != 42 || id.Username != "asha" || id.ExpiresAt.IsZero() {
		t.Fatalf("unexpected identity %+v", id)
	}
}

func loggedInSession(t *testing.T, tokens domain.TokenPair, api app.AuthAPI) (*app.AuthSession, *memory.TokenStore) {
	return loggedInSessionWithInterval(t, tokens, api, time.Minute)
}

func loggedInSessionWithInterval(t *testing.T, tokens domain.TokenPair, api app.AuthAPI, interval time.Duration) (*app.AuthSession, *memory.TokenStore) {
	t.Helper()
	ctx := context.Background()
	store := memory.NewTokenStore()
	if err := store.SaveTokens(ctx, tokens); err != nil {
		t.Fatalf("seed tokens: %v", err)
	}
	session := app.NewAuthSession(store, api, zerolog.Nop(), interval)
	if err := session.Restore(ctx); err != nil {
		t.Fatalf("restore: %v", err)
	}
	if !session.Authenticated() {
		t.Fatalf("expected restored session")
	}
	return session, store
}

func accessToken(t *testing.T, userID int, ttl time.Duration) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"token_type": "access",
		"user_id":    userID,
		"exp":        time.Now().Add(ttl).Unix(),
		"jti":        fmt.Sprintf("jti-%d-%d", userID, time.Now().UnixNano()),
	})
	signed, err := token.SignedString([]byte("test-secret"))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return signed
}

type fakeAuthAPI struct {
	obtain  func(domain.Credentials) (domain.TokenPair, error)
	refresh func(string) (domain.TokenPair, error)

	mu       sync.Mutex
	refreshN int
}

func (f *fakeAuthAPI) ObtainToken(_ context.Context, creds domain.Credentials) (domain.TokenPair, error) {
	if f.obtain == nil {
		return domain.TokenPair{}, domain.ErrInvalidCredentials
	}
	return f.obtain(creds)
}

func (f *fakeAuthAPI) RefreshToken(_ context.Context, refresh string) (domain.TokenPair, error) {
	f.mu.Lock()
	f.refreshN++
	f.mu.Unlock()
	if f.refresh == nil {
		return domain.TokenPair{}, errors.New("refresh not configured")
	}
	return f.refresh(refresh)
}

func (f *fakeAuthAPI) refreshCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.refreshN
}
