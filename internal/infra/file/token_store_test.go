package file

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"gatemaster/internal/domain"
)

func TestTokenStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "session.json")
	store := NewTokenStore(path)

	if tokens, err := store.LoadTokens(ctx); err != nil || !tokens.Empty() {
		t.Fatalf("expected empty tokens from missing file, got %+v (%v)", tokens, err)
	}

	pair := domain.TokenPair{Access: "acc", Refresh: "ref"}
	if err := store.SaveTokens(ctx, pair); err != nil {
		t.Fatalf("save tokens: %v", err)
	}
	if err := store.SaveTheme(ctx, domain.ThemeDark); err != nil {
		t.Fatalf("save theme: %v", err)
	}

	reopened := NewTokenStore(path)
	if got, _ := reopened.LoadTokens(ctx); got != pair {
		t.Fatalf("expected %+v after reopen, got %+v", pair, got)
	}
	if theme, _ := reopened.LoadTheme(ctx); theme != domain.ThemeDark {
		t.Fatalf("expected dark theme, got %q", theme)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Fatalf("expected 0600, got %o", perm)
	}

	raw, _ := os.ReadFile(path)
	var onDisk map[string]json.RawMessage
	if err := json.Unmarshal(raw, &onDisk); err != nil {
		t.Fatalf("decode file: %v", err)
	}
	if _, ok := onDisk["authTokens"]; !ok {
		t.Fatalf("expected authTokens key, got %s", raw)
	}
}

func TestTokenStoreClearKeepsTheme(t *testing.T) {
	ctx := context.Background()
	store := NewTokenStore(filepath.Join(t.TempDir(), "session.json"))
	_ = store.SaveTokens(ctx, domain.TokenPair{Access: "a", Refresh: "r"})
	_ = store.SaveTheme(ctx, domain.ThemeDark)

	if err := store.ClearTokens(ctx); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if tokens, _ := store.LoadTokens(ctx); !tokens.Empty() {
		t.Fatalf("expected tokens cleared, got %+v", tokens)
	}
	if theme, _ := store.LoadTheme(ctx); theme != domain.ThemeDark {
		t.Fatalf("expected theme kept, got %q", theme)
	}
}

func TestTokenStoreCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	if err := os.WriteFile(path, []byte("{oops"), 0o600); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if _, err := NewTokenStore(path).LoadTokens(context.Background()); err == nil {
		t.Fatalf("expected decode error")
	}
}
