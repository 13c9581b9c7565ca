package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"gatemaster/internal/domain"
)

// TokenStore keeps the token pair and theme in Redis so several terminals
// (or machines) can share one login. Keys:
//
//	{prefix}authTokens  JSON {"access": ..., "refresh": ...}
//	{prefix}theme       light | dark
type TokenStore struct {
	client *redis.Client
	prefix string
}

func NewTokenStore(client *redis.Client, prefix string) *TokenStore {
	return &TokenStore{client: client, prefix: prefix}
}

func (s *TokenStore) LoadTokens(ctx context.Context) (domain.TokenPair, error) {
	raw, err := s.client.Get(ctx, s.tokensKey()).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.TokenPair{}, nil
	}
	if err != nil {
		return domain.TokenPair{}, fmt.Errorf("redis get tokens: %w", err)
	}
	var tokens domain.TokenPair
	if err := json.Unmarshal(raw, &tokens); err != nil {
		return domain.TokenPair{}, fmt.Errorf("decode stored tokens: %w", err)
	}
	return tokens, nil
}

func (s *TokenStore) SaveTokens(ctx context.Context, tokens domain.TokenPair) error {
	raw, err := json.Marshal(tokens)
	if err != nil {
		return err
	}
	// no expiry: the refresh token lifetime is enforced by the server
	return s.client.Set(ctx, s.tokensKey(), raw, 0).Err()
}

func (s *TokenStore) ClearTokens(ctx context.Context) error {
	return s.client.Del(ctx, s.tokensKey()).Err()
}

func (s *TokenStore) LoadTheme(ctx context.Context) (domain.Theme, error) {
	raw, err := s.client.Get(ctx, s.themeKey()).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("redis get theme: %w", err)
	}
	return domain.ParseTheme(raw), nil
}

func (s *TokenStore) SaveTheme(ctx context.Context, theme domain.Theme) error {
	return s.client.Set(ctx, s.themeKey(), string(theme), 0).Err()
}

func (s *TokenStore) tokensKey() string {
	return s.prefix + "authTokens"
}

func (s *TokenStore) themeKey() string {
	return s.prefix + "theme"
}
