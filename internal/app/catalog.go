package app

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"gatemaster/internal/domain"
)

// CatalogAPI serves the read-only views of the backend.
type CatalogAPI interface {
	Dashboard(ctx context.Context) (domain.Dashboard, error)
	AnalyticsSummary(ctx context.Context) (domain.AnalyticsSummary, error)
	Challenges(ctx context.Context) ([]domain.Challenge, error)
	Leaderboard(ctx context.Context) (domain.Leaderboard, error)
	Materials(ctx context.Context, subject string) ([]domain.Material, error)
	News(ctx context.Context) ([]domain.NewsArticle, error)
}

// ViewCache stores encoded view payloads (in memory or Redis). Fetch returns
// the cached bytes for key or calls load and caches what it returns.
type ViewCache interface {
	Fetch(ctx context.Context, key string, load func(ctx context.Context) ([]byte, error)) ([]byte, error)
	Invalidate(ctx context.Context, key string) error
}

// Cache keys of the shared views.
const (
	ChallengesKey = "challenges"
	NewsKey       = "news"
	materialsKey  = "materials:"
)

// CatalogService fronts the read-only views. Shared lists are cached; views
// that are specific to the user or change with every attempt are not.
type CatalogService struct {
	api   CatalogAPI
	cache ViewCache
}

// NewCatalogService builds the service; a nil cache disables caching.
func NewCatalogService(api CatalogAPI, cache ViewCache) *CatalogService {
	return &CatalogService{api: api, cache: cache}
}

func (s *CatalogService) Dashboard(ctx context.Context) (domain.Dashboard, error) {
	return s.api.Dashboard(ctx)
}

func (s *CatalogService) AnalyticsSummary(ctx context.Context) (domain.AnalyticsSummary, error) {
	return s.api.AnalyticsSummary(ctx)
}

func (s *CatalogService) Leaderboard(ctx context.Context) (domain.Leaderboard, error) {
	return s.api.Leaderboard(ctx)
}

func (s *CatalogService) Challenges(ctx context.Context) ([]domain.Challenge, error) {
	return cached(ctx, s.cache, ChallengesKey, s.api.Challenges)
}

func (s *CatalogService) News(ctx context.Context) ([]domain.NewsArticle, error) {
	return cached(ctx, s.cache, NewsKey, s.api.News)
}

// Materials lists study material for a subject code; "ALL" or "" lists everything.
func (s *CatalogService) Materials(ctx context.Context, subject string) ([]domain.Material, error) {
	code, err := MaterialFilter(subject)
	if err != nil {
		return nil, err
	}
	key := MaterialsKey(code)
	return cached(ctx, s.cache, key, func(ctx context.Context) ([]domain.Material, error) {
		return s.api.Materials(ctx, code)
	})
}

// MaterialsKey is the cache key of a material listing; code is already normalised.
func MaterialsKey(code string) string {
	if code == "" {
		return materialsKey + domain.AllSubjects
	}
	return materialsKey + code
}

// Invalidate drops cached views so the next read goes to the server.
func (s *CatalogService) Invalidate(ctx context.Context, keys ...string) error {
	if s.cache == nil {
		return nil
	}
	for _, key := range keys {
		if err := s.cache.Invalidate(ctx, key); err != nil {
			return fmt.Errorf("invalidate %s: %w", key, err)
		}
	}
	return nil
}

// MaterialFilter normalises a subject filter. The empty result means no filter.
func MaterialFilter(subject string) (string, error) {
	subject = strings.TrimSpace(subject)
	if subject == "" || strings.EqualFold(subject, domain.AllSubjects) {
		return "", nil
	}
	sub, err := domain.LookupSubject(subject)
	if err != nil {
		return "", err
	}
	return sub.Code, nil
}

func cached[T any](ctx context.Context, cache ViewCache, key string, load func(context.Context) (T, error)) (T, error) {
	if cache == nil {
		return load(ctx)
	}
	var out T
	raw, err := cache.Fetch(ctx, key, func(ctx context.Context) ([]byte, error) {
		v, err := load(ctx)
		if err != nil {
			return nil, err
		}
		return json.Marshal(v)
	})
	if err != nil {
		return out, err
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return out, fmt.Errorf("decode cached %s: %w", key, err)
	}
	return out, nil
}
