package app_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"gatemaster/internal/app"
	"gatemaster/internal/domain"
	"gatemaster/internal/infra/memory"
)

func TestCatalogCachesSharedLists(t *testing.T) {
	api := &fakeCatalogAPI{}
	svc := app.NewCatalogService(api, memory.NewViewCache(time.Minute))
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		list, err := svc.Challenges(ctx)
		if err != nil {
			t.Fatalf("challenges: %v", err)
		}
		if len(list) != 1 || list[0].Title != "Full mock 1" {
			t.Fatalf("unexpected list %+v", list)
		}
		if _, err := svc.Leaderboard(ctx); err != nil {
			t.Fatalf("leaderboard: %v", err)
		}
	}
	if api.calls["challenges"] != 1 {
		t.Fatalf("expected challenges fetched once, got %d", api.calls["challenges"])
	}
	if api.calls["leaderboard"] != 3 {
		t.Fatalf("expected leaderboard never cached, got %d calls", api.calls["leaderboard"])
	}
}

func TestCatalogMaterialsFilter(t *testing.T) {
	api := &fakeCatalogAPI{}
	svc := app.NewCatalogService(api, nil)
	ctx := context.Background()

	if _, err := svc.Materials(ctx, "all"); err != nil {
		t.Fatalf("materials: %v", err)
	}
	if api.lastSubject != "" {
		t.Fatalf("expected ALL to mean no filter, got %q", api.lastSubject)
	}
	if _, err := svc.Materials(ctx, "os"); err != nil {
		t.Fatalf("materials: %v", err)
	}
	if api.lastSubject != "OS" {
		t.Fatalf("expected normalised subject OS, got %q", api.lastSubject)
	}
	if _, err := svc.Materials(ctx, "CHEM"); !errors.Is(err, domain.ErrUnknownSubject) {
		t.Fatalf("expected ErrUnknownSubject, got %v", err)
	}
}

func TestCatalogDoesNotCacheErrors(t *testing.T) {
	api := &fakeCatalogAPI{newsErr: errors.New("status 500")}
	svc := app.NewCatalogService(api, memory.NewViewCache(time.Minute))
	ctx := context.Background()

	if _, err := svc.News(ctx); err == nil {
		t.Fatalf("expected error")
	}
	api.newsErr = nil
	news, err := svc.News(ctx)
	if err != nil {
		t.Fatalf("news: %v", err)
	}
	if len(news) != 1 || news[0].Source != "GATE Overflow" {
		t.Fatalf("unexpected news %+v", news)
	}
}

type fakeCatalogAPI struct {
	calls       map[string]int
	lastSubject string
	newsErr     error
}

func (f *fakeCatalogAPI) hit(name string) {
	if f.calls == nil {
		f.calls = make(map[string]int)
	}
	f.calls[name]++
}

func (f *fakeCatalogAPI) Dashboard(context.Context) (domain.Dashboard, error) {
	f.hit("dashboard")
	return domain.Dashboard{Username: "asha"}, nil
}

func (f *fakeCatalogAPI) AnalyticsSummary(context.Context) (domain.AnalyticsSummary, error) {
	f.hit("analytics")
	return domain.AnalyticsSummary{QuizzesTaken: 4}, nil
}

func (f *fakeCatalogAPI) Challenges(context.Context) ([]domain.Challenge, error) {
	f.hit("challenges")
	return []domain.Challenge{{ID: 1, Title: "Full mock 1"}}, nil
}

func (f *fakeCatalogAPI) Leaderboard(context.Context) (domain.Leaderboard, error) {
	f.hit("leaderboard")
	return domain.Leaderboard{Entries: []domain.LeaderboardEntry{{Rank: 1, Username: "asha", Score: 71.33}}}, nil
}

func (f *fakeCatalogAPI) Materials(_ context.Context, subject string) ([]domain.Material, error) {
	f.hit("materials")
	f.lastSubject = subject
	return []domain.Material{{ID: 1, Title: "Paging notes", Subject: "OS"}}, nil
}

func (f *fakeCatalogAPI) News(context.Context) ([]domain.NewsArticle, error) {
	f.hit("news")
	if f.newsErr != nil {
		return nil, f.newsErr
	}
	return []domain.NewsArticle{{ID: 1, Title: "Admit cards out", Source: "GATE Overflow", PublicationDate: t0}}, nil
}
