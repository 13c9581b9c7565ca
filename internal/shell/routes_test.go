package shell

import (
	"errors"
	"testing"

	"gatemaster/internal/domain"
)

func TestResolve(t *testing.T) {
	s := New(DefaultRoutes)
	cases := []struct {
		path          string
		authenticated bool
		route         string
		redirected    bool
	}{
		{"/", false, Landing, false},
		{"/login", false, Login, false},
		{"/information/", false, Information, false},
		{"/dashboard", true, Dashboard, false},
		{"/dashboard", false, Login, true},
		{"/challenge/attempt/17", false, Login, true},
		{"/no/such/page", true, Landing, true},
		{"/no/such/page", false, Landing, true},
		{"leaderboard", true, Leaderboard, false},
		{"/materials?subject=OS", true, Materials, false},
	}
	for _, tc := range cases {
		m := s.Resolve(tc.path, tc.authenticated)
		if m.Route.Name != tc.route || m.Redirected != tc.redirected {
			t.Fatalf("Resolve(%q, %v): expected %s redirected=%v, got %s redirected=%v",
				tc.path, tc.authenticated, tc.route, tc.redirected, m.Route.Name, m.Redirected)
		}
	}
}

func TestResolveVars(t *testing.T) {
	s := New(DefaultRoutes)
	m := s.Resolve("/practice/quiz/OS", true)
	if m.Route.Name != PracticeQuiz || m.Vars["subject"] != "OS" {
		t.Fatalf("unexpected match %+v", m)
	}
	m = s.Resolve("/verify/MQ/abc-123/", false)
	if m.Route.Name != Verify || m.Vars["uid"] != "MQ" || m.Vars["token"] != "abc-123" {
		t.Fatalf("unexpected match %+v", m)
	}
	if m.Path != "/verify/MQ/abc-123" {
		t.Fatalf("expected normalized path, got %q", m.Path)
	}
}

func TestRedirectPaths(t *testing.T) {
	s := New(DefaultRoutes)
	if m := s.Resolve("/analytics", false); m.Path != "/login" {
		t.Fatalf("expected /login, got %q", m.Path)
	}
	if m := s.Resolve("/nowhere", true); m.Path != "/" {
		t.Fatalf("expected /, got %q", m.Path)
	}
}

func TestGuard(t *testing.T) {
	s := New(DefaultRoutes)
	if err := s.Guard(Leaderboard, false); !errors.Is(err, domain.ErrNotAuthenticated) {
		t.Fatalf("expected ErrNotAuthenticated, got %v", err)
	}
	if err := s.Guard(Leaderboard, true); err != nil {
		t.Fatalf("expected access, got %v", err)
	}
	if err := s.Guard(Register, false); err != nil {
		t.Fatalf("public route guarded: %v", err)
	}
	if err := s.Guard("settings", true); !errors.Is(err, domain.ErrRouteNotFound) {
		t.Fatalf("expected ErrRouteNotFound, got %v", err)
	}
}

func TestURL(t *testing.T) {
	s := New(DefaultRoutes)
	got, err := s.URL(ChallengeResult, "attemptId", "42")
	if err != nil || got != "/challenge/result/42" {
		t.Fatalf("unexpected url %q (%v)", got, err)
	}
	if _, err := s.URL("missing"); !errors.Is(err, domain.ErrRouteNotFound) {
		t.Fatalf("expected ErrRouteNotFound, got %v", err)
	}
}
