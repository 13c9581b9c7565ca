package shell

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"gatemaster/internal/domain"
)

// Route names double as cobra command annotations.
const (
	Landing         = "landing"
	Login           = "login"
	Register        = "register"
	Verify          = "verify"
	Information     = "information"
	Dashboard       = "dashboard"
	Analytics       = "analytics"
	Practice        = "practice"
	PracticeQuiz    = "practice-quiz"
	Challenges      = "challenges"
	ChallengeRun    = "challenge-attempt"
	ChallengeResult = "challenge-result"
	Leaderboard     = "leaderboard"
	Materials       = "materials"
)

// Route is one entry of the navigation table.
type Route struct {
	Name      string
	Path      string
	Protected bool
}

// DefaultRoutes mirrors the views of the web client.
var DefaultRoutes = []Route{
	{Name: Landing, Path: "/"},
	{Name: Login, Path: "/login"},
	{Name: Register, Path: "/register"},
	{Name: Verify, Path: "/verify/{uid}/{token}"},
	{Name: Information, Path: "/information"},
	{Name: Dashboard, Path: "/dashboard", Protected: true},
	{Name: Analytics, Path: "/analytics", Protected: true},
	{Name: Practice, Path: "/practice", Protected: true},
	{Name: PracticeQuiz, Path: "/practice/quiz/{subject}", Protected: true},
	{Name: Challenges, Path: "/challenges", Protected: true},
	{Name: ChallengeRun, Path: "/challenge/attempt/{attemptId}", Protected: true},
	{Name: ChallengeResult, Path: "/challenge/result/{attemptId}", Protected: true},
	{Name: Leaderboard, Path: "/leaderboard", Protected: true},
	{Name: Materials, Path: "/materials", Protected: true},
}

// Match is the outcome of resolving a path against the table.
type Match struct {
	Route Route
	Vars  map[string]string
	// Path is where navigation ends up, which differs from the requested
	// path when Redirected is set.
	Path       string
	Redirected bool
}

// Shell resolves paths to routes and applies the login guard.
type Shell struct {
	router *mux.Router
	routes map[string]Route
}

func New(routes []Route) *Shell {
	s := &Shell{router: mux.NewRouter(), routes: make(map[string]Route, len(routes))}
	for _, r := range routes {
		s.router.NewRoute().Path(r.Path).Name(r.Name)
		s.routes[r.Name] = r
	}
	return s
}

// Lookup matches path without applying the guard.
func (s *Shell) Lookup(path string) (Route, map[string]string, error) {
	req, err := http.NewRequest(http.MethodGet, normalize(path), nil)
	if err != nil {
		return Route{}, nil, fmt.Errorf("%w: %s", domain.ErrRouteNotFound, path)
	}
	var m mux.RouteMatch
	if !s.router.Match(req, &m) || m.Route == nil {
		return Route{}, nil, fmt.Errorf("%w: %s", domain.ErrRouteNotFound, path)
	}
	return s.routes[m.Route.GetName()], m.Vars, nil
}

// Resolve applies the navigation rules: unknown paths land on the landing
// view and protected views send a logged-out user to login.
func (s *Shell) Resolve(path string, authenticated bool) Match {
	route, vars, err := s.Lookup(path)
	if err != nil {
		return s.redirect(Landing)
	}
	if route.Protected && !authenticated {
		return s.redirect(Login)
	}
	return Match{Route: route, Vars: vars, Path: normalize(path)}
}

// Guard resolves the named route for a caller and reports ErrNotAuthenticated
// when the guard redirected it to login.
func (s *Shell) Guard(name string, authenticated bool) error {
	route, ok := s.routes[name]
	if !ok {
		return fmt.Errorf("%w: %s", domain.ErrRouteNotFound, name)
	}
	if route.Protected && !authenticated {
		return domain.ErrNotAuthenticated
	}
	return nil
}

// URL builds the path of a named route from variable pairs.
func (s *Shell) URL(name string, pairs ...string) (string, error) {
	r := s.router.Get(name)
	if r == nil {
		return "", fmt.Errorf("%w: %s", domain.ErrRouteNotFound, name)
	}
	u, err := r.URL(pairs...)
	if err != nil {
		return "", err
	}
	return u.Path, nil
}

// Route returns the table entry for name.
func (s *Shell) Route(name string) (Route, bool) {
	r, ok := s.routes[name]
	return r, ok
}

func (s *Shell) redirect(name string) Match {
	r := s.routes[name]
	return Match{Route: r, Vars: map[string]string{}, Path: r.Path, Redirected: true}
}

func normalize(path string) string {
	path = strings.TrimSpace(path)
	if i := strings.IndexAny(path, "?#"); i >= 0 {
		path = path[:i]
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	if len(path) > 1 {
		path = strings.TrimRight(path, "/")
		if path == "" {
			path = "/"
		}
	}
	return path
}
