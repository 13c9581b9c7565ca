package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/golang-jwt/jwt/v5"

	"gatemaster/internal/domain"
)

type fakeAPI struct {
	*http.ServeMux
	submitted domain.Submission

	starts          atomic.Int32
	startedID       int
	challengeAnswer struct {
		AttemptID   string            `json:"attempt_id"`
		Answers     map[string]string `json:"answers"`
		QuestionIDs []int             `json:"question_ids"`
	}
}

func newFakeAPI(t *testing.T) *fakeAPI {
	t.Helper()
	api := &fakeAPI{ServeMux: http.NewServeMux()}
	access := func() string {
		token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
			"user_id":  3,
			"username": "asha",
			"exp":      time.Now().Add(5 * time.Minute).Unix(),
		})
		signed, err := token.SignedString([]byte("cli"))
		if err != nil {
			t.Errorf("sign: %v", err)
		}
		return signed
	}
	api.HandleFunc("POST /token/", func(w http.ResponseWriter, r *http.Request) {
		var creds domain.Credentials
		_ = json.NewDecoder(r.Body).Decode(&creds)
		if creds.Password != "pw" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"detail":"No active account found with the given credentials"}`))
			return
		}
		respond(w, domain.TokenPair{Access: access(), Refresh: "r1"})
	})
	api.HandleFunc("POST /token/refresh/", func(w http.ResponseWriter, r *http.Request) {
		respond(w, map[string]string{"access": access()})
	})
	api.HandleFunc("GET /leaderboard/", func(w http.ResponseWriter, r *http.Request) {
		respond(w, domain.Leaderboard{
			Entries:  []domain.LeaderboardEntry{{Rank: 1, Username: "ravi", Score: 71.5}},
			UserRank: &domain.LeaderboardEntry{Rank: 14, Username: "asha", Score: 40},
		})
	})
	api.HandleFunc("GET /practice/quiz/{subject}/", func(w http.ResponseWriter, r *http.Request) {
		if r.PathValue("subject") != "OS" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte(`[
			{"id":11,"question_type":"MCQ","question_text":"Which scheduler is preemptive?","options":{"A":"FCFS","B":"Round robin"},"marks":1},
			{"id":12,"question_type":"NAT","question_text":"Page size in KB?","marks":2}
		]`))
	})
	api.HandleFunc("POST /practice/submit/", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&api.submitted)
		respond(w, domain.ScoredResult{
			Score: 1, TotalMarks: 3, CorrectCount: 1, TotalQuestions: 2, PositiveMarks: 1,
			DetailedResults: []domain.QuestionResult{
				{ID: 11, UserAnswer: "B", CorrectAnswer: "B", IsCorrect: true},
				{ID: 12, UserAnswer: "", CorrectAnswer: "4"},
			},
		})
	})
	api.HandleFunc("GET /challenges/", func(w http.ResponseWriter, r *http.Request) {
		respond(w, []domain.Challenge{{ID: 9, Title: "Full mock 9", Description: "65 questions"}})
	})
	api.HandleFunc("POST /challenges/start/", func(w http.ResponseWriter, r *http.Request) {
		api.starts.Add(1)
		var body struct {
			ChallengeID int `json:"challenge_id"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		api.startedID = body.ChallengeID
		_, _ = w.Write([]byte(`{
			"id": 42, "challenge": 9, "status": "IN_PROGRESS",
			"start_time": "` + time.Now().Add(-30*time.Minute).UTC().Format(time.RFC3339) + `",
			"questions": [
				{"id":21,"question_type":"MSQ","question_text":"Which are deadlock conditions?","options":{"A":"Mutual exclusion","B":"Preemption","C":"Circular wait"},"marks":2},
				{"id":22,"question_type":"NAT","question_text":"Number of page faults?","marks":1}
			]
		}`))
	})
	api.HandleFunc("POST /challenges/submit/", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&api.challengeAnswer)
		respond(w, map[string]any{"attempt_id": 42, "score": 3})
	})
	api.HandleFunc("GET /challenges/result/{id}/", func(w http.ResponseWriter, r *http.Request) {
		if r.PathValue("id") != "42" {
			http.NotFound(w, r)
			return
		}
		respond(w, domain.ScoredResult{
			ChallengeTitle: "Full mock 9",
			Score:          3, TotalMarks: 3, CorrectCount: 2, PositiveMarks: 3,
			DetailedResults: []domain.QuestionResult{
				{ID: 21, UserAnswer: "AC", CorrectAnswer: "AC", IsCorrect: true},
				{ID: 22, UserAnswer: "7", CorrectAnswer: "7", IsCorrect: true},
			},
		})
	})
	return api
}

func respond(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

// harness runs the root command against a fake backend with a session file
// in a temp dir.
type harness struct {
	t      *testing.T
	config string
	api    *fakeAPI
}

// newHarness writes a config pointing at a fake backend; extra YAML sections
// are appended as given.
func newHarness(t *testing.T, extra ...string) *harness {
	t.Helper()
	for _, key := range []string{"GATEMASTER_CONFIG", "GATEMASTER_API_URL", "GATEMASTER_STORE", "GATEMASTER_REDIS_URL", "GATEMASTER_WATCH_ADDR", "GATEMASTER_LOG_LEVEL", "GATEMASTER_LOG_FORMAT"} {
		t.Setenv(key, "")
	}
	api := newFakeAPI(t)
	server := httptest.NewServer(api)
	t.Cleanup(server.Close)

	dir := t.TempDir()
	cfg := "api:\n  base_url: " + server.URL + "\n" +
		"session:\n  path: " + filepath.Join(dir, "session.json") + "\n" +
		"log:\n  level: error\n" +
		strings.Join(extra, "")
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(cfg), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return &harness{t: t, config: path, api: api}
}

func (h *harness) run(stdin string, args ...string) (string, error) {
	h.t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var out, errOut bytes.Buffer
	cmd, opts := newRootCmd()
	cmd.SetArgs(append([]string{"--config", h.config}, args...))
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	err := execute(ctx, cmd, opts)
	return out.String(), err
}

func (h *harness) login() {
	h.t.Helper()
	if out, err := h.run("pw\n", "login", "-u", "asha"); err != nil {
		h.t.Fatalf("login: %v\n%s", err, out)
	}
}

func TestLoginStoresSession(t *testing.T) {
	h := newHarness(t)
	out, err := h.run("pw\n", "login", "-u", "asha")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if !strings.Contains(out, "Logged in as asha.") {
		t.Fatalf("unexpected output %q", out)
	}

	out, err = h.run("", "leaderboard")
	if err != nil {
		t.Fatalf("leaderboard: %v", err)
	}
	if !strings.Contains(out, "ravi") || !strings.Contains(out, "Your rank: #14 with 40") {
		t.Fatalf("unexpected leaderboard %q", out)
	}
}

func TestLoginRejected(t *testing.T) {
	h := newHarness(t)
	out, err := h.run("wrong\n", "login", "-u", "asha")
	if !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Fatalf("expected invalid credentials, got %v", err)
	}
	if !strings.Contains(out, "invalid credentials") {
		t.Fatalf("expected inline error, got %q", out)
	}
}

func TestLoginRequiresPassword(t *testing.T) {
	h := newHarness(t)
	_, err := h.run("\n", "login", "-u", "asha")
	if err == nil || !strings.Contains(err.Error(), "password") {
		t.Fatalf("expected password validation error, got %v", err)
	}
}

func TestProtectedCommandNeedsLogin(t *testing.T) {
	h := newHarness(t)
	_, err := h.run("", "dashboard")
	if !errors.Is(err, domain.ErrNotAuthenticated) {
		t.Fatalf("expected not authenticated, got %v", err)
	}
}

func TestOpenUnknownPathShowsLanding(t *testing.T) {
	h := newHarness(t)
	out, err := h.run("", "open", "/nowhere")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if !strings.Contains(out, "/nowhere -> /") || !strings.Contains(out, "Welcome to GATE Master") {
		t.Fatalf("unexpected output %q", out)
	}
}

func TestOpenProtectedPathRedirectsToLogin(t *testing.T) {
	h := newHarness(t)
	out, err := h.run("asha\npw\n", "open", "/leaderboard")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if !strings.Contains(out, "/leaderboard -> /login") || !strings.Contains(out, "Logged in as asha.") {
		t.Fatalf("unexpected output %q", out)
	}
}

func TestThemeToggle(t *testing.T) {
	h := newHarness(t)
	out, err := h.run("", "theme", "toggle")
	if err != nil {
		t.Fatalf("theme: %v", err)
	}
	if !strings.Contains(out, "Theme: dark") {
		t.Fatalf("unexpected output %q", out)
	}
	out, err = h.run("", "theme")
	if err != nil {
		t.Fatalf("theme: %v", err)
	}
	if !strings.Contains(out, "Theme: dark") {
		t.Fatalf("theme not persisted: %q", out)
	}
}

func TestQuizRunsToSubmission(t *testing.T) {
	h := newHarness(t)
	h.login()

	out, err := h.run("a b\nm\ng 1\nsubmit\n", "quiz", "os")
	if err != nil {
		t.Fatalf("quiz: %v\n%s", err, out)
	}
	for _, want := range []string{"Operating Systems Quiz", "Quiz submitted.", "Score: 1 / 3"} {
		if !strings.Contains(out, want) {
			t.Fatalf("missing %q in output:\n%s", want, out)
		}
	}
	if h.api.submitted.Answers["11"] != "B" {
		t.Fatalf("unexpected answers %v", h.api.submitted.Answers)
	}
	if h.api.submitted.Subject != "OS" || len(h.api.submitted.QuestionIDs) != 2 {
		t.Fatalf("unexpected submission %+v", h.api.submitted)
	}
}

func TestQuizAbandonedOnEOF(t *testing.T) {
	h := newHarness(t)
	h.login()

	_, err := h.run("n\n", "quiz", "OS")
	if !errors.Is(err, errAbandoned) {
		t.Fatalf("expected abandoned, got %v", err)
	}
}

func TestQuizUnknownSubject(t *testing.T) {
	h := newHarness(t)
	h.login()

	_, err := h.run("", "quiz", "XYZ")
	if !errors.Is(err, domain.ErrUnknownSubject) {
		t.Fatalf("expected unknown subject, got %v", err)
	}
}

func TestChallengeRunsToResult(t *testing.T) {
	h := newHarness(t)
	h.login()

	out, err := h.run("y\na AC\nn\na 7\nsubmit\n", "challenges", "start", "9")
	if err != nil {
		t.Fatalf("challenge: %v\n%s", err, out)
	}
	for _, want := range []string{
		"3 hours timed test",
		"Challenge attempt #42",
		"Time left: 180:00",
		"Challenge submitted.",
		"Results: Full mock 9",
		"Score: 3 / 3",
		"Result kept at /challenge/result/42",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("missing %q in output:\n%s", want, out)
		}
	}
	if h.api.startedID != 9 || h.api.starts.Load() != 1 {
		t.Fatalf("expected one start of challenge 9, got id=%d starts=%d", h.api.startedID, h.api.starts.Load())
	}
	got := h.api.challengeAnswer
	if got.AttemptID != "42" || got.Answers["21"] != "AC" || got.Answers["22"] != "7" || len(got.QuestionIDs) != 2 {
		t.Fatalf("unexpected challenge submission %+v", got)
	}

	out, err = h.run("", "challenges", "result", "42")
	if err != nil {
		t.Fatalf("result: %v", err)
	}
	if !strings.Contains(out, "Results: Full mock 9") {
		t.Fatalf("unexpected result output %q", out)
	}
}

func TestChallengeDeclinedDoesNotStart(t *testing.T) {
	h := newHarness(t)
	h.login()

	out, err := h.run("n\n", "challenges", "start", "9")
	if err != nil {
		t.Fatalf("challenge: %v", err)
	}
	if !strings.Contains(out, "Not started.") || h.api.starts.Load() != 0 {
		t.Fatalf("expected no start, got starts=%d output %q", h.api.starts.Load(), out)
	}
}

func TestChallengeDurationIgnoresServerStartTime(t *testing.T) {
	h := newHarness(t, "challenge:\n  duration: 45m\n")
	h.login()

	out, err := h.run("q\n", "challenges", "start", "9", "--yes")
	if !errors.Is(err, errAbandoned) {
		t.Fatalf("expected abandoned, got %v", err)
	}
	if !strings.Contains(out, "Time left: 45:00") {
		t.Fatalf("expected the configured duration, got:\n%s", out)
	}
}

func TestBusyWatchAddrFailsBeforeStart(t *testing.T) {
	busy, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer busy.Close()

	h := newHarness(t, "watch:\n  addr: "+busy.Addr().String()+"\n")
	h.login()

	out, err := h.run("a AC\nsubmit\n", "challenges", "start", "9", "--yes")
	if err == nil || !strings.Contains(err.Error(), "watch server") {
		t.Fatalf("expected watch server error, got %v", err)
	}
	if n := h.api.starts.Load(); n != 0 {
		t.Fatalf("challenge must not start when the watch port is busy, starts=%d", n)
	}
	if !strings.Contains(out, "error: watch server") {
		t.Fatalf("expected inline error, got %q", out)
	}
}

func TestFailedCommandReleasesRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	h := newHarness(t)
	t.Setenv("GATEMASTER_STORE", "redis")
	t.Setenv("GATEMASTER_REDIS_URL", "redis://"+mr.Addr())

	if _, err := h.run("", "dashboard"); !errors.Is(err, domain.ErrNotAuthenticated) {
		t.Fatalf("expected not authenticated, got %v", err)
	}
	deadline := time.Now().Add(2 * time.Second)
	for mr.CurrentConnectionCount() > 0 {
		if time.Now().After(deadline) {
			t.Fatalf("redis connection still open after failed command: %d", mr.CurrentConnectionCount())
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestParseAnswer(t *testing.T) {
	msq := domain.Question{ID: 1, Type: domain.MultiSelect, Options: domain.Options{
		{Key: "A", Text: "one"}, {Key: "B", Text: "two"}, {Key: "C", Text: "three"},
	}}
	mcq := domain.Question{ID: 2, Type: domain.SingleSelect, Options: msq.Options}
	nat := domain.Question{ID: 3, Type: domain.Numeric}

	tests := []struct {
		name string
		q    domain.Question
		raw  string
		want domain.Answer
	}{
		{"msq packed", msq, "ac", domain.ChooseMany("A", "C")},
		{"msq spaced", msq, "A C", domain.ChooseMany("A", "C")},
		{"msq commas", msq, "c,b", domain.ChooseMany("B", "C")},
		{"mcq lower", mcq, "b", domain.Choose("B")},
		{"nat", nat, " 2.5 ", domain.NumericValue("2.5")},
		{"empty clears", nat, "  ", domain.Answer{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := parseAnswer(tt.q, tt.raw)
			if got.Canonical() != tt.want.Canonical() || got.Empty() != tt.want.Empty() {
				t.Fatalf("parseAnswer(%q) = %q, want %q", tt.raw, got.Canonical(), tt.want.Canonical())
			}
		})
	}
}

func TestHumanDuration(t *testing.T) {
	tests := map[time.Duration]string{
		time.Hour:        "1 hour",
		3 * time.Hour:    "3 hours",
		90 * time.Minute: "1h30m",
		30 * time.Minute: "30m",
	}
	for d, want := range tests {
		if got := humanDuration(d); got != want {
			t.Fatalf("humanDuration(%v) = %q, want %q", d, got, want)
		}
	}
}
