package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"gatemaster/internal/domain"
)

type detailResponse struct {
	Detail string `json:"detail"`
}

// ObtainToken exchanges credentials for a token pair. A 4xx means wrong
// credentials or an account whose email is not verified yet.
func (g *Gateway) ObtainToken(ctx context.Context, creds domain.Credentials) (domain.TokenPair, error) {
	var tokens domain.TokenPair
	err := g.doPublic(ctx, http.MethodPost, "/token/", creds, &tokens)
	if code := StatusCode(err); code >= 400 && code < 500 {
		return domain.TokenPair{}, fmt.Errorf("%w: %w", domain.ErrInvalidCredentials, err)
	}
	if err != nil {
		return domain.TokenPair{}, err
	}
	return tokens, nil
}

// RefreshToken trades the refresh token for a new pair. Any 4xx is a
// permanent rejection; 5xx and transport failures are left unwrapped.
func (g *Gateway) RefreshToken(ctx context.Context, refresh string) (domain.TokenPair, error) {
	var tokens domain.TokenPair
	err := g.doPublic(ctx, http.MethodPost, "/token/refresh/", map[string]string{"refresh": refresh}, &tokens)
	if code := StatusCode(err); code >= 400 && code < 500 {
		return domain.TokenPair{}, fmt.Errorf("%w: %w", domain.ErrTokenRejected, err)
	}
	if err != nil {
		return domain.TokenPair{}, err
	}
	return tokens, nil
}

// Register creates an inactive account and returns the server message.
func (g *Gateway) Register(ctx context.Context, reg domain.Registration) (string, error) {
	var resp detailResponse
	if err := g.doPublic(ctx, http.MethodPost, "/register/", reg, &resp); err != nil {
		return "", err
	}
	return resp.Detail, nil
}

// VerifyEmail follows an emailed verification link.
func (g *Gateway) VerifyEmail(ctx context.Context, uid, token string) (string, error) {
	var resp detailResponse
	path := "/verify/" + url.PathEscape(uid) + "/" + url.PathEscape(token) + "/"
	if err := g.doPublic(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return "", err
	}
	return resp.Detail, nil
}

func (g *Gateway) Dashboard(ctx context.Context) (domain.Dashboard, error) {
	var out domain.Dashboard
	err := g.do(ctx, http.MethodGet, "/dashboard/", nil, nil, &out)
	return out, err
}

func (g *Gateway) AnalyticsSummary(ctx context.Context) (domain.AnalyticsSummary, error) {
	var out domain.AnalyticsSummary
	err := g.do(ctx, http.MethodGet, "/analytics/summary/", nil, nil, &out)
	return out, err
}

// PracticeQuestions draws a practice question set for a subject code.
func (g *Gateway) PracticeQuestions(ctx context.Context, subject string) ([]domain.Question, error) {
	var out []domain.Question
	err := g.do(ctx, http.MethodGet, "/practice/quiz/"+url.PathEscape(subject)+"/", nil, nil, &out)
	return out, err
}

func (g *Gateway) PracticeAnswer(ctx context.Context, questionID int) (domain.RevealedAnswer, error) {
	var out domain.RevealedAnswer
	err := g.do(ctx, http.MethodGet, "/practice/question/"+strconv.Itoa(questionID)+"/answer/", nil, nil, &out)
	return out, err
}

// SubmitPractice posts a practice submission; the scored result comes back inline.
func (g *Gateway) SubmitPractice(ctx context.Context, sub domain.Submission) (domain.ScoredResult, error) {
	body := struct {
		Subject     string            `json:"subject"`
		Answers     map[string]string `json:"answers"`
		QuestionIDs []int             `json:"question_ids"`
		RevealedIDs []int             `json:"revealed_ids"`
	}{sub.Subject, sub.Answers, sub.QuestionIDs, sub.RevealedIDs}

	var out domain.ScoredResult
	err := g.do(ctx, http.MethodPost, "/practice/submit/", nil, body, &out)
	return out, err
}

func (g *Gateway) Challenges(ctx context.Context) ([]domain.Challenge, error) {
	var out []domain.Challenge
	err := g.do(ctx, http.MethodGet, "/challenges/", nil, nil, &out)
	return out, err
}

// StartChallenge opens a server-side attempt and returns its questions.
func (g *Gateway) StartChallenge(ctx context.Context, challengeID int) (domain.ChallengeAttempt, error) {
	var out domain.ChallengeAttempt
	err := g.do(ctx, http.MethodPost, "/challenges/start/", nil, map[string]int{"challenge_id": challengeID}, &out)
	return out, err
}

// ChallengeSubmitted is the acknowledgement of a challenge submission.
type ChallengeSubmitted struct {
	AttemptID int     `json:"attempt_id"`
	Score     float64 `json:"score"`
}

// SubmitChallenge posts the answers of a challenge attempt. The scored
// breakdown has to be fetched with ChallengeResult.
func (g *Gateway) SubmitChallenge(ctx context.Context, sub domain.Submission) (ChallengeSubmitted, error) {
	body := struct {
		AttemptID   string            `json:"attempt_id"`
		Answers     map[string]string `json:"answers"`
		QuestionIDs []int             `json:"question_ids"`
		RevealedIDs []int             `json:"revealed_ids"`
	}{sub.AttemptID, sub.Answers, sub.QuestionIDs, sub.RevealedIDs}

	var out ChallengeSubmitted
	err := g.do(ctx, http.MethodPost, "/challenges/submit/", nil, body, &out)
	return out, err
}

func (g *Gateway) ChallengeResult(ctx context.Context, attemptID string) (domain.ScoredResult, error) {
	var out domain.ScoredResult
	err := g.do(ctx, http.MethodGet, "/challenges/result/"+url.PathEscape(attemptID)+"/", nil, nil, &out)
	return out, err
}

func (g *Gateway) Leaderboard(ctx context.Context) (domain.Leaderboard, error) {
	var out domain.Leaderboard
	err := g.do(ctx, http.MethodGet, "/leaderboard/", nil, nil, &out)
	return out, err
}

// Materials lists study material; an empty subject lists everything.
func (g *Gateway) Materials(ctx context.Context, subject string) ([]domain.Material, error) {
	var query url.Values
	if subject != "" {
		query = url.Values{"subject": {subject}}
	}
	var out []domain.Material
	err := g.do(ctx, http.MethodGet, "/materials/", query, nil, &out)
	return out, err
}

// News is public; the token is still attached when one is held.
func (g *Gateway) News(ctx context.Context) ([]domain.NewsArticle, error) {
	var out []domain.NewsArticle
	err := g.do(ctx, http.MethodGet, "/information/news/", nil, nil, &out)
	return out, err
}
