package api

import (
	"context"
	"strconv"

	"gatemaster/internal/domain"
)

// PracticeBackend submits practice quizzes and serves answer reveals.
type PracticeBackend struct {
	gw *Gateway
}

func NewPracticeBackend(gw *Gateway) *PracticeBackend {
	return &PracticeBackend{gw: gw}
}

func (b *PracticeBackend) RevealAnswer(ctx context.Context, questionID int) (domain.RevealedAnswer, error) {
	return b.gw.PracticeAnswer(ctx, questionID)
}

func (b *PracticeBackend) Submit(ctx context.Context, sub domain.Submission) (domain.ScoredResult, error) {
	return b.gw.SubmitPractice(ctx, sub)
}

// ChallengeBackend submits a challenge attempt and then fetches its result.
// Challenges never reveal answers.
type ChallengeBackend struct {
	gw *Gateway
}

func NewChallengeBackend(gw *Gateway) *ChallengeBackend {
	return &ChallengeBackend{gw: gw}
}

func (b *ChallengeBackend) RevealAnswer(context.Context, int) (domain.RevealedAnswer, error) {
	return domain.RevealedAnswer{}, domain.ErrRevealNotAllowed
}

func (b *ChallengeBackend) Submit(ctx context.Context, sub domain.Submission) (domain.ScoredResult, error) {
	ack, err := b.gw.SubmitChallenge(ctx, sub)
	if err != nil {
		return domain.ScoredResult{}, err
	}
	attemptID := sub.AttemptID
	if ack.AttemptID != 0 {
		attemptID = strconv.Itoa(ack.AttemptID)
	}
	res, err := b.gw.ChallengeResult(ctx, attemptID)
	if err != nil {
		// The submission is recorded and cannot be repeated; report the
		// acknowledged score and leave the breakdown for a later fetch.
		b.gw.log.Warn().Err(err).Str("attempt_id", attemptID).Msg("challenge submitted but result fetch failed")
		return domain.ScoredResult{Score: ack.Score, TotalQuestions: len(sub.QuestionIDs)}, nil
	}
	return res, nil
}
