package render

import (
	"fmt"

	"gatemaster/internal/app"
	"gatemaster/internal/domain"
)

// Result renders a scored result: totals first, then the per-question breakdown.
func (r *Renderer) Result(res domain.ScoredResult) {
	sum := app.Summarize(res)

	title := "Quiz Results"
	if sum.Title != "" {
		title = "Results: " + sum.Title
	}
	r.heading(title)

	score := number(sum.Score)
	if sum.TotalMarks > 0 {
		score += " / " + number(sum.TotalMarks)
	}
	r.printf("Score: %s\n", r.st.accent.Sprint(score))
	if sum.PositiveMarks != 0 || sum.NegativeMarks != 0 {
		r.printf("Marks: %s  %s\n",
			r.st.good.Sprintf("+%s", number(sum.PositiveMarks)),
			r.st.bad.Sprintf("-%s", number(sum.NegativeMarks)))
	}
	r.printf("Attempted: %d  %s  %s",
		sum.Attempted,
		r.st.good.Sprintf("Correct: %d", sum.Correct),
		r.st.bad.Sprintf("Incorrect: %d", sum.Incorrect))
	if sum.Revealed > 0 {
		r.printf("  %s", r.st.warn.Sprintf("Revealed: %d", sum.Revealed))
	}
	r.printf("\n")

	if len(res.DetailedResults) == 0 {
		return
	}
	r.printf("\n")
	for i, d := range res.DetailedResults {
		r.questionResult(i, d)
	}
}

func (r *Renderer) questionResult(i int, d domain.QuestionResult) {
	var verdict string
	switch {
	case d.WasRevealed:
		verdict = r.st.warn.Sprint("revealed (not scored)")
	case d.IsCorrect:
		verdict = r.st.good.Sprint("correct")
	case d.UserAnswer == "":
		verdict = r.st.muted.Sprint("not answered")
	default:
		verdict = r.st.bad.Sprint("incorrect")
	}
	r.printf("%s %s\n", r.st.title.Sprintf("Q%d.", i+1), verdict)
	if d.Text != "" {
		r.printf("  %s\n", d.Text)
	}
	for _, opt := range d.Options {
		r.printf("  %s. %s\n", opt.Key, opt.Text)
	}

	answer := string(d.UserAnswer)
	if answer == "" {
		answer = "-"
	}
	r.printf("  Your answer: %s  Correct answer: %s\n", answer, d.CorrectAnswer)
	if d.Explanation != "" {
		r.printf("  %s %s\n", r.st.muted.Sprint("Explanation:"), d.Explanation)
	}
}

// Submitted is the short confirmation printed before the result.
func (r *Renderer) Submitted(kind domain.AttemptKind, auto bool) {
	what := "Quiz"
	if kind == domain.KindChallenge {
		what = "Challenge"
	}
	if auto {
		r.printf("%s\n", r.st.warn.Sprint(fmt.Sprintf("Time is up. %s submitted automatically.", what)))
		return
	}
	r.Success("%s submitted.", what)
}
