package app

import "gatemaster/internal/domain"

// ResultSummary holds the display counts derived from a scored result.
// Revealed questions are left out of Attempted, Correct and Incorrect.
type ResultSummary struct {
	Title         string
	Score         float64
	TotalMarks    float64
	PositiveMarks float64
	NegativeMarks float64

	Total     int
	Revealed  int
	Attempted int
	Correct   int
	Incorrect int
	// Unanswered is the part of Incorrect with no submitted answer.
	Unanswered int
}

// Summarize derives display counts from a server result without rescoring it.
func Summarize(res domain.ScoredResult) ResultSummary {
	sum := ResultSummary{
		Title:         res.ChallengeTitle,
		Score:         res.Score,
		TotalMarks:    res.TotalMarks,
		PositiveMarks: res.PositiveMarks,
		NegativeMarks: res.NegativeMarks,
	}

	if len(res.DetailedResults) == 0 {
		sum.Total = res.TotalQuestions
		sum.Attempted = res.TotalQuestions
		sum.Correct = res.CorrectCount
		sum.Incorrect = clampZero(sum.Attempted - sum.Correct)
		return sum
	}

	sum.Total = len(res.DetailedResults)
	for _, d := range res.DetailedResults {
		if d.WasRevealed {
			sum.Revealed++
			continue
		}
		if d.IsCorrect {
			sum.Correct++
		}
		if d.UserAnswer == "" {
			sum.Unanswered++
		}
	}
	sum.Attempted = sum.Total - sum.Revealed
	sum.Incorrect = clampZero(sum.Attempted - sum.Correct)
	return sum
}

func clampZero(n int) int {
	if n < 0 {
		return 0
	}
	return n
}
