package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// QuestionType is the answer shape a question expects.
type QuestionType string

const (
	// SingleSelect questions accept exactly one option key.
	SingleSelect QuestionType = "MCQ"
	// MultiSelect questions accept a set of option keys.
	MultiSelect QuestionType = "MSQ"
	// Numeric questions accept a numeric string.
	Numeric QuestionType = "NAT"
)

// Option is one labelled choice of a question.
type Option struct {
	Key  string `json:"key"`
	Text string `json:"text"`
}

// Options keeps choices in the order the server sent them.
// On the wire it is a JSON object such as {"A": "...", "B": "..."}.
type Options []Option

func (o *Options) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*o = nil
		return nil
	}
	// Some question banks store options as a JSON encoded string.
	if data[0] == '"' {
		var raw string
		if err := json.Unmarshal(data, &raw); err != nil {
			return err
		}
		if strings.TrimSpace(raw) == "" {
			*o = nil
			return nil
		}
		return o.UnmarshalJSON([]byte(raw))
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("options: expected object, got %v", tok)
	}
	out := Options{}
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		key, _ := keyTok.(string)
		var text string
		if err := dec.Decode(&text); err != nil {
			return fmt.Errorf("options %q: %w", key, err)
		}
		out = append(out, Option{Key: key, Text: text})
	}
	*o = out
	return nil
}

func (o Options) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, opt := range o {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, _ := json.Marshal(opt.Key)
		v, _ := json.Marshal(opt.Text)
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Has reports whether key is one of the offered choices.
func (o Options) Has(key string) bool {
	for _, opt := range o {
		if opt.Key == key {
			return true
		}
	}
	return false
}

// Keys returns the option keys in display order.
func (o Options) Keys() []string {
	keys := make([]string, len(o))
	for i, opt := range o {
		keys[i] = opt.Key
	}
	return keys
}

// Question is immutable once loaded into an attempt.
type Question struct {
	ID    int          `json:"id"`
	Type  QuestionType `json:"question_type"`
	Text  string       `json:"question_text"`
	Image string       `json:"question_image,omitempty"`
	// Options is empty for numeric questions.
	Options Options `json:"options,omitempty"`
	Marks   int     `json:"marks"`
}

// Key is the identifier used in answer mappings on the wire.
func (q Question) Key() string {
	return strconv.Itoa(q.ID)
}

// TokenPair is the access/refresh pair issued by the token endpoint.
type TokenPair struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}

// Empty reports whether no access token is held.
func (t TokenPair) Empty() bool {
	return t.Access == ""
}

// Identity is the user decoded from the access token claims.
type Identity struct {
	UserID    int       `json:"user_id"`
	Username  string    `json:"username,omitempty"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Credentials is the login form.
type Credentials struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// Registration is the sign-up form.
type Registration struct {
	Username  string `json:"username" validate:"required,max=150"`
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required,min=8"`
	Password2 string `json:"password2" validate:"required,eqfield=Password"`
}

// Theme is the persisted colour preference.
type Theme string

const (
	ThemeLight Theme = "light"
	ThemeDark  Theme = "dark"
)

// Toggle flips between light and dark.
func (t Theme) Toggle() Theme {
	if t == ThemeDark {
		return ThemeLight
	}
	return ThemeDark
}

// ParseTheme returns the theme named by s, defaulting to light.
func ParseTheme(s string) Theme {
	if Theme(strings.ToLower(strings.TrimSpace(s))) == ThemeDark {
		return ThemeDark
	}
	return ThemeLight
}

// RevealedAnswer is the server answer for a single question fetched mid-attempt.
type RevealedAnswer struct {
	CorrectAnswer string `json:"correct_answer"`
	Explanation   string `json:"explanation"`
}

// AttemptKind separates practice quizzes from timed challenges.
type AttemptKind string

const (
	KindPractice  AttemptKind = "practice"
	KindChallenge AttemptKind = "challenge"
)

// Submission is the formatted payload for a finished attempt.
type Submission struct {
	Kind AttemptKind `json:"-"`
	// AttemptID is set for challenges.
	AttemptID string `json:"attempt_id,omitempty"`
	// Subject is set for practice quizzes.
	Subject     string            `json:"subject,omitempty"`
	Answers     map[string]string `json:"answers"`
	QuestionIDs []int             `json:"question_ids"`
	RevealedIDs []int             `json:"revealed_ids"`
}

// ChallengeAttempt is returned when a challenge is started.
type ChallengeAttempt struct {
	ID        int        `json:"id"`
	Challenge int        `json:"challenge,omitempty"`
	Questions []Question `json:"questions"`
	StartTime time.Time  `json:"start_time"`
	Status    string     `json:"status,omitempty"`
}

// SubmittedAnswer is the user's answer as echoed back by the server.
// It may arrive as a string, a list of keys, a number or null.
type SubmittedAnswer string

func (s *SubmittedAnswer) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case len(data) == 0 || bytes.Equal(data, []byte("null")):
		*s = ""
	case data[0] == '"':
		var v string
		if err := json.Unmarshal(data, &v); err != nil {
			return err
		}
		*s = SubmittedAnswer(v)
	case data[0] == '[':
		var v []string
		if err := json.Unmarshal(data, &v); err != nil {
			return err
		}
		*s = SubmittedAnswer(strings.Join(v, ", "))
	default:
		*s = SubmittedAnswer(string(data))
	}
	return nil
}

// QuestionResult is the per-question breakdown of a scored attempt.
type QuestionResult struct {
	ID            int             `json:"id"`
	Text          string          `json:"question_text"`
	Image         string          `json:"question_image,omitempty"`
	Type          QuestionType    `json:"question_type,omitempty"`
	Options       Options         `json:"options,omitempty"`
	UserAnswer    SubmittedAnswer `json:"user_answer"`
	CorrectAnswer string          `json:"correct_answer"`
	Explanation   string          `json:"explanation"`
	IsCorrect     bool            `json:"is_correct"`
	WasRevealed   bool            `json:"was_revealed"`
}

// ScoredResult is supplied entirely by the server; the client never scores.
type ScoredResult struct {
	ChallengeTitle  string           `json:"challenge_title,omitempty"`
	Score           float64          `json:"score"`
	TotalMarks      float64          `json:"total_marks,omitempty"`
	CorrectCount    int              `json:"correct_count"`
	TotalQuestions  int              `json:"total_questions,omitempty"`
	PositiveMarks   float64          `json:"positive_marks"`
	NegativeMarks   float64          `json:"negative_marks"`
	DetailedResults []QuestionResult `json:"detailed_results"`
}

// Challenge is an entry of the challenge list.
type Challenge struct {
	ID          int    `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
}

// LeaderboardEntry is one ranked user.
type LeaderboardEntry struct {
	Rank     int     `json:"rank"`
	Username string  `json:"username"`
	Score    float64 `json:"score"`
}

// Leaderboard is the top rankings plus the caller's own rank, if any.
type Leaderboard struct {
	Entries  []LeaderboardEntry `json:"leaderboard"`
	UserRank *LeaderboardEntry  `json:"user_rank"`
}

// Material is a downloadable study resource.
type Material struct {
	ID          int    `json:"id"`
	Title       string `json:"title"`
	Subject     string `json:"subject"`
	Description string `json:"description,omitempty"`
	File        string `json:"file"`
}

// NewsArticle is an item of the information zone feed.
type NewsArticle struct {
	ID              int       `json:"id"`
	Title           string    `json:"title"`
	Link            string    `json:"link"`
	Description     string    `json:"description,omitempty"`
	PublicationDate time.Time `json:"publication_date"`
	Source          string    `json:"source"`
}

// Dashboard is the landing data for an authenticated user.
type Dashboard struct {
	Username string `json:"username"`
}

// SubjectPerformance is average accuracy per subject.
type SubjectPerformance struct {
	Subject     string  `json:"subject"`
	SubjectName string  `json:"subject_name"`
	AvgAccuracy float64 `json:"avg_accuracy"`
}

// SubjectCount is how many quizzes were taken per subject.
type SubjectCount struct {
	Subject     string `json:"subject"`
	SubjectName string `json:"subject_name"`
	Count       int    `json:"count"`
}

// QuizActivity is a recent practice result.
type QuizActivity struct {
	Subject    string    `json:"subject"`
	Score      int       `json:"score"`
	TotalMarks int       `json:"total_marks"`
	Timestamp  time.Time `json:"timestamp"`
}

// AnalyticsSummary backs the dashboard charts.
type AnalyticsSummary struct {
	OverallAccuracy     float64              `json:"overall_accuracy"`
	QuizzesTaken        int                  `json:"quizzes_taken"`
	SubjectPerformance  []SubjectPerformance `json:"subject_performance"`
	RecentActivity      []QuizActivity       `json:"recent_activity"`
	SubjectDistribution []SubjectCount       `json:"subject_distribution"`
}
