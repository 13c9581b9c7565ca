package app

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"gatemaster/internal/domain"
)

// AttemptState is the lifecycle stage of an attempt.
type AttemptState string

const (
	StateLoading    AttemptState = "loading"
	StateActive     AttemptState = "active"
	StateSubmitting AttemptState = "submitting"
	StateSubmitted  AttemptState = "submitted"
	StateError      AttemptState = "error"
)

// AttemptBackend is the server side of one attempt kind.
type AttemptBackend interface {
	RevealAnswer(ctx context.Context, questionID int) (domain.RevealedAnswer, error)
	Submit(ctx context.Context, submission domain.Submission) (domain.ScoredResult, error)
}

// AttemptConfig parametrises the attempt machine for practice or challenge use.
type AttemptConfig struct {
	Kind domain.AttemptKind
	// ID is the server attempt id for challenges.
	ID string
	// Subject is the subject code for practice quizzes.
	Subject     string
	Duration    time.Duration
	AllowReveal bool
	// TickInterval defaults to one second.
	TickInterval time.Duration

	// Ticks and Now replace the wall clock in tests.
	Ticks <-chan time.Time
	Now   func() time.Time
}

// QuestionState is one palette cell of a snapshot.
type QuestionState struct {
	ID       int           `json:"id"`
	Status   domain.Status `json:"status"`
	Answer   string        `json:"answer,omitempty"`
	Revealed bool          `json:"revealed"`
}

// AttemptSnapshot is a point-in-time copy of the attempt, safe to share.
type AttemptSnapshot struct {
	Instance         string             `json:"instance"`
	Kind             domain.AttemptKind `json:"kind"`
	State            AttemptState       `json:"state"`
	Position         int                `json:"position"`
	Total            int                `json:"total"`
	RemainingSeconds int                `json:"remaining_seconds"`
	Questions        []QuestionState    `json:"questions"`
	Error            string             `json:"error,omitempty"`
}

// Remaining converts RemainingSeconds back to a duration.
func (s AttemptSnapshot) Remaining() time.Duration {
	return time.Duration(s.RemainingSeconds) * time.Second
}

// Attempt is the timed question-answering state machine shared by practice
// quizzes and challenges. All methods are safe for concurrent use.
type Attempt struct {
	cfg      AttemptConfig
	backend  AttemptBackend
	log      zerolog.Logger
	instance string

	ctx    context.Context
	cancel context.CancelFunc

	reveals singleflight.Group

	mu            sync.Mutex
	state         AttemptState
	questions     []domain.Question
	positions     map[int]int
	position      int
	answers       map[int]domain.Answer
	statuses      map[int]domain.Status
	revealed      map[int]domain.RevealedAnswer
	result        *domain.ScoredResult
	lastErr       error
	remaining     time.Duration
	autoSubmitted bool
	closed        bool
	countdown     *Countdown
	subscribers   map[chan AttemptSnapshot]struct{}
	done          chan struct{}
	doneOnce      sync.Once
}

func NewAttempt(cfg AttemptConfig, backend AttemptBackend, log zerolog.Logger) *Attempt {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = time.Second
	}
	instance := uuid.NewString()
	ctx, cancel := context.WithCancel(context.Background())
	return &Attempt{
		cfg:      cfg,
		backend:  backend,
		instance: instance,
		log: log.With().
			Str("component", "attempt").
			Str("kind", string(cfg.Kind)).
			Str("instance", instance).
			Logger(),
		ctx:         ctx,
		cancel:      cancel,
		state:       StateLoading,
		positions:   make(map[int]int),
		answers:     make(map[int]domain.Answer),
		statuses:    make(map[int]domain.Status),
		revealed:    make(map[int]domain.RevealedAnswer),
		remaining:   cfg.Duration,
		subscribers: make(map[chan AttemptSnapshot]struct{}),
		done:        make(chan struct{}),
	}
}

// Instance is the local id of this attempt, unrelated to any server id.
func (a *Attempt) Instance() string { return a.instance }

// Config returns the parameters the attempt was built with.
func (a *Attempt) Config() AttemptConfig { return a.cfg }

// Begin loads the question set and starts the countdown. An empty set moves
// the attempt to the error state.
func (a *Attempt) Begin(questions []domain.Question) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.state != StateLoading {
		return domain.ErrNotActive
	}
	if len(questions) == 0 {
		a.failLocked(domain.ErrNoQuestions)
		return domain.ErrNoQuestions
	}

	a.questions = make([]domain.Question, len(questions))
	copy(a.questions, questions)
	flagged := false
	for i, q := range a.questions {
		a.positions[q.ID] = i
		a.statuses[q.ID] = domain.StatusNotVisited
		if q.Type == domain.MultiSelect && !flagged && domain.AmbiguousKeys(q.Options.Keys()) {
			flagged = true
			a.log.Warn().Int("question_id", q.ID).Strs("keys", q.Options.Keys()).
				Msg("option keys are not single letters; canonical answers may collide")
		}
	}
	a.position = 0
	a.statuses[a.questions[0].ID] = a.statuses[a.questions[0].ID].Visit()
	a.state = StateActive

	deadline := a.cfg.Now().Add(a.cfg.Duration)
	a.remaining = a.cfg.Duration
	a.countdown = NewCountdown(deadline, a.cfg.Duration, a.cfg.TickInterval, a.onTick, a.autoSubmit)
	if a.cfg.Ticks != nil {
		go a.countdown.Drive(a.cfg.Ticks)
	} else {
		a.countdown.Start()
	}

	a.log.Debug().Int("questions", len(a.questions)).Dur("duration", a.cfg.Duration).Msg("attempt started")
	a.broadcastLocked()
	return nil
}

// Fail moves a loading attempt to the error state, e.g. when the question
// set could not be fetched.
func (a *Attempt) Fail(err error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.state != StateLoading {
		return
	}
	a.failLocked(err)
}

func (a *Attempt) failLocked(err error) {
	a.state = StateError
	a.lastErr = err
	a.broadcastLocked()
	a.finishLocked()
}

// GoTo makes the question at index active. Out-of-range indexes are rejected
// and leave the position unchanged.
func (a *Attempt) GoTo(index int) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.state != StateActive {
		return domain.ErrNotActive
	}
	return a.goToLocked(index)
}

func (a *Attempt) goToLocked(index int) error {
	if index < 0 || index >= len(a.questions) {
		return fmt.Errorf("%w: %d not in [0, %d)", domain.ErrOutOfRange, index, len(a.questions))
	}
	a.position = index
	id := a.questions[index].ID
	a.statuses[id] = a.statuses[id].Visit()
	a.broadcastLocked()
	return nil
}

func (a *Attempt) Next() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.state != StateActive {
		return domain.ErrNotActive
	}
	return a.goToLocked(a.position + 1)
}

func (a *Attempt) Prev() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.state != StateActive {
		return domain.ErrNotActive
	}
	return a.goToLocked(a.position - 1)
}

// SaveAndNext advances to the next question unless the current one is last.
// Answers are recorded as they are entered, so there is nothing else to save.
func (a *Attempt) SaveAndNext() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.state != StateActive {
		return domain.ErrNotActive
	}
	if a.position < len(a.questions)-1 {
		return a.goToLocked(a.position + 1)
	}
	return nil
}

// MarkForReviewAndNext marks the current question and advances unless it is last.
func (a *Attempt) MarkForReviewAndNext() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.state != StateActive {
		return domain.ErrNotActive
	}
	id := a.questions[a.position].ID
	a.statuses[id] = a.statuses[id].Mark()
	if a.position < len(a.questions)-1 {
		return a.goToLocked(a.position + 1)
	}
	a.broadcastLocked()
	return nil
}

// SetAnswer records an answer for questionID. An empty answer clears the response.
func (a *Attempt) SetAnswer(questionID int, answer domain.Answer) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	q, err := a.editableLocked(questionID)
	if err != nil {
		return err
	}
	if answer.Empty() {
		a.clearLocked(questionID)
		return nil
	}
	if err := q.Validate(answer); err != nil {
		return fmt.Errorf("question %d: %w", questionID, err)
	}
	a.answers[questionID] = answer
	a.statuses[questionID] = a.statuses[questionID].Answer()
	a.broadcastLocked()
	return nil
}

// ToggleChoice flips one key of a multi-select answer. Removing the last
// selected key clears the response.
func (a *Attempt) ToggleChoice(questionID int, key string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	q, err := a.editableLocked(questionID)
	if err != nil {
		return err
	}
	if q.Type != domain.MultiSelect {
		return fmt.Errorf("question %d: %w", questionID, domain.ErrAnswerKind)
	}
	if !q.Options.Has(key) {
		return fmt.Errorf("question %d: %w: %q", questionID, domain.ErrUnknownOption, key)
	}
	current, ok := a.answers[questionID]
	if !ok {
		current = domain.ChooseMany()
	}
	next := current.Toggle(key)
	if next.Empty() {
		a.clearLocked(questionID)
		return nil
	}
	a.answers[questionID] = next
	a.statuses[questionID] = a.statuses[questionID].Answer()
	a.broadcastLocked()
	return nil
}

// MarkForReview flags a question without touching its answer.
func (a *Attempt) MarkForReview(questionID int) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if _, err := a.editableLocked(questionID); err != nil {
		return err
	}
	a.statuses[questionID] = a.statuses[questionID].Mark()
	a.broadcastLocked()
	return nil
}

// ClearResponse removes the answer and drops any review mark.
func (a *Attempt) ClearResponse(questionID int) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if _, err := a.editableLocked(questionID); err != nil {
		return err
	}
	a.clearLocked(questionID)
	return nil
}

func (a *Attempt) clearLocked(questionID int) {
	delete(a.answers, questionID)
	a.statuses[questionID] = a.statuses[questionID].Clear()
	a.broadcastLocked()
}

func (a *Attempt) editableLocked(questionID int) (domain.Question, error) {
	if a.state != StateActive {
		return domain.Question{}, domain.ErrNotActive
	}
	pos, ok := a.positions[questionID]
	if !ok {
		return domain.Question{}, fmt.Errorf("%w: %d", domain.ErrUnknownQuestion, questionID)
	}
	return a.questions[pos], nil
}

// RevealAnswer fetches the correct answer for questionID once and caches it.
// The question is excluded from scoring from then on, whatever is answered
// later. Responses that arrive after Close are dropped.
func (a *Attempt) RevealAnswer(ctx context.Context, questionID int) (domain.RevealedAnswer, error) {
	if !a.cfg.AllowReveal {
		return domain.RevealedAnswer{}, domain.ErrRevealNotAllowed
	}

	a.mu.Lock()
	if _, err := a.editableLocked(questionID); err != nil {
		a.mu.Unlock()
		return domain.RevealedAnswer{}, err
	}
	if cached, ok := a.revealed[questionID]; ok {
		a.mu.Unlock()
		return cached, nil
	}
	a.mu.Unlock()

	v, err, _ := a.reveals.Do(strconv.Itoa(questionID), func() (interface{}, error) {
		callCtx, cancel := context.WithCancel(ctx)
		defer cancel()
		stop := context.AfterFunc(a.ctx, cancel)
		defer stop()

		answer, err := a.backend.RevealAnswer(callCtx, questionID)
		if err != nil {
			return domain.RevealedAnswer{}, err
		}

		a.mu.Lock()
		defer a.mu.Unlock()
		if a.closed {
			return domain.RevealedAnswer{}, domain.ErrAttemptClosed
		}
		a.revealed[questionID] = answer
		a.broadcastLocked()
		return answer, nil
	})
	if err != nil {
		if a.ctx.Err() != nil {
			return domain.RevealedAnswer{}, domain.ErrAttemptClosed
		}
		return domain.RevealedAnswer{}, fmt.Errorf("reveal question %d: %w", questionID, err)
	}
	return v.(domain.RevealedAnswer), nil
}

// Submit posts the formatted answers. Only one submission can be in flight;
// on failure the attempt returns to active with every answer intact.
func (a *Attempt) Submit(ctx context.Context) (domain.ScoredResult, error) {
	a.mu.Lock()
	switch a.state {
	case StateActive:
	case StateSubmitting:
		a.mu.Unlock()
		return domain.ScoredResult{}, domain.ErrSubmitInFlight
	case StateSubmitted:
		a.mu.Unlock()
		return domain.ScoredResult{}, domain.ErrAlreadySubmitted
	default:
		a.mu.Unlock()
		return domain.ScoredResult{}, domain.ErrNotActive
	}
	a.state = StateSubmitting
	a.lastErr = nil
	payload := a.payloadLocked()
	a.broadcastLocked()
	a.mu.Unlock()

	result, err := a.backend.Submit(ctx, payload)

	a.mu.Lock()
	defer a.mu.Unlock()
	if err != nil {
		a.state = StateActive
		a.lastErr = err
		a.log.Warn().Err(err).Msg("submission failed, attempt still open")
		a.broadcastLocked()
		return domain.ScoredResult{}, err
	}
	a.state = StateSubmitted
	a.result = &result
	if a.countdown != nil {
		a.countdown.Stop()
	}
	a.log.Info().Float64("score", result.Score).Msg("attempt submitted")
	a.broadcastLocked()
	a.finishLocked()
	return result, nil
}

func (a *Attempt) onTick(remaining time.Duration) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.remaining = remaining
	a.broadcastLocked()
}

// autoSubmit runs when the countdown reaches zero. It submits at most once
// per attempt; a manual submission already in flight counts as that submission.
func (a *Attempt) autoSubmit() {
	a.mu.Lock()
	if a.autoSubmitted || a.closed {
		a.mu.Unlock()
		return
	}
	a.autoSubmitted = true
	a.remaining = 0
	a.mu.Unlock()

	a.log.Info().Msg("time is up, submitting")
	if _, err := a.Submit(a.ctx); err != nil {
		a.log.Warn().Err(err).Msg("auto-submit did not complete")
	}
}

// Expired reports whether the countdown reached zero.
func (a *Attempt) Expired() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.autoSubmitted
}

// Payload builds the submission from the current answers.
func (a *Attempt) Payload() domain.Submission {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.payloadLocked()
}

func (a *Attempt) payloadLocked() domain.Submission {
	sub := domain.Submission{
		Kind:        a.cfg.Kind,
		Answers:     make(map[string]string, len(a.answers)),
		QuestionIDs: make([]int, 0, len(a.questions)),
		RevealedIDs: make([]int, 0, len(a.revealed)),
	}
	switch a.cfg.Kind {
	case domain.KindChallenge:
		sub.AttemptID = a.cfg.ID
	default:
		sub.Subject = a.cfg.Subject
	}
	for _, q := range a.questions {
		sub.QuestionIDs = append(sub.QuestionIDs, q.ID)
		if _, ok := a.revealed[q.ID]; ok {
			sub.RevealedIDs = append(sub.RevealedIDs, q.ID)
		}
		if ans, ok := a.answers[q.ID]; ok && !ans.Empty() {
			sub.Answers[q.Key()] = ans.Canonical()
		}
	}
	return sub
}

// State is the current lifecycle stage.
func (a *Attempt) State() AttemptState {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state
}

// Err is the last submission or load error, cleared by the next submit.
func (a *Attempt) Err() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.lastErr
}

// Position is the index of the active question.
func (a *Attempt) Position() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.position
}

// Len is the number of questions.
func (a *Attempt) Len() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.questions)
}

// Current returns the active question.
func (a *Attempt) Current() (domain.Question, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if len(a.questions) == 0 {
		return domain.Question{}, false
	}
	return a.questions[a.position], true
}

// Answer returns the recorded answer for questionID.
func (a *Attempt) Answer(questionID int) (domain.Answer, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	ans, ok := a.answers[questionID]
	return ans, ok
}

// Status returns the palette status of questionID.
func (a *Attempt) Status(questionID int) domain.Status {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.statuses[questionID]
}

// Revealed returns the cached answer for a revealed question.
func (a *Attempt) Revealed(questionID int) (domain.RevealedAnswer, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	ans, ok := a.revealed[questionID]
	return ans, ok
}

// Remaining is the time left as of the last tick.
func (a *Attempt) Remaining() time.Duration {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.remaining
}

// Result is the scored result once submitted.
func (a *Attempt) Result() (domain.ScoredResult, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.result == nil {
		return domain.ScoredResult{}, false
	}
	return *a.result, true
}

// Snapshot copies the observable state.
func (a *Attempt) Snapshot() AttemptSnapshot {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.snapshotLocked()
}

// Subscribe returns a channel of snapshots, starting with the current one.
// Slow readers only ever see the latest snapshot. The caller must invoke cancel.
func (a *Attempt) Subscribe() (<-chan AttemptSnapshot, func()) {
	ch := make(chan AttemptSnapshot, 8)

	a.mu.Lock()
	ch <- a.snapshotLocked()
	if a.closed {
		close(ch)
		a.mu.Unlock()
		return ch, func() {}
	}
	a.subscribers[ch] = struct{}{}
	a.mu.Unlock()

	cancel := func() {
		a.mu.Lock()
		if _, ok := a.subscribers[ch]; ok {
			delete(a.subscribers, ch)
			close(ch)
		}
		a.mu.Unlock()
	}
	return ch, cancel
}

// Done is closed when the attempt is submitted, fails to load or is closed.
func (a *Attempt) Done() <-chan struct{} {
	return a.done
}

// Close abandons the attempt: the countdown stops, pending reveals are
// cancelled and subscribers are released. A submitted result stays readable.
func (a *Attempt) Close() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return
	}
	a.closed = true
	if a.countdown != nil {
		a.countdown.Stop()
	}
	a.cancel()
	for ch := range a.subscribers {
		delete(a.subscribers, ch)
		close(ch)
	}
	a.finishLocked()
}

func (a *Attempt) finishLocked() {
	a.doneOnce.Do(func() { close(a.done) })
}

func (a *Attempt) broadcastLocked() {
	snap := a.snapshotLocked()
	for ch := range a.subscribers {
		select {
		case ch <- snap:
		default:
			select {
			case <-ch:
			default:
			}
			ch <- snap
		}
	}
}

func (a *Attempt) snapshotLocked() AttemptSnapshot {
	snap := AttemptSnapshot{
		Instance:         a.instance,
		Kind:             a.cfg.Kind,
		State:            a.state,
		Position:         a.position,
		Total:            len(a.questions),
		RemainingSeconds: int(a.remaining / time.Second),
		Questions:        make([]QuestionState, 0, len(a.questions)),
	}
	if a.lastErr != nil {
		snap.Error = a.lastErr.Error()
	}
	for _, q := range a.questions {
		qs := QuestionState{ID: q.ID, Status: a.statuses[q.ID]}
		if ans, ok := a.answers[q.ID]; ok {
			qs.Answer = ans.String()
		}
		_, qs.Revealed = a.revealed[q.ID]
		snap.Questions = append(snap.Questions, qs)
	}
	return snap
}
