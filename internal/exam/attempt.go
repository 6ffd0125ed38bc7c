package exam

import (
	"errors"
	"math/rand"
	"sort"
	"sync"
	"time"

	"github.com/tgexam/backend/internal/model"
)

// Phase is the attempt lifecycle state.
type Phase string

const (
	PhaseNotStarted Phase = "NOT_STARTED"
	PhaseInProgress Phase = "IN_PROGRESS"
	PhaseFinished   Phase = "FINISHED"
)

var (
	ErrNameRequired    = errors.New("candidate name is required")
	ErrEmptyPool       = errors.New("question pool is empty")
	ErrAlreadyStarted  = errors.New("attempt already started")
	ErrNotInProgress   = errors.New("attempt is not in progress")
	ErrUnknownQuestion = errors.New("question is not part of this attempt")
)

// Event is an accounting event surfaced to the optional sink. Delivery is
// best-effort by contract; the machine never blocks on it.
type Event struct {
	Type        model.EventType
	BlurCount   int
	HiddenCount int
	LeaveCount  int
}

// EventSink receives accounting events. Must not call back into the attempt.
type EventSink func(Event)

// Result is the frozen outcome of a finished attempt.
type Result struct {
	Score        int
	Total        int
	Percent      int
	Passed       bool
	FinishReason model.FinishReason
	DurationSec  int
	BlurCount    int
	HiddenCount  int
	LeaveCount   int
	// Celebrate flags the cosmetic effect: pass by explicit manual finish.
	Celebrate bool
}

// Attempt is the exam session state machine for one candidate.
// All methods are safe for concurrent use.
type Attempt struct {
	mu   sync.Mutex
	cfg  Config
	pool []model.Question
	now  func() time.Time
	rng  *rand.Rand
	sink EventSink

	phase         Phase
	candidateName string
	questions     []model.Question
	byID          map[string]int
	answers       map[string]map[string]struct{}

	blurCount        int
	hiddenCount      int
	leaveCount       int
	leaveCycleActive bool

	startedAt time.Time
	deadline  time.Time
	result    *Result
}

// AttemptOption customizes an attempt, mainly for tests.
type AttemptOption func(*Attempt)

// WithClock replaces the wall clock.
func WithClock(now func() time.Time) AttemptOption {
	return func(a *Attempt) { a.now = now }
}

// WithRand replaces the selection RNG.
func WithRand(rng *rand.Rand) AttemptOption {
	return func(a *Attempt) { a.rng = rng }
}

// WithEventSink attaches an accounting event sink.
func WithEventSink(sink EventSink) AttemptOption {
	return func(a *Attempt) { a.sink = sink }
}

// NewAttempt creates an attempt in PhaseNotStarted over the given pool.
func NewAttempt(cfg Config, pool []model.Question, opts ...AttemptOption) *Attempt {
	a := &Attempt{
		cfg:     cfg,
		pool:    pool,
		now:     time.Now,
		rng:     rand.New(rand.NewSource(time.Now().UnixNano())),
		phase:   PhaseNotStarted,
		answers: make(map[string]map[string]struct{}),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Begin starts the attempt: selects and shuffles the question subset, resets
// counters, records the start time and arms the countdown.
func (a *Attempt) Begin(candidateName string) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.phase != PhaseNotStarted {
		return ErrAlreadyStarted
	}
	if candidateName == "" {
		return ErrNameRequired
	}
	if len(a.pool) == 0 {
		return ErrEmptyPool
	}

	a.candidateName = candidateName
	a.questions = Select(a.pool, a.cfg.QuestionsPerAttempt, a.cfg.SelectionStrategy, a.rng)
	a.byID = make(map[string]int, len(a.questions))
	for i := range a.questions {
		a.byID[a.questions[i].ID] = i
	}
	a.answers = make(map[string]map[string]struct{}, len(a.questions))
	a.blurCount, a.hiddenCount, a.leaveCount = 0, 0, 0
	a.leaveCycleActive = false
	a.startedAt = a.now()
	a.deadline = a.startedAt.Add(time.Duration(a.cfg.DurationSec) * time.Second)
	a.phase = PhaseInProgress

	a.emit(model.EventStart)
	return nil
}

// SetAnswer records the selected option set for a question of this attempt.
// An empty selection clears the stored answer.
func (a *Attempt) SetAnswer(questionID string, optionIDs []string) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.phase != PhaseInProgress {
		return ErrNotInProgress
	}
	if _, ok := a.byID[questionID]; !ok {
		return ErrUnknownQuestion
	}
	if len(optionIDs) == 0 {
		delete(a.answers, questionID)
		return nil
	}
	set := make(map[string]struct{}, len(optionIDs))
	for _, id := range optionIDs {
		set[id] = struct{}{}
	}
	a.answers[questionID] = set
	return nil
}

// MarkHidden registers a visibility-hidden transition. The first hidden of a
// leave cycle increments both hiddenCount and leaveCount; repeats inside the
// same cycle are ignored. Reaching the auto-finish threshold ends the attempt
// with reason too_many_violations. Returns true if the attempt is finished.
func (a *Attempt) MarkHidden() bool {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.phase != PhaseInProgress {
		return a.phase == PhaseFinished
	}
	if !a.leaveCycleActive {
		a.leaveCycleActive = true
		a.hiddenCount++
		a.leaveCount++
		a.emit(model.EventHidden)
		if a.cfg.AutoFinishThreshold > 0 && a.leaveCount >= a.cfg.AutoFinishThreshold {
			a.finishLocked(model.FinishReasonViolations)
		}
	}
	return a.phase == PhaseFinished
}

// MarkVisible closes the current leave cycle.
func (a *Attempt) MarkVisible() {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.phase != PhaseInProgress {
		return
	}
	a.leaveCycleActive = false
	a.emit(model.EventVisible)
}

// MarkBlur records a window-blur event. Blur is diagnostic only: it never
// counts toward leaveCount, whether or not a leave cycle is active.
func (a *Attempt) MarkBlur() {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.phase != PhaseInProgress {
		return
	}
	a.blurCount++
	a.emit(model.EventBlur)
}

// Tick re-evaluates the countdown. At or past the deadline the attempt
// finishes with reason time_up; later ticks are no-ops.
func (a *Attempt) Tick() {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.phase != PhaseInProgress {
		return
	}
	if !a.now().Before(a.deadline) {
		a.finishLocked(model.FinishReasonTimeUp)
	}
}

// ExpireIfOverdue finishes an overdue attempt with reason time_up.
// Returns true when the attempt is finished after the call.
func (a *Attempt) ExpireIfOverdue() bool {
	a.Tick()
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.phase == PhaseFinished
}

// FinishManual ends the attempt on explicit user confirmation.
func (a *Attempt) FinishManual() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.finishLocked(model.FinishReasonManual)
}

// FinishViolations ends the attempt when the accounting relay acknowledges
// with shouldFinish=true.
func (a *Attempt) FinishViolations() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.finishLocked(model.FinishReasonViolations)
}

// finishLocked transitions to PhaseFinished exactly once. The first cause
// wins; subsequent calls with any reason are no-ops.
func (a *Attempt) finishLocked(reason model.FinishReason) {
	if a.phase != PhaseInProgress {
		return
	}
	a.phase = PhaseFinished
	a.leaveCycleActive = false

	score := Score(a.questions, a.answers)
	total := len(a.questions)

	elapsed := int(a.now().Sub(a.startedAt).Seconds())
	if elapsed < 0 {
		elapsed = 0
	}
	if elapsed > a.cfg.DurationSec {
		elapsed = a.cfg.DurationSec
	}

	passed := Passed(score, total, a.cfg, reason)
	a.result = &Result{
		Score:        score,
		Total:        total,
		Percent:      Percent(score, total),
		Passed:       passed,
		FinishReason: reason,
		DurationSec:  elapsed,
		BlurCount:    a.blurCount,
		HiddenCount:  a.hiddenCount,
		LeaveCount:   a.leaveCount,
		Celebrate:    passed && reason == model.FinishReasonManual,
	}
	a.emit(model.EventFinish)
}

func (a *Attempt) emit(t model.EventType) {
	if a.sink == nil {
		return
	}
	a.sink(Event{
		Type:        t,
		BlurCount:   a.blurCount,
		HiddenCount: a.hiddenCount,
		LeaveCount:  a.leaveCount,
	})
}

// Phase returns the current lifecycle state.
func (a *Attempt) Phase() Phase {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.phase
}

// CandidateName returns the name recorded at Begin.
func (a *Attempt) CandidateName() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.candidateName
}

// Questions returns the selected subset with correctness flags stripped.
func (a *Attempt) Questions() []model.Question {
	a.mu.Lock()
	defer a.mu.Unlock()
	return model.SanitizeQuestions(a.questions)
}

// RemainingSec returns whole seconds until the deadline, never negative.
func (a *Attempt) RemainingSec() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.phase != PhaseInProgress {
		return 0
	}
	rem := int(a.deadline.Sub(a.now()).Seconds())
	if rem < 0 {
		rem = 0
	}
	return rem
}

// Counters returns the blur/hidden/leave counters.
func (a *Attempt) Counters() (blur, hidden, leave int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.blurCount, a.hiddenCount, a.leaveCount
}

// LeaveCycleActive reports whether the page is currently hidden.
func (a *Attempt) LeaveCycleActive() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.leaveCycleActive
}

// Result returns the frozen outcome, or nil before the attempt finishes.
func (a *Attempt) Result() *Result {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.result
}

// ResultFields builds the authoritative submission fields from the finished
// attempt, including the per-question answer breakdown. Returns nil before
// the attempt finishes.
func (a *Attempt) ResultFields() *model.ResultFields {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.result == nil {
		return nil
	}
	return &model.ResultFields{
		CandidateName: a.candidateName,
		Score:         a.result.Score,
		Total:         a.result.Total,
		FinishReason:  a.result.FinishReason,
		DurationSec:   a.result.DurationSec,
		BlurCount:     a.result.BlurCount,
		HiddenCount:   a.result.HiddenCount,
		LeaveCount:    a.result.LeaveCount,
		Answers:       a.answerBreakdownLocked(),
	}
}

func (a *Attempt) answerBreakdownLocked() []model.SubmittedAnswer {
	out := make([]model.SubmittedAnswer, 0, len(a.questions))
	for i := range a.questions {
		q := &a.questions[i]
		selected := a.answers[q.ID]

		chosen := make([]string, 0, len(selected))
		for id := range selected {
			chosen = append(chosen, id)
		}
		sort.Strings(chosen)

		correct := make([]string, 0, 2)
		for id := range q.CorrectSet() {
			correct = append(correct, id)
		}
		sort.Strings(correct)

		out = append(out, model.SubmittedAnswer{
			QuestionID: q.ID,
			Text:       q.Text,
			Chosen:     chosen,
			Correct:    correct,
			IsCorrect:  QuestionCorrect(q, selected),
		})
	}
	return out
}
