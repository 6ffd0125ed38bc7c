package exam

import (
	"math/rand"
	"testing"
	"time"

	"github.com/tgexam/backend/internal/model"
)

type fakeClock struct {
	t time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.DurationSec = 60
	cfg.QuestionsPerAttempt = 3
	return cfg
}

func startedAttempt(t *testing.T, cfg Config, clock *fakeClock) *Attempt {
	t.Helper()
	pool := []model.Question{
		singleQuestion("q1", "a", "b"),
		singleQuestion("q2", "a", "b"),
		multiQuestion("q3", []string{"a", "b"}, "c"),
	}
	att := NewAttempt(cfg, pool,
		WithClock(clock.now),
		WithRand(rand.New(rand.NewSource(42))),
	)
	if err := att.Begin("Anna Petrova"); err != nil {
		t.Fatalf("Begin: %v", err)
	}
	return att
}

func TestBeginValidation(t *testing.T) {
	cfg := testConfig()

	att := NewAttempt(cfg, []model.Question{singleQuestion("q1", "a", "b")})
	if err := att.Begin(""); err != ErrNameRequired {
		t.Errorf("empty name: err = %v, want ErrNameRequired", err)
	}

	att = NewAttempt(cfg, nil)
	if err := att.Begin("Anna"); err != ErrEmptyPool {
		t.Errorf("empty pool: err = %v, want ErrEmptyPool", err)
	}

	att = NewAttempt(cfg, []model.Question{singleQuestion("q1", "a", "b")})
	if err := att.Begin("Anna"); err != nil {
		t.Fatalf("Begin: %v", err)
	}
	if err := att.Begin("Anna"); err != ErrAlreadyStarted {
		t.Errorf("second Begin: err = %v, want ErrAlreadyStarted", err)
	}
}

func TestBeginResetsStateAndSelectsSubset(t *testing.T) {
	clock := newFakeClock()
	att := startedAttempt(t, testConfig(), clock)

	if att.Phase() != PhaseInProgress {
		t.Fatalf("phase = %s, want %s", att.Phase(), PhaseInProgress)
	}
	if got := len(att.Questions()); got != 3 {
		t.Errorf("selected %d questions, want 3", got)
	}
	blur, hidden, leave := att.Counters()
	if blur != 0 || hidden != 0 || leave != 0 {
		t.Errorf("counters = %d/%d/%d, want zeros", blur, hidden, leave)
	}
	if att.RemainingSec() != 60 {
		t.Errorf("remaining = %d, want 60", att.RemainingSec())
	}

	// Paper handed to the client must not leak correctness flags.
	for _, q := range att.Questions() {
		for _, o := range q.Options {
			if o.IsCorrect {
				t.Fatalf("question %s leaks is_correct", q.ID)
			}
		}
	}
}

func TestLeaveCycleCountsOnce(t *testing.T) {
	clock := newFakeClock()
	att := startedAttempt(t, testConfig(), clock)

	att.MarkHidden()
	att.MarkHidden() // same cycle, must not double-count
	att.MarkBlur()   // diagnostic only

	blur, hidden, leave := att.Counters()
	if hidden != 1 || leave != 1 {
		t.Errorf("hidden/leave = %d/%d, want 1/1", hidden, leave)
	}
	if blur != 1 {
		t.Errorf("blur = %d, want 1", blur)
	}
	if !att.LeaveCycleActive() {
		t.Error("leave cycle should be active while hidden")
	}

	att.MarkVisible()
	if att.LeaveCycleActive() {
		t.Error("leave cycle should be closed after visible")
	}

	att.MarkHidden()
	_, hidden, leave = att.Counters()
	if hidden != 2 || leave != 2 {
		t.Errorf("hidden/leave after new cycle = %d/%d, want 2/2", hidden, leave)
	}
}

func TestThreeLeavesAutoFinishAndForceFail(t *testing.T) {
	clock := newFakeClock()
	cfg := testConfig()
	att := startedAttempt(t, cfg, clock)

	// Answer everything correctly so only the violation rule can fail it.
	if err := att.SetAnswer("q1", []string{"a"}); err != nil {
		t.Fatalf("SetAnswer: %v", err)
	}
	if err := att.SetAnswer("q2", []string{"a"}); err != nil {
		t.Fatalf("SetAnswer: %v", err)
	}
	if err := att.SetAnswer("q3", []string{"b", "a"}); err != nil {
		t.Fatalf("SetAnswer: %v", err)
	}

	for i := 0; i < 2; i++ {
		if finished := att.MarkHidden(); finished {
			t.Fatalf("finished after %d leaves, threshold is 3", i+1)
		}
		att.MarkVisible()
	}
	if finished := att.MarkHidden(); !finished {
		t.Fatal("third leave must auto-finish the attempt")
	}

	res := att.Result()
	if res == nil {
		t.Fatal("no result after auto-finish")
	}
	if res.FinishReason != model.FinishReasonViolations {
		t.Errorf("reason = %s, want %s", res.FinishReason, model.FinishReasonViolations)
	}
	if res.Score != 3 || res.Total != 3 {
		t.Errorf("score = %d/%d, want 3/3", res.Score, res.Total)
	}
	if res.Passed {
		t.Error("passed must be forced false on too_many_violations")
	}
	if res.Celebrate {
		t.Error("no celebration on a violation finish")
	}
}

func TestTimeUpFiresExactlyOnce(t *testing.T) {
	clock := newFakeClock()
	att := startedAttempt(t, testConfig(), clock)

	clock.advance(59 * time.Second)
	att.Tick()
	if att.Phase() != PhaseInProgress {
		t.Fatal("finished before the deadline")
	}

	clock.advance(2 * time.Second)
	att.Tick()
	att.Tick() // straggler tick before cleanup
	att.FinishManual()

	res := att.Result()
	if res == nil {
		t.Fatal("no result after time up")
	}
	if res.FinishReason != model.FinishReasonTimeUp {
		t.Errorf("reason = %s, want %s (first cause wins)", res.FinishReason, model.FinishReasonTimeUp)
	}
	if res.DurationSec != 60 {
		t.Errorf("duration = %d, want clamped 60", res.DurationSec)
	}
	if att.RemainingSec() != 0 {
		t.Errorf("remaining = %d, want 0", att.RemainingSec())
	}
}

func TestManualFinishCelebration(t *testing.T) {
	clock := newFakeClock()
	att := startedAttempt(t, testConfig(), clock)

	att.SetAnswer("q1", []string{"a"})
	att.SetAnswer("q2", []string{"a"})
	att.SetAnswer("q3", []string{"a", "b"})

	clock.advance(25 * time.Second)
	att.FinishManual()

	res := att.Result()
	if res == nil {
		t.Fatal("no result")
	}
	if !res.Passed {
		t.Errorf("3/3 should pass at rate %.2f", testConfig().PassRate)
	}
	if !res.Celebrate {
		t.Error("manual pass should celebrate")
	}
	if res.DurationSec != 25 {
		t.Errorf("duration = %d, want 25", res.DurationSec)
	}

	// Inputs are frozen after finish.
	if err := att.SetAnswer("q1", []string{"b"}); err != ErrNotInProgress {
		t.Errorf("SetAnswer after finish: err = %v, want ErrNotInProgress", err)
	}
	if res2 := att.Result(); res2.Score != res.Score {
		t.Error("result changed after finish")
	}
}

func TestSetAnswerValidation(t *testing.T) {
	clock := newFakeClock()
	att := startedAttempt(t, testConfig(), clock)

	if err := att.SetAnswer("nope", []string{"a"}); err != ErrUnknownQuestion {
		t.Errorf("unknown question: err = %v, want ErrUnknownQuestion", err)
	}

	att.SetAnswer("q1", []string{"a"})
	att.SetAnswer("q1", nil) // clear
	att.FinishManual()

	if got := att.Result().Score; got != 0 {
		t.Errorf("score after cleared answer = %d, want 0", got)
	}
}

func TestEventSinkReceivesAccounting(t *testing.T) {
	clock := newFakeClock()
	pool := []model.Question{singleQuestion("q1", "a", "b")}

	var events []Event
	att := NewAttempt(testConfig(), pool,
		WithClock(clock.now),
		WithEventSink(func(ev Event) { events = append(events, ev) }),
	)
	if err := att.Begin("Anna"); err != nil {
		t.Fatalf("Begin: %v", err)
	}
	att.MarkHidden()
	att.MarkVisible()
	att.FinishManual()

	want := []model.EventType{model.EventStart, model.EventHidden, model.EventVisible, model.EventFinish}
	if len(events) != len(want) {
		t.Fatalf("got %d events, want %d", len(events), len(want))
	}
	for i, ev := range events {
		if ev.Type != want[i] {
			t.Errorf("event[%d] = %s, want %s", i, ev.Type, want[i])
		}
	}
	if events[1].LeaveCount != 1 {
		t.Errorf("hidden event leave count = %d, want 1", events[1].LeaveCount)
	}
}
