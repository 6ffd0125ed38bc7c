package exam

import (
	"testing"

	"github.com/tgexam/backend/internal/model"
)

func singleQuestion(id, correct string, others ...string) model.Question {
	q := model.Question{ID: id, Type: model.QuestionTypeSingle, Text: "q " + id}
	q.Options = append(q.Options, model.Option{ID: correct, Text: "opt", IsCorrect: true})
	for _, o := range others {
		q.Options = append(q.Options, model.Option{ID: o, Text: "opt"})
	}
	return q
}

func multiQuestion(id string, correct []string, others ...string) model.Question {
	q := model.Question{ID: id, Type: model.QuestionTypeMulti, Text: "q " + id}
	for _, c := range correct {
		q.Options = append(q.Options, model.Option{ID: c, Text: "opt", IsCorrect: true})
	}
	for _, o := range others {
		q.Options = append(q.Options, model.Option{ID: o, Text: "opt"})
	}
	return q
}

func asSet(ids ...string) map[string]struct{} {
	if len(ids) == 0 {
		return nil
	}
	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}

func TestQuestionCorrect(t *testing.T) {
	single := singleQuestion("q1", "a", "b", "c")
	multi := multiQuestion("q2", []string{"a", "b"}, "c", "d")

	tests := []struct {
		name     string
		question model.Question
		selected map[string]struct{}
		want     bool
	}{
		{"single correct", single, asSet("a"), true},
		{"single wrong", single, asSet("b"), false},
		{"single extra option", single, asSet("a", "b"), false},
		{"single unanswered", single, nil, false},
		{"multi exact set", multi, asSet("b", "a"), true},
		{"multi strict subset", multi, asSet("a"), false},
		{"multi superset", multi, asSet("a", "b", "c"), false},
		{"multi disjoint", multi, asSet("c", "d"), false},
		{"multi unanswered", multi, nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := QuestionCorrect(&tt.question, tt.selected); got != tt.want {
				t.Errorf("QuestionCorrect() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestScoreBounds(t *testing.T) {
	questions := []model.Question{
		singleQuestion("q1", "a", "b"),
		singleQuestion("q2", "a", "b"),
		multiQuestion("q3", []string{"a", "b"}, "c"),
	}
	answers := map[string]map[string]struct{}{
		"q1": asSet("a"),
		"q2": asSet("b"),
		"q3": asSet("a", "b"),
		"q9": asSet("a"), // stray answer for an unselected question
	}

	score := Score(questions, answers)
	if score < 0 || score > len(questions) {
		t.Fatalf("score %d out of bounds [0,%d]", score, len(questions))
	}
	if score != 2 {
		t.Errorf("Score() = %d, want 2", score)
	}
}

func TestPercent(t *testing.T) {
	tests := []struct {
		score, total, want int
	}{
		{0, 0, 0},
		{0, 10, 0},
		{7, 10, 70},
		{1, 3, 33},
		{2, 3, 67},
		{10, 10, 100},
	}
	for _, tt := range tests {
		if got := Percent(tt.score, tt.total); got != tt.want {
			t.Errorf("Percent(%d, %d) = %d, want %d", tt.score, tt.total, got, tt.want)
		}
	}
}

func TestPassedBoundary(t *testing.T) {
	cfg := DefaultConfig()
	cfg.PassRate = 0.70

	if !Passed(7, 10, cfg, model.FinishReasonManual) {
		t.Error("score 7/10 at rate 0.70 should pass")
	}
	if Passed(6, 10, cfg, model.FinishReasonManual) {
		t.Error("score 6/10 at rate 0.70 should fail")
	}
}

func TestPassedForcedFailOnViolations(t *testing.T) {
	cfg := DefaultConfig()
	if Passed(10, 10, cfg, model.FinishReasonViolations) {
		t.Error("too_many_violations must force failure regardless of score")
	}
	if !Passed(10, 10, cfg, model.FinishReasonTimeUp) {
		t.Error("time_up finish with a passing score should pass")
	}
}
