package exam

import (
	"math"

	"github.com/tgexam/backend/internal/model"
)

// QuestionCorrect reports whether the selected option set earns credit.
// Credit requires exact set equality with the correct-option set: a single
// question needs exactly its one correct option selected, a multi question
// needs the full set and nothing else. An empty selection never earns credit.
func QuestionCorrect(q *model.Question, selected map[string]struct{}) bool {
	correct := q.CorrectSet()
	if len(selected) == 0 || len(selected) != len(correct) {
		return false
	}
	for id := range selected {
		if _, ok := correct[id]; !ok {
			return false
		}
	}
	return true
}

// Score counts correct questions. Unanswered questions count as incorrect.
func Score(questions []model.Question, answers map[string]map[string]struct{}) int {
	score := 0
	for i := range questions {
		if QuestionCorrect(&questions[i], answers[questions[i].ID]) {
			score++
		}
	}
	return score
}

// Percent returns round(score/total*100), 0 when total is not positive.
func Percent(score, total int) int {
	if total <= 0 {
		return 0
	}
	return int(math.Round(float64(score) / float64(total) * 100))
}

// Passed applies the pass rule: score must reach ceil(total*passRate), and a
// too_many_violations finish fails regardless of score.
func Passed(score, total int, cfg Config, reason model.FinishReason) bool {
	if reason == model.FinishReasonViolations {
		return false
	}
	if total <= 0 {
		return false
	}
	return score >= cfg.PassThreshold(total)
}
