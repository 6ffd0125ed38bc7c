package model

// QuestionType enumerates supported answer modes.
type QuestionType string

const (
	// QuestionTypeSingle expects exactly one selected option.
	QuestionTypeSingle QuestionType = "SINGLE"
	// QuestionTypeMulti expects the full correct-option set, no partial credit.
	QuestionTypeMulti QuestionType = "MULTI"
)

// Option is one selectable answer of a question.
type Option struct {
	ID        string `json:"id"`
	Text      string `json:"text"`
	IsCorrect bool   `json:"is_correct,omitempty"`
}

// Question is a single pool entry. The pool is immutable once loaded.
type Question struct {
	ID      string       `json:"id"`
	Type    QuestionType `json:"type"`
	Text    string       `json:"text"`
	Options []Option     `json:"options"`
}

// CorrectSet returns the set of correct option IDs.
func (q *Question) CorrectSet() map[string]struct{} {
	set := make(map[string]struct{})
	for _, o := range q.Options {
		if o.IsCorrect {
			set[o.ID] = struct{}{}
		}
	}
	return set
}

// Sanitized returns a copy of the question with correctness flags stripped,
// safe to hand to the candidate's client.
func (q *Question) Sanitized() Question {
	out := Question{
		ID:      q.ID,
		Type:    q.Type,
		Text:    q.Text,
		Options: make([]Option, len(q.Options)),
	}
	for i, o := range q.Options {
		out.Options[i] = Option{ID: o.ID, Text: o.Text}
	}
	return out
}

// SanitizeQuestions strips correctness flags from a selected subset.
func SanitizeQuestions(questions []Question) []Question {
	out := make([]Question, len(questions))
	for i := range questions {
		out[i] = questions[i].Sanitized()
	}
	return out
}
