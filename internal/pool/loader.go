// Package pool loads and validates the read-only question pool.
package pool

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/tgexam/backend/internal/model"
)

type poolFile struct {
	Questions []model.Question `json:"questions"`
}

// Load reads the question pool from a JSON file ({"questions": [...]}) and
// validates every record. A malformed record aborts the load; the pool is
// all-or-nothing.
func Load(path string) ([]model.Question, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read questions file: %w", err)
	}

	var f poolFile
	if err := json.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse questions file: %w", err)
	}
	if len(f.Questions) == 0 {
		return nil, fmt.Errorf("questions file %s contains no questions", path)
	}

	seen := make(map[string]struct{}, len(f.Questions))
	for i := range f.Questions {
		if err := validate(&f.Questions[i]); err != nil {
			return nil, fmt.Errorf("question %d (%s): %w", i, f.Questions[i].ID, err)
		}
		if _, dup := seen[f.Questions[i].ID]; dup {
			return nil, fmt.Errorf("question %d: duplicate id %s", i, f.Questions[i].ID)
		}
		seen[f.Questions[i].ID] = struct{}{}
	}

	return f.Questions, nil
}

func validate(q *model.Question) error {
	if q.ID == "" {
		return fmt.Errorf("missing id")
	}
	if q.Text == "" {
		return fmt.Errorf("missing text")
	}
	if q.Type != model.QuestionTypeSingle && q.Type != model.QuestionTypeMulti {
		return fmt.Errorf("invalid type %q", q.Type)
	}
	if len(q.Options) < 2 {
		return fmt.Errorf("needs at least 2 options, has %d", len(q.Options))
	}

	optIDs := make(map[string]struct{}, len(q.Options))
	correct := 0
	for _, o := range q.Options {
		if o.ID == "" {
			return fmt.Errorf("option with missing id")
		}
		if _, dup := optIDs[o.ID]; dup {
			return fmt.Errorf("duplicate option id %s", o.ID)
		}
		optIDs[o.ID] = struct{}{}
		if o.IsCorrect {
			correct++
		}
	}

	switch q.Type {
	case model.QuestionTypeSingle:
		if correct != 1 {
			return fmt.Errorf("SINGLE question must have exactly 1 correct option, has %d", correct)
		}
	case model.QuestionTypeMulti:
		if correct < 1 {
			return fmt.Errorf("MULTI question must have at least 1 correct option")
		}
	}
	return nil
}
