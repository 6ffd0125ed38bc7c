package model

// ResultRecord is one row of the append-only result log. Rows are never
// edited; deletion happens only through the admin surface.
type ResultRecord struct {
	ID        string `json:"id"`
	Timestamp int64  `json:"ts"` // epoch millis
	DateISO   string `json:"date_iso"`

	ExamID    string `json:"exam_id"`
	ExamTitle string `json:"exam_title"`

	CandidateName string `json:"candidate_name"`
	TGID          string `json:"tg_id"`
	TGUsername    string `json:"tg_username"`
	TGFirstName   string `json:"tg_first_name"`
	TGLastName    string `json:"tg_last_name"`

	Score        int          `json:"score"`
	Total        int          `json:"total"`
	Percent      int          `json:"percent"`
	Passed       bool         `json:"passed"`
	FinishReason FinishReason `json:"finish_reason"`
	DurationSec  int          `json:"duration_sec"`

	BlurCount   int `json:"blur_count"`
	HiddenCount int `json:"hidden_count"`
	LeaveCount  int `json:"leave_count"`

	Answers []SubmittedAnswer `json:"answers,omitempty"`
	Meta    map[string]string `json:"meta,omitempty"`
}
