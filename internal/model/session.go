package model

import "time"

// FinishReason is the mutually exclusive cause of an attempt ending.
type FinishReason string

const (
	FinishReasonManual     FinishReason = "manual"
	FinishReasonTimeUp     FinishReason = "time_up"
	FinishReasonViolations FinishReason = "too_many_violations"
)

// SessionRecord is the server-held counterpart of one attempt. FinishedAt
// transitions nil → timestamp exactly once; the record is never mutated after.
type SessionRecord struct {
	SessionID     string       `json:"session_id"`
	CreatedAt     time.Time    `json:"created_at"`
	UpdatedAt     time.Time    `json:"updated_at"`
	CandidateName string       `json:"candidate_name,omitempty"`
	BlurCount     int          `json:"blur_count"`
	HiddenCount   int          `json:"hidden_count"`
	LeaveCount    int          `json:"leave_count"`
	StartedAt     *time.Time   `json:"started_at,omitempty"`
	FinishedAt    *time.Time   `json:"finished_at,omitempty"`
	FinishReason  FinishReason `json:"finish_reason,omitempty"`
	Score         int          `json:"score"`
	Total         int          `json:"total"`
}

// Finished reports whether the record has reached its terminal state.
func (r *SessionRecord) Finished() bool {
	return r.FinishedAt != nil
}

// EventType enumerates client accounting events.
type EventType string

const (
	EventStart   EventType = "start"
	EventBlur    EventType = "blur"
	EventHidden  EventType = "hidden"
	EventVisible EventType = "visible"
	EventFinish  EventType = "finish"
)

// StartAttemptRequest is the payload for beginning an attempt.
type StartAttemptRequest struct {
	CandidateName string `json:"candidate_name" binding:"required,min=1,max=200"`
}

// AnswerRequest records the selected option set for one question.
// An empty option_ids clears the answer.
type AnswerRequest struct {
	QuestionID string   `json:"question_id" binding:"required"`
	OptionIDs  []string `json:"option_ids" binding:"max=32"`
}

// EventRequest is an accounting ping from the client. Counter fields are
// optional; when present they override server-held counters only upward.
type EventRequest struct {
	Type          string `json:"type" binding:"required,oneof=start blur hidden visible finish"`
	CandidateName string `json:"candidate_name" binding:"max=200"`
	BlurCount     *int   `json:"blur_count" binding:"omitempty,min=0"`
	HiddenCount   *int   `json:"hidden_count" binding:"omitempty,min=0"`
	LeaveCount    *int   `json:"leave_count" binding:"omitempty,min=0"`
	Timestamp     int64  `json:"ts"`
}

// SubmittedAnswer is one question's outcome inside a submission.
type SubmittedAnswer struct {
	QuestionID string   `json:"q_id"`
	Text       string   `json:"q_text,omitempty"`
	Chosen     []string `json:"chosen"`
	Correct    []string `json:"correct,omitempty"`
	IsCorrect  bool     `json:"is_correct"`
}

// TelegramIdentity mirrors the identity fields the mini-app receives from
// the embedding Telegram client.
type TelegramIdentity struct {
	ID        int64  `json:"id"`
	Username  string `json:"username"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

// SubmitRequest carries the authoritative final counters and score for an
// attempt. The server recomputes the score when it holds the attempt's answers.
type SubmitRequest struct {
	CandidateName string            `json:"candidate_name" binding:"max=200"`
	Score         *int              `json:"score" binding:"omitempty,min=0"`
	Total         *int              `json:"total" binding:"omitempty,min=0"`
	FinishReason  string            `json:"finish_reason" binding:"omitempty,oneof=manual time_up too_many_violations"`
	BlurCount     *int              `json:"blur_count" binding:"omitempty,min=0"`
	HiddenCount   *int              `json:"hidden_count" binding:"omitempty,min=0"`
	LeaveCount    *int              `json:"leave_count" binding:"omitempty,min=0"`
	DurationSec   *int              `json:"duration_sec" binding:"omitempty,min=0"`
	Answers       []SubmittedAnswer `json:"answers" binding:"max=500"`
	TG            *TelegramIdentity `json:"tg"`
}

// RetakeRequest asks the administrator for a re-attempt. Only valid for a
// finished, failed, non-violation session.
type RetakeRequest struct {
	CandidateName string `json:"candidate_name" binding:"max=200"`
	Score         int    `json:"score" binding:"min=0"`
	Total         int    `json:"total" binding:"min=0"`
	FinishReason  string `json:"finish_reason" binding:"omitempty,oneof=manual time_up too_many_violations"`
}

// ResultFields is the validated, defaulted form of a submission applied by
// the registry. Built either from the server-side attempt (preferred) or from
// a client SubmitRequest.
type ResultFields struct {
	CandidateName string
	Score         int
	Total         int
	FinishReason  FinishReason
	DurationSec   int
	BlurCount     int
	HiddenCount   int
	LeaveCount    int
	Answers       []SubmittedAnswer
	TG            *TelegramIdentity
}
