package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/tgexam/backend/internal/exam"
	"github.com/tgexam/backend/internal/model"
	"github.com/tgexam/backend/internal/registry"
	"github.com/tgexam/backend/internal/response"
	"github.com/tgexam/backend/internal/validator"
)

// SessionHandler serves the candidate-facing exam flow.
type SessionHandler struct {
	registry *registry.Registry
	manager  *exam.Manager
	monitor  registry.Monitor
	log      zerolog.Logger
}

// NewSessionHandler creates a new SessionHandler.
func NewSessionHandler(reg *registry.Registry, manager *exam.Manager, monitor registry.Monitor, log zerolog.Logger) *SessionHandler {
	return &SessionHandler{
		registry: reg,
		manager:  manager,
		monitor:  monitor,
		log:      log.With().Str("component", "session_handler").Logger(),
	}
}

// attemptSink forwards the state machine's own accounting events onto the
// admin monitor feed.
func (h *SessionHandler) attemptSink(sessionID string) exam.EventSink {
	return func(e exam.Event) {
		h.monitor.Publish("attempt_event", map[string]interface{}{
			"session_id": sessionID,
			"type":       string(e.Type),
			"blur":       e.BlurCount,
			"hidden":     e.HiddenCount,
			"leave":      e.LeaveCount,
		})
	}
}

// CreateSession issues a fresh session id.
// POST /api/v1/sessions
func (h *SessionHandler) CreateSession(c *gin.Context) {
	rec, err := h.registry.IssueSession(c.Request.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("issue session failed")
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}
	response.Success(c, http.StatusCreated, gin.H{"session_id": rec.SessionID})
}

// StartAttempt begins (or restarts after a reload) the attempt for a session
// and hands out the selected question paper without correctness flags.
// POST /api/v1/sessions/:id/start
func (h *SessionHandler) StartAttempt(c *gin.Context) {
	sessionID := c.Param("id")

	var req model.StartAttemptRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	rec, err := h.registry.GetSession(c.Request.Context(), sessionID)
	if err != nil {
		response.Fail(c, http.StatusNotFound, response.ErrUnknownSession)
		return
	}
	if rec.Finished() {
		response.Fail(c, http.StatusConflict, response.ErrSessionFinished)
		return
	}

	att, err := h.manager.Begin(sessionID, req.CandidateName,
		exam.WithEventSink(h.attemptSink(sessionID)))
	if err != nil {
		if errors.Is(err, exam.ErrEmptyPool) {
			response.Fail(c, http.StatusConflict, response.ErrNoQuestions)
			return
		}
		h.log.Error().Err(err).Str("session_id", sessionID).Msg("begin attempt failed")
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	if _, err := h.registry.RecordEvent(c.Request.Context(), sessionID, &model.EventRequest{
		Type:          string(model.EventStart),
		CandidateName: req.CandidateName,
	}); err != nil {
		h.log.Error().Err(err).Str("session_id", sessionID).Msg("record start event failed")
	}

	response.Success(c, http.StatusOK, gin.H{
		"session_id":    sessionID,
		"questions":     att.Questions(),
		"remaining_sec": att.RemainingSec(),
	})
}

// SaveAnswer stores the selected option set for one question.
// PUT /api/v1/sessions/:id/answers
func (h *SessionHandler) SaveAnswer(c *gin.Context) {
	sessionID := c.Param("id")

	var req model.AnswerRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	att := h.manager.Get(sessionID)
	if att == nil {
		response.Fail(c, http.StatusConflict, response.ErrAttemptNotActive)
		return
	}
	if err := att.SetAnswer(req.QuestionID, req.OptionIDs); err != nil {
		switch {
		case errors.Is(err, exam.ErrNotInProgress):
			response.Fail(c, http.StatusConflict, response.ErrAttemptNotActive)
		case errors.Is(err, exam.ErrUnknownQuestion):
			response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		default:
			response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		}
		return
	}
	response.Success(c, http.StatusOK, gin.H{"saved": true})
}

// PostEvent accepts an accounting event, mirrors it into the live attempt and
// relays it to the registry. When the acknowledgement says the threshold was
// reached the attempt is closed and its result submitted server-side.
// POST /api/v1/sessions/:id/events
func (h *SessionHandler) PostEvent(c *gin.Context) {
	sessionID := c.Param("id")

	var req model.EventRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	att := h.manager.Get(sessionID)
	if att != nil {
		switch model.EventType(req.Type) {
		case model.EventBlur:
			att.MarkBlur()
		case model.EventHidden:
			att.MarkHidden()
		case model.EventVisible:
			att.MarkVisible()
		}
		// Sync the attempt's own counters into the relayed event so the
		// registry never undercounts what the machine already saw.
		blur, hidden, leave := att.Counters()
		req.BlurCount = maxPtr(req.BlurCount, blur)
		req.HiddenCount = maxPtr(req.HiddenCount, hidden)
		req.LeaveCount = maxPtr(req.LeaveCount, leave)
	}

	ack, err := h.registry.RecordEvent(c.Request.Context(), sessionID, &req)
	if err != nil {
		if errors.Is(err, registry.ErrUnknownSession) {
			response.Fail(c, http.StatusNotFound, response.ErrUnknownSession)
			return
		}
		h.log.Error().Err(err).Str("session_id", sessionID).Msg("record event failed")
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	if ack.ShouldFinish && att != nil {
		att.FinishViolations() // no-op when the machine already closed itself
		h.submitAttempt(c, sessionID, att, nil)
	}

	response.Success(c, http.StatusOK, ack)
}

// Submit finishes the attempt and records the result. When the server holds
// the live attempt its recomputed score wins over the client-reported one.
// POST /api/v1/sessions/:id/submit
func (h *SessionHandler) Submit(c *gin.Context) {
	sessionID := c.Param("id")

	var req model.SubmitRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	att := h.manager.Get(sessionID)
	if att != nil && att.Phase() == exam.PhaseInProgress {
		switch model.FinishReason(req.FinishReason) {
		case model.FinishReasonViolations:
			att.FinishViolations()
		case model.FinishReasonTimeUp:
			att.Tick()
			att.FinishManual() // no-op when the tick already closed it
		default:
			att.FinishManual()
		}
	}

	var fields *model.ResultFields
	if att != nil {
		fields = att.ResultFields()
	}
	if fields == nil {
		fields = fieldsFromClient(&req)
	}
	if fields.CandidateName == "" {
		fields.CandidateName = req.CandidateName
	}
	fields.TG = req.TG

	sub, err := h.registry.SubmitResult(c.Request.Context(), sessionID, fields)
	if err != nil {
		if errors.Is(err, registry.ErrUnknownSession) {
			response.Fail(c, http.StatusNotFound, response.ErrUnknownSession)
			return
		}
		h.log.Error().Err(err).Str("session_id", sessionID).Msg("submit result failed")
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}
	h.manager.Remove(sessionID)

	// The stored record is authoritative for the echoed numbers: a resubmit
	// of a finished session must not reflect whatever the retry body carried.
	score, total := fields.Score, fields.Total
	if rec, err := h.registry.GetSession(c.Request.Context(), sessionID); err == nil && rec.Finished() {
		score, total = rec.Score, rec.Total
	}

	response.Success(c, http.StatusOK, gin.H{
		"accepted": sub.Accepted,
		"passed":   sub.Passed,
		"score":    score,
		"total":    total,
		"percent":  exam.Percent(score, total),
	})
}

// Retake forwards a re-attempt request to the administrator.
// POST /api/v1/sessions/:id/retake
func (h *SessionHandler) Retake(c *gin.Context) {
	sessionID := c.Param("id")

	var req model.RetakeRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	err := h.registry.RequestRetake(c.Request.Context(), sessionID, &req)
	switch {
	case errors.Is(err, registry.ErrUnknownSession):
		response.Fail(c, http.StatusNotFound, response.ErrUnknownSession)
	case errors.Is(err, registry.ErrRetakeNotAllowed):
		response.Fail(c, http.StatusConflict, response.ErrRetakeNotAllowed)
	case err != nil:
		h.log.Error().Err(err).Str("session_id", sessionID).Msg("retake request failed")
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
	default:
		response.Success(c, http.StatusAccepted, gin.H{"accepted": true})
	}
}

// submitAttempt records a server-initiated finish. Used for the violation
// auto-finish path where no client submission will follow reliably.
func (h *SessionHandler) submitAttempt(c *gin.Context, sessionID string, att *exam.Attempt, tg *model.TelegramIdentity) {
	fields := att.ResultFields()
	if fields == nil {
		return
	}
	fields.TG = tg
	if _, err := h.registry.SubmitResult(c.Request.Context(), sessionID, fields); err != nil {
		h.log.Error().Err(err).Str("session_id", sessionID).Msg("auto-submit failed")
		return
	}
	h.manager.Remove(sessionID)
}

// fieldsFromClient trusts the client submission when no server-side attempt
// survives (e.g. the process restarted mid-exam).
func fieldsFromClient(req *model.SubmitRequest) *model.ResultFields {
	fields := &model.ResultFields{
		CandidateName: req.CandidateName,
		FinishReason:  model.FinishReason(req.FinishReason),
		Answers:       req.Answers,
	}
	if req.Score != nil {
		fields.Score = *req.Score
	}
	if req.Total != nil {
		fields.Total = *req.Total
	}
	if req.DurationSec != nil {
		fields.DurationSec = *req.DurationSec
	}
	if req.BlurCount != nil {
		fields.BlurCount = *req.BlurCount
	}
	if req.HiddenCount != nil {
		fields.HiddenCount = *req.HiddenCount
	}
	if req.LeaveCount != nil {
		fields.LeaveCount = *req.LeaveCount
	}
	return fields
}

func maxPtr(client *int, server int) *int {
	if client != nil && *client > server {
		return client
	}
	return &server
}
