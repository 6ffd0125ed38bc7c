// Package registry correlates opaque session ids with accumulated accounting
// state and turns threshold crossings and finishes into admin notifications.
package registry

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/tgexam/backend/internal/exam"
	"github.com/tgexam/backend/internal/model"
	"github.com/tgexam/backend/internal/notify"
	"github.com/tgexam/backend/internal/store"
)

var (
	// ErrUnknownSession means the id has no live record. Fatal for the
	// operation, never for the process.
	ErrUnknownSession = errors.New("unknown session")
	// ErrRetakeNotAllowed rejects re-attempt requests for sessions that are
	// unfinished, passed, or closed for violations.
	ErrRetakeNotAllowed = errors.New("retake not allowed for this session")
)

// recentSessionsCap bounds the admin listing.
const recentSessionsCap = 50

// Ack answers an accounting event.
type Ack struct {
	Acknowledged bool `json:"acknowledged"`
	ShouldFinish bool `json:"should_finish"`
}

// Submission answers a result submission.
type Submission struct {
	Accepted bool `json:"accepted"`
	Passed   bool `json:"passed"`
}

// Monitor receives session lifecycle events for the live admin feed.
type Monitor interface {
	Publish(event string, payload interface{})
}

// NopMonitor drops all events.
type NopMonitor struct{}

func (NopMonitor) Publish(string, interface{}) {}

// Config carries the exam parameters and the exam identity stamped onto
// result rows.
type Config struct {
	Exam      exam.Config
	ExamID    string
	ExamTitle string
}

// Registry is the server-side session boundary. All state lives behind the
// injected store; the registry itself is stateless apart from configuration.
type Registry struct {
	sessions store.SessionStore
	results  store.ResultLog
	relay    notify.Relay
	monitor  Monitor
	cfg      Config
	log      zerolog.Logger
	now      func() time.Time
}

// New creates a Registry.
func New(
	sessions store.SessionStore,
	results store.ResultLog,
	relay notify.Relay,
	monitor Monitor,
	cfg Config,
	log zerolog.Logger,
) *Registry {
	return &Registry{
		sessions: sessions,
		results:  results,
		relay:    relay,
		monitor:  monitor,
		cfg:      cfg,
		log:      log.With().Str("component", "registry").Logger(),
		now:      time.Now,
	}
}

// IssueSession generates a fresh unique id and stores a zeroed record.
func (r *Registry) IssueSession(ctx context.Context) (*model.SessionRecord, error) {
	now := r.now()
	rec := &model.SessionRecord{
		SessionID: uuid.NewString(),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := r.sessions.Put(ctx, rec); err != nil {
		return nil, fmt.Errorf("store session: %w", err)
	}
	r.monitor.Publish("session_issued", rec)
	return rec, nil
}

// GetSession looks up a live record.
func (r *Registry) GetSession(ctx context.Context, sessionID string) (*model.SessionRecord, error) {
	rec, err := r.sessions.Get(ctx, sessionID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrUnknownSession
	}
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	return rec, nil
}

// RecordEvent applies one accounting event. Client-reported counters override
// server-held ones only upward; the server otherwise increments its own.
// Events for a finished session are acknowledged without mutation.
func (r *Registry) RecordEvent(ctx context.Context, sessionID string, req *model.EventRequest) (Ack, error) {
	rec, err := r.GetSession(ctx, sessionID)
	if err != nil {
		return Ack{}, err
	}
	if rec.Finished() {
		return Ack{Acknowledged: true, ShouldFinish: true}, nil
	}

	now := r.now()
	threshold := r.cfg.Exam.AutoFinishThreshold
	crossed := false

	switch model.EventType(req.Type) {
	case model.EventStart:
		if req.CandidateName != "" {
			rec.CandidateName = req.CandidateName
		}
		startedAt := now
		rec.StartedAt = &startedAt
		rec.BlurCount, rec.HiddenCount, rec.LeaveCount = 0, 0, 0
		r.dispatch(notify.StartMessage(rec))

	case model.EventBlur:
		rec.BlurCount = mergeCounter(rec.BlurCount+1, req.BlurCount)

	case model.EventHidden:
		prevLeave := rec.LeaveCount
		rec.HiddenCount = mergeCounter(rec.HiddenCount+1, req.HiddenCount)
		rec.LeaveCount = mergeCounter(rec.LeaveCount+1, req.LeaveCount)
		crossed = threshold > 0 && prevLeave < threshold && rec.LeaveCount >= threshold

	case model.EventVisible, model.EventFinish:
		// No increments: these carry the client's view of the counters only.
		rec.BlurCount = mergeCounter(rec.BlurCount, req.BlurCount)
		rec.HiddenCount = mergeCounter(rec.HiddenCount, req.HiddenCount)
		rec.LeaveCount = mergeCounter(rec.LeaveCount, req.LeaveCount)
	}

	rec.UpdatedAt = now
	if err := r.sessions.Put(ctx, rec); err != nil {
		return Ack{}, fmt.Errorf("store session: %w", err)
	}

	if crossed {
		r.dispatch(notify.ThresholdMessage(rec, threshold))
	}
	r.monitor.Publish("accounting_event", map[string]interface{}{
		"session_id": sessionID,
		"type":       req.Type,
		"blur":       rec.BlurCount,
		"hidden":     rec.HiddenCount,
		"leave":      rec.LeaveCount,
	})

	shouldFinish := threshold > 0 && rec.LeaveCount >= threshold
	return Ack{Acknowledged: true, ShouldFinish: shouldFinish}, nil
}

// SubmitResult finishes a session idempotently. The first call marks the
// record finished, appends a row to the result log and notifies the admin;
// repeat calls return success without re-processing or re-notifying.
func (r *Registry) SubmitResult(ctx context.Context, sessionID string, fields *model.ResultFields) (Submission, error) {
	rec, err := r.GetSession(ctx, sessionID)
	if err != nil {
		return Submission{}, err
	}
	if rec.Finished() {
		passed := exam.Passed(rec.Score, rec.Total, r.cfg.Exam, rec.FinishReason)
		return Submission{Accepted: true, Passed: passed}, nil
	}

	now := r.now()
	normalizeFields(fields, rec)

	passed := exam.Passed(fields.Score, fields.Total, r.cfg.Exam, fields.FinishReason)
	blur := mergeCounter(rec.BlurCount, &fields.BlurCount)
	hidden := mergeCounter(rec.HiddenCount, &fields.HiddenCount)
	leave := mergeCounter(rec.LeaveCount, &fields.LeaveCount)

	res := &model.ResultRecord{
		ID:            "res_" + uuid.NewString(),
		Timestamp:     now.UnixMilli(),
		DateISO:       now.UTC().Format(time.RFC3339),
		ExamID:        r.cfg.ExamID,
		ExamTitle:     r.cfg.ExamTitle,
		CandidateName: fields.CandidateName,
		Score:         fields.Score,
		Total:         fields.Total,
		Percent:       exam.Percent(fields.Score, fields.Total),
		Passed:        passed,
		FinishReason:  fields.FinishReason,
		DurationSec:   fields.DurationSec,
		BlurCount:     blur,
		HiddenCount:   hidden,
		LeaveCount:    leave,
		Answers:       fields.Answers,
		Meta:          map[string]string{"sid": sessionID},
	}
	if tg := fields.TG; tg != nil {
		res.TGID = fmt.Sprintf("%d", tg.ID)
		res.TGUsername = tg.Username
		res.TGFirstName = tg.FirstName
		res.TGLastName = tg.LastName
	}

	// The result row is written before the record turns terminal. A failed
	// append leaves the session live, so the client's retry can still
	// produce the row instead of hitting the idempotent branch empty-handed.
	if err := r.results.Append(ctx, res); err != nil {
		return Submission{}, fmt.Errorf("append result: %w", err)
	}

	rec.CandidateName = fields.CandidateName
	rec.Score = fields.Score
	rec.Total = fields.Total
	rec.BlurCount = blur
	rec.HiddenCount = hidden
	rec.LeaveCount = leave
	rec.FinishReason = fields.FinishReason
	finishedAt := now
	rec.FinishedAt = &finishedAt
	rec.UpdatedAt = now

	if err := r.sessions.Put(ctx, rec); err != nil {
		return Submission{}, fmt.Errorf("store session: %w", err)
	}

	r.dispatch(notify.FinishMessage(rec, res))
	r.monitor.Publish("session_finished", res)

	return Submission{Accepted: true, Passed: passed}, nil
}

// RequestRetake accepts a re-attempt request for a finished, failed,
// non-violation session and forwards it to the administrator.
func (r *Registry) RequestRetake(ctx context.Context, sessionID string, req *model.RetakeRequest) error {
	rec, err := r.GetSession(ctx, sessionID)
	if err != nil {
		return err
	}
	if !rec.Finished() {
		return ErrRetakeNotAllowed
	}
	if rec.FinishReason == model.FinishReasonViolations {
		return ErrRetakeNotAllowed
	}
	if exam.Passed(rec.Score, rec.Total, r.cfg.Exam, rec.FinishReason) {
		return ErrRetakeNotAllowed
	}

	if req.CandidateName == "" {
		req.CandidateName = rec.CandidateName
	}
	r.dispatch(notify.RetakeMessage(rec, req))
	r.monitor.Publish("retake_requested", map[string]interface{}{
		"session_id": sessionID,
		"candidate":  req.CandidateName,
	})
	return nil
}

// RecentSessions lists live sessions, most recently touched first.
func (r *Registry) RecentSessions(ctx context.Context) ([]model.SessionRecord, error) {
	sessions, err := r.sessions.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	sort.Slice(sessions, func(i, j int) bool {
		return sessions[i].UpdatedAt.After(sessions[j].UpdatedAt)
	})
	if len(sessions) > recentSessionsCap {
		sessions = sessions[:recentSessionsCap]
	}
	return sessions, nil
}

// ListResults reads the result log with an optional filter.
func (r *Registry) ListResults(ctx context.Context, filter store.ResultFilter) ([]model.ResultRecord, error) {
	return r.results.List(ctx, filter)
}

// DeleteResult removes one result row on explicit admin request.
func (r *Registry) DeleteResult(ctx context.Context, id string) (bool, error) {
	return r.results.Delete(ctx, id)
}

// dispatch sends a notification without blocking the caller. The outcome is
// logged; delivery failure never propagates.
func (r *Registry) dispatch(text string) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if r.relay.Notify(ctx, text) == notify.OutcomeFailed {
			r.log.Debug().Msg("admin notification not delivered")
		}
	}()
}

// mergeCounter prefers the client-reported value when present and higher.
func mergeCounter(server int, client *int) int {
	if client != nil && *client > server {
		return *client
	}
	return server
}

// normalizeFields fills defaults and clamps the score into [0, total].
func normalizeFields(fields *model.ResultFields, rec *model.SessionRecord) {
	if fields.CandidateName == "" {
		fields.CandidateName = rec.CandidateName
	}
	if fields.FinishReason == "" {
		fields.FinishReason = model.FinishReasonManual
	}
	if fields.Total < 0 {
		fields.Total = 0
	}
	if fields.Score < 0 {
		fields.Score = 0
	}
	if fields.Score > fields.Total {
		fields.Score = fields.Total
	}
	if fields.DurationSec < 0 {
		fields.DurationSec = 0
	}
}
