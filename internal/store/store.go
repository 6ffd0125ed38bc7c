// Package store provides the session map and the append-only result log
// behind small interfaces so deployments can choose process-local or
// external backends.
package store

import (
	"context"
	"errors"

	"github.com/tgexam/backend/internal/model"
)

// ErrNotFound is returned when a session id has no record (or it expired).
var ErrNotFound = errors.New("record not found")

// SessionStore maps an opaque session id to its mutable record. Mutations are
// keyed by session id; last write wins on a concurrent race for the same id.
type SessionStore interface {
	Get(ctx context.Context, sessionID string) (*model.SessionRecord, error)
	Put(ctx context.Context, rec *model.SessionRecord) error
	Delete(ctx context.Context, sessionID string) error
	// List returns all live records, in no particular order.
	List(ctx context.Context) ([]model.SessionRecord, error)
}

// ResultFilter narrows a result listing. Timestamps are epoch millis,
// matching the ts field of the records.
type ResultFilter struct {
	FromTS    *int64
	ToTS      *int64
	Candidate string
	TGID      string
}

// Matches reports whether a record passes the filter.
func (f ResultFilter) Matches(r *model.ResultRecord) bool {
	if f.FromTS != nil && r.Timestamp < *f.FromTS {
		return false
	}
	if f.ToTS != nil && r.Timestamp > *f.ToTS {
		return false
	}
	if f.Candidate != "" && r.CandidateName != f.Candidate {
		return false
	}
	if f.TGID != "" && r.TGID != f.TGID {
		return false
	}
	return true
}

// ResultLog is the append-only log of finished attempts. Rows are never
// updated; Delete exists only for the explicit admin surface.
type ResultLog interface {
	Append(ctx context.Context, rec *model.ResultRecord) error
	List(ctx context.Context, filter ResultFilter) ([]model.ResultRecord, error)
	// Delete removes one row by id, reporting whether it existed.
	Delete(ctx context.Context, id string) (bool, error)
}
