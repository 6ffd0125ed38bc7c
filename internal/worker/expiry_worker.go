// Package worker hosts the background loops of the server process.
package worker

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/tgexam/backend/internal/exam"
	"github.com/tgexam/backend/internal/registry"
)

// ExpiryWorker periodically sweeps the attempt manager and submits the result
// of every attempt that ran past its deadline. Candidates who close the tab
// mid-exam still end up in the result log with reason time_up.
type ExpiryWorker struct {
	manager  *exam.Manager
	registry *registry.Registry
	interval time.Duration
	log      zerolog.Logger
}

// NewExpiryWorker creates a new ExpiryWorker.
func NewExpiryWorker(manager *exam.Manager, reg *registry.Registry, interval time.Duration, log zerolog.Logger) *ExpiryWorker {
	if interval <= 0 {
		interval = 15 * time.Second
	}
	return &ExpiryWorker{
		manager:  manager,
		registry: reg,
		interval: interval,
		log:      log.With().Str("component", "expiry_worker").Logger(),
	}
}

// Start begins the sweep loop. Call in a goroutine; returns when ctx ends.
func (w *ExpiryWorker) Start(ctx context.Context) {
	w.log.Info().Dur("interval", w.interval).Msg("Worker started")
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			// One last sweep so a shutdown does not swallow overdue attempts.
			w.sweep(context.Background())
			w.log.Info().Msg("Worker stopped")
			return
		case <-ticker.C:
			w.sweep(ctx)
		}
	}
}

func (w *ExpiryWorker) sweep(ctx context.Context) {
	expired := w.manager.ExpireOverdue()
	for _, e := range expired {
		if _, err := w.registry.SubmitResult(ctx, e.SessionID, e.Fields); err != nil {
			w.log.Error().Err(err).
				Str("session_id", e.SessionID).
				Msg("submit expired attempt failed")
			continue
		}
		w.log.Info().
			Str("session_id", e.SessionID).
			Str("candidate", e.Fields.CandidateName).
			Msg("Overdue attempt closed")
	}
}
