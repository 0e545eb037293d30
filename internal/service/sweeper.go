package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/connectsphere/booking-core/internal/model"
)

const (
	sweepBatch = 100
	// attemptGrace keeps the sweeper away from attempts that a payment call
	// is still driving inline.
	attemptGrace = time.Minute
)

// Sweeper runs the periodic maintenance of the booking workflow.  It
// finishes captured payments whose booking write failed, follows up intents
// left waiting on the customer, and releases slots held by accepted
// requests that were never paid.
type Sweeper struct {
	requests  RequestStore
	attempts  AttemptStore
	finalizer *Finalizer
	notifier  Notifier
	expiry    time.Duration // 0 disables expiry
	interval  time.Duration
	log       *zap.Logger
	now       func() time.Time
}

func NewSweeper(st Stores, finalizer *Finalizer, notifier Notifier, expiry, interval time.Duration, log *zap.Logger) *Sweeper {
	return &Sweeper{
		requests:  st.Requests,
		attempts:  st.Attempts,
		finalizer: finalizer,
		notifier:  notifier,
		expiry:    expiry,
		interval:  interval,
		log:       log.With(zap.String("component", "sweeper")),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Run sweeps once per interval until ctx is cancelled.
func (s *Sweeper) Run(ctx context.Context) {
	t := time.NewTicker(s.interval)
	defer t.Stop()
	s.log.Info("sweeper started", zap.Duration("interval", s.interval), zap.Duration("expiry", s.expiry))
	for {
		select {
		case <-ctx.Done():
			s.log.Info("sweeper stopped")
			return
		case <-t.C:
			s.Sweep(ctx)
		}
	}
}

// Sweep runs the reconcile, follow-up and expiry passes in that order, so a
// request is only expired after its open intents were settled or closed.
func (s *Sweeper) Sweep(ctx context.Context) {
	if err := s.reconcile(ctx); err != nil {
		s.log.Error("reconcile pass failed", zap.Error(err))
	}
	if err := s.followUp(ctx); err != nil {
		s.log.Error("follow-up pass failed", zap.Error(err))
	}
	if err := s.expire(ctx); err != nil {
		s.log.Error("expiry pass failed", zap.Error(err))
	}
}

func (s *Sweeper) reconcile(ctx context.Context) error {
	captured, err := s.attempts.ListStale(ctx, model.AttemptCaptured, s.now().Add(-attemptGrace), sweepBatch)
	if err != nil {
		return fmt.Errorf("list captured attempts: %w", err)
	}
	for _, a := range captured {
		if err := s.finalizer.Reconcile(ctx, a); err != nil {
			s.log.Warn("reconcile attempt", zap.String("attempt_id", a.ID), zap.Error(err))
		}
	}
	return nil
}

func (s *Sweeper) followUp(ctx context.Context) error {
	waiting, err := s.attempts.ListStale(ctx, model.AttemptRequiresAction, s.now().Add(-attemptGrace), sweepBatch)
	if err != nil {
		return fmt.Errorf("list attempts awaiting action: %w", err)
	}
	var staleBefore time.Time
	if s.expiry > 0 {
		staleBefore = s.now().Add(-s.expiry)
	}
	for _, a := range waiting {
		if err := s.finalizer.Refresh(ctx, a, staleBefore); err != nil {
			s.log.Warn("follow up attempt", zap.String("attempt_id", a.ID), zap.Error(err))
		}
	}
	return nil
}

func (s *Sweeper) expire(ctx context.Context) error {
	if s.expiry <= 0 {
		return nil
	}
	cutoff := s.now().Add(-s.expiry)
	stale, err := s.requests.ListAbandoned(ctx, cutoff, sweepBatch)
	if err != nil {
		return fmt.Errorf("list abandoned requests: %w", err)
	}
	for _, r := range stale {
		removed, err := s.requests.DeleteAbandoned(ctx, r.ID, cutoff)
		if err != nil {
			s.log.Warn("expire request", zap.String("request_id", r.ID), zap.Error(err))
			continue
		}
		if !removed {
			continue
		}
		requestsExpiredTotal.Inc()
		s.log.Info("request expired", zap.String("request_id", r.ID), zap.String("slot", r.Slot.String()))
		notify(ctx, s.notifier, s.log, model.Notification{
			UserID:      r.UserID,
			Kind:        model.NotifyRequestExpired,
			Message:     fmt.Sprintf("Your accepted request for %s expired without payment", r.Slot),
			ReferenceID: r.ID,
		})
	}
	return nil
}
