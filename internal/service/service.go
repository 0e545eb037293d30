// Package service holds the booking workflow: the slot registry, the request
// lifecycle manager, the payment finalizer and the background sweeper.
// Handlers call into it with an authenticated model.Principal; it talks to
// MySQL through the store interfaces and to the outside world through
// payment.Gateway and Notifier.
package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/connectsphere/booking-core/internal/model"
	"github.com/connectsphere/booking-core/internal/repository"
)

// notify sends n and only logs a failure; a notification never undoes the
// transition that triggered it.
func notify(ctx context.Context, n Notifier, log *zap.Logger, msg model.Notification) {
	if n == nil {
		return
	}
	if err := n.Notify(ctx, msg); err != nil {
		log.Warn("notification failed",
			zap.String("user_id", msg.UserID),
			zap.String("kind", string(msg.Kind)),
			zap.Error(err))
	}
}

// translate maps repository sentinels onto service error kinds.
func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repository.ErrMentorNotFound),
		errors.Is(err, repository.ErrRequestNotFound),
		errors.Is(err, repository.ErrCollaborationNotFound),
		errors.Is(err, repository.ErrGroupNotFound),
		errors.Is(err, repository.ErrGroupRequestNotFound):
		return fmt.Errorf("%w: %v", ErrNotFound, err)
	case errors.Is(err, repository.ErrStaleState):
		return fmt.Errorf("%w: %v", ErrInvalidState, err)
	case errors.Is(err, repository.ErrSlotTaken):
		return ErrSlotLocked
	case errors.Is(err, repository.ErrGroupFull):
		return ErrGroupFull
	}
	return err
}

// canManageMentor reports whether p acts for mentor m.
func canManageMentor(p model.Principal, m *model.Mentor) bool {
	return p.IsAdmin() || m.UserID == p.ID
}
