package service

import (
	"context"
	"time"

	"github.com/connectsphere/booking-core/internal/model"
	"github.com/connectsphere/booking-core/internal/repository"
)

// The store interfaces below are implemented by the repository package and
// by in-memory fakes in tests.

type MentorStore interface {
	GetByID(ctx context.Context, id string) (*model.Mentor, error)
	GetByUserID(ctx context.Context, userID string) (*model.Mentor, error)
}

type RequestStore interface {
	Create(ctx context.Context, req *model.MentorshipRequest) error
	GetByID(ctx context.Context, id string) (*model.MentorshipRequest, error)
	FindConflicting(ctx context.Context, userID string, slot model.Slot, excludeID string) ([]*model.MentorshipRequest, error)
	HasOutstanding(ctx context.Context, userID, mentorID string, slot model.Slot) (bool, error)
	Accept(ctx context.Context, p repository.AcceptParams) error
	Reject(ctx context.Context, id string, at time.Time) error
	ListByUser(ctx context.Context, userID string) ([]*model.MentorshipRequest, error)
	ListByMentor(ctx context.Context, mentorID string) ([]*model.MentorshipRequest, error)
	ListAbandoned(ctx context.Context, cutoff time.Time, limit int) ([]*model.MentorshipRequest, error)
	DeleteAbandoned(ctx context.Context, id string, cutoff time.Time) (bool, error)
}

type SlotStore interface {
	IsLocked(ctx context.Context, mentorID string, slot model.Slot) (bool, error)
	LockedSlots(ctx context.Context, mentorID string) ([]model.Slot, error)
}

type CollaborationStore interface {
	FinalizeFromRequest(ctx context.Context, c *model.Collaboration, requestID, attemptID string) error
	GetByID(ctx context.Context, id string) (*model.Collaboration, error)
	ListByParticipant(ctx context.Context, userID, mentorID string) ([]*model.Collaboration, error)
	HasActiveForUserSlot(ctx context.Context, userID string, slot model.Slot) (bool, error)
}

type GroupStore interface {
	GetGroup(ctx context.Context, id string) (*model.Group, error)
	IsMember(ctx context.Context, groupID, userID string) (bool, error)
	HasOutstandingRequest(ctx context.Context, groupID, userID string) (bool, error)
	CreateRequest(ctx context.Context, g *model.GroupRequest) error
	GetRequest(ctx context.Context, id string) (*model.GroupRequest, error)
	AcceptRequest(ctx context.Context, requestID, groupID string, at time.Time) error
	RejectRequest(ctx context.Context, requestID string, at time.Time) error
	FinalizePayment(ctx context.Context, g *model.GroupRequest, amountMinor int64, attemptID string, at time.Time) error
}

type AttemptStore interface {
	Create(ctx context.Context, a *model.PaymentAttempt) error
	GetByKey(ctx context.Context, key string) (*model.PaymentAttempt, error)
	FindOpenByRequest(ctx context.Context, kind model.RequestKind, requestID string) (*model.PaymentAttempt, error)
	MarkOutcome(ctx context.Context, id string, status model.AttemptStatus, intentID, reason string, at time.Time) error
	ListStale(ctx context.Context, status model.AttemptStatus, before time.Time, limit int) ([]*model.PaymentAttempt, error)
}

// Notifier delivers user notifications.  Delivery is best effort: callers
// log a failure and carry on.
type Notifier interface {
	Notify(ctx context.Context, n model.Notification) error
}

// Stores bundles the persistence collaborators shared by the services.
type Stores struct {
	Mentors        MentorStore
	Requests       RequestStore
	Slots          SlotStore
	Collaborations CollaborationStore
	Groups         GroupStore
	Attempts       AttemptStore
}
