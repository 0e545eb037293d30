package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/connectsphere/booking-core/internal/model"
	"github.com/connectsphere/booking-core/internal/repository"
)

// RequestManager owns the PENDING -> ACCEPTED/REJECTED transitions of
// mentorship and group requests.
type RequestManager struct {
	mentors  MentorStore
	requests RequestStore
	slots    SlotStore
	collabs  CollaborationStore
	groups   GroupStore
	notifier Notifier
	log      *zap.Logger
	now      func() time.Time
}

func NewRequestManager(st Stores, notifier Notifier, log *zap.Logger) *RequestManager {
	return &RequestManager{
		mentors:  st.Mentors,
		requests: st.Requests,
		slots:    st.Slots,
		collabs:  st.Collaborations,
		groups:   st.Groups,
		notifier: notifier,
		log:      log.With(zap.String("component", "requests")),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// CreateRequestInput is the body of a new mentorship request.
type CreateRequestInput struct {
	MentorID string
	Day      string
	TimeSlot string
}

// Create submits a PENDING request from p for one mentor slot.  The mentor's
// current rate is copied onto the request and is what payment will charge.
func (m *RequestManager) Create(ctx context.Context, p model.Principal, in CreateRequestInput) (*model.MentorshipRequest, error) {
	slot, err := model.NewSlot(in.Day, in.TimeSlot)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	mentor, err := m.mentors.GetByID(ctx, in.MentorID)
	if err != nil {
		return nil, translate(err)
	}
	if !mentor.IsActive {
		return nil, fmt.Errorf("%w: mentor %s is not accepting requests", ErrNotFound, mentor.ID)
	}
	if mentor.UserID == p.ID {
		return nil, fmt.Errorf("%w: cannot request your own mentor profile", ErrInvalidState)
	}
	if mentor.RateMinor <= 0 {
		return nil, fmt.Errorf("%w: mentor %s has no rate", ErrInvalidState, mentor.ID)
	}

	locked, err := m.slots.IsLocked(ctx, mentor.ID, slot)
	if err != nil {
		return nil, fmt.Errorf("slot lock lookup: %w", err)
	}
	if locked {
		return nil, ErrSlotLocked
	}
	dup, err := m.requests.HasOutstanding(ctx, p.ID, mentor.ID, slot)
	if err != nil {
		return nil, fmt.Errorf("duplicate lookup: %w", err)
	}
	if dup {
		return nil, fmt.Errorf("%w: a request for this slot is already open", ErrInvalidState)
	}

	now := m.now()
	req := &model.MentorshipRequest{
		ID:            uuid.NewString(),
		MentorID:      mentor.ID,
		UserID:        p.ID,
		Slot:          slot,
		PriceMinor:    mentor.RateMinor,
		Currency:      mentor.Currency,
		IsAccepted:    model.AcceptancePending,
		PaymentStatus: model.PaymentPending,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := m.requests.Create(ctx, req); err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	m.log.Info("request created",
		zap.String("request_id", req.ID),
		zap.String("mentor_id", req.MentorID),
		zap.String("slot", slot.String()))
	notify(ctx, m.notifier, m.log, model.Notification{
		UserID:      mentor.UserID,
		Kind:        model.NotifyRequestCreated,
		Message:     fmt.Sprintf("New mentorship request for %s", slot),
		ReferenceID: req.ID,
	})
	return req, nil
}

// loadManaged fetches a request and checks that p may decide on it.
func (m *RequestManager) loadManaged(ctx context.Context, p model.Principal, id string) (*model.MentorshipRequest, error) {
	req, err := m.requests.GetByID(ctx, id)
	if err != nil {
		return nil, translate(err)
	}
	mentor, err := m.mentors.GetByID(ctx, req.MentorID)
	if err != nil {
		return nil, translate(err)
	}
	if !canManageMentor(p, mentor) {
		return nil, ErrForbidden
	}
	return req, nil
}

// Accept moves a PENDING request to ACCEPTED.  When the requester holds
// other outstanding requests for the same wall-clock slot, the call fails
// with *ConflictError unless confirm is set; with confirm the conflicts are
// deleted in the same transaction as the accept.  Two concurrent accepts of
// the same request are serialized by the store; the loser gets
// ErrInvalidState.
func (m *RequestManager) Accept(ctx context.Context, p model.Principal, id string, confirm bool) (*model.MentorshipRequest, error) {
	req, err := m.loadManaged(ctx, p, id)
	if err != nil {
		return nil, err
	}
	if req.IsAccepted != model.AcceptancePending {
		return nil, fmt.Errorf("%w: request is %s", ErrInvalidState, req.IsAccepted)
	}
	booked, err := m.collabs.HasActiveForUserSlot(ctx, req.UserID, req.Slot)
	if err != nil {
		return nil, fmt.Errorf("collaboration lookup: %w", err)
	}
	if booked {
		return nil, fmt.Errorf("%w: requester already has a booking at %s", ErrInvalidState, req.Slot)
	}

	conflicts, err := m.requests.FindConflicting(ctx, req.UserID, req.Slot, req.ID)
	if err != nil {
		return nil, fmt.Errorf("conflict lookup: %w", err)
	}
	if len(conflicts) > 0 && !confirm {
		return nil, &ConflictError{Conflicts: conflicts}
	}
	withdraw := make([]string, 0, len(conflicts))
	for _, c := range conflicts {
		withdraw = append(withdraw, c.ID)
	}

	now := m.now()
	err = m.requests.Accept(ctx, repository.AcceptParams{
		ID:          req.ID,
		MentorID:    req.MentorID,
		Slot:        req.Slot,
		WithdrawIDs: withdraw,
		At:          now,
	})
	if err != nil {
		return nil, translate(err)
	}
	req.IsAccepted = model.AcceptanceAccepted
	req.AcceptedAt = &now
	req.UpdatedAt = now

	m.log.Info("request accepted",
		zap.String("request_id", req.ID),
		zap.Strings("withdrawn", withdraw))
	notify(ctx, m.notifier, m.log, model.Notification{
		UserID:      req.UserID,
		Kind:        model.NotifyRequestAccepted,
		Message:     fmt.Sprintf("Your request for %s was accepted; complete payment to confirm", req.Slot),
		ReferenceID: req.ID,
	})
	for _, c := range conflicts {
		notify(ctx, m.notifier, m.log, model.Notification{
			UserID:      c.UserID,
			Kind:        model.NotifyRequestWithdrawn,
			Message:     fmt.Sprintf("Your other request for %s was withdrawn", c.Slot),
			ReferenceID: c.ID,
		})
	}
	return req, nil
}

// Reject moves a PENDING request to REJECTED.  A rejected request never
// holds a slot.
func (m *RequestManager) Reject(ctx context.Context, p model.Principal, id string) (*model.MentorshipRequest, error) {
	req, err := m.loadManaged(ctx, p, id)
	if err != nil {
		return nil, err
	}
	if req.IsAccepted != model.AcceptancePending {
		return nil, fmt.Errorf("%w: request is %s", ErrInvalidState, req.IsAccepted)
	}
	now := m.now()
	if err := m.requests.Reject(ctx, req.ID, now); err != nil {
		return nil, translate(err)
	}
	req.IsAccepted = model.AcceptanceRejected
	req.UpdatedAt = now

	m.log.Info("request rejected", zap.String("request_id", req.ID))
	notify(ctx, m.notifier, m.log, model.Notification{
		UserID:      req.UserID,
		Kind:        model.NotifyRequestRejected,
		Message:     fmt.Sprintf("Your request for %s was declined", req.Slot),
		ReferenceID: req.ID,
	})
	return req, nil
}

// Get returns a request visible to p: its requester, its mentor or an admin.
func (m *RequestManager) Get(ctx context.Context, p model.Principal, id string) (*model.MentorshipRequest, error) {
	req, err := m.requests.GetByID(ctx, id)
	if err != nil {
		return nil, translate(err)
	}
	if req.UserID == p.ID || p.IsAdmin() {
		return req, nil
	}
	mentor, err := m.mentors.GetByID(ctx, req.MentorID)
	if err != nil {
		return nil, translate(err)
	}
	if mentor.UserID != p.ID {
		return nil, ErrForbidden
	}
	return req, nil
}

// ListMine returns the requests p created.
func (m *RequestManager) ListMine(ctx context.Context, p model.Principal) ([]*model.MentorshipRequest, error) {
	out, err := m.requests.ListByUser(ctx, p.ID)
	if err != nil {
		return nil, fmt.Errorf("list requests: %w", err)
	}
	return out, nil
}

// ListForMentor returns the requests addressed to p's mentor profile.
func (m *RequestManager) ListForMentor(ctx context.Context, p model.Principal) ([]*model.MentorshipRequest, error) {
	mentor, err := m.mentors.GetByUserID(ctx, p.ID)
	if err != nil {
		return nil, translate(err)
	}
	out, err := m.requests.ListByMentor(ctx, mentor.ID)
	if err != nil {
		return nil, fmt.Errorf("list requests: %w", err)
	}
	return out, nil
}
