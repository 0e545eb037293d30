package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/connectsphere/booking-core/internal/model"
)

// CreateGroupRequest asks to join a group.  Members, users with an open
// request and the group's own mentor are refused; a full group is refused
// with ErrGroupFull.
func (m *RequestManager) CreateGroupRequest(ctx context.Context, p model.Principal, groupID string) (*model.GroupRequest, error) {
	group, err := m.groups.GetGroup(ctx, groupID)
	if err != nil {
		return nil, translate(err)
	}
	mentor, err := m.mentors.GetByID(ctx, group.MentorID)
	if err != nil {
		return nil, translate(err)
	}
	if mentor.UserID == p.ID {
		return nil, fmt.Errorf("%w: cannot join your own group", ErrInvalidState)
	}
	member, err := m.groups.IsMember(ctx, group.ID, p.ID)
	if err != nil {
		return nil, fmt.Errorf("membership lookup: %w", err)
	}
	if member {
		return nil, fmt.Errorf("%w: already a member", ErrInvalidState)
	}
	open, err := m.groups.HasOutstandingRequest(ctx, group.ID, p.ID)
	if err != nil {
		return nil, fmt.Errorf("duplicate lookup: %w", err)
	}
	if open {
		return nil, fmt.Errorf("%w: a request for this group is already open", ErrInvalidState)
	}
	if group.Full() {
		return nil, ErrGroupFull
	}

	now := m.now()
	gr := &model.GroupRequest{
		ID:            uuid.NewString(),
		GroupID:       group.ID,
		UserID:        p.ID,
		Status:        model.AcceptancePending,
		PaymentStatus: model.PaymentPending,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := m.groups.CreateRequest(ctx, gr); err != nil {
		return nil, fmt.Errorf("create group request: %w", err)
	}
	m.log.Info("group request created", zap.String("group_request_id", gr.ID), zap.String("group_id", group.ID))
	notify(ctx, m.notifier, m.log, model.Notification{
		UserID:      mentor.UserID,
		Kind:        model.NotifyGroupRequestCreated,
		Message:     fmt.Sprintf("New request to join %s", group.Name),
		ReferenceID: gr.ID,
	})
	return gr, nil
}

func (m *RequestManager) loadManagedGroupRequest(ctx context.Context, p model.Principal, id string) (*model.GroupRequest, *model.Group, error) {
	gr, err := m.groups.GetRequest(ctx, id)
	if err != nil {
		return nil, nil, translate(err)
	}
	group, err := m.groups.GetGroup(ctx, gr.GroupID)
	if err != nil {
		return nil, nil, translate(err)
	}
	mentor, err := m.mentors.GetByID(ctx, group.MentorID)
	if err != nil {
		return nil, nil, translate(err)
	}
	if !canManageMentor(p, mentor) {
		return nil, nil, ErrForbidden
	}
	return gr, group, nil
}

// AcceptGroupRequest moves a PENDING group request to ACCEPTED.  The member
// ceiling is checked under a row lock on the group; a full group yields
// ErrGroupFull and leaves the request PENDING.
func (m *RequestManager) AcceptGroupRequest(ctx context.Context, p model.Principal, id string) (*model.GroupRequest, error) {
	gr, group, err := m.loadManagedGroupRequest(ctx, p, id)
	if err != nil {
		return nil, err
	}
	if gr.Status != model.AcceptancePending {
		return nil, fmt.Errorf("%w: group request is %s", ErrInvalidState, gr.Status)
	}
	now := m.now()
	if err := m.groups.AcceptRequest(ctx, gr.ID, group.ID, now); err != nil {
		return nil, translate(err)
	}
	gr.Status = model.AcceptanceAccepted
	gr.UpdatedAt = now

	m.log.Info("group request accepted", zap.String("group_request_id", gr.ID))
	notify(ctx, m.notifier, m.log, model.Notification{
		UserID:      gr.UserID,
		Kind:        model.NotifyGroupRequestDecided,
		Message:     fmt.Sprintf("Your request to join %s was accepted; complete payment to join", group.Name),
		ReferenceID: gr.ID,
	})
	return gr, nil
}

// RejectGroupRequest moves a PENDING group request to REJECTED.
func (m *RequestManager) RejectGroupRequest(ctx context.Context, p model.Principal, id string) (*model.GroupRequest, error) {
	gr, group, err := m.loadManagedGroupRequest(ctx, p, id)
	if err != nil {
		return nil, err
	}
	if gr.Status != model.AcceptancePending {
		return nil, fmt.Errorf("%w: group request is %s", ErrInvalidState, gr.Status)
	}
	now := m.now()
	if err := m.groups.RejectRequest(ctx, gr.ID, now); err != nil {
		return nil, translate(err)
	}
	gr.Status = model.AcceptanceRejected
	gr.UpdatedAt = now

	notify(ctx, m.notifier, m.log, model.Notification{
		UserID:      gr.UserID,
		Kind:        model.NotifyGroupRequestDecided,
		Message:     fmt.Sprintf("Your request to join %s was declined", group.Name),
		ReferenceID: gr.ID,
	})
	return gr, nil
}
