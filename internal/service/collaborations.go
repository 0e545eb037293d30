package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/connectsphere/booking-core/internal/model"
	"github.com/connectsphere/booking-core/internal/repository"
)

// Collaboration returns one booking visible to p: its mentee, its mentor or
// an admin.
func (f *Finalizer) Collaboration(ctx context.Context, p model.Principal, id string) (*model.Collaboration, error) {
	c, err := f.collabs.GetByID(ctx, id)
	if err != nil {
		return nil, translate(err)
	}
	if c.UserID == p.ID || p.IsAdmin() {
		return c, nil
	}
	mentor, err := f.mentors.GetByID(ctx, c.MentorID)
	if err != nil {
		return nil, translate(err)
	}
	if mentor.UserID != p.ID {
		return nil, ErrForbidden
	}
	return c, nil
}

// Collaborations lists the bookings where p is the mentee or the mentor.
func (f *Finalizer) Collaborations(ctx context.Context, p model.Principal) ([]*model.Collaboration, error) {
	mentorID := ""
	mentor, err := f.mentors.GetByUserID(ctx, p.ID)
	switch {
	case err == nil:
		mentorID = mentor.ID
	case !errors.Is(err, repository.ErrMentorNotFound):
		return nil, fmt.Errorf("mentor lookup: %w", err)
	}
	out, err := f.collabs.ListByParticipant(ctx, p.ID, mentorID)
	if err != nil {
		return nil, fmt.Errorf("list collaborations: %w", err)
	}
	return out, nil
}
