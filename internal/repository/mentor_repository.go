package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/connectsphere/booking-core/internal/model"
)

// MentorRepo reads mentor profiles.  Profiles are managed elsewhere; the
// booking core only needs the owner and the current rate.
type MentorRepo struct {
	db *sql.DB
}

// NewMentorRepo returns a MentorRepo bound to the given database.
func NewMentorRepo(db *sql.DB) *MentorRepo { return &MentorRepo{db: db} }

const mentorColumns = `id, user_id, display_name, rate_minor, currency, is_active, created_at, updated_at`

func scanMentor(s rowScanner) (*model.Mentor, error) {
	var m model.Mentor
	if err := s.Scan(&m.ID, &m.UserID, &m.DisplayName, &m.RateMinor, &m.Currency, &m.IsActive, &m.CreatedAt, &m.UpdatedAt); err != nil {
		return nil, err
	}
	return &m, nil
}

// GetByID returns ErrMentorNotFound if no mentor has this id.
func (r *MentorRepo) GetByID(ctx context.Context, id string) (*model.Mentor, error) {
	m, err := scanMentor(r.db.QueryRowContext(ctx, `SELECT `+mentorColumns+` FROM mentors WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrMentorNotFound
	}
	return m, err
}

// GetByUserID returns the mentor profile owned by a user account.
func (r *MentorRepo) GetByUserID(ctx context.Context, userID string) (*model.Mentor, error) {
	m, err := scanMentor(r.db.QueryRowContext(ctx, `SELECT `+mentorColumns+` FROM mentors WHERE user_id = ?`, userID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrMentorNotFound
	}
	return m, err
}
