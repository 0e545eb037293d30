package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"

	"github.com/connectsphere/booking-core/internal/model"
)

var (
	testNow  = time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	testSlot = model.Slot{Day: model.Monday, TimeSlot: "10:00 AM"}
)

var requestCols = []string{"id", "mentor_id", "user_id", "day", "time_slot", "price_minor", "currency",
	"is_accepted", "payment_status", "accepted_at", "created_at", "updated_at"}

func TestRequestRepo_GetByID(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(regexp.QuoteMeta("FROM mentorship_requests WHERE id = ?")).
		WithArgs("r1").
		WillReturnRows(sqlmock.NewRows(requestCols).
			AddRow("r1", "m1", "u1", "Monday", "10:00 AM", int64(50000), "inr", "ACCEPTED", "PENDING", testNow, testNow, testNow))

	req, err := NewRequestRepo(db).GetByID(context.Background(), "r1")
	require.NoError(t, err)
	require.Equal(t, testSlot, req.Slot)
	require.Equal(t, model.AcceptanceAccepted, req.IsAccepted)
	require.NotNil(t, req.AcceptedAt)
	require.True(t, req.SoftLocked())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRequestRepo_GetByID_NotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(regexp.QuoteMeta("FROM mentorship_requests WHERE id = ?")).
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows(requestCols))

	_, err = NewRequestRepo(db).GetByID(context.Background(), "missing")
	require.ErrorIs(t, err, ErrRequestNotFound)
}

func TestRequestRepo_FindConflicting(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(regexp.QuoteMeta("WHERE user_id = ? AND day = ? AND time_slot = ? AND id <> ?")).
		WithArgs("u1", "Monday", "10:00 AM", "r2").
		WillReturnRows(sqlmock.NewRows(requestCols).
			AddRow("r1", "m1", "u1", "Monday", "10:00 AM", int64(50000), "inr", "PENDING", "PENDING", nil, testNow, testNow))

	out, err := NewRequestRepo(db).FindConflicting(context.Background(), "u1", testSlot, "r2")
	require.NoError(t, err)
	require.Len(t, out, 1)
	require.Equal(t, "r1", out[0].ID)
	require.Nil(t, out[0].AcceptedAt)
	require.NoError(t, mock.ExpectationsWereMet())
}

func expectMentorLock(mock sqlmock.Sqlmock, mentorID string) {
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id FROM mentors WHERE id = ? FOR UPDATE")).
		WithArgs(mentorID).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(mentorID))
}

func expectSlotLocked(mock sqlmock.Sqlmock, locked bool) {
	mock.ExpectQuery(regexp.QuoteMeta("FROM collaborations")).
		WillReturnRows(sqlmock.NewRows([]string{"locked"}).AddRow(locked))
}

func TestRequestRepo_Accept_WithdrawsConflicts(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	expectMentorLock(mock, "m2")
	expectSlotLocked(mock, false)
	mock.ExpectExec(regexp.QuoteMeta("SET is_accepted = 'ACCEPTED'")).
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), "r2").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM mentorship_requests WHERE id IN (?)")).
		WithArgs("r1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err = NewRequestRepo(db).Accept(context.Background(), AcceptParams{
		ID: "r2", MentorID: "m2", Slot: testSlot, WithdrawIDs: []string{"r1"}, At: testNow,
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRequestRepo_Accept_SlotTaken(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	expectMentorLock(mock, "m1")
	expectSlotLocked(mock, true)
	mock.ExpectRollback()

	err = NewRequestRepo(db).Accept(context.Background(), AcceptParams{ID: "r1", MentorID: "m1", Slot: testSlot, At: testNow})
	require.ErrorIs(t, err, ErrSlotTaken)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRequestRepo_Accept_LostRace(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	expectMentorLock(mock, "m1")
	expectSlotLocked(mock, false)
	mock.ExpectExec(regexp.QuoteMeta("SET is_accepted = 'ACCEPTED'")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err = NewRequestRepo(db).Accept(context.Background(), AcceptParams{ID: "r1", MentorID: "m1", Slot: testSlot, At: testNow})
	require.ErrorIs(t, err, ErrStaleState)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRequestRepo_Reject(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(regexp.QuoteMeta("SET is_accepted = 'REJECTED'")).
		WithArgs(sqlmock.AnyArg(), "r1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("SET is_accepted = 'REJECTED'")).
		WithArgs(sqlmock.AnyArg(), "r1").
		WillReturnResult(sqlmock.NewResult(0, 0))

	repo := NewRequestRepo(db)
	require.NoError(t, repo.Reject(context.Background(), "r1", testNow))
	require.ErrorIs(t, repo.Reject(context.Background(), "r1", testNow), ErrStaleState)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRequestRepo_DeleteAbandoned(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM mentorship_requests WHERE id = ?")).
		WithArgs("r1", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	removed, err := NewRequestRepo(db).DeleteAbandoned(context.Background(), "r1", testNow)
	require.NoError(t, err)
	require.True(t, removed)
	require.NoError(t, mock.ExpectationsWereMet())
}
