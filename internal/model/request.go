package model

import "time"

// AcceptanceStatus is the mentor decision on a request.
type AcceptanceStatus string

const (
	AcceptancePending  AcceptanceStatus = "PENDING"
	AcceptanceAccepted AcceptanceStatus = "ACCEPTED"
	AcceptanceRejected AcceptanceStatus = "REJECTED"
)

// PaymentStatus tracks whether the booking has been paid for.
type PaymentStatus string

const (
	PaymentPending PaymentStatus = "PENDING"
	PaymentPaid    PaymentStatus = "PAID"
	PaymentFailed  PaymentStatus = "FAILED"
)

// MentorshipRequest is a user's ask to book one slot of one mentor.  While
// it is ACCEPTED and unpaid it holds a soft lock on the mentor slot.  The
// row is deleted once it has been converted into a Collaboration.
//
// Fields:
//  ID            – primary key (UUID string).
//  MentorID      – mentor being booked.
//  UserID        – requesting user.
//  Slot          – requested day and time label.
//  PriceMinor    – mentor rate snapshot in minor units.
//  Currency      – currency of PriceMinor.
//  IsAccepted    – PENDING, ACCEPTED or REJECTED.
//  PaymentStatus – PENDING, PAID or FAILED.
//  AcceptedAt    – when the mentor accepted (nil otherwise).
type MentorshipRequest struct {
	ID            string           // mentorship_requests.id
	MentorID      string           // mentorship_requests.mentor_id
	UserID        string           // mentorship_requests.user_id
	Slot          Slot             // mentorship_requests.day, time_slot
	PriceMinor    int64            // mentorship_requests.price_minor
	Currency      string           // mentorship_requests.currency
	IsAccepted    AcceptanceStatus // mentorship_requests.is_accepted
	PaymentStatus PaymentStatus    // mentorship_requests.payment_status
	AcceptedAt    *time.Time       // mentorship_requests.accepted_at (nullable)
	CreatedAt     time.Time        // mentorship_requests.created_at
	UpdatedAt     time.Time        // mentorship_requests.updated_at
}

// Outstanding reports whether the request still competes for its slot:
// either awaiting a decision or accepted and not yet paid.
func (r *MentorshipRequest) Outstanding() bool {
	return r.IsAccepted == AcceptancePending || r.SoftLocked()
}

// SoftLocked reports whether the request currently locks its mentor slot.
func (r *MentorshipRequest) SoftLocked() bool {
	return r.IsAccepted == AcceptanceAccepted && r.PaymentStatus != PaymentPaid
}
