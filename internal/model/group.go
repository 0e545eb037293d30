package model

import "time"

// Group is a small cohort run by a mentor with a hard member ceiling.
type Group struct {
	ID          string    // mentor_groups.id
	MentorID    string    // mentor_groups.mentor_id
	Name        string    // mentor_groups.name
	MaxMembers  int       // mentor_groups.max_members
	PriceMinor  int64     // mentor_groups.price_minor
	Currency    string    // mentor_groups.currency
	MemberCount int       // COUNT(group_members) at read time
	CreatedAt   time.Time // mentor_groups.created_at
}

// Full reports whether the member ceiling has been reached.
func (g *Group) Full() bool { return g.MemberCount >= g.MaxMembers }

// GroupRequest is the group-booking analogue of MentorshipRequest.  Unlike
// mentorship requests it is kept after payment, with PaymentStatus PAID.
type GroupRequest struct {
	ID              string           // group_requests.id
	GroupID         string           // group_requests.group_id
	UserID          string           // group_requests.user_id
	Status          AcceptanceStatus // group_requests.status
	PaymentStatus   PaymentStatus    // group_requests.payment_status
	AmountPaidMinor int64            // group_requests.amount_paid_minor
	CreatedAt       time.Time        // group_requests.created_at
	UpdatedAt       time.Time        // group_requests.updated_at
}
