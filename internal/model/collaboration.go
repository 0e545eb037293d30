package model

import "time"

// Collaboration is the durable, paid booking created from an accepted
// request after a successful charge.  Payment is always true for rows
// written by the payment finalizer; IsCancelled and IsCompleted are set by
// workflows outside the booking core.
type Collaboration struct {
	ID          string    // collaborations.id
	MentorID    string    // collaborations.mentor_id
	UserID      string    // collaborations.user_id
	Slot        Slot      // collaborations.day, time_slot
	PriceMinor  int64     // collaborations.price_minor
	Currency    string    // collaborations.currency
	StartDate   time.Time // collaborations.start_date
	EndDate     time.Time // collaborations.end_date
	Payment     bool      // collaborations.payment
	PaymentRef  string    // collaborations.payment_ref (gateway intent id)
	IsCancelled bool      // collaborations.is_cancelled
	IsCompleted bool      // collaborations.is_completed
	CreatedAt   time.Time // collaborations.created_at
}

// Active reports whether the collaboration still holds its slot.
func (c *Collaboration) Active() bool { return !c.IsCancelled && !c.IsCompleted }
