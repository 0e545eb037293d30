package model

import "time"

// Mentor is a user who can be booked for paid sessions.  RateMinor is the
// per-booking price in minor currency units (paise for INR) and is copied
// onto every request at creation time.
//
// Fields:
//  ID          – primary key (UUID string).
//  UserID      – account that owns the mentor profile.
//  DisplayName – public name.
//  RateMinor   – current booking price in minor units.
//  Currency    – ISO currency code, lower case.
//  IsActive    – inactive mentors cannot be requested.
type Mentor struct {
	ID          string    // mentors.id
	UserID      string    // mentors.user_id
	DisplayName string    // mentors.display_name
	RateMinor   int64     // mentors.rate_minor
	Currency    string    // mentors.currency
	IsActive    bool      // mentors.is_active
	CreatedAt   time.Time // mentors.created_at
	UpdatedAt   time.Time // mentors.updated_at
}
