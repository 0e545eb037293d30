package model

import (
	"errors"
	"strings"
)

// Weekday is the recurring day component of a slot.  Values are stored in
// the `day` column of mentorship_requests and collaborations using the
// capitalised English name.
type Weekday string

const (
	Monday    Weekday = "Monday"
	Tuesday   Weekday = "Tuesday"
	Wednesday Weekday = "Wednesday"
	Thursday  Weekday = "Thursday"
	Friday    Weekday = "Friday"
	Saturday  Weekday = "Saturday"
	Sunday    Weekday = "Sunday"
)

// Weekdays lists the seven days in calendar order starting on Monday.
var Weekdays = []Weekday{Monday, Tuesday, Wednesday, Thursday, Friday, Saturday, Sunday}

// TimeSlots is the fixed catalog of hourly labels a mentor can be booked
// for.  Labels are compared verbatim, so clients must send them exactly as
// listed here.
var TimeSlots = []string{
	"09:00 AM", "10:00 AM", "11:00 AM", "12:00 PM",
	"01:00 PM", "02:00 PM", "03:00 PM", "04:00 PM",
	"05:00 PM", "06:00 PM", "07:00 PM", "08:00 PM",
}

var (
	// ErrInvalidDay is returned when a day is not one of Weekdays.
	ErrInvalidDay = errors.New("invalid day")
	// ErrInvalidTimeSlot is returned when a label is not part of TimeSlots.
	ErrInvalidTimeSlot = errors.New("invalid time slot")
)

// ParseWeekday accepts a day name in any letter case and returns the
// canonical Weekday.
func ParseWeekday(s string) (Weekday, error) {
	s = strings.TrimSpace(s)
	for _, d := range Weekdays {
		if strings.EqualFold(s, string(d)) {
			return d, nil
		}
	}
	return "", ErrInvalidDay
}

// IsValidTimeSlot reports whether label is part of the catalog.
func IsValidTimeSlot(label string) bool {
	for _, ts := range TimeSlots {
		if ts == label {
			return true
		}
	}
	return false
}

// Slot identifies a recurring weekly availability window.
type Slot struct {
	Day      Weekday `json:"day"`
	TimeSlot string  `json:"time_slot"`
}

// NewSlot normalises the day name and checks both parts against the catalog.
func NewSlot(day, timeSlot string) (Slot, error) {
	d, err := ParseWeekday(day)
	if err != nil {
		return Slot{}, err
	}
	ts := strings.TrimSpace(timeSlot)
	if !IsValidTimeSlot(ts) {
		return Slot{}, ErrInvalidTimeSlot
	}
	return Slot{Day: d, TimeSlot: ts}, nil
}

// String renders the slot as "Monday 10:00 AM".
func (s Slot) String() string { return string(s.Day) + " " + s.TimeSlot }
