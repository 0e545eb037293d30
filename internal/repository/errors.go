// Package repository contains the MySQL data access for the booking core.
// Sentinel errors defined here let the service layer tell a missing row
// apart from a lost compare-and-set race.
package repository

import "errors"

var (
	ErrMentorNotFound        = errors.New("mentor not found")
	ErrRequestNotFound       = errors.New("request not found")
	ErrCollaborationNotFound = errors.New("collaboration not found")
	ErrGroupNotFound         = errors.New("group not found")
	ErrGroupRequestNotFound  = errors.New("group request not found")
	ErrAttemptNotFound       = errors.New("payment attempt not found")
)

// ErrStaleState is returned when a conditional update matched no row because
// the record left the expected state.  Callers translate it into an invalid
// state error for the client.
var ErrStaleState = errors.New("record is no longer in the expected state")

// ErrSlotTaken is returned by accept when another record already locks the
// mentor slot.
var ErrSlotTaken = errors.New("slot already locked")

// ErrGroupFull is returned when a group reached its member ceiling.
var ErrGroupFull = errors.New("group is full")

// ErrDuplicateAttempt is returned when an attempt with the same idempotency
// key already exists.
var ErrDuplicateAttempt = errors.New("payment attempt already recorded")
