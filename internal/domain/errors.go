package domain

import "errors"

// Typed failures returned by coordinator operations. Callers decide how to
// surface them; none of these indicate infrastructure trouble.
var (
	ErrProviderNotFound   = errors.New("provider not found")
	ErrProviderClosed     = errors.New("provider is closed")
	ErrDuplicateActive    = errors.New("requester already holds an active ticket today")
	ErrCapacityExceeded   = errors.New("daily patient limit reached")
	ErrInsufficientTime   = errors.New("not enough operating time remaining")
	ErrAlreadyServing     = errors.New("a patient is already being served")
	ErrNoWaitingTicket    = errors.New("no waiting ticket")
	ErrInvalidTicketState = errors.New("invalid ticket state")
	ErrTicketNotFound     = errors.New("ticket not found")
	ErrNoActiveTicket     = errors.New("no active ticket to cancel")
	ErrStaffNotFound      = errors.New("staff member not found")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrScheduleNotFound   = errors.New("weekly schedule not found")
	ErrStoreUnavailable   = errors.New("store unavailable")
)
