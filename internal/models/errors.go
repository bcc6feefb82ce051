package models

import "errors"

// Domain rule violations returned by the session controller and the
// history store. The HTTP layer maps each one to a specific status and
// message; none of them is ever swallowed or "fixed" by clamping input.
var (
	ErrAlreadyActive        = errors.New("a fast is already in progress")
	ErrNoActiveSession      = errors.New("no fast is in progress")
	ErrNotFound             = errors.New("session not found")
	ErrInvalidInterval      = errors.New("end time must be after start time")
	ErrDuplicateOpenSession = errors.New("an open session already exists")
	ErrStorageUnavailable   = errors.New("storage unavailable")
	ErrInvalidGoal          = errors.New("goal hours must be positive")
	ErrUnknownTrackerKind   = errors.New("unknown tracker kind")
)
