package schedule

import (
	"errors"

	"spacebooking/internal/recurrence"
)

var (
	ErrValidation              = errors.New("validation error")
	ErrInvalidDateFormat       = errors.New("invalid date format, expected YYYY-MM-DD")
	ErrInvalidTimeFormat       = errors.New("invalid time format, expected HH:mm")
	ErrInvalidRange            = errors.New("start time must be before end time")
	ErrMalformedRecurrenceRule = recurrence.ErrMalformedRule
	ErrOutOfOperatingHours     = errors.New("outside space operating hours")
	ErrConflictDetected        = errors.New("schedule conflict detected")
	ErrSpaceNotFound           = errors.New("space not found")
	ErrScheduleNotFound        = errors.New("schedule not found")
	ErrInvalidTransition       = errors.New("invalid_status_transition")
	ErrForbidden               = errors.New("forbidden")
)

// OperatingHoursError names the first occurrence boundary outside the
// space's configured window.
type OperatingHoursError struct {
	Reason string
}

func (e *OperatingHoursError) Error() string { return e.Reason }

func (e *OperatingHoursError) Is(target error) bool { return target == ErrOutOfOperatingHours }

// ConflictError carries every overlap found for a rejected request.
type ConflictError struct {
	Conflicts []Conflict
}

func (e *ConflictError) Error() string { return ErrConflictDetected.Error() }

func (e *ConflictError) Is(target error) bool { return target == ErrConflictDetected }
