package scheduling

import (
	"fmt"
	"time"
)

// SlotTakenError means another confirmed appointment already occupies the
// requested instant. User-facing; the remediation is picking another slot,
// so it is never retried automatically.
type SlotTakenError struct {
	When time.Time
}

func (e *SlotTakenError) Error() string {
	return fmt.Sprintf("someone already took the %s slot, please pick another time", e.When.Format("2006-01-02 15:04"))
}

// RuleViolationError means a non-privileged user tried to modify or cancel
// an appointment inside the protected 24-hour window. The remediation
// differs from a slot conflict: the customer has to contact the garage.
type RuleViolationError struct {
	ScheduledAt time.Time
}

func (e *RuleViolationError) Error() string {
	return "appointments within 24 hours can no longer be changed online - contact the garage directly"
}

// UserNotFoundError means the acting user's record could not be resolved
// for the authorization check. Surfaced as a precondition failure, never as
// an implicit allow or deny.
type UserNotFoundError struct {
	UserID string
}

func (e *UserNotFoundError) Error() string {
	return fmt.Sprintf("user %s not found", e.UserID)
}

// NotOwnerError means a non-privileged user tried to act on someone else's
// appointment.
type NotOwnerError struct {
	UserID        string
	AppointmentID string
}

func (e *NotOwnerError) Error() string {
	return fmt.Sprintf("user %s does not own appointment %s", e.UserID, e.AppointmentID)
}

// LoyaltyCreditError wraps a loyalty credit failure that happened after the
// appointment was already marked completed. The completion stands; the
// credit is operator-correctable.
type LoyaltyCreditError struct {
	AppointmentID string
	Err           error
}

func (e *LoyaltyCreditError) Error() string {
	return fmt.Sprintf("appointment %s completed but loyalty credit failed: %v", e.AppointmentID, e.Err)
}

func (e *LoyaltyCreditError) Unwrap() error {
	return e.Err
}
