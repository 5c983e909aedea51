package scheduling

import (
	"context"
	"time"

	"garagehub/models"
)

// SchedulingService is the appointment scheduling engine: slot-exclusive
// booking, the 24-hour modification rule, and the completion transition
// that feeds the loyalty ledger.
type SchedulingService interface {
	// Book reserves the requested instant and creates a confirmed
	// appointment. Exactly one of two concurrent bookings for the same
	// instant succeeds; the other gets a *SlotTakenError.
	Book(ctx context.Context, req models.BookingRequest) (*models.Appointment, error)

	// RequestModification applies changes to an appointment on behalf of
	// actingUserID, subject to the modification rule for time-sensitive
	// fields.
	RequestModification(ctx context.Context, appointmentID string, change models.AppointmentChange, actingUserID string) (*models.Appointment, error)

	// RequestCancellation cancels the appointment on behalf of
	// actingUserID, subject to the modification rule.
	RequestCancellation(ctx context.Context, appointmentID, actingUserID string) error

	// RequestDeletion removes the appointment record on behalf of
	// actingUserID, subject to the modification rule.
	RequestDeletion(ctx context.Context, appointmentID, actingUserID string) error

	// Complete marks the appointment completed and credits loyalty points.
	// A credit failure surfaces as *LoyaltyCreditError but never reverts
	// the completion.
	Complete(ctx context.Context, appointmentID string) (*models.Appointment, error)

	// GetByID fetches one appointment.
	GetByID(ctx context.Context, appointmentID string) (*models.Appointment, error)

	// ListForUser returns a user's appointments, newest first.
	ListForUser(ctx context.Context, userID string) ([]models.Appointment, error)

	// Agenda returns all appointments of a calendar day for the staff
	// agenda view.
	Agenda(ctx context.Context, day time.Time) ([]models.Appointment, error)
}

// LoyaltyCreditor is the slice of the loyalty service the scheduling engine
// calls on completion.
type LoyaltyCreditor interface {
	CreditForCompletedAppointment(ctx context.Context, userID, appointmentID string) error
}
