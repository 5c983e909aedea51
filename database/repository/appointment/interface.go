package appointmentRepo

import (
	"context"
	"time"

	"garagehub/models"
)

// AppointmentRepository defines data access for appointments, including the
// slot-ledger operations that must be atomic with respect to concurrent
// writers.
type AppointmentRepository interface {
	// BookSlot atomically verifies the scheduled instant is free of any
	// confirmed appointment and inserts the new record. Returns
	// repository.ErrSlotTaken when another confirmed appointment occupies
	// the instant.
	BookSlot(ctx context.Context, appt *models.Appointment) error

	// GetByID retrieves an appointment by its unique ID.
	GetByID(ctx context.Context, id string) (*models.Appointment, error)

	// ApplyChange applies the given change to a confirmed appointment. When
	// the change moves the scheduled time, the target slot is claimed in
	// the same transaction that releases the old one. The update is
	// conditioned on the pre-change snapshot still being current; a
	// concurrent modification surfaces as repository.ErrNotActive.
	ApplyChange(ctx context.Context, current *models.Appointment, change models.AppointmentChange) (*models.Appointment, error)

	// Cancel transitions a confirmed appointment to cancelled.
	Cancel(ctx context.Context, id string) error

	// Complete transitions a confirmed appointment to completed.
	Complete(ctx context.Context, id string) error

	// Delete removes the appointment record entirely.
	Delete(ctx context.Context, id string) error

	// MarkReminderSent flips the reminder flag, conditioned on it still
	// being false. Reports whether this call performed the flip.
	MarkReminderSent(ctx context.Context, id string, at time.Time) (bool, error)

	// FindReminderCandidates returns confirmed appointments scheduled
	// within [windowStart, windowEnd] whose reminder has not been sent.
	FindReminderCandidates(ctx context.Context, windowStart, windowEnd time.Time) ([]models.Appointment, error)

	// ListByUser returns the user's appointments, newest first.
	ListByUser(ctx context.Context, userID string) ([]models.Appointment, error)

	// ListBetween returns appointments scheduled within [from, to), for the
	// agenda view.
	ListBetween(ctx context.Context, from, to time.Time) ([]models.Appointment, error)
}
