package scheduling

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"garagehub/database/repository"
	appointmentRepo "garagehub/database/repository/appointment"
	userRepo "garagehub/database/repository/user"
	"garagehub/models"
)

// DefaultSchedulingService is the production implementation.
type DefaultSchedulingService struct {
	Appointments appointmentRepo.AppointmentRepository
	Users        userRepo.UserRepository
	Loyalty      LoyaltyCreditor
	Logger       *zap.Logger

	// Now is the clock; tests substitute a fixed one.
	Now func() time.Time
}

func (s *DefaultSchedulingService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// Book validates the request and runs the slot ledger's atomic
// check-then-insert. Reminder dispatch and loyalty crediting are driven by
// later sweeps and transitions, never by booking itself.
func (s *DefaultSchedulingService) Book(ctx context.Context, req models.BookingRequest) (*models.Appointment, error) {
	if !models.ValidServiceType(req.ServiceType) {
		return nil, fmt.Errorf("unknown service type %q", req.ServiceType)
	}
	when := req.ScheduledAt.UTC()
	if !when.After(s.now()) {
		return nil, fmt.Errorf("scheduled time %s is not in the future", when.Format(time.RFC3339))
	}
	if req.UserID == "" {
		return nil, fmt.Errorf("booking requires a user id")
	}

	appt := &models.Appointment{
		ID:           uuid.New().String(),
		UserID:       req.UserID,
		CustomerName: req.CustomerName,
		ServiceType:  req.ServiceType,
		ScheduledAt:  when,
		Vehicle:      req.Vehicle,
		Notes:        req.Notes,
		Status:       models.StatusConfirmed,
		CreatedAt:    s.now().UTC(),
	}

	if err := s.Appointments.BookSlot(ctx, appt); err != nil {
		if errors.Is(err, repository.ErrSlotTaken) {
			return nil, &SlotTakenError{When: when}
		}
		return nil, err
	}

	s.Logger.Info("appointment booked",
		zap.String("appointmentId", appt.ID),
		zap.String("userId", appt.UserID),
		zap.Time("scheduledAt", appt.ScheduledAt))
	return appt, nil
}

// RequestModification applies a change on behalf of actingUserID. Only
// time-sensitive fields (scheduled time, service type) engage the guard;
// notes and vehicle edits pass through. A rescheduling claims the new slot
// in the same transaction that releases the old one.
func (s *DefaultSchedulingService) RequestModification(ctx context.Context, appointmentID string, change models.AppointmentChange, actingUserID string) (*models.Appointment, error) {
	appt, err := s.Appointments.GetByID(ctx, appointmentID)
	if err != nil {
		return nil, err
	}
	if !appt.Active() {
		return nil, repository.ErrNotActive
	}
	if change.Empty() {
		return appt, nil
	}

	if change.ServiceType != nil && !models.ValidServiceType(*change.ServiceType) {
		return nil, fmt.Errorf("unknown service type %q", *change.ServiceType)
	}
	if change.ScheduledAt != nil {
		utc := change.ScheduledAt.UTC()
		change.ScheduledAt = &utc
		if !utc.After(s.now()) {
			return nil, fmt.Errorf("scheduled time %s is not in the future", utc.Format(time.RFC3339))
		}
	}

	if change.TimeSensitive() {
		if err := s.authorizeChange(ctx, appt, actingUserID); err != nil {
			return nil, err
		}
	} else if err := s.requireOwnerOrPrivileged(ctx, appt, actingUserID); err != nil {
		return nil, err
	}

	updated, err := s.Appointments.ApplyChange(ctx, appt, change)
	if err != nil {
		if errors.Is(err, repository.ErrSlotTaken) && change.ScheduledAt != nil {
			return nil, &SlotTakenError{When: *change.ScheduledAt}
		}
		return nil, err
	}

	s.Logger.Info("appointment modified",
		zap.String("appointmentId", appt.ID),
		zap.String("actingUserId", actingUserID))
	return updated, nil
}

// RequestCancellation cancels on behalf of actingUserID, subject to the
// modification rule evaluated against the appointment's scheduled time.
func (s *DefaultSchedulingService) RequestCancellation(ctx context.Context, appointmentID, actingUserID string) error {
	appt, err := s.Appointments.GetByID(ctx, appointmentID)
	if err != nil {
		return err
	}
	if !appt.Active() {
		return repository.ErrNotActive
	}

	if err := s.authorizeChange(ctx, appt, actingUserID); err != nil {
		return err
	}

	if err := s.Appointments.Cancel(ctx, appointmentID); err != nil {
		return err
	}
	s.Logger.Info("appointment cancelled",
		zap.String("appointmentId", appointmentID),
		zap.String("actingUserId", actingUserID))
	return nil
}

// RequestDeletion removes the record entirely, gated like a cancellation.
func (s *DefaultSchedulingService) RequestDeletion(ctx context.Context, appointmentID, actingUserID string) error {
	appt, err := s.Appointments.GetByID(ctx, appointmentID)
	if err != nil {
		return err
	}

	if appt.Active() {
		if err := s.authorizeChange(ctx, appt, actingUserID); err != nil {
			return err
		}
	} else if err := s.requireOwnerOrPrivileged(ctx, appt, actingUserID); err != nil {
		return err
	}

	if err := s.Appointments.Delete(ctx, appointmentID); err != nil {
		return err
	}
	s.Logger.Info("appointment deleted",
		zap.String("appointmentId", appointmentID),
		zap.String("actingUserId", actingUserID))
	return nil
}

// Complete marks the appointment completed and credits loyalty points.
// Completion is exempt from the modification rule: service delivery is
// never blocked by the window. The credit and the completion are loosely
// coupled - a loyalty failure is surfaced as *LoyaltyCreditError but the
// completed status stands.
func (s *DefaultSchedulingService) Complete(ctx context.Context, appointmentID string) (*models.Appointment, error) {
	appt, err := s.Appointments.GetByID(ctx, appointmentID)
	if err != nil {
		return nil, err
	}
	if !appt.Active() {
		return nil, repository.ErrNotActive
	}

	if err := s.Appointments.Complete(ctx, appointmentID); err != nil {
		return nil, err
	}
	appt.Status = models.StatusCompleted

	if err := s.Loyalty.CreditForCompletedAppointment(ctx, appt.UserID, appt.ID); err != nil {
		s.Logger.Error("loyalty credit failed after completion",
			zap.String("appointmentId", appt.ID),
			zap.String("userId", appt.UserID),
			zap.Error(err))
		return appt, &LoyaltyCreditError{AppointmentID: appt.ID, Err: err}
	}

	s.Logger.Info("appointment completed",
		zap.String("appointmentId", appt.ID),
		zap.String("userId", appt.UserID))
	return appt, nil
}

func (s *DefaultSchedulingService) GetByID(ctx context.Context, appointmentID string) (*models.Appointment, error) {
	return s.Appointments.GetByID(ctx, appointmentID)
}

func (s *DefaultSchedulingService) ListForUser(ctx context.Context, userID string) ([]models.Appointment, error) {
	return s.Appointments.ListByUser(ctx, userID)
}

func (s *DefaultSchedulingService) Agenda(ctx context.Context, day time.Time) ([]models.Appointment, error) {
	start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)
	return s.Appointments.ListBetween(ctx, start, start.Add(24*time.Hour))
}

// requireOwnerOrPrivileged covers the unguarded writes (notes, vehicle,
// deletion of closed appointments): no window rule, but still only the
// owner or staff.
func (s *DefaultSchedulingService) requireOwnerOrPrivileged(ctx context.Context, appt *models.Appointment, actingUserID string) error {
	user, err := s.Users.GetByID(ctx, actingUserID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return &UserNotFoundError{UserID: actingUserID}
		}
		return err
	}
	if user.Privileged() || appt.UserID == actingUserID {
		return nil
	}
	return &NotOwnerError{UserID: actingUserID, AppointmentID: appt.ID}
}
