package scheduling

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"garagehub/database/repository"
	"garagehub/models"
)

// ModificationWindow is the period before the scheduled time during which
// non-privileged users can no longer change or cancel an appointment.
const ModificationWindow = 24 * time.Hour

// authorizeChange is the modification guard. It decides whether
// actingUserID may apply a time-sensitive change (reschedule, service-type
// change, cancellation, deletion) to the appointment.
//
// Privileged roles pass unconditionally, including for appointments in the
// past. A non-privileged owner passes only while the appointment's
// PRE-CHANGE scheduled time is strictly more than 24 hours away - exactly
// 24 hours is already inside the window. The original scheduled time is
// used for updates and deletions alike, so moving an appointment closer
// never shortens the protection on the old slot.
//
// The rule is evaluated before the write, and the repository conditions the
// write on the same pre-change snapshot, so an unauthorized state is never
// observable as committed.
func (s *DefaultSchedulingService) authorizeChange(ctx context.Context, appt *models.Appointment, actingUserID string) error {
	user, err := s.Users.GetByID(ctx, actingUserID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return &UserNotFoundError{UserID: actingUserID}
		}
		return err
	}

	if user.Privileged() {
		return nil
	}

	if appt.UserID != actingUserID {
		return &NotOwnerError{UserID: actingUserID, AppointmentID: appt.ID}
	}

	if appt.ScheduledAt.Sub(s.now()) > ModificationWindow {
		return nil
	}

	s.Logger.Info("modification rejected inside protected window",
		zap.String("appointmentId", appt.ID),
		zap.String("userId", actingUserID),
		zap.Time("scheduledAt", appt.ScheduledAt))
	return &RuleViolationError{ScheduledAt: appt.ScheduledAt}
}
