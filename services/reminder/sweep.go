package reminder

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	appointmentRepo "garagehub/database/repository/appointment"
	userRepo "garagehub/database/repository/user"
	"garagehub/models"
	"garagehub/services/notification"
)

const (
	// The sweep selects confirmed appointments scheduled 24h out, with a
	// half-hour margin on each side so a missed hourly tick is re-covered
	// by the next run.
	leadTime   = 24 * time.Hour
	windowHalf = 30 * time.Minute

	// maxInFlight bounds concurrent gateway calls per sweep.
	maxInFlight = 8

	// perItemTimeout isolates one slow notification call from the rest of
	// the sweep.
	perItemTimeout = 10 * time.Second

	lockKeyFormat = "reminder:sweep:%s"
	lockTTL       = 2 * time.Hour
)

// Report summarizes one sweep run.
type Report struct {
	Selected int
	Sent     int
	Skipped  int
	Failed   int
}

// Sweeper finds appointments entering the reminder window and dispatches
// exactly one reminder per appointment. Idempotency comes from two layers:
// a Redis lock keyed by the sweep hour makes a duplicate trigger a no-op,
// and the reminder_sent flag (flipped only after a successful dispatch,
// via a conditional update) guards each individual appointment.
type Sweeper struct {
	Appointments appointmentRepo.AppointmentRepository
	Users        userRepo.UserRepository
	Notifier     *notification.Service
	Lock         *redis.Client
	Logger       *zap.Logger
}

// RunSweep executes one reminder sweep for the hour containing now.
func (s *Sweeper) RunSweep(ctx context.Context, now time.Time) (*Report, error) {
	if s.Lock != nil {
		key := fmt.Sprintf(lockKeyFormat, now.UTC().Format("2006-01-02T15"))
		acquired, err := s.Lock.SetNX(ctx, key, 1, lockTTL).Result()
		if err != nil {
			// Redis being down should not stop reminders; the flag check
			// still prevents double sends.
			s.Logger.Warn("sweep lock unavailable, proceeding without it", zap.Error(err))
		} else if !acquired {
			s.Logger.Info("sweep already ran this hour, skipping",
				zap.String("lockKey", key))
			return &Report{}, nil
		}
	}

	target := now.Add(leadTime)
	candidates, err := s.Appointments.FindReminderCandidates(ctx, target.Add(-windowHalf), target.Add(windowHalf))
	if err != nil {
		return nil, fmt.Errorf("reminder candidate query failed: %w", err)
	}

	report := &Report{Selected: len(candidates)}
	if len(candidates) == 0 {
		return report, nil
	}

	var (
		mu  sync.Mutex
		wg  sync.WaitGroup
		sem = make(chan struct{}, maxInFlight)
	)
	for i := range candidates {
		appt := candidates[i]
		wg.Add(1)
		sem <- struct{}{}
		go func() {
			defer wg.Done()
			defer func() { <-sem }()

			outcome := s.remindOne(ctx, &appt)
			mu.Lock()
			switch outcome {
			case outcomeSent:
				report.Sent++
			case outcomeSkipped:
				report.Skipped++
			case outcomeFailed:
				report.Failed++
			}
			mu.Unlock()
		}()
	}
	wg.Wait()

	s.Logger.Info("reminder sweep finished",
		zap.Int("selected", report.Selected),
		zap.Int("sent", report.Sent),
		zap.Int("skipped", report.Skipped),
		zap.Int("failed", report.Failed))
	return report, nil
}

type outcome int

const (
	outcomeSent outcome = iota
	outcomeSkipped
	outcomeFailed
)

// remindOne handles a single appointment: resolve the user, respect the
// opt-in, dispatch, and flip the flag only after a successful dispatch. A
// failure leaves reminder_sent false so the next sweep retries.
func (s *Sweeper) remindOne(ctx context.Context, appt *models.Appointment) outcome {
	ctx, cancel := context.WithTimeout(ctx, perItemTimeout)
	defer cancel()

	user, err := s.Users.GetByID(ctx, appt.UserID)
	if err != nil {
		s.Logger.Warn("reminder skipped, user lookup failed",
			zap.String("appointmentId", appt.ID),
			zap.String("userId", appt.UserID),
			zap.Error(err))
		return outcomeSkipped
	}
	if !user.NotificationPrefs.Reminders || user.FCMToken == "" {
		return outcomeSkipped
	}

	title := "Appointment reminder"
	body := fmt.Sprintf("Your %s appointment for the %s %s is tomorrow at %s.",
		appt.ServiceType,
		appt.Vehicle.Make, appt.Vehicle.Model,
		appt.ScheduledAt.Format("15:04"))
	data := map[string]string{
		"type":          "appointment_reminder",
		"appointmentId": appt.ID,
		"scheduledAt":   appt.ScheduledAt.Format(time.RFC3339),
	}

	if err := s.Notifier.PushToUser(ctx, user, title, body, data); err != nil {
		s.Logger.Warn("reminder dispatch failed, will retry next sweep",
			zap.String("appointmentId", appt.ID),
			zap.Error(err))
		return outcomeFailed
	}

	flipped, err := s.Appointments.MarkReminderSent(ctx, appt.ID, time.Now().UTC())
	if err != nil {
		// The push went out but the flag write failed; the next sweep may
		// send a duplicate. Log loudly - this is the one gap the flag
		// cannot close on its own.
		s.Logger.Error("reminder sent but flag update failed",
			zap.String("appointmentId", appt.ID),
			zap.Error(err))
		return outcomeFailed
	}
	if !flipped {
		// A concurrent sweep got there first.
		return outcomeSkipped
	}
	return outcomeSent
}
