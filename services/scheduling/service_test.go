package scheduling_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"garagehub/database/repository"
	"garagehub/models"
	"garagehub/services/scheduling"
)

var baseNow = time.Date(2025, 3, 9, 10, 0, 0, 0, time.UTC)

func newService(t *testing.T, users ...*models.User) (*scheduling.DefaultSchedulingService, *memAppointments, *fakeCreditor) {
	t.Helper()
	appts := newMemAppointments()
	creditor := &fakeCreditor{}
	svc := &scheduling.DefaultSchedulingService{
		Appointments: appts,
		Users:        newMemUsers(users...),
		Loyalty:      creditor,
		Logger:       zap.NewNop(),
		Now:          func() time.Time { return baseNow },
	}
	return svc, appts, creditor
}

func customer(id string) *models.User {
	return &models.User{ID: id, Role: models.RoleCustomer}
}

func staff(id string) *models.User {
	return &models.User{ID: id, Role: models.RoleAgendaManager}
}

func TestBookCreatesConfirmedAppointment(t *testing.T) {
	svc, _, _ := newService(t, customer("u1"))

	appt, err := svc.Book(context.Background(), models.BookingRequest{
		UserID:       "u1",
		CustomerName: "Ana",
		ServiceType:  models.ServiceMaintenance,
		ScheduledAt:  baseNow.Add(48 * time.Hour),
	})
	require.NoError(t, err)
	require.NotEmpty(t, appt.ID)
	assert.Equal(t, models.StatusConfirmed, appt.Status)
	assert.Equal(t, time.UTC, appt.ScheduledAt.Location())
	assert.False(t, appt.ReminderSent)
}

func TestBookRejectsBadInput(t *testing.T) {
	svc, _, _ := newService(t, customer("u1"))
	ctx := context.Background()

	_, err := svc.Book(ctx, models.BookingRequest{
		UserID:      "u1",
		ServiceType: "detailing",
		ScheduledAt: baseNow.Add(48 * time.Hour),
	})
	assert.Error(t, err)

	_, err = svc.Book(ctx, models.BookingRequest{
		UserID:      "u1",
		ServiceType: models.ServiceRepair,
		ScheduledAt: baseNow.Add(-time.Hour),
	})
	assert.Error(t, err)

	_, err = svc.Book(ctx, models.BookingRequest{
		ServiceType: models.ServiceRepair,
		ScheduledAt: baseNow.Add(48 * time.Hour),
	})
	assert.Error(t, err)
}

func TestBookSameSlotTwice(t *testing.T) {
	svc, _, _ := newService(t, customer("u1"), customer("u2"))
	ctx := context.Background()
	slot := time.Date(2025, 3, 10, 14, 0, 0, 0, time.UTC)

	_, err := svc.Book(ctx, models.BookingRequest{
		UserID:      "u1",
		ServiceType: models.ServiceMaintenance,
		ScheduledAt: slot,
	})
	require.NoError(t, err)

	_, err = svc.Book(ctx, models.BookingRequest{
		UserID:      "u2",
		ServiceType: models.ServiceRepair,
		ScheduledAt: slot,
	})
	var taken *scheduling.SlotTakenError
	require.ErrorAs(t, err, &taken)
	assert.True(t, taken.When.Equal(slot))
}

func TestBookConcurrentSameSlot(t *testing.T) {
	svc, appts, _ := newService(t, customer("u1"))
	slot := baseNow.Add(72 * time.Hour)

	const attempts = 16
	var wg sync.WaitGroup
	errs := make([]error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.Book(context.Background(), models.BookingRequest{
				UserID:      "u1",
				ServiceType: models.ServiceMaintenance,
				ScheduledAt: slot,
			})
		}(i)
	}
	wg.Wait()

	won := 0
	for _, err := range errs {
		if err == nil {
			won++
		} else {
			var taken *scheduling.SlotTakenError
			assert.ErrorAs(t, err, &taken)
		}
	}
	assert.Equal(t, 1, won)

	stored, err := appts.ListBetween(context.Background(), slot.Add(-time.Minute), slot.Add(time.Minute))
	require.NoError(t, err)
	assert.Len(t, stored, 1)
}

func TestCancelledSlotCanBeRebooked(t *testing.T) {
	svc, _, _ := newService(t, customer("u1"), staff("admin"))
	ctx := context.Background()
	slot := baseNow.Add(48 * time.Hour)

	first, err := svc.Book(ctx, models.BookingRequest{
		UserID:      "u1",
		ServiceType: models.ServiceMaintenance,
		ScheduledAt: slot,
	})
	require.NoError(t, err)
	require.NoError(t, svc.RequestCancellation(ctx, first.ID, "u1"))

	_, err = svc.Book(ctx, models.BookingRequest{
		UserID:      "u1",
		ServiceType: models.ServiceRepair,
		ScheduledAt: slot,
	})
	assert.NoError(t, err)
}

func TestRescheduleClaimsNewSlot(t *testing.T) {
	svc, _, _ := newService(t, customer("u1"), customer("u2"))
	ctx := context.Background()
	slotA := baseNow.Add(48 * time.Hour)
	slotB := baseNow.Add(50 * time.Hour)

	mine, err := svc.Book(ctx, models.BookingRequest{
		UserID:      "u1",
		ServiceType: models.ServiceMaintenance,
		ScheduledAt: slotA,
	})
	require.NoError(t, err)
	_, err = svc.Book(ctx, models.BookingRequest{
		UserID:      "u2",
		ServiceType: models.ServiceRepair,
		ScheduledAt: slotB,
	})
	require.NoError(t, err)

	_, err = svc.RequestModification(ctx, mine.ID, models.AppointmentChange{ScheduledAt: &slotB}, "u1")
	var taken *scheduling.SlotTakenError
	require.ErrorAs(t, err, &taken)

	// The appointment keeps its original slot after a failed reschedule.
	cur, err := svc.GetByID(ctx, mine.ID)
	require.NoError(t, err)
	assert.True(t, cur.ScheduledAt.Equal(slotA))
}

func TestModifyNotesInsideWindow(t *testing.T) {
	svc, _, _ := newService(t, customer("u1"))
	ctx := context.Background()

	// 3 hours out: well inside the protected window.
	appt, err := svc.Book(ctx, models.BookingRequest{
		UserID:      "u1",
		ServiceType: models.ServiceMaintenance,
		ScheduledAt: baseNow.Add(3 * time.Hour),
	})
	require.NoError(t, err)

	notes := "please check the brakes too"
	updated, err := svc.RequestModification(ctx, appt.ID, models.AppointmentChange{Notes: &notes}, "u1")
	require.NoError(t, err)
	assert.Equal(t, notes, updated.Notes)
}

func TestModifyRejectsNonOwner(t *testing.T) {
	svc, _, _ := newService(t, customer("u1"), customer("u2"))
	ctx := context.Background()

	appt, err := svc.Book(ctx, models.BookingRequest{
		UserID:      "u1",
		ServiceType: models.ServiceMaintenance,
		ScheduledAt: baseNow.Add(72 * time.Hour),
	})
	require.NoError(t, err)

	later := baseNow.Add(96 * time.Hour)
	_, err = svc.RequestModification(ctx, appt.ID, models.AppointmentChange{ScheduledAt: &later}, "u2")
	var notOwner *scheduling.NotOwnerError
	assert.ErrorAs(t, err, &notOwner)
}

func TestModifyUnknownActingUser(t *testing.T) {
	svc, _, _ := newService(t, customer("u1"))
	ctx := context.Background()

	appt, err := svc.Book(ctx, models.BookingRequest{
		UserID:      "u1",
		ServiceType: models.ServiceMaintenance,
		ScheduledAt: baseNow.Add(72 * time.Hour),
	})
	require.NoError(t, err)

	err = svc.RequestCancellation(ctx, appt.ID, "ghost")
	var notFound *scheduling.UserNotFoundError
	assert.ErrorAs(t, err, &notFound)

	// The failed authorization must not have touched the record.
	cur, err := svc.GetByID(ctx, appt.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusConfirmed, cur.Status)
}

func TestCancelAlreadyCancelled(t *testing.T) {
	svc, _, _ := newService(t, customer("u1"))
	ctx := context.Background()

	appt, err := svc.Book(ctx, models.BookingRequest{
		UserID:      "u1",
		ServiceType: models.ServiceMaintenance,
		ScheduledAt: baseNow.Add(72 * time.Hour),
	})
	require.NoError(t, err)
	require.NoError(t, svc.RequestCancellation(ctx, appt.ID, "u1"))

	err = svc.RequestCancellation(ctx, appt.ID, "u1")
	assert.ErrorIs(t, err, repository.ErrNotActive)
}

func TestCompleteCreditsLoyaltyOnce(t *testing.T) {
	svc, _, creditor := newService(t, customer("u1"))
	ctx := context.Background()

	appt, err := svc.Book(ctx, models.BookingRequest{
		UserID:      "u1",
		ServiceType: models.ServiceRepair,
		ScheduledAt: baseNow.Add(2 * time.Hour),
	})
	require.NoError(t, err)

	done, err := svc.Complete(ctx, appt.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, done.Status)
	assert.Equal(t, []string{appt.ID}, creditor.calls)

	// A second completion fails before reaching the creditor.
	_, err = svc.Complete(ctx, appt.ID)
	assert.ErrorIs(t, err, repository.ErrNotActive)
	assert.Len(t, creditor.calls, 1)
}

func TestCompleteSurvivesLoyaltyFailure(t *testing.T) {
	svc, _, creditor := newService(t, customer("u1"))
	creditor.err = errors.New("ledger unavailable")
	ctx := context.Background()

	appt, err := svc.Book(ctx, models.BookingRequest{
		UserID:      "u1",
		ServiceType: models.ServiceRepair,
		ScheduledAt: baseNow.Add(2 * time.Hour),
	})
	require.NoError(t, err)

	done, err := svc.Complete(ctx, appt.ID)
	var credit *scheduling.LoyaltyCreditError
	require.ErrorAs(t, err, &credit)
	require.NotNil(t, done)
	assert.Equal(t, models.StatusCompleted, done.Status)

	// The completed status stands in the store too.
	cur, err := svc.GetByID(ctx, appt.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, cur.Status)
}

// TestBookCancelRebookFlow walks the canonical same-slot contention story:
// two customers race for 14:00, the loser books nothing, and once the
// winner is inside the protected window only staff can free the slot.
func TestBookCancelRebookFlow(t *testing.T) {
	appts := newMemAppointments()
	now := time.Date(2025, 3, 9, 10, 0, 0, 0, time.UTC)
	svc := &scheduling.DefaultSchedulingService{
		Appointments: appts,
		Users:        newMemUsers(customer("alice"), customer("bob"), staff("manager")),
		Loyalty:      &fakeCreditor{},
		Logger:       zap.NewNop(),
		Now:          func() time.Time { return now },
	}
	ctx := context.Background()
	slot := time.Date(2025, 3, 10, 14, 0, 0, 0, time.UTC)

	won, err := svc.Book(ctx, models.BookingRequest{
		UserID:      "alice",
		ServiceType: models.ServiceMaintenance,
		ScheduledAt: slot,
	})
	require.NoError(t, err)

	_, err = svc.Book(ctx, models.BookingRequest{
		UserID:      "bob",
		ServiceType: models.ServiceRepair,
		ScheduledAt: slot,
	})
	var taken *scheduling.SlotTakenError
	require.ErrorAs(t, err, &taken)

	// 23 hours before the appointment the owner can no longer cancel.
	now = slot.Add(-23 * time.Hour)
	err = svc.RequestCancellation(ctx, won.ID, "alice")
	var violation *scheduling.RuleViolationError
	require.ErrorAs(t, err, &violation)

	cur, err := svc.GetByID(ctx, won.ID)
	require.NoError(t, err)
	require.Equal(t, models.StatusConfirmed, cur.Status)

	// The manager can, and the freed slot is bookable again.
	require.NoError(t, svc.RequestCancellation(ctx, won.ID, "manager"))
	_, err = svc.Book(ctx, models.BookingRequest{
		UserID:      "bob",
		ServiceType: models.ServiceRepair,
		ScheduledAt: slot,
	})
	assert.NoError(t, err)
}
