package scheduling_test

import (
	"context"
	"sync"
	"time"

	"garagehub/database/repository"
	"garagehub/models"
)

// memAppointments is an in-memory AppointmentRepository mirroring the Mongo
// implementation's atomicity: every check-then-write runs under one lock,
// the way the real one runs under one transaction.
type memAppointments struct {
	mu   sync.Mutex
	byID map[string]*models.Appointment
}

func newMemAppointments() *memAppointments {
	return &memAppointments{byID: make(map[string]*models.Appointment)}
}

func (m *memAppointments) BookSlot(ctx context.Context, appt *models.Appointment) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, a := range m.byID {
		if a.Status == models.StatusConfirmed && a.ScheduledAt.Equal(appt.ScheduledAt) {
			return repository.ErrSlotTaken
		}
	}
	cp := *appt
	m.byID[appt.ID] = &cp
	return nil
}

func (m *memAppointments) GetByID(ctx context.Context, id string) (*models.Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	a, ok := m.byID[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *a
	return &cp, nil
}

func (m *memAppointments) ApplyChange(ctx context.Context, current *models.Appointment, change models.AppointmentChange) (*models.Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	a, ok := m.byID[current.ID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	if a.Status != models.StatusConfirmed || !a.ScheduledAt.Equal(current.ScheduledAt) {
		return nil, repository.ErrNotActive
	}
	if change.ScheduledAt != nil && !change.ScheduledAt.Equal(a.ScheduledAt) {
		for _, other := range m.byID {
			if other.ID != a.ID && other.Status == models.StatusConfirmed && other.ScheduledAt.Equal(*change.ScheduledAt) {
				return nil, repository.ErrSlotTaken
			}
		}
		a.ScheduledAt = *change.ScheduledAt
	}
	if change.ServiceType != nil {
		a.ServiceType = *change.ServiceType
	}
	if change.Notes != nil {
		a.Notes = *change.Notes
	}
	if change.Vehicle != nil {
		a.Vehicle = *change.Vehicle
	}
	cp := *a
	return &cp, nil
}

func (m *memAppointments) Cancel(ctx context.Context, id string) error {
	return m.transition(id, models.StatusCancelled)
}

func (m *memAppointments) Complete(ctx context.Context, id string) error {
	return m.transition(id, models.StatusCompleted)
}

func (m *memAppointments) transition(id, to string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	a, ok := m.byID[id]
	if !ok {
		return repository.ErrNotFound
	}
	if a.Status != models.StatusConfirmed {
		return repository.ErrNotActive
	}
	a.Status = to
	return nil
}

func (m *memAppointments) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.byID[id]; !ok {
		return repository.ErrNotFound
	}
	delete(m.byID, id)
	return nil
}

func (m *memAppointments) MarkReminderSent(ctx context.Context, id string, at time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	a, ok := m.byID[id]
	if !ok || a.Status != models.StatusConfirmed || a.ReminderSent {
		return false, nil
	}
	a.ReminderSent = true
	a.ReminderSentAt = &at
	return true, nil
}

func (m *memAppointments) FindReminderCandidates(ctx context.Context, windowStart, windowEnd time.Time) ([]models.Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []models.Appointment
	for _, a := range m.byID {
		if a.Status != models.StatusConfirmed || a.ReminderSent {
			continue
		}
		if a.ScheduledAt.Before(windowStart) || a.ScheduledAt.After(windowEnd) {
			continue
		}
		out = append(out, *a)
	}
	return out, nil
}

func (m *memAppointments) ListByUser(ctx context.Context, userID string) ([]models.Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []models.Appointment
	for _, a := range m.byID {
		if a.UserID == userID {
			out = append(out, *a)
		}
	}
	return out, nil
}

func (m *memAppointments) ListBetween(ctx context.Context, from, to time.Time) ([]models.Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []models.Appointment
	for _, a := range m.byID {
		if !a.ScheduledAt.Before(from) && a.ScheduledAt.Before(to) {
			out = append(out, *a)
		}
	}
	return out, nil
}

// memUsers is an in-memory UserRepository.
type memUsers struct {
	mu   sync.Mutex
	byID map[string]*models.User
}

func newMemUsers(users ...*models.User) *memUsers {
	m := &memUsers{byID: make(map[string]*models.User)}
	for _, u := range users {
		cp := *u
		m.byID[u.ID] = &cp
	}
	return m
}

func (m *memUsers) GetByID(ctx context.Context, id string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.byID[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (m *memUsers) Create(ctx context.Context, user *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	cp := *user
	m.byID[user.ID] = &cp
	return nil
}

func (m *memUsers) UpdateFCMToken(ctx context.Context, id, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.byID[id]
	if !ok {
		return repository.ErrNotFound
	}
	u.FCMToken = token
	return nil
}

func (m *memUsers) ClearFCMToken(ctx context.Context, id string) error {
	return m.UpdateFCMToken(ctx, id, "")
}

func (m *memUsers) ListPromotable(ctx context.Context) ([]models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []models.User
	for _, u := range m.byID {
		if u.NotificationPrefs.Promotions && u.FCMToken != "" {
			out = append(out, *u)
		}
	}
	return out, nil
}

// fakeCreditor records credit calls and can be told to fail.
type fakeCreditor struct {
	mu    sync.Mutex
	calls []string
	err   error
}

func (f *fakeCreditor) CreditForCompletedAppointment(ctx context.Context, userID, appointmentID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.err != nil {
		return f.err
	}
	f.calls = append(f.calls, appointmentID)
	return nil
}
