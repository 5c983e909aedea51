package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"garagehub/database/repository"
	"garagehub/handlers"
	"garagehub/middleware"
	"garagehub/models"
	"garagehub/services/scheduling"
)

// stubScheduler returns canned results so the handler's status mapping can
// be tested without a store.
type stubScheduler struct {
	bookErr   error
	modifyErr error
	cancelErr error
	appt      *models.Appointment
}

func (s *stubScheduler) Book(ctx context.Context, req models.BookingRequest) (*models.Appointment, error) {
	if s.bookErr != nil {
		return nil, s.bookErr
	}
	return s.appt, nil
}

func (s *stubScheduler) RequestModification(ctx context.Context, id string, change models.AppointmentChange, actingUserID string) (*models.Appointment, error) {
	if s.modifyErr != nil {
		return nil, s.modifyErr
	}
	return s.appt, nil
}

func (s *stubScheduler) RequestCancellation(ctx context.Context, id, actingUserID string) error {
	return s.cancelErr
}

func (s *stubScheduler) RequestDeletion(ctx context.Context, id, actingUserID string) error {
	return nil
}

func (s *stubScheduler) Complete(ctx context.Context, id string) (*models.Appointment, error) {
	return s.appt, nil
}

func (s *stubScheduler) GetByID(ctx context.Context, id string) (*models.Appointment, error) {
	if s.appt == nil {
		return nil, repository.ErrNotFound
	}
	return s.appt, nil
}

func (s *stubScheduler) ListForUser(ctx context.Context, userID string) ([]models.Appointment, error) {
	return nil, nil
}

func (s *stubScheduler) Agenda(ctx context.Context, day time.Time) ([]models.Appointment, error) {
	return nil, nil
}

type stubUsers struct {
	user *models.User
}

func (s *stubUsers) GetByID(ctx context.Context, id string) (*models.User, error) {
	if s.user == nil {
		return nil, repository.ErrNotFound
	}
	return s.user, nil
}

func (s *stubUsers) Create(ctx context.Context, user *models.User) error        { return nil }
func (s *stubUsers) UpdateFCMToken(ctx context.Context, id, token string) error { return nil }
func (s *stubUsers) ClearFCMToken(ctx context.Context, id string) error         { return nil }
func (s *stubUsers) ListPromotable(ctx context.Context) ([]models.User, error)  { return nil, nil }

func newRouter(svc *stubScheduler, users *stubUsers) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := handlers.NewAppointmentHandler(svc, users, zap.NewNop())

	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set(middleware.ActingUserKey, "u1")
		c.Next()
	})
	r.POST("/api/appointments", h.Book)
	r.PATCH("/api/appointments/:id", h.Modify)
	r.POST("/api/appointments/:id/cancel", h.Cancel)
	r.POST("/api/appointments/:id/complete", h.Complete)
	r.GET("/api/appointments/:id", h.Get)
	r.GET("/api/agenda", h.Agenda)
	return r
}

func doJSON(r *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func validBooking() map[string]any {
	return map[string]any{
		"customerName": "Ana",
		"serviceType":  models.ServiceMaintenance,
		"scheduledAt":  time.Now().Add(72 * time.Hour).UTC().Format(time.RFC3339),
	}
}

func TestBookReturnsCreated(t *testing.T) {
	svc := &stubScheduler{appt: &models.Appointment{ID: "a1", Status: models.StatusConfirmed}}
	r := newRouter(svc, &stubUsers{})

	w := doJSON(r, http.MethodPost, "/api/appointments", validBooking())
	require.Equal(t, http.StatusCreated, w.Code)

	var appt models.Appointment
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &appt))
	assert.Equal(t, "a1", appt.ID)
}

func TestBookMissingFields(t *testing.T) {
	r := newRouter(&stubScheduler{}, &stubUsers{})
	w := doJSON(r, http.MethodPost, "/api/appointments", map[string]any{"customerName": "Ana"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSchedulingErrorMapping(t *testing.T) {
	when := time.Date(2025, 3, 10, 14, 0, 0, 0, time.UTC)
	cases := []struct {
		name string
		err  error
		code int
	}{
		{"slot taken", &scheduling.SlotTakenError{When: when}, http.StatusConflict},
		{"protected window", &scheduling.RuleViolationError{ScheduledAt: when}, http.StatusForbidden},
		{"not owner", &scheduling.NotOwnerError{UserID: "u1", AppointmentID: "a1"}, http.StatusForbidden},
		{"unknown acting user", &scheduling.UserNotFoundError{UserID: "u1"}, http.StatusPreconditionFailed},
		{"not found", repository.ErrNotFound, http.StatusNotFound},
		{"not active", repository.ErrNotActive, http.StatusConflict},
		{"store contention", repository.ErrStoreContention, http.StatusServiceUnavailable},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc := &stubScheduler{bookErr: tc.err, cancelErr: tc.err}
			r := newRouter(svc, &stubUsers{})

			w := doJSON(r, http.MethodPost, "/api/appointments", validBooking())
			assert.Equal(t, tc.code, w.Code)

			w = doJSON(r, http.MethodPost, "/api/appointments/a1/cancel", nil)
			assert.Equal(t, tc.code, w.Code)
		})
	}
}

func TestCompleteRequiresStaff(t *testing.T) {
	svc := &stubScheduler{appt: &models.Appointment{ID: "a1", Status: models.StatusCompleted}}

	r := newRouter(svc, &stubUsers{user: &models.User{ID: "u1", Role: models.RoleCustomer}})
	w := doJSON(r, http.MethodPost, "/api/appointments/a1/complete", nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	r = newRouter(svc, &stubUsers{user: &models.User{ID: "u1", Role: models.RoleAdmin}})
	w = doJSON(r, http.MethodPost, "/api/appointments/a1/complete", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAgendaValidatesDate(t *testing.T) {
	manager := &stubUsers{user: &models.User{ID: "u1", Role: models.RoleAgendaManager}}
	r := newRouter(&stubScheduler{}, manager)

	w := doJSON(r, http.MethodGet, "/api/agenda?date=tomorrow", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(r, http.MethodGet, "/api/agenda?date=2025-03-10", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}
