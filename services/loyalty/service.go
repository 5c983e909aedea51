package loyalty

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"garagehub/database/repository"
	loyaltyRepo "garagehub/database/repository/loyalty"
	"garagehub/models"
)

// LoyaltyService manages the points ledger: the exactly-once appointment
// credit, manual adjustments, redemptions, and reads.
type LoyaltyService interface {
	// CreditForCompletedAppointment credits the per-appointment points.
	// Calling it twice for the same appointment id credits once; the
	// second call is a no-op.
	CreditForCompletedAppointment(ctx context.Context, userID, appointmentID string) error

	// AdjustManually records a staff adjustment, positive or negative. A
	// delta that would drive the balance below zero is rejected with
	// repository.ErrInsufficientBalance.
	AdjustManually(ctx context.Context, userID string, delta int64, reason, actorID string) error

	// Redeem spends points against a reward.
	Redeem(ctx context.Context, userID string, cost int64, rewardID string) error

	// Balance derives the balance from the ledger itself. The cached copy
	// on the user record is for fast display reads; this is the auditable
	// figure.
	Balance(ctx context.Context, userID string) (int64, error)

	// History returns the user's ledger entries, newest first.
	History(ctx context.Context, userID string) ([]models.LoyaltyTransaction, error)
}

// DefaultLoyaltyService is the production implementation.
type DefaultLoyaltyService struct {
	Ledger loyaltyRepo.LoyaltyRepository
	Logger *zap.Logger

	// PointsPerAppointment is the credit granted per completed
	// appointment.
	PointsPerAppointment int64

	// Now is the clock; tests substitute a fixed one.
	Now func() time.Time
}

func (s *DefaultLoyaltyService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *DefaultLoyaltyService) CreditForCompletedAppointment(ctx context.Context, userID, appointmentID string) error {
	if userID == "" || appointmentID == "" {
		return fmt.Errorf("loyalty credit requires a user id and an appointment id")
	}

	tx := &models.LoyaltyTransaction{
		ID:            uuid.New().String(),
		UserID:        userID,
		Points:        s.PointsPerAppointment,
		Type:          models.LoyaltyAppointmentCredit,
		Reason:        "completed appointment",
		AppointmentID: appointmentID,
		CreatedAt:     s.now().UTC(),
	}

	applied, err := s.Ledger.Append(ctx, tx)
	if err != nil {
		return fmt.Errorf("crediting appointment %s failed: %w", appointmentID, err)
	}
	if !applied {
		s.Logger.Info("appointment already credited, skipping",
			zap.String("appointmentId", appointmentID),
			zap.String("userId", userID))
		return nil
	}

	s.Logger.Info("loyalty points credited",
		zap.String("appointmentId", appointmentID),
		zap.String("userId", userID),
		zap.Int64("points", tx.Points))
	return nil
}

func (s *DefaultLoyaltyService) AdjustManually(ctx context.Context, userID string, delta int64, reason, actorID string) error {
	if delta == 0 {
		return fmt.Errorf("adjustment delta must be non-zero")
	}
	if reason == "" {
		return fmt.Errorf("adjustment requires a reason")
	}

	tx := &models.LoyaltyTransaction{
		ID:        uuid.New().String(),
		UserID:    userID,
		Points:    delta,
		Type:      models.LoyaltyManualAdjustment,
		Reason:    reason,
		ActorID:   actorID,
		CreatedAt: s.now().UTC(),
	}

	if _, err := s.Ledger.Append(ctx, tx); err != nil {
		if errors.Is(err, repository.ErrInsufficientBalance) {
			return err
		}
		return fmt.Errorf("manual adjustment for user %s failed: %w", userID, err)
	}

	s.Logger.Info("loyalty balance adjusted",
		zap.String("userId", userID),
		zap.Int64("delta", delta),
		zap.String("actorId", actorID))
	return nil
}

func (s *DefaultLoyaltyService) Redeem(ctx context.Context, userID string, cost int64, rewardID string) error {
	if cost <= 0 {
		return fmt.Errorf("redemption cost must be positive")
	}

	tx := &models.LoyaltyTransaction{
		ID:        uuid.New().String(),
		UserID:    userID,
		Points:    -cost,
		Type:      models.LoyaltyRedemption,
		Reason:    "reward redemption",
		RewardID:  rewardID,
		CreatedAt: s.now().UTC(),
	}

	if _, err := s.Ledger.Append(ctx, tx); err != nil {
		if errors.Is(err, repository.ErrInsufficientBalance) {
			return err
		}
		return fmt.Errorf("redemption for user %s failed: %w", userID, err)
	}

	s.Logger.Info("reward redeemed",
		zap.String("userId", userID),
		zap.String("rewardId", rewardID),
		zap.Int64("cost", cost))
	return nil
}

func (s *DefaultLoyaltyService) Balance(ctx context.Context, userID string) (int64, error) {
	return s.Ledger.SumByUser(ctx, userID)
}

func (s *DefaultLoyaltyService) History(ctx context.Context, userID string) ([]models.LoyaltyTransaction, error) {
	return s.Ledger.ListByUser(ctx, userID)
}
