package notification

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	userRepo "garagehub/database/repository/user"
	"garagehub/models"
)

// Service resolves delivery addresses from user records, dispatches through
// the gateway, and prunes tokens the gateway reports as unregistered.
type Service struct {
	Gateway Gateway
	Users   userRepo.UserRepository
	Logger  *zap.Logger
}

func NewService(gateway Gateway, users userRepo.UserRepository, logger *zap.Logger) (*Service, error) {
	if gateway == nil || users == nil {
		return nil, fmt.Errorf("notification service initialization error: gateway or user repository is nil")
	}
	return &Service{Gateway: gateway, Users: users, Logger: logger}, nil
}

// PushToUser sends a push to the given user's registered token. The caller
// has already resolved the user record (opt-in decisions belong to the
// caller). On an unregistered-token failure the stale token is cleared as a
// best-effort side task that never blocks the dispatch result.
func (s *Service) PushToUser(ctx context.Context, user *models.User, title, body string, data map[string]string) error {
	if user.FCMToken == "" {
		return &DeliveryError{Reason: fmt.Sprintf("user %s has no delivery token", user.ID)}
	}

	err := s.Gateway.SendOne(ctx, user.FCMToken, title, body, data)
	if err != nil {
		var de *DeliveryError
		if errors.As(err, &de) && de.Unregistered {
			s.pruneToken(user.ID)
		}
		return err
	}
	return nil
}

// Broadcast sends the same push to every user in the batch and prunes any
// tokens reported as unregistered.
func (s *Service) Broadcast(ctx context.Context, users []models.User, title, body string, data map[string]string) (*BatchResult, error) {
	tokens := make([]string, 0, len(users))
	byToken := make(map[string]string, len(users))
	for _, u := range users {
		if u.FCMToken == "" {
			continue
		}
		tokens = append(tokens, u.FCMToken)
		byToken[u.FCMToken] = u.ID
	}

	result, err := s.Gateway.SendMany(ctx, tokens, title, body, data)
	if err != nil {
		return nil, err
	}

	for _, f := range result.Failures {
		if !f.Unregistered {
			continue
		}
		if userID, ok := byToken[f.Token]; ok {
			s.pruneToken(userID)
		}
	}
	return result, nil
}

// pruneToken clears a stale token in the background. Failures are logged
// only; the next delivery attempt will rediscover the stale token.
func (s *Service) pruneToken(userID string) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.Users.ClearFCMToken(ctx, userID); err != nil {
			s.Logger.Warn("failed to clear stale fcm token",
				zap.String("userId", userID), zap.Error(err))
			return
		}
		s.Logger.Info("cleared stale fcm token", zap.String("userId", userID))
	}()
}
