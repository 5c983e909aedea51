package userRepo

import (
	"context"

	"garagehub/models"
)

// UserRepository defines the user-record access the scheduling core needs.
// Registration and authentication live elsewhere; this surface is role and
// delivery-address resolution plus the loyalty balance cache.
type UserRepository interface {
	// GetByID retrieves a user by its unique ID.
	GetByID(ctx context.Context, id string) (*models.User, error)
	// Create inserts a new user record.
	Create(ctx context.Context, user *models.User) error
	// UpdateFCMToken stores the user's current push delivery token.
	UpdateFCMToken(ctx context.Context, id, token string) error
	// ClearFCMToken removes a stale push delivery token.
	ClearFCMToken(ctx context.Context, id string) error
	// ListPromotable returns users opted in to promotional pushes who have
	// a delivery token on record.
	ListPromotable(ctx context.Context) ([]models.User, error)
}
