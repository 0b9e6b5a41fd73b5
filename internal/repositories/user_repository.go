package repositories

import (
	"context"

	"pantry/internal/models"
)

// UserRepository defines the interface for user data access.
type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByID(ctx context.Context, id string) (*models.User, error)
	// BindThirdPartyID sets the federated id only when none is bound yet.
	// It reports whether the binding happened.
	BindThirdPartyID(ctx context.Context, userID, thirdPartyID string) (bool, error)
}
