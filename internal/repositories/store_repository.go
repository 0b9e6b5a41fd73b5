package repositories

import (
	"context"

	"pantry/internal/geo"
	"pantry/internal/models"
)

// StoreRepository defines the interface for store registry access.
type StoreRepository interface {
	GetByID(ctx context.Context, id string) (*models.Store, error)
	FindByExternalPlaceIDs(ctx context.Context, placeIDs []string) ([]models.Store, error)
	// CreateMissing inserts stores in one batch, silently skipping any whose
	// external place id is already registered. IDs are assigned in place.
	// It returns how many rows were actually inserted.
	CreateMissing(ctx context.Context, stores []models.Store) (int64, error)
	FindWithinRadius(ctx context.Context, center geo.Point, radiusMeters float64) ([]models.Store, error)
}
