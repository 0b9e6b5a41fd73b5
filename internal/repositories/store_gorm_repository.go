package repositories

import (
	"context"
	"errors"
	"fmt"

	"pantry/internal/geo"
	"pantry/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GORMStoreRepository is a GORM implementation of StoreRepository.
type GORMStoreRepository struct {
	db *gorm.DB
}

// NewGORMStoreRepository creates a new instance of GORMStoreRepository.
func NewGORMStoreRepository(db *gorm.DB) *GORMStoreRepository {
	return &GORMStoreRepository{db: db}
}

// GetByID retrieves a single store by its ID.
func (r *GORMStoreRepository) GetByID(ctx context.Context, id string) (*models.Store, error) {
	var store models.Store
	if err := r.db.WithContext(ctx).First(&store, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("store with ID %s %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get store by ID %s: %w", id, err)
	}
	return &store, nil
}

// FindByExternalPlaceIDs returns the registered stores for the given place ids.
func (r *GORMStoreRepository) FindByExternalPlaceIDs(ctx context.Context, placeIDs []string) ([]models.Store, error) {
	stores := []models.Store{}
	if len(placeIDs) == 0 {
		return stores, nil
	}
	if err := r.db.WithContext(ctx).Where("external_place_id IN ?", placeIDs).Find(&stores).Error; err != nil {
		return nil, fmt.Errorf("failed to find stores by place ids: %w", err)
	}
	return stores, nil
}

// CreateMissing inserts the batch with ON CONFLICT DO NOTHING on the place id.
func (r *GORMStoreRepository) CreateMissing(ctx context.Context, stores []models.Store) (int64, error) {
	if len(stores) == 0 {
		return 0, nil
	}
	for i := range stores {
		if stores[i].ID == "" {
			stores[i].ID = uuid.New().String()
		}
	}
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "external_place_id"}},
			DoNothing: true,
		}).
		Create(&stores)
	if res.Error != nil {
		return 0, fmt.Errorf("failed to create stores: %w", res.Error)
	}
	return res.RowsAffected, nil
}

// FindWithinRadius returns stores within radiusMeters of center on the sphere.
// The bounding box narrows the scan; the great-circle check is exact.
func (r *GORMStoreRepository) FindWithinRadius(ctx context.Context, center geo.Point, radiusMeters float64) ([]models.Store, error) {
	box := geo.BoundingBox(center, radiusMeters)

	var candidates []models.Store
	err := r.db.WithContext(ctx).
		Where("latitude BETWEEN ? AND ?", box.MinLatitude, box.MaxLatitude).
		Where("longitude BETWEEN ? AND ?", box.MinLongitude, box.MaxLongitude).
		Find(&candidates).Error
	if err != nil {
		return nil, fmt.Errorf("failed to find stores near %v: %w", center, err)
	}

	stores := make([]models.Store, 0, len(candidates))
	for _, s := range candidates {
		if geo.Within(center, geo.Point{Latitude: s.Latitude, Longitude: s.Longitude}, radiusMeters) {
			stores = append(stores, s)
		}
	}
	return stores, nil
}
