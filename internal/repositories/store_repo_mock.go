package repositories

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"pantry/internal/geo"
	"pantry/internal/models"

	"github.com/google/uuid"
)

// MockStoreRepository is an in-memory implementation of StoreRepository.
// It enforces the same place-id uniqueness as the database index.
type MockStoreRepository struct {
	stores  map[string]models.Store
	byPlace map[string]string
	order   []string
	mu      sync.RWMutex
}

// NewMockStoreRepository creates a new instance of MockStoreRepository.
func NewMockStoreRepository() *MockStoreRepository {
	return &MockStoreRepository{
		stores:  make(map[string]models.Store),
		byPlace: make(map[string]string),
	}
}

// GetByID returns a store by its ID.
func (r *MockStoreRepository) GetByID(_ context.Context, id string) (*models.Store, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	store, ok := r.stores[id]
	if !ok {
		return nil, fmt.Errorf("store with ID %s %w", id, ErrNotFound)
	}
	return &store, nil
}

// FindByExternalPlaceIDs returns stores registered under the given place ids,
// in insertion order.
func (r *MockStoreRepository) FindByExternalPlaceIDs(_ context.Context, placeIDs []string) ([]models.Store, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	wanted := make(map[string]bool, len(placeIDs))
	for _, id := range placeIDs {
		wanted[id] = true
	}
	stores := []models.Store{}
	for _, id := range r.order {
		s := r.stores[id]
		if s.ExternalPlaceID != nil && wanted[*s.ExternalPlaceID] {
			stores = append(stores, s)
		}
	}
	return stores, nil
}

// CreateMissing adds stores whose place id is not registered yet.
func (r *MockStoreRepository) CreateMissing(_ context.Context, stores []models.Store) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var inserted int64
	for i := range stores {
		if stores[i].ID == "" {
			stores[i].ID = uuid.New().String()
		}
		if placeID := stores[i].ExternalPlaceID; placeID != nil {
			if _, exists := r.byPlace[*placeID]; exists {
				continue
			}
			r.byPlace[*placeID] = stores[i].ID
		}
		stores[i].CreatedAt = time.Now()
		r.stores[stores[i].ID] = stores[i]
		r.order = append(r.order, stores[i].ID)
		inserted++
	}
	return inserted, nil
}

// FindWithinRadius returns stores within radiusMeters of center.
func (r *MockStoreRepository) FindWithinRadius(_ context.Context, center geo.Point, radiusMeters float64) ([]models.Store, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	stores := []models.Store{}
	for _, id := range r.order {
		s := r.stores[id]
		if geo.Within(center, geo.Point{Latitude: s.Latitude, Longitude: s.Longitude}, radiusMeters) {
			stores = append(stores, s)
		}
	}
	return stores, nil
}

// All returns every store sorted by name, for assertions in tests.
func (r *MockStoreRepository) All() []models.Store {
	r.mu.RLock()
	defer r.mu.RUnlock()

	stores := make([]models.Store, 0, len(r.stores))
	for _, s := range r.stores {
		stores = append(stores, s)
	}
	sort.Slice(stores, func(i, j int) bool { return stores[i].Name < stores[j].Name })
	return stores
}
