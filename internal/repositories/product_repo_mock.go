package repositories

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"pantry/internal/models"

	"github.com/google/uuid"
)

// MockProductRepository is an in-memory implementation of ProductRepository.
// Products are stored with whatever Store and Poster the caller embeds.
type MockProductRepository struct {
	products map[string]models.Product
	order    []string
	mu       sync.RWMutex
}

// NewMockProductRepository creates a new instance of MockProductRepository.
func NewMockProductRepository() *MockProductRepository {
	return &MockProductRepository{
		products: make(map[string]models.Product),
	}
}

// GetByID returns a product by its ID.
func (r *MockProductRepository) GetByID(_ context.Context, id string) (*models.Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	product, ok := r.products[id]
	if !ok {
		return nil, fmt.Errorf("product with ID %s %w", id, ErrNotFound)
	}
	return &product, nil
}

// FindByStoreIDs returns products of the given stores in insertion order.
func (r *MockProductRepository) FindByStoreIDs(_ context.Context, storeIDs []string, nameQuery string) ([]models.Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	wanted := make(map[string]bool, len(storeIDs))
	for _, id := range storeIDs {
		wanted[id] = true
	}
	products := []models.Product{}
	for _, id := range r.order {
		p := r.products[id]
		if !wanted[p.StoreID] {
			continue
		}
		if nameQuery != "" && !containsFold(p.Name, nameQuery) {
			continue
		}
		products = append(products, p)
	}
	return products, nil
}

// StoreIDsWithProductName returns ids of stores with a matching product.
func (r *MockProductRepository) StoreIDsWithProductName(_ context.Context, query string) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	seen := make(map[string]bool)
	ids := []string{}
	for _, id := range r.order {
		p := r.products[id]
		if containsFold(p.Name, query) && !seen[p.StoreID] {
			seen[p.StoreID] = true
			ids = append(ids, p.StoreID)
		}
	}
	return ids, nil
}

// DistinctNames returns sorted distinct names containing query.
func (r *MockProductRepository) DistinctNames(_ context.Context, query string) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	seen := make(map[string]bool)
	names := []string{}
	for _, p := range r.products {
		if containsFold(p.Name, query) && !seen[p.Name] {
			seen[p.Name] = true
			names = append(names, p.Name)
		}
	}
	sort.Strings(names)
	return names, nil
}

// Create adds a new product.
func (r *MockProductRepository) Create(_ context.Context, product *models.Product) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if product.ID == "" {
		product.ID = uuid.New().String()
	}
	if product.CreatedAt.IsZero() {
		product.CreatedAt = time.Now()
	}
	r.products[product.ID] = *product
	r.order = append(r.order, product.ID)
	return nil
}

// ToggleLike flips the user's membership in the product's like-list.
func (r *MockProductRepository) ToggleLike(_ context.Context, productID, userID string) (bool, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	product, ok := r.products[productID]
	if !ok {
		return false, 0, fmt.Errorf("product with ID %s %w", productID, ErrNotFound)
	}

	kept := make([]models.User, 0, len(product.LikedUsers)+1)
	liked := true
	for _, u := range product.LikedUsers {
		if u.ID == userID {
			liked = false
			continue
		}
		kept = append(kept, u)
	}
	if liked {
		kept = append(kept, models.User{ID: userID})
	}
	product.LikedUsers = kept
	r.products[productID] = product
	return liked, int64(len(kept)), nil
}
