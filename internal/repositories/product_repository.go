package repositories

import (
	"context"

	"pantry/internal/models"
)

// ProductRepository defines the interface for product data access.
// Products are returned with Store and a reduced Poster preloaded.
type ProductRepository interface {
	GetByID(ctx context.Context, id string) (*models.Product, error)
	// FindByStoreIDs returns products of the given stores; a non-empty
	// nameQuery keeps only names containing it, ignoring case.
	FindByStoreIDs(ctx context.Context, storeIDs []string, nameQuery string) ([]models.Product, error)
	// StoreIDsWithProductName returns ids of stores having at least one
	// product whose name contains query, ignoring case.
	StoreIDsWithProductName(ctx context.Context, query string) ([]string, error)
	// DistinctNames returns distinct product names containing query.
	DistinctNames(ctx context.Context, query string) ([]string, error)
	Create(ctx context.Context, product *models.Product) error
	// ToggleLike adds or removes userID from the product's like-list and
	// returns whether the user now likes it, plus the new like count.
	ToggleLike(ctx context.Context, productID, userID string) (bool, int64, error)
}
