package repositories

import (
	"context"
	"errors"
	"fmt"

	"pantry/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GORMProductRepository is a GORM implementation of ProductRepository.
type GORMProductRepository struct {
	db *gorm.DB
}

// NewGORMProductRepository creates a new instance of GORMProductRepository.
func NewGORMProductRepository(db *gorm.DB) *GORMProductRepository {
	return &GORMProductRepository{
		db: db,
	}
}

// denormalized preloads the store, the poster's public fields and the ids of
// users who liked the product.
func (r *GORMProductRepository) denormalized(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).
		Preload("Store").
		Preload("Poster", func(db *gorm.DB) *gorm.DB {
			return db.Select("id", "first_name", "last_name")
		}).
		Preload("LikedUsers", func(db *gorm.DB) *gorm.DB {
			return db.Select("users.id")
		})
}

// GetByID retrieves a single product by its ID from the database.
func (r *GORMProductRepository) GetByID(ctx context.Context, id string) (*models.Product, error) {
	var product models.Product
	if err := r.denormalized(ctx).First(&product, "products.id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("product with ID %s %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get product by ID %s: %w", id, err)
	}
	return &product, nil
}

// FindByStoreIDs retrieves the products of the given stores.
func (r *GORMProductRepository) FindByStoreIDs(ctx context.Context, storeIDs []string, nameQuery string) ([]models.Product, error) {
	products := []models.Product{}
	if len(storeIDs) == 0 {
		return products, nil
	}
	q := r.denormalized(ctx).Where("store_id IN ?", storeIDs)
	if nameQuery != "" {
		q = q.Where(likeClause("name_folded"), containsPattern(nameQuery))
	}
	if err := q.Order("created_at DESC").Find(&products).Error; err != nil {
		return nil, fmt.Errorf("failed to find products by store: %w", err)
	}
	return products, nil
}

// StoreIDsWithProductName returns distinct store ids with a matching product.
func (r *GORMProductRepository) StoreIDsWithProductName(ctx context.Context, query string) ([]string, error) {
	var ids []string
	err := r.db.WithContext(ctx).Model(&models.Product{}).
		Where(likeClause("name_folded"), containsPattern(query)).
		Distinct("store_id").
		Pluck("store_id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("failed to find stores with product %q: %w", query, err)
	}
	return ids, nil
}

// DistinctNames returns the distinct names of products matching query.
func (r *GORMProductRepository) DistinctNames(ctx context.Context, query string) ([]string, error) {
	names := []string{}
	err := r.db.WithContext(ctx).Model(&models.Product{}).
		Where(likeClause("name_folded"), containsPattern(query)).
		Distinct("name").
		Order("name").
		Pluck("name", &names).Error
	if err != nil {
		return nil, fmt.Errorf("failed to find product names: %w", err)
	}
	return names, nil
}

// Create creates a new product in the database.
func (r *GORMProductRepository) Create(ctx context.Context, product *models.Product) error {
	if product.ID == "" {
		product.ID = uuid.New().String()
	}
	// the poster and store already exist; only write the product row
	if err := r.db.WithContext(ctx).Omit("Poster", "Store", "LikedUsers").Create(product).Error; err != nil {
		return fmt.Errorf("failed to create product: %w", err)
	}
	return nil
}

// ToggleLike flips the user's membership in the product's like-list.
func (r *GORMProductRepository) ToggleLike(ctx context.Context, productID, userID string) (bool, int64, error) {
	var liked bool
	var count int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var exists int64
		if err := tx.Model(&models.Product{}).Where("id = ?", productID).Count(&exists).Error; err != nil {
			return err
		}
		if exists == 0 {
			return fmt.Errorf("product with ID %s %w", productID, ErrNotFound)
		}

		var already int64
		if err := tx.Table("product_likes").
			Where("product_id = ? AND user_id = ?", productID, userID).
			Count(&already).Error; err != nil {
			return err
		}
		if already > 0 {
			if err := tx.Exec("DELETE FROM product_likes WHERE product_id = ? AND user_id = ?", productID, userID).Error; err != nil {
				return err
			}
		} else if err := addLike(tx, productID, userID); err != nil {
			return err
		}
		liked = already == 0

		return tx.Table("product_likes").Where("product_id = ?", productID).Count(&count).Error
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return false, 0, err
		}
		return false, 0, fmt.Errorf("failed to toggle like on product %s: %w", productID, err)
	}
	return liked, count, nil
}

// addLike records a like. A concurrent like by the same user is absorbed by
// the product_likes primary key.
func addLike(tx *gorm.DB, productID, userID string) error {
	return tx.Table("product_likes").
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(map[string]interface{}{
			"product_id": productID,
			"user_id":    userID,
		}).Error
}
