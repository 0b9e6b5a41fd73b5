package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"pantry/internal/geo"
	"pantry/internal/models"
	"pantry/internal/repositories"

	"github.com/google/uuid"
)

// DefaultSearchRadiusMeters is used when a nearby product query has no radius.
const DefaultSearchRadiusMeters = 5000

// CreateProductInput is a product listing posted by a signed-in user.
type CreateProductInput struct {
	Name          string
	StoreID       string
	QuantityUnit  string
	QuantityValue float64
	CurrencyCode  string
	PriceAmount   float64
	Tags          []string
	Image         string
	Description   string
}

// ProductService handles product queries and listings.
type ProductService struct {
	products      repositories.ProductRepository
	stores        repositories.StoreRepository
	defaultRadius float64
}

// NewProductService creates a new ProductService. A non-positive
// defaultRadius falls back to DefaultSearchRadiusMeters.
func NewProductService(products repositories.ProductRepository, stores repositories.StoreRepository, defaultRadius float64) *ProductService {
	if defaultRadius <= 0 {
		defaultRadius = DefaultSearchRadiusMeters
	}
	return &ProductService{
		products:      products,
		stores:        stores,
		defaultRadius: defaultRadius,
	}
}

// FindNearbyProducts returns products of every store within radiusMeters of
// center. A non-positive radius uses the default.
func (s *ProductService) FindNearbyProducts(ctx context.Context, center geo.Point, radiusMeters float64, query string) ([]models.Product, error) {
	if !center.Valid() {
		return nil, newValidationError("invalid latitude or longitude")
	}
	if radiusMeters <= 0 {
		radiusMeters = s.defaultRadius
	}

	stores, err := s.stores.FindWithinRadius(ctx, center, radiusMeters)
	if err != nil {
		return nil, fmt.Errorf("failed to find stores within radius: %w", err)
	}
	if len(stores) == 0 {
		return []models.Product{}, nil
	}

	ids := make([]string, 0, len(stores))
	for _, st := range stores {
		ids = append(ids, st.ID)
	}
	products, err := s.products.FindByStoreIDs(ctx, ids, strings.TrimSpace(query))
	if err != nil {
		return nil, fmt.Errorf("failed to find products: %w", err)
	}
	return products, nil
}

// FindProductsByStore returns all products listed at a store.
func (s *ProductService) FindProductsByStore(ctx context.Context, storeID string) ([]models.Product, error) {
	if err := validateID("storeId", storeID); err != nil {
		return nil, err
	}
	products, err := s.products.FindByStoreIDs(ctx, []string{storeID}, "")
	if err != nil {
		return nil, fmt.Errorf("failed to find products for store %s: %w", storeID, err)
	}
	return products, nil
}

// FindProductByID returns one denormalized product.
func (s *ProductService) FindProductByID(ctx context.Context, productID string) (*models.Product, error) {
	if err := validateID("productId", productID); err != nil {
		return nil, err
	}
	product, err := s.products.GetByID(ctx, productID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, fmt.Errorf("product %s: %w", productID, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get product: %w", err)
	}
	return product, nil
}

// SearchSuggestions returns distinct product names containing query.
func (s *ProductService) SearchSuggestions(ctx context.Context, query string) ([]string, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return []string{}, nil
	}
	names, err := s.products.DistinctNames(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to search product names: %w", err)
	}
	return names, nil
}

// CreateProduct lists a product at an existing store on behalf of poster.
func (s *ProductService) CreateProduct(ctx context.Context, poster *models.User, in CreateProductInput) (*models.Product, error) {
	if poster == nil {
		return nil, ErrUnauthorized
	}
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, newValidationError("name is required")
	}
	if err := validateID("storeId", in.StoreID); err != nil {
		return nil, err
	}
	if strings.TrimSpace(in.QuantityUnit) == "" || in.QuantityValue <= 0 {
		return nil, newValidationError("quantity must have a unit and a positive value")
	}
	if in.PriceAmount < 0 {
		return nil, newValidationError("price amount must not be negative")
	}
	currency, err := models.ParseCurrencyCode(in.CurrencyCode)
	if err != nil {
		return nil, newValidationError(err.Error())
	}
	tags, err := models.ParseTags(in.Tags)
	if err != nil {
		return nil, newValidationError(err.Error())
	}

	store, err := s.stores.GetByID(ctx, in.StoreID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, fmt.Errorf("store %s: %w", in.StoreID, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get store: %w", err)
	}

	product := &models.Product{
		ID:          uuid.New().String(),
		Name:        name,
		Quantity:    models.Quantity{Unit: strings.TrimSpace(in.QuantityUnit), Value: in.QuantityValue},
		Price:       models.Money{CurrencyCode: currency, Amount: in.PriceAmount},
		PosterID:    poster.ID,
		StoreID:     store.ID,
		Tags:        tags,
		Image:       in.Image,
		Description: in.Description,
	}
	if err := s.products.Create(ctx, product); err != nil {
		return nil, fmt.Errorf("failed to create product: %w", err)
	}

	product.Store = *store
	product.Poster = models.User{ID: poster.ID, FirstName: poster.FirstName, LastName: poster.LastName}
	return product, nil
}

// ToggleLike likes the product for user, or unlikes it if already liked.
// It returns the new state and like count.
func (s *ProductService) ToggleLike(ctx context.Context, productID string, user *models.User) (bool, int64, error) {
	if user == nil {
		return false, 0, ErrUnauthorized
	}
	if err := validateID("productId", productID); err != nil {
		return false, 0, err
	}
	liked, count, err := s.products.ToggleLike(ctx, productID, user.ID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return false, 0, fmt.Errorf("product %s: %w", productID, ErrNotFound)
		}
		return false, 0, fmt.Errorf("failed to toggle like: %w", err)
	}
	return liked, count, nil
}

func validateID(field, id string) error {
	if id == "" {
		return newValidationError(field + " is required")
	}
	if _, err := uuid.Parse(id); err != nil {
		return newValidationError("invalid " + field)
	}
	return nil
}
