package handlers

import (
	"strconv"
	"strings"

	"pantry/internal/middleware"
	"pantry/internal/models"
	"pantry/internal/services"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// ProductHandler handles HTTP requests for products.
type ProductHandler struct {
	service  *services.ProductService
	validate *validator.Validate
}

// NewProductHandler creates a new ProductHandler.
func NewProductHandler(service *services.ProductService) *ProductHandler {
	return &ProductHandler{
		service:  service,
		validate: validator.New(),
	}
}

// RegisterRoutes registers the product routes. auth guards the write routes.
func (h *ProductHandler) RegisterRoutes(router fiber.Router, auth fiber.Handler) {
	productRoutes := router.Group("/product")
	productRoutes.Get("/", h.HandleNearbyProducts)
	productRoutes.Get("/byStore", h.HandleProductsByStore)
	productRoutes.Get("/:productId", h.HandleGetProductByID)
	productRoutes.Post("/", auth, h.HandleCreateProduct)
	productRoutes.Post("/:productId/like", auth, h.HandleToggleLike)
}

// HandleNearbyProducts returns products at stores within ?distance meters.
func (h *ProductHandler) HandleNearbyProducts(c *fiber.Ctx) error {
	center, err := parseCenter(c)
	if err != nil {
		return writeError(c, keyError, err)
	}

	var radius float64
	distance, present, err := singleQuery(c, "distance")
	if err != nil {
		return writeError(c, keyError, err)
	}
	if present && strings.TrimSpace(distance) != "" {
		radius, err = strconv.ParseFloat(strings.TrimSpace(distance), 64)
		if err != nil || radius <= 0 {
			return jsonError(c, fiber.StatusBadRequest, keyError, "distance must be a positive number")
		}
	}

	query, _, err := singleQuery(c, "query")
	if err != nil {
		return writeError(c, keyError, err)
	}

	products, err := h.service.FindNearbyProducts(c.UserContext(), center, radius, query)
	if err != nil {
		return writeError(c, keyError, err)
	}
	return c.JSON(models.NewProductViews(products))
}

// HandleProductsByStore returns all products of ?storeId.
func (h *ProductHandler) HandleProductsByStore(c *fiber.Ctx) error {
	storeID, _, err := singleQuery(c, "storeId")
	if err != nil || !isUUID(storeID) {
		return jsonError(c, fiber.StatusBadRequest, keyError, "invalid storeId provided")
	}

	products, err := h.service.FindProductsByStore(c.UserContext(), storeID)
	if err != nil {
		return writeError(c, keyError, err)
	}
	return c.JSON(models.NewProductViews(products))
}

// HandleGetProductByID returns a single product.
func (h *ProductHandler) HandleGetProductByID(c *fiber.Ctx) error {
	productID := c.Params("productId")
	if !isUUID(productID) {
		return jsonError(c, fiber.StatusBadRequest, keyError, "invalid productId provided")
	}

	product, err := h.service.FindProductByID(c.UserContext(), productID)
	if err != nil {
		return writeError(c, keyError, err)
	}
	return c.JSON(models.NewProductView(*product))
}

// QuantityRequest is the quantity of a posted product.
type QuantityRequest struct {
	Unit  string  `json:"unit" validate:"required,max=20"`
	Value float64 `json:"value" validate:"gt=0"`
}

// PriceRequest is the price of a posted product.
type PriceRequest struct {
	CurrencyCode string  `json:"currencyCode" validate:"required"`
	Amount       float64 `json:"amount" validate:"gte=0"`
}

// CreateProductRequest represents the request body for posting a product.
type CreateProductRequest struct {
	Name        string          `json:"name" validate:"required,max=255"`
	StoreID     string          `json:"storeId" validate:"required,uuid"`
	Quantity    QuantityRequest `json:"quantity"`
	Price       PriceRequest    `json:"price"`
	Tags        []string        `json:"tags"`
	Image       string          `json:"image" validate:"omitempty,url,max=500"`
	Description string          `json:"description" validate:"max=2000"`
}

// HandleCreateProduct posts a product at a store as the signed-in user.
func (h *ProductHandler) HandleCreateProduct(c *fiber.Ctx) error {
	var req CreateProductRequest
	if err := c.BodyParser(&req); err != nil {
		return jsonError(c, fiber.StatusBadRequest, keyError, "invalid request body")
	}
	if err := h.validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":  "validation failed",
			"fields": validationMessages(err),
		})
	}

	product, err := h.service.CreateProduct(c.UserContext(), middleware.CurrentUser(c), services.CreateProductInput{
		Name:          req.Name,
		StoreID:       req.StoreID,
		QuantityUnit:  req.Quantity.Unit,
		QuantityValue: req.Quantity.Value,
		CurrencyCode:  req.Price.CurrencyCode,
		PriceAmount:   req.Price.Amount,
		Tags:          req.Tags,
		Image:         req.Image,
		Description:   req.Description,
	})
	if err != nil {
		return writeError(c, keyError, err)
	}
	return c.Status(fiber.StatusCreated).JSON(models.NewProductView(*product))
}

// HandleToggleLike likes or unlikes a product for the signed-in user.
func (h *ProductHandler) HandleToggleLike(c *fiber.Ctx) error {
	productID := c.Params("productId")
	if !isUUID(productID) {
		return jsonError(c, fiber.StatusBadRequest, keyError, "invalid productId provided")
	}

	liked, count, err := h.service.ToggleLike(c.UserContext(), productID, middleware.CurrentUser(c))
	if err != nil {
		return writeError(c, keyError, err)
	}
	return c.JSON(fiber.Map{
		"liked":     liked,
		"likeCount": count,
	})
}

func isUUID(s string) bool {
	if s == "" {
		return false
	}
	_, err := uuid.Parse(s)
	return err == nil
}
