package handlers

import (
	"pantry/internal/models"
	"pantry/internal/services"

	"github.com/gofiber/fiber/v2"
)

// StoreHandler handles HTTP requests for store discovery.
type StoreHandler struct {
	service *services.StoreDiscoveryService
}

// NewStoreHandler creates a new StoreHandler.
func NewStoreHandler(service *services.StoreDiscoveryService) *StoreHandler {
	return &StoreHandler{
		service: service,
	}
}

// RegisterRoutes registers the store routes.
func (h *StoreHandler) RegisterRoutes(router fiber.Router) {
	router.Get("/nearby_stores", h.HandleNearbyStores)
	router.Get("/google_map/nearby_grocery_stores", h.HandleNearbyStores)
}

// HandleNearbyStores returns registry stores around lat/lng, most relevant first.
func (h *StoreHandler) HandleNearbyStores(c *fiber.Ctx) error {
	center, err := parseCenter(c)
	if err != nil {
		return writeError(c, keyError, err)
	}
	query, _, err := singleQuery(c, "query")
	if err != nil {
		return writeError(c, keyError, err)
	}

	stores, err := h.service.FindNearbyStores(c.UserContext(), center, query)
	if err != nil {
		return writeError(c, keyError, err)
	}
	return c.JSON(models.NewStoreViews(stores))
}
