package handlers

import (
	"pantry/internal/services"

	"github.com/gofiber/fiber/v2"
)

// SearchHandler serves product name suggestions.
type SearchHandler struct {
	service *services.ProductService
}

// NewSearchHandler creates a new SearchHandler.
func NewSearchHandler(service *services.ProductService) *SearchHandler {
	return &SearchHandler{service: service}
}

// RegisterRoutes registers the search routes.
func (h *SearchHandler) RegisterRoutes(router fiber.Router) {
	router.Get("/search/suggestions", h.HandleSuggestions)
}

// HandleSuggestions returns distinct product names containing ?query.
func (h *SearchHandler) HandleSuggestions(c *fiber.Ctx) error {
	query, present, err := singleQuery(c, "query")
	if err != nil || !present {
		return jsonError(c, fiber.StatusBadRequest, keyError, "Invalid query. Please send a plain string for search query")
	}

	names, err := h.service.SearchSuggestions(c.UserContext(), query)
	if err != nil {
		return writeError(c, keyError, err)
	}
	return c.JSON(fiber.Map{"products": names})
}
