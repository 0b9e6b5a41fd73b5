package handlers

import (
	"errors"
	"strconv"
	"strings"

	"pantry/internal/geo"
	"pantry/internal/services"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
)

// Error body keys. Auth endpoints answer with "message", the rest with "error".
const (
	keyError   = "error"
	keyMessage = "message"
)

func jsonError(c *fiber.Ctx, status int, key, msg string) error {
	return c.Status(status).JSON(fiber.Map{key: msg})
}

// writeError maps a service error to its status code. Unexpected errors are
// logged and reported as an opaque 500.
func writeError(c *fiber.Ctx, key string, err error) error {
	var ve *services.ValidationError
	switch {
	case errors.As(err, &ve):
		return jsonError(c, fiber.StatusBadRequest, key, ve.Message)
	case errors.Is(err, services.ErrNotFound):
		return jsonError(c, fiber.StatusNotFound, key, "not found")
	case errors.Is(err, services.ErrInvalidCredentials):
		return jsonError(c, fiber.StatusUnauthorized, key, "invalid credentials")
	case errors.Is(err, services.ErrUnauthorized):
		return jsonError(c, fiber.StatusUnauthorized, key, "unauthorized")
	case errors.Is(err, services.ErrInvalidIdentityToken):
		return jsonError(c, fiber.StatusBadRequest, key, "invalid google token")
	case errors.Is(err, services.ErrEmailExists):
		return jsonError(c, fiber.StatusBadRequest, key, "email already exists")
	}

	log.Error().Err(err).Str("method", c.Method()).Str("path", c.Path()).Msg("Request failed")
	return jsonError(c, fiber.StatusInternalServerError, key, "internal server error")
}

// validationMessages flattens validator errors into field -> tag messages.
func validationMessages(err error) map[string]string {
	messages := make(map[string]string)
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		for _, e := range verrs {
			messages[e.Field()] = "failed on the '" + e.Tag() + "' rule"
		}
	}
	return messages
}

// singleQuery returns a query parameter that must appear at most once.
// present is false when the parameter is absent.
func singleQuery(c *fiber.Ctx, name string) (value string, present bool, err error) {
	values := c.Context().QueryArgs().PeekMulti(name)
	switch len(values) {
	case 0:
		return "", false, nil
	case 1:
		return string(values[0]), true, nil
	}
	return "", true, &services.ValidationError{Message: "query parameter " + name + " must be a single value"}
}

// parseCenter reads the lat and lng query parameters.
func parseCenter(c *fiber.Ctx) (geo.Point, error) {
	lat, latOK, err := singleQuery(c, "lat")
	if err != nil {
		return geo.Point{}, err
	}
	lng, lngOK, err := singleQuery(c, "lng")
	if err != nil {
		return geo.Point{}, err
	}
	lat, lng = strings.TrimSpace(lat), strings.TrimSpace(lng)
	if !latOK || !lngOK || lat == "" || lng == "" {
		return geo.Point{}, &services.ValidationError{Message: "latitude and longitude are required"}
	}

	latitude, errLat := strconv.ParseFloat(lat, 64)
	longitude, errLng := strconv.ParseFloat(lng, 64)
	if errLat != nil || errLng != nil {
		return geo.Point{}, &services.ValidationError{Message: "latitude and longitude must be numbers"}
	}
	return geo.Point{Latitude: latitude, Longitude: longitude}, nil
}
