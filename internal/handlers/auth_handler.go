package handlers

import (
	"context"
	"errors"

	"pantry/internal/identity"
	"pantry/internal/middleware"
	"pantry/internal/models"
	"pantry/internal/services"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
)

// OAuthCodeFlow is the provider side of the browser sign-in flow.
type OAuthCodeFlow interface {
	LoginURL() (string, error)
	Exchange(ctx context.Context, code, state string) (string, error)
}

// AuthHandler handles HTTP requests for authentication.
type AuthHandler struct {
	authService *services.AuthService
	oauth       OAuthCodeFlow
	validate    *validator.Validate
}

// NewAuthHandler creates a new AuthHandler. oauth may be nil, which disables
// the browser redirect routes.
func NewAuthHandler(authService *services.AuthService, oauth OAuthCodeFlow) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		oauth:       oauth,
		validate:    validator.New(),
	}
}

// RegisterRoutes registers the authentication routes. auth guards the
// session-only routes.
func (h *AuthHandler) RegisterRoutes(router fiber.Router, auth fiber.Handler) {
	authRoutes := router.Group("/auth")
	authRoutes.Post("/signup", h.HandleSignUp)
	authRoutes.Post("/default", h.HandleSignIn)
	authRoutes.Post("/signin/email", h.HandleSignIn)
	authRoutes.Post("/google", h.HandleGoogleSignIn)
	if h.oauth != nil {
		authRoutes.Get("/google/login", h.HandleGoogleLogin)
		authRoutes.Get("/google/callback", h.HandleGoogleCallback)
	}
	authRoutes.Get("/check", auth, h.HandleCheck)

	router.Get("/profile", auth, h.HandleProfile)
}

// SignUpRequest represents the request body for sign-up.
type SignUpRequest struct {
	FirstName string `json:"firstName" validate:"required"`
	LastName  string `json:"lastName" validate:"required"`
	Email     string `json:"email" validate:"required"`
	Password  string `json:"password" validate:"required"`
}

// HandleSignUp registers a local account.
func (h *AuthHandler) HandleSignUp(c *fiber.Ctx) error {
	var req SignUpRequest
	if err := c.BodyParser(&req); err != nil {
		return jsonError(c, fiber.StatusBadRequest, keyMessage, "invalid request body")
	}
	if err := h.validate.Struct(req); err != nil {
		return jsonError(c, fiber.StatusBadRequest, keyMessage, "missing required fields")
	}
	if err := h.validate.Var(req.Email, "email"); err != nil {
		return jsonError(c, fiber.StatusBadRequest, keyMessage, "invalid email")
	}

	token, err := h.authService.SignUp(c.UserContext(), services.SignUpInput{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     req.Email,
		Password:  req.Password,
	})
	if err != nil {
		return writeError(c, keyMessage, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"token": token})
}

// SignInRequest represents the request body for email sign-in.
type SignInRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// HandleSignIn checks local credentials and issues a session token.
func (h *AuthHandler) HandleSignIn(c *fiber.Ctx) error {
	var req SignInRequest
	if err := c.BodyParser(&req); err != nil {
		return jsonError(c, fiber.StatusBadRequest, keyMessage, "invalid request body")
	}
	if err := h.validate.Struct(req); err != nil {
		return jsonError(c, fiber.StatusBadRequest, keyMessage, "missing credentials")
	}

	user, token, err := h.authService.SignIn(c.UserContext(), req.Email, req.Password)
	if err != nil {
		return writeError(c, keyMessage, err)
	}
	return c.JSON(signInResponse(user, token))
}

// GoogleSignInRequest carries an ID token obtained by the client.
type GoogleSignInRequest struct {
	Token string `json:"token" validate:"required"`
}

// HandleGoogleSignIn signs in with a Google ID token, creating the account
// on first use.
func (h *AuthHandler) HandleGoogleSignIn(c *fiber.Ctx) error {
	var req GoogleSignInRequest
	if err := c.BodyParser(&req); err != nil || h.validate.Struct(req) != nil {
		return jsonError(c, fiber.StatusBadRequest, keyError, "google token is required")
	}
	return h.completeGoogleSignIn(c, req.Token)
}

// HandleGoogleLogin redirects the browser to the Google consent page.
func (h *AuthHandler) HandleGoogleLogin(c *fiber.Ctx) error {
	url, err := h.oauth.LoginURL()
	if err != nil {
		return writeError(c, keyError, err)
	}
	return c.Redirect(url, fiber.StatusFound)
}

// HandleGoogleCallback finishes the browser flow started by HandleGoogleLogin.
func (h *AuthHandler) HandleGoogleCallback(c *fiber.Ctx) error {
	if errParam := c.Query("error"); errParam != "" {
		return jsonError(c, fiber.StatusBadRequest, keyError, "google sign-in was not completed")
	}

	idToken, err := h.oauth.Exchange(c.UserContext(), c.Query("code"), c.Query("state"))
	if err != nil {
		log.Warn().Err(err).Msg("OAuth callback rejected")
		switch {
		case errors.Is(err, identity.ErrInvalidState):
			return jsonError(c, fiber.StatusBadRequest, keyError, "invalid oauth state")
		case errors.Is(err, identity.ErrExchange):
			return jsonError(c, fiber.StatusBadRequest, keyError, "invalid authorization code")
		}
		return writeError(c, keyError, err)
	}
	return h.completeGoogleSignIn(c, idToken)
}

func (h *AuthHandler) completeGoogleSignIn(c *fiber.Ctx, idToken string) error {
	user, token, created, err := h.authService.SignInWithGoogle(c.UserContext(), idToken)
	if err != nil {
		return writeError(c, keyError, err)
	}
	status := fiber.StatusOK
	if created {
		status = fiber.StatusCreated
	}
	return c.Status(status).JSON(signInResponse(user, token))
}

// HandleCheck confirms the bearer token is valid.
func (h *AuthHandler) HandleCheck(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"message":   "Authenticated",
		"userEmail": middleware.CurrentUser(c).Email,
	})
}

// HandleProfile returns the signed-in user's own account.
func (h *AuthHandler) HandleProfile(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"message": "Profile",
		"user":    models.NewUserView(*middleware.CurrentUser(c)),
	})
}

func signInResponse(user *models.User, token string) fiber.Map {
	return fiber.Map{
		"firstName": user.FirstName,
		"lastName":  user.LastName,
		"email":     user.Email,
		"token":     token,
	}
}
