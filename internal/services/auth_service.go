package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"pantry/internal/identity"
	"pantry/internal/models"
	"pantry/internal/repositories"

	"github.com/dgrijalva/jwt-go"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"
)

// Password length bounds, in characters, inclusive.
const (
	PasswordMinLength = 8
	PasswordMaxLength = 20
)

// DefaultTokenTTL is how long a session token stays valid.
const DefaultTokenTTL = 24 * time.Hour

// EventUserRegistered is published when an account is created.
const EventUserRegistered = "user.registered"

// UserRegisteredEvent is the payload of EventUserRegistered.
type UserRegisteredEvent struct {
	UserID   string          `json:"userId"`
	Email    string          `json:"email"`
	Provider models.Provider `json:"provider"`
}

// SignUpInput holds the fields of a local sign-up.
type SignUpInput struct {
	FirstName string
	LastName  string
	Email     string
	Password  string
}

// AuthService handles business logic for authentication and authorization.
type AuthService struct {
	userRepo  repositories.UserRepository
	verifier  identity.Verifier
	events    EventPublisher
	jwtSecret []byte
	tokenTTL  time.Duration
}

// NewAuthService creates a new AuthService.
func NewAuthService(userRepo repositories.UserRepository, verifier identity.Verifier, jwtSecret string, tokenTTL time.Duration) *AuthService {
	if tokenTTL <= 0 {
		tokenTTL = DefaultTokenTTL
	}
	return &AuthService{
		userRepo:  userRepo,
		verifier:  verifier,
		jwtSecret: []byte(jwtSecret),
		tokenTTL:  tokenTTL,
	}
}

// WithEvents enables user.registered events.
func (s *AuthService) WithEvents(p EventPublisher) *AuthService {
	s.events = p
	return s
}

// SignUp registers a local account and returns a session token for it.
func (s *AuthService) SignUp(ctx context.Context, in SignUpInput) (string, error) {
	if in.FirstName == "" || in.LastName == "" || in.Email == "" || in.Password == "" {
		return "", newValidationError("missing required fields")
	}
	if n := utf8.RuneCountInString(in.Password); n < PasswordMinLength || n > PasswordMaxLength {
		return "", newValidationError(passwordLengthMessage())
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return "", newValidationError(passwordLengthMessage())
		}
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	hashed := string(hash)

	user := &models.User{
		FirstName: in.FirstName,
		LastName:  in.LastName,
		Email:     in.Email,
		Password:  &hashed,
		Salt:      bcryptSalt(hash),
		Provider:  models.ProviderEmail,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		if errors.Is(err, repositories.ErrDuplicateKey) {
			return "", ErrEmailExists
		}
		return "", fmt.Errorf("failed to register user: %w", err)
	}
	s.publishRegistered(user)

	return s.IssueToken(user)
}

// SignIn checks local credentials and returns the user with a session token.
// Every failure is reported as ErrInvalidCredentials.
func (s *AuthService) SignIn(ctx context.Context, email, password string) (*models.User, string, error) {
	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, repositories.ErrNotFound) {
			log.Error().Err(err).Msg("Failed to look up user for sign-in")
		}
		return nil, "", ErrInvalidCredentials
	}
	if !user.HasPassword() {
		return nil, "", ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(*user.Password), []byte(password)); err != nil {
		return nil, "", ErrInvalidCredentials
	}

	token, err := s.IssueToken(user)
	if err != nil {
		return nil, "", err
	}
	return user, token, nil
}

// SignInWithGoogle verifies a federated identity token and signs the user in,
// creating the account on first sight. created reports whether a new user
// was registered. An existing federated binding is never replaced.
func (s *AuthService) SignInWithGoogle(ctx context.Context, idToken string) (user *models.User, token string, created bool, err error) {
	claims, err := s.verifier.Verify(ctx, idToken)
	if err != nil {
		if errors.Is(err, identity.ErrUpstream) {
			return nil, "", false, fmt.Errorf("%w: %w", ErrUpstream, err)
		}
		log.Warn().Err(err).Msg("Identity token rejected")
		return nil, "", false, ErrInvalidIdentityToken
	}

	user, err = s.userRepo.GetByEmail(ctx, claims.Email)
	switch {
	case err == nil:
		if err := s.bindFederatedID(ctx, user, claims.Subject); err != nil {
			return nil, "", false, err
		}
	case errors.Is(err, repositories.ErrNotFound):
		user, created, err = s.createFederatedUser(ctx, claims)
		if err != nil {
			return nil, "", false, err
		}
	default:
		return nil, "", false, fmt.Errorf("failed to look up user: %w", err)
	}

	token, err = s.IssueToken(user)
	if err != nil {
		return nil, "", false, err
	}
	return user, token, created, nil
}

func (s *AuthService) bindFederatedID(ctx context.Context, user *models.User, subject string) error {
	if user.IsLinked() {
		return nil
	}
	bound, err := s.userRepo.BindThirdPartyID(ctx, user.ID, subject)
	if err != nil {
		if errors.Is(err, repositories.ErrDuplicateKey) {
			log.Warn().Str("user_id", user.ID).Msg("Federated id already bound to another user")
			return nil
		}
		return fmt.Errorf("failed to bind federated id: %w", err)
	}
	if bound {
		user.ThirdPartyUniqueID = &subject
		user.Provider = models.ProviderGoogle
	}
	return nil
}

func (s *AuthService) createFederatedUser(ctx context.Context, claims *identity.Claims) (*models.User, bool, error) {
	subject := claims.Subject
	user := &models.User{
		FirstName:          claims.GivenName,
		LastName:           claims.FamilyName,
		Email:              claims.Email,
		ThirdPartyUniqueID: &subject,
		Provider:           models.ProviderGoogle,
	}
	err := s.userRepo.Create(ctx, user)
	if err == nil {
		s.publishRegistered(user)
		return user, true, nil
	}
	if !errors.Is(err, repositories.ErrDuplicateKey) {
		return nil, false, fmt.Errorf("failed to create user: %w", err)
	}

	// Lost a race with a concurrent sign-in for the same email, or the
	// subject is already bound to an account with another email.
	existing, getErr := s.userRepo.GetByEmail(ctx, claims.Email)
	if errors.Is(getErr, repositories.ErrNotFound) {
		log.Warn().Msg("Federated id already bound to another user")
		return nil, false, ErrInvalidIdentityToken
	}
	if getErr != nil {
		return nil, false, fmt.Errorf("failed to create user: %w", err)
	}
	return existing, false, nil
}

// IssueToken signs a session token scoped to the user's email.
func (s *AuthService) IssueToken(user *models.User) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": user.ID,
		"email":   user.Email,
		"exp":     now.Add(s.tokenTTL).Unix(),
		"iat":     now.Unix(),
	})

	tokenString, err := token.SignedString(s.jwtSecret)
	if err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}
	return tokenString, nil
}

// ValidateToken parses and validates a JWT token, returning the claims if valid.
func (s *AuthService) ValidateToken(tokenString string) (jwt.MapClaims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.jwtSecret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnauthorized, err)
	}

	if claims, ok := token.Claims.(jwt.MapClaims); ok && token.Valid {
		return claims, nil
	}
	return nil, ErrUnauthorized
}

// Authenticate resolves a session token to its user.
func (s *AuthService) Authenticate(ctx context.Context, tokenString string) (*models.User, error) {
	claims, err := s.ValidateToken(tokenString)
	if err != nil {
		return nil, err
	}
	email, _ := claims["email"].(string)
	if email == "" {
		return nil, fmt.Errorf("%w: token has no email", ErrUnauthorized)
	}

	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, fmt.Errorf("%w: user no longer exists", ErrUnauthorized)
		}
		return nil, fmt.Errorf("failed to resolve token user: %w", err)
	}
	return user, nil
}

func (s *AuthService) publishRegistered(user *models.User) {
	if s.events == nil {
		return
	}
	err := s.events.PublishEvent(EventUserRegistered, UserRegisteredEvent{
		UserID:   user.ID,
		Email:    user.Email,
		Provider: user.Provider,
	})
	if err != nil {
		log.Error().Err(err).Str("user_id", user.ID).Msg("Failed to publish user.registered")
	}
}

func passwordLengthMessage() string {
	return fmt.Sprintf("password length must be between %d and %d characters", PasswordMinLength, PasswordMaxLength)
}

// bcryptSalt extracts the 22-character salt from a modular-crypt bcrypt hash
// such as "$2a$10$<salt><checksum>".
func bcryptSalt(hash []byte) []byte {
	parts := strings.SplitN(string(hash), "$", 4)
	if len(parts) != 4 || len(parts[3]) < 22 {
		return nil
	}
	return []byte(parts[3][:22])
}
