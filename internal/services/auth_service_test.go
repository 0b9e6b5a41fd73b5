package services_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"pantry/internal/identity"
	"pantry/internal/models"
	"pantry/internal/repositories"
	"pantry/internal/services"

	"github.com/dgrijalva/jwt-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

const testJWTSecret = "test_jwt_secret"

var ctx = context.Background()

func newAuthService() (*services.AuthService, *MockUserRepository, *MockVerifier) {
	repo := new(MockUserRepository)
	verifier := new(MockVerifier)
	return services.NewAuthService(repo, verifier, testJWTSecret, 0), repo, verifier
}

func notFound(email string) error {
	return fmt.Errorf("user with email %s %w", email, repositories.ErrNotFound)
}

func parseClaims(t *testing.T, token string) jwt.MapClaims {
	t.Helper()
	parsed, err := jwt.Parse(token, func(token *jwt.Token) (interface{}, error) {
		return []byte(testJWTSecret), nil
	})
	require.NoError(t, err)
	claims, ok := parsed.Claims.(jwt.MapClaims)
	require.True(t, ok)
	return claims
}

func hashed(t *testing.T, password string) *string {
	t.Helper()
	h, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	s := string(h)
	return &s
}

func TestAuthService_SignUp(t *testing.T) {
	authService, mockRepo, _ := newAuthService()
	publisher := &recordingPublisher{}
	authService.WithEvents(publisher)

	var saved *models.User
	mockRepo.On("Create", mock.Anything, mock.AnythingOfType("*models.User")).
		Run(func(args mock.Arguments) {
			saved = args.Get(1).(*models.User)
			saved.ID = "user-1"
		}).
		Return(nil).Once()

	token, err := authService.SignUp(ctx, services.SignUpInput{
		FirstName: "Jane",
		LastName:  "Doe",
		Email:     "jane@example.com",
		Password:  "password123",
	})
	require.NoError(t, err)
	mockRepo.AssertExpectations(t)

	require.NotNil(t, saved.Password)
	assert.NotEqual(t, "password123", *saved.Password)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(*saved.Password), []byte("password123")))
	assert.Len(t, saved.Salt, 22)
	assert.Contains(t, *saved.Password, string(saved.Salt))
	assert.Equal(t, models.ProviderEmail, saved.Provider)

	claims := parseClaims(t, token)
	assert.Equal(t, "jane@example.com", claims["email"])
	exp := time.Unix(int64(claims["exp"].(float64)), 0)
	assert.WithinDuration(t, time.Now().Add(24*time.Hour), exp, time.Minute)

	events := publisher.Events()
	require.Len(t, events, 1)
	assert.Equal(t, services.EventUserRegistered, events[0].key)
	assert.Equal(t, services.UserRegisteredEvent{UserID: "user-1", Email: "jane@example.com", Provider: models.ProviderEmail}, events[0].payload)
}

func TestAuthService_SignUpPasswordLength(t *testing.T) {
	tests := []struct {
		length int
		ok     bool
	}{
		{7, false},
		{8, true},
		{20, true},
		{21, false},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("length %d", tt.length), func(t *testing.T) {
			authService, mockRepo, _ := newAuthService()
			mockRepo.On("Create", mock.Anything, mock.AnythingOfType("*models.User")).Return(nil).Maybe()

			_, err := authService.SignUp(ctx, services.SignUpInput{
				FirstName: "Jane",
				LastName:  "Doe",
				Email:     "jane@example.com",
				Password:  strings.Repeat("a", tt.length),
			})
			if tt.ok {
				assert.NoError(t, err)
				return
			}
			var ve *services.ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Equal(t, "password length must be between 8 and 20 characters", ve.Message)
			mockRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
		})
	}
}

func TestAuthService_SignUpPasswordCountsCharacters(t *testing.T) {
	authService, mockRepo, _ := newAuthService()
	mockRepo.On("Create", mock.Anything, mock.AnythingOfType("*models.User")).Return(nil).Once()

	// 8 characters, 24 bytes.
	_, err := authService.SignUp(ctx, services.SignUpInput{
		FirstName: "Jane", LastName: "Doe", Email: "jane@example.com", Password: "비밀번호비밀번호",
	})
	assert.NoError(t, err)
}

func TestAuthService_SignUpMissingFields(t *testing.T) {
	authService, mockRepo, _ := newAuthService()

	_, err := authService.SignUp(ctx, services.SignUpInput{Email: "jane@example.com", Password: "password123"})
	var ve *services.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "missing required fields", ve.Message)
	mockRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestAuthService_SignUpDuplicateEmail(t *testing.T) {
	authService, mockRepo, _ := newAuthService()
	input := services.SignUpInput{FirstName: "Jane", LastName: "Doe", Email: "jane@example.com", Password: "password123"}

	mockRepo.On("Create", mock.Anything, mock.AnythingOfType("*models.User")).Return(nil).Once()
	_, err := authService.SignUp(ctx, input)
	require.NoError(t, err)

	mockRepo.On("Create", mock.Anything, mock.AnythingOfType("*models.User")).
		Return(fmt.Errorf("failed to create user: %w", repositories.ErrDuplicateKey)).Once()
	_, err = authService.SignUp(ctx, input)
	assert.ErrorIs(t, err, services.ErrEmailExists)
	assert.Equal(t, "email already exists", err.Error())
	mockRepo.AssertExpectations(t)
}

func TestAuthService_SignIn(t *testing.T) {
	authService, mockRepo, _ := newAuthService()
	user := &models.User{
		ID:        "user-123",
		FirstName: "Jane",
		LastName:  "Doe",
		Email:     "jane@example.com",
		Password:  hashed(t, "password123"),
	}

	mockRepo.On("GetByEmail", mock.Anything, "jane@example.com").Return(user, nil)
	mockRepo.On("GetByEmail", mock.Anything, "nobody@example.com").Return(nil, notFound("nobody@example.com"))

	got, token, err := authService.SignIn(ctx, "jane@example.com", "password123")
	require.NoError(t, err)
	assert.Equal(t, user, got)
	claims := parseClaims(t, token)
	assert.Equal(t, "user-123", claims["user_id"])
	assert.Equal(t, "jane@example.com", claims["email"])

	_, _, err = authService.SignIn(ctx, "jane@example.com", "wrongpassword")
	assert.ErrorIs(t, err, services.ErrInvalidCredentials)

	_, _, err = authService.SignIn(ctx, "nobody@example.com", "password123")
	assert.ErrorIs(t, err, services.ErrInvalidCredentials)
}

func TestAuthService_SignInWithoutPassword(t *testing.T) {
	authService, mockRepo, _ := newAuthService()
	subject := "google-sub"
	mockRepo.On("GetByEmail", mock.Anything, "g@example.com").
		Return(&models.User{ID: "u", Email: "g@example.com", ThirdPartyUniqueID: &subject}, nil)

	_, _, err := authService.SignIn(ctx, "g@example.com", "")
	assert.ErrorIs(t, err, services.ErrInvalidCredentials)
}

func TestAuthService_SignInWithGoogleInvalidToken(t *testing.T) {
	authService, mockRepo, verifier := newAuthService()
	verifier.On("Verify", mock.Anything, "bad").Return(nil, fmt.Errorf("%w: expired", identity.ErrInvalidToken))

	_, _, _, err := authService.SignInWithGoogle(ctx, "bad")
	assert.ErrorIs(t, err, services.ErrInvalidIdentityToken)
	mockRepo.AssertNotCalled(t, "GetByEmail", mock.Anything, mock.Anything)
}

func TestAuthService_SignInWithGoogleBindsExistingUser(t *testing.T) {
	authService, mockRepo, verifier := newAuthService()
	user := &models.User{ID: "user-1", FirstName: "Jane", Email: "jane@example.com", Password: hashed(t, "password123")}

	verifier.On("Verify", mock.Anything, "tok").Return(&identity.Claims{Subject: "sub-1", Email: "jane@example.com"}, nil)
	mockRepo.On("GetByEmail", mock.Anything, "jane@example.com").Return(user, nil).Once()
	mockRepo.On("BindThirdPartyID", mock.Anything, "user-1", "sub-1").Return(true, nil).Once()

	got, token, created, err := authService.SignInWithGoogle(ctx, "tok")
	require.NoError(t, err)
	assert.False(t, created)
	assert.NotEmpty(t, token)
	require.NotNil(t, got.ThirdPartyUniqueID)
	assert.Equal(t, "sub-1", *got.ThirdPartyUniqueID)
	assert.Equal(t, models.ProviderGoogle, got.Provider)
	mockRepo.AssertExpectations(t)
}

func TestAuthService_SignInWithGoogleKeepsExistingBinding(t *testing.T) {
	authService, mockRepo, verifier := newAuthService()
	bound := "sub-1"
	user := &models.User{ID: "user-1", Email: "jane@example.com", ThirdPartyUniqueID: &bound, Provider: models.ProviderGoogle}

	verifier.On("Verify", mock.Anything, "tok").Return(&identity.Claims{Subject: "sub-2", Email: "jane@example.com"}, nil)
	mockRepo.On("GetByEmail", mock.Anything, "jane@example.com").Return(user, nil).Once()

	got, _, created, err := authService.SignInWithGoogle(ctx, "tok")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, "sub-1", *got.ThirdPartyUniqueID)
	mockRepo.AssertNotCalled(t, "BindThirdPartyID", mock.Anything, mock.Anything, mock.Anything)
}

func TestAuthService_SignInWithGoogleCreatesUser(t *testing.T) {
	authService, mockRepo, verifier := newAuthService()
	publisher := &recordingPublisher{}
	authService.WithEvents(publisher)

	verifier.On("Verify", mock.Anything, "tok").Return(&identity.Claims{
		Subject: "sub-9", Email: "new@example.com", GivenName: "New", FamilyName: "User",
	}, nil)
	mockRepo.On("GetByEmail", mock.Anything, "new@example.com").Return(nil, notFound("new@example.com")).Once()
	mockRepo.On("Create", mock.Anything, mock.MatchedBy(func(u *models.User) bool {
		return u.Email == "new@example.com" && u.Password == nil &&
			u.ThirdPartyUniqueID != nil && *u.ThirdPartyUniqueID == "sub-9" &&
			u.FirstName == "New" && u.LastName == "User"
	})).Run(func(args mock.Arguments) {
		args.Get(1).(*models.User).ID = "user-9"
	}).Return(nil).Once()

	got, token, created, err := authService.SignInWithGoogle(ctx, "tok")
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, "user-9", got.ID)
	assert.Equal(t, "new@example.com", parseClaims(t, token)["email"])
	mockRepo.AssertExpectations(t)

	events := publisher.Events()
	require.Len(t, events, 1)
	assert.Equal(t, services.UserRegisteredEvent{UserID: "user-9", Email: "new@example.com", Provider: models.ProviderGoogle}, events[0].payload)
}

func TestAuthService_SignInWithGoogleCreateRace(t *testing.T) {
	authService, mockRepo, verifier := newAuthService()
	winner := &models.User{ID: "user-w", Email: "race@example.com"}

	verifier.On("Verify", mock.Anything, "tok").Return(&identity.Claims{Subject: "sub-r", Email: "race@example.com"}, nil)
	mockRepo.On("GetByEmail", mock.Anything, "race@example.com").Return(nil, notFound("race@example.com")).Once()
	mockRepo.On("Create", mock.Anything, mock.AnythingOfType("*models.User")).Return(repositories.ErrDuplicateKey).Once()
	mockRepo.On("GetByEmail", mock.Anything, "race@example.com").Return(winner, nil).Once()

	got, _, created, err := authService.SignInWithGoogle(ctx, "tok")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, "user-w", got.ID)
}

func TestAuthService_SignInWithGoogleSubjectBoundElsewhere(t *testing.T) {
	authService, mockRepo, verifier := newAuthService()

	verifier.On("Verify", mock.Anything, "tok").Return(&identity.Claims{Subject: "sub-taken", Email: "renamed@example.com"}, nil)
	mockRepo.On("GetByEmail", mock.Anything, "renamed@example.com").Return(nil, notFound("renamed@example.com")).Twice()
	mockRepo.On("Create", mock.Anything, mock.AnythingOfType("*models.User")).Return(repositories.ErrDuplicateKey).Once()

	_, _, _, err := authService.SignInWithGoogle(ctx, "tok")
	assert.ErrorIs(t, err, services.ErrInvalidIdentityToken)
	mockRepo.AssertExpectations(t)
}

func TestAuthService_SignInWithGoogleProviderUnavailable(t *testing.T) {
	authService, mockRepo, verifier := newAuthService()
	verifier.On("Verify", mock.Anything, "tok").Return(nil, fmt.Errorf("%w: dial tcp: i/o timeout", identity.ErrUpstream))

	_, _, _, err := authService.SignInWithGoogle(ctx, "tok")
	assert.ErrorIs(t, err, services.ErrUpstream)
	assert.NotErrorIs(t, err, services.ErrInvalidIdentityToken)
	mockRepo.AssertNotCalled(t, "GetByEmail", mock.Anything, mock.Anything)
}

func TestAuthService_ValidateToken(t *testing.T) {
	authService, _, _ := newAuthService()

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": "user-123",
		"email":   "jane@example.com",
		"exp":     jwt.TimeFunc().Add(time.Hour).Unix(),
	})
	validTokenString, _ := token.SignedString([]byte(testJWTSecret))

	claims, err := authService.ValidateToken(validTokenString)
	assert.NoError(t, err)
	assert.Equal(t, "jane@example.com", claims["email"])

	_, err = authService.ValidateToken("invalid.token.string")
	assert.ErrorIs(t, err, services.ErrUnauthorized)

	wrongSecret, _ := token.SignedString([]byte("another_secret"))
	_, err = authService.ValidateToken(wrongSecret)
	assert.ErrorIs(t, err, services.ErrUnauthorized)

	expiredToken := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"email": "jane@example.com",
		"exp":   jwt.TimeFunc().Add(-time.Hour).Unix(),
	})
	expiredTokenString, _ := expiredToken.SignedString([]byte(testJWTSecret))
	_, err = authService.ValidateToken(expiredTokenString)
	assert.ErrorIs(t, err, services.ErrUnauthorized)
}

func TestAuthService_Authenticate(t *testing.T) {
	authService, mockRepo, _ := newAuthService()
	user := &models.User{ID: "user-1", Email: "jane@example.com"}
	token, err := authService.IssueToken(user)
	require.NoError(t, err)

	mockRepo.On("GetByEmail", mock.Anything, "jane@example.com").Return(user, nil).Once()
	got, err := authService.Authenticate(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, user, got)

	mockRepo.On("GetByEmail", mock.Anything, "jane@example.com").Return(nil, notFound("jane@example.com")).Once()
	_, err = authService.Authenticate(ctx, token)
	assert.ErrorIs(t, err, services.ErrUnauthorized)

	mockRepo.On("GetByEmail", mock.Anything, "jane@example.com").Return(nil, errors.New("connection reset")).Once()
	_, err = authService.Authenticate(ctx, token)
	assert.Error(t, err)
	assert.NotErrorIs(t, err, services.ErrUnauthorized)
}
