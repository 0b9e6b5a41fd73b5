package repositories_test

import (
	"testing"

	"pantry/internal/models"
	"pantry/internal/repositories"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGORMUserRepository_CreateAndGet(t *testing.T) {
	repo := repositories.NewGORMUserRepository(newTestDB(t))

	hash := "hash"
	user := &models.User{FirstName: "Ada", LastName: "Lovelace", Email: "ada@example.com", Password: &hash}
	require.NoError(t, repo.Create(ctx, user))
	assert.NotEmpty(t, user.ID)
	assert.Equal(t, models.ProviderEmail, user.Provider)

	byEmail, err := repo.GetByEmail(ctx, "ada@example.com")
	require.NoError(t, err)
	assert.Equal(t, user.ID, byEmail.ID)

	byID, err := repo.GetByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "ada@example.com", byID.Email)

	_, err = repo.GetByEmail(ctx, "ADA@example.com")
	assert.ErrorIs(t, err, repositories.ErrNotFound)
}

func TestGORMUserRepository_DuplicateEmail(t *testing.T) {
	repo := repositories.NewGORMUserRepository(newTestDB(t))

	require.NoError(t, repo.Create(ctx, &models.User{FirstName: "A", LastName: "B", Email: "dup@example.com"}))
	err := repo.Create(ctx, &models.User{FirstName: "C", LastName: "D", Email: "dup@example.com"})
	assert.ErrorIs(t, err, repositories.ErrDuplicateKey)
}

func TestGORMUserRepository_BindThirdPartyIDIsOneWay(t *testing.T) {
	db := newTestDB(t)
	repo := repositories.NewGORMUserRepository(db)
	user := seedUser(t, db, "ada@example.com")

	bound, err := repo.BindThirdPartyID(ctx, user.ID, "google-1")
	require.NoError(t, err)
	assert.True(t, bound)

	bound, err = repo.BindThirdPartyID(ctx, user.ID, "google-2")
	require.NoError(t, err)
	assert.False(t, bound)

	reloaded, err := repo.GetByID(ctx, user.ID)
	require.NoError(t, err)
	require.NotNil(t, reloaded.ThirdPartyUniqueID)
	assert.Equal(t, "google-1", *reloaded.ThirdPartyUniqueID)
	assert.Equal(t, models.ProviderGoogle, reloaded.Provider)
}
