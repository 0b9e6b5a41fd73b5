package repositories_test

import (
	"context"
	"fmt"
	"testing"

	"pantry/internal/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// newTestDB opens a private in-memory SQLite database with the schema migrated.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.New().String())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.User{}, &models.Store{}, &models.Product{}))

	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })
	return db
}

func strPtr(s string) *string { return &s }

func seedUser(t *testing.T, db *gorm.DB, email string) models.User {
	t.Helper()
	hash := "hash"
	u := models.User{
		ID:        uuid.New().String(),
		FirstName: "Ada",
		LastName:  "Lovelace",
		Email:     email,
		Password:  &hash,
		Provider:  models.ProviderEmail,
	}
	require.NoError(t, db.Create(&u).Error)
	return u
}

func seedStore(t *testing.T, db *gorm.DB, name, placeID string, lat, lng float64) models.Store {
	t.Helper()
	s := models.Store{
		ID:        uuid.New().String(),
		Name:      name,
		Address:   name + " address",
		Latitude:  lat,
		Longitude: lng,
	}
	if placeID != "" {
		s.ExternalPlaceID = strPtr(placeID)
	}
	require.NoError(t, db.Create(&s).Error)
	return s
}

func seedProduct(t *testing.T, db *gorm.DB, name string, store models.Store, poster models.User) models.Product {
	t.Helper()
	p := models.Product{
		ID:       uuid.New().String(),
		Name:     name,
		Quantity: models.Quantity{Unit: "ea", Value: 1},
		Price:    models.Money{CurrencyCode: models.CurrencyUSD, Amount: 2.5},
		PosterID: poster.ID,
		StoreID:  store.ID,
		Tags:     []models.Tag{models.TagVerified},
	}
	require.NoError(t, db.Omit("Poster", "Store", "LikedUsers").Create(&p).Error)
	return p
}

var ctx = context.Background()
