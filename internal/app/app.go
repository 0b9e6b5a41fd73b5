// Package app wires configuration, storage, services and handlers into a
// Fiber application.
package app

import (
	"errors"
	"fmt"
	"time"

	"pantry/internal/config"
	"pantry/internal/handlers"
	"pantry/internal/identity"
	"pantry/internal/metrics"
	"pantry/internal/middleware"
	"pantry/internal/models"
	"pantry/internal/places"
	"pantry/internal/repositories"
	"pantry/internal/services"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Dependencies are optional collaborators. Nil fields are built from the
// configuration.
type Dependencies struct {
	DB       *gorm.DB
	Places   services.PlacesSearcher
	Verifier identity.Verifier
	OAuth    handlers.OAuthCodeFlow
	Events   services.EventPublisher
	Registry *prometheus.Registry
	Logger   *zerolog.Logger
}

// App is the assembled HTTP application.
type App struct {
	Fiber    *fiber.App
	DB       *gorm.DB
	Registry *prometheus.Registry
}

// OpenDatabase connects to the configured database.
func OpenDatabase(cfg *config.Config) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch cfg.DatabaseDriver {
	case config.DriverPostgres:
		dialector = postgres.Open(cfg.DatabaseDSN)
	case config.DriverSQLite:
		dialector = sqlite.Open(cfg.DatabaseDSN)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.DatabaseDriver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return db, nil
}

// Migrate creates or updates the schema.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&models.User{}, &models.Store{}, &models.Product{}); err != nil {
		return fmt.Errorf("failed to auto-migrate database: %w", err)
	}
	if err := backfillFoldedNames(db); err != nil {
		return fmt.Errorf("failed to backfill folded product names: %w", err)
	}
	return nil
}

// backfillFoldedNames folds the names of products written before the
// name_folded column existed.
func backfillFoldedNames(db *gorm.DB) error {
	var batch []models.Product
	return db.Model(&models.Product{}).
		Select("id", "name").
		Where("name_folded = ? AND name <> ?", "", "").
		FindInBatches(&batch, 500, func(_ *gorm.DB, _ int) error {
			for _, p := range batch {
				err := db.Model(&models.Product{}).
					Where("id = ?", p.ID).
					UpdateColumn("name_folded", models.FoldName(p.Name)).Error
				if err != nil {
					return err
				}
			}
			return nil
		}).Error
}

// New builds the application. The database is migrated before routes are
// registered.
func New(cfg *config.Config, deps Dependencies) (*App, error) {
	db := deps.DB
	if db == nil {
		var err error
		if db, err = OpenDatabase(cfg); err != nil {
			return nil, err
		}
	}
	if err := Migrate(db); err != nil {
		return nil, err
	}

	registry := deps.Registry
	if registry == nil {
		registry = prometheus.NewRegistry()
	}
	collector := metrics.NewCollector(registry)

	reqLogger := log.Logger
	if deps.Logger != nil {
		reqLogger = *deps.Logger
	}

	searcher := deps.Places
	radius := places.DefaultSearchConfig().RadiusMeters
	if searcher == nil {
		client := places.NewClient(places.Config{
			APIKey:            cfg.GoogleMapAPIKey,
			Search:            places.SearchConfig{RankPreference: places.RankPreference(cfg.PlacesRankPreference)},
			RequestsPerSecond: cfg.PlacesRateLimit,
		})
		radius = client.RadiusMeters()
		searcher = client
	}

	verifier := deps.Verifier
	if verifier == nil {
		verifier = identity.NewGoogleVerifier(cfg.GoogleClientID)
	}

	oauth := deps.OAuth
	if oauth == nil {
		oauth = identity.NewOAuthFlow(identity.OAuthConfig{
			ClientID:     cfg.GoogleClientID,
			ClientSecret: cfg.GoogleClientSecret,
			RedirectURL:  cfg.GoogleCallbackURL,
			StateSecret:  cfg.JWTSecret,
		})
	}

	// --- Repositories ---
	userRepo := repositories.NewGORMUserRepository(db)
	storeRepo := repositories.NewGORMStoreRepository(db)
	productRepo := repositories.NewGORMProductRepository(db)

	// --- Services ---
	authService := services.NewAuthService(userRepo, verifier, cfg.JWTSecret, cfg.TokenTTL)
	discoveryService := services.NewStoreDiscoveryService(storeRepo, productRepo, searcher).WithMetrics(collector)
	productService := services.NewProductService(productRepo, storeRepo, radius)
	if deps.Events != nil {
		authService.WithEvents(deps.Events)
		discoveryService.WithEvents(deps.Events)
	}

	// --- Handlers ---
	authHandler := handlers.NewAuthHandler(authService, oauth)
	storeHandler := handlers.NewStoreHandler(discoveryService)
	productHandler := handlers.NewProductHandler(productService)
	searchHandler := handlers.NewSearchHandler(productService)

	app := fiber.New(fiber.Config{
		ErrorHandler: errorHandler,
	})

	// --- Middleware ---
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, X-Requested-With, Content-Type, Accept, Authorization",
	}))
	app.Use(middleware.RequestLogger(reqLogger))
	app.Use(collector.Middleware())

	// --- API Routes ---
	auth := middleware.AuthRequired(authService)
	apiV1 := app.Group("/api/v1")
	authHandler.RegisterRoutes(apiV1, auth)
	storeHandler.RegisterRoutes(apiV1)
	productHandler.RegisterRoutes(apiV1, auth)
	searchHandler.RegisterRoutes(apiV1)

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusOK).JSON(fiber.Map{
			"status": "healthy",
			"time":   time.Now().Format(time.RFC3339),
		})
	})
	app.Get("/metrics", metrics.Handler(registry))

	return &App{
		Fiber:    app,
		DB:       db,
		Registry: registry,
	}, nil
}

// errorHandler answers errors no handler turned into a response.
func errorHandler(c *fiber.Ctx, err error) error {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return c.Status(fe.Code).JSON(fiber.Map{"error": fe.Message})
	}
	log.Error().Err(err).Str("path", c.Path()).Msg("Unhandled error")
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal server error"})
}
