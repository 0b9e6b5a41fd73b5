package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"pantry/internal/app"
	"pantry/internal/config"
	"pantry/internal/logging"
	"pantry/pkg/rabbitmq"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const shutdownTimeout = 10 * time.Second

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var envFile string

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := loadConfig(envFile)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg, logger)
		},
	}

	migrateCmd := &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema and exit",
		RunE: func(_ *cobra.Command, _ []string) error {
			cfg, _, err := loadConfig(envFile)
			if err != nil {
				return err
			}
			return migrate(cfg)
		},
	}

	root := &cobra.Command{
		Use:           "pantry",
		Short:         "Grocery deals around you",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          serveCmd.RunE,
	}
	root.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file loaded before reading the environment")
	root.AddCommand(serveCmd, migrateCmd)
	return root
}

// loadConfig reads the configuration and installs the global logger.
func loadConfig(envFile string) (*config.Config, zerolog.Logger, error) {
	if err := config.LoadDotEnv(envFile); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return nil, zerolog.Nop(), err
	}
	cfg, err := config.Load(viper.New())
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return nil, zerolog.Nop(), err
	}
	return cfg, logging.Setup(os.Stdout, cfg.LogLevel), nil
}

func migrate(cfg *config.Config) error {
	db, err := app.OpenDatabase(cfg)
	if err != nil {
		log.Error().Err(err).Msg("Failed to open database")
		return err
	}
	if sqlDB, err := db.DB(); err == nil {
		defer sqlDB.Close()
	}
	if err := app.Migrate(db); err != nil {
		log.Error().Err(err).Msg("Migration failed")
		return err
	}
	log.Info().Str("driver", cfg.DatabaseDriver).Msg("Database schema is up to date")
	return nil
}

// serve runs the API until ctx is canceled, then shuts it down gracefully.
func serve(ctx context.Context, cfg *config.Config, logger zerolog.Logger) error {
	deps := app.Dependencies{Logger: &logger}

	if cfg.RabbitMQURL != "" {
		mqClient, err := rabbitmq.NewClient(rabbitmq.Config{URL: cfg.RabbitMQURL})
		if err != nil {
			log.Error().Err(err).Msg("Failed to initialize RabbitMQ client")
			return err
		}
		defer mqClient.Close()

		if err := mqClient.ConsumeEvents(rabbitmq.LogEvents(logger)); err != nil {
			log.Error().Err(err).Msg("Failed to start RabbitMQ consumer")
			return err
		}
		deps.Events = mqClient
	} else {
		log.Warn().Msg("RABBITMQ_URL is not set, domain events are disabled")
	}

	a, err := app.New(cfg, deps)
	if err != nil {
		log.Error().Err(err).Msg("Failed to build application")
		return err
	}
	defer func() {
		if sqlDB, err := a.DB.DB(); err == nil {
			sqlDB.Close()
		}
	}()

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", cfg.AppPort).Msg("Starting server")
		errCh <- a.Fiber.Listen(cfg.AppPort)
	}()

	select {
	case err := <-errCh:
		log.Error().Err(err).Msg("Server failed to start")
		return err
	case <-ctx.Done():
	}

	log.Info().Msg("Shutting down server...")
	if err := a.Fiber.ShutdownWithTimeout(shutdownTimeout); err != nil {
		log.Error().Err(err).Msg("Error during Fiber shutdown")
		return err
	}
	log.Info().Msg("Server gracefully stopped")
	return nil
}
