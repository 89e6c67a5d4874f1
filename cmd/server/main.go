package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	rotatelogs "github.com/lestrrat-go/file-rotatelogs"
	"github.com/regulynx/compliance-chat/internal/api"
	"github.com/regulynx/compliance-chat/internal/config"
	"github.com/regulynx/compliance-chat/internal/importer"
	"github.com/regulynx/compliance-chat/internal/repository/postgres"
	"github.com/regulynx/compliance-chat/internal/repository/redis"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	// Load .env file - try multiple locations
	for _, p := range []string{".env", "../.env", "../../.env"} {
		if err := godotenv.Load(p); err == nil {
			break
		}
	}

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	setupLogger(cfg.Logging)

	log.Info().
		Str("host", cfg.Server.Host).
		Int("port", cfg.Server.Port).
		Msg("Starting compliance chat API server")

	// Initialize database
	db, err := postgres.NewDB(context.Background(), cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer db.Close()

	// Initialize Redis
	redisClient, err := redis.NewClient(cfg.Redis)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer redisClient.Close()

	// Initialize import pipelines
	statusStore := redis.NewJobStatusStore(redisClient)

	actsArchiver, err := importer.NewArchiver(cfg.Import.ActsFolder)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to prepare acts import folders")
	}
	actsRunner := importer.NewRunner(
		importer.ActsFamily(),
		cfg.Import.ActsFolder,
		actsArchiver,
		importer.ActsProcessor(postgres.NewActRepository(db)),
		statusStore,
	)

	updatesArchiver, err := importer.NewArchiver(cfg.Import.UpdatesFolder)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to prepare updates import folders")
	}
	updatesRunner := importer.NewRunner(
		importer.MonthlyUpdatesFamily(),
		cfg.Import.UpdatesFolder,
		updatesArchiver,
		importer.MonthlyUpdatesProcessor(postgres.NewMonthlyUpdateRepository(db)),
		statusStore,
	)

	actsScheduler := importer.NewScheduler(actsRunner)
	updatesScheduler := importer.NewScheduler(updatesRunner)
	if cfg.Import.SchedulerEnabled {
		if err := actsScheduler.Start(cfg.Import.ActsIntervalMin); err != nil {
			log.Fatal().Err(err).Msg("Failed to start acts import scheduler")
		}
		if err := updatesScheduler.Start(cfg.Import.UpdatesIntervalMin); err != nil {
			log.Fatal().Err(err).Msg("Failed to start updates import scheduler")
		}
	}

	// Initialize router
	router := api.NewRouter(cfg, db, redisClient, actsRunner, updatesRunner)

	// Create HTTP server. WriteTimeout stays zero so chat streams are not
	// cut off mid-turn.
	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Start server in goroutine
	go func() {
		log.Info().Msgf("Server listening on %s", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server failed")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	actsScheduler.Stop()
	updatesScheduler.Stop()

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server stopped")
}

// setupLogger configures zerolog: console output in development, plus a
// daily-rotated log file when one is configured.
func setupLogger(cfg config.LoggingConfig) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil || cfg.Level == "" {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	if cfg.File == "" {
		if os.Getenv("ENV") != "production" {
			log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
		}
		return
	}

	writer, err := rotatelogs.New(
		cfg.File+".%Y%m%d",
		rotatelogs.WithLinkName(cfg.File),
		rotatelogs.WithRotationTime(24*time.Hour),
		rotatelogs.WithMaxAge(7*24*time.Hour),
	)
	if err != nil {
		log.Error().Err(err).Str("file", cfg.File).Msg("Failed to open log file, using stderr")
		return
	}

	log.Logger = zerolog.New(zerolog.MultiLevelWriter(os.Stderr, writer)).With().Timestamp().Logger()
}
