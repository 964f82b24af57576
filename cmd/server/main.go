package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "tusflow/docs"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/joho/godotenv"

	"tusflow/internal/delivery/http/handlers"
	"tusflow/internal/delivery/http/routers"
	"tusflow/internal/domain/repositories"
	"tusflow/internal/infrastructure/db"
	"tusflow/internal/infrastructure/janitor"
	"tusflow/internal/infrastructure/ledger"
	"tusflow/internal/infrastructure/notify"
	"tusflow/internal/infrastructure/pathing"
	"tusflow/internal/infrastructure/staging"
	"tusflow/internal/infrastructure/storage"
	"tusflow/internal/infrastructure/strategy"
	"tusflow/internal/infrastructure/thumbnail"
	"tusflow/internal/pkg/config"
	"tusflow/pkg/errors/i18n"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("no .env file found, using system environment variables")
	}

	cfg := config.Load()

	if err := i18n.Load(cfg.Server.Locale); err != nil {
		log.Printf("i18n load failed, error messages will use their built-in text: %v", err)
	}

	paths := pathing.New(cfg.Staging.MountPath, cfg.Staging.FilenameSanitizeRegex)
	registry := strategy.New(paths)
	store := staging.New(cfg.Staging.StagingDir)

	finalStore, err := newFinalStore(cfg)
	if err != nil {
		log.Fatalf("final store setup failed: %v", err)
	}

	uploadHandler := handlers.New(store, finalStore, paths, registry, cfg.Staging.MaxFileSize)

	if cfg.DB.Enabled {
		if repo, err := setupLedger(cfg); err != nil {
			log.Printf("ledger disabled: %v", err)
		} else {
			uploadHandler = uploadHandler.WithLedger(repo)
		}
	}

	var completionNotifier *notify.Notifier
	if cfg.Redis.Enabled {
		completionNotifier = notify.New(cfg.Redis.Addr)
		uploadHandler = uploadHandler.WithNotifier(completionNotifier)
	}

	uploadHandler = uploadHandler.WithThumbnail(thumbnail.New(cfg.Thumbnail.MaxDim))

	stagingJanitor := janitor.New(cfg.Staging.StagingDir, cfg.Janitor.Interval, cfg.Janitor.MaxAge)
	stagingJanitor.Start()

	app := fiber.New(fiber.Config{
		BodyLimit: int(cfg.Staging.MaxFileSize),
	})
	app.Use(logger.New())
	app.Use(cors.New())

	routers.SetupUploadRoutes(app, uploadHandler)

	addr := cfg.Server.Host + ":" + cfg.Server.Port
	go func() {
		log.Printf("server listening on %s", addr)
		if err := app.Listen(addr); err != nil {
			log.Fatalf("server failed to start: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	stagingJanitor.Stop(shutdownCtx)
	if completionNotifier != nil {
		if err := completionNotifier.Close(); err != nil {
			log.Printf("notifier close: %v", err)
		}
	}

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Fatalf("server did not shut down cleanly: %v", err)
	}
	log.Println("server stopped")
}

func newFinalStore(cfg *config.Config) (repositories.FinalStore, error) {
	switch cfg.Staging.StorageBackend {
	case "s3":
		return storage.NewS3Store(context.Background(), cfg.Staging.S3Bucket, cfg.Staging.S3Region)
	default:
		return storage.NewLocalStore(cfg.Staging.MountPath), nil
	}
}

func setupLedger(cfg *config.Config) (*ledger.Repository, error) {
	database, err := db.NewPostgresDB(cfg.DB)
	if err != nil {
		return nil, err
	}

	if cfg.Server.RunAutoMigration {
		sqlDB, err := database.DB()
		if err != nil {
			return nil, fmt.Errorf("obtain sql.DB: %w", err)
		}
		if err := db.RunMigrations(sqlDB); err != nil {
			return nil, err
		}
		return ledger.New(database), nil
	}

	repo := ledger.New(database)
	if err := repo.AutoMigrate(); err != nil {
		return nil, err
	}
	return repo, nil
}
