package bootstrap

import (
	"context"
	"time"

	prodsvc "lamf-backend/internal/application/products"
	"lamf-backend/internal/config"
	"lamf-backend/internal/infrastructure/database"
	"lamf-backend/internal/interfaces/router"
	"lamf-backend/internal/logger"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// Start configures logging, builds the app and prepares the schema and the
// product catalog.
func Start(cfg *config.Config) (*fiber.App, *gorm.DB, *redis.Client, error) {
	logger.Setup(logger.Options{
		Level:   cfg.LogLevel,
		File:    cfg.LogFile,
		Console: !cfg.IsProduction(),
	})

	app, db, rdb, err := router.CreateApp(cfg)
	if err != nil {
		return nil, nil, nil, err
	}
	if db == nil {
		return app, db, rdb, nil
	}
	if err := database.AutoMigrate(db); err != nil {
		return nil, nil, nil, err
	}
	if cfg.SeedProducts {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		n, err := (&prodsvc.Service{DB: db}).Seed(ctx, cfg.ProductSeedFile)
		if err != nil {
			return nil, nil, nil, err
		}
		if n > 0 {
			log.Info().Int("products", n).Msg("product catalog seeded")
		}
	}
	return app, db, rdb, nil
}

// New creates the Fiber app for serverless (api handler imports this package, not internal).
func New() (*fiber.App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	app, _, _, err := Start(cfg)
	return app, err
}
