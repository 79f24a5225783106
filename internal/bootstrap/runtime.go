// Package bootstrap wires the database and cache connections shared by the binaries.
package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"inkwell/internal/cache"
	"inkwell/internal/config"
	"inkwell/internal/database"
	"inkwell/internal/middleware"
	"inkwell/internal/models"
	"inkwell/internal/seed"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Options control runtime initialization behavior.
type Options struct {
	ApplySchema bool
	// SeedDemo fills an empty development database with demo content.
	SeedDemo bool
}

// InitRuntime connects to the database and Redis. The Redis client is nil when Redis is
// not configured or unreachable.
func InitRuntime(ctx context.Context, cfg *config.Config, opts Options) (*gorm.DB, *redis.Client, error) {
	db, err := database.Connect(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("database connection failed: %w", err)
	}

	if opts.ApplySchema {
		if err := database.ApplySchema(ctx, db, cfg); err != nil {
			_ = database.Close(db)
			return nil, nil, fmt.Errorf("apply schema: %w", err)
		}
	}

	rdb := cache.Connect(cfg.RedisURL)

	if opts.SeedDemo && strings.EqualFold(cfg.Env, "development") {
		if err := seedIfEmpty(ctx, db, time.Now().UTC()); err != nil {
			return nil, nil, fmt.Errorf("failed to seed demo content: %w", err)
		}
	}

	return db, rdb, nil
}

func seedIfEmpty(ctx context.Context, db *gorm.DB, now time.Time) error {
	var count int64
	if err := db.WithContext(ctx).Model(&models.Post{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}
	sum, err := seed.Seed(ctx, db, seed.DefaultOptions, now)
	if err != nil {
		return err
	}
	middleware.Logger.Info("demo content seeded", slog.Int("posts", sum.Posts))
	return nil
}
