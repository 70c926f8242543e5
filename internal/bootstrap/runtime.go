// Package bootstrap wires process-wide resources for the commands.
package bootstrap

import (
	"context"
	"fmt"
	"os"

	"scriptorium/internal/cache"
	"scriptorium/internal/config"
	"scriptorium/internal/database"
	"scriptorium/internal/render"
	"scriptorium/internal/repository"
	"scriptorium/internal/seed"
	"scriptorium/internal/service"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Options control runtime initialization behavior.
type Options struct {
	// FixturesPath, when set, is loaded with seed.LoadFixtures after connecting.
	FixturesPath string
}

// InitRuntime connects to DB and Redis and optionally loads fixtures.
func InitRuntime(ctx context.Context, cfg *config.Config, opts Options) (*gorm.DB, *redis.Client, error) {
	db, err := database.Connect(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("database connection failed: %w", err)
	}

	// Init Redis (may result in nil client if unreachable)
	cache.InitRedis(cfg.RedisURL)
	r := cache.GetClient()

	if opts.FixturesPath != "" {
		if err := LoadFixtureFile(ctx, db, opts.FixturesPath); err != nil {
			return nil, nil, err
		}
	}

	return db, r, nil
}

// NewSeeder builds a seeder writing through the regular services.
func NewSeeder(db *gorm.DB) *seed.Seeder {
	store := repository.NewStore(db)
	return seed.NewSeeder(
		service.NewPostService(store, render.NewMarkdown()),
		service.NewUserService(store.Users()),
		store.Users(),
	)
}

// LoadFixtureFile loads a YAML fixtures file into db.
func LoadFixtureFile(ctx context.Context, db *gorm.DB, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open fixtures: %w", err)
	}
	defer func() { _ = f.Close() }()

	if _, err := NewSeeder(db).LoadFixtures(ctx, f); err != nil {
		return fmt.Errorf("load fixtures %s: %w", path, err)
	}
	return nil
}
