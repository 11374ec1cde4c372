// Package backend opens the store implementation named in the config.
package backend

import (
	"context"
	"fmt"

	"github.com/dineflow/api/internal/config"
	"github.com/dineflow/api/internal/store"
	"github.com/dineflow/api/internal/store/memory"
	"github.com/dineflow/api/internal/store/mongo"
	"github.com/dineflow/api/internal/store/postgres"
	"go.uber.org/zap"
)

// Open connects to the configured store. PostgreSQL migrations run first.
func Open(ctx context.Context, cfg config.StoreConfig, log *zap.Logger) (store.Store, error) {
	switch cfg.Driver {
	case config.DriverPostgres:
		if err := postgres.Migrate(cfg.DatabaseURL); err != nil {
			return nil, fmt.Errorf("migrate: %w", err)
		}
		s, err := postgres.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		log.Info("connected to postgres")
		return s, nil
	case config.DriverMongo:
		s, err := mongo.Connect(ctx, cfg.MongoURI, cfg.MongoDatabase)
		if err != nil {
			return nil, err
		}
		log.Info("connected to mongo", zap.String("database", cfg.MongoDatabase))
		return s, nil
	case config.DriverMemory:
		log.Warn("using in-memory store; data is lost on restart")
		return memory.New(), nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
	}
}
