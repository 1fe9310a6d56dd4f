package db

import (
	"context"
	"fmt"

	"formini/internal/config"
	"formini/internal/repository"
)

// OpenUserStore connects the credential store selected by cfg.StoreDriver and
// prepares its schema. The returned function releases the connection.
func OpenUserStore(ctx context.Context, cfg *config.Config) (repository.UserRepository, func() error, error) {
	switch cfg.StoreDriver {
	case "mysql":
		gormDB, err := NewMySQL(cfg.MySQLDSN)
		if err != nil {
			return nil, nil, err
		}
		if err := repository.Migrate(gormDB); err != nil {
			return nil, nil, fmt.Errorf("auto-migrate: %w", err)
		}
		sqlDB, err := gormDB.DB()
		if err != nil {
			return nil, nil, fmt.Errorf("mysql handle: %w", err)
		}
		return repository.NewUserRepository(gormDB), sqlDB.Close, nil
	case "mongo":
		client, err := NewMongo(cfg.MongoURI)
		if err != nil {
			return nil, nil, err
		}
		database := client.Database(cfg.MongoDB)
		if err := repository.EnsureMongoIndexes(ctx, database); err != nil {
			_ = client.Disconnect(ctx)
			return nil, nil, fmt.Errorf("mongo indexes: %w", err)
		}
		closeFn := func() error { return client.Disconnect(context.Background()) }
		return repository.NewMongoUserRepository(database), closeFn, nil
	case "memory":
		return repository.NewMemoryUserRepository(), func() error { return nil }, nil
	default:
		return nil, nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
	}
}
