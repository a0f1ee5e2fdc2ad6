package main

import (
	"context"
	"fmt"
	"time"

	"go-shorturl/internal/config"
	"go-shorturl/internal/urlservice/database"
	"go-shorturl/internal/urlservice/repository/memory"
	"go-shorturl/internal/urlservice/repository/redisstore"
	"go-shorturl/internal/urlservice/repository/sqlstore"
	"go-shorturl/internal/urlservice/usecase"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const redisPingTimeout = 5 * time.Second

// openStore builds the configured backend and brings its schema up to date.
func openStore(cfg config.StorageConfig, retention time.Duration, logger *zap.Logger) (usecase.RedirectStore, error) {
	switch cfg.Driver {
	case config.DriverMemory:
		logger.Warn("using in-memory store, entries are lost on restart")
		return memory.NewStore(), nil

	case config.DriverSQLite:
		db, err := database.OpenSQLite(cfg.DSN)
		if err != nil {
			return nil, err
		}
		if err := database.RunMigrations(db, database.DriverSQLite); err != nil {
			db.Close()
			return nil, err
		}
		logger.Info("database initialized", zap.String("driver", cfg.Driver), zap.String("path", cfg.DSN))
		return sqlstore.New(db, sqlstore.SQLite), nil

	case config.DriverPostgres:
		db, err := database.OpenPostgres(cfg.DSN)
		if err != nil {
			return nil, err
		}
		if err := database.RunMigrations(db, database.DriverPostgres); err != nil {
			db.Close()
			return nil, err
		}
		logger.Info("database initialized", zap.String("driver", cfg.Driver))
		return sqlstore.New(db, sqlstore.Postgres), nil

	case config.DriverRedis:
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		ctx, cancel := context.WithTimeout(context.Background(), redisPingTimeout)
		defer cancel()
		if err := rdb.Ping(ctx).Err(); err != nil {
			rdb.Close()
			return nil, fmt.Errorf("failed to ping redis at %s: %w", cfg.Redis.Addr, err)
		}
		logger.Info("redis connected", zap.String("addr", cfg.Redis.Addr), zap.Int("db", cfg.Redis.DB))
		return redisstore.NewStore(rdb, retention), nil

	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
}
