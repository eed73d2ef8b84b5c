package database

import (
	"context"
	"fmt"
	"time"

	"github.com/paygate/backend/pkg/retry"
	"github.com/paygate/backend/services/common/config"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

const connectAttempts = 8

// DSN renders the key/value connection string understood by pgx.
func DSN(p config.Postgres) string {
	return fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%s sslmode=%s TimeZone=%s",
		p.Host, p.User, p.Password, p.DB, p.Port, p.SSLMode, p.TimeZone,
	)
}

// ConnectPostgres opens the pool, retrying with backoff while the database
// comes up, then migrates the given models.
func ConnectPostgres(ctx context.Context, logger *zap.Logger, p config.Postgres, autoMigrateModels ...interface{}) (*gorm.DB, error) {
	dsn := DSN(p)

	ok, db, err := retry.Do(ctx, retry.Policy{
		MaxRetries: connectAttempts,
		BaseDelay:  500 * time.Millisecond,
		Operation:  "postgres_connect",
		Logger:     logger,
	}, func(ctx context.Context, attempt int) (bool, *gorm.DB, error) {
		db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
			Logger: gormlogger.Default.LogMode(gormlogger.Warn),
		})
		if err != nil {
			return false, nil, err
		}
		sqlDB, err := db.DB()
		if err != nil {
			return false, nil, err
		}
		if err := sqlDB.PingContext(ctx); err != nil {
			_ = sqlDB.Close()
			return false, nil, err
		}
		return true, db, nil
	})
	if !ok {
		return nil, fmt.Errorf("failed to connect to PostgreSQL after %d attempts: %w", connectAttempts, err)
	}

	if sqlDB, err := db.DB(); err == nil {
		sqlDB.SetMaxOpenConns(25)
		sqlDB.SetMaxIdleConns(5)
		sqlDB.SetConnMaxLifetime(5 * time.Minute)
	}
	logger.Info("Connected to PostgreSQL", zap.String("host", p.Host), zap.String("db", p.DB))

	if len(autoMigrateModels) > 0 {
		if err := db.WithContext(ctx).AutoMigrate(autoMigrateModels...); err != nil {
			return nil, fmt.Errorf("AutoMigrate failed: %w", err)
		}
	}
	return db, nil
}

func Close(db *gorm.DB) error {
	if db == nil {
		return nil
	}
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get database instance: %w", err)
	}
	return sqlDB.Close()
}
