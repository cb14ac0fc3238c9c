package database

import (
	"context"
	"fmt"
	"time"

	"github.com/dushixiang/monitoring/internal/config"
	"github.com/glebarez/sqlite"
	"github.com/jpillora/backoff"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Open 连接数据库，失败时按退避策略重试 ConnectRetries 次
func Open(ctx context.Context, logger *zap.Logger, cfg config.DatabaseConfig) (*gorm.DB, error) {
	b := &backoff.Backoff{
		Min:    500 * time.Millisecond,
		Max:    10 * time.Second,
		Factor: 2,
		Jitter: true,
	}

	var lastErr error
	for attempt := 0; attempt <= cfg.ConnectRetries; attempt++ {
		db, err := open(cfg)
		if err == nil {
			logger.Info("数据库连接成功", zap.String("type", cfg.Type), zap.Int("attempt", attempt+1))
			return db, nil
		}
		lastErr = err
		if attempt == cfg.ConnectRetries {
			break
		}

		wait := b.Duration()
		logger.Warn("数据库连接失败，稍后重试",
			zap.String("type", cfg.Type),
			zap.Int("attempt", attempt+1),
			zap.Duration("wait", wait),
			zap.Error(err))
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(wait):
		}
	}
	return nil, fmt.Errorf("连接数据库失败: %w", lastErr)
}

func open(cfg config.DatabaseConfig) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch cfg.Type {
	case "postgres":
		dialector = postgres.Open(cfg.DSN)
	case "sqlite":
		dialector = sqlite.Open(cfg.DSN)
	default:
		return nil, fmt.Errorf("不支持的数据库类型: %s", cfg.Type)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	if cfg.Type == "sqlite" {
		// sqlite 只允许一个写连接
		sqlDB.SetMaxOpenConns(1)
		sqlDB.SetMaxIdleConns(1)
	} else {
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
		sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
		sqlDB.SetConnMaxLifetime(time.Duration(cfg.ConnMaxLifetimeSeconds) * time.Second)
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, err
	}
	return db, nil
}
