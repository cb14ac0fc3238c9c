package service

import (
	"context"
	"time"

	"github.com/dushixiang/monitoring/internal/repo"
	"github.com/go-orz/orz"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// RetentionService 清理超出保留期的快照和错误日志
type RetentionService struct {
	logger *zap.Logger
	*orz.Service
	snapshotRepo *repo.SnapshotRepo
	errorLogRepo *repo.ErrorLogRepo
}

func NewRetentionService(logger *zap.Logger, db *gorm.DB) *RetentionService {
	return &RetentionService{
		logger:       logger,
		Service:      orz.NewService(db),
		snapshotRepo: repo.NewSnapshotRepo(db),
		errorLogRepo: repo.NewErrorLogRepo(db),
	}
}

// PurgeResult 清理结果
type PurgeResult struct {
	Snapshots int64
	ErrorLogs int64
}

// Purge 删除 now-days 之前创建的数据，days <= 0 时不做任何事
func (s *RetentionService) Purge(ctx context.Context, days int, now time.Time) (*PurgeResult, error) {
	result := &PurgeResult{}
	if days <= 0 {
		return result, nil
	}
	before := now.UTC().AddDate(0, 0, -days)

	// 快照树和错误日志在同一个事务中删除，失败时全部回滚
	err := s.Transaction(ctx, func(ctx context.Context) error {
		snapshots, err := s.snapshotRepo.DeleteBefore(ctx, before)
		if err != nil {
			return err
		}
		logs, err := s.errorLogRepo.DeleteBefore(ctx, before)
		if err != nil {
			return err
		}
		result.Snapshots = snapshots
		result.ErrorLogs = logs
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("历史数据清理完成",
		zap.Time("before", before),
		zap.Int64("snapshots", result.Snapshots),
		zap.Int64("errorLogs", result.ErrorLogs))
	return result, nil
}
