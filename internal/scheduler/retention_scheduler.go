package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/dushixiang/monitoring/internal/config"
	"github.com/dushixiang/monitoring/internal/service"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// RetentionScheduler 定时清理历史数据
type RetentionScheduler struct {
	mu               sync.Mutex
	cron             *cron.Cron
	entryID          cron.EntryID
	retentionService *service.RetentionService
	cfg              config.RetentionConfig
	logger           *zap.Logger
	ctx              context.Context
	cancel           context.CancelFunc
	running          bool
}

// NewRetentionScheduler 创建清理调度器
func NewRetentionScheduler(retentionService *service.RetentionService, cfg config.RetentionConfig, logger *zap.Logger) *RetentionScheduler {
	return &RetentionScheduler{
		cron:             cron.New(cron.WithSeconds()), // 支持秒级调度
		retentionService: retentionService,
		cfg:              cfg,
		logger:           logger,
	}
}

// Start 启动调度器，Days 为 0 时不启动
func (s *RetentionScheduler) Start(ctx context.Context) error {
	if s.cfg.Days <= 0 {
		s.logger.Info("未配置数据保留天数，跳过清理任务")
		return nil
	}
	s.ctx, s.cancel = context.WithCancel(ctx)

	entryID, err := s.cron.AddFunc(s.cfg.Cron, func() {
		s.RunOnce(s.ctx)
	})
	if err != nil {
		return fmt.Errorf("添加 cron 任务失败: %w", err)
	}
	s.entryID = entryID

	s.logger.Info("启动数据清理调度器",
		zap.Int("days", s.cfg.Days),
		zap.String("cron", s.cfg.Cron))
	s.cron.Start()
	return nil
}

// Stop 停止调度器
func (s *RetentionScheduler) Stop() {
	if s.cancel != nil {
		s.cancel()
	}

	ctx := s.cron.Stop()
	<-ctx.Done()

	s.logger.Info("数据清理调度器已停止")
}

// RunOnce 执行一次清理，上一次尚未结束时跳过
func (s *RetentionScheduler) RunOnce(ctx context.Context) {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		s.logger.Warn("上一次清理尚未结束，跳过")
		return
	}
	s.running = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
	}()

	if _, err := s.retentionService.Purge(ctx, s.cfg.Days, time.Now()); err != nil {
		s.logger.Error("清理历史数据失败", zap.Error(err))
	}
}

// NextRun 下次执行时间，未启动时返回零值
func (s *RetentionScheduler) NextRun() time.Time {
	if s.entryID == 0 {
		return time.Time{}
	}
	entry := s.cron.Entry(s.entryID)
	if !entry.Next.IsZero() {
		return entry.Next
	}
	// 调度协程尚未计算下次时间
	if entry.Schedule == nil {
		return time.Time{}
	}
	return entry.Schedule.Next(time.Now())
}
