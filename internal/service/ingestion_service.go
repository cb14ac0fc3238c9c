package service

import (
	"context"
	"errors"
	"time"

	"github.com/dushixiang/monitoring/internal/config"
	"github.com/dushixiang/monitoring/internal/metric"
	"github.com/dushixiang/monitoring/internal/protocol"
	goerrors "github.com/go-errors/errors"
	"github.com/go-orz/cache"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// IngestionService 快照写入流程：解析 → 分解 → 写入
// 鉴权在进入本服务之前完成，请求之间不共享状态
type IngestionService struct {
	logger      *zap.Logger
	writer      *SnapshotWriter
	statusCache cache.Cache[int64, *metric.IngestStatus]
	statusTTL   time.Duration
}

func NewIngestionService(logger *zap.Logger, db *gorm.DB, cfg config.IngestConfig) *IngestionService {
	ttl := time.Duration(cfg.StatusTTLMinutes) * time.Minute
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &IngestionService{
		logger:      logger,
		writer:      NewSnapshotWriter(logger, db, cfg),
		statusCache: cache.New[int64, *metric.IngestStatus](time.Minute),
		statusTTL:   ttl,
	}
}

// Mode 当前写入模式
func (s *IngestionService) Mode() string {
	return s.writer.Mode()
}

// Ingest 写入一个快照，返回写入结果
func (s *IngestionService) Ingest(ctx context.Context, creds *Credentials, body []byte) (*WriteReport, error) {
	start := time.Now()

	doc, err := protocol.DecodeSnapshot(body)
	if err != nil {
		if errors.Is(err, protocol.ErrInvalidEncoding) {
			return nil, &ValidationError{Reason: ValidationEncodingError, Field: "hostname", Err: err}
		}
		return nil, &ValidationError{Reason: ValidationMalformedBody, Err: err}
	}

	plan, err := Normalize(doc, creds.ProfileID)
	if err != nil {
		return nil, err
	}

	report, err := s.writer.Write(ctx, plan)
	if err != nil {
		fields := []zap.Field{
			zap.Int64("profileId", creds.ProfileID),
			zap.String("mode", s.writer.Mode()),
			zap.Error(err),
		}
		var stackErr *goerrors.Error
		if errors.As(err, &stackErr) {
			fields = append(fields, zap.String("stack", string(stackErr.Stack())))
		}
		s.logger.Error("写入快照失败", fields...)
		return nil, err
	}

	status := &metric.IngestStatus{
		ProfileID:  creds.ProfileID,
		SnapshotID: report.RootID,
		Mode:       s.writer.Mode(),
		Succeeded:  len(report.Succeeded),
		Failed:     len(report.Failed),
		FailedKind: report.FailedKinds(),
		Duration:   time.Since(start).Milliseconds(),
		Timestamp:  time.Now().UTC(),
	}
	s.statusCache.Set(creds.ProfileID, status, s.statusTTL)

	if status.Complete() {
		s.logger.Info("快照已写入",
			zap.Int64("profileId", creds.ProfileID),
			zap.Int64("snapshotId", report.RootID),
			zap.Int("rows", status.Succeeded))
	} else {
		s.logger.Warn("快照部分写入",
			zap.Int64("profileId", creds.ProfileID),
			zap.Int64("snapshotId", report.RootID),
			zap.Int("succeeded", status.Succeeded),
			zap.Int("failed", status.Failed))
	}
	return report, nil
}

// LatestStatus 设备最近一次写入的结果
func (s *IngestionService) LatestStatus(profileID int64) (*metric.IngestStatus, bool) {
	return s.statusCache.Get(profileID)
}
