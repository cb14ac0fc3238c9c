package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/dushixiang/monitoring/internal/models"
	"github.com/dushixiang/monitoring/internal/protocol"
	"github.com/dushixiang/monitoring/internal/repo"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ErrorLogService 设备错误日志
type ErrorLogService struct {
	logger       *zap.Logger
	errorLogRepo *repo.ErrorLogRepo
	validate     *validator.Validate
}

func NewErrorLogService(logger *zap.Logger, db *gorm.DB) *ErrorLogService {
	return &ErrorLogService{
		logger:       logger,
		errorLogRepo: repo.NewErrorLogRepo(db),
		validate:     validator.New(),
	}
}

// Append 追加一条错误日志，请求体为空时消息为空
func (s *ErrorLogService) Append(ctx context.Context, creds *Credentials, body []byte) (*models.ErrorLog, error) {
	var req protocol.ErrorLogRequest
	if len(bytes.TrimSpace(body)) > 0 {
		if err := json.Unmarshal(body, &req); err != nil {
			return nil, &ValidationError{Reason: ValidationMalformedBody, Err: err}
		}
	}
	if err := s.validate.Struct(req); err != nil {
		return nil, &ValidationError{Reason: ValidationMalformedBody, Field: "message", Err: err}
	}

	entry := &models.ErrorLog{
		DeviceProfileID: creds.ProfileID,
		Message:         req.Message,
	}
	if err := s.errorLogRepo.Create(ctx, entry); err != nil {
		s.logger.Error("保存错误日志失败", zap.Int64("profileId", creds.ProfileID), zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	return entry, nil
}
