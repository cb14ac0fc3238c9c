package service

import (
	"context"
	"fmt"

	"github.com/dushixiang/monitoring/internal/models"
	"github.com/dushixiang/monitoring/internal/protocol"
	"github.com/dushixiang/monitoring/internal/repo"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ProfileService 设备注册信息
type ProfileService struct {
	logger      *zap.Logger
	profileRepo *repo.ProfileRepo
	validate    *validator.Validate
}

func NewProfileService(logger *zap.Logger, db *gorm.DB) *ProfileService {
	return &ProfileService{
		logger:      logger,
		profileRepo: repo.NewProfileRepo(db),
		validate:    validator.New(),
	}
}

// Register 注册设备
func (s *ProfileService) Register(ctx context.Context, req protocol.ProfileRequest) (*models.DeviceProfile, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, &ValidationError{Reason: ValidationMalformedBody, Err: err}
	}

	profile := &models.DeviceProfile{
		DeviceName: req.DeviceName,
		ProfileKey: req.ProfileKey,
		CreateUser: req.CreateUser,
	}
	if err := s.profileRepo.Create(ctx, profile); err != nil {
		s.logger.Error("创建设备失败", zap.String("deviceName", req.DeviceName), zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}

	s.logger.Info("设备已注册",
		zap.Int64("profileId", profile.ID),
		zap.String("deviceName", profile.DeviceName),
		zap.Int64("createUser", profile.CreateUser))
	return profile, nil
}

// Get 获取设备，不存在时返回 ErrProfileNotFound
func (s *ProfileService) Get(ctx context.Context, id int64) (*models.DeviceProfile, error) {
	profile, err := s.profileRepo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	if profile == nil {
		return nil, ErrProfileNotFound
	}
	return profile, nil
}

// List 获取所有设备（按ID升序）
func (s *ProfileService) List(ctx context.Context) ([]models.DeviceProfile, error) {
	profiles, err := s.profileRepo.FindAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	return profiles, nil
}
