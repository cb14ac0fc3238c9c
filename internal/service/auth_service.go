package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"strconv"

	"github.com/dushixiang/monitoring/internal/config"
	"github.com/dushixiang/monitoring/internal/models"
	"go.uber.org/zap"
)

// ProfileGetter 按ID查找设备
type ProfileGetter interface {
	Get(ctx context.Context, id int64) (*models.DeviceProfile, error)
}

// Credentials 鉴权通过后的设备身份
type Credentials struct {
	ProfileID int64
}

// AuthService 两级鉴权：全局 API 密钥 + 设备密钥；读取密钥单独校验
type AuthService struct {
	logger   *zap.Logger
	apiKey   string
	readKey  string
	profiles ProfileGetter
}

func NewAuthService(logger *zap.Logger, security config.SecurityConfig, profiles ProfileGetter) *AuthService {
	return &AuthService{
		logger:   logger,
		apiKey:   security.ApiKey,
		readKey:  security.ReadKey,
		profiles: profiles,
	}
}

// CheckApiKey 校验全局 API 密钥
func (s *AuthService) CheckApiKey(apiKey string) error {
	if apiKey == "" {
		return &AuthError{Reason: AuthMissingApiKey}
	}
	if !equalKey(apiKey, s.apiKey) {
		return &AuthError{Reason: AuthInvalidApiKey}
	}
	return nil
}

// CheckReadKey 校验 API 密钥和读取密钥，不关联任何设备
func (s *AuthService) CheckReadKey(apiKey, readKey string) error {
	if err := s.CheckApiKey(apiKey); err != nil {
		return err
	}
	if readKey == "" {
		return &AuthError{Reason: AuthMissingReadKey}
	}
	if !equalKey(readKey, s.readKey) {
		return &AuthError{Reason: AuthInvalidReadKey}
	}
	return nil
}

// Authenticate 依次校验 API 密钥、设备是否存在、设备密钥
func (s *AuthService) Authenticate(ctx context.Context, apiKey, profileKey, pathProfileID string) (*Credentials, error) {
	if err := s.CheckApiKey(apiKey); err != nil {
		return nil, err
	}

	id, err := strconv.ParseInt(pathProfileID, 10, 64)
	if err != nil || id <= 0 {
		return nil, &AuthError{Reason: AuthProfileNotFound}
	}
	profile, err := s.profiles.Get(ctx, id)
	if err != nil {
		if errors.Is(err, ErrProfileNotFound) {
			return nil, &AuthError{Reason: AuthProfileNotFound}
		}
		return nil, fmt.Errorf("查询设备失败: %w", err)
	}

	if profileKey == "" {
		return nil, &AuthError{Reason: AuthMissingProfileKey}
	}
	if !equalKey(profileKey, profile.ProfileKey) {
		return nil, &AuthError{Reason: AuthInvalidProfileKey}
	}
	return &Credentials{ProfileID: profile.ID}, nil
}

func equalKey(given, expected string) bool {
	return subtle.ConstantTimeCompare([]byte(given), []byte(expected)) == 1
}
