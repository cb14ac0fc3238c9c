package handler

import (
	"errors"
	"net/http"

	"github.com/dushixiang/monitoring/internal/service"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

const (
	HeaderApiKey     = "x-api-key"
	HeaderProfileKey = "x-profile-key"
	HeaderReadKey    = "x-read-key"

	credentialsKey = "credentials"
)

// AuthMiddleware 鉴权中间件，在处理函数执行前给出鉴权结果
type AuthMiddleware struct {
	logger *zap.Logger
	auth   *service.AuthService
}

func NewAuthMiddleware(logger *zap.Logger, auth *service.AuthService) *AuthMiddleware {
	return &AuthMiddleware{
		logger: logger,
		auth:   auth,
	}
}

// ApiKey 只校验全局 API 密钥
func (m *AuthMiddleware) ApiKey(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if err := m.auth.CheckApiKey(c.Request().Header.Get(HeaderApiKey)); err != nil {
			return respondError(c, m.logger, err)
		}
		return next(c)
	}
}

// ReadKey 校验 API 密钥和读取密钥
func (m *AuthMiddleware) ReadKey(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		header := c.Request().Header
		if err := m.auth.CheckReadKey(header.Get(HeaderApiKey), header.Get(HeaderReadKey)); err != nil {
			return respondError(c, m.logger, err)
		}
		return next(c)
	}
}

// Profile 校验 API 密钥和路径中设备的密钥
func (m *AuthMiddleware) Profile(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		header := c.Request().Header
		creds, err := m.auth.Authenticate(c.Request().Context(),
			header.Get(HeaderApiKey),
			header.Get(HeaderProfileKey),
			c.Param("profileId"))
		if err != nil {
			return respondError(c, m.logger, err)
		}
		c.Set(credentialsKey, creds)
		return next(c)
	}
}

// credentialsFrom 获取鉴权中间件写入的设备身份
func credentialsFrom(c echo.Context) *service.Credentials {
	creds, _ := c.Get(credentialsKey).(*service.Credentials)
	return creds
}

// respondError 错误到状态码的映射：鉴权、校验失败 400，其它 500
func respondError(c echo.Context, logger *zap.Logger, err error) error {
	var authErr *service.AuthError
	if errors.As(err, &authErr) {
		logger.Debug("鉴权失败",
			zap.String("reason", string(authErr.Reason)),
			zap.String("path", c.Path()),
			zap.String("profileId", c.Param("profileId")))
		return c.JSON(http.StatusBadRequest, map[string]string{
			"error": string(authErr.Reason),
		})
	}

	var validationErr *service.ValidationError
	if errors.As(err, &validationErr) {
		return c.JSON(http.StatusBadRequest, map[string]string{
			"error": validationErr.Error(),
		})
	}

	logger.Error("请求处理失败", zap.String("path", c.Path()), zap.Error(err))
	return c.JSON(http.StatusInternalServerError, map[string]string{
		"error": "服务器内部错误",
	})
}
