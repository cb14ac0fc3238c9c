package handler

import (
	"net/http"

	"github.com/dushixiang/monitoring/internal/protocol"
	"github.com/dushixiang/monitoring/internal/service"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// ProfileHandler 设备注册
type ProfileHandler struct {
	logger   *zap.Logger
	profiles *service.ProfileService
}

func NewProfileHandler(logger *zap.Logger, profiles *service.ProfileService) *ProfileHandler {
	return &ProfileHandler{
		logger:   logger,
		profiles: profiles,
	}
}

// List 获取所有设备
// GET /profiles
func (h *ProfileHandler) List(c echo.Context) error {
	profiles, err := h.profiles.List(c.Request().Context())
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return c.JSON(http.StatusOK, profiles)
}

// Create 注册设备
// POST /profiles
func (h *ProfileHandler) Create(c echo.Context) error {
	var req protocol.ProfileRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{
			"error": "请求参数错误",
		})
	}

	profile, err := h.profiles.Register(c.Request().Context(), req)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return c.JSON(http.StatusOK, profile)
}
