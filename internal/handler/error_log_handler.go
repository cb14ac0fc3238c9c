package handler

import (
	"io"
	"net/http"

	"github.com/dushixiang/monitoring/internal/service"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

type ErrorLogHandler struct {
	logger   *zap.Logger
	errorLog *service.ErrorLogService
}

func NewErrorLogHandler(logger *zap.Logger, errorLog *service.ErrorLogService) *ErrorLogHandler {
	return &ErrorLogHandler{
		logger:   logger,
		errorLog: errorLog,
	}
}

// Save 追加错误日志
// POST /error/:profileId
func (h *ErrorLogHandler) Save(c echo.Context) error {
	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{
			"error": "读取请求体失败",
		})
	}

	entry, err := h.errorLog.Append(c.Request().Context(), credentialsFrom(c), body)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return c.JSON(http.StatusOK, entry)
}
