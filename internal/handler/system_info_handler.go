package handler

import (
	"io"
	"net/http"

	"github.com/dushixiang/monitoring/internal/service"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// SystemInfoHandler 快照上报
type SystemInfoHandler struct {
	logger    *zap.Logger
	ingestion *service.IngestionService
}

func NewSystemInfoHandler(logger *zap.Logger, ingestion *service.IngestionService) *SystemInfoHandler {
	return &SystemInfoHandler{
		logger:    logger,
		ingestion: ingestion,
	}
}

// Save 保存快照
// POST /system-info/:profileId
func (h *SystemInfoHandler) Save(c echo.Context) error {
	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{
			"error": "读取请求体失败",
		})
	}

	report, err := h.ingestion.Ingest(c.Request().Context(), credentialsFrom(c), body)
	if err != nil {
		return respondError(c, h.logger, err)
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"snapshot_id": report.RootID,
		"succeeded":   len(report.Succeeded),
		"failed":      len(report.Failed),
	})
}

// GetLatest 读取快照（未实现）
// GET /system-info/:profileId
func (h *SystemInfoHandler) GetLatest(c echo.Context) error {
	return c.JSON(http.StatusNotImplemented, map[string]string{
		"error": "not implemented",
	})
}

// GetStatus 最近一次写入结果
// GET /system-info/:profileId/status
func (h *SystemInfoHandler) GetStatus(c echo.Context) error {
	creds := credentialsFrom(c)
	status, ok := h.ingestion.LatestStatus(creds.ProfileID)
	if !ok {
		return c.JSON(http.StatusNotFound, map[string]string{
			"error": "暂无写入记录",
		})
	}
	return c.JSON(http.StatusOK, status)
}
