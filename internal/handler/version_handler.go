package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// Version 服务版本，构建时通过 -ldflags 注入
var Version = "0.1.0"

// GetVersion 返回版本号，无需鉴权
// GET /
func GetVersion(c echo.Context) error {
	return c.String(http.StatusOK, "monitoring-service "+Version)
}
